package shader

import (
	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
)

// Variable declares a typed, named shader input, output or plain uniform.
type Variable struct {
	Name string
	Type common.ElementType
}

// Output declares a fragment output channel and the format of the attachment it is written to.
type Output struct {
	Name   string
	Format gpu.TextureFormat
}

// TextureDecl declares a sampled texture. Sampler names the sampler state it is sampled with.
// In WGSL the sampler variable of texture "name" is declared as "name_sampler".
type TextureDecl struct {
	Name    string
	Sampler string
}

// ImageDecl declares a storage texture with its texel format and access mode.
type ImageDecl struct {
	Name   string
	Format gpu.TextureFormat
	Access gpu.Access
}

// ResourcePack lists the declared resources of a program per category. The position of a resource in its
// category becomes its binding index, or its location for attributes and outputs.
type ResourcePack struct {
	Attributes           []Variable
	Outputs              []Output
	UniformBuffers       []string
	StorageBuffers       []string
	AtomicCounterBuffers []string
	Textures             []TextureDecl
	Images               []ImageDecl
	// Uniforms are gathered into the default uniform block, see DefaultUniformPrelude.
	Uniforms []Variable
}

// Append concatenates every category of other after the matching category of p.
//
// Parameters:
//   - other: the pack to append
//
// Returns:
//   - ResourcePack: the concatenated pack
func (p ResourcePack) Append(other ResourcePack) ResourcePack {
	return ResourcePack{
		Attributes:           append(append([]Variable(nil), p.Attributes...), other.Attributes...),
		Outputs:              append(append([]Output(nil), p.Outputs...), other.Outputs...),
		UniformBuffers:       append(append([]string(nil), p.UniformBuffers...), other.UniformBuffers...),
		StorageBuffers:       append(append([]string(nil), p.StorageBuffers...), other.StorageBuffers...),
		AtomicCounterBuffers: append(append([]string(nil), p.AtomicCounterBuffers...), other.AtomicCounterBuffers...),
		Textures:             append(append([]TextureDecl(nil), p.Textures...), other.Textures...),
		Images:               append(append([]ImageDecl(nil), p.Images...), other.Images...),
		Uniforms:             append(append([]Variable(nil), p.Uniforms...), other.Uniforms...),
	}
}

// AttributeBinding is a linked vertex attribute. Matrix attributes occupy Type.LocationCount() locations from Location.
type AttributeBinding struct {
	Name     string
	Type     common.ElementType
	Location int
}

// OutputBinding is a linked fragment output.
type OutputBinding struct {
	Name     string
	Type     common.ElementType
	Format   gpu.TextureFormat
	Location int
}

// MemberBinding is one addressable field of a buffer block. Count is 1 for plain members,
// the element count for fixed arrays and 0 for runtime-sized arrays.
type MemberBinding struct {
	Name   string
	Type   common.ElementType
	Offset int
	Stride int
	Count  int
}

// BufferBinding is a linked uniform, storage or atomic-counter buffer block.
type BufferBinding struct {
	Name     string
	Kind     gpu.BindingKind
	Index    int
	Size     int
	ReadOnly bool
	Members  []MemberBinding
}

// Member returns the member with the given name.
//
// Parameters:
//   - name: the member name, dotted for nested struct members
//
// Returns:
//   - MemberBinding: the member
//   - bool: false if the block has no such member
func (b BufferBinding) Member(name string) (MemberBinding, bool) {
	for _, m := range b.Members {
		if m.Name == name {
			return m, true
		}
	}
	return MemberBinding{}, false
}

// TextureBinding is a linked sampled texture and its sampler.
type TextureBinding struct {
	Name         string
	Index        int
	Dimension    gpu.Dimension
	SampleType   gpu.SampleType
	Multisampled bool
	// Sampler is the sampler state name from the resource pack.
	Sampler string
	// Comparison is true when the WGSL sampler variable is a sampler_comparison.
	Comparison bool
}

// ImageBinding is a linked storage texture.
type ImageBinding struct {
	Name      string
	Index     int
	Dimension gpu.Dimension
	Format    gpu.TextureFormat
	Access    gpu.Access
}

// UniformBinding is a member of the default uniform block.
type UniformBinding struct {
	Name   string
	Type   common.ElementType
	Offset int
}
