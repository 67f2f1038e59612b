package gpu

import "fmt"

// Usage is the expected access pattern of a buffer: how often it changes and who reads it.
type Usage int

const (
	UsageStaticDraw Usage = iota
	UsageStaticRead
	UsageStaticCopy
	UsageDynamicDraw
	UsageDynamicRead
	UsageDynamicCopy
	UsageStreamDraw
	UsageStreamRead
	UsageStreamCopy
)

var usageNames = [...]string{
	"StaticDraw", "StaticRead", "StaticCopy",
	"DynamicDraw", "DynamicRead", "DynamicCopy",
	"StreamDraw", "StreamRead", "StreamCopy",
}

func (u Usage) String() string {
	if u < 0 || int(u) >= len(usageNames) {
		return fmt.Sprintf("Usage(%d)", int(u))
	}
	return usageNames[u]
}

// Readable reports whether the usage expects the CPU to read the buffer back.
func (u Usage) Readable() bool {
	return u == UsageStaticRead || u == UsageDynamicRead || u == UsageStreamRead
}

// BindingKind identifies what a buffer view is bound as.
type BindingKind int

const (
	BindingVertex BindingKind = iota
	BindingIndex
	BindingUniform
	BindingStorage
	BindingAtomicCounter
	BindingTexture
)

var bindingKindNames = [...]string{"Vertex", "Index", "Uniform", "Storage", "AtomicCounter", "Texture"}

func (k BindingKind) String() string {
	if k < 0 || int(k) >= len(bindingKindNames) {
		return fmt.Sprintf("BindingKind(%d)", int(k))
	}
	return bindingKindNames[k]
}

// Topology is the primitive assembly mode of an indexed draw.
type Topology string

const (
	TopologyPoints        Topology = "points"
	TopologyLines         Topology = "lines"
	TopologyLineStrip     Topology = "line_strip"
	TopologyTriangles     Topology = "triangles"
	TopologyTriangleStrip Topology = "triangle_strip"
)

// Valid reports whether t is a known topology.
func (t Topology) Valid() bool {
	switch t {
	case TopologyPoints, TopologyLines, TopologyLineStrip, TopologyTriangles, TopologyTriangleStrip:
		return true
	}
	return false
}

// TextureFormat is a texel format, spelled the way WGSL spells texel formats.
type TextureFormat string

const (
	FormatUndefined           TextureFormat = ""
	FormatR8Unorm             TextureFormat = "r8unorm"
	FormatRGBA8Unorm          TextureFormat = "rgba8unorm"
	FormatRGBA8UnormSrgb      TextureFormat = "rgba8unorm-srgb"
	FormatRGBA8Snorm          TextureFormat = "rgba8snorm"
	FormatRGBA8Uint           TextureFormat = "rgba8uint"
	FormatRGBA8Sint           TextureFormat = "rgba8sint"
	FormatBGRA8Unorm          TextureFormat = "bgra8unorm"
	FormatBGRA8UnormSrgb      TextureFormat = "bgra8unorm-srgb"
	FormatRGBA16Uint          TextureFormat = "rgba16uint"
	FormatRGBA16Sint          TextureFormat = "rgba16sint"
	FormatRGBA16Float         TextureFormat = "rgba16float"
	FormatR32Uint             TextureFormat = "r32uint"
	FormatR32Sint             TextureFormat = "r32sint"
	FormatR32Float            TextureFormat = "r32float"
	FormatRG32Uint            TextureFormat = "rg32uint"
	FormatRG32Sint            TextureFormat = "rg32sint"
	FormatRG32Float           TextureFormat = "rg32float"
	FormatRGBA32Uint          TextureFormat = "rgba32uint"
	FormatRGBA32Sint          TextureFormat = "rgba32sint"
	FormatRGBA32Float         TextureFormat = "rgba32float"
	FormatDepth16Unorm        TextureFormat = "depth16unorm"
	FormatDepth24Plus         TextureFormat = "depth24plus"
	FormatDepth24PlusStencil8 TextureFormat = "depth24plus-stencil8"
	FormatDepth32Float        TextureFormat = "depth32float"
)

var texelSizes = map[TextureFormat]int{
	FormatR8Unorm: 1, FormatRGBA8Unorm: 4, FormatRGBA8UnormSrgb: 4, FormatRGBA8Snorm: 4,
	FormatRGBA8Uint: 4, FormatRGBA8Sint: 4, FormatBGRA8Unorm: 4, FormatBGRA8UnormSrgb: 4,
	FormatRGBA16Uint: 8, FormatRGBA16Sint: 8, FormatRGBA16Float: 8,
	FormatR32Uint: 4, FormatR32Sint: 4, FormatR32Float: 4,
	FormatRG32Uint: 8, FormatRG32Sint: 8, FormatRG32Float: 8,
	FormatRGBA32Uint: 16, FormatRGBA32Sint: 16, FormatRGBA32Float: 16,
	FormatDepth16Unorm: 2, FormatDepth24Plus: 4, FormatDepth24PlusStencil8: 4, FormatDepth32Float: 4,
}

// Valid reports whether f is a known, defined format.
func (f TextureFormat) Valid() bool {
	_, ok := texelSizes[f]
	return ok
}

// TexelSize returns the byte size of a single texel, or 0 for unknown formats.
func (f TextureFormat) TexelSize() int {
	return texelSizes[f]
}

// IsDepth reports whether the format carries a depth aspect.
func (f TextureFormat) IsDepth() bool {
	switch f {
	case FormatDepth16Unorm, FormatDepth24Plus, FormatDepth24PlusStencil8, FormatDepth32Float:
		return true
	}
	return false
}

// HasStencil reports whether the format carries a stencil aspect.
func (f TextureFormat) HasStencil() bool {
	return f == FormatDepth24PlusStencil8
}

// Dimension is the view dimension of a texture binding.
type Dimension string

const (
	Dimension1D        Dimension = "1d"
	Dimension2D        Dimension = "2d"
	Dimension2DArray   Dimension = "2d_array"
	Dimension3D        Dimension = "3d"
	DimensionCube      Dimension = "cube"
	DimensionCubeArray Dimension = "cube_array"
)

// Dimensions lists every texture dimension in declaration order.
var Dimensions = []Dimension{Dimension1D, Dimension2D, Dimension2DArray, Dimension3D, DimensionCube, DimensionCubeArray}

// Valid reports whether d is a known dimension.
func (d Dimension) Valid() bool {
	for _, known := range Dimensions {
		if d == known {
			return true
		}
	}
	return false
}

// Access is the access mode of an image binding, spelled the way WGSL spells storage access modes.
type Access string

const (
	AccessReadOnly  Access = "read"
	AccessWriteOnly Access = "write"
	AccessReadWrite Access = "read_write"
)

// Valid reports whether a is a known access mode.
func (a Access) Valid() bool {
	return a == AccessReadOnly || a == AccessWriteOnly || a == AccessReadWrite
}

// Stage identifies a programmable pipeline stage.
type Stage int

const (
	StageVertex Stage = 1 << iota
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageVertex | StageFragment:
		return "vertex|fragment"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Resource bind groups. Every resource category owns one group so that a resource's binding index
// equals its declaration position within the category. Samplers share the index of their texture.
const (
	GroupUniformBuffers = iota
	GroupStorageBuffers
	GroupAtomicCounters
	GroupTextures
	GroupSamplers
	GroupImages
	GroupDefaultUniforms
	GroupCount
)
