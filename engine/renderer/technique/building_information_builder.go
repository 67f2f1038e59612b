package technique

import (
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/framebuffer"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/shader"
)

// BuildingInformationOption is a functional option used to declare the contents of a BuildingInformation.
type BuildingInformationOption func(bi *BuildingInformation)

// WithIncludes appends nodes to the include list. Include order decides source order and binding order.
//
// Parameters:
//   - nodes: the nodes to include
//
// Returns:
//   - BuildingInformationOption: a function that appends the includes
func WithIncludes(nodes ...*BuildingInformation) BuildingInformationOption {
	return func(bi *BuildingInformation) {
		bi.includes = append(bi.includes, nodes...)
	}
}

// WithSource appends source fragments for one stage.
//
// Parameters:
//   - stage: the shader stage
//   - fragments: the WGSL source fragments
//
// Returns:
//   - BuildingInformationOption: a function that appends the sources
func WithSource(stage shader.ShaderType, fragments ...string) BuildingInformationOption {
	return func(bi *BuildingInformation) {
		bi.sources[stage] = append(bi.sources[stage], fragments...)
	}
}

// WithCommonSource appends source fragments shared by every stage, placed ahead of the stage sources of the node.
//
// Parameters:
//   - fragments: the WGSL source fragments
//
// Returns:
//   - BuildingInformationOption: a function that appends the sources
func WithCommonSource(fragments ...string) BuildingInformationOption {
	return func(bi *BuildingInformation) {
		bi.commonSources = append(bi.commonSources, fragments...)
	}
}

// WithDefine declares a macro for the sources of this node and every node after it.
//
// Parameters:
//   - name: the macro name
//   - value: the replacement text, may be empty
//
// Returns:
//   - BuildingInformationOption: a function that appends the definition
func WithDefine(name, value string) BuildingInformationOption {
	return func(bi *BuildingInformation) {
		bi.defines = append(bi.defines, Define{Name: name, Value: value})
	}
}

// WithRasterizerState sets the rasterizer state. A later node in include order overrides it.
func WithRasterizerState(state pipeline.RasterizerState) BuildingInformationOption {
	return func(bi *BuildingInformation) {
		bi.rasterizer = &state
	}
}

// WithDepthStencilState sets the depth-stencil state. A later node in include order overrides it.
func WithDepthStencilState(state pipeline.DepthStencilState) BuildingInformationOption {
	return func(bi *BuildingInformation) {
		bi.depthStencil = &state
	}
}

// WithBlendState sets the blend state. A later node in include order overrides it.
func WithBlendState(state pipeline.BlendState) BuildingInformationOption {
	return func(bi *BuildingInformation) {
		bi.blend = &state
	}
}

// WithSamplerState declares a named sampler state that textures of any node may reference.
//
// Parameters:
//   - name: the sampler state name
//   - state: the sampler configuration
//
// Returns:
//   - BuildingInformationOption: a function that declares the sampler state
func WithSamplerState(name string, state pipeline.SamplerState) BuildingInformationOption {
	return func(bi *BuildingInformation) {
		bi.samplers[name] = state
	}
}

// WithPolygonOffset sets the initial polygon offset of the technique.
func WithPolygonOffset(offset pipeline.PolygonOffset) BuildingInformationOption {
	return func(bi *BuildingInformation) {
		bi.polygonOffset = &offset
	}
}

// WithStencilReference sets the initial stencil reference values of the technique.
func WithStencilReference(ref pipeline.StencilReference) BuildingInformationOption {
	return func(bi *BuildingInformation) {
		bi.stencilReference = &ref
	}
}

// WithBlendFactor sets the initial blend constant of the technique.
func WithBlendFactor(factor [4]float32) BuildingInformationOption {
	return func(bi *BuildingInformation) {
		bi.blendFactor = &factor
	}
}

// WithFramebufferLayout declares the framebuffer layout the technique renders to. Exactly one node of an
// include graph must declare it.
//
// Parameters:
//   - layout: the required layout
//
// Returns:
//   - BuildingInformationOption: a function that sets the requirement
func WithFramebufferLayout(layout framebuffer.Layout) BuildingInformationOption {
	return func(bi *BuildingInformation) {
		bi.framebuffer = &layout
	}
}

// WithResources appends a resource interface to the one declared by the node.
//
// Parameters:
//   - pack: the resources to append, category by category
//
// Returns:
//   - BuildingInformationOption: a function that appends the resources
func WithResources(pack shader.ResourcePack) BuildingInformationOption {
	return func(bi *BuildingInformation) {
		bi.resources = bi.resources.Append(pack)
	}
}

// WithAttributes appends vertex attribute declarations.
func WithAttributes(attributes ...shader.Variable) BuildingInformationOption {
	return WithResources(shader.ResourcePack{Attributes: attributes})
}

// WithUniformBuffers appends uniform buffer block declarations.
func WithUniformBuffers(names ...string) BuildingInformationOption {
	return WithResources(shader.ResourcePack{UniformBuffers: names})
}

// WithStorageBuffers appends storage buffer block declarations.
func WithStorageBuffers(names ...string) BuildingInformationOption {
	return WithResources(shader.ResourcePack{StorageBuffers: names})
}

// WithAtomicCounterBuffers appends atomic counter buffer declarations.
func WithAtomicCounterBuffers(names ...string) BuildingInformationOption {
	return WithResources(shader.ResourcePack{AtomicCounterBuffers: names})
}

// WithTexture appends a sampled texture declaration.
//
// Parameters:
//   - name: the texture variable name
//   - sampler: the name of the sampler state it is sampled with
//
// Returns:
//   - BuildingInformationOption: a function that appends the texture
func WithTexture(name, sampler string) BuildingInformationOption {
	return WithResources(shader.ResourcePack{Textures: []shader.TextureDecl{{Name: name, Sampler: sampler}}})
}

// WithImages appends storage texture declarations.
func WithImages(images ...shader.ImageDecl) BuildingInformationOption {
	return WithResources(shader.ResourcePack{Images: images})
}

// WithUniforms appends plain uniform declarations, gathered into the default uniform block.
func WithUniforms(uniforms ...shader.Variable) BuildingInformationOption {
	return WithResources(shader.ResourcePack{Uniforms: uniforms})
}
