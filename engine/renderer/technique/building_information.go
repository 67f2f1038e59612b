// Package technique turns include graphs of building information into compiled, drawable techniques.
package technique

import (
	"maps"

	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/framebuffer"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/shader"
)

// Define is a macro definition inserted ahead of the sources of the node that declares it.
type Define struct {
	Name  string
	Value string
}

// BuildingInformation is one node of a technique include graph. It declares shader source fragments,
// pipeline state, sampler states, a resource interface and optionally the framebuffer layout the
// technique renders to. A node is immutable once created.
type BuildingInformation struct {
	name     string
	includes []*BuildingInformation

	sources       map[shader.ShaderType][]string
	commonSources []string
	defines       []Define

	rasterizer   *pipeline.RasterizerState
	depthStencil *pipeline.DepthStencilState
	blend        *pipeline.BlendState
	samplers     map[string]pipeline.SamplerState

	polygonOffset    *pipeline.PolygonOffset
	stencilReference *pipeline.StencilReference
	blendFactor      *[4]float32

	framebuffer *framebuffer.Layout
	resources   shader.ResourcePack
}

// NewBuildingInformation creates a node of a technique include graph.
//
// Parameters:
//   - name: the node name, also the name of a technique built from this node
//   - opts: a variadic list of BuildingInformationOption functions
//
// Returns:
//   - *BuildingInformation: the node
func NewBuildingInformation(name string, opts ...BuildingInformationOption) *BuildingInformation {
	bi := &BuildingInformation{
		name:     name,
		sources:  make(map[shader.ShaderType][]string),
		samplers: make(map[string]pipeline.SamplerState),
	}
	for _, opt := range opts {
		opt(bi)
	}
	return bi
}

// Name returns the node name.
func (bi *BuildingInformation) Name() string {
	return bi.name
}

// Includes returns the included nodes in declaration order.
func (bi *BuildingInformation) Includes() []*BuildingInformation {
	return bi.includes
}

// Sources returns the source fragments the node contributes to stage.
func (bi *BuildingInformation) Sources(stage shader.ShaderType) []string {
	return bi.sources[stage]
}

// CommonSources returns the source fragments the node contributes to every stage.
func (bi *BuildingInformation) CommonSources() []string {
	return bi.commonSources
}

// Defines returns the macro definitions of the node in declaration order.
func (bi *BuildingInformation) Defines() []Define {
	return bi.defines
}

// RasterizerState returns the rasterizer state of the node, if it declares one.
func (bi *BuildingInformation) RasterizerState() (pipeline.RasterizerState, bool) {
	if bi.rasterizer == nil {
		return pipeline.RasterizerState{}, false
	}
	return *bi.rasterizer, true
}

// DepthStencilState returns the depth-stencil state of the node, if it declares one.
func (bi *BuildingInformation) DepthStencilState() (pipeline.DepthStencilState, bool) {
	if bi.depthStencil == nil {
		return pipeline.DepthStencilState{}, false
	}
	return *bi.depthStencil, true
}

// BlendState returns the blend state of the node, if it declares one.
func (bi *BuildingInformation) BlendState() (pipeline.BlendState, bool) {
	if bi.blend == nil {
		return pipeline.BlendState{}, false
	}
	return *bi.blend, true
}

// SamplerStates returns a copy of the named sampler states declared by the node.
func (bi *BuildingInformation) SamplerStates() map[string]pipeline.SamplerState {
	return maps.Clone(bi.samplers)
}

// FramebufferLayout returns the framebuffer layout requirement of the node, if it declares one.
func (bi *BuildingInformation) FramebufferLayout() (framebuffer.Layout, bool) {
	if bi.framebuffer == nil {
		return framebuffer.Layout{}, false
	}
	return *bi.framebuffer, true
}

// Resources returns the resource interface declared by the node.
func (bi *BuildingInformation) Resources() shader.ResourcePack {
	return bi.resources
}

// Flatten walks the include graph of root depth first, emitting the includes of a node before the node
// itself. A node reachable on several paths is emitted once, at its first position.
//
// Parameters:
//   - root: the node to flatten
//
// Returns:
//   - []*BuildingInformation: the nodes, dependencies first, root last
func Flatten(root *BuildingInformation) []*BuildingInformation {
	var order []*BuildingInformation
	visited := make(map[*BuildingInformation]struct{})
	var visit func(n *BuildingInformation)
	visit = func(n *BuildingInformation) {
		if n == nil {
			return
		}
		if _, seen := visited[n]; seen {
			return
		}
		visited[n] = struct{}{}
		for _, inc := range n.includes {
			visit(inc)
		}
		order = append(order, n)
	}
	visit(root)
	return order
}
