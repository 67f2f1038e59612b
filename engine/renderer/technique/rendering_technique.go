package technique

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/framebuffer"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/shader"
)

// states is the pipeline configuration a technique binds on every Use.
type states struct {
	rasterizer       pipeline.RasterizerState
	depthStencil     pipeline.DepthStencilState
	blend            pipeline.BlendState
	polygonOffset    pipeline.PolygonOffset
	stencilReference pipeline.StencilReference
	blendFactor      [4]float32
}

// ownedResources are the device objects a technique allocated. They are kept apart from the technique so
// its builder can still release them after the technique was collected.
type ownedResources struct {
	program  shader.Program
	samplers []gpu.Sampler
	buffers  []buffer.GraphicsBuffer
	released bool
}

// release frees every object once. It reports whether this call released them.
func (r *ownedResources) release() bool {
	if r.released {
		return false
	}
	r.released = true
	for _, buf := range r.buffers {
		buf.Release()
	}
	for _, s := range r.samplers {
		s.Release()
	}
	r.program.Release()
	return true
}

// nextTechniqueID hands out technique identities.
var nextTechniqueID atomic.Uint64

// renderingTechnique is the implementation of the RenderingTechnique interface.
type renderingTechnique struct {
	id      uint64
	name    string
	ctx     *gpu.Context
	program shader.Program
	states  states
	layout  framebuffer.Layout

	// samplers maps texture names to their sampler objects.
	samplers map[string]gpu.Sampler
	res      *ownedResources

	parameters []*Parameter
	byName     map[string]*Parameter
	setters    []func()

	frameBuffer framebuffer.FrameBuffer
	released    bool
}

// RenderingTechnique is a linked program together with its pipeline state, samplers and parameters.
// Use binds all of it before draw calls are issued.
type RenderingTechnique interface {
	// ID returns the process-unique identity of the technique. A rebuilt technique gets a new identity.
	ID() uint64

	// Name returns the name of the root node the technique was built from.
	Name() string

	// Program returns the linked program.
	Program() shader.Program

	RasterizerState() pipeline.RasterizerState
	DepthStencilState() pipeline.DepthStencilState
	BlendState() pipeline.BlendState

	// FramebufferLayout returns the framebuffer layout requirement the technique was built against.
	FramebufferLayout() framebuffer.Layout

	// Sampler returns the sampler bound with the named texture, nil if there is no such texture.
	Sampler(texture string) gpu.Sampler

	// Parameters returns every parameter in binding order.
	Parameters() []*Parameter

	// Parameter looks up a parameter by binding name.
	//
	// Parameters:
	//   - name: the binding name
	//
	// Returns:
	//   - *Parameter: the parameter, nil if the technique has no such binding
	Parameter(name string) *Parameter

	PolygonOffset() pipeline.PolygonOffset
	SetPolygonOffset(offset pipeline.PolygonOffset)
	StencilReference() pipeline.StencilReference
	SetStencilReference(ref pipeline.StencilReference)
	BlendFactor() [4]float32
	SetBlendFactor(factor [4]float32)

	// ConnectFrameBuffer sets the render target of the technique. With debug checks enabled on the context
	// the layout of fb is checked against the program outputs and the depth-stencil state.
	//
	// Parameters:
	//   - fb: the framebuffer to render to
	//
	// Returns:
	//   - error: a *FramebufferMismatchError if the debug check fails, fb is not connected then
	ConnectFrameBuffer(fb framebuffer.FrameBuffer) error

	// FrameBuffer returns the connected framebuffer, nil if none is connected.
	FrameBuffer() framebuffer.FrameBuffer

	// Use binds pipeline state, the framebuffer, every resource and finally the program.
	// It panics with an *UnconnectedFramebufferError if no framebuffer is connected.
	Use()

	// SetupAllResources is an alias of Use.
	SetupAllResources()

	// Released reports whether Release has been called.
	Released() bool

	// Release frees the program, the samplers and the buffers the technique allocated.
	Release()
}

var _ RenderingTechnique = &renderingTechnique{}

// newRenderingTechnique creates one parameter and one resource setter per binding of the linked program.
// Buffer blocks are backed by a new buffer unless their name carries the reserved prefix.
func newRenderingTechnique(ctx *gpu.Context, name string, program shader.Program, st states, layout framebuffer.Layout, samplers map[string]gpu.Sampler, owned []gpu.Sampler) (*renderingTechnique, error) {
	t := &renderingTechnique{
		id:       nextTechniqueID.Add(1),
		name:     name,
		ctx:      ctx,
		program:  program,
		states:   st,
		layout:   layout,
		samplers: samplers,
		res:      &ownedResources{program: program, samplers: owned},
		byName:   make(map[string]*Parameter),
	}
	device := ctx.Device()

	blocks := []struct {
		bindings []shader.BufferBinding
		bind     func(index int, buf gpu.Buffer)
	}{
		{program.UniformBuffers(), device.BindUniformBuffer},
		{program.StorageBuffers(), device.BindStorageBuffer},
		{program.AtomicCounterBuffers(), device.BindAtomicCounterBuffer},
	}
	for _, group := range blocks {
		for _, b := range group.bindings {
			p := &Parameter{name: b.Name, kind: ParameterBuffer, block: b, managed: strings.HasPrefix(b.Name, shader.ReservedPrefix)}
			if !p.managed {
				buf, err := buffer.NewGraphicsBuffer(device, roundUp16(max(b.Size, 1)),
					buffer.WithLabel(name+" "+b.Name),
					buffer.WithUsage(gpu.UsageDynamicDraw),
				)
				if err != nil {
					t.Release()
					return nil, fmt.Errorf("technique %q: %w", name, err)
				}
				p.buffer = buf
				t.res.buffers = append(t.res.buffers, buf)
				common.Logger().Debug("technique buffer allocated", slog.String("technique", name), slog.String("block", b.Name), slog.Int("size", buf.Size()))
			}
			bind, index := group.bind, b.Index
			t.add(p, func() {
				if p.buffer == nil {
					panic(fmt.Sprintf("technique %q: engine-managed block %q has no buffer attached", name, p.name))
				}
				bind(index, p.buffer.Handle())
			})
		}
	}

	for _, tb := range program.Textures() {
		p := &Parameter{name: tb.Name, kind: ParameterTexture, dimension: tb.Dimension, sampler: samplers[tb.Name]}
		index := tb.Index
		t.add(p, func() {
			tex := p.texture
			if tex == nil {
				tex = ctx.DefaultTexture(p.dimension)
			}
			device.BindTexture(index, tex, p.sampler)
		})
	}

	for _, ib := range program.Images() {
		p := &Parameter{name: ib.Name, kind: ParameterImage, dimension: ib.Dimension, format: ib.Format, access: ib.Access}
		index := ib.Index
		t.add(p, func() {
			if p.texture != nil {
				device.BindImageTexture(index, p.texture, p.access, p.format)
			}
		})
	}

	for _, u := range program.Uniforms() {
		p := &Parameter{name: u.Name, kind: ParameterValue, value: common.ZeroValue(u.Type)}
		t.add(p, nil)
		uniform := u.Name
		program.AddUniformSetter(func() {
			program.SetUniform(uniform, p.value)
		})
	}
	return t, nil
}

// add registers a parameter and its resource setter. A nil setter means the program pushes the value.
func (t *renderingTechnique) add(p *Parameter, setter func()) {
	t.parameters = append(t.parameters, p)
	t.byName[p.name] = p
	if setter != nil {
		t.setters = append(t.setters, setter)
	}
}

func roundUp16(n int) int {
	return (n + 15) &^ 15
}

func (t *renderingTechnique) ID() uint64 {
	return t.id
}

func (t *renderingTechnique) Name() string {
	return t.name
}

func (t *renderingTechnique) Program() shader.Program {
	return t.program
}

func (t *renderingTechnique) RasterizerState() pipeline.RasterizerState {
	return t.states.rasterizer
}

func (t *renderingTechnique) DepthStencilState() pipeline.DepthStencilState {
	return t.states.depthStencil
}

func (t *renderingTechnique) BlendState() pipeline.BlendState {
	return t.states.blend
}

func (t *renderingTechnique) FramebufferLayout() framebuffer.Layout {
	return t.layout
}

func (t *renderingTechnique) Sampler(texture string) gpu.Sampler {
	return t.samplers[texture]
}

func (t *renderingTechnique) Parameters() []*Parameter {
	return t.parameters
}

func (t *renderingTechnique) Parameter(name string) *Parameter {
	return t.byName[name]
}

func (t *renderingTechnique) PolygonOffset() pipeline.PolygonOffset {
	return t.states.polygonOffset
}

func (t *renderingTechnique) SetPolygonOffset(offset pipeline.PolygonOffset) {
	t.states.polygonOffset = offset
}

func (t *renderingTechnique) StencilReference() pipeline.StencilReference {
	return t.states.stencilReference
}

func (t *renderingTechnique) SetStencilReference(ref pipeline.StencilReference) {
	t.states.stencilReference = ref
}

func (t *renderingTechnique) BlendFactor() [4]float32 {
	return t.states.blendFactor
}

func (t *renderingTechnique) SetBlendFactor(factor [4]float32) {
	t.states.blendFactor = factor
}

func (t *renderingTechnique) ConnectFrameBuffer(fb framebuffer.FrameBuffer) error {
	if t.ctx.Debug() && fb != nil {
		if reason := t.checkLayout(fb.Layout()); reason != "" {
			err := &FramebufferMismatchError{Technique: t.name, Reason: reason}
			common.Logger().Warn("framebuffer rejected", slog.String("technique", t.name), slog.String("reason", reason))
			return err
		}
	}
	t.frameBuffer = fb
	return nil
}

// checkLayout compares a framebuffer layout channel by channel with the program outputs and the
// depth-stencil state. It returns an empty string for a compatible layout.
func (t *renderingTechnique) checkLayout(layout framebuffer.Layout) string {
	for _, o := range t.program.Outputs() {
		ch, idx := layout.Channel(o.Name)
		switch {
		case idx < 0:
			return fmt.Sprintf("output %q has no channel in framebuffer layout %q", o.Name, layout.Name)
		case idx != o.Location:
			return fmt.Sprintf("output %q is written to location %d but channel %q is attachment %d", o.Name, o.Location, ch.Name, idx)
		case ch.Format != o.Format:
			return fmt.Sprintf("output %q has format %s but channel %q is %s", o.Name, o.Format, ch.Name, ch.Format)
		}
	}
	if t.states.depthStencil.UsesDepth() && !layout.HasDepth() {
		return fmt.Sprintf("depth test or write is enabled but framebuffer layout %q has no depth attachment", layout.Name)
	}
	if t.states.depthStencil.UsesStencil() && !layout.HasStencil() {
		return fmt.Sprintf("stencil test is enabled but framebuffer layout %q has no stencil attachment", layout.Name)
	}
	return ""
}

func (t *renderingTechnique) FrameBuffer() framebuffer.FrameBuffer {
	return t.frameBuffer
}

func (t *renderingTechnique) Use() {
	if t.frameBuffer == nil {
		panic(&UnconnectedFramebufferError{Technique: t.name})
	}
	device := t.ctx.Device()
	device.BindRasterizerState(t.states.rasterizer, t.states.polygonOffset)
	device.BindDepthStencilState(t.states.depthStencil, t.states.stencilReference)
	device.BindBlendState(t.states.blend, t.states.blendFactor)
	device.BindFramebuffer(t.frameBuffer.Handle())
	for _, set := range t.setters {
		set()
	}
	t.program.Bind()
}

func (t *renderingTechnique) SetupAllResources() {
	t.Use()
}

func (t *renderingTechnique) Released() bool {
	return t.released
}

func (t *renderingTechnique) Release() {
	if t.released {
		return
	}
	t.released = true
	t.res.release()
	common.Logger().Debug("technique released", slog.String("technique", t.name))
}
