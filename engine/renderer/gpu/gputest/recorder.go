// Package gputest provides a recording gpu.Device for tests that run without a GPU.
package gputest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/pipeline"
)

// Version is the version string reported by a Recorder.
const Version = "gputest 1.0"

// Recorder is a gpu.Device that keeps buffer contents in memory and logs every bind and draw call.
type Recorder struct {
	mu     sync.Mutex
	calls  []string
	nextID int

	modules  []*Module
	programs []*Program
	fetches  []*VertexFetch

	current struct {
		program *Program
		fetch   *VertexFetch
	}

	// RejectModule, when set, is consulted for every shader module. A non-nil result fails creation.
	RejectModule func(desc gpu.ShaderModuleDesc) error
	// RejectProgram, when set, is consulted for every program. A non-nil result fails linking.
	RejectProgram func(desc gpu.ProgramDesc) error
}

var _ gpu.Device = &Recorder{}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) id() int {
	r.nextID++
	return r.nextID
}

func (r *Recorder) record(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

// Calls returns a copy of the recorded call log.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// CallsWithPrefix returns the recorded calls starting with prefix, in order.
func (r *Recorder) CallsWithPrefix(prefix string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears the call log.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Modules returns every shader module created so far.
func (r *Recorder) Modules() []*Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Module(nil), r.modules...)
}

// Programs returns every program created so far.
func (r *Recorder) Programs() []*Program {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Program(nil), r.programs...)
}

// VertexFetches returns every vertex fetch created so far.
func (r *Recorder) VertexFetches() []*VertexFetch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*VertexFetch(nil), r.fetches...)
}

func (r *Recorder) Version() string {
	return Version
}

func (r *Recorder) NewBuffer(desc gpu.BufferDesc) (gpu.Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if desc.Size < 0 {
		return nil, fmt.Errorf("negative buffer size %d", desc.Size)
	}
	b := &Buffer{ID: r.id(), Label: desc.Label, Usage: desc.Usage, data: make([]byte, desc.Size)}
	copy(b.data, desc.Data)
	r.record("NewBuffer %s %d", b, desc.Size)
	return b, nil
}

func (r *Recorder) NewShaderModule(desc gpu.ShaderModuleDesc) (gpu.ShaderModule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RejectModule != nil {
		if err := r.RejectModule(desc); err != nil {
			return nil, err
		}
	}
	m := &Module{ID: r.id(), Desc: desc}
	r.modules = append(r.modules, m)
	r.record("NewShaderModule %s %s", m, desc.Stage)
	return m, nil
}

func (r *Recorder) NewProgram(desc gpu.ProgramDesc) (gpu.Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if desc.Vertex == nil || desc.Fragment == nil {
		return nil, errors.New("program requires a vertex and a fragment module")
	}
	if r.RejectProgram != nil {
		if err := r.RejectProgram(desc); err != nil {
			return nil, err
		}
	}
	p := &Program{ID: r.id(), Desc: desc}
	r.programs = append(r.programs, p)
	r.record("NewProgram %s", p)
	return p, nil
}

func (r *Recorder) NewSampler(label string, state pipeline.SamplerState) (gpu.Sampler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &Sampler{ID: r.id(), Label: label, State: state}
	r.record("NewSampler %s", s)
	return s, nil
}

func (r *Recorder) NewTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !desc.Dimension.Valid() {
		return nil, fmt.Errorf("invalid texture dimension %q", desc.Dimension)
	}
	t := &Texture{ID: r.id(), Desc: desc}
	r.record("NewTexture %s %s", t, desc.Dimension)
	return t, nil
}

func (r *Recorder) NewFramebuffer(desc gpu.FramebufferDesc) (gpu.Framebuffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fb := &Framebuffer{ID: r.id(), Desc: desc}
	for i, format := range desc.Colors {
		fb.colors = append(fb.colors, &Texture{ID: r.id(), Desc: gpu.TextureDesc{
			Label:     fmt.Sprintf("%s color %d", desc.Label, i),
			Dimension: gpu.Dimension2D,
			Format:    format,
			Usage:     gpu.TextureSampled | gpu.TextureRenderTarget,
		}})
	}
	r.record("NewFramebuffer %s %dx%d", fb, desc.Width, desc.Height)
	return fb, nil
}

func (r *Recorder) NewVertexFetch(desc gpu.VertexFetchDesc) (gpu.VertexFetch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := &VertexFetch{ID: r.id(), Desc: desc}
	r.fetches = append(r.fetches, f)
	r.record("NewVertexFetch %s", f)
	return f, nil
}

func (r *Recorder) BindRasterizerState(state pipeline.RasterizerState, offset pipeline.PolygonOffset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("BindRasterizerState cull=%s front=%s offset=%g,%d", state.CullMode, state.FrontFace, offset.SlopeScale, offset.Units)
}

func (r *Recorder) BindDepthStencilState(state pipeline.DepthStencilState, ref pipeline.StencilReference) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("BindDepthStencilState test=%t write=%t compare=%s stencil=%t ref=%d,%d",
		state.DepthTest, state.DepthWrite, state.EffectiveCompare(), state.UsesStencil(), ref.Front, ref.Back)
}

func (r *Recorder) BindBlendState(state pipeline.BlendState, factor [4]float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("BindBlendState enabled=%t factor=%g,%g,%g,%g", state.Enabled, factor[0], factor[1], factor[2], factor[3])
}

func (r *Recorder) BindFramebuffer(fb gpu.Framebuffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("BindFramebuffer %v", fb)
}

func (r *Recorder) Clear(fb gpu.Framebuffer, color [4]float32, depth float32, stencil uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Clear %v color=%g,%g,%g,%g depth=%g stencil=%d", fb, color[0], color[1], color[2], color[3], depth, stencil)
}

func (r *Recorder) BindProgram(p gpu.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current.program, _ = p.(*Program)
	r.record("BindProgram %v", p)
}

func (r *Recorder) BindUniformBuffer(index int, buf gpu.Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("BindUniformBuffer %d %v", index, buf)
}

func (r *Recorder) BindStorageBuffer(index int, buf gpu.Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("BindStorageBuffer %d %v", index, buf)
}

func (r *Recorder) BindAtomicCounterBuffer(index int, buf gpu.Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("BindAtomicCounterBuffer %d %v", index, buf)
}

func (r *Recorder) BindTexture(unit int, tex gpu.Texture, sampler gpu.Sampler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("BindTexture %d %v %v", unit, tex, sampler)
}

func (r *Recorder) BindImageTexture(unit int, tex gpu.Texture, access gpu.Access, format gpu.TextureFormat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("BindImageTexture %d %v %s %s", unit, tex, access, format)
}

func (r *Recorder) BindDefaultUniforms(buf gpu.Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("BindDefaultUniforms %v", buf)
}

func (r *Recorder) BindVertexFetch(f gpu.VertexFetch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current.fetch, _ = f.(*VertexFetch)
	r.record("BindVertexFetch %v", f)
}

func (r *Recorder) DrawElements(topology gpu.Topology, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current.program == nil {
		return errors.New("draw without a bound program")
	}
	if r.current.fetch == nil {
		return errors.New("draw without a bound vertex fetch")
	}
	r.record("DrawElements %s %d", topology, count)
	return nil
}

func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Flush")
	return nil
}

func (r *Recorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Release")
}
