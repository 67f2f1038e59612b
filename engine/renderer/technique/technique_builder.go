package technique

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"weak"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/framebuffer"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/shader"
)

// techniqueBuilder is the implementation of the TechniqueBuilder interface.
type techniqueBuilder struct {
	ctx      *gpu.Context
	root     *BuildingInformation
	compiler shader.Compiler
	pool     worker.DynamicWorkerPool

	mu     sync.Mutex
	cached weak.Pointer[renderingTechnique]
	builds int
	// live tracks every technique built and not yet released, so the device objects of a collected
	// technique are released on the next sweep.
	live []build
}

// build is one technique produced by Create.
type build struct {
	technique weak.Pointer[renderingTechnique]
	res       *ownedResources
}

// TechniqueBuilder compiles the include graph below one root node into a RenderingTechnique and
// remembers the result weakly, so a technique nobody holds is rebuilt on the next request.
type TechniqueBuilder interface {
	// Root returns the root node of the include graph.
	Root() *BuildingInformation

	// GetRenderingTechnique returns the live cached technique or builds a new one.
	//
	// Returns:
	//   - RenderingTechnique: the technique, nil if the build failed
	//   - error: the aggregated build diagnostics
	GetRenderingTechnique() (RenderingTechnique, error)

	// Create builds a new technique regardless of the cache and caches it on success. On failure every
	// diagnostic has been logged, nothing is cached and no device object stays allocated.
	//
	// Returns:
	//   - RenderingTechnique: the technique, nil on failure
	//   - error: the joined *shader.CompileError, *shader.LinkError, *FramebufferMismatchError and
	//     *MissingSamplerMappingError diagnostics
	Create() (RenderingTechnique, error)

	// Builds returns how many times Create has produced a technique.
	Builds() int

	// ReleaseCached releases every technique the builder produced, alive or collected, and forgets them.
	ReleaseCached()
}

var _ TechniqueBuilder = &techniqueBuilder{}

// NewTechniqueBuilder creates a builder for the include graph below root.
//
// Parameters:
//   - ctx: the rendering context techniques are built on
//   - root: the root node
//   - opts: a variadic list of TechniqueBuilderOption functions
//
// Returns:
//   - TechniqueBuilder: the builder
func NewTechniqueBuilder(ctx *gpu.Context, root *BuildingInformation, opts ...TechniqueBuilderOption) TechniqueBuilder {
	b := &techniqueBuilder{
		ctx:      ctx,
		root:     root,
		compiler: shader.NagaCompiler{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *techniqueBuilder) Root() *BuildingInformation {
	return b.root
}

func (b *techniqueBuilder) Builds() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.builds
}

func (b *techniqueBuilder) ReleaseCached() {
	b.mu.Lock()
	live := b.live
	b.live = nil
	b.cached = weak.Pointer[renderingTechnique]{}
	b.mu.Unlock()
	for _, l := range live {
		if t := l.technique.Value(); t != nil {
			t.Release()
			continue
		}
		l.res.release()
	}
}

// sweep releases the device objects of collected techniques and forgets released ones. b.mu must be held.
func (b *techniqueBuilder) sweep() {
	kept := b.live[:0]
	for _, l := range b.live {
		if l.technique.Value() == nil {
			if l.res.release() {
				common.Logger().Debug("collected technique released", slog.String("technique", b.root.Name()))
			}
			continue
		}
		if l.res.released {
			continue
		}
		kept = append(kept, l)
	}
	clear(b.live[len(kept):])
	b.live = kept
}

func (b *techniqueBuilder) GetRenderingTechnique() (RenderingTechnique, error) {
	b.mu.Lock()
	b.sweep()
	if t := b.cached.Value(); t != nil && !t.Released() {
		b.mu.Unlock()
		common.Logger().Debug("technique cache hit", slog.String("technique", b.root.Name()))
		return t, nil
	}
	b.mu.Unlock()
	return b.Create()
}

func (b *techniqueBuilder) Create() (RenderingTechnique, error) {
	name := b.root.Name()
	nodes := Flatten(b.root)

	pack := aggregateResources(nodes)
	layout, errs := requiredLayout(name, nodes)
	st := mergeStates(nodes)
	if len(errs) == 0 {
		if reason := depthStencilMismatch(st.depthStencil, layout); reason != "" {
			errs = append(errs, &FramebufferMismatchError{Technique: name, Reason: reason})
		}
		if len(pack.Outputs) == 0 {
			for _, c := range layout.Colors {
				pack.Outputs = append(pack.Outputs, shader.Output{Name: c.Name, Format: c.Format})
			}
		}
	}
	samplerStates, samplerErrs := resolveSamplers(name, nodes, pack.Textures)
	errs = append(errs, samplerErrs...)

	shaders, compileErrs := b.compileStages(name, nodes, pack)
	errs = append(errs, compileErrs...)
	if len(errs) > 0 {
		return nil, b.fail(name, errs)
	}

	program := shader.NewProgram(b.ctx, name, shaders...)
	if err := program.Link(pack); err != nil {
		return nil, b.fail(name, []error{err})
	}

	samplers, owned, err := b.createSamplers(name, program, samplerStates)
	if err != nil {
		program.Release()
		return nil, b.fail(name, []error{err})
	}

	t, err := newRenderingTechnique(b.ctx, name, program, st, layout, samplers, owned)
	if err != nil {
		return nil, b.fail(name, []error{err})
	}

	b.mu.Lock()
	b.sweep()
	b.cached = weak.Make(t)
	b.live = append(b.live, build{technique: b.cached, res: t.res})
	b.builds++
	b.mu.Unlock()
	common.Logger().Info("technique built", slog.String("technique", name), slog.Int("includes", len(nodes)-1),
		slog.Int("parameters", len(t.parameters)))
	return t, nil
}

// fail logs every diagnostic and joins the diagnostics into one error. The cache is left as it is, so a
// technique built earlier stays reachable.
func (b *techniqueBuilder) fail(name string, errs []error) error {
	for _, err := range errs {
		attrs := []any{slog.String("technique", name), slog.String("error", err.Error())}
		var compileErr *shader.CompileError
		if errors.As(err, &compileErr) {
			attrs = append(attrs, slog.String("source", compileErr.Source))
		}
		common.Logger().Error("technique build failed", attrs...)
	}
	return fmt.Errorf("technique %q: %w", name, errors.Join(errs...))
}

// stageSources concatenates the sources of one stage in include order. Every node contributes its macro
// definitions, then its common sources, then its stage sources. The default uniform block prelude of the
// aggregated interface comes first. The result is empty if no node has a source for the stage.
func stageSources(stage shader.ShaderType, nodes []*BuildingInformation, pack shader.ResourcePack) []string {
	sources := []string{shader.DefaultUniformPrelude(pack.Uniforms)}
	found := false
	for _, n := range nodes {
		for _, d := range n.defines {
			sources = append(sources, strings.TrimSpace("//@oxy:define "+d.Name+" "+d.Value))
		}
		sources = append(sources, n.commonSources...)
		if len(n.sources[stage]) > 0 {
			found = true
			sources = append(sources, n.sources[stage]...)
		}
	}
	if !found {
		return nil
	}
	return sources
}

// compileStages compiles every stage that has a source. Stages are compiled on the worker pool when one
// is configured; errors are returned in stage order.
func (b *techniqueBuilder) compileStages(name string, nodes []*BuildingInformation, pack shader.ResourcePack) ([]shader.Shader, []error) {
	stages := []shader.ShaderType{shader.ShaderTypeVertex, shader.ShaderTypeFragment}
	shaders := make([]shader.Shader, 0, len(stages))
	results := make([]error, len(stages))

	var wg sync.WaitGroup
	for i, st := range stages {
		sources := stageSources(st, nodes, pack)
		if sources == nil {
			continue
		}
		sh := shader.NewShader(b.ctx, name+" "+st.String(), st, shader.WithCompiler(b.compiler))
		shaders = append(shaders, sh)
		compile := func() {
			results[i] = sh.Compile(sources...)
		}
		if b.pool == nil {
			compile()
			continue
		}
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				compile()
				return nil, results[i]
			},
		})
	}
	wg.Wait()

	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return shaders, errs
}

// aggregateResources concatenates the resource interfaces of the nodes category by category.
func aggregateResources(nodes []*BuildingInformation) shader.ResourcePack {
	var pack shader.ResourcePack
	for _, n := range nodes {
		pack = pack.Append(n.resources)
	}
	return pack
}

// requiredLayout returns the single framebuffer layout requirement of the include list.
func requiredLayout(name string, nodes []*BuildingInformation) (framebuffer.Layout, []error) {
	var declaring []string
	var layout framebuffer.Layout
	for _, n := range nodes {
		if n.framebuffer != nil {
			declaring = append(declaring, n.name)
			layout = *n.framebuffer
		}
	}
	switch len(declaring) {
	case 0:
		return layout, []error{&FramebufferMismatchError{Technique: name, Reason: "no framebuffer layout requirement declared"}}
	case 1:
		if err := layout.Validate(); err != nil {
			return layout, []error{&FramebufferMismatchError{Technique: name, Reason: err.Error()}}
		}
		return layout, nil
	default:
		return layout, []error{&FramebufferMismatchError{
			Technique: name,
			Reason:    fmt.Sprintf("framebuffer layout declared by %d nodes: %s", len(declaring), strings.Join(declaring, ", ")),
		}}
	}
}

// depthStencilMismatch reports a depth-stencil state that needs attachments the layout lacks.
func depthStencilMismatch(ds pipeline.DepthStencilState, layout framebuffer.Layout) string {
	if ds.UsesDepth() && !layout.HasDepth() {
		return fmt.Sprintf("depth test or write is enabled but framebuffer layout %q has no depth attachment", layout.Name)
	}
	if ds.UsesStencil() && !layout.HasStencil() {
		return fmt.Sprintf("stencil test is enabled but framebuffer layout %q has no stencil attachment", layout.Name)
	}
	return ""
}

// mergeStates resolves every pipeline state, a later node overriding an earlier one. Without a declared
// depth-stencil state depth testing is off, so a color-only framebuffer layout is sufficient.
func mergeStates(nodes []*BuildingInformation) states {
	st := states{
		rasterizer: pipeline.NewRasterizerState(),
		depthStencil: pipeline.NewDepthStencilState(
			pipeline.WithDepthTestEnabled(false),
			pipeline.WithDepthWriteEnabled(false),
		),
		blend: pipeline.NewBlendState(),
	}
	for _, n := range nodes {
		if n.rasterizer != nil {
			st.rasterizer = *n.rasterizer
		}
		if n.depthStencil != nil {
			st.depthStencil = *n.depthStencil
		}
		if n.blend != nil {
			st.blend = *n.blend
		}
		if n.polygonOffset != nil {
			st.polygonOffset = *n.polygonOffset
		}
		if n.stencilReference != nil {
			st.stencilReference = *n.stencilReference
		}
		if n.blendFactor != nil {
			st.blendFactor = *n.blendFactor
		}
	}
	return st
}

// resolveSamplers maps every declared texture to the sampler state its sampler name resolves to.
// Sampler states of later nodes override same-named states of earlier nodes.
func resolveSamplers(name string, nodes []*BuildingInformation, textures []shader.TextureDecl) (map[string]pipeline.SamplerState, []error) {
	declared := make(map[string]pipeline.SamplerState)
	for _, n := range nodes {
		for samplerName, state := range n.samplers {
			declared[samplerName] = state
		}
	}
	resolved := make(map[string]pipeline.SamplerState, len(textures))
	var errs []error
	for _, tex := range textures {
		state, ok := declared[tex.Sampler]
		if !ok {
			errs = append(errs, &MissingSamplerMappingError{Technique: name, Texture: tex.Name, Sampler: tex.Sampler})
			continue
		}
		resolved[tex.Name] = state
	}
	return resolved, errs
}

// createSamplers creates one sampler object per sampler state name used by a linked texture.
func (b *techniqueBuilder) createSamplers(name string, program shader.Program, resolved map[string]pipeline.SamplerState) (map[string]gpu.Sampler, []gpu.Sampler, error) {
	byTexture := make(map[string]gpu.Sampler)
	byState := make(map[string]gpu.Sampler)
	var owned []gpu.Sampler
	release := func() {
		for _, s := range owned {
			s.Release()
		}
	}
	for _, tb := range program.Textures() {
		state := resolved[tb.Name]
		if tb.Comparison != (state.Compare != "") {
			release()
			return nil, nil, fmt.Errorf("texture %q: sampler state %q does not match the comparison mode of %s_sampler",
				tb.Name, tb.Sampler, tb.Name)
		}
		if s, ok := byState[tb.Sampler]; ok {
			byTexture[tb.Name] = s
			continue
		}
		s, err := b.ctx.Device().NewSampler(name+" "+tb.Sampler, state)
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("sampler %q: %w", tb.Sampler, err)
		}
		owned = append(owned, s)
		byState[tb.Sampler] = s
		byTexture[tb.Name] = s
	}
	return byTexture, owned, nil
}

// TechniqueBuilderOption is a functional option used to configure a TechniqueBuilder.
type TechniqueBuilderOption func(b *techniqueBuilder)

// WithCompiler replaces the front-end compiler stages are validated with.
//
// Parameters:
//   - compiler: the compiler
//
// Returns:
//   - TechniqueBuilderOption: a function that sets the compiler
func WithCompiler(compiler shader.Compiler) TechniqueBuilderOption {
	return func(b *techniqueBuilder) {
		b.compiler = compiler
	}
}

// WithWorkerPool compiles the stages of a build concurrently on pool. Without a pool stages compile
// one after the other on the calling goroutine.
//
// Parameters:
//   - pool: the worker pool, owned by the caller
//
// Returns:
//   - TechniqueBuilderOption: a function that sets the pool
func WithWorkerPool(pool worker.DynamicWorkerPool) TechniqueBuilderOption {
	return func(b *techniqueBuilder) {
		b.pool = pool
	}
}
