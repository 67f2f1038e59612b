package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/profiler"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/layout"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/technique"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	device gpu.Device
	ctx    *gpu.Context

	builders map[string]technique.TechniqueBuilder
	order    []string

	// Pre-creation config collected from builder options
	debug          bool
	compiler       shader.Compiler
	compileWorkers int
	pool           worker.DynamicWorkerPool
	ownsPool       bool
	profiler       *profiler.Profiler
}

// Renderer defines the interface for the rendering factory.
//
// The Renderer owns the rendering context of one device and a registry of technique builders keyed by the
// name of their root node. Techniques are obtained lazily through the registry, so a technique that is no
// longer held anywhere is rebuilt on its next request.
type Renderer interface {
	// Context retrieves the rendering context shared by every technique of the renderer.
	//
	// Returns:
	//   - *gpu.Context: the context
	Context() *gpu.Context

	// RegisterTechniques registers a builder for each root node. Names that are already registered are
	// skipped.
	//
	// Parameters:
	//   - roots: the root nodes of the include graphs to register
	//
	// Returns:
	//   - error: an error if a root is nil or unnamed
	RegisterTechniques(roots ...*technique.BuildingInformation) error

	// Builder retrieves the technique builder registered under name.
	//
	// Parameters:
	//   - name: the root node name
	//
	// Returns:
	//   - technique.TechniqueBuilder: the builder, or nil if not registered
	Builder(name string) technique.TechniqueBuilder

	// Technique retrieves the technique registered under name, building it if no live one exists. A nil
	// result means there is nothing to draw with this frame; the cause has been logged.
	//
	// Parameters:
	//   - name: the root node name
	//
	// Returns:
	//   - technique.RenderingTechnique: the technique, or nil
	Technique(name string) technique.RenderingTechnique

	// Techniques lists the registered names in registration order.
	Techniques() []string

	// Draw binds material to t, activates the vertex fetch of l for the program of t, uses t and draws l.
	// A nil technique draws nothing.
	//
	// Parameters:
	//   - l: the geometry
	//   - m: the material, nil keeps the technique's parameter values
	//   - t: the technique
	//
	// Returns:
	//   - error: an error if the layout cannot be bound or the draw fails
	Draw(l layout.RenderingLayout, m material.Material, t technique.RenderingTechnique) error

	// EndFrame flushes the device and ticks the profiler.
	//
	// Returns:
	//   - error: the device flush error
	EndFrame() error

	// Release releases every live technique, the context and the compile pool if the renderer created it.
	// The device stays owned by the caller.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer on device.
//
// Parameters:
//   - device: the device to render with, typically a backend.WGPUDevice
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified options
//   - error: an error if the context cannot be created
func NewRenderer(device gpu.Device, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:       &sync.Mutex{},
		device:   device,
		builders: make(map[string]technique.TechniqueBuilder),
		compiler: shader.NagaCompiler{},
	}
	for _, opt := range options {
		opt(r)
	}

	ctx, err := gpu.NewContext(device, gpu.WithDebug(r.debug))
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	r.ctx = ctx

	if r.pool == nil && r.compileWorkers > 0 {
		r.pool = worker.NewDynamicWorkerPool(r.compileWorkers, 16, time.Second)
		r.ownsPool = true
	}
	return r, nil
}

func (r *renderer) Context() *gpu.Context {
	return r.ctx
}

func (r *renderer) RegisterTechniques(roots ...*technique.BuildingInformation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, root := range roots {
		if root == nil || root.Name() == "" {
			return errors.New("renderer: technique root must be a named node")
		}
		name := root.Name()
		if _, exists := r.builders[name]; exists {
			continue
		}
		opts := []technique.TechniqueBuilderOption{technique.WithCompiler(r.compiler)}
		if r.pool != nil {
			opts = append(opts, technique.WithWorkerPool(r.pool))
		}
		r.builders[name] = technique.NewTechniqueBuilder(r.ctx, root, opts...)
		r.order = append(r.order, name)
		common.Logger().Debug("technique registered", slog.String("technique", name))
	}
	return nil
}

func (r *renderer) Builder(name string) technique.TechniqueBuilder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.builders[name]
}

func (r *renderer) Technique(name string) technique.RenderingTechnique {
	b := r.Builder(name)
	if b == nil {
		common.Logger().Warn("technique not registered", slog.String("technique", name))
		return nil
	}
	before := b.Builds()
	t, err := b.GetRenderingTechnique()
	if r.profiler != nil && b.Builds() > before {
		r.profiler.CountBuild()
	}
	if err != nil {
		return nil
	}
	return t
}

func (r *renderer) Techniques() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

func (r *renderer) Draw(l layout.RenderingLayout, m material.Material, t technique.RenderingTechnique) error {
	if t == nil {
		return nil
	}
	if m != nil {
		m.Bind(t)
	}
	if err := l.BindToProgram(t.Program()); err != nil {
		return fmt.Errorf("renderer: technique %q: %w", t.Name(), err)
	}
	t.Use()
	if err := l.Draw(); err != nil {
		return fmt.Errorf("renderer: technique %q: %w", t.Name(), err)
	}
	if r.profiler != nil {
		r.profiler.CountDraw()
	}
	return nil
}

func (r *renderer) EndFrame() error {
	err := r.device.Flush()
	if r.profiler != nil {
		r.profiler.Tick()
	}
	return err
}

func (r *renderer) Release() {
	r.mu.Lock()
	builders := make([]technique.TechniqueBuilder, 0, len(r.order))
	for _, name := range r.order {
		builders = append(builders, r.builders[name])
	}
	r.builders = make(map[string]technique.TechniqueBuilder)
	r.order = nil
	r.mu.Unlock()

	for _, b := range builders {
		b.ReleaseCached()
	}
	if r.ownsPool {
		r.pool.Stop()
		r.pool = nil
	}
	r.ctx.Release()
	common.Logger().Info("renderer released", slog.Int("techniques", len(builders)))
}
