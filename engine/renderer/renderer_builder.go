package renderer

import (
	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-tech/engine/profiler"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/shader"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithDebug enables debug validation on the rendering context, such as the framebuffer layout check
// performed when a framebuffer is connected to a technique.
//
// Parameters:
//   - debug: true to enable debug checks
//
// Returns:
//   - RendererBuilderOption: a function that applies the debug option to a renderer
func WithDebug(debug bool) RendererBuilderOption {
	return func(r *renderer) {
		r.debug = debug
	}
}

// WithCompiler replaces the front-end compiler used by every registered technique.
// When not specified, shader.NagaCompiler is used.
//
// Parameters:
//   - compiler: the compiler
//
// Returns:
//   - RendererBuilderOption: a function that applies the compiler option to a renderer
func WithCompiler(compiler shader.Compiler) RendererBuilderOption {
	return func(r *renderer) {
		r.compiler = compiler
	}
}

// WithCompileWorkers compiles technique stages on a worker pool of n workers owned by the renderer.
// A value of 0 compiles stages on the calling goroutine.
//
// Parameters:
//   - n: the number of compile workers
//
// Returns:
//   - RendererBuilderOption: a function that applies the worker count to a renderer
func WithCompileWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.compileWorkers = n
	}
}

// WithWorkerPool compiles technique stages on a pool owned by the caller. It takes precedence over
// WithCompileWorkers.
//
// Parameters:
//   - pool: the worker pool
//
// Returns:
//   - RendererBuilderOption: a function that applies the pool to a renderer
func WithWorkerPool(pool worker.DynamicWorkerPool) RendererBuilderOption {
	return func(r *renderer) {
		r.pool = pool
	}
}

// WithProfiler counts draw calls and technique builds on p and ticks it at the end of every frame.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - RendererBuilderOption: a function that applies the profiler to a renderer
func WithProfiler(p *profiler.Profiler) RendererBuilderOption {
	return func(r *renderer) {
		r.profiler = p
	}
}
