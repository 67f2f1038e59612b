package layout

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/shader"
)

// ErrNoProgramBound is returned by Draw before any successful BindToProgram.
var ErrNoProgramBound = errors.New("layout: draw before BindToProgram")

// fetchEntry is a vertex fetch built for one program. The program is held weakly so the cache never
// keeps a program alive. buffers are the device handles the fetch reads, index buffer first.
type fetchEntry struct {
	program shader.WeakProgram
	fetch   gpu.VertexFetch
	buffers []gpu.Buffer
}

// renderingLayout is the implementation of the RenderingLayout interface.
type renderingLayout struct {
	device        gpu.Device
	label         string
	vertexBuffers []buffer.VertexBuffer
	indexBuffer   buffer.IndexBuffer

	cache  map[uint64]fetchEntry
	active gpu.VertexFetch
}

// RenderingLayout combines vertex buffers and an index buffer into drawable geometry. The vertex fetch
// configuration is derived per program and cached, so one layout can serve any number of programs.
type RenderingLayout interface {
	// Label returns the debug label of the layout.
	Label() string

	// VertexBuffers returns the vertex buffers of the layout.
	VertexBuffers() []buffer.VertexBuffer

	// IndexBuffer returns the index buffer of the layout.
	IndexBuffer() buffer.IndexBuffer

	// ElementCount returns the vertex count shared by every vertex buffer.
	ElementCount() int

	// BindToProgram activates the vertex fetch configuration for program, building and caching it on first use.
	// Channels the program does not read are skipped.
	//
	// Parameters:
	//   - program: a linked program
	//
	// Returns:
	//   - error: an error if the program is not linked, a buffer is detached, or the device rejects the configuration
	BindToProgram(program shader.Program) error

	// Draw issues an indexed draw of the whole index buffer with the active configuration.
	//
	// Returns:
	//   - error: ErrNoProgramBound before BindToProgram, or the device error
	Draw() error

	// CachedPrograms returns the number of live programs with a cached configuration.
	CachedPrograms() int

	// Release frees every cached vertex fetch. The buffers are not released.
	Release()
}

var _ RenderingLayout = &renderingLayout{}

// NewRenderingLayout creates a layout over vertex buffers and an index buffer.
//
// Parameters:
//   - device: the device vertex fetches are created on
//   - vertexBuffers: the vertex buffers, all holding the same number of vertices
//   - indexBuffer: the index buffer
//   - opts: a variadic list of RenderingLayoutOption functions
//
// Returns:
//   - RenderingLayout: the created layout
//   - error: an error if the index buffer is missing or the vertex buffers disagree on their vertex count
func NewRenderingLayout(device gpu.Device, vertexBuffers []buffer.VertexBuffer, indexBuffer buffer.IndexBuffer, opts ...RenderingLayoutOption) (RenderingLayout, error) {
	if indexBuffer == nil {
		return nil, errors.New("layout: an index buffer is required")
	}
	for i, vb := range vertexBuffers {
		if vb.ElementCount() != vertexBuffers[0].ElementCount() {
			return nil, fmt.Errorf("layout: vertex buffer %d holds %d vertices, vertex buffer 0 holds %d",
				i, vb.ElementCount(), vertexBuffers[0].ElementCount())
		}
	}

	l := &renderingLayout{
		device:        device,
		vertexBuffers: vertexBuffers,
		indexBuffer:   indexBuffer,
		cache:         make(map[uint64]fetchEntry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *renderingLayout) Label() string {
	return l.label
}

func (l *renderingLayout) VertexBuffers() []buffer.VertexBuffer {
	return l.vertexBuffers
}

func (l *renderingLayout) IndexBuffer() buffer.IndexBuffer {
	return l.indexBuffer
}

func (l *renderingLayout) ElementCount() int {
	if len(l.vertexBuffers) == 0 {
		return 0
	}
	return l.vertexBuffers[0].ElementCount()
}

func (l *renderingLayout) BindToProgram(program shader.Program) error {
	handles := l.handles()
	if entry, ok := l.cache[program.ID()]; ok && entry.program.Get() != nil {
		if slices.Equal(entry.buffers, handles) {
			l.device.BindVertexFetch(entry.fetch)
			l.active = entry.fetch
			return nil
		}
		// a buffer was resized or swapped since the fetch was built
		l.drop(program.ID(), entry)
	}
	l.prune()

	if !program.Linked() {
		return fmt.Errorf("layout %q: program %q is not linked", l.label, program.Label())
	}
	if err := l.validate(); err != nil {
		return err
	}
	desc, err := l.describe(program)
	if err != nil {
		return err
	}
	fetch, err := l.device.NewVertexFetch(desc)
	if err != nil {
		return fmt.Errorf("layout %q: %w", l.label, err)
	}

	l.cache[program.ID()] = fetchEntry{program: program.Weak(), fetch: fetch, buffers: handles}
	common.Logger().Debug("vertex fetch built", "layout", l.label, "program", program.Label(), "attributes", len(desc.Attributes))
	l.device.BindVertexFetch(fetch)
	l.active = fetch
	return nil
}

// handles returns the device buffers currently attached to the views, index buffer first. A detached view
// contributes nil.
func (l *renderingLayout) handles() []gpu.Buffer {
	handles := make([]gpu.Buffer, 0, len(l.vertexBuffers)+1)
	handles = append(handles, handleOf(l.indexBuffer))
	for _, vb := range l.vertexBuffers {
		handles = append(handles, handleOf(vb))
	}
	return handles
}

func handleOf(view buffer.BufferView) gpu.Buffer {
	if b := view.Buffer(); b != nil {
		return b.Handle()
	}
	return nil
}

// validate checks every attached buffer against its view again.
func (l *renderingLayout) validate() error {
	if err := l.indexBuffer.Validate(); err != nil {
		return fmt.Errorf("layout %q: index buffer: %w", l.label, err)
	}
	for i, vb := range l.vertexBuffers {
		if err := vb.Validate(); err != nil {
			return fmt.Errorf("layout %q: vertex buffer %d: %w", l.label, i, err)
		}
	}
	return nil
}

// describe maps every channel the program reads to its attribute location. A matrix channel is fetched
// as one attribute per column.
func (l *renderingLayout) describe(program shader.Program) (gpu.VertexFetchDesc, error) {
	desc := gpu.VertexFetchDesc{
		Label:     l.label + " " + program.Label(),
		Program:   program.Handle(),
		IndexType: l.indexBuffer.ElementType(),
	}
	if l.indexBuffer.Buffer() == nil || l.indexBuffer.Buffer().Handle() == nil {
		return desc, fmt.Errorf("layout %q: index buffer has no storage attached", l.label)
	}
	desc.Index = l.indexBuffer.Buffer().Handle()

	for i, vb := range l.vertexBuffers {
		for _, ch := range vb.Layout().Channels {
			attr, ok := program.Attribute(ch.Name)
			if !ok {
				continue
			}
			if vb.Buffer() == nil || vb.Buffer().Handle() == nil {
				return desc, fmt.Errorf("layout %q: vertex buffer %d has no storage attached", l.label, i)
			}
			handle := vb.Buffer().Handle()
			if !ch.Type.IsMatrix() {
				desc.Attributes = append(desc.Attributes, gpu.VertexAttribute{
					Buffer:     handle,
					Offset:     ch.Offset,
					Stride:     ch.EffectiveStride(),
					Type:       ch.Type,
					Normalized: ch.Normalize,
					Location:   attr.Location,
				})
				continue
			}
			column := ch.Type.ColumnType()
			for c := range ch.Type.Columns() {
				desc.Attributes = append(desc.Attributes, gpu.VertexAttribute{
					Buffer:   handle,
					Offset:   ch.Offset + c*column.PackedSize(),
					Stride:   ch.EffectiveStride(),
					Type:     column,
					Location: attr.Location + c,
				})
			}
		}
	}
	return desc, nil
}

// prune drops the configurations of programs that no longer exist.
func (l *renderingLayout) prune() {
	for id, entry := range l.cache {
		if entry.program.Get() != nil {
			continue
		}
		l.drop(id, entry)
	}
}

func (l *renderingLayout) drop(id uint64, entry fetchEntry) {
	if l.active == entry.fetch {
		l.active = nil
	}
	entry.fetch.Release()
	delete(l.cache, id)
}

func (l *renderingLayout) Draw() error {
	if l.active == nil {
		return ErrNoProgramBound
	}
	return l.device.DrawElements(l.indexBuffer.Topology(), l.indexBuffer.ElementCount())
}

func (l *renderingLayout) CachedPrograms() int {
	n := 0
	for _, entry := range l.cache {
		if entry.program.Get() != nil {
			n++
		}
	}
	return n
}

func (l *renderingLayout) Release() {
	for id, entry := range l.cache {
		entry.fetch.Release()
		delete(l.cache, id)
	}
	l.active = nil
}
