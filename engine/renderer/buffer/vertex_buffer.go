package buffer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
)

// Channel describes one named attribute stream inside a vertex buffer.
type Channel struct {
	// Name is matched against program attribute names.
	Name string
	// Type is the element type of one vertex's value.
	Type common.ElementType
	// Offset is the byte offset of the first element.
	Offset int
	// Stride is the byte distance between consecutive elements. Zero means tightly packed.
	Stride int
	// Normalize maps integer data to [0, 1] or [-1, 1] when fetched.
	Normalize bool
}

// EffectiveStride returns the stride, substituting the packed element size for a zero stride.
func (c Channel) EffectiveStride() int {
	if c.Stride == 0 {
		return c.Type.PackedSize()
	}
	return c.Stride
}

// DataLayoutDescription describes every channel of a vertex buffer and how many vertices it holds.
type DataLayoutDescription struct {
	Channels     []Channel
	ElementCount int
}

// Validate checks that every channel has a unique name and a known type.
//
// Returns:
//   - error: an error describing the first invalid channel
func (d DataLayoutDescription) Validate() error {
	if d.ElementCount < 0 {
		return fmt.Errorf("negative element count %d", d.ElementCount)
	}
	seen := make(map[string]struct{}, len(d.Channels))
	for _, c := range d.Channels {
		if c.Name == "" {
			return fmt.Errorf("vertex channel at offset %d has no name", c.Offset)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("duplicate vertex channel %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if !c.Type.Valid() {
			return fmt.Errorf("vertex channel %q has invalid type %s", c.Name, c.Type)
		}
		if c.Offset < 0 || c.Stride < 0 {
			return fmt.Errorf("vertex channel %q has a negative offset or stride", c.Name)
		}
	}
	return nil
}

// RequiredSize returns the number of bytes a buffer needs to hold the last element of every channel.
func (d DataLayoutDescription) RequiredSize() int {
	required := 0
	if d.ElementCount == 0 {
		return 0
	}
	for _, c := range d.Channels {
		end := c.Offset + (d.ElementCount-1)*c.EffectiveStride() + c.Type.PackedSize()
		required = max(required, end)
	}
	return required
}

// Channel returns the channel with the given name.
//
// Parameters:
//   - name: the channel name
//
// Returns:
//   - Channel: the channel
//   - bool: false if no channel has the name
func (d DataLayoutDescription) Channel(name string) (Channel, bool) {
	for _, c := range d.Channels {
		if c.Name == name {
			return c, true
		}
	}
	return Channel{}, false
}

// VertexBuffer is a BufferView whose buffer holds vertex channels described by a DataLayoutDescription.
type VertexBuffer interface {
	BufferView

	// Layout returns the channel layout of the buffer.
	//
	// Returns:
	//   - DataLayoutDescription: the layout
	Layout() DataLayoutDescription

	// ElementCount returns the number of vertices.
	//
	// Returns:
	//   - int: the vertex count
	ElementCount() int
}

type vertexBuffer struct {
	bufferView
	layout DataLayoutDescription
}

var _ VertexBuffer = &vertexBuffer{}

// NewVertexBuffer creates a vertex view over buf. The buffer must cover every channel's last element.
//
// Parameters:
//   - layout: the channel layout
//   - buf: the buffer to attach, may be nil
//
// Returns:
//   - VertexBuffer: the created vertex buffer
//   - error: an error if the layout is invalid, or a *BufferSizeMismatchError if buf is too small
func NewVertexBuffer(layout DataLayoutDescription, buf GraphicsBuffer) (VertexBuffer, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	v := &vertexBuffer{layout: layout}
	v.kind = gpu.BindingVertex
	v.check = func(b GraphicsBuffer) error {
		if required := layout.RequiredSize(); b.Size() < required {
			return &BufferSizeMismatchError{Kind: gpu.BindingVertex, Expected: required, Actual: b.Size()}
		}
		return nil
	}
	if err := v.SetBuffer(buf); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *vertexBuffer) Layout() DataLayoutDescription {
	return v.layout
}

func (v *vertexBuffer) ElementCount() int {
	return v.layout.ElementCount
}
