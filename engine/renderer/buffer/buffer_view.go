package buffer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
)

// BufferSizeMismatchError is returned when a GraphicsBuffer fails the compatibility check of the view it is attached to.
type BufferSizeMismatchError struct {
	Kind     gpu.BindingKind
	Expected int
	Actual   int
}

func (e *BufferSizeMismatchError) Error() string {
	return fmt.Sprintf("%s buffer view expects %d bytes, buffer has %d", e.Kind, e.Expected, e.Actual)
}

// BufferView binds a GraphicsBuffer to one binding kind. The buffer may be attached after creation.
type BufferView interface {
	// Kind returns the binding kind of the view.
	//
	// Returns:
	//   - gpu.BindingKind: the binding kind
	Kind() gpu.BindingKind

	// Buffer returns the attached buffer.
	//
	// Returns:
	//   - GraphicsBuffer: the attached buffer, or nil if none is attached
	Buffer() GraphicsBuffer

	// SetBuffer attaches buf after running the view's compatibility check. A nil buffer detaches.
	//
	// Parameters:
	//   - buf: the buffer to attach
	//
	// Returns:
	//   - error: a *BufferSizeMismatchError if buf is not compatible with the view
	SetBuffer(buf GraphicsBuffer) error

	// SetBufferCheck reports whether buf would pass SetBuffer.
	//
	// Parameters:
	//   - buf: the buffer to check
	//
	// Returns:
	//   - bool: true if buf is compatible with the view
	SetBufferCheck(buf GraphicsBuffer) bool

	// Validate runs the compatibility check against the attached buffer again, for buffers resized after attaching.
	//
	// Returns:
	//   - error: a *BufferSizeMismatchError if the attached buffer no longer fits the view, nil if none is attached
	Validate() error
}

// bufferView is the shared implementation of every BufferView.
type bufferView struct {
	kind   gpu.BindingKind
	buffer GraphicsBuffer
	// check validates a non-nil buffer against the view.
	check func(buf GraphicsBuffer) error
}

var _ BufferView = &bufferView{}

// NewBufferView creates a view of kind over buf. Uniform, storage, atomic-counter and texture views accept any buffer.
// Vertex and index views carry a layout and are created with NewVertexBuffer and NewIndexBuffer.
//
// Parameters:
//   - kind: the binding kind
//   - buf: the buffer to attach, may be nil
//
// Returns:
//   - BufferView: the created view
//   - error: an error if kind requires a layout
func NewBufferView(kind gpu.BindingKind, buf GraphicsBuffer) (BufferView, error) {
	switch kind {
	case gpu.BindingVertex, gpu.BindingIndex:
		return nil, fmt.Errorf("%s buffer views need a layout", kind)
	}
	v := &bufferView{kind: kind, check: func(GraphicsBuffer) error { return nil }}
	if err := v.SetBuffer(buf); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *bufferView) Kind() gpu.BindingKind {
	return v.kind
}

func (v *bufferView) Buffer() GraphicsBuffer {
	return v.buffer
}

func (v *bufferView) SetBuffer(buf GraphicsBuffer) error {
	if buf != nil {
		if err := v.check(buf); err != nil {
			return err
		}
	}
	v.buffer = buf
	return nil
}

func (v *bufferView) SetBufferCheck(buf GraphicsBuffer) bool {
	return buf == nil || v.check(buf) == nil
}

func (v *bufferView) Validate() error {
	if v.buffer == nil {
		return nil
	}
	return v.check(v.buffer)
}
