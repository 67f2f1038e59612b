package buffer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
)

// IndexBuffer is a BufferView whose buffer holds indices of one element type for one topology.
type IndexBuffer interface {
	BufferView

	// Topology returns the primitive topology the indices describe.
	//
	// Returns:
	//   - gpu.Topology: the topology
	Topology() gpu.Topology

	// ElementType returns the index type, common.Uint16 or common.Uint.
	//
	// Returns:
	//   - common.ElementType: the index type
	ElementType() common.ElementType

	// ElementCount returns the number of indices.
	//
	// Returns:
	//   - int: the index count
	ElementCount() int
}

type indexBuffer struct {
	bufferView
	topology     gpu.Topology
	elementType  common.ElementType
	elementCount int
}

var _ IndexBuffer = &indexBuffer{}

// NewIndexBuffer creates an index view over buf. The buffer size must equal the element size times the count.
//
// Parameters:
//   - topology: the primitive topology
//   - elementType: common.Uint16 or common.Uint
//   - elementCount: the number of indices
//   - buf: the buffer to attach, may be nil
//
// Returns:
//   - IndexBuffer: the created index buffer
//   - error: an error for an invalid topology or type, or a *BufferSizeMismatchError if buf has the wrong size
func NewIndexBuffer(topology gpu.Topology, elementType common.ElementType, elementCount int, buf GraphicsBuffer) (IndexBuffer, error) {
	if !topology.Valid() {
		return nil, fmt.Errorf("invalid index topology %q", topology)
	}
	if elementType != common.Uint16 && elementType != common.Uint {
		return nil, fmt.Errorf("invalid index element type %s", elementType)
	}
	if elementCount < 0 {
		return nil, fmt.Errorf("negative index count %d", elementCount)
	}
	ib := &indexBuffer{topology: topology, elementType: elementType, elementCount: elementCount}
	ib.kind = gpu.BindingIndex
	ib.check = func(b GraphicsBuffer) error {
		if expected := elementType.PackedSize() * elementCount; b.Size() != expected {
			return &BufferSizeMismatchError{Kind: gpu.BindingIndex, Expected: expected, Actual: b.Size()}
		}
		return nil
	}
	if err := ib.SetBuffer(buf); err != nil {
		return nil, err
	}
	return ib, nil
}

func (ib *indexBuffer) Topology() gpu.Topology {
	return ib.topology
}

func (ib *indexBuffer) ElementType() common.ElementType {
	return ib.elementType
}

func (ib *indexBuffer) ElementCount() int {
	return ib.elementCount
}
