package buffer

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
)

// MapAccess selects what a mapping of a GraphicsBuffer is used for.
type MapAccess int

const (
	// MapReadOnly downloads the device contents on Map and discards changes on Unmap.
	MapReadOnly MapAccess = iota
	// MapWriteOnly exposes the CPU copy on Map and uploads it on Unmap.
	MapWriteOnly
	// MapReadWrite downloads on Map and uploads on Unmap.
	MapReadWrite
)

func (a MapAccess) reads() bool  { return a == MapReadOnly || a == MapReadWrite }
func (a MapAccess) writes() bool { return a == MapWriteOnly || a == MapReadWrite }

// graphicsBuffer is the implementation of the GraphicsBuffer interface.
type graphicsBuffer struct {
	// label is a debug label added for convenience.
	label string
	// usage is the access pattern hint the buffer was created with.
	usage gpu.Usage
	// device is the device that owns handle.
	device gpu.Device
	// handle is the device allocation, nil after Release.
	handle gpu.Buffer
	// shadow mirrors the device contents and backs mappings.
	shadow []byte
	// mapped is true between Map and Unmap.
	mapped bool
	// access is the access of the current mapping.
	access MapAccess
}

// GraphicsBuffer is a block of linear device memory with a usage hint. It may be shared by several BufferViews.
// A GraphicsBuffer keeps a CPU copy of its contents so mappings do not stall on the device.
type GraphicsBuffer interface {
	// Label returns the debug label of the buffer.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Usage returns the usage hint the buffer was created with.
	//
	// Returns:
	//   - gpu.Usage: the usage hint
	Usage() gpu.Usage

	// Size returns the size of the buffer in bytes.
	//
	// Returns:
	//   - int: the byte size
	Size() int

	// Handle returns the device allocation backing the buffer.
	//
	// Returns:
	//   - gpu.Buffer: the device buffer, nil after Release
	Handle() gpu.Buffer

	// Resize replaces the allocation with one of the given size. The previous contents are discarded.
	//
	// Parameters:
	//   - size: the new byte size
	//
	// Returns:
	//   - error: an error if the buffer is mapped or the allocation fails
	Resize(size int) error

	// Update writes data into the buffer at the byte offset.
	//
	// Parameters:
	//   - offset: the byte offset to write at
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the write is out of range, the buffer is mapped or the upload fails
	Update(offset int, data []byte) error

	// Map exposes the buffer contents. The returned slice is valid until Unmap. Mapping a mapped buffer panics.
	//
	// Parameters:
	//   - access: what the mapping is used for
	//
	// Returns:
	//   - []byte: the mapped contents
	//   - error: an error if the device contents cannot be read back
	Map(access MapAccess) ([]byte, error)

	// Unmap ends the current mapping, uploading the contents for write mappings. Unmapping an unmapped buffer panics.
	//
	// Returns:
	//   - error: an error if the upload fails
	Unmap() error

	// Mapped reports whether the buffer is currently mapped.
	//
	// Returns:
	//   - bool: true between Map and Unmap
	Mapped() bool

	// Release frees the device allocation.
	Release()
}

var _ GraphicsBuffer = &graphicsBuffer{}

// NewGraphicsBuffer allocates a buffer of size bytes on device.
//
// Parameters:
//   - device: the device to allocate on
//   - size: the byte size of the buffer
//   - opts: a variadic list of GraphicsBufferOption functions
//
// Returns:
//   - GraphicsBuffer: the created buffer
//   - error: an error if the initial data does not fit or the allocation fails
func NewGraphicsBuffer(device gpu.Device, size int, opts ...GraphicsBufferOption) (GraphicsBuffer, error) {
	b := &graphicsBuffer{
		device: device,
		usage:  gpu.UsageStaticDraw,
	}
	var data []byte
	for _, opt := range opts {
		opt(b, &data)
	}
	if size < 0 {
		return nil, fmt.Errorf("buffer %q: negative size %d", b.label, size)
	}
	if len(data) > size {
		return nil, fmt.Errorf("buffer %q: initial data of %d bytes exceeds size %d", b.label, len(data), size)
	}

	if err := b.allocate(size, data); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *graphicsBuffer) allocate(size int, data []byte) error {
	handle, err := b.device.NewBuffer(gpu.BufferDesc{
		Label: b.label,
		Usage: b.usage,
		Size:  size,
		Data:  data,
	})
	if err != nil {
		return fmt.Errorf("buffer %q: failed to allocate %d bytes: %w", b.label, size, err)
	}
	b.handle = handle
	b.shadow = make([]byte, size)
	copy(b.shadow, data)
	common.Logger().Debug("graphics buffer allocated", slog.String("label", b.label), slog.Int("size", size), slog.String("usage", b.usage.String()))
	return nil
}

func (b *graphicsBuffer) Label() string {
	return b.label
}

func (b *graphicsBuffer) Usage() gpu.Usage {
	return b.usage
}

func (b *graphicsBuffer) Size() int {
	return len(b.shadow)
}

func (b *graphicsBuffer) Handle() gpu.Buffer {
	return b.handle
}

func (b *graphicsBuffer) Resize(size int) error {
	if b.mapped {
		return fmt.Errorf("buffer %q: resize while mapped", b.label)
	}
	if size < 0 {
		return fmt.Errorf("buffer %q: negative size %d", b.label, size)
	}
	old := b.handle
	if err := b.allocate(size, nil); err != nil {
		return err
	}
	if old != nil {
		old.Release()
	}
	return nil
}

func (b *graphicsBuffer) Update(offset int, data []byte) error {
	if b.mapped {
		return fmt.Errorf("buffer %q: update while mapped", b.label)
	}
	if offset < 0 || offset+len(data) > len(b.shadow) {
		return fmt.Errorf("buffer %q: update of %d bytes at offset %d exceeds size %d", b.label, len(data), offset, len(b.shadow))
	}
	copy(b.shadow[offset:], data)
	if err := b.handle.Upload(offset, data); err != nil {
		return fmt.Errorf("buffer %q: upload failed: %w", b.label, err)
	}
	return nil
}

func (b *graphicsBuffer) Map(access MapAccess) ([]byte, error) {
	if b.mapped {
		panic(fmt.Sprintf("buffer %q is already mapped", b.label))
	}
	if access.reads() {
		if err := b.handle.Download(b.shadow); err != nil {
			return nil, fmt.Errorf("buffer %q: read back failed: %w", b.label, err)
		}
	}
	b.mapped = true
	b.access = access
	return b.shadow, nil
}

func (b *graphicsBuffer) Unmap() error {
	if !b.mapped {
		panic(fmt.Sprintf("buffer %q is not mapped", b.label))
	}
	b.mapped = false
	if b.access.writes() && len(b.shadow) > 0 {
		if err := b.handle.Upload(0, b.shadow); err != nil {
			return fmt.Errorf("buffer %q: upload failed: %w", b.label, err)
		}
	}
	return nil
}

func (b *graphicsBuffer) Mapped() bool {
	return b.mapped
}

func (b *graphicsBuffer) Release() {
	if b.handle != nil {
		b.handle.Release()
		b.handle = nil
	}
	b.shadow = nil
	b.mapped = false
}
