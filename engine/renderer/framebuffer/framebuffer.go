// Package framebuffer describes render target layouts and the framebuffers built from them.
package framebuffer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
)

// Channel is one named color attachment of a framebuffer layout.
type Channel struct {
	Name   string
	Format gpu.TextureFormat
}

// Layout describes the attachments a framebuffer provides. A FormatUndefined Depth means no depth attachment.
type Layout struct {
	Name   string
	Colors []Channel
	Depth  gpu.TextureFormat
}

// HasDepth reports whether the layout has a depth attachment.
func (l Layout) HasDepth() bool {
	return l.Depth.IsDepth()
}

// HasStencil reports whether the layout's depth attachment carries stencil.
func (l Layout) HasStencil() bool {
	return l.Depth.HasStencil()
}

// Channel returns the color channel with the given name and its attachment index.
//
// Parameters:
//   - name: the channel name
//
// Returns:
//   - Channel: the channel
//   - int: the attachment index, -1 if no channel has the name
func (l Layout) Channel(name string) (Channel, int) {
	for i, c := range l.Colors {
		if c.Name == name {
			return c, i
		}
	}
	return Channel{}, -1
}

// ColorFormats returns the format of every color attachment in attachment order.
func (l Layout) ColorFormats() []gpu.TextureFormat {
	formats := make([]gpu.TextureFormat, len(l.Colors))
	for i, c := range l.Colors {
		formats[i] = c.Format
	}
	return formats
}

// Validate checks that channel names are unique and every format is a known format of the right aspect.
//
// Returns:
//   - error: an error describing the first invalid attachment
func (l Layout) Validate() error {
	seen := make(map[string]struct{}, len(l.Colors))
	for _, c := range l.Colors {
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("framebuffer layout %q: duplicate color channel %q", l.Name, c.Name)
		}
		seen[c.Name] = struct{}{}
		if !c.Format.Valid() || c.Format.IsDepth() {
			return fmt.Errorf("framebuffer layout %q: channel %q has invalid color format %q", l.Name, c.Name, c.Format)
		}
	}
	if l.Depth != gpu.FormatUndefined && !l.Depth.IsDepth() {
		return fmt.Errorf("framebuffer layout %q: %q is not a depth format", l.Name, l.Depth)
	}
	return nil
}

// frameBuffer is the implementation of the FrameBuffer interface.
type frameBuffer struct {
	layout Layout
	handle gpu.Framebuffer
	// owned is true when the handle was allocated by NewFrameBuffer and must be released with it.
	owned bool
}

// FrameBuffer is a render target whose attachments match a Layout.
type FrameBuffer interface {
	// Layout returns the attachment layout.
	//
	// Returns:
	//   - Layout: the layout
	Layout() Layout

	// Handle returns the device framebuffer.
	//
	// Returns:
	//   - gpu.Framebuffer: the device framebuffer
	Handle() gpu.Framebuffer

	// Width returns the width in pixels.
	Width() int

	// Height returns the height in pixels.
	Height() int

	// Clear clears every attachment before the next draw into the framebuffer.
	//
	// Parameters:
	//   - device: the device that owns the framebuffer
	//   - color: the clear color of every color attachment
	//   - depth: the clear depth
	Clear(device gpu.Device, color [4]float32, depth float32)

	// Release frees the attachments if the framebuffer owns them.
	Release()
}

var _ FrameBuffer = &frameBuffer{}

// NewFrameBuffer allocates attachments for layout on device.
//
// Parameters:
//   - device: the device to allocate on
//   - layout: the attachment layout
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - FrameBuffer: the created framebuffer
//   - error: an error if the layout is invalid or allocation fails
func NewFrameBuffer(device gpu.Device, layout Layout, width, height int) (FrameBuffer, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("framebuffer %q: invalid size %dx%d", layout.Name, width, height)
	}
	handle, err := device.NewFramebuffer(gpu.FramebufferDesc{
		Label:  layout.Name,
		Width:  width,
		Height: height,
		Colors: layout.ColorFormats(),
		Depth:  layout.Depth,
	})
	if err != nil {
		return nil, fmt.Errorf("framebuffer %q: %w", layout.Name, err)
	}
	return &frameBuffer{layout: layout, handle: handle, owned: true}, nil
}

// Wrap describes an externally owned device framebuffer, such as a window surface frame, with layout.
//
// Parameters:
//   - layout: the attachment layout of handle
//   - handle: the device framebuffer
//
// Returns:
//   - FrameBuffer: the wrapping framebuffer, whose Release does not free handle
func Wrap(layout Layout, handle gpu.Framebuffer) FrameBuffer {
	return &frameBuffer{layout: layout, handle: handle}
}

func (f *frameBuffer) Layout() Layout {
	return f.layout
}

func (f *frameBuffer) Handle() gpu.Framebuffer {
	return f.handle
}

func (f *frameBuffer) Width() int {
	return f.handle.Width()
}

func (f *frameBuffer) Height() int {
	return f.handle.Height()
}

func (f *frameBuffer) Clear(device gpu.Device, color [4]float32, depth float32) {
	device.Clear(f.handle, color, depth, 0)
}

func (f *frameBuffer) Release() {
	if f.owned && f.handle != nil {
		f.handle.Release()
	}
	f.handle = nil
}
