package buffer

import "github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"

// GraphicsBufferOption is a functional option used to configure a GraphicsBuffer at creation.
type GraphicsBufferOption func(b *graphicsBuffer, data *[]byte)

// WithLabel sets the debug label of the buffer.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - GraphicsBufferOption: a function that sets the label
func WithLabel(label string) GraphicsBufferOption {
	return func(b *graphicsBuffer, _ *[]byte) {
		b.label = label
	}
}

// WithUsage sets the usage hint of the buffer. The default is gpu.UsageStaticDraw.
//
// Parameters:
//   - usage: the usage hint
//
// Returns:
//   - GraphicsBufferOption: a function that sets the usage
func WithUsage(usage gpu.Usage) GraphicsBufferOption {
	return func(b *graphicsBuffer, _ *[]byte) {
		b.usage = usage
	}
}

// WithData sets the initial contents of the buffer. The data may be shorter than the buffer.
//
// Parameters:
//   - data: the initial payload
//
// Returns:
//   - GraphicsBufferOption: a function that sets the initial payload
func WithData(data []byte) GraphicsBufferOption {
	return func(_ *graphicsBuffer, d *[]byte) {
		*d = data
	}
}
