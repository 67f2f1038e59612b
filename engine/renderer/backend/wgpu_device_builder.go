package backend

import "github.com/cogentcore/webgpu/wgpu"

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA) of the
// surface framebuffer. WebGPU guarantees support for 1 (off) and 4.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1). This is the default.
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4
)

// WGPUDeviceOption is a functional option applied to a WGPUDevice during construction via NewWGPUDevice.
type WGPUDeviceOption func(*wgpuDevice)

// WithSurfaceDescriptor makes the device present to the window described by desc.
// Without it the device renders offscreen only.
//
// Parameters:
//   - desc: the platform surface descriptor, typically from window.Window.SurfaceDescriptor
//
// Returns:
//   - WGPUDeviceOption: a function that applies the surface descriptor to a device
func WithSurfaceDescriptor(desc *wgpu.SurfaceDescriptor) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.surfaceDescriptor = desc
	}
}

// WithForceFallbackAdapter requests the software fallback adapter.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - WGPUDeviceOption: a function that applies the adapter option to a device
func WithForceFallbackAdapter(force bool) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.forceFallbackAdapter = force
	}
}

// WithPresentMode sets the initial present mode of the surface.
//
// Parameters:
//   - mode: the PresentMode to use
//
// Returns:
//   - WGPUDeviceOption: a function that applies the present mode to a device
func WithPresentMode(mode PresentMode) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		if mode == PresentModeUncapped {
			d.presentMode = wgpu.PresentModeImmediate
			return
		}
		d.presentMode = wgpu.PresentModeFifo
	}
}

// WithSampleCount sets the MSAA sample count of the surface framebuffer.
//
// Parameters:
//   - count: the sample count
//
// Returns:
//   - WGPUDeviceOption: a function that applies the sample count to a device
func WithSampleCount(count MSAASampleCount) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.sampleCount = count
	}
}
