package webgpu

import "github.com/cogentcore/webgpu/wgpu"

// DeviceBuilderOption is a functional option for configuring a Device.
type DeviceBuilderOption func(*Device)

// WithVSync selects FIFO presentation when enabled and immediate presentation otherwise.
//
// Parameters:
//   - enabled: true to present in sync with the display
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithVSync(enabled bool) DeviceBuilderOption {
	return func(d *Device) {
		if enabled {
			d.presentMode = wgpu.PresentModeFifo
		} else {
			d.presentMode = wgpu.PresentModeImmediate
		}
	}
}

// WithForceFallbackAdapter requests the software fallback adapter.
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *Device) {
		d.forceFallback = force
	}
}

// WithLabel sets the device debug label.
func WithLabel(label string) DeviceBuilderOption {
	return func(d *Device) {
		d.label = label
	}
}
