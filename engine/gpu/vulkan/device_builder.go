package vulkan

// DeviceBuilderOption is a functional option for configuring a Device.
type DeviceBuilderOption func(*Device)

// WithValidation enables the Khronos validation layer and routes its reports to the log.
// It is skipped with a log line when the layer is not installed.
//
// Parameters:
//   - enabled: true to request validation
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithValidation(enabled bool) DeviceBuilderOption {
	return func(d *Device) {
		d.validation = enabled
	}
}

// WithVSync selects FIFO presentation when enabled and mailbox or immediate presentation otherwise.
func WithVSync(enabled bool) DeviceBuilderOption {
	return func(d *Device) {
		d.vsync = enabled
	}
}

// WithAppName sets the application name reported to the driver.
func WithAppName(name string) DeviceBuilderOption {
	return func(d *Device) {
		d.appName = name
	}
}

// WithDescriptorPoolSize sets how many descriptor sets the device's pool holds.
// AllocateDescriptorSet returns gpu.ErrResourceExhausted past this count.
func WithDescriptorPoolSize(sets uint32) DeviceBuilderOption {
	return func(d *Device) {
		if sets > 0 {
			d.poolSets = sets
		}
	}
}
