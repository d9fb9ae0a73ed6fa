package renderer

import "time"

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = mode
	}
}

// WithSampleCount sets the MSAA sample count of the main pass of every scene. Defaults to MSAA4x.
// Counts above the device limit are clamped when the scene is set up.
//
// Parameters:
//   - count: MSAAOff, MSAA2x, MSAA4x or MSAA8x
//
// Returns:
//   - RendererBuilderOption: a function that applies the sample count to a renderer
func WithSampleCount(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		if count > 0 {
			r.msaa = count
		}
	}
}

// WithFramesInFlight sets how many frames the CPU may record ahead of the GPU.
// Values <= 0 keep the synchronizer default.
func WithFramesInFlight(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.framesInFlight = n
	}
}

// WithFenceTimeout bounds how long a frame waits for its slot's fence before reporting a failure.
func WithFenceTimeout(d time.Duration) RendererBuilderOption {
	return func(r *renderer) {
		r.fenceTimeout = d
	}
}

// WithValidation enables the Vulkan validation layer. Ignored by the WebGPU backend.
func WithValidation(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.validation = enabled
	}
}

// WithForceSoftwareRenderer forces WGPU onto a CPU fallback adapter. Requires a software
// Vulkan ICD such as lavapipe. Ignored by the Vulkan backend.
//
// Parameters:
//   - force: true to force the software fallback adapter
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithAppName sets the application name reported to the driver and used as the device label.
func WithAppName(name string) RendererBuilderOption {
	return func(r *renderer) {
		if name != "" {
			r.appName = name
		}
	}
}

// WithDescriptorSetBudget sets how many descriptor sets the Vulkan descriptor pool holds.
// Each mesh object takes one set per frame in flight.
func WithDescriptorSetBudget(sets uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.descriptorSets = sets
	}
}
