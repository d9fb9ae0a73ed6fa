package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-vk/engine/profiler"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vk/engine/scene"
	"github.com/Carmen-Shannon/oxy-vk/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfilingInterval sets how often the profiler reports.
func WithProfilingInterval(d time.Duration) EngineBuilderOption {
	return func(e *engine) {
		if d > 0 {
			e.profiler = profiler.NewProfiler(profiler.WithInterval(d))
		}
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = frameDuration(fps)
	}
}

// WithWindow sets the window the engine pumps messages for and follows in size.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer hands the engine the renderer to close on shutdown.
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithScene sets the scene the render loop drives. The scene must already be set up.
//
// Parameters:
//   - s: the Scene to render
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scene = s
	}
}

// WithOverlay registers commands recorded at the end of every main pass.
func WithOverlay(overlay scene.Overlay) EngineBuilderOption {
	return func(e *engine) {
		e.overlay = overlay
	}
}

// WithCameraControls binds window input to the scene camera's orbit controller.
// Requires WithWindow and a scene whose camera has a controller.
func WithCameraControls(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.bindControls = enabled
	}
}

// WithKeyDownCallback registers a key handler that runs alongside the camera controls.
func WithKeyDownCallback(callback func(keyCode uint32)) EngineBuilderOption {
	return func(e *engine) {
		e.keyDown = callback
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}
