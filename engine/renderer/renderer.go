// Package renderer opens the GPU device for a window and creates scenes bound to it.
package renderer

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-vk/engine/camera"
	"github.com/Carmen-Shannon/oxy-vk/engine/frame"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/scene"
	"github.com/Carmen-Shannon/oxy-vk/engine/window"
)

// renderer implements the Renderer interface.
type renderer struct {
	backendType RendererBackendType
	device      gpu.Device

	presentMode          PresentMode
	msaa                 MSAASampleCount
	framesInFlight       int
	fenceTimeout         time.Duration
	validation           bool
	forceFallbackAdapter bool
	appName              string
	descriptorSets       uint32

	closeOnce sync.Once
}

// Renderer owns the GPU device of one window. Scenes created through it share the device and
// inherit its frame pacing and MSAA settings.
type Renderer interface {
	// Backend returns the GPU API behind the device.
	Backend() RendererBackendType

	// Device returns the device, for callers recording their own overlay commands.
	Device() gpu.Device

	// SampleCount returns the requested MSAA sample count. A scene clamps it to the device limit.
	SampleCount() uint32

	// NewScene creates a scene on the renderer's device. The renderer's sample count and frame
	// options come first, so options passed here override them.
	//
	// Parameters:
	//   - name: the scene's identifier
	//   - cam: the camera the scene renders from
	//   - options: additional SceneBuilderOption values
	//
	// Returns:
	//   - scene.Scene: the scene, not yet set up
	NewScene(name string, cam camera.Camera, options ...scene.SceneBuilderOption) scene.Scene

	// Close waits for the device to go idle and destroys it. Scenes must be shut down first.
	// Safe to call twice.
	Close()
}

var _ Renderer = &renderer{}

func newRenderer(backendType RendererBackendType, options ...RendererBuilderOption) *renderer {
	r := &renderer{
		backendType: backendType,
		presentMode: PresentModeVSync,
		msaa:        MSAA4x,
		appName:     "oxy-vk",
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// NewRenderer opens a device of the given backend on the window's surface.
//
// Parameters:
//   - backendType: BackendTypeVulkan or BackendTypeWGPU
//   - win: the window to present to
//   - options: RendererBuilderOption values
//
// Returns:
//   - Renderer: the renderer
//   - error: wraps gpu.ErrSetupFailure when the backend is unknown or the device cannot be created
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	if win == nil {
		return nil, fmt.Errorf("renderer: nil window: %w", gpu.ErrSetupFailure)
	}
	r := newRenderer(backendType, options...)
	factory, ok := deviceFactories[backendType]
	if !ok {
		return nil, fmt.Errorf("renderer: unknown backend %v: %w", backendType, gpu.ErrSetupFailure)
	}
	dev, err := factory(r, win)
	if err != nil {
		return nil, fmt.Errorf("renderer: open %v device: %w", backendType, err)
	}
	r.device = dev

	ext := dev.SwapchainExtent()
	log.Printf("[Renderer] %v device ready: %dx%d, %d swapchain images, max %dx MSAA",
		backendType, ext.Width, ext.Height, len(dev.SwapchainImageViews()), dev.Limits().MaxSampleCount)
	return r, nil
}

func (r *renderer) Backend() RendererBackendType {
	return r.backendType
}

func (r *renderer) Device() gpu.Device {
	return r.device
}

func (r *renderer) SampleCount() uint32 {
	return uint32(r.msaa)
}

func (r *renderer) sceneOptions() []scene.SceneBuilderOption {
	var syncOptions []frame.SynchronizerBuilderOption
	if r.framesInFlight > 0 {
		syncOptions = append(syncOptions, frame.WithFramesInFlight(r.framesInFlight))
	}
	if r.fenceTimeout > 0 {
		syncOptions = append(syncOptions, frame.WithFenceTimeout(r.fenceTimeout))
	}
	return []scene.SceneBuilderOption{
		scene.WithSampleCount(uint32(r.msaa)),
		scene.WithFrameOptions(syncOptions...),
	}
}

func (r *renderer) NewScene(name string, cam camera.Camera, options ...scene.SceneBuilderOption) scene.Scene {
	return scene.NewScene(name, r.device, cam, append(r.sceneOptions(), options...)...)
}

func (r *renderer) Close() {
	r.closeOnce.Do(func() {
		if r.device == nil {
			return
		}
		if err := r.device.WaitIdle(); err != nil {
			log.Printf("[Renderer] wait idle before close: %v", err)
		}
		r.device.Close()
	})
}
