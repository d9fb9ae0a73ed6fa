package engine

import (
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/profiler"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vk/engine/scene"
	"github.com/Carmen-Shannon/oxy-vk/engine/window"
)

// retryBackoff is how long the render loop sleeps while the surface has no area.
const retryBackoff = 50 * time.Millisecond

// engine implements the Engine interface.
// Coordinates the tick, render and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window       window.Window
	renderer     renderer.Renderer
	scene        scene.Scene
	overlay      scene.Overlay
	controls     *cameraControls
	bindControls bool
	keyDown      func(key uint32)

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	// Latest surface size reported by the window; resizePending is set until the scene follows it.
	width, height uint32
	resizePending bool

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It runs a fixed-rate tick loop for game logic and a render loop that drives one scene
// through Prepare, Render and Resize, while the calling goroutine pumps window messages.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer owning the device, or nil if none was configured.
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic, light animation and object transforms.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each render frame.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	SetRenderFrameLimit(fps float64)

	// SetScene replaces the scene the render loop drives. The scene must already be set up.
	SetScene(s scene.Scene)

	// Scene returns the scene the render loop drives, or nil.
	Scene() scene.Scene

	// SetOverlay registers commands recorded at the end of every main pass, such as a GUI.
	SetOverlay(overlay scene.Overlay)

	// Run starts the tick and render loops and pumps window messages until the window closes
	// or Quit is called. It then shuts down the scene, the renderer and the window.
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// When a window is configured, its resize events update the camera aspect and schedule a scene
// resize on the render goroutine.
//
// Parameters:
//   - options: functional options for engine configuration (window, renderer, scene, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		width, height := e.window.Size()
		e.width, e.height = uint32(max(width, 0)), uint32(max(height, 0))
		e.window.SetResizeCallback(e.onResize)
		if e.bindControls && e.scene != nil {
			if ctrl := e.scene.Camera().Controller(); ctrl != nil {
				e.controls = newCameraControls(ctrl, e.scene.Shadow())
				e.controls.onKeyDown = e.keyDown
				e.controls.bind(e.window)
			}
		}
		if e.controls == nil && e.keyDown != nil {
			e.window.SetKeyDownCallback(e.keyDown)
		}
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
	}
	e.signalQuit()
	e.wg.Wait()
	e.shutdown()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.quitChannel)
	})
}

// shutdown releases the scene, then the device, then the window.
func (e *engine) shutdown() {
	if s := e.Scene(); s != nil {
		s.Shutdown()
	}
	if e.renderer != nil {
		e.renderer.Close()
	}
	if e.window != nil {
		if err := e.window.Close(); err != nil {
			log.Printf("[Engine] close window: %v", err)
		}
	}
}

// handle launches the tick, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.controls != nil {
				e.controls.tick()
			}
			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		if s := e.Scene(); s != nil {
			res := e.renderFrame(s)
			if res.Status == gpu.FrameFatal {
				log.Printf("[Engine] fatal frame, quitting: %v", res.Err)
				e.signalQuit()
				return
			}
			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick(s.Stats())
			}
		}

		if e.renderCallback != nil {
			e.renderCallback(dt)
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(lastRender); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// renderFrame runs one frame of s: a pending resize first, then Prepare and Render.
// A Retry result resizes the scene to the latest window size before the next frame.
func (e *engine) renderFrame(s scene.Scene) gpu.FrameResult {
	if e.takeResize() {
		if res := e.resize(s); !res.Ok() {
			return res
		}
	}

	if err := s.Prepare(); err != nil {
		return gpu.FrameResultOf(err)
	}
	e.mu.Lock()
	overlay := e.overlay
	e.mu.Unlock()

	res := s.Render(overlay)
	if res.Status != gpu.FrameRetry {
		return res
	}
	if r := e.resize(s); r.Status == gpu.FrameFatal {
		return r
	}
	return res
}

// resize follows the window size. A minimized window has no area; the resize stays pending.
func (e *engine) resize(s scene.Scene) gpu.FrameResult {
	e.mu.Lock()
	w, h := e.width, e.height
	e.mu.Unlock()

	if w == 0 || h == 0 {
		e.mu.Lock()
		e.resizePending = true
		e.mu.Unlock()
		time.Sleep(retryBackoff)
		return gpu.FrameResult{Status: gpu.FrameRetry, Err: gpu.ErrSurfaceOutOfDate}
	}
	res := gpu.FrameResultOf(s.Resize(w, h))
	if res.Status == gpu.FrameRetry {
		e.mu.Lock()
		e.resizePending = true
		e.mu.Unlock()
	}
	return res
}

func (e *engine) takeResize() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	pending := e.resizePending
	e.resizePending = false
	return pending
}

// onResize runs on the window goroutine. GPU work is left to the render loop.
func (e *engine) onResize(width, height int) {
	e.mu.Lock()
	e.width, e.height = uint32(max(width, 0)), uint32(max(height, 0))
	e.resizePending = true
	s := e.scene
	e.mu.Unlock()

	if s != nil && width > 0 && height > 0 {
		if c := s.Camera(); c != nil {
			c.SetAspect(float32(width) / float32(height))
		}
	}
}

// handleQuit blocks until the quit channel is closed, then ends the window message loop.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
	if e.window != nil {
		e.window.RequestClose()
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	running := e.running
	e.mu.Unlock()

	if running {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func (e *engine) SetScene(s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene = s
}

func (e *engine) Scene() scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene
}

func (e *engine) SetOverlay(overlay scene.Overlay) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overlay = overlay
}

// frameDuration converts a rate to a period; rates <= 0 yield 0.
func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
