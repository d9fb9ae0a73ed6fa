package window

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	vk "github.com/vulkan-go/vulkan"
)

// Window is the presentation target and input source for the renderer. It hands each graphics
// backend what it needs to build a surface and reports framebuffer resizes in pixels.
//
// Callbacks run on the goroutine that calls ProcessMessages. Size, RequestClose and the surface
// accessors may be called from any goroutine.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the window is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetMiddleMouseDownCallback sets the callback for middle mouse button press.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMiddleMouseDownCallback(callback func(x, y int32))

	// SetMiddleMouseUpCallback sets the callback for middle mouse button release.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMiddleMouseUpCallback(callback func(x, y int32))

	// SetMouseMoveCallback sets the callback for mouse movement.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMouseMoveCallback(callback func(x, y int32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// InstanceProcAddr returns GLFW's vkGetInstanceProcAddr for loading Vulkan.
	InstanceProcAddr() unsafe.Pointer

	// RequiredInstanceExtensions lists the Vulkan instance extensions GLFW needs to present to this window.
	RequiredInstanceExtensions() []string

	// CreateVulkanSurface creates a presentation surface for the window on the given instance.
	//
	// Parameters:
	//   - instance: the Vulkan instance created with RequiredInstanceExtensions enabled
	//
	// Returns:
	//   - vk.Surface: the surface, owned by the caller
	//   - error: error if the window is not initialized or GLFW fails
	CreateVulkanSurface(instance vk.Instance) (vk.Surface, error)

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// RequestClose asks the message loop to stop. Unlike Close it may be called from any goroutine
	// and releases nothing.
	RequestClose()

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls OnUpdate callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int

	// Size returns the framebuffer size in pixels as one consistent pair. A minimized window
	// reports 0x0.
	//
	// Returns:
	//   - int: width in pixels
	//   - int: height in pixels
	Size() (width, height int)
}

// sizeLimits bounds the window while resizing. Zero leaves a bound open.
type sizeLimits struct {
	minWidth, minHeight int
	maxWidth, maxHeight int
}

// validate reports a maximum below its minimum on either axis.
func (l sizeLimits) validate() error {
	if l.maxWidth > 0 && l.minWidth > l.maxWidth {
		return fmt.Errorf("window: min width %d exceeds max width %d", l.minWidth, l.maxWidth)
	}
	if l.maxHeight > 0 && l.minHeight > l.maxHeight {
		return fmt.Errorf("window: min height %d exceeds max height %d", l.minHeight, l.maxHeight)
	}
	return nil
}

// clamp moves a requested size inside the limits.
func (l sizeLimits) clamp(width, height int) (int, int) {
	clampAxis := func(v, lo, hi int) int {
		if lo > 0 && v < lo {
			v = lo
		}
		if hi > 0 && v > hi {
			v = hi
		}
		return v
	}
	return clampAxis(width, l.minWidth, l.maxWidth), clampAxis(height, l.minHeight, l.maxHeight)
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title     string
	limits    sizeLimits
	resizable bool

	// mu guards width and height, written by the framebuffer callback and read by the render loop.
	mu     sync.Mutex
	width  int
	height int

	// internalWindow holds the platform window (glfwWindow).
	internalWindow any

	onUpdate          func()
	onResize          func(width, height int)
	onScroll          func(delta float32) // positive scrolls up
	onKeyDown         func(keyCode uint32)
	onKeyUp           func(keyCode uint32)
	onMiddleMouseDown func(x, y int32)
	onMiddleMouseUp   func(x, y int32)
	onMouseMove       func(x, y int32)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a window. GLFW ties the window to the calling OS thread, so the
// same goroutine must later call ProcessMessages and Close.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the window, ready for a renderer
//   - error: when the options are inconsistent or the platform window cannot be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w, err := newEngineWindow(options...)
	if err != nil {
		return nil, err
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}
	return w, nil
}

// newEngineWindow applies defaults and options and checks them, without touching the platform.
func newEngineWindow(options ...WindowBuilderOption) (*engineWindow, error) {
	w := &engineWindow{
		title:     "oxy-vk",
		limits:    sizeLimits{minWidth: 320, minHeight: 240},
		resizable: true,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := w.limits.validate(); err != nil {
		return nil, err
	}
	if w.width <= 0 || w.height <= 0 {
		return nil, fmt.Errorf("window: size %dx%d must be positive", w.width, w.height)
	}
	w.width, w.height = w.limits.clamp(w.width, w.height)
	return w, nil
}

// setSize records a framebuffer size and forwards it to the resize callback.
func (w *engineWindow) setSize(width, height int) {
	w.mu.Lock()
	w.width, w.height = width, height
	w.mu.Unlock()
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMiddleMouseDownCallback(callback func(x, y int32)) {
	w.onMiddleMouseDown = callback
}

func (w *engineWindow) SetMiddleMouseUpCallback(callback func(x, y int32)) {
	w.onMiddleMouseUp = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y int32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) InstanceProcAddr() unsafe.Pointer {
	return platformInstanceProcAddr()
}

func (w *engineWindow) RequiredInstanceExtensions() []string {
	return platformRequiredInstanceExtensions(w)
}

func (w *engineWindow) CreateVulkanSurface(instance vk.Instance) (vk.Surface, error) {
	return platformCreateVulkanSurface(w, instance)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) RequestClose() {
	platformRequestClose(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	width, _ := w.Size()
	return width
}

func (w *engineWindow) Height() int {
	_, height := w.Size()
	return height
}

func (w *engineWindow) Size() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}
