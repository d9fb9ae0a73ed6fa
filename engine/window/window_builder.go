package window

// WindowBuilderOption is a functional option for configuring an engineWindow.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the requested client area in screen coordinates. The framebuffer may be larger
// on high-DPI displays; Size reports pixels.
//
// Parameters:
//   - width: initial width
//   - height: initial height
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width, w.height = width, height
	}
}

// WithMinSize bounds how small the user can resize the window. Zero leaves an axis unbounded.
// The swapchain is never created smaller than this while the window is visible.
//
// Parameters:
//   - width: minimum width, 0 for none
//   - height: minimum height, 0 for none
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMinSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.limits.minWidth, w.limits.minHeight = width, height
	}
}

// WithMaxSize bounds how large the user can resize the window, and with it the largest
// swapchain and MSAA targets the renderer allocates. Zero leaves an axis unbounded.
//
// Parameters:
//   - width: maximum width, 0 for none
//   - height: maximum height, 0 for none
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMaxSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.limits.maxWidth, w.limits.maxHeight = width, height
	}
}

// WithResizable controls whether the user can resize the window. Defaults to true.
func WithResizable(resizable bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.resizable = resizable
	}
}
