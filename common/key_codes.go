package common

// Key codes delivered by window key callbacks. Printable keys use their ASCII value,
// the rest follow GLFW.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyW = 87
	KeyA = 65
	KeyS = 83
	KeyD = 68
	KeyQ = 81
	KeyE = 69
	KeyC = 67
	KeyP = 80
	KeyL = 76
	KeyG = 71
	KeyT = 84

	KeySpace = 32
	KeyEsc   = 256
)

// Arrow keys (GLFW).
const (
	KeyRight = 262
	KeyLeft  = 263
	KeyDown  = 264
	KeyUp    = 265
)
