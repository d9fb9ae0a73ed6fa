package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController defines orbit and pan controls around a target point.
// Controllers own positional state; the Camera reads it on Update.
type CameraController interface {
	// Position returns the eye position derived from the target and the orbit coordinates.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Position() mgl32.Vec3

	// Target returns the orbit pivot.
	Target() mgl32.Vec3

	// SetTarget moves the pivot and keeps the orbit coordinates.
	SetTarget(x, y, z float32)

	// Orbit rotates around the pivot. Elevation is clamped to the configured bounds.
	//
	// Parameters:
	//   - dAzimuth: the change of the horizontal angle in radians
	//   - dElevation: the change of the vertical angle in radians
	Orbit(dAzimuth, dElevation float32)

	// OrbitDrag orbits by a mouse delta in pixels scaled by the mouse sensitivity.
	OrbitDrag(dx, dy float64)

	// OrbitStep orbits by the keyboard orbit speed; each argument is -1, 0 or 1.
	OrbitStep(horizontal, vertical int)

	// Zoom moves toward the pivot by delta scroll units. The radius is clamped to its bounds.
	Zoom(delta float32)

	// Pan translates position and target along the camera's right and up axes.
	//
	// Parameters:
	//   - right: movement along the right axis in pan-speed units
	//   - up: movement along the up axis in pan-speed units
	Pan(right, up float32)

	Radius() float32
	Azimuth() float32
	Elevation() float32
}
