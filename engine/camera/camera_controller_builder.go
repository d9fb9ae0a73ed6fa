package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*orbitController)

// WithOrbitRadius sets the initial distance from the pivot.
//
// Parameters:
//   - radius: distance from the orbit target
//
// Returns:
//   - CameraControllerOption: functional option to set the radius
func WithOrbitRadius(radius float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.radius = radius
	}
}

// WithOrbitAngles sets the initial azimuth and elevation in radians.
//
// Parameters:
//   - azimuth: horizontal angle around +Y, 0 places the eye on +Z
//   - elevation: vertical angle above the horizontal plane
//
// Returns:
//   - CameraControllerOption: functional option to set the angles
func WithOrbitAngles(azimuth, elevation float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.azimuth = azimuth
		cc.elevation = elevation
	}
}

// WithOrbitTarget sets the pivot point.
func WithOrbitTarget(x, y, z float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.target = mgl32.Vec3{x, y, z}
	}
}

// WithRadiusBounds sets the zoom limits.
func WithRadiusBounds(min, max float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.minRadius = min
		cc.maxRadius = max
	}
}

// WithElevationBounds sets the vertical orbit limits in radians.
func WithElevationBounds(min, max float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.minElevation = min
		cc.maxElevation = max
	}
}

// WithOrbitSpeed sets the angle in radians one OrbitStep turns.
func WithOrbitSpeed(speed float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.orbitSpeed = speed
	}
}

// WithMouseSensitivity sets the radians per pixel of OrbitDrag.
func WithMouseSensitivity(sensitivity float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.mouseSensitivity = sensitivity
	}
}

// WithZoomSpeed sets the radius change per scroll unit.
func WithZoomSpeed(speed float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.zoomSpeed = speed
	}
}

// WithPanSpeed sets the distance one Pan unit moves.
func WithPanSpeed(speed float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.panSpeed = speed
	}
}
