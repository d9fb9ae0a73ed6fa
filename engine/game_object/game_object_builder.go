package game_object

import "github.com/go-gl/mathgl/mgl32"

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithName sets the name of the GameObject.
//
// Parameters:
//   - name: the requested name; the scene appends a suffix when it is taken
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the name
func WithName(name string) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.name = name
	}
}

// WithEnabled sets whether the GameObject is drawn and lit.
//
// Parameters:
//   - enabled: true to render the object, false to skip it
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.enabled.Store(enabled)
	}
}

// WithPosition sets the initial world-space position.
func WithPosition(x, y, z float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.transform.Position = mgl32.Vec3{x, y, z}
	}
}

// WithScale sets the initial scale.
func WithScale(x, y, z float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.transform.Scale = mgl32.Vec3{x, y, z}
	}
}

// WithEulerAngles sets the initial orientation in degrees. A light object's light is turned to match.
//
// Parameters:
//   - x, y, z: rotation about each axis in degrees
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the rotation
func WithEulerAngles(x, y, z float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.transform.SetEulerAngles(x, y, z)
		if obj.light != nil {
			obj.light.Rotate(obj.transform.Rotation)
		}
	}
}
