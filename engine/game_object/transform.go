package game_object

import "github.com/go-gl/mathgl/mgl32"

// Transform is the placement of an object in world space.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3

	// EulerAngles is the last rotation set through SetEulerAngles, in degrees, kept for editors.
	EulerAngles mgl32.Vec3
}

// NewTransform returns the identity transform.
func NewTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Model returns the model matrix scale * translate * rotate. The translation is scaled
// along with the geometry.
//
// Returns:
//   - mgl32.Mat4: the model matrix
func (t Transform) Model() mgl32.Mat4 {
	return mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]).
		Mul4(mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2])).
		Mul4(t.Rotation.Mat4())
}

// SetEulerAngles sets the rotation from angles in degrees applied in X, Y, Z order.
//
// Parameters:
//   - x, y, z: the rotation about each axis in degrees
func (t *Transform) SetEulerAngles(x, y, z float32) {
	t.EulerAngles = mgl32.Vec3{x, y, z}
	t.Rotation = mgl32.AnglesToQuat(mgl32.DegToRad(x), mgl32.DegToRad(y), mgl32.DegToRad(z), mgl32.XYZ)
}
