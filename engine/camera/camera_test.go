package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestDefaults(t *testing.T) {
	c := NewCamera()
	if c.Position() != (mgl32.Vec3{0, 0, 5}) {
		t.Errorf("position %v, want (0,0,5)", c.Position())
	}
	if c.Near() != DefaultNear || c.Far() != DefaultFar || c.Aspect() != DefaultAspect {
		t.Errorf("unexpected projection defaults %v %v %v", c.Near(), c.Far(), c.Aspect())
	}

	// the origin sits 5 units in front of the eye
	p := c.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if !p.ApproxEqual(mgl32.Vec4{0, 0, -5, 1}) {
		t.Errorf("origin in view space %v, want (0,0,-5,1)", p)
	}
}

func TestProjectionIsYFlipped(t *testing.T) {
	c := NewCamera()
	unflipped := mgl32.Perspective(c.Fov(), c.Aspect(), c.Near(), c.Far())
	if got := c.Proj().At(1, 1); got != -unflipped.At(1, 1) {
		t.Errorf("proj[1][1] = %v, want %v", got, -unflipped.At(1, 1))
	}

	// a point above the view axis lands in the lower half of clip space
	clip := c.Proj().Mul4x1(mgl32.Vec4{0, 1, -5, 1})
	if clip.Y()/clip.W() >= 0 {
		t.Errorf("expected negative clip y, got %v", clip.Y()/clip.W())
	}
}

func TestInvViewIsRowVectorView(t *testing.T) {
	c := NewCamera(WithPosition(3, 2, 4), WithTarget(0, 1, 0))
	p := mgl32.Vec4{1, 2, 3, 1}
	want := c.View().Mul4x1(p)
	// p * InvView as a row vector equals transpose(InvView) * p
	got := c.InvView().Transpose().Mul4x1(p)
	if !got.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestControllerDrivesCamera(t *testing.T) {
	ctrl := NewOrbitController(WithOrbitRadius(10), WithOrbitTarget(1, 0, 0))
	c := NewCamera(WithController(ctrl))
	if !c.Position().ApproxEqual(mgl32.Vec3{1, 0, 10}) {
		t.Fatalf("position %v, want (1,0,10)", c.Position())
	}

	ctrl.Orbit(mgl32.DegToRad(90), 0)
	c.Update()
	if !c.Position().ApproxEqualThreshold(mgl32.Vec3{11, 0, 0}, 1e-4) {
		t.Errorf("position after orbit %v, want (11,0,0)", c.Position())
	}
	if c.Target() != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("target %v", c.Target())
	}
}

func TestOrbitClamps(t *testing.T) {
	ctrl := NewOrbitController(WithRadiusBounds(1, 20), WithElevationBounds(-1, 1))
	ctrl.Zoom(1000)
	if ctrl.Radius() != 1 {
		t.Errorf("radius %v, want 1", ctrl.Radius())
	}
	ctrl.Zoom(-1000)
	if ctrl.Radius() != 20 {
		t.Errorf("radius %v, want 20", ctrl.Radius())
	}
	ctrl.Orbit(0, 10)
	if ctrl.Elevation() != 1 {
		t.Errorf("elevation %v, want 1", ctrl.Elevation())
	}
}

func TestPanMovesTarget(t *testing.T) {
	ctrl := NewOrbitController(WithPanSpeed(1))
	before := ctrl.Position()
	ctrl.Pan(2, 0)
	// eye on +Z: the right axis is +X
	if !ctrl.Target().ApproxEqual(mgl32.Vec3{2, 0, 0}) {
		t.Errorf("target %v, want (2,0,0)", ctrl.Target())
	}
	if !ctrl.Position().Sub(before).ApproxEqual(mgl32.Vec3{2, 0, 0}) {
		t.Error("pan should move the eye with the target")
	}
}
