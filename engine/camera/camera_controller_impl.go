package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// orbitController keeps the eye on a sphere around the target.
type orbitController struct {
	mu sync.Mutex

	target mgl32.Vec3

	radius    float32
	azimuth   float32 // around +Y, 0 looks down -Z
	elevation float32 // above the horizontal plane

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed       float32
	mouseSensitivity float32
	zoomSpeed        float32
	panSpeed         float32
}

var _ CameraController = &orbitController{}

// NewOrbitController creates an orbit controller. Without options the eye sits at (0,0,5)
// looking at the origin.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewOrbitController(options ...CameraControllerOption) CameraController {
	cc := &orbitController{
		radius:           5,
		minRadius:        0.5,
		maxRadius:        500,
		minElevation:     -math.Pi/2 + 0.05,
		maxElevation:     math.Pi/2 - 0.05,
		orbitSpeed:       0.03,
		mouseSensitivity: 0.005,
		zoomSpeed:        0.5,
		panSpeed:         0.05,
	}
	for _, option := range options {
		option(cc)
	}
	cc.clamp()
	return cc
}

// clamp keeps radius and elevation inside their bounds. Caller must hold the mutex.
func (cc *orbitController) clamp() {
	cc.radius = mgl32.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = mgl32.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
}

// offset is the eye position relative to the target. Caller must hold the mutex.
func (cc *orbitController) offset() mgl32.Vec3 {
	sinE, cosE := math.Sincos(float64(cc.elevation))
	sinA, cosA := math.Sincos(float64(cc.azimuth))
	return mgl32.Vec3{
		cc.radius * float32(cosE*sinA),
		cc.radius * float32(sinE),
		cc.radius * float32(cosE*cosA),
	}
}

func (cc *orbitController) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target.Add(cc.offset())
}

func (cc *orbitController) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *orbitController) SetTarget(x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = mgl32.Vec3{x, y, z}
}

func (cc *orbitController) Orbit(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth += dAzimuth
	cc.elevation += dElevation
	cc.clamp()
}

func (cc *orbitController) OrbitDrag(dx, dy float64) {
	cc.Orbit(-float32(dx)*cc.mouseSensitivity, float32(dy)*cc.mouseSensitivity)
}

func (cc *orbitController) OrbitStep(horizontal, vertical int) {
	cc.Orbit(float32(horizontal)*cc.orbitSpeed, float32(vertical)*cc.orbitSpeed)
}

func (cc *orbitController) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius -= delta * cc.zoomSpeed
	cc.clamp()
}

func (cc *orbitController) Pan(right, up float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	back := cc.offset().Normalize()
	r := mgl32.Vec3{0, 1, 0}.Cross(back)
	if r.Len() < 1e-6 {
		return
	}
	r = r.Normalize()
	u := back.Cross(r)
	cc.target = cc.target.Add(r.Mul(right * cc.panSpeed)).Add(u.Mul(up * cc.panSpeed))
}

func (cc *orbitController) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *orbitController) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *orbitController) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}
