// Package camera computes the view and projection matrices the scene renders and shadows with.
package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	mu sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32

	view mgl32.Mat4
	proj mgl32.Mat4

	controller CameraController
}

// Camera defines the interface for a perspective camera.
//
// The camera looks from its position toward its target. When a CameraController is attached,
// Update copies the controller's position and target before recomputing the matrices.
// The projection is Y-flipped so clip space matches the Vulkan convention.
type Camera interface {
	// Position returns the world-space eye position.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Position() mgl32.Vec3

	// Target returns the world-space point the camera looks at.
	Target() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// View returns the world-to-view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	View() mgl32.Mat4

	// Proj returns the Y-flipped perspective projection.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	Proj() mgl32.Mat4

	// InvView returns the view matrix in row-vector form, the transpose of View.
	// A row vector p multiplied on the left, p * InvView, equals View * p.
	//
	// Returns:
	//   - mgl32.Mat4: transpose(View)
	InvView() mgl32.Mat4

	// GPUData returns the camera uniform block.
	GPUData() GPUViewProj

	// Controller returns the attached controller, or nil.
	Controller() CameraController

	// Update pulls position and target from the controller, if any, and recomputes the matrices.
	// Call it once per tick.
	Update()

	SetPosition(x, y, z float32)
	SetTarget(x, y, z float32)
	SetFov(fov float32)

	// SetAspect sets width / height, typically after a resize.
	SetAspect(aspect float32)
	SetNear(near float32)
	SetFar(far float32)
	SetController(ctrl CameraController)
}

var _ Camera = &cameraImpl{}

// Default projection: 45 degrees, 1280x720, near 0.1, far 1000, eye at (0,0,5) looking at the origin.
const (
	DefaultFov    = 45 * math.Pi / 180
	DefaultAspect = float32(1280) / 720
	DefaultNear   = 0.1
	DefaultFar    = 1000
)

// NewCamera creates a new Camera with default perspective settings.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		position: mgl32.Vec3{0, 0, 5},
		up:       mgl32.Vec3{0, 1, 0},
		fov:      DefaultFov,
		aspect:   DefaultAspect,
		near:     DefaultNear,
		far:      DefaultFar,
	}
	for _, option := range options {
		option(c)
	}
	c.pull()
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) View() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) Proj() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proj
}

func (c *cameraImpl) InvView() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.Transpose()
}

func (c *cameraImpl) GPUData() GPUViewProj {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUViewProj{View: c.view, Proj: c.proj}
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pull()
	c.updateMatrices()
}

func (c *cameraImpl) SetPosition(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = mgl32.Vec3{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetTarget(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = mgl32.Vec3{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

// pull copies the controller's position and target. Caller must hold the mutex.
func (c *cameraImpl) pull() {
	if c.controller == nil {
		return
	}
	c.position = c.controller.Position()
	c.target = c.controller.Target()
}

// updateMatrices recalculates view and projection. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	c.view = common.LookAtSafe(c.position, c.target, c.up)
	c.proj = common.FlipY(mgl32.Perspective(c.fov, c.aspect, c.near, c.far))
}
