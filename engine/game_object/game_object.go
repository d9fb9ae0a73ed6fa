// Package game_object defines the scene entities: a Transform, a name, and a Kind tag that
// says whether the object carries a mesh or a light.
package game_object

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/light"
	"github.com/Carmen-Shannon/oxy-vk/engine/model"
	"github.com/Carmen-Shannon/oxy-vk/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
)

// Kind tags what an object carries. The values match the object type the shaders see.
type Kind uint32

const (
	KindMesh             Kind = 0
	KindDirectionalLight Kind = Kind(light.LightTypeDirectional)
	KindPointLight       Kind = Kind(light.LightTypePoint)
	KindSpotLight        Kind = Kind(light.LightTypeSpot)
)

func (k Kind) String() string {
	switch k {
	case KindMesh:
		return "mesh"
	case KindDirectionalLight:
		return "directional light"
	case KindPointLight:
		return "point light"
	case KindSpotLight:
		return "spot light"
	default:
		return fmt.Sprintf("Kind(%d)", uint32(k))
	}
}

// IsLight reports whether the kind is one of the light kinds.
func (k Kind) IsLight() bool {
	return k != KindMesh
}

type gameObject struct {
	mu        sync.RWMutex
	id        resource.Handle
	name      string
	enabled   atomic.Bool
	transform Transform
	mesh      model.Mesh
	light     light.Light
}

// GameObject defines the interface for a scene entity.
//
// An object owns exactly one of a mesh or a light. Transform access is safe from the
// tick goroutine while the render goroutine reads it.
type GameObject interface {
	// ID returns the handle the owning scene assigned, or the zero handle before registration.
	//
	// Returns:
	//   - resource.Handle: the object handle
	ID() resource.Handle

	// SetID is called by the scene on registration.
	SetID(id resource.Handle)

	// Name returns the object name. The scene makes names unique on registration.
	Name() string
	SetName(name string)

	// Kind returns the tag derived from the carried mesh or light.
	//
	// Returns:
	//   - Kind: KindMesh, or the light's kind
	Kind() Kind

	// Enabled returns whether this object is drawn and lit.
	Enabled() bool
	SetEnabled(enabled bool)

	// Transform returns a copy of the object's transform.
	//
	// Returns:
	//   - Transform: position, rotation, scale and the last Euler angles
	Transform() Transform

	// ModelMatrix returns the transform's model matrix.
	ModelMatrix() mgl32.Mat4

	// Position returns the world-space position.
	Position() mgl32.Vec3

	SetPosition(x, y, z float32)
	Translate(x, y, z float32)
	SetScale(x, y, z float32)

	// SetRotation sets the orientation. A light object also turns its light so that it points
	// along (0,0,1) rotated by q.
	//
	// Parameters:
	//   - q: the new orientation
	SetRotation(q mgl32.Quat)

	// SetEulerAngles sets the orientation from X, Y, Z angles in degrees, see SetRotation.
	SetEulerAngles(x, y, z float32)

	// Mesh returns the carried mesh, or nil for light objects.
	Mesh() model.Mesh

	// Light returns the carried light, or nil for mesh objects.
	Light() light.Light
}

var _ GameObject = &gameObject{}

// NewMeshObject creates an object carrying a mesh. The name defaults to the mesh name, or "Mesh"
// when the mesh is unnamed.
//
// Parameters:
//   - mesh: the mesh to carry, required
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the configured object
func NewMeshObject(mesh model.Mesh, options ...GameObjectBuilderOption) GameObject {
	if mesh == nil {
		panic("game_object: NewMeshObject requires a mesh")
	}
	g := newGameObject(common.Coalesce(mesh.Name(), "Mesh"))
	g.mesh = mesh
	for _, opt := range options {
		opt(g)
	}
	return g
}

// NewLightObject creates an object carrying a light. The name defaults to "Light".
//
// Parameters:
//   - l: the light to carry, required
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the configured object
func NewLightObject(l light.Light, options ...GameObjectBuilderOption) GameObject {
	if l == nil {
		panic("game_object: NewLightObject requires a light")
	}
	g := newGameObject("Light")
	g.light = l
	for _, opt := range options {
		opt(g)
	}
	return g
}

func newGameObject(name string) *gameObject {
	g := &gameObject{name: name, transform: NewTransform()}
	g.enabled.Store(true)
	return g
}

func (g *gameObject) ID() resource.Handle {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.id
}

func (g *gameObject) SetID(id resource.Handle) {
	g.mu.Lock()
	g.id = id
	g.mu.Unlock()
}

func (g *gameObject) Name() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.name
}

func (g *gameObject) SetName(name string) {
	g.mu.Lock()
	g.name = name
	g.mu.Unlock()
}

func (g *gameObject) Kind() Kind {
	if g.light != nil {
		return Kind(g.light.Type())
	}
	return KindMesh
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) Transform() Transform {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.transform
}

func (g *gameObject) ModelMatrix() mgl32.Mat4 {
	return g.Transform().Model()
}

func (g *gameObject) Position() mgl32.Vec3 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.transform.Position
}

func (g *gameObject) SetPosition(x, y, z float32) {
	g.mu.Lock()
	g.transform.Position = mgl32.Vec3{x, y, z}
	g.mu.Unlock()
}

func (g *gameObject) Translate(x, y, z float32) {
	g.mu.Lock()
	g.transform.Position = g.transform.Position.Add(mgl32.Vec3{x, y, z})
	g.mu.Unlock()
}

func (g *gameObject) SetScale(x, y, z float32) {
	g.mu.Lock()
	g.transform.Scale = mgl32.Vec3{x, y, z}
	g.mu.Unlock()
}

func (g *gameObject) SetRotation(q mgl32.Quat) {
	g.mu.Lock()
	g.transform.Rotation = q
	g.mu.Unlock()
	if g.light != nil {
		g.light.Rotate(q)
	}
}

func (g *gameObject) SetEulerAngles(x, y, z float32) {
	g.mu.Lock()
	g.transform.SetEulerAngles(x, y, z)
	q := g.transform.Rotation
	g.mu.Unlock()
	if g.light != nil {
		g.light.Rotate(q)
	}
}

func (g *gameObject) Mesh() model.Mesh {
	return g.mesh
}

func (g *gameObject) Light() light.Light {
	return g.light
}
