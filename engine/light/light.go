package light

import "github.com/go-gl/mathgl/mgl32"

// LightType identifies the kind of light source. The values are the ones the shaders switch on.
type LightType uint32

const (
	// LightTypeDirectional represents a distant light with only a direction. The first directional
	// light in a scene drives the cascaded shadow maps.
	LightTypeDirectional LightType = 1

	// LightTypePoint represents a light that emits in all directions from a position, attenuated up to its radius.
	LightTypePoint LightType = 2

	// LightTypeSpot represents a light that emits in a cone of Angle radians around its direction.
	// The first spot light in a scene drives the spot-light shadow map.
	LightTypeSpot LightType = 3
)

func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	default:
		return "unknown"
	}
}

// baseDirection is the direction a light faces under the identity rotation.
var baseDirection = mgl32.Vec3{0, 0, 1}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	lightType   LightType
	color       mgl32.Vec4
	direction   mgl32.Vec3
	radius      float32
	angle       float32
	intensity   float32
	attenuation float32
}

// Light defines the interface for the photometric part of a light source.
//
// A light's position and rotation belong to the scene object that carries it; the
// light itself holds color, direction and falloff. Direction points from the lit
// surface toward the light, the vector the shaders use as L.
type Light interface {
	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type (directional, point, or spot)
	Type() LightType

	// Color returns the RGBA color of the light.
	//
	// Returns:
	//   - mgl32.Vec4: color as (r, g, b, a)
	Color() mgl32.Vec4

	// Direction returns the direction toward the light. Unused by point lights.
	//
	// Returns:
	//   - mgl32.Vec3: the direction, not necessarily normalized
	Direction() mgl32.Vec3

	// Radius returns the distance the light reaches.
	Radius() float32

	// Angle returns the spot cone angle in radians.
	Angle() float32

	// Intensity returns the scalar intensity multiplier.
	Intensity() float32

	// Attenuation returns the distance falloff factor.
	Attenuation() float32

	SetType(t LightType)
	SetColor(c mgl32.Vec4)
	SetDirection(d mgl32.Vec3)
	SetRadius(r float32)
	SetAngle(a float32)
	SetIntensity(i float32)
	SetAttenuation(a float32)

	// Rotate points the light along the base direction (0,0,1) rotated by q.
	//
	// Parameters:
	//   - q: the rotation to apply to the base direction
	Rotate(q mgl32.Quat)

	// GPUData builds the light record with position and direction moved into view space.
	// invView is the camera's row-vector view transform: position' = position * invView and
	// direction' = direction * mat3(invView), with w = 1 for both.
	//
	// Parameters:
	//   - position: the world-space position of the light's object
	//   - invView: the camera's inverse-view matrix
	//
	// Returns:
	//   - GPULightData: the 80-byte light record
	GPUData(position mgl32.Vec3, invView mgl32.Mat4) GPULightData
}

var _ Light = &lightImpl{}

// NewLight creates a light. Without options it is the default scene light: white, directional,
// shining from (0,1,1), radius 200, angle 1, intensity 1.
//
// Parameters:
//   - options: LightBuilderOption values
//
// Returns:
//   - Light: the light
func NewLight(options ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType: LightTypeDirectional,
		color:     mgl32.Vec4{1, 1, 1, 1},
		direction: mgl32.Vec3{0, 1, 1},
		radius:    200,
		angle:     1,
		intensity: 1,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *lightImpl) Type() LightType       { return l.lightType }
func (l *lightImpl) Color() mgl32.Vec4     { return l.color }
func (l *lightImpl) Direction() mgl32.Vec3 { return l.direction }
func (l *lightImpl) Radius() float32       { return l.radius }
func (l *lightImpl) Angle() float32        { return l.angle }
func (l *lightImpl) Intensity() float32    { return l.intensity }
func (l *lightImpl) Attenuation() float32  { return l.attenuation }

func (l *lightImpl) SetType(t LightType)       { l.lightType = t }
func (l *lightImpl) SetColor(c mgl32.Vec4)     { l.color = c }
func (l *lightImpl) SetDirection(d mgl32.Vec3) { l.direction = d }
func (l *lightImpl) SetRadius(r float32)       { l.radius = r }
func (l *lightImpl) SetAngle(a float32)        { l.angle = a }
func (l *lightImpl) SetIntensity(i float32)    { l.intensity = i }
func (l *lightImpl) SetAttenuation(a float32)  { l.attenuation = a }

func (l *lightImpl) Rotate(q mgl32.Quat) {
	l.direction = q.Rotate(baseDirection)
}

func (l *lightImpl) GPUData(position mgl32.Vec3, invView mgl32.Mat4) GPULightData {
	rowMul := invView.Transpose()
	pos := rowMul.Mul4x1(position.Vec4(1))
	dir := invView.Mat3().Transpose().Mul3x1(l.direction)
	return GPULightData{
		Color:       l.color,
		Position:    pos,
		Direction:   dir.Vec4(1),
		Radius:      l.radius,
		Angle:       l.angle,
		Intensity:   l.intensity,
		Attenuation: l.attenuation,
		Type:        uint32(l.lightType),
	}
}
