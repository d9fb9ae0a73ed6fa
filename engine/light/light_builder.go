package light

import "github.com/go-gl/mathgl/mgl32"

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithType is an option builder that sets the kind of light.
//
// Parameters:
//   - t: the light type
//
// Returns:
//   - LightBuilderOption: a function that applies the type option to a lightImpl
func WithType(t LightType) LightBuilderOption {
	return func(l *lightImpl) {
		l.lightType = t
	}
}

// WithDirection is an option builder that sets the direction toward the light.
//
// Parameters:
//   - x: the x direction component
//   - y: the y direction component
//   - z: the z direction component
//
// Returns:
//   - LightBuilderOption: a function that applies the direction option to a lightImpl
func WithDirection(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.direction = mgl32.Vec3{x, y, z}
	}
}

// WithColor is an option builder that sets the RGBA color of the light.
func WithColor(r, g, b, a float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = mgl32.Vec4{r, g, b, a}
	}
}

// WithRadius sets the distance the light reaches.
func WithRadius(radius float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.radius = radius
	}
}

// WithAngle sets the spot cone angle in radians.
func WithAngle(angle float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.angle = angle
	}
}

// WithIntensity sets the scalar intensity multiplier.
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithAttenuation sets the distance falloff factor.
func WithAttenuation(attenuation float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.attenuation = attenuation
	}
}
