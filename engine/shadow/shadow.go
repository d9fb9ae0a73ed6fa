package shadow

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// MaxCascades is the number of cascade matrices the cascade uniform block holds.
	MaxCascades = 4
	// DefaultCascadeCount is the number of cascades rendered.
	DefaultCascadeCount = 4
	// DefaultSplitLambda blends 95% logarithmic and 5% uniform split placement.
	DefaultSplitLambda float32 = 0.95
	// DefaultMapDimension is the width and height of every shadow map layer.
	DefaultMapDimension uint32 = 2048
	// SpotNear is the near plane of the spot-light projection.
	SpotNear float32 = 1
	// DefaultSpotAspect matches the 1280x720 default surface.
	DefaultSpotAspect float32 = 1280.0 / 720.0
)

// Shadow holds the per-frame shadow state derived from the camera and the shadow-casting lights.
type Shadow interface {
	// UpdateCascades recomputes the splits and cascade matrices for a directional light.
	//
	// Parameters:
	//   - direction: the directional light's direction
	//   - view, proj: the camera matrices
	UpdateCascades(direction mgl32.Vec3, view, proj mgl32.Mat4)

	// UpdateSpotLight recomputes the spot-light matrix.
	UpdateSpotLight(position, direction mgl32.Vec3, angle, radius float32)

	// Cascades returns the cascades of the last update.
	Cascades() []Cascade

	// CascadeInfo returns the cascade uniform block of the last update.
	CascadeInfo() GPUCascadeInfo

	// SpotInfo returns the spot-light uniform block of the last update.
	SpotInfo() GPUSpotShadowInfo

	// CascadeCount returns the number of cascades.
	CascadeCount() int

	// Dimension returns the shadow map width and height.
	Dimension() uint32

	// SetShowCascade toggles the cascade debug coloring.
	SetShowCascade(show bool)

	// SetShowPCFFilter toggles percentage-closer filtering.
	SetShowPCFFilter(show bool)
}

type shadowImpl struct {
	near, far    float32
	lambda       float32
	cascadeCount int
	dimension    uint32
	spotAspect   float32

	cascades []Cascade
	info     GPUCascadeInfo
	spot     GPUSpotShadowInfo
}

var _ Shadow = &shadowImpl{}

// NewShadow creates the shadow state for a camera with the given clip distances.
// Cascade debug coloring starts off and PCF filtering starts on.
//
// Parameters:
//   - near, far: the camera clip distances
//   - options: ShadowBuilderOption values
//
// Returns:
//   - Shadow: the shadow state
//   - error: when the clip distances or cascade count are invalid
func NewShadow(near, far float32, options ...ShadowBuilderOption) (Shadow, error) {
	s := &shadowImpl{
		near:         near,
		far:          far,
		lambda:       DefaultSplitLambda,
		cascadeCount: DefaultCascadeCount,
		dimension:    DefaultMapDimension,
		spotAspect:   DefaultSpotAspect,
	}
	for _, opt := range options {
		opt(s)
	}
	if near <= 0 || far <= near {
		return nil, fmt.Errorf("shadow: clip range [%v, %v] invalid", near, far)
	}
	if s.cascadeCount < 1 || s.cascadeCount > MaxCascades {
		return nil, fmt.Errorf("shadow: cascade count %d outside [1, %d]", s.cascadeCount, MaxCascades)
	}
	if s.lambda < 0 || s.lambda > 1 {
		return nil, fmt.Errorf("shadow: split lambda %v outside [0, 1]", s.lambda)
	}
	s.info.ShowPCFFilter = 1
	return s, nil
}

func (s *shadowImpl) UpdateCascades(direction mgl32.Vec3, view, proj mgl32.Mat4) {
	splits := Splits(s.near, s.far, s.lambda, s.cascadeCount)
	s.cascades = Cascades(splits, s.near, s.far, view, proj, direction)
	for i, c := range s.cascades {
		s.info.LightSpace[i] = c.ViewProj
		s.info.Splits[i] = c.SplitDepth
	}
}

func (s *shadowImpl) UpdateSpotLight(position, direction mgl32.Vec3, angle, radius float32) {
	s.spot.LightSpace = SpotLightMatrix(position, direction, angle, s.spotAspect, radius)
}

func (s *shadowImpl) Cascades() []Cascade         { return s.cascades }
func (s *shadowImpl) CascadeInfo() GPUCascadeInfo { return s.info }
func (s *shadowImpl) SpotInfo() GPUSpotShadowInfo { return s.spot }
func (s *shadowImpl) CascadeCount() int           { return s.cascadeCount }
func (s *shadowImpl) Dimension() uint32           { return s.dimension }

func (s *shadowImpl) SetShowCascade(show bool) {
	s.info.ShowCascade = boolToInt(show)
}

func (s *shadowImpl) SetShowPCFFilter(show bool) {
	s.info.ShowPCFFilter = boolToInt(show)
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
