package shadow

type ShadowBuilderOption func(*shadowImpl)

// WithCascadeCount sets how many cascades split the camera frustum.
//
// Parameters:
//   - n: the cascade count in [1, MaxCascades]
//
// Returns:
//   - ShadowBuilderOption: a function that sets the cascade count
func WithCascadeCount(n int) ShadowBuilderOption {
	return func(s *shadowImpl) {
		s.cascadeCount = n
	}
}

// WithSplitLambda sets the logarithmic/uniform split blend factor.
func WithSplitLambda(lambda float32) ShadowBuilderOption {
	return func(s *shadowImpl) {
		s.lambda = lambda
	}
}

// WithMapDimension sets the width and height of each shadow map layer.
func WithMapDimension(dim uint32) ShadowBuilderOption {
	return func(s *shadowImpl) {
		s.dimension = dim
	}
}

// WithSpotAspect sets the aspect ratio of the spot-light projection.
func WithSpotAspect(aspect float32) ShadowBuilderOption {
	return func(s *shadowImpl) {
		s.spotAspect = aspect
	}
}
