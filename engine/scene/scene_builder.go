package scene

import (
	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/frame"
	"github.com/Carmen-Shannon/oxy-vk/engine/game_object"
	"github.com/Carmen-Shannon/oxy-vk/engine/texture"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithObjects adds initial objects to the scene. Objects carrying a mesh are added with AddMesh
// and objects carrying a light with AddLight; objects that fail to register are skipped.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjects(objects ...game_object.GameObject) SceneBuilderOption {
	return func(s *scene) {
		s.initial = append(s.initial, objects...)
	}
}

// WithCascadeCount sets how many cascades split the view frustum for the directional shadow.
//
// Parameters:
//   - n: the cascade count in [1, shadow.MaxCascades]
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCascadeCount(n int) SceneBuilderOption {
	return func(s *scene) {
		s.cascadeCount = n
	}
}

// WithSplitLambda sets the blend between logarithmic and uniform cascade splits.
func WithSplitLambda(lambda float32) SceneBuilderOption {
	return func(s *scene) {
		s.splitLambda = lambda
	}
}

// WithShadowMapDimension sets the width and height of every shadow map layer.
func WithShadowMapDimension(dim uint32) SceneBuilderOption {
	return func(s *scene) {
		s.mapDimension = dim
	}
}

// WithMaxObjects sets how many mesh objects the per-slot mesh buffers hold. Defaults to DefaultMaxObjects.
func WithMaxObjects(n int) SceneBuilderOption {
	return func(s *scene) {
		if n > 0 {
			s.maxObjects = n
		}
	}
}

// WithSampleCount requests an MSAA sample count for the main pass. The request is clamped to the
// device's maximum; 1 disables multisampling.
//
// Parameters:
//   - samples: 1, 2, 4 or 8
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSampleCount(samples uint32) SceneBuilderOption {
	return func(s *scene) {
		s.requestSamples = samples
	}
}

// WithClearColor sets the color the main pass clears to.
func WithClearColor(r, g, b, a float32) SceneBuilderOption {
	return func(s *scene) {
		s.clearColor = [4]float32{r, g, b, a}
	}
}

// WithSkybox sets the six cube faces, ordered right, left, up, down, back, front.
// Without it the skybox is a flat gray cube.
//
// Parameters:
//   - faces: the encoded face images
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSkybox(faces [texture.CubeFaces]common.ImportedTexture) SceneBuilderOption {
	return func(s *scene) {
		s.skyboxFaces = &faces
	}
}

// WithFrameOptions passes options to the frame synchronizer, such as frame.WithFramesInFlight.
func WithFrameOptions(options ...frame.SynchronizerBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		s.syncOptions = append(s.syncOptions, options...)
	}
}

// WithDecodeWorkers sets the number of worker goroutines that decode textures. Defaults to runtime.NumCPU()-1.
func WithDecodeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n > 0 {
			s.decodeWorkers = n
		}
	}
}
