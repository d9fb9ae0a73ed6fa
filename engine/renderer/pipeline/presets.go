package pipeline

import (
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/shader"
)

// Keys of the scene pipelines.
const (
	KeyOpaque           = "opaque"
	KeyTransparentFront = "transparent_front"
	KeyTransparentBack  = "transparent_back"
	KeySkybox           = "skybox"
	KeyCascadeShadow    = "cascade_shadow"
	KeySpotShadow       = "spot_shadow"
)

// Depth bias applied while rendering shadow maps.
const (
	ShadowBiasConstant float32 = 1.25
	ShadowBiasClamp    float32 = 0
	ShadowBiasSlope    float32 = 1.75
)

// Opaque draws opaque meshes with depth test and write.
func Opaque(mesh shader.Shader, samples uint32) Pipeline {
	return NewPipeline(KeyOpaque, mesh, WithSamples(samples))
}

// TransparentFront draws the back-facing half of transparent meshes by culling front faces.
// It runs before TransparentBack so the far side of a transparent object blends first.
func TransparentFront(mesh shader.Shader, samples uint32) Pipeline {
	return NewPipeline(KeyTransparentFront, mesh, transparent(gpu.CullModeFront, samples)...)
}

// TransparentBack draws the front-facing half of transparent meshes.
func TransparentBack(mesh shader.Shader, samples uint32) Pipeline {
	return NewPipeline(KeyTransparentBack, mesh, transparent(gpu.CullModeBack, samples)...)
}

func transparent(cull gpu.CullMode, samples uint32) []PipelineBuilderOption {
	return []PipelineBuilderOption{
		WithCullMode(cull),
		WithDepthWrite(false),
		WithDepthCompare(gpu.CompareOpLessOrEqual),
		WithBlend(true),
		WithSamples(samples),
	}
}

// Skybox draws the inside of the skybox cube at the far plane.
func Skybox(sky shader.Shader, samples uint32) Pipeline {
	return NewPipeline(KeySkybox, sky,
		WithCullMode(gpu.CullModeFront),
		WithDepthWrite(false),
		WithDepthCompare(gpu.CompareOpLessOrEqual),
		WithSamples(samples),
	)
}

// CascadeShadow renders mesh depth into one cascade layer.
func CascadeShadow(s shader.Shader) Pipeline {
	return NewPipeline(KeyCascadeShadow, s, shadowOptions(shader.EntryShadowCascade)...)
}

// SpotShadow renders mesh depth into the spot light shadow map.
func SpotShadow(s shader.Shader) Pipeline {
	return NewPipeline(KeySpotShadow, s, shadowOptions(shader.EntryShadowSpot)...)
}

func shadowOptions(entry string) []PipelineBuilderOption {
	return []PipelineBuilderOption{
		WithEntryPoints(entry, ""),
		WithDepthCompare(gpu.CompareOpLessOrEqual),
		WithDepthBias(ShadowBiasConstant, ShadowBiasClamp, ShadowBiasSlope, true),
	}
}
