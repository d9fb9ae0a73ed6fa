package material

import (
	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/go-gl/mathgl/mgl32"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithAlbedo is an option builder that sets the RGBA base color of the material.
// An alpha below 1 moves meshes using the material into the transparent passes.
//
// Parameters:
//   - r, g, b, a: the base color components
//
// Returns:
//   - MaterialBuilderOption: a function that applies the albedo option to a material
func WithAlbedo(r, g, b, a float32) MaterialBuilderOption {
	return func(m *material) {
		m.albedo = mgl32.Vec4{r, g, b, a}
	}
}

// WithRoughness is an option builder that sets the roughness factor of the material.
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = roughness
	}
}

// WithMetallic is an option builder that sets the metallic factor of the material.
func WithMetallic(metallic float32) MaterialBuilderOption {
	return func(m *material) {
		m.metallic = metallic
	}
}

// WithReflectance is an option builder that sets the reflectance of the material.
func WithReflectance(reflectance float32) MaterialBuilderOption {
	return func(m *material) {
		m.reflectance = reflectance
	}
}

// WithDiffuseTexture is an option builder that sets the diffuse texture reference.
//
// Parameters:
//   - tex: the diffuse texture, decoded when the mesh is added to a scene
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture option to a material
func WithDiffuseTexture(tex *common.ImportedTexture) MaterialBuilderOption {
	return func(m *material) {
		m.diffuseTexture = tex
	}
}

// WithNormalTexture is an option builder that sets the normal map reference. The renderer does
// not sample normal maps yet; see NormalTexture.
func WithNormalTexture(tex *common.ImportedTexture) MaterialBuilderOption {
	return func(m *material) {
		m.normalTexture = tex
	}
}
