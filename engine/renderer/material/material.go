package material

import (
	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/go-gl/mathgl/mgl32"
)

// material is the implementation of the Material interface.
type material struct {
	name           string
	albedo         mgl32.Vec4
	roughness      float32
	metallic       float32
	reflectance    float32
	diffuseTexture *common.ImportedTexture
	normalTexture  *common.ImportedTexture
}

// Material defines the surface description of a mesh: scalar shading factors and optional
// diffuse and normal textures.
//
// The albedo alpha decides which pass draws the mesh. A mesh whose alpha truncates to 1 is opaque,
// anything lower is drawn in the transparent passes.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Albedo retrieves the RGBA base color.
	//
	// Returns:
	//   - mgl32.Vec4: the base color
	Albedo() mgl32.Vec4

	// Roughness retrieves the roughness factor, 0 smooth to 1 rough.
	Roughness() float32

	// Metallic retrieves the metallic factor, 0 dielectric to 1 metal.
	Metallic() float32

	// Reflectance retrieves the specular reflectance at normal incidence.
	Reflectance() float32

	// Opaque reports whether the albedo alpha marks the material as opaque.
	//
	// Returns:
	//   - bool: true when uint32(alpha) == 1
	Opaque() bool

	// DiffuseTexture retrieves the diffuse texture reference, or nil if none is set.
	//
	// Returns:
	//   - *common.ImportedTexture: the diffuse texture, or nil
	DiffuseTexture() *common.ImportedTexture

	// NormalTexture retrieves the normal map reference, or nil if none is set. The mesh shader
	// has no tangent frame, so the map is carried for callers but never uploaded or sampled.
	//
	// Returns:
	//   - *common.ImportedTexture: the normal texture, or nil
	NormalTexture() *common.ImportedTexture

	SetAlbedo(c mgl32.Vec4)
	SetRoughness(r float32)
	SetMetallic(m float32)
	SetReflectance(r float32)

	// GPUData returns the material block uploaded with every mesh.
	//
	// Returns:
	//   - GPUMaterialData: the 32-byte material block
	GPUData() GPUMaterialData
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
// Defaults are a white, half-rough dielectric with reflectance 0.5.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		albedo:      mgl32.Vec4{1, 1, 1, 1},
		roughness:   0.5,
		metallic:    0,
		reflectance: 0.5,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Albedo() mgl32.Vec4 {
	return m.albedo
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Reflectance() float32 {
	return m.reflectance
}

func (m *material) Opaque() bool {
	return uint32(m.albedo.W()) == 1
}

func (m *material) DiffuseTexture() *common.ImportedTexture {
	return m.diffuseTexture
}

func (m *material) NormalTexture() *common.ImportedTexture {
	return m.normalTexture
}

func (m *material) SetAlbedo(c mgl32.Vec4) {
	m.albedo = c
}

func (m *material) SetRoughness(r float32) {
	m.roughness = r
}

func (m *material) SetMetallic(v float32) {
	m.metallic = v
}

func (m *material) SetReflectance(r float32) {
	m.reflectance = r
}

func (m *material) GPUData() GPUMaterialData {
	return GPUMaterialData{
		Albedo:      m.albedo,
		Roughness:   m.roughness,
		Metallic:    m.metallic,
		Reflectance: m.reflectance,
	}
}
