package material

import (
	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUMaterialData is the GPU-aligned representation of a material's scalar properties.
// The mesh block embeds it flat, so the field after Reflectance starts at offset 28.
// Size: 32 bytes standalone (vec4 albedo followed by three scalars and padding).
type GPUMaterialData struct {
	Albedo      mgl32.Vec4 // offset  0: base color, alpha selects the opaque or transparent pass
	Roughness   float32    // offset 16
	Metallic    float32    // offset 20
	Reflectance float32    // offset 24
}

// Size returns the size of the GPUMaterialData struct in bytes.
//
// Returns:
//   - int: 32
func (g GPUMaterialData) Size() int {
	return 32
}

// Marshal serializes the material block into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g GPUMaterialData) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.MarshalInto(buf)
	return buf
}

// MarshalInto writes the 28 meaningful bytes of the block to the start of buf.
func (g GPUMaterialData) MarshalInto(buf []byte) {
	common.PutVec4(buf, 0, g.Albedo)
	common.PutFloat32(buf, 16, g.Roughness)
	common.PutFloat32(buf, 20, g.Metallic)
	common.PutFloat32(buf, 24, g.Reflectance)
}
