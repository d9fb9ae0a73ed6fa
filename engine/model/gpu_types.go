package model

import (
	_ "embed"
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUVertexSource is the canonical WGSL definition of the VertexInput struct.
// Matches Vertex layout exactly (48 bytes).
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// VertexStride is the byte size of one Vertex.
const VertexStride = 48

// Vertex is one mesh vertex as laid out in the vertex buffer.
type Vertex struct {
	Position [3]float32 // offset  0, location 0
	UV       [2]float32 // offset 12, location 1
	Normal   [3]float32 // offset 20, location 2
	Color    [4]float32 // offset 32, location 3
}

// VertexLayout returns the buffer layout matching Vertex for pipeline creation.
//
// Returns:
//   - gpu.VertexLayout: stride 48 with four float attributes at locations 0..3
func VertexLayout() gpu.VertexLayout {
	return gpu.VertexLayout{
		Stride: VertexStride,
		Attributes: []gpu.VertexAttribute{
			{Location: 0, Format: gpu.FormatR32G32B32Float, Offset: 0},
			{Location: 1, Format: gpu.FormatR32G32Float, Offset: 12},
			{Location: 2, Format: gpu.FormatR32G32B32Float, Offset: 20},
			{Location: 3, Format: gpu.FormatR32G32B32A32Float, Offset: 32},
		},
	}
}

// SkyboxVertexLayout returns the position-only layout of the skybox cube.
func SkyboxVertexLayout() gpu.VertexLayout {
	return gpu.VertexLayout{
		Stride:     12,
		Attributes: []gpu.VertexAttribute{{Location: 0, Format: gpu.FormatR32G32B32Float}},
	}
}

// GPUMeshDataSource is the canonical WGSL definition of the Mesh uniform block.
//
//go:embed assets/mesh.wgsl
var GPUMeshDataSource string

// GPUMeshData is the per-object uniform block written once per mesh per cascade.
// The material is stored flat after the model matrix.
// Size: 112 bytes.
type GPUMeshData struct {
	Model        mgl32.Mat4               // offset  0
	Material     material.GPUMaterialData // offset 64: albedo, roughness, metallic, reflectance
	CascadeIndex uint32                   // offset 92: cascade the shadow vertex shader projects with
	LodBias      float32                  // offset 96
}

// Size returns the size of the GPUMeshData block in bytes.
//
// Returns:
//   - int: 112
func (g GPUMeshData) Size() int {
	return 112
}

// Marshal serializes the block into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 112-byte buffer ready for GPU upload
func (g GPUMeshData) Marshal() []byte {
	buf := make([]byte, g.Size())
	common.PutMat4(buf, 0, g.Model)
	g.Material.MarshalInto(buf[64:])
	binary.LittleEndian.PutUint32(buf[92:], g.CascadeIndex)
	common.PutFloat32(buf, 96, g.LodBias)
	return buf
}
