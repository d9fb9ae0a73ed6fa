// Package model holds mesh geometry, its GPU buffers and the per-object uniform block.
package model

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-vk/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
)

// mesh is the implementation of the Mesh interface.
type mesh struct {
	name         string
	vertices     []Vertex
	indices      []uint16
	material     material.Material
	lodBias      float32
	center       mgl32.Vec3
	radius       float32
	vertexBuffer *resource.Buffer[Vertex]
	indexBuffer  *resource.Buffer[uint16]
}

// Mesh defines the interface for indexed triangle geometry with a material.
//
// Geometry is fixed at construction. Upload creates the vertex and index buffers once;
// replacing geometry means building a new Mesh.
type Mesh interface {
	// Name retrieves the mesh identifier.
	//
	// Returns:
	//   - string: the name given at construction
	Name() string

	// Vertices returns the CPU copy of the vertex data.
	Vertices() []Vertex

	// Indices returns the CPU copy of the triangle list indices.
	Indices() []uint16

	// IndexCount returns the number of indices drawn per instance.
	IndexCount() uint32

	// Material returns the mesh material.
	//
	// Returns:
	//   - material.Material: the material, never nil
	Material() material.Material

	// SetMaterial replaces the mesh material. A nil material resets it to the default.
	SetMaterial(m material.Material)

	// LodBias returns the texture level-of-detail bias passed to the fragment shader.
	LodBias() float32
	SetLodBias(bias float32)

	// Opaque reports whether the material routes the mesh to the opaque pass.
	Opaque() bool

	// Bounds returns a sphere in model space enclosing every vertex.
	Bounds() (center mgl32.Vec3, radius float32)

	// Upload creates the vertex and index buffers and copies the geometry into them.
	// Calling it again after a successful upload does nothing.
	//
	// Parameters:
	//   - dev: the allocator to create the buffers on
	//
	// Returns:
	//   - error: wraps gpu.ErrSetupFailure when a buffer cannot be created
	Upload(dev gpu.MemoryAllocator) error

	// Uploaded reports whether the GPU buffers exist.
	Uploaded() bool

	// Draw binds the vertex and index buffers and issues one indexed draw.
	// It does nothing before Upload.
	//
	// Parameters:
	//   - enc: the encoder recording the command buffer
	//   - cb: the command buffer inside an active render pass
	Draw(enc gpu.CommandEncoder, cb gpu.CommandBuffer)

	// GPUData builds the per-object uniform block for one cascade.
	//
	// Parameters:
	//   - model: the object's model matrix
	//   - cascadeIndex: the cascade the block is written for
	//
	// Returns:
	//   - GPUMeshData: the 112-byte block
	GPUData(model mgl32.Mat4, cascadeIndex uint32) GPUMeshData

	// Destroy releases the GPU buffers. The mesh can be uploaded again afterwards.
	Destroy()
}

var _ Mesh = &mesh{}

// NewMesh creates a mesh from triangle list geometry.
//
// Parameters:
//   - vertices: the vertex data, at most 65536 entries
//   - indices: triangle list indices into vertices
//   - options: MeshBuilderOption values
//
// Returns:
//   - Mesh: the mesh
//   - error: when the geometry is empty, not a triangle list, or indexes out of range
func NewMesh(vertices []Vertex, indices []uint16, options ...MeshBuilderOption) (Mesh, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, fmt.Errorf("mesh: empty geometry")
	}
	if len(vertices) > 1<<16 {
		return nil, fmt.Errorf("mesh: %d vertices exceed 16-bit indexing", len(vertices))
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("mesh: %d indices is not a triangle list", len(indices))
	}
	for _, i := range indices {
		if int(i) >= len(vertices) {
			return nil, fmt.Errorf("mesh: index %d out of range for %d vertices", i, len(vertices))
		}
	}

	m := &mesh{
		name:     "Mesh",
		vertices: vertices,
		indices:  indices,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.material == nil {
		m.material = material.NewMaterial()
	}
	m.center, m.radius = boundingSphere(vertices)
	return m, nil
}

// boundingSphere centers the sphere on the vertices' box; not minimal, but never too small.
func boundingSphere(vertices []Vertex) (mgl32.Vec3, float32) {
	lo := mgl32.Vec3(vertices[0].Position)
	hi := lo
	for _, v := range vertices[1:] {
		for i := range 3 {
			lo[i] = min(lo[i], v.Position[i])
			hi[i] = max(hi[i], v.Position[i])
		}
	}
	center := lo.Add(hi).Mul(0.5)
	var radius float32
	for _, v := range vertices {
		radius = max(radius, mgl32.Vec3(v.Position).Sub(center).Len())
	}
	return center, radius
}

// NewSphere creates a unit UV sphere mesh.
//
// Parameters:
//   - segments: the stack and sector count
//   - strip: whether to generate through the triangle strip layout
//   - options: MeshBuilderOption values
//
// Returns:
//   - Mesh: the sphere
//   - error: when segments is out of range
func NewSphere(segments int, strip bool, options ...MeshBuilderOption) (Mesh, error) {
	v, idx, err := SphereGeometry(segments, strip)
	if err != nil {
		return nil, err
	}
	return NewMesh(v, idx, append([]MeshBuilderOption{WithName("Sphere")}, options...)...)
}

// NewCube creates a unit cube mesh.
func NewCube(options ...MeshBuilderOption) (Mesh, error) {
	v, idx := CubeGeometry()
	return NewMesh(v, idx, append([]MeshBuilderOption{WithName("Cube")}, options...)...)
}

func (m *mesh) Name() string                { return m.name }
func (m *mesh) Vertices() []Vertex          { return m.vertices }
func (m *mesh) Indices() []uint16           { return m.indices }
func (m *mesh) IndexCount() uint32          { return uint32(len(m.indices)) }
func (m *mesh) Material() material.Material { return m.material }
func (m *mesh) LodBias() float32            { return m.lodBias }
func (m *mesh) SetLodBias(bias float32)     { m.lodBias = bias }
func (m *mesh) Opaque() bool                { return m.material.Opaque() }
func (m *mesh) Bounds() (mgl32.Vec3, float32) {
	return m.center, m.radius
}
func (m *mesh) Uploaded() bool { return m.vertexBuffer != nil && m.vertexBuffer.Handle() != 0 }

func (m *mesh) SetMaterial(mat material.Material) {
	if mat == nil {
		mat = material.NewMaterial()
	}
	m.material = mat
}

func (m *mesh) Upload(dev gpu.MemoryAllocator) error {
	if m.Uploaded() {
		return nil
	}
	vb, err := resource.NewBufferWithData(dev, m.name+" vertices", gpu.BufferUsageVertex, m.vertices)
	if err != nil {
		return fmt.Errorf("mesh %q: %w", m.name, err)
	}
	ib, err := resource.NewBufferWithData(dev, m.name+" indices", gpu.BufferUsageIndex, m.indices)
	if err != nil {
		vb.Destroy()
		return fmt.Errorf("mesh %q: %w", m.name, err)
	}
	m.vertexBuffer, m.indexBuffer = vb, ib
	return nil
}

func (m *mesh) Draw(enc gpu.CommandEncoder, cb gpu.CommandBuffer) {
	if !m.Uploaded() {
		return
	}
	enc.CmdBindVertexBuffer(cb, 0, m.vertexBuffer.Handle(), 0)
	enc.CmdBindIndexBuffer(cb, m.indexBuffer.Handle(), 0, gpu.IndexTypeUint16)
	enc.CmdDrawIndexed(cb, m.IndexCount(), 1, 0, 0, 0)
}

func (m *mesh) GPUData(model mgl32.Mat4, cascadeIndex uint32) GPUMeshData {
	return GPUMeshData{
		Model:        model,
		Material:     m.material.GPUData(),
		CascadeIndex: cascadeIndex,
		LodBias:      m.lodBias,
	}
}

func (m *mesh) Destroy() {
	m.vertexBuffer.Destroy()
	m.indexBuffer.Destroy()
	m.vertexBuffer, m.indexBuffer = nil, nil
}
