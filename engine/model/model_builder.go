package model

import "github.com/Carmen-Shannon/oxy-vk/engine/renderer/material"

// MeshBuilderOption is a functional option for configuring a Mesh via NewMesh.
type MeshBuilderOption func(*mesh)

// WithName is an option builder that sets the name of the Mesh.
//
// Parameters:
//   - name: the mesh identifier
//
// Returns:
//   - MeshBuilderOption: a function that applies the name option to a mesh
func WithName(name string) MeshBuilderOption {
	return func(m *mesh) {
		m.name = name
	}
}

// WithMaterial is an option builder that sets the material of the Mesh.
//
// Parameters:
//   - mat: the material; nil keeps the default
//
// Returns:
//   - MeshBuilderOption: a function that applies the material option to a mesh
func WithMaterial(mat material.Material) MeshBuilderOption {
	return func(m *mesh) {
		m.material = mat
	}
}

// WithLodBias is an option builder that sets the texture level-of-detail bias.
func WithLodBias(bias float32) MeshBuilderOption {
	return func(m *mesh) {
		m.lodBias = bias
	}
}
