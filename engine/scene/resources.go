package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/camera"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/light"
	"github.com/Carmen-Shannon/oxy-vk/engine/model"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-vk/engine/resource"
	"github.com/Carmen-Shannon/oxy-vk/engine/shadow"
	"github.com/Carmen-Shannon/oxy-vk/engine/texture"
	"github.com/go-gl/mathgl/mgl32"
)

// frameUniforms are the uniform buffers of one frame slot. Only the slot whose fence
// has been waited on is written, so the GPU never reads a buffer while it changes.
type frameUniforms struct {
	viewProj *resource.DynamicBuffer[camera.GPUViewProj]
	lights   *resource.DynamicBuffer[light.GPULights]
	cascade  *resource.DynamicBuffer[shadow.GPUCascadeInfo]
	spot     *resource.DynamicBuffer[shadow.GPUSpotShadowInfo]
	meshes   *resource.DynamicBuffer[model.GPUMeshData]
}

func newFrameUniforms(dev gpu.Device, slot, meshBlocks int, stride uint64) (*frameUniforms, error) {
	f := &frameUniforms{}
	var err error
	label := func(name string) string { return fmt.Sprintf("%s %d", name, slot) }

	if f.viewProj, err = resource.NewUniform[camera.GPUViewProj](dev, label("view_proj")); err != nil {
		return f, err
	}
	if f.lights, err = resource.NewUniform[light.GPULights](dev, label("lights")); err != nil {
		return f, err
	}
	if f.cascade, err = resource.NewUniform[shadow.GPUCascadeInfo](dev, label("cascade_info")); err != nil {
		return f, err
	}
	if f.spot, err = resource.NewUniform[shadow.GPUSpotShadowInfo](dev, label("spot_shadow_info")); err != nil {
		return f, err
	}
	f.meshes, err = resource.NewDynamicBuffer[model.GPUMeshData](dev, label("mesh"), gpu.BufferUsageUniform, meshBlocks, stride)
	return f, err
}

// buffer returns the buffer and bound range registered under a uniform registry key.
func (f *frameUniforms) buffer(key shader.AnnotationArg) (gpu.Buffer, uint64, bool) {
	switch key {
	case shader.AnnotationArgViewProj:
		return f.viewProj.Handle(), f.viewProj.BlockSize(), true
	case shader.AnnotationArgLights:
		return f.lights.Handle(), f.lights.BlockSize(), true
	case shader.AnnotationArgCascadeInfo:
		return f.cascade.Handle(), f.cascade.BlockSize(), true
	case shader.AnnotationArgSpotShadowInfo:
		return f.spot.Handle(), f.spot.BlockSize(), true
	case shader.AnnotationArgMesh:
		return f.meshes.Handle(), f.meshes.BlockSize(), true
	}
	return 0, 0, false
}

func (f *frameUniforms) destroy() {
	f.viewProj.Destroy()
	f.lights.Destroy()
	f.cascade.Destroy()
	f.spot.Destroy()
	f.meshes.Destroy()
}

// skybox is the cube map, its geometry and its descriptor sets.
type skybox struct {
	texture  texture.Texture
	vertices *resource.Buffer[mgl32.Vec3]
	indices  *resource.Buffer[uint16]
	bindings bind_group_provider.BindGroupProvider
}

func (k *skybox) draw(enc gpu.CommandEncoder, cb gpu.CommandBuffer) {
	enc.CmdBindVertexBuffer(cb, 0, k.vertices.Handle(), 0)
	enc.CmdBindIndexBuffer(cb, k.indices.Handle(), 0, gpu.IndexTypeUint16)
	enc.CmdDrawIndexed(cb, uint32(k.indices.Len()), 1, 0, 0, 0)
}

func (k *skybox) destroy() {
	if k.bindings != nil {
		k.bindings.Release()
	}
	if k.texture != nil {
		k.texture.Destroy()
	}
	k.vertices.Destroy()
	k.indices.Destroy()
}

// sampled names the image views and samplers a descriptor set binds, keyed by shader variable name.
type sampled struct {
	views    map[string]gpu.ImageView
	samplers map[string]gpu.Sampler
}

// newBindings creates a provider for group 0 of a shader layout. Uniform bindings are filled from
// the per-slot buffers by their registry key; image and sampler bindings by variable name.
func (s *scene) newBindings(label string, sh shader.Shader, layout pipeline.Layout, res sampled) (bind_group_provider.BindGroupProvider, error) {
	p := bind_group_provider.NewBindGroupProvider(label, layout.SetLayout(0), layout.Bindings(0), len(s.frames))

	for _, decl := range sh.Declarations() {
		if decl.Group == nil || *decl.Group != 0 || len(decl.Args) < 3 {
			continue
		}
		for slot, f := range s.frames {
			buf, size, ok := f.buffer(decl.Args[2])
			if !ok {
				return nil, fmt.Errorf("%s: no uniform buffer for %q: %w", label, decl.Args[2], gpu.ErrSetupFailure)
			}
			p.SetBuffer(slot, uint32(*decl.Binding), buf, 0, size)
		}
	}

	for _, b := range layout.Bindings(0) {
		name := sh.BindingVarName(0, int(b.Binding))
		switch b.Type {
		case gpu.DescriptorTypeSampledImage:
			if v, ok := res.views[name]; ok {
				p.SetTextureView(b.Binding, v)
			}
		case gpu.DescriptorTypeSampler:
			if smp, ok := res.samplers[name]; ok {
				p.SetSampler(b.Binding, smp)
			}
		}
	}

	if err := p.Commit(s.dev); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

// createSkybox uploads the cube map, from the configured faces or a flat gray fallback, and the cube geometry.
func (s *scene) createSkybox() error {
	var faces [texture.CubeFaces]common.TextureData
	if s.skyboxFaces != nil {
		decoded, err := common.DecodeTextures(s.pool, s.skyboxFaces[:])
		if err != nil {
			return fmt.Errorf("skybox faces: %w", err)
		}
		copy(faces[:], decoded)
	} else {
		for i := range faces {
			faces[i] = common.SolidTexture(1, 1, [4]byte{140, 140, 140, 255})
		}
	}

	k := &skybox{}
	s.skybox = k
	var err error
	if k.texture, err = texture.NewCube(s.dev, s.recorder, "skybox", faces); err != nil {
		return err
	}
	if k.vertices, err = resource.NewBufferWithData(s.dev, "skybox vertices", gpu.BufferUsageVertex, model.SkyboxVertices[:]); err != nil {
		return err
	}
	k.indices, err = resource.NewBufferWithData(s.dev, "skybox indices", gpu.BufferUsageIndex, model.SkyboxIndices[:])
	return err
}

// meshResources names what a mesh object's descriptor set binds besides the uniforms.
func (s *scene) meshResources(diffuse texture.Texture) sampled {
	return sampled{
		views: map[string]gpu.ImageView{
			"diffuse_texture": diffuse.View(),
			"skybox_texture":  s.skybox.texture.View(),
			"cascade_map":     s.targets.cascadeView,
			"spot_map":        s.targets.spotView,
		},
		samplers: map[string]gpu.Sampler{
			"diffuse_sampler": diffuse.Sampler(),
			"skybox_sampler":  s.skybox.texture.Sampler(),
			"shadow_sampler":  s.targets.shadowSampler,
		},
	}
}

// registerMeshes uploads the geometry and diffuse texture of each entry and allocates its
// descriptor sets. Textures are decoded concurrently on the scene's worker pool.
func (s *scene) registerMeshes(entries []*meshEntry) error {
	var pending []common.ImportedTexture
	var owners []*meshEntry
	for _, e := range entries {
		if tex := e.obj.Mesh().Material().DiffuseTexture(); tex != nil {
			pending = append(pending, *tex)
			owners = append(owners, e)
		}
	}
	decoded, err := common.DecodeTextures(s.pool, pending)
	if err != nil {
		return fmt.Errorf("scene %q: decode textures: %w", s.name, err)
	}
	pixels := make(map[*meshEntry]common.TextureData, len(owners))
	for i, e := range owners {
		pixels[e] = decoded[i]
	}

	for _, e := range entries {
		if err := s.registerMesh(e, pixels); err != nil {
			return err
		}
	}
	return nil
}

func (s *scene) registerMesh(e *meshEntry, pixels map[*meshEntry]common.TextureData) error {
	mesh := e.obj.Mesh()
	if err := mesh.Upload(s.dev); err != nil {
		return fmt.Errorf("scene %q: object %q: %w", s.name, e.obj.Name(), err)
	}
	s.meshRefs[mesh]++

	diffuse := s.white
	if data, ok := pixels[e]; ok {
		tex, err := texture.New(s.dev, s.recorder, e.obj.Name()+" diffuse", data)
		if err != nil {
			s.unrefMesh(mesh)
			return fmt.Errorf("scene %q: object %q: %w", s.name, e.obj.Name(), err)
		}
		e.texture = tex
		diffuse = tex
	}

	p, err := s.newBindings(e.obj.Name(), s.shaders[shader.KeyMesh], s.layouts[shader.KeyMesh], s.meshResources(diffuse))
	if err != nil {
		if e.texture != nil {
			e.texture.Destroy()
			e.texture = nil
		}
		s.unrefMesh(mesh)
		return fmt.Errorf("scene %q: object %q: %w", s.name, e.obj.Name(), err)
	}
	e.bindings = p
	e.ready = true
	return nil
}

// releaseMesh frees the object's descriptor sets and texture and drops its reference on the mesh buffers.
func (s *scene) releaseMesh(e *meshEntry) {
	if e.bindings != nil {
		e.bindings.Release()
		e.bindings = nil
	}
	if e.texture != nil {
		e.texture.Destroy()
		e.texture = nil
	}
	if e.ready {
		s.unrefMesh(e.obj.Mesh())
	}
	e.ready = false
}

// unrefMesh destroys the mesh buffers once no registered object draws the mesh.
func (s *scene) unrefMesh(mesh model.Mesh) {
	s.meshRefs[mesh]--
	if s.meshRefs[mesh] <= 0 {
		delete(s.meshRefs, mesh)
		mesh.Destroy()
	}
}
