package scene

import (
	"fmt"
	"log"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/camera"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/light"
	"github.com/Carmen-Shannon/oxy-vk/engine/model"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vk/engine/shadow"
	"github.com/go-gl/mathgl/mgl32"
)

// draw is one mesh object drawn this frame. index selects its blocks in the mesh buffer.
// Objects outside the camera frustum still cast shadows; only the main pass skips them.
type draw struct {
	entry   *meshEntry
	index   int
	visible bool
}

// staged is the CPU copy of a frame's uniform data, written by Prepare and uploaded by Render.
type staged struct {
	prepared    bool
	viewProj    camera.GPUViewProj
	lights      light.GPULights
	cascade     shadow.GPUCascadeInfo
	spot        shadow.GPUSpotShadowInfo
	draws       []draw
	directional bool
	spotLight   bool
}

func (s *scene) Prepare() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return fmt.Errorf("scene %q: prepare before setup: %w", s.name, gpu.ErrInvalidState)
	}

	s.cam.Update()
	view, proj, invView := s.cam.View(), s.cam.Proj(), s.cam.InvView()
	st := &s.staged
	st.viewProj = s.cam.GPUData()
	st.lights = light.GPULights{}
	st.directional, st.spotLight = false, false

	for _, h := range s.lightOrder {
		obj, ok := s.lights.Get(h)
		if !ok || !obj.Enabled() {
			continue
		}
		l := obj.Light()
		st.lights.Lights[st.lights.Count] = l.GPUData(obj.Position(), invView)
		st.lights.Count++

		switch l.Type() {
		case light.LightTypeDirectional:
			if !st.directional {
				s.shadow.UpdateCascades(l.Direction(), view, proj)
				st.directional = true
			}
		case light.LightTypeSpot:
			if !st.spotLight {
				s.shadow.UpdateSpotLight(obj.Position(), l.Direction(), l.Angle(), l.Radius())
				st.spotLight = true
			}
		}
	}
	st.cascade = s.shadow.CascadeInfo()
	st.spot = s.shadow.SpotInfo()

	s.arena.Reset()
	st.draws = st.draws[:0]
	frustum := common.ExtractFrustum(proj.Mul4(view))
	for _, e := range s.orderedMeshes() {
		if !e.ready || !e.obj.Enabled() {
			continue
		}
		idx := len(st.draws)
		world := e.obj.ModelMatrix()
		for c := range s.cascadeCount {
			s.arena.Put(idx*s.cascadeCount+c, e.obj.Mesh().GPUData(world, uint32(c)))
		}
		center, radius := worldBounds(e.obj.Mesh(), world)
		st.draws = append(st.draws, draw{entry: e, index: idx, visible: frustum.IntersectsSphere(center, radius)})
	}
	st.prepared = true
	return nil
}

// worldBounds moves a mesh's bounding sphere into world space, growing the radius by the largest axis scale.
func worldBounds(mesh model.Mesh, m mgl32.Mat4) (mgl32.Vec3, float32) {
	center, radius := mesh.Bounds()
	scale := max(m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len())
	return m.Mul4x1(center.Vec4(1)).Vec3(), radius * scale
}

func (s *scene) Render(overlay Overlay) gpu.FrameResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return gpu.FrameResult{Status: gpu.FrameFatal, Err: fmt.Errorf("scene %q: render before setup: %w", s.name, gpu.ErrInvalidState)}
	}

	res := s.frameSync.BeginFrame()
	if !res.Ok() {
		if res.Status == gpu.FrameRetry {
			log.Printf("[Scene] %s: frame skipped: %v", s.name, res.Err)
		}
		return res
	}
	s.frameCount++
	s.releaseRetired(false)

	slot := s.frameSync.Slot()
	uploadErr := s.upload(slot)
	if uploadErr == nil {
		s.record(slot, overlay)
	}

	res = s.frameSync.EndFrame()
	if uploadErr != nil {
		return gpu.FrameResult{Status: gpu.FrameFatal, Err: fmt.Errorf("scene %q: upload: %w", s.name, uploadErr)}
	}
	return res
}

// upload writes the staged data into the slot's buffers. The slot's fence has been waited on,
// so no submitted frame still reads them.
func (s *scene) upload(slot int) error {
	if !s.staged.prepared {
		return nil
	}
	f := s.frames[slot]
	st := &s.staged
	if err := f.viewProj.Update(st.viewProj); err != nil {
		return err
	}
	if err := f.lights.Update(st.lights); err != nil {
		return err
	}
	if err := f.cascade.Update(st.cascade); err != nil {
		return err
	}
	if err := f.spot.Update(st.spot); err != nil {
		return err
	}
	if len(st.draws) == 0 {
		return nil
	}
	return f.meshes.UpdateBytes(s.arena.Bytes())
}

// meshOffset returns the dynamic offset of an object's block for one cascade.
func (s *scene) meshOffset(index, cascade int) uint32 {
	return uint32(uint64(index*s.cascadeCount+cascade) * s.stride)
}

// record records the spot shadow pass, one pass per cascade, then the main pass.
// Shadow passes always run so the maps are cleared even when no light casts into them.
func (s *scene) record(slot int, overlay Overlay) {
	enc, cb := s.dev, s.frameSync.CommandBuffer()
	t := s.targets
	st := &s.staged
	shadowArea := gpu.Extent2D{Width: t.dimension, Height: t.dimension}
	shadowClear := []gpu.ClearValue{{Depth: 1}}

	enc.CmdBeginRenderPass(cb, gpu.RenderPassBegin{RenderPass: t.shadowPass, Framebuffer: t.spotFramebuffer, Area: shadowArea, ClearValues: shadowClear})
	if st.spotLight {
		s.recordShadow(cb, s.pipelines[pipeline.KeySpotShadow], slot, 0)
	}
	enc.CmdEndRenderPass(cb)

	for c := range s.cascadeCount {
		enc.CmdBeginRenderPass(cb, gpu.RenderPassBegin{RenderPass: t.shadowPass, Framebuffer: t.cascadeFramebuffers[c], Area: shadowArea, ClearValues: shadowClear})
		if st.directional {
			s.recordShadow(cb, s.pipelines[pipeline.KeyCascadeShadow], slot, c)
		}
		enc.CmdEndRenderPass(cb)
	}

	enc.CmdBeginRenderPass(cb, gpu.RenderPassBegin{
		RenderPass:  t.mainPass,
		Framebuffer: t.framebuffers[s.frameSync.ImageIndex()],
		Area:        t.extent,
		ClearValues: t.mainClearValues(s.clearColor),
	})
	s.recordMeshes(cb, s.pipelines[pipeline.KeyOpaque], slot, true)

	sky := s.pipelines[pipeline.KeySkybox]
	sky.Bind(enc, cb)
	enc.CmdBindDescriptorSet(cb, sky.Layout(), 0, s.skybox.bindings.BindGroup(slot))
	s.skybox.draw(enc, cb)

	// Back faces of transparent objects first so their front faces blend over them.
	s.recordMeshes(cb, s.pipelines[pipeline.KeyTransparentFront], slot, false)
	s.recordMeshes(cb, s.pipelines[pipeline.KeyTransparentBack], slot, false)

	if overlay != nil {
		overlay(enc, cb)
	}
	enc.CmdEndRenderPass(cb)
}

// recordShadow draws every staged object with one shared set, selecting each object's block for the cascade.
func (s *scene) recordShadow(cb gpu.CommandBuffer, p pipeline.Pipeline, slot, cascade int) {
	enc := s.dev
	p.Bind(enc, cb)
	bias := p.DepthBias()
	enc.CmdSetDepthBias(cb, bias.Constant, bias.Clamp, bias.Slope)
	set := s.shadowSet.BindGroup(slot)
	for _, d := range s.staged.draws {
		if d.entry.deleted {
			continue
		}
		enc.CmdBindDescriptorSet(cb, p.Layout(), 0, set, s.meshOffset(d.index, cascade))
		d.entry.obj.Mesh().Draw(enc, cb)
	}
}

// recordMeshes draws the staged objects whose material matches the pipeline's opacity.
func (s *scene) recordMeshes(cb gpu.CommandBuffer, p pipeline.Pipeline, slot int, opaque bool) {
	enc := s.dev
	bound := false
	for _, d := range s.staged.draws {
		mesh := d.entry.obj.Mesh()
		if d.entry.deleted || !d.visible || mesh.Opaque() != opaque {
			continue
		}
		if !bound {
			p.Bind(enc, cb)
			bound = true
		}
		enc.CmdBindDescriptorSet(cb, p.Layout(), 0, d.entry.bindings.BindGroup(slot), s.meshOffset(d.index, 0))
		mesh.Draw(enc, cb)
	}
}
