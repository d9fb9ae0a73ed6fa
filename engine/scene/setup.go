package scene

import (
	"fmt"
	"log"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/command"
	"github.com/Carmen-Shannon/oxy-vk/engine/frame"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/model"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-vk/engine/resource"
	"github.com/Carmen-Shannon/oxy-vk/engine/shadow"
	"github.com/Carmen-Shannon/oxy-vk/engine/texture"
)

// setupStep is one stage of Setup. Steps run in order and the first error aborts the rest.
type setupStep struct {
	name string
	run  func() error
}

func (s *scene) Setup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return fmt.Errorf("scene %q: already set up: %w", s.name, gpu.ErrInvalidState)
	}

	steps := []setupStep{
		{"shadow", s.setupShadow},
		{"frame sync", s.setupFrameSync},
		{"recorder", s.setupRecorder},
		{"shaders", s.setupShaders},
		{"targets", s.setupTargets},
		{"uniforms", s.setupUniforms},
		{"defaults", s.setupDefaults},
		{"pipelines", s.setupPipelines},
		{"shared bindings", s.setupSharedBindings},
		{"objects", s.setupObjects},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			s.shutdown()
			return fmt.Errorf("scene %q: setup %s: %w", s.name, step.name, err)
		}
	}
	s.ready = true
	log.Printf("[Scene] %s: ready, %d meshes, %d lights, %dx MSAA, %d cascades", s.name, s.meshes.Len(), s.lights.Len(), s.samples, s.cascadeCount)
	return nil
}

func (s *scene) setupShadow() error {
	if s.cascadeCount < 1 || s.cascadeCount > shadow.MaxCascades {
		return fmt.Errorf("cascade count %d outside [1, %d]: %w", s.cascadeCount, shadow.MaxCascades, gpu.ErrSetupFailure)
	}
	extent := s.dev.SwapchainExtent()
	aspect := shadow.DefaultSpotAspect
	if extent.Width > 0 && extent.Height > 0 {
		aspect = float32(extent.Width) / float32(extent.Height)
	}
	var err error
	s.shadow, err = shadow.NewShadow(s.cam.Near(), s.cam.Far(),
		shadow.WithCascadeCount(s.cascadeCount),
		shadow.WithSplitLambda(s.splitLambda),
		shadow.WithMapDimension(s.mapDimension),
		shadow.WithSpotAspect(aspect),
	)
	return err
}

func (s *scene) setupFrameSync() error {
	var err error
	s.frameSync, err = frame.NewSynchronizer(s.dev, s.syncOptions...)
	return err
}

func (s *scene) setupRecorder() error {
	var err error
	if s.recorder, err = command.NewRecorder(s.dev); err != nil {
		return err
	}
	s.pool = worker.NewDynamicWorkerPool(s.decodeWorkers, 64, time.Second)
	return nil
}

func (s *scene) setupShaders() error {
	s.shaders = make(map[string]shader.Shader)
	for _, key := range []string{shader.KeyMesh, shader.KeySkybox, shader.KeyShadow} {
		sh, err := shader.Builtin(key, s.dev.ShaderFormat())
		if err != nil {
			return err
		}
		s.shaders[key] = sh
	}
	return nil
}

// sampleCount resolves the requested MSAA sample count against the device limit,
// falling back to the largest supported power of two.
func sampleCount(requested, limit uint32) uint32 {
	limit = max(limit, 1)
	n := uint32(1)
	for n*2 <= min(max(requested, 1), limit) {
		n *= 2
	}
	return n
}

func (s *scene) setupTargets() error {
	s.samples = sampleCount(s.requestSamples, s.dev.Limits().MaxSampleCount)
	s.targets = &targets{samples: s.samples}
	if err := s.targets.createPasses(s.dev); err != nil {
		return err
	}
	if err := s.targets.createSwapTargets(s.dev); err != nil {
		return err
	}
	return s.targets.createShadowTargets(s.dev, s.shadow.Dimension(), s.cascadeCount)
}

func (s *scene) setupUniforms() error {
	var zero model.GPUMeshData
	s.stride = common.AlignUp(uint64(zero.Size()), s.dev.Limits().MinUniformBufferOffsetAlignment)
	blocks := s.maxObjects * s.cascadeCount
	s.arena = resource.NewArena[model.GPUMeshData](s.stride, blocks)

	for slot := range s.frameSync.FramesInFlight() {
		f, err := newFrameUniforms(s.dev, slot, blocks, s.stride)
		s.frames = append(s.frames, f)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *scene) setupDefaults() error {
	var err error
	s.white, err = texture.New(s.dev, s.recorder, "white", common.SolidTexture(1, 1, [4]byte{255, 255, 255, 255}), texture.WithMipmaps(false))
	if err != nil {
		return err
	}
	return s.createSkybox()
}

func (s *scene) setupPipelines() error {
	s.layouts = make(map[string]pipeline.Layout)
	for key, sh := range s.shaders {
		l, err := pipeline.NewLayout(s.dev, key, sh)
		if err != nil {
			return err
		}
		s.layouts[key] = l
	}

	mesh, sky, depth := s.shaders[shader.KeyMesh], s.shaders[shader.KeySkybox], s.shaders[shader.KeyShadow]
	mainPass, shadowPass := s.targets.mainPass, s.targets.shadowPass
	builds := []struct {
		p      pipeline.Pipeline
		layout string
		pass   gpu.RenderPass
	}{
		{pipeline.Opaque(mesh, s.samples), shader.KeyMesh, mainPass},
		{pipeline.Skybox(sky, s.samples), shader.KeySkybox, mainPass},
		{pipeline.TransparentFront(mesh, s.samples), shader.KeyMesh, mainPass},
		{pipeline.TransparentBack(mesh, s.samples), shader.KeyMesh, mainPass},
		{pipeline.CascadeShadow(depth), shader.KeyShadow, shadowPass},
		{pipeline.SpotShadow(depth), shader.KeyShadow, shadowPass},
	}

	s.pipelines = make(map[string]pipeline.Pipeline)
	for _, b := range builds {
		if err := b.p.Build(s.dev, s.layouts[b.layout].Handle(), b.pass); err != nil {
			return err
		}
		s.pipelines[b.p.PipelineKey()] = b.p
	}
	return nil
}

// setupSharedBindings creates the sets every draw of a pipeline shares: the shadow set, whose
// only per-object state is the dynamic mesh offset, and the skybox set.
func (s *scene) setupSharedBindings() error {
	var err error
	s.shadowSet, err = s.newBindings("shadow", s.shaders[shader.KeyShadow], s.layouts[shader.KeyShadow], sampled{})
	if err != nil {
		return err
	}
	s.skybox.bindings, err = s.newBindings("skybox", s.shaders[shader.KeySkybox], s.layouts[shader.KeySkybox], sampled{
		views:    map[string]gpu.ImageView{"skybox_texture": s.skybox.texture.View()},
		samplers: map[string]gpu.Sampler{"skybox_sampler": s.skybox.texture.Sampler()},
	})
	return err
}

// setupObjects registers the mesh objects added before Setup.
func (s *scene) setupObjects() error {
	return s.registerMeshes(s.orderedMeshes())
}

func (s *scene) Resize(width, height uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if width == 0 || height == 0 {
		return nil
	}
	if !s.ready {
		return fmt.Errorf("scene %q: resize before setup: %w", s.name, gpu.ErrInvalidState)
	}
	if err := s.dev.WaitIdle(); err != nil {
		return fmt.Errorf("scene %q: resize: %w", s.name, err)
	}
	s.targets.destroySwapTargets(s.dev)
	if err := s.dev.Resize(width, height); err != nil {
		return fmt.Errorf("scene %q: resize: %w", s.name, err)
	}
	if err := s.targets.createSwapTargets(s.dev); err != nil {
		return fmt.Errorf("scene %q: resize: %w", s.name, err)
	}
	extent := s.dev.SwapchainExtent()
	s.cam.SetAspect(float32(extent.Width) / float32(extent.Height))
	return nil
}

func (s *scene) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown()
}

// shutdown releases whatever Setup created, in reverse order. Every step tolerates a partial setup.
func (s *scene) shutdown() {
	if err := s.dev.WaitIdle(); err != nil {
		log.Printf("[Scene] %s: wait idle before shutdown: %v", s.name, err)
	}
	s.releaseRetired(true)

	s.meshes.Each(func(_ resource.Handle, e *meshEntry) bool {
		s.releaseMesh(e)
		return true
	})
	if s.shadowSet != nil {
		s.shadowSet.Release()
		s.shadowSet = nil
	}
	if s.skybox != nil {
		s.skybox.destroy()
		s.skybox = nil
	}
	if s.white != nil {
		s.white.Destroy()
		s.white = nil
	}
	for _, p := range s.pipelines {
		p.Destroy()
	}
	for _, l := range s.layouts {
		l.Destroy()
	}
	for _, sh := range s.shaders {
		sh.Destroy()
	}
	s.pipelines, s.layouts, s.shaders = nil, nil, nil
	for _, f := range s.frames {
		f.destroy()
	}
	s.frames = nil
	if s.targets != nil {
		s.targets.destroy(s.dev)
		s.targets = nil
	}
	if s.recorder != nil {
		s.recorder.Destroy()
		s.recorder = nil
	}
	if s.pool != nil {
		s.pool.Stop()
		s.pool = nil
	}
	if s.frameSync != nil {
		s.frameSync.Destroy()
		s.frameSync = nil
	}
	s.ready = false
}
