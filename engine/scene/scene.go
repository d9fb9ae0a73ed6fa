// Package scene is the frame orchestrator. It owns the render passes, shadow maps, pipelines,
// per-slot uniforms and per-object descriptor sets, and records one command stream per frame:
// the spot-light shadow pass, one pass per shadow cascade, then the main pass.
package scene

import (
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/camera"
	"github.com/Carmen-Shannon/oxy-vk/engine/command"
	"github.com/Carmen-Shannon/oxy-vk/engine/frame"
	"github.com/Carmen-Shannon/oxy-vk/engine/game_object"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/light"
	"github.com/Carmen-Shannon/oxy-vk/engine/model"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-vk/engine/resource"
	"github.com/Carmen-Shannon/oxy-vk/engine/shadow"
	"github.com/Carmen-Shannon/oxy-vk/engine/texture"
)

// DefaultMaxObjects is the number of mesh objects the per-slot mesh buffers hold.
const DefaultMaxObjects = 128

// MaxSpotShadowMaps is the number of spot-light shadow maps. Only the first enabled spot light casts shadows.
const MaxSpotShadowMaps = 1

// Overlay records draw commands at the end of the main pass, after every scene pipeline.
// GUI layers hook in here.
type Overlay func(enc gpu.CommandEncoder, cb gpu.CommandBuffer)

// Scene owns everything needed to render a set of mesh and light objects with shadows.
//
// Usage pattern:
//  1. NewScene with a device and a camera
//  2. Setup once to create the GPU objects
//  3. Per frame: Prepare to stage uniforms, then Render
//  4. Resize after Render reports gpu.FrameRetry
//  5. Shutdown releases everything
//
// All methods are safe to call from several goroutines; GPU work is serialized on the scene lock.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// Shadow returns the shadow state, for toggling the cascade and PCF debug flags.
	Shadow() shadow.Shadow

	// Setup creates the frame synchronizer, render passes, shadow maps, uniforms and pipelines,
	// then registers every object added before it. The first failing step aborts the rest and
	// releases what was created.
	//
	// Returns:
	//   - error: the first setup failure, wrapping gpu.ErrSetupFailure for GPU object creation
	Setup() error

	// Prepare stages the next frame on the CPU: camera matrices, light records in view space,
	// shadow cascades and the per-object blocks of every cascade. No GPU memory is written.
	//
	// Returns:
	//   - error: gpu.ErrInvalidState before Setup
	Prepare() error

	// Render waits for the current slot, uploads the staged data into the slot's buffers,
	// records every pass, submits and presents.
	//
	// Parameters:
	//   - overlay: optional commands recorded last in the main pass, may be nil
	//
	// Returns:
	//   - gpu.FrameResult: Retry when the surface must be resized, Fatal when the device is unusable
	Render(overlay Overlay) gpu.FrameResult

	// Resize recreates the swapchain and every size-dependent image and framebuffer.
	// A zero width or height is ignored.
	Resize(width, height uint32) error

	// Shutdown waits for the device and releases every GPU object of the scene. Safe to call twice.
	Shutdown()

	// AddMesh registers a mesh object: the name is made unique, the mesh and its diffuse texture
	// are uploaded and a descriptor set is allocated per frame slot.
	//
	// Parameters:
	//   - obj: an object carrying a mesh
	//
	// Returns:
	//   - resource.Handle: the object's handle
	//   - error: when obj carries no mesh, the scene is full, or registration fails
	AddMesh(obj game_object.GameObject) (resource.Handle, error)

	// AddLight registers a light object. At most light.MaxLights lights are held.
	//
	// Parameters:
	//   - obj: an object carrying a light
	//
	// Returns:
	//   - resource.Handle: the object's handle
	//   - error: when obj carries no light or gpu.ErrResourceExhausted when the scene holds MaxLights lights
	AddLight(obj game_object.GameObject) (resource.Handle, error)

	// DeleteMesh removes a mesh object. Its descriptor sets and GPU buffers are released once no
	// frame in flight can use them; other objects keep their bindings.
	//
	// Returns:
	//   - bool: false when the handle names no live mesh object
	DeleteMesh(id resource.Handle) bool

	// DeleteLight removes a light object.
	//
	// Returns:
	//   - bool: false when the handle names no live light object
	DeleteLight(id resource.Handle) bool

	// Get returns the object registered under a handle, looking at meshes first.
	Get(id resource.Handle) (game_object.GameObject, bool)

	// Objects returns every mesh and light object in registration order.
	Objects() []game_object.GameObject

	// MeshCount returns the number of mesh objects.
	MeshCount() int

	// LightCount returns the number of light objects.
	LightCount() int

	// SampleCount returns the MSAA sample count of the main pass.
	SampleCount() uint32

	// Stats returns the frame counters of the synchronizer.
	Stats() frame.Stats
}

// meshEntry is the per-object state of a registered mesh object.
type meshEntry struct {
	obj      game_object.GameObject
	seq      uint64
	texture  texture.Texture
	bindings bind_group_provider.BindGroupProvider
	ready    bool
	deleted  bool
}

// retired is a release deferred until every frame that may reference it has completed.
type retired struct {
	frame   uint64
	release func()
}

type scene struct {
	mu sync.Mutex

	name string
	dev  gpu.Device
	cam  camera.Camera

	// options
	cascadeCount   int
	splitLambda    float32
	mapDimension   uint32
	maxObjects     int
	requestSamples uint32
	clearColor     [4]float32
	skyboxFaces    *[texture.CubeFaces]common.ImportedTexture
	initial        []game_object.GameObject
	syncOptions    []frame.SynchronizerBuilderOption
	decodeWorkers  int

	// objects
	meshes     resource.Slots[*meshEntry]
	lights     resource.Slots[game_object.GameObject]
	lightOrder []resource.Handle
	meshRefs   map[model.Mesh]int
	seq        uint64
	retired    []retired

	// GPU state created by Setup
	ready      bool
	shadow     shadow.Shadow
	frameSync  frame.Synchronizer
	recorder   command.Recorder
	pool       worker.DynamicWorkerPool
	samples    uint32
	shaders    map[string]shader.Shader
	layouts    map[string]pipeline.Layout
	pipelines  map[string]pipeline.Pipeline
	targets    *targets
	frames     []*frameUniforms
	arena      *resource.Arena[model.GPUMeshData]
	stride     uint64
	white      texture.Texture
	skybox     *skybox
	shadowSet  bind_group_provider.BindGroupProvider
	frameCount uint64

	// staged by Prepare, uploaded by Render
	staged staged
}

var _ Scene = &scene{}

// NewScene creates a scene. GPU objects are created by Setup.
//
// Parameters:
//   - name: the scene identifier, used in logs and debug labels
//   - dev: the device to render with, required
//   - cam: the camera, required
//   - options: SceneBuilderOption values
//
// Returns:
//   - Scene: the scene
func NewScene(name string, dev gpu.Device, cam camera.Camera, options ...SceneBuilderOption) Scene {
	if dev == nil {
		panic("scene: NewScene requires a device")
	}
	if cam == nil {
		panic("scene: NewScene requires a camera")
	}
	s := &scene{
		name:          name,
		dev:           dev,
		cam:           cam,
		cascadeCount:  shadow.DefaultCascadeCount,
		splitLambda:   shadow.DefaultSplitLambda,
		mapDimension:  shadow.DefaultMapDimension,
		maxObjects:    DefaultMaxObjects,
		clearColor:    [4]float32{0.55, 0.55, 0.55, 1},
		meshRefs:      make(map[model.Mesh]int),
		decodeWorkers: max(runtime.NumCPU()-1, 1),
	}
	for _, opt := range options {
		opt(s)
	}
	for _, obj := range s.initial {
		var err error
		if obj != nil && obj.Light() != nil {
			_, err = s.addLight(obj)
		} else {
			_, err = s.addMesh(obj)
		}
		if err != nil {
			log.Printf("[Scene] %s: skipping initial object: %v", name, err)
		}
	}
	s.initial = nil
	return s
}

func (s *scene) Name() string          { return s.name }
func (s *scene) Camera() camera.Camera { return s.cam }

func (s *scene) Shadow() shadow.Shadow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shadow
}

func (s *scene) SampleCount() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

func (s *scene) Stats() frame.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frameSync == nil {
		return frame.Stats{}
	}
	return s.frameSync.Stats()
}

func (s *scene) MeshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meshes.Len()
}

func (s *scene) LightCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lights.Len()
}

func (s *scene) AddMesh(obj game_object.GameObject) (resource.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addMesh(obj)
}

func (s *scene) addMesh(obj game_object.GameObject) (resource.Handle, error) {
	if obj == nil || obj.Mesh() == nil {
		return resource.Handle{}, fmt.Errorf("scene %q: AddMesh needs an object carrying a mesh", s.name)
	}
	if s.meshes.Len() >= s.maxObjects {
		return resource.Handle{}, fmt.Errorf("scene %q: %d mesh objects: %w", s.name, s.maxObjects, gpu.ErrResourceExhausted)
	}

	obj.SetName(s.uniqueName(obj.Name()))
	s.seq++
	e := &meshEntry{obj: obj, seq: s.seq}
	h := s.meshes.Insert(e)
	obj.SetID(h)

	if s.ready {
		if err := s.registerMeshes([]*meshEntry{e}); err != nil {
			s.meshes.Remove(h)
			obj.SetID(resource.Handle{})
			return resource.Handle{}, err
		}
	}
	return h, nil
}

func (s *scene) AddLight(obj game_object.GameObject) (resource.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLight(obj)
}

func (s *scene) addLight(obj game_object.GameObject) (resource.Handle, error) {
	if obj == nil || obj.Light() == nil {
		return resource.Handle{}, fmt.Errorf("scene %q: AddLight needs an object carrying a light", s.name)
	}
	if s.lights.Len() >= light.MaxLights {
		return resource.Handle{}, fmt.Errorf("scene %q: %d lights: %w", s.name, light.MaxLights, gpu.ErrResourceExhausted)
	}

	obj.SetName(s.uniqueName(obj.Name()))
	h := s.lights.Insert(obj)
	obj.SetID(h)
	s.lightOrder = append(s.lightOrder, h)
	return h, nil
}

func (s *scene) DeleteMesh(id resource.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.meshes.Remove(id)
	if !ok {
		return false
	}
	e.obj.SetID(resource.Handle{})
	e.deleted = true
	if e.ready {
		s.retire(func() { s.releaseMesh(e) })
	}
	return true
}

func (s *scene) DeleteLight(id resource.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.lights.Remove(id)
	if !ok {
		return false
	}
	obj.SetID(resource.Handle{})
	for i, h := range s.lightOrder {
		if h == id {
			s.lightOrder = append(s.lightOrder[:i], s.lightOrder[i+1:]...)
			break
		}
	}
	return true
}

func (s *scene) Get(id resource.Handle) (game_object.GameObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.meshes.Get(id); ok {
		return e.obj, true
	}
	return s.lights.Get(id)
}

func (s *scene) Objects() []game_object.GameObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects()
}

// objects returns meshes ordered by registration followed by lights in registration order.
func (s *scene) objects() []game_object.GameObject {
	entries := s.orderedMeshes()
	out := make([]game_object.GameObject, 0, len(entries)+len(s.lightOrder))
	for _, e := range entries {
		out = append(out, e.obj)
	}
	for _, h := range s.lightOrder {
		if obj, ok := s.lights.Get(h); ok {
			out = append(out, obj)
		}
	}
	return out
}

// orderedMeshes returns the mesh entries with their arena index, in registration order.
func (s *scene) orderedMeshes() []*meshEntry {
	out := make([]*meshEntry, 0, s.meshes.Len())
	s.meshes.Each(func(_ resource.Handle, e *meshEntry) bool {
		out = append(out, e)
		return true
	})
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].seq < out[j-1].seq; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// uniqueName returns name, suffixed with the smallest free integer when another object already uses it.
func (s *scene) uniqueName(name string) string {
	taken := make(map[string]bool)
	for _, obj := range s.objects() {
		taken[obj.Name()] = true
	}
	return common.UniqueName(name, func(n string) bool { return taken[n] })
}

// retire defers a release until the frames in flight at this point have completed.
func (s *scene) retire(release func()) {
	if !s.ready || s.frameSync == nil {
		release()
		return
	}
	s.retired = append(s.retired, retired{frame: s.frameCount, release: release})
}

// releaseRetired runs the deferred releases whose frames have completed. The frame
// synchronizer has waited on the current slot's fence, so every frame at least
// FramesInFlight frames old is done.
func (s *scene) releaseRetired(all bool) {
	n := uint64(0)
	if s.frameSync != nil {
		n = uint64(s.frameSync.FramesInFlight())
	}
	keep := s.retired[:0]
	for _, r := range s.retired {
		if all || s.frameCount >= r.frame+n {
			r.release()
			continue
		}
		keep = append(keep, r)
	}
	clear(s.retired[len(keep):])
	s.retired = keep
}
