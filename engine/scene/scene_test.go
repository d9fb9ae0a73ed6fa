package scene

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/camera"
	"github.com/Carmen-Shannon/oxy-vk/engine/frame"
	"github.com/Carmen-Shannon/oxy-vk/engine/game_object"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-vk/engine/light"
	"github.com/Carmen-Shannon/oxy-vk/engine/model"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vk/engine/shadow"
	"github.com/go-gl/mathgl/mgl32"
)

func newTestScene(t *testing.T, dev *gputest.Device, opts ...SceneBuilderOption) *scene {
	t.Helper()
	opts = append([]SceneBuilderOption{
		WithShadowMapDimension(64),
		WithDecodeWorkers(2),
		WithFrameOptions(frame.WithFenceTimeout(10 * time.Millisecond)),
	}, opts...)
	return NewScene("test", dev, camera.NewCamera(), opts...).(*scene)
}

func setUp(t *testing.T, s *scene) {
	t.Helper()
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(s.Shutdown)
}

func cubeObject(t *testing.T, name string, alpha float32) game_object.GameObject {
	t.Helper()
	m, err := model.NewCube(model.WithName(name), model.WithMaterial(material.NewMaterial(material.WithAlbedo(1, 1, 1, alpha))))
	if err != nil {
		t.Fatal(err)
	}
	return game_object.NewMeshObject(m)
}

func lightObject(kind light.LightType, x, y, z float32) game_object.GameObject {
	return game_object.NewLightObject(light.NewLight(light.WithType(kind)), game_object.WithPosition(x, y, z))
}

func renderFrame(t *testing.T, s *scene) {
	t.Helper()
	if err := s.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if res := s.Render(nil); !res.Ok() {
		t.Fatalf("Render: %v %v", res.Status, res.Err)
	}
}

// lastFrame returns the commands of the most recent frame submission.
func lastFrame(t *testing.T, dev *gputest.Device) []gputest.Command {
	t.Helper()
	if len(dev.Submits) == 0 {
		t.Fatal("nothing submitted")
	}
	sub := dev.Submits[len(dev.Submits)-1]
	return sub.Commands[0]
}

func TestCascadeFramebuffersUseDistinctLayers(t *testing.T) {
	dev := gputest.NewDevice(1280, 720, 3)
	s := newTestScene(t, dev, WithCascadeCount(4))
	setUp(t, s)

	tg := s.targets
	if got := dev.Images[tg.cascadeImage].ArrayLayers; got != 4 {
		t.Fatalf("cascade image has %d layers", got)
	}
	if dev.Views[tg.cascadeView].ViewType != gpu.ImageViewType2DArray {
		t.Error("sampled cascade view is not a 2D array")
	}
	if len(tg.cascadeFramebuffers) != 4 {
		t.Fatalf("%d cascade framebuffers", len(tg.cascadeFramebuffers))
	}
	seen := map[gpu.ImageView]bool{}
	for i, fb := range tg.cascadeFramebuffers {
		desc := dev.Framebuffers[fb]
		if len(desc.Attachments) != 1 || desc.RenderPass != tg.shadowPass {
			t.Fatalf("framebuffer %d = %+v", i, desc)
		}
		view := desc.Attachments[0]
		if seen[view] {
			t.Errorf("framebuffer %d reuses view %d", i, view)
		}
		seen[view] = true
		v := dev.Views[view]
		if v.Image != tg.cascadeImage || v.Range.BaseArrayLayer != uint32(i) || v.Range.LayerCount != 1 {
			t.Errorf("framebuffer %d view = %+v", i, v)
		}
	}
}

func TestAddLightsStagesViewSpaceRecords(t *testing.T) {
	dev := gputest.NewDevice(1280, 720, 3)
	s := newTestScene(t, dev)
	setUp(t, s)

	positions := []mgl32.Vec3{{1, 2, 0}, {-1, 0, 0}, {0, 3, 1}, {2, 2, 2}}
	for _, p := range positions {
		if _, err := s.AddLight(lightObject(light.LightTypePoint, p.X(), p.Y(), p.Z())); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.AddLight(lightObject(light.LightTypePoint, 0, 0, 0)); !errors.Is(err, gpu.ErrResourceExhausted) {
		t.Fatalf("fifth light: %v", err)
	}

	renderFrame(t, s)
	raw := dev.ReadBuffer(s.frames[0].lights.Handle())
	if got := binary.LittleEndian.Uint32(raw[light.MaxLights*80:]); got != 4 {
		t.Fatalf("count = %d", got)
	}
	// The camera sits at (0,0,5) looking at the origin, so view space is world space shifted by -5 in z.
	for i, p := range positions {
		off := i*80 + 16
		got := mgl32.Vec4{
			common.Float32At(raw, off), common.Float32At(raw, off+4),
			common.Float32At(raw, off+8), common.Float32At(raw, off+12),
		}
		want := mgl32.Vec4{p.X(), p.Y(), p.Z() - 5, 1}
		if !got.ApproxEqualThreshold(want, 1e-4) {
			t.Errorf("light %d position = %v, want %v", i, got, want)
		}
	}
}

func TestMixedLightsUnderRotatedCamera(t *testing.T) {
	dev := gputest.NewDevice(1280, 720, 3)
	s := newTestScene(t, dev)
	setUp(t, s)
	// Looking down -X from (5,0,0): world (x,y,z) is view (-z, y, x-5), directions (-z, y, x).
	s.Camera().SetPosition(5, 0, 0)
	s.Camera().SetTarget(0, 0, 0)

	type want struct {
		kind     light.LightType
		pos, dir mgl32.Vec3
	}
	objs := []game_object.GameObject{
		game_object.NewLightObject(light.NewLight(light.WithType(light.LightTypeDirectional), light.WithDirection(0, 1, 1)),
			game_object.WithPosition(0, 0, 5)),
		game_object.NewLightObject(light.NewLight(light.WithType(light.LightTypeSpot), light.WithDirection(1, 0, 0),
			light.WithAngle(0.6), light.WithRadius(30)), game_object.WithPosition(2, 3, 1)),
		game_object.NewLightObject(light.NewLight(light.WithType(light.LightTypePoint)), game_object.WithPosition(-1, 2, 4)),
		game_object.NewLightObject(light.NewLight(light.WithType(light.LightTypeDirectional), light.WithDirection(1, 0, 0)),
			game_object.WithPosition(0, 0, 0)),
	}
	wants := []want{
		{light.LightTypeDirectional, mgl32.Vec3{-5, 0, -5}, mgl32.Vec3{-1, 1, 0}},
		{light.LightTypeSpot, mgl32.Vec3{-1, 3, -3}, mgl32.Vec3{0, 0, 1}},
		{light.LightTypePoint, mgl32.Vec3{-4, 2, -6}, mgl32.Vec3{-1, 1, 0}},
		{light.LightTypeDirectional, mgl32.Vec3{0, 0, -5}, mgl32.Vec3{0, 0, 1}},
	}
	for _, obj := range objs {
		if _, err := s.AddLight(obj); err != nil {
			t.Fatal(err)
		}
	}

	renderFrame(t, s)
	raw := dev.ReadBuffer(s.frames[0].lights.Handle())
	vec := func(off int) mgl32.Vec4 {
		return mgl32.Vec4{common.Float32At(raw, off), common.Float32At(raw, off+4), common.Float32At(raw, off+8), common.Float32At(raw, off+12)}
	}
	for i, w := range wants {
		if got := binary.LittleEndian.Uint32(raw[i*80+64:]); got != uint32(w.kind) {
			t.Errorf("light %d type = %d, want %v", i, got, w.kind)
		}
		if got := vec(i*80 + 16); !got.ApproxEqualThreshold(w.pos.Vec4(1), 1e-4) {
			t.Errorf("light %d position = %v, want %v", i, got, w.pos)
		}
		// point lights keep the default direction (0,1,1)
		if got := vec(i*80 + 32); !got.ApproxEqualThreshold(w.dir.Vec4(1), 1e-4) {
			t.Errorf("light %d direction = %v, want %v", i, got, w.dir)
		}
	}

	cam := s.Camera()
	splits := shadow.Splits(cam.Near(), cam.Far(), s.splitLambda, s.cascadeCount)
	first := shadow.Cascades(splits, cam.Near(), cam.Far(), cam.View(), cam.Proj(), mgl32.Vec3{0, 1, 1})
	info := s.shadow.CascadeInfo()
	for i, c := range first {
		if !info.LightSpace[i].ApproxEqualThreshold(c.ViewProj, 1e-4) {
			t.Errorf("cascade %d is not driven by the first directional light", i)
		}
	}
	spot := shadow.SpotLightMatrix(mgl32.Vec3{2, 3, 1}, mgl32.Vec3{1, 0, 0}, 0.6, float32(1280)/720, 30)
	if !s.shadow.SpotInfo().LightSpace.ApproxEqualThreshold(spot, 1e-4) {
		t.Error("spot map is not driven by the spot light")
	}
}

func TestDeleteMeshKeepsOtherBindings(t *testing.T) {
	dev := gputest.NewDevice(1280, 720, 3)
	s := newTestScene(t, dev)
	setUp(t, s)

	objs := []game_object.GameObject{cubeObject(t, "a", 1), cubeObject(t, "b", 1), cubeObject(t, "c", 1)}
	for _, o := range objs {
		if _, err := s.AddMesh(o); err != nil {
			t.Fatal(err)
		}
	}
	entry := func(o game_object.GameObject) *meshEntry {
		e, ok := s.meshes.Get(o.ID())
		if !ok {
			t.Fatalf("%s not registered", o.Name())
		}
		return e
	}
	frames := s.frameSync.FramesInFlight()
	sets := make([][]gpu.DescriptorSet, len(objs))
	for i, o := range objs {
		for slot := range frames {
			sets[i] = append(sets[i], entry(o).bindings.BindGroup(slot))
		}
	}
	before := dev.Live()["set"]

	if !s.DeleteMesh(objs[1].ID()) {
		t.Fatal("DeleteMesh reported no object")
	}
	if s.DeleteMesh(objs[1].ID()) {
		t.Error("second DeleteMesh succeeded")
	}
	if dev.Live()["set"] != before {
		t.Error("sets freed while frames may still use them")
	}

	for range frames {
		renderFrame(t, s)
	}
	if got := dev.Live()["set"]; got != before-frames {
		t.Errorf("live sets = %d, want %d", got, before-frames)
	}
	for _, i := range []int{0, 2} {
		e := entry(objs[i])
		for slot := range frames {
			if e.bindings.BindGroup(slot) != sets[i][slot] {
				t.Errorf("object %d slot %d changed sets", i, slot)
			}
		}
	}
	if s.MeshCount() != 2 {
		t.Errorf("mesh count = %d", s.MeshCount())
	}
}

func TestMeshOffsetsAlignedAndDisjoint(t *testing.T) {
	dev := gputest.NewDevice(1280, 720, 3)
	s := newTestScene(t, dev, WithCascadeCount(4), WithMaxObjects(8))
	setUp(t, s)

	align := uint32(dev.Limits().MinUniformBufferOffsetAlignment)
	var zero model.GPUMeshData
	seen := map[uint32]bool{}
	for idx := range 8 {
		for c := range 4 {
			off := s.meshOffset(idx, c)
			if off%align != 0 {
				t.Errorf("offset %d unaligned", off)
			}
			if seen[off] {
				t.Errorf("offset %d reused", off)
			}
			seen[off] = true
			if uint64(off)+uint64(zero.Size()) > s.frames[0].meshes.Size() {
				t.Errorf("offset %d overruns the mesh buffer", off)
			}
		}
	}
	if s.stride < uint64(zero.Size()) {
		t.Errorf("stride %d below block size", s.stride)
	}
}

func TestFramePassOrder(t *testing.T) {
	dev := gputest.NewDevice(1280, 720, 3)
	s := newTestScene(t, dev, WithCascadeCount(4), WithSampleCount(4))
	setUp(t, s)

	for _, o := range []game_object.GameObject{cubeObject(t, "solid", 1), cubeObject(t, "glass", 0.5)} {
		if _, err := s.AddMesh(o); err != nil {
			t.Fatal(err)
		}
	}
	for _, o := range []game_object.GameObject{lightObject(light.LightTypeDirectional, 0, 5, 0), lightObject(light.LightTypeSpot, 0, 3, 3)} {
		if _, err := s.AddLight(o); err != nil {
			t.Fatal(err)
		}
	}
	overlayCalled := false
	if err := s.Prepare(); err != nil {
		t.Fatal(err)
	}
	if res := s.Render(func(enc gpu.CommandEncoder, cb gpu.CommandBuffer) { overlayCalled = true }); !res.Ok() {
		t.Fatal(res.Err)
	}
	if !overlayCalled {
		t.Error("overlay not recorded")
	}

	tg := s.targets
	wantPasses := []gpu.Framebuffer{tg.spotFramebuffer}
	wantPasses = append(wantPasses, tg.cascadeFramebuffers...)
	wantPasses = append(wantPasses, tg.framebuffers[s.frameSync.ImageIndex()])

	var passes []gpu.Framebuffer
	var mainPipelines []gpu.Pipeline
	biases := 0
	for _, c := range lastFrame(t, dev) {
		switch c.Op {
		case "BeginRenderPass":
			passes = append(passes, c.Begin.Framebuffer)
		case "BindPipeline":
			if len(passes) == len(wantPasses) {
				mainPipelines = append(mainPipelines, c.Pipeline)
			}
		case "SetDepthBias":
			biases++
			if c.DepthBias != [3]float32{pipeline.ShadowBiasConstant, pipeline.ShadowBiasClamp, pipeline.ShadowBiasSlope} {
				t.Errorf("depth bias = %v", c.DepthBias)
			}
		}
	}
	if len(passes) != len(wantPasses) {
		t.Fatalf("passes = %v, want %v", passes, wantPasses)
	}
	for i := range passes {
		if passes[i] != wantPasses[i] {
			t.Errorf("pass %d framebuffer %d, want %d", i, passes[i], wantPasses[i])
		}
	}
	if biases != 5 {
		t.Errorf("%d depth bias commands, want one per shadow pass", biases)
	}

	wantMain := []string{pipeline.KeyOpaque, pipeline.KeySkybox, pipeline.KeyTransparentFront, pipeline.KeyTransparentBack}
	if len(mainPipelines) != len(wantMain) {
		t.Fatalf("main pass binds %d pipelines", len(mainPipelines))
	}
	for i, key := range wantMain {
		if mainPipelines[i] != s.pipelines[key].Handle() {
			t.Errorf("main pipeline %d is not %s", i, key)
		}
	}
}

func TestMainPassMultisampling(t *testing.T) {
	dev := gputest.NewDevice(1280, 720, 3)
	s := newTestScene(t, dev, WithSampleCount(8))
	setUp(t, s)

	if s.SampleCount() != 4 {
		t.Fatalf("samples = %d, want the device limit 4", s.SampleCount())
	}
	desc := dev.RenderPasses[s.targets.mainPass]
	if len(desc.Attachments) != 3 || desc.Attachments[0].Samples != 4 || desc.Attachments[2].FinalLayout != gpu.ImageLayoutPresentSrc {
		t.Errorf("main pass = %+v", desc)
	}
	if len(desc.Subpass.ResolveAttachments) != 1 || desc.Subpass.ResolveAttachments[0] != 2 {
		t.Errorf("resolve = %v", desc.Subpass.ResolveAttachments)
	}
}

func TestMainPassWaitsOnPreviousAttachmentWrites(t *testing.T) {
	for _, samples := range []uint32{1, 4} {
		dev := gputest.NewDevice(1280, 720, 3)
		s := newTestScene(t, dev, WithSampleCount(samples))
		setUp(t, s)

		desc := dev.RenderPasses[s.targets.mainPass]
		var external *gpu.SubpassDependency
		for i := range desc.Dependencies {
			if desc.Dependencies[i].SrcSubpass == gpu.SubpassExternal {
				external = &desc.Dependencies[i]
			}
		}
		if external == nil {
			t.Fatalf("samples %d: main pass has no external dependency", samples)
		}
		writes := gpu.AccessColorAttachmentWrite | gpu.AccessDepthStencilAttachmentWrite
		if external.SrcAccess&writes != writes {
			t.Errorf("samples %d: src access = %v, want color and depth writes", samples, external.SrcAccess)
		}
		if external.SrcStage&gpu.PipelineStageLateFragmentTests == 0 || external.SrcStage&gpu.PipelineStageColorAttachmentOutput == 0 {
			t.Errorf("samples %d: src stage = %v, want late fragment tests and color output", samples, external.SrcStage)
		}
		dst := gpu.PipelineStageEarlyFragmentTests | gpu.PipelineStageLateFragmentTests | gpu.PipelineStageColorAttachmentOutput
		if external.DstStage&dst != dst {
			t.Errorf("samples %d: dst stage = %v", samples, external.DstStage)
		}
	}
}

func TestSampleCount(t *testing.T) {
	cases := []struct{ requested, limit, want uint32 }{
		{0, 4, 1}, {1, 4, 1}, {3, 4, 2}, {4, 4, 4}, {8, 4, 4}, {8, 0, 1},
	}
	for _, c := range cases {
		if got := sampleCount(c.requested, c.limit); got != c.want {
			t.Errorf("sampleCount(%d, %d) = %d, want %d", c.requested, c.limit, got, c.want)
		}
	}
}

func TestSetupFailureReleasesEverything(t *testing.T) {
	dev := gputest.NewDevice(1280, 720, 3)
	dev.FailCreate["renderpass"] = true
	s := newTestScene(t, dev)

	if err := s.Setup(); !errors.Is(err, gpu.ErrSetupFailure) {
		t.Fatalf("err = %v", err)
	}
	for kind, n := range dev.Live() {
		t.Errorf("%d %s objects leaked", n, kind)
	}
	if err := s.Prepare(); !errors.Is(err, gpu.ErrInvalidState) {
		t.Errorf("Prepare after failed setup: %v", err)
	}
}

func TestShutdownReleasesEverything(t *testing.T) {
	dev := gputest.NewDevice(1280, 720, 3)
	content, err := DefaultContent()
	if err != nil {
		t.Fatal(err)
	}
	s := newTestScene(t, dev, WithObjects(content...))
	if err := s.Setup(); err != nil {
		t.Fatal(err)
	}
	if s.MeshCount() != 4 || s.LightCount() != 1 {
		t.Fatalf("meshes %d lights %d", s.MeshCount(), s.LightCount())
	}
	renderFrame(t, s)
	s.DeleteMesh(content[1].ID())

	s.Shutdown()
	s.Shutdown()
	for kind, n := range dev.Live() {
		t.Errorf("%d %s objects leaked", n, kind)
	}
}

func TestRetryThenResize(t *testing.T) {
	dev := gputest.NewDevice(1280, 720, 3)
	s := newTestScene(t, dev)
	setUp(t, s)

	dev.AcquireErrs = []error{gpu.ErrSurfaceOutOfDate}
	if err := s.Prepare(); err != nil {
		t.Fatal(err)
	}
	if res := s.Render(nil); res.Status != gpu.FrameRetry {
		t.Fatalf("status = %v", res.Status)
	}
	if err := s.Resize(800, 600); err != nil {
		t.Fatal(err)
	}
	for _, fb := range s.targets.framebuffers {
		if got := dev.Framebuffers[fb].Extent; got != (gpu.Extent2D{Width: 800, Height: 600}) {
			t.Errorf("framebuffer extent = %v", got)
		}
	}
	if got := s.cam.Aspect(); got != float32(800)/600 {
		t.Errorf("aspect = %v", got)
	}
	renderFrame(t, s)
	if s.Stats().Retries != 1 {
		t.Errorf("stats = %+v", s.Stats())
	}
}

func TestNamesAreUnique(t *testing.T) {
	dev := gputest.NewDevice(1280, 720, 3)
	s := newTestScene(t, dev)
	setUp(t, s)

	a, b := cubeObject(t, "cube", 1), cubeObject(t, "cube", 1)
	for _, o := range []game_object.GameObject{a, b} {
		if _, err := s.AddMesh(o); err != nil {
			t.Fatal(err)
		}
	}
	if a.Name() != "cube" || b.Name() != "cube1" {
		t.Errorf("names %q %q", a.Name(), b.Name())
	}
	if got, ok := s.Get(b.ID()); !ok || got != b {
		t.Error("Get by handle")
	}
	if len(s.Objects()) != 2 {
		t.Errorf("objects = %d", len(s.Objects()))
	}
}

func TestMaxObjects(t *testing.T) {
	dev := gputest.NewDevice(1280, 720, 3)
	s := newTestScene(t, dev, WithMaxObjects(1))
	setUp(t, s)

	if _, err := s.AddMesh(cubeObject(t, "a", 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddMesh(cubeObject(t, "b", 1)); !errors.Is(err, gpu.ErrResourceExhausted) {
		t.Errorf("err = %v", err)
	}
}

// passDraws counts the indexed draws of each render pass in a frame, in recording order.
func passDraws(cmds []gputest.Command) []int {
	var counts []int
	for _, c := range cmds {
		switch c.Op {
		case "BeginRenderPass":
			counts = append(counts, 0)
		case "DrawIndexed":
			counts[len(counts)-1]++
		}
	}
	return counts
}

func TestMainPassSkipsObjectsOutsideTheFrustum(t *testing.T) {
	dev := gputest.NewDevice(1280, 720, 3)
	s := newTestScene(t, dev, WithCascadeCount(2))
	setUp(t, s)

	if _, err := s.AddLight(DefaultLight()); err != nil {
		t.Fatal(err)
	}
	inView := cubeObject(t, "front", 1)
	behind := cubeObject(t, "behind", 1)
	behind.SetPosition(0, 0, 50)
	for _, o := range []game_object.GameObject{inView, behind} {
		if _, err := s.AddMesh(o); err != nil {
			t.Fatal(err)
		}
	}

	renderFrame(t, s)
	counts := passDraws(lastFrame(t, dev))
	if len(counts) != 4 {
		t.Fatalf("got %d passes, want spot, 2 cascades and main", len(counts))
	}
	for c := 1; c <= 2; c++ {
		if counts[c] != 2 {
			t.Errorf("cascade %d drew %d objects, want both", c-1, counts[c])
		}
	}
	// the culled cube is missing; the other draw is the skybox
	if counts[3] != 2 {
		t.Errorf("main pass drew %d, want the visible cube and the skybox", counts[3])
	}
}
