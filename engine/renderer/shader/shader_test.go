package shader

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-vk/engine/camera"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-vk/engine/light"
	"github.com/Carmen-Shannon/oxy-vk/engine/model"
	"github.com/Carmen-Shannon/oxy-vk/engine/shadow"
)

func builtin(t *testing.T, key string) Shader {
	t.Helper()
	s, err := Builtin(key, gpu.ShaderFormatWGSL)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestUniformBlocksMatchGoLayouts(t *testing.T) {
	s := builtin(t, KeyMesh)
	tests := []struct {
		name string
		size int
	}{
		{"ViewProj", camera.GPUViewProj{}.Size()},
		{"Mesh", model.GPUMeshData{}.Size()},
		{"Light", light.GPULightData{}.Size()},
		{"Lights", light.GPULights{}.Size()},
		{"CascadeInfo", shadow.GPUCascadeInfo{}.Size()},
		{"SpotShadowInfo", shadow.GPUSpotShadowInfo{}.Size()},
	}
	for _, tt := range tests {
		l, ok := s.StructLayout(tt.name)
		if !ok {
			t.Errorf("%s: not declared", tt.name)
			continue
		}
		if l.Size != uint64(tt.size) {
			t.Errorf("%s: WGSL size %d, Go size %d", tt.name, l.Size, tt.size)
		}
	}
}

func TestVertexLayoutsMatchModel(t *testing.T) {
	mesh := builtin(t, KeyMesh)
	got, ok := mesh.VertexLayout(EntryVertex)
	if !ok || !reflect.DeepEqual(got, model.VertexLayout()) {
		t.Errorf("mesh vertex layout = %+v, want %+v", got, model.VertexLayout())
	}

	sky := builtin(t, KeySkybox)
	got, ok = sky.VertexLayout(EntryVertex)
	if !ok || !reflect.DeepEqual(got, model.SkyboxVertexLayout()) {
		t.Errorf("skybox vertex layout = %+v", got)
	}

	shadowShader := builtin(t, KeyShadow)
	for _, entry := range []string{EntryShadowCascade, EntryShadowSpot} {
		if got, ok := shadowShader.VertexLayout(entry); !ok || got.Stride != model.VertexStride {
			t.Errorf("%s layout = %+v", entry, got)
		}
	}
}

func TestMeshBindings(t *testing.T) {
	s := builtin(t, KeyMesh)
	if s.Groups() != 1 {
		t.Fatalf("groups = %d", s.Groups())
	}
	b := s.Bindings(0)
	want := []gpu.DescriptorType{
		gpu.DescriptorTypeUniformBuffer,        // view_proj
		gpu.DescriptorTypeUniformBufferDynamic, // mesh
		gpu.DescriptorTypeSampledImage,         // diffuse
		gpu.DescriptorTypeSampler,
		gpu.DescriptorTypeSampledImage, // skybox
		gpu.DescriptorTypeSampler,
		gpu.DescriptorTypeUniformBuffer, // lights
		gpu.DescriptorTypeSampledImage,  // cascade map
		gpu.DescriptorTypeSampler,       // shadow comparison
		gpu.DescriptorTypeUniformBuffer, // cascade info
		gpu.DescriptorTypeSampledImage,  // spot map
		gpu.DescriptorTypeUniformBuffer, // spot info
	}
	if len(b) != len(want) {
		t.Fatalf("%d bindings, want %d", len(b), len(want))
	}
	for i, w := range want {
		if b[i].Binding != uint32(i) || b[i].Type != w {
			t.Errorf("binding %d = %+v, want type %v", i, b[i], w)
		}
		if b[i].Stages != gpu.ShaderStageVertex|gpu.ShaderStageFragment {
			t.Errorf("binding %d stages = %v", i, b[i].Stages)
		}
	}
	if b[4].ViewType != gpu.ImageViewTypeCube {
		t.Errorf("skybox view type = %v", b[4].ViewType)
	}
	if !b[7].DepthTexture || b[7].ViewType != gpu.ImageViewType2DArray {
		t.Errorf("cascade map binding = %+v", b[7])
	}
	if !b[8].Comparison || b[3].Comparison {
		t.Error("only the shadow sampler compares")
	}
	if s.BindingVarName(0, 1) != "mesh" {
		t.Errorf("binding 1 var = %q", s.BindingVarName(0, 1))
	}
}

func TestShadowBindingsAreVertexOnly(t *testing.T) {
	s := builtin(t, KeyShadow)
	b := s.Bindings(0)
	if len(b) != 3 {
		t.Fatalf("%d bindings", len(b))
	}
	for _, e := range b {
		if e.Stages != gpu.ShaderStageVertex {
			t.Errorf("binding %d stages = %v", e.Binding, e.Stages)
		}
	}
	if b[1].Type != gpu.DescriptorTypeUniformBufferDynamic {
		t.Errorf("mesh binding type = %v", b[1].Type)
	}
	if s.HasEntryPoint(EntryFragment) || !s.HasEntryPoint(EntryShadowSpot) {
		t.Error("shadow entry points")
	}
}

func TestPreProcessor(t *testing.T) {
	pp := NewPreProcessor(gpu.ShaderFormatSPIRV)
	out, err := pp.Process("//@oxy:include view_proj\n//@oxy:include view_proj\n//@oxy:include target\n//@oxy:group 1 3 uniform_dynamic vp view_proj\nfn f() {}")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(out, "struct ViewProj") != 1 {
		t.Errorf("struct included %d times", strings.Count(out, "struct ViewProj"))
	}
	if !strings.Contains(out, "@group(1) @binding(3) var<uniform> vp: ViewProj;") {
		t.Errorf("missing generated declaration:\n%s", out)
	}
	if !strings.Contains(out, "const TARGET_Y: f32 = 1.0;") {
		t.Error("SPIR-V target must keep Y")
	}
	decls := pp.Declarations()
	if len(decls) != 1 || !decls[0].Dynamic() || *decls[0].Group != 1 || *decls[0].Binding != 3 {
		t.Errorf("declarations = %+v", decls)
	}

	wgsl, err := NewPreProcessor(gpu.ShaderFormatWGSL).Process("//@oxy:include target")
	if err != nil || !strings.Contains(wgsl, "const TARGET_Y: f32 = -1.0;") {
		t.Errorf("WGSL target must flip Y: %v", err)
	}
}

func TestPreProcessorErrors(t *testing.T) {
	tests := []string{
		"//@oxy:include nope",
		"//@oxy:include",
		"//@oxy:group 0 0 storage x view_proj",
		"//@oxy:group a 0 uniform x view_proj",
		"//@oxy:group 0 0 uniform x target",
		"//@oxy:bogus",
	}
	for _, src := range tests {
		if _, err := NewPreProcessor(gpu.ShaderFormatWGSL).Process(src); err == nil {
			t.Errorf("%q: expected error", src)
		}
	}
}

func TestLoad(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	s := builtin(t, KeySkybox)
	m, err := s.Load(dev)
	if err != nil {
		t.Fatal(err)
	}
	again, err := s.Load(dev)
	if err != nil || again != m {
		t.Errorf("second Load = %v, %v", again, err)
	}
	if dev.Live()["shader"] != 1 {
		t.Errorf("live shaders = %d", dev.Live()["shader"])
	}
	s.Destroy()
	s.Destroy()
	if dev.Live()["shader"] != 0 || s.Module() != 0 {
		t.Error("module not released")
	}
}

func TestLoadFormatMismatch(t *testing.T) {
	s, err := Builtin(KeyShadow, gpu.ShaderFormatSPIRV)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(gputest.NewDevice(64, 64, 2)); !errors.Is(err, gpu.ErrSetupFailure) {
		t.Errorf("err = %v", err)
	}
}

func TestBuiltinUnknown(t *testing.T) {
	if _, err := Builtin("nope", gpu.ShaderFormatWGSL); err == nil {
		t.Error("expected error")
	}
}
