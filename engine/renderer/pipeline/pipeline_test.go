package pipeline

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-vk/engine/model"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/shader"
)

func builtin(t *testing.T, key string) shader.Shader {
	t.Helper()
	s, err := shader.Builtin(key, gpu.ShaderFormatWGSL)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func build(t *testing.T, dev *gputest.Device, p Pipeline) gpu.PipelineDescriptor {
	t.Helper()
	l, err := NewLayout(dev, p.PipelineKey(), p.Shader())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(l.Destroy)
	if err := p.Build(dev, l.Handle(), gpu.RenderPass(1)); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(p.Destroy)
	return dev.Pipelines[p.Handle()]
}

func TestPresetStates(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	mesh := builtin(t, shader.KeyMesh)
	sky := builtin(t, shader.KeySkybox)
	sh := builtin(t, shader.KeyShadow)

	tests := []struct {
		p       Pipeline
		cull    gpu.CullMode
		write   bool
		compare gpu.CompareOp
		blend   bool
		samples uint32
		frag    bool
		bias    bool
	}{
		{Opaque(mesh, 4), gpu.CullModeBack, true, gpu.CompareOpLess, false, 4, true, false},
		{TransparentFront(mesh, 4), gpu.CullModeFront, false, gpu.CompareOpLessOrEqual, true, 4, true, false},
		{TransparentBack(mesh, 4), gpu.CullModeBack, false, gpu.CompareOpLessOrEqual, true, 4, true, false},
		{Skybox(sky, 4), gpu.CullModeFront, false, gpu.CompareOpLessOrEqual, false, 4, true, false},
		{CascadeShadow(sh), gpu.CullModeBack, true, gpu.CompareOpLessOrEqual, false, 1, false, true},
		{SpotShadow(sh), gpu.CullModeBack, true, gpu.CompareOpLessOrEqual, false, 1, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.p.PipelineKey(), func(t *testing.T) {
			d := build(t, dev, tt.p)
			if d.CullMode != tt.cull || d.DepthWrite != tt.write || d.DepthCompare != tt.compare {
				t.Errorf("cull %v write %v compare %v", d.CullMode, d.DepthWrite, d.DepthCompare)
			}
			if !d.DepthTest {
				t.Error("depth test must be on")
			}
			if d.Blend != tt.blend || d.Samples != tt.samples {
				t.Errorf("blend %v samples %d", d.Blend, d.Samples)
			}
			if (d.Fragment != nil) != tt.frag || tt.p.DepthOnly() == tt.frag {
				t.Errorf("fragment stage = %v", d.Fragment)
			}
			if d.DepthBias.Enabled != tt.bias || d.DepthBias.Dynamic != tt.bias {
				t.Errorf("depth bias = %+v", d.DepthBias)
			}
			if d.FrontFace != gpu.FrontFaceCounterClockwise || d.Topology != gpu.PrimitiveTopologyTriangleList {
				t.Error("front face and topology")
			}
			if d.Label != tt.p.PipelineKey() || d.Vertex.Module == 0 {
				t.Errorf("label %q module %d", d.Label, d.Vertex.Module)
			}
		})
	}
}

func TestShadowBiasValues(t *testing.T) {
	b := SpotShadow(builtin(t, shader.KeyShadow)).DepthBias()
	if b.Constant != 1.25 || b.Clamp != 0 || b.Slope != 1.75 {
		t.Errorf("bias = %+v", b)
	}
}

func TestShadowEntryPoints(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	sh := builtin(t, shader.KeyShadow)
	cascade := build(t, dev, CascadeShadow(sh))
	spot := build(t, dev, SpotShadow(sh))
	if cascade.Vertex.EntryPoint != shader.EntryShadowCascade || spot.Vertex.EntryPoint != shader.EntryShadowSpot {
		t.Errorf("entries %q %q", cascade.Vertex.EntryPoint, spot.Vertex.EntryPoint)
	}
	if len(cascade.VertexLayouts) != 1 || cascade.VertexLayouts[0].Stride != model.VertexStride {
		t.Errorf("vertex layouts = %+v", cascade.VertexLayouts)
	}
}

func TestMissingEntryPoint(t *testing.T) {
	p := NewPipeline("bad", builtin(t, shader.KeyShadow))
	if _, err := p.Descriptor(0, 0); !errors.Is(err, gpu.ErrSetupFailure) {
		t.Errorf("err = %v", err)
	}
}

func TestRebuildReplacesPipeline(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	p := Opaque(builtin(t, shader.KeyMesh), 1)
	build(t, dev, p)
	first := p.Handle()
	if err := p.Build(dev, p.Layout(), gpu.RenderPass(2)); err != nil {
		t.Fatal(err)
	}
	if p.Handle() == first {
		t.Error("handle not replaced")
	}
	if dev.Live()["pipeline"] != 1 {
		t.Errorf("live pipelines = %d", dev.Live()["pipeline"])
	}
	p.Destroy()
	p.Destroy()
	if dev.Live()["pipeline"] != 0 || p.Handle() != 0 {
		t.Error("pipeline not released")
	}
}

func TestBuildFailure(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	dev.FailCreate["pipeline"] = true
	p := Opaque(builtin(t, shader.KeyMesh), 1)
	if err := p.Build(dev, 0, 0); !errors.Is(err, gpu.ErrSetupFailure) {
		t.Errorf("err = %v", err)
	}
	if p.Handle() != 0 {
		t.Error("handle set on failure")
	}
}

func TestLayoutFromShader(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	s := builtin(t, shader.KeyMesh)
	l, err := NewLayout(dev, "mesh", s)
	if err != nil {
		t.Fatal(err)
	}
	if l.Groups() != 1 || len(dev.SetLayouts[l.SetLayout(0)]) != 12 {
		t.Errorf("groups %d, bindings %d", l.Groups(), len(dev.SetLayouts[l.SetLayout(0)]))
	}
	if l.SetLayout(3) != 0 || l.Bindings(-1) != nil {
		t.Error("out of range group")
	}
	l.Destroy()
	l.Destroy()
	if dev.Live()["setlayout"] != 0 || dev.Live()["pipelinelayout"] != 0 {
		t.Errorf("live = %v", dev.Live())
	}
}

func TestLayoutFailureReleases(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	dev.FailCreate["pipelinelayout"] = true
	if _, err := NewLayout(dev, "mesh", builtin(t, shader.KeyMesh)); err == nil {
		t.Fatal("expected error")
	}
	if dev.Live()["setlayout"] != 0 {
		t.Error("set layout leaked")
	}
}
