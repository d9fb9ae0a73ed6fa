package webgpu

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestFormatsRoundTripThroughSurface(t *testing.T) {
	for _, f := range []gpu.Format{gpu.FormatRGBA8Unorm, gpu.FormatRGBA8Srgb, gpu.FormatBGRA8Unorm, gpu.FormatBGRA8Srgb} {
		if got := engineFormat(textureFormat(f)); got != f {
			t.Errorf("format %v came back as %v", f, got)
		}
	}
	if engineFormat(wgpu.TextureFormatRGBA16Float) != gpu.FormatBGRA8Srgb {
		t.Error("unknown surface formats should fall back to sRGB BGRA")
	}
}

func TestStagingBuffersStayOnTheCPU(t *testing.T) {
	if gpuBacked(gpu.BufferUsageTransferSrc) {
		t.Error("staging buffer should not allocate device memory")
	}
	if !gpuBacked(gpu.BufferUsageUniform | gpu.BufferUsageTransferDst) {
		t.Error("uniform buffer should be device backed")
	}
	if bufferUsage(gpu.BufferUsageVertex)&wgpu.BufferUsageCopyDst == 0 {
		t.Error("device buffers must accept queue writes")
	}
}

func TestLayoutEntries(t *testing.T) {
	tests := []struct {
		name    string
		binding gpu.DescriptorBinding
		check   func(wgpu.BindGroupLayoutEntry) bool
	}{
		{
			name:    "dynamic uniform",
			binding: gpu.DescriptorBinding{Binding: 0, Type: gpu.DescriptorTypeUniformBufferDynamic, Stages: gpu.ShaderStageVertex},
			check: func(e wgpu.BindGroupLayoutEntry) bool {
				return e.Buffer.HasDynamicOffset && e.Buffer.Type == wgpu.BufferBindingTypeUniform && e.Visibility == wgpu.ShaderStageVertex
			},
		},
		{
			name:    "depth array",
			binding: gpu.DescriptorBinding{Binding: 1, Type: gpu.DescriptorTypeSampledImage, ViewType: gpu.ImageViewType2DArray, DepthTexture: true},
			check: func(e wgpu.BindGroupLayoutEntry) bool {
				return e.Texture.SampleType == wgpu.TextureSampleTypeDepth && e.Texture.ViewDimension == wgpu.TextureViewDimension2DArray
			},
		},
		{
			name:    "comparison sampler",
			binding: gpu.DescriptorBinding{Binding: 2, Type: gpu.DescriptorTypeSampler, Comparison: true, Stages: gpu.ShaderStageFragment},
			check: func(e wgpu.BindGroupLayoutEntry) bool {
				return e.Sampler.Type == wgpu.SamplerBindingTypeComparison && e.Binding == 2
			},
		},
		{
			name:    "cube",
			binding: gpu.DescriptorBinding{Binding: 3, Type: gpu.DescriptorTypeSampledImage, ViewType: gpu.ImageViewTypeCube},
			check: func(e wgpu.BindGroupLayoutEntry) bool {
				return e.Texture.SampleType == wgpu.TextureSampleTypeFloat && e.Texture.ViewDimension == wgpu.TextureViewDimensionCube
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if e := layoutEntry(tt.binding); !tt.check(e) {
				t.Errorf("unexpected entry %+v", e)
			}
		})
	}
}

func TestDontCareOps(t *testing.T) {
	if loadOp(gpu.LoadOpDontCare) != wgpu.LoadOpClear {
		t.Error("don't-care load should clear")
	}
	if storeOp(gpu.StoreOpDontCare) != wgpu.StoreOpDiscard {
		t.Error("don't-care store should discard")
	}
}

func TestBlitSize(t *testing.T) {
	w, h := blitSize([2]gpu.Offset3D{{}, {X: 16, Y: 8, Z: 1}})
	if w != 16 || h != 8 {
		t.Errorf("got %dx%d, want 16x8", w, h)
	}
	w, h = blitSize([2]gpu.Offset3D{{}, {}})
	if w != 1 || h != 1 {
		t.Errorf("empty box should clamp to 1x1, got %dx%d", w, h)
	}
}
