package webgpu

import (
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

func textureFormat(f gpu.Format) wgpu.TextureFormat {
	switch f {
	case gpu.FormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case gpu.FormatRGBA8Srgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case gpu.FormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case gpu.FormatBGRA8Srgb:
		return wgpu.TextureFormatBGRA8UnormSrgb
	case gpu.FormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	default:
		return wgpu.TextureFormatUndefined
	}
}

// engineFormat maps a surface format back to the engine's format, defaulting to sRGB BGRA.
func engineFormat(f wgpu.TextureFormat) gpu.Format {
	switch f {
	case wgpu.TextureFormatRGBA8Unorm:
		return gpu.FormatRGBA8Unorm
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return gpu.FormatRGBA8Srgb
	case wgpu.TextureFormatBGRA8Unorm:
		return gpu.FormatBGRA8Unorm
	default:
		return gpu.FormatBGRA8Srgb
	}
}

func vertexFormat(f gpu.Format) wgpu.VertexFormat {
	switch f {
	case gpu.FormatR32G32Float:
		return wgpu.VertexFormatFloat32x2
	case gpu.FormatR32G32B32Float:
		return wgpu.VertexFormatFloat32x3
	default:
		return wgpu.VertexFormatFloat32x4
	}
}

func bufferUsage(u gpu.BufferUsage) wgpu.BufferUsage {
	usage := wgpu.BufferUsageCopyDst
	if u&gpu.BufferUsageVertex != 0 {
		usage |= wgpu.BufferUsageVertex
	}
	if u&gpu.BufferUsageIndex != 0 {
		usage |= wgpu.BufferUsageIndex
	}
	if u&gpu.BufferUsageUniform != 0 {
		usage |= wgpu.BufferUsageUniform
	}
	return usage
}

// gpuBacked reports whether a buffer needs device memory. Transfer-only buffers are
// staging areas read on the CPU by the copy emulation.
func gpuBacked(u gpu.BufferUsage) bool {
	return u&(gpu.BufferUsageVertex|gpu.BufferUsageIndex|gpu.BufferUsageUniform) != 0
}

func textureUsage(u gpu.ImageUsage) wgpu.TextureUsage {
	var usage wgpu.TextureUsage
	if u&(gpu.ImageUsageTransferDst|gpu.ImageUsageTransferSrc) != 0 {
		usage |= wgpu.TextureUsageCopyDst | wgpu.TextureUsageCopySrc
	}
	if u&gpu.ImageUsageSampled != 0 {
		usage |= wgpu.TextureUsageTextureBinding
	}
	if u&(gpu.ImageUsageColorAttachment|gpu.ImageUsageDepthStencilAttachment) != 0 {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	return usage
}

func viewDimension(t gpu.ImageViewType) wgpu.TextureViewDimension {
	switch t {
	case gpu.ImageViewType2DArray:
		return wgpu.TextureViewDimension2DArray
	case gpu.ImageViewTypeCube:
		return wgpu.TextureViewDimensionCube
	default:
		return wgpu.TextureViewDimension2D
	}
}

func textureAspect(a gpu.ImageAspect) wgpu.TextureAspect {
	if a == gpu.ImageAspectDepth {
		return wgpu.TextureAspectDepthOnly
	}
	return wgpu.TextureAspectAll
}

func filterMode(f gpu.Filter) wgpu.FilterMode {
	if f == gpu.FilterNearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

func mipmapFilter(f gpu.Filter) wgpu.MipmapFilterMode {
	if f == gpu.FilterNearest {
		return wgpu.MipmapFilterModeNearest
	}
	return wgpu.MipmapFilterModeLinear
}

// addressMode maps clamp-to-border to clamp-to-edge; WebGPU has no border color.
func addressMode(m gpu.AddressMode) wgpu.AddressMode {
	if m == gpu.AddressModeRepeat {
		return wgpu.AddressModeRepeat
	}
	return wgpu.AddressModeClampToEdge
}

func compareFunction(op gpu.CompareOp) wgpu.CompareFunction {
	switch op {
	case gpu.CompareOpLess:
		return wgpu.CompareFunctionLess
	case gpu.CompareOpLessOrEqual:
		return wgpu.CompareFunctionLessEqual
	default:
		return wgpu.CompareFunctionAlways
	}
}

func cullMode(m gpu.CullMode) wgpu.CullMode {
	switch m {
	case gpu.CullModeFront:
		return wgpu.CullModeFront
	case gpu.CullModeBack:
		return wgpu.CullModeBack
	default:
		return wgpu.CullModeNone
	}
}

func frontFace(f gpu.FrontFace) wgpu.FrontFace {
	if f == gpu.FrontFaceClockwise {
		return wgpu.FrontFaceCW
	}
	return wgpu.FrontFaceCCW
}

func topology(t gpu.PrimitiveTopology) wgpu.PrimitiveTopology {
	if t == gpu.PrimitiveTopologyTriangleStrip {
		return wgpu.PrimitiveTopologyTriangleStrip
	}
	return wgpu.PrimitiveTopologyTriangleList
}

func indexFormat(t gpu.IndexType) wgpu.IndexFormat {
	if t == gpu.IndexTypeUint32 {
		return wgpu.IndexFormatUint32
	}
	return wgpu.IndexFormatUint16
}

// loadOp maps don't-care to clear; WebGPU requires a defined load operation.
func loadOp(op gpu.LoadOp) wgpu.LoadOp {
	if op == gpu.LoadOpLoad {
		return wgpu.LoadOpLoad
	}
	return wgpu.LoadOpClear
}

func storeOp(op gpu.StoreOp) wgpu.StoreOp {
	if op == gpu.StoreOpStore {
		return wgpu.StoreOpStore
	}
	return wgpu.StoreOpDiscard
}

func shaderStages(s gpu.ShaderStage) wgpu.ShaderStage {
	var stages wgpu.ShaderStage
	if s&gpu.ShaderStageVertex != 0 {
		stages |= wgpu.ShaderStageVertex
	}
	if s&gpu.ShaderStageFragment != 0 {
		stages |= wgpu.ShaderStageFragment
	}
	return stages
}

// layoutEntry builds the bind group layout entry of one descriptor binding.
func layoutEntry(b gpu.DescriptorBinding) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    b.Binding,
		Visibility: shaderStages(b.Stages),
	}
	switch b.Type {
	case gpu.DescriptorTypeUniformBuffer:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case gpu.DescriptorTypeUniformBufferDynamic:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.HasDynamicOffset = true
	case gpu.DescriptorTypeSampledImage:
		entry.Texture.ViewDimension = viewDimension(b.ViewType)
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		if b.DepthTexture {
			entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		}
	case gpu.DescriptorTypeSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		if b.Comparison {
			entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
		}
	}
	return entry
}

// alphaBlend is the straight alpha blend used by transparent pipelines.
var alphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}
