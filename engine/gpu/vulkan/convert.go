package vulkan

import (
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	vk "github.com/vulkan-go/vulkan"
)

func format(f gpu.Format) vk.Format {
	switch f {
	case gpu.FormatRGBA8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case gpu.FormatRGBA8Srgb:
		return vk.FormatR8g8b8a8Srgb
	case gpu.FormatBGRA8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case gpu.FormatBGRA8Srgb:
		return vk.FormatB8g8r8a8Srgb
	case gpu.FormatDepth32Float:
		return vk.FormatD32Sfloat
	case gpu.FormatR32G32Float:
		return vk.FormatR32g32Sfloat
	case gpu.FormatR32G32B32Float:
		return vk.FormatR32g32b32Sfloat
	case gpu.FormatR32G32B32A32Float:
		return vk.FormatR32g32b32a32Sfloat
	default:
		return vk.FormatUndefined
	}
}

// engineFormat maps a surface format back to the engine's format, defaulting to sRGB BGRA.
func engineFormat(f vk.Format) gpu.Format {
	switch f {
	case vk.FormatR8g8b8a8Unorm:
		return gpu.FormatRGBA8Unorm
	case vk.FormatR8g8b8a8Srgb:
		return gpu.FormatRGBA8Srgb
	case vk.FormatB8g8r8a8Unorm:
		return gpu.FormatBGRA8Unorm
	default:
		return gpu.FormatBGRA8Srgb
	}
}

func bufferUsage(u gpu.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits
	if u&gpu.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageVertexBufferBit
	}
	if u&gpu.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageIndexBufferBit
	}
	if u&gpu.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageUniformBufferBit
	}
	if u&gpu.BufferUsageTransferSrc != 0 {
		flags |= vk.BufferUsageTransferSrcBit
	}
	if u&gpu.BufferUsageTransferDst != 0 {
		flags |= vk.BufferUsageTransferDstBit
	}
	return vk.BufferUsageFlags(flags)
}

func imageUsage(u gpu.ImageUsage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlagBits
	if u&gpu.ImageUsageTransferSrc != 0 {
		flags |= vk.ImageUsageTransferSrcBit
	}
	if u&gpu.ImageUsageTransferDst != 0 {
		flags |= vk.ImageUsageTransferDstBit
	}
	if u&gpu.ImageUsageSampled != 0 {
		flags |= vk.ImageUsageSampledBit
	}
	if u&gpu.ImageUsageColorAttachment != 0 {
		flags |= vk.ImageUsageColorAttachmentBit
	}
	if u&gpu.ImageUsageDepthStencilAttachment != 0 {
		flags |= vk.ImageUsageDepthStencilAttachmentBit
	}
	if u&gpu.ImageUsageTransientAttachment != 0 {
		flags |= vk.ImageUsageTransientAttachmentBit
	}
	return vk.ImageUsageFlags(flags)
}

func imageLayout(l gpu.ImageLayout) vk.ImageLayout {
	switch l {
	case gpu.ImageLayoutTransferDst:
		return vk.ImageLayoutTransferDstOptimal
	case gpu.ImageLayoutTransferSrc:
		return vk.ImageLayoutTransferSrcOptimal
	case gpu.ImageLayoutShaderReadOnly:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case gpu.ImageLayoutColorAttachment:
		return vk.ImageLayoutColorAttachmentOptimal
	case gpu.ImageLayoutDepthStencilAttachment:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case gpu.ImageLayoutPresentSrc:
		return vk.ImageLayoutPresentSrc
	default:
		return vk.ImageLayoutUndefined
	}
}

func aspect(a gpu.ImageAspect) vk.ImageAspectFlags {
	var flags vk.ImageAspectFlagBits
	if a&gpu.ImageAspectColor != 0 {
		flags |= vk.ImageAspectColorBit
	}
	if a&gpu.ImageAspectDepth != 0 {
		flags |= vk.ImageAspectDepthBit
	}
	if flags == 0 {
		flags = vk.ImageAspectColorBit
	}
	return vk.ImageAspectFlags(flags)
}

func viewType(t gpu.ImageViewType) vk.ImageViewType {
	switch t {
	case gpu.ImageViewType2DArray:
		return vk.ImageViewType2dArray
	case gpu.ImageViewTypeCube:
		return vk.ImageViewTypeCube
	default:
		return vk.ImageViewType2d
	}
}

func pipelineStages(s gpu.PipelineStage) vk.PipelineStageFlags {
	pairs := []struct {
		from gpu.PipelineStage
		to   vk.PipelineStageFlagBits
	}{
		{gpu.PipelineStageTopOfPipe, vk.PipelineStageTopOfPipeBit},
		{gpu.PipelineStageVertexShader, vk.PipelineStageVertexShaderBit},
		{gpu.PipelineStageFragmentShader, vk.PipelineStageFragmentShaderBit},
		{gpu.PipelineStageEarlyFragmentTests, vk.PipelineStageEarlyFragmentTestsBit},
		{gpu.PipelineStageLateFragmentTests, vk.PipelineStageLateFragmentTestsBit},
		{gpu.PipelineStageColorAttachmentOutput, vk.PipelineStageColorAttachmentOutputBit},
		{gpu.PipelineStageTransfer, vk.PipelineStageTransferBit},
		{gpu.PipelineStageBottomOfPipe, vk.PipelineStageBottomOfPipeBit},
	}
	var flags vk.PipelineStageFlagBits
	for _, p := range pairs {
		if s&p.from != 0 {
			flags |= p.to
		}
	}
	if flags == 0 {
		flags = vk.PipelineStageTopOfPipeBit
	}
	return vk.PipelineStageFlags(flags)
}

func access(a gpu.Access) vk.AccessFlags {
	pairs := []struct {
		from gpu.Access
		to   vk.AccessFlagBits
	}{
		{gpu.AccessTransferRead, vk.AccessTransferReadBit},
		{gpu.AccessTransferWrite, vk.AccessTransferWriteBit},
		{gpu.AccessShaderRead, vk.AccessShaderReadBit},
		{gpu.AccessColorAttachmentRead, vk.AccessColorAttachmentReadBit},
		{gpu.AccessColorAttachmentWrite, vk.AccessColorAttachmentWriteBit},
		{gpu.AccessDepthStencilAttachmentRead, vk.AccessDepthStencilAttachmentReadBit},
		{gpu.AccessDepthStencilAttachmentWrite, vk.AccessDepthStencilAttachmentWriteBit},
		{gpu.AccessMemoryRead, vk.AccessMemoryReadBit},
	}
	var flags vk.AccessFlagBits
	for _, p := range pairs {
		if a&p.from != 0 {
			flags |= p.to
		}
	}
	return vk.AccessFlags(flags)
}

// sampleCount relies on VkSampleCountFlagBits having the value of the count it names.
func sampleCount(n uint32) vk.SampleCountFlagBits {
	return vk.SampleCountFlagBits(max(n, 1))
}

func filter(f gpu.Filter) vk.Filter {
	if f == gpu.FilterNearest {
		return vk.FilterNearest
	}
	return vk.FilterLinear
}

func mipmapMode(f gpu.Filter) vk.SamplerMipmapMode {
	if f == gpu.FilterNearest {
		return vk.SamplerMipmapModeNearest
	}
	return vk.SamplerMipmapModeLinear
}

func addressMode(m gpu.AddressMode) vk.SamplerAddressMode {
	switch m {
	case gpu.AddressModeClampToEdge:
		return vk.SamplerAddressModeClampToEdge
	case gpu.AddressModeClampToBorder:
		return vk.SamplerAddressModeClampToBorder
	default:
		return vk.SamplerAddressModeRepeat
	}
}

func compareOp(op gpu.CompareOp) vk.CompareOp {
	switch op {
	case gpu.CompareOpLess:
		return vk.CompareOpLess
	case gpu.CompareOpLessOrEqual:
		return vk.CompareOpLessOrEqual
	default:
		return vk.CompareOpAlways
	}
}

func cullMode(m gpu.CullMode) vk.CullModeFlags {
	switch m {
	case gpu.CullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case gpu.CullModeBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	default:
		return vk.CullModeFlags(vk.CullModeNone)
	}
}

func frontFace(f gpu.FrontFace) vk.FrontFace {
	if f == gpu.FrontFaceClockwise {
		return vk.FrontFaceClockwise
	}
	return vk.FrontFaceCounterClockwise
}

func topology(t gpu.PrimitiveTopology) vk.PrimitiveTopology {
	if t == gpu.PrimitiveTopologyTriangleStrip {
		return vk.PrimitiveTopologyTriangleStrip
	}
	return vk.PrimitiveTopologyTriangleList
}

func indexType(t gpu.IndexType) vk.IndexType {
	if t == gpu.IndexTypeUint32 {
		return vk.IndexTypeUint32
	}
	return vk.IndexTypeUint16
}

func loadOp(op gpu.LoadOp) vk.AttachmentLoadOp {
	switch op {
	case gpu.LoadOpClear:
		return vk.AttachmentLoadOpClear
	case gpu.LoadOpLoad:
		return vk.AttachmentLoadOpLoad
	default:
		return vk.AttachmentLoadOpDontCare
	}
}

func storeOp(op gpu.StoreOp) vk.AttachmentStoreOp {
	if op == gpu.StoreOpStore {
		return vk.AttachmentStoreOpStore
	}
	return vk.AttachmentStoreOpDontCare
}

func descriptorType(t gpu.DescriptorType) vk.DescriptorType {
	switch t {
	case gpu.DescriptorTypeUniformBufferDynamic:
		return vk.DescriptorTypeUniformBufferDynamic
	case gpu.DescriptorTypeSampledImage:
		return vk.DescriptorTypeSampledImage
	case gpu.DescriptorTypeSampler:
		return vk.DescriptorTypeSampler
	default:
		return vk.DescriptorTypeUniformBuffer
	}
}

func shaderStages(s gpu.ShaderStage) vk.ShaderStageFlags {
	var flags vk.ShaderStageFlagBits
	if s&gpu.ShaderStageVertex != 0 {
		flags |= vk.ShaderStageVertexBit
	}
	if s&gpu.ShaderStageFragment != 0 {
		flags |= vk.ShaderStageFragmentBit
	}
	return vk.ShaderStageFlags(flags)
}

func extent3D(e gpu.Extent3D) vk.Extent3D {
	return vk.Extent3D{Width: e.Width, Height: e.Height, Depth: max(e.Depth, 1)}
}

func offset3D(o gpu.Offset3D) vk.Offset3D {
	return vk.Offset3D{X: o.X, Y: o.Y, Z: o.Z}
}

func subresourceLayers(s gpu.SubresourceLayers) vk.ImageSubresourceLayers {
	return vk.ImageSubresourceLayers{
		AspectMask:     aspect(s.Aspect),
		MipLevel:       s.MipLevel,
		BaseArrayLayer: s.BaseArrayLayer,
		LayerCount:     max(s.LayerCount, 1),
	}
}

func subresourceRange(r gpu.SubresourceRange) vk.ImageSubresourceRange {
	levels, layers := r.LevelCount, r.LayerCount
	if levels == gpu.RemainingMipLevels {
		levels = vk.RemainingMipLevels
	}
	if layers == gpu.RemainingArrayLayers {
		layers = vk.RemainingArrayLayers
	}
	return vk.ImageSubresourceRange{
		AspectMask:     aspect(r.Aspect),
		BaseMipLevel:   r.BaseMipLevel,
		LevelCount:     max(levels, 1),
		BaseArrayLayer: r.BaseArrayLayer,
		LayerCount:     max(layers, 1),
	}
}
