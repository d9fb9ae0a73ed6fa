package gpu

// Opaque object handles returned by a Device. The zero value of every handle
// type is the null handle and is never returned by a successful create call.
type (
	Buffer              uint64
	Image               uint64
	ImageView           uint64
	Sampler             uint64
	RenderPass          uint64
	Framebuffer         uint64
	ShaderModule        uint64
	DescriptorSetLayout uint64
	DescriptorSet       uint64
	PipelineLayout      uint64
	Pipeline            uint64
	Fence               uint64
	Semaphore           uint64
	CommandBuffer       uint64
)

// SubpassExternal refers to work outside the render pass in a SubpassDependency.
const SubpassExternal = ^uint32(0)

// AttachmentUnused marks an absent attachment reference in a SubpassDescription.
const AttachmentUnused = -1

// RemainingMipLevels and RemainingArrayLayers select everything from the base onwards.
const (
	RemainingMipLevels   = ^uint32(0)
	RemainingArrayLayers = ^uint32(0)
)

// BufferUsage is a bit set describing how a buffer is bound.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageTransferSrc
	BufferUsageTransferDst
)

// Format enumerates the pixel and vertex formats the engine uses.
type Format int

const (
	FormatUndefined Format = iota
	FormatRGBA8Unorm
	FormatRGBA8Srgb
	FormatBGRA8Unorm
	FormatBGRA8Srgb
	FormatDepth32Float
	FormatR32G32Float
	FormatR32G32B32Float
	FormatR32G32B32A32Float
)

// IsDepth reports whether the format carries a depth aspect.
func (f Format) IsDepth() bool {
	return f == FormatDepth32Float
}

// BytesPerPixel returns the texel size for color and depth formats and the element size for vertex formats.
func (f Format) BytesPerPixel() uint32 {
	switch f {
	case FormatRGBA8Unorm, FormatRGBA8Srgb, FormatBGRA8Unorm, FormatBGRA8Srgb, FormatDepth32Float:
		return 4
	case FormatR32G32Float:
		return 8
	case FormatR32G32B32Float:
		return 12
	case FormatR32G32B32A32Float:
		return 16
	default:
		return 0
	}
}

// ImageUsage is a bit set describing how an image is accessed.
type ImageUsage uint32

const (
	ImageUsageTransferSrc ImageUsage = 1 << iota
	ImageUsageTransferDst
	ImageUsageSampled
	ImageUsageColorAttachment
	ImageUsageDepthStencilAttachment
	ImageUsageTransientAttachment
)

// ImageLayout is the memory layout an image subresource is in.
type ImageLayout int

const (
	ImageLayoutUndefined ImageLayout = iota
	ImageLayoutTransferDst
	ImageLayoutTransferSrc
	ImageLayoutShaderReadOnly
	ImageLayoutColorAttachment
	ImageLayoutDepthStencilAttachment
	ImageLayoutPresentSrc
)

// ImageAspect selects the color or depth aspect of an image.
type ImageAspect uint32

const (
	ImageAspectColor ImageAspect = 1 << iota
	ImageAspectDepth
)

// ImageViewType is the dimensionality of an image view.
type ImageViewType int

const (
	ImageViewType2D ImageViewType = iota
	ImageViewType2DArray
	ImageViewTypeCube
)

// PipelineStage is a bit set of pipeline stages used by barriers, dependencies and submissions.
type PipelineStage uint32

const (
	PipelineStageTopOfPipe PipelineStage = 1 << iota
	PipelineStageVertexShader
	PipelineStageFragmentShader
	PipelineStageEarlyFragmentTests
	PipelineStageLateFragmentTests
	PipelineStageColorAttachmentOutput
	PipelineStageTransfer
	PipelineStageBottomOfPipe
)

// Access is a bit set of memory access kinds used by barriers and dependencies.
type Access uint32

const (
	AccessNone Access = 0
)

const (
	AccessTransferRead Access = 1 << iota
	AccessTransferWrite
	AccessShaderRead
	AccessColorAttachmentRead
	AccessColorAttachmentWrite
	AccessDepthStencilAttachmentRead
	AccessDepthStencilAttachmentWrite
	AccessMemoryRead
)

// Filter is a texel filtering mode.
type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

// AddressMode controls sampling outside [0,1].
type AddressMode int

const (
	AddressModeRepeat AddressMode = iota
	AddressModeClampToEdge
	AddressModeClampToBorder
)

// LoadOp is what happens to an attachment at the start of a render pass.
type LoadOp int

const (
	LoadOpDontCare LoadOp = iota
	LoadOpClear
	LoadOpLoad
)

// StoreOp is what happens to an attachment at the end of a render pass.
type StoreOp int

const (
	StoreOpDontCare StoreOp = iota
	StoreOpStore
)

// DescriptorType is the kind of resource a descriptor binding references.
type DescriptorType int

const (
	DescriptorTypeUniformBuffer DescriptorType = iota
	DescriptorTypeUniformBufferDynamic
	DescriptorTypeSampledImage
	DescriptorTypeSampler
)

// ShaderFormat is the shader code a device accepts in CreateShaderModule.
type ShaderFormat int

const (
	ShaderFormatWGSL ShaderFormat = iota
	ShaderFormatSPIRV
)

// ShaderStage is a bit set of shader stages a binding is visible to.
type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
)

// CullMode selects which faces are discarded.
type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

// FrontFace is the winding order of front-facing triangles.
type FrontFace int

const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

// CompareOp is a depth comparison function.
type CompareOp int

const (
	CompareOpLess CompareOp = iota
	CompareOpLessOrEqual
	CompareOpAlways
)

// PrimitiveTopology is how vertices are assembled into primitives.
type PrimitiveTopology int

const (
	PrimitiveTopologyTriangleList PrimitiveTopology = iota
	PrimitiveTopologyTriangleStrip
)

// IndexType is the element type of an index buffer.
type IndexType int

const (
	IndexTypeUint16 IndexType = iota
	IndexTypeUint32
)

// CommandBufferUsage is a bit set of hints passed when recording begins.
type CommandBufferUsage uint32

const (
	CommandBufferUsageOneTimeSubmit CommandBufferUsage = 1 << iota
)

// CommandBufferReset is a bit set of flags passed when a command buffer is reset.
type CommandBufferReset uint32

const (
	CommandBufferResetReleaseResources CommandBufferReset = 1 << iota
)

// Extent2D is a width and height in texels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// Extent3D is a width, height and depth in texels.
type Extent3D struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

// Offset3D is a signed texel offset.
type Offset3D struct {
	X int32
	Y int32
	Z int32
}

// SubresourceRange selects mip levels and array layers of an image.
type SubresourceRange struct {
	Aspect         ImageAspect
	BaseMipLevel   uint32
	LevelCount     uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

// SubresourceLayers selects a single mip level and a range of array layers of an image.
type SubresourceLayers struct {
	Aspect         ImageAspect
	MipLevel       uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

// Limits carries the device capabilities the engine consumes as plain values.
type Limits struct {
	MinUniformBufferOffsetAlignment uint64
	MaxSampleCount                  uint32
}

// BufferDescriptor describes a host-visible, host-coherent buffer allocation.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// ImageDescriptor describes a 2D image, optionally layered or cube compatible.
type ImageDescriptor struct {
	Label          string
	Extent         Extent2D
	MipLevels      uint32
	ArrayLayers    uint32
	Format         Format
	Usage          ImageUsage
	Samples        uint32
	CubeCompatible bool
}

// ImageViewDescriptor describes a view over a subresource range of an image.
type ImageViewDescriptor struct {
	Label    string
	Image    Image
	ViewType ImageViewType
	Format   Format
	Range    SubresourceRange
}

// SamplerDescriptor describes a sampler. Compare enables less-or-equal depth comparison.
type SamplerDescriptor struct {
	Label       string
	MagFilter   Filter
	MinFilter   Filter
	MipFilter   Filter
	AddressMode AddressMode
	MaxLod      float32
	Compare     bool
}

// AttachmentDescription describes one attachment of a render pass.
type AttachmentDescription struct {
	Format        Format
	Samples       uint32
	LoadOp        LoadOp
	StoreOp       StoreOp
	InitialLayout ImageLayout
	FinalLayout   ImageLayout
}

// SubpassDescription references attachments by index into RenderPassDescriptor.Attachments.
// DepthAttachment is AttachmentUnused when the subpass has no depth attachment.
type SubpassDescription struct {
	ColorAttachments   []int
	ResolveAttachments []int
	DepthAttachment    int
}

// SubpassDependency is an execution and memory dependency between subpasses.
type SubpassDependency struct {
	SrcSubpass uint32
	DstSubpass uint32
	SrcStage   PipelineStage
	DstStage   PipelineStage
	SrcAccess  Access
	DstAccess  Access
	ByRegion   bool
}

// RenderPassDescriptor describes a single-subpass render pass.
type RenderPassDescriptor struct {
	Label        string
	Attachments  []AttachmentDescription
	Subpass      SubpassDescription
	Dependencies []SubpassDependency
}

// FramebufferDescriptor binds image views to the attachments of a render pass.
type FramebufferDescriptor struct {
	Label       string
	RenderPass  RenderPass
	Attachments []ImageView
	Extent      Extent2D
	Layers      uint32
}

// DescriptorBinding is one entry of a descriptor set layout.
// ViewType and DepthTexture only describe sampled image bindings and Comparison
// only describes sampler bindings; backends that need the texture shape at layout
// time (WebGPU) read them, others ignore them.
type DescriptorBinding struct {
	Binding      uint32
	Type         DescriptorType
	Stages       ShaderStage
	ViewType     ImageViewType
	DepthTexture bool
	Comparison   bool
}

// DescriptorWrite updates one binding of a descriptor set with a buffer range, an image view or a sampler.
type DescriptorWrite struct {
	Binding   uint32
	Buffer    Buffer
	Offset    uint64
	Range     uint64
	ImageView ImageView
	Sampler   Sampler
}

// VertexAttribute is one attribute of a vertex buffer layout.
type VertexAttribute struct {
	Location uint32
	Format   Format
	Offset   uint32
}

// VertexLayout describes one per-vertex buffer binding.
type VertexLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

// ShaderStageDescriptor names the entry point of a shader module.
type ShaderStageDescriptor struct {
	Module     ShaderModule
	EntryPoint string
}

// DepthBias configures polygon offset. When Dynamic is set the values are supplied
// per draw through CmdSetDepthBias and the static values act as the fallback.
type DepthBias struct {
	Enabled  bool
	Dynamic  bool
	Constant float32
	Clamp    float32
	Slope    float32
}

// PipelineDescriptor describes a graphics pipeline. Fragment is nil for depth-only pipelines.
type PipelineDescriptor struct {
	Label         string
	Layout        PipelineLayout
	RenderPass    RenderPass
	Vertex        ShaderStageDescriptor
	Fragment      *ShaderStageDescriptor
	VertexLayouts []VertexLayout
	Topology      PrimitiveTopology
	CullMode      CullMode
	FrontFace     FrontFace
	DepthTest     bool
	DepthWrite    bool
	DepthCompare  CompareOp
	DepthBias     DepthBias
	Samples       uint32
	Blend         bool
}

// ImageBarrier is a pipeline barrier scoped to one image subresource range.
type ImageBarrier struct {
	Image     Image
	OldLayout ImageLayout
	NewLayout ImageLayout
	SrcAccess Access
	DstAccess Access
	SrcStage  PipelineStage
	DstStage  PipelineStage
	Range     SubresourceRange
}

// BufferImageCopy copies tightly packed texels from a buffer into an image.
type BufferImageCopy struct {
	BufferOffset uint64
	Subresource  SubresourceLayers
	Offset       Offset3D
	Extent       Extent3D
}

// ImageBlit scales the SrcOffsets box into the DstOffsets box.
type ImageBlit struct {
	SrcSubresource SubresourceLayers
	SrcOffsets     [2]Offset3D
	DstSubresource SubresourceLayers
	DstOffsets     [2]Offset3D
}

// ClearValue holds the clear color for color attachments and the clear depth for depth attachments.
type ClearValue struct {
	Color [4]float32
	Depth float32
}

// RenderPassBegin starts a render pass instance on a framebuffer.
type RenderPassBegin struct {
	RenderPass  RenderPass
	Framebuffer Framebuffer
	Area        Extent2D
	ClearValues []ClearValue
}

// SubmitInfo is one queue submission. WaitStages pairs with WaitSemaphores.
type SubmitInfo struct {
	CommandBuffers   []CommandBuffer
	WaitSemaphores   []Semaphore
	WaitStages       []PipelineStage
	SignalSemaphores []Semaphore
}

// PresentInfo presents one acquired swapchain image.
type PresentInfo struct {
	WaitSemaphores []Semaphore
	ImageIndex     uint32
}
