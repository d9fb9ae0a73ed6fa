package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// targets holds the render passes and every image the passes render into.
// The swap targets depend on the surface size and are rebuilt on resize; the shadow
// targets depend only on the map dimension and cascade count.
type targets struct {
	mainPass   gpu.RenderPass
	shadowPass gpu.RenderPass
	samples    uint32

	// swap targets
	extent       gpu.Extent2D
	colorImage   gpu.Image
	colorView    gpu.ImageView
	depthImage   gpu.Image
	depthView    gpu.ImageView
	framebuffers []gpu.Framebuffer

	// shadow targets
	dimension           uint32
	cascadeImage        gpu.Image
	cascadeView         gpu.ImageView
	cascadeLayers       []gpu.ImageView
	cascadeFramebuffers []gpu.Framebuffer
	spotImage           gpu.Image
	spotView            gpu.ImageView
	spotFramebuffer     gpu.Framebuffer
	shadowSampler       gpu.Sampler
}

// multisampled reports whether the main pass renders into an MSAA color image resolved to the swapchain.
func (t *targets) multisampled() bool { return t.samples > 1 }

// createPasses creates the main and shadow render passes.
func (t *targets) createPasses(dev gpu.Device) error {
	var err error
	if t.mainPass, err = dev.CreateRenderPass(mainPassDescriptor(dev.SurfaceFormat(), t.samples)); err != nil {
		return fmt.Errorf("main pass: %w", err)
	}
	if t.shadowPass, err = dev.CreateRenderPass(shadowPassDescriptor()); err != nil {
		return fmt.Errorf("shadow pass: %w", err)
	}
	return nil
}

func mainPassDescriptor(surface gpu.Format, samples uint32) gpu.RenderPassDescriptor {
	depth := gpu.AttachmentDescription{
		Format:        gpu.FormatDepth32Float,
		Samples:       samples,
		LoadOp:        gpu.LoadOpClear,
		StoreOp:       gpu.StoreOpDontCare,
		InitialLayout: gpu.ImageLayoutUndefined,
		FinalLayout:   gpu.ImageLayoutDepthStencilAttachment,
	}
	present := gpu.AttachmentDescription{
		Format:        surface,
		Samples:       1,
		LoadOp:        gpu.LoadOpClear,
		StoreOp:       gpu.StoreOpStore,
		InitialLayout: gpu.ImageLayoutUndefined,
		FinalLayout:   gpu.ImageLayoutPresentSrc,
	}
	desc := gpu.RenderPassDescriptor{
		Label: "main pass",
		Dependencies: []gpu.SubpassDependency{{
			SrcSubpass: gpu.SubpassExternal,
			DstSubpass: 0,
			// Depth and MSAA color are shared by every frame in flight: the clear waits on the
			// previous frame's attachment writes.
			SrcStage:  gpu.PipelineStageColorAttachmentOutput | gpu.PipelineStageLateFragmentTests,
			DstStage:  gpu.PipelineStageColorAttachmentOutput | gpu.PipelineStageEarlyFragmentTests | gpu.PipelineStageLateFragmentTests,
			SrcAccess: gpu.AccessColorAttachmentWrite | gpu.AccessDepthStencilAttachmentWrite,
			DstAccess: gpu.AccessColorAttachmentWrite | gpu.AccessDepthStencilAttachmentWrite,
		}},
	}

	if samples <= 1 {
		desc.Attachments = []gpu.AttachmentDescription{present, depth}
		desc.Subpass = gpu.SubpassDescription{ColorAttachments: []int{0}, DepthAttachment: 1}
		return desc
	}

	color := gpu.AttachmentDescription{
		Format:        surface,
		Samples:       samples,
		LoadOp:        gpu.LoadOpClear,
		StoreOp:       gpu.StoreOpDontCare,
		InitialLayout: gpu.ImageLayoutUndefined,
		FinalLayout:   gpu.ImageLayoutColorAttachment,
	}
	present.LoadOp = gpu.LoadOpDontCare
	desc.Attachments = []gpu.AttachmentDescription{color, depth, present}
	desc.Subpass = gpu.SubpassDescription{
		ColorAttachments:   []int{0},
		ResolveAttachments: []int{2},
		DepthAttachment:    1,
	}
	return desc
}

// shadowPassDescriptor is a depth-only pass whose attachment ends up readable by the main pass.
func shadowPassDescriptor() gpu.RenderPassDescriptor {
	return gpu.RenderPassDescriptor{
		Label: "shadow pass",
		Attachments: []gpu.AttachmentDescription{{
			Format:        gpu.FormatDepth32Float,
			Samples:       1,
			LoadOp:        gpu.LoadOpClear,
			StoreOp:       gpu.StoreOpStore,
			InitialLayout: gpu.ImageLayoutUndefined,
			FinalLayout:   gpu.ImageLayoutShaderReadOnly,
		}},
		Subpass: gpu.SubpassDescription{DepthAttachment: 0},
		Dependencies: []gpu.SubpassDependency{
			{
				SrcSubpass: gpu.SubpassExternal,
				DstSubpass: 0,
				SrcStage:   gpu.PipelineStageFragmentShader,
				DstStage:   gpu.PipelineStageEarlyFragmentTests,
				SrcAccess:  gpu.AccessShaderRead,
				DstAccess:  gpu.AccessDepthStencilAttachmentWrite,
				ByRegion:   true,
			},
			{
				SrcSubpass: 0,
				DstSubpass: gpu.SubpassExternal,
				SrcStage:   gpu.PipelineStageLateFragmentTests,
				DstStage:   gpu.PipelineStageFragmentShader,
				SrcAccess:  gpu.AccessDepthStencilAttachmentWrite,
				DstAccess:  gpu.AccessShaderRead,
				ByRegion:   true,
			},
		},
	}
}

// createSwapTargets creates the depth image, the MSAA color image when multisampling,
// and one framebuffer per swapchain image.
func (t *targets) createSwapTargets(dev gpu.Device) error {
	t.extent = dev.SwapchainExtent()
	var err error

	if t.multisampled() {
		t.colorImage, t.colorView, err = createAttachment(dev, "msaa color", t.extent, dev.SurfaceFormat(),
			gpu.ImageUsageColorAttachment|gpu.ImageUsageTransientAttachment, t.samples, gpu.ImageAspectColor)
		if err != nil {
			return err
		}
	}
	t.depthImage, t.depthView, err = createAttachment(dev, "depth", t.extent, gpu.FormatDepth32Float,
		gpu.ImageUsageDepthStencilAttachment, t.samples, gpu.ImageAspectDepth)
	if err != nil {
		return err
	}

	views := dev.SwapchainImageViews()
	t.framebuffers = make([]gpu.Framebuffer, 0, len(views))
	for i, view := range views {
		attachments := []gpu.ImageView{view, t.depthView}
		if t.multisampled() {
			attachments = []gpu.ImageView{t.colorView, t.depthView, view}
		}
		fb, err := dev.CreateFramebuffer(gpu.FramebufferDescriptor{
			Label:       fmt.Sprintf("main framebuffer %d", i),
			RenderPass:  t.mainPass,
			Attachments: attachments,
			Extent:      t.extent,
			Layers:      1,
		})
		if err != nil {
			return fmt.Errorf("main framebuffer %d: %w", i, err)
		}
		t.framebuffers = append(t.framebuffers, fb)
	}
	return nil
}

func (t *targets) destroySwapTargets(dev gpu.Device) {
	for _, fb := range t.framebuffers {
		dev.DestroyFramebuffer(fb)
	}
	t.framebuffers = nil
	dev.DestroyImageView(t.depthView)
	dev.DestroyImage(t.depthImage)
	dev.DestroyImageView(t.colorView)
	dev.DestroyImage(t.colorImage)
	t.depthView, t.depthImage, t.colorView, t.colorImage = 0, 0, 0, 0
}

// createShadowTargets creates the layered cascade map with one single-layer view and framebuffer
// per cascade, the spot map and the comparison sampler both maps are read with.
func (t *targets) createShadowTargets(dev gpu.Device, dimension uint32, cascades int) error {
	t.dimension = dimension
	extent := gpu.Extent2D{Width: dimension, Height: dimension}
	usage := gpu.ImageUsageDepthStencilAttachment | gpu.ImageUsageSampled

	var err error
	t.cascadeImage, err = dev.CreateImage(gpu.ImageDescriptor{
		Label:       "cascade shadow map",
		Extent:      extent,
		MipLevels:   1,
		ArrayLayers: uint32(cascades),
		Format:      gpu.FormatDepth32Float,
		Usage:       usage,
		Samples:     1,
	})
	if err != nil {
		return fmt.Errorf("cascade shadow map: %w", err)
	}
	t.cascadeView, err = dev.CreateImageView(gpu.ImageViewDescriptor{
		Label:    "cascade shadow map",
		Image:    t.cascadeImage,
		ViewType: gpu.ImageViewType2DArray,
		Format:   gpu.FormatDepth32Float,
		Range:    gpu.SubresourceRange{Aspect: gpu.ImageAspectDepth, LevelCount: 1, LayerCount: uint32(cascades)},
	})
	if err != nil {
		return fmt.Errorf("cascade shadow map view: %w", err)
	}

	for i := range cascades {
		layer, err := dev.CreateImageView(gpu.ImageViewDescriptor{
			Label:    fmt.Sprintf("cascade %d", i),
			Image:    t.cascadeImage,
			ViewType: gpu.ImageViewType2D,
			Format:   gpu.FormatDepth32Float,
			Range:    gpu.SubresourceRange{Aspect: gpu.ImageAspectDepth, LevelCount: 1, BaseArrayLayer: uint32(i), LayerCount: 1},
		})
		if err != nil {
			return fmt.Errorf("cascade %d view: %w", i, err)
		}
		t.cascadeLayers = append(t.cascadeLayers, layer)

		fb, err := t.shadowFramebuffer(dev, fmt.Sprintf("cascade %d", i), layer)
		if err != nil {
			return err
		}
		t.cascadeFramebuffers = append(t.cascadeFramebuffers, fb)
	}

	t.spotImage, t.spotView, err = createAttachment(dev, "spot shadow map", extent, gpu.FormatDepth32Float, usage, 1, gpu.ImageAspectDepth)
	if err != nil {
		return err
	}
	if t.spotFramebuffer, err = t.shadowFramebuffer(dev, "spot shadow", t.spotView); err != nil {
		return err
	}

	t.shadowSampler, err = dev.CreateSampler(gpu.SamplerDescriptor{
		Label:       "shadow comparison",
		MagFilter:   gpu.FilterLinear,
		MinFilter:   gpu.FilterLinear,
		MipFilter:   gpu.FilterNearest,
		AddressMode: gpu.AddressModeClampToEdge,
		MaxLod:      1,
		Compare:     true,
	})
	if err != nil {
		return fmt.Errorf("shadow sampler: %w", err)
	}
	return nil
}

func (t *targets) shadowFramebuffer(dev gpu.Device, label string, view gpu.ImageView) (gpu.Framebuffer, error) {
	fb, err := dev.CreateFramebuffer(gpu.FramebufferDescriptor{
		Label:       label,
		RenderPass:  t.shadowPass,
		Attachments: []gpu.ImageView{view},
		Extent:      gpu.Extent2D{Width: t.dimension, Height: t.dimension},
		Layers:      1,
	})
	if err != nil {
		return 0, fmt.Errorf("%s framebuffer: %w", label, err)
	}
	return fb, nil
}

func (t *targets) destroyShadowTargets(dev gpu.Device) {
	dev.DestroySampler(t.shadowSampler)
	dev.DestroyFramebuffer(t.spotFramebuffer)
	dev.DestroyImageView(t.spotView)
	dev.DestroyImage(t.spotImage)
	for _, fb := range t.cascadeFramebuffers {
		dev.DestroyFramebuffer(fb)
	}
	for _, v := range t.cascadeLayers {
		dev.DestroyImageView(v)
	}
	dev.DestroyImageView(t.cascadeView)
	dev.DestroyImage(t.cascadeImage)
	t.cascadeFramebuffers, t.cascadeLayers = nil, nil
	t.shadowSampler, t.spotFramebuffer, t.spotView, t.spotImage = 0, 0, 0, 0
	t.cascadeView, t.cascadeImage = 0, 0
}

// destroy releases every target and both passes. Null handles are skipped by the device.
func (t *targets) destroy(dev gpu.Device) {
	t.destroySwapTargets(dev)
	t.destroyShadowTargets(dev)
	dev.DestroyRenderPass(t.shadowPass)
	dev.DestroyRenderPass(t.mainPass)
	t.shadowPass, t.mainPass = 0, 0
}

// mainClearValues returns one clear value per main pass attachment.
func (t *targets) mainClearValues(color [4]float32) []gpu.ClearValue {
	if t.multisampled() {
		return []gpu.ClearValue{{Color: color}, {Depth: 1}, {}}
	}
	return []gpu.ClearValue{{Color: color}, {Depth: 1}}
}

func createAttachment(dev gpu.Device, label string, extent gpu.Extent2D, format gpu.Format, usage gpu.ImageUsage, samples uint32, aspect gpu.ImageAspect) (gpu.Image, gpu.ImageView, error) {
	img, err := dev.CreateImage(gpu.ImageDescriptor{
		Label:       label,
		Extent:      extent,
		MipLevels:   1,
		ArrayLayers: 1,
		Format:      format,
		Usage:       usage,
		Samples:     samples,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("%s image: %w", label, err)
	}
	view, err := dev.CreateImageView(gpu.ImageViewDescriptor{
		Label:    label,
		Image:    img,
		ViewType: gpu.ImageViewType2D,
		Format:   format,
		Range:    gpu.SubresourceRange{Aspect: aspect, LevelCount: 1, LayerCount: 1},
	})
	if err != nil {
		dev.DestroyImage(img)
		return 0, 0, fmt.Errorf("%s view: %w", label, err)
	}
	return img, view, nil
}
