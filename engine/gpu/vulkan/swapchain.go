package vulkan

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	vk "github.com/vulkan-go/vulkan"
)

// chooseSurfaceFormat prefers sRGB BGRA with the sRGB color space.
func chooseSurfaceFormat(available []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range available {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	if len(available) == 0 {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	}
	return available[0]
}

// choosePresentMode returns FIFO for vsync, otherwise mailbox, then immediate, then FIFO.
func choosePresentMode(available []vk.PresentMode, vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	for _, want := range []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeImmediate} {
		for _, m := range available {
			if m == want {
				return m
			}
		}
	}
	return vk.PresentModeFifo
}

// swapExtent uses the surface's current extent when it is fixed and clamps the requested size otherwise.
func swapExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != ^uint32(0) && caps.CurrentExtent.Width != 0 && caps.CurrentExtent.Height != 0 {
		return caps.CurrentExtent
	}
	lo, hi := caps.MinImageExtent, caps.MaxImageExtent
	if hi.Width == 0 {
		hi.Width = width
	}
	if hi.Height == 0 {
		hi.Height = height
	}
	return vk.Extent2D{
		Width:  min(max(width, lo.Width, 1), max(hi.Width, 1)),
		Height: min(max(height, lo.Height, 1), max(hi.Height, 1)),
	}
}

// createSwapchain creates the swapchain, replacing the current one if any. The surface
// format and present mode are picked on the first call and kept afterwards.
func (d *Device) createSwapchain(width, height uint32) error {
	var caps vk.SurfaceCapabilities
	if err := check(vk.GetPhysicalDeviceSurfaceCapabilities(d.physicalDevice, d.surface, &caps), "surface capabilities", gpu.ErrSurfaceOutOfDate); err != nil {
		return err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	if d.swapchain == vk.Swapchain(vk.NullHandle) {
		var count uint32
		vk.GetPhysicalDeviceSurfaceFormats(d.physicalDevice, d.surface, &count, nil)
		formats := make([]vk.SurfaceFormat, count)
		vk.GetPhysicalDeviceSurfaceFormats(d.physicalDevice, d.surface, &count, formats)
		for i := range formats {
			formats[i].Deref()
		}
		d.surfaceFormat = chooseSurfaceFormat(formats)

		vk.GetPhysicalDeviceSurfacePresentModes(d.physicalDevice, d.surface, &count, nil)
		modes := make([]vk.PresentMode, count)
		vk.GetPhysicalDeviceSurfacePresentModes(d.physicalDevice, d.surface, &count, modes)
		d.presentMode = choosePresentMode(modes, d.vsync)
	}

	extent := swapExtent(caps, width, height)
	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.surface,
		MinImageCount:    imageCount,
		ImageFormat:      d.surfaceFormat.Format,
		ImageColorSpace:  d.surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      d.presentMode,
		Clipped:          vk.True,
		OldSwapchain:     d.swapchain,
	}
	if d.graphicsFamily != d.presentFamily {
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = 2
		info.PQueueFamilyIndices = []uint32{d.graphicsFamily, d.presentFamily}
	}

	var sc vk.Swapchain
	if err := check(vk.CreateSwapchain(d.device, &info, nil, &sc), "create swapchain", gpu.ErrSurfaceOutOfDate); err != nil {
		return err
	}
	d.destroySwapchain()
	d.swapchain = sc
	d.suboptimal = false

	var count uint32
	vk.GetSwapchainImages(d.device, sc, &count, nil)
	d.swapImages = make([]vk.Image, count)
	vk.GetSwapchainImages(d.device, sc, &count, d.swapImages)

	d.swapViews = make([]gpu.ImageView, 0, count)
	for i, img := range d.swapImages {
		view, err := d.newView(img, vk.ImageViewType2d, d.surfaceFormat.Format, vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		})
		if err != nil {
			return fmt.Errorf("swapchain image view %d: %w", i, err)
		}
		h := gpu.ImageView(d.alloc())
		d.views[h] = &imageView{handle: view, swap: true}
		d.swapViews = append(d.swapViews, h)
	}
	d.extent = gpu.Extent2D{Width: extent.Width, Height: extent.Height}
	return nil
}

// destroySwapchain destroys the swapchain and its views. Called with the lock held.
func (d *Device) destroySwapchain() {
	for _, h := range d.swapViews {
		d.destroyImageView(h)
	}
	d.swapViews = nil
	d.swapImages = nil
	if d.swapchain != vk.Swapchain(vk.NullHandle) {
		vk.DestroySwapchain(d.device, d.swapchain, nil)
		d.swapchain = vk.Swapchain(vk.NullHandle)
	}
}
