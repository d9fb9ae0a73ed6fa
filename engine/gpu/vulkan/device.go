// Package vulkan implements gpu.Device on Vulkan through the vulkan-go bindings.
//
// One Device owns the instance, the window surface, a logical device with a graphics
// and a present queue, one resettable command pool, one descriptor pool and the
// swapchain. Buffers live in host-visible coherent memory and stay mapped for their
// lifetime; images live in device-local memory.
package vulkan

import (
	"fmt"
	"log"
	"sync"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	vk "github.com/vulkan-go/vulkan"
)

const (
	validationLayer   = "VK_LAYER_KHRONOS_validation"
	debugReportExt    = "VK_EXT_debug_report"
	swapchainExt      = "VK_KHR_swapchain"
	defaultPoolSets   = 1024
	descriptorsPerSet = 4
)

// Surface is the window side of a Vulkan device. engine/window implements it on GLFW.
type Surface interface {
	// InstanceProcAddr returns the loader's vkGetInstanceProcAddr.
	InstanceProcAddr() unsafe.Pointer

	// RequiredInstanceExtensions lists the instance extensions presentation needs.
	RequiredInstanceExtensions() []string

	// CreateVulkanSurface creates the presentation surface for the instance.
	CreateVulkanSurface(instance vk.Instance) (vk.Surface, error)
}

type buffer struct {
	desc   gpu.BufferDescriptor
	handle vk.Buffer
	memory vk.DeviceMemory
	mapped unsafe.Pointer
}

type image struct {
	desc   gpu.ImageDescriptor
	handle vk.Image
	memory vk.DeviceMemory
}

type imageView struct {
	handle vk.ImageView
	// swap marks views owned by the swapchain; they are destroyed with it.
	swap bool
}

type renderPass struct {
	desc   gpu.RenderPassDescriptor
	handle vk.RenderPass
}

type framebuffer struct {
	desc   gpu.FramebufferDescriptor
	handle vk.Framebuffer
}

type setLayout struct {
	bindings []gpu.DescriptorBinding
	handle   vk.DescriptorSetLayout
}

type descriptorSet struct {
	layout *setLayout
	handle vk.DescriptorSet
}

type commandBuffer struct {
	handle vk.CommandBuffer
	// first recording error, reported by EndCommandBuffer
	err error
}

// Device is a gpu.Device backed by a Vulkan logical device.
type Device struct {
	mu   sync.Mutex
	next uint64

	appName    string
	validation bool
	vsync      bool
	poolSets   uint32

	instance       vk.Instance
	debugCallback  vk.DebugReportCallback
	surface        vk.Surface
	physicalDevice vk.PhysicalDevice
	device         vk.Device
	graphicsFamily uint32
	presentFamily  uint32
	graphicsQueue  vk.Queue
	presentQueue   vk.Queue
	memoryTypes    []vk.MemoryPropertyFlags
	limits         gpu.Limits
	commandPool    vk.CommandPool
	descriptorPool vk.DescriptorPool

	surfaceFormat vk.SurfaceFormat
	presentMode   vk.PresentMode
	swapchain     vk.Swapchain
	swapImages    []vk.Image
	swapViews     []gpu.ImageView
	extent        gpu.Extent2D
	suboptimal    bool

	buffers         map[gpu.Buffer]*buffer
	images          map[gpu.Image]*image
	views           map[gpu.ImageView]*imageView
	samplers        map[gpu.Sampler]vk.Sampler
	renderPasses    map[gpu.RenderPass]*renderPass
	framebuffers    map[gpu.Framebuffer]*framebuffer
	shaders         map[gpu.ShaderModule]vk.ShaderModule
	setLayouts      map[gpu.DescriptorSetLayout]*setLayout
	sets            map[gpu.DescriptorSet]*descriptorSet
	pipelineLayouts map[gpu.PipelineLayout]vk.PipelineLayout
	pipelines       map[gpu.Pipeline]vk.Pipeline
	fences          map[gpu.Fence]vk.Fence
	semaphores      map[gpu.Semaphore]vk.Semaphore
	commandBuffers  map[gpu.CommandBuffer]*commandBuffer
}

var _ gpu.Device = &Device{}

// New creates a Vulkan device presenting to the window surface.
//
// Parameters:
//   - surface: the window providing the loader entry point and the presentation surface
//   - width, height: the initial swapchain size in pixels
//   - options: DeviceBuilderOption values
//
// Returns:
//   - *Device: the device
//   - error: wraps gpu.ErrSetupFailure when any creation step fails; everything created so far is released
func New(surface Surface, width, height uint32, options ...DeviceBuilderOption) (*Device, error) {
	if surface == nil {
		return nil, fmt.Errorf("vulkan: nil surface: %w", gpu.ErrSetupFailure)
	}
	d := &Device{
		appName:         "oxy-vk",
		vsync:           true,
		poolSets:        defaultPoolSets,
		buffers:         make(map[gpu.Buffer]*buffer),
		images:          make(map[gpu.Image]*image),
		views:           make(map[gpu.ImageView]*imageView),
		samplers:        make(map[gpu.Sampler]vk.Sampler),
		renderPasses:    make(map[gpu.RenderPass]*renderPass),
		framebuffers:    make(map[gpu.Framebuffer]*framebuffer),
		shaders:         make(map[gpu.ShaderModule]vk.ShaderModule),
		setLayouts:      make(map[gpu.DescriptorSetLayout]*setLayout),
		sets:            make(map[gpu.DescriptorSet]*descriptorSet),
		pipelineLayouts: make(map[gpu.PipelineLayout]vk.PipelineLayout),
		pipelines:       make(map[gpu.Pipeline]vk.Pipeline),
		fences:          make(map[gpu.Fence]vk.Fence),
		semaphores:      make(map[gpu.Semaphore]vk.Semaphore),
		commandBuffers:  make(map[gpu.CommandBuffer]*commandBuffer),
	}
	for _, opt := range options {
		opt(d)
	}

	vk.SetGetInstanceProcAddr(surface.InstanceProcAddr())
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vulkan: load: %w: %w", gpu.ErrSetupFailure, err)
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"instance", func() error { return d.createInstance(surface.RequiredInstanceExtensions()) }},
		{"surface", func() error {
			s, err := surface.CreateVulkanSurface(d.instance)
			d.surface = s
			return err
		}},
		{"physical device", d.pickPhysicalDevice},
		{"logical device", d.createLogicalDevice},
		{"pools", d.createPools},
		{"swapchain", func() error { return d.createSwapchain(width, height) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			d.Close()
			return nil, fmt.Errorf("vulkan: create %s: %w", step.name, setupError(err))
		}
	}

	log.Printf("[Vulkan] device ready: swapchain %dx%d, %d images, format %v", d.extent.Width, d.extent.Height, len(d.swapImages), d.surfaceFormat.Format)
	return d, nil
}

func (d *Device) createInstance(extensions []string) error {
	if d.validation && !layerAvailable(validationLayer) {
		log.Printf("[Vulkan] %s not available, continuing without validation", validationLayer)
		d.validation = false
	}
	var layers []string
	if d.validation {
		layers = append(layers, validationLayer)
		extensions = append(extensions, debugReportExt)
	}

	var instance vk.Instance
	res := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   safeString(d.appName),
			ApplicationVersion: vk.MakeVersion(0, 1, 0),
			PEngineName:        safeString("oxy-vk"),
			EngineVersion:      vk.MakeVersion(0, 1, 0),
			ApiVersion:         vk.MakeVersion(1, 1, 0),
		},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}, nil, &instance)
	if err := check(res, "create instance", gpu.ErrSetupFailure); err != nil {
		return err
	}
	d.instance = instance
	if err := vk.InitInstance(instance); err != nil {
		return err
	}
	if d.validation {
		return d.createDebugCallback()
	}
	return nil
}

func layerAvailable(name string) bool {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return false
	}
	props := make([]vk.LayerProperties, count)
	if vk.EnumerateInstanceLayerProperties(&count, props) != vk.Success {
		return false
	}
	for i := range props {
		props[i].Deref()
		if vk.ToString(props[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

func (d *Device) createDebugCallback() error {
	var cb vk.DebugReportCallback
	res := vk.CreateDebugReportCallback(d.instance, &vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: func(flags vk.DebugReportFlags, _ vk.DebugReportObjectType, _ uint64, _ uint, code int32, prefix string, message string, _ unsafe.Pointer) vk.Bool32 {
			log.Printf("[Vulkan] %s (%d): %s", prefix, code, message)
			return vk.False
		},
	}, nil, &cb)
	if err := check(res, "create debug callback", gpu.ErrSetupFailure); err != nil {
		return err
	}
	d.debugCallback = cb
	return nil
}

// deviceScore ranks physical device types; discrete GPUs win.
func deviceScore(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 1000
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 500
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 200
	default:
		return 100
	}
}

func (d *Device) pickPhysicalDevice() error {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(d.instance, &count, nil); res != vk.Success || count == 0 {
		return fmt.Errorf("no Vulkan devices: %w", gpu.ErrSetupFailure)
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := check(vk.EnumeratePhysicalDevices(d.instance, &count, devices), "enumerate devices", gpu.ErrSetupFailure); err != nil {
		return err
	}

	best := -1
	for _, pd := range devices {
		graphics, present, ok := d.queueFamilies(pd)
		if !ok || !extensionAvailable(pd, swapchainExt) {
			continue
		}
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &props)
		props.Deref()
		if score := deviceScore(props.DeviceType); score > best {
			best = score
			d.physicalDevice, d.graphicsFamily, d.presentFamily = pd, graphics, present
			props.Limits.Deref()
			d.limits = gpu.Limits{
				MinUniformBufferOffsetAlignment: max(uint64(props.Limits.MinUniformBufferOffsetAlignment), 1),
				MaxSampleCount:                  maxSampleCount(props.Limits.FramebufferColorSampleCounts & props.Limits.FramebufferDepthSampleCounts),
			}
			log.Printf("[Vulkan] candidate %q (type %d, score %d)", vk.ToString(props.DeviceName[:]), props.DeviceType, score)
		}
	}
	if best < 0 {
		return fmt.Errorf("no device with graphics, present and swapchain support: %w", gpu.ErrSetupFailure)
	}

	var mem vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d.physicalDevice, &mem)
	mem.Deref()
	d.memoryTypes = make([]vk.MemoryPropertyFlags, mem.MemoryTypeCount)
	for i := range d.memoryTypes {
		mem.MemoryTypes[i].Deref()
		d.memoryTypes[i] = mem.MemoryTypes[i].PropertyFlags
	}
	return nil
}

// maxSampleCount returns the largest single sample count in a sample count mask.
func maxSampleCount(counts vk.SampleCountFlags) uint32 {
	for n := uint32(64); n > 1; n >>= 1 {
		if counts&vk.SampleCountFlags(n) != 0 {
			return n
		}
	}
	return 1
}

func (d *Device) queueFamilies(pd vk.PhysicalDevice) (graphics, present uint32, ok bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, props)

	hasGraphics, hasPresent := false, false
	for i := range props {
		props[i].Deref()
		family := uint32(i)
		var supported vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(pd, family, d.surface, &supported)
		isGraphics := props[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
		// A family that does both is preferred.
		if isGraphics && supported == vk.True {
			return family, family, true
		}
		if isGraphics && !hasGraphics {
			graphics, hasGraphics = family, true
		}
		if supported == vk.True && !hasPresent {
			present, hasPresent = family, true
		}
	}
	return graphics, present, hasGraphics && hasPresent
}

func extensionAvailable(pd vk.PhysicalDevice, name string) bool {
	var count uint32
	if vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil) != vk.Success {
		return false
	}
	props := make([]vk.ExtensionProperties, count)
	if vk.EnumerateDeviceExtensionProperties(pd, "", &count, props) != vk.Success {
		return false
	}
	for i := range props {
		props[i].Deref()
		if vk.ToString(props[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}

func (d *Device) createLogicalDevice() error {
	families := []uint32{d.graphicsFamily}
	if d.presentFamily != d.graphicsFamily {
		families = append(families, d.presentFamily)
	}
	queueInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, f := range families {
		queueInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: f,
			QueueCount:       1,
			PQueuePriorities: []float32{1},
		}
	}

	var device vk.Device
	res := vk.CreateDevice(d.physicalDevice, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   1,
		PpEnabledExtensionNames: safeStrings([]string{swapchainExt}),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
	}, nil, &device)
	if err := check(res, "create device", gpu.ErrSetupFailure); err != nil {
		return err
	}
	d.device = device

	var q vk.Queue
	vk.GetDeviceQueue(device, d.graphicsFamily, 0, &q)
	d.graphicsQueue = q
	vk.GetDeviceQueue(device, d.presentFamily, 0, &q)
	d.presentQueue = q
	return nil
}

func (d *Device) createPools() error {
	var pool vk.CommandPool
	res := vk.CreateCommandPool(d.device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.graphicsFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	if err := check(res, "create command pool", gpu.ErrSetupFailure); err != nil {
		return err
	}
	d.commandPool = pool

	n := d.poolSets * descriptorsPerSet
	sizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: n},
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: n},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: n},
		{Type: vk.DescriptorTypeSampler, DescriptorCount: n},
	}
	var dp vk.DescriptorPool
	res = vk.CreateDescriptorPool(d.device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       d.poolSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}, nil, &dp)
	if err := check(res, "create descriptor pool", gpu.ErrSetupFailure); err != nil {
		return err
	}
	d.descriptorPool = dp
	return nil
}

// memoryType finds a memory type allowed by typeBits that has every wanted property.
func memoryType(types []vk.MemoryPropertyFlags, typeBits uint32, want vk.MemoryPropertyFlags) (uint32, bool) {
	for i, flags := range types {
		if typeBits&(1<<uint(i)) != 0 && flags&want == want {
			return uint32(i), true
		}
	}
	return 0, false
}

// allocate allocates and returns memory for requirements. Called with the lock held.
func (d *Device) allocate(req vk.MemoryRequirements, want vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	req.Deref()
	index, ok := memoryType(d.memoryTypes, req.MemoryTypeBits, want)
	if !ok {
		return vk.DeviceMemory(vk.NullHandle), fmt.Errorf("vulkan: no memory type with properties %#x: %w", want, gpu.ErrResourceExhausted)
	}
	var mem vk.DeviceMemory
	res := vk.AllocateMemory(d.device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: index,
	}, nil, &mem)
	if err := check(res, "allocate memory", gpu.ErrResourceExhausted); err != nil {
		return vk.DeviceMemory(vk.NullHandle), err
	}
	return mem, nil
}

// alloc returns a fresh handle. Called with the lock held.
func (d *Device) alloc() uint64 {
	d.next++
	return d.next
}

func (d *Device) Limits() gpu.Limits             { return d.limits }
func (d *Device) ShaderFormat() gpu.ShaderFormat { return gpu.ShaderFormatSPIRV }
func (d *Device) SurfaceFormat() gpu.Format      { return engineFormat(d.surfaceFormat.Format) }

func (d *Device) SwapchainExtent() gpu.Extent2D {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.extent
}

func (d *Device) SwapchainImageViews() []gpu.ImageView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]gpu.ImageView(nil), d.swapViews...)
}

// Resize waits for the device to idle and rebuilds the swapchain. Views returned by
// SwapchainImageViews before the call are invalid afterwards.
func (d *Device) Resize(width, height uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if width == 0 || height == 0 {
		return fmt.Errorf("vulkan: resize to %dx%d: %w", width, height, gpu.ErrInvalidState)
	}
	vk.DeviceWaitIdle(d.device)
	if err := d.createSwapchain(width, height); err != nil {
		return fmt.Errorf("vulkan: resize: %w", err)
	}
	log.Printf("[Vulkan] swapchain resized to %dx%d", d.extent.Width, d.extent.Height)
	return nil
}

func (d *Device) WaitIdle() error {
	if d.device == nil {
		return nil
	}
	return check(vk.DeviceWaitIdle(d.device), "wait idle", gpu.ErrDeviceLost)
}

// Close waits for the device and destroys everything it still owns, logging leaked objects.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		vk.DeviceWaitIdle(d.device)

		leaked := len(d.buffers) + len(d.images) + len(d.pipelines) + len(d.sets) + len(d.samplers)
		if leaked > 0 {
			log.Printf("[Vulkan] close with %d live buffers, images, pipelines, sets and samplers", leaked)
		}
		for h := range d.pipelines {
			d.destroyPipeline(h)
		}
		for h := range d.pipelineLayouts {
			d.destroyPipelineLayout(h)
		}
		for h := range d.framebuffers {
			d.destroyFramebuffer(h)
		}
		for h := range d.renderPasses {
			d.destroyRenderPass(h)
		}
		for h := range d.setLayouts {
			d.destroySetLayout(h)
		}
		for h := range d.shaders {
			d.destroyShaderModule(h)
		}
		for h := range d.samplers {
			d.destroySampler(h)
		}
		for h, v := range d.views {
			if !v.swap {
				d.destroyImageView(h)
			}
		}
		for h := range d.images {
			d.destroyImage(h)
		}
		for h := range d.buffers {
			d.destroyBuffer(h)
		}
		for h, f := range d.fences {
			vk.DestroyFence(d.device, f, nil)
			delete(d.fences, h)
		}
		for h, s := range d.semaphores {
			vk.DestroySemaphore(d.device, s, nil)
			delete(d.semaphores, h)
		}
		clear(d.sets)
		clear(d.commandBuffers)

		d.destroySwapchain()
		if d.descriptorPool != vk.DescriptorPool(vk.NullHandle) {
			vk.DestroyDescriptorPool(d.device, d.descriptorPool, nil)
			d.descriptorPool = vk.DescriptorPool(vk.NullHandle)
		}
		if d.commandPool != vk.CommandPool(vk.NullHandle) {
			vk.DestroyCommandPool(d.device, d.commandPool, nil)
			d.commandPool = vk.CommandPool(vk.NullHandle)
		}
		vk.DestroyDevice(d.device, nil)
		d.device = nil
	}
	if d.instance != nil {
		if d.surface != vk.Surface(vk.NullHandle) {
			vk.DestroySurface(d.instance, d.surface, nil)
			d.surface = vk.Surface(vk.NullHandle)
		}
		if d.debugCallback != vk.DebugReportCallback(vk.NullHandle) {
			vk.DestroyDebugReportCallback(d.instance, d.debugCallback, nil)
			d.debugCallback = vk.DebugReportCallback(vk.NullHandle)
		}
		vk.DestroyInstance(d.instance, nil)
		d.instance = nil
	}
}
