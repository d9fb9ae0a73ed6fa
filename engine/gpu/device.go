package gpu

import "time"

// MemoryAllocator creates and maps host-visible buffers.
type MemoryAllocator interface {
	// CreateBuffer allocates a host-visible, host-coherent buffer.
	//
	// Parameters:
	//   - desc: the size, usage and debug label of the buffer
	//
	// Returns:
	//   - Buffer: the buffer handle
	//   - error: wraps ErrSetupFailure when allocation fails
	CreateBuffer(desc BufferDescriptor) (Buffer, error)

	// MapBuffer maps size bytes of the buffer starting at offset into host memory.
	// The returned slice is only valid until UnmapBuffer is called.
	//
	// Parameters:
	//   - buffer: the buffer to map
	//   - offset: the byte offset of the mapping
	//   - size: the number of bytes to map
	//
	// Returns:
	//   - []byte: the host view of the mapped range
	//   - error: wraps ErrSetupFailure or ErrUnknownHandle on failure
	MapBuffer(buffer Buffer, offset, size uint64) ([]byte, error)

	// UnmapBuffer releases a mapping made by MapBuffer.
	UnmapBuffer(buffer Buffer)

	// DestroyBuffer releases the buffer and its memory. Destroying the null handle is a no-op.
	DestroyBuffer(buffer Buffer)
}

// ResourceFactory creates images, views, samplers and the fixed-function objects of a pipeline.
type ResourceFactory interface {
	CreateImage(desc ImageDescriptor) (Image, error)
	DestroyImage(image Image)
	CreateImageView(desc ImageViewDescriptor) (ImageView, error)
	DestroyImageView(view ImageView)
	CreateSampler(desc SamplerDescriptor) (Sampler, error)
	DestroySampler(sampler Sampler)

	CreateRenderPass(desc RenderPassDescriptor) (RenderPass, error)
	DestroyRenderPass(pass RenderPass)
	CreateFramebuffer(desc FramebufferDescriptor) (Framebuffer, error)
	DestroyFramebuffer(framebuffer Framebuffer)

	// CreateShaderModule wraps backend-native shader code, SPIR-V for Vulkan and WGSL for WebGPU.
	CreateShaderModule(label string, code []byte) (ShaderModule, error)
	DestroyShaderModule(module ShaderModule)

	CreateDescriptorSetLayout(label string, bindings []DescriptorBinding) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout DescriptorSetLayout)

	// AllocateDescriptorSet allocates a set from the device pool.
	//
	// Returns:
	//   - DescriptorSet: the set handle
	//   - error: wraps ErrResourceExhausted when the pool is full
	AllocateDescriptorSet(layout DescriptorSetLayout) (DescriptorSet, error)
	UpdateDescriptorSet(set DescriptorSet, writes []DescriptorWrite) error
	FreeDescriptorSet(set DescriptorSet)

	CreatePipelineLayout(label string, layouts []DescriptorSetLayout) (PipelineLayout, error)
	DestroyPipelineLayout(layout PipelineLayout)
	CreateGraphicsPipeline(desc PipelineDescriptor) (Pipeline, error)
	DestroyPipeline(pipeline Pipeline)
}

// SyncProvider creates and waits on fences and semaphores.
type SyncProvider interface {
	// CreateFence creates a fence, optionally already signaled.
	CreateFence(signaled bool) (Fence, error)

	// WaitForFence blocks until the fence is signaled or the timeout elapses.
	//
	// Parameters:
	//   - fence: the fence to wait on
	//   - timeout: the upper bound of the wait
	//
	// Returns:
	//   - error: nil once signaled, wraps ErrTimeout when the wait expires, ErrDeviceLost when the device is gone
	WaitForFence(fence Fence, timeout time.Duration) error
	ResetFence(fence Fence) error
	DestroyFence(fence Fence)

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(semaphore Semaphore)
}

// CommandEncoder allocates command buffers and records commands into them.
type CommandEncoder interface {
	AllocateCommandBuffer() (CommandBuffer, error)
	FreeCommandBuffer(cb CommandBuffer)
	BeginCommandBuffer(cb CommandBuffer, usage CommandBufferUsage) error
	EndCommandBuffer(cb CommandBuffer) error
	ResetCommandBuffer(cb CommandBuffer, flags CommandBufferReset) error

	CmdPipelineBarrier(cb CommandBuffer, barriers ...ImageBarrier)
	CmdCopyBufferToImage(cb CommandBuffer, src Buffer, dst Image, region BufferImageCopy)
	CmdBlitImage(cb CommandBuffer, image Image, blit ImageBlit, filter Filter)
	CmdBeginRenderPass(cb CommandBuffer, begin RenderPassBegin)
	CmdEndRenderPass(cb CommandBuffer)
	CmdBindPipeline(cb CommandBuffer, pipeline Pipeline)
	CmdBindDescriptorSet(cb CommandBuffer, layout PipelineLayout, index uint32, set DescriptorSet, dynamicOffsets ...uint32)
	CmdSetDepthBias(cb CommandBuffer, constant, clamp, slope float32)
	CmdBindVertexBuffer(cb CommandBuffer, binding uint32, buffer Buffer, offset uint64)
	CmdBindIndexBuffer(cb CommandBuffer, buffer Buffer, offset uint64, indexType IndexType)
	CmdDrawIndexed(cb CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
}

// Queue submits recorded work and presents swapchain images.
type Queue interface {
	// AcquireNextImage acquires the next presentable image and signals the semaphore when it is ready.
	//
	// Returns:
	//   - uint32: the index of the acquired swapchain image
	//   - error: wraps ErrSurfaceOutOfDate when the swapchain must be rebuilt
	AcquireNextImage(signal Semaphore, timeout time.Duration) (uint32, error)

	// QueueSubmit submits work to the graphics queue. The fence may be the null handle.
	QueueSubmit(submit SubmitInfo, fence Fence) error

	// QueuePresent presents an image. Returns an error wrapping ErrSurfaceOutOfDate when the swapchain is stale.
	QueuePresent(present PresentInfo) error

	QueueWaitIdle() error
}

// Device is the injected graphics context consumed by the engine. One Device owns
// one logical device, its graphics queue, a descriptor pool and the swapchain.
type Device interface {
	MemoryAllocator
	ResourceFactory
	SyncProvider
	CommandEncoder
	Queue

	// Limits returns the device limits the engine relies on.
	Limits() Limits

	// ShaderFormat returns the code CreateShaderModule accepts.
	ShaderFormat() ShaderFormat

	// SurfaceFormat returns the color format of the swapchain images.
	SurfaceFormat() Format

	// SwapchainExtent returns the current size of the swapchain images.
	SwapchainExtent() Extent2D

	// SwapchainImageViews returns one view per swapchain image, indexed by the value AcquireNextImage returns.
	SwapchainImageViews() []ImageView

	// Resize rebuilds the swapchain for a new surface size. Views returned earlier by SwapchainImageViews become invalid.
	Resize(width, height uint32) error

	// WaitIdle blocks until all submitted work has completed.
	WaitIdle() error

	// Close destroys the swapchain and the device. It must be called after every other object has been destroyed.
	Close()
}
