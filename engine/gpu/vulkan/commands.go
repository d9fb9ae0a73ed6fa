package vulkan

import (
	"fmt"
	"math"
	"time"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	vk "github.com/vulkan-go/vulkan"
)

const queueFamilyIgnored = ^uint32(0)

func (d *Device) AllocateCommandBuffer() (gpu.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buffers := make([]vk.CommandBuffer, 1)
	res := vk.AllocateCommandBuffers(d.device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, buffers)
	if err := check(res, "allocate command buffer", gpu.ErrResourceExhausted); err != nil {
		return 0, err
	}
	h := gpu.CommandBuffer(d.alloc())
	d.commandBuffers[h] = &commandBuffer{handle: buffers[0]}
	return h, nil
}

func (d *Device) FreeCommandBuffer(h gpu.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.commandBuffers[h]; ok {
		vk.FreeCommandBuffers(d.device, d.commandPool, 1, []vk.CommandBuffer{c.handle})
		delete(d.commandBuffers, h)
	}
}

func (d *Device) BeginCommandBuffer(h gpu.CommandBuffer, usage gpu.CommandBufferUsage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.commandBuffers[h]
	if !ok {
		return fmt.Errorf("vulkan: begin command buffer %d: %w", h, gpu.ErrUnknownHandle)
	}
	c.err = nil
	info := vk.CommandBufferBeginInfo{SType: vk.StructureTypeCommandBufferBeginInfo}
	if usage&gpu.CommandBufferUsageOneTimeSubmit != 0 {
		info.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	return check(vk.BeginCommandBuffer(c.handle, &info), "begin command buffer", gpu.ErrInvalidState)
}

func (d *Device) EndCommandBuffer(h gpu.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.commandBuffers[h]
	if !ok {
		return fmt.Errorf("vulkan: end command buffer %d: %w", h, gpu.ErrUnknownHandle)
	}
	if err := check(vk.EndCommandBuffer(c.handle), "end command buffer", gpu.ErrInvalidState); err != nil {
		return err
	}
	return c.err
}

func (d *Device) ResetCommandBuffer(h gpu.CommandBuffer, flags gpu.CommandBufferReset) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.commandBuffers[h]
	if !ok {
		return fmt.Errorf("vulkan: reset command buffer %d: %w", h, gpu.ErrUnknownHandle)
	}
	c.err = nil
	var vkFlags vk.CommandBufferResetFlags
	if flags&gpu.CommandBufferResetReleaseResources != 0 {
		vkFlags = vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit)
	}
	return check(vk.ResetCommandBuffer(c.handle, vkFlags), "reset command buffer", gpu.ErrInvalidState)
}

// record looks up the command buffer and runs fn with the lock held. An error from
// fn is kept and reported by EndCommandBuffer.
func (d *Device) record(h gpu.CommandBuffer, fn func(cb vk.CommandBuffer) error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.commandBuffers[h]
	if !ok {
		return
	}
	if err := fn(c.handle); err != nil && c.err == nil {
		c.err = fmt.Errorf("vulkan: record: %w", err)
	}
}

// barrierBatch is the barriers sharing one source and destination stage pair.
type barrierBatch struct {
	src, dst gpu.PipelineStage
	barriers []gpu.ImageBarrier
}

// batchBarriers groups barriers by stage pair, in order of first appearance.
func batchBarriers(barriers []gpu.ImageBarrier) []barrierBatch {
	var batches []barrierBatch
next:
	for _, b := range barriers {
		for i := range batches {
			if batches[i].src == b.SrcStage && batches[i].dst == b.DstStage {
				batches[i].barriers = append(batches[i].barriers, b)
				continue next
			}
		}
		batches = append(batches, barrierBatch{src: b.SrcStage, dst: b.DstStage, barriers: []gpu.ImageBarrier{b}})
	}
	return batches
}

// CmdPipelineBarrier records one vkCmdPipelineBarrier per distinct stage pair, so a barrier
// only waits on the stages it names.
func (d *Device) CmdPipelineBarrier(h gpu.CommandBuffer, barriers ...gpu.ImageBarrier) {
	if len(barriers) == 0 {
		return
	}
	d.record(h, func(cb vk.CommandBuffer) error {
		batches := batchBarriers(barriers)
		converted := make([][]vk.ImageMemoryBarrier, len(batches))
		for i, batch := range batches {
			out := make([]vk.ImageMemoryBarrier, len(batch.barriers))
			for j, b := range batch.barriers {
				img, ok := d.images[b.Image]
				if !ok {
					return fmt.Errorf("barrier on image %d: %w", b.Image, gpu.ErrUnknownHandle)
				}
				r := b.Range
				if r.Aspect == 0 {
					r.Aspect = gpu.ImageAspectColor
					if img.desc.Format.IsDepth() {
						r.Aspect = gpu.ImageAspectDepth
					}
				}
				out[j] = vk.ImageMemoryBarrier{
					SType:               vk.StructureTypeImageMemoryBarrier,
					SrcAccessMask:       access(b.SrcAccess),
					DstAccessMask:       access(b.DstAccess),
					OldLayout:           imageLayout(b.OldLayout),
					NewLayout:           imageLayout(b.NewLayout),
					SrcQueueFamilyIndex: queueFamilyIgnored,
					DstQueueFamilyIndex: queueFamilyIgnored,
					Image:               img.handle,
					SubresourceRange:    subresourceRange(r),
				}
			}
			converted[i] = out
		}
		// Nothing is recorded unless every image resolved.
		for i, batch := range batches {
			out := converted[i]
			vk.CmdPipelineBarrier(cb, pipelineStages(batch.src), pipelineStages(batch.dst), 0, 0, nil, 0, nil, uint32(len(out)), out)
		}
		return nil
	})
}

// CmdCopyBufferToImage copies tightly packed texels; the image must be in the transfer destination layout.
func (d *Device) CmdCopyBufferToImage(h gpu.CommandBuffer, src gpu.Buffer, dst gpu.Image, region gpu.BufferImageCopy) {
	d.record(h, func(cb vk.CommandBuffer) error {
		b, ok := d.buffers[src]
		if !ok {
			return fmt.Errorf("copy from buffer %d: %w", src, gpu.ErrUnknownHandle)
		}
		img, ok := d.images[dst]
		if !ok {
			return fmt.Errorf("copy to image %d: %w", dst, gpu.ErrUnknownHandle)
		}
		vk.CmdCopyBufferToImage(cb, b.handle, img.handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
			BufferOffset:     vk.DeviceSize(region.BufferOffset),
			ImageSubresource: subresourceLayers(region.Subresource),
			ImageOffset:      offset3D(region.Offset),
			ImageExtent:      extent3D(region.Extent),
		}})
		return nil
	})
}

// CmdBlitImage blits within one image, from a level in the transfer source layout to a
// level in the transfer destination layout.
func (d *Device) CmdBlitImage(h gpu.CommandBuffer, target gpu.Image, blit gpu.ImageBlit, f gpu.Filter) {
	d.record(h, func(cb vk.CommandBuffer) error {
		img, ok := d.images[target]
		if !ok {
			return fmt.Errorf("blit image %d: %w", target, gpu.ErrUnknownHandle)
		}
		region := vk.ImageBlit{
			SrcSubresource: subresourceLayers(blit.SrcSubresource),
			SrcOffsets:     [2]vk.Offset3D{offset3D(blit.SrcOffsets[0]), offset3D(blit.SrcOffsets[1])},
			DstSubresource: subresourceLayers(blit.DstSubresource),
			DstOffsets:     [2]vk.Offset3D{offset3D(blit.DstOffsets[0]), offset3D(blit.DstOffsets[1])},
		}
		vk.CmdBlitImage(cb, img.handle, vk.ImageLayoutTransferSrcOptimal, img.handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{region}, filter(f))
		return nil
	})
}

// clearValues expands per-attachment clears into the Vulkan union, picking the depth
// member for depth formats. Missing entries clear to zero color or depth 1.
func clearValues(attachments []gpu.AttachmentDescription, values []gpu.ClearValue) []vk.ClearValue {
	out := make([]vk.ClearValue, len(attachments))
	for i, a := range attachments {
		v := gpu.ClearValue{Depth: 1}
		if i < len(values) {
			v = values[i]
		}
		if a.Format.IsDepth() {
			out[i] = vk.NewClearDepthStencil(v.Depth, 0)
		} else {
			out[i] = vk.NewClearValue(v.Color[:])
		}
	}
	return out
}

// CmdBeginRenderPass begins the pass and sets the viewport and scissor to the render area.
func (d *Device) CmdBeginRenderPass(h gpu.CommandBuffer, begin gpu.RenderPassBegin) {
	d.record(h, func(cb vk.CommandBuffer) error {
		rp, ok := d.renderPasses[begin.RenderPass]
		if !ok {
			return fmt.Errorf("begin render pass %d: %w", begin.RenderPass, gpu.ErrUnknownHandle)
		}
		fb, ok := d.framebuffers[begin.Framebuffer]
		if !ok {
			return fmt.Errorf("begin render pass on framebuffer %d: %w", begin.Framebuffer, gpu.ErrUnknownHandle)
		}
		clears := clearValues(rp.desc.Attachments, begin.ClearValues)
		area := vk.Extent2D{Width: begin.Area.Width, Height: begin.Area.Height}
		vk.CmdBeginRenderPass(cb, &vk.RenderPassBeginInfo{
			SType:           vk.StructureTypeRenderPassBeginInfo,
			RenderPass:      rp.handle,
			Framebuffer:     fb.handle,
			RenderArea:      vk.Rect2D{Extent: area},
			ClearValueCount: uint32(len(clears)),
			PClearValues:    clears,
		}, vk.SubpassContentsInline)
		vk.CmdSetViewport(cb, 0, 1, []vk.Viewport{{
			Width:    float32(area.Width),
			Height:   float32(area.Height),
			MaxDepth: 1,
		}})
		vk.CmdSetScissor(cb, 0, 1, []vk.Rect2D{{Extent: area}})
		return nil
	})
}

func (d *Device) CmdEndRenderPass(h gpu.CommandBuffer) {
	d.record(h, func(cb vk.CommandBuffer) error {
		vk.CmdEndRenderPass(cb)
		return nil
	})
}

func (d *Device) CmdBindPipeline(h gpu.CommandBuffer, pipeline gpu.Pipeline) {
	d.record(h, func(cb vk.CommandBuffer) error {
		p, ok := d.pipelines[pipeline]
		if !ok {
			return fmt.Errorf("bind pipeline %d: %w", pipeline, gpu.ErrUnknownHandle)
		}
		vk.CmdBindPipeline(cb, vk.PipelineBindPointGraphics, p)
		return nil
	})
}

func (d *Device) CmdBindDescriptorSet(h gpu.CommandBuffer, layout gpu.PipelineLayout, index uint32, set gpu.DescriptorSet, dynamicOffsets ...uint32) {
	d.record(h, func(cb vk.CommandBuffer) error {
		l, ok := d.pipelineLayouts[layout]
		if !ok {
			return fmt.Errorf("bind set: layout %d: %w", layout, gpu.ErrUnknownHandle)
		}
		s, ok := d.sets[set]
		if !ok {
			return fmt.Errorf("bind set %d: %w", set, gpu.ErrUnknownHandle)
		}
		vk.CmdBindDescriptorSets(cb, vk.PipelineBindPointGraphics, l, index, 1, []vk.DescriptorSet{s.handle}, uint32(len(dynamicOffsets)), dynamicOffsets)
		return nil
	})
}

func (d *Device) CmdSetDepthBias(h gpu.CommandBuffer, constant, clamp, slope float32) {
	d.record(h, func(cb vk.CommandBuffer) error {
		vk.CmdSetDepthBias(cb, constant, clamp, slope)
		return nil
	})
}

func (d *Device) CmdBindVertexBuffer(h gpu.CommandBuffer, binding uint32, buffer gpu.Buffer, offset uint64) {
	d.record(h, func(cb vk.CommandBuffer) error {
		b, ok := d.buffers[buffer]
		if !ok {
			return fmt.Errorf("bind vertex buffer %d: %w", buffer, gpu.ErrUnknownHandle)
		}
		vk.CmdBindVertexBuffers(cb, binding, 1, []vk.Buffer{b.handle}, []vk.DeviceSize{vk.DeviceSize(offset)})
		return nil
	})
}

func (d *Device) CmdBindIndexBuffer(h gpu.CommandBuffer, buffer gpu.Buffer, offset uint64, t gpu.IndexType) {
	d.record(h, func(cb vk.CommandBuffer) error {
		b, ok := d.buffers[buffer]
		if !ok {
			return fmt.Errorf("bind index buffer %d: %w", buffer, gpu.ErrUnknownHandle)
		}
		vk.CmdBindIndexBuffer(cb, b.handle, vk.DeviceSize(offset), indexType(t))
		return nil
	})
}

func (d *Device) CmdDrawIndexed(h gpu.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	d.record(h, func(cb vk.CommandBuffer) error {
		vk.CmdDrawIndexed(cb, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
		return nil
	})
}

func (d *Device) CreateFence(signaled bool) (gpu.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var f vk.Fence
	if err := check(vk.CreateFence(d.device, &info, nil, &f), "create fence", gpu.ErrSetupFailure); err != nil {
		return 0, err
	}
	h := gpu.Fence(d.alloc())
	d.fences[h] = f
	return h, nil
}

// timeoutNanos converts a wait timeout, treating negative durations as forever.
func timeoutNanos(timeout time.Duration) uint64 {
	if timeout < 0 {
		return math.MaxUint64
	}
	return uint64(timeout.Nanoseconds())
}

// WaitForFence waits without holding the device lock so other threads can keep recording.
func (d *Device) WaitForFence(fence gpu.Fence, timeout time.Duration) error {
	d.mu.Lock()
	f, ok := d.fences[fence]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("vulkan: wait for fence %d: %w", fence, gpu.ErrUnknownHandle)
	}

	res := vk.WaitForFences(d.device, 1, []vk.Fence{f}, vk.True, timeoutNanos(timeout))
	if res == vk.Timeout {
		return fmt.Errorf("vulkan: fence %d after %v: %w", fence, timeout, gpu.ErrTimeout)
	}
	return check(res, "wait for fence", gpu.ErrDeviceLost)
}

func (d *Device) ResetFence(fence gpu.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.fences[fence]
	if !ok {
		return fmt.Errorf("vulkan: reset fence %d: %w", fence, gpu.ErrUnknownHandle)
	}
	return check(vk.ResetFences(d.device, 1, []vk.Fence{f}), "reset fence", gpu.ErrDeviceLost)
}

func (d *Device) DestroyFence(fence gpu.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if f, ok := d.fences[fence]; ok {
		vk.DestroyFence(d.device, f, nil)
		delete(d.fences, fence)
	}
}

func (d *Device) CreateSemaphore() (gpu.Semaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var s vk.Semaphore
	res := vk.CreateSemaphore(d.device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &s)
	if err := check(res, "create semaphore", gpu.ErrSetupFailure); err != nil {
		return 0, err
	}
	h := gpu.Semaphore(d.alloc())
	d.semaphores[h] = s
	return h, nil
}

func (d *Device) DestroySemaphore(h gpu.Semaphore) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.semaphores[h]; ok {
		vk.DestroySemaphore(d.device, s, nil)
		delete(d.semaphores, h)
	}
}

// semaphoreHandles resolves engine semaphores. Called with the lock held.
func (d *Device) semaphoreHandles(list []gpu.Semaphore) ([]vk.Semaphore, error) {
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]vk.Semaphore, len(list))
	for i, h := range list {
		s, ok := d.semaphores[h]
		if !ok {
			return nil, fmt.Errorf("semaphore %d: %w", h, gpu.ErrUnknownHandle)
		}
		out[i] = s
	}
	return out, nil
}

// AcquireNextImage acquires a swapchain image. A suboptimal acquire still returns the
// image; the next QueuePresent then reports the swapchain as out of date.
func (d *Device) AcquireNextImage(signal gpu.Semaphore, timeout time.Duration) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.semaphores[signal]
	if !ok {
		return 0, fmt.Errorf("vulkan: acquire: semaphore %d: %w", signal, gpu.ErrUnknownHandle)
	}
	var index uint32
	res := vk.AcquireNextImage(d.device, d.swapchain, timeoutNanos(timeout), s, vk.Fence(vk.NullHandle), &index)
	switch res {
	case vk.Success:
		return index, nil
	case vk.Suboptimal:
		d.suboptimal = true
		return index, nil
	case vk.Timeout, vk.NotReady:
		return 0, fmt.Errorf("vulkan: acquire: %w: %w", gpu.ErrTransient, vk.Error(res))
	default:
		return 0, check(res, "acquire", gpu.ErrDeviceLost)
	}
}

func (d *Device) QueueSubmit(submit gpu.SubmitInfo, fence gpu.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(submit.WaitStages) != len(submit.WaitSemaphores) {
		return fmt.Errorf("vulkan: submit: %d wait stages for %d semaphores: %w", len(submit.WaitStages), len(submit.WaitSemaphores), gpu.ErrInvalidState)
	}
	cbs := make([]vk.CommandBuffer, len(submit.CommandBuffers))
	for i, h := range submit.CommandBuffers {
		c, ok := d.commandBuffers[h]
		if !ok {
			return fmt.Errorf("vulkan: submit: command buffer %d: %w", h, gpu.ErrUnknownHandle)
		}
		cbs[i] = c.handle
	}
	wait, err := d.semaphoreHandles(submit.WaitSemaphores)
	if err != nil {
		return fmt.Errorf("vulkan: submit: %w", err)
	}
	signal, err := d.semaphoreHandles(submit.SignalSemaphores)
	if err != nil {
		return fmt.Errorf("vulkan: submit: %w", err)
	}
	var stages []vk.PipelineStageFlags
	for _, s := range submit.WaitStages {
		stages = append(stages, pipelineStages(s))
	}
	f := vk.Fence(vk.NullHandle)
	if fence != 0 {
		var ok bool
		if f, ok = d.fences[fence]; !ok {
			return fmt.Errorf("vulkan: submit: fence %d: %w", fence, gpu.ErrUnknownHandle)
		}
	}

	info := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(wait)),
		PWaitSemaphores:      wait,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   uint32(len(cbs)),
		PCommandBuffers:      cbs,
		SignalSemaphoreCount: uint32(len(signal)),
		PSignalSemaphores:    signal,
	}
	return check(vk.QueueSubmit(d.graphicsQueue, 1, []vk.SubmitInfo{info}, f), "queue submit", gpu.ErrDeviceLost)
}

// QueuePresent presents the image and reports gpu.ErrSurfaceOutOfDate when the
// swapchain is out of date or was suboptimal at present or at the last acquire.
func (d *Device) QueuePresent(present gpu.PresentInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	wait, err := d.semaphoreHandles(present.WaitSemaphores)
	if err != nil {
		return fmt.Errorf("vulkan: present: %w", err)
	}
	res := vk.QueuePresent(d.presentQueue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(wait)),
		PWaitSemaphores:    wait,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{d.swapchain},
		PImageIndices:      []uint32{present.ImageIndex},
	})
	stale := d.suboptimal || res == vk.Suboptimal
	d.suboptimal = false
	if res == vk.Success || res == vk.Suboptimal {
		if stale {
			return fmt.Errorf("vulkan: present: suboptimal swapchain: %w", gpu.ErrSurfaceOutOfDate)
		}
		return nil
	}
	return check(res, "present", gpu.ErrDeviceLost)
}

func (d *Device) QueueWaitIdle() error {
	return check(vk.QueueWaitIdle(d.graphicsQueue), "queue wait idle", gpu.ErrDeviceLost)
}
