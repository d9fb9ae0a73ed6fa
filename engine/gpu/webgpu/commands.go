package webgpu

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// replay is the state of one command buffer being translated at submit.
type replay struct {
	d       *Device
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	touched map[*image]struct{}
}

func (r *replay) view(h gpu.ImageView) (*wgpu.TextureView, error) {
	v, ok := r.d.views[h]
	if !ok {
		return nil, fmt.Errorf("webgpu: view %d: %w", h, gpu.ErrUnknownHandle)
	}
	if !v.swap {
		return v.view, nil
	}
	if r.d.frameView == nil {
		return nil, fmt.Errorf("webgpu: swapchain view used before acquire: %w", gpu.ErrInvalidState)
	}
	return r.d.frameView, nil
}

func (r *replay) inPass(op string) error {
	if r.pass == nil {
		return fmt.Errorf("webgpu: %s outside a render pass: %w", op, gpu.ErrInvalidState)
	}
	return nil
}

func (d *Device) AllocateCommandBuffer() (gpu.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := gpu.CommandBuffer(d.alloc())
	d.commandBuffers[h] = &commandBuffer{}
	return h, nil
}

func (d *Device) FreeCommandBuffer(cb gpu.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.commandBuffers, cb)
}

func (d *Device) BeginCommandBuffer(cb gpu.CommandBuffer, _ gpu.CommandBufferUsage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.commandBuffers[cb]
	if !ok {
		return fmt.Errorf("webgpu: begin command buffer %d: %w", cb, gpu.ErrUnknownHandle)
	}
	if c.recording {
		return fmt.Errorf("webgpu: command buffer %d already recording: %w", cb, gpu.ErrInvalidState)
	}
	c.recording, c.commands, c.err = true, c.commands[:0], nil
	return nil
}

func (d *Device) EndCommandBuffer(cb gpu.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.commandBuffers[cb]
	if !ok {
		return fmt.Errorf("webgpu: end command buffer %d: %w", cb, gpu.ErrUnknownHandle)
	}
	if !c.recording {
		return fmt.Errorf("webgpu: command buffer %d not recording: %w", cb, gpu.ErrInvalidState)
	}
	c.recording = false
	return c.err
}

func (d *Device) ResetCommandBuffer(cb gpu.CommandBuffer, _ gpu.CommandBufferReset) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.commandBuffers[cb]
	if !ok {
		return fmt.Errorf("webgpu: reset command buffer %d: %w", cb, gpu.ErrUnknownHandle)
	}
	c.recording, c.commands, c.err = false, nil, nil
	return nil
}

// record appends a command to a recording buffer. Recording into a buffer that is not
// recording is reported by EndCommandBuffer.
func (d *Device) record(cb gpu.CommandBuffer, cmd func(r *replay) error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.commandBuffers[cb]
	if !ok {
		return
	}
	if !c.recording {
		if c.err == nil {
			c.err = fmt.Errorf("webgpu: command recorded into idle buffer %d: %w", cb, gpu.ErrInvalidState)
		}
		return
	}
	c.commands = append(c.commands, cmd)
}

// CmdPipelineBarrier is a no-op; WebGPU tracks resource state itself.
func (d *Device) CmdPipelineBarrier(gpu.CommandBuffer, ...gpu.ImageBarrier) {}

// CmdSetDepthBias is a no-op; the bias is baked into the pipeline.
func (d *Device) CmdSetDepthBias(gpu.CommandBuffer, float32, float32, float32) {}

// CmdCopyBufferToImage writes the staging texels of every layer in the region through the
// queue and keeps a CPU copy for later blits.
func (d *Device) CmdCopyBufferToImage(cb gpu.CommandBuffer, src gpu.Buffer, dst gpu.Image, region gpu.BufferImageCopy) {
	d.record(cb, func(r *replay) error {
		buf, ok := r.d.buffers[src]
		if !ok {
			return fmt.Errorf("webgpu: copy from buffer %d: %w", src, gpu.ErrUnknownHandle)
		}
		img, ok := r.d.images[dst]
		if !ok {
			return fmt.Errorf("webgpu: copy to image %d: %w", dst, gpu.ErrUnknownHandle)
		}
		w, h := region.Extent.Width, region.Extent.Height
		layers := max(region.Subresource.LayerCount, 1)
		layerSize := uint64(w) * uint64(h) * 4
		end := region.BufferOffset + layerSize*uint64(layers)
		if end > uint64(len(buf.shadow)) {
			return fmt.Errorf("webgpu: copy of %d bytes overruns buffer %q: %w", end-region.BufferOffset, buf.desc.Label, gpu.ErrInvalidState)
		}
		texels := buf.shadow[region.BufferOffset:end]

		r.d.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  img.texture,
				MipLevel: region.Subresource.MipLevel,
				Origin: wgpu.Origin3D{
					X: uint32(region.Offset.X),
					Y: uint32(region.Offset.Y),
					Z: region.Subresource.BaseArrayLayer,
				},
				Aspect: wgpu.TextureAspectAll,
			},
			texels,
			&wgpu.TextureDataLayout{
				BytesPerRow:  w * 4,
				RowsPerImage: h,
			},
			&wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: layers},
		)

		if img.levels == nil {
			img.levels = make(map[[2]uint32][]byte)
		}
		for l := range layers {
			key := [2]uint32{region.Subresource.BaseArrayLayer + l, region.Subresource.MipLevel}
			img.levels[key] = append([]byte(nil), texels[uint64(l)*layerSize:uint64(l+1)*layerSize]...)
		}
		r.touched[img] = struct{}{}
		return nil
	})
}

// CmdBlitImage scales a mip level on the CPU from the texels uploaded earlier in the same
// submission. The filter is always bilinear.
func (d *Device) CmdBlitImage(cb gpu.CommandBuffer, target gpu.Image, blit gpu.ImageBlit, _ gpu.Filter) {
	d.record(cb, func(r *replay) error {
		img, ok := r.d.images[target]
		if !ok {
			return fmt.Errorf("webgpu: blit image %d: %w", target, gpu.ErrUnknownHandle)
		}
		srcW, srcH := blitSize(blit.SrcOffsets)
		dstW, dstH := blitSize(blit.DstOffsets)
		for l := range max(blit.SrcSubresource.LayerCount, 1) {
			src, ok := img.levels[[2]uint32{blit.SrcSubresource.BaseArrayLayer + l, blit.SrcSubresource.MipLevel}]
			if !ok || len(src) != srcW*srcH*4 {
				return fmt.Errorf("webgpu: blit of %q: mip %d layer %d not uploaded in this submission: %w",
					img.desc.Label, blit.SrcSubresource.MipLevel, blit.SrcSubresource.BaseArrayLayer+l, gpu.ErrInvalidState)
			}
			dst := common.Downsample(src, srcW, srcH, dstW, dstH)
			layer := blit.DstSubresource.BaseArrayLayer + l

			r.d.queue.WriteTexture(
				&wgpu.ImageCopyTexture{
					Texture:  img.texture,
					MipLevel: blit.DstSubresource.MipLevel,
					Origin:   wgpu.Origin3D{Z: layer},
					Aspect:   wgpu.TextureAspectAll,
				},
				dst,
				&wgpu.TextureDataLayout{
					BytesPerRow:  uint32(dstW) * 4,
					RowsPerImage: uint32(dstH),
				},
				&wgpu.Extent3D{Width: uint32(dstW), Height: uint32(dstH), DepthOrArrayLayers: 1},
			)
			img.levels[[2]uint32{layer, blit.DstSubresource.MipLevel}] = dst
		}
		r.touched[img] = struct{}{}
		return nil
	})
}

// blitSize returns the width and height of a blit box, at least one texel each.
func blitSize(box [2]gpu.Offset3D) (int, int) {
	w := int(box[1].X - box[0].X)
	h := int(box[1].Y - box[0].Y)
	return max(w, 1), max(h, 1)
}

func (d *Device) CmdBeginRenderPass(cb gpu.CommandBuffer, begin gpu.RenderPassBegin) {
	d.record(cb, func(r *replay) error {
		if r.pass != nil {
			return fmt.Errorf("webgpu: render pass begun inside another: %w", gpu.ErrInvalidState)
		}
		rp, ok := r.d.renderPasses[begin.RenderPass]
		if !ok {
			return fmt.Errorf("webgpu: begin pass: render pass %d: %w", begin.RenderPass, gpu.ErrUnknownHandle)
		}
		fb, ok := r.d.framebuffers[begin.Framebuffer]
		if !ok {
			return fmt.Errorf("webgpu: begin pass: framebuffer %d: %w", begin.Framebuffer, gpu.ErrUnknownHandle)
		}
		clearValue := func(idx int) gpu.ClearValue {
			if idx < len(begin.ClearValues) {
				return begin.ClearValues[idx]
			}
			return gpu.ClearValue{Depth: 1}
		}

		desc := &wgpu.RenderPassDescriptor{Label: rp.Label}
		for i, idx := range rp.Subpass.ColorAttachments {
			view, err := r.view(fb.Attachments[idx])
			if err != nil {
				return err
			}
			att := rp.Attachments[idx]
			c := clearValue(idx).Color
			color := wgpu.RenderPassColorAttachment{
				View:    view,
				LoadOp:  loadOp(att.LoadOp),
				StoreOp: storeOp(att.StoreOp),
				ClearValue: wgpu.Color{
					R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3]),
				},
			}
			if i < len(rp.Subpass.ResolveAttachments) && rp.Subpass.ResolveAttachments[i] != gpu.AttachmentUnused {
				resolve, err := r.view(fb.Attachments[rp.Subpass.ResolveAttachments[i]])
				if err != nil {
					return err
				}
				color.ResolveTarget = resolve
			}
			desc.ColorAttachments = append(desc.ColorAttachments, color)
		}
		if idx := rp.Subpass.DepthAttachment; idx != gpu.AttachmentUnused {
			view, err := r.view(fb.Attachments[idx])
			if err != nil {
				return err
			}
			att := rp.Attachments[idx]
			desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
				View:            view,
				DepthLoadOp:     loadOp(att.LoadOp),
				DepthStoreOp:    storeOp(att.StoreOp),
				DepthClearValue: clearValue(idx).Depth,
			}
		}
		r.pass = r.encoder.BeginRenderPass(desc)
		return nil
	})
}

func (d *Device) CmdEndRenderPass(cb gpu.CommandBuffer) {
	d.record(cb, func(r *replay) error {
		if err := r.inPass("end pass"); err != nil {
			return err
		}
		r.pass.End()
		r.pass = nil
		return nil
	})
}

func (d *Device) CmdBindPipeline(cb gpu.CommandBuffer, h gpu.Pipeline) {
	d.record(cb, func(r *replay) error {
		if err := r.inPass("bind pipeline"); err != nil {
			return err
		}
		p, ok := r.d.pipelines[h]
		if !ok {
			return fmt.Errorf("webgpu: bind pipeline %d: %w", h, gpu.ErrUnknownHandle)
		}
		r.pass.SetPipeline(p.handle)
		return nil
	})
}

func (d *Device) CmdBindDescriptorSet(cb gpu.CommandBuffer, _ gpu.PipelineLayout, index uint32, h gpu.DescriptorSet, dynamicOffsets ...uint32) {
	offsets := append([]uint32(nil), dynamicOffsets...)
	d.record(cb, func(r *replay) error {
		if err := r.inPass("bind set"); err != nil {
			return err
		}
		set, ok := r.d.sets[h]
		if !ok {
			return fmt.Errorf("webgpu: bind set %d: %w", h, gpu.ErrUnknownHandle)
		}
		if set.group == nil {
			return fmt.Errorf("webgpu: bind set %d: not every binding written: %w", h, gpu.ErrInvalidState)
		}
		r.pass.SetBindGroup(index, set.group, offsets)
		return nil
	})
}

func (d *Device) CmdBindVertexBuffer(cb gpu.CommandBuffer, binding uint32, h gpu.Buffer, offset uint64) {
	d.record(cb, func(r *replay) error {
		if err := r.inPass("bind vertex buffer"); err != nil {
			return err
		}
		buf, ok := r.d.buffers[h]
		if !ok || buf.handle == nil {
			return fmt.Errorf("webgpu: bind vertex buffer %d: %w", h, gpu.ErrUnknownHandle)
		}
		r.pass.SetVertexBuffer(binding, buf.handle, offset, wgpu.WholeSize)
		return nil
	})
}

func (d *Device) CmdBindIndexBuffer(cb gpu.CommandBuffer, h gpu.Buffer, offset uint64, indexType gpu.IndexType) {
	d.record(cb, func(r *replay) error {
		if err := r.inPass("bind index buffer"); err != nil {
			return err
		}
		buf, ok := r.d.buffers[h]
		if !ok || buf.handle == nil {
			return fmt.Errorf("webgpu: bind index buffer %d: %w", h, gpu.ErrUnknownHandle)
		}
		r.pass.SetIndexBuffer(buf.handle, indexFormat(indexType), offset, wgpu.WholeSize)
		return nil
	})
}

func (d *Device) CmdDrawIndexed(cb gpu.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	d.record(cb, func(r *replay) error {
		if err := r.inPass("draw"); err != nil {
			return err
		}
		r.pass.DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
		return nil
	})
}

// Fences are signaled when their submission reaches the queue. Work on the queue runs in
// submission order, so a signaled fence guards every later CPU write through the queue.

func (d *Device) CreateFence(signaled bool) (gpu.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := gpu.Fence(d.alloc())
	d.fences[h] = signaled
	return h, nil
}

// WaitForFence returns gpu.ErrTimeout at once for an unsignaled fence; nothing pending
// on the queue could signal it.
func (d *Device) WaitForFence(fence gpu.Fence, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	signaled, ok := d.fences[fence]
	if !ok {
		return fmt.Errorf("webgpu: wait on fence %d: %w", fence, gpu.ErrUnknownHandle)
	}
	if d.device == nil {
		return fmt.Errorf("webgpu: wait on fence %d: %w", fence, gpu.ErrDeviceLost)
	}
	if !signaled {
		return fmt.Errorf("webgpu: fence %d never submitted: %w", fence, gpu.ErrTimeout)
	}
	d.device.Poll(false, nil)
	return nil
}

func (d *Device) ResetFence(fence gpu.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.fences[fence]; !ok {
		return fmt.Errorf("webgpu: reset fence %d: %w", fence, gpu.ErrUnknownHandle)
	}
	d.fences[fence] = false
	return nil
}

func (d *Device) DestroyFence(fence gpu.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.fences, fence)
}

func (d *Device) CreateSemaphore() (gpu.Semaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := gpu.Semaphore(d.alloc())
	d.semaphores[h] = struct{}{}
	return h, nil
}

func (d *Device) DestroySemaphore(s gpu.Semaphore) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.semaphores, s)
}

// AcquireNextImage takes the surface's current texture. A frame acquired and never
// presented is dropped first.
func (d *Device) AcquireNextImage(signal gpu.Semaphore, _ time.Duration) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.semaphores[signal]; !ok && signal != 0 {
		return 0, fmt.Errorf("webgpu: acquire: semaphore %d: %w", signal, gpu.ErrUnknownHandle)
	}
	d.releaseFrame()

	tex, err := d.surface.GetCurrentTexture()
	if err != nil {
		return 0, fmt.Errorf("webgpu: acquire surface texture: %w: %w", gpu.ErrSurfaceOutOfDate, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, fmt.Errorf("webgpu: surface texture view: %w: %w", gpu.ErrTransient, err)
	}
	d.frameTexture, d.frameView = tex, view

	index := d.acquired
	d.acquired = (d.acquired + 1) % swapImages
	return index, nil
}

// QueueSubmit replays every command buffer into one encoder and submits it.
func (d *Device) QueueSubmit(submit gpu.SubmitInfo, fence gpu.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return fmt.Errorf("webgpu: submit: %w", gpu.ErrDeviceLost)
	}
	if _, ok := d.fences[fence]; !ok && fence != 0 {
		return fmt.Errorf("webgpu: submit: fence %d: %w", fence, gpu.ErrUnknownHandle)
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("webgpu: create command encoder: %w: %w", gpu.ErrDeviceLost, err)
	}
	defer encoder.Release()

	r := &replay{d: d, encoder: encoder, touched: make(map[*image]struct{})}
	defer func() {
		for img := range r.touched {
			img.levels = nil
		}
	}()

	for _, h := range submit.CommandBuffers {
		c, ok := d.commandBuffers[h]
		if !ok {
			return fmt.Errorf("webgpu: submit command buffer %d: %w", h, gpu.ErrUnknownHandle)
		}
		if c.recording {
			return fmt.Errorf("webgpu: submit command buffer %d while recording: %w", h, gpu.ErrInvalidState)
		}
		for _, cmd := range c.commands {
			if err := cmd(r); err != nil {
				if r.pass != nil {
					r.pass.End()
				}
				return err
			}
		}
	}
	if r.pass != nil {
		r.pass.End()
		return fmt.Errorf("webgpu: submission ends inside a render pass: %w", gpu.ErrInvalidState)
	}

	buf, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("webgpu: finish command encoder: %w: %w", gpu.ErrTransient, err)
	}
	d.queue.Submit(buf)
	buf.Release()

	if fence != 0 {
		d.fences[fence] = true
	}
	return nil
}

func (d *Device) QueuePresent(present gpu.PresentInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameTexture == nil {
		return fmt.Errorf("webgpu: present image %d: nothing acquired: %w", present.ImageIndex, gpu.ErrInvalidState)
	}
	d.surface.Present()
	d.releaseFrame()
	return nil
}

func (d *Device) QueueWaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return fmt.Errorf("webgpu: wait idle: %w", gpu.ErrDeviceLost)
	}
	d.device.Poll(true, nil)
	return nil
}
