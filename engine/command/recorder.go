// Package command records and submits one-off transfer work, the blocking texture upload path.
package command

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// Target is the image a SingleSubmit uploads into.
type Target struct {
	Image  gpu.Image
	Width  uint32
	Height uint32
}

// Recorder owns a dedicated command buffer used for blocking uploads outside the frame loop.
type Recorder interface {
	// Begin opens recording with the one-time-submit hint. The recorder must be blank.
	Begin() error

	// End closes recording.
	End() error

	// Reset discards recorded commands and releases their resources.
	Reset() error

	// CommandBuffer returns the recorder's command buffer.
	CommandBuffer() gpu.CommandBuffer

	// SingleSubmit uploads staged pixels into an image and blocks until the queue is idle.
	// Mip level 0 of every layer in subRange is copied from staging; with generateMips the remaining
	// levels are produced by successive linear blits, each halving the previous level.
	// Every level ends in the shader-read-only layout.
	//
	// Parameters:
	//   - target: the destination image and its level-0 size
	//   - staging: a buffer holding the level-0 texels of every layer, tightly packed
	//   - subRange: the levels and layers to initialize
	//   - generateMips: whether to blit levels 1..LevelCount-1 from level 0
	//
	// Returns:
	//   - error: the first failing step; the recorder is reset in every case
	SingleSubmit(target Target, staging gpu.Buffer, subRange gpu.SubresourceRange, generateMips bool) error

	// Destroy frees the command buffer. Safe to call twice.
	Destroy()
}

type recorder struct {
	dev       gpu.Device
	cb        gpu.CommandBuffer
	recording bool
}

var _ Recorder = &recorder{}

// NewRecorder allocates the recorder's command buffer.
//
// Parameters:
//   - dev: the device to record and submit on
//
// Returns:
//   - Recorder: the recorder
//   - error: wraps gpu.ErrSetupFailure when the command buffer cannot be allocated
func NewRecorder(dev gpu.Device) (Recorder, error) {
	if dev == nil {
		panic("command: NewRecorder requires a device")
	}
	cb, err := dev.AllocateCommandBuffer()
	if err != nil {
		return nil, fmt.Errorf("command: allocate: %w", err)
	}
	return &recorder{dev: dev, cb: cb}, nil
}

func (r *recorder) CommandBuffer() gpu.CommandBuffer { return r.cb }

func (r *recorder) Begin() error {
	if r.cb == 0 {
		return fmt.Errorf("command: begin after destroy: %w", gpu.ErrInvalidState)
	}
	if r.recording {
		return fmt.Errorf("command: begin while recording: %w", gpu.ErrInvalidState)
	}
	if err := r.dev.BeginCommandBuffer(r.cb, gpu.CommandBufferUsageOneTimeSubmit); err != nil {
		return fmt.Errorf("command: begin: %w", err)
	}
	r.recording = true
	return nil
}

func (r *recorder) End() error {
	if !r.recording {
		return fmt.Errorf("command: end without begin: %w", gpu.ErrInvalidState)
	}
	r.recording = false
	if err := r.dev.EndCommandBuffer(r.cb); err != nil {
		return fmt.Errorf("command: end: %w", err)
	}
	return nil
}

func (r *recorder) Reset() error {
	r.recording = false
	if r.cb == 0 {
		return nil
	}
	if err := r.dev.ResetCommandBuffer(r.cb, gpu.CommandBufferResetReleaseResources); err != nil {
		return fmt.Errorf("command: reset: %w", err)
	}
	return nil
}

func (r *recorder) SingleSubmit(target Target, staging gpu.Buffer, subRange gpu.SubresourceRange, generateMips bool) (err error) {
	if subRange.LevelCount == 0 || subRange.LayerCount == 0 {
		return fmt.Errorf("command: upload with %d levels and %d layers: %w", subRange.LevelCount, subRange.LayerCount, gpu.ErrInvalidState)
	}
	if err := r.Begin(); err != nil {
		return err
	}
	defer func() {
		if rerr := r.Reset(); err == nil {
			err = rerr
		}
	}()

	r.recordUpload(target, staging, subRange, generateMips)

	if err := r.End(); err != nil {
		return err
	}
	if err := r.dev.QueueSubmit(gpu.SubmitInfo{CommandBuffers: []gpu.CommandBuffer{r.cb}}, 0); err != nil {
		return fmt.Errorf("command: submit: %w", err)
	}
	if err := r.dev.QueueWaitIdle(); err != nil {
		return fmt.Errorf("command: wait idle: %w", err)
	}
	return nil
}

func (r *recorder) recordUpload(target Target, staging gpu.Buffer, subRange gpu.SubresourceRange, generateMips bool) {
	r.dev.CmdPipelineBarrier(r.cb, gpu.ImageBarrier{
		Image:     target.Image,
		OldLayout: gpu.ImageLayoutUndefined,
		NewLayout: gpu.ImageLayoutTransferDst,
		SrcAccess: gpu.AccessNone,
		DstAccess: gpu.AccessTransferWrite,
		SrcStage:  gpu.PipelineStageTopOfPipe,
		DstStage:  gpu.PipelineStageTransfer,
		Range:     subRange,
	})

	r.dev.CmdCopyBufferToImage(r.cb, staging, target.Image, gpu.BufferImageCopy{
		Subresource: gpu.SubresourceLayers{
			Aspect:         subRange.Aspect,
			MipLevel:       subRange.BaseMipLevel,
			BaseArrayLayer: subRange.BaseArrayLayer,
			LayerCount:     subRange.LayerCount,
		},
		Extent: gpu.Extent3D{Width: target.Width, Height: target.Height, Depth: 1},
	})

	if !generateMips || subRange.LevelCount == 1 {
		r.dev.CmdPipelineBarrier(r.cb, gpu.ImageBarrier{
			Image:     target.Image,
			OldLayout: gpu.ImageLayoutTransferDst,
			NewLayout: gpu.ImageLayoutShaderReadOnly,
			SrcAccess: gpu.AccessTransferWrite,
			DstAccess: gpu.AccessShaderRead,
			SrcStage:  gpu.PipelineStageTransfer,
			DstStage:  gpu.PipelineStageFragmentShader,
			Range:     subRange,
		})
		return
	}

	r.recordMipChain(target, subRange)
}

// recordMipChain blits each level from the one above it. Every transition is its own barrier scoped to one level.
func (r *recorder) recordMipChain(target Target, subRange gpu.SubresourceRange) {
	level := func(mip uint32) gpu.SubresourceRange {
		return gpu.SubresourceRange{
			Aspect:         subRange.Aspect,
			BaseMipLevel:   mip,
			LevelCount:     1,
			BaseArrayLayer: subRange.BaseArrayLayer,
			LayerCount:     subRange.LayerCount,
		}
	}
	layers := func(mip uint32) gpu.SubresourceLayers {
		return gpu.SubresourceLayers{
			Aspect:         subRange.Aspect,
			MipLevel:       mip,
			BaseArrayLayer: subRange.BaseArrayLayer,
			LayerCount:     subRange.LayerCount,
		}
	}

	base := subRange.BaseMipLevel
	last := base + subRange.LevelCount - 1
	for mip := base + 1; mip <= last; mip++ {
		src := mip - 1
		r.dev.CmdPipelineBarrier(r.cb, gpu.ImageBarrier{
			Image:     target.Image,
			OldLayout: gpu.ImageLayoutTransferDst,
			NewLayout: gpu.ImageLayoutTransferSrc,
			SrcAccess: gpu.AccessTransferWrite,
			DstAccess: gpu.AccessTransferRead,
			SrcStage:  gpu.PipelineStageTransfer,
			DstStage:  gpu.PipelineStageTransfer,
			Range:     level(src),
		})

		srcW, srcH := MipExtent(target.Width, target.Height, src-base)
		dstW, dstH := MipExtent(target.Width, target.Height, mip-base)
		r.dev.CmdBlitImage(r.cb, target.Image, gpu.ImageBlit{
			SrcSubresource: layers(src),
			SrcOffsets:     [2]gpu.Offset3D{{}, {X: int32(srcW), Y: int32(srcH), Z: 1}},
			DstSubresource: layers(mip),
			DstOffsets:     [2]gpu.Offset3D{{}, {X: int32(dstW), Y: int32(dstH), Z: 1}},
		}, gpu.FilterLinear)

		r.dev.CmdPipelineBarrier(r.cb, gpu.ImageBarrier{
			Image:     target.Image,
			OldLayout: gpu.ImageLayoutTransferSrc,
			NewLayout: gpu.ImageLayoutShaderReadOnly,
			SrcAccess: gpu.AccessTransferRead,
			DstAccess: gpu.AccessShaderRead,
			SrcStage:  gpu.PipelineStageTransfer,
			DstStage:  gpu.PipelineStageFragmentShader,
			Range:     level(src),
		})
	}

	r.dev.CmdPipelineBarrier(r.cb, gpu.ImageBarrier{
		Image:     target.Image,
		OldLayout: gpu.ImageLayoutTransferDst,
		NewLayout: gpu.ImageLayoutShaderReadOnly,
		SrcAccess: gpu.AccessTransferWrite,
		DstAccess: gpu.AccessShaderRead,
		SrcStage:  gpu.PipelineStageTransfer,
		DstStage:  gpu.PipelineStageFragmentShader,
		Range:     level(last),
	})
}

func (r *recorder) Destroy() {
	if r.cb == 0 {
		return
	}
	r.dev.FreeCommandBuffer(r.cb)
	r.cb = 0
	r.recording = false
}

// MipExtent returns the size of mip level n of a width x height image, floor-halved and never below 1.
func MipExtent(width, height, n uint32) (uint32, uint32) {
	return max(width>>n, 1), max(height>>n, 1)
}
