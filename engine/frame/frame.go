// Package frame paces the render loop across N frames in flight. Each pending-frame slot owns a fence,
// an acquire semaphore, a present semaphore and a command buffer; BeginFrame and EndFrame move a slot
// through Idle, Acquiring, Recording, Submitted and Presenting.
package frame

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// SlotState is the lifecycle state of one pending-frame slot.
type SlotState int

const (
	SlotIdle SlotState = iota
	SlotAcquiring
	SlotRecording
	SlotSubmitted
	SlotPresenting
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotAcquiring:
		return "acquiring"
	case SlotRecording:
		return "recording"
	case SlotSubmitted:
		return "submitted"
	case SlotPresenting:
		return "presenting"
	default:
		return fmt.Sprintf("SlotState(%d)", int(s))
	}
}

// Stats counts frame outcomes since creation.
type Stats struct {
	Presented uint64
	Retries   uint64
}

// Synchronizer is the frame synchronization unit.
type Synchronizer interface {
	// BeginFrame waits for the current slot's previous GPU work, resets its fence, acquires the next
	// swapchain image and begins recording the slot's command buffer with the one-time-submit hint.
	//
	// Returns:
	//   - gpu.FrameResult: Ok when recording may start, Retry when the surface is out of date, Fatal on device loss
	BeginFrame() gpu.FrameResult

	// EndFrame ends recording, submits the command buffer and presents the acquired image, then advances
	// to the next slot. The slot advances even when present reports Retry, since the work was submitted.
	//
	// Returns:
	//   - gpu.FrameResult: the outcome of submit and present
	EndFrame() gpu.FrameResult

	// Slot returns the current pending-frame slot in [0, FramesInFlight()).
	Slot() int

	// FramesInFlight returns N, the number of pending-frame slots.
	FramesInFlight() int

	// ImageIndex returns the swapchain image acquired by the last successful BeginFrame.
	ImageIndex() uint32

	// CommandBuffer returns the current slot's command buffer.
	CommandBuffer() gpu.CommandBuffer

	// State returns the lifecycle state of a slot.
	State(slot int) SlotState

	// Stats returns the frame outcome counters.
	Stats() Stats

	// Destroy waits for the device to go idle and releases every slot's objects. Safe to call twice.
	Destroy()
}

type slotResources struct {
	fence            gpu.Fence
	acquired         gpu.Semaphore
	rendered         gpu.Semaphore
	commandBuffer    gpu.CommandBuffer
	state            SlotState
	fenceUnsubmitted bool
}

type synchronizer struct {
	dev            gpu.Device
	framesInFlight int
	fenceTimeout   time.Duration
	acquireTimeout time.Duration

	slots      []slotResources
	current    int
	imageIndex uint32
	stats      Stats
	destroyed  bool
}

var _ Synchronizer = &synchronizer{}

// NewSynchronizer creates the per-slot fences, semaphores and command buffers.
// Fences are created signaled so the first BeginFrame on every slot does not block.
//
// Parameters:
//   - dev: the device to create synchronization objects on
//   - options: SynchronizerBuilderOption values such as WithFramesInFlight and WithFenceTimeout
//
// Returns:
//   - Synchronizer: the synchronizer
//   - error: wraps gpu.ErrSetupFailure when any object cannot be created
func NewSynchronizer(dev gpu.Device, options ...SynchronizerBuilderOption) (Synchronizer, error) {
	if dev == nil {
		panic("frame: NewSynchronizer requires a device")
	}
	s := &synchronizer{
		dev:            dev,
		framesInFlight: DefaultFramesInFlight,
		fenceTimeout:   DefaultFenceTimeout,
		acquireTimeout: DefaultAcquireTimeout,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.framesInFlight < 1 {
		return nil, fmt.Errorf("frame: %d frames in flight: %w", s.framesInFlight, gpu.ErrSetupFailure)
	}

	s.slots = make([]slotResources, s.framesInFlight)
	for i := range s.slots {
		if err := s.createSlot(&s.slots[i]); err != nil {
			s.Destroy()
			return nil, fmt.Errorf("frame: slot %d: %w", i, err)
		}
	}
	return s, nil
}

func (s *synchronizer) createSlot(r *slotResources) error {
	var err error
	if r.fence, err = s.dev.CreateFence(true); err != nil {
		return err
	}
	if r.acquired, err = s.dev.CreateSemaphore(); err != nil {
		return err
	}
	if r.rendered, err = s.dev.CreateSemaphore(); err != nil {
		return err
	}
	if r.commandBuffer, err = s.dev.AllocateCommandBuffer(); err != nil {
		return err
	}
	return nil
}

func (s *synchronizer) BeginFrame() gpu.FrameResult {
	if s.destroyed {
		return s.fail(fmt.Errorf("frame: begin after destroy: %w", gpu.ErrInvalidState))
	}
	r := &s.slots[s.current]
	if r.state != SlotIdle {
		return s.fail(fmt.Errorf("frame: begin on slot %d in state %s: %w", s.current, r.state, gpu.ErrInvalidState))
	}
	r.state = SlotAcquiring

	// A fence reset by a frame that never reached a successful submit stays unsignaled; waiting on it would hang.
	if !r.fenceUnsubmitted {
		if err := s.dev.WaitForFence(r.fence, s.fenceTimeout); err != nil {
			r.state = SlotIdle
			if errors.Is(err, gpu.ErrTimeout) {
				err = fmt.Errorf("frame: slot %d fence not signaled after %s: %w: %w", s.current, s.fenceTimeout, gpu.ErrDeviceLost, err)
			}
			return s.fail(err)
		}
		if err := s.dev.ResetFence(r.fence); err != nil {
			r.state = SlotIdle
			return s.fail(fmt.Errorf("frame: reset fence: %w", err))
		}
		r.fenceUnsubmitted = true
	}

	idx, err := s.dev.AcquireNextImage(r.acquired, s.acquireTimeout)
	if err != nil {
		r.state = SlotIdle
		if errors.Is(err, gpu.ErrTimeout) {
			err = fmt.Errorf("frame: acquire: %w: %w", gpu.ErrTransient, err)
		}
		return s.fail(err)
	}
	s.imageIndex = idx

	if err := s.dev.ResetCommandBuffer(r.commandBuffer, 0); err != nil {
		r.state = SlotIdle
		return s.fail(fmt.Errorf("frame: reset command buffer: %w", err))
	}
	if err := s.dev.BeginCommandBuffer(r.commandBuffer, gpu.CommandBufferUsageOneTimeSubmit); err != nil {
		r.state = SlotIdle
		return s.fail(fmt.Errorf("frame: begin command buffer: %w", err))
	}
	r.state = SlotRecording
	return gpu.FrameResult{Status: gpu.FrameOk}
}

func (s *synchronizer) EndFrame() gpu.FrameResult {
	if s.destroyed {
		return s.fail(fmt.Errorf("frame: end after destroy: %w", gpu.ErrInvalidState))
	}
	r := &s.slots[s.current]
	if r.state != SlotRecording {
		return s.fail(fmt.Errorf("frame: end on slot %d in state %s: %w", s.current, r.state, gpu.ErrInvalidState))
	}

	if err := s.dev.EndCommandBuffer(r.commandBuffer); err != nil {
		r.state = SlotIdle
		return s.fail(s.renewAcquired(r, fmt.Errorf("frame: end command buffer: %w", err)))
	}

	r.state = SlotSubmitted
	err := s.dev.QueueSubmit(gpu.SubmitInfo{
		CommandBuffers:   []gpu.CommandBuffer{r.commandBuffer},
		WaitSemaphores:   []gpu.Semaphore{r.acquired},
		WaitStages:       []gpu.PipelineStage{gpu.PipelineStageColorAttachmentOutput},
		SignalSemaphores: []gpu.Semaphore{r.rendered},
	}, r.fence)
	if err != nil {
		r.state = SlotIdle
		return s.fail(s.renewAcquired(r, fmt.Errorf("frame: submit: %w", err)))
	}
	r.fenceUnsubmitted = false

	r.state = SlotPresenting
	err = s.dev.QueuePresent(gpu.PresentInfo{
		WaitSemaphores: []gpu.Semaphore{r.rendered},
		ImageIndex:     s.imageIndex,
	})

	r.state = SlotIdle
	s.current = (s.current + 1) % s.framesInFlight
	if err != nil {
		return s.fail(fmt.Errorf("frame: present: %w", err))
	}
	s.stats.Presented++
	return gpu.FrameResult{Status: gpu.FrameOk}
}

// renewAcquired replaces a slot's acquire semaphore after a frame that acquired an image but never
// submitted. Nothing will wait on the old one, and a signaled semaphore cannot be passed to the
// next acquire.
func (s *synchronizer) renewAcquired(r *slotResources, cause error) error {
	if err := s.dev.WaitIdle(); err != nil {
		log.Printf("[Frame] wait idle before replacing acquire semaphore: %v", err)
	}
	s.dev.DestroySemaphore(r.acquired)
	sem, err := s.dev.CreateSemaphore()
	if err != nil {
		r.acquired = 0
		return errors.Join(cause, fmt.Errorf("frame: replace acquire semaphore: %w", err))
	}
	r.acquired = sem
	return cause
}

func (s *synchronizer) fail(err error) gpu.FrameResult {
	res := gpu.FrameResultOf(err)
	if res.Status == gpu.FrameRetry {
		s.stats.Retries++
	}
	log.Printf("[Frame] %s: %v", res.Status, err)
	return res
}

func (s *synchronizer) Slot() int                        { return s.current }
func (s *synchronizer) FramesInFlight() int              { return s.framesInFlight }
func (s *synchronizer) ImageIndex() uint32               { return s.imageIndex }
func (s *synchronizer) CommandBuffer() gpu.CommandBuffer { return s.slots[s.current].commandBuffer }
func (s *synchronizer) Stats() Stats                     { return s.stats }

func (s *synchronizer) State(slot int) SlotState {
	if slot < 0 || slot >= len(s.slots) {
		return SlotIdle
	}
	return s.slots[slot].state
}

func (s *synchronizer) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	if err := s.dev.WaitIdle(); err != nil {
		log.Printf("[Frame] wait idle before destroy: %v", err)
	}
	for i := range s.slots {
		r := &s.slots[i]
		s.dev.FreeCommandBuffer(r.commandBuffer)
		s.dev.DestroySemaphore(r.rendered)
		s.dev.DestroySemaphore(r.acquired)
		s.dev.DestroyFence(r.fence)
		*r = slotResources{}
	}
}
