package frame

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
)

func newSync(t *testing.T, dev *gputest.Device, n int) Synchronizer {
	t.Helper()
	s, err := NewSynchronizer(dev, WithFramesInFlight(n), WithFenceTimeout(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewSynchronizer: %v", err)
	}
	t.Cleanup(s.Destroy)
	return s
}

func runFrame(t *testing.T, s Synchronizer) {
	t.Helper()
	if res := s.BeginFrame(); !res.Ok() {
		t.Fatalf("BeginFrame: %v", res.Err)
	}
	if res := s.EndFrame(); !res.Ok() {
		t.Fatalf("EndFrame: %v", res.Err)
	}
}

func TestSlotsCycle(t *testing.T) {
	for _, n := range []int{2, 3, 4} {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			dev := gputest.NewDevice(64, 64, n)
			s := newSync(t, dev, n)
			for frame := 0; frame < 3*n; frame++ {
				if got := s.Slot(); got != frame%n {
					t.Fatalf("frame %d on slot %d, want %d", frame, got, frame%n)
				}
				runFrame(t, s)
			}
			if s.Stats().Presented != uint64(3*n) {
				t.Errorf("presented %d", s.Stats().Presented)
			}
		})
	}
}

func TestFenceWaitedAndResetBeforeRecording(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	s := newSync(t, dev, 2)
	dev.ClearEvents()

	for i := 0; i < 4; i++ {
		runFrame(t, s)
	}

	var lastWait, lastReset = map[uint64]int{}, map[uint64]int{}
	for i, e := range dev.Events {
		switch e.Op {
		case "WaitForFence":
			lastWait[e.Handle] = i
		case "ResetFence":
			if w, ok := lastWait[e.Handle]; !ok || w > i {
				t.Fatalf("fence %d reset at %d without a preceding wait", e.Handle, i)
			}
			lastReset[e.Handle] = i
		case "BeginCommandBuffer":
			if len(lastReset) == 0 {
				t.Fatalf("recording began at %d before any fence reset", i)
			}
		case "QueueSubmit":
			if _, ok := lastReset[e.Handle]; !ok {
				t.Fatalf("submitted with fence %d that was never reset", e.Handle)
			}
		}
	}
	if got := len(dev.Ops("WaitForFence")); got != 4 {
		t.Errorf("%d fence waits, want 4", got)
	}
}

func TestEndFrameSubmitWiring(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	s := newSync(t, dev, 2)

	if res := s.BeginFrame(); !res.Ok() {
		t.Fatal(res.Err)
	}
	cb := s.CommandBuffer()
	if st := dev.CommandBuffers[cb]; st.Usage&gpu.CommandBufferUsageOneTimeSubmit == 0 {
		t.Error("command buffer not begun with one-time-submit")
	}
	if s.State(0) != SlotRecording {
		t.Errorf("state = %s, want recording", s.State(0))
	}
	if res := s.EndFrame(); !res.Ok() {
		t.Fatal(res.Err)
	}

	if len(dev.Submits) != 1 || len(dev.Presents) != 1 {
		t.Fatalf("%d submits %d presents", len(dev.Submits), len(dev.Presents))
	}
	sub := dev.Submits[0]
	if sub.Fence == 0 || sub.Info.CommandBuffers[0] != cb {
		t.Error("submit missing fence or command buffer")
	}
	if len(sub.Info.WaitStages) != 1 || sub.Info.WaitStages[0] != gpu.PipelineStageColorAttachmentOutput {
		t.Errorf("wait stages = %v", sub.Info.WaitStages)
	}
	if dev.Presents[0].WaitSemaphores[0] != sub.Info.SignalSemaphores[0] {
		t.Error("present does not wait on the semaphore the submit signals")
	}
	if sub.Info.WaitSemaphores[0] == sub.Info.SignalSemaphores[0] {
		t.Error("acquire and present semaphores are the same object")
	}
	if s.State(0) != SlotIdle || s.Slot() != 1 {
		t.Errorf("after EndFrame slot=%d state=%s", s.Slot(), s.State(0))
	}
}

func TestSubmitFailureRenewsAcquireSemaphore(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	s := newSync(t, dev, 2)
	old := s.(*synchronizer).slots[0].acquired

	dev.SubmitErr = gpu.ErrDeviceLost
	if res := s.BeginFrame(); !res.Ok() {
		t.Fatal(res.Err)
	}
	if res := s.EndFrame(); res.Status != gpu.FrameFatal || !errors.Is(res.Err, gpu.ErrDeviceLost) {
		t.Fatalf("EndFrame = %v %v, want fatal device lost", res.Status, res.Err)
	}
	renewed := s.(*synchronizer).slots[0].acquired
	if renewed == 0 || renewed == old {
		t.Fatalf("acquire semaphore %d was not replaced (old %d)", renewed, old)
	}
	if got := dev.Live()["semaphore"]; got != 4 {
		t.Errorf("%d live semaphores, want 4", got)
	}

	// the slot retries with the fresh semaphore
	dev.SubmitErr = nil
	if s.Slot() != 0 {
		t.Fatalf("slot advanced to %d after a failed submit", s.Slot())
	}
	runFrame(t, s)
	sub := dev.Submits[len(dev.Submits)-1]
	if sub.Info.WaitSemaphores[0] != renewed {
		t.Errorf("submit waits on %d, want the renewed %d", sub.Info.WaitSemaphores[0], renewed)
	}
}

func TestAcquireOutOfDateRetries(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	s := newSync(t, dev, 2)
	dev.AcquireErrs = []error{fmt.Errorf("acquire: %w", gpu.ErrSurfaceOutOfDate)}

	res := s.BeginFrame()
	if res.Status != gpu.FrameRetry {
		t.Fatalf("status = %s, want retry", res.Status)
	}
	if s.Slot() != 0 || s.State(0) != SlotIdle {
		t.Errorf("slot %d state %s after retry", s.Slot(), s.State(0))
	}

	// The fence was reset but never submitted; the retry must not wait on it.
	dev.ClearEvents()
	runFrame(t, s)
	if n := len(dev.Ops("WaitForFence")); n != 0 {
		t.Errorf("retry waited on an unsubmitted fence %d times", n)
	}
	if s.Stats().Retries != 1 {
		t.Errorf("retries = %d", s.Stats().Retries)
	}
}

func TestPresentOutOfDateAdvancesSlot(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	s := newSync(t, dev, 2)
	dev.PresentErrs = []error{fmt.Errorf("present: %w", gpu.ErrSurfaceOutOfDate)}

	if res := s.BeginFrame(); !res.Ok() {
		t.Fatal(res.Err)
	}
	if res := s.EndFrame(); res.Status != gpu.FrameRetry {
		t.Fatalf("status = %s, want retry", res.Status)
	}
	if s.Slot() != 1 {
		t.Errorf("slot = %d, want 1", s.Slot())
	}
}

func TestFenceTimeoutIsDeviceLost(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	s := newSync(t, dev, 2)
	dev.HangFences = true

	runFrame(t, s)
	runFrame(t, s)
	res := s.BeginFrame()
	if res.Status != gpu.FrameFatal {
		t.Fatalf("status = %s, want fatal", res.Status)
	}
	if !errors.Is(res.Err, gpu.ErrDeviceLost) {
		t.Errorf("err = %v, want ErrDeviceLost", res.Err)
	}
}

func TestOutOfOrderCallsRejected(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	s := newSync(t, dev, 2)
	dev.ClearEvents()

	if res := s.EndFrame(); !errors.Is(res.Err, gpu.ErrInvalidState) {
		t.Fatalf("EndFrame before BeginFrame: %v", res.Err)
	}
	if len(dev.Events) != 0 {
		t.Errorf("device touched: %v", dev.Ops())
	}

	if res := s.BeginFrame(); !res.Ok() {
		t.Fatal(res.Err)
	}
	if res := s.BeginFrame(); !errors.Is(res.Err, gpu.ErrInvalidState) {
		t.Errorf("double BeginFrame: %v", res.Err)
	}
}

func TestDestroyReleasesEverything(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	s, err := NewSynchronizer(dev, WithFramesInFlight(3))
	if err != nil {
		t.Fatal(err)
	}
	live := dev.Live()
	if live["fence"] != 3 || live["semaphore"] != 6 || live["commandbuffer"] != 3 {
		t.Fatalf("live objects %v", live)
	}
	s.Destroy()
	s.Destroy()
	for kind, n := range dev.Live() {
		if n != 0 {
			t.Errorf("%d %s objects leaked", n, kind)
		}
	}
}

func TestSetupFailure(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	dev.FailCreate["semaphore"] = true
	if _, err := NewSynchronizer(dev); !errors.Is(err, gpu.ErrSetupFailure) {
		t.Fatalf("err = %v", err)
	}
	if dev.Live()["fence"] != 0 {
		t.Error("fence leaked after failed setup")
	}
}
