package gpu

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every backend. Backends wrap these with fmt.Errorf("...: %w", ...)
// so callers classify failures with errors.Is.
var (
	// ErrSetupFailure is returned when creation of a GPU object fails.
	ErrSetupFailure = errors.New("gpu: setup failure")

	// ErrTransient marks a failure that a retry on the next frame may resolve.
	ErrTransient = errors.New("gpu: transient failure")

	// ErrResourceExhausted is returned when a fixed-capacity pool or buffer is full.
	ErrResourceExhausted = errors.New("gpu: resource exhausted")

	// ErrSurfaceOutOfDate is returned by acquire or present when the swapchain no longer matches the surface.
	ErrSurfaceOutOfDate = errors.New("gpu: surface out of date")

	// ErrDeviceLost is returned when the device stops responding, including fence waits that exceed their timeout.
	ErrDeviceLost = errors.New("gpu: device lost")

	// ErrTimeout is returned by a bounded wait that did not complete in time.
	ErrTimeout = errors.New("gpu: wait timed out")

	// ErrInvalidState is returned when an operation is called in the wrong lifecycle state.
	ErrInvalidState = errors.New("gpu: invalid state")

	// ErrUnknownHandle is returned when a handle does not name a live object.
	ErrUnknownHandle = errors.New("gpu: unknown handle")
)

// FrameStatus is the outcome class of a per-frame operation.
type FrameStatus int

const (
	// FrameOk means the frame proceeded normally.
	FrameOk FrameStatus = iota
	// FrameRetry means the frame was skipped and the caller should rebuild size-dependent state.
	FrameRetry
	// FrameFatal means the device is unusable.
	FrameFatal
)

func (s FrameStatus) String() string {
	switch s {
	case FrameOk:
		return "ok"
	case FrameRetry:
		return "retry"
	case FrameFatal:
		return "fatal"
	default:
		return fmt.Sprintf("FrameStatus(%d)", int(s))
	}
}

// FrameResult reports the outcome of BeginFrame or EndFrame. Err is nil only for FrameOk.
type FrameResult struct {
	Status FrameStatus
	Err    error
}

// Ok reports whether the frame proceeded normally.
func (r FrameResult) Ok() bool {
	return r.Status == FrameOk
}

// FrameResultOf classifies an error returned by a device call into a FrameResult.
//
// Parameters:
//   - err: the error to classify, may be nil
//
// Returns:
//   - FrameResult: FrameOk for nil, FrameRetry for out-of-date or transient errors, FrameFatal otherwise
func FrameResultOf(err error) FrameResult {
	switch {
	case err == nil:
		return FrameResult{Status: FrameOk}
	case errors.Is(err, ErrSurfaceOutOfDate), errors.Is(err, ErrTransient):
		return FrameResult{Status: FrameRetry, Err: err}
	default:
		return FrameResult{Status: FrameFatal, Err: err}
	}
}
