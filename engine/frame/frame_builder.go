package frame

import "time"

const (
	// DefaultFramesInFlight is the number of pending-frame slots.
	DefaultFramesInFlight = 2
	// DefaultFenceTimeout bounds the per-frame fence wait before the device is reported lost.
	DefaultFenceTimeout = 5 * time.Second
	// DefaultAcquireTimeout bounds the wait for a presentable image.
	DefaultAcquireTimeout = time.Second
)

type SynchronizerBuilderOption func(*synchronizer)

// WithFramesInFlight sets N, the number of frames the CPU may record ahead of the GPU.
//
// Parameters:
//   - n: the number of pending-frame slots, at least 1
//
// Returns:
//   - SynchronizerBuilderOption: a function that sets the slot count
func WithFramesInFlight(n int) SynchronizerBuilderOption {
	return func(s *synchronizer) {
		s.framesInFlight = n
	}
}

// WithFenceTimeout sets how long BeginFrame waits on a slot's fence before reporting device loss.
func WithFenceTimeout(d time.Duration) SynchronizerBuilderOption {
	return func(s *synchronizer) {
		s.fenceTimeout = d
	}
}

// WithAcquireTimeout sets how long BeginFrame waits for a presentable image.
func WithAcquireTimeout(d time.Duration) SynchronizerBuilderOption {
	return func(s *synchronizer) {
		s.acquireTimeout = d
	}
}
