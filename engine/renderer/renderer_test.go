package renderer

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-vk/engine/camera"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-vk/engine/scene"
)

func TestNewRendererRejectsMissingWindow(t *testing.T) {
	if _, err := NewRenderer(BackendTypeVulkan, nil); !errors.Is(err, gpu.ErrSetupFailure) {
		t.Errorf("got %v, want setup failure", err)
	}
}

func TestDefaults(t *testing.T) {
	r := newRenderer(BackendTypeWGPU)
	if r.SampleCount() != 4 {
		t.Errorf("got %d samples, want 4", r.SampleCount())
	}
	if r.presentMode != PresentModeVSync {
		t.Error("vsync should be the default present mode")
	}
	if r.Backend().String() != "wgpu" {
		t.Errorf("got %q", r.Backend())
	}

	r = newRenderer(BackendTypeVulkan, WithSampleCount(0), WithAppName(""))
	if r.SampleCount() != 4 || r.appName != "oxy-vk" {
		t.Error("zero values should keep the defaults")
	}
}

func TestSceneInheritsFrameOptions(t *testing.T) {
	dev := gputest.NewDevice(320, 240, 3)
	r := newRenderer(BackendTypeVulkan,
		WithFramesInFlight(3),
		WithSampleCount(MSAA8x),
		WithFenceTimeout(10*time.Millisecond),
	)
	r.device = dev

	s := r.NewScene("inherit", camera.NewCamera(), scene.WithShadowMapDimension(64), scene.WithDecodeWorkers(1))
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer s.Shutdown()

	if got := dev.Live()["fence"]; got != 3 {
		t.Errorf("got %d fences, want one per frame in flight", got)
	}
	if s.SampleCount() != dev.Limits().MaxSampleCount {
		t.Errorf("8x should clamp to the device limit, got %d", s.SampleCount())
	}
}

func TestSceneOptionsOverrideRenderer(t *testing.T) {
	dev := gputest.NewDevice(320, 240, 2)
	r := newRenderer(BackendTypeVulkan, WithSampleCount(MSAA4x))
	r.device = dev

	s := r.NewScene("override", camera.NewCamera(), scene.WithSampleCount(1), scene.WithShadowMapDimension(64))
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer s.Shutdown()
	if s.SampleCount() != 1 {
		t.Errorf("got %d samples, want the scene's own request", s.SampleCount())
	}
}

func TestCloseTwice(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	r := newRenderer(BackendTypeVulkan)
	r.device = dev
	r.Close()
	r.Close()
	if n := len(dev.Ops("Close")); n != 1 {
		t.Errorf("device closed %d times", n)
	}
	if n := len(dev.Ops("WaitIdle")); n != 1 {
		t.Errorf("got %d idle waits, want 1", n)
	}
}
