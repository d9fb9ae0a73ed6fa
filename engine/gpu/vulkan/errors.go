package vulkan

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	vk "github.com/vulkan-go/vulkan"
)

// errorOutOfPoolMemory is VK_ERROR_OUT_OF_POOL_MEMORY (core in Vulkan 1.1).
const errorOutOfPoolMemory = vk.Result(-1000069000)

// classify maps a Vulkan result to the gpu error it belongs to, or fallback.
func classify(res vk.Result, fallback error) error {
	switch res {
	case vk.ErrorOutOfDate, vk.ErrorSurfaceLost:
		return gpu.ErrSurfaceOutOfDate
	case vk.ErrorDeviceLost:
		return gpu.ErrDeviceLost
	case vk.Timeout:
		return gpu.ErrTimeout
	case vk.NotReady:
		return gpu.ErrTransient
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory, vk.ErrorFragmentedPool, errorOutOfPoolMemory:
		return gpu.ErrResourceExhausted
	default:
		return fallback
	}
}

// check returns nil for vk.Success and a classified error otherwise.
func check(res vk.Result, op string, fallback error) error {
	if res == vk.Success {
		return nil
	}
	return fmt.Errorf("vulkan: %s: %w: %w", op, classify(res, fallback), vk.Error(res))
}

// setupError makes sure err carries a gpu error class, defaulting to gpu.ErrSetupFailure.
func setupError(err error) error {
	for _, known := range []error{
		gpu.ErrSetupFailure, gpu.ErrResourceExhausted, gpu.ErrDeviceLost,
		gpu.ErrSurfaceOutOfDate, gpu.ErrTransient, gpu.ErrTimeout,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", gpu.ErrSetupFailure, err)
}

// safeString returns s null-terminated, as the bindings pass Go strings to C unchanged.
func safeString(s string) string {
	if len(s) > 0 && s[len(s)-1] == 0 {
		return s
	}
	return s + "\x00"
}

func safeStrings(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}
