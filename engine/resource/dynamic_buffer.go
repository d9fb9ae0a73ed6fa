package resource

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// DynamicBuffer is a uniform buffer of count entries placed stride bytes apart, addressed with dynamic offsets.
// The stride is supplied by the caller already aligned to the device's minimum uniform offset alignment.
type DynamicBuffer[T Marshaler] struct {
	dev    gpu.MemoryAllocator
	handle gpu.Buffer
	label  string
	count  int
	stride uint64
}

// NewDynamicBuffer allocates count entries of stride bytes.
//
// Parameters:
//   - dev: the allocator to create the buffer on
//   - label: a debug label
//   - usage: how the buffer is bound
//   - count: the entry capacity, must be positive
//   - stride: the distance between entries in bytes, at least the block size of T
//
// Returns:
//   - *DynamicBuffer[T]: the buffer
//   - error: wraps gpu.ErrSetupFailure on invalid arguments or allocation failure
func NewDynamicBuffer[T Marshaler](dev gpu.MemoryAllocator, label string, usage gpu.BufferUsage, count int, stride uint64) (*DynamicBuffer[T], error) {
	if dev == nil {
		panic("resource: NewDynamicBuffer requires a device")
	}
	var zero T
	if count <= 0 || stride < uint64(zero.Size()) {
		return nil, fmt.Errorf("dynamic buffer %q: count %d stride %d (block %d): %w", label, count, stride, zero.Size(), gpu.ErrSetupFailure)
	}
	h, err := dev.CreateBuffer(gpu.BufferDescriptor{Label: label, Size: uint64(count) * stride, Usage: usage})
	if err != nil {
		return nil, fmt.Errorf("dynamic buffer %q: %w", label, err)
	}
	return &DynamicBuffer[T]{dev: dev, handle: h, label: label, count: count, stride: stride}, nil
}

// NewUniform allocates a single-entry buffer for one uniform block.
func NewUniform[T Marshaler](dev gpu.MemoryAllocator, label string) (*DynamicBuffer[T], error) {
	var zero T
	return NewDynamicBuffer[T](dev, label, gpu.BufferUsageUniform, 1, uint64(zero.Size()))
}

// Update writes values to consecutive entries starting at entry zero.
func (b *DynamicBuffer[T]) Update(values ...T) error {
	if len(values) > b.count {
		return fmt.Errorf("dynamic buffer %q: %d values exceed %d entries: %w", b.label, len(values), b.count, gpu.ErrResourceExhausted)
	}
	raw := make([]byte, uint64(len(values))*b.stride)
	for i, v := range values {
		copy(raw[uint64(i)*b.stride:], v.Marshal())
	}
	return b.UpdateBytes(raw)
}

// UpdateAt writes one value at entry index.
func (b *DynamicBuffer[T]) UpdateAt(index int, value T) error {
	if index < 0 || index >= b.count {
		return fmt.Errorf("dynamic buffer %q: index %d out of %d entries: %w", b.label, index, b.count, gpu.ErrResourceExhausted)
	}
	return write(b.dev, b.handle, b.label, b.Size(), b.Offset(index), value.Marshal())
}

// UpdateBytes copies a pre-laid-out byte image (for example an Arena) to the start of the buffer.
func (b *DynamicBuffer[T]) UpdateBytes(raw []byte) error {
	return write(b.dev, b.handle, b.label, b.Size(), 0, raw)
}

// Offset returns the dynamic offset of entry index.
func (b *DynamicBuffer[T]) Offset(index int) uint64 {
	return uint64(index) * b.stride
}

// Handle returns the device handle, or the null handle after Destroy.
func (b *DynamicBuffer[T]) Handle() gpu.Buffer { return b.handle }

// Len returns the entry capacity.
func (b *DynamicBuffer[T]) Len() int { return b.count }

// Stride returns the distance between entries in bytes.
func (b *DynamicBuffer[T]) Stride() uint64 { return b.stride }

// Size returns the byte size of the allocation.
func (b *DynamicBuffer[T]) Size() uint64 { return uint64(b.count) * b.stride }

// BlockSize returns the unpadded byte size of one entry, the range a dynamic binding covers.
func (b *DynamicBuffer[T]) BlockSize() uint64 {
	var zero T
	return uint64(zero.Size())
}

// Destroy releases the buffer and its memory. Calling it again, or on a nil DynamicBuffer, does nothing.
func (b *DynamicBuffer[T]) Destroy() {
	if b == nil || b.handle == 0 {
		return
	}
	b.dev.DestroyBuffer(b.handle)
	b.handle = 0
}
