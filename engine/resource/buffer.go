// Package resource wraps device buffers as typed, host-visible GPU resources and
// provides the CPU-side arenas the scene stages per-frame data in.
package resource

import (
	"fmt"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// Marshaler is implemented by GPU data blocks with an explicit byte layout.
type Marshaler interface {
	// Size returns the byte size of the block as laid out on the GPU.
	Size() int
	// Marshal returns the block's bytes, Size() bytes long.
	Marshal() []byte
}

// Buffer is a host-visible buffer holding count elements of a plain-data type T laid out as in Go memory.
// It is used for vertex and index data.
type Buffer[T any] struct {
	dev    gpu.MemoryAllocator
	handle gpu.Buffer
	label  string
	count  int
	size   uint64
}

// NewBuffer allocates a host-visible, host-coherent buffer large enough for count elements of T.
//
// Parameters:
//   - dev: the allocator to create the buffer on
//   - label: a debug label
//   - usage: how the buffer is bound
//   - count: the element capacity, must be positive
//
// Returns:
//   - *Buffer[T]: the buffer
//   - error: wraps gpu.ErrSetupFailure when the allocation fails
func NewBuffer[T any](dev gpu.MemoryAllocator, label string, usage gpu.BufferUsage, count int) (*Buffer[T], error) {
	if dev == nil {
		panic("resource: NewBuffer requires a device")
	}
	if count <= 0 {
		return nil, fmt.Errorf("buffer %q: count %d: %w", label, count, gpu.ErrSetupFailure)
	}
	var zero T
	size := uint64(unsafe.Sizeof(zero)) * uint64(count)
	h, err := dev.CreateBuffer(gpu.BufferDescriptor{Label: label, Size: size, Usage: usage})
	if err != nil {
		return nil, fmt.Errorf("buffer %q: %w", label, err)
	}
	return &Buffer[T]{dev: dev, handle: h, label: label, count: count, size: size}, nil
}

// NewBufferWithData allocates a buffer sized to data and uploads it.
func NewBufferWithData[T any](dev gpu.MemoryAllocator, label string, usage gpu.BufferUsage, data []T) (*Buffer[T], error) {
	b, err := NewBuffer[T](dev, label, usage, len(data))
	if err != nil {
		return nil, err
	}
	if err := b.Update(data); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

// Update copies data to the start of the buffer through a map, copy, unmap cycle.
// Nothing is written when data does not fit.
func (b *Buffer[T]) Update(data []T) error {
	return b.UpdateBytes(common.SliceToBytes(data))
}

// UpdateBytes copies raw bytes to the start of the buffer. Nothing is written when raw does not fit.
func (b *Buffer[T]) UpdateBytes(raw []byte) error {
	return write(b.dev, b.handle, b.label, b.size, 0, raw)
}

// Handle returns the device handle, or the null handle after Destroy.
func (b *Buffer[T]) Handle() gpu.Buffer { return b.handle }

// Len returns the element capacity.
func (b *Buffer[T]) Len() int { return b.count }

// Size returns the byte size of the allocation.
func (b *Buffer[T]) Size() uint64 { return b.size }

// Destroy releases the buffer and its memory. Calling it again, or on a nil Buffer, does nothing.
func (b *Buffer[T]) Destroy() {
	if b == nil || b.handle == 0 {
		return
	}
	b.dev.DestroyBuffer(b.handle)
	b.handle = 0
}

// write performs one map, copy, unmap cycle after validating the whole range up front.
func write(dev gpu.MemoryAllocator, h gpu.Buffer, label string, capacity, offset uint64, raw []byte) error {
	if h == 0 {
		return fmt.Errorf("buffer %q: write after destroy: %w", label, gpu.ErrInvalidState)
	}
	if len(raw) == 0 {
		return nil
	}
	if offset+uint64(len(raw)) > capacity {
		return fmt.Errorf("buffer %q: write of %d bytes at %d exceeds %d: %w", label, len(raw), offset, capacity, gpu.ErrResourceExhausted)
	}
	mapped, err := dev.MapBuffer(h, offset, uint64(len(raw)))
	if err != nil {
		return fmt.Errorf("buffer %q: map: %w", label, err)
	}
	copy(mapped, raw)
	dev.UnmapBuffer(h)
	return nil
}
