package resource

import "fmt"

// Arena is CPU staging memory for fixed-stride blocks. It holds capacity entries and grows only when
// Reserve asks for more, so the backing slice stays stable across frames.
type Arena[T Marshaler] struct {
	stride uint64
	buf    []byte
	used   int
}

// NewArena creates an arena of capacity entries of stride bytes.
func NewArena[T Marshaler](stride uint64, capacity int) *Arena[T] {
	var zero T
	if stride < uint64(zero.Size()) {
		panic(fmt.Sprintf("resource: arena stride %d smaller than block size %d", stride, zero.Size()))
	}
	return &Arena[T]{stride: stride, buf: make([]byte, uint64(capacity)*stride)}
}

// Reserve ensures room for n entries, reallocating only when n exceeds the current capacity.
// Existing contents are preserved. It reports whether the arena grew.
func (a *Arena[T]) Reserve(n int) bool {
	if n <= a.Cap() {
		return false
	}
	grown := make([]byte, uint64(n)*a.stride)
	copy(grown, a.buf)
	a.buf = grown
	return true
}

// Put writes value at entry index. The index must be below Cap.
func (a *Arena[T]) Put(index int, value T) {
	if index < 0 || index >= a.Cap() {
		panic(fmt.Sprintf("resource: arena index %d out of capacity %d", index, a.Cap()))
	}
	off := uint64(index) * a.stride
	copy(a.buf[off:off+a.stride], value.Marshal())
	if index+1 > a.used {
		a.used = index + 1
	}
}

// Entry returns the bytes of entry index.
func (a *Arena[T]) Entry(index int) []byte {
	off := uint64(index) * a.stride
	return a.buf[off : off+a.stride]
}

// Bytes returns the entries written so far, from zero through the highest index Put.
func (a *Arena[T]) Bytes() []byte {
	return a.buf[:uint64(a.used)*a.stride]
}

// Reset forgets written entries without releasing memory.
func (a *Arena[T]) Reset() {
	clear(a.buf[:uint64(a.used)*a.stride])
	a.used = 0
}

// Offset returns the byte offset of entry index.
func (a *Arena[T]) Offset(index int) uint64 { return uint64(index) * a.stride }

// Stride returns the distance between entries in bytes.
func (a *Arena[T]) Stride() uint64 { return a.stride }

// Cap returns the entry capacity.
func (a *Arena[T]) Cap() int { return int(uint64(len(a.buf)) / a.stride) }
