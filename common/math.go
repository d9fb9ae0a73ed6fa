package common

import (
	"encoding/binary"
	"math"
	"math/bits"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/exp/constraints"
)

// AlignUp rounds size up to the next multiple of alignment. Alignment must be a power of two; zero leaves size unchanged.
//
// Parameters:
//   - size: the value to round
//   - alignment: the power-of-two boundary
//
// Returns:
//   - T: the aligned value
func AlignUp[T constraints.Unsigned](size, alignment T) T {
	if alignment == 0 {
		return size
	}
	return (size + alignment - 1) &^ (alignment - 1)
}

// MipLevels returns the length of a full mip chain for a width x height image: floor(log2(max(w,h)))+1.
func MipLevels(width, height uint32) uint32 {
	m := max(width, height)
	if m == 0 {
		return 1
	}
	return uint32(bits.Len32(m))
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// PutFloat32 writes v little-endian at buf[off:].
func PutFloat32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

// PutVec4 writes the four components of v little-endian starting at buf[off:].
func PutVec4(buf []byte, off int, v mgl32.Vec4) {
	for i := 0; i < 4; i++ {
		PutFloat32(buf, off+i*4, v[i])
	}
}

// PutMat4 writes m column-major little-endian starting at buf[off:]. It occupies 64 bytes.
func PutMat4(buf []byte, off int, m mgl32.Mat4) {
	for i := 0; i < 16; i++ {
		PutFloat32(buf, off+i*4, m[i])
	}
}

// Float32At reads a little-endian float32 from buf[off:].
func Float32At(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

// FlipY negates the Y scale of a projection matrix so GL-style clip space maps onto a Y-down framebuffer.
func FlipY(proj mgl32.Mat4) mgl32.Mat4 {
	proj.Set(1, 1, -proj.At(1, 1))
	return proj
}

// LookAtSafe is mgl32.LookAtV with an up-vector fallback when the view direction is parallel to up.
//
// Parameters:
//   - eye: the viewer position
//   - center: the point looked at
//   - up: the preferred up vector
//
// Returns:
//   - mgl32.Mat4: the view matrix
func LookAtSafe(eye, center, up mgl32.Vec3) mgl32.Mat4 {
	dir := center.Sub(eye)
	if dir.Len() > 0 && math.Abs(float64(dir.Normalize().Dot(up.Normalize()))) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}
	return mgl32.LookAtV(eye, center, up)
}
