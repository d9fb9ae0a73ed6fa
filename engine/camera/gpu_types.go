package camera

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUViewProjSource is the canonical WGSL definition of the ViewProj struct.
// Matches GPUViewProj layout exactly (128 bytes).
//
//go:embed assets/view_proj.wgsl
var GPUViewProjSource string

// GPUViewProj is the per-frame camera uniform block. Lighting runs in view space, so the
// camera position is implied by the view matrix.
type GPUViewProj struct {
	View mgl32.Mat4 // offset  0
	Proj mgl32.Mat4 // offset 64: Y-flipped perspective
}

// Size returns the size of the GPUViewProj struct in bytes.
//
// Returns:
//   - int: 128
func (g GPUViewProj) Size() int {
	return 128
}

// Marshal serializes the block into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 128-byte buffer ready for GPU upload
func (g GPUViewProj) Marshal() []byte {
	buf := make([]byte, g.Size())
	common.PutMat4(buf, 0, g.View)
	common.PutMat4(buf, 64, g.Proj)
	return buf
}
