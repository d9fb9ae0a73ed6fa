package shadow

import (
	_ "embed"
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUCascadeInfoSource is the WGSL definition of the CascadeInfo struct (288 bytes).
//
//go:embed assets/cascade_info.wgsl
var GPUCascadeInfoSource string

// GPUCascadeInfo is the cascade uniform block.
type GPUCascadeInfo struct {
	LightSpace    [MaxCascades]mgl32.Mat4 // offset   0
	Splits        [MaxCascades]float32    // offset 256: negated view depth of each cascade's far plane
	ShowCascade   int32                   // offset 272
	ShowPCFFilter int32                   // offset 276
}

// Size returns the uniform block size in bytes, padded to a 16-byte multiple.
//
// Returns:
//   - int: 288
func (g GPUCascadeInfo) Size() int {
	return 288
}

// Marshal serializes the block for upload.
//
// Returns:
//   - []byte: 288-byte buffer ready for GPU upload
func (g GPUCascadeInfo) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i, m := range g.LightSpace {
		common.PutMat4(buf, i*64, m)
	}
	for i, s := range g.Splits {
		common.PutFloat32(buf, 256+i*4, s)
	}
	binary.LittleEndian.PutUint32(buf[272:], uint32(g.ShowCascade))
	binary.LittleEndian.PutUint32(buf[276:], uint32(g.ShowPCFFilter))
	return buf
}

// GPUSpotShadowInfoSource is the WGSL definition of the SpotShadowInfo struct (64 bytes).
//
//go:embed assets/spot_shadow_info.wgsl
var GPUSpotShadowInfoSource string

// GPUSpotShadowInfo is the spot-light shadow uniform block.
type GPUSpotShadowInfo struct {
	LightSpace mgl32.Mat4
}

func (g GPUSpotShadowInfo) Size() int { return 64 }

func (g GPUSpotShadowInfo) Marshal() []byte {
	buf := make([]byte, 64)
	common.PutMat4(buf, 0, g.LightSpace)
	return buf
}
