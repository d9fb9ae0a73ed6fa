package light

import (
	_ "embed"
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxLights is the number of light records the lights uniform block holds.
const MaxLights = 4

// GPULightSource is the canonical WGSL definition of the Light struct.
// Matches GPULightData layout exactly (80 bytes, uniform aligned).
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULightData is the GPU-aligned representation of a single light source.
// Size: 80 bytes; the type field sits on its own 16-byte row.
type GPULightData struct {
	Color       mgl32.Vec4 // offset  0
	Position    mgl32.Vec4 // offset 16: view-space position
	Direction   mgl32.Vec4 // offset 32: view-space direction toward the light
	Radius      float32    // offset 48
	Angle       float32    // offset 52
	Intensity   float32    // offset 56
	Attenuation float32    // offset 60
	Type        uint32     // offset 64
}

// Size returns the size of the GPULightData record in bytes.
//
// Returns:
//   - int: 80
func (g GPULightData) Size() int {
	return 80
}

// Marshal serializes the record into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload
func (g GPULightData) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.marshalInto(buf)
	return buf
}

func (g GPULightData) marshalInto(buf []byte) {
	common.PutVec4(buf, 0, g.Color)
	common.PutVec4(buf, 16, g.Position)
	common.PutVec4(buf, 32, g.Direction)
	common.PutFloat32(buf, 48, g.Radius)
	common.PutFloat32(buf, 52, g.Angle)
	common.PutFloat32(buf, 56, g.Intensity)
	common.PutFloat32(buf, 60, g.Attenuation)
	binary.LittleEndian.PutUint32(buf[64:], g.Type)
}

// GPULightsSource is the WGSL definition of the Lights uniform block. It references Light,
// so shaders include GPULightSource first.
//
//go:embed assets/lights.wgsl
var GPULightsSource string

// GPULights is the lights uniform block: MaxLights records followed by the live count.
type GPULights struct {
	Lights [MaxLights]GPULightData
	Count  uint32
}

// Size returns the block size in bytes, padded to a 16-byte multiple.
//
// Returns:
//   - int: 336
func (g GPULights) Size() int {
	return MaxLights*80 + 16
}

// Marshal serializes the block for upload.
func (g GPULights) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range g.Lights {
		g.Lights[i].marshalInto(buf[i*80:])
	}
	binary.LittleEndian.PutUint32(buf[MaxLights*80:], g.Count)
	return buf
}
