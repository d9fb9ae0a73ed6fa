package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestDefaults(t *testing.T) {
	l := NewLight()
	if l.Type() != LightTypeDirectional || l.Direction() != (mgl32.Vec3{0, 1, 1}) {
		t.Errorf("type %v direction %v", l.Type(), l.Direction())
	}
	if l.Color() != (mgl32.Vec4{1, 1, 1, 1}) || l.Radius() != 200 || l.Intensity() != 1 {
		t.Errorf("color %v radius %v intensity %v", l.Color(), l.Radius(), l.Intensity())
	}
}

func TestGPUDataIsViewSpace(t *testing.T) {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	invView := view.Transpose()

	l := NewLight(WithType(LightTypePoint), WithAttenuation(0.5))
	d := l.GPUData(mgl32.Vec3{1, 2, 0}, invView)
	if !d.Position.ApproxEqual(mgl32.Vec4{1, 2, -5, 1}) {
		t.Errorf("position = %v", d.Position)
	}
	if !d.Direction.Vec3().ApproxEqual(mgl32.Vec3{0, 1, 1}) {
		t.Errorf("direction = %v", d.Direction)
	}
	if d.Type != uint32(LightTypePoint) || d.Attenuation != 0.5 {
		t.Errorf("record = %+v", d)
	}
}

func TestRotateSetsDirection(t *testing.T) {
	l := NewLight()
	l.Rotate(mgl32.QuatIdent())
	if !l.Direction().ApproxEqual(mgl32.Vec3{0, 0, 1}) {
		t.Errorf("identity direction = %v", l.Direction())
	}
	l.Rotate(mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 1, 0}))
	if !l.Direction().ApproxEqualThreshold(mgl32.Vec3{1, 0, 0}, 1e-5) {
		t.Errorf("rotated direction = %v", l.Direction())
	}
}

func TestLightsMarshal(t *testing.T) {
	var block GPULights
	block.Lights[1] = NewLight(WithType(LightTypeSpot)).GPUData(mgl32.Vec3{}, mgl32.Ident4())
	block.Count = 2
	buf := block.Marshal()
	if len(buf) != 336 {
		t.Fatalf("size = %d", len(buf))
	}
	if got := binary.LittleEndian.Uint32(buf[80+64:]); got != uint32(LightTypeSpot) {
		t.Errorf("light 1 type = %d", got)
	}
	if got := binary.LittleEndian.Uint32(buf[MaxLights*80:]); got != 2 {
		t.Errorf("count = %d", got)
	}
}

func TestTypeString(t *testing.T) {
	if LightTypeSpot.String() != "spot" || LightType(9).String() != "unknown" {
		t.Error("String")
	}
}
