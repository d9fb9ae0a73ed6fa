package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

func TestSphereGeometry(t *testing.T) {
	for _, strip := range []bool{false, true} {
		v, idx, err := SphereGeometry(64, strip)
		if err != nil {
			t.Fatalf("strip=%v: %v", strip, err)
		}
		if len(v) != 65*65 {
			t.Errorf("strip=%v: got %d vertices, want %d", strip, len(v), 65*65)
		}
		if len(idx)%3 != 0 || len(idx) == 0 {
			t.Errorf("strip=%v: %d indices is not a triangle list", strip, len(idx))
		}
		for _, i := range idx {
			if int(i) >= len(v) {
				t.Fatalf("strip=%v: index %d out of range", strip, i)
			}
		}
		for _, vert := range v {
			l := mgl32.Vec3(vert.Position).Len()
			if l < 0.999 || l > 1.001 {
				t.Fatalf("strip=%v: vertex %v not on the unit sphere", strip, vert.Position)
			}
		}
	}

	// the list variant drops the pole triangles: 6n(n-1) indices
	_, idx, _ := SphereGeometry(8, false)
	if want := 6 * 8 * 7; len(idx) != want {
		t.Errorf("list sphere: got %d indices, want %d", len(idx), want)
	}

	for _, n := range []int{0, 2, MaxSphereSegments + 1} {
		if _, _, err := SphereGeometry(n, false); err == nil {
			t.Errorf("segments %d: expected an error", n)
		}
	}
}

func TestStripToList(t *testing.T) {
	got := StripToList([]uint16{0, 1, 2, 3, 3, 4})
	// (0,1,2), (2,1,3) flipped, (2,3,3) and (3,3,4) degenerate
	want := []uint16{0, 1, 2, 2, 1, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if StripToList([]uint16{0, 1}) != nil {
		t.Error("a strip shorter than a triangle should yield nothing")
	}
}

func TestCubeWinding(t *testing.T) {
	v, idx := CubeGeometry()
	if len(v) != 24 || len(idx) != 36 {
		t.Fatalf("got %d vertices / %d indices", len(v), len(idx))
	}
	for tri := 0; tri < len(idx); tri += 3 {
		a := mgl32.Vec3(v[idx[tri]].Position)
		b := mgl32.Vec3(v[idx[tri+1]].Position)
		c := mgl32.Vec3(v[idx[tri+2]].Position)
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Dot(mgl32.Vec3(v[idx[tri]].Normal)) <= 0 {
			t.Errorf("triangle %d winds away from its normal", tri/3)
		}
	}
}

func TestNewMeshValidation(t *testing.T) {
	v, _ := CubeGeometry()
	cases := map[string][]uint16{
		"empty":      nil,
		"not a list": {0, 1},
		"range":      {0, 1, 99},
	}
	for name, idx := range cases {
		if _, err := NewMesh(v, idx); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestMeshUploadAndDraw(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	m, err := NewCube(WithName("Box"))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Upload(dev); err != nil {
		t.Fatal(err)
	}
	if err := m.Upload(dev); err != nil {
		t.Fatal(err)
	}
	if got := dev.Live()["buffer"]; got != 2 {
		t.Fatalf("got %d live buffers, want 2", got)
	}

	cb, _ := dev.AllocateCommandBuffer()
	_ = dev.BeginCommandBuffer(cb, gpu.CommandBufferUsageOneTimeSubmit)
	m.Draw(dev, cb)
	cmds := dev.Recorded(cb)
	if len(cmds) != 3 || cmds[2].Op != "DrawIndexed" || cmds[2].IndexCount != 36 {
		t.Fatalf("unexpected draw commands %+v", cmds)
	}

	vb := dev.ReadBuffer(cmds[0].Buffer)
	if len(vb) != 24*VertexStride {
		t.Fatalf("vertex buffer holds %d bytes", len(vb))
	}
	if got := common.Float32At(vb, 0); got != m.Vertices()[0].Position[0] {
		t.Errorf("first vertex x = %v, want %v", got, m.Vertices()[0].Position[0])
	}

	m.Destroy()
	m.Destroy()
	if got := dev.Live()["buffer"]; got != 0 {
		t.Errorf("got %d live buffers after Destroy", got)
	}
}

func TestMeshUploadFailureLeaksNothing(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	m, _ := NewCube()
	dev.FailCreate = map[string]bool{"buffer": true}
	if err := m.Upload(dev); err == nil {
		t.Fatal("expected upload to fail")
	}
	if m.Uploaded() {
		t.Error("mesh reports uploaded after a failure")
	}
}

func TestGPUMeshDataLayout(t *testing.T) {
	mat := material.NewMaterial(material.WithAlbedo(0.1, 0.2, 0.3, 0.5), material.WithRoughness(0.7))
	m, _ := NewCube(WithMaterial(mat), WithLodBias(1.5))
	model := mgl32.Translate3D(1, 2, 3)
	buf := m.GPUData(model, 2).Marshal()

	if len(buf) != 112 {
		t.Fatalf("size %d, want 112", len(buf))
	}
	if got := common.Float32At(buf, 12*4); got != 1 {
		t.Errorf("model[12] = %v, want 1", got)
	}
	if got := common.Float32At(buf, 64+12); got != 0.5 {
		t.Errorf("albedo.a = %v, want 0.5", got)
	}
	if got := common.Float32At(buf, 80); got != 0.7 {
		t.Errorf("roughness = %v, want 0.7", got)
	}
	if got := common.Float32At(buf, 88); got != 0.5 {
		t.Errorf("reflectance = %v, want 0.5", got)
	}
	if got := binary.LittleEndian.Uint32(buf[92:]); got != 2 {
		t.Errorf("cascade index = %d, want 2", got)
	}
	if got := common.Float32At(buf, 96); got != 1.5 {
		t.Errorf("lod bias = %v, want 1.5", got)
	}
	if m.Opaque() {
		t.Error("alpha 0.5 should not be opaque")
	}
}

func TestBounds(t *testing.T) {
	cube, err := NewCube()
	if err != nil {
		t.Fatal(err)
	}
	c, r := cube.Bounds()
	if c.Len() > 1e-6 || math.Abs(float64(r)-math.Sqrt(3)) > 1e-5 {
		t.Errorf("cube bounds %v %v, want origin and sqrt(3)", c, r)
	}

	m, err := NewMesh([]Vertex{{Position: [3]float32{2, 0, 0}}, {Position: [3]float32{4, 0, 0}}, {Position: [3]float32{4, 2, 0}}}, []uint16{0, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	c, r = m.Bounds()
	if !c.ApproxEqual(mgl32.Vec3{3, 1, 0}) {
		t.Errorf("got center %v", c)
	}
	for _, v := range m.Vertices() {
		if mgl32.Vec3(v.Position).Sub(c).Len() > r+1e-6 {
			t.Errorf("vertex %v outside the sphere", v.Position)
		}
	}
}
