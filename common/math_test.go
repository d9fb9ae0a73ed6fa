package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestAlignUp(t *testing.T) {
	tests := []struct {
		size, align, want uint64
	}{
		{0, 256, 0},
		{1, 256, 256},
		{112, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{112, 64, 128},
		{112, 0, 112},
	}
	for _, tt := range tests {
		if got := AlignUp(tt.size, tt.align); got != tt.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.size, tt.align, got, tt.want)
		}
	}
}

func TestMipLevels(t *testing.T) {
	tests := []struct {
		w, h, want uint32
	}{
		{1, 1, 1},
		{2, 1, 2},
		{256, 256, 9},
		{1024, 512, 11},
		{1000, 3, 10},
		{0, 0, 1},
	}
	for _, tt := range tests {
		if got := MipLevels(tt.w, tt.h); got != tt.want {
			t.Errorf("MipLevels(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestUniqueName(t *testing.T) {
	taken := map[string]bool{"cube": true, "cube1": true}
	has := func(s string) bool { return taken[s] }

	if got := UniqueName("sphere", has); got != "sphere" {
		t.Errorf("free name changed to %q", got)
	}
	if got := UniqueName("cube", has); got != "cube2" {
		t.Errorf("UniqueName(cube) = %q, want cube2", got)
	}
}

func TestPutMat4RoundTrip(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3)
	buf := make([]byte, 64)
	PutMat4(buf, 0, m)
	for i := 0; i < 16; i++ {
		if got := Float32At(buf, i*4); got != m[i] {
			t.Fatalf("element %d = %v, want %v", i, got, m[i])
		}
	}
}

func TestFlipY(t *testing.T) {
	p := mgl32.Perspective(mgl32.DegToRad(45), 16.0/9.0, 0.1, 100)
	f := FlipY(p)
	if f.At(1, 1) != -p.At(1, 1) {
		t.Errorf("FlipY did not negate [1][1]")
	}
	if f.At(0, 0) != p.At(0, 0) || f.At(2, 2) != p.At(2, 2) {
		t.Errorf("FlipY changed other elements")
	}
}

func TestLookAtSafeParallelUp(t *testing.T) {
	m := LookAtSafe(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	for i, v := range m {
		if v != v {
			t.Fatalf("element %d is NaN", i)
		}
	}
	// The eye must map to the view-space origin.
	eye := m.Mul4x1(mgl32.Vec4{0, 10, 0, 1})
	if eye.Vec3().Len() > 1e-4 {
		t.Errorf("eye maps to %v, want origin", eye)
	}
}
