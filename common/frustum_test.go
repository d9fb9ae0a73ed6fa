package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestExtractFrustum(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, 1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	f := ExtractFrustum(proj.Mul4(view))

	tests := []struct {
		name string
		p    mgl32.Vec3
		want bool
	}{
		{"center", mgl32.Vec3{0, 0, -10}, true},
		{"behind", mgl32.Vec3{0, 0, 10}, false},
		{"before near", mgl32.Vec3{0, 0, -0.5}, false},
		{"past far", mgl32.Vec3{0, 0, -101}, false},
		{"left of cone", mgl32.Vec3{-20, 0, -10}, false},
		{"inside edge", mgl32.Vec3{9, 9, -10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.ContainsPoint(tt.p, 1e-4); got != tt.want {
				t.Errorf("ContainsPoint(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}

	if !f.IntersectsSphere(mgl32.Vec3{-20, 0, -10}, 15) {
		t.Errorf("sphere overlapping the left plane reported outside")
	}
}
