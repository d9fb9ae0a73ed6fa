package shadow

import (
	"fmt"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/go-gl/mathgl/mgl32"
)

func TestSplitsIncreasingInUnitRange(t *testing.T) {
	clips := [][2]float32{{0.1, 1000}, {1, 50}, {0.5, 10}}
	for _, clip := range clips {
		for _, lambda := range []float32{0, 0.25, 0.5, 0.95, 1} {
			for count := 1; count <= 8; count++ {
				name := fmt.Sprintf("near=%v/far=%v/lambda=%v/count=%d", clip[0], clip[1], lambda, count)
				splits := Splits(clip[0], clip[1], lambda, count)
				if len(splits) != count {
					t.Fatalf("%s: %d splits", name, len(splits))
				}
				prev := float32(0)
				for i, s := range splits {
					if s < 0 || s > 1 {
						t.Fatalf("%s: split %d = %v outside [0,1]", name, i, s)
					}
					if s <= prev {
						t.Fatalf("%s: split %d = %v not above %v", name, i, s, prev)
					}
					prev = s
				}
				if math.Abs(float64(splits[count-1]-1)) > 1e-5 {
					t.Errorf("%s: last split %v, want 1", name, splits[count-1])
				}
			}
		}
	}
}

func TestSplitsUniformWhenLambdaZero(t *testing.T) {
	splits := Splits(1, 101, 0, 4)
	want := []float32{0.25, 0.5, 0.75, 1}
	for i := range want {
		if math.Abs(float64(splits[i]-want[i])) > 1e-5 {
			t.Errorf("split %d = %v, want %v", i, splits[i], want[i])
		}
	}
}

func camera() (mgl32.Mat4, mgl32.Mat4) {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 4}, mgl32.Vec3{0, 1, 0})
	proj := common.FlipY(mgl32.Perspective(mgl32.DegToRad(45), 1280.0/720.0, 0.1, 1000))
	return view, proj
}

func TestCascadesHaveNoGaps(t *testing.T) {
	view, proj := camera()
	directions := []mgl32.Vec3{{0, 1, 1}, {1, 0.5, 0}, {0, 1, 0}, {-0.3, 0.8, -0.2}}
	for _, dir := range directions {
		t.Run(fmt.Sprint(dir), func(t *testing.T) {
			splits := Splits(0.1, 1000, DefaultSplitLambda, 4)
			cascades := Cascades(splits, 0.1, 1000, view, proj, dir)
			if len(cascades) != 4 {
				t.Fatalf("%d cascades", len(cascades))
			}
			for i := 1; i < len(cascades); i++ {
				prev, cur := cascades[i-1], cascades[i]
				for j := 0; j < 4; j++ {
					far := prev.Corners[j+4]
					if d := far.Sub(cur.Corners[j]).Len(); d > 1e-2*max(1, far.Len()) {
						t.Fatalf("cascade %d far corner %d is %v away from cascade %d near corner", i-1, j, d, i)
					}
					if d := far.Sub(cur.Center).Len(); d > cur.Radius*(1+1e-4) {
						t.Fatalf("cascade %d far corner %d outside cascade %d sphere (%v > %v)", i-1, j, i, d, cur.Radius)
					}
					clip := cur.ViewProj.Mul4x1(far.Vec4(1))
					ndc := clip.Vec3().Mul(1 / clip[3])
					for k := 0; k < 3; k++ {
						if math.Abs(float64(ndc[k])) > 1+1e-3 {
							t.Fatalf("cascade %d far corner %d projects outside cascade %d volume: %v", i-1, j, i, ndc)
						}
					}
				}
			}
		})
	}
}

func TestCascadeRadiusStabilized(t *testing.T) {
	view, proj := camera()
	cascades := Cascades(Splits(0.1, 1000, DefaultSplitLambda, 4), 0.1, 1000, view, proj, mgl32.Vec3{0, 1, 1})
	for i, c := range cascades {
		if r := c.Radius * 16; r != float32(math.Floor(float64(r))) {
			t.Errorf("cascade %d radius %v not a multiple of 1/16", i, c.Radius)
		}
		for _, corner := range c.Corners {
			if corner.Sub(c.Center).Len() > c.Radius*(1+1e-5) {
				t.Errorf("cascade %d corner outside radius", i)
			}
		}
	}
}

func TestCascadeDepthFacesLight(t *testing.T) {
	view, proj := camera()
	dir := mgl32.Vec3{0, 1, 1}
	c := Cascades(Splits(0.1, 1000, DefaultSplitLambda, 1), 0.1, 1000, view, proj, dir)[0]

	depth := func(p mgl32.Vec3) float32 {
		clip := c.ViewProj.Mul4x1(p.Vec4(1))
		return clip[2] / clip[3]
	}
	towardLight := c.Center.Add(dir.Normalize().Mul(c.Radius / 2))
	if depth(towardLight) >= depth(c.Center) {
		t.Errorf("a point nearer the light is not nearer in the shadow map: %v >= %v", depth(towardLight), depth(c.Center))
	}
}

func TestSpotLightMatrix(t *testing.T) {
	pos := mgl32.Vec3{0, 5, 0}
	dir := mgl32.Vec3{0, 1, 0} // light shines down
	m := SpotLightMatrix(pos, dir, 1, DefaultSpotAspect, 200)

	below := m.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if below[3] <= 0 {
		t.Fatalf("point below the light is behind the projection: %v", below)
	}
	ndc := below.Vec3().Mul(1 / below[3])
	if math.Abs(float64(ndc[0])) > 1e-4 || math.Abs(float64(ndc[1])) > 1e-4 || ndc[2] < -1 || ndc[2] > 1 {
		t.Errorf("point on the axis maps to %v", ndc)
	}
	above := m.Mul4x1(mgl32.Vec4{0, 10, 0, 1})
	if above[3] >= 0 {
		t.Errorf("point above the light is in front of the projection: %v", above)
	}
}

func TestNewShadow(t *testing.T) {
	if _, err := NewShadow(0, 10); err == nil {
		t.Error("zero near accepted")
	}
	if _, err := NewShadow(1, 10, WithCascadeCount(5)); err == nil {
		t.Error("cascade count above MaxCascades accepted")
	}
	if _, err := NewShadow(1, 10, WithSplitLambda(2)); err == nil {
		t.Error("lambda above 1 accepted")
	}

	s, err := NewShadow(0.1, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if s.CascadeCount() != 4 || s.Dimension() != 2048 {
		t.Errorf("defaults %d %d", s.CascadeCount(), s.Dimension())
	}
	view, proj := camera()
	s.UpdateCascades(mgl32.Vec3{0, 1, 1}, view, proj)
	info := s.CascadeInfo()
	if info.ShowCascade != 0 || info.ShowPCFFilter != 1 {
		t.Errorf("toggles %d %d", info.ShowCascade, info.ShowPCFFilter)
	}
	for i := 1; i < 4; i++ {
		if info.Splits[i] >= info.Splits[i-1] {
			t.Errorf("split depths not decreasing: %v", info.Splits)
		}
	}
	if math.Abs(float64(info.Splits[3]+1000)) > 1e-2 {
		t.Errorf("last split depth %v, want -1000", info.Splits[3])
	}

	raw := info.Marshal()
	if len(raw) != 288 {
		t.Fatalf("cascade block %d bytes", len(raw))
	}
	if common.Float32At(raw, 256) != info.Splits[0] || common.Float32At(raw, 64) != info.LightSpace[1][0] {
		t.Error("cascade block layout mismatch")
	}
	s.SetShowCascade(true)
	if s.CascadeInfo().Marshal()[272] != 1 {
		t.Error("show cascade flag not marshaled at 272")
	}
}
