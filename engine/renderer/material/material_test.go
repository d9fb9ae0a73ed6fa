package material

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-vk/common"
)

func TestDefaults(t *testing.T) {
	m := NewMaterial()
	if !m.Opaque() {
		t.Error("default material should be opaque")
	}
	if m.Roughness() != 0.5 || m.Metallic() != 0 || m.Reflectance() != 0.5 {
		t.Errorf("unexpected defaults %v %v %v", m.Roughness(), m.Metallic(), m.Reflectance())
	}
	if m.DiffuseTexture() != nil || m.NormalTexture() != nil {
		t.Error("default material should carry no textures")
	}
}

func TestOpacityFromAlbedoAlpha(t *testing.T) {
	tests := []struct {
		alpha  float32
		opaque bool
	}{
		{1, true},
		{1.5, true},
		{0.99, false},
		{0, false},
	}
	for _, tt := range tests {
		m := NewMaterial(WithAlbedo(1, 1, 1, tt.alpha))
		if m.Opaque() != tt.opaque {
			t.Errorf("alpha %v: Opaque() = %v, want %v", tt.alpha, m.Opaque(), tt.opaque)
		}
	}
}

func TestGPUData(t *testing.T) {
	tex := &common.ImportedTexture{Name: "diffuse", Path: "basic.png"}
	m := NewMaterial(WithName("Basic"), WithAlbedo(0.25, 0.5, 0.75, 1), WithMetallic(1), WithDiffuseTexture(tex))
	m.SetRoughness(0.2)

	buf := m.GPUData().Marshal()
	if len(buf) != 32 {
		t.Fatalf("size %d, want 32", len(buf))
	}
	want := []float32{0.25, 0.5, 0.75, 1, 0.2, 1, 0.5}
	for i, w := range want {
		if got := common.Float32At(buf, i*4); got != w {
			t.Errorf("float %d = %v, want %v", i, got, w)
		}
	}
	if m.DiffuseTexture() != tex {
		t.Error("diffuse texture not kept")
	}
}
