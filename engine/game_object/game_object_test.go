package game_object

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-vk/engine/light"
	"github.com/Carmen-Shannon/oxy-vk/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

func TestModelMatrixOrder(t *testing.T) {
	tr := NewTransform()
	tr.Position = mgl32.Vec3{1, 0, 0}
	tr.Scale = mgl32.Vec3{2, 2, 2}

	// scale * translate: the translation is scaled too
	got := tr.Model().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if !got.ApproxEqual(mgl32.Vec4{2, 0, 0, 1}) {
		t.Errorf("origin maps to %v, want (2,0,0,1)", got)
	}

	tr.SetEulerAngles(0, 90, 0)
	got = tr.Model().Mul4x1(mgl32.Vec4{0, 0, 1, 1})
	if !got.ApproxEqualThreshold(mgl32.Vec4{4, 0, 0, 1}, 1e-5) {
		t.Errorf("(0,0,1) maps to %v, want (4,0,0,1)", got)
	}
}

func TestKindFromPayload(t *testing.T) {
	sphere, err := model.NewSphere(8, false)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		obj  GameObject
		want Kind
	}{
		{NewMeshObject(sphere), KindMesh},
		{NewLightObject(light.NewLight()), KindDirectionalLight},
		{NewLightObject(light.NewLight(light.WithType(light.LightTypePoint))), KindPointLight},
		{NewLightObject(light.NewLight(light.WithType(light.LightTypeSpot))), KindSpotLight},
	}
	for _, tt := range tests {
		if got := tt.obj.Kind(); got != tt.want {
			t.Errorf("Kind() = %v, want %v", got, tt.want)
		}
	}
	if NewMeshObject(sphere).Name() != "Sphere" {
		t.Error("mesh objects should default to the mesh name")
	}
	unnamed, err := model.NewCube(model.WithName(""))
	if err != nil {
		t.Fatal(err)
	}
	if got := NewMeshObject(unnamed).Name(); got != "Mesh" {
		t.Errorf("unnamed mesh object is %q, want Mesh", got)
	}
	if KindMesh.IsLight() || !KindSpotLight.IsLight() {
		t.Error("IsLight misclassifies kinds")
	}
}

func TestEulerAnglesTurnLight(t *testing.T) {
	l := light.NewLight()
	obj := NewLightObject(l, WithPosition(0, 0, 5))
	obj.SetEulerAngles(-45, 0, 0)

	want := mgl32.Vec3{0, 1, 1}.Normalize()
	if !l.Direction().ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("direction %v, want %v", l.Direction(), want)
	}
	if obj.Transform().EulerAngles != (mgl32.Vec3{-45, 0, 0}) {
		t.Errorf("euler angles not kept: %v", obj.Transform().EulerAngles)
	}
	if obj.Position() != (mgl32.Vec3{0, 0, 5}) {
		t.Errorf("position %v", obj.Position())
	}
}

func TestEnabledAndTranslate(t *testing.T) {
	cube, _ := model.NewCube()
	obj := NewMeshObject(cube, WithEnabled(false), WithName("Box"))
	if obj.Enabled() || obj.Name() != "Box" {
		t.Fatal("options not applied")
	}
	obj.SetEnabled(true)
	obj.Translate(1, 2, 3)
	obj.Translate(1, 0, 0)
	if obj.Position() != (mgl32.Vec3{2, 2, 3}) {
		t.Errorf("position %v", obj.Position())
	}
	if obj.Mesh() != cube || obj.Light() != nil {
		t.Error("payload accessors wrong")
	}
}
