package texture

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/command"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
)

func newRecorder(t *testing.T) (*gputest.Device, command.Recorder) {
	t.Helper()
	dev := gputest.NewDevice(64, 64, 2)
	rec, err := command.NewRecorder(dev)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(rec.Destroy)
	return dev, rec
}

func TestUpload2D(t *testing.T) {
	dev, rec := newRecorder(t)
	tex, err := New(dev, rec, "diffuse", common.SolidTexture(16, 8, [4]byte{255, 0, 0, 255}))
	if err != nil {
		t.Fatal(err)
	}

	if tex.MipLevels() != 5 || tex.Layers() != 1 {
		t.Errorf("got %d mips / %d layers, want 5 / 1", tex.MipLevels(), tex.Layers())
	}
	desc := dev.Images[tex.Image()]
	if desc.Format != gpu.FormatRGBA8Srgb || desc.MipLevels != 5 || desc.CubeCompatible {
		t.Errorf("unexpected image %+v", desc)
	}
	if dev.Views[tex.View()].ViewType != gpu.ImageViewType2D {
		t.Error("expected a 2D view")
	}
	if s := dev.Samplers[tex.Sampler()]; s.MaxLod != 5 || s.AddressMode != gpu.AddressModeRepeat {
		t.Errorf("unexpected sampler %+v", s)
	}

	if len(dev.Submits) != 1 {
		t.Fatalf("%d submits, want 1", len(dev.Submits))
	}
	blits := 0
	for _, c := range dev.Submits[0].Commands[0] {
		if c.Op == "BlitImage" {
			blits++
		}
	}
	if blits != 4 {
		t.Errorf("%d blits, want 4", blits)
	}
	if dev.Live()["buffer"] != 0 {
		t.Error("staging buffer not released")
	}

	tex.Destroy()
	tex.Destroy()
	live := dev.Live()
	if live["image"] != 0 || live["view"] != 0 || live["sampler"] != 0 {
		t.Errorf("leaked objects %v", live)
	}
}

func TestUploadCube(t *testing.T) {
	dev, rec := newRecorder(t)
	var faces [CubeFaces]common.TextureData
	for i := range faces {
		faces[i] = common.SolidTexture(8, 8, [4]byte{byte(i * 40), 0, 0, 255})
	}
	tex, err := NewCube(dev, rec, "skybox", faces)
	if err != nil {
		t.Fatal(err)
	}
	if tex.Layers() != CubeFaces || tex.MipLevels() != 1 {
		t.Errorf("got %d layers / %d mips", tex.Layers(), tex.MipLevels())
	}
	if !dev.Images[tex.Image()].CubeCompatible {
		t.Error("cube image not cube compatible")
	}
	if v := dev.Views[tex.View()]; v.ViewType != gpu.ImageViewTypeCube || v.Range.LayerCount != CubeFaces {
		t.Errorf("unexpected view %+v", v)
	}
	copyCmd := dev.Submits[0].Commands[0][1]
	if copyCmd.Op != "CopyBufferToImage" || copyCmd.Copy.Subresource.LayerCount != CubeFaces {
		t.Errorf("unexpected copy %+v", copyCmd)
	}
}

func TestCubeRejectsMismatchedFaces(t *testing.T) {
	dev, rec := newRecorder(t)
	var faces [CubeFaces]common.TextureData
	for i := range faces {
		faces[i] = common.SolidTexture(8, 8, [4]byte{})
	}
	faces[3] = common.SolidTexture(4, 4, [4]byte{})
	if _, err := NewCube(dev, rec, "skybox", faces); err == nil {
		t.Fatal("expected an error")
	}
	if dev.Live()["image"] != 0 {
		t.Error("image created for rejected faces")
	}
}

func TestUploadFailureReleasesImage(t *testing.T) {
	dev, rec := newRecorder(t)
	dev.FailCreate = map[string]bool{"view": true}
	if _, err := New(dev, rec, "diffuse", common.SolidTexture(4, 4, [4]byte{})); err == nil {
		t.Fatal("expected an error")
	}
	live := dev.Live()
	if live["image"] != 0 || live["buffer"] != 0 {
		t.Errorf("leaked objects %v", live)
	}
}
