package common

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImportedTextureDecode(t *testing.T) {
	tex := ImportedTexture{Name: "red", Data: encodePNG(t, 8, 4, color.RGBA{255, 0, 0, 255})}
	got, err := tex.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Width != 8 || got.Height != 4 || got.MipLevels != 4 || got.Channels != 4 {
		t.Fatalf("unexpected header %+v", got)
	}
	if len(got.Pixels) != 8*4*4 {
		t.Fatalf("pixel bytes = %d", len(got.Pixels))
	}
	if got.Pixels[0] != 255 || got.Pixels[1] != 0 || got.Pixels[3] != 255 {
		t.Errorf("first pixel = %v", got.Pixels[:4])
	}
}

func TestImportedTextureDecodeEmpty(t *testing.T) {
	var tex ImportedTexture
	if _, err := tex.Decode(); err == nil {
		t.Error("expected error for texture without data or path")
	}
}

func TestDownsample(t *testing.T) {
	src := SolidTexture(4, 4, [4]byte{10, 20, 30, 255})
	dst := Downsample(src.Pixels, 4, 4, 2, 2)
	if len(dst) != 2*2*4 {
		t.Fatalf("len = %d", len(dst))
	}
	for i := 0; i < len(dst); i += 4 {
		if dst[i] != 10 || dst[i+1] != 20 || dst[i+2] != 30 || dst[i+3] != 255 {
			t.Fatalf("pixel %d = %v", i/4, dst[i:i+4])
		}
	}
}

func TestDecodeTexturesKeepsOrder(t *testing.T) {
	textures := []ImportedTexture{
		{Name: "a", Data: encodePNG(t, 2, 2, color.RGBA{1, 0, 0, 255})},
		{Name: "b", Data: encodePNG(t, 4, 4, color.RGBA{2, 0, 0, 255})},
		{Name: "c", Data: encodePNG(t, 8, 8, color.RGBA{3, 0, 0, 255})},
	}
	out, err := DecodeTextures(nil, textures)
	if err != nil {
		t.Fatalf("DecodeTextures: %v", err)
	}
	for i, td := range out {
		if td.Pixels[0] != byte(i+1) {
			t.Errorf("texture %d has red %d", i, td.Pixels[0])
		}
		if td.Width != uint32(2<<i) {
			t.Errorf("texture %d width %d", i, td.Width)
		}
	}
}

func TestDecodeTexturesError(t *testing.T) {
	textures := []ImportedTexture{
		{Name: "ok", Data: encodePNG(t, 2, 2, color.RGBA{})},
		{Name: "bad", Data: []byte("not an image")},
	}
	if _, err := DecodeTextures(nil, textures); err == nil {
		t.Error("expected decode error")
	}
}
