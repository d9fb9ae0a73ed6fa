package command

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
)

func setup(t *testing.T) (*gputest.Device, Recorder, gpu.Image, gpu.Buffer) {
	t.Helper()
	dev := gputest.NewDevice(64, 64, 2)
	rec, err := NewRecorder(dev)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(rec.Destroy)
	img, err := dev.CreateImage(gpu.ImageDescriptor{Extent: gpu.Extent2D{Width: 16, Height: 8}, MipLevels: 5, ArrayLayers: 1})
	if err != nil {
		t.Fatal(err)
	}
	buf, err := dev.CreateBuffer(gpu.BufferDescriptor{Size: 16 * 8 * 4})
	if err != nil {
		t.Fatal(err)
	}
	return dev, rec, img, buf
}

func ops(cmds []gputest.Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Op
	}
	return out
}

func TestSingleSubmitWithoutMips(t *testing.T) {
	dev, rec, img, buf := setup(t)
	rng := gpu.SubresourceRange{Aspect: gpu.ImageAspectColor, LevelCount: 1, LayerCount: 6}

	if err := rec.SingleSubmit(Target{Image: img, Width: 16, Height: 8}, buf, rng, false); err != nil {
		t.Fatal(err)
	}

	if len(dev.Submits) != 1 {
		t.Fatalf("%d submits", len(dev.Submits))
	}
	if dev.Submits[0].Fence != 0 {
		t.Error("upload submitted with a fence")
	}
	cmds := dev.Submits[0].Commands[0]
	want := []string{"PipelineBarrier", "CopyBufferToImage", "PipelineBarrier"}
	if got := ops(cmds); len(got) != len(want) || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("commands = %v, want %v", got, want)
	}

	first := cmds[0].Barriers[0]
	if first.OldLayout != gpu.ImageLayoutUndefined || first.NewLayout != gpu.ImageLayoutTransferDst ||
		first.SrcStage != gpu.PipelineStageTopOfPipe || first.DstStage != gpu.PipelineStageTransfer ||
		first.SrcAccess != gpu.AccessNone || first.DstAccess != gpu.AccessTransferWrite {
		t.Errorf("first barrier = %+v", first)
	}
	if cmds[1].Copy.Subresource.LayerCount != 6 || cmds[1].Copy.Subresource.MipLevel != 0 {
		t.Errorf("copy subresource = %+v", cmds[1].Copy.Subresource)
	}
	last := cmds[2].Barriers[0]
	if last.NewLayout != gpu.ImageLayoutShaderReadOnly || last.DstStage != gpu.PipelineStageFragmentShader {
		t.Errorf("final barrier = %+v", last)
	}

	wantTail := []string{"QueueSubmit", "QueueWaitIdle", "ResetCommandBuffer"}
	tail := dev.Ops("QueueSubmit", "QueueWaitIdle", "ResetCommandBuffer")
	if len(tail) != 3 || tail[0] != wantTail[0] || tail[1] != wantTail[1] || tail[2] != wantTail[2] {
		t.Errorf("submission tail = %v", tail)
	}
	if len(dev.Recorded(rec.CommandBuffer())) != 0 {
		t.Error("recorder not reset after submit")
	}
}

func TestSingleSubmitMipChain(t *testing.T) {
	dev, rec, img, buf := setup(t)
	const levels = 5
	rng := gpu.SubresourceRange{Aspect: gpu.ImageAspectColor, LevelCount: levels, LayerCount: 1}

	if err := rec.SingleSubmit(Target{Image: img, Width: 16, Height: 8}, buf, rng, true); err != nil {
		t.Fatal(err)
	}
	cmds := dev.Submits[0].Commands[0]

	// barrier, copy, then (barrier, blit, barrier) per level above 0, then the final barrier
	if want := 2 + 3*(levels-1) + 1; len(cmds) != want {
		t.Fatalf("%d commands, want %d: %v", len(cmds), want, ops(cmds))
	}

	for l := uint32(1); l < levels; l++ {
		i := 2 + int(l-1)*3
		toSrc, blit, toRead := cmds[i], cmds[i+1], cmds[i+2]
		if toSrc.Op != "PipelineBarrier" || blit.Op != "BlitImage" || toRead.Op != "PipelineBarrier" {
			t.Fatalf("level %d ops %s %s %s", l, toSrc.Op, blit.Op, toRead.Op)
		}
		b := toSrc.Barriers[0]
		if b.Range.BaseMipLevel != l-1 || b.Range.LevelCount != 1 ||
			b.OldLayout != gpu.ImageLayoutTransferDst || b.NewLayout != gpu.ImageLayoutTransferSrc {
			t.Errorf("level %d pre-barrier %+v", l, b)
		}
		if blit.Filter != gpu.FilterLinear {
			t.Errorf("level %d blit filter %v", l, blit.Filter)
		}
		sw, sh := MipExtent(16, 8, l-1)
		dw, dh := MipExtent(16, 8, l)
		if blit.Blit.SrcOffsets[1] != (gpu.Offset3D{X: int32(sw), Y: int32(sh), Z: 1}) ||
			blit.Blit.DstOffsets[1] != (gpu.Offset3D{X: int32(dw), Y: int32(dh), Z: 1}) {
			t.Errorf("level %d blit %+v", l, blit.Blit)
		}
		if blit.Blit.SrcSubresource.MipLevel != l-1 || blit.Blit.DstSubresource.MipLevel != l {
			t.Errorf("level %d blit mips %d->%d", l, blit.Blit.SrcSubresource.MipLevel, blit.Blit.DstSubresource.MipLevel)
		}
		a := toRead.Barriers[0]
		if a.Range.BaseMipLevel != l-1 || a.OldLayout != gpu.ImageLayoutTransferSrc || a.NewLayout != gpu.ImageLayoutShaderReadOnly {
			t.Errorf("level %d post-barrier %+v", l, a)
		}
	}

	final := cmds[len(cmds)-1].Barriers[0]
	if final.Range.BaseMipLevel != levels-1 || final.OldLayout != gpu.ImageLayoutTransferDst || final.NewLayout != gpu.ImageLayoutShaderReadOnly {
		t.Errorf("final barrier %+v", final)
	}
}

func TestMipExtent(t *testing.T) {
	tests := []struct{ w, h, n, ww, wh uint32 }{
		{16, 8, 0, 16, 8},
		{16, 8, 1, 8, 4},
		{16, 8, 4, 1, 1},
		{15, 7, 1, 7, 3},
	}
	for _, tt := range tests {
		w, h := MipExtent(tt.w, tt.h, tt.n)
		if w != tt.ww || h != tt.wh {
			t.Errorf("MipExtent(%d,%d,%d) = %d,%d want %d,%d", tt.w, tt.h, tt.n, w, h, tt.ww, tt.wh)
		}
	}
}

func TestRecorderLifecycle(t *testing.T) {
	dev, rec, _, _ := setup(t)
	if err := rec.End(); !errors.Is(err, gpu.ErrInvalidState) {
		t.Errorf("End before Begin: %v", err)
	}
	if err := rec.Begin(); err != nil {
		t.Fatal(err)
	}
	if err := rec.Begin(); !errors.Is(err, gpu.ErrInvalidState) {
		t.Errorf("double Begin: %v", err)
	}
	if err := rec.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := rec.Begin(); err != nil {
		t.Errorf("Begin after Reset: %v", err)
	}
	if usage := dev.CommandBuffers[rec.CommandBuffer()].Usage; usage != gpu.CommandBufferUsageOneTimeSubmit {
		t.Errorf("usage = %v", usage)
	}
}

func TestSingleSubmitFailureResets(t *testing.T) {
	dev, rec, img, buf := setup(t)
	dev.SubmitErr = errors.New("queue gone")
	rng := gpu.SubresourceRange{Aspect: gpu.ImageAspectColor, LevelCount: 1, LayerCount: 1}
	if err := rec.SingleSubmit(Target{Image: img, Width: 16, Height: 8}, buf, rng, false); err == nil {
		t.Fatal("expected submit error")
	}
	dev.SubmitErr = nil
	if err := rec.SingleSubmit(Target{Image: img, Width: 16, Height: 8}, buf, rng, false); err != nil {
		t.Errorf("recorder unusable after failed submit: %v", err)
	}
}
