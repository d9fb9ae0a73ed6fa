package bind_group_provider

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
)

var testBindings = []gpu.DescriptorBinding{
	{Binding: 0, Type: gpu.DescriptorTypeUniformBuffer, Stages: gpu.ShaderStageVertex},
	{Binding: 1, Type: gpu.DescriptorTypeUniformBufferDynamic, Stages: gpu.ShaderStageVertex},
	{Binding: 2, Type: gpu.DescriptorTypeSampledImage, Stages: gpu.ShaderStageFragment, ViewType: gpu.ImageViewType2D},
	{Binding: 3, Type: gpu.DescriptorTypeSampler, Stages: gpu.ShaderStageFragment},
}

func newProvider(t *testing.T, dev *gputest.Device, opts ...BindGroupProviderOption) BindGroupProvider {
	t.Helper()
	layout, err := dev.CreateDescriptorSetLayout("test", testBindings)
	if err != nil {
		t.Fatal(err)
	}
	return NewBindGroupProvider("test", layout, testBindings, 2, opts...)
}

func fullOptions() []BindGroupProviderOption {
	return []BindGroupProviderOption{
		WithSlotBuffers(0, []gpu.Buffer{100, 101}, 128),
		WithBuffer(1, 200, 112),
		WithTextureView(2, 300),
		WithSampler(3, 400),
	}
}

func TestCommitWritesEverySlot(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	p := newProvider(t, dev, fullOptions()...)
	if err := p.Commit(dev); err != nil {
		t.Fatal(err)
	}
	if p.BindGroup(0) == 0 || p.BindGroup(0) == p.BindGroup(1) {
		t.Fatalf("sets %d %d", p.BindGroup(0), p.BindGroup(1))
	}
	for slot, wantBuf := range []gpu.Buffer{100, 101} {
		st := dev.Sets[p.BindGroup(slot)]
		if len(st.Writes) != 4 {
			t.Errorf("slot %d: %d writes", slot, len(st.Writes))
		}
		if st.Writes[0].Buffer != wantBuf || st.Writes[0].Range != 128 {
			t.Errorf("slot %d binding 0 = %+v", slot, st.Writes[0])
		}
		if st.Writes[2].ImageView != 300 || st.Writes[3].Sampler != 400 {
			t.Errorf("slot %d shared bindings = %+v", slot, st.Writes)
		}
	}
}

func TestCommitRejectsMissingBinding(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	p := newProvider(t, dev, WithBuffer(0, 100, 128), WithBuffer(1, 200, 112), WithTextureView(2, 300))
	if err := p.Commit(dev); !errors.Is(err, gpu.ErrSetupFailure) {
		t.Errorf("err = %v", err)
	}
	if dev.Live()["set"] != 0 {
		t.Error("sets allocated for an incomplete provider")
	}
}

func TestCommitOnlyRewritesChangedSlot(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	p := newProvider(t, dev, fullOptions()...)
	if err := p.Commit(dev); err != nil {
		t.Fatal(err)
	}
	dev.ClearEvents()

	p.SetTextureView(2, 300)
	if err := p.Commit(dev); err != nil {
		t.Fatal(err)
	}
	if ops := dev.Ops("UpdateDescriptorSet"); len(ops) != 0 {
		t.Errorf("unchanged resources rewritten: %v", ops)
	}

	p.SetBuffer(1, 0, 102, 0, 128)
	if err := p.Commit(dev); err != nil {
		t.Fatal(err)
	}
	if ops := dev.Ops("UpdateDescriptorSet"); len(ops) != 1 {
		t.Errorf("updates = %v", ops)
	}
	if dev.Sets[p.BindGroup(1)].Writes[0].Buffer != 102 || dev.Sets[p.BindGroup(0)].Writes[0].Buffer != 100 {
		t.Error("slot buffers mixed up")
	}
	if w, ok := p.Resource(1, 0); !ok || w.Buffer != 102 {
		t.Errorf("resource = %+v", w)
	}
}

func TestAllocationFailureFreesPartialSets(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	dev.MaxDescriptorSets = 1
	p := newProvider(t, dev, fullOptions()...)
	if err := p.Commit(dev); !errors.Is(err, gpu.ErrResourceExhausted) {
		t.Fatalf("err = %v", err)
	}
	if dev.Live()["set"] != 0 || p.BindGroup(0) != 0 {
		t.Error("partial allocation leaked")
	}
}

func TestReleaseAndRecommit(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	p := newProvider(t, dev, fullOptions()...)
	if err := p.Commit(dev); err != nil {
		t.Fatal(err)
	}
	p.Release()
	p.Release()
	if dev.Live()["set"] != 0 || p.BindGroup(0) != 0 {
		t.Fatal("sets not freed")
	}
	if err := p.Commit(dev); err != nil {
		t.Fatal(err)
	}
	if len(dev.Sets[p.BindGroup(1)].Writes) != 4 {
		t.Error("recommit must write every binding")
	}
}

func TestOutOfRangeSlot(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	p := newProvider(t, dev)
	p.SetBuffer(5, 0, 1, 0, 16)
	if _, ok := p.Resource(5, 0); ok {
		t.Error("out of range slot stored")
	}
	if p.BindGroup(-1) != 0 || p.Slots() != 2 {
		t.Error("slot bounds")
	}
}
