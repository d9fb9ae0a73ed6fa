package resource

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu/gputest"
)

type block struct {
	A, B uint32
}

func (block) Size() int { return 8 }

func (b block) Marshal() []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint32(out[0:], b.A)
	binary.LittleEndian.PutUint32(out[4:], b.B)
	return out
}

func TestBufferRoundTrip(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	data := []float32{1, 2, 3, 4, 5, 6}
	buf, err := NewBufferWithData(dev, "verts", gpu.BufferUsageVertex, data)
	if err != nil {
		t.Fatalf("NewBufferWithData: %v", err)
	}
	if buf.Size() != 24 {
		t.Fatalf("Size = %d, want 24", buf.Size())
	}

	got := dev.ReadBuffer(buf.Handle())
	want := make([]byte, 24)
	for i, f := range data {
		binary.LittleEndian.PutUint32(want[i*4:], math.Float32bits(f))
	}
	if !bytes.Equal(got, want) {
		t.Errorf("buffer contents = %v, want %v", got, want)
	}
	if st := dev.Buffers[buf.Handle()]; st.Mapped {
		t.Error("buffer left mapped after update")
	}
}

func TestBufferUpdateTooLargeWritesNothing(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	buf, err := NewBuffer[uint32](dev, "idx", gpu.BufferUsageIndex, 2)
	if err != nil {
		t.Fatal(err)
	}
	err = buf.Update([]uint32{1, 2, 3})
	if !errors.Is(err, gpu.ErrResourceExhausted) {
		t.Fatalf("err = %v, want ErrResourceExhausted", err)
	}
	if !bytes.Equal(dev.ReadBuffer(buf.Handle()), make([]byte, 8)) {
		t.Error("partial write happened")
	}
	if dev.Buffers[buf.Handle()].Maps != 0 {
		t.Error("buffer was mapped for a rejected write")
	}
}

func TestBufferDestroyIdempotent(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	buf, err := NewBuffer[uint32](dev, "idx", gpu.BufferUsageIndex, 4)
	if err != nil {
		t.Fatal(err)
	}
	buf.Destroy()
	buf.Destroy()
	var never *Buffer[uint32]
	never.Destroy()

	if n := len(dev.Ops("DestroyBuffer")); n != 1 {
		t.Errorf("DestroyBuffer called %d times, want 1", n)
	}
	if dev.Live()["buffer"] != 0 {
		t.Error("buffer still live")
	}
	if err := buf.Update([]uint32{1}); !errors.Is(err, gpu.ErrInvalidState) {
		t.Errorf("update after destroy: %v", err)
	}
}

func TestBufferCreateFailure(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	if _, err := NewBuffer[byte](dev, "empty", gpu.BufferUsageVertex, 0); !errors.Is(err, gpu.ErrSetupFailure) {
		t.Errorf("zero count: %v", err)
	}
}

func TestDynamicBufferLastWriteWins(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	buf, err := NewDynamicBuffer[block](dev, "mesh", gpu.BufferUsageUniform, 4, 256)
	if err != nil {
		t.Fatal(err)
	}
	if err := buf.UpdateAt(2, block{A: 1, B: 2}); err != nil {
		t.Fatal(err)
	}
	if err := buf.UpdateAt(2, block{A: 7, B: 9}); err != nil {
		t.Fatal(err)
	}

	raw := dev.ReadBuffer(buf.Handle())
	entry := raw[buf.Offset(2) : buf.Offset(2)+8]
	if !bytes.Equal(entry, block{A: 7, B: 9}.Marshal()) {
		t.Errorf("entry 2 = %v, want last write", entry)
	}
	if !bytes.Equal(raw[:buf.Offset(2)], make([]byte, 512)) {
		t.Error("entries before index 2 were touched")
	}
}

func TestDynamicBufferOffsetsDoNotOverlap(t *testing.T) {
	dev := gputest.NewDevice(64, 64, 2)
	buf, err := NewDynamicBuffer[block](dev, "mesh", gpu.BufferUsageUniform, 8, 64)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < buf.Len()-1; i++ {
		if buf.Offset(i)+buf.BlockSize() > buf.Offset(i+1) {
			t.Fatalf("entry %d overlaps entry %d", i, i+1)
		}
		if buf.Offset(i)%64 != 0 {
			t.Fatalf("offset %d not aligned", buf.Offset(i))
		}
	}
	if _, err := NewDynamicBuffer[block](dev, "bad", gpu.BufferUsageUniform, 1, 4); !errors.Is(err, gpu.ErrSetupFailure) {
		t.Errorf("stride below block size accepted: %v", err)
	}
}

func TestArena(t *testing.T) {
	a := NewArena[block](16, 2)
	a.Put(1, block{A: 3})
	if len(a.Bytes()) != 32 {
		t.Fatalf("Bytes len = %d, want 32", len(a.Bytes()))
	}
	if a.Reserve(2) {
		t.Error("Reserve within capacity reallocated")
	}
	if !a.Reserve(5) || a.Cap() != 5 {
		t.Fatalf("Reserve(5) cap = %d", a.Cap())
	}
	if !bytes.Equal(a.Entry(1)[:8], block{A: 3}.Marshal()) {
		t.Error("growth lost existing contents")
	}
	a.Reset()
	if len(a.Bytes()) != 0 {
		t.Error("Reset kept entries")
	}
}

func TestSlotsGenerations(t *testing.T) {
	var s Slots[string]
	a := s.Insert("a")
	b := s.Insert("b")
	c := s.Insert("c")

	if _, ok := s.Remove(b); !ok {
		t.Fatal("remove b failed")
	}
	if _, ok := s.Get(b); ok {
		t.Error("stale handle resolved")
	}
	if v, _ := s.Get(a); v != "a" {
		t.Errorf("a = %q", v)
	}
	if v, _ := s.Get(c); v != "c" {
		t.Errorf("c = %q", v)
	}

	d := s.Insert("d")
	if d.Index != b.Index || d.Generation == b.Generation {
		t.Errorf("reuse handle %+v after %+v", d, b)
	}
	if _, ok := s.Remove(b); ok {
		t.Error("stale handle removed the new entry")
	}

	var seen []string
	s.Each(func(_ Handle, v string) bool {
		seen = append(seen, v)
		return true
	})
	if len(seen) != 3 || seen[0] != "a" || seen[1] != "d" || seen[2] != "c" {
		t.Errorf("Each order = %v", seen)
	}
	if s.Len() != 3 || s.Span() != 3 {
		t.Errorf("Len %d Span %d", s.Len(), s.Span())
	}
}
