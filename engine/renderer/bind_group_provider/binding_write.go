package bind_group_provider

import "github.com/Carmen-Shannon/oxy-vk/engine/gpu"

// AllSlots targets a BindingWrite at every frame slot.
const AllSlots = -1

// BindingWrite describes a single resource assignment to a binding of a BindGroupProvider
// in one frame slot, or in all of them.
type BindingWrite struct {
	Slot  int
	Write gpu.DescriptorWrite
}

// slots returns the slot indices the write targets. Out of range slots target nothing.
func (w BindingWrite) slots(n int) []int {
	if w.Slot == AllSlots {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	if w.Slot < 0 || w.Slot >= n {
		return nil
	}
	return []int{w.Slot}
}
