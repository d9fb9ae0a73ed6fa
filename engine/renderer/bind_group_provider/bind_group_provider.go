package bind_group_provider

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	layout   gpu.DescriptorSetLayout
	bindings []gpu.DescriptorBinding

	// resources holds what each slot binds, keyed by binding index.
	resources []map[uint32]gpu.DescriptorWrite
	// dirty marks the bindings of each slot changed since the last Commit.
	dirty []map[uint32]bool

	// The following fields are GPU allocated and populated by Commit.

	dev  gpu.Device
	sets []gpu.DescriptorSet
}

// BindGroupProvider owns one descriptor set per frame slot for a single set layout.
// Buffers may differ per slot, so a slot never rewrites a set the GPU may still be reading
// for another frame in flight; image views and samplers are usually shared by all slots.
//
// Usage pattern:
//  1. Create the provider with the set layout, its bindings and the frame slot count
//  2. Point every binding at a resource with the Set methods or builder options
//  3. Call Commit to allocate the sets and write the changed bindings
//  4. Bind BindGroup(slot) while recording the frame that uses the slot
type BindGroupProvider interface {
	// Label returns the debug label for this provider.
	Label() string

	// Layout returns the descriptor set layout the sets are allocated from.
	Layout() gpu.DescriptorSetLayout

	// Slots returns the number of descriptor sets, one per frame slot.
	Slots() int

	// SetBuffer binds a uniform buffer range in one slot.
	//
	// Parameters:
	//   - slot: the frame slot
	//   - binding: the binding index
	//   - buffer: the buffer
	//   - offset: the byte offset of the range, zero for dynamic bindings
	//   - size: the byte size of the range
	SetBuffer(slot int, binding uint32, buffer gpu.Buffer, offset, size uint64)

	// SetTextureView binds an image view in every slot.
	SetTextureView(binding uint32, view gpu.ImageView)

	// SetSampler binds a sampler in every slot.
	SetSampler(binding uint32, sampler gpu.Sampler)

	// Commit allocates the descriptor sets on first use and writes every binding changed since the last Commit.
	//
	// Parameters:
	//   - dev: the device the sets are allocated on
	//
	// Returns:
	//   - error: wraps gpu.ErrSetupFailure when a binding has no resource, or the allocation or update failure
	Commit(dev gpu.Device) error

	// BindGroup returns the descriptor set of a slot, or the null handle before Commit.
	BindGroup(slot int) gpu.DescriptorSet

	// Resource returns what a slot binds at a binding index.
	Resource(slot int, binding uint32) (gpu.DescriptorWrite, bool)

	// Release frees the descriptor sets. Resources bound into them are left to their owners. Safe to call twice.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a provider for a set layout.
//
// Parameters:
//   - label: the debug label
//   - layout: the descriptor set layout
//   - bindings: the bindings the layout was created from
//   - slots: the number of frame slots
//   - options: BindGroupProviderOption values
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string, layout gpu.DescriptorSetLayout, bindings []gpu.DescriptorBinding, slots int, options ...BindGroupProviderOption) BindGroupProvider {
	slots = max(slots, 1)
	p := &bindGroupProvider{
		label:     label,
		layout:    layout,
		bindings:  bindings,
		resources: make([]map[uint32]gpu.DescriptorWrite, slots),
		dirty:     make([]map[uint32]bool, slots),
	}
	for i := range slots {
		p.resources[i] = make(map[uint32]gpu.DescriptorWrite)
		p.dirty[i] = make(map[uint32]bool)
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string                   { return p.label }
func (p *bindGroupProvider) Layout() gpu.DescriptorSetLayout { return p.layout }
func (p *bindGroupProvider) Slots() int                      { return len(p.resources) }

func (p *bindGroupProvider) SetBuffer(slot int, binding uint32, buffer gpu.Buffer, offset, size uint64) {
	p.apply(BindingWrite{Slot: slot, Write: gpu.DescriptorWrite{Binding: binding, Buffer: buffer, Offset: offset, Range: size}})
}

func (p *bindGroupProvider) SetTextureView(binding uint32, view gpu.ImageView) {
	p.apply(BindingWrite{Slot: AllSlots, Write: gpu.DescriptorWrite{Binding: binding, ImageView: view}})
}

func (p *bindGroupProvider) SetSampler(binding uint32, sampler gpu.Sampler) {
	p.apply(BindingWrite{Slot: AllSlots, Write: gpu.DescriptorWrite{Binding: binding, Sampler: sampler}})
}

// apply records a write and marks it dirty when it changes what the slot binds.
func (p *bindGroupProvider) apply(w BindingWrite) {
	for _, slot := range w.slots(len(p.resources)) {
		if cur, ok := p.resources[slot][w.Write.Binding]; ok && cur == w.Write {
			continue
		}
		p.resources[slot][w.Write.Binding] = w.Write
		p.dirty[slot][w.Write.Binding] = true
	}
}

func (p *bindGroupProvider) Commit(dev gpu.Device) error {
	if err := p.validate(); err != nil {
		return err
	}

	if p.sets == nil {
		sets := make([]gpu.DescriptorSet, len(p.resources))
		for i := range sets {
			set, err := dev.AllocateDescriptorSet(p.layout)
			if err != nil {
				for _, s := range sets[:i] {
					dev.FreeDescriptorSet(s)
				}
				return fmt.Errorf("bind group %s: slot %d: %w", p.label, i, err)
			}
			sets[i] = set
		}
		p.dev, p.sets = dev, sets
	}

	for slot, dirty := range p.dirty {
		if len(dirty) == 0 {
			continue
		}
		writes := make([]gpu.DescriptorWrite, 0, len(dirty))
		for binding := range dirty {
			writes = append(writes, p.resources[slot][binding])
		}
		sort.Slice(writes, func(i, j int) bool { return writes[i].Binding < writes[j].Binding })
		if err := p.dev.UpdateDescriptorSet(p.sets[slot], writes); err != nil {
			return fmt.Errorf("bind group %s: slot %d: %w", p.label, slot, err)
		}
		clear(dirty)
	}
	return nil
}

// validate checks that every slot binds a resource of the right kind at every layout binding.
func (p *bindGroupProvider) validate() error {
	for slot, res := range p.resources {
		for _, b := range p.bindings {
			w, ok := res[b.Binding]
			var filled bool
			switch b.Type {
			case gpu.DescriptorTypeUniformBuffer, gpu.DescriptorTypeUniformBufferDynamic:
				filled = w.Buffer != 0 && w.Range > 0
			case gpu.DescriptorTypeSampledImage:
				filled = w.ImageView != 0
			case gpu.DescriptorTypeSampler:
				filled = w.Sampler != 0
			}
			if !ok || !filled {
				return fmt.Errorf("bind group %s: slot %d binding %d has no resource: %w", p.label, slot, b.Binding, gpu.ErrSetupFailure)
			}
		}
	}
	return nil
}

func (p *bindGroupProvider) BindGroup(slot int) gpu.DescriptorSet {
	if slot < 0 || slot >= len(p.sets) {
		return 0
	}
	return p.sets[slot]
}

func (p *bindGroupProvider) Resource(slot int, binding uint32) (gpu.DescriptorWrite, bool) {
	if slot < 0 || slot >= len(p.resources) {
		return gpu.DescriptorWrite{}, false
	}
	w, ok := p.resources[slot][binding]
	return w, ok
}

func (p *bindGroupProvider) Release() {
	for _, s := range p.sets {
		p.dev.FreeDescriptorSet(s)
	}
	p.sets = nil
	p.dev = nil
	for slot := range p.dirty {
		for binding := range p.resources[slot] {
			p.dirty[slot][binding] = true
		}
	}
}
