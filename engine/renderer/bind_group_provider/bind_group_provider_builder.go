package bind_group_provider

import "github.com/Carmen-Shannon/oxy-vk/engine/gpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBuffer binds the same buffer range in every slot.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buffer: the buffer to associate with this binding
//   - size: the byte size of the bound range
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding uint32, buffer gpu.Buffer, size uint64) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.apply(BindingWrite{Slot: AllSlots, Write: gpu.DescriptorWrite{Binding: binding, Buffer: buffer, Range: size}})
	}
}

// WithSlotBuffers binds one buffer per slot. Buffers beyond the slot count are ignored.
//
// Parameters:
//   - binding: the binding index for these buffers
//   - buffers: the buffers, indexed by slot
//   - size: the byte size of the bound range
//
// Returns:
//   - BindGroupProviderOption: a function that sets the per-slot buffers for the specified binding
func WithSlotBuffers(binding uint32, buffers []gpu.Buffer, size uint64) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		for slot, b := range buffers {
			p.SetBuffer(slot, binding, b, 0, size)
		}
	}
}

// WithTextureView binds an image view in every slot.
//
// Parameters:
//   - binding: the binding index
//   - view: the image view
//
// Returns:
//   - BindGroupProviderOption: a function that sets the texture view for the specified binding
func WithTextureView(binding uint32, view gpu.ImageView) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.SetTextureView(binding, view)
	}
}

// WithSampler binds a sampler in every slot.
//
// Parameters:
//   - binding: the binding index
//   - sampler: the sampler
//
// Returns:
//   - BindGroupProviderOption: a function that sets the sampler for the specified binding
func WithSampler(binding uint32, sampler gpu.Sampler) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.SetSampler(binding, sampler)
	}
}

// WithWrites applies a batch of binding writes in order.
func WithWrites(writes ...BindingWrite) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		for _, w := range writes {
			p.apply(w)
		}
	}
}
