package webgpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Render passes and framebuffers are descriptions only; WebGPU builds the pass
// from them when CmdBeginRenderPass is replayed.

func (d *Device) CreateRenderPass(desc gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, idx := range append(append([]int(nil), desc.Subpass.ColorAttachments...), desc.Subpass.ResolveAttachments...) {
		if idx < 0 || idx >= len(desc.Attachments) {
			return 0, fmt.Errorf("webgpu: render pass %q: attachment %d out of range: %w", desc.Label, idx, gpu.ErrSetupFailure)
		}
	}
	h := gpu.RenderPass(d.alloc())
	d.renderPasses[h] = desc
	return h, nil
}

func (d *Device) DestroyRenderPass(h gpu.RenderPass) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.renderPasses, h)
}

func (d *Device) CreateFramebuffer(desc gpu.FramebufferDescriptor) (gpu.Framebuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pass, ok := d.renderPasses[desc.RenderPass]
	if !ok {
		return 0, fmt.Errorf("webgpu: framebuffer %q: %w", desc.Label, gpu.ErrUnknownHandle)
	}
	if len(desc.Attachments) != len(pass.Attachments) {
		return 0, fmt.Errorf("webgpu: framebuffer %q has %d attachments, pass wants %d: %w", desc.Label, len(desc.Attachments), len(pass.Attachments), gpu.ErrSetupFailure)
	}
	desc.Attachments = append([]gpu.ImageView(nil), desc.Attachments...)
	h := gpu.Framebuffer(d.alloc())
	d.framebuffers[h] = desc
	return h, nil
}

func (d *Device) DestroyFramebuffer(h gpu.Framebuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.framebuffers, h)
}

func (d *Device) CreateDescriptorSetLayout(label string, bindings []gpu.DescriptorBinding) (gpu.DescriptorSetLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries := make([]wgpu.BindGroupLayoutEntry, len(bindings))
	for i, b := range bindings {
		entries[i] = layoutEntry(b)
	}
	layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return 0, fmt.Errorf("webgpu: create set layout %q: %w: %w", label, gpu.ErrSetupFailure, err)
	}
	h := gpu.DescriptorSetLayout(d.alloc())
	d.setLayouts[h] = &setLayout{bindings: append([]gpu.DescriptorBinding(nil), bindings...), layout: layout}
	return h, nil
}

func (d *Device) DestroyDescriptorSetLayout(h gpu.DescriptorSetLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if l, ok := d.setLayouts[h]; ok {
		l.layout.Release()
		delete(d.setLayouts, h)
	}
}

// AllocateDescriptorSet never exhausts; bind groups are created once every binding is written.
func (d *Device) AllocateDescriptorSet(layout gpu.DescriptorSetLayout) (gpu.DescriptorSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.setLayouts[layout]
	if !ok {
		return 0, fmt.Errorf("webgpu: allocate set: layout %d: %w", layout, gpu.ErrUnknownHandle)
	}
	h := gpu.DescriptorSet(d.alloc())
	d.sets[h] = &descriptorSet{layout: l, writes: make(map[uint32]gpu.DescriptorWrite)}
	return h, nil
}

// UpdateDescriptorSet merges the writes and rebuilds the bind group when the set is complete.
// Bind groups are immutable, so a submitted frame keeps the group it was recorded with.
func (d *Device) UpdateDescriptorSet(h gpu.DescriptorSet, writes []gpu.DescriptorWrite) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.sets[h]
	if !ok {
		return fmt.Errorf("webgpu: update set %d: %w", h, gpu.ErrUnknownHandle)
	}
	for _, w := range writes {
		set.writes[w.Binding] = w
	}
	if len(set.writes) < len(set.layout.bindings) {
		return nil
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(set.layout.bindings))
	for _, b := range set.layout.bindings {
		w, ok := set.writes[b.Binding]
		if !ok {
			return nil
		}
		entry := wgpu.BindGroupEntry{Binding: b.Binding}
		switch b.Type {
		case gpu.DescriptorTypeUniformBuffer, gpu.DescriptorTypeUniformBufferDynamic:
			buf, ok := d.buffers[w.Buffer]
			if !ok || buf.handle == nil {
				return fmt.Errorf("webgpu: set %d binding %d: buffer %d: %w", h, b.Binding, w.Buffer, gpu.ErrUnknownHandle)
			}
			entry.Buffer, entry.Offset, entry.Size = buf.handle, w.Offset, w.Range
			if w.Range == 0 {
				entry.Size = wgpu.WholeSize
			}
		case gpu.DescriptorTypeSampledImage:
			v, ok := d.views[w.ImageView]
			if !ok || v.view == nil {
				return fmt.Errorf("webgpu: set %d binding %d: view %d: %w", h, b.Binding, w.ImageView, gpu.ErrUnknownHandle)
			}
			entry.TextureView = v.view
		case gpu.DescriptorTypeSampler:
			s, ok := d.samplers[w.Sampler]
			if !ok {
				return fmt.Errorf("webgpu: set %d binding %d: sampler %d: %w", h, b.Binding, w.Sampler, gpu.ErrUnknownHandle)
			}
			entry.Sampler = s
		}
		entries = append(entries, entry)
	}

	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout:  set.layout.layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("webgpu: create bind group for set %d: %w: %w", h, gpu.ErrSetupFailure, err)
	}
	if set.group != nil {
		set.group.Release()
	}
	set.group = group
	return nil
}

func (d *Device) FreeDescriptorSet(h gpu.DescriptorSet) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if set, ok := d.sets[h]; ok {
		if set.group != nil {
			set.group.Release()
		}
		delete(d.sets, h)
	}
}

func (d *Device) CreatePipelineLayout(label string, layouts []gpu.DescriptorSetLayout) (gpu.PipelineLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	groups := make([]*wgpu.BindGroupLayout, len(layouts))
	for i, h := range layouts {
		l, ok := d.setLayouts[h]
		if !ok {
			return 0, fmt.Errorf("webgpu: pipeline layout %q: set layout %d: %w", label, h, gpu.ErrUnknownHandle)
		}
		groups[i] = l.layout
	}
	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: groups,
	})
	if err != nil {
		return 0, fmt.Errorf("webgpu: create pipeline layout %q: %w: %w", label, gpu.ErrSetupFailure, err)
	}
	h := gpu.PipelineLayout(d.alloc())
	d.pipelineLayouts[h] = layout
	return h, nil
}

func (d *Device) DestroyPipelineLayout(h gpu.PipelineLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if l, ok := d.pipelineLayouts[h]; ok {
		l.Release()
		delete(d.pipelineLayouts, h)
	}
}

// CreateGraphicsPipeline takes color and depth formats from the render pass. A dynamic
// depth bias uses the descriptor's values; WebGPU cannot change it per draw.
func (d *Device) CreateGraphicsPipeline(desc gpu.PipelineDescriptor) (gpu.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pass, ok := d.renderPasses[desc.RenderPass]
	if !ok {
		return 0, fmt.Errorf("webgpu: pipeline %q: render pass %d: %w", desc.Label, desc.RenderPass, gpu.ErrUnknownHandle)
	}
	layout, ok := d.pipelineLayouts[desc.Layout]
	if !ok {
		return 0, fmt.Errorf("webgpu: pipeline %q: layout %d: %w", desc.Label, desc.Layout, gpu.ErrUnknownHandle)
	}
	vs, ok := d.shaders[desc.Vertex.Module]
	if !ok {
		return 0, fmt.Errorf("webgpu: pipeline %q: vertex module: %w", desc.Label, gpu.ErrUnknownHandle)
	}

	buffers := make([]wgpu.VertexBufferLayout, len(desc.VertexLayouts))
	for i, vl := range desc.VertexLayouts {
		attrs := make([]wgpu.VertexAttribute, len(vl.Attributes))
		for j, a := range vl.Attributes {
			attrs[j] = wgpu.VertexAttribute{
				Format:         vertexFormat(a.Format),
				Offset:         uint64(a.Offset),
				ShaderLocation: a.Location,
			}
		}
		buffers[i] = wgpu.VertexBufferLayout{
			ArrayStride: uint64(vl.Stride),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		}
	}

	pd := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers:    buffers,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology(desc.Topology),
			FrontFace: frontFace(desc.FrontFace),
			CullMode:  cullMode(desc.CullMode),
		},
		Multisample: wgpu.MultisampleState{
			Count: max(desc.Samples, 1),
			Mask:  0xFFFFFFFF,
		},
	}
	if desc.Topology == gpu.PrimitiveTopologyTriangleStrip {
		pd.Primitive.StripIndexFormat = wgpu.IndexFormatUint16
	}

	if depth := pass.Subpass.DepthAttachment; depth != gpu.AttachmentUnused {
		ds := &wgpu.DepthStencilState{
			Format:            textureFormat(pass.Attachments[depth].Format),
			DepthWriteEnabled: desc.DepthWrite,
			DepthCompare:      wgpu.CompareFunctionAlways,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
		if desc.DepthTest {
			ds.DepthCompare = compareFunction(desc.DepthCompare)
		}
		if desc.DepthBias.Enabled {
			ds.DepthBias = int32(desc.DepthBias.Constant)
			ds.DepthBiasSlopeScale = desc.DepthBias.Slope
			ds.DepthBiasClamp = desc.DepthBias.Clamp
		}
		pd.DepthStencil = ds
	}

	if desc.Fragment != nil {
		fs, ok := d.shaders[desc.Fragment.Module]
		if !ok {
			return 0, fmt.Errorf("webgpu: pipeline %q: fragment module: %w", desc.Label, gpu.ErrUnknownHandle)
		}
		targets := make([]wgpu.ColorTargetState, 0, len(pass.Subpass.ColorAttachments))
		for _, idx := range pass.Subpass.ColorAttachments {
			target := wgpu.ColorTargetState{
				Format:    textureFormat(pass.Attachments[idx].Format),
				WriteMask: wgpu.ColorWriteMaskAll,
			}
			if desc.Blend {
				blend := alphaBlend
				target.Blend = &blend
			}
			targets = append(targets, target)
		}
		pd.Fragment = &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: desc.Fragment.EntryPoint,
			Targets:    targets,
		}
	}

	created, err := d.device.CreateRenderPipeline(pd)
	if err != nil {
		return 0, fmt.Errorf("webgpu: create pipeline %q: %w: %w", desc.Label, gpu.ErrSetupFailure, err)
	}
	h := gpu.Pipeline(d.alloc())
	d.pipelines[h] = &pipeline{handle: created}
	return h, nil
}

func (d *Device) DestroyPipeline(h gpu.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pipelines[h]; ok {
		p.handle.Release()
		delete(d.pipelines, h)
	}
}
