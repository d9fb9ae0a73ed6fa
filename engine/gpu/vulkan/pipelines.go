package vulkan

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	vk "github.com/vulkan-go/vulkan"
)

const attachmentUnused = ^uint32(0)

func attachmentRef(index int, layout vk.ImageLayout) vk.AttachmentReference {
	if index == gpu.AttachmentUnused {
		return vk.AttachmentReference{Attachment: attachmentUnused, Layout: vk.ImageLayoutUndefined}
	}
	return vk.AttachmentReference{Attachment: uint32(index), Layout: layout}
}

// validateRenderPass checks every subpass reference against the attachment list.
func validateRenderPass(desc gpu.RenderPassDescriptor) error {
	n := len(desc.Attachments)
	valid := func(i int) bool { return i == gpu.AttachmentUnused || (i >= 0 && i < n) }
	for _, i := range desc.Subpass.ColorAttachments {
		if !valid(i) || i == gpu.AttachmentUnused {
			return fmt.Errorf("color attachment %d out of range", i)
		}
	}
	if len(desc.Subpass.ResolveAttachments) > 0 && len(desc.Subpass.ResolveAttachments) != len(desc.Subpass.ColorAttachments) {
		return fmt.Errorf("%d resolve attachments for %d color attachments", len(desc.Subpass.ResolveAttachments), len(desc.Subpass.ColorAttachments))
	}
	for _, i := range desc.Subpass.ResolveAttachments {
		if !valid(i) {
			return fmt.Errorf("resolve attachment %d out of range", i)
		}
	}
	if !valid(desc.Subpass.DepthAttachment) {
		return fmt.Errorf("depth attachment %d out of range", desc.Subpass.DepthAttachment)
	}
	return nil
}

func (d *Device) CreateRenderPass(desc gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	if err := validateRenderPass(desc); err != nil {
		return 0, fmt.Errorf("vulkan: render pass %q: %w: %w", desc.Label, gpu.ErrSetupFailure, err)
	}

	attachments := make([]vk.AttachmentDescription, len(desc.Attachments))
	for i, a := range desc.Attachments {
		attachments[i] = vk.AttachmentDescription{
			Format:         format(a.Format),
			Samples:        sampleCount(a.Samples),
			LoadOp:         loadOp(a.LoadOp),
			StoreOp:        storeOp(a.StoreOp),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  imageLayout(a.InitialLayout),
			FinalLayout:    imageLayout(a.FinalLayout),
		}
	}

	subpass := vk.SubpassDescription{PipelineBindPoint: vk.PipelineBindPointGraphics}
	if n := len(desc.Subpass.ColorAttachments); n > 0 {
		colors := make([]vk.AttachmentReference, n)
		for i, a := range desc.Subpass.ColorAttachments {
			colors[i] = attachmentRef(a, vk.ImageLayoutColorAttachmentOptimal)
		}
		subpass.ColorAttachmentCount = uint32(n)
		subpass.PColorAttachments = colors
		if len(desc.Subpass.ResolveAttachments) > 0 {
			resolves := make([]vk.AttachmentReference, n)
			for i, a := range desc.Subpass.ResolveAttachments {
				resolves[i] = attachmentRef(a, vk.ImageLayoutColorAttachmentOptimal)
			}
			subpass.PResolveAttachments = resolves
		}
	}
	if desc.Subpass.DepthAttachment != gpu.AttachmentUnused {
		depth := attachmentRef(desc.Subpass.DepthAttachment, vk.ImageLayoutDepthStencilAttachmentOptimal)
		subpass.PDepthStencilAttachment = &depth
	}

	deps := make([]vk.SubpassDependency, len(desc.Dependencies))
	for i, dep := range desc.Dependencies {
		deps[i] = vk.SubpassDependency{
			SrcSubpass:    dep.SrcSubpass,
			DstSubpass:    dep.DstSubpass,
			SrcStageMask:  pipelineStages(dep.SrcStage),
			DstStageMask:  pipelineStages(dep.DstStage),
			SrcAccessMask: access(dep.SrcAccess),
			DstAccessMask: access(dep.DstAccess),
		}
		if dep.ByRegion {
			deps[i].DependencyFlags = vk.DependencyFlags(vk.DependencyByRegionBit)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var pass vk.RenderPass
	res := vk.CreateRenderPass(d.device, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(deps)),
		PDependencies:   deps,
	}, nil, &pass)
	if err := check(res, "create render pass "+desc.Label, gpu.ErrSetupFailure); err != nil {
		return 0, err
	}
	h := gpu.RenderPass(d.alloc())
	d.renderPasses[h] = &renderPass{desc: desc, handle: pass}
	return h, nil
}

func (d *Device) DestroyRenderPass(h gpu.RenderPass) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyRenderPass(h)
}

func (d *Device) destroyRenderPass(h gpu.RenderPass) {
	if rp, ok := d.renderPasses[h]; ok {
		vk.DestroyRenderPass(d.device, rp.handle, nil)
		delete(d.renderPasses, h)
	}
}

func (d *Device) CreateFramebuffer(desc gpu.FramebufferDescriptor) (gpu.Framebuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rp, ok := d.renderPasses[desc.RenderPass]
	if !ok {
		return 0, fmt.Errorf("vulkan: framebuffer %q: render pass %d: %w", desc.Label, desc.RenderPass, gpu.ErrUnknownHandle)
	}
	if len(desc.Attachments) != len(rp.desc.Attachments) {
		return 0, fmt.Errorf("vulkan: framebuffer %q has %d attachments, render pass %q expects %d: %w",
			desc.Label, len(desc.Attachments), rp.desc.Label, len(rp.desc.Attachments), gpu.ErrSetupFailure)
	}
	views := make([]vk.ImageView, len(desc.Attachments))
	for i, h := range desc.Attachments {
		v, ok := d.views[h]
		if !ok {
			return 0, fmt.Errorf("vulkan: framebuffer %q attachment %d: view %d: %w", desc.Label, i, h, gpu.ErrUnknownHandle)
		}
		views[i] = v.handle
	}

	var fb vk.Framebuffer
	res := vk.CreateFramebuffer(d.device, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp.handle,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           desc.Extent.Width,
		Height:          desc.Extent.Height,
		Layers:          max(desc.Layers, 1),
	}, nil, &fb)
	if err := check(res, "create framebuffer "+desc.Label, gpu.ErrSetupFailure); err != nil {
		return 0, err
	}
	h := gpu.Framebuffer(d.alloc())
	d.framebuffers[h] = &framebuffer{desc: desc, handle: fb}
	return h, nil
}

func (d *Device) DestroyFramebuffer(h gpu.Framebuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyFramebuffer(h)
}

func (d *Device) destroyFramebuffer(h gpu.Framebuffer) {
	if fb, ok := d.framebuffers[h]; ok {
		vk.DestroyFramebuffer(d.device, fb.handle, nil)
		delete(d.framebuffers, h)
	}
}

func (d *Device) CreateDescriptorSetLayout(label string, bindings []gpu.DescriptorBinding) (gpu.DescriptorSetLayout, error) {
	entries := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		entries[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  descriptorType(b.Type),
			DescriptorCount: 1,
			StageFlags:      shaderStages(b.Stages),
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var layout vk.DescriptorSetLayout
	res := vk.CreateDescriptorSetLayout(d.device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(entries)),
		PBindings:    entries,
	}, nil, &layout)
	if err := check(res, "create descriptor set layout "+label, gpu.ErrSetupFailure); err != nil {
		return 0, err
	}
	h := gpu.DescriptorSetLayout(d.alloc())
	d.setLayouts[h] = &setLayout{bindings: append([]gpu.DescriptorBinding(nil), bindings...), handle: layout}
	return h, nil
}

func (d *Device) DestroyDescriptorSetLayout(h gpu.DescriptorSetLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroySetLayout(h)
}

func (d *Device) destroySetLayout(h gpu.DescriptorSetLayout) {
	if l, ok := d.setLayouts[h]; ok {
		vk.DestroyDescriptorSetLayout(d.device, l.handle, nil)
		delete(d.setLayouts, h)
	}
}

func (d *Device) AllocateDescriptorSet(layout gpu.DescriptorSetLayout) (gpu.DescriptorSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.setLayouts[layout]
	if !ok {
		return 0, fmt.Errorf("vulkan: allocate descriptor set: layout %d: %w", layout, gpu.ErrUnknownHandle)
	}
	var set vk.DescriptorSet
	res := vk.AllocateDescriptorSets(d.device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{l.handle},
	}, &set)
	if err := check(res, "allocate descriptor set", gpu.ErrResourceExhausted); err != nil {
		return 0, err
	}
	h := gpu.DescriptorSet(d.alloc())
	d.sets[h] = &descriptorSet{layout: l, handle: set}
	return h, nil
}

// UpdateDescriptorSet writes buffers, views and samplers into the set. A zero Range
// binds the buffer from Offset to its end. Images are bound in the shader read-only layout.
func (d *Device) UpdateDescriptorSet(h gpu.DescriptorSet, writes []gpu.DescriptorWrite) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.sets[h]
	if !ok {
		return fmt.Errorf("vulkan: update descriptor set %d: %w", h, gpu.ErrUnknownHandle)
	}
	types := make(map[uint32]gpu.DescriptorType, len(set.layout.bindings))
	for _, b := range set.layout.bindings {
		types[b.Binding] = b.Type
	}

	out := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		t, ok := types[w.Binding]
		if !ok {
			return fmt.Errorf("vulkan: update descriptor set %d: binding %d not in layout: %w", h, w.Binding, gpu.ErrInvalidState)
		}
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set.handle,
			DstBinding:      w.Binding,
			DescriptorCount: 1,
			DescriptorType:  descriptorType(t),
		}
		switch t {
		case gpu.DescriptorTypeUniformBuffer, gpu.DescriptorTypeUniformBufferDynamic:
			b, ok := d.buffers[w.Buffer]
			if !ok {
				return fmt.Errorf("vulkan: binding %d: buffer %d: %w", w.Binding, w.Buffer, gpu.ErrUnknownHandle)
			}
			size := w.Range
			if size == 0 {
				size = b.desc.Size - w.Offset
			}
			write.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: b.handle,
				Offset: vk.DeviceSize(w.Offset),
				Range:  vk.DeviceSize(size),
			}}
		case gpu.DescriptorTypeSampledImage:
			v, ok := d.views[w.ImageView]
			if !ok {
				return fmt.Errorf("vulkan: binding %d: view %d: %w", w.Binding, w.ImageView, gpu.ErrUnknownHandle)
			}
			write.PImageInfo = []vk.DescriptorImageInfo{{
				ImageView:   v.handle,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}}
		case gpu.DescriptorTypeSampler:
			s, ok := d.samplers[w.Sampler]
			if !ok {
				return fmt.Errorf("vulkan: binding %d: sampler %d: %w", w.Binding, w.Sampler, gpu.ErrUnknownHandle)
			}
			write.PImageInfo = []vk.DescriptorImageInfo{{Sampler: s}}
		}
		out = append(out, write)
	}
	if len(out) > 0 {
		vk.UpdateDescriptorSets(d.device, uint32(len(out)), out, 0, nil)
	}
	return nil
}

func (d *Device) FreeDescriptorSet(h gpu.DescriptorSet) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if set, ok := d.sets[h]; ok {
		vk.FreeDescriptorSets(d.device, d.descriptorPool, 1, &set.handle)
		delete(d.sets, h)
	}
}

func (d *Device) CreatePipelineLayout(label string, layouts []gpu.DescriptorSetLayout) (gpu.PipelineLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	handles := make([]vk.DescriptorSetLayout, len(layouts))
	for i, h := range layouts {
		l, ok := d.setLayouts[h]
		if !ok {
			return 0, fmt.Errorf("vulkan: pipeline layout %q: set layout %d: %w", label, h, gpu.ErrUnknownHandle)
		}
		handles[i] = l.handle
	}
	var layout vk.PipelineLayout
	res := vk.CreatePipelineLayout(d.device, &vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(handles)),
		PSetLayouts:    handles,
	}, nil, &layout)
	if err := check(res, "create pipeline layout "+label, gpu.ErrSetupFailure); err != nil {
		return 0, err
	}
	h := gpu.PipelineLayout(d.alloc())
	d.pipelineLayouts[h] = layout
	return h, nil
}

func (d *Device) DestroyPipelineLayout(h gpu.PipelineLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyPipelineLayout(h)
}

func (d *Device) destroyPipelineLayout(h gpu.PipelineLayout) {
	if l, ok := d.pipelineLayouts[h]; ok {
		vk.DestroyPipelineLayout(d.device, l, nil)
		delete(d.pipelineLayouts, h)
	}
}

func bool32(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

// blendAttachment returns straight alpha blending when blend is set and a plain write otherwise.
func blendAttachment(blend bool) vk.PipelineColorBlendAttachmentState {
	state := vk.PipelineColorBlendAttachmentState{
		BlendEnable:    bool32(blend),
		ColorBlendOp:   vk.BlendOpAdd,
		AlphaBlendOp:   vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	if blend {
		state.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		state.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		state.SrcAlphaBlendFactor = vk.BlendFactorOne
		state.DstAlphaBlendFactor = vk.BlendFactorOneMinusSrcAlpha
	} else {
		state.SrcColorBlendFactor = vk.BlendFactorOne
		state.DstColorBlendFactor = vk.BlendFactorZero
		state.SrcAlphaBlendFactor = vk.BlendFactorOne
		state.DstAlphaBlendFactor = vk.BlendFactorZero
	}
	return state
}

// dynamicStates lists the state set while recording: viewport and scissor always,
// depth bias when the pipeline asks for it.
func dynamicStates(bias gpu.DepthBias) []vk.DynamicState {
	states := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	if bias.Enabled && bias.Dynamic {
		states = append(states, vk.DynamicStateDepthBias)
	}
	return states
}

// CreateGraphicsPipeline builds a pipeline for subpass 0 of the render pass. Viewport
// and scissor are dynamic and follow the render area given to CmdBeginRenderPass.
func (d *Device) CreateGraphicsPipeline(desc gpu.PipelineDescriptor) (gpu.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layout, ok := d.pipelineLayouts[desc.Layout]
	if !ok {
		return 0, fmt.Errorf("vulkan: pipeline %q: layout %d: %w", desc.Label, desc.Layout, gpu.ErrUnknownHandle)
	}
	rp, ok := d.renderPasses[desc.RenderPass]
	if !ok {
		return 0, fmt.Errorf("vulkan: pipeline %q: render pass %d: %w", desc.Label, desc.RenderPass, gpu.ErrUnknownHandle)
	}
	vs, ok := d.shaders[desc.Vertex.Module]
	if !ok {
		return 0, fmt.Errorf("vulkan: pipeline %q: vertex module %d: %w", desc.Label, desc.Vertex.Module, gpu.ErrUnknownHandle)
	}
	stages := []vk.PipelineShaderStageCreateInfo{{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageVertexBit,
		Module: vs,
		PName:  safeString(desc.Vertex.EntryPoint),
	}}
	if desc.Fragment != nil {
		fs, ok := d.shaders[desc.Fragment.Module]
		if !ok {
			return 0, fmt.Errorf("vulkan: pipeline %q: fragment module %d: %w", desc.Label, desc.Fragment.Module, gpu.ErrUnknownHandle)
		}
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: fs,
			PName:  safeString(desc.Fragment.EntryPoint),
		})
	}

	var bindings []vk.VertexInputBindingDescription
	var attributes []vk.VertexInputAttributeDescription
	for i, vl := range desc.VertexLayouts {
		bindings = append(bindings, vk.VertexInputBindingDescription{
			Binding:   uint32(i),
			Stride:    vl.Stride,
			InputRate: vk.VertexInputRateVertex,
		})
		for _, a := range vl.Attributes {
			attributes = append(attributes, vk.VertexInputAttributeDescription{
				Location: a.Location,
				Binding:  uint32(i),
				Format:   format(a.Format),
				Offset:   a.Offset,
			})
		}
	}

	blends := make([]vk.PipelineColorBlendAttachmentState, len(rp.desc.Subpass.ColorAttachments))
	for i := range blends {
		blends[i] = blendAttachment(desc.Blend)
	}
	dynamic := dynamicStates(desc.DepthBias)

	info := vk.GraphicsPipelineCreateInfo{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(bindings)),
			PVertexBindingDescriptions:      bindings,
			VertexAttributeDescriptionCount: uint32(len(attributes)),
			PVertexAttributeDescriptions:    attributes,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: topology(desc.Topology),
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode:             vk.PolygonModeFill,
			CullMode:                cullMode(desc.CullMode),
			FrontFace:               frontFace(desc.FrontFace),
			DepthBiasEnable:         bool32(desc.DepthBias.Enabled),
			DepthBiasConstantFactor: desc.DepthBias.Constant,
			DepthBiasClamp:          desc.DepthBias.Clamp,
			DepthBiasSlopeFactor:    desc.DepthBias.Slope,
			LineWidth:               1,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: sampleCount(desc.Samples),
			MinSampleShading:     1,
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:  bool32(desc.DepthTest),
			DepthWriteEnable: bool32(desc.DepthWrite),
			DepthCompareOp:   compareOp(desc.DepthCompare),
			MaxDepthBounds:   1,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: uint32(len(blends)),
			PAttachments:    blends,
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(dynamic)),
			PDynamicStates:    dynamic,
		},
		Layout:     layout,
		RenderPass: rp.handle,
	}

	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(d.device, vk.PipelineCache(vk.NullHandle), 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if err := check(res, "create pipeline "+desc.Label, gpu.ErrSetupFailure); err != nil {
		return 0, err
	}
	h := gpu.Pipeline(d.alloc())
	d.pipelines[h] = pipelines[0]
	return h, nil
}

func (d *Device) DestroyPipeline(h gpu.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyPipeline(h)
}

func (d *Device) destroyPipeline(h gpu.Pipeline) {
	if p, ok := d.pipelines[h]; ok {
		vk.DestroyPipeline(d.device, p, nil)
		delete(d.pipelines, h)
	}
}
