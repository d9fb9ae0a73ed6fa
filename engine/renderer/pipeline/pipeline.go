package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/shader"
)

// pipeline is the implementation of the Pipeline interface.
// It holds the fixed-function state configured by the builder options and, once built, the device pipeline.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used as the debug label
	pipelineKey string

	shader        shader.Shader
	vertexEntry   string
	fragmentEntry string
	vertexLayouts []gpu.VertexLayout
	depthTest     bool
	depthWrite    bool
	depthCompare  gpu.CompareOp
	depthBias     gpu.DepthBias
	blendEnabled  bool
	cullMode      gpu.CullMode
	topology      gpu.PrimitiveTopology
	frontFace     gpu.FrontFace
	samples       uint32
	dev           gpu.Device
	handle        gpu.Pipeline
	layout        gpu.PipelineLayout
}

// Pipeline is a graphics pipeline: a shader, its entry points and the fixed-function state.
// The state is collected by options first and turned into a device pipeline by Build, once
// the pipeline layout and render pass it runs in exist.
type Pipeline interface {
	// PipelineKey returns the unique key of this pipeline.
	PipelineKey() string

	// Shader returns the shader the pipeline runs.
	Shader() shader.Shader

	// DepthOnly reports whether the pipeline has no fragment stage.
	DepthOnly() bool

	// DepthBias returns the configured depth bias. Dynamic biases are set per draw by the caller.
	DepthBias() gpu.DepthBias

	// CullMode returns the configured cull mode.
	CullMode() gpu.CullMode

	// BlendEnabled reports whether color blending is on.
	BlendEnabled() bool

	// Descriptor returns the device descriptor for a layout and render pass.
	//
	// Parameters:
	//   - layout: the pipeline layout
	//   - pass: the render pass the pipeline is used in
	//
	// Returns:
	//   - gpu.PipelineDescriptor: the descriptor
	//   - error: when the shader lacks a configured entry point or a vertex layout
	Descriptor(layout gpu.PipelineLayout, pass gpu.RenderPass) (gpu.PipelineDescriptor, error)

	// Build loads the shader and creates the device pipeline. Building again replaces the previous pipeline.
	//
	// Parameters:
	//   - dev: the device
	//   - layout: the pipeline layout
	//   - pass: the render pass the pipeline is used in
	//
	// Returns:
	//   - error: wraps gpu.ErrSetupFailure when shader loading or pipeline creation fails
	Build(dev gpu.Device, layout gpu.PipelineLayout, pass gpu.RenderPass) error

	// Handle returns the device pipeline, or the null handle before Build.
	Handle() gpu.Pipeline

	// Layout returns the pipeline layout passed to Build.
	Layout() gpu.PipelineLayout

	// Bind records the pipeline bind into a command buffer.
	Bind(enc gpu.CommandEncoder, cb gpu.CommandBuffer)

	// Destroy releases the device pipeline. The shader is left to its owner. Safe to call twice.
	Destroy()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a pipeline description. Without options the pipeline runs vs_main and fs_main,
// tests and writes depth with LESS, culls back faces with counter-clockwise front faces, draws
// triangle lists and does not blend.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - s: the shader the pipeline runs
//   - opts: PipelineBuilderOption values
//
// Returns:
//   - Pipeline: the pipeline
func NewPipeline(pipelineKey string, s shader.Shader, opts ...PipelineBuilderOption) Pipeline {
	if s == nil {
		panic(fmt.Sprintf("pipeline: %s requires a shader", pipelineKey))
	}
	p := &pipeline{
		pipelineKey:   pipelineKey,
		shader:        s,
		vertexEntry:   shader.EntryVertex,
		fragmentEntry: shader.EntryFragment,
		depthTest:     true,
		depthWrite:    true,
		depthCompare:  gpu.CompareOpLess,
		cullMode:      gpu.CullModeBack,
		topology:      gpu.PrimitiveTopologyTriangleList,
		frontFace:     gpu.FrontFaceCounterClockwise,
		samples:       1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string        { return p.pipelineKey }
func (p *pipeline) Shader() shader.Shader      { return p.shader }
func (p *pipeline) DepthOnly() bool            { return p.fragmentEntry == "" }
func (p *pipeline) DepthBias() gpu.DepthBias   { return p.depthBias }
func (p *pipeline) CullMode() gpu.CullMode     { return p.cullMode }
func (p *pipeline) BlendEnabled() bool         { return p.blendEnabled }
func (p *pipeline) Handle() gpu.Pipeline       { return p.handle }
func (p *pipeline) Layout() gpu.PipelineLayout { return p.layout }

func (p *pipeline) Descriptor(layout gpu.PipelineLayout, pass gpu.RenderPass) (gpu.PipelineDescriptor, error) {
	if !p.shader.HasEntryPoint(p.vertexEntry) {
		return gpu.PipelineDescriptor{}, fmt.Errorf("pipeline %s: shader %s has no entry point %q: %w", p.pipelineKey, p.shader.Key(), p.vertexEntry, gpu.ErrSetupFailure)
	}

	vertexLayouts := p.vertexLayouts
	if vertexLayouts == nil {
		vl, ok := p.shader.VertexLayout(p.vertexEntry)
		if !ok {
			return gpu.PipelineDescriptor{}, fmt.Errorf("pipeline %s: no vertex layout for %q: %w", p.pipelineKey, p.vertexEntry, gpu.ErrSetupFailure)
		}
		vertexLayouts = []gpu.VertexLayout{vl}
	}

	desc := gpu.PipelineDescriptor{
		Label:         p.pipelineKey,
		Layout:        layout,
		RenderPass:    pass,
		Vertex:        gpu.ShaderStageDescriptor{Module: p.shader.Module(), EntryPoint: p.vertexEntry},
		VertexLayouts: vertexLayouts,
		Topology:      p.topology,
		CullMode:      p.cullMode,
		FrontFace:     p.frontFace,
		DepthTest:     p.depthTest,
		DepthWrite:    p.depthWrite,
		DepthCompare:  p.depthCompare,
		DepthBias:     p.depthBias,
		Samples:       p.samples,
		Blend:         p.blendEnabled,
	}
	if p.fragmentEntry != "" {
		if !p.shader.HasEntryPoint(p.fragmentEntry) {
			return gpu.PipelineDescriptor{}, fmt.Errorf("pipeline %s: shader %s has no entry point %q: %w", p.pipelineKey, p.shader.Key(), p.fragmentEntry, gpu.ErrSetupFailure)
		}
		desc.Fragment = &gpu.ShaderStageDescriptor{Module: p.shader.Module(), EntryPoint: p.fragmentEntry}
	}
	return desc, nil
}

func (p *pipeline) Build(dev gpu.Device, layout gpu.PipelineLayout, pass gpu.RenderPass) error {
	if _, err := p.shader.Load(dev); err != nil {
		return fmt.Errorf("pipeline %s: %w", p.pipelineKey, err)
	}
	desc, err := p.Descriptor(layout, pass)
	if err != nil {
		return err
	}
	handle, err := dev.CreateGraphicsPipeline(desc)
	if err != nil {
		return fmt.Errorf("pipeline %s: %w", p.pipelineKey, err)
	}
	p.Destroy()
	p.dev, p.handle, p.layout = dev, handle, layout
	return nil
}

func (p *pipeline) Bind(enc gpu.CommandEncoder, cb gpu.CommandBuffer) {
	enc.CmdBindPipeline(cb, p.handle)
}

func (p *pipeline) Destroy() {
	if p.handle == 0 {
		return
	}
	p.dev.DestroyPipeline(p.handle)
	p.handle = 0
	p.layout = 0
	p.dev = nil
}
