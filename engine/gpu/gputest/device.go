// Package gputest provides an in-memory gpu.Device that records every call.
// Buffers are backed by byte slices, fences signal when their submission is
// recorded, and command buffers keep the list of commands recorded into them.
package gputest

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// Event is one device call in the order it was made.
type Event struct {
	Op     string
	Handle uint64
}

// Command is one command recorded into a command buffer. Only the fields relevant to Op are set.
type Command struct {
	Op             string
	Barriers       []gpu.ImageBarrier
	Copy           gpu.BufferImageCopy
	Blit           gpu.ImageBlit
	Filter         gpu.Filter
	Begin          gpu.RenderPassBegin
	Pipeline       gpu.Pipeline
	Layout         gpu.PipelineLayout
	Set            gpu.DescriptorSet
	SetIndex       uint32
	DynamicOffsets []uint32
	DepthBias      [3]float32
	Buffer         gpu.Buffer
	Image          gpu.Image
	Offset         uint64
	IndexCount     uint32
}

// BufferState is the backing store and bookkeeping of a buffer.
type BufferState struct {
	Desc   gpu.BufferDescriptor
	Data   []byte
	Mapped bool
	Maps   int
}

// SetState is the last written content of each binding of a descriptor set.
type SetState struct {
	Layout gpu.DescriptorSetLayout
	Writes map[uint32]gpu.DescriptorWrite
}

// CommandBufferState tracks the recording state of a command buffer.
type CommandBufferState struct {
	Recording bool
	Usage     gpu.CommandBufferUsage
	Commands  []Command
	Resets    int
}

// Submission is a recorded QueueSubmit with a snapshot of the submitted commands.
type Submission struct {
	Info     gpu.SubmitInfo
	Fence    gpu.Fence
	Commands [][]Command
}

// Device is a recording gpu.Device.
type Device struct {
	mu   sync.Mutex
	next uint64
	live map[uint64]string

	limits    gpu.Limits
	format    gpu.Format
	extent    gpu.Extent2D
	swapViews []gpu.ImageView
	acquires  uint32

	Buffers        map[gpu.Buffer]*BufferState
	Images         map[gpu.Image]gpu.ImageDescriptor
	Views          map[gpu.ImageView]gpu.ImageViewDescriptor
	Samplers       map[gpu.Sampler]gpu.SamplerDescriptor
	RenderPasses   map[gpu.RenderPass]gpu.RenderPassDescriptor
	Framebuffers   map[gpu.Framebuffer]gpu.FramebufferDescriptor
	SetLayouts     map[gpu.DescriptorSetLayout][]gpu.DescriptorBinding
	Sets           map[gpu.DescriptorSet]*SetState
	Pipelines      map[gpu.Pipeline]gpu.PipelineDescriptor
	Fences         map[gpu.Fence]bool
	CommandBuffers map[gpu.CommandBuffer]*CommandBufferState

	Events   []Event
	Submits  []Submission
	Presents []gpu.PresentInfo
	Misuse   []string

	// AcquireErrs and PresentErrs are consumed one per call; a nil entry means success.
	AcquireErrs []error
	PresentErrs []error
	// SubmitErr fails every QueueSubmit while set.
	SubmitErr error
	// HangFences keeps fences unsignaled after submission so waits time out.
	HangFences bool
	// MaxDescriptorSets bounds the number of live descriptor sets; zero means unbounded.
	MaxDescriptorSets int
	// FailCreate makes every create call for the named kind fail, e.g. "image".
	FailCreate map[string]bool
}

var _ gpu.Device = &Device{}

// NewDevice creates a recording device with the given swapchain size and image count.
//
// Parameters:
//   - width: the swapchain width
//   - height: the swapchain height
//   - images: the number of swapchain images
//
// Returns:
//   - *Device: the device
func NewDevice(width, height uint32, images int) *Device {
	d := &Device{
		live:           make(map[uint64]string),
		limits:         gpu.Limits{MinUniformBufferOffsetAlignment: 256, MaxSampleCount: 4},
		format:         gpu.FormatBGRA8Srgb,
		extent:         gpu.Extent2D{Width: width, Height: height},
		Buffers:        make(map[gpu.Buffer]*BufferState),
		Images:         make(map[gpu.Image]gpu.ImageDescriptor),
		Views:          make(map[gpu.ImageView]gpu.ImageViewDescriptor),
		Samplers:       make(map[gpu.Sampler]gpu.SamplerDescriptor),
		RenderPasses:   make(map[gpu.RenderPass]gpu.RenderPassDescriptor),
		Framebuffers:   make(map[gpu.Framebuffer]gpu.FramebufferDescriptor),
		SetLayouts:     make(map[gpu.DescriptorSetLayout][]gpu.DescriptorBinding),
		Sets:           make(map[gpu.DescriptorSet]*SetState),
		Pipelines:      make(map[gpu.Pipeline]gpu.PipelineDescriptor),
		Fences:         make(map[gpu.Fence]bool),
		CommandBuffers: make(map[gpu.CommandBuffer]*CommandBufferState),
		FailCreate:     make(map[string]bool),
	}
	d.buildSwapchain(images)
	return d
}

// SetLimits overrides the reported device limits.
func (d *Device) SetLimits(l gpu.Limits) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.limits = l
}

// Live returns the number of live objects per kind.
func (d *Device) Live() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int)
	for _, kind := range d.live {
		out[kind]++
	}
	return out
}

// ReadBuffer returns a copy of the buffer contents.
func (d *Device) ReadBuffer(b gpu.Buffer) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.Buffers[b]
	if !ok {
		return nil
	}
	return append([]byte(nil), st.Data...)
}

// Recorded returns a copy of the commands currently recorded in the command buffer.
func (d *Device) Recorded(cb gpu.CommandBuffer) []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.CommandBuffers[cb]
	if !ok {
		return nil
	}
	return append([]Command(nil), st.Commands...)
}

// Ops returns the Op names of the recorded events, optionally filtered to the given names.
func (d *Device) Ops(filter ...string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	keep := make(map[string]bool, len(filter))
	for _, f := range filter {
		keep[f] = true
	}
	var out []string
	for _, e := range d.Events {
		if len(keep) == 0 || keep[e.Op] {
			out = append(out, e.Op)
		}
	}
	return out
}

// ClearEvents drops the recorded event log.
func (d *Device) ClearEvents() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Events = nil
}

func (d *Device) buildSwapchain(images int) {
	for _, v := range d.swapViews {
		delete(d.live, uint64(v))
		delete(d.Views, v)
	}
	d.swapViews = make([]gpu.ImageView, images)
	for i := range d.swapViews {
		d.next++
		v := gpu.ImageView(d.next)
		d.Views[v] = gpu.ImageViewDescriptor{Label: fmt.Sprintf("swapchain view %d", i), Format: d.format}
		d.swapViews[i] = v
	}
	d.acquires = 0
}

func (d *Device) event(op string, h uint64) {
	d.Events = append(d.Events, Event{Op: op, Handle: h})
}

func (d *Device) alloc(kind string) (uint64, error) {
	if d.FailCreate[kind] {
		return 0, fmt.Errorf("create %s: %w", kind, gpu.ErrSetupFailure)
	}
	d.next++
	d.live[d.next] = kind
	return d.next, nil
}

func (d *Device) release(h uint64) bool {
	if h == 0 {
		return false
	}
	if _, ok := d.live[h]; !ok {
		return false
	}
	delete(d.live, h)
	return true
}

func (d *Device) Limits() gpu.Limits {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.limits
}

func (d *Device) SurfaceFormat() gpu.Format { return d.format }

func (d *Device) ShaderFormat() gpu.ShaderFormat { return gpu.ShaderFormatWGSL }

func (d *Device) SwapchainExtent() gpu.Extent2D {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.extent
}

func (d *Device) SwapchainImageViews() []gpu.ImageView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]gpu.ImageView(nil), d.swapViews...)
}

func (d *Device) Resize(width, height uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.event("Resize", 0)
	d.extent = gpu.Extent2D{Width: width, Height: height}
	d.buildSwapchain(len(d.swapViews))
	return nil
}

func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.event("WaitIdle", 0)
	return nil
}

func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.event("Close", 0)
}

// MemoryAllocator

func (d *Device) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Size == 0 {
		return 0, fmt.Errorf("create buffer %q: zero size: %w", desc.Label, gpu.ErrSetupFailure)
	}
	h, err := d.alloc("buffer")
	if err != nil {
		return 0, err
	}
	d.Buffers[gpu.Buffer(h)] = &BufferState{Desc: desc, Data: make([]byte, desc.Size)}
	d.event("CreateBuffer", h)
	return gpu.Buffer(h), nil
}

func (d *Device) MapBuffer(buffer gpu.Buffer, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.Buffers[buffer]
	if !ok || d.live[uint64(buffer)] == "" {
		return nil, fmt.Errorf("map buffer %d: %w", buffer, gpu.ErrUnknownHandle)
	}
	if offset+size > uint64(len(st.Data)) {
		return nil, fmt.Errorf("map buffer %d: range %d+%d exceeds %d: %w", buffer, offset, size, len(st.Data), gpu.ErrSetupFailure)
	}
	if st.Mapped {
		d.Misuse = append(d.Misuse, fmt.Sprintf("buffer %d mapped twice", buffer))
	}
	st.Mapped = true
	st.Maps++
	d.event("MapBuffer", uint64(buffer))
	return st.Data[offset : offset+size : offset+size], nil
}

func (d *Device) UnmapBuffer(buffer gpu.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.Buffers[buffer]; ok {
		st.Mapped = false
	}
	d.event("UnmapBuffer", uint64(buffer))
}

func (d *Device) DestroyBuffer(buffer gpu.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(buffer)) {
		d.event("DestroyBuffer", uint64(buffer))
	}
}

// ResourceFactory

func (d *Device) CreateImage(desc gpu.ImageDescriptor) (gpu.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.alloc("image")
	if err != nil {
		return 0, err
	}
	d.Images[gpu.Image(h)] = desc
	d.event("CreateImage", h)
	return gpu.Image(h), nil
}

func (d *Device) DestroyImage(image gpu.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(image)) {
		d.event("DestroyImage", uint64(image))
	}
}

func (d *Device) CreateImageView(desc gpu.ImageViewDescriptor) (gpu.ImageView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.Images[desc.Image]; !ok {
		return 0, fmt.Errorf("create image view %q: %w", desc.Label, gpu.ErrUnknownHandle)
	}
	h, err := d.alloc("view")
	if err != nil {
		return 0, err
	}
	d.Views[gpu.ImageView(h)] = desc
	d.event("CreateImageView", h)
	return gpu.ImageView(h), nil
}

func (d *Device) DestroyImageView(view gpu.ImageView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(view)) {
		d.event("DestroyImageView", uint64(view))
	}
}

func (d *Device) CreateSampler(desc gpu.SamplerDescriptor) (gpu.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.alloc("sampler")
	if err != nil {
		return 0, err
	}
	d.Samplers[gpu.Sampler(h)] = desc
	d.event("CreateSampler", h)
	return gpu.Sampler(h), nil
}

func (d *Device) DestroySampler(sampler gpu.Sampler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(sampler)) {
		d.event("DestroySampler", uint64(sampler))
	}
}

func (d *Device) CreateRenderPass(desc gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.alloc("renderpass")
	if err != nil {
		return 0, err
	}
	d.RenderPasses[gpu.RenderPass(h)] = desc
	d.event("CreateRenderPass", h)
	return gpu.RenderPass(h), nil
}

func (d *Device) DestroyRenderPass(pass gpu.RenderPass) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(pass)) {
		d.event("DestroyRenderPass", uint64(pass))
	}
}

func (d *Device) CreateFramebuffer(desc gpu.FramebufferDescriptor) (gpu.Framebuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.alloc("framebuffer")
	if err != nil {
		return 0, err
	}
	desc.Attachments = append([]gpu.ImageView(nil), desc.Attachments...)
	d.Framebuffers[gpu.Framebuffer(h)] = desc
	d.event("CreateFramebuffer", h)
	return gpu.Framebuffer(h), nil
}

func (d *Device) DestroyFramebuffer(framebuffer gpu.Framebuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(framebuffer)) {
		d.event("DestroyFramebuffer", uint64(framebuffer))
	}
}

func (d *Device) CreateShaderModule(label string, code []byte) (gpu.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(code) == 0 {
		return 0, fmt.Errorf("create shader module %q: empty code: %w", label, gpu.ErrSetupFailure)
	}
	h, err := d.alloc("shader")
	if err != nil {
		return 0, err
	}
	d.event("CreateShaderModule", h)
	return gpu.ShaderModule(h), nil
}

func (d *Device) DestroyShaderModule(module gpu.ShaderModule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(module)) {
		d.event("DestroyShaderModule", uint64(module))
	}
}

func (d *Device) CreateDescriptorSetLayout(label string, bindings []gpu.DescriptorBinding) (gpu.DescriptorSetLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.alloc("setlayout")
	if err != nil {
		return 0, err
	}
	d.SetLayouts[gpu.DescriptorSetLayout(h)] = append([]gpu.DescriptorBinding(nil), bindings...)
	d.event("CreateDescriptorSetLayout", h)
	return gpu.DescriptorSetLayout(h), nil
}

func (d *Device) DestroyDescriptorSetLayout(layout gpu.DescriptorSetLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(layout)) {
		d.event("DestroyDescriptorSetLayout", uint64(layout))
	}
}

func (d *Device) AllocateDescriptorSet(layout gpu.DescriptorSetLayout) (gpu.DescriptorSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.SetLayouts[layout]; !ok {
		return 0, fmt.Errorf("allocate descriptor set: layout %d: %w", layout, gpu.ErrUnknownHandle)
	}
	if d.MaxDescriptorSets > 0 {
		n := 0
		for _, kind := range d.live {
			if kind == "set" {
				n++
			}
		}
		if n >= d.MaxDescriptorSets {
			return 0, fmt.Errorf("allocate descriptor set: %w", gpu.ErrResourceExhausted)
		}
	}
	h, err := d.alloc("set")
	if err != nil {
		return 0, err
	}
	d.Sets[gpu.DescriptorSet(h)] = &SetState{Layout: layout, Writes: make(map[uint32]gpu.DescriptorWrite)}
	d.event("AllocateDescriptorSet", h)
	return gpu.DescriptorSet(h), nil
}

func (d *Device) UpdateDescriptorSet(set gpu.DescriptorSet, writes []gpu.DescriptorWrite) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.Sets[set]
	if !ok || d.live[uint64(set)] == "" {
		return fmt.Errorf("update descriptor set %d: %w", set, gpu.ErrUnknownHandle)
	}
	for _, w := range writes {
		st.Writes[w.Binding] = w
	}
	d.event("UpdateDescriptorSet", uint64(set))
	return nil
}

func (d *Device) FreeDescriptorSet(set gpu.DescriptorSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(set)) {
		d.event("FreeDescriptorSet", uint64(set))
	}
}

func (d *Device) CreatePipelineLayout(label string, layouts []gpu.DescriptorSetLayout) (gpu.PipelineLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.alloc("pipelinelayout")
	if err != nil {
		return 0, err
	}
	d.event("CreatePipelineLayout", h)
	return gpu.PipelineLayout(h), nil
}

func (d *Device) DestroyPipelineLayout(layout gpu.PipelineLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(layout)) {
		d.event("DestroyPipelineLayout", uint64(layout))
	}
}

func (d *Device) CreateGraphicsPipeline(desc gpu.PipelineDescriptor) (gpu.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.alloc("pipeline")
	if err != nil {
		return 0, err
	}
	d.Pipelines[gpu.Pipeline(h)] = desc
	d.event("CreateGraphicsPipeline", h)
	return gpu.Pipeline(h), nil
}

func (d *Device) DestroyPipeline(pipeline gpu.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(pipeline)) {
		d.event("DestroyPipeline", uint64(pipeline))
	}
}

// SyncProvider

func (d *Device) CreateFence(signaled bool) (gpu.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.alloc("fence")
	if err != nil {
		return 0, err
	}
	d.Fences[gpu.Fence(h)] = signaled
	d.event("CreateFence", h)
	return gpu.Fence(h), nil
}

func (d *Device) WaitForFence(fence gpu.Fence, timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.event("WaitForFence", uint64(fence))
	signaled, ok := d.Fences[fence]
	if !ok {
		return fmt.Errorf("wait for fence %d: %w", fence, gpu.ErrUnknownHandle)
	}
	if !signaled {
		return fmt.Errorf("wait for fence %d after %s: %w", fence, timeout, gpu.ErrTimeout)
	}
	return nil
}

func (d *Device) ResetFence(fence gpu.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.Fences[fence]; !ok {
		return fmt.Errorf("reset fence %d: %w", fence, gpu.ErrUnknownHandle)
	}
	d.Fences[fence] = false
	d.event("ResetFence", uint64(fence))
	return nil
}

func (d *Device) DestroyFence(fence gpu.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(fence)) {
		d.event("DestroyFence", uint64(fence))
	}
}

func (d *Device) CreateSemaphore() (gpu.Semaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.alloc("semaphore")
	if err != nil {
		return 0, err
	}
	d.event("CreateSemaphore", h)
	return gpu.Semaphore(h), nil
}

func (d *Device) DestroySemaphore(semaphore gpu.Semaphore) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(semaphore)) {
		d.event("DestroySemaphore", uint64(semaphore))
	}
}

// CommandEncoder

func (d *Device) AllocateCommandBuffer() (gpu.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.alloc("commandbuffer")
	if err != nil {
		return 0, err
	}
	d.CommandBuffers[gpu.CommandBuffer(h)] = &CommandBufferState{}
	d.event("AllocateCommandBuffer", h)
	return gpu.CommandBuffer(h), nil
}

func (d *Device) FreeCommandBuffer(cb gpu.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(cb)) {
		d.event("FreeCommandBuffer", uint64(cb))
	}
}

func (d *Device) BeginCommandBuffer(cb gpu.CommandBuffer, usage gpu.CommandBufferUsage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.CommandBuffers[cb]
	if !ok {
		return fmt.Errorf("begin command buffer %d: %w", cb, gpu.ErrUnknownHandle)
	}
	if st.Recording {
		return fmt.Errorf("begin command buffer %d: already recording: %w", cb, gpu.ErrInvalidState)
	}
	st.Recording = true
	st.Usage = usage
	st.Commands = nil
	d.event("BeginCommandBuffer", uint64(cb))
	return nil
}

func (d *Device) EndCommandBuffer(cb gpu.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.CommandBuffers[cb]
	if !ok {
		return fmt.Errorf("end command buffer %d: %w", cb, gpu.ErrUnknownHandle)
	}
	if !st.Recording {
		return fmt.Errorf("end command buffer %d: not recording: %w", cb, gpu.ErrInvalidState)
	}
	st.Recording = false
	d.event("EndCommandBuffer", uint64(cb))
	return nil
}

func (d *Device) ResetCommandBuffer(cb gpu.CommandBuffer, flags gpu.CommandBufferReset) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.CommandBuffers[cb]
	if !ok {
		return fmt.Errorf("reset command buffer %d: %w", cb, gpu.ErrUnknownHandle)
	}
	st.Recording = false
	st.Commands = nil
	st.Resets++
	d.event("ResetCommandBuffer", uint64(cb))
	return nil
}

func (d *Device) record(cb gpu.CommandBuffer, c Command) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.CommandBuffers[cb]
	if !ok || !st.Recording {
		d.Misuse = append(d.Misuse, fmt.Sprintf("%s on command buffer %d outside recording", c.Op, cb))
		return
	}
	st.Commands = append(st.Commands, c)
}

func (d *Device) CmdPipelineBarrier(cb gpu.CommandBuffer, barriers ...gpu.ImageBarrier) {
	d.record(cb, Command{Op: "PipelineBarrier", Barriers: append([]gpu.ImageBarrier(nil), barriers...)})
}

func (d *Device) CmdCopyBufferToImage(cb gpu.CommandBuffer, src gpu.Buffer, dst gpu.Image, region gpu.BufferImageCopy) {
	d.record(cb, Command{Op: "CopyBufferToImage", Buffer: src, Image: dst, Copy: region})
}

func (d *Device) CmdBlitImage(cb gpu.CommandBuffer, image gpu.Image, blit gpu.ImageBlit, filter gpu.Filter) {
	d.record(cb, Command{Op: "BlitImage", Image: image, Blit: blit, Filter: filter})
}

func (d *Device) CmdBeginRenderPass(cb gpu.CommandBuffer, begin gpu.RenderPassBegin) {
	begin.ClearValues = append([]gpu.ClearValue(nil), begin.ClearValues...)
	d.record(cb, Command{Op: "BeginRenderPass", Begin: begin})
}

func (d *Device) CmdEndRenderPass(cb gpu.CommandBuffer) {
	d.record(cb, Command{Op: "EndRenderPass"})
}

func (d *Device) CmdBindPipeline(cb gpu.CommandBuffer, pipeline gpu.Pipeline) {
	d.record(cb, Command{Op: "BindPipeline", Pipeline: pipeline})
}

func (d *Device) CmdBindDescriptorSet(cb gpu.CommandBuffer, layout gpu.PipelineLayout, index uint32, set gpu.DescriptorSet, dynamicOffsets ...uint32) {
	d.record(cb, Command{
		Op:             "BindDescriptorSet",
		Layout:         layout,
		SetIndex:       index,
		Set:            set,
		DynamicOffsets: append([]uint32(nil), dynamicOffsets...),
	})
}

func (d *Device) CmdSetDepthBias(cb gpu.CommandBuffer, constant, clamp, slope float32) {
	d.record(cb, Command{Op: "SetDepthBias", DepthBias: [3]float32{constant, clamp, slope}})
}

func (d *Device) CmdBindVertexBuffer(cb gpu.CommandBuffer, binding uint32, buffer gpu.Buffer, offset uint64) {
	d.record(cb, Command{Op: "BindVertexBuffer", Buffer: buffer, Offset: offset})
}

func (d *Device) CmdBindIndexBuffer(cb gpu.CommandBuffer, buffer gpu.Buffer, offset uint64, indexType gpu.IndexType) {
	d.record(cb, Command{Op: "BindIndexBuffer", Buffer: buffer, Offset: offset})
}

func (d *Device) CmdDrawIndexed(cb gpu.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	d.record(cb, Command{Op: "DrawIndexed", IndexCount: indexCount})
}

// Queue

func (d *Device) AcquireNextImage(signal gpu.Semaphore, timeout time.Duration) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.event("AcquireNextImage", uint64(signal))
	if len(d.AcquireErrs) > 0 {
		err := d.AcquireErrs[0]
		d.AcquireErrs = d.AcquireErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	idx := d.acquires % uint32(len(d.swapViews))
	d.acquires++
	return idx, nil
}

func (d *Device) QueueSubmit(submit gpu.SubmitInfo, fence gpu.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.event("QueueSubmit", uint64(fence))
	if d.SubmitErr != nil {
		return d.SubmitErr
	}
	s := Submission{Info: submit, Fence: fence}
	for _, cb := range submit.CommandBuffers {
		st, ok := d.CommandBuffers[cb]
		if !ok {
			return fmt.Errorf("queue submit: command buffer %d: %w", cb, gpu.ErrUnknownHandle)
		}
		if st.Recording {
			d.Misuse = append(d.Misuse, fmt.Sprintf("command buffer %d submitted while recording", cb))
		}
		s.Commands = append(s.Commands, append([]Command(nil), st.Commands...))
	}
	d.Submits = append(d.Submits, s)
	if fence != 0 && !d.HangFences {
		d.Fences[fence] = true
	}
	return nil
}

func (d *Device) QueuePresent(present gpu.PresentInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.event("QueuePresent", uint64(present.ImageIndex))
	d.Presents = append(d.Presents, present)
	if len(d.PresentErrs) > 0 {
		err := d.PresentErrs[0]
		d.PresentErrs = d.PresentErrs[1:]
		return err
	}
	return nil
}

func (d *Device) QueueWaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.event("QueueWaitIdle", 0)
	return nil
}
