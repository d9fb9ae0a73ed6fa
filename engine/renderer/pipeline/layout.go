package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/renderer/shader"
)

// layout is the implementation of the Layout interface.
type layout struct {
	dev        gpu.Device
	setLayouts []gpu.DescriptorSetLayout
	bindings   [][]gpu.DescriptorBinding
	handle     gpu.PipelineLayout
}

// Layout owns the descriptor set layouts of a shader, one per group, and the pipeline layout combining them.
type Layout interface {
	// Handle returns the pipeline layout.
	Handle() gpu.PipelineLayout

	// SetLayout returns the descriptor set layout of a group.
	SetLayout(group int) gpu.DescriptorSetLayout

	// Bindings returns the bindings the set layout of a group was created from.
	Bindings(group int) []gpu.DescriptorBinding

	// Groups returns the number of set layouts.
	Groups() int

	// Destroy releases the pipeline layout and the set layouts. Safe to call twice.
	Destroy()
}

var _ Layout = &layout{}

// NewLayout creates the set layouts of every group a shader declares and the pipeline layout over them.
// Groups without bindings get an empty set layout so group indices stay contiguous.
//
// Parameters:
//   - dev: the device
//   - label: the debug label prefix
//   - s: the shader whose bindings define the layouts
//
// Returns:
//   - Layout: the layout
//   - error: the creation failure; objects created before it are released
func NewLayout(dev gpu.Device, label string, s shader.Shader) (Layout, error) {
	l := &layout{dev: dev}
	for g := 0; g < s.Groups(); g++ {
		bindings := s.Bindings(g)
		sl, err := dev.CreateDescriptorSetLayout(fmt.Sprintf("%s group %d", label, g), bindings)
		if err != nil {
			l.Destroy()
			return nil, fmt.Errorf("layout %s: %w", label, err)
		}
		l.setLayouts = append(l.setLayouts, sl)
		l.bindings = append(l.bindings, bindings)
	}

	handle, err := dev.CreatePipelineLayout(label, l.setLayouts)
	if err != nil {
		l.Destroy()
		return nil, fmt.Errorf("layout %s: %w", label, err)
	}
	l.handle = handle
	return l, nil
}

func (l *layout) Handle() gpu.PipelineLayout { return l.handle }

func (l *layout) SetLayout(group int) gpu.DescriptorSetLayout {
	if group < 0 || group >= len(l.setLayouts) {
		return 0
	}
	return l.setLayouts[group]
}

func (l *layout) Bindings(group int) []gpu.DescriptorBinding {
	if group < 0 || group >= len(l.bindings) {
		return nil
	}
	return l.bindings[group]
}

func (l *layout) Groups() int { return len(l.setLayouts) }

func (l *layout) Destroy() {
	if l.handle != 0 {
		l.dev.DestroyPipelineLayout(l.handle)
		l.handle = 0
	}
	for _, sl := range l.setLayouts {
		l.dev.DestroyDescriptorSetLayout(sl)
	}
	l.setLayouts = nil
	l.bindings = nil
}
