// Package shader pre-processes the engine's WGSL sources, derives their vertex and binding
// layouts, and turns them into device shader modules. WGSL is handed to WebGPU devices as is
// and compiled to SPIR-V with naga for Vulkan devices.
package shader

import (
	"embed"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/gogpu/naga"
)

//go:embed assets/*.wgsl
var assets embed.FS

// Keys of the engine's built-in shaders.
const (
	KeyMesh   = "mesh"
	KeySkybox = "skybox"
	KeyShadow = "shadow"
)

// Entry points shared by the built-in shaders.
const (
	EntryVertex        = "vs_main"
	EntryFragment      = "fs_main"
	EntryShadowCascade = "vs_cascade"
	EntryShadowSpot    = "vs_spot"
)

// shader is the implementation of the Shader interface.
type shader struct {
	key             string
	format          gpu.ShaderFormat
	source          string
	vertexEntries   []string
	fragmentEntries []string
	vertexLayouts   map[string]gpu.VertexLayout
	bindings        map[int][]gpu.DescriptorBinding
	bindingVarNames map[int]map[int]string
	structLayouts   map[string]StructLayout
	declarations    []Annotation

	dev    gpu.Device
	module gpu.ShaderModule
}

// Shader is a pre-processed WGSL module with the layouts parsed from it.
type Shader interface {
	// Key returns the shader's identifier, used as the module's debug label.
	Key() string

	// Source returns the processed WGSL source.
	Source() string

	// HasEntryPoint reports whether the module declares a vertex or fragment entry point with this name.
	HasEntryPoint(name string) bool

	// VertexLayout returns the vertex buffer layout read by a vertex entry point.
	//
	// Parameters:
	//   - entryPoint: the vertex entry point
	//
	// Returns:
	//   - gpu.VertexLayout: the layout
	//   - bool: false if the entry point is unknown or takes no vertex input struct
	VertexLayout(entryPoint string) (gpu.VertexLayout, bool)

	// Bindings returns the descriptor bindings of a group sorted by binding index.
	Bindings(group int) []gpu.DescriptorBinding

	// Groups returns the number of groups, one past the highest group index used.
	Groups() int

	// BindingVarName returns the variable declared at a group and binding, or "".
	BindingVarName(group, binding int) string

	// StructLayout returns the WGSL size and alignment of a struct declared in the module.
	StructLayout(name string) (StructLayout, bool)

	// Declarations returns the @oxy:group annotations of the source.
	Declarations() []Annotation

	// Load creates the device module, compiling to SPIR-V when the device wants it.
	// Loading an already loaded shader returns the existing module.
	//
	// Parameters:
	//   - dev: the device to create the module on
	//
	// Returns:
	//   - gpu.ShaderModule: the module
	//   - error: the compilation or creation failure, wrapping gpu.ErrSetupFailure
	Load(dev gpu.Device) (gpu.ShaderModule, error)

	// Module returns the loaded module, or the null handle.
	Module() gpu.ShaderModule

	// Destroy releases the module. Safe to call twice.
	Destroy()
}

var _ Shader = &shader{}

// NewShader pre-processes WGSL source and parses its layouts.
//
// Parameters:
//   - key: the shader identifier
//   - source: the raw WGSL source with @oxy: annotations
//   - format: the shader format of the device the shader will be loaded on
//
// Returns:
//   - Shader: the shader
//   - error: when pre-processing fails or the module has no vertex entry point
func NewShader(key, source string, format gpu.ShaderFormat) (Shader, error) {
	pp := NewPreProcessor(format)
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}

	s := &shader{
		key:             key,
		format:          format,
		source:          processed,
		vertexEntries:   parseEntryPoints(processed, vertexEntryRegex),
		fragmentEntries: parseEntryPoints(processed, fragmentEntryRegex),
		vertexLayouts:   parseVertexLayouts(processed),
		structLayouts:   computeStructSizes(parseStructBlocks(stripComments(processed))),
		declarations:    slices.Clone(pp.Declarations()),
	}
	if len(s.vertexEntries) == 0 {
		return nil, fmt.Errorf("shader %s: no @vertex entry point", key)
	}

	stages := gpu.ShaderStageVertex
	if len(s.fragmentEntries) > 0 {
		stages |= gpu.ShaderStageFragment
	}
	s.bindings, s.bindingVarNames = parseBindings(processed, stages, s.declarations)
	return s, nil
}

// Builtin creates one of the engine's built-in shaders by key.
//
// Parameters:
//   - key: KeyMesh, KeySkybox or KeyShadow
//   - format: the shader format of the target device
//
// Returns:
//   - Shader: the shader
//   - error: when the key is unknown or processing fails
func Builtin(key string, format gpu.ShaderFormat) (Shader, error) {
	data, err := assets.ReadFile("assets/" + key + ".wgsl")
	if err != nil {
		return nil, fmt.Errorf("shader %s: unknown built-in shader: %w", key, err)
	}
	return NewShader(key, string(data), format)
}

func (s *shader) Key() string    { return s.key }
func (s *shader) Source() string { return s.source }

func (s *shader) HasEntryPoint(name string) bool {
	return slices.Contains(s.vertexEntries, name) || slices.Contains(s.fragmentEntries, name)
}

func (s *shader) VertexLayout(entryPoint string) (gpu.VertexLayout, bool) {
	l, ok := s.vertexLayouts[entryPoint]
	return l, ok
}

func (s *shader) Bindings(group int) []gpu.DescriptorBinding {
	return s.bindings[group]
}

func (s *shader) Groups() int {
	n := 0
	for g := range s.bindings {
		n = max(n, g+1)
	}
	return n
}

func (s *shader) BindingVarName(group, binding int) string {
	return s.bindingVarNames[group][binding]
}

func (s *shader) StructLayout(name string) (StructLayout, bool) {
	l, ok := s.structLayouts[name]
	return l, ok
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}

func (s *shader) Load(dev gpu.Device) (gpu.ShaderModule, error) {
	if s.module != 0 {
		return s.module, nil
	}
	if dev.ShaderFormat() != s.format {
		return 0, fmt.Errorf("shader %s: processed for format %d, device wants %d: %w", s.key, s.format, dev.ShaderFormat(), gpu.ErrSetupFailure)
	}

	code := []byte(s.source)
	if s.format == gpu.ShaderFormatSPIRV {
		spirv, err := naga.Compile(s.source)
		if err != nil {
			return 0, fmt.Errorf("shader %s: compile to SPIR-V: %v: %w", s.key, err, gpu.ErrSetupFailure)
		}
		code = spirv
	}

	module, err := dev.CreateShaderModule(s.key, code)
	if err != nil {
		return 0, fmt.Errorf("shader %s: %w", s.key, err)
	}
	s.dev, s.module = dev, module
	return module, nil
}

func (s *shader) Module() gpu.ShaderModule { return s.module }

func (s *shader) Destroy() {
	if s.module == 0 {
		return
	}
	s.dev.DestroyShaderModule(s.module)
	s.module = 0
	s.dev = nil
}
