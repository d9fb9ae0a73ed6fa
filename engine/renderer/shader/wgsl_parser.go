package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// wgslVertexFormatMap maps WGSL vertex attribute types to their vertex format and byte size
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"vec2f":     {gpu.FormatR32G32Float, 8},
	"vec2<f32>": {gpu.FormatR32G32Float, 8},
	"vec3f":     {gpu.FormatR32G32B32Float, 12},
	"vec3<f32>": {gpu.FormatR32G32B32Float, 12},
	"vec4f":     {gpu.FormatR32G32B32A32Float, 16},
	"vec4<f32>": {gpu.FormatR32G32B32A32Float, 16},
}

// wgslTextureViewMap maps the sampled texture types the engine binds to their view type
var wgslTextureViewMap = map[string]gpu.ImageViewType{
	"texture_2d":             gpu.ImageViewType2D,
	"texture_2d_array":       gpu.ImageViewType2DArray,
	"texture_cube":           gpu.ImageViewTypeCube,
	"texture_depth_2d":       gpu.ImageViewType2D,
	"texture_depth_2d_array": gpu.ImageViewType2DArray,
	"texture_depth_cube":     gpu.ImageViewTypeCube,
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field: optional attributes, name, colon, type.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`@vertex\s+fn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`@fragment\s+fn\s+(\w+)`)

	// vertexInputRegex captures the parameter type of a vertex entry point
	vertexInputRegex = regexp.MustCompile(`@vertex\s+fn\s+(\w+)\s*\(\s*\w+\s*:\s*(\w+)\s*\)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name and type
	// from declarations like: @group(0) @binding(0) var<uniform> view_proj: ViewProj;
	// or handle types: @group(0) @binding(2) var diffuse_texture: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseVertexLayouts builds the vertex layout consumed by each vertex entry point, keyed by
// entry point name. Entry points whose input is not a pure @location struct are skipped.
//
// Parameters:
//   - source: the processed WGSL source
//
// Returns:
//   - map[string]gpu.VertexLayout: vertex layouts keyed by entry point
func parseVertexLayouts(source string) map[string]gpu.VertexLayout {
	cleaned := stripComments(source)
	structs := make(map[string]parsedStruct)
	for _, ps := range parseStructBlocks(cleaned) {
		structs[ps.name] = ps
	}

	result := make(map[string]gpu.VertexLayout)
	for _, match := range vertexInputRegex.FindAllStringSubmatch(cleaned, -1) {
		ps, ok := structs[match[2]]
		if !ok || !isVertexInputStruct(ps) {
			continue
		}
		if layout, ok := buildVertexLayout(ps); ok {
			result[match[1]] = layout
		}
	}
	return result
}

// parseBindings extracts every @group/@binding declaration the engine can bind and returns
// them grouped by group index, sorted by binding. Every binding is visible to stages; WGSL
// modules here hold the vertex and fragment entry points of one pipeline, so the module's
// stages are a sound visibility for all of its resources.
//
// Parameters:
//   - source: the processed WGSL source
//   - stages: the shader stages present in the module
//   - declarations: the group annotations of the pre-processor, which mark dynamic uniforms
//
// Returns:
//   - map[int][]gpu.DescriptorBinding: bindings keyed by group index
//   - map[int]map[int]string: variable names keyed by group and binding index
func parseBindings(source string, stages gpu.ShaderStage, declarations []Annotation) (map[int][]gpu.DescriptorBinding, map[int]map[int]string) {
	dynamic := make(map[[2]int]bool)
	for _, d := range declarations {
		if d.Dynamic() {
			dynamic[[2]int{*d.Group, *d.Binding}] = true
		}
	}

	groups := make(map[int][]gpu.DescriptorBinding)
	varNames := make(map[int]map[int]string)
	for _, match := range bindGroupDeclRegex.FindAllStringSubmatch(stripComments(source), -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		addressSpace := strings.TrimSpace(match[3])
		varName := strings.TrimSpace(match[4])
		typeName := strings.TrimSpace(match[5])

		entry, ok := classifyResource(uint32(binding), stages, addressSpace, typeName, dynamic[[2]int{group, binding}])
		if !ok {
			continue
		}
		groups[group] = append(groups[group], entry)
		if varNames[group] == nil {
			varNames[group] = make(map[int]string)
		}
		varNames[group][binding] = varName
	}

	for _, entries := range groups {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
	}
	return groups, varNames
}

// parseEntryPoints returns the names of every entry point matching re, in source order.
func parseEntryPoints(source string, re *regexp.Regexp) []string {
	var names []string
	for _, match := range re.FindAllStringSubmatch(stripComments(source), -1) {
		names = append(names, match[1])
	}
	return names
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{name: match[1], fields: parseStructFields(match[2])})
	}
	return structs
}

// parseStructFields parses the body of a struct block into individual fields
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field := parsedField{location: -1, isBuiltin: builtinRegex.MatchString(line)}
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}
	return fields
}
