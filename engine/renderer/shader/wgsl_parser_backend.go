package shader

import (
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
)

// wgslPrimitiveLayoutMap maps WGSL scalar, vector and matrix type names to their byte size
// and alignment.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]StructLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"bool": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},
	"vec2<i32>": {8, 8},
	"vec3<i32>": {12, 16},
	"vec4<i32>": {16, 16},
	"vec2<u32>": {8, 8},
	"vec3<u32>": {12, 16},
	"vec4<u32>": {16, 16},

	// matCxR<f32>: C columns of vecR<f32>, column stride = roundUp(align(vecR), size(vecR))
	"mat2x2<f32>": {16, 8},
	"mat3x3<f32>": {48, 16},
	"mat4x4<f32>": {64, 16},
}

// resolveTypeLayout resolves a WGSL type name to its size and alignment using primitives
// and previously computed struct layouts. Only fixed-size arrays resolve; uniform blocks
// never hold runtime-sized arrays.
//
// Parameters:
//   - typeName: the WGSL type name, e.g. "f32", "Light", "array<Light, 4>"
//   - knownTypes: already resolved struct layouts
//
// Returns:
//   - StructLayout: the resolved layout
//   - bool: false for unknown types
func resolveTypeLayout(typeName string, knownTypes map[string]StructLayout) (StructLayout, bool) {
	if layout, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return layout, true
	}
	if layout, ok := knownTypes[typeName]; ok {
		return layout, true
	}

	inner, ok := strings.CutPrefix(typeName, "array<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return StructLayout{}, false
	}
	parts := strings.SplitN(strings.TrimSuffix(inner, ">"), ",", 2)
	if len(parts) != 2 {
		return StructLayout{}, false
	}
	elem, ok := resolveTypeLayout(strings.TrimSpace(parts[0]), knownTypes)
	if !ok {
		return StructLayout{}, false
	}
	count, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return StructLayout{}, false
	}
	stride := common.AlignUp(elem.Size, elem.Align)
	return StructLayout{Size: count * stride, Align: elem.Align}, true
}

// computeStructLayout places each field at the next offset aligned for its type and rounds
// the total up to the largest field alignment. Builtin fields are not part of a buffer and are skipped.
//
// Parameters:
//   - ps: the parsed struct
//   - knownTypes: already resolved struct layouts
//
// Returns:
//   - StructLayout: the computed layout
//   - bool: false when a field type cannot be resolved yet
func computeStructLayout(ps parsedStruct, knownTypes map[string]StructLayout) (StructLayout, bool) {
	offset := uint64(0)
	maxAlign := uint64(1)

	for _, field := range ps.fields {
		if field.isBuiltin {
			continue
		}
		fieldLayout, ok := resolveTypeLayout(field.typeName, knownTypes)
		if !ok {
			return StructLayout{}, false
		}
		offset = common.AlignUp(offset, fieldLayout.Align) + fieldLayout.Size
		maxAlign = max(maxAlign, fieldLayout.Align)
	}

	return StructLayout{Size: common.AlignUp(offset, maxAlign), Align: maxAlign}, true
}

// computeStructSizes resolves every struct, repeating until no more progress is made so that
// structs may reference structs declared after them.
//
// Parameters:
//   - structs: all parsed struct blocks
//
// Returns:
//   - map[string]StructLayout: layouts keyed by struct name
func computeStructSizes(structs []parsedStruct) map[string]StructLayout {
	resolved := make(map[string]StructLayout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)

	for len(remaining) > 0 {
		progress := false
		next := remaining[:0]
		for _, ps := range remaining {
			if layout, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = layout
				progress = true
			} else {
				next = append(next, ps)
			}
		}
		remaining = next
		if !progress {
			break
		}
	}
	return resolved
}

// classifyResource builds the descriptor binding for one resource declaration.
//
// Parameters:
//   - binding: the @binding index
//   - stages: the stages the binding is visible to
//   - addressSpace: the var<> qualifier, empty for handle types
//   - typeName: the WGSL type, e.g. "ViewProj", "texture_2d<f32>", "sampler_comparison"
//   - dynamic: whether the uniform takes a dynamic offset
//
// Returns:
//   - gpu.DescriptorBinding: the binding
//   - bool: false for resource kinds the engine does not bind
func classifyResource(binding uint32, stages gpu.ShaderStage, addressSpace, typeName string, dynamic bool) (gpu.DescriptorBinding, bool) {
	entry := gpu.DescriptorBinding{Binding: binding, Stages: stages}

	if addressSpace != "" {
		if addressSpace != "uniform" {
			return entry, false
		}
		entry.Type = gpu.DescriptorTypeUniformBuffer
		if dynamic {
			entry.Type = gpu.DescriptorTypeUniformBufferDynamic
		}
		return entry, true
	}

	switch {
	case typeName == "sampler":
		entry.Type = gpu.DescriptorTypeSampler
	case typeName == "sampler_comparison":
		entry.Type = gpu.DescriptorTypeSampler
		entry.Comparison = true
	case strings.HasPrefix(typeName, "texture_"):
		base, _ := splitTypeParams(typeName)
		view, ok := wgslTextureViewMap[base]
		if !ok {
			return entry, false
		}
		entry.Type = gpu.DescriptorTypeSampledImage
		entry.ViewType = view
		entry.DepthTexture = strings.HasPrefix(base, "texture_depth_")
	default:
		return entry, false
	}
	return entry, true
}

// splitTypeParams splits a WGSL parameterized type into its base name and parameter string.
// For "texture_2d<f32>" returns ("texture_2d", "f32").
//
// Parameters:
//   - typeName: the WGSL type string to split
//
// Returns:
//   - base: the type name before the first angle bracket
//   - params: the content between angle brackets, or empty if none
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

// stripComments removes line comments and nested block comments from WGSL source.
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i++
				continue
			}
			if source[i] == '*' && source[i+1] == '/' && depth > 0 {
				depth--
				i++
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// isVertexInputStruct reports whether the struct has @location fields and no @builtin field,
// which separates vertex inputs from vertex outputs carrying @builtin(position).
func isVertexInputStruct(ps parsedStruct) bool {
	hasLocation := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		if f.location >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}

// buildVertexLayout converts a vertex input struct into a tightly packed per-vertex layout.
//
// Parameters:
//   - ps: the vertex input struct
//
// Returns:
//   - gpu.VertexLayout: the layout
//   - bool: false if a field type has no vertex format
func buildVertexLayout(ps parsedStruct) (gpu.VertexLayout, bool) {
	attrs := make([]gpu.VertexAttribute, 0, len(ps.fields))
	var offset uint32
	for _, f := range ps.fields {
		info, ok := wgslVertexFormatMap[f.typeName]
		if !ok {
			return gpu.VertexLayout{}, false
		}
		attrs = append(attrs, gpu.VertexAttribute{
			Location: uint32(f.location),
			Format:   info.format,
			Offset:   offset,
		})
		offset += info.size
	}
	return gpu.VertexLayout{Stride: offset, Attributes: attrs}, true
}

// splitAtTopLevelCommas splits at commas outside angle brackets, so array<T, N> stays whole.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
