package shader

import "github.com/Carmen-Shannon/oxy-vk/engine/gpu"

// vertexFormatInfo holds the vertex format of a WGSL type and its byte size for offset calculation
type vertexFormatInfo struct {
	format gpu.Format
	size   uint32
}

// StructLayout is the byte size and alignment of a WGSL type under the WGSL layout rules.
type StructLayout struct {
	Size  uint64
	Align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}
