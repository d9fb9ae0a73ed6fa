// annotations.go defines the @oxy: comment annotations understood by the pre-processor.
// Annotations are single-line WGSL comments that either splice a registered struct source
// into the shader or declare a uniform binding whose WGSL type comes from the registry.
package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// annotationPrefix marks an annotation inside a "//" comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source registered under a key.
	//
	// Syntax: //@oxy:include <key>
	//
	// Example: //@oxy:include view_proj
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a uniform @group/@binding declaration and records it
	// in the pre-processor's declarations, which decide whether the binding takes a dynamic offset.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <key>
	//
	// Example: //@oxy:group 0 1 uniform_dynamic mesh mesh
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// AnnotationArg is an argument of an annotation: a registry key, an address space or a variable name.
type AnnotationArg string

// Registry keys. Each names a WGSL source embedded beside the Go type it mirrors.
const (
	AnnotationArgViewProj       AnnotationArg = "view_proj"
	AnnotationArgVertex         AnnotationArg = "vertex"
	AnnotationArgMesh           AnnotationArg = "mesh"
	AnnotationArgLight          AnnotationArg = "light"
	AnnotationArgLights         AnnotationArg = "lights"
	AnnotationArgCascadeInfo    AnnotationArg = "cascade_info"
	AnnotationArgSpotShadowInfo AnnotationArg = "spot_shadow_info"

	// AnnotationArgTarget is generated per shader format: clip-space conversion helpers
	// (to_target, target_depth) that map the engine's Y-down, [-1,1]-depth matrices
	// onto the backend's rasterizer conventions.
	AnnotationArgTarget AnnotationArg = "target"
)

// Address spaces accepted by @oxy:group.
const (
	annotationArgUniform        AnnotationArg = "uniform"
	annotationArgUniformDynamic AnnotationArg = "uniform_dynamic"
)

// Annotation is one parsed @oxy: line.
type Annotation struct {
	Type AnnotationType

	// Args holds the arguments after the group and binding indices:
	//   - include: [0] = registry key
	//   - group:   [0] = address space, [1] = var name, [2] = registry key
	Args []AnnotationArg

	// Line is the 1-based source line, used in errors.
	Line int

	// Group and Binding are set for group annotations only.
	Group   *int
	Binding *int
}

// Dynamic reports whether a group annotation declares a dynamic-offset uniform.
func (a Annotation) Dynamic() bool {
	return a.Type == AnnotationTypeBindingGroup && a.Args[0] == annotationArgUniformDynamic
}

// parseAnnotation parses one source line. It returns nil without error when the line is not an annotation.
//
// Parameters:
//   - line: the raw source line
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil
//   - error: when the line is a malformed annotation
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	rest, ok := strings.CutPrefix(trimmed, "//")
	if !ok {
		return nil, nil
	}
	rest, ok = strings.CutPrefix(strings.TrimSpace(rest), annotationPrefix)
	if !ok {
		return nil, nil
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil, fmt.Errorf("line %d: empty annotation", lineNum)
	}

	a := &Annotation{Type: AnnotationType(fields[0]), Line: lineNum}
	args := fields[1:]
	switch a.Type {
	case annotationTypeInclude:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: @oxy:include takes 1 argument, got %d", lineNum, len(args))
		}
		a.Args = []AnnotationArg{AnnotationArg(args[0])}
	case AnnotationTypeBindingGroup:
		if len(args) != 5 {
			return nil, fmt.Errorf("line %d: @oxy:group takes 5 arguments, got %d", lineNum, len(args))
		}
		group, err := strconv.Atoi(args[0])
		if err != nil || group < 0 {
			return nil, fmt.Errorf("line %d: invalid group index %q", lineNum, args[0])
		}
		binding, err := strconv.Atoi(args[1])
		if err != nil || binding < 0 {
			return nil, fmt.Errorf("line %d: invalid binding index %q", lineNum, args[1])
		}
		space := AnnotationArg(args[2])
		if space != annotationArgUniform && space != annotationArgUniformDynamic {
			return nil, fmt.Errorf("line %d: unknown address space %q", lineNum, args[2])
		}
		a.Group, a.Binding = &group, &binding
		a.Args = []AnnotationArg{space, AnnotationArg(args[3]), AnnotationArg(args[4])}
	default:
		return nil, fmt.Errorf("line %d: unknown annotation type %q", lineNum, fields[0])
	}
	return a, nil
}
