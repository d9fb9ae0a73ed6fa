// pre_processor.go implements the WGSL pre-processor. It replaces @oxy: annotations with
// registered struct sources or generated uniform declarations and collects the group
// declarations so the binding layout can tell dynamic uniforms from fixed ones.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-vk/engine/camera"
	"github.com/Carmen-Shannon/oxy-vk/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vk/engine/light"
	"github.com/Carmen-Shannon/oxy-vk/engine/model"
	"github.com/Carmen-Shannon/oxy-vk/engine/shadow"
)

// registryEntry pairs an embedded WGSL source with the type name @oxy:group declarations use.
type registryEntry struct {
	Source string
	Type   string
}

// targetSource is the clip-space helper block. The engine's matrices produce Y-down clip space
// with depth in [-1,1]; to_target remaps depth to [0,1] and, on Y-up rasterizers, flips Y back.
const targetSource = `const TARGET_Y: f32 = %s;

fn to_target(clip: vec4<f32>) -> vec4<f32> {
    return vec4<f32>(clip.x, TARGET_Y * clip.y, (clip.z + clip.w) * 0.5, clip.w);
}

fn target_depth(clip: vec4<f32>) -> vec3<f32> {
    let ndc = clip.xyz / clip.w;
    return vec3<f32>(ndc.xy, ndc.z * 0.5 + 0.5);
}`

type preProcessor struct {
	registry     map[AnnotationArg]registryEntry
	declarations []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Process replaces every annotation in source. Include annotations are replaced with the
	// registered source, group annotations with a generated var<uniform> declaration.
	// The declarations list is reset at the start of every call.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the processed source
	//   - error: when an annotation is malformed or references an unknown key
	Process(source string) (string, error)

	// Declarations returns the group annotations of the last Process call in source order.
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a pre-processor for a shader format. The format selects the
// clip-space conventions spliced in by //@oxy:include target.
//
// Parameters:
//   - format: the shader format the processed source will be compiled for
//
// Returns:
//   - PreProcessor: the pre-processor
func NewPreProcessor(format gpu.ShaderFormat) PreProcessor {
	ySign := "1.0"
	if format == gpu.ShaderFormatWGSL {
		ySign = "-1.0"
	}
	return &preProcessor{
		registry: map[AnnotationArg]registryEntry{
			AnnotationArgViewProj:       {Source: camera.GPUViewProjSource, Type: "ViewProj"},
			AnnotationArgVertex:         {Source: model.GPUVertexSource, Type: "VertexInput"},
			AnnotationArgMesh:           {Source: model.GPUMeshDataSource, Type: "Mesh"},
			AnnotationArgLight:          {Source: light.GPULightSource, Type: "Light"},
			AnnotationArgLights:         {Source: light.GPULightsSource, Type: "Lights"},
			AnnotationArgCascadeInfo:    {Source: shadow.GPUCascadeInfoSource, Type: "CascadeInfo"},
			AnnotationArgSpotShadowInfo: {Source: shadow.GPUSpotShadowInfoSource, Type: "SpotShadowInfo"},
			AnnotationArgTarget:         {Source: fmt.Sprintf(targetSource, ySign)},
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	included := make(map[AnnotationArg]bool)

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			entry, ok := p.registry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", i+1, a.Args[0])
			}
			// a second include of the same key would redeclare the struct
			if included[a.Args[0]] {
				continue
			}
			included[a.Args[0]] = true
			out = append(out, strings.TrimRight(entry.Source, "\n"))
		case AnnotationTypeBindingGroup:
			entry, ok := p.registry[a.Args[2]]
			if !ok || entry.Type == "" {
				return "", fmt.Errorf("line %d: unknown @oxy:group type %q", i+1, a.Args[2])
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) var<uniform> %s: %s;", *a.Group, *a.Binding, a.Args[1], entry.Type))
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
