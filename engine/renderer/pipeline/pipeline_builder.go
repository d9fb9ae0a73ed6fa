package pipeline

import "github.com/Carmen-Shannon/oxy-vk/engine/gpu"

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithEntryPoints sets the vertex and fragment entry points. An empty fragment entry point
// makes the pipeline depth-only.
//
// Parameters:
//   - vertex: the vertex entry point
//   - fragment: the fragment entry point, or "" for none
//
// Returns:
//   - PipelineBuilderOption: a function that sets the entry points
func WithEntryPoints(vertex, fragment string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexEntry = vertex
		p.fragmentEntry = fragment
	}
}

// WithVertexLayouts overrides the vertex buffer layouts parsed from the shader.
//
// Parameters:
//   - layouts: the vertex buffer layouts, one per binding
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex layouts
func WithVertexLayouts(layouts ...gpu.VertexLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexLayouts = layouts
	}
}

// WithDepthTest enables or disables depth testing.
func WithDepthTest(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTest = enabled
	}
}

// WithDepthWrite enables or disables depth writes.
func WithDepthWrite(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWrite = enabled
	}
}

// WithDepthCompare sets the depth comparison function.
func WithDepthCompare(op gpu.CompareOp) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthCompare = op
	}
}

// WithDepthBias enables polygon offset.
//
// Parameters:
//   - constant: the constant bias factor
//   - clamp: the maximum bias
//   - slope: the slope-scaled bias factor
//   - dynamic: whether the values are set per draw with CmdSetDepthBias
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth bias
func WithDepthBias(constant, clamp, slope float32, dynamic bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthBias = gpu.DepthBias{
			Enabled:  true,
			Dynamic:  dynamic,
			Constant: constant,
			Clamp:    clamp,
			Slope:    slope,
		}
	}
}

// WithBlend enables or disables premultiplied alpha blending (src ONE, dst ONE_MINUS_SRC_ALPHA).
func WithBlend(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendEnabled = enabled
	}
}

// WithCullMode sets the face culling mode.
func WithCullMode(mode gpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology.
func WithTopology(topology gpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the winding order of front faces.
func WithFrontFace(face gpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = face
	}
}

// WithSamples sets the rasterization sample count. Values below one are treated as one.
func WithSamples(samples uint32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.samples = max(samples, 1)
	}
}
