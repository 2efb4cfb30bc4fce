package pipeline

import "github.com/cogentcore/webgpu/wgpu"

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*settings)

// WithLabel sets the debug label of the pipeline. It defaults to the two shader keys joined by "+".
func WithLabel(label string) PipelineBuilderOption {
	return func(s *settings) {
		s.label = label
	}
}

// WithCullMode sets the cull mode for this pipeline. The default is wgpu.CullModeBack.
//
// Parameters:
//   - mode: the cull mode to use for this pipeline (e.g., wgpu.CullModeNone, wgpu.CullModeFront, wgpu.CullModeBack)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(s *settings) {
		s.cullMode = mode
	}
}

// WithTopology sets the primitive topology for this pipeline. Strip topologies use the index format
// of the pipeline's index type.
//
// Parameters:
//   - topology: the primitive topology to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the primitive topology for this pipeline
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(s *settings) {
		s.topology = topology
	}
}

// WithFrontFace sets the front face winding order for this pipeline.
//
// Parameters:
//   - frontFace: the front face to use for this pipeline (e.g., wgpu.FrontFaceCCW, wgpu.FrontFaceCW)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(s *settings) {
		s.frontFace = frontFace
	}
}

// WithWriteMask sets the color write mask for this pipeline.
//
// Parameters:
//   - writeMask: the color write mask to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color write mask for this pipeline
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(s *settings) {
		s.writeMask = writeMask
	}
}

// WithBlendState replaces the blend state of the color target. A nil state disables blending.
//
// Parameters:
//   - blend: the blend state to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state for this pipeline
func WithBlendState(blend *wgpu.BlendState) PipelineBuilderOption {
	return func(s *settings) {
		s.blend = blend
	}
}
