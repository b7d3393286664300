package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexStage sets the vertex stage and its vertex buffer layouts for this pipeline.
//
// Parameters:
//   - module: the vertex shader module
//   - entryPoint: the vertex entry point
//   - buffers: the vertex buffer layouts, indexed by input slot
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex stage for this pipeline
func WithVertexStage(module *wgpu.ShaderModule, entryPoint string, buffers []wgpu.VertexBufferLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertex = &Stage{Module: module, EntryPoint: entryPoint}
		p.vertexBuffers = buffers
	}
}

// WithFragmentStage sets the fragment stage for this pipeline.
//
// Parameters:
//   - module: the fragment shader module
//   - entryPoint: the fragment entry point
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment stage for this pipeline
func WithFragmentStage(module *wgpu.ShaderModule, entryPoint string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragment = &Stage{Module: module, EntryPoint: entryPoint}
	}
}

// WithComputeStage sets the compute stage for this pipeline.
//
// Parameters:
//   - module: the compute shader module
//   - entryPoint: the compute entry point
//
// Returns:
//   - PipelineBuilderOption: a function that sets the compute stage for this pipeline
func WithComputeStage(module *wgpu.ShaderModule, entryPoint string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.compute = &Stage{Module: module, EntryPoint: entryPoint}
	}
}

// WithLayoutEntries merges bind group layout entries into one group of this pipeline.
// Entries already present for the same binding gain the incoming visibility.
//
// Parameters:
//   - group: the bind group index
//   - entries: the layout entries to merge
//
// Returns:
//   - PipelineBuilderOption: a function that merges the entries into this pipeline's layout
func WithLayoutEntries(group uint32, entries ...wgpu.BindGroupLayoutEntry) PipelineBuilderOption {
	return func(p *pipeline) {
		p.layouts[group] = MergeLayoutEntries(p.layouts[group], entries...)
	}
}

// WithPrimitiveState sets the primitive assembly and rasterizer state for this pipeline.
//
// Parameters:
//   - state: the primitive state (topology, front face, cull mode)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the primitive state for this pipeline
func WithPrimitiveState(state wgpu.PrimitiveState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.primitive = state
	}
}

// WithDepthStencilState sets the depth-stencil state for this pipeline. Nil disables depth testing.
//
// Parameters:
//   - state: the depth-stencil state
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth-stencil state for this pipeline
func WithDepthStencilState(state *wgpu.DepthStencilState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthStencil = state
	}
}

// WithBlendState sets the blend state for this pipeline. Nil disables blending.
//
// Parameters:
//   - blendState: the blend state to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state for this pipeline
func WithBlendState(blendState *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendState = blendState
	}
}

// WithWriteMask sets the color write mask for this pipeline.
//
// Parameters:
//   - writeMask: the color write mask to use for this pipeline (e.g., wgpu.ColorWriteMaskAll)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color write mask for this pipeline
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = writeMask
	}
}

// WithColorFormat sets the format of the color target for this pipeline.
//
// Parameters:
//   - format: the color target format
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color format for this pipeline
func WithColorFormat(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorFormat = format
	}
}

// WithSampleCount sets the multisample count for this pipeline.
//
// Parameters:
//   - count: the sample count (1 disables multisampling)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the sample count for this pipeline
func WithSampleCount(count uint32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.sampleCount = count
	}
}
