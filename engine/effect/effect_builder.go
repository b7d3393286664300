package effect

import (
	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Descriptor names the source file of each stage an effect compiles and the fixed-function
// state a graphics effect emits. Compute effects only read the compute stage, the profile
// and the label.
type Descriptor struct {
	Label   string
	Profile shader.TargetProfile

	// Shaders maps a single stage to its source path.
	Shaders map[shader.Stage]string

	Rasterizer   wgpu.PrimitiveState
	DepthStencil *wgpu.DepthStencilState
	Blend        *wgpu.BlendState
}

// DescriptorOption is a functional option used to configure a Descriptor during construction.
type DescriptorOption func(*Descriptor)

// NewDescriptor creates an effect descriptor. The defaults are shader model 5.1, a triangle
// list with counter-clockwise front faces and no culling, and no depth-stencil or blend state.
//
// Parameters:
//   - opts: a variadic list of DescriptorOption functions to configure the descriptor
//
// Returns:
//   - Descriptor: the configured descriptor
func NewDescriptor(opts ...DescriptorOption) Descriptor {
	d := Descriptor{
		Profile: shader.DefaultTargetProfile,
		Shaders: make(map[shader.Stage]string),
		Rasterizer: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithLabel sets the debug label used in log messages and device object labels.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - DescriptorOption: a function that sets the label
func WithLabel(label string) DescriptorOption {
	return func(d *Descriptor) {
		d.Label = label
	}
}

// WithTargetProfile sets the shader model every stage is compiled for.
//
// Parameters:
//   - profile: the target profile
//
// Returns:
//   - DescriptorOption: a function that sets the target profile
func WithTargetProfile(profile shader.TargetProfile) DescriptorOption {
	return func(d *Descriptor) {
		d.Profile = profile
	}
}

// WithShader sets the source path of one stage.
//
// Parameters:
//   - stage: a single stage
//   - path: the source file
//
// Returns:
//   - DescriptorOption: a function that sets the stage's source path
func WithShader(stage shader.Stage, path string) DescriptorOption {
	return func(d *Descriptor) {
		d.Shaders[stage] = path
	}
}

func WithVertexShader(path string) DescriptorOption   { return WithShader(shader.StageVertex, path) }
func WithHullShader(path string) DescriptorOption     { return WithShader(shader.StageHull, path) }
func WithDomainShader(path string) DescriptorOption   { return WithShader(shader.StageDomain, path) }
func WithGeometryShader(path string) DescriptorOption { return WithShader(shader.StageGeometry, path) }
func WithPixelShader(path string) DescriptorOption    { return WithShader(shader.StagePixel, path) }
func WithComputeShader(path string) DescriptorOption  { return WithShader(shader.StageCompute, path) }

// WithRasterizerState sets the primitive assembly and rasterizer state.
//
// Parameters:
//   - state: the rasterizer state
//
// Returns:
//   - DescriptorOption: a function that sets the rasterizer state
func WithRasterizerState(state wgpu.PrimitiveState) DescriptorOption {
	return func(d *Descriptor) {
		d.Rasterizer = state
	}
}

// WithDepthStencilState sets the depth-stencil state. Nil leaves depth testing disabled.
//
// Parameters:
//   - state: the depth-stencil state
//
// Returns:
//   - DescriptorOption: a function that sets the depth-stencil state
func WithDepthStencilState(state *wgpu.DepthStencilState) DescriptorOption {
	return func(d *Descriptor) {
		d.DepthStencil = state
	}
}

// WithBlendState sets the blend state. Nil disables blending.
//
// Parameters:
//   - state: the blend state (e.g., AlphaBlendState())
//
// Returns:
//   - DescriptorOption: a function that sets the blend state
func WithBlendState(state *wgpu.BlendState) DescriptorOption {
	return func(d *Descriptor) {
		d.Blend = state
	}
}

// AlphaBlendState returns standard non-premultiplied alpha blending.
//
// Returns:
//   - *wgpu.BlendState: a new blend state
func AlphaBlendState() *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorSrcAlpha,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
	}
}

// DepthStencilState returns a depth-stencil state with a less-than depth test and depth
// writes enabled, and a stencil test that always passes.
//
// Parameters:
//   - format: the depth-stencil attachment format
//
// Returns:
//   - *wgpu.DepthStencilState: a new depth-stencil state
func DepthStencilState(format wgpu.TextureFormat) *wgpu.DepthStencilState {
	return &wgpu.DepthStencilState{
		Format:            format,
		DepthWriteEnabled: true,
		DepthCompare:      wgpu.CompareFunctionLess,
		StencilFront: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
		StencilBack: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
	}
}

// EffectBuilderOption is a functional option used to configure an effect during construction.
type EffectBuilderOption func(*effect)

// WithProfiler records emission, upload and dispatch statistics on p.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - EffectBuilderOption: a function that sets the profiler
func WithProfiler(p *profiler.Profiler) EffectBuilderOption {
	return func(e *effect) {
		e.profiler = p
	}
}

// WithInitialData seeds a constant buffer's contents. The data is uploaded on the first
// emission.
//
// Parameters:
//   - name: the constant buffer name
//   - data: the initial bytes, truncated to the buffer size
//
// Returns:
//   - EffectBuilderOption: a function that sets the buffer's initial data
func WithInitialData(name string, data []byte) EffectBuilderOption {
	return func(e *effect) {
		e.initialData[name] = data
	}
}
