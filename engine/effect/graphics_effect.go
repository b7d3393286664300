package effect

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// graphicsEffect is the implementation of the GraphicsEffect interface.
type graphicsEffect struct {
	*effect
	state graphicsState
}

// GraphicsEffect is an effect over the vertex, hull, domain, geometry and pixel stages. It
// also emits the input layout built from the vertex stage's input signature and the
// rasterizer, depth-stencil and blend state of its descriptor.
type GraphicsEffect interface {
	Effect

	// InputLayout returns the input layout built from the vertex stage, or nil.
	InputLayout() device.InputLayout

	// Rasterizer returns the rasterizer state.
	Rasterizer() wgpu.PrimitiveState

	// DepthStencil returns the depth-stencil state, or nil.
	DepthStencil() *wgpu.DepthStencilState

	// Blend returns the blend state, or nil.
	Blend() *wgpu.BlendState

	// StencilRef returns the stencil reference value.
	StencilRef() uint32

	// SetStencilRef sets the stencil reference value emitted with the depth-stencil state.
	//
	// Parameters:
	//   - v: the reference value
	SetStencilRef(v uint32)

	// BlendFactor returns the blend constant.
	BlendFactor() [4]float32

	// SetBlendFactor sets the leading components of the blend constant. At most four values
	// are read; each is clamped to [0, 1].
	//
	// Parameters:
	//   - values: the red, green, blue and alpha factors, in that order
	SetBlendFactor(values ...float32)
}

var _ GraphicsEffect = &graphicsEffect{}

// NewGraphicsEffect compiles the graphics stages named by desc and builds their binding
// table. Stages that fail are logged and reported through Err; the effect is still usable
// with the stages that succeeded.
//
// Parameters:
//   - dev: the device shader objects, input layouts and constant buffers are created on
//   - compiler: the compiler session
//   - desc: the stage sources and fixed-function state
//   - options: a variadic list of options to configure the effect
//
// Returns:
//   - GraphicsEffect: the new effect
func NewGraphicsEffect(dev device.Device, compiler shader.Compiler, desc Descriptor, options ...EffectBuilderOption) GraphicsEffect {
	e := &graphicsEffect{
		effect: newEffect(dev, compiler, desc.Label, options),
		state: graphicsState{
			rasterizer:   desc.Rasterizer,
			depthStencil: desc.DepthStencil,
			blend:        desc.Blend,
		},
	}
	if _, ok := desc.Shaders[shader.StageCompute]; ok {
		e.log().Warn("[Effect] compute stage ignored by graphics effect")
	}

	e.build(shader.GraphicsStages, desc)
	e.buildInputLayout()
	return e
}

func (e *graphicsEffect) buildInputLayout() {
	vertex := e.program(shader.StageVertex)
	if vertex == nil || vertex.result.Reflection == nil {
		return
	}

	elements, err := device.InputLayoutFromSignature(vertex.result.Reflection.InputParameters)
	if err != nil {
		e.report("[Effect] input signature partially mapped", shader.StageVertex, err)
	}
	layout, err := e.dev.CreateInputLayout(elements, vertex.result)
	if err != nil {
		e.report("[Effect] input layout creation failed", shader.StageVertex, fmt.Errorf("input layout: %w", err))
		return
	}
	e.state.inputLayout = layout
}

func (e *graphicsEffect) Emit(ctx device.Context) error {
	return emitBindings(ctx, e.programs, e.BindingTable, &e.state, e.profiler)
}

func (e *graphicsEffect) InputLayout() device.InputLayout {
	return e.state.inputLayout
}

func (e *graphicsEffect) Rasterizer() wgpu.PrimitiveState {
	return e.state.rasterizer
}

func (e *graphicsEffect) DepthStencil() *wgpu.DepthStencilState {
	return e.state.depthStencil
}

func (e *graphicsEffect) Blend() *wgpu.BlendState {
	return e.state.blend
}

func (e *graphicsEffect) StencilRef() uint32 {
	return e.state.stencilRef
}

func (e *graphicsEffect) SetStencilRef(v uint32) {
	e.state.stencilRef = v
}

func (e *graphicsEffect) BlendFactor() [4]float32 {
	return e.state.blendFactor
}

func (e *graphicsEffect) SetBlendFactor(values ...float32) {
	for i := 0; i < len(values) && i < len(e.state.blendFactor); i++ {
		e.state.blendFactor[i] = common.Clamp01(values[i])
	}
}

func (e *graphicsEffect) Release() {
	if e.state.inputLayout != nil {
		e.state.inputLayout.Release()
		e.state.inputLayout = nil
	}
	e.effect.Release()
}
