package effect

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// defaultSampleMask enables every sample.
const defaultSampleMask = 0xffffffff

// stageProgram is the compiled payload of one populated stage.
type stageProgram struct {
	stage  shader.Stage
	result *shader.CompileResult
	shader device.Shader
}

// emitShader activates a stage's shader object. Every stage goes through this one call.
func emitShader(ctx device.Context, p *stageProgram) {
	ctx.SetShader(p.stage, p.shader)
}

// extraState is the fixed-function state an effect kind emits after its bindings.
type extraState interface {
	emit(ctx device.Context)
}

// graphicsState is the output-merger, rasterizer and input-assembler state of a graphics effect.
type graphicsState struct {
	inputLayout  device.InputLayout
	rasterizer   wgpu.PrimitiveState
	depthStencil *wgpu.DepthStencilState
	stencilRef   uint32
	blend        *wgpu.BlendState
	blendFactor  [4]float32
}

func (g *graphicsState) emit(ctx device.Context) {
	ctx.SetInputLayout(g.inputLayout)
	ctx.SetRasterizerState(g.rasterizer)
	ctx.SetDepthStencilState(g.depthStencil, g.stencilRef)
	ctx.SetBlendState(g.blend, g.blendFactor, defaultSampleMask)
}

// computeState carries nothing to emit; the thread-group size only scales Dispatch.
type computeState struct {
	threadGroupSize [3]uint32
}

func (computeState) emit(device.Context) {}

// emitBindings issues the calls that make the context match the effect: shaders, constant
// buffers (uploading dirty ones first), shader resources, samplers, read-write views, then
// the effect kind's extra state. Upload failures are returned after every call is issued.
func emitBindings(ctx device.Context, programs []*stageProgram, table *BindingTable, extra extraState, prof *profiler.Profiler) error {
	for _, p := range programs {
		emitShader(ctx, p)
	}

	var errs []error
	for _, cb := range table.orderedConstantBuffers {
		dirty := cb.dirty
		if err := cb.Update(ctx); err != nil {
			errs = append(errs, err)
		} else if dirty && prof != nil {
			prof.RecordUpload(len(cb.data))
		}
		bufs := []device.Buffer{cb.buffer}
		for _, stage := range cb.stages.Each() {
			ctx.SetConstantBuffers(stage, cb.slot, bufs)
		}
	}

	for _, r := range table.orderedShaderResources {
		ctx.SetShaderResources(r.Stage, r.Slot, []any{r.Handle})
	}

	for _, s := range table.orderedSamplers {
		ctx.SetSamplers(s.Stage, s.Slot, []any{s.Handle})
	}

	for _, r := range table.orderedReadWrite {
		var counts []uint32
		if r.NeedsInitialCount() {
			counts = []uint32{r.InitialCount}
		}
		switch r.Stage {
		case shader.StagePixel:
			ctx.SetRenderTargetUnorderedAccessViews(r.Slot, []any{r.Handle}, counts)
			r.needsInitialCount = false
		case shader.StageCompute:
			ctx.SetComputeUnorderedAccessViews(r.Slot, []any{r.Handle}, counts)
			r.needsInitialCount = false
		}
	}

	if extra != nil {
		extra.emit(ctx)
	}
	if prof != nil {
		prof.RecordEmit()
	}
	return errors.Join(errs...)
}
