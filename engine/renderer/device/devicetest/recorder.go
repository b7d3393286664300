// Package devicetest provides a recording Device and Context for tests.
package devicetest

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Op names a recorded context call.
type Op string

const (
	OpMap                 Op = "Map"
	OpUnmap               Op = "Unmap"
	OpSetShader           Op = "SetShader"
	OpSetConstantBuffers  Op = "SetConstantBuffers"
	OpSetShaderResources  Op = "SetShaderResources"
	OpSetSamplers         Op = "SetSamplers"
	OpSetRenderTargetUAVs Op = "SetRenderTargetUnorderedAccessViews"
	OpSetComputeUAVs      Op = "SetComputeUnorderedAccessViews"
	OpSetInputLayout      Op = "SetInputLayout"
	OpSetRasterizerState  Op = "SetRasterizerState"
	OpSetDepthStencil     Op = "SetDepthStencilState"
	OpSetBlendState       Op = "SetBlendState"
	OpDispatch            Op = "Dispatch"
)

// Call is one recorded context call. Only the fields relevant to Op are set.
type Call struct {
	Op            Op
	Stage         shader.Stage
	Slot          shader.Slot
	Buffer        *Buffer
	Shader        *Shader
	Handles       []any
	InitialCounts []uint32
	Data          []byte
	Groups        [3]uint32
	StencilRef    uint32
	BlendFactor   [4]float32
	SampleMask    uint32
	Rasterizer    wgpu.PrimitiveState
	DepthStencil  *wgpu.DepthStencilState
	Blend         *wgpu.BlendState
	InputLayout   *InputLayout
}

// Buffer is a recorded constant buffer. Contents holds the bytes of the last Unmap.
type Buffer struct {
	label    string
	size     uint32
	staging  []byte
	Contents []byte
	Released bool
}

func (b *Buffer) Label() string { return b.label }
func (b *Buffer) Size() uint32  { return b.size }
func (b *Buffer) Release()      { b.Released = true }

// Shader is a recorded shader object.
type Shader struct {
	stage    shader.Stage
	entry    string
	Released bool
}

func (s *Shader) Stage() shader.Stage { return s.stage }
func (s *Shader) EntryPoint() string  { return s.entry }
func (s *Shader) Release()            { s.Released = true }

// InputLayout is a recorded input layout.
type InputLayout struct {
	elements []device.InputElement
	Released bool
}

func (l *InputLayout) Elements() []device.InputElement { return l.elements }
func (l *InputLayout) Release()                        { l.Released = true }

// ErrInjected is returned by calls configured to fail.
var ErrInjected = errors.New("injected device failure")

// Recorder implements device.Device and device.Context and records every context call.
type Recorder struct {
	Calls   []Call
	Buffers []*Buffer
	Shaders []*Shader
	Layouts []*InputLayout

	// FailBuffers makes CreateConstantBuffer fail.
	FailBuffers bool
	// FailShaders makes CreateShader fail for the listed stages.
	FailShaders shader.Stage
}

var (
	_ device.Device  = &Recorder{}
	_ device.Context = &Recorder{}
)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Reset forgets recorded calls but keeps created objects.
func (r *Recorder) Reset() {
	r.Calls = r.Calls[:0]
}

// Ops lists the recorded operations in order.
func (r *Recorder) Ops() []Op {
	ops := make([]Op, len(r.Calls))
	for i, c := range r.Calls {
		ops[i] = c.Op
	}
	return ops
}

// Filter returns the recorded calls of one operation, in order.
func (r *Recorder) Filter(op Op) []Call {
	var out []Call
	for _, c := range r.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (r *Recorder) CreateConstantBuffer(label string, size uint32) (device.Buffer, error) {
	if r.FailBuffers {
		return nil, ErrInjected
	}
	b := &Buffer{label: label, size: size, Contents: make([]byte, size)}
	r.Buffers = append(r.Buffers, b)
	return b, nil
}

func (r *Recorder) CreateShader(result *shader.CompileResult) (device.Shader, error) {
	if r.FailShaders&result.Stage != 0 {
		return nil, ErrInjected
	}
	s := &Shader{stage: result.Stage, entry: result.EntryPoint}
	r.Shaders = append(r.Shaders, s)
	return s, nil
}

func (r *Recorder) CreateInputLayout(elements []device.InputElement, vertex *shader.CompileResult) (device.InputLayout, error) {
	l := &InputLayout{elements: append([]device.InputElement(nil), elements...)}
	r.Layouts = append(r.Layouts, l)
	return l, nil
}

func (r *Recorder) Map(buf device.Buffer) ([]byte, error) {
	b := buf.(*Buffer)
	b.staging = make([]byte, b.size)
	r.Calls = append(r.Calls, Call{Op: OpMap, Buffer: b})
	return b.staging, nil
}

func (r *Recorder) Unmap(buf device.Buffer) {
	b := buf.(*Buffer)
	copy(b.Contents, b.staging)
	r.Calls = append(r.Calls, Call{Op: OpUnmap, Buffer: b, Data: append([]byte(nil), b.staging...)})
	b.staging = nil
}

func (r *Recorder) SetShader(stage shader.Stage, s device.Shader) {
	call := Call{Op: OpSetShader, Stage: stage}
	if rs, ok := s.(*Shader); ok {
		call.Shader = rs
	}
	r.Calls = append(r.Calls, call)
}

func (r *Recorder) SetConstantBuffers(stage shader.Stage, slot shader.Slot, bufs []device.Buffer) {
	call := Call{Op: OpSetConstantBuffers, Stage: stage, Slot: slot}
	if len(bufs) > 0 {
		call.Buffer, _ = bufs[0].(*Buffer)
	}
	r.Calls = append(r.Calls, call)
}

func (r *Recorder) SetShaderResources(stage shader.Stage, slot shader.Slot, views []any) {
	r.Calls = append(r.Calls, Call{Op: OpSetShaderResources, Stage: stage, Slot: slot, Handles: views})
}

func (r *Recorder) SetSamplers(stage shader.Stage, slot shader.Slot, samplers []any) {
	r.Calls = append(r.Calls, Call{Op: OpSetSamplers, Stage: stage, Slot: slot, Handles: samplers})
}

func (r *Recorder) SetRenderTargetUnorderedAccessViews(slot shader.Slot, views []any, initialCounts []uint32) {
	r.Calls = append(r.Calls, Call{
		Op: OpSetRenderTargetUAVs, Stage: shader.StagePixel, Slot: slot, Handles: views, InitialCounts: initialCounts,
	})
}

func (r *Recorder) SetComputeUnorderedAccessViews(slot shader.Slot, views []any, initialCounts []uint32) {
	r.Calls = append(r.Calls, Call{
		Op: OpSetComputeUAVs, Stage: shader.StageCompute, Slot: slot, Handles: views, InitialCounts: initialCounts,
	})
}

func (r *Recorder) SetInputLayout(layout device.InputLayout) {
	call := Call{Op: OpSetInputLayout}
	if l, ok := layout.(*InputLayout); ok {
		call.InputLayout = l
	}
	r.Calls = append(r.Calls, call)
}

func (r *Recorder) SetRasterizerState(state wgpu.PrimitiveState) {
	r.Calls = append(r.Calls, Call{Op: OpSetRasterizerState, Rasterizer: state})
}

func (r *Recorder) SetDepthStencilState(state *wgpu.DepthStencilState, stencilRef uint32) {
	r.Calls = append(r.Calls, Call{Op: OpSetDepthStencil, DepthStencil: state, StencilRef: stencilRef})
}

func (r *Recorder) SetBlendState(state *wgpu.BlendState, factor [4]float32, sampleMask uint32) {
	r.Calls = append(r.Calls, Call{Op: OpSetBlendState, Blend: state, BlendFactor: factor, SampleMask: sampleMask})
}

func (r *Recorder) Dispatch(x, y, z uint32) {
	r.Calls = append(r.Calls, Call{Op: OpDispatch, Groups: [3]uint32{x, y, z}})
}
