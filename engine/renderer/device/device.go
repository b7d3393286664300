// Package device defines the graphics device and immediate context an effect emits its
// bindings through. The wgpu renderer implements both; tests use the recorder in devicetest.
package device

import (
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Buffer is a device-side constant buffer.
type Buffer interface {
	// Label returns the debug label the buffer was created with.
	Label() string

	// Size returns the buffer size in bytes.
	Size() uint32

	// Release frees the device memory behind the buffer.
	Release()
}

// Shader is a device shader object for one stage.
type Shader interface {
	Stage() shader.Stage
	EntryPoint() string
	Release()
}

// InputLayout describes how vertex data feeds the vertex stage's input signature.
type InputLayout interface {
	Elements() []InputElement
	Release()
}

// Device creates GPU objects.
type Device interface {
	// CreateConstantBuffer allocates a dynamic, CPU-writable constant buffer.
	//
	// Parameters:
	//   - label: a debug label
	//   - size: the size in bytes
	//
	// Returns:
	//   - Buffer: the new buffer
	//   - error: an error if allocation failed
	CreateConstantBuffer(label string, size uint32) (Buffer, error)

	// CreateShader creates the shader object for a compiled stage.
	//
	// Parameters:
	//   - result: the compiled stage
	//
	// Returns:
	//   - Shader: the shader object
	//   - error: an error if the device rejected the bytecode
	CreateShader(result *shader.CompileResult) (Shader, error)

	// CreateInputLayout creates an input layout validated against the vertex stage.
	//
	// Parameters:
	//   - elements: the layout elements, one per input signature parameter
	//   - vertex: the compiled vertex stage
	//
	// Returns:
	//   - InputLayout: the input layout
	//   - error: an error if the layout does not match the stage
	CreateInputLayout(elements []InputElement, vertex *shader.CompileResult) (InputLayout, error)
}

// Context issues state-setting commands. Shader-readable views, read-write views and
// samplers are passed as the backend's own handle types.
type Context interface {
	// Map returns a writable view of the whole buffer; previous contents are discarded.
	Map(buf Buffer) ([]byte, error)

	// Unmap publishes the bytes written since Map.
	Unmap(buf Buffer)

	SetShader(stage shader.Stage, s Shader)
	SetConstantBuffers(stage shader.Stage, slot shader.Slot, bufs []Buffer)
	SetShaderResources(stage shader.Stage, slot shader.Slot, views []any)
	SetSamplers(stage shader.Stage, slot shader.Slot, samplers []any)

	// SetRenderTargetUnorderedAccessViews binds read-write views for the pixel stage. A nil
	// initialCounts keeps the current hidden counter values.
	SetRenderTargetUnorderedAccessViews(slot shader.Slot, views []any, initialCounts []uint32)

	// SetComputeUnorderedAccessViews binds read-write views for the compute stage. A nil
	// initialCounts keeps the current hidden counter values.
	SetComputeUnorderedAccessViews(slot shader.Slot, views []any, initialCounts []uint32)

	SetInputLayout(layout InputLayout)
	SetRasterizerState(state wgpu.PrimitiveState)
	SetDepthStencilState(state *wgpu.DepthStencilState, stencilRef uint32)
	SetBlendState(state *wgpu.BlendState, factor [4]float32, sampleMask uint32)

	// Dispatch launches thread groups on the compute stage.
	Dispatch(x, y, z uint32)
}
