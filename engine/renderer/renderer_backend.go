package renderer

import (
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1). This is the default.
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA16x MSAASampleCount = 16
)

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}

// wgpuRendererBackend creates and submits GPU work. The renderer tracks binding state and
// decides what to build; the backend only talks to the device.
type wgpuRendererBackend interface {
	Device() *wgpu.Device
	Queue() *wgpu.Queue

	// CreateUniformBuffer allocates a uniform buffer writable from the CPU.
	//
	// Parameters:
	//   - label: a debug label
	//   - size: the size in bytes, a multiple of 16
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	//   - error: an error if allocation failed
	CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error)

	// CreateStorageBuffer allocates a storage buffer and uploads its initial contents.
	//
	// Parameters:
	//   - label: a debug label
	//   - data: the initial contents, may be empty
	//   - size: the size in bytes; at least len(data)
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	//   - error: an error if allocation failed
	CreateStorageBuffer(label string, data []byte, size uint64) (*wgpu.Buffer, error)

	// WriteBuffer queues a write of data into buf at offset.
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte)

	// CreateShaderModule creates a shader module from WGSL source.
	//
	// Parameters:
	//   - label: a debug label
	//   - source: the WGSL source
	//
	// Returns:
	//   - *wgpu.ShaderModule: the module
	//   - error: an error if the device rejected the source
	CreateShaderModule(label, source string) (*wgpu.ShaderModule, error)

	// RegisterComputePipeline creates the bind group layouts, pipeline layout and compute pipeline for p.
	//
	// Parameters:
	//   - p: the pipeline object describing the compute stage and its layout
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterComputePipeline(p pipeline.Pipeline) error

	// RegisterRenderPipeline creates the bind group layouts, pipeline layout and render pipeline for p.
	//
	// Parameters:
	//   - p: the pipeline object describing the vertex and fragment stages and fixed-function state
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// BuildBindGroup creates a bind group from the provider's bindings against p's layout for
	// the provider's group and stores it on the provider.
	//
	// Parameters:
	//   - p: a registered pipeline
	//   - provider: the provider of the group to build
	//
	// Returns:
	//   - error: an error if a binding is missing or creation failed
	BuildBindGroup(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider) error

	// DispatchCompute encodes one compute pass with the given bind groups and submits it.
	//
	// Parameters:
	//   - p: a registered compute pipeline
	//   - providers: the providers whose bind groups are set on the pass
	//   - workGroupCount: the number of workgroups to dispatch in the x, y, and z dimensions
	//
	// Returns:
	//   - error: an error if encoding failed
	DispatchCompute(p pipeline.Pipeline, providers []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// CreateTexture creates a sampled RGBA texture from staging data and returns its view.
	CreateTexture(label string, stagingData common.TextureStagingData) (*wgpu.TextureView, error)

	// CreateSampler creates a sampler from staging data; zero fields take linear/repeat defaults.
	CreateSampler(label string, samplerStagingData common.SamplerStagingData) (*wgpu.Sampler, error)

	ReleaseBuffer(buf *wgpu.Buffer)
	ReleaseShaderModule(module *wgpu.ShaderModule)

	// Release frees the device, adapter and instance.
	Release()
}
