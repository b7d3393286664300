// Package renderer is the WebGPU device and immediate context effects emit into. It turns
// slot-addressed Set* calls into bind groups, builds pipelines from the bound shader stages
// and submits compute dispatches.
package renderer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/logger"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrForeignObject is returned when a device object was not created by this renderer.
	ErrForeignObject = errors.New("object not created by this renderer")

	// ErrBufferNotMapped is returned by Unmap for a buffer without a pending Map.
	ErrBufferNotMapped = errors.New("buffer not mapped")

	// ErrNoVertexShader is returned when a render pipeline is requested without a vertex stage.
	ErrNoVertexShader = errors.New("no vertex shader bound")

	// ErrNoComputeShader is reported when Dispatch runs without a compute stage.
	ErrNoComputeShader = errors.New("no compute shader bound")

	// ErrInputLayoutMismatch is returned when an input element feeds no vertex stage input.
	ErrInputLayoutMismatch = errors.New("input element does not match the vertex stage signature")
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	label       string
	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	maxBindGroups        uint32
	msaa                 MSAASampleCount
	colorFormat          wgpu.TextureFormat

	pipelineCache map[string]pipeline.Pipeline
	providers     map[uint32]bind_group_provider.BindGroupProvider
	nextShaderID  uint64

	// Bound state, replaced by each emission
	shaders      map[shader.Stage]*shaderModule
	inputLayout  *inputLayout
	rasterizer   wgpu.PrimitiveState
	depthStencil *wgpu.DepthStencilState
	stencilRef   uint32
	blend        *wgpu.BlendState
	blendFactor  [4]float32
	sampleMask   uint32
}

// Renderer is a headless WebGPU device and immediate context. Effects allocate their constant
// buffers and shader objects through it and emit their bindings into it; callers create the
// resources they bind by name (storage buffers, textures, samplers) through it as well.
//
// Bindings are tracked per bind group. Dispatch builds or reuses the compute pipeline of the
// bound compute stage, refreshes stale bind groups and submits one compute pass.
// RenderPipeline does the same for the bound graphics stages and returns what a render
// pass needs.
type Renderer interface {
	device.Device
	device.Context

	// Device returns the underlying WebGPU device.
	//
	// Returns:
	//   - *wgpu.Device: the device
	Device() *wgpu.Device

	// Queue returns the device's queue.
	//
	// Returns:
	//   - *wgpu.Queue: the queue
	Queue() *wgpu.Queue

	// CreateStorageBuffer allocates a storage buffer usable as a shader-readable or read-write
	// resource handle. Resources with a hidden counter keep it in the first four bytes.
	//
	// Parameters:
	//   - label: a debug label
	//   - data: the initial contents, may be empty
	//   - size: the size in bytes; raised to len(data) and rounded up to 4
	//
	// Returns:
	//   - bind_group_provider.BufferBinding: the handle to bind
	//   - error: an error if allocation failed
	CreateStorageBuffer(label string, data []byte, size uint64) (bind_group_provider.BufferBinding, error)

	// CreateTexture creates a sampled RGBA texture and returns its view as a resource handle.
	//
	// Parameters:
	//   - label: a debug label
	//   - stagingData: the pixels and dimensions
	//
	// Returns:
	//   - *wgpu.TextureView: the handle to bind
	//   - error: an error if creation failed
	CreateTexture(label string, stagingData common.TextureStagingData) (*wgpu.TextureView, error)

	// CreateSampler creates a sampler handle. Zero fields take linear filtering and repeat addressing.
	//
	// Parameters:
	//   - label: a debug label
	//   - samplerStagingData: the sampler configuration
	//
	// Returns:
	//   - *wgpu.Sampler: the handle to bind
	//   - error: an error if creation failed
	CreateSampler(label string, samplerStagingData common.SamplerStagingData) (*wgpu.Sampler, error)

	// RenderPipeline builds or reuses the render pipeline for the bound vertex and pixel stages,
	// input layout and fixed-function state, and refreshes the bind groups it uses.
	//
	// Returns:
	//   - pipeline.Pipeline: the registered render pipeline
	//   - []bind_group_provider.BindGroupProvider: the providers to set on the render pass
	//   - error: an error if no vertex stage is bound or creation failed
	RenderPipeline() (pipeline.Pipeline, []bind_group_provider.BindGroupProvider, error)

	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves the entire cache of Pipelines.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a copy of the pipeline cache keyed by pipeline key
	Pipelines() map[string]pipeline.Pipeline

	// BindGroupProvider returns the provider tracking one bind group, creating it on first use.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider
	BindGroupProvider(group uint32) bind_group_provider.BindGroupProvider

	// StencilReference returns the stencil reference value of the last emission.
	StencilReference() uint32

	// BlendConstant returns the blend factor and sample mask of the last emission.
	BlendConstant() ([4]float32, uint32)

	// Release frees cached pipelines, bind groups and the device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new headless Renderer with the specified backend type. The WGPU
// backend requests an adapter without a compatible surface.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: an error if no adapter or device could be acquired
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		label:         "oxy-fx",
		backendType:   backendType,
		msaa:          MSAAOff,
		colorFormat:   wgpu.TextureFormatBGRA8Unorm,
		pipelineCache: make(map[string]pipeline.Pipeline),
		providers:     make(map[uint32]bind_group_provider.BindGroupProvider),
		shaders:       make(map[shader.Stage]*shaderModule),
		sampleMask:    0xffffffff,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	if r.backend == nil {
		switch backendType {
		case BackendTypeWGPU:
			fallthrough
		default:
			b, err := newWGPURendererBackend(r.label, r.forceFallbackAdapter, r.maxBindGroups)
			if err != nil {
				return nil, err
			}
			r.backend = b
		}
	}
	return r, nil
}

func (r *renderer) Device() *wgpu.Device {
	return r.backend.Device()
}

func (r *renderer) Queue() *wgpu.Queue {
	return r.backend.Queue()
}

func (r *renderer) CreateConstantBuffer(label string, size uint32) (device.Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	allocated := common.AlignUp(uint64(size), uniformBufferAlignment)
	if allocated == 0 {
		allocated = uniformBufferAlignment
	}
	buf, err := r.backend.CreateUniformBuffer(r.label+" "+label, allocated)
	if err != nil {
		return nil, fmt.Errorf("create uniform buffer %q: %w", label, err)
	}
	return &uniformBuffer{
		label:   label,
		size:    size,
		gpu:     buf,
		staging: make([]byte, allocated),
		release: r.backend.ReleaseBuffer,
	}, nil
}

func (r *renderer) CreateShader(result *shader.CompileResult) (device.Shader, error) {
	if result == nil {
		return nil, fmt.Errorf("create shader: %w", shader.ErrNoReflection)
	}
	if result.Stage.Visibility() == 0 {
		return nil, fmt.Errorf("create shader for %s: %w", result.Stage, shader.ErrStageUnsupported)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	label := fmt.Sprintf("%s %s:%s", r.label, result.Path, result.EntryPoint)
	module, err := r.backend.CreateShaderModule(label, result.Source)
	if err != nil {
		return nil, fmt.Errorf("create shader module for %s: %w", result.Stage, err)
	}
	r.nextShaderID++
	return &shaderModule{
		id:         r.nextShaderID,
		stage:      result.Stage,
		entryPoint: result.EntryPoint,
		module:     module,
		result:     result,
		release:    r.backend.ReleaseShaderModule,
	}, nil
}

func (r *renderer) CreateInputLayout(elements []device.InputElement, vertex *shader.CompileResult) (device.InputLayout, error) {
	if vertex != nil && vertex.Reflection != nil {
		locations := make(map[uint32]bool, len(vertex.Reflection.InputParameters))
		for _, p := range vertex.Reflection.InputParameters {
			locations[p.Register] = true
		}
		for _, e := range elements {
			if !locations[e.Location] {
				return nil, fmt.Errorf("%w: %s%d at location %d", ErrInputLayoutMismatch, e.SemanticName, e.SemanticIndex, e.Location)
			}
		}
	}
	return &inputLayout{
		elements: elements,
		buffers:  device.VertexBufferLayouts(elements),
	}, nil
}

func (r *renderer) CreateStorageBuffer(label string, data []byte, size uint64) (bind_group_provider.BufferBinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	size = common.AlignUp(max(size, uint64(len(data))), 4)
	buf, err := r.backend.CreateStorageBuffer(r.label+" "+label, data, size)
	if err != nil {
		return bind_group_provider.BufferBinding{}, fmt.Errorf("create storage buffer %q: %w", label, err)
	}
	return bind_group_provider.BufferBinding{Buffer: buf, Size: size}, nil
}

func (r *renderer) CreateTexture(label string, stagingData common.TextureStagingData) (*wgpu.TextureView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.CreateTexture(r.label+" "+label, stagingData)
}

func (r *renderer) CreateSampler(label string, samplerStagingData common.SamplerStagingData) (*wgpu.Sampler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.CreateSampler(r.label+" "+label, samplerStagingData)
}

func (r *renderer) Map(buf device.Buffer) ([]byte, error) {
	ub, ok := buf.(*uniformBuffer)
	if !ok || ub.gpu == nil {
		return nil, fmt.Errorf("map %T: %w", buf, ErrForeignObject)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ub.mapped = true
	return ub.staging[:ub.size], nil
}

func (r *renderer) Unmap(buf device.Buffer) {
	ub, ok := buf.(*uniformBuffer)
	if !ok || ub.gpu == nil {
		logger.Logger().Warn("[Renderer] unmap of foreign buffer ignored", "type", fmt.Sprintf("%T", buf))
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !ub.mapped {
		logger.Logger().Warn("[Renderer] unmap without map", "buffer", ub.label, "error", ErrBufferNotMapped)
		return
	}
	ub.mapped = false
	r.backend.WriteBuffer(ub.gpu, 0, ub.staging)
}

func (r *renderer) SetShader(stage shader.Stage, s device.Shader) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s == nil {
		delete(r.shaders, stage)
		return
	}
	sm, ok := s.(*shaderModule)
	if !ok {
		logger.Logger().Warn("[Renderer] foreign shader ignored", "stage", stage.String())
		return
	}
	r.shaders[stage] = sm
}

func (r *renderer) SetConstantBuffers(stage shader.Stage, slot shader.Slot, bufs []device.Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	provider := r.provider(slot.Group)
	for i, b := range bufs {
		ub, ok := b.(*uniformBuffer)
		if !ok || ub.gpu == nil {
			logger.Logger().Warn("[Renderer] constant buffer not bound", "stage", stage.String(), "group", slot.Group, "binding", slot.Binding+uint32(i))
			continue
		}
		provider.SetBuffer(slot.Binding+uint32(i), bind_group_provider.BufferBinding{Buffer: ub.gpu})
	}
}

func (r *renderer) SetShaderResources(stage shader.Stage, slot shader.Slot, views []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindHandles(stage, slot, views, nil)
}

func (r *renderer) SetSamplers(stage shader.Stage, slot shader.Slot, samplers []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindHandles(stage, slot, samplers, nil)
}

func (r *renderer) SetRenderTargetUnorderedAccessViews(slot shader.Slot, views []any, initialCounts []uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindHandles(shader.StagePixel, slot, views, initialCounts)
}

func (r *renderer) SetComputeUnorderedAccessViews(slot shader.Slot, views []any, initialCounts []uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindHandles(shader.StageCompute, slot, views, initialCounts)
}

// bindHandles records consecutive handles starting at slot. A nil handle leaves the binding
// as it was. A counter value is written to the first four bytes of a buffer handle's range.
func (r *renderer) bindHandles(stage shader.Stage, slot shader.Slot, handles []any, initialCounts []uint32) {
	provider := r.provider(slot.Group)
	for i, h := range handles {
		binding := slot.Binding + uint32(i)
		var buf bind_group_provider.BufferBinding
		switch v := h.(type) {
		case nil:
			logger.Logger().Debug("[Renderer] no resource bound", "stage", stage.String(), "group", slot.Group, "binding", binding)
			continue
		case bind_group_provider.BufferBinding:
			buf = v
		case *wgpu.Buffer:
			buf = bind_group_provider.BufferBinding{Buffer: v}
		case *wgpu.TextureView:
			provider.SetTextureView(binding, v)
			continue
		case *wgpu.Sampler:
			provider.SetSampler(binding, v)
			continue
		default:
			logger.Logger().Warn("[Renderer] unsupported resource handle", "stage", stage.String(), "binding", binding, "type", fmt.Sprintf("%T", h))
			continue
		}

		provider.SetBuffer(binding, buf)
		if i < len(initialCounts) {
			count := make([]byte, 4)
			binary.LittleEndian.PutUint32(count, initialCounts[i])
			r.backend.WriteBuffer(buf.Buffer, buf.Offset, count)
		}
	}
}

func (r *renderer) SetInputLayout(layout device.InputLayout) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if layout == nil {
		r.inputLayout = nil
		return
	}
	il, ok := layout.(*inputLayout)
	if !ok {
		logger.Logger().Warn("[Renderer] foreign input layout ignored")
		return
	}
	r.inputLayout = il
}

func (r *renderer) SetRasterizerState(state wgpu.PrimitiveState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rasterizer = state
}

func (r *renderer) SetDepthStencilState(state *wgpu.DepthStencilState, stencilRef uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.depthStencil = state
	r.stencilRef = stencilRef
}

func (r *renderer) SetBlendState(state *wgpu.BlendState, factor [4]float32, sampleMask uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blend = state
	r.blendFactor = factor
	r.sampleMask = sampleMask
}

func (r *renderer) StencilReference() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stencilRef
}

func (r *renderer) BlendConstant() ([4]float32, uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blendFactor, r.sampleMask
}

func (r *renderer) Dispatch(x, y, z uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.dispatch([3]uint32{x, y, z}); err != nil {
		logger.Logger().Warn("[Renderer] dispatch failed", "groups", []uint32{x, y, z}, "error", err)
	}
}

func (r *renderer) dispatch(groups [3]uint32) error {
	cs := r.shaders[shader.StageCompute]
	if cs == nil {
		return ErrNoComputeShader
	}

	key := fmt.Sprintf("compute#%d", cs.id)
	p, ok := r.pipelineCache[key]
	if !ok {
		opts := append([]pipeline.PipelineBuilderOption{
			pipeline.WithComputeStage(cs.module, cs.entryPoint),
		}, layoutOptions(cs)...)
		p = pipeline.NewPipeline(key, pipeline.PipelineTypeCompute, opts...)
		if err := r.backend.RegisterComputePipeline(p); err != nil {
			return fmt.Errorf("register compute pipeline for %s: %w", cs.entryPoint, err)
		}
		r.pipelineCache[key] = p
	}

	providers, err := r.prepareBindGroups(p)
	if err != nil {
		return err
	}
	return r.backend.DispatchCompute(p, providers, groups)
}

func (r *renderer) RenderPipeline() (pipeline.Pipeline, []bind_group_provider.BindGroupProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vs := r.shaders[shader.StageVertex]
	if vs == nil {
		return nil, nil, ErrNoVertexShader
	}
	ps := r.shaders[shader.StagePixel]

	var psID uint64
	if ps != nil {
		psID = ps.id
	}
	key := fmt.Sprintf("render#%d#%d|%p|%+v|%p|%p", vs.id, psID, r.inputLayout, r.rasterizer, r.depthStencil, r.blend)

	p, ok := r.pipelineCache[key]
	if !ok {
		var buffers []wgpu.VertexBufferLayout
		if r.inputLayout != nil {
			buffers = r.inputLayout.buffers
		}
		opts := []pipeline.PipelineBuilderOption{
			pipeline.WithVertexStage(vs.module, vs.entryPoint, buffers),
			pipeline.WithPrimitiveState(r.rasterizer),
			pipeline.WithDepthStencilState(r.depthStencil),
			pipeline.WithBlendState(r.blend),
			pipeline.WithColorFormat(r.colorFormat),
			pipeline.WithSampleCount(uint32(r.msaa)),
		}
		opts = append(opts, layoutOptions(vs)...)
		if ps != nil {
			opts = append(opts, pipeline.WithFragmentStage(ps.module, ps.entryPoint))
			opts = append(opts, layoutOptions(ps)...)
		}
		p = pipeline.NewPipeline(key, pipeline.PipelineTypeRender, opts...)
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return nil, nil, fmt.Errorf("register render pipeline: %w", err)
		}
		r.pipelineCache[key] = p
	}

	providers, err := r.prepareBindGroups(p)
	if err != nil {
		return nil, nil, err
	}
	return p, providers, nil
}

// prepareBindGroups rebuilds the bind groups of p's groups that are stale and returns their
// providers in group order.
func (r *renderer) prepareBindGroups(p pipeline.Pipeline) ([]bind_group_provider.BindGroupProvider, error) {
	groups := p.Groups()
	providers := make([]bind_group_provider.BindGroupProvider, 0, len(groups))
	for _, g := range groups {
		provider := r.provider(g)
		if !provider.Current(p.BindGroupLayout(g)) {
			if err := r.backend.BuildBindGroup(p, provider); err != nil {
				return nil, fmt.Errorf("build bind group %d: %w", g, err)
			}
		}
		providers = append(providers, provider)
	}
	return providers, nil
}

// layoutOptions turns a stage's reflected bindings into layout entries visible to that stage.
func layoutOptions(s *shaderModule) []pipeline.PipelineBuilderOption {
	var opts []pipeline.PipelineBuilderOption
	for group, entries := range layoutEntries(s.stage, s.result.Reflection) {
		opts = append(opts, pipeline.WithLayoutEntries(group, entries...))
	}
	return opts
}

// layoutEntries groups a reflection's bound resources into layout entries by bind group.
func layoutEntries(stage shader.Stage, refl *shader.Reflection) map[uint32][]wgpu.BindGroupLayoutEntry {
	if refl == nil {
		return nil
	}
	groups := make(map[uint32][]wgpu.BindGroupLayoutEntry)
	for _, res := range refl.BoundResources {
		entry := res.Layout
		entry.Binding = res.Slot.Binding
		entry.Visibility = stage.Visibility()
		groups[res.Slot.Group] = append(groups[res.Slot.Group], entry)
	}
	return groups
}

func (r *renderer) provider(group uint32) bind_group_provider.BindGroupProvider {
	p, ok := r.providers[group]
	if !ok {
		p = bind_group_provider.NewBindGroupProvider(fmt.Sprintf("%s group %d", r.label, group), group)
		r.providers[group] = p
	}
	return p
}

func (r *renderer) BindGroupProvider(group uint32) bind_group_provider.BindGroupProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.provider(group)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]pipeline.Pipeline, len(r.pipelineCache))
	for k, p := range r.pipelineCache {
		out[k] = p
	}
	return out
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	for g, p := range r.providers {
		p.Release()
		delete(r.providers, g)
	}
	clear(r.shaders)
	r.inputLayout = nil
	r.backend.Release()
}
