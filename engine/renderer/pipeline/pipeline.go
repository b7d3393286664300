package pipeline

import (
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

// Stage is one programmable stage of a pipeline: a shader module and its entry point.
type Stage struct {
	Module     *wgpu.ShaderModule
	EntryPoint string
}

// pipeline is the implementation of the Pipeline interface.
// It holds the underlying WebGPU pipeline objects and the state they are created from.
type pipeline struct {
	// pipelineType indicates the type of pipeline this is; compute or render
	pipelineType PipelineType
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	vertex, fragment, compute *Stage

	// layouts holds the bind group layout entries of every group the stages use, merged across stages
	layouts map[uint32][]wgpu.BindGroupLayoutEntry

	// vertexBuffers is the vertex input layout of a render pipeline
	vertexBuffers []wgpu.VertexBufferLayout

	// The following properties configure render pipeline creation. Compute pipelines ignore them.

	primitive    wgpu.PrimitiveState
	depthStencil *wgpu.DepthStencilState
	blendState   *wgpu.BlendState
	writeMask    wgpu.ColorWriteMask
	colorFormat  wgpu.TextureFormat
	sampleCount  uint32

	// GPU objects, populated when the pipeline is registered with a device

	bindGroupLayouts []*wgpu.BindGroupLayout
	pipelineLayout   *wgpu.PipelineLayout
	renderPipeline   *wgpu.RenderPipeline
	computePipeline  *wgpu.ComputePipeline
}

// Pipeline defines the interface for a GPU pipeline, encapsulating either a render pipeline
// (vertex + fragment stages) or a compute pipeline (compute stage). It holds the state needed
// to create the GPU objects and the objects themselves once created.
type Pipeline interface {
	// Type returns the type of the pipeline
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Pipeline returns the underlying pipeline object, either *wgpu.RenderPipeline or *wgpu.ComputePipeline
	// Note: The caller is responsible for type asserting the returned value as either pipeline type.
	//
	// Returns:
	//   - any: the underlying pipeline object.
	Pipeline() any

	// Groups returns the bind group indices the pipeline uses, ascending.
	//
	// Returns:
	//   - []uint32: the group indices
	Groups() []uint32

	// BindGroupLayoutDescriptors returns one layout descriptor per group from 0 to the highest
	// group used. Groups the stages do not use get an empty descriptor.
	//
	// Returns:
	//   - []wgpu.BindGroupLayoutDescriptor: descriptors indexed by group
	BindGroupLayoutDescriptors() []wgpu.BindGroupLayoutDescriptor

	// LayoutEntries returns the merged layout entries of one group.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - []wgpu.BindGroupLayoutEntry: the entries sorted by binding, or nil
	LayoutEntries(group uint32) []wgpu.BindGroupLayoutEntry

	// ComputeDescriptor builds the compute pipeline descriptor.
	//
	// Parameters:
	//   - layout: the pipeline layout created from BindGroupLayoutDescriptors
	//
	// Returns:
	//   - *wgpu.ComputePipelineDescriptor: the descriptor, or nil for a render pipeline
	ComputeDescriptor(layout *wgpu.PipelineLayout) *wgpu.ComputePipelineDescriptor

	// RenderDescriptor builds the render pipeline descriptor.
	//
	// Parameters:
	//   - layout: the pipeline layout created from BindGroupLayoutDescriptors
	//
	// Returns:
	//   - *wgpu.RenderPipelineDescriptor: the descriptor, or nil for a compute pipeline
	RenderDescriptor(layout *wgpu.PipelineLayout) *wgpu.RenderPipelineDescriptor

	// BindGroupLayout returns the created layout of one group, or nil before registration.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout or nil
	BindGroupLayout(group uint32) *wgpu.BindGroupLayout

	// SetLayouts stores the created bind group layouts and pipeline layout.
	//
	// Parameters:
	//   - groups: the bind group layouts indexed by group
	//   - layout: the pipeline layout
	SetLayouts(groups []*wgpu.BindGroupLayout, layout *wgpu.PipelineLayout)

	// SetRenderPipeline sets the render pipeline
	//
	// Parameters:
	//   - p: the WebGPU render pipeline to set
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// SetComputePipeline sets the compute pipeline
	//
	// Parameters:
	//   - p: the WebGPU compute pipeline to set
	SetComputePipeline(p *wgpu.ComputePipeline)

	// Release frees the GPU objects held by the pipeline.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline interface. A PipelineType must be specified and provided upon creation.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified type and configuration
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:  pipelineKey,
		pipelineType: pipelineType,
		layouts:      make(map[uint32][]wgpu.BindGroupLayoutEntry),
		primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		writeMask:   wgpu.ColorWriteMaskAll,
		colorFormat: wgpu.TextureFormatBGRA8Unorm,
		sampleCount: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MergeLayoutEntries merges bind group layout entries by binding number. Entries with the
// same binding have their visibility ORed together; the first entry's type is kept.
//
// Parameters:
//   - existing: the entries collected so far
//   - incoming: the entries to merge in
//
// Returns:
//   - []wgpu.BindGroupLayoutEntry: the merged entries sorted by binding
func MergeLayoutEntries(existing []wgpu.BindGroupLayoutEntry, incoming ...wgpu.BindGroupLayoutEntry) []wgpu.BindGroupLayoutEntry {
	entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry, len(existing)+len(incoming))
	for _, e := range existing {
		entryMap[e.Binding] = e
	}
	for _, e := range incoming {
		if prev, ok := entryMap[e.Binding]; ok {
			prev.Visibility |= e.Visibility
			entryMap[e.Binding] = prev
		} else {
			entryMap[e.Binding] = e
		}
	}

	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
	for _, e := range entryMap {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Binding < entries[j].Binding
	})
	return entries
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Pipeline() any {
	switch p.pipelineType {
	case PipelineTypeRender:
		return p.renderPipeline
	case PipelineTypeCompute:
		return p.computePipeline
	default:
		return nil
	}
}

func (p *pipeline) Groups() []uint32 {
	groups := make([]uint32, 0, len(p.layouts))
	for g := range p.layouts {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}

func (p *pipeline) BindGroupLayoutDescriptors() []wgpu.BindGroupLayoutDescriptor {
	groups := p.Groups()
	if len(groups) == 0 {
		return nil
	}
	descriptors := make([]wgpu.BindGroupLayoutDescriptor, groups[len(groups)-1]+1)
	for i := range descriptors {
		descriptors[i] = wgpu.BindGroupLayoutDescriptor{
			Label:   p.pipelineKey,
			Entries: p.layouts[uint32(i)],
		}
	}
	return descriptors
}

func (p *pipeline) LayoutEntries(group uint32) []wgpu.BindGroupLayoutEntry {
	return p.layouts[group]
}

func (p *pipeline) ComputeDescriptor(layout *wgpu.PipelineLayout) *wgpu.ComputePipelineDescriptor {
	if p.pipelineType != PipelineTypeCompute || p.compute == nil {
		return nil
	}
	return &wgpu.ComputePipelineDescriptor{
		Label:  p.pipelineKey + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     p.compute.Module,
			EntryPoint: p.compute.EntryPoint,
		},
	}
}

func (p *pipeline) RenderDescriptor(layout *wgpu.PipelineLayout) *wgpu.RenderPipelineDescriptor {
	if p.pipelineType != PipelineTypeRender || p.vertex == nil {
		return nil
	}
	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.pipelineKey + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     p.vertex.Module,
			EntryPoint: p.vertex.EntryPoint,
			Buffers:    p.vertexBuffers,
		},
		Primitive:    p.primitive,
		DepthStencil: p.depthStencil,
		Multisample: wgpu.MultisampleState{
			Count: p.sampleCount,
			Mask:  0xFFFFFFFF,
		},
	}
	if p.fragment != nil {
		desc.Fragment = &wgpu.FragmentState{
			Module:     p.fragment.Module,
			EntryPoint: p.fragment.EntryPoint,
			Targets: []wgpu.ColorTargetState{{
				Format:    p.colorFormat,
				WriteMask: p.writeMask,
				Blend:     p.blendState,
			}},
		}
	}
	return desc
}

func (p *pipeline) BindGroupLayout(group uint32) *wgpu.BindGroupLayout {
	if int(group) >= len(p.bindGroupLayouts) {
		return nil
	}
	return p.bindGroupLayouts[group]
}

func (p *pipeline) SetLayouts(groups []*wgpu.BindGroupLayout, layout *wgpu.PipelineLayout) {
	p.bindGroupLayouts = groups
	p.pipelineLayout = layout
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.computePipeline = cp
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	for _, l := range p.bindGroupLayouts {
		if l != nil {
			l.Release()
		}
	}
	p.bindGroupLayouts = nil
}
