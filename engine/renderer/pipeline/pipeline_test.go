package pipeline

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func uniformEntry(binding uint32, visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
		Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
	}
}

func TestMergeLayoutEntries(t *testing.T) {
	merged := MergeLayoutEntries(
		[]wgpu.BindGroupLayoutEntry{uniformEntry(2, wgpu.ShaderStageVertex), uniformEntry(0, wgpu.ShaderStageVertex)},
		uniformEntry(0, wgpu.ShaderStageFragment),
		uniformEntry(1, wgpu.ShaderStageFragment),
	)
	if len(merged) != 3 {
		t.Fatalf("len = %d, want 3", len(merged))
	}
	for i, e := range merged {
		if e.Binding != uint32(i) {
			t.Fatalf("entries not sorted: %+v", merged)
		}
	}
	if merged[0].Visibility != wgpu.ShaderStageVertex|wgpu.ShaderStageFragment {
		t.Fatalf("binding 0 visibility = %v", merged[0].Visibility)
	}
	if merged[1].Visibility != wgpu.ShaderStageFragment || merged[2].Visibility != wgpu.ShaderStageVertex {
		t.Fatalf("merged = %+v", merged)
	}
}

func TestBindGroupLayoutDescriptorsFillGaps(t *testing.T) {
	p := NewPipeline("simulate", PipelineTypeCompute,
		WithLayoutEntries(2, uniformEntry(0, wgpu.ShaderStageCompute)),
		WithLayoutEntries(0, uniformEntry(1, wgpu.ShaderStageCompute)),
	)

	if got := p.Groups(); len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Fatalf("Groups() = %v", got)
	}
	descs := p.BindGroupLayoutDescriptors()
	if len(descs) != 3 {
		t.Fatalf("descriptors = %d, want 3", len(descs))
	}
	if len(descs[1].Entries) != 0 || len(descs[0].Entries) != 1 || len(descs[2].Entries) != 1 {
		t.Fatalf("descriptors = %+v", descs)
	}
	if p.BindGroupLayout(0) != nil {
		t.Fatal("layout present before registration")
	}
}

func TestComputeDescriptor(t *testing.T) {
	p := NewPipeline("simulate", PipelineTypeCompute, WithComputeStage(nil, "CS"))
	desc := p.ComputeDescriptor(nil)
	if desc == nil || desc.Compute.EntryPoint != "CS" || desc.Label != "simulate Compute Pipeline" {
		t.Fatalf("ComputeDescriptor = %+v", desc)
	}
	if p.RenderDescriptor(nil) != nil {
		t.Fatal("compute pipeline produced a render descriptor")
	}
	if p.Pipeline().(*wgpu.ComputePipeline) != nil {
		t.Fatal("pipeline object set before registration")
	}
}

func TestRenderDescriptor(t *testing.T) {
	blend := &wgpu.BlendState{}
	buffers := []wgpu.VertexBufferLayout{{ArrayStride: 12}}
	p := NewPipeline("draw", PipelineTypeRender,
		WithVertexStage(nil, "VS", buffers),
		WithFragmentStage(nil, "PS"),
		WithBlendState(blend),
		WithColorFormat(wgpu.TextureFormatRGBA8Unorm),
		WithSampleCount(4),
		WithPrimitiveState(wgpu.PrimitiveState{Topology: wgpu.PrimitiveTopologyLineList, CullMode: wgpu.CullModeBack}),
	)

	desc := p.RenderDescriptor(nil)
	if desc == nil {
		t.Fatal("RenderDescriptor = nil")
	}
	if desc.Vertex.EntryPoint != "VS" || len(desc.Vertex.Buffers) != 1 {
		t.Fatalf("vertex = %+v", desc.Vertex)
	}
	if desc.Fragment == nil || desc.Fragment.EntryPoint != "PS" {
		t.Fatalf("fragment = %+v", desc.Fragment)
	}
	target := desc.Fragment.Targets[0]
	if target.Blend != blend || target.Format != wgpu.TextureFormatRGBA8Unorm || target.WriteMask != wgpu.ColorWriteMaskAll {
		t.Fatalf("target = %+v", target)
	}
	if desc.Multisample.Count != 4 || desc.Primitive.Topology != wgpu.PrimitiveTopologyLineList {
		t.Fatalf("descriptor = %+v", desc)
	}
	if desc.DepthStencil != nil {
		t.Fatal("depth stencil set without an option")
	}
	if p.ComputeDescriptor(nil) != nil {
		t.Fatal("render pipeline produced a compute descriptor")
	}
}

func TestRenderDescriptorWithoutFragment(t *testing.T) {
	p := NewPipeline("depth-only", PipelineTypeRender, WithVertexStage(nil, "VS", nil))
	desc := p.RenderDescriptor(nil)
	if desc == nil || desc.Fragment != nil {
		t.Fatalf("descriptor = %+v", desc)
	}
}
