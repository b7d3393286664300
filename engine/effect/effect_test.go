package effect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// fakeCompiler returns canned results per stage.
type fakeCompiler struct {
	results  map[shader.Stage]*shader.CompileResult
	errs     map[shader.Stage]error
	requests []shader.CompileRequest
	released bool
}

var _ shader.Compiler = &fakeCompiler{}

func newFakeCompiler() *fakeCompiler {
	return &fakeCompiler{
		results: make(map[shader.Stage]*shader.CompileResult),
		errs:    make(map[shader.Stage]error),
	}
}

func (f *fakeCompiler) with(stage shader.Stage, refl *shader.Reflection) *fakeCompiler {
	f.results[stage] = &shader.CompileResult{
		Stage:      stage,
		Profile:    shader.DefaultTargetProfile,
		EntryPoint: shader.EntryPoint(stage),
		Reflection: refl,
	}
	return f
}

func (f *fakeCompiler) Compile(path string, stage shader.Stage, profile shader.TargetProfile) (*shader.CompileResult, error) {
	f.requests = append(f.requests, shader.CompileRequest{Path: path, Stage: stage, Profile: profile})
	if err := f.errs[stage]; err != nil {
		return nil, err
	}
	r, ok := f.results[stage]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shader.ErrCompileFailed, path)
	}
	r.Path = path
	return r, nil
}

func (f *fakeCompiler) CompileSource(name, _ string, stage shader.Stage, profile shader.TargetProfile) (*shader.CompileResult, error) {
	return f.Compile(name, stage, profile)
}

func (f *fakeCompiler) CompileStages(requests []shader.CompileRequest) []shader.CompileOutcome {
	out := make([]shader.CompileOutcome, len(requests))
	for i, req := range requests {
		out[i].Request = req
		out[i].Result, out[i].Err = f.Compile(req.Path, req.Stage, req.Profile)
	}
	return out
}

func (f *fakeCompiler) SearchPaths() []string { return nil }
func (f *fakeCompiler) Release()              { f.released = true }

func cbResource(name string, group, binding, size uint32) shader.BoundResource {
	return shader.BoundResource{Name: name, Kind: shader.ResourceConstantBuffer, Slot: shader.Slot{Group: group, Binding: binding}, Size: size}
}

func vertexReflection() *shader.Reflection {
	return &shader.Reflection{
		EntryPoint: "VS",
		BoundResources: []shader.BoundResource{
			cbResource("Transform", 0, 0, 96),
			{Name: "heightMap", Kind: shader.ResourceTexture, Slot: shader.Slot{Binding: 3}, Dimension: wgpu.TextureViewDimension2D},
			{Name: "linear", Kind: shader.ResourceSampler, Slot: shader.Slot{Binding: 4}},
		},
		ConstantBuffers: []shader.ConstantBufferDesc{{
			Name: "Transform",
			Size: 96,
			Variables: []shader.VariableDesc{
				{Name: "mvp", Offset: 0, Size: 64},
				{Name: "tint", Offset: 64, Size: 16},
				{Name: "scale", Offset: 80, Size: 4},
			},
		}},
		InputParameters: []shader.SignatureParameter{
			{SemanticName: "position", Register: 0, Mask: shader.MaskRGB, ComponentType: shader.ComponentFloat32},
			{SemanticName: "uv", SemanticIndex: 1, Register: 1, Mask: shader.MaskRG, ComponentType: shader.ComponentFloat32},
		},
	}
}

func pixelReflection() *shader.Reflection {
	return &shader.Reflection{
		EntryPoint: "PS",
		BoundResources: []shader.BoundResource{
			cbResource("Transform", 0, 0, 96),
			cbResource("Material", 0, 1, 32),
			{Name: "albedo", Kind: shader.ResourceTexture, Slot: shader.Slot{Binding: 2}, Dimension: wgpu.TextureViewDimension2D},
			{Name: "heightMap", Kind: shader.ResourceTexture, Slot: shader.Slot{Binding: 3}, Dimension: wgpu.TextureViewDimension2D},
			{Name: "linear", Kind: shader.ResourceSampler, Slot: shader.Slot{Binding: 4}},
			{Name: "overdraw", Kind: shader.ResourceRWStructuredWithCounter, Slot: shader.Slot{Group: 1, Binding: 0}},
		},
		ConstantBuffers: []shader.ConstantBufferDesc{
			{
				Name: "Transform",
				Size: 96,
				Variables: []shader.VariableDesc{
					{Name: "mvp", Offset: 0, Size: 64},
					{Name: "tint", Offset: 64, Size: 16},
					{Name: "scale", Offset: 80, Size: 4},
				},
			},
			{
				Name: "Material",
				Slot: shader.Slot{Binding: 1},
				Size: 32,
				Variables: []shader.VariableDesc{
					{Name: "baseColor", Offset: 0, Size: 16},
					{Name: "roughness", Offset: 16, Size: 4},
				},
			},
		},
	}
}

func computeReflection() *shader.Reflection {
	return &shader.Reflection{
		EntryPoint: "CS",
		BoundResources: []shader.BoundResource{
			cbResource("Params", 0, 0, 16),
			{Name: "particlesIn", Kind: shader.ResourceStructured, Slot: shader.Slot{Binding: 1}},
			{Name: "particlesOut", Kind: shader.ResourceRWStructured, Slot: shader.Slot{Binding: 2}},
			{Name: "counter", Kind: shader.ResourceRWStructuredWithCounter, Slot: shader.Slot{Binding: 3}},
		},
		ConstantBuffers: []shader.ConstantBufferDesc{{
			Name:      "Params",
			Size:      16,
			Variables: []shader.VariableDesc{{Name: "count", Offset: 0, Size: 4}},
		}},
		ThreadGroupSize: [3]uint32{32, 1, 1},
	}
}

func graphicsDescriptor() Descriptor {
	return NewDescriptor(
		WithLabel("draw"),
		WithVertexShader("draw.wgsl"),
		WithPixelShader("draw.wgsl"),
		WithBlendState(AlphaBlendState()),
		WithDepthStencilState(DepthStencilState(wgpu.TextureFormatDepth24Plus)),
	)
}

func newGraphics(t *testing.T, options ...EffectBuilderOption) (GraphicsEffect, *devicetest.Recorder) {
	t.Helper()
	rec := devicetest.NewRecorder()
	compiler := newFakeCompiler().
		with(shader.StageVertex, vertexReflection()).
		with(shader.StagePixel, pixelReflection())
	e := NewGraphicsEffect(rec, compiler, graphicsDescriptor(), options...)
	t.Cleanup(e.Release)
	if err := e.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	return e, rec
}

func newCompute(t *testing.T, options ...EffectBuilderOption) (ComputeEffect, *devicetest.Recorder) {
	t.Helper()
	rec := devicetest.NewRecorder()
	compiler := newFakeCompiler().with(shader.StageCompute, computeReflection())
	e := NewComputeEffect(rec, compiler, NewDescriptor(WithLabel("simulate"), WithComputeShader("simulate.wgsl")), options...)
	t.Cleanup(e.Release)
	if err := e.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	return e, rec
}

func TestGraphicsEffectBuild(t *testing.T) {
	e, rec := newGraphics(t)

	if got := e.Stages(); got != shader.StageVertex|shader.StagePixel {
		t.Fatalf("Stages() = %v", got)
	}
	if len(rec.Shaders) != 2 {
		t.Fatalf("created %d shaders, want 2", len(rec.Shaders))
	}
	if e.Result(shader.StagePixel) == nil || e.Result(shader.StageCompute) != nil {
		t.Fatal("Result() does not match populated stages")
	}

	layout := e.InputLayout()
	if layout == nil {
		t.Fatal("InputLayout() = nil")
	}
	elements := layout.Elements()
	if len(elements) != 2 || elements[0].Format != wgpu.VertexFormatFloat32x3 || elements[1].Format != wgpu.VertexFormatFloat32x2 {
		t.Fatalf("input layout = %+v", elements)
	}
	if elements[1].InputSlot != 1 {
		t.Fatalf("uv input slot = %d, want 1", elements[1].InputSlot)
	}
}

func TestEmitGraphicsOrder(t *testing.T) {
	e, rec := newGraphics(t)
	tint, _ := e.QueryAccessor("tint")
	tint.SetFloatVector([]float32{1, 0.5, 0.25, 1})
	e.BindShaderResource("albedo", "albedo-view")
	e.BindSampler("linear", "linear-sampler")
	e.BindUnorderedAccess("overdraw", "overdraw-view")
	e.SetStencilRef(3)
	e.SetBlendFactor(0.5, 2, -1)

	if err := e.Emit(rec); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	want := []devicetest.Op{
		devicetest.OpSetShader, devicetest.OpSetShader,
		devicetest.OpMap, devicetest.OpUnmap,
		devicetest.OpSetConstantBuffers, devicetest.OpSetConstantBuffers, // Transform: vertex, pixel
		devicetest.OpSetConstantBuffers, // Material: pixel
		devicetest.OpSetShaderResources, devicetest.OpSetShaderResources,
		devicetest.OpSetSamplers,
		devicetest.OpSetRenderTargetUAVs,
		devicetest.OpSetInputLayout, devicetest.OpSetRasterizerState, devicetest.OpSetDepthStencil, devicetest.OpSetBlendState,
	}
	if got := rec.Ops(); !slices.Equal(got, want) {
		t.Fatalf("ops =\n%v\nwant\n%v", got, want)
	}

	c := rec.Calls
	if c[0].Stage != shader.StageVertex || c[1].Stage != shader.StagePixel {
		t.Errorf("shader stages = %v, %v", c[0].Stage, c[1].Stage)
	}
	if c[4].Stage != shader.StageVertex || c[5].Stage != shader.StagePixel || c[4].Buffer != c[5].Buffer {
		t.Errorf("Transform bound as %+v and %+v", c[4], c[5])
	}
	if c[6].Stage != shader.StagePixel || c[6].Slot != (shader.Slot{Binding: 1}) {
		t.Errorf("Material bound as %+v", c[6])
	}
	if c[7].Handles[0] != "albedo-view" || c[7].Stage != shader.StagePixel {
		t.Errorf("albedo bound as %+v", c[7])
	}
	if c[8].Handles[0] != nil || c[8].Stage != shader.StageVertex {
		t.Errorf("heightMap bound as %+v", c[8])
	}
	if c[9].Handles[0] != "linear-sampler" || c[9].Stage != shader.StageVertex {
		t.Errorf("linear bound as %+v", c[9])
	}
	if c[10].Handles[0] != "overdraw-view" || !slices.Equal(c[10].InitialCounts, []uint32{0}) {
		t.Errorf("overdraw bound as %+v", c[10])
	}
	if c[11].InputLayout == nil {
		t.Error("input layout not emitted")
	}
	if c[13].StencilRef != 3 || c[13].DepthStencil == nil {
		t.Errorf("depth stencil call = %+v", c[13])
	}
	if c[14].BlendFactor != [4]float32{0.5, 1, 0, 0} || c[14].SampleMask != 0xffffffff || c[14].Blend == nil {
		t.Errorf("blend call = %+v", c[14])
	}
}

func TestEmitUploadsOnlyWhenDirty(t *testing.T) {
	e, rec := newGraphics(t)
	tint, _ := e.QueryAccessor("tint")
	tint.SetFloatVector([]float32{1, 2, 3, 4})

	if err := e.Emit(rec); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	unmaps := rec.Filter(devicetest.OpUnmap)
	if len(unmaps) != 1 {
		t.Fatalf("unmaps = %d, want 1", len(unmaps))
	}
	if got := floatsAt(unmaps[0].Data, 64, 4); !slices.Equal(got, []float32{1, 2, 3, 4}) {
		t.Fatalf("uploaded tint = %v", got)
	}

	rec.Reset()
	if err := e.Emit(rec); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if n := len(rec.Filter(devicetest.OpMap)); n != 0 {
		t.Fatalf("clean emission mapped %d buffers", n)
	}
}

func TestEmitUnorderedAccessInitialCountOnce(t *testing.T) {
	e, rec := newCompute(t)

	emit := func() []devicetest.Call {
		rec.Reset()
		if err := e.Emit(rec); err != nil {
			t.Fatalf("Emit: %v", err)
		}
		return rec.Filter(devicetest.OpSetComputeUAVs)
	}

	first := emit()
	if len(first) != 2 {
		t.Fatalf("UAV calls = %d, want 2", len(first))
	}
	// particlesOut (binding 2) has no counter, counter (binding 3) does
	if first[0].InitialCounts != nil || !slices.Equal(first[1].InitialCounts, []uint32{0}) {
		t.Fatalf("first counts = %v, %v", first[0].InitialCounts, first[1].InitialCounts)
	}

	second := emit()
	if second[0].InitialCounts != nil || second[1].InitialCounts != nil {
		t.Fatalf("second counts = %v, %v", second[0].InitialCounts, second[1].InitialCounts)
	}

	if !e.ResetCounter("counter", 7) {
		t.Fatal("ResetCounter(counter) = false")
	}
	third := emit()
	if !slices.Equal(third[1].InitialCounts, []uint32{7}) {
		t.Fatalf("third counts = %v", third[1].InitialCounts)
	}
}

func TestComputeDispatch(t *testing.T) {
	e, rec := newCompute(t)
	if got := e.ThreadGroupSize(); got != [3]uint32{32, 1, 1} {
		t.Fatalf("ThreadGroupSize() = %v", got)
	}

	tests := []struct {
		x, y, z uint32
		want    [3]uint32
	}{
		{65, 1, 1, [3]uint32{3, 1, 1}},
		{64, 1, 1, [3]uint32{2, 1, 1}},
		{1, 4, 2, [3]uint32{1, 4, 2}},
		{0, 0, 0, [3]uint32{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d_%d", tt.x, tt.y, tt.z), func(t *testing.T) {
			rec.Reset()
			e.Dispatch(rec, tt.x, tt.y, tt.z)
			calls := rec.Filter(devicetest.OpDispatch)
			if len(calls) != 1 || calls[0].Groups != tt.want {
				t.Fatalf("dispatch = %+v, want %v", calls, tt.want)
			}
		})
	}
}

func TestComputeEmitHasNoFixedFunctionState(t *testing.T) {
	e, rec := newCompute(t)
	if err := e.Emit(rec); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	for _, op := range rec.Ops() {
		switch op {
		case devicetest.OpSetInputLayout, devicetest.OpSetRasterizerState, devicetest.OpSetDepthStencil, devicetest.OpSetBlendState:
			t.Fatalf("compute emission issued %s", op)
		}
	}
	shaders := rec.Filter(devicetest.OpSetShader)
	if len(shaders) != 1 || shaders[0].Stage != shader.StageCompute {
		t.Fatalf("shader calls = %+v", shaders)
	}
}

func TestUnknownNamesAreIgnored(t *testing.T) {
	e, rec := newGraphics(t)

	if a, ok := e.QueryAccessor("missing"); ok || a != nil {
		t.Fatalf("QueryAccessor(missing) = %v, %v", a, ok)
	}
	if e.BindShaderResource("missing", 1) || e.BindUnorderedAccess("missing", 1) || e.BindSampler("missing", 1) {
		t.Fatal("bind of an unknown name reported success")
	}
	if e.BindShaderResource("linear", 1) {
		t.Fatal("sampler name bound as a shader resource")
	}
	if e.ResetCounter("missing", 1) {
		t.Fatal("ResetCounter(missing) = true")
	}

	if err := e.Emit(rec); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	for _, c := range rec.Filter(devicetest.OpSetShaderResources) {
		if c.Handles[0] != nil {
			t.Fatalf("unexpected handle %v", c.Handles[0])
		}
	}
}

func TestTransmitConstantBufferBetweenEffects(t *testing.T) {
	src, _ := newGraphics(t)
	dst, rec := newGraphics(t)

	scale, _ := src.QueryAccessor("scale")
	scale.SetFloat(2.5)
	if !src.TransmitConstantBuffer(dst, "Transform") {
		t.Fatal("TransmitConstantBuffer = false")
	}
	cb, _ := dst.Table().ConstantBuffer("Transform")
	if !cb.Dirty() {
		t.Fatal("destination not marked dirty")
	}
	if got := floatsAt(cb.Bytes(), 80, 1); got[0] != 2.5 {
		t.Fatalf("destination scale = %v", got[0])
	}

	if err := dst.Emit(rec); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if n := len(rec.Filter(devicetest.OpUnmap)); n != 1 {
		t.Fatalf("destination uploads = %d, want 1", n)
	}

	if src.TransmitConstantBuffer(dst, "Missing") || src.TransmitConstantBuffer(nil, "Transform") {
		t.Fatal("transmit of a missing buffer reported success")
	}
}

func TestBlendFactorAndStencilRef(t *testing.T) {
	e, _ := newGraphics(t)
	if e.BlendFactor() != [4]float32{} || e.StencilRef() != 0 {
		t.Fatalf("defaults = %v, %d", e.BlendFactor(), e.StencilRef())
	}
	e.SetBlendFactor(0.1, 0.2, 0.3, 0.4, 0.9)
	if got := e.BlendFactor(); got != [4]float32{0.1, 0.2, 0.3, 0.4} {
		t.Fatalf("BlendFactor() = %v", got)
	}
	e.SetBlendFactor(1.5)
	if got := e.BlendFactor(); got != [4]float32{1, 0.2, 0.3, 0.4} {
		t.Fatalf("BlendFactor() after one value = %v", got)
	}
	e.SetStencilRef(0xff)
	if e.StencilRef() != 0xff {
		t.Fatalf("StencilRef() = %d", e.StencilRef())
	}
}

func TestCompileFailureContinues(t *testing.T) {
	rec := devicetest.NewRecorder()
	compiler := newFakeCompiler().with(shader.StageVertex, vertexReflection())
	compiler.errs[shader.StagePixel] = fmt.Errorf("%w: draw.wgsl (ps_5_1): boom", shader.ErrCompileFailed)

	e := NewGraphicsEffect(rec, compiler, graphicsDescriptor())
	defer e.Release()

	if !errors.Is(e.Err(), shader.ErrCompileFailed) {
		t.Fatalf("Err() = %v, want ErrCompileFailed", e.Err())
	}
	if e.Stages() != shader.StageVertex {
		t.Fatalf("Stages() = %v", e.Stages())
	}
	if _, ok := e.QueryAccessor("tint"); !ok {
		t.Fatal("vertex accessors missing")
	}
	if _, ok := e.QueryAccessor("roughness"); ok {
		t.Fatal("pixel accessor present after pixel failure")
	}
	cb, _ := e.Table().ConstantBuffer("Transform")
	if cb.Stages() != shader.StageVertex {
		t.Fatalf("Transform stages = %v", cb.Stages())
	}
}

func TestMissingReflectionContributesNothing(t *testing.T) {
	rec := devicetest.NewRecorder()
	compiler := newFakeCompiler().with(shader.StageCompute, nil)
	e := NewComputeEffect(rec, compiler, NewDescriptor(WithComputeShader("simulate.wgsl")))
	defer e.Release()

	if !errors.Is(e.Err(), shader.ErrNoReflection) {
		t.Fatalf("Err() = %v, want ErrNoReflection", e.Err())
	}
	if e.Stages() != shader.StageCompute {
		t.Fatalf("Stages() = %v", e.Stages())
	}
	if len(e.Table().ConstantBuffers()) != 0 || e.ThreadGroupSize() != [3]uint32{} {
		t.Fatal("stage without reflection populated the table")
	}
	e.Dispatch(rec, 5, 1, 1)
	if got := rec.Filter(devicetest.OpDispatch)[0].Groups; got != [3]uint32{5, 1, 1} {
		t.Fatalf("dispatch = %v", got)
	}
}

func TestShaderObjectFailure(t *testing.T) {
	rec := devicetest.NewRecorder()
	rec.FailShaders = shader.StagePixel
	compiler := newFakeCompiler().
		with(shader.StageVertex, vertexReflection()).
		with(shader.StagePixel, pixelReflection())

	e := NewGraphicsEffect(rec, compiler, graphicsDescriptor())
	defer e.Release()

	if !errors.Is(e.Err(), devicetest.ErrInjected) {
		t.Fatalf("Err() = %v", e.Err())
	}
	if e.Stages() != shader.StageVertex {
		t.Fatalf("Stages() = %v", e.Stages())
	}
	if _, ok := e.QueryAccessor("roughness"); !ok {
		t.Fatal("pixel reflection was not ingested")
	}
	if _, ok := e.Table().ShaderResource("albedo"); !ok {
		t.Fatal("pixel shader resource missing")
	}
}

func TestConstantBufferAllocationFailure(t *testing.T) {
	rec := devicetest.NewRecorder()
	rec.FailBuffers = true
	compiler := newFakeCompiler().with(shader.StageCompute, computeReflection())

	e := NewComputeEffect(rec, compiler, NewDescriptor(WithComputeShader("simulate.wgsl")))
	defer e.Release()

	if !errors.Is(e.Err(), devicetest.ErrInjected) {
		t.Fatalf("Err() = %v", e.Err())
	}
	if _, ok := e.QueryAccessor("count"); ok {
		t.Fatal("accessor created for an unallocated buffer")
	}
	if _, ok := e.Table().ReadWriteResource("counter"); !ok {
		t.Fatal("other resources missing after buffer failure")
	}
}

func TestGraphicsEffectIgnoresComputeStage(t *testing.T) {
	rec := devicetest.NewRecorder()
	compiler := newFakeCompiler().
		with(shader.StageVertex, vertexReflection()).
		with(shader.StageCompute, computeReflection())
	desc := NewDescriptor(WithVertexShader("draw.wgsl"), WithComputeShader("simulate.wgsl"))

	e := NewGraphicsEffect(rec, compiler, desc)
	defer e.Release()
	if e.Stages() != shader.StageVertex {
		t.Fatalf("Stages() = %v", e.Stages())
	}
	for _, req := range compiler.requests {
		if req.Stage == shader.StageCompute {
			t.Fatal("compute stage compiled by a graphics effect")
		}
	}
}

func TestDescriptorProfileReachesCompiler(t *testing.T) {
	rec := devicetest.NewRecorder()
	compiler := newFakeCompiler().with(shader.StageCompute, computeReflection())
	e := NewComputeEffect(rec, compiler, NewDescriptor(WithComputeShader("simulate.wgsl"), WithTargetProfile(shader.ShaderModel6_0)))
	defer e.Release()

	if len(compiler.requests) != 1 || compiler.requests[0].Profile != shader.ShaderModel6_0 || compiler.requests[0].Path != "simulate.wgsl" {
		t.Fatalf("requests = %+v", compiler.requests)
	}
}

func TestInitialData(t *testing.T) {
	initial := []byte{1, 0, 0, 0}
	e, rec := newCompute(t, WithInitialData("Params", initial))

	cb, _ := e.Table().ConstantBuffer("Params")
	if !cb.Dirty() || cb.Bytes()[0] != 1 {
		t.Fatalf("Params dirty=%v bytes=%v", cb.Dirty(), cb.Bytes())
	}
	if err := e.Emit(rec); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	unmaps := rec.Filter(devicetest.OpUnmap)
	if len(unmaps) != 1 || unmaps[0].Data[0] != 1 {
		t.Fatalf("unmaps = %+v", unmaps)
	}
}

func TestProfilerRecordsEmission(t *testing.T) {
	p := profiler.NewProfiler(profiler.WithInterval(time.Hour))
	e, rec := newCompute(t, WithProfiler(p))

	count, _ := e.QueryAccessor("count")
	count.SetUint(100)
	if err := e.Emit(rec); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	e.Dispatch(rec, 100, 1, 1)

	got := p.Snapshot()
	want := profiler.Stats{Emits: 1, Uploads: 1, UploadBytes: 16, Dispatches: 1, ThreadGroups: 4}
	if got != want {
		t.Fatalf("Snapshot() = %+v, want %+v", got, want)
	}
}

func TestReleaseFreesDeviceObjects(t *testing.T) {
	rec := devicetest.NewRecorder()
	compiler := newFakeCompiler().
		with(shader.StageVertex, vertexReflection()).
		with(shader.StagePixel, pixelReflection())
	e := NewGraphicsEffect(rec, compiler, graphicsDescriptor())
	e.Release()

	for _, s := range rec.Shaders {
		if !s.Released {
			t.Error("shader not released")
		}
	}
	for _, b := range rec.Buffers {
		if !b.Released {
			t.Errorf("buffer %s not released", b.Label())
		}
	}
	for _, l := range rec.Layouts {
		if !l.Released {
			t.Error("input layout not released")
		}
	}
}

func TestNilCollaboratorsPanic(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"device", func() { NewComputeEffect(nil, newFakeCompiler(), NewDescriptor()) }},
		{"compiler", func() { NewGraphicsEffect(devicetest.NewRecorder(), nil, NewDescriptor()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("no panic")
				}
			}()
			tt.fn()
		})
	}
}

const particleSource = `
struct Params {
    count: u32,
    gravity: f32,
}

struct Particle {
    position: vec4<f32>,
    velocity: vec4<f32>,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> particlesIn: array<Particle>;
@group(0) @binding(2) var<storage, read_write> particlesOut: array<Particle>;

@compute @workgroup_size(32, 1, 1)
fn CS(@builtin(global_invocation_id) id: vec3<u32>) {
    let i = id.x;
    if (i >= params.count) {
        return;
    }
    var p = particlesIn[i];
    p.velocity = p.velocity - vec4<f32>(0.0, params.gravity, 0.0, 0.0);
    p.position = p.position + p.velocity;
    particlesOut[i] = p;
}
`

func TestComputeEffectFromSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "particles.wgsl")
	if err := os.WriteFile(path, []byte(particleSource), 0o644); err != nil {
		t.Fatal(err)
	}
	compiler := shader.NewCompiler(shader.WithWorkers(1))
	t.Cleanup(compiler.Release)

	rec := devicetest.NewRecorder()
	e := NewComputeEffect(rec, compiler, NewDescriptor(WithLabel("particles"), WithComputeShader(path)))
	defer e.Release()
	if err := e.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	gravity, ok := e.QueryAccessor("gravity")
	if !ok || gravity.Offset() != 4 || gravity.Size() != 4 {
		t.Fatalf("gravity accessor = %v, %v", gravity, ok)
	}
	if _, ok := e.Table().ShaderResource("particlesIn"); !ok {
		t.Fatal("particlesIn missing")
	}
	out, ok := e.Table().ReadWriteResource("particlesOut")
	if !ok || out.Stage != shader.StageCompute || out.HasCounter {
		t.Fatalf("particlesOut = %+v, %v", out, ok)
	}

	gravity.SetFloat(9.8)
	if err := e.Emit(rec); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	e.Dispatch(rec, 65, 1, 1)
	if got := rec.Filter(devicetest.OpDispatch)[0].Groups; got != [3]uint32{3, 1, 1} {
		t.Fatalf("dispatch = %v", got)
	}
	if got := floatsAt(rec.Filter(devicetest.OpUnmap)[0].Data, 4, 1); got[0] != 9.8 {
		t.Fatalf("uploaded gravity = %v", got[0])
	}
}
