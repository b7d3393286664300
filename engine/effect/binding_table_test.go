package effect

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

func TestIngestMergesConstantBufferStages(t *testing.T) {
	rec := devicetest.NewRecorder()
	table := NewBindingTable(rec, "draw")

	if err := table.Ingest(shader.StageVertex, vertexReflection()); err != nil {
		t.Fatalf("Ingest vertex: %v", err)
	}
	if err := table.Ingest(shader.StagePixel, pixelReflection()); err != nil {
		t.Fatalf("Ingest pixel: %v", err)
	}

	if len(rec.Buffers) != 2 {
		t.Fatalf("allocated %d device buffers, want 2", len(rec.Buffers))
	}
	transform, ok := table.ConstantBuffer("Transform")
	if !ok {
		t.Fatal("Transform missing")
	}
	if transform.Stages() != shader.StageVertex|shader.StagePixel || transform.Size() != 96 {
		t.Fatalf("Transform stages=%v size=%d", transform.Stages(), transform.Size())
	}
	material, _ := table.ConstantBuffer("Material")
	if material.Stages() != shader.StagePixel {
		t.Fatalf("Material stages = %v", material.Stages())
	}

	for _, name := range []string{"mvp", "tint", "scale", "baseColor", "roughness"} {
		if _, ok := table.QueryAccessor(name); !ok {
			t.Errorf("accessor %q missing", name)
		}
	}
	if got := len(table.Accessors()); got != 5 {
		t.Fatalf("accessors = %d, want 5", got)
	}
	roughness, _ := table.QueryAccessor("roughness")
	if roughness.ConstantBuffer() != material || roughness.Offset() != 16 {
		t.Fatalf("roughness = %+v", roughness)
	}
}

func TestIngestUnionsConstantBufferVariables(t *testing.T) {
	rec := devicetest.NewRecorder()
	table := NewBindingTable(rec, "camera")

	vertex := &shader.Reflection{
		BoundResources: []shader.BoundResource{cbResource("Camera", 0, 0, 80)},
		ConstantBuffers: []shader.ConstantBufferDesc{{
			Name: "Camera", Size: 80,
			Variables: []shader.VariableDesc{{Name: "view", Offset: 0, Size: 64}},
		}},
	}
	pixel := &shader.Reflection{
		BoundResources: []shader.BoundResource{cbResource("Camera", 0, 0, 80)},
		ConstantBuffers: []shader.ConstantBufferDesc{{
			Name: "Camera", Size: 80,
			Variables: []shader.VariableDesc{
				{Name: "view", Offset: 0, Size: 32},
				{Name: "eye", Offset: 64, Size: 12},
				{Name: "past", Offset: 76, Size: 16},
			},
		}},
	}
	if err := table.Ingest(shader.StageVertex, vertex); err != nil {
		t.Fatalf("Ingest vertex: %v", err)
	}
	if err := table.Ingest(shader.StagePixel, pixel); err != nil {
		t.Fatalf("Ingest pixel: %v", err)
	}

	if len(rec.Buffers) != 1 {
		t.Fatalf("allocated %d device buffers, want 1", len(rec.Buffers))
	}
	if got := len(table.Accessors()); got != 3 {
		t.Fatalf("accessors = %d, want 3", got)
	}
	camera, _ := table.ConstantBuffer("Camera")
	if camera.Stages() != shader.StageVertex|shader.StagePixel {
		t.Fatalf("Camera stages = %v", camera.Stages())
	}

	eye, ok := table.QueryAccessor("eye")
	if !ok {
		t.Fatal("accessor for a field only the pixel stage declares is missing")
	}
	if eye.ConstantBuffer() != camera || eye.Offset() != 64 || eye.Size() != 12 {
		t.Fatalf("eye offset=%d size=%d", eye.Offset(), eye.Size())
	}
	view, _ := table.QueryAccessor("view")
	if view.Size() != 64 {
		t.Fatalf("view size = %d, want the first stage's 64", view.Size())
	}
	past, _ := table.QueryAccessor("past")
	if past.Offset() != 76 || past.Size() != 4 {
		t.Fatalf("past offset=%d size=%d, want clamped to 76/4", past.Offset(), past.Size())
	}
}

func TestIngestFirstStageWins(t *testing.T) {
	rec := devicetest.NewRecorder()
	table := NewBindingTable(rec, "draw")
	table.Ingest(shader.StageVertex, vertexReflection())
	table.Ingest(shader.StagePixel, pixelReflection())

	height, _ := table.ShaderResource("heightMap")
	if height.Stage != shader.StageVertex {
		t.Fatalf("heightMap stage = %v, want vertex", height.Stage)
	}
	sampler, _ := table.Sampler("linear")
	if sampler.Stage != shader.StageVertex {
		t.Fatalf("linear stage = %v, want vertex", sampler.Stage)
	}
	albedo, _ := table.ShaderResource("albedo")
	if albedo.Stage != shader.StagePixel || albedo.Kind != shader.ResourceTexture {
		t.Fatalf("albedo = %+v", albedo)
	}
	overdraw, _ := table.ReadWriteResource("overdraw")
	if overdraw.Stage != shader.StagePixel || !overdraw.HasCounter || !overdraw.NeedsInitialCount() {
		t.Fatalf("overdraw = %+v", overdraw)
	}
}

func TestIngestReadWriteKinds(t *testing.T) {
	rec := devicetest.NewRecorder()
	table := NewBindingTable(rec, "simulate")
	table.Ingest(shader.StageCompute, computeReflection())

	out, _ := table.ReadWriteResource("particlesOut")
	if out.HasCounter || out.NeedsInitialCount() {
		t.Fatalf("particlesOut = %+v", out)
	}
	counter, _ := table.ReadWriteResource("counter")
	if !counter.HasCounter || counter.InitialCount != 0 || !counter.NeedsInitialCount() {
		t.Fatalf("counter = %+v", counter)
	}
	if !table.ResetCounter("particlesOut", 5) || out.NeedsInitialCount() || out.needsInitialCount {
		t.Fatalf("reset armed a resource without a counter: %+v", out)
	}
	in, ok := table.ShaderResource("particlesIn")
	if !ok || in.Kind != shader.ResourceStructured || in.Handle != nil {
		t.Fatalf("particlesIn = %+v", in)
	}
}

func TestIngestNilReflection(t *testing.T) {
	table := NewBindingTable(devicetest.NewRecorder(), "x")
	if err := table.Ingest(shader.StagePixel, nil); !errors.Is(err, shader.ErrNoReflection) {
		t.Fatalf("err = %v", err)
	}
}

func TestIngestCollisionKeepsFirstEntry(t *testing.T) {
	rec := devicetest.NewRecorder()
	table := NewBindingTable(rec, "x")

	// plant an entry under the key of "gBuffer" as though another name hashed there
	planted := &SamplerBinding{Name: "shadowSampler", Stage: shader.StageVertex}
	table.samplers[common.StringToID("gBuffer")] = planted

	refl := &shader.Reflection{BoundResources: []shader.BoundResource{
		{Name: "gBuffer", Kind: shader.ResourceSampler, Slot: shader.Slot{Binding: 1}},
	}}
	if err := table.Ingest(shader.StagePixel, refl); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if table.samplers[common.StringToID("gBuffer")] != planted {
		t.Fatal("colliding entry replaced the first one")
	}
	if _, ok := table.Sampler("gBuffer"); ok {
		t.Fatal("lookup matched an entry with a different name")
	}
	if table.BindSampler("gBuffer", 1) {
		t.Fatal("bind through a colliding key succeeded")
	}
}

func TestIngestConstantBufferCollisionAddsNoStage(t *testing.T) {
	rec := devicetest.NewRecorder()
	table := NewBindingTable(rec, "x")
	table.Ingest(shader.StageVertex, vertexReflection())

	transform := table.constantBuffers[common.StringToID("Transform")]
	table.constantBuffers[common.StringToID("Other")] = transform

	refl := &shader.Reflection{
		BoundResources:  []shader.BoundResource{cbResource("Other", 0, 5, 16)},
		ConstantBuffers: []shader.ConstantBufferDesc{{Name: "Other", Size: 16}},
	}
	table.Ingest(shader.StagePixel, refl)
	if transform.Stages() != shader.StageVertex {
		t.Fatalf("Transform stages = %v", transform.Stages())
	}
}

func TestEmissionOrderIsBySlot(t *testing.T) {
	rec := devicetest.NewRecorder()
	table := NewBindingTable(rec, "x")
	refl := &shader.Reflection{BoundResources: []shader.BoundResource{
		{Name: "c", Kind: shader.ResourceTexture, Slot: shader.Slot{Group: 1, Binding: 0}},
		{Name: "b", Kind: shader.ResourceTexture, Slot: shader.Slot{Group: 0, Binding: 7}},
		{Name: "a", Kind: shader.ResourceTexture, Slot: shader.Slot{Group: 0, Binding: 7}},
		{Name: "d", Kind: shader.ResourceTexture, Slot: shader.Slot{Group: 0, Binding: 2}},
	}}
	table.Ingest(shader.StagePixel, refl)

	var names []string
	for _, r := range table.ShaderResources() {
		names = append(names, r.Name)
	}
	want := []string{"d", "a", "b", "c"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}
}

func TestTransmitToBetweenTables(t *testing.T) {
	rec := devicetest.NewRecorder()
	big := NewBindingTable(rec, "big")
	small := NewBindingTable(rec, "small")
	big.Ingest(shader.StageCompute, &shader.Reflection{
		BoundResources:  []shader.BoundResource{cbResource("Shared", 0, 0, 64)},
		ConstantBuffers: []shader.ConstantBufferDesc{{Name: "Shared", Size: 64, Variables: []shader.VariableDesc{{Name: "blob", Size: 64}}}},
	})
	small.Ingest(shader.StageCompute, &shader.Reflection{
		BoundResources:  []shader.BoundResource{cbResource("Shared", 0, 0, 48)},
		ConstantBuffers: []shader.ConstantBufferDesc{{Name: "Shared", Size: 48}},
	})

	blob, _ := big.QueryAccessor("blob")
	data := make([]byte, 64)
	for i := range data {
		data[i] = 0xab
	}
	blob.SetRaw(data, 0, 64)

	if !big.TransmitTo(small, "Shared") {
		t.Fatal("TransmitTo = false")
	}
	dst, _ := small.ConstantBuffer("Shared")
	if !dst.Dirty() {
		t.Fatal("destination not dirty")
	}
	for i, b := range dst.Bytes() {
		if b != 0xab {
			t.Fatalf("byte %d = %#x", i, b)
		}
	}
	if big.TransmitTo(nil, "Shared") || big.TransmitTo(small, "Missing") {
		t.Fatal("TransmitTo succeeded without a destination buffer")
	}
}
