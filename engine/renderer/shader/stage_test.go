package shader

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestTarget(t *testing.T) {
	tests := []struct {
		stage   Stage
		profile TargetProfile
		want    string
	}{
		{StageVertex, ShaderModel5_0, "vs_5_0"},
		{StageHull, ShaderModel5_0, "hs_5_0"},
		{StageDomain, ShaderModel5_1, "ds_5_1"},
		{StageGeometry, ShaderModel5_1, "gs_5_1"},
		{StagePixel, ShaderModel6_0, "ps_6_0"},
		{StageCompute, ShaderModel6_0, "cs_6_0"},
		{StageCompute, ShaderModel5_1, "cs_5_1"},
	}
	for _, tt := range tests {
		got, err := Target(tt.stage, tt.profile)
		if err != nil {
			t.Errorf("Target(%s, %#x): %v", tt.stage, uint32(tt.profile), err)
			continue
		}
		if got != tt.want {
			t.Errorf("Target(%s, %#x) = %q, want %q", tt.stage, uint32(tt.profile), got, tt.want)
		}
	}
}

func TestTargetUnmapped(t *testing.T) {
	if _, err := Target(StageVertex, ShaderModel6_6); !errors.Is(err, ErrUnmappedTarget) {
		t.Fatalf("err = %v, want ErrUnmappedTarget", err)
	}
	if _, err := Target(StageVertex|StagePixel, ShaderModel5_0); !errors.Is(err, ErrUnmappedTarget) {
		t.Fatalf("err = %v, want ErrUnmappedTarget for multi-stage value", err)
	}
}

func TestEntryPoint(t *testing.T) {
	want := map[Stage]string{
		StageVertex: "VS", StageHull: "HS", StageDomain: "DS",
		StageGeometry: "GS", StagePixel: "PS", StageCompute: "CS",
	}
	for s, name := range want {
		if got := EntryPoint(s); got != name {
			t.Errorf("EntryPoint(%s) = %q, want %q", s, got, name)
		}
	}
	if EntryPoint(StageVertex|StagePixel) != "" {
		t.Error("multi-stage value should have no entry point")
	}
}

func TestStageBits(t *testing.T) {
	s := StageVertex | StagePixel
	if !s.Has(StagePixel) || s.Has(StageCompute) || s.Has(0) {
		t.Fatalf("Has mismatch for %s", s)
	}
	each := s.Each()
	if len(each) != 2 || each[0] != StageVertex || each[1] != StagePixel {
		t.Fatalf("Each() = %v", each)
	}
	if s.String() != "vertex|pixel" {
		t.Fatalf("String() = %q", s.String())
	}
	if v := s.Visibility(); v != wgpu.ShaderStageVertex|wgpu.ShaderStageFragment {
		t.Fatalf("Visibility() = %v", v)
	}
	if v := StageHull.Visibility(); v != wgpu.ShaderStageNone {
		t.Fatalf("hull visibility = %v, want none", v)
	}
}

func TestResourceKindClasses(t *testing.T) {
	readable := []ResourceKind{ResourceTexture, ResourceTypedBuffer, ResourceStructured, ResourceByteAddress}
	for _, k := range readable {
		if !k.IsShaderReadable() || k.IsReadWrite() {
			t.Errorf("%s misclassified", k)
		}
	}
	rw := []ResourceKind{ResourceRWTyped, ResourceRWStructured, ResourceRWByteAddress,
		ResourceAppendStructured, ResourceConsumeStructured, ResourceRWStructuredWithCounter}
	for _, k := range rw {
		if !k.IsReadWrite() || k.IsShaderReadable() {
			t.Errorf("%s misclassified", k)
		}
	}
	for _, k := range []ResourceKind{ResourceConstantBuffer, ResourceSampler} {
		if k.IsReadWrite() || k.IsShaderReadable() {
			t.Errorf("%s misclassified", k)
		}
	}
	if !ResourceAppendStructured.HasCounter() || ResourceRWStructured.HasCounter() {
		t.Error("HasCounter mismatch")
	}
}
