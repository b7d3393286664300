package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestClassifyResource(t *testing.T) {
	tests := []struct {
		name      string
		space     string
		access    string
		typeName  string
		check     func(wgpu.BindGroupLayoutEntry) bool
		dimension wgpu.TextureViewDimension
	}{
		{
			name: "uniform", space: "uniform", typeName: "Params",
			check: func(e wgpu.BindGroupLayoutEntry) bool { return e.Buffer.Type == wgpu.BufferBindingTypeUniform },
		},
		{
			name: "storage read", space: "storage", typeName: "array<Particle>",
			check: func(e wgpu.BindGroupLayoutEntry) bool {
				return e.Buffer.Type == wgpu.BufferBindingTypeReadOnlyStorage
			},
		},
		{
			name: "storage read_write", space: "storage", access: "read_write", typeName: "array<Particle>",
			check: func(e wgpu.BindGroupLayoutEntry) bool { return e.Buffer.Type == wgpu.BufferBindingTypeStorage },
		},
		{
			name: "sampler", typeName: "sampler",
			check: func(e wgpu.BindGroupLayoutEntry) bool { return e.Sampler.Type == wgpu.SamplerBindingTypeFiltering },
		},
		{
			name: "comparison sampler", typeName: "sampler_comparison",
			check: func(e wgpu.BindGroupLayoutEntry) bool {
				return e.Sampler.Type == wgpu.SamplerBindingTypeComparison
			},
		},
		{
			name: "texture", typeName: "texture_2d_array<u32>",
			check: func(e wgpu.BindGroupLayoutEntry) bool {
				return e.Texture.SampleType == wgpu.TextureSampleTypeUint &&
					e.Texture.ViewDimension == wgpu.TextureViewDimension2DArray
			},
			dimension: wgpu.TextureViewDimension2DArray,
		},
		{
			name: "depth", typeName: "texture_depth_cube",
			check: func(e wgpu.BindGroupLayoutEntry) bool {
				return e.Texture.SampleType == wgpu.TextureSampleTypeDepth &&
					e.Texture.ViewDimension == wgpu.TextureViewDimensionCube
			},
			dimension: wgpu.TextureViewDimensionCube,
		},
		{
			name: "storage texture", typeName: "texture_storage_2d<rgba8unorm, write>",
			check: func(e wgpu.BindGroupLayoutEntry) bool {
				return e.StorageTexture.Format == wgpu.TextureFormatRGBA8Unorm &&
					e.StorageTexture.Access == wgpu.StorageTextureAccessWriteOnly &&
					e.StorageTexture.ViewDimension == wgpu.TextureViewDimension2D
			},
			dimension: wgpu.TextureViewDimension2D,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := classifyResource(3, tt.space, tt.access, tt.typeName)
			if e.Binding != 3 {
				t.Fatalf("Binding = %d, want 3", e.Binding)
			}
			if !tt.check(e) {
				t.Fatalf("unexpected entry %+v", e)
			}
			if got := textureDimension(tt.typeName); got != tt.dimension {
				t.Fatalf("textureDimension = %v, want %v", got, tt.dimension)
			}
		})
	}
}

func TestSplitTypeParams(t *testing.T) {
	base, params := splitTypeParams("texture_storage_2d<rgba8unorm, write>")
	if base != "texture_storage_2d" || params != "rgba8unorm, write" {
		t.Fatalf("got %q %q", base, params)
	}
	base, params = splitTypeParams("sampler")
	if base != "sampler" || params != "" {
		t.Fatalf("got %q %q", base, params)
	}
}

func TestRoundUpAlign(t *testing.T) {
	if roundUpAlign(16, 84) != 96 || roundUpAlign(16, 96) != 96 || roundUpAlign(0, 5) != 5 {
		t.Fatal("roundUpAlign mismatch")
	}
}
