package shader

import (
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/wgsl"
)

// sampledTextureInfo holds the view dimension and multisampled flag for a sampled texture type
type sampledTextureInfo struct {
	viewDimension wgpu.TextureViewDimension
	multisampled  bool
}

// wgslSampledTextureMap maps WGSL sampled texture base names to their view dimension and multisampled flag
var wgslSampledTextureMap = map[string]sampledTextureInfo{
	"texture_1d":                    {wgpu.TextureViewDimension1D, false},
	"texture_2d":                    {wgpu.TextureViewDimension2D, false},
	"texture_2d_array":              {wgpu.TextureViewDimension2DArray, false},
	"texture_3d":                    {wgpu.TextureViewDimension3D, false},
	"texture_cube":                  {wgpu.TextureViewDimensionCube, false},
	"texture_cube_array":            {wgpu.TextureViewDimensionCubeArray, false},
	"texture_multisampled_2d":       {wgpu.TextureViewDimension2D, true},
	"texture_depth_2d":              {wgpu.TextureViewDimension2D, false},
	"texture_depth_2d_array":        {wgpu.TextureViewDimension2DArray, false},
	"texture_depth_cube":            {wgpu.TextureViewDimensionCube, false},
	"texture_depth_cube_array":      {wgpu.TextureViewDimensionCubeArray, false},
	"texture_depth_multisampled_2d": {wgpu.TextureViewDimension2D, true},
}

// wgslStorageTextureDimMap maps WGSL storage texture base names to their view dimension
var wgslStorageTextureDimMap = map[string]wgpu.TextureViewDimension{
	"texture_storage_1d":       wgpu.TextureViewDimension1D,
	"texture_storage_2d":       wgpu.TextureViewDimension2D,
	"texture_storage_2d_array": wgpu.TextureViewDimension2DArray,
	"texture_storage_3d":       wgpu.TextureViewDimension3D,
}

var wgslSampleTypeMap = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var wgslStorageAccessMap = map[string]wgpu.StorageTextureAccess{
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read":       wgpu.StorageTextureAccessReadOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

// wgslTexelFormatMap covers the texel formats WGSL allows on storage textures.
var wgslTexelFormatMap = map[string]wgpu.TextureFormat{
	"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
	"rgba8snorm":  wgpu.TextureFormatRGBA8Snorm,
	"rgba8uint":   wgpu.TextureFormatRGBA8Uint,
	"rgba8sint":   wgpu.TextureFormatRGBA8Sint,
	"rgba16uint":  wgpu.TextureFormatRGBA16Uint,
	"rgba16sint":  wgpu.TextureFormatRGBA16Sint,
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"r32uint":     wgpu.TextureFormatR32Uint,
	"r32sint":     wgpu.TextureFormatR32Sint,
	"r32float":    wgpu.TextureFormatR32Float,
	"rg32uint":    wgpu.TextureFormatRG32Uint,
	"rg32sint":    wgpu.TextureFormatRG32Sint,
	"rg32float":   wgpu.TextureFormatRG32Float,
	"rgba32uint":  wgpu.TextureFormatRGBA32Uint,
	"rgba32sint":  wgpu.TextureFormatRGBA32Sint,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
	"bgra8unorm":  wgpu.TextureFormatBGRA8Unorm,
}

// classifyResource builds the bind group layout entry for a global resource declaration.
// Visibility is left for the caller, which knows every stage the binding is used from.
//
// Parameters:
//   - binding: the binding index from @binding(N)
//   - addressSpace: "uniform", "storage", or empty for handle types
//   - accessMode: the storage access mode, empty meaning read
//   - typeName: the WGSL type string (e.g. "Params", "texture_2d<f32>", "sampler")
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the layout entry for the resource
func classifyResource(binding uint32, addressSpace, accessMode, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding}

	switch addressSpace {
	case "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		return entry
	case "storage":
		if accessMode == "read_write" || accessMode == "write" {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		} else {
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		}
		return entry
	}

	switch {
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case typeName == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(typeName, "texture_storage_"):
		base, params := splitTypeParams(typeName)
		entry.StorageTexture.ViewDimension = wgslStorageTextureDimMap[base]
		parts := strings.SplitN(params, ",", 2)
		if format, ok := wgslTexelFormatMap[strings.TrimSpace(parts[0])]; ok {
			entry.StorageTexture.Format = format
		}
		if len(parts) == 2 {
			if access, ok := wgslStorageAccessMap[strings.TrimSpace(parts[1])]; ok {
				entry.StorageTexture.Access = access
			}
		}
	case strings.HasPrefix(typeName, "texture_depth_"):
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		if info, ok := wgslSampledTextureMap[typeName]; ok {
			entry.Texture.ViewDimension = info.viewDimension
			entry.Texture.Multisampled = info.multisampled
		}
	case strings.HasPrefix(typeName, "texture_"):
		base, param := splitTypeParams(typeName)
		if info, ok := wgslSampledTextureMap[base]; ok {
			entry.Texture.ViewDimension = info.viewDimension
			entry.Texture.Multisampled = info.multisampled
		}
		if st, ok := wgslSampleTypeMap[param]; ok {
			entry.Texture.SampleType = st
		}
	}

	return entry
}

// textureDimension resolves the view dimension of a texture type name. Non-texture
// types return the zero dimension.
func textureDimension(typeName string) wgpu.TextureViewDimension {
	base, _ := splitTypeParams(typeName)
	if info, ok := wgslSampledTextureMap[base]; ok {
		return info.viewDimension
	}
	if dim, ok := wgslStorageTextureDimMap[base]; ok {
		return dim
	}
	var undefined wgpu.TextureViewDimension
	return undefined
}

// splitTypeParams splits a WGSL parameterized type into its base name and parameter string.
// For "texture_2d<f32>" returns ("texture_2d", "f32").
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

// typeString renders a parsed WGSL type back to source form.
func typeString(t wgsl.Type) string {
	switch tt := t.(type) {
	case *wgsl.NamedType:
		if len(tt.TypeParams) == 0 {
			return tt.Name
		}
		params := make([]string, len(tt.TypeParams))
		for i, p := range tt.TypeParams {
			params[i] = typeString(p)
		}
		return tt.Name + "<" + strings.Join(params, ", ") + ">"
	case *wgsl.ArrayType:
		elem := typeString(tt.Element)
		if lit, ok := tt.Size.(*wgsl.Literal); ok {
			return "array<" + elem + ", " + lit.Value + ">"
		}
		return "array<" + elem + ">"
	case *wgsl.BindingArrayType:
		return "binding_array<" + typeString(tt.Element) + ">"
	case nil:
		return ""
	default:
		return "unknown"
	}
}

// roundUpAlign rounds value up to the next multiple of alignment.
// Alignment must be a power of two.
func roundUpAlign(alignment, value uint32) uint32 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// typeLayout returns the byte size and alignment of an IR type following WGSL host-shareable
// layout rules. Runtime-sized arrays report the size of a single element.
func typeLayout(module *ir.Module, handle ir.TypeHandle) (size, align uint32) {
	if int(handle) >= len(module.Types) {
		return 0, 1
	}
	switch inner := module.Types[handle].Inner.(type) {
	case ir.ScalarType:
		return scalarLayout(inner)
	case ir.AtomicType:
		return scalarLayout(inner.Scalar)
	case ir.VectorType:
		return vectorLayout(inner.Size, inner.Scalar)
	case ir.MatrixType:
		colSize, colAlign := vectorLayout(inner.Rows, inner.Scalar)
		stride := roundUpAlign(colAlign, colSize)
		return stride * uint32(inner.Columns), colAlign
	case ir.ArrayType:
		elemSize, elemAlign := typeLayout(module, inner.Base)
		stride := inner.Stride
		if stride == 0 {
			stride = roundUpAlign(elemAlign, elemSize)
		}
		if inner.Size.Constant == nil {
			return stride, elemAlign
		}
		return stride * *inner.Size.Constant, elemAlign
	case ir.StructType:
		var end, maxAlign uint32 = 0, 1
		for _, m := range inner.Members {
			mSize, mAlign := typeLayout(module, m.Type)
			if mAlign > maxAlign {
				maxAlign = mAlign
			}
			if m.Offset+mSize > end {
				end = m.Offset + mSize
			}
		}
		size := roundUpAlign(maxAlign, end)
		if inner.Span > size {
			size = inner.Span
		}
		return size, maxAlign
	}
	return 0, 1
}

func scalarLayout(s ir.ScalarType) (size, align uint32) {
	w := uint32(s.Width)
	if s.Kind == ir.ScalarBool || w == 0 {
		w = 4
	}
	return w, w
}

func vectorLayout(n ir.VectorSize, s ir.ScalarType) (size, align uint32) {
	w, _ := scalarLayout(s)
	size = w * uint32(n)
	if n == ir.Vec2 {
		return size, 2 * w
	}
	return size, 4 * w
}

// containsAtomic reports whether a type is or holds an atomic value.
func containsAtomic(module *ir.Module, handle ir.TypeHandle) bool {
	if int(handle) >= len(module.Types) {
		return false
	}
	switch inner := module.Types[handle].Inner.(type) {
	case ir.AtomicType:
		return true
	case ir.ArrayType:
		return containsAtomic(module, inner.Base)
	case ir.StructType:
		for _, m := range inner.Members {
			if containsAtomic(module, m.Type) {
				return true
			}
		}
	}
	return false
}
