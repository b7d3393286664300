package shader

import "github.com/cogentcore/webgpu/wgpu"

// ResourceKind classifies a bound resource reported by reflection.
type ResourceKind int

const (
	ResourceConstantBuffer ResourceKind = iota

	// Shader-readable resources.
	ResourceTexture
	ResourceTypedBuffer
	ResourceStructured
	ResourceByteAddress

	// Read-write resources.
	ResourceRWTyped
	ResourceRWStructured
	ResourceRWByteAddress
	ResourceAppendStructured
	ResourceConsumeStructured
	ResourceRWStructuredWithCounter

	ResourceSampler
)

var resourceKindNames = map[ResourceKind]string{
	ResourceConstantBuffer:          "cbuffer",
	ResourceTexture:                 "texture",
	ResourceTypedBuffer:             "typed_buffer",
	ResourceStructured:              "structured",
	ResourceByteAddress:             "byte_address",
	ResourceRWTyped:                 "rw_typed",
	ResourceRWStructured:            "rw_structured",
	ResourceRWByteAddress:           "rw_byte_address",
	ResourceAppendStructured:        "append_structured",
	ResourceConsumeStructured:       "consume_structured",
	ResourceRWStructuredWithCounter: "rw_structured_with_counter",
	ResourceSampler:                 "sampler",
}

func (k ResourceKind) String() string {
	if name, ok := resourceKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsShaderReadable reports whether the kind binds as a read-only shader resource.
func (k ResourceKind) IsShaderReadable() bool {
	return k >= ResourceTexture && k <= ResourceByteAddress
}

// IsReadWrite reports whether the kind binds as an unordered-access resource.
func (k ResourceKind) IsReadWrite() bool {
	return k >= ResourceRWTyped && k <= ResourceRWStructuredWithCounter
}

// HasCounter reports whether the kind carries a hidden counter that accepts an initial count.
func (k ResourceKind) HasCounter() bool {
	switch k {
	case ResourceAppendStructured, ResourceConsumeStructured, ResourceRWStructuredWithCounter:
		return true
	}
	return false
}

// Slot is a binding location assigned by reflection. Group is the register space or
// bind group, Binding the register index within it.
type Slot struct {
	Group   uint32
	Binding uint32
}

// Less orders slots by group, then binding.
func (s Slot) Less(other Slot) bool {
	if s.Group != other.Group {
		return s.Group < other.Group
	}
	return s.Binding < other.Binding
}

// BoundResource is one shader-visible binding.
type BoundResource struct {
	Name string
	Kind ResourceKind
	Slot Slot

	// Dimension is the view dimension for textures; zero for buffers and samplers.
	Dimension wgpu.TextureViewDimension

	// TypeName is the declared source type, e.g. "texture_2d<f32>" or "Params".
	TypeName string

	// Size is the byte size of buffer resources. For runtime-sized arrays it is one element.
	Size uint32

	// Layout is the bind group layout entry for this binding with no visibility set.
	Layout wgpu.BindGroupLayoutEntry
}

// VariableDesc is one field of a constant buffer.
type VariableDesc struct {
	Name   string
	Offset uint32
	Size   uint32
}

// ConstantBufferDesc describes a constant buffer's layout.
type ConstantBufferDesc struct {
	Name      string
	Slot      Slot
	Size      uint32
	Variables []VariableDesc
}

// ComponentMask marks which of the four vector components a signature element uses.
type ComponentMask uint8

const (
	MaskR    ComponentMask = 0x1
	MaskRG   ComponentMask = 0x3
	MaskRGB  ComponentMask = 0x7
	MaskRGBA ComponentMask = 0xf
)

// ComponentType is the scalar type of a signature element.
type ComponentType int

const (
	ComponentUnknown ComponentType = iota
	ComponentUint32
	ComponentSint32
	ComponentFloat32
)

var componentTypeNames = map[ComponentType]string{
	ComponentUnknown: "unknown",
	ComponentUint32:  "uint32",
	ComponentSint32:  "sint32",
	ComponentFloat32: "float32",
}

func (c ComponentType) String() string {
	if name, ok := componentTypeNames[c]; ok {
		return name
	}
	return "unknown"
}

// SignatureParameter is one element of a stage's input signature.
type SignatureParameter struct {
	SemanticName  string
	SemanticIndex uint32
	Register      uint32
	Mask          ComponentMask
	ComponentType ComponentType
}

// Reflection is the metadata describing a compiled stage's resource interface.
type Reflection struct {
	EntryPoint      string
	BoundResources  []BoundResource
	ConstantBuffers []ConstantBufferDesc
	InputParameters []SignatureParameter

	// ThreadGroupSize is only meaningful for compute stages.
	ThreadGroupSize [3]uint32
}

// ConstantBuffer fetches a constant buffer description by name.
//
// Parameters:
//   - name: the constant buffer name as declared in the source
//
// Returns:
//   - *ConstantBufferDesc: the description, or nil if absent
//   - bool: whether it was found
func (r *Reflection) ConstantBuffer(name string) (*ConstantBufferDesc, bool) {
	for i := range r.ConstantBuffers {
		if r.ConstantBuffers[i].Name == name {
			return &r.ConstantBuffers[i], true
		}
	}
	return nil, false
}
