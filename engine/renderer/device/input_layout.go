package device

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// InputElement is one element of an input layout. Each element reads from its own vertex
// buffer slot at offset zero.
type InputElement struct {
	SemanticName  string
	SemanticIndex uint32
	Format        wgpu.VertexFormat

	// Size is the byte size of one element of Format.
	Size uint64

	// InputSlot is the vertex buffer slot, assigned in signature order.
	InputSlot uint32

	// Location is the shader input register the element feeds.
	Location uint32
}

// vertexFormatInfo holds the wgpu vertex format and its byte size for stride calculation
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

type formatKey struct {
	mask          shader.ComponentMask
	componentType shader.ComponentType
}

// vertexFormatMap maps a signature element's component mask and type to its vertex format.
var vertexFormatMap = map[formatKey]vertexFormatInfo{
	{shader.MaskR, shader.ComponentUint32}:     {wgpu.VertexFormatUint32, 4},
	{shader.MaskR, shader.ComponentSint32}:     {wgpu.VertexFormatSint32, 4},
	{shader.MaskR, shader.ComponentFloat32}:    {wgpu.VertexFormatFloat32, 4},
	{shader.MaskRG, shader.ComponentUint32}:    {wgpu.VertexFormatUint32x2, 8},
	{shader.MaskRG, shader.ComponentSint32}:    {wgpu.VertexFormatSint32x2, 8},
	{shader.MaskRG, shader.ComponentFloat32}:   {wgpu.VertexFormatFloat32x2, 8},
	{shader.MaskRGB, shader.ComponentUint32}:   {wgpu.VertexFormatUint32x3, 12},
	{shader.MaskRGB, shader.ComponentSint32}:   {wgpu.VertexFormatSint32x3, 12},
	{shader.MaskRGB, shader.ComponentFloat32}:  {wgpu.VertexFormatFloat32x3, 12},
	{shader.MaskRGBA, shader.ComponentUint32}:  {wgpu.VertexFormatUint32x4, 16},
	{shader.MaskRGBA, shader.ComponentSint32}:  {wgpu.VertexFormatSint32x4, 16},
	{shader.MaskRGBA, shader.ComponentFloat32}: {wgpu.VertexFormatFloat32x4, 16},
}

// ErrUnmappedInputFormat is reported for a signature element with no vertex format.
var ErrUnmappedInputFormat = errors.New("no vertex format for input element")

// InputLayoutFromSignature converts a vertex stage's input signature into layout elements.
// Elements whose mask and component type have no vertex format are left out and reported
// in the returned error; the remaining elements are still returned.
//
// Parameters:
//   - params: the input signature, in declaration order
//
// Returns:
//   - []InputElement: one element per mapped parameter, slot i for parameter i
//   - error: an error wrapping ErrUnmappedInputFormat for each unmapped parameter
func InputLayoutFromSignature(params []shader.SignatureParameter) ([]InputElement, error) {
	elements := make([]InputElement, 0, len(params))
	var errs []error
	for i, p := range params {
		info, ok := vertexFormatMap[formatKey{p.Mask, p.ComponentType}]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s%d (mask %#x, %s)",
				ErrUnmappedInputFormat, p.SemanticName, p.SemanticIndex, uint8(p.Mask), p.ComponentType))
			continue
		}
		elements = append(elements, InputElement{
			SemanticName:  p.SemanticName,
			SemanticIndex: p.SemanticIndex,
			Format:        info.format,
			Size:          info.size,
			InputSlot:     uint32(i),
			Location:      p.Register,
		})
	}
	return elements, errors.Join(errs...)
}

// VertexBufferLayouts expands input elements into one wgpu vertex buffer layout per slot.
//
// Parameters:
//   - elements: the input layout elements
//
// Returns:
//   - []wgpu.VertexBufferLayout: layouts indexed by input slot
func VertexBufferLayouts(elements []InputElement) []wgpu.VertexBufferLayout {
	maxSlot := -1
	for _, e := range elements {
		if int(e.InputSlot) > maxSlot {
			maxSlot = int(e.InputSlot)
		}
	}
	layouts := make([]wgpu.VertexBufferLayout, maxSlot+1)
	for _, e := range elements {
		l := &layouts[e.InputSlot]
		l.StepMode = wgpu.VertexStepModeVertex
		l.ArrayStride += e.Size
		l.Attributes = append(l.Attributes, wgpu.VertexAttribute{
			Format:         e.Format,
			Offset:         0,
			ShaderLocation: e.Location,
		})
	}
	return layouts
}
