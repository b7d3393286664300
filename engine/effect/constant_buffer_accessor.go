package effect

import "github.com/Carmen-Shannon/oxy-fx/common"

const (
	// registerStride is the byte distance between matrix rows in a constant buffer.
	registerStride = 16

	// maxMatrixBytes bounds a matrix write to four registers.
	maxMatrixBytes = 64

	maxMatrixDim = 4
	maxVectorLen = 4
	scalarSize   = 4
)

// constantBufferAccessor is the implementation of the ConstantBufferAccessor interface.
type constantBufferAccessor struct {
	name   string
	offset uint32
	size   uint32
	buffer *constantBuffer
}

// ConstantBufferAccessor writes one named field of a constant buffer. Every write is
// clamped to the field's declared size and marks the owning buffer dirty.
type ConstantBufferAccessor interface {
	// Name returns the field name.
	Name() string

	// Offset returns the field's byte offset within its constant buffer.
	Offset() uint32

	// Size returns the field's declared byte size.
	Size() uint32

	// ConstantBuffer returns the buffer the field lives in.
	ConstantBuffer() ConstantBuffer

	// SetRaw copies bytes into the field. Nothing happens when data is nil or offset is past
	// the field. The copy is clamped to the rest of the field and to len(data).
	//
	// Parameters:
	//   - data: the source bytes
	//   - offset: the byte offset within the field
	//   - size: the number of bytes to copy
	SetRaw(data []byte, offset, size uint32)

	// SetMatrixBytes writes a rows x cols matrix of 4-byte elements, one 16-byte register per
	// row. Padding bytes between rows are left untouched. Dimensions outside 1..4 are ignored.
	//
	// Parameters:
	//   - data: row-major matrix elements, 4*cols bytes per row
	//   - rows: the row count
	//   - cols: the column count
	SetMatrixBytes(data []byte, rows, cols uint32)

	SetSintMatrix(values []int32, rows, cols uint32)
	SetUintMatrix(values []uint32, rows, cols uint32)
	SetFloatMatrix(values []float32, rows, cols uint32)

	// SetSintVector writes up to four components, clamped to the field size.
	SetSintVector(values []int32)
	SetUintVector(values []uint32)
	SetFloatVector(values []float32)

	SetSint(v int32)
	SetUint(v uint32)
	SetFloat(v float32)
}

var _ ConstantBufferAccessor = &constantBufferAccessor{}

// newConstantBufferAccessor creates an accessor for a field, clamping it to the buffer.
func newConstantBufferAccessor(name string, offset, size uint32, buffer *constantBuffer) *constantBufferAccessor {
	total := buffer.Size()
	if offset > total {
		offset = total
	}
	if size > total-offset {
		size = total - offset
	}
	return &constantBufferAccessor{
		name:   name,
		offset: offset,
		size:   size,
		buffer: buffer,
	}
}

func (a *constantBufferAccessor) Name() string {
	return a.name
}

func (a *constantBufferAccessor) Offset() uint32 {
	return a.offset
}

func (a *constantBufferAccessor) Size() uint32 {
	return a.size
}

func (a *constantBufferAccessor) ConstantBuffer() ConstantBuffer {
	return a.buffer
}

func (a *constantBufferAccessor) SetRaw(data []byte, offset, size uint32) {
	if data == nil || offset > a.size {
		return
	}
	size = min(size, a.size-offset, uint32(len(data)))
	a.buffer.write(a.offset+offset, data[:size])
}

func (a *constantBufferAccessor) SetMatrixBytes(data []byte, rows, cols uint32) {
	if data == nil || rows == 0 || cols == 0 || rows > maxMatrixDim || cols > maxMatrixDim {
		return
	}

	remaining := min(a.size, maxMatrixBytes)
	dst := a.offset
	src := uint32(0)
	for row := uint32(0); row < rows && remaining > 0; row++ {
		if src >= uint32(len(data)) {
			break
		}
		pitch := min(scalarSize*cols, remaining, uint32(len(data))-src)
		copy(a.buffer.data[dst:dst+pitch], data[src:src+pitch])

		dst += registerStride
		src += scalarSize * cols
		if remaining < registerStride {
			remaining = 0
		} else {
			remaining -= registerStride
		}
	}
	a.buffer.dirty = true
}

func (a *constantBufferAccessor) SetSintMatrix(values []int32, rows, cols uint32) {
	a.SetMatrixBytes(common.SliceToBytes(values), rows, cols)
}

func (a *constantBufferAccessor) SetUintMatrix(values []uint32, rows, cols uint32) {
	a.SetMatrixBytes(common.SliceToBytes(values), rows, cols)
}

func (a *constantBufferAccessor) SetFloatMatrix(values []float32, rows, cols uint32) {
	a.SetMatrixBytes(common.SliceToBytes(values), rows, cols)
}

func (a *constantBufferAccessor) SetSintVector(values []int32) {
	a.setVector(common.SliceToBytes(values[:min(len(values), maxVectorLen)]))
}

func (a *constantBufferAccessor) SetUintVector(values []uint32) {
	a.setVector(common.SliceToBytes(values[:min(len(values), maxVectorLen)]))
}

func (a *constantBufferAccessor) SetFloatVector(values []float32) {
	a.setVector(common.SliceToBytes(values[:min(len(values), maxVectorLen)]))
}

func (a *constantBufferAccessor) SetSint(v int32) {
	a.SetRaw(common.SliceToBytes([]int32{v}), 0, scalarSize)
}

func (a *constantBufferAccessor) SetUint(v uint32) {
	a.SetRaw(common.SliceToBytes([]uint32{v}), 0, scalarSize)
}

func (a *constantBufferAccessor) SetFloat(v float32) {
	a.SetRaw(common.SliceToBytes([]float32{v}), 0, scalarSize)
}

func (a *constantBufferAccessor) setVector(data []byte) {
	a.SetRaw(data, 0, min(uint32(len(data)), a.size))
}
