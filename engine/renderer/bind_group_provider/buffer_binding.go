package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BufferBinding is a buffer range bound to one binding of a group. A zero Size binds the
// whole buffer from Offset.
type BufferBinding struct {
	Buffer *wgpu.Buffer
	Offset uint64
	Size   uint64
}

// size returns the range size to place in a bind group entry.
func (b BufferBinding) size() uint64 {
	if b.Size == 0 {
		return wgpu.WholeSize
	}
	return b.Size
}
