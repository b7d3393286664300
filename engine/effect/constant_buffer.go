package effect

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

// constantBuffer is the implementation of the ConstantBuffer interface.
type constantBuffer struct {
	name   string
	slot   shader.Slot
	stages shader.Stage
	data   []byte
	dirty  bool
	buffer device.Buffer
}

// ConstantBuffer is a CPU mirror of one reflected constant buffer together with the device
// buffer it uploads into. Writes go through accessors and only reach the device on Update.
type ConstantBuffer interface {
	// Name returns the constant buffer name as declared in the shader.
	Name() string

	// Slot returns the binding slot assigned by reflection.
	Slot() shader.Slot

	// Stages returns every stage that declared this constant buffer.
	Stages() shader.Stage

	// Size returns the mirror size in bytes.
	Size() uint32

	// Bytes returns the CPU mirror. The slice must be treated as read-only.
	Bytes() []byte

	// Dirty reports whether the mirror holds writes not yet uploaded.
	Dirty() bool

	// Buffer returns the device buffer the mirror uploads into.
	Buffer() device.Buffer

	// Update uploads the whole mirror if it is dirty and clears the dirty flag. A clean
	// buffer issues no device calls.
	//
	// Parameters:
	//   - ctx: the context to map the device buffer through
	//
	// Returns:
	//   - error: an error if the device buffer could not be mapped
	Update(ctx device.Context) error

	// Transmit copies this mirror into other, up to the smaller of the two sizes, and marks
	// other dirty.
	//
	// Parameters:
	//   - other: the destination constant buffer
	Transmit(other ConstantBuffer)

	// Release frees the device buffer.
	Release()

	write(offset uint32, data []byte)
	addStage(stage shader.Stage)
}

var _ ConstantBuffer = &constantBuffer{}

// NewConstantBuffer creates a constant buffer and allocates its device buffer.
//
// Parameters:
//   - dev: the device to allocate on
//   - name: the constant buffer name
//   - slot: the reflected binding slot
//   - size: the mirror size in bytes
//   - initial: optional initial contents, truncated to size
//
// Returns:
//   - ConstantBuffer: the new constant buffer, dirty only when initial data was given
//   - error: an error if the device buffer could not be allocated
func NewConstantBuffer(dev device.Device, name string, slot shader.Slot, size uint32, initial []byte) (ConstantBuffer, error) {
	buf, err := dev.CreateConstantBuffer(name, size)
	if err != nil {
		return nil, fmt.Errorf("allocate constant buffer %q (%d bytes): %w", name, size, err)
	}
	cb := &constantBuffer{
		name:   name,
		slot:   slot,
		data:   make([]byte, size),
		buffer: buf,
	}
	if len(initial) > 0 {
		copy(cb.data, initial)
		cb.dirty = true
	}
	return cb, nil
}

func (c *constantBuffer) Name() string {
	return c.name
}

func (c *constantBuffer) Slot() shader.Slot {
	return c.slot
}

func (c *constantBuffer) Stages() shader.Stage {
	return c.stages
}

func (c *constantBuffer) Size() uint32 {
	return uint32(len(c.data))
}

func (c *constantBuffer) Bytes() []byte {
	return c.data
}

func (c *constantBuffer) Dirty() bool {
	return c.dirty
}

func (c *constantBuffer) Buffer() device.Buffer {
	return c.buffer
}

func (c *constantBuffer) Update(ctx device.Context) error {
	if !c.dirty {
		return nil
	}
	c.dirty = false

	mapped, err := ctx.Map(c.buffer)
	if err != nil {
		c.dirty = true
		return fmt.Errorf("map constant buffer %q: %w", c.name, err)
	}
	copy(mapped, c.data)
	ctx.Unmap(c.buffer)
	return nil
}

func (c *constantBuffer) Transmit(other ConstantBuffer) {
	if other == nil {
		return
	}
	n := min(c.Size(), other.Size())
	other.write(0, c.data[:n])
}

func (c *constantBuffer) Release() {
	if c.buffer != nil {
		c.buffer.Release()
		c.buffer = nil
	}
}

// write copies data into the mirror at offset and marks the buffer dirty. Callers bound
// offset and length to the mirror.
func (c *constantBuffer) write(offset uint32, data []byte) {
	copy(c.data[offset:], data)
	c.dirty = true
}

func (c *constantBuffer) addStage(stage shader.Stage) {
	c.stages |= stage
}
