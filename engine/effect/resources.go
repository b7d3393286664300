package effect

import (
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderResource is a shader-readable binding: a texture or a read-only buffer view.
type ShaderResource struct {
	Name      string
	Kind      shader.ResourceKind
	Dimension wgpu.TextureViewDimension
	Slot      shader.Slot

	// Stage is the first stage that declared the resource.
	Stage shader.Stage

	// Handle is the bound view. Nil until bound.
	Handle any
}

// ReadWriteResource is an unordered-access binding.
type ReadWriteResource struct {
	Name      string
	Kind      shader.ResourceKind
	Dimension wgpu.TextureViewDimension
	Slot      shader.Slot
	Stage     shader.Stage

	// HasCounter is set for append, consume and counter-bearing structured buffers.
	HasCounter bool

	// InitialCount is uploaded to the hidden counter on the first emission after creation
	// or after ResetCounter.
	InitialCount uint32

	Handle any

	// needsInitialCount is only ever set on resources with HasCounter.
	needsInitialCount bool
}

// NeedsInitialCount reports whether the next emission passes an initial count.
func (r *ReadWriteResource) NeedsInitialCount() bool {
	return r.needsInitialCount
}

// SamplerBinding is a sampler slot.
type SamplerBinding struct {
	Name   string
	Slot   shader.Slot
	Stage  shader.Stage
	Handle any
}
