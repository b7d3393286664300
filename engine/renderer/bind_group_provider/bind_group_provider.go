package bind_group_provider

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string
	// group is the bind group index this provider fills.
	group uint32

	// buffers holds the buffer ranges bound to this group, keyed by binding index.
	buffers map[uint32]BufferBinding
	// textureViews holds the texture views bound to this group, keyed by binding index.
	textureViews map[uint32]*wgpu.TextureView
	// samplers holds the samplers bound to this group, keyed by binding index.
	samplers map[uint32]*wgpu.Sampler

	// The following fields are GPU allocated resources owned by the provider. They are populated by the Renderer, not by user-creation.

	// bindGroup is the GPU bind group built from the current bindings, or nil if none has been built.
	bindGroup *wgpu.BindGroup
	// layout is the bind group layout bindGroup was built against.
	layout *wgpu.BindGroupLayout
	// dirty is set when a binding changes after bindGroup was built.
	dirty bool
}

// BindGroupProvider collects the resources bound to one bind group and tracks whether the
// GPU bind group built from them is still current.
//
// Usage pattern:
//  1. The Renderer records each Set* call from an effect's emission on the provider for the slot's group
//  2. Before a dispatch or draw, the Renderer checks Current() against the pipeline's layout
//  3. If stale, the Renderer builds a bind group from Entries() and stores it via SetBindGroup()
//  4. The pass sets BindGroup() at the provider's group index
type BindGroupProvider interface {
	// Release releases the bind group held by this provider. Bound resources belong to their
	// creators and are not released.
	Release()

	// Label returns the debug label for this provider.
	// Used for debugging and profiling purposes.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Group returns the bind group index this provider fills.
	//
	// Returns:
	//   - uint32: the group index
	Group() uint32

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if no bind group has been built.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// Current reports whether BindGroup was built against the given layout and no binding
	// changed since.
	//
	// Parameters:
	//   - layout: the bind group layout the next pass uses
	//
	// Returns:
	//   - bool: true if the bind group can be reused
	Current(layout *wgpu.BindGroupLayout) bool

	// Buffer returns the buffer range bound at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - BufferBinding: the bound range
	//   - bool: false if no buffer is bound
	Buffer(binding uint32) (BufferBinding, bool)

	// TextureView returns the GPU texture view for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding uint32) *wgpu.TextureView

	// Sampler returns the GPU sampler for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding uint32) *wgpu.Sampler

	// SetBuffer binds a buffer range. Binding the same range again leaves the provider clean.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer range to bind
	SetBuffer(binding uint32, buf BufferBinding)

	// SetTextureView binds a texture view.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the texture view to bind
	SetTextureView(binding uint32, tv *wgpu.TextureView)

	// SetSampler binds a sampler.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler to bind
	SetSampler(binding uint32, s *wgpu.Sampler)

	// Entries builds the bind group entries for a layout from the current bindings.
	//
	// Parameters:
	//   - layoutEntries: the layout entries of this group, from the pipeline
	//
	// Returns:
	//   - []wgpu.BindGroupEntry: one entry per layout entry
	//   - error: an error naming the first layout entry with nothing of its type bound
	Entries(layoutEntries []wgpu.BindGroupLayoutEntry) ([]wgpu.BindGroupEntry, error)

	// SetBindGroup stores a freshly built bind group and marks the provider current.
	// Called by the Renderer after building from Entries(); the caller releases the
	// bind group it replaces.
	//
	// Parameters:
	//   - bg: the created bind group
	//   - layout: the layout it was built against
	SetBindGroup(bg *wgpu.BindGroup, layout *wgpu.BindGroupLayout)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider for one bind group index.
//
// Parameters:
//   - label: a debug label
//   - group: the bind group index
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, group uint32, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		group:        group,
		buffers:      make(map[uint32]BufferBinding),
		textureViews: make(map[uint32]*wgpu.TextureView),
		samplers:     make(map[uint32]*wgpu.Sampler),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Group() uint32 {
	return p.group
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) Current(layout *wgpu.BindGroupLayout) bool {
	return p.bindGroup != nil && !p.dirty && p.layout == layout
}

func (p *bindGroupProvider) Buffer(binding uint32) (BufferBinding, bool) {
	b, ok := p.buffers[binding]
	return b, ok
}

func (p *bindGroupProvider) TextureView(binding uint32) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding uint32) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetBuffer(binding uint32, buf BufferBinding) {
	if prev, ok := p.buffers[binding]; ok && prev == buf {
		return
	}
	p.buffers[binding] = buf
	p.dirty = true
}

func (p *bindGroupProvider) SetTextureView(binding uint32, tv *wgpu.TextureView) {
	if prev, ok := p.textureViews[binding]; ok && prev == tv {
		return
	}
	p.textureViews[binding] = tv
	p.dirty = true
}

func (p *bindGroupProvider) SetSampler(binding uint32, s *wgpu.Sampler) {
	if prev, ok := p.samplers[binding]; ok && prev == s {
		return
	}
	p.samplers[binding] = s
	p.dirty = true
}

func (p *bindGroupProvider) Entries(layoutEntries []wgpu.BindGroupLayoutEntry) ([]wgpu.BindGroupEntry, error) {
	entries := make([]wgpu.BindGroupEntry, len(layoutEntries))
	for i, entry := range layoutEntries {
		isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined
		isStorageTexture := entry.StorageTexture.Access != wgpu.StorageTextureAccessUndefined
		isSampler := entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined

		switch {
		case isTexture || isStorageTexture:
			tv := p.textureViews[entry.Binding]
			if tv == nil {
				return nil, fmt.Errorf("%s: texture binding %d of group %d has no texture view", p.label, entry.Binding, p.group)
			}
			entries[i] = wgpu.BindGroupEntry{
				Binding:     entry.Binding,
				TextureView: tv,
			}
		case isSampler:
			samp := p.samplers[entry.Binding]
			if samp == nil {
				return nil, fmt.Errorf("%s: sampler binding %d of group %d has no sampler", p.label, entry.Binding, p.group)
			}
			entries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Sampler: samp,
			}
		default:
			buf, ok := p.buffers[entry.Binding]
			if !ok || buf.Buffer == nil {
				return nil, fmt.Errorf("%s: buffer binding %d of group %d has no buffer", p.label, entry.Binding, p.group)
			}
			entries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf.Buffer,
				Offset:  buf.Offset,
				Size:    buf.size(),
			}
		}
	}
	return entries, nil
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup, layout *wgpu.BindGroupLayout) {
	p.bindGroup = bg
	p.layout = layout
	p.dirty = false
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	p.layout = nil
	p.dirty = false
}
