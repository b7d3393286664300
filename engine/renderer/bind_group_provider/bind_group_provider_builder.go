package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBuffer binds a buffer range at a specific binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer range to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that binds the buffer for the specified binding
func WithBuffer(binding uint32, buf BufferBinding) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.SetBuffer(binding, buf)
	}
}

// WithTextureView binds a texture view at a specific binding index.
//
// Parameters:
//   - binding: the binding index for this view
//   - tv: the texture view to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that binds the view for the specified binding
func WithTextureView(binding uint32, tv *wgpu.TextureView) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.SetTextureView(binding, tv)
	}
}

// WithSampler binds a sampler at a specific binding index.
//
// Parameters:
//   - binding: the binding index for this sampler
//   - s: the sampler to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that binds the sampler for the specified binding
func WithSampler(binding uint32, s *wgpu.Sampler) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.SetSampler(binding, s)
	}
}
