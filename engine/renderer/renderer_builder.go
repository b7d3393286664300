package renderer

import "github.com/cogentcore/webgpu/wgpu"

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithLabel sets the debug label prefixed to every GPU object the renderer creates.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - RendererBuilderOption: a function that applies the label option to a renderer
func WithLabel(label string) RendererBuilderOption {
	return func(r *renderer) {
		r.label = label
	}
}

// WithMSAA sets the multisample count render pipelines are built with.
// When not specified, the default is MSAAOff. Higher values (MSAA8x, MSAA16x) are
// adapter-dependent and may not be supported by all hardware.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.msaa = count
	}
}

// WithColorFormat sets the color target format render pipelines are built with.
//
// Parameters:
//   - format: the color target format (default BGRA8Unorm)
//
// Returns:
//   - RendererBuilderOption: a function that applies the color format option to a renderer
func WithColorFormat(format wgpu.TextureFormat) RendererBuilderOption {
	return func(r *renderer) {
		r.colorFormat = format
	}
}

// WithMaxBindGroups raises the device's bind group limit above the WebGPU default of 4.
//
// Parameters:
//   - n: the number of bind groups the device must support
//
// Returns:
//   - RendererBuilderOption: a function that applies the limit to a renderer
func WithMaxBindGroups(n uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.maxBindGroups = n
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). Useful for headless runs on machines without a GPU.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithBackend replaces the GPU backend the renderer would otherwise create.
//
// Parameters:
//   - backend: the backend to drive
//
// Returns:
//   - RendererBuilderOption: a function that applies the backend to a renderer
func WithBackend(backend RendererBackend) RendererBuilderOption {
	return func(r *renderer) {
		r.backend = backend
	}
}
