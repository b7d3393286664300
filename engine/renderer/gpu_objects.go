package renderer

import (
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// uniformBufferAlignment is the size granularity of uniform buffers.
const uniformBufferAlignment = 16

// uniformBuffer is the renderer's device.Buffer. staging is padded to the allocated size;
// Map hands out the first size bytes of it.
type uniformBuffer struct {
	label   string
	size    uint32
	gpu     *wgpu.Buffer
	staging []byte
	mapped  bool
	release func(*wgpu.Buffer)
}

var _ device.Buffer = &uniformBuffer{}

func (b *uniformBuffer) Label() string { return b.label }
func (b *uniformBuffer) Size() uint32  { return b.size }

// GPUBuffer returns the wgpu buffer behind the constant buffer, or nil after Release.
func (b *uniformBuffer) GPUBuffer() *wgpu.Buffer { return b.gpu }

func (b *uniformBuffer) Release() {
	if b.gpu == nil {
		return
	}
	b.release(b.gpu)
	b.gpu = nil
}

// shaderModule is the renderer's device.Shader.
type shaderModule struct {
	id         uint64
	stage      shader.Stage
	entryPoint string
	module     *wgpu.ShaderModule
	result     *shader.CompileResult
	release    func(*wgpu.ShaderModule)
}

var _ device.Shader = &shaderModule{}

func (s *shaderModule) Stage() shader.Stage { return s.stage }
func (s *shaderModule) EntryPoint() string  { return s.entryPoint }

func (s *shaderModule) Release() {
	if s.module == nil {
		return
	}
	s.release(s.module)
	s.module = nil
}

// inputLayout is the renderer's device.InputLayout. It owns no GPU object; wgpu takes the
// vertex buffer layouts at pipeline creation.
type inputLayout struct {
	elements []device.InputElement
	buffers  []wgpu.VertexBufferLayout
}

var _ device.InputLayout = &inputLayout{}

func (l *inputLayout) Elements() []device.InputElement { return l.elements }
func (l *inputLayout) Release()                        {}
