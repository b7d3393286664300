package effect

import (
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

// computeEffect is the implementation of the ComputeEffect interface.
type computeEffect struct {
	*effect
	state computeState
}

// ComputeEffect is an effect over the compute stage.
type ComputeEffect interface {
	Effect

	// ThreadGroupSize returns the compute stage's declared thread-group size, or zeros when
	// the stage did not compile.
	ThreadGroupSize() [3]uint32

	// Dispatch launches enough thread groups to cover x*y*z threads: each count is divided
	// by the thread-group size, rounding up.
	//
	// Parameters:
	//   - ctx: the context to dispatch on
	//   - x, y, z: the thread counts along each axis
	Dispatch(ctx device.Context, x, y, z uint32)
}

var _ ComputeEffect = &computeEffect{}

// NewComputeEffect compiles the compute stage named by desc and builds its binding table.
// A failed stage is logged and reported through Err.
//
// Parameters:
//   - dev: the device shader objects and constant buffers are created on
//   - compiler: the compiler session
//   - desc: the compute stage source
//   - options: a variadic list of options to configure the effect
//
// Returns:
//   - ComputeEffect: the new effect
func NewComputeEffect(dev device.Device, compiler shader.Compiler, desc Descriptor, options ...EffectBuilderOption) ComputeEffect {
	e := &computeEffect{
		effect: newEffect(dev, compiler, desc.Label, options),
	}
	for stage := range desc.Shaders {
		if stage != shader.StageCompute {
			e.log().Warn("[Effect] graphics stage ignored by compute effect", "stage", stage)
		}
	}

	e.build([]shader.Stage{shader.StageCompute}, desc)
	if p := e.program(shader.StageCompute); p != nil && p.result.Reflection != nil {
		e.state.threadGroupSize = p.result.Reflection.ThreadGroupSize
	}
	return e
}

func (e *computeEffect) Emit(ctx device.Context) error {
	return emitBindings(ctx, e.programs, e.BindingTable, e.state, e.profiler)
}

func (e *computeEffect) ThreadGroupSize() [3]uint32 {
	return e.state.threadGroupSize
}

func (e *computeEffect) Dispatch(ctx device.Context, x, y, z uint32) {
	g := e.state.threadGroupSize
	gx, gy, gz := groupCount(x, g[0]), groupCount(y, g[1]), groupCount(z, g[2])
	ctx.Dispatch(gx, gy, gz)
	if e.profiler != nil {
		e.profiler.RecordDispatch(gx, gy, gz)
	}
}

// groupCount divides n threads into groups of size, rounding up. A zero size counts
// threads as groups.
func groupCount(n, size uint32) uint32 {
	if size == 0 {
		return n
	}
	groups := n / size
	if n%size != 0 {
		groups++
	}
	return groups
}
