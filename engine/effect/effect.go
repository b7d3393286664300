// Package effect builds the resource binding tables of shader pipelines from reflection and
// emits them onto a device context.
//
// An effect compiles each of its stages through a shader.Compiler session, ingests every
// stage's reflection into a BindingTable, and creates the stage shader objects on a
// device.Device. Callers write constant buffer fields through accessors, bind views and
// samplers by name, and call Emit before drawing or Dispatch to run a compute effect.
package effect

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-fx/engine/logger"
	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

// Effect is the binding surface shared by graphics and compute effects.
type Effect interface {
	// Label returns the effect's debug label.
	Label() string

	// Table returns the effect's binding table.
	Table() *BindingTable

	// Stages returns the stages that compiled and have a shader object.
	Stages() shader.Stage

	// Result returns the compile result of a populated stage, or nil.
	Result(stage shader.Stage) *shader.CompileResult

	// QueryAccessor fetches a constant buffer field accessor by name.
	//
	// Parameters:
	//   - name: the field name
	//
	// Returns:
	//   - ConstantBufferAccessor: the accessor, or nil if absent
	//   - bool: whether it was found
	QueryAccessor(name string) (ConstantBufferAccessor, bool)

	// BindShaderResource binds a view to a shader-readable resource. Unknown names are ignored.
	BindShaderResource(name string, handle any) bool

	// BindUnorderedAccess binds a view to a read-write resource. Unknown names are ignored.
	BindUnorderedAccess(name string, handle any) bool

	// BindSampler binds a sampler. Unknown names are ignored.
	BindSampler(name string, handle any) bool

	// ResetCounter re-arms the initial count upload of a read-write resource.
	ResetCounter(name string, initial uint32) bool

	// TransmitConstantBuffer copies one of this effect's constant buffers into the
	// same-named buffer of dst and marks it dirty.
	//
	// Parameters:
	//   - dst: the receiving effect
	//   - name: the constant buffer name
	//
	// Returns:
	//   - bool: whether both effects hold the buffer
	TransmitConstantBuffer(dst Effect, name string) bool

	// Emit makes ctx match the effect: shaders, constant buffers (uploading dirty ones),
	// shader resources, samplers, read-write resources, then fixed-function state.
	//
	// Parameters:
	//   - ctx: the context to emit onto
	//
	// Returns:
	//   - error: an error if a constant buffer upload failed; every call is still issued
	Emit(ctx device.Context) error

	// Err returns the failures reported while building the effect, or nil.
	Err() error

	// Release frees the shader objects and constant buffers.
	Release()
}

// effect holds what both effect kinds share: the binding table and the stage programs.
type effect struct {
	*BindingTable

	label    string
	dev      device.Device
	compiler shader.Compiler
	programs []*stageProgram
	profiler *profiler.Profiler
	errs     []error
}

func newEffect(dev device.Device, compiler shader.Compiler, label string, options []EffectBuilderOption) *effect {
	if dev == nil {
		panic("effect: nil device")
	}
	if compiler == nil {
		panic("effect: nil compiler")
	}
	e := &effect{
		BindingTable: NewBindingTable(dev, label),
		label:        label,
		dev:          dev,
		compiler:     compiler,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// build compiles the requested stages and ingests them in pipeline order. A stage that
// fails to compile or to create its shader object is logged and left unpopulated;
// construction carries on with the remaining stages.
func (e *effect) build(stages []shader.Stage, desc Descriptor) {
	requests := make([]shader.CompileRequest, 0, len(stages))
	for _, stage := range stages {
		path, ok := desc.Shaders[stage]
		if !ok || path == "" {
			continue
		}
		requests = append(requests, shader.CompileRequest{Path: path, Stage: stage, Profile: desc.Profile})
	}

	for _, outcome := range e.compiler.CompileStages(requests) {
		stage := outcome.Request.Stage
		if outcome.Err != nil {
			e.report("[Effect] stage compilation failed", stage, outcome.Err)
			continue
		}
		result := outcome.Result
		for _, d := range result.Diagnostics {
			e.log().Debug("[Effect] compiler diagnostic", "stage", stage, "message", d)
		}

		// the table keeps a stage's names even if its shader object cannot be created
		if err := e.Ingest(stage, result.Reflection); err != nil {
			e.report("[Effect] stage ingestion failed", stage, err)
		}

		obj, err := e.dev.CreateShader(result)
		if err != nil {
			e.report("[Effect] shader object creation failed", stage, fmt.Errorf("%s: %w", stage, err))
			continue
		}
		e.programs = append(e.programs, &stageProgram{stage: stage, result: result, shader: obj})
	}

	e.log().Debug("[Effect] effect built", "stages", e.Stages(), "errors", len(e.errs))
}

func (e *effect) report(msg string, stage shader.Stage, err error) {
	e.log().Warn(msg, "stage", stage, "error", err)
	e.errs = append(e.errs, err)
}

func (e *effect) log() *slog.Logger {
	return logger.Logger().With("effect", e.label)
}

func (e *effect) program(stage shader.Stage) *stageProgram {
	for _, p := range e.programs {
		if p.stage == stage {
			return p
		}
	}
	return nil
}

func (e *effect) Label() string {
	return e.label
}

func (e *effect) Table() *BindingTable {
	return e.BindingTable
}

func (e *effect) Stages() shader.Stage {
	var s shader.Stage
	for _, p := range e.programs {
		s |= p.stage
	}
	return s
}

func (e *effect) Result(stage shader.Stage) *shader.CompileResult {
	if p := e.program(stage); p != nil {
		return p.result
	}
	return nil
}

func (e *effect) TransmitConstantBuffer(dst Effect, name string) bool {
	if dst == nil {
		return false
	}
	return e.TransmitTo(dst.Table(), name)
}

func (e *effect) Err() error {
	return errors.Join(e.errs...)
}

func (e *effect) Release() {
	for _, p := range e.programs {
		if p.shader != nil {
			p.shader.Release()
		}
	}
	e.programs = nil
	e.BindingTable.Release()
}
