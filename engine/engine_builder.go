package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithLabel sets the debug label used for the default renderer and in log records.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLabel(label string) EngineBuilderOption {
	return func(e *engine) {
		e.label = label
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the default profiler. Profiling output is still off until
// WithProfiling or EnableProfiler turns it on.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		if p != nil {
			e.profiler = p
		}
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithDevice sets the device passes run against instead of a headless renderer created by
// the engine. The caller keeps ownership and releases it.
//
// Parameters:
//   - d: the device
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDevice(d Device) EngineBuilderOption {
	return func(e *engine) {
		e.dev = d
	}
}

// WithCompiler shares an existing compiler session. The caller keeps ownership and
// releases it.
//
// Parameters:
//   - c: the compiler session
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCompiler(c shader.Compiler) EngineBuilderOption {
	return func(e *engine) {
		e.compiler = c
	}
}

// WithPass registers a pass at the given key during engine construction.
//
// Parameters:
//   - key: the run order (lower runs first)
//   - p: the pass
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPass(key int, p Pass) EngineBuilderOption {
	return func(e *engine) {
		e.passes[key] = p
	}
}
