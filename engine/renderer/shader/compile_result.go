package shader

import "errors"

var (
	// ErrCompileFailed wraps every failure to turn a source file into bytecode.
	ErrCompileFailed = errors.New("shader compilation failed")

	// ErrStageUnsupported is reported for stages the WGSL front end has no entry point kind for.
	ErrStageUnsupported = errors.New("stage not supported by the WGSL front end")

	// ErrEntryPointMissing is reported when no entry point matches the requested stage.
	ErrEntryPointMissing = errors.New("entry point not found")

	// ErrNoReflection is reported when a compiled stage carries no reflection data.
	ErrNoReflection = errors.New("reflection unavailable")

	// ErrCompilerReleased is returned by a compiler session after Release.
	ErrCompilerReleased = errors.New("compiler session released")
)

// CompileResult is the output of compiling one stage.
type CompileResult struct {
	Stage   Stage
	Profile TargetProfile

	// Target is the profile string the stage was compiled for, e.g. "ps_5_1".
	Target string

	// Path is the resolved path of the root source file.
	Path string

	// Source is the source text after include expansion.
	Source string

	// EntryPoint is the entry point function the result was built from.
	EntryPoint string

	// Bytecode is the compiled SPIR-V binary.
	Bytecode []byte

	// Diagnostics holds compiler messages in the order they were produced.
	Diagnostics []string

	// Reflection is nil when reflection could not be produced for the stage.
	Reflection *Reflection
}
