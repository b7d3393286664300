package shader

import "github.com/gogpu/naga/spirv"

// CompilerBuilderOption is a functional option used to configure a Compiler during construction.
type CompilerBuilderOption func(*compiler)

// WithSearchPaths sets the directories consulted when resolving source files and includes.
//
// Parameters:
//   - paths: the search directories, in lookup order
//
// Returns:
//   - CompilerBuilderOption: a function that sets the search paths for this session
func WithSearchPaths(paths ...string) CompilerBuilderOption {
	return func(c *compiler) {
		c.searchPaths = append(c.searchPaths, paths...)
	}
}

// WithWorkers sets how many stages may compile at once. One disables the worker pool.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - CompilerBuilderOption: a function that sets the worker count for this session
func WithWorkers(n int) CompilerBuilderOption {
	return func(c *compiler) {
		c.workers = n
	}
}

// WithValidation toggles IR validation before code generation. Enabled by default.
//
// Parameters:
//   - enabled: whether to validate
//
// Returns:
//   - CompilerBuilderOption: a function that sets validation for this session
func WithValidation(enabled bool) CompilerBuilderOption {
	return func(c *compiler) {
		c.validate = enabled
	}
}

// WithDebugInfo toggles debug names and line info in the generated bytecode.
//
// Parameters:
//   - enabled: whether to emit debug info
//
// Returns:
//   - CompilerBuilderOption: a function that sets debug info for this session
func WithDebugInfo(enabled bool) CompilerBuilderOption {
	return func(c *compiler) {
		c.debug = enabled
	}
}

// WithSPIRVVersion sets the SPIR-V version of the generated bytecode.
//
// Parameters:
//   - v: the SPIR-V version
//
// Returns:
//   - CompilerBuilderOption: a function that sets the output version for this session
func WithSPIRVVersion(v spirv.Version) CompilerBuilderOption {
	return func(c *compiler) {
		c.spirvVersion = v
	}
}
