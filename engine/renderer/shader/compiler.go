package shader

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-fx/engine/logger"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/spirv"
)

// CompileRequest names one stage to compile.
type CompileRequest struct {
	Path    string
	Stage   Stage
	Profile TargetProfile
}

// CompileOutcome pairs a request with its result. Exactly one of Result and Err is set.
type CompileOutcome struct {
	Request CompileRequest
	Result  *CompileResult
	Err     error
}

// compiler is the implementation of the Compiler interface.
type compiler struct {
	mu       sync.Mutex
	released bool

	searchPaths  []string
	workers      int
	validate     bool
	debug        bool
	spirvVersion spirv.Version

	preProcessor PreProcessor
	pool         worker.DynamicWorkerPool
	// inflight counts CompileStages calls using pool; Release waits for them before stopping it.
	inflight sync.WaitGroup
}

// Compiler is a shader compiler session. A session is created explicitly, shared by every
// effect built from it, and released by its owner when no more compilation is needed.
//
// Compile and CompileSource are safe for concurrent use.
type Compiler interface {
	// Compile reads, pre-processes and compiles one stage from a source file.
	//
	// Parameters:
	//   - path: the source file, resolved against the search paths if not found as given
	//   - stage: the single stage to compile
	//   - profile: the shader model to target
	//
	// Returns:
	//   - *CompileResult: bytecode, expanded source, diagnostics and reflection
	//   - error: an error wrapping ErrCompileFailed if the stage could not be compiled
	Compile(path string, stage Stage, profile TargetProfile) (*CompileResult, error)

	// CompileSource compiles one stage from in-memory source.
	//
	// Parameters:
	//   - name: the name reported in diagnostics and on the result
	//   - source: the WGSL source
	//   - stage: the single stage to compile
	//   - profile: the shader model to target
	//
	// Returns:
	//   - *CompileResult: bytecode, expanded source, diagnostics and reflection
	//   - error: an error wrapping ErrCompileFailed if the stage could not be compiled
	CompileSource(name, source string, stage Stage, profile TargetProfile) (*CompileResult, error)

	// CompileStages compiles several stages, in parallel when the session has more than one
	// worker. Outcomes are returned in request order.
	//
	// Parameters:
	//   - requests: the stages to compile
	//
	// Returns:
	//   - []CompileOutcome: one outcome per request, in the same order
	CompileStages(requests []CompileRequest) []CompileOutcome

	// SearchPaths returns the include search paths of the session.
	//
	// Returns:
	//   - []string: the search paths, in lookup order
	SearchPaths() []string

	// Release ends the session. Later compile calls fail with ErrCompilerReleased.
	Release()
}

var _ Compiler = &compiler{}

// NewCompiler creates a compiler session.
//
// Parameters:
//   - options: a variadic list of options to configure the session
//
// Returns:
//   - Compiler: the new session
func NewCompiler(options ...CompilerBuilderOption) Compiler {
	c := &compiler{
		workers:      runtime.NumCPU(),
		validate:     true,
		spirvVersion: spirv.Version1_3,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.workers < 1 {
		c.workers = 1
	}

	c.preProcessor = NewPreProcessor(c.searchPaths...)
	if c.workers > 1 {
		c.pool = worker.NewDynamicWorkerPool(c.workers, 64, 1*time.Second)
	}
	return c
}

func (c *compiler) SearchPaths() []string {
	return append([]string(nil), c.searchPaths...)
}

func (c *compiler) Release() {
	c.mu.Lock()
	c.released = true
	pool := c.pool
	c.pool = nil
	c.mu.Unlock()

	if pool != nil {
		c.inflight.Wait()
		pool.Stop()
	}
}

func (c *compiler) isReleased() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

func (c *compiler) Compile(path string, stage Stage, profile TargetProfile) (*CompileResult, error) {
	if c.isReleased() {
		return nil, ErrCompilerReleased
	}

	resolved, err := c.preProcessor.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}
	source, err := c.preProcessor.Process(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}
	return c.compile(resolved, source, stage, profile)
}

func (c *compiler) CompileSource(name, source string, stage Stage, profile TargetProfile) (*CompileResult, error) {
	if c.isReleased() {
		return nil, ErrCompilerReleased
	}

	expanded, err := c.preProcessor.ProcessSource(name, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}
	return c.compile(name, expanded, stage, profile)
}

func (c *compiler) CompileStages(requests []CompileRequest) []CompileOutcome {
	outcomes := make([]CompileOutcome, len(requests))
	for i, req := range requests {
		outcomes[i].Request = req
	}

	c.mu.Lock()
	pool := c.pool
	if pool != nil {
		c.inflight.Add(1)
		defer c.inflight.Done()
	}
	c.mu.Unlock()

	if pool == nil || len(requests) < 2 {
		for i, req := range requests {
			outcomes[i].Result, outcomes[i].Err = c.Compile(req.Path, req.Stage, req.Profile)
		}
		return outcomes
	}

	// each task writes only its own slot, the WaitGroup is the barrier
	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		idx, r := i, req
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				outcomes[idx].Result, outcomes[idx].Err = c.Compile(r.Path, r.Stage, r.Profile)
				return nil, nil
			},
		})
	}
	wg.Wait()

	return outcomes
}

// compile runs the WGSL front end, validation, SPIR-V generation and reflection for one stage.
func (c *compiler) compile(name, source string, stage Stage, profile TargetProfile) (*CompileResult, error) {
	target, err := Target(stage, profile)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompileFailed, name, err)
	}
	if _, ok := wgslStages[stage]; !ok {
		return nil, fmt.Errorf("%w: %s (%s): %w", ErrCompileFailed, name, target, ErrStageUnsupported)
	}

	result := &CompileResult{
		Stage:   stage,
		Profile: profile,
		Target:  target,
		Path:    name,
		Source:  source,
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %w", ErrCompileFailed, name, target, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %w", ErrCompileFailed, name, target, err)
	}

	ep, err := selectEntryPoint(module, stage)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %w", ErrCompileFailed, name, target, err)
	}
	result.EntryPoint = ep.Name
	if ep.Name != EntryPoint(stage) {
		result.Diagnostics = append(result.Diagnostics,
			fmt.Sprintf("entry point %s not found, using %s", EntryPoint(stage), ep.Name))
	}

	if c.validate {
		validationErrors, err := naga.Validate(module)
		if err != nil {
			return nil, fmt.Errorf("%w: %s (%s): %w", ErrCompileFailed, name, target, err)
		}
		if len(validationErrors) > 0 {
			for i := range validationErrors {
				result.Diagnostics = append(result.Diagnostics, validationErrors[i].Error())
			}
			return nil, fmt.Errorf("%w: %s (%s): %w", ErrCompileFailed, name, target, &validationErrors[0])
		}
	}

	bytecode, err := naga.GenerateSPIRV(module, spirv.Options{
		Version: c.spirvVersion,
		Debug:   c.debug,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %w", ErrCompileFailed, name, target, err)
	}
	result.Bytecode = bytecode

	reflection, err := reflectModule(ast, module, ep, stage)
	if err != nil {
		result.Diagnostics = append(result.Diagnostics, err.Error())
	} else {
		result.Reflection = reflection
	}

	for _, d := range result.Diagnostics {
		logger.Logger().Debug("[Shader] diagnostic", "path", name, "target", target, "message", d)
	}
	logger.Logger().Debug("[Shader] compiled",
		"path", name,
		"target", target,
		"entry", ep.Name,
		"bytes", len(bytecode),
	)
	return result, nil
}
