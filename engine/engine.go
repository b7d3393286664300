package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/logger"
	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

// Device is what an Engine drives: a device to create GPU objects on and the context
// effects emit their bindings into.
type Device interface {
	device.Device
	device.Context
}

// Pass is one unit of per-frame GPU work, typically an effect's Emit followed by a
// Dispatch or a draw.
type Pass func(ctx device.Context, deltaTime float32) error

// engine implements the Engine interface.
type engine struct {
	mu sync.Mutex

	tickRateChannel chan time.Duration

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	label        string
	dev          Device
	ownsDevice   bool
	compiler     shader.Compiler
	ownsCompiler bool

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)

	passes map[int]Pass
}

// Engine owns a device and a shader compiler session and runs registered passes once per
// tick in ascending key order.
type Engine interface {
	// Device returns the device passes run against.
	//
	// Returns:
	//   - Device: the engine's device
	Device() Device

	// Compiler returns the shader compiler session effects built by this engine share.
	//
	// Returns:
	//   - shader.Compiler: the compiler session
	Compiler() shader.Compiler

	// Profiler returns the engine's profiler.
	//
	// Returns:
	//   - *profiler.Profiler: the profiler
	Profiler() *profiler.Profiler

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// NewComputeEffect builds a compute effect on the engine's device and compiler. The
	// engine's profiler is attached when profiling is enabled.
	//
	// Parameters:
	//   - desc: the effect descriptor
	//   - options: additional effect options
	//
	// Returns:
	//   - effect.ComputeEffect: the built effect; check Err for build failures
	NewComputeEffect(desc effect.Descriptor, options ...effect.EffectBuilderOption) effect.ComputeEffect

	// NewGraphicsEffect builds a graphics effect on the engine's device and compiler.
	//
	// Parameters:
	//   - desc: the effect descriptor
	//   - options: additional effect options
	//
	// Returns:
	//   - effect.GraphicsEffect: the built effect; check Err for build failures
	NewGraphicsEffect(desc effect.Descriptor, options ...effect.EffectBuilderOption) effect.GraphicsEffect

	// SetTickRate sets the tick rate in ticks per second. Values <= 0 select 60.
	// Takes effect immediately if the engine is running.
	SetTickRate(fps float64)

	// SetTickCallback registers the function called at the start of each tick, before the
	// passes run. Use it to update constant buffers through accessors.
	SetTickCallback(callback func(deltaTime float32))

	// AddPass registers a pass at the given key. Passes run in ascending key order.
	AddPass(key int, p Pass)

	// RemovePass removes the pass at the given key.
	RemovePass(key int)

	// Pass returns the pass at the given key, or nil.
	Pass(key int) Pass

	// Passes returns a copy of the registered passes keyed by order.
	Passes() map[int]Pass

	// Frame runs the tick callback and every pass once. A failing pass is logged and does
	// not stop the passes after it.
	//
	// Parameters:
	//   - deltaTime: seconds since the previous frame
	//
	// Returns:
	//   - error: the joined errors of the failing passes, or nil
	Frame(deltaTime float32) error

	// Run ticks the engine until ctx is done or Quit is called. It blocks.
	//
	// Parameters:
	//   - ctx: cancels the loop
	Run(ctx context.Context)

	// Quit signals Run to return. Safe to call multiple times.
	Quit()

	// Release releases the compiler session and device if the engine created them.
	Release()
}

// NewEngine creates a new Engine. A headless wgpu renderer and a compiler session are
// created unless supplied through WithDevice and WithCompiler.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the default renderer could not be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		passes:          make(map[int]Pass),
		label:           "oxy-fx",
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.dev == nil {
		r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, renderer.WithLabel(e.label))
		if err != nil {
			return nil, fmt.Errorf("create renderer: %w", err)
		}
		e.dev = r
		e.ownsDevice = true
	}
	if e.compiler == nil {
		e.compiler = shader.NewCompiler()
		e.ownsCompiler = true
	}

	return e, nil
}

func (e *engine) Device() Device {
	return e.dev
}

func (e *engine) Compiler() shader.Compiler {
	return e.compiler
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

func (e *engine) effectOptions(options []effect.EffectBuilderOption) []effect.EffectBuilderOption {
	e.mu.Lock()
	enabled := e.profilingEnabled
	e.mu.Unlock()
	if !enabled {
		return options
	}
	return append([]effect.EffectBuilderOption{effect.WithProfiler(e.profiler)}, options...)
}

func (e *engine) NewComputeEffect(desc effect.Descriptor, options ...effect.EffectBuilderOption) effect.ComputeEffect {
	return effect.NewComputeEffect(e.dev, e.compiler, desc, e.effectOptions(options)...)
}

func (e *engine) NewGraphicsEffect(desc effect.Descriptor, options ...effect.EffectBuilderOption) effect.GraphicsEffect {
	return effect.NewGraphicsEffect(e.dev, e.compiler, desc, e.effectOptions(options)...)
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	running := e.running
	if !running {
		e.engineTickRate = newRate
	}
	e.mu.Unlock()
	if !running {
		return
	}

	// Replace a pending update rather than block.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) AddPass(key int, p Pass) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.passes[key] = p
}

func (e *engine) RemovePass(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.passes, key)
}

func (e *engine) Pass(key int) Pass {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.passes[key]
}

func (e *engine) Passes() map[int]Pass {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]Pass, len(e.passes))
	for k, v := range e.passes {
		cp[k] = v
	}
	return cp
}

func (e *engine) Frame(deltaTime float32) error {
	e.mu.Lock()
	tick := e.tickCallback
	keys := make([]int, 0, len(e.passes))
	for k := range e.passes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	passes := make([]Pass, len(keys))
	for i, k := range keys {
		passes[i] = e.passes[k]
	}
	profiling := e.profilingEnabled
	e.mu.Unlock()

	if tick != nil {
		tick(deltaTime)
	}

	var errs []error
	for i, p := range passes {
		if err := p(e.dev, deltaTime); err != nil {
			logger.Logger().Warn("[Engine] pass failed", "engine", e.label, "pass", keys[i], "error", err)
			errs = append(errs, fmt.Errorf("pass %d: %w", keys[i], err))
		}
	}

	if profiling {
		e.profiler.Tick()
	}
	return errors.Join(errs...)
}

func (e *engine) Run(ctx context.Context) {
	e.mu.Lock()
	e.running = true
	rate := e.engineTickRate
	e.mu.Unlock()

	e.wg.Add(1)
	go e.handleEngine(ctx, rate)
	e.wg.Wait()

	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

// handleEngine runs the fixed-rate tick loop. It listens for rate changes on
// tickRateChannel and exits when ctx is done or the quit channel is closed.
func (e *engine) handleEngine(ctx context.Context, rate time.Duration) {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Logger().Error("[Engine] tick loop recovered from panic", "engine", e.label, "panic", r)
			e.Quit()
		}
	}()

	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now
			_ = e.Frame(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		}
	}
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Release() {
	e.Quit()
	if e.ownsCompiler && e.compiler != nil {
		e.compiler.Release()
	}
	if r, ok := e.dev.(interface{ Release() }); ok && e.ownsDevice {
		r.Release()
	}
}
