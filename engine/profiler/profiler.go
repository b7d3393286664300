package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/logger"
)

// Stats is a snapshot of the counters collected since the last report.
type Stats struct {
	Emits        int
	Uploads      int
	UploadBytes  uint64
	Dispatches   int
	ThreadGroups uint64
}

// Profiler tracks effect emission, constant buffer upload and dispatch statistics together
// with memory statistics. Outputs stats to the engine logger at a configurable interval.
// Safe for concurrent use.
type Profiler struct {
	mu             sync.Mutex
	stats          Stats
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	now            func() time.Time
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: a variadic list of options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// RecordEmit counts one effect emission and reports if the interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged by this call
func (p *Profiler) RecordEmit() bool {
	p.mu.Lock()
	p.stats.Emits++
	p.mu.Unlock()
	return p.Tick()
}

// RecordUpload counts one constant buffer upload of n bytes.
//
// Parameters:
//   - n: the uploaded byte count
func (p *Profiler) RecordUpload(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Uploads++
	p.stats.UploadBytes += uint64(n)
}

// RecordDispatch counts one dispatch of x*y*z thread groups.
//
// Parameters:
//   - x, y, z: the thread group counts issued
func (p *Profiler) RecordDispatch(x, y, z uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Dispatches++
	p.stats.ThreadGroups += uint64(x) * uint64(y) * uint64(z)
}

// Snapshot returns the counters collected since the last report.
//
// Returns:
//   - Stats: the current counters
func (p *Profiler) Snapshot() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Tick logs performance statistics when the update interval has elapsed and resets the
// counters. Statistics include: emits/sec, uploads, dispatches, heap usage, allocation rate,
// GC count/pause times.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses
	gcCount := p.memStats.NumGC
	var maxPauseUs uint64
	startIdx := p.lastGCCount
	if gcCount-startIdx > 256 {
		startIdx = gcCount - 256
	}
	for i := startIdx; i < gcCount; i++ {
		maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
	}

	logger.Logger().Info("[Profiler] effect stats",
		"emitsPerSec", float64(p.stats.Emits)/elapsed.Seconds(),
		"uploads", p.stats.Uploads,
		"uploadBytes", p.stats.UploadBytes,
		"dispatches", p.stats.Dispatches,
		"threadGroups", p.stats.ThreadGroups,
		"heapMB", allocMB,
		"allocRateMBs", allocRateMB,
		"gc", gcCount,
		"maxPauseUs", maxPauseUs,
	)

	p.stats = Stats{}
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
