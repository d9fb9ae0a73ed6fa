package profiler

import (
	"log"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-vk/engine/frame"
)

// Report is the summary of one profiling interval.
type Report struct {
	FPS       float64
	Presented uint64 // frames presented during the interval
	Retries   uint64 // frames skipped for an out-of-date surface during the interval
	HeapMB    float64
	AllocMBps float64
	GCCount   uint32
}

// Profiler tracks frame rate, frame outcomes and memory statistics.
// Outputs a report to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	lastStats      frame.Stats
	last           Report
	quiet          bool
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: ProfilerBuilderOption values
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Tick should be called once per rendered frame with the scene's frame counters.
// Logs a report when the update interval has elapsed.
//
// Parameters:
//   - stats: the cumulative frame counters of the frame synchronizer
//
// Returns:
//   - bool: true if a report was produced this tick
func (p *Profiler) Tick(stats frame.Stats) bool {
	p.frameCount++
	now := time.Now()
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	r := Report{
		FPS:       float64(p.frameCount) / elapsed.Seconds(),
		Presented: stats.Presented - min(p.lastStats.Presented, stats.Presented),
		Retries:   stats.Retries - min(p.lastStats.Retries, stats.Retries),
		HeapMB:    float64(p.memStats.Alloc) / 1024 / 1024,
		AllocMBps: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:   p.memStats.NumGC,
	}

	// PauseNs is a circular buffer of the last 256 GC pauses.
	var maxPauseUs uint64
	start := p.lastGCCount
	if r.GCCount-start > 256 {
		start = r.GCCount - 256
	}
	for i := start; i < r.GCCount; i++ {
		maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
	}

	if !p.quiet {
		log.Printf("[Profiler] FPS: %.2f | Presented: %d | Retries: %d | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (max pause: %d µs)",
			r.FPS, r.Presented, r.Retries, r.HeapMB, r.AllocMBps, r.GCCount, maxPauseUs)
	}

	p.last = r
	p.frameCount = 0
	p.lastTime = now
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.lastStats = stats
	return true
}

// Last returns the most recent report.
func (p *Profiler) Last() Report {
	return p.last
}
