package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/executor"
)

// Profiler tracks frame rate, memory and executor statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	logger    *slog.Logger
	stats     func() executor.FrameStats
	lastStats executor.FrameStats
	now       func() time.Time
}

// Report is one interval's worth of measurements.
type Report struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64

	// Executor counters over the interval; zero without a stats source.
	Submitted  uint64
	Skipped    uint64
	LastEncode time.Duration
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		now:            time.Now,
	}
}

// SetInterval changes how often stats are logged. Non-positive values are ignored.
//
// Parameters:
//   - interval: the reporting interval
func (p *Profiler) SetInterval(interval time.Duration) {
	if interval > 0 {
		p.updateInterval = interval
	}
}

// SetLogger sets the logger reports are written to. Nil restores the package-wide logger.
//
// Parameters:
//   - logger: the destination logger
func (p *Profiler) SetLogger(logger *slog.Logger) {
	p.logger = logger
}

// SetStatsSource attaches the executor counters included in each report.
//
// Parameters:
//   - stats: returns the executor's cumulative frame statistics
func (p *Profiler) SetStatsSource(stats func() executor.FrameStats) {
	p.stats = stats
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	r := p.sample(elapsed)
	logger := p.logger
	if logger == nil {
		logger = common.Logger()
	}
	logger.Info("profiler",
		"fps", r.FPS,
		"heap_mb", r.HeapMB,
		"alloc_rate_mb_s", r.AllocRateMB,
		"gc", r.GCCount,
		"gc_last_us", r.LastPauseUs,
		"gc_max_us", r.MaxPauseUs,
		"sys_mb", r.SysMB,
		"submitted", r.Submitted,
		"skipped", r.Skipped,
		"last_encode", r.LastEncode,
	)

	p.frameCount = 0
	p.lastTime = currentTime
	return true
}

// sample gathers the interval's report and advances the per-interval baselines.
func (p *Profiler) sample(elapsed time.Duration) Report {
	runtime.ReadMemStats(&p.memStats)
	r := Report{
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
	}

	if gcCount := p.memStats.NumGC; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses.
		r.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	if p.stats != nil {
		s := p.stats()
		r.Submitted = s.Submitted - p.lastStats.Submitted
		r.Skipped = s.Skipped - p.lastStats.Skipped
		r.LastEncode = s.LastEncode
		p.lastStats = s
	}

	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return r
}
