package profiler

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Stats is one sample of frame rate and memory statistics.
type Stats struct {
	FPS float64
	// HeapMB is the live heap (MemStats.Alloc).
	HeapMB float64
	// SysMB is the memory obtained from the OS.
	SysMB float64
	// AllocRateMB is MB allocated per second since the previous sample.
	AllocRateMB float64
	GCCount     uint32
	LastPauseUs uint64
	// MaxPauseUs is the longest GC pause since the previous sample.
	MaxPauseUs uint64
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// It logs a sample with zap at a configurable interval and publishes it as Prometheus gauges.
type Profiler struct {
	logger         *zap.Logger
	registerer     prometheus.Registerer
	now            func() time.Time
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats

	fps       prometheus.Gauge
	memory    *prometheus.GaugeVec
	allocRate prometheus.Gauge
	gcCount   prometheus.Gauge
	gcPause   *prometheus.GaugeVec
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second, the logger to a no-op
// logger, and gauges are not registered unless WithRegisterer is given.
//
// Parameters:
//   - options: functional options for the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		logger:         zap.NewNop(),
		now:            time.Now,
		updateInterval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()

	factory := promauto.With(p.registerer)
	p.fps = factory.NewGauge(prometheus.GaugeOpts{
		Name: "meshed_frames_per_second",
		Help: "Frames rendered per second over the last profiler interval",
	})
	p.memory = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "meshed_memory_bytes",
		Help: "Process memory statistics",
	}, []string{"type"})
	p.allocRate = factory.NewGauge(prometheus.GaugeOpts{
		Name: "meshed_alloc_rate_bytes_per_second",
		Help: "Heap allocation rate over the last profiler interval",
	})
	p.gcCount = factory.NewGauge(prometheus.GaugeOpts{
		Name: "meshed_gc_count",
		Help: "Completed garbage collection cycles",
	})
	p.gcPause = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "meshed_gc_pause_microseconds",
		Help: "Garbage collection pauses",
	}, []string{"type"})
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs and publishes statistics when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were sampled this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Stats{
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
	}

	if s.GCCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses
		s.LastPauseUs = p.memStats.PauseNs[(s.GCCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if s.GCCount-startIdx > 256 {
			startIdx = s.GCCount - 256
		}
		for i := startIdx; i < s.GCCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > s.MaxPauseUs {
				s.MaxPauseUs = pause
			}
		}
	}

	p.publish(s)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.last = s
	return true
}

func (p *Profiler) publish(s Stats) {
	p.logger.Info("profiler",
		zap.Float64("fps", s.FPS),
		zap.Float64("heap_mb", s.HeapMB),
		zap.Float64("alloc_rate_mb", s.AllocRateMB),
		zap.Uint32("gc", s.GCCount),
		zap.Uint64("gc_last_pause_us", s.LastPauseUs),
		zap.Uint64("gc_max_pause_us", s.MaxPauseUs),
		zap.Float64("sys_mb", s.SysMB),
	)

	p.fps.Set(s.FPS)
	p.memory.WithLabelValues("heap").Set(s.HeapMB * 1024 * 1024)
	p.memory.WithLabelValues("sys").Set(s.SysMB * 1024 * 1024)
	p.allocRate.Set(s.AllocRateMB * 1024 * 1024)
	p.gcCount.Set(float64(s.GCCount))
	p.gcPause.WithLabelValues("last").Set(float64(s.LastPauseUs))
	p.gcPause.WithLabelValues("max").Set(float64(s.MaxPauseUs))
}

// Last returns the most recent sample, the zero Stats before the first one.
func (p *Profiler) Last() Stats {
	return p.last
}
