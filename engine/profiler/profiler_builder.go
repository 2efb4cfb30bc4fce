package profiler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithLogger sets the logger samples are written to. A nil logger is ignored.
func WithLogger(logger *zap.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithInterval sets how often a sample is taken. Non-positive values are ignored.
//
// Parameters:
//   - interval: the sampling interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithRegisterer registers the profiler gauges with r, e.g. prometheus.DefaultRegisterer.
//
// Parameters:
//   - r: the registerer to publish the gauges on
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithRegisterer(r prometheus.Registerer) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.registerer = r
	}
}
