// Command logo draws a rotating textured quad over an animated background.
//
// Usage:
//
//	logo [-config logo.toml]
//
// With shader paths and watch = true in the config, the pipeline is rebuilt whenever a shader file is saved.
// P pauses the rotation, R rebuilds the pipeline from the shader files, Space toggles the profiler and
// Escape quits.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"

	"github.com/Carmen-Shannon/meshed/common"
	"github.com/Carmen-Shannon/meshed/engine"
	"github.com/Carmen-Shannon/meshed/engine/profiler"
	"github.com/Carmen-Shannon/meshed/engine/renderer"
	"github.com/Carmen-Shannon/meshed/engine/window"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(*configPath, logger); err != nil {
		logger.Error("logo", zap.Error(err))
		os.Exit(1)
	}
}

func run(configPath string, logger *zap.Logger) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		return err
	}

	prof, err := newProfiler(cfg.Profiling, logger)
	if err != nil {
		win.Close()
		return err
	}

	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithLogger(logger),
		engine.WithProfiler(prof),
		engine.WithProfiling(cfg.Profiling.Enabled),
		engine.WithRenderFrameLimit(cfg.Renderer.FrameLimit),
	)

	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, win,
		renderer.WithPresentMode(cfg.Renderer.presentMode()),
		renderer.WithForceSoftwareRenderer(cfg.Renderer.Software),
		renderer.WithLogger(logger),
	)
	if err != nil {
		eng.Quit()
		return err
	}
	eng.AddShutdownHandler(r.Release)

	g, err := newGame(r, cfg, logger)
	if err != nil {
		eng.Quit()
		return err
	}
	eng.AddShutdownHandler(g.release)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g.watchShaders(ctx)

	eng.SetRenderCallback(g.render)
	eng.AddResizeHandler(g.resize)
	profiling := cfg.Profiling.Enabled
	win.SetKeyDownCallback(func(keyCode uint32) {
		if keyCode != common.KeySpace {
			g.keyDown(keyCode)
			return
		}
		profiling = !profiling
		if profiling {
			eng.EnableProfiler()
		} else {
			eng.DisableProfiler()
		}
	})

	logger.Info("running",
		zap.String("present_mode", cfg.Renderer.PresentMode),
		zap.Bool("watch_shaders", cfg.Shaders.Watch),
	)
	eng.Run()
	return nil
}

// newProfiler builds the frame profiler and, when an address is configured, serves its gauges over HTTP.
func newProfiler(cfg ProfilingConfig, logger *zap.Logger) (*profiler.Profiler, error) {
	interval, err := cfg.interval()
	if err != nil {
		return nil, err
	}
	options := []profiler.ProfilerBuilderOption{
		profiler.WithLogger(logger),
		profiler.WithInterval(interval),
	}
	if cfg.MetricsAddr == "" {
		return profiler.NewProfiler(options...), nil
	}

	reg := prometheus.NewRegistry()
	options = append(options, profiler.WithRegisterer(reg))
	prof := profiler.NewProfiler(options...)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
	return prof, nil
}
