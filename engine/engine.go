package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/meshed/engine/profiler"
	"github.com/Carmen-Shannon/meshed/engine/window"
	"go.uber.org/zap"
)

// engine implements the Engine interface.
// Everything runs on the thread that calls Run, which must be the thread that created the window.
type engine struct {
	logger *zap.Logger
	window window.Window

	running  atomic.Bool
	quitting atomic.Bool
	quitOnce sync.Once

	profiler         *profiler.Profiler
	profilingEnabled bool

	renderCallback   func(deltaTime float32)
	resizeHandlers   []func(width, height int)
	shutdownHandlers []func()

	lastFrame        time.Time
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine drives a window's event loop and calls the render callback once per iteration.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderCallback registers the function called each frame.
	// Use this for GPU buffer updates and command submission.
	//
	// Parameters:
	//   - callback: function to call each frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// AddResizeHandler registers a function called with the new framebuffer size whenever the window is resized.
	// Handlers run in registration order.
	//
	// Parameters:
	//   - handler: function receiving the new width and height in pixels
	AddResizeHandler(handler func(width, height int))

	// AddShutdownHandler registers a function called once when the engine stops, before the window is closed.
	// Handlers run in reverse registration order so resources are released before what they depend on.
	//
	// Parameters:
	//   - handler: function to call on shutdown
	AddShutdownHandler(handler func())

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run runs the window event loop until the window closes or Quit is called, then shuts down.
	Run()

	// Quit stops the engine. When called while Run is active the loop stops at the next iteration.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// The window's resize callback is taken over to fan out to the resize handlers.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.handleResize)
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Run() {
	if e.window == nil {
		e.logger.Error("engine has no window")
		return
	}
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	defer e.running.Store(false)

	e.lastFrame = time.Now()
	e.window.SetUpdateCallback(e.frame)
	if !e.quitting.Load() {
		e.window.ProcessMessages()
	}
	e.shutdown()
}

func (e *engine) Quit() {
	e.quitting.Store(true)
	if !e.running.Load() {
		e.shutdown()
	}
}

// shutdown runs the shutdown handlers and closes the window, once.
func (e *engine) shutdown() {
	e.quitOnce.Do(func() {
		e.quitting.Store(true)
		for i := len(e.shutdownHandlers) - 1; i >= 0; i-- {
			e.shutdownHandlers[i]()
		}
		if e.window == nil {
			return
		}
		e.window.SetUpdateCallback(nil)
		if err := e.window.Close(); err != nil {
			e.logger.Debug("window close", zap.Error(err))
		}
	})
}

// frame is the window update callback: one iteration of the loop.
func (e *engine) frame() {
	if e.quitting.Load() {
		e.shutdown()
		return
	}

	now := time.Now()
	dt := float32(now.Sub(e.lastFrame).Seconds())
	e.lastFrame = now

	if e.renderCallback != nil {
		e.renderCallback(dt)
	}

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick()
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

func (e *engine) handleResize(width, height int) {
	for _, h := range e.resizeHandlers {
		h(width, height)
	}
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) AddResizeHandler(handler func(width, height int)) {
	if handler != nil {
		e.resizeHandlers = append(e.resizeHandlers, handler)
	}
}

func (e *engine) AddShutdownHandler(handler func()) {
	if handler != nil {
		e.shutdownHandlers = append(e.shutdownHandlers, handler)
	}
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

// frameDuration converts a frame rate cap to the minimum frame duration, 0 for uncapped.
func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
