package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWindow runs its event loop until closed, for at most maxIterations iterations.
type fakeWindow struct {
	open          bool
	closeCalls    int
	iterations    int
	maxIterations int
	onUpdate      func()
	onResize      func(width, height int)
}

func newFakeWindow() *fakeWindow {
	return &fakeWindow{open: true, maxIterations: 1000}
}

func (w *fakeWindow) SetUpdateCallback(callback func())                  { w.onUpdate = callback }
func (w *fakeWindow) SetResizeCallback(callback func(width, height int)) { w.onResize = callback }
func (w *fakeWindow) SetKeyDownCallback(func(keyCode uint32))            {}
func (w *fakeWindow) SetKeyUpCallback(func(keyCode uint32))              {}
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor         { return nil }
func (w *fakeWindow) IsRunning() bool                                    { return w.open }
func (w *fakeWindow) Width() int                                         { return 800 }
func (w *fakeWindow) Height() int                                        { return 600 }

func (w *fakeWindow) Close() error {
	w.closeCalls++
	if !w.open {
		return errors.New("window is not initialized")
	}
	w.open = false
	return nil
}

func (w *fakeWindow) ProcessMessages() {
	for w.open && w.iterations < w.maxIterations {
		w.iterations++
		if w.onUpdate != nil {
			w.onUpdate()
		}
	}
}

func TestRunCallsRenderUntilQuit(t *testing.T) {
	w := newFakeWindow()
	e := NewEngine(WithWindow(w))

	var frames int
	var deltas []float32
	e.SetRenderCallback(func(dt float32) {
		frames++
		deltas = append(deltas, dt)
		if frames == 3 {
			e.Quit()
		}
	})

	var order []string
	e.AddShutdownHandler(func() { order = append(order, "first") })
	e.AddShutdownHandler(func() { order = append(order, "second") })

	e.Run()

	assert.Equal(t, 3, frames)
	assert.Len(t, deltas, 3)
	for _, dt := range deltas {
		assert.GreaterOrEqual(t, dt, float32(0))
	}
	assert.False(t, w.open)
	assert.Equal(t, 4, w.iterations, "the iteration after Quit shuts down")
	assert.Equal(t, []string{"second", "first"}, order)
	assert.Equal(t, 1, w.closeCalls)
}

func TestRunShutsDownWhenWindowCloses(t *testing.T) {
	w := newFakeWindow()
	w.maxIterations = 5
	e := NewEngine(WithWindow(w))

	var frames, shutdowns int
	e.SetRenderCallback(func(float32) { frames++ })
	e.AddShutdownHandler(func() { shutdowns++ })

	e.Run()
	assert.Equal(t, 5, frames)
	assert.Equal(t, 1, shutdowns)
	assert.Equal(t, 1, w.closeCalls)
	assert.Nil(t, w.onUpdate)
}

func TestQuitIsIdempotent(t *testing.T) {
	w := newFakeWindow()
	e := NewEngine(WithWindow(w))

	var shutdowns int
	e.AddShutdownHandler(func() { shutdowns++ })

	e.Quit()
	e.Quit()
	e.Run()

	assert.Equal(t, 1, shutdowns)
	assert.Equal(t, 1, w.closeCalls)
	assert.Zero(t, w.iterations, "a quit engine does not start the loop")
}

func TestResizeHandlers(t *testing.T) {
	w := newFakeWindow()
	e := NewEngine(WithWindow(w))

	var got [][2]int
	e.AddResizeHandler(func(width, height int) { got = append(got, [2]int{width, height}) })
	e.AddResizeHandler(func(width, height int) { got = append(got, [2]int{-width, -height}) })
	e.AddResizeHandler(nil)

	require.NotNil(t, w.onResize)
	w.onResize(1024, 768)
	assert.Equal(t, [][2]int{{1024, 768}, {-1024, -768}}, got)
}

func TestRenderFrameLimit(t *testing.T) {
	assert.Equal(t, time.Duration(0), frameDuration(0))
	assert.Equal(t, time.Duration(0), frameDuration(-30))
	assert.Equal(t, 20*time.Millisecond, frameDuration(50))

	w := newFakeWindow()
	w.maxIterations = 3
	e := NewEngine(WithWindow(w), WithRenderFrameLimit(100))

	start := time.Now()
	e.Run()
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestProfilerToggle(t *testing.T) {
	e := NewEngine(WithProfiling(true)).(*engine)
	assert.True(t, e.profilingEnabled)
	require.NotNil(t, e.profiler)

	e.DisableProfiler()
	assert.False(t, e.profilingEnabled)
	e.EnableProfiler()
	assert.True(t, e.profilingEnabled)
}

func TestRunWithoutWindow(t *testing.T) {
	e := NewEngine()
	assert.NotPanics(t, e.Run)
	assert.NotPanics(t, e.Quit)
}
