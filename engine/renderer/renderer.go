package renderer

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/Carmen-Shannon/meshed/common"
	"github.com/Carmen-Shannon/meshed/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	registry *layoutRegistry

	backendType RendererBackendType
	backend     RendererBackend
	logger      *zap.Logger

	width, height int

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	powerPreference      wgpu.PowerPreference
	presentMode          PresentMode
}

// Renderer owns the GPU device, its queue and the window surface, and caches the bind group
// and pipeline layouts used by the typed wrappers.
//
// Layouts are keyed by Go type identity: a bind group layout per Bind type and a pipeline layout
// per ordered list of Bind types. Registering the same key twice is an error.
type Renderer interface {
	// Device returns the GPU device.
	//
	// Returns:
	//   - *wgpu.Device: the device
	Device() *wgpu.Device

	// Queue returns the queue of the GPU device.
	//
	// Returns:
	//   - *wgpu.Queue: the queue
	Queue() *wgpu.Queue

	// Surface returns the window surface frames are presented to.
	//
	// Returns:
	//   - *wgpu.Surface: the surface
	Surface() *wgpu.Surface

	// SurfaceConfiguration returns the current surface configuration.
	//
	// Returns:
	//   - *wgpu.SurfaceConfiguration: the configuration last applied to the surface
	SurfaceConfiguration() *wgpu.SurfaceConfiguration

	// SurfaceFormat returns the texture format of the surface, which is the color target format of every pipeline.
	//
	// Returns:
	//   - wgpu.TextureFormat: the surface format
	SurfaceFormat() wgpu.TextureFormat

	// Size returns the last size passed to Resize, or the window size at creation.
	//
	// Returns:
	//   - int: the width in pixels
	//   - int: the height in pixels
	Size() (int, int)

	// Resize records the new surface size and reconfigures the surface.
	// A zero dimension, such as a minimized window, is recorded without reconfiguring.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the surface could not be configured
	Resize(width, height int) error

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// The surface is reconfigured at the current size.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	//
	// Returns:
	//   - error: an error if the surface could not be configured
	SetPresentMode(mode PresentMode) error

	// RegisterBindGroupLayout creates and caches a bind group layout for the given key.
	//
	// Parameters:
	//   - key: the type identity of the Bind the layout belongs to
	//   - descriptor: the layout descriptor
	//
	// Returns:
	//   - error: ErrBindGroupLayoutRegistered if the key is already registered, or the creation error
	RegisterBindGroupLayout(key reflect.Type, descriptor wgpu.BindGroupLayoutDescriptor) error

	// BindGroupLayout returns the cached bind group layout for the given key.
	//
	// Parameters:
	//   - key: the type identity of the Bind
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout, or nil if not registered
	//   - bool: whether the key is registered
	BindGroupLayout(key reflect.Type) (*wgpu.BindGroupLayout, bool)

	// RegisterPipelineLayout creates and caches a pipeline layout whose bind group slots follow the order of keys.
	//
	// Parameters:
	//   - keys: the type identities of the Binds, one per slot
	//
	// Returns:
	//   - error: ErrBindGroupLayoutNotRegistered if a key has no layout, ErrPipelineLayoutRegistered
	//     if the ordered keys are already registered, or the creation error
	RegisterPipelineLayout(keys ...reflect.Type) error

	// PipelineLayout returns the cached pipeline layout for the ordered keys.
	//
	// Parameters:
	//   - keys: the type identities of the Binds, one per slot
	//
	// Returns:
	//   - *wgpu.PipelineLayout: the layout, or nil if not registered
	//   - bool: whether the ordered keys are registered
	PipelineLayout(keys ...reflect.Type) (*wgpu.PipelineLayout, bool)

	// CreateBuffer creates a GPU buffer initialized with data.
	//
	// Parameters:
	//   - label: the debug label of the buffer
	//   - data: the initial contents, zero padded to the copy alignment
	//   - usage: the buffer usage flags
	//
	// Returns:
	//   - *wgpu.Buffer: the created buffer
	//   - error: an error if buffer creation fails
	CreateBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error)

	// WriteBuffer writes data into buf at the given byte offset through the queue.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the byte offset into buf
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the write fails
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error

	// ReleaseBuffer releases a buffer created by CreateBuffer. Nil buffers are ignored.
	//
	// Parameters:
	//   - buf: the buffer to release
	ReleaseBuffer(buf *wgpu.Buffer)

	// CreateBindGroup creates a bind group using the layout registered for key.
	//
	// Parameters:
	//   - key: the type identity of the Bind the group is created for
	//   - label: the debug label of the bind group
	//   - entries: the resources bound by the group
	//
	// Returns:
	//   - *wgpu.BindGroup: the created bind group
	//   - error: ErrBindGroupLayoutNotRegistered if key has no layout, or the creation error
	CreateBindGroup(key reflect.Type, label string, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error)

	// CreateTexture uploads staged RGBA pixels into a new sRGB 2D texture.
	//
	// Parameters:
	//   - label: the debug label of the texture
	//   - stagingData: the pixel data and dimensions
	//
	// Returns:
	//   - *wgpu.Texture: the created texture
	//   - *wgpu.TextureView: the default view of the texture
	//   - error: an error if creation or upload fails
	CreateTexture(label string, stagingData common.TextureStagingData) (*wgpu.Texture, *wgpu.TextureView, error)

	// CreateSampler creates a sampler from the staged configuration.
	//
	// Parameters:
	//   - label: the debug label of the sampler
	//   - samplerStagingData: the sampler configuration
	//
	// Returns:
	//   - *wgpu.Sampler: the created sampler
	//   - error: an error if sampler creation fails
	CreateSampler(label string, samplerStagingData common.SamplerStagingData) (*wgpu.Sampler, error)

	// CreateShaderModule compiles a shader module on the device.
	//
	// Parameters:
	//   - descriptor: the shader module descriptor
	//
	// Returns:
	//   - *wgpu.ShaderModule: the created module
	//   - error: an error if the device rejects the module
	CreateShaderModule(descriptor *wgpu.ShaderModuleDescriptor) (*wgpu.ShaderModule, error)

	// CreateRenderPipeline creates a render pipeline on the device.
	//
	// Parameters:
	//   - descriptor: the render pipeline descriptor
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the created pipeline
	//   - error: an error if pipeline creation fails
	CreateRenderPipeline(descriptor *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error)

	// BeginFrame acquires the next surface texture and begins a render pass cleared to the given color.
	// Must be paired with EndFrame.
	//
	// Parameters:
	//   - clear: the clear color
	//
	// Returns:
	//   - *wgpu.RenderPassEncoder: the render pass of the frame
	//   - error: ErrFrameInProgress if the previous frame was not ended, or the acquisition error
	BeginFrame(clear wgpu.Color) (*wgpu.RenderPassEncoder, error)

	// EndFrame ends the render pass of the current frame, submits it and presents the surface.
	//
	// Returns:
	//   - error: ErrNoFrame if no frame is in progress, or the submission error
	EndFrame() error

	// Logger returns the logger the Renderer was created with.
	//
	// Returns:
	//   - *zap.Logger: the logger
	Logger() *zap.Logger

	// Release releases every cached layout and the device objects. The Renderer must not be used afterwards.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer for the given window. The adapter is requested compatible with the
// window surface and the surface is configured at the window size.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - window: the window providing the surface descriptor and initial size
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the configured Renderer
//   - error: an error if the adapter, device or surface could not be set up
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		logger:      zap.NewNop(),
		presentMode: PresentModeVSync,
	}

	// Options first so adapter flags are known before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	var (
		backend RendererBackend
		err     error
	)
	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		backend, err = newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter, r.powerPreference, r.logger)
	}
	if err != nil {
		return nil, err
	}

	return newRendererWithBackend(r, backend, window.Width(), window.Height())
}

// MustNewRenderer is NewRenderer for callers that cannot continue without a GPU. It panics on error.
func MustNewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) Renderer {
	r, err := NewRenderer(backendType, window, options...)
	if err != nil {
		panic(err)
	}
	return r
}

func newRendererWithBackend(r *renderer, backend RendererBackend, width, height int) (*renderer, error) {
	r.backend = backend
	r.registry = newLayoutRegistry(backend)
	r.backend.SetPresentMode(r.presentMode)

	if err := r.Resize(width, height); err != nil {
		r.backend.Release()
		return nil, err
	}
	return r, nil
}

func (r *renderer) Device() *wgpu.Device {
	return r.backend.Device()
}

func (r *renderer) Queue() *wgpu.Queue {
	return r.backend.Queue()
}

func (r *renderer) Surface() *wgpu.Surface {
	return r.backend.Surface()
}

func (r *renderer) SurfaceConfiguration() *wgpu.SurfaceConfiguration {
	return r.backend.SurfaceConfiguration()
}

func (r *renderer) SurfaceFormat() wgpu.TextureFormat {
	return r.backend.SurfaceFormat()
}

func (r *renderer) Logger() *zap.Logger {
	return r.logger
}

func (r *renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	r.width, r.height = width, height
	r.mu.Unlock()

	if width <= 0 || height <= 0 {
		r.logger.Debug("skipping surface configuration for empty size", zap.Int("width", width), zap.Int("height", height))
		return nil
	}
	return r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) error {
	r.mu.Lock()
	r.presentMode = mode
	width, height := r.width, r.height
	r.mu.Unlock()

	r.backend.SetPresentMode(mode)
	return r.Resize(width, height)
}

func (r *renderer) RegisterBindGroupLayout(key reflect.Type, descriptor wgpu.BindGroupLayoutDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.registry.registerBindGroupLayout(key, descriptor); err != nil {
		return err
	}
	r.logger.Debug("registered bind group layout", zap.Stringer("key", key))
	return nil
}

func (r *renderer) BindGroupLayout(key reflect.Type) (*wgpu.BindGroupLayout, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry.bindGroupLayout(key)
}

func (r *renderer) RegisterPipelineLayout(keys ...reflect.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.registry.registerPipelineLayout(keys); err != nil {
		return err
	}
	r.logger.Debug("registered pipeline layout", zap.String("keys", fmt.Sprint(keys)))
	return nil
}

func (r *renderer) PipelineLayout(keys ...reflect.Type) (*wgpu.PipelineLayout, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry.pipelineLayout(keys)
}

func (r *renderer) CreateBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := r.backend.CreateBuffer(label, data, usage)
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %q: %w", label, err)
	}
	return buf, nil
}

func (r *renderer) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	if buf == nil {
		return fmt.Errorf("write to nil buffer")
	}
	return r.backend.WriteBuffer(buf, offset, data)
}

func (r *renderer) ReleaseBuffer(buf *wgpu.Buffer) {
	if buf != nil {
		buf.Release()
	}
}

func (r *renderer) CreateBindGroup(key reflect.Type, label string, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error) {
	layout, ok := r.BindGroupLayout(key)
	if !ok {
		return nil, fmt.Errorf("%v: %w", key, ErrBindGroupLayoutNotRegistered)
	}
	bg, err := r.backend.CreateBindGroup(layout, label, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group %q: %w", label, err)
	}
	return bg, nil
}

func (r *renderer) CreateTexture(label string, stagingData common.TextureStagingData) (*wgpu.Texture, *wgpu.TextureView, error) {
	if stagingData.Width == 0 || stagingData.Height == 0 {
		return nil, nil, fmt.Errorf("texture %q has empty size %dx%d", label, stagingData.Width, stagingData.Height)
	}
	if want := int(stagingData.BytesPerRow() * stagingData.Height); len(stagingData.Pixels) != want {
		return nil, nil, fmt.Errorf("texture %q has %d bytes of pixels, want %d", label, len(stagingData.Pixels), want)
	}
	return r.backend.CreateTexture(label, stagingData)
}

func (r *renderer) CreateSampler(label string, samplerStagingData common.SamplerStagingData) (*wgpu.Sampler, error) {
	return r.backend.CreateSampler(label, samplerStagingData)
}

func (r *renderer) CreateShaderModule(descriptor *wgpu.ShaderModuleDescriptor) (*wgpu.ShaderModule, error) {
	return r.backend.CreateShaderModule(descriptor)
}

func (r *renderer) CreateRenderPipeline(descriptor *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	return r.backend.CreateRenderPipeline(descriptor)
}

func (r *renderer) BeginFrame(clear wgpu.Color) (*wgpu.RenderPassEncoder, error) {
	return r.backend.BeginFrame(clear)
}

func (r *renderer) EndFrame() error {
	return r.backend.EndFrame()
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.registry.release(
		func(l *wgpu.BindGroupLayout) { l.Release() },
		func(l *wgpu.PipelineLayout) { l.Release() },
	)
	r.backend.Release()
}
