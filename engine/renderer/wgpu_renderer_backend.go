package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/meshed/common"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// copyBufferAlignment is the size multiple required for buffers written through the queue.
const copyBufferAlignment = 4

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	logger *zap.Logger

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	surfaceConfig *wgpu.SurfaceConfiguration
	presentMode   wgpu.PresentMode

	// Frame state between BeginFrame and EndFrame.
	frame        frameGuard
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

type wgpuRendererBackend interface {
	layoutFactory

	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Surface() *wgpu.Surface
	SurfaceFormat() wgpu.TextureFormat
	SurfaceConfiguration() *wgpu.SurfaceConfiguration

	// ConfigureSurface is a wrapper for boilerplate logic required when calling Configure on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the surface reports no supported formats
	ConfigureSurface(width, height int) error

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// CreateBuffer creates a GPU buffer initialized with data. The contents are zero padded to the copy alignment.
	//
	// Parameters:
	//   - label: the debug label of the buffer
	//   - data: the initial contents
	//   - usage: the buffer usage flags
	//
	// Returns:
	//   - *wgpu.Buffer: the created buffer
	//   - error: an error if buffer creation fails
	CreateBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error)

	// WriteBuffer schedules a write of data into buf at the given byte offset.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the byte offset into buf
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the queue rejects the write
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error

	// CreateBindGroup creates a bind group against the given layout.
	//
	// Parameters:
	//   - layout: the bind group layout
	//   - label: the debug label of the bind group
	//   - entries: the resources bound by the group
	//
	// Returns:
	//   - *wgpu.BindGroup: the created bind group
	//   - error: an error if bind group creation fails
	CreateBindGroup(layout *wgpu.BindGroupLayout, label string, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error)

	// CreateTexture uploads the staged RGBA pixels to a new sRGB 2D texture and creates its default view.
	//
	// Parameters:
	//   - label: the debug label of the texture
	//   - stagingData: the pixel data and dimensions
	//
	// Returns:
	//   - *wgpu.Texture: the created texture
	//   - *wgpu.TextureView: the default view of the texture
	//   - error: an error if texture or view creation fails
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

	CreateShaderModule(descriptor *wgpu.ShaderModuleDescriptor) (*wgpu.ShaderModule, error)
	CreateRenderPipeline(descriptor *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error)

	// BeginFrame acquires the next surface texture, creates a command encoder, and begins
	// the main render pass cleared to the given color. Must be paired with EndFrame.
	//
	// Parameters:
	//   - clear: the color the surface is cleared to
	//
	// Returns:
	//   - *wgpu.RenderPassEncoder: the render pass to encode draw commands into
	//   - error: an error if a frame is already in progress or the surface texture could not be acquired
	BeginFrame(clear wgpu.Color) (*wgpu.RenderPassEncoder, error)

	// EndFrame ends the current render pass, submits the command buffer to the GPU and presents the surface.
	//
	// Returns:
	//   - error: an error if no frame is in progress or the command buffer could not be finished
	EndFrame() error

	// Release releases every GPU object owned by the backend.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, powerPreference wgpu.PowerPreference, logger *zap.Logger) (wgpuRendererBackend, error) {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		logger:      logger,
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
		PowerPreference:      powerPreference,
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()

	logger.Debug("acquired gpu device",
		zap.Bool("forceFallbackAdapter", forceFallbackAdapter),
		zap.Uint32("powerPreference", uint32(powerPreference)),
	)
	return w, nil
}

// preferredSurfaceFormat picks the sRGB BGRA format when the surface supports it and the first
// reported format otherwise.
func preferredSurfaceFormat(formats []wgpu.TextureFormat) (wgpu.TextureFormat, bool) {
	if len(formats) == 0 {
		return wgpu.TextureFormatUndefined, false
	}
	for _, f := range formats {
		if f == wgpu.TextureFormatBGRA8UnormSrgb {
			return f, true
		}
	}
	return formats[0], true
}

// alignedContents pads data with zeros up to the copy alignment.
func alignedContents(data []byte) []byte {
	rem := len(data) % copyBufferAlignment
	if len(data) > 0 && rem == 0 {
		return data
	}
	size := len(data) + copyBufferAlignment - rem
	padded := make([]byte, size)
	copy(padded, data)
	return padded
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	format, ok := preferredSurfaceFormat(capabilities.Formats)
	if !ok {
		return fmt.Errorf("surface reports no supported formats")
	}
	b.surfaceFormat = format

	alphaMode := wgpu.CompositeAlphaModeAuto
	if len(capabilities.AlphaModes) > 0 {
		alphaMode = capabilities.AlphaModes[0]
	}

	b.surfaceConfig = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   alphaMode,
	}
	b.surface.Configure(b.adapter, b.device, b.surfaceConfig)

	b.logger.Debug("configured surface",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Uint32("format", uint32(b.surfaceFormat)),
	)
	return nil
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) CreateBindGroupLayout(descriptor *wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error) {
	return b.device.CreateBindGroupLayout(descriptor)
}

func (b *wgpuRendererBackendImpl) CreatePipelineLayout(descriptor *wgpu.PipelineLayoutDescriptor) (*wgpu.PipelineLayout, error) {
	return b.device.CreatePipelineLayout(descriptor)
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: alignedContents(data),
		Usage:    usage,
	})
}

func (b *wgpuRendererBackendImpl) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.queue.WriteBuffer(buf, offset, alignedContents(data))
}

func (b *wgpuRendererBackendImpl) CreateBindGroup(layout *wgpu.BindGroupLayout, label string, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
}

func (b *wgpuRendererBackendImpl) CreateTexture(label string, stagingData common.TextureStagingData) (*wgpu.Texture, *wgpu.TextureView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := wgpu.Extent3D{
		Width:              stagingData.Width,
		Height:             stagingData.Height,
		DepthOrArrayLayers: 1,
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, nil, err
	}

	err = b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		stagingData.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  stagingData.BytesPerRow(),
			RowsPerImage: stagingData.Height,
		},
		&size,
	)
	if err != nil {
		tex.Release()
		return nil, nil, err
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, err
	}
	return tex, view, nil
}

func (b *wgpuRendererBackendImpl) CreateSampler(label string, samplerStagingData common.SamplerStagingData) (*wgpu.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  samplerStagingData.AddressModeU,
		AddressModeV:  samplerStagingData.AddressModeV,
		AddressModeW:  samplerStagingData.AddressModeW,
		MagFilter:     samplerStagingData.MagFilter,
		MinFilter:     samplerStagingData.MinFilter,
		MipmapFilter:  samplerStagingData.MipmapFilter,
		LodMinClamp:   samplerStagingData.LodMinClamp,
		LodMaxClamp:   common.Coalesce(samplerStagingData.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(samplerStagingData.MaxAnisotropy, 1),
		Compare:       samplerStagingData.Compare,
	})
}

func (b *wgpuRendererBackendImpl) CreateShaderModule(descriptor *wgpu.ShaderModuleDescriptor) (*wgpu.ShaderModule, error) {
	return b.device.CreateShaderModule(descriptor)
}

func (b *wgpuRendererBackendImpl) CreateRenderPipeline(descriptor *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	return b.device.CreateRenderPipeline(descriptor)
}

func (b *wgpuRendererBackendImpl) BeginFrame(clear wgpu.Color) (*wgpu.RenderPassEncoder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A held surface texture means the previous frame was never presented; acquiring another
	// one fails inside wgpu-native with "Surface image is already acquired".
	if err := b.frame.begin(); err != nil {
		return nil, err
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		b.frame.reset()
		return nil, err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		b.frame.reset()
		return nil, err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		b.frame.reset()
		return nil, err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: clear,
			},
		},
	})

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view

	return pass, nil
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.frame.end(); err != nil {
		return err
	}
	defer b.releaseFrame()

	b.framePass.End()
	b.framePass.Release()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	b.surface.Present()
	return nil
}

// releaseFrame drops the per-frame objects. Must be called with mu held.
func (b *wgpuRendererBackendImpl) releaseFrame() {
	b.frame.reset()
	if b.framePass != nil {
		b.framePass.Release()
		b.framePass = nil
	}
	if b.frameEncoder != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
	}
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseFrame()
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Surface() *wgpu.Surface {
	return b.surface
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) SurfaceConfiguration() *wgpu.SurfaceConfiguration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceConfig
}
