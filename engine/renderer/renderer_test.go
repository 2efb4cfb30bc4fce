package renderer

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/meshed/common"
	"github.com/Carmen-Shannon/meshed/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBackend implements the parts of RendererBackend that do not need a GPU.
// Calling any other method panics on the nil embedded interface.
type fakeBackend struct {
	RendererBackend
	fakeLayoutFactory

	configured   [][2]int
	presentModes []PresentMode
	bindGroups   []*wgpu.BindGroupLayout
}

func (f *fakeBackend) CreateBindGroupLayout(descriptor *wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error) {
	return f.fakeLayoutFactory.CreateBindGroupLayout(descriptor)
}

func (f *fakeBackend) CreatePipelineLayout(descriptor *wgpu.PipelineLayoutDescriptor) (*wgpu.PipelineLayout, error) {
	return f.fakeLayoutFactory.CreatePipelineLayout(descriptor)
}

func (f *fakeBackend) ConfigureSurface(width, height int) error {
	f.configured = append(f.configured, [2]int{width, height})
	return nil
}

func (f *fakeBackend) SetPresentMode(mode PresentMode) {
	f.presentModes = append(f.presentModes, mode)
}

func (f *fakeBackend) CreateBindGroup(layout *wgpu.BindGroupLayout, label string, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error) {
	f.bindGroups = append(f.bindGroups, layout)
	return &wgpu.BindGroup{}, nil
}

func newTestRenderer(t *testing.T, opts ...RendererBuilderOption) (*renderer, *fakeBackend) {
	t.Helper()
	r := &renderer{
		mu:          &sync.Mutex{},
		logger:      zap.NewNop(),
		presentMode: PresentModeVSync,
	}
	for _, opt := range opts {
		opt(r)
	}
	backend := &fakeBackend{}
	r, err := newRendererWithBackend(r, backend, 800, 600)
	require.NoError(t, err)
	return r, backend
}

type testBind struct{}

func (*testBind) BindGroup() *wgpu.BindGroup { return nil }

func (*testBind) BindGroupLayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Test",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			},
		},
	}
}

type otherBind struct{}

func (*otherBind) BindGroup() *wgpu.BindGroup { return nil }

func (*otherBind) BindGroupLayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{}
}

func TestNewRendererConfiguresSurface(t *testing.T) {
	r, backend := newTestRenderer(t, WithPresentMode(PresentModeUncapped))

	assert.Equal(t, [][2]int{{800, 600}}, backend.configured)
	assert.Equal(t, []PresentMode{PresentModeUncapped}, backend.presentModes)

	w, h := r.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
}

func TestResize(t *testing.T) {
	r, backend := newTestRenderer(t)

	require.NoError(t, r.Resize(1024, 768))
	assert.Equal(t, [2]int{1024, 768}, backend.configured[len(backend.configured)-1])

	// minimized windows report a zero size
	require.NoError(t, r.Resize(0, 768))
	assert.Len(t, backend.configured, 2)
	w, h := r.Size()
	assert.Equal(t, 0, w)
	assert.Equal(t, 768, h)
}

func TestSetPresentModeReconfigures(t *testing.T) {
	r, backend := newTestRenderer(t)

	require.NoError(t, r.SetPresentMode(PresentModeUncapped))
	assert.Equal(t, []PresentMode{PresentModeVSync, PresentModeUncapped}, backend.presentModes)
	assert.Len(t, backend.configured, 2)
}

func TestRegisterBindGroupLayoutFor(t *testing.T) {
	r, backend := newTestRenderer(t)

	require.NoError(t, RegisterBindGroupLayoutFor[*testBind](r))
	require.Len(t, backend.fakeLayoutFactory.bindGroupLayouts, 1)
	assert.Equal(t, "Test", backend.fakeLayoutFactory.bindGroupLayouts[0].Label)

	err := RegisterBindGroupLayoutFor[*testBind](r)
	assert.ErrorIs(t, err, ErrBindGroupLayoutRegistered)
	assert.Panics(t, func() { MustRegisterBindGroupLayoutFor[*testBind](r) })

	layout, ok := BindGroupLayoutFor[*testBind](r)
	assert.True(t, ok)
	assert.NotNil(t, layout)
	assert.Same(t, layout, MustBindGroupLayoutFor[*testBind](r))

	_, ok = BindGroupLayoutFor[*otherBind](r)
	assert.False(t, ok)
	assert.Panics(t, func() { MustBindGroupLayoutFor[*otherBind](r) })
}

func TestRendererPipelineLayout(t *testing.T) {
	r, _ := newTestRenderer(t)
	testKey := bind_group_provider.KeyOf[*testBind]()
	otherKey := bind_group_provider.KeyOf[*otherBind]()

	err := r.RegisterPipelineLayout(testKey, otherKey)
	assert.ErrorIs(t, err, ErrBindGroupLayoutNotRegistered)
	assert.Panics(t, func() { MustPipelineLayout(r, testKey, otherKey) })

	MustRegisterBindGroupLayoutFor[*testBind](r)
	MustRegisterBindGroupLayoutFor[*otherBind](r)
	MustRegisterPipelineLayout(r, testKey, otherKey)

	assert.NotNil(t, MustPipelineLayout(r, testKey, otherKey))
	assert.ErrorIs(t, r.RegisterPipelineLayout(testKey, otherKey), ErrPipelineLayoutRegistered)

	_, ok := r.PipelineLayout(otherKey, testKey)
	assert.False(t, ok)
}

func TestCreateBindGroupUsesRegisteredLayout(t *testing.T) {
	r, backend := newTestRenderer(t)
	key := bind_group_provider.KeyOf[*testBind]()

	_, err := r.CreateBindGroup(key, "Test", nil)
	assert.ErrorIs(t, err, ErrBindGroupLayoutNotRegistered)

	MustRegisterBindGroupLayoutFor[*testBind](r)
	bg, err := r.CreateBindGroup(key, "Test", nil)
	require.NoError(t, err)
	assert.NotNil(t, bg)

	require.Len(t, backend.bindGroups, 1)
	assert.Same(t, MustBindGroupLayoutFor[*testBind](r), backend.bindGroups[0])
}

func TestCreateTextureValidatesStagingData(t *testing.T) {
	r, _ := newTestRenderer(t)

	_, _, err := r.CreateTexture("Empty", common.TextureStagingData{})
	assert.Error(t, err)

	_, _, err = r.CreateTexture("Short", common.TextureStagingData{Width: 2, Height: 2, Pixels: make([]byte, 15)})
	assert.Error(t, err)
}

func TestWriteBufferNil(t *testing.T) {
	r, _ := newTestRenderer(t)
	assert.Error(t, r.WriteBuffer(nil, 0, []byte{1, 2, 3, 4}))
}

func TestPreferredSurfaceFormat(t *testing.T) {
	_, ok := preferredSurfaceFormat(nil)
	assert.False(t, ok)

	f, ok := preferredSurfaceFormat([]wgpu.TextureFormat{wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb})
	assert.True(t, ok)
	assert.Equal(t, wgpu.TextureFormatBGRA8UnormSrgb, f)

	f, ok = preferredSurfaceFormat([]wgpu.TextureFormat{wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatBGRA8Unorm})
	assert.True(t, ok)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, f)
}

func TestAlignedContents(t *testing.T) {
	aligned := []byte{1, 2, 3, 4}
	assert.Equal(t, aligned, alignedContents(aligned))

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 0, 0, 0}, alignedContents([]byte{1, 2, 3, 4, 5}))
	assert.Equal(t, []byte{0, 0, 0, 0}, alignedContents(nil))
}

func TestParsePresentMode(t *testing.T) {
	for _, mode := range []PresentMode{PresentModeVSync, PresentModeUncapped} {
		got, ok := ParsePresentMode(mode.String())
		assert.True(t, ok)
		assert.Equal(t, mode, got)
	}

	got, ok := ParsePresentMode("")
	assert.True(t, ok)
	assert.Equal(t, PresentModeVSync, got)

	_, ok = ParsePresentMode("triple")
	assert.False(t, ok)
}
