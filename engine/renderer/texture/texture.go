package texture

import (
	"fmt"
	"reflect"

	"github.com/Carmen-Shannon/meshed/common"
	"github.com/Carmen-Shannon/meshed/engine/renderer"
	"github.com/Carmen-Shannon/meshed/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// Resources is the subset of the Renderer a Texture needs.
type Resources interface {
	CreateTexture(label string, stagingData common.TextureStagingData) (*wgpu.Texture, *wgpu.TextureView, error)
	CreateSampler(label string, samplerStagingData common.SamplerStagingData) (*wgpu.Sampler, error)
	BindGroupLayout(key reflect.Type) (*wgpu.BindGroupLayout, bool)
	CreateBindGroup(key reflect.Type, label string, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error)
}

// DefaultSampler clamps to the edge, filters linearly when magnifying and picks the nearest texel and mip level
// when minifying.
var DefaultSampler = common.SamplerStagingData{
	AddressModeU: wgpu.AddressModeClampToEdge,
	AddressModeV: wgpu.AddressModeClampToEdge,
	AddressModeW: wgpu.AddressModeClampToEdge,
	MagFilter:    wgpu.FilterModeLinear,
	MinFilter:    wgpu.FilterModeNearest,
	MipmapFilter: wgpu.MipmapFilterModeNearest,
	LodMinClamp:  0,
	LodMaxClamp:  100,
}

const (
	viewBinding    = 0
	samplerBinding = 1
)

// Texture is a sampled sRGB 2D texture with its sampler, bound as binding 0 (view) and binding 1 (sampler).
// The layout for *Texture must be registered with the Renderer before textures are created.
type Texture struct {
	provider      bind_group_provider.BindGroupProvider
	width, height uint32
}

var _ bind_group_provider.Bind = (*Texture)(nil)

// NewTexture decodes an encoded image and uploads it with DefaultSampler.
//
// Parameters:
//   - res: the Renderer (or any Resources)
//   - label: debug label for the GPU objects
//   - encoded: the encoded image bytes
//
// Returns:
//   - *Texture: the created texture
//   - error: an error if decoding or any GPU object creation fails
func NewTexture(res Resources, label string, encoded []byte) (*Texture, error) {
	staging, err := Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	return NewTextureFromStaging(res, label, staging, DefaultSampler)
}

// NewTextures decodes the images concurrently and uploads them in order.
// Textures created before a failure are released.
//
// Parameters:
//   - res: the Renderer (or any Resources)
//   - labels: one debug label per image
//   - encoded: the encoded images
//
// Returns:
//   - []*Texture: the created textures, in input order
//   - error: an error if the inputs mismatch, decoding fails, or any GPU object creation fails
func NewTextures(res Resources, labels []string, encoded ...[]byte) ([]*Texture, error) {
	if len(labels) != len(encoded) {
		return nil, fmt.Errorf("got %d labels for %d images", len(labels), len(encoded))
	}
	staged, err := DecodeAll(encoded...)
	if err != nil {
		return nil, err
	}

	textures := make([]*Texture, 0, len(staged))
	for i, s := range staged {
		t, err := NewTextureFromStaging(res, labels[i], s, DefaultSampler)
		if err != nil {
			for _, created := range textures {
				created.Release()
			}
			return nil, err
		}
		textures = append(textures, t)
	}
	return textures, nil
}

// NewTextureFromStaging uploads already decoded RGBA pixels.
//
// Parameters:
//   - res: the Renderer (or any Resources)
//   - label: debug label for the GPU objects
//   - staging: the RGBA pixels
//   - sampler: the sampler configuration
//
// Returns:
//   - *Texture: the created texture
//   - error: renderer.ErrBindGroupLayoutNotRegistered if *Texture has no layout, or a GPU object creation error
func NewTextureFromStaging(res Resources, label string, staging common.TextureStagingData, sampler common.SamplerStagingData) (*Texture, error) {
	key := bind_group_provider.KeyOf[*Texture]()
	if _, ok := res.BindGroupLayout(key); !ok {
		return nil, fmt.Errorf("%v: %w", key, renderer.ErrBindGroupLayoutNotRegistered)
	}

	tex, view, err := res.CreateTexture(label+" Texture", staging)
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %q: %w", label, err)
	}
	t := &Texture{
		provider: bind_group_provider.NewBindGroupProvider(label),
		width:    staging.Width,
		height:   staging.Height,
	}
	t.provider.SetTexture(viewBinding, tex)
	t.provider.SetTextureView(viewBinding, view)

	samp, err := res.CreateSampler(label+" Sampler", sampler)
	if err != nil {
		t.Release()
		return nil, fmt.Errorf("failed to create sampler %q: %w", label, err)
	}
	t.provider.SetSampler(samplerBinding, samp)

	entries, err := t.provider.Entries(t.BindGroupLayoutDescriptor())
	if err != nil {
		t.Release()
		return nil, err
	}
	bg, err := res.CreateBindGroup(key, label+" Bind Group", entries)
	if err != nil {
		t.Release()
		return nil, err
	}
	t.provider.SetBindGroup(bg)
	return t, nil
}

// Size returns the texture size in pixels.
func (t *Texture) Size() (uint32, uint32) {
	return t.width, t.height
}

// View returns the default view of the texture.
func (t *Texture) View() *wgpu.TextureView {
	return t.provider.TextureView(viewBinding)
}

// Sampler returns the sampler of the texture.
func (t *Texture) Sampler() *wgpu.Sampler {
	return t.provider.Sampler(samplerBinding)
}

func (t *Texture) BindGroup() *wgpu.BindGroup {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.BindGroup()
}

// BindGroupLayoutDescriptor exposes a filterable float 2D texture at binding 0 and a filtering sampler
// at binding 1, both to the fragment stage.
func (*Texture) BindGroupLayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Texture Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    viewBinding,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
					Multisampled:  false,
				},
			},
			{
				Binding:    samplerBinding,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	}
}

// Release releases the texture, its view, the sampler and the bind group.
func (t *Texture) Release() {
	t.provider.Release()
}
