package pipeline

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Carmen-Shannon/meshed/engine/renderer"
	"github.com/Carmen-Shannon/meshed/engine/renderer/mesh"
	"github.com/Carmen-Shannon/meshed/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadSource = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@location(0) pos: vec3<f32>, @location(1) col: vec3<f32>, @location(2) uv: vec2<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(pos.x, pos.y, pos.z, 1.0);
    out.uv = uv;
    return out;
}

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(uv.x, uv.y, 0.0, 1.0);
}
`

type textureBind struct{}
type transformBind struct{}

// fakeDevice records what the pipeline asks for. Shader modules come back nil so that releasing a
// partially built pipeline never touches a fake GPU object.
type fakeDevice struct {
	layout      *wgpu.PipelineLayout
	layoutKeys  []reflect.Type
	modules     []*wgpu.ShaderModuleDescriptor
	descriptor  *wgpu.RenderPipelineDescriptor
	pipelineErr error
}

func (d *fakeDevice) PipelineLayout(keys ...reflect.Type) (*wgpu.PipelineLayout, bool) {
	if !reflect.DeepEqual(keys, d.layoutKeys) {
		return nil, false
	}
	return d.layout, true
}

func (d *fakeDevice) SurfaceFormat() wgpu.TextureFormat {
	return wgpu.TextureFormatBGRA8UnormSrgb
}

func (d *fakeDevice) CreateShaderModule(descriptor *wgpu.ShaderModuleDescriptor) (*wgpu.ShaderModule, error) {
	d.modules = append(d.modules, descriptor)
	return nil, nil
}

func (d *fakeDevice) CreateRenderPipeline(descriptor *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	d.descriptor = descriptor
	if d.pipelineErr != nil {
		return nil, d.pipelineErr
	}
	return &wgpu.RenderPipeline{}, nil
}

func newShaders(t *testing.T) (shader.Shader, shader.Shader) {
	t.Helper()
	vs, err := shader.NewShader("quad.vs", shader.ShaderTypeVertex, quadSource)
	require.NoError(t, err)
	fs, err := shader.NewShader("quad.fs", shader.ShaderTypeFragment, quadSource)
	require.NoError(t, err)
	return vs, fs
}

func bindTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[*textureBind](), reflect.TypeFor[*transformBind]()}
}

func TestNewPipelineDefaults(t *testing.T) {
	vs, fs := newShaders(t)
	device := &fakeDevice{layout: &wgpu.PipelineLayout{}, layoutKeys: bindTypes()}

	p, err := NewPipeline[mesh.Vertex, uint16](device, vs, fs, bindTypes())
	require.NoError(t, err)
	require.NotNil(t, p.RenderPipeline())
	assert.Equal(t, "quad.vs+quad.fs", p.Label())
	assert.Equal(t, bindTypes(), p.Binds())
	assert.Same(t, vs, p.Shader(shader.ShaderTypeVertex))
	assert.Same(t, fs, p.Shader(shader.ShaderTypeFragment))
	assert.Nil(t, p.Shader(shader.ShaderTypeCompute))

	require.Len(t, device.modules, 2)
	assert.Equal(t, "quad.vs", device.modules[0].Label)
	assert.Equal(t, "quad.fs", device.modules[1].Label)

	d := device.descriptor
	require.NotNil(t, d)
	assert.Same(t, device.layout, d.Layout)
	assert.Equal(t, "vs_main", d.Vertex.EntryPoint)
	assert.Equal(t, []wgpu.VertexBufferLayout{mesh.LayoutOf[mesh.Vertex]()}, d.Vertex.Buffers)

	require.NotNil(t, d.Fragment)
	assert.Equal(t, "fs_main", d.Fragment.EntryPoint)
	require.Len(t, d.Fragment.Targets, 1)
	target := d.Fragment.Targets[0]
	assert.Equal(t, wgpu.TextureFormatBGRA8UnormSrgb, target.Format)
	assert.Equal(t, wgpu.ColorWriteMaskAll, target.WriteMask)
	require.NotNil(t, target.Blend)
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, target.Blend.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, target.Blend.Color.DstFactor)
	assert.Equal(t, wgpu.BlendFactorOne, target.Blend.Alpha.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorZero, target.Blend.Alpha.DstFactor)

	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, d.Primitive.Topology)
	assert.Equal(t, wgpu.FrontFaceCCW, d.Primitive.FrontFace)
	assert.Equal(t, wgpu.CullModeBack, d.Primitive.CullMode)
	assert.Equal(t, wgpu.IndexFormatUndefined, d.Primitive.StripIndexFormat)
	assert.Nil(t, d.DepthStencil)
	assert.Equal(t, uint32(1), d.Multisample.Count)
	assert.Equal(t, uint32(0xFFFFFFFF), d.Multisample.Mask)
}

func TestNewPipelineOptions(t *testing.T) {
	vs, fs := newShaders(t)
	device := &fakeDevice{layout: &wgpu.PipelineLayout{}}

	p, err := NewPipeline[mesh.Vertex, uint32](device, vs, fs, nil,
		WithLabel("logo"),
		WithCullMode(wgpu.CullModeNone),
		WithFrontFace(wgpu.FrontFaceCW),
		WithTopology(wgpu.PrimitiveTopologyTriangleStrip),
		WithWriteMask(wgpu.ColorWriteMaskRed),
		WithBlendState(nil),
	)
	require.NoError(t, err)
	assert.Equal(t, "logo", p.Label())
	assert.Equal(t, wgpu.CullModeNone, p.CullMode())
	assert.Equal(t, wgpu.FrontFaceCW, p.FrontFace())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleStrip, p.Topology())
	assert.Equal(t, wgpu.ColorWriteMaskRed, p.WriteMask())
	assert.Nil(t, p.BlendState())

	d := device.descriptor
	assert.Equal(t, "logo Render Pipeline", d.Label)
	assert.Equal(t, wgpu.IndexFormatUint32, d.Primitive.StripIndexFormat)
	assert.Nil(t, d.Fragment.Targets[0].Blend)
}

func TestNewPipelineUnregisteredLayout(t *testing.T) {
	vs, fs := newShaders(t)
	device := &fakeDevice{layout: &wgpu.PipelineLayout{}, layoutKeys: bindTypes()}

	reversed := []reflect.Type{bindTypes()[1], bindTypes()[0]}
	_, err := NewPipeline[mesh.Vertex, uint16](device, vs, fs, reversed)
	assert.ErrorIs(t, err, renderer.ErrPipelineLayoutNotRegistered)
	assert.Empty(t, device.modules, "nothing is created for an unknown layout")
}

func TestNewPipelineShaderStages(t *testing.T) {
	vs, fs := newShaders(t)
	device := &fakeDevice{layout: &wgpu.PipelineLayout{}}

	_, err := NewPipeline[mesh.Vertex, uint16](device, fs, fs, nil)
	assert.ErrorContains(t, err, "vertex shader")
	_, err = NewPipeline[mesh.Vertex, uint16](device, vs, vs, nil)
	assert.ErrorContains(t, err, "fragment shader")
	_, err = NewPipeline[mesh.Vertex, uint16](device, nil, fs, nil)
	assert.Error(t, err)
}

func TestNewPipelineDeviceError(t *testing.T) {
	vs, fs := newShaders(t)
	boom := errors.New("boom")
	device := &fakeDevice{layout: &wgpu.PipelineLayout{}, pipelineErr: boom}

	_, err := NewPipeline[mesh.Vertex, uint16](device, vs, fs, nil)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "render pipeline")
}
