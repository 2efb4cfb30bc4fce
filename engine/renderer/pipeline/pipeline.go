package pipeline

import (
	"fmt"
	"reflect"

	"github.com/Carmen-Shannon/meshed/engine/renderer"
	"github.com/Carmen-Shannon/meshed/engine/renderer/mesh"
	"github.com/Carmen-Shannon/meshed/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Device is the part of the renderer a pipeline is built against.
type Device interface {
	PipelineLayout(keys ...reflect.Type) (*wgpu.PipelineLayout, bool)
	SurfaceFormat() wgpu.TextureFormat
	CreateShaderModule(descriptor *wgpu.ShaderModuleDescriptor) (*wgpu.ShaderModule, error)
	CreateRenderPipeline(descriptor *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error)
}

// settings holds the fixed-function state toggled by the builder options.
type settings struct {
	label     string
	cullMode  wgpu.CullMode
	topology  wgpu.PrimitiveTopology
	frontFace wgpu.FrontFace
	writeMask wgpu.ColorWriteMask
	blend     *wgpu.BlendState
}

// pipeline is the implementation of the Pipeline interface.
type pipeline[V mesh.VertexType, I mesh.Index] struct {
	settings

	vertexShader, fragmentShader shader.Shader
	binds                        []reflect.Type

	vertexModule, fragmentModule *wgpu.ShaderModule
	renderPipeline               *wgpu.RenderPipeline
}

// Pipeline is a render pipeline drawing meshes of vertex type V and index type I. It is built from
// a vertex and a fragment shader and the pipeline layout registered for its bind types.
type Pipeline[V mesh.VertexType, I mesh.Index] interface {
	// Label returns the debug label of the pipeline.
	Label() string

	// RenderPipeline returns the underlying render pipeline.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the GPU render pipeline
	RenderPipeline() *wgpu.RenderPipeline

	// Shader retrieves the shader for the given stage, nil for compute.
	//
	// Parameters:
	//   - shaderType: ShaderTypeVertex or ShaderTypeFragment
	//
	// Returns:
	//   - shader.Shader: the stage's shader
	Shader(shaderType shader.ShaderType) shader.Shader

	// Binds returns the bind types in group order, the identity of the pipeline layout.
	//
	// Returns:
	//   - []reflect.Type: the bind types
	Binds() []reflect.Type

	// CullMode returns the cull mode configured for this pipeline.
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state of the color target, nil when blending is disabled.
	BlendState() *wgpu.BlendState

	// Release releases the render pipeline and its shader modules.
	Release()
}

var _ Pipeline[mesh.Vertex, uint16] = &pipeline[mesh.Vertex, uint16]{}

// NewPipeline builds a render pipeline for meshes of V and I. The pipeline layout for binds must have
// been registered with the renderer; the bind types are bound to groups 0..n-1 in order.
//
// Parameters:
//   - device: the renderer the pipeline is created on
//   - vertex: the vertex stage shader
//   - fragment: the fragment stage shader
//   - binds: the bind types of the pipeline layout, in group order
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline[V, I]: the created pipeline
//   - error: renderer.ErrPipelineLayoutNotRegistered if the layout is unknown, or an error from the device
func NewPipeline[V mesh.VertexType, I mesh.Index](device Device, vertex, fragment shader.Shader, binds []reflect.Type, opts ...PipelineBuilderOption) (Pipeline[V, I], error) {
	if vertex == nil || vertex.ShaderType() != shader.ShaderTypeVertex {
		return nil, fmt.Errorf("pipeline needs a vertex shader")
	}
	if fragment == nil || fragment.ShaderType() != shader.ShaderTypeFragment {
		return nil, fmt.Errorf("pipeline needs a fragment shader")
	}

	p := &pipeline[V, I]{
		settings:       defaultSettings(vertex.Key() + "+" + fragment.Key()),
		vertexShader:   vertex,
		fragmentShader: fragment,
		binds:          append([]reflect.Type(nil), binds...),
	}
	for _, opt := range opts {
		opt(&p.settings)
	}

	layout, ok := device.PipelineLayout(p.binds...)
	if !ok {
		return nil, fmt.Errorf("pipeline %s: %w: %v", p.label, renderer.ErrPipelineLayoutNotRegistered, p.binds)
	}

	if err := p.build(device, layout); err != nil {
		p.Release()
		return nil, fmt.Errorf("pipeline %s: %w", p.label, err)
	}
	return p, nil
}

func defaultSettings(label string) settings {
	return settings{
		label:     label,
		cullMode:  wgpu.CullModeBack,
		topology:  wgpu.PrimitiveTopologyTriangleList,
		frontFace: wgpu.FrontFaceCCW,
		writeMask: wgpu.ColorWriteMaskAll,
		blend: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorZero,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
}

func (p *pipeline[V, I]) build(device Device, layout *wgpu.PipelineLayout) error {
	var err error
	p.vertexModule, err = device.CreateShaderModule(p.vertexShader.Module())
	if err != nil {
		return fmt.Errorf("vertex module: %w", err)
	}
	p.fragmentModule, err = device.CreateShaderModule(p.fragmentShader.Module())
	if err != nil {
		return fmt.Errorf("fragment module: %w", err)
	}

	p.renderPipeline, err = device.CreateRenderPipeline(p.descriptor(layout, device.SurfaceFormat()))
	if err != nil {
		return fmt.Errorf("render pipeline: %w", err)
	}
	return nil
}

// descriptor assembles the render pipeline descriptor: one color target in the surface format,
// no depth-stencil, no multisampling.
func (p *pipeline[V, I]) descriptor(layout *wgpu.PipelineLayout, format wgpu.TextureFormat) *wgpu.RenderPipelineDescriptor {
	primitive := wgpu.PrimitiveState{
		Topology:  p.topology,
		FrontFace: p.frontFace,
		CullMode:  p.cullMode,
	}
	if p.topology == wgpu.PrimitiveTopologyTriangleStrip || p.topology == wgpu.PrimitiveTopologyLineStrip {
		primitive.StripIndexFormat = mesh.IndexFormatOf[I]()
	}

	return &wgpu.RenderPipelineDescriptor{
		Label:  p.label + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     p.vertexModule,
			EntryPoint: p.vertexShader.EntryPoint(),
			Buffers:    []wgpu.VertexBufferLayout{mesh.LayoutOf[V]()},
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.fragmentModule,
			EntryPoint: p.fragmentShader.EntryPoint(),
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					Blend:     p.blend,
					WriteMask: p.writeMask,
				},
			},
		},
		Primitive: primitive,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
}

func (p *pipeline[V, I]) Label() string {
	return p.label
}

func (p *pipeline[V, I]) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline[V, I]) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline[V, I]) Binds() []reflect.Type {
	return p.binds
}

func (p *pipeline[V, I]) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline[V, I]) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline[V, I]) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline[V, I]) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline[V, I]) BlendState() *wgpu.BlendState {
	return p.blend
}

func (p *pipeline[V, I]) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.fragmentModule != nil {
		p.fragmentModule.Release()
		p.fragmentModule = nil
	}
	if p.vertexModule != nil {
		p.vertexModule.Release()
		p.vertexModule = nil
	}
}
