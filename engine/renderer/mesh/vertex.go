package mesh

import (
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
)

// VertexType is implemented by vertex structs that can be uploaded to a vertex buffer.
// The layout is a property of the type and is read from its zero value.
type VertexType interface {
	// VertexBufferLayout describes the stride and attributes of the vertex in a buffer.
	//
	// Returns:
	//   - wgpu.VertexBufferLayout: the vertex buffer layout for the type
	VertexBufferLayout() wgpu.VertexBufferLayout
}

// Index is the set of integer types usable as mesh indices.
type Index interface {
	~uint16 | ~uint32
}

// IndexFormatOf returns the index format matching the size of I.
func IndexFormatOf[I Index]() wgpu.IndexFormat {
	var zero I
	if unsafe.Sizeof(zero) == 2 {
		return wgpu.IndexFormatUint16
	}
	return wgpu.IndexFormatUint32
}

// LayoutOf returns the vertex buffer layout of V.
func LayoutOf[V VertexType]() wgpu.VertexBufferLayout {
	var zero V
	return zero.VertexBufferLayout()
}

// Vertex is the default vertex: a position, a color and a texture coordinate.
type Vertex struct {
	Position [3]float32
	Color    [3]float32
	UV       [2]float32
}

var _ VertexType = Vertex{}

// VertexWGSL declares VertexInput, the WGSL counterpart of Vertex. Register it as a shader include
// to keep the shader locations in step with the buffer layout.
const VertexWGSL = `struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) color: vec3<f32>,
    @location(2) uv: vec2<f32>,
}`

var vertexAttributes = []wgpu.VertexAttribute{
	{
		Format:         wgpu.VertexFormatFloat32x3,
		Offset:         0,
		ShaderLocation: 0,
	},
	{
		Format:         wgpu.VertexFormatFloat32x3,
		Offset:         uint64(unsafe.Offsetof(Vertex{}.Color)),
		ShaderLocation: 1,
	},
	{
		Format:         wgpu.VertexFormatFloat32x2,
		Offset:         uint64(unsafe.Offsetof(Vertex{}.UV)),
		ShaderLocation: 2,
	},
}

// NewVertex is a convenience constructor mirroring the field order of Vertex.
func NewVertex(position, color [3]float32, uv [2]float32) Vertex {
	return Vertex{Position: position, Color: color, UV: uv}
}

func (Vertex) VertexBufferLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: uint64(unsafe.Sizeof(Vertex{})),
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  vertexAttributes,
	}
}
