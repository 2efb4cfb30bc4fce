package mesh

import (
	"fmt"

	"github.com/Carmen-Shannon/meshed/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// BufferAllocator creates, writes and releases GPU buffers. Renderer satisfies it.
type BufferAllocator interface {
	CreateBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error)
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error
	ReleaseBuffer(buf *wgpu.Buffer)
}

// Geometry is the type-erased view of a Mesh used when encoding draw commands.
type Geometry interface {
	// VertexBuffer returns the GPU buffer holding the vertices.
	VertexBuffer() *wgpu.Buffer

	// IndexBuffer returns the GPU buffer holding the indices.
	IndexBuffer() *wgpu.Buffer

	// IndexFormat returns the format of the indices in IndexBuffer.
	IndexFormat() wgpu.IndexFormat

	// IndexCount returns the number of indices last uploaded.
	IndexCount() uint32
}

// Mesh owns a vertex buffer and an index buffer for vertices of type V and indices of type I.
//
// Updates that fit into the existing buffers are written in place through the queue; larger updates
// replace the buffer. The packed variants only write in place when the size is unchanged, so the
// buffer always has exactly the size of its contents.
type Mesh[V VertexType, I Index] interface {
	Geometry

	// UpdateVertices uploads new vertex data, reusing the vertex buffer when the data fits.
	//
	// Parameters:
	//   - alloc: the allocator used for writes and reallocation
	//   - vertices: the new vertices
	//
	// Returns:
	//   - error: an error if the write or reallocation fails
	UpdateVertices(alloc BufferAllocator, vertices []V) error

	// UpdateIndices uploads new index data, reusing the index buffer when the data fits.
	//
	// Parameters:
	//   - alloc: the allocator used for writes and reallocation
	//   - indices: the new indices
	//
	// Returns:
	//   - error: an error if the write or reallocation fails
	UpdateIndices(alloc BufferAllocator, indices []I) error

	// UpdateVerticesPacked uploads new vertex data, reusing the vertex buffer only when the byte size is unchanged.
	//
	// Parameters:
	//   - alloc: the allocator used for writes and reallocation
	//   - vertices: the new vertices
	//
	// Returns:
	//   - error: an error if the write or reallocation fails
	UpdateVerticesPacked(alloc BufferAllocator, vertices []V) error

	// UpdateIndicesPacked uploads new index data, reusing the index buffer only when the byte size is unchanged.
	//
	// Parameters:
	//   - alloc: the allocator used for writes and reallocation
	//   - indices: the new indices
	//
	// Returns:
	//   - error: an error if the write or reallocation fails
	UpdateIndicesPacked(alloc BufferAllocator, indices []I) error

	// VertexBufferSize returns the byte size of the vertex buffer.
	VertexBufferSize() int

	// IndexBufferSize returns the byte size of the index buffer.
	IndexBufferSize() int

	// Release releases both buffers.
	//
	// Parameters:
	//   - alloc: the allocator the buffers were created with
	Release(alloc BufferAllocator)
}

// meshBuffer is one of the two buffers of a mesh together with the byte size it was created with.
type meshBuffer struct {
	label  string
	usage  wgpu.BufferUsage
	buffer *wgpu.Buffer
	size   int
}

type mesh[V VertexType, I Index] struct {
	vertices   meshBuffer
	indices    meshBuffer
	indexCount uint32
}

var _ Mesh[Vertex, uint16] = &mesh[Vertex, uint16]{}

// NewMesh uploads the vertices and indices into new GPU buffers.
//
// Parameters:
//   - alloc: the allocator creating the buffers (usually the Renderer)
//   - label: debug label prefix for the buffers
//   - vertices: the initial vertices
//   - indices: the initial indices
//
// Returns:
//   - Mesh[V, I]: the created mesh
//   - error: an error if either buffer could not be created
func NewMesh[V VertexType, I Index](alloc BufferAllocator, label string, vertices []V, indices []I) (Mesh[V, I], error) {
	m := &mesh[V, I]{
		vertices: meshBuffer{label: label + " Vertex Buffer", usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst},
		indices:  meshBuffer{label: label + " Index Buffer", usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst},
	}
	if err := m.vertices.recreate(alloc, common.SliceToBytes(vertices)); err != nil {
		return nil, err
	}
	if err := m.indices.recreate(alloc, common.SliceToBytes(indices)); err != nil {
		alloc.ReleaseBuffer(m.vertices.buffer)
		return nil, err
	}
	m.indexCount = uint32(len(indices))
	return m, nil
}

// recreate replaces the buffer with a new one holding data.
func (b *meshBuffer) recreate(alloc BufferAllocator, data []byte) error {
	buf, err := alloc.CreateBuffer(b.label, data, b.usage)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", b.label, err)
	}
	if b.buffer != nil {
		alloc.ReleaseBuffer(b.buffer)
	}
	b.buffer = buf
	b.size = len(data)
	return nil
}

// update writes data in place when inPlace reports true for the current size and recreates the buffer otherwise.
func (b *meshBuffer) update(alloc BufferAllocator, data []byte, inPlace func(size, current int) bool) error {
	if b.buffer != nil && inPlace(len(data), b.size) {
		if len(data) == 0 {
			return nil
		}
		if err := alloc.WriteBuffer(b.buffer, 0, data); err != nil {
			return fmt.Errorf("failed to write %s: %w", b.label, err)
		}
		return nil
	}
	return b.recreate(alloc, data)
}

func fits(size, current int) bool {
	return size <= current
}

func packed(size, current int) bool {
	return size == current
}

func (m *mesh[V, I]) UpdateVertices(alloc BufferAllocator, vertices []V) error {
	return m.vertices.update(alloc, common.SliceToBytes(vertices), fits)
}

func (m *mesh[V, I]) UpdateIndices(alloc BufferAllocator, indices []I) error {
	if err := m.indices.update(alloc, common.SliceToBytes(indices), fits); err != nil {
		return err
	}
	m.indexCount = uint32(len(indices))
	return nil
}

func (m *mesh[V, I]) UpdateVerticesPacked(alloc BufferAllocator, vertices []V) error {
	return m.vertices.update(alloc, common.SliceToBytes(vertices), packed)
}

func (m *mesh[V, I]) UpdateIndicesPacked(alloc BufferAllocator, indices []I) error {
	if err := m.indices.update(alloc, common.SliceToBytes(indices), packed); err != nil {
		return err
	}
	m.indexCount = uint32(len(indices))
	return nil
}

func (m *mesh[V, I]) VertexBuffer() *wgpu.Buffer {
	return m.vertices.buffer
}

func (m *mesh[V, I]) IndexBuffer() *wgpu.Buffer {
	return m.indices.buffer
}

func (m *mesh[V, I]) IndexFormat() wgpu.IndexFormat {
	return IndexFormatOf[I]()
}

func (m *mesh[V, I]) IndexCount() uint32 {
	return m.indexCount
}

func (m *mesh[V, I]) VertexBufferSize() int {
	return m.vertices.size
}

func (m *mesh[V, I]) IndexBufferSize() int {
	return m.indices.size
}

func (m *mesh[V, I]) Release(alloc BufferAllocator) {
	alloc.ReleaseBuffer(m.vertices.buffer)
	alloc.ReleaseBuffer(m.indices.buffer)
	m.vertices.buffer = nil
	m.indices.buffer = nil
}
