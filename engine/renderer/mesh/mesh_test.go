package mesh

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createCall struct {
	label string
	size  int
	usage wgpu.BufferUsage
}

type writeCall struct {
	buffer *wgpu.Buffer
	size   int
}

type fakeAllocator struct {
	created   []createCall
	writes    []writeCall
	released  []*wgpu.Buffer
	createErr error
}

func (f *fakeAllocator) CreateBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, createCall{label: label, size: len(data), usage: usage})
	return &wgpu.Buffer{}, nil
}

func (f *fakeAllocator) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	f.writes = append(f.writes, writeCall{buffer: buf, size: len(data)})
	return nil
}

func (f *fakeAllocator) ReleaseBuffer(buf *wgpu.Buffer) {
	if buf != nil {
		f.released = append(f.released, buf)
	}
}

func quad() ([]Vertex, []uint16) {
	vertices := []Vertex{
		NewVertex([3]float32{-0.5, -0.5, 0}, [3]float32{1, 0, 0}, [2]float32{0, 0}),
		NewVertex([3]float32{0.5, -0.5, 0}, [3]float32{0, 1, 0}, [2]float32{1, 0}),
		NewVertex([3]float32{0.5, 0.5, 0}, [3]float32{0, 0, 1}, [2]float32{1, 1}),
		NewVertex([3]float32{-0.5, 0.5, 0}, [3]float32{1, 1, 1}, [2]float32{0, 1}),
	}
	return vertices, []uint16{0, 1, 2, 0, 2, 3}
}

func TestNewMesh(t *testing.T) {
	alloc := &fakeAllocator{}
	vertices, indices := quad()

	m, err := NewMesh(alloc, "Quad", vertices, indices)
	require.NoError(t, err)

	require.Len(t, alloc.created, 2)
	assert.Equal(t, createCall{"Quad Vertex Buffer", 4 * 32, wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst}, alloc.created[0])
	assert.Equal(t, createCall{"Quad Index Buffer", 6 * 2, wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst}, alloc.created[1])

	assert.NotNil(t, m.VertexBuffer())
	assert.NotNil(t, m.IndexBuffer())
	assert.NotSame(t, m.VertexBuffer(), m.IndexBuffer())
	assert.Equal(t, 128, m.VertexBufferSize())
	assert.Equal(t, 12, m.IndexBufferSize())
	assert.Equal(t, uint32(6), m.IndexCount())
	assert.Equal(t, wgpu.IndexFormatUint16, m.IndexFormat())
}

func TestNewMeshCreateError(t *testing.T) {
	boom := errors.New("boom")
	vertices, indices := quad()

	_, err := NewMesh(&fakeAllocator{createErr: boom}, "Quad", vertices, indices)
	assert.ErrorIs(t, err, boom)
}

func TestUpdateVertices(t *testing.T) {
	vertices, indices := quad()

	t.Run("smaller data is written in place", func(t *testing.T) {
		alloc := &fakeAllocator{}
		m, err := NewMesh(alloc, "Quad", vertices, indices)
		require.NoError(t, err)
		buf := m.VertexBuffer()

		require.NoError(t, m.UpdateVertices(alloc, vertices[:3]))
		assert.Same(t, buf, m.VertexBuffer())
		require.Len(t, alloc.writes, 1)
		assert.Same(t, buf, alloc.writes[0].buffer)
		assert.Equal(t, 96, alloc.writes[0].size)
		assert.Equal(t, 128, m.VertexBufferSize(), "in-place writes keep the buffer size")
	})

	t.Run("larger data recreates the buffer", func(t *testing.T) {
		alloc := &fakeAllocator{}
		m, err := NewMesh(alloc, "Quad", vertices[:2], indices)
		require.NoError(t, err)
		old := m.VertexBuffer()

		require.NoError(t, m.UpdateVertices(alloc, vertices))
		assert.NotSame(t, old, m.VertexBuffer())
		assert.Empty(t, alloc.writes)
		assert.Equal(t, 128, m.VertexBufferSize())
		assert.Equal(t, []*wgpu.Buffer{old}, alloc.released)
	})
}

func TestUpdateIndices(t *testing.T) {
	vertices, indices := quad()
	alloc := &fakeAllocator{}
	m, err := NewMesh(alloc, "Quad", vertices, indices)
	require.NoError(t, err)
	buf := m.IndexBuffer()

	require.NoError(t, m.UpdateIndices(alloc, indices[:3]))
	assert.Same(t, buf, m.IndexBuffer())
	assert.Equal(t, uint32(3), m.IndexCount())

	require.NoError(t, m.UpdateIndices(alloc, append(indices, 0, 3, 1)))
	assert.NotSame(t, buf, m.IndexBuffer())
	assert.Equal(t, uint32(9), m.IndexCount())
	assert.Equal(t, 18, m.IndexBufferSize())
}

func TestUpdatePacked(t *testing.T) {
	vertices, indices := quad()

	t.Run("equal size vertices are written in place into the vertex buffer", func(t *testing.T) {
		alloc := &fakeAllocator{}
		m, err := NewMesh(alloc, "Quad", vertices, indices)
		require.NoError(t, err)
		buf := m.VertexBuffer()

		require.NoError(t, m.UpdateVerticesPacked(alloc, vertices))
		assert.Same(t, buf, m.VertexBuffer())
		require.Len(t, alloc.writes, 1)
		assert.Same(t, buf, alloc.writes[0].buffer)
	})

	t.Run("smaller vertices recreate the buffer", func(t *testing.T) {
		alloc := &fakeAllocator{}
		m, err := NewMesh(alloc, "Quad", vertices, indices)
		require.NoError(t, err)
		buf := m.VertexBuffer()

		require.NoError(t, m.UpdateVerticesPacked(alloc, vertices[:3]))
		assert.NotSame(t, buf, m.VertexBuffer())
		assert.Empty(t, alloc.writes)
		assert.Equal(t, 96, m.VertexBufferSize())
	})

	t.Run("indices follow the same rule", func(t *testing.T) {
		alloc := &fakeAllocator{}
		m, err := NewMesh(alloc, "Quad", vertices, indices)
		require.NoError(t, err)
		buf := m.IndexBuffer()

		require.NoError(t, m.UpdateIndicesPacked(alloc, []uint16{3, 2, 1, 3, 1, 0}))
		assert.Same(t, buf, m.IndexBuffer())

		require.NoError(t, m.UpdateIndicesPacked(alloc, []uint16{0, 1, 2}))
		assert.NotSame(t, buf, m.IndexBuffer())
		assert.Equal(t, uint32(3), m.IndexCount())
		assert.Equal(t, 6, m.IndexBufferSize())
	})
}

func TestRelease(t *testing.T) {
	vertices, indices := quad()
	alloc := &fakeAllocator{}
	m, err := NewMesh(alloc, "Quad", vertices, indices)
	require.NoError(t, err)
	vb, ib := m.VertexBuffer(), m.IndexBuffer()

	m.Release(alloc)
	assert.Equal(t, []*wgpu.Buffer{vb, ib}, alloc.released)
	assert.Nil(t, m.VertexBuffer())
	assert.Nil(t, m.IndexBuffer())
}

func TestUint32Mesh(t *testing.T) {
	vertices, _ := quad()
	m, err := NewMesh(&fakeAllocator{}, "Quad", vertices, []uint32{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, wgpu.IndexFormatUint32, m.IndexFormat())
	assert.Equal(t, 12, m.IndexBufferSize())
}
