package command

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePass struct {
	calls []string
}

func (p *fakePass) SetPipeline(pipeline *wgpu.RenderPipeline) {
	p.calls = append(p.calls, fmt.Sprintf("pipeline %p", pipeline))
}

func (p *fakePass) SetVertexBuffer(slot uint32, buffer *wgpu.Buffer, offset, size uint64) {
	p.calls = append(p.calls, fmt.Sprintf("vertex %d %p %d %d", slot, buffer, offset, size))
}

func (p *fakePass) SetIndexBuffer(buffer *wgpu.Buffer, format wgpu.IndexFormat, offset, size uint64) {
	p.calls = append(p.calls, fmt.Sprintf("index %p %d %d %d", buffer, format, offset, size))
}

func (p *fakePass) SetBindGroup(groupIndex uint32, group *wgpu.BindGroup, dynamicOffsets []uint32) {
	p.calls = append(p.calls, fmt.Sprintf("bind %d %p %d", groupIndex, group, len(dynamicOffsets)))
}

func (p *fakePass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.calls = append(p.calls, fmt.Sprintf("draw %d %d %d %d %d", indexCount, instanceCount, firstIndex, baseVertex, firstInstance))
}

type fakePipeline struct{ rp *wgpu.RenderPipeline }

func (p fakePipeline) RenderPipeline() *wgpu.RenderPipeline { return p.rp }

type fakeMesh struct {
	vertex, index *wgpu.Buffer
}

func (m fakeMesh) VertexBuffer() *wgpu.Buffer    { return m.vertex }
func (m fakeMesh) IndexBuffer() *wgpu.Buffer     { return m.index }
func (m fakeMesh) IndexFormat() wgpu.IndexFormat { return wgpu.IndexFormatUint16 }
func (m fakeMesh) IndexCount() uint32            { return 6 }

type fakeBind struct{ bg *wgpu.BindGroup }

func (b *fakeBind) BindGroup() *wgpu.BindGroup {
	if b == nil {
		return nil
	}
	return b.bg
}

func (*fakeBind) BindGroupLayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{}
}

type fakeFrame struct {
	began, ended bool
	clear        wgpu.Color
	beginErr     error
	endErr       error
}

func (f *fakeFrame) BeginFrame(clear wgpu.Color) (*wgpu.RenderPassEncoder, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.began = true
	f.clear = clear
	return &wgpu.RenderPassEncoder{}, nil
}

func (f *fakeFrame) EndFrame() error {
	f.ended = true
	return f.endErr
}

func TestEncodeOrder(t *testing.T) {
	rp := &wgpu.RenderPipeline{}
	m := fakeMesh{vertex: &wgpu.Buffer{}, index: &wgpu.Buffer{}}
	tex := &fakeBind{bg: &wgpu.BindGroup{}}
	uni := &fakeBind{bg: &wgpu.BindGroup{}}

	pass := &fakePass{}
	err := Encode(pass, []Command{
		Pass{},
		SetPipeline{Pipeline: fakePipeline{rp: rp}},
		SetMesh{Mesh: m},
		SetBind{Bind: tex, Slot: 0},
		SetBind{Bind: uni, Slot: 1},
		Draw{Start: 0, End: 6},
		Draw{Start: 3, End: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		fmt.Sprintf("pipeline %p", rp),
		fmt.Sprintf("vertex 0 %p 0 %d", m.vertex, uint64(wgpu.WholeSize)),
		fmt.Sprintf("index %p %d 0 %d", m.index, wgpu.IndexFormatUint16, uint64(wgpu.WholeSize)),
		fmt.Sprintf("bind 0 %p 0", tex.bg),
		fmt.Sprintf("bind 1 %p 0", uni.bg),
		"draw 6 1 0 0 0",
		"draw 0 1 3 0 0",
	}, pass.calls)
}

func TestEncodeRejectsBeforeRecording(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want error
	}{
		{"inverted draw", Draw{Start: 6, End: 3}, ErrInvalidDrawRange},
		{"nil pipeline", SetPipeline{}, nil},
		{"pipeline not built", SetPipeline{Pipeline: fakePipeline{}}, nil},
		{"mesh without buffers", SetMesh{Mesh: fakeMesh{}}, nil},
		{"nil bind", SetBind{Slot: 2}, nil},
		{"typed nil bind", SetBind{Bind: (*fakeBind)(nil)}, nil},
		{"nil command", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pass := &fakePass{}
			err := Encode(pass, []Command{Draw{Start: 0, End: 3}, tt.cmd})
			require.Error(t, err)
			assert.ErrorContains(t, err, "command 1")
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.Empty(t, pass.calls)
		})
	}
}

func TestExecute(t *testing.T) {
	frame := &fakeFrame{}
	err := Execute(frame, [4]float64{0.1, 0.2, 0.3, 1}, []Command{Pass{}})
	require.NoError(t, err)
	assert.True(t, frame.began)
	assert.True(t, frame.ended)
	assert.Equal(t, wgpu.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}, frame.clear)
}

func TestExecuteInvalidSkipsFrame(t *testing.T) {
	frame := &fakeFrame{}
	err := Execute(frame, [4]float64{}, []Command{Draw{Start: 2, End: 1}})
	assert.ErrorIs(t, err, ErrInvalidDrawRange)
	assert.False(t, frame.began)
	assert.False(t, frame.ended)
}

func TestExecuteFrameErrors(t *testing.T) {
	boom := errors.New("boom")

	frame := &fakeFrame{beginErr: boom}
	err := Execute(frame, [4]float64{}, nil)
	assert.ErrorIs(t, err, boom)
	assert.False(t, frame.ended)

	frame = &fakeFrame{endErr: boom}
	err = Execute(frame, [4]float64{}, nil)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "end frame")
}
