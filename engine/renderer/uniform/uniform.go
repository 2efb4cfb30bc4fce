package uniform

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/Carmen-Shannon/meshed/common"
	"github.com/Carmen-Shannon/meshed/engine/renderer"
	"github.com/Carmen-Shannon/meshed/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// Resources is the subset of the Renderer a Uniform needs.
type Resources interface {
	CreateBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error)
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error
	BindGroupLayout(key reflect.Type) (*wgpu.BindGroupLayout, bool)
	CreateBindGroup(key reflect.Type, label string, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error)
}

// Uniform is a uniform buffer holding one value of T, bound at binding 0 of its bind group.
//
// T must be a plain struct with a memory layout matching the shader declaration; no pointers, slices or strings.
// The layout for *Uniform[T] must be registered with the Renderer before NewUniform is called.
type Uniform[T any] struct {
	provider bind_group_provider.BindGroupProvider
}

var _ bind_group_provider.Bind = (*Uniform[[16]float32])(nil)

// NewUniform creates the uniform buffer initialized with data and its bind group.
//
// Parameters:
//   - res: the Renderer (or any Resources)
//   - data: the initial value
//
// Returns:
//   - *Uniform[T]: the created uniform
//   - error: an error if the layout of *Uniform[T] is not registered or a GPU object could not be created
func NewUniform[T any](res Resources, data *T) (*Uniform[T], error) {
	key := bind_group_provider.KeyOf[*Uniform[T]]()
	label := fmt.Sprintf("Uniform[%s]", reflect.TypeFor[T]())
	if _, ok := res.BindGroupLayout(key); !ok {
		return nil, fmt.Errorf("%v: %w", key, renderer.ErrBindGroupLayoutNotRegistered)
	}

	buf, err := res.CreateBuffer(label+" Buffer", common.StructToBytes(data), wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("failed to create uniform buffer: %w", err)
	}

	u := &Uniform[T]{
		provider: bind_group_provider.NewBindGroupProvider(label, bind_group_provider.WithBuffer(0, buf)),
	}
	entries, err := u.provider.Entries(u.BindGroupLayoutDescriptor())
	if err != nil {
		u.provider.Release()
		return nil, err
	}
	bg, err := res.CreateBindGroup(key, label+" Bind Group", entries)
	if err != nil {
		u.provider.Release()
		return nil, err
	}
	u.provider.SetBindGroup(bg)
	return u, nil
}

// Update writes a new value into the uniform buffer through the queue.
//
// Parameters:
//   - res: the Renderer (or any Resources)
//   - data: the new value
//
// Returns:
//   - error: an error if the write fails
func (u *Uniform[T]) Update(res Resources, data *T) error {
	return res.WriteBuffer(u.provider.Buffer(0), 0, common.StructToBytes(data))
}

// Buffer returns the GPU buffer holding the value.
func (u *Uniform[T]) Buffer() *wgpu.Buffer {
	return u.provider.Buffer(0)
}

// Size is the byte size of T.
func (u *Uniform[T]) Size() uint64 {
	var zero T
	return uint64(unsafe.Sizeof(zero))
}

func (u *Uniform[T]) BindGroup() *wgpu.BindGroup {
	if u == nil || u.provider == nil {
		return nil
	}
	return u.provider.BindGroup()
}

// BindGroupLayoutDescriptor places the buffer at binding 0, visible to the vertex stage.
func (*Uniform[T]) BindGroupLayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: fmt.Sprintf("Uniform[%s] Bind Group Layout", reflect.TypeFor[T]()),
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: false,
				},
			},
		},
	}
}

// Release releases the buffer and bind group.
func (u *Uniform[T]) Release() {
	u.provider.Release()
}
