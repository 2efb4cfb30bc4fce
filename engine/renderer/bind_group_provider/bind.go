package bind_group_provider

import (
	"reflect"

	"github.com/cogentcore/webgpu/wgpu"
)

// Bind is implemented by every type that can be bound to a pipeline slot with a bind group.
//
// The layout of a Bind is a property of its type rather than of an instance: the Renderer
// reads BindGroupLayoutDescriptor from the zero value of the type when the layout is registered,
// so implementations must not depend on receiver state (pointer receivers must tolerate nil).
type Bind interface {
	// BindGroup returns the bind group created for this instance.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group, or nil if the instance has not been initialized
	BindGroup() *wgpu.BindGroup

	// BindGroupLayoutDescriptor describes the bind group layout shared by every value of this type.
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the layout descriptor for the type
	BindGroupLayoutDescriptor() wgpu.BindGroupLayoutDescriptor
}

// KeyOf returns the registry key identifying the Bind type T.
func KeyOf[T Bind]() reflect.Type {
	return reflect.TypeFor[T]()
}

// LayoutOf returns the layout descriptor of the Bind type T, read from its zero value.
func LayoutOf[T Bind]() wgpu.BindGroupLayoutDescriptor {
	var zero T
	return zero.BindGroupLayoutDescriptor()
}
