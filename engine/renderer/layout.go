package renderer

import (
	"reflect"

	"github.com/Carmen-Shannon/meshed/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// RegisterBindGroupLayoutFor registers the layout of the Bind type T, read from its zero value.
func RegisterBindGroupLayoutFor[T bind_group_provider.Bind](r Renderer) error {
	return r.RegisterBindGroupLayout(bind_group_provider.KeyOf[T](), bind_group_provider.LayoutOf[T]())
}

// MustRegisterBindGroupLayoutFor is RegisterBindGroupLayoutFor that panics on error.
func MustRegisterBindGroupLayoutFor[T bind_group_provider.Bind](r Renderer) {
	if err := RegisterBindGroupLayoutFor[T](r); err != nil {
		panic(err)
	}
}

// BindGroupLayoutFor returns the layout registered for the Bind type T.
func BindGroupLayoutFor[T bind_group_provider.Bind](r Renderer) (*wgpu.BindGroupLayout, bool) {
	return r.BindGroupLayout(bind_group_provider.KeyOf[T]())
}

// MustBindGroupLayoutFor is BindGroupLayoutFor that panics when T is not registered.
func MustBindGroupLayoutFor[T bind_group_provider.Bind](r Renderer) *wgpu.BindGroupLayout {
	layout, ok := BindGroupLayoutFor[T](r)
	if !ok {
		panic(bind_group_provider.KeyOf[T]().String() + ": " + ErrBindGroupLayoutNotRegistered.Error())
	}
	return layout
}

// MustRegisterPipelineLayout is Renderer.RegisterPipelineLayout that panics on error.
func MustRegisterPipelineLayout(r Renderer, keys ...reflect.Type) {
	if err := r.RegisterPipelineLayout(keys...); err != nil {
		panic(err)
	}
}

// MustPipelineLayout returns the pipeline layout for the ordered keys and panics when it is not registered.
func MustPipelineLayout(r Renderer, keys ...reflect.Type) *wgpu.PipelineLayout {
	layout, ok := r.PipelineLayout(keys...)
	if !ok {
		panic(ErrPipelineLayoutNotRegistered)
	}
	return layout
}
