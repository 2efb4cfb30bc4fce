package renderer

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// layoutFactory creates the GPU layout objects stored in the registry. *wgpu.Device satisfies it.
type layoutFactory interface {
	CreateBindGroupLayout(descriptor *wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error)
	CreatePipelineLayout(descriptor *wgpu.PipelineLayoutDescriptor) (*wgpu.PipelineLayout, error)
}

// bindGroupLayoutEntry is a registered bind group layout together with the id used to build pipeline layout keys.
type bindGroupLayoutEntry struct {
	id         int
	descriptor wgpu.BindGroupLayoutDescriptor
	layout     *wgpu.BindGroupLayout
}

// layoutRegistry caches bind group layouts keyed by Bind type and pipeline layouts keyed by an ordered list of Bind types.
// Entries are never replaced or evicted; a second registration for the same key is an error.
type layoutRegistry struct {
	factory layoutFactory

	bindGroupLayouts map[reflect.Type]*bindGroupLayoutEntry
	pipelineLayouts  map[string]*wgpu.PipelineLayout
}

func newLayoutRegistry(factory layoutFactory) *layoutRegistry {
	return &layoutRegistry{
		factory:          factory,
		bindGroupLayouts: make(map[reflect.Type]*bindGroupLayoutEntry),
		pipelineLayouts:  make(map[string]*wgpu.PipelineLayout),
	}
}

func (l *layoutRegistry) registerBindGroupLayout(key reflect.Type, descriptor wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error) {
	if key == nil {
		return nil, fmt.Errorf("bind group layout key must not be nil")
	}
	if _, exists := l.bindGroupLayouts[key]; exists {
		return nil, fmt.Errorf("%s: %w", key, ErrBindGroupLayoutRegistered)
	}
	if descriptor.Label == "" {
		descriptor.Label = key.String() + " Bind Group Layout"
	}

	layout, err := l.factory.CreateBindGroupLayout(&descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group layout for %s: %w", key, err)
	}

	l.bindGroupLayouts[key] = &bindGroupLayoutEntry{
		id:         len(l.bindGroupLayouts) + 1,
		descriptor: descriptor,
		layout:     layout,
	}
	return layout, nil
}

func (l *layoutRegistry) bindGroupLayout(key reflect.Type) (*wgpu.BindGroupLayout, bool) {
	entry, ok := l.bindGroupLayouts[key]
	if !ok {
		return nil, false
	}
	return entry.layout, true
}

// pipelineLayoutKey maps an ordered list of registered types to the cache key of their pipeline layout.
// Every type must have a registered bind group layout.
func (l *layoutRegistry) pipelineLayoutKey(keys []reflect.Type) (string, []*wgpu.BindGroupLayout, error) {
	var sb strings.Builder
	layouts := make([]*wgpu.BindGroupLayout, len(keys))
	for i, key := range keys {
		entry, ok := l.bindGroupLayouts[key]
		if !ok {
			return "", nil, fmt.Errorf("%v: %w", key, ErrBindGroupLayoutNotRegistered)
		}
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(entry.id))
		layouts[i] = entry.layout
	}
	return sb.String(), layouts, nil
}

func (l *layoutRegistry) registerPipelineLayout(keys []reflect.Type) (*wgpu.PipelineLayout, error) {
	cacheKey, layouts, err := l.pipelineLayoutKey(keys)
	if err != nil {
		return nil, err
	}
	if _, exists := l.pipelineLayouts[cacheKey]; exists {
		return nil, fmt.Errorf("%v: %w", keys, ErrPipelineLayoutRegistered)
	}

	layout, err := l.factory.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            fmt.Sprintf("%v Pipeline Layout", keys),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline layout for %v: %w", keys, err)
	}
	l.pipelineLayouts[cacheKey] = layout
	return layout, nil
}

func (l *layoutRegistry) pipelineLayout(keys []reflect.Type) (*wgpu.PipelineLayout, bool) {
	cacheKey, _, err := l.pipelineLayoutKey(keys)
	if err != nil {
		return nil, false
	}
	layout, ok := l.pipelineLayouts[cacheKey]
	return layout, ok
}

// release drops every cached layout. releaseFn is called for each GPU object before it is forgotten.
func (l *layoutRegistry) release(releaseBindGroupLayout func(*wgpu.BindGroupLayout), releasePipelineLayout func(*wgpu.PipelineLayout)) {
	for k, layout := range l.pipelineLayouts {
		if layout != nil && releasePipelineLayout != nil {
			releasePipelineLayout(layout)
		}
		delete(l.pipelineLayouts, k)
	}
	for k, entry := range l.bindGroupLayouts {
		if entry.layout != nil && releaseBindGroupLayout != nil {
			releaseBindGroupLayout(entry.layout)
		}
		delete(l.bindGroupLayouts, k)
	}
}
