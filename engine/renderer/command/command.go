// Package command is a small command-list abstraction over a render pass. A frame is described as a
// slice of commands that are validated up front and then encoded in order into the pass of the frame.
package command

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/meshed/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/meshed/engine/renderer/mesh"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrInvalidDrawRange is returned for a Draw whose End precedes its Start.
var ErrInvalidDrawRange = errors.New("draw range end precedes start")

// Command is one step of a command list. The set of commands is closed.
type Command interface {
	command()
}

// RenderPipeline is anything holding a render pipeline, such as a pipeline.Pipeline.
type RenderPipeline interface {
	RenderPipeline() *wgpu.RenderPipeline
}

// Pass does nothing.
type Pass struct{}

// SetPipeline makes Pipeline the current render pipeline.
type SetPipeline struct {
	Pipeline RenderPipeline
}

// SetMesh binds the vertex buffer of Mesh at slot 0 and its index buffer.
type SetMesh struct {
	Mesh mesh.Geometry
}

// SetBind binds the bind group of Bind at group Slot.
type SetBind struct {
	Bind bind_group_provider.Bind
	Slot uint32
}

// Draw issues an indexed draw of the indices in [Start, End), one instance.
type Draw struct {
	Start uint32
	End   uint32
}

func (Pass) command()        {}
func (SetPipeline) command() {}
func (SetMesh) command()     {}
func (SetBind) command()     {}
func (Draw) command()        {}

// RenderPass is the subset of *wgpu.RenderPassEncoder that commands are encoded into.
type RenderPass interface {
	SetPipeline(pipeline *wgpu.RenderPipeline)
	SetVertexBuffer(slot uint32, buffer *wgpu.Buffer, offset, size uint64)
	SetIndexBuffer(buffer *wgpu.Buffer, format wgpu.IndexFormat, offset, size uint64)
	SetBindGroup(groupIndex uint32, group *wgpu.BindGroup, dynamicOffsets []uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
}

var _ RenderPass = &wgpu.RenderPassEncoder{}

// Frame begins and ends the frames commands are executed in; the Renderer implements it.
type Frame interface {
	BeginFrame(clear wgpu.Color) (*wgpu.RenderPassEncoder, error)
	EndFrame() error
}

// Validate checks every command without encoding anything.
//
// Parameters:
//   - commands: the command list
//
// Returns:
//   - error: the first invalid command, wrapped with its index
func Validate(commands []Command) error {
	for i, cmd := range commands {
		if err := validate(cmd); err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
	}
	return nil
}

func validate(cmd Command) error {
	switch c := cmd.(type) {
	case Pass:
		return nil
	case SetPipeline:
		if c.Pipeline == nil || c.Pipeline.RenderPipeline() == nil {
			return fmt.Errorf("set pipeline: no render pipeline")
		}
	case SetMesh:
		if c.Mesh == nil || c.Mesh.VertexBuffer() == nil || c.Mesh.IndexBuffer() == nil {
			return fmt.Errorf("set mesh: missing buffers")
		}
	case SetBind:
		if c.Bind == nil || c.Bind.BindGroup() == nil {
			return fmt.Errorf("set bind %d: no bind group", c.Slot)
		}
	case Draw:
		if c.End < c.Start {
			return fmt.Errorf("draw [%d, %d): %w", c.Start, c.End, ErrInvalidDrawRange)
		}
	case nil:
		return fmt.Errorf("nil command")
	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
	return nil
}

// Encode validates the commands and records them into pass in order.
//
// Parameters:
//   - pass: the render pass to record into
//   - commands: the command list
//
// Returns:
//   - error: the first invalid command; nothing is recorded in that case
func Encode(pass RenderPass, commands []Command) error {
	if err := Validate(commands); err != nil {
		return err
	}
	for _, cmd := range commands {
		switch c := cmd.(type) {
		case SetPipeline:
			pass.SetPipeline(c.Pipeline.RenderPipeline())
		case SetMesh:
			pass.SetVertexBuffer(0, c.Mesh.VertexBuffer(), 0, wgpu.WholeSize)
			pass.SetIndexBuffer(c.Mesh.IndexBuffer(), c.Mesh.IndexFormat(), 0, wgpu.WholeSize)
		case SetBind:
			pass.SetBindGroup(c.Slot, c.Bind.BindGroup(), nil)
		case Draw:
			pass.DrawIndexed(c.End-c.Start, 1, c.Start, 0, 0)
		}
	}
	return nil
}

// Execute runs a whole frame: it begins a frame cleared to clearColor (RGBA), encodes the commands,
// then submits and presents. Invalid command lists are rejected before the frame is begun.
//
// Parameters:
//   - frame: the renderer
//   - clearColor: the clear color as red, green, blue, alpha
//   - commands: the command list
//
// Returns:
//   - error: a validation error, or an error from beginning or ending the frame
func Execute(frame Frame, clearColor [4]float64, commands []Command) error {
	if err := Validate(commands); err != nil {
		return err
	}
	pass, err := frame.BeginFrame(wgpu.Color{R: clearColor[0], G: clearColor[1], B: clearColor[2], A: clearColor[3]})
	if err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	encodeErr := Encode(pass, commands)
	if err := frame.EndFrame(); err != nil {
		return errors.Join(encodeErr, fmt.Errorf("end frame: %w", err))
	}
	return encodeErr
}
