package main

import (
	"context"
	"fmt"
	"os"
	"reflect"

	"github.com/Carmen-Shannon/meshed/common"
	"github.com/Carmen-Shannon/meshed/engine/renderer"
	"github.com/Carmen-Shannon/meshed/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/meshed/engine/renderer/command"
	"github.com/Carmen-Shannon/meshed/engine/renderer/mesh"
	"github.com/Carmen-Shannon/meshed/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/meshed/engine/renderer/shader"
	"github.com/Carmen-Shannon/meshed/engine/renderer/texture"
	"github.com/Carmen-Shannon/meshed/engine/renderer/uniform"
	"go.uber.org/zap"
)

// quadVertices is a unit quad centered on the origin, textured right side up.
var quadVertices = []mesh.Vertex{
	mesh.NewVertex([3]float32{-0.5, -0.5, 0}, [3]float32{1, 1, 1}, [2]float32{0, 0}),
	mesh.NewVertex([3]float32{0.5, -0.5, 0}, [3]float32{1, 1, 1}, [2]float32{1, 0}),
	mesh.NewVertex([3]float32{0.5, 0.5, 0}, [3]float32{1, 1, 1}, [2]float32{1, 1}),
	mesh.NewVertex([3]float32{-0.5, 0.5, 0}, [3]float32{1, 1, 1}, [2]float32{0, 1}),
}

var quadIndices = []uint16{0, 1, 2, 0, 2, 3}

// binds are the bind types of the logo pipeline in group order.
func binds() []reflect.Type {
	return []reflect.Type{
		bind_group_provider.KeyOf[*texture.Texture](),
		bind_group_provider.KeyOf[*uniform.Uniform[Transform]](),
	}
}

// rotation is the transform at t seconds: one eased turn clockwise every two seconds.
func rotation(t float32) Transform {
	var tr Transform
	turn := common.EaseInOutCubic(mod1(t * 0.5))
	common.RotationZ(tr.Matrix[:], common.Radians(turn*-360))
	return tr
}

// transform is the rotation at t seconds, squashed along the longer axis of a width by height surface so
// the quad stays square.
func transform(t float32, width, height int) Transform {
	tr := rotation(t)
	if width <= 0 || height <= 0 || width == height {
		return tr
	}
	var scale [16]float32
	aspect := float32(width) / float32(height)
	if aspect > 1 {
		common.Scale(scale[:], 1/aspect, 1, 1)
	} else {
		common.Scale(scale[:], 1, aspect, 1)
	}
	common.Mul4(tr.Matrix[:], scale[:], tr.Matrix[:])
	return tr
}

// clearColor is the animated background at t seconds.
func clearColor(t float64) [4]float64 {
	return [4]float64{
		common.ColorCos(t, 0.5),
		common.ColorCos(t, 1.0),
		common.ColorCos(t, 2.0),
		1,
	}
}

func mod1(x float32) float32 {
	return x - float32(int(x))
}

type game struct {
	logger   *zap.Logger
	r        renderer.Renderer
	cfg      Config
	pipeline pipeline.Pipeline[mesh.Vertex, uint16]
	quad     mesh.Mesh[mesh.Vertex, uint16]
	logo     *texture.Texture
	matrix   *uniform.Uniform[Transform]
	elapsed  float64
	paused   bool
	reload   chan string
}

func newGame(r renderer.Renderer, cfg Config, logger *zap.Logger) (*game, error) {
	g := &game{
		logger: logger,
		r:      r,
		cfg:    cfg,
		reload: make(chan string, 8),
	}

	if err := renderer.RegisterBindGroupLayoutFor[*texture.Texture](r); err != nil {
		return nil, err
	}
	if err := renderer.RegisterBindGroupLayoutFor[*uniform.Uniform[Transform]](r); err != nil {
		return nil, err
	}
	if err := r.RegisterPipelineLayout(binds()...); err != nil {
		return nil, err
	}

	vs, fs, err := loadShaders(cfg.Shaders)
	if err != nil {
		return nil, err
	}
	if g.pipeline, err = pipeline.NewPipeline[mesh.Vertex, uint16](r, vs, fs, binds(), pipeline.WithLabel("logo")); err != nil {
		return nil, err
	}

	if g.quad, err = mesh.NewMesh(r, "logo quad", quadVertices, quadIndices); err != nil {
		g.release()
		return nil, err
	}

	encoded, err := logoImage(cfg.Texture)
	if err != nil {
		g.release()
		return nil, err
	}
	if g.logo, err = texture.NewTexture(r, "logo", encoded); err != nil {
		g.release()
		return nil, err
	}

	width, height := r.Size()
	initial := transform(0, width, height)
	if g.matrix, err = uniform.NewUniform(r, &initial); err != nil {
		g.release()
		return nil, err
	}
	return g, nil
}

func logoImage(cfg TextureConfig) ([]byte, error) {
	if cfg.Path == "" {
		return generateLogo(cfg.Size)
	}
	data, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read texture: %w", err)
	}
	return data, nil
}

// watchShaders forwards changes of the configured shader files to the render loop until ctx is done.
func (g *game) watchShaders(ctx context.Context) {
	if !g.cfg.Shaders.Watch {
		return
	}
	go func() {
		err := shader.Watch(ctx, func(path string) {
			select {
			case g.reload <- path:
			default:
			}
		}, g.cfg.Shaders.Vertex, g.cfg.Shaders.Fragment)
		if err != nil {
			g.logger.Error("shader watch stopped", zap.Error(err))
		}
	}()
}

// rebuild replaces the pipeline from the shader files. A broken edit keeps the current pipeline.
func (g *game) rebuild() {
	vs, fs, err := loadShaders(g.cfg.Shaders)
	if err == nil {
		var p pipeline.Pipeline[mesh.Vertex, uint16]
		if p, err = pipeline.NewPipeline[mesh.Vertex, uint16](g.r, vs, fs, binds(), pipeline.WithLabel("logo")); err == nil {
			g.pipeline.Release()
			g.pipeline = p
			g.logger.Info("pipeline rebuilt")
			return
		}
	}
	g.logger.Warn("keeping previous pipeline", zap.Error(err))
}

func (g *game) render(dt float32) {
	changed := false
	for drained := false; !drained; {
		select {
		case path := <-g.reload:
			g.logger.Debug("shader changed", zap.String("path", path))
			changed = true
		default:
			drained = true
		}
	}
	if changed {
		g.rebuild()
	}

	if !g.paused {
		g.elapsed += float64(dt)
	}
	w, h := g.r.Size()
	if w <= 0 || h <= 0 {
		return
	}
	tr := transform(float32(g.elapsed), w, h)
	if err := g.matrix.Update(g.r, &tr); err != nil {
		g.logger.Error("transform update failed", zap.Error(err))
		return
	}

	cmds := []command.Command{
		command.SetPipeline{Pipeline: g.pipeline},
		command.SetBind{Bind: g.logo, Slot: 0},
		command.SetBind{Bind: g.matrix, Slot: 1},
		command.SetMesh{Mesh: g.quad},
		command.Draw{Start: 0, End: g.quad.IndexCount()},
	}
	if err := command.Execute(g.r, clearColor(g.elapsed), cmds); err != nil {
		g.logger.Warn("frame skipped", zap.Error(err))
	}
}

// keyDown pauses the animation on P and rebuilds the pipeline from the shader files on R.
func (g *game) keyDown(keyCode uint32) {
	switch keyCode {
	case common.KeyP:
		g.paused = !g.paused
	case common.KeyR:
		if g.cfg.Shaders.Vertex == "" {
			return
		}
		select {
		case g.reload <- g.cfg.Shaders.Vertex:
		default:
		}
	}
}

func (g *game) resize(width, height int) {
	if err := g.r.Resize(width, height); err != nil {
		g.logger.Error("resize failed", zap.Int("width", width), zap.Int("height", height), zap.Error(err))
	}
}

func (g *game) release() {
	if g.matrix != nil {
		g.matrix.Release()
	}
	if g.logo != nil {
		g.logo.Release()
	}
	if g.quad != nil {
		g.quad.Release(g.r)
	}
	if g.pipeline != nil {
		g.pipeline.Release()
	}
}
