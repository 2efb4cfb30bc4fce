package main

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/meshed/engine/renderer/mesh"
	"github.com/Carmen-Shannon/meshed/engine/renderer/shader"
)

//go:embed assets/logo.vert.wgsl
var vertexSource string

//go:embed assets/logo.frag.wgsl
var fragmentSource string

// Transform is the uniform block of the vertex shader: a column-major 4x4 matrix.
type Transform struct {
	Matrix [16]float32
}

const transformWGSL = `struct Transform {
    matrix: mat4x4<f32>,
}`

// shaderIncludes are the snippets every demo shader may include.
func shaderIncludes() []shader.ShaderBuilderOption {
	return []shader.ShaderBuilderOption{
		shader.WithInclude("vertex", mesh.VertexWGSL),
		shader.WithInclude("transform", transformWGSL),
	}
}

// loadShaders compiles the shaders from the configured files, or the embedded ones when none are set.
func loadShaders(cfg ShaderConfig) (shader.Shader, shader.Shader, error) {
	vsSource, fsSource := vertexSource, fragmentSource
	if cfg.Vertex != "" {
		vs, err := os.ReadFile(cfg.Vertex)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read vertex shader: %w", err)
		}
		fs, err := os.ReadFile(cfg.Fragment)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read fragment shader: %w", err)
		}
		vsSource, fsSource = string(vs), string(fs)
	}

	vs, err := shader.NewShader("logo.vert", shader.ShaderTypeVertex, vsSource, shaderIncludes()...)
	if err != nil {
		return nil, nil, err
	}
	fs, err := shader.NewShader("logo.frag", shader.ShaderTypeFragment, fsSource, shaderIncludes()...)
	if err != nil {
		return nil, nil, err
	}
	return vs, fs, nil
}
