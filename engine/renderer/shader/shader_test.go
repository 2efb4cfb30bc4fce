package shader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleSource = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec3<f32>,
}

@vertex
fn vs_main(@location(0) pos: vec3<f32>, @location(1) col: vec3<f32>) -> VertexOutput {
    var output: VertexOutput;
    output.position = vec4<f32>(pos.x, pos.y, pos.z, 1.0);
    output.color = col;
    return output;
}

@fragment
fn fs_main(@location(0) color: vec3<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(color.x, color.y, color.z, 1.0);
}
`

func TestNewShaderEntryPoints(t *testing.T) {
	vs, err := NewShader("triangle.vs", ShaderTypeVertex, triangleSource)
	require.NoError(t, err)
	assert.Equal(t, "vs_main", vs.EntryPoint())
	assert.Equal(t, ShaderTypeVertex, vs.ShaderType())
	assert.Equal(t, []string{"fs_main"}, vs.EntryPoints(ShaderTypeFragment))
	assert.Empty(t, vs.EntryPoints(ShaderTypeCompute))

	fs, err := NewShader("triangle.fs", ShaderTypeFragment, triangleSource)
	require.NoError(t, err)
	assert.Equal(t, "fs_main", fs.EntryPoint())

	module := fs.Module()
	require.NotNil(t, module)
	assert.Equal(t, "triangle.fs", module.Label)
	require.NotNil(t, module.WGSLDescriptor)
	assert.Equal(t, fs.Source(), module.WGSLDescriptor.Code)
}

func TestNewShaderMissingStage(t *testing.T) {
	_, err := NewShader("triangle.cs", ShaderTypeCompute, triangleSource)
	assert.ErrorIs(t, err, ErrNoEntryPoint)
}

func TestWithEntryPoint(t *testing.T) {
	_, err := NewShader("triangle.vs", ShaderTypeVertex, triangleSource, WithEntryPoint("fs_main"))
	assert.ErrorIs(t, err, ErrNoEntryPoint, "fs_main is not a vertex entry point")

	vs, err := NewShader("triangle.vs", ShaderTypeVertex, triangleSource, WithEntryPoint("vs_main"))
	require.NoError(t, err)
	assert.Equal(t, "vs_main", vs.EntryPoint())
}

func TestNewShaderInvalidSource(t *testing.T) {
	_, err := NewShader("broken", ShaderTypeVertex, "@vertex fn main( -> {")
	assert.Error(t, err)
	assert.Panics(t, func() { MustNewShader("broken", ShaderTypeVertex, "fn {") })
}

func TestNewShaderIncludes(t *testing.T) {
	const output = `struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec3<f32>,
}`
	source := `//!include output

@vertex
fn vs_main(@location(0) pos: vec3<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(pos.x, pos.y, pos.z, 1.0);
    out.color = pos;
    return out;
}
`
	vs, err := NewShader("included", ShaderTypeVertex, source, WithInclude("output", output))
	require.NoError(t, err)
	assert.Equal(t, []string{"output"}, vs.Includes())
	assert.Contains(t, vs.Source(), "struct VertexOutput")
	assert.NotContains(t, vs.Source(), "//!include")

	_, err = NewShader("included", ShaderTypeVertex, source)
	assert.ErrorContains(t, err, `unknown include "output"`)
}

func TestNewShaderFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triangle.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(triangleSource), 0o644))

	vs, err := NewShaderFromPath("triangle.vs", ShaderTypeVertex, path)
	require.NoError(t, err)
	assert.Equal(t, "vs_main", vs.EntryPoint())

	_, err = NewShaderFromPath("missing", ShaderTypeVertex, filepath.Join(t.TempDir(), "missing.wgsl"))
	assert.Error(t, err)
}

func TestShaderTypeString(t *testing.T) {
	assert.Equal(t, "vertex", ShaderTypeVertex.String())
	assert.Equal(t, "fragment", ShaderTypeFragment.String())
	assert.Equal(t, "compute", ShaderTypeCompute.String())
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logo.wgsl")
	other := filepath.Join(dir, "other.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(triangleSource), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan string, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, func(p string) { changed <- p }, path)
	}()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(triangleSource+"\n"), 0o644))

	select {
	case p := <-changed:
		assert.Equal(t, path, p)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchNoPaths(t *testing.T) {
	assert.Error(t, Watch(context.Background(), func(string) {}))
}
