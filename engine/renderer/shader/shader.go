package shader

import (
	"errors"
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ShaderType identifies the pipeline stage a shader is compiled for.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

func (t ShaderType) stage() ir.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return ir.StageVertex
	case ShaderTypeFragment:
		return ir.StageFragment
	default:
		return ir.StageCompute
	}
}

// ErrNoEntryPoint is returned when a shader has no entry point for its stage.
var ErrNoEntryPoint = errors.New("no entry point for shader stage")

// shader is the implementation of the Shader interface.
type shader struct {
	key        string
	source     string
	shaderType ShaderType
	entryPoint string
	// entryPoints lists every entry point of the module with its stage.
	entryPoints []ir.EntryPoint
	module      *wgpu.ShaderModuleDescriptor

	validate        bool
	wantEntryPoint  string
	includes        map[string]string
	includedSources []string
}

// Shader is WGSL source that has been pre-processed, compiled and validated on the CPU,
// with the entry point for its stage resolved. Compilation happens once in NewShader so that
// errors surface before any GPU object is created.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used as the GPU module label.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source handed to the device
	Source() string

	// ShaderType returns the stage the shader was compiled for.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex, ShaderTypeFragment, or ShaderTypeCompute
	ShaderType() ShaderType

	// EntryPoint returns the entry point name for this shader's stage.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// EntryPoints returns the names of every entry point declared for the given stage.
	//
	// Parameters:
	//   - shaderType: the stage to list
	//
	// Returns:
	//   - []string: entry point names in declaration order
	EntryPoints(shaderType ShaderType) []string

	// Includes returns the include names that were expanded into the source.
	Includes() []string

	// Module returns the shader module descriptor built from the source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor
}

var _ Shader = &shader{}

// NewShader pre-processes and compiles WGSL source and resolves the entry point for the given stage.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage the shader is used for
//   - source: the WGSL source
//   - options: variadic list of ShaderBuilderOption functions
//
// Returns:
//   - Shader: the compiled shader
//   - error: an error if pre-processing, parsing, lowering or validation fails, or ErrNoEntryPoint
func NewShader(key string, shaderType ShaderType, source string, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		key:        key,
		shaderType: shaderType,
		validate:   true,
		includes:   make(map[string]string),
	}
	for _, opt := range options {
		opt(s)
	}
	if err := s.compile(source); err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	return s, nil
}

// NewShaderFromPath reads WGSL source from a file and compiles it with NewShader.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage the shader is used for
//   - sourcePath: the file path to read WGSL source from
//   - options: variadic list of ShaderBuilderOption functions
//
// Returns:
//   - Shader: the compiled shader
//   - error: an error if the file cannot be read or compilation fails
func NewShaderFromPath(key string, shaderType ShaderType, sourcePath string, options ...ShaderBuilderOption) (Shader, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("shader %s: failed to read source file %q: %w", key, sourcePath, err)
	}
	return NewShader(key, shaderType, string(data), options...)
}

// MustNewShader is NewShader that panics on error.
func MustNewShader(key string, shaderType ShaderType, source string, options ...ShaderBuilderOption) Shader {
	s, err := NewShader(key, shaderType, source, options...)
	if err != nil {
		panic(err)
	}
	return s
}

// compile expands includes, runs the naga front end over the result and picks the entry point.
func (s *shader) compile(raw string) error {
	pp := NewPreProcessor(s.includes)
	source, err := pp.Process(raw)
	if err != nil {
		return fmt.Errorf("pre-process: %w", err)
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return err
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return fmt.Errorf("lowering error: %w", err)
	}
	if s.validate {
		issues, err := naga.Validate(module)
		if err != nil {
			return fmt.Errorf("validation error: %w", err)
		}
		if len(issues) > 0 {
			errs := make([]error, len(issues))
			for i := range issues {
				errs[i] = issues[i]
			}
			return fmt.Errorf("validation failed: %w", errors.Join(errs...))
		}
	}

	s.source = source
	s.includedSources = append([]string(nil), pp.Included()...)
	s.entryPoints = module.EntryPoints

	s.entryPoint, err = s.resolveEntryPoint()
	if err != nil {
		return err
	}

	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
	return nil
}

// resolveEntryPoint returns the requested entry point if set, else the first one declared for the stage.
func (s *shader) resolveEntryPoint() (string, error) {
	names := s.EntryPoints(s.shaderType)
	if s.wantEntryPoint == "" {
		if len(names) == 0 {
			return "", fmt.Errorf("%w: %s", ErrNoEntryPoint, s.shaderType)
		}
		return names[0], nil
	}
	for _, name := range names {
		if name == s.wantEntryPoint {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %s entry point %q not found", ErrNoEntryPoint, s.shaderType, s.wantEntryPoint)
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) EntryPoints(shaderType ShaderType) []string {
	var names []string
	for _, ep := range s.entryPoints {
		if ep.Stage == shaderType.stage() {
			names = append(names, ep.Name)
		}
	}
	return names
}

func (s *shader) Includes() []string {
	return s.includedSources
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}
