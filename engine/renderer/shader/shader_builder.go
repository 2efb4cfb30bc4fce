package shader

// ShaderBuilderOption is a functional option applied to a shader during NewShader.
type ShaderBuilderOption func(*shader)

// WithEntryPoint selects a specific entry point instead of the first one declared for the stage.
//
// Parameters:
//   - name: the entry point function name
//
// Returns:
//   - ShaderBuilderOption: option function to apply
func WithEntryPoint(name string) ShaderBuilderOption {
	return func(s *shader) {
		s.wantEntryPoint = name
	}
}

// WithValidation toggles IR validation. Validation is on by default.
//
// Parameters:
//   - validate: false to skip validation
//
// Returns:
//   - ShaderBuilderOption: option function to apply
func WithValidation(validate bool) ShaderBuilderOption {
	return func(s *shader) {
		s.validate = validate
	}
}

// WithInclude registers a WGSL snippet that the source can pull in with "//!include <name>".
//
// Parameters:
//   - name: the include name
//   - source: the WGSL snippet
//
// Returns:
//   - ShaderBuilderOption: option function to apply
func WithInclude(name, source string) ShaderBuilderOption {
	return func(s *shader) {
		s.includes[name] = source
	}
}
