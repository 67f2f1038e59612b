package shader

// ShaderOption configures a shader created with NewShader.
type ShaderOption func(s *shader)

// WithCompiler replaces the default naga compiler.
//
// Parameters:
//   - c: the compiler used by Compile
//
// Returns:
//   - ShaderOption: a function that applies the compiler
func WithCompiler(c Compiler) ShaderOption {
	return func(s *shader) {
		if c != nil {
			s.compiler = c
		}
	}
}

// WithDefines predefines macros for every compilation of the shader.
//
// Parameters:
//   - defines: macro names mapped to their replacement text, empty for a bare definition
//
// Returns:
//   - ShaderOption: a function that applies the definitions
func WithDefines(defines map[string]string) ShaderOption {
	return func(s *shader) {
		for k, v := range defines {
			s.defines[k] = v
		}
	}
}
