package shader

import "fmt"

// CompileError is returned when a shader stage fails to pre-process or compile.
type CompileError struct {
	// Shader is the label of the failing shader.
	Shader string
	// Stage is the stage of the failing shader.
	Stage ShaderType
	// Log is the diagnostic text reported by the pre-processor or compiler.
	Log string
	// Source is the compilation unit, after pre-processing when pre-processing succeeded.
	Source string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("shader %q (%s) failed to compile: %s", e.Shader, e.Stage, e.Log)
}

// LinkError is returned when a program fails to link. Log aggregates the diagnostics of every stage.
type LinkError struct {
	// Program is the label of the failing program.
	Program string
	// Log is the aggregated diagnostic text, one diagnostic per line.
	Log string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("program %q failed to link:\n%s", e.Program, e.Log)
}
