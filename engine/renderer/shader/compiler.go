package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
)

// Compiler checks a pre-processed WGSL compilation unit for one stage.
type Compiler interface {
	// Compile validates source.
	//
	// Parameters:
	//   - stage: the stage the source is compiled for
	//   - source: the pre-processed WGSL source
	//
	// Returns:
	//   - error: the compiler diagnostics, or nil if the source is valid
	Compile(stage ShaderType, source string) error
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(stage ShaderType, source string) error

func (f CompilerFunc) Compile(stage ShaderType, source string) error {
	return f(stage, source)
}

// NagaCompiler validates WGSL with the naga front end: parse, lower to IR, then run the IR validator.
type NagaCompiler struct{}

var _ Compiler = NagaCompiler{}

func (NagaCompiler) Compile(stage ShaderType, source string) error {
	ast, err := naga.Parse(source)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return fmt.Errorf("lower: %w", err)
	}
	issues, err := naga.Validate(module)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if len(issues) == 0 {
		return nil
	}
	errs := make([]error, 0, len(issues))
	for _, issue := range issues {
		errs = append(errs, issue)
	}
	return errors.Join(errs...)
}
