package shader

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
)

// ShaderType identifies the pipeline stage a shader is compiled for.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// Stage returns the device stage flag of the shader type.
func (t ShaderType) Stage() gpu.Stage {
	if t == ShaderTypeFragment {
		return gpu.StageFragment
	}
	return gpu.StageVertex
}

// StageMacro returns the macro defined while compiling a stage, OXY_STAGE_VERTEX or OXY_STAGE_FRAGMENT.
func (t ShaderType) StageMacro() string {
	return "OXY_STAGE_" + strings.ToUpper(t.String())
}

// shader is the implementation of the Shader interface.
type shader struct {
	mu         sync.RWMutex
	ctx        *gpu.Context
	label      string
	shaderType ShaderType
	compiler   Compiler
	defines    map[string]string

	source       string
	entryPoint   string
	validated    bool
	declarations []Annotation
}

// Shader is a single compiled stage. A shader is compiled once from an ordered list of source
// texts and can then be linked into any number of programs.
type Shader interface {
	// Label returns the debug label of the shader.
	Label() string

	// Type returns the stage the shader is compiled for.
	Type() ShaderType

	// Compile pre-processes and compiles the concatenation of sources. The compilation unit starts
	// with a line naming the context version and the definition of the stage macro.
	//
	// Parameters:
	//   - sources: the source texts, joined with newlines in the given order
	//
	// Returns:
	//   - error: a *CompileError if pre-processing or compilation fails
	Compile(sources ...string) error

	// Validated reports whether the last Compile succeeded.
	Validated() bool

	// Source returns the pre-processed compilation unit of the last Compile call.
	Source() string

	// EntryPoint returns the name of the stage entry function, empty until compiled.
	EntryPoint() string

	// Declarations returns the pre-processor annotations of the last Compile call.
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader creates an uncompiled shader for a stage.
//
// Parameters:
//   - ctx: the rendering context, whose version is written into every compilation unit
//   - label: a debug label
//   - shaderType: the stage to compile for
//   - opts: functional options, see WithCompiler and WithDefines
//
// Returns:
//   - Shader: the new shader
func NewShader(ctx *gpu.Context, label string, shaderType ShaderType, opts ...ShaderOption) Shader {
	s := &shader{
		ctx:        ctx,
		label:      label,
		shaderType: shaderType,
		compiler:   NagaCompiler{},
		defines:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *shader) Label() string {
	return s.label
}

func (s *shader) Type() ShaderType {
	return s.shaderType
}

func (s *shader) Compile(sources ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.validated = false
	s.entryPoint = ""

	header := fmt.Sprintf("// oxy context: %s\n//@oxy:define %s", s.ctx.Version(), s.shaderType.StageMacro())
	unit := header + "\n" + strings.Join(sources, "\n")

	pp := NewPreProcessor(s.defines)
	processed, err := pp.Process(unit)
	if err != nil {
		s.source = unit
		return s.fail(err.Error())
	}
	s.source = processed
	s.declarations = append([]Annotation(nil), pp.Declarations()...)

	ep, err := parseEntryPoint(stripComments(processed), s.shaderType)
	if err != nil {
		return s.fail(err.Error())
	}
	if err := s.compiler.Compile(s.shaderType, neutralizeBindings(processed)); err != nil {
		return s.fail(err.Error())
	}

	s.entryPoint = ep.name
	s.validated = true
	common.Logger().Debug("shader compiled", "shader", s.label, "stage", s.shaderType.String(), "entry", ep.name)
	return nil
}

func (s *shader) fail(log string) error {
	err := &CompileError{Shader: s.label, Stage: s.shaderType, Log: log, Source: s.source}
	common.Logger().Warn("shader compile failed", "shader", s.label, "stage", s.shaderType.String(), "error", log)
	if s.ctx.Debug() {
		common.Logger().Debug("shader source", "shader", s.label, "source", numberLines(s.source))
	}
	return err
}

// numberLines prefixes every line with its 1-based line number.
func numberLines(source string) string {
	lines := strings.Split(source, "\n")
	for i, l := range lines {
		lines[i] = fmt.Sprintf("%4d: %s", i+1, l)
	}
	return strings.Join(lines, "\n")
}

func (s *shader) Validated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validated
}

func (s *shader) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

func (s *shader) EntryPoint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entryPoint
}

func (s *shader) Declarations() []Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.declarations
}
