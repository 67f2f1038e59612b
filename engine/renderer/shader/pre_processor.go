// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans a compilation
// unit for @oxy: annotations, tracks macro definitions and conditional regions, and
// substitutes macro values into the code that stays active.
//
// Annotation lines and inactive lines are replaced with empty lines so that line numbers
// in compiler diagnostics still refer to the original compilation unit.
package shader

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRegex matches a WGSL identifier as a whole word.
var identifierRegex = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)

// conditional is one open ifdef/ifndef region.
type conditional struct {
	// parentActive is true if the enclosing region is active.
	parentActive bool
	// taken is true if the region's condition held.
	taken bool
	// inElse is true after the region's else annotation.
	inElse bool
	line   int
}

func (c conditional) active() bool {
	if !c.parentActive {
		return false
	}
	return c.taken != c.inElse
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// defines maps macro names to their replacement text.
	defines map[string]string
	// declarations accumulates the annotations seen during a Process call.
	declarations []Annotation
}

// PreProcessor processes a WGSL compilation unit containing @oxy: annotations.
type PreProcessor interface {
	// Process pre-processes source. Macros defined by a previous call remain defined.
	//
	// Parameters:
	//   - source: the compilation unit
	//
	// Returns:
	//   - string: the pre-processed source with the same number of lines
	//   - error: an error if an annotation is malformed or conditional regions are unbalanced
	Process(source string) (string, error)

	// Defined reports whether a macro is currently defined.
	//
	// Parameters:
	//   - name: the macro name
	//
	// Returns:
	//   - bool: true if the macro is defined
	Defined(name string) bool

	// Declarations returns the annotations collected during the most recent call to Process, in source order.
	//
	// Returns:
	//   - []Annotation: the annotations of the last Process call
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the given macros predefined.
//
// Parameters:
//   - defines: the initial macro definitions, may be nil
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(defines map[string]string) PreProcessor {
	p := &preProcessor{defines: make(map[string]string, len(defines))}
	for k, v := range defines {
		p.defines[k] = v
	}
	return p
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	var stack []conditional
	active := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active()
	}

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			if active() {
				out = append(out, p.substitute(line))
			} else {
				out = append(out, "")
			}
			continue
		}

		p.declarations = append(p.declarations, *a)
		out = append(out, "")
		switch a.Type {
		case AnnotationTypeDefine:
			if active() {
				p.defines[a.Name] = a.Value
			}
		case AnnotationTypeUndef:
			if active() {
				delete(p.defines, a.Name)
			}
		case AnnotationTypeIfdef, AnnotationTypeIfndef:
			_, defined := p.defines[a.Name]
			stack = append(stack, conditional{
				parentActive: active(),
				taken:        defined == (a.Type == AnnotationTypeIfdef),
				line:         a.Line,
			})
		case AnnotationTypeElse:
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: @oxy:else without @oxy:ifdef", a.Line)
			}
			top := &stack[len(stack)-1]
			if top.inElse {
				return "", fmt.Errorf("line %d: duplicate @oxy:else for region opened on line %d", a.Line, top.line)
			}
			top.inElse = true
		case AnnotationTypeEndif:
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: @oxy:endif without @oxy:ifdef", a.Line)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return "", fmt.Errorf("line %d: conditional region is never closed with @oxy:endif", stack[len(stack)-1].line)
	}
	return strings.Join(out, "\n"), nil
}

// substitute replaces whole-word macro names that have a value in the code part of line.
func (p *preProcessor) substitute(line string) string {
	code, comment := line, ""
	if idx := strings.Index(line, "//"); idx >= 0 {
		code, comment = line[:idx], line[idx:]
	}
	code = identifierRegex.ReplaceAllStringFunc(code, func(word string) string {
		if v, ok := p.defines[word]; ok && v != "" {
			return v
		}
		return word
	})
	return code + comment
}

func (p *preProcessor) Defined(name string) bool {
	_, ok := p.defines[name]
	return ok
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
