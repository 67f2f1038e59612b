// annotations.go defines the annotation types and parser for the Oxy WGSL shader
// pre-processor. Annotations are single-line WGSL comments prefixed with @oxy: that
// define macros and select source regions before a stage is handed to the compiler.
//
// Syntax:
//
//	//@oxy:define NAME [VALUE...]
//	//@oxy:undef NAME
//	//@oxy:ifdef NAME
//	//@oxy:ifndef NAME
//	//@oxy:else
//	//@oxy:endif
package shader

import (
	"fmt"
	"regexp"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// AnnotationTypeDefine defines a macro. A defined macro with a value replaces every
	// whole-word occurrence of its name in the active code lines that follow.
	//
	// Example: //@oxy:define MAX_LIGHTS 8
	AnnotationTypeDefine AnnotationType = "define"

	// AnnotationTypeUndef removes a macro definition.
	AnnotationTypeUndef AnnotationType = "undef"

	// AnnotationTypeIfdef starts a region that is kept only if the macro is defined.
	AnnotationTypeIfdef AnnotationType = "ifdef"

	// AnnotationTypeIfndef starts a region that is kept only if the macro is not defined.
	AnnotationTypeIfndef AnnotationType = "ifndef"

	// AnnotationTypeElse inverts the innermost open region.
	AnnotationTypeElse AnnotationType = "else"

	// AnnotationTypeEndif closes the innermost open region.
	AnnotationTypeEndif AnnotationType = "endif"
)

// Annotation is a single parsed @oxy: annotation.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType
	// Name is the macro name for define, undef, ifdef and ifndef.
	Name string
	// Value is the replacement text of a define, possibly empty.
	Value string
	// Line is the 1-based line number of the annotation in the compilation unit.
	Line int
}

// macroNameRegex matches a valid macro name, the same shape as a WGSL identifier.
var macroNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that are not annotations.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	comment, ok := strings.CutPrefix(trimmed, "//")
	if !ok {
		return nil, nil
	}
	after, ok := strings.CutPrefix(strings.TrimSpace(comment), annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	a := &Annotation{Type: AnnotationType(args[0]), Line: lineNum}
	switch a.Type {
	case AnnotationTypeDefine:
		if len(args) < 2 {
			return nil, fmt.Errorf("line %d: @oxy:define requires a macro name", lineNum)
		}
		a.Name = args[1]
		a.Value = strings.Join(args[2:], " ")
	case AnnotationTypeUndef, AnnotationTypeIfdef, AnnotationTypeIfndef:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy:%s requires exactly one macro name", lineNum, a.Type)
		}
		a.Name = args[1]
	case AnnotationTypeElse, AnnotationTypeEndif:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: @oxy:%s takes no arguments", lineNum, a.Type)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}

	if !macroNameRegex.MatchString(a.Name) {
		return nil, fmt.Errorf("line %d: invalid macro name %q", lineNum, a.Name)
	}
	return a, nil
}
