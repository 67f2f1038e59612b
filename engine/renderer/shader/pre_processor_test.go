package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreProcessorConditionalsAndSubstitution(t *testing.T) {
	src := strings.Join([]string{
		"//@oxy:define TINT vec4<f32>(1.0)",
		"//@oxy:ifdef OXY_STAGE_VERTEX",
		"const stage = 1u;",
		"//@oxy:else",
		"const stage = 2u;",
		"//@oxy:endif",
		"let c = TINT; // TINT stays in comments",
	}, "\n")

	pp := NewPreProcessor(map[string]string{"OXY_STAGE_VERTEX": ""})
	out, err := pp.Process(src)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "", lines[0])
	assert.Equal(t, "const stage = 1u;", lines[2])
	assert.Equal(t, "", lines[4])
	assert.Equal(t, "let c = vec4<f32>(1.0); // TINT stays in comments", lines[6])
	assert.True(t, pp.Defined("TINT"))
	assert.Len(t, pp.Declarations(), 4)
}

func TestPreProcessorNestedRegions(t *testing.T) {
	src := strings.Join([]string{
		"//@oxy:ifndef A",
		"//@oxy:define B",
		"//@oxy:ifdef B",
		"b",
		"//@oxy:endif",
		"//@oxy:else",
		"a",
		"//@oxy:endif",
	}, "\n")

	out, err := NewPreProcessor(nil).Process(src)
	require.NoError(t, err)
	assert.Equal(t, "\n\n\nb\n\n\n\n", out)

	out, err = NewPreProcessor(map[string]string{"A": ""}).Process(src)
	require.NoError(t, err)
	assert.Equal(t, "\n\n\n\n\n\na\n", out)
}

func TestPreProcessorUndef(t *testing.T) {
	pp := NewPreProcessor(map[string]string{"N": "4"})
	out, err := pp.Process("x = N;\n//@oxy:undef N\ny = N;")
	require.NoError(t, err)
	assert.Equal(t, "x = 4;\n\ny = N;", out)
	assert.False(t, pp.Defined("N"))
}

func TestPreProcessorErrors(t *testing.T) {
	cases := map[string]string{
		"unclosed":        "//@oxy:ifdef A\nx",
		"stray endif":     "//@oxy:endif",
		"stray else":      "//@oxy:else",
		"duplicate else":  "//@oxy:ifdef A\n//@oxy:else\n//@oxy:else\n//@oxy:endif",
		"unknown":         "//@oxy:include foo",
		"empty":           "//@oxy:",
		"bad name":        "//@oxy:define 9lives",
		"missing name":    "//@oxy:ifdef",
		"endif arguments": "//@oxy:ifdef A\n//@oxy:endif A",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewPreProcessor(nil).Process(src)
			assert.Error(t, err)
		})
	}
}

func TestParseAnnotationIgnoresPlainComments(t *testing.T) {
	a, err := parseAnnotation("// oxy context: gputest 1.0", 1)
	assert.NoError(t, err)
	assert.Nil(t, a)

	a, err = parseAnnotation("  // @oxy:define MAX_LIGHTS 8", 3)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, AnnotationTypeDefine, a.Type)
	assert.Equal(t, "MAX_LIGHTS", a.Name)
	assert.Equal(t, "8", a.Value)
	assert.Equal(t, 3, a.Line)
}
