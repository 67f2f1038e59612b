package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu/gputest"
)

const triangleVertex = `@vertex
fn main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}`

func TestCompileBuildsUnitWithHeaderAndStageMacro(t *testing.T) {
	ctx, _ := newTestContext(t)
	var compiled string
	capture := CompilerFunc(func(stage ShaderType, source string) error {
		assert.Equal(t, ShaderTypeVertex, stage)
		compiled = source
		return nil
	})

	s := NewShader(ctx, "staged", ShaderTypeVertex, WithCompiler(capture), WithDefines(map[string]string{"SCALE": "2.0"}))
	err := s.Compile(
		"//@oxy:ifdef OXY_STAGE_VERTEX\nconst stage = 1u;\n//@oxy:else\nconst stage = 2u;\n//@oxy:endif",
		"const scale = SCALE;",
		triangleVertex,
	)
	require.NoError(t, err)
	assert.True(t, s.Validated())
	assert.Equal(t, "main", s.EntryPoint())

	lines := strings.Split(s.Source(), "\n")
	assert.Equal(t, "// oxy context: "+gputest.Version, lines[0])
	assert.Equal(t, "", lines[1])
	assert.Contains(t, s.Source(), "const stage = 1u;")
	assert.NotContains(t, s.Source(), "const stage = 2u;")
	assert.Contains(t, s.Source(), "const scale = 2.0;")
	assert.Equal(t, s.Source(), compiled)
	assert.Len(t, s.Declarations(), 4)
}

func TestCompileFailureCarriesDiagnostics(t *testing.T) {
	ctx, _ := newTestContext(t)
	reject := CompilerFunc(func(ShaderType, string) error { return errors.New("12:3 unexpected token") })

	s := NewShader(ctx, "broken", ShaderTypeFragment, WithCompiler(reject))
	err := s.Compile("@fragment fn main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }")

	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, "broken", compileErr.Shader)
	assert.Equal(t, ShaderTypeFragment, compileErr.Stage)
	assert.Equal(t, "12:3 unexpected token", compileErr.Log)
	assert.Contains(t, compileErr.Source, "@fragment fn main()")
	assert.False(t, s.Validated())
	assert.Equal(t, "", s.EntryPoint())
}

func TestCompileRequiresEntryPoint(t *testing.T) {
	ctx, _ := newTestContext(t)
	s := NewShader(ctx, "no-entry", ShaderTypeFragment, WithCompiler(acceptAll))

	err := s.Compile(triangleVertex)
	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Contains(t, compileErr.Log, "no @fragment entry point found")
}

func TestCompileReportsPreProcessorErrors(t *testing.T) {
	ctx, _ := newTestContext(t)
	s := NewShader(ctx, "unbalanced", ShaderTypeVertex, WithCompiler(acceptAll))

	err := s.Compile("//@oxy:ifdef FOG", triangleVertex)
	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Contains(t, compileErr.Log, "never closed")
	assert.False(t, s.Validated())
}

func TestCompilerSeesDistinctPlaceholderBindings(t *testing.T) {
	ctx, _ := newTestContext(t)
	var compiled string
	capture := CompilerFunc(func(_ ShaderType, source string) error {
		compiled = source
		return nil
	})
	src := "@group(0) @binding(0) var albedo: texture_2d<f32>;\n" +
		"@group(0) @binding(0) var albedo_sampler: sampler;\n" + triangleVertex

	s := NewShader(ctx, "placeholders", ShaderTypeVertex, WithCompiler(capture))
	require.NoError(t, s.Compile(src))
	assert.Contains(t, compiled, "@group(0) @binding(0) var albedo:")
	assert.Contains(t, compiled, "@group(0) @binding(1) var albedo_sampler:")
	assert.Contains(t, s.Source(), "@group(0) @binding(0) var albedo_sampler:")
}

func TestNagaCompiler(t *testing.T) {
	assert.NoError(t, NagaCompiler{}.Compile(ShaderTypeVertex, triangleVertex))
	assert.Error(t, NagaCompiler{}.Compile(ShaderTypeVertex, "fn main( {"))

	ctx, _ := newTestContext(t)
	s := NewShader(ctx, "naga", ShaderTypeVertex)
	require.NoError(t, s.Compile(triangleVertex))
	assert.True(t, s.Validated())
}

func TestDefaultUniformPrelude(t *testing.T) {
	assert.Equal(t, "", DefaultUniformPrelude(nil))

	prelude := DefaultUniformPrelude([]Variable{
		{Name: "tint", Type: common.FloatV4},
		{Name: "model", Type: common.FloatMat4},
	})
	assert.Equal(t, "struct OxyDefaults {\n"+
		"    tint: vec4<f32>,\n"+
		"    model: mat4x4<f32>,\n"+
		"}\n"+
		"@group(6) @binding(0) var<uniform> oxy_defaults: OxyDefaults;\n", prelude)
}

func TestFlattenMembersOfStructArrays(t *testing.T) {
	src := `
struct Light {
    color: vec3<f32>,
    intensity: f32,
};
struct Scene {
    ambient: vec4<f32>,
    lights: array<Light, 4>,
    count: u32,
};`
	structs := parseStructBlocks(src)
	known := computeStructSizes(structs)
	byName := structsByName(structs)

	assert.Equal(t, wgslTypeLayout{size: 96, align: 16}, known["Scene"])
	assert.Equal(t, []MemberBinding{
		{Name: "ambient", Type: common.FloatV4, Offset: 0, Count: 1},
		{Name: "lights.color", Type: common.FloatV3, Offset: 16, Stride: 16, Count: 4},
		{Name: "lights.intensity", Type: common.Float, Offset: 28, Stride: 16, Count: 4},
		{Name: "count", Type: common.Uint, Offset: 80, Count: 1},
	}, flattenMembers("", 0, byName["Scene"], byName, known))
}

func TestParseEntryPointSignature(t *testing.T) {
	src := `
@fragment
fn fs_main(@builtin(position) frag: vec4<f32>, @location(2) @interpolate(flat) id: u32) -> GBuffer {
    var out: GBuffer;
    return out;
}`
	ep, err := parseEntryPoint(src, ShaderTypeFragment)
	require.NoError(t, err)
	assert.Equal(t, "fs_main", ep.name)
	require.Len(t, ep.inputs, 1)
	assert.Equal(t, "id", ep.inputs[0].name)
	assert.Equal(t, "u32", ep.inputs[0].typeName)
	assert.Equal(t, 2, ep.inputs[0].location)
	assert.Equal(t, "2", src[ep.inputs[0].locationDigits.start:ep.inputs[0].locationDigits.end])
	assert.Nil(t, ep.output)
	assert.Equal(t, "GBuffer", ep.outputStruct)

	_, err = parseEntryPoint(src, ShaderTypeVertex)
	assert.Error(t, err)
}
