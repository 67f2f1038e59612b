package shader

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu/gputest"
)

const litVertex = `
struct VertexInput {
    @location(7) position: vec3<f32>,
    @location(7) uv: vec2<f32>,
};

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

struct Camera {
    view_proj: mat4x4<f32>,
    eye: vec3<f32>,
    exposure: f32,
};

@group(0) @binding(0) var<uniform> camera: Camera;

@vertex
fn vs_main(input: VertexInput, @location(9) model_0: vec4<f32>, @location(9) model_1: vec4<f32>,
           @location(9) model_2: vec4<f32>, @location(9) model_3: vec4<f32>) -> VertexOutput {
    let model = mat4x4<f32>(model_0, model_1, model_2, model_3);
    var out: VertexOutput;
    out.clip = camera.view_proj * model * vec4<f32>(input.position, 1.0);
    out.uv = input.uv;
    return out;
}
`

const litFragment = `
struct FragmentInput {
    @location(0) uv: vec2<f32>,
};

struct Lights {
    count: u32,
    items: array<vec4<f32>>,
};

@group(0) @binding(0) var albedo: texture_2d<f32>;
@group(0) @binding(1) var albedo_sampler: sampler;
@group(0) @binding(2) var<storage, read> lights: Lights;

@fragment
fn fs_main(input: FragmentInput) -> @location(3) vec4<f32> {
    return textureSample(albedo, albedo_sampler, input.uv) * oxy_defaults.tint * f32(lights.count);
}
`

func litPack() ResourcePack {
	return ResourcePack{
		Attributes: []Variable{
			{Name: "position", Type: common.FloatV3},
			{Name: "uv", Type: common.FloatV2},
			{Name: "model", Type: common.FloatMat4},
		},
		Outputs:        []Output{{Name: "color", Format: gpu.FormatRGBA8Unorm}},
		UniformBuffers: []string{"camera"},
		StorageBuffers: []string{"lights"},
		Textures: []TextureDecl{
			{Name: "normal", Sampler: "linear"},
			{Name: "albedo", Sampler: "linear"},
		},
		Uniforms: []Variable{
			{Name: "tint", Type: common.FloatV4},
			{Name: "time", Type: common.Float},
		},
	}
}

var acceptAll = CompilerFunc(func(ShaderType, string) error { return nil })

func newTestContext(t *testing.T) (*gpu.Context, *gputest.Recorder) {
	t.Helper()
	rec := gputest.NewRecorder()
	ctx, err := gpu.NewContext(rec)
	require.NoError(t, err)
	return ctx, rec
}

func compileLit(t *testing.T, ctx *gpu.Context, vertex, fragment string) (Shader, Shader) {
	t.Helper()
	prelude := DefaultUniformPrelude(litPack().Uniforms)
	vs := NewShader(ctx, "lit.vs", ShaderTypeVertex, WithCompiler(acceptAll))
	require.NoError(t, vs.Compile(prelude, vertex))
	fs := NewShader(ctx, "lit.fs", ShaderTypeFragment, WithCompiler(acceptAll))
	require.NoError(t, fs.Compile(prelude, fragment))
	return vs, fs
}

func TestLinkAssignsBindingsByDeclarationOrder(t *testing.T) {
	ctx, rec := newTestContext(t)
	vs, fs := compileLit(t, ctx, litVertex, litFragment)

	p := NewProgram(ctx, "lit", vs, fs)
	require.NoError(t, p.Link(litPack()))
	require.True(t, p.Linked())

	modules := rec.Modules()
	require.Len(t, modules, 2)
	vsrc, fsrc := modules[0].Desc.Source, modules[1].Desc.Source
	assert.Equal(t, "vs_main", modules[0].Desc.EntryPoint)
	assert.Equal(t, "fs_main", modules[1].Desc.EntryPoint)

	assert.Contains(t, vsrc, "@location(0) position: vec3<f32>")
	assert.Contains(t, vsrc, "@location(1) uv: vec2<f32>")
	assert.Contains(t, vsrc, "@location(2) model_0: vec4<f32>")
	assert.Contains(t, vsrc, "@location(5) model_3: vec4<f32>")
	assert.Contains(t, vsrc, "@group(0) @binding(0) var<uniform> camera: Camera;")
	assert.Contains(t, vsrc, "@group(6) @binding(0) var<uniform> oxy_defaults: OxyDefaults;")

	assert.Contains(t, fsrc, "@group(3) @binding(1) var albedo: texture_2d<f32>;")
	assert.Contains(t, fsrc, "@group(4) @binding(1) var albedo_sampler: sampler;")
	assert.Contains(t, fsrc, "@group(1) @binding(0) var<storage, read> lights: Lights;")
	assert.Contains(t, fsrc, "-> @location(0) vec4<f32>")
	assert.NotContains(t, fsrc, "//")

	assert.Equal(t, []AttributeBinding{
		{Name: "position", Type: common.FloatV3, Location: 0},
		{Name: "uv", Type: common.FloatV2, Location: 1},
		{Name: "model", Type: common.FloatMat4, Location: 2},
	}, p.Attributes())
	assert.Equal(t, []OutputBinding{
		{Name: "color", Type: common.FloatV4, Format: gpu.FormatRGBA8Unorm, Location: 0},
	}, p.Outputs())

	require.Len(t, p.UniformBuffers(), 1)
	camera := p.UniformBuffers()[0]
	assert.Equal(t, "camera", camera.Name)
	assert.Equal(t, gpu.BindingUniform, camera.Kind)
	assert.Equal(t, 0, camera.Index)
	assert.Equal(t, 80, camera.Size)
	assert.Equal(t, []MemberBinding{
		{Name: "view_proj", Type: common.FloatMat4, Offset: 0, Count: 1},
		{Name: "eye", Type: common.FloatV3, Offset: 64, Count: 1},
		{Name: "exposure", Type: common.Float, Offset: 76, Count: 1},
	}, camera.Members)

	require.Len(t, p.StorageBuffers(), 1)
	lights := p.StorageBuffers()[0]
	assert.True(t, lights.ReadOnly)
	assert.Equal(t, 32, lights.Size)
	items, ok := lights.Member("items")
	require.True(t, ok)
	assert.Equal(t, MemberBinding{Name: "items", Type: common.FloatV4, Offset: 16, Stride: 16, Count: 0}, items)

	assert.Equal(t, []TextureBinding{{
		Name:       "albedo",
		Index:      1,
		Dimension:  gpu.Dimension2D,
		SampleType: gpu.SampleFloat,
		Sampler:    "linear",
	}}, p.Textures())
	assert.Empty(t, p.Images())
	assert.Empty(t, p.AtomicCounterBuffers())

	assert.Equal(t, []UniformBinding{
		{Name: "tint", Type: common.FloatV4, Offset: 0},
		{Name: "time", Type: common.Float, Offset: 16},
	}, p.Uniforms())

	programs := rec.Programs()
	require.Len(t, programs, 1)
	desc := programs[0].Desc
	assert.Equal(t, []gpu.TextureFormat{gpu.FormatRGBA8Unorm}, desc.ColorFormats)
	groups := make([]int, 0, len(desc.Groups))
	for _, g := range desc.Groups {
		groups = append(groups, g.Group)
	}
	assert.Equal(t, []int{gpu.GroupUniformBuffers, gpu.GroupStorageBuffers, gpu.GroupTextures, gpu.GroupSamplers, gpu.GroupDefaultUniforms}, groups)
	defaults := desc.Groups[len(desc.Groups)-1].Entries[0]
	assert.Equal(t, gpu.StageVertex|gpu.StageFragment, defaults.Visibility)
	assert.Equal(t, gpu.ResourceUniformBuffer, defaults.Type)
	assert.Equal(t, gpu.ResourceReadOnlyStorageBuffer, desc.Groups[1].Entries[0].Type)
}

func TestProgramBindUploadsDefaultUniforms(t *testing.T) {
	ctx, rec := newTestContext(t)
	vs, fs := compileLit(t, ctx, litVertex, litFragment)
	p := NewProgram(ctx, "lit", vs, fs)
	require.NoError(t, p.Link(litPack()))

	var order []string
	p.AddUniformSetter(func() {
		order = append(order, "first")
		p.SetUniform("time", common.FloatValue(2.5))
	})
	p.AddUniformSetter(func() { order = append(order, "second") })

	rec.Reset()
	p.Bind()
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, []string{"BindProgram lit", "BindDefaultUniforms lit oxy_defaults"}, rec.Calls())

	block := p.(*program).block.(*gputest.Buffer)
	assert.Equal(t, 32, block.Size())
	got := math.Float32frombits(binary.LittleEndian.Uint32(block.Bytes()[16:]))
	assert.Equal(t, float32(2.5), got)

	assert.Panics(t, func() { p.SetUniform("time", common.IntValue(1)) })
	assert.Panics(t, func() { p.SetUniform("missing", common.FloatValue(1)) })
}

func TestBindBeforeLinkPanics(t *testing.T) {
	ctx, _ := newTestContext(t)
	p := NewProgram(ctx, "empty")
	assert.Panics(t, p.Bind)
}

func TestLinkReportsEveryStageDiagnostic(t *testing.T) {
	ctx, rec := newTestContext(t)
	vertex := strings.Replace(litVertex, "@location(7) uv: vec2<f32>", "@location(7) normal: vec3<f32>", 1)
	fragment := strings.Replace(litFragment, "var albedo_sampler: sampler;", "var albedo_sampler: sampler;\n@group(0) @binding(3) var detail: texture_2d<f32>;", 1)
	vs, fs := compileLit(t, ctx, vertex, fragment)

	p := NewProgram(ctx, "broken", vs, fs)
	err := p.Link(litPack())
	var linkErr *LinkError
	require.True(t, errors.As(err, &linkErr))
	assert.Equal(t, "broken", linkErr.Program)
	assert.Contains(t, linkErr.Log, `vertex shader "lit.vs": vertex input "normal" is not a declared attribute`)
	assert.Contains(t, linkErr.Log, `fragment shader "lit.fs": resource "detail" is not declared in the resource interface`)
	assert.False(t, p.Linked())
	assert.Empty(t, rec.Programs())
	assert.Empty(t, rec.Modules())
}

func TestLinkRejectsAttributeTypeMismatch(t *testing.T) {
	ctx, _ := newTestContext(t)
	vertex := strings.Replace(litVertex, "@location(7) uv: vec2<f32>", "@location(7) uv: vec3<f32>", 1)
	vs, fs := compileLit(t, ctx, vertex, litFragment)

	err := NewProgram(ctx, "mismatch", vs, fs).Link(litPack())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `vertex input "uv" is vec3<f32> but the attribute is declared FloatV2`)
}

func TestLinkRequiresCompiledStages(t *testing.T) {
	ctx, _ := newTestContext(t)
	vs := NewShader(ctx, "vs", ShaderTypeVertex, WithCompiler(acceptAll))

	err := NewProgram(ctx, "incomplete", vs).Link(ResourcePack{})
	var linkErr *LinkError
	require.True(t, errors.As(err, &linkErr))
	assert.Contains(t, linkErr.Log, `vertex shader "vs" is not compiled`)
	assert.Contains(t, linkErr.Log, "no fragment shader attached")
}

func TestLinkSurfacesDeviceRejection(t *testing.T) {
	ctx, rec := newTestContext(t)
	rec.RejectProgram = func(gpu.ProgramDesc) error { return errors.New("pipeline layout invalid") }
	vs, fs := compileLit(t, ctx, litVertex, litFragment)

	err := NewProgram(ctx, "rejected", vs, fs).Link(litPack())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline layout invalid")
	for _, m := range rec.Modules() {
		assert.True(t, m.Released)
	}
}

func TestWeakProgram(t *testing.T) {
	ctx, _ := newTestContext(t)
	p := NewProgram(ctx, "weak")
	w := p.Weak()
	assert.Same(t, p.(*program), w.Get().(*program))
	assert.Equal(t, p.ID(), w.Get().ID())
	assert.NotEqual(t, p.ID(), NewProgram(ctx, "other").ID())
}

func TestLinkAcceptsBindingBeforeGroup(t *testing.T) {
	ctx, rec := newTestContext(t)
	vertex := strings.Replace(litVertex, "@group(0) @binding(0) var<uniform> camera", "@binding(5) @group(2) var<uniform> camera", 1)
	fragment := strings.Replace(litFragment, "@group(0) @binding(0) var albedo", "@binding( 7 )\n@group(1) var albedo", 1)
	vs, fs := compileLit(t, ctx, vertex, fragment)

	p := NewProgram(ctx, "reordered", vs, fs)
	require.NoError(t, p.Link(litPack()))

	modules := rec.Modules()
	require.Len(t, modules, 2)
	assert.Contains(t, modules[0].Desc.Source, "@binding(0) @group(0) var<uniform> camera: Camera;")
	assert.Contains(t, modules[1].Desc.Source, "@binding( 1 )\n@group(3) var albedo: texture_2d<f32>;")

	require.Len(t, p.UniformBuffers(), 1)
	assert.Equal(t, "camera", p.UniformBuffers()[0].Name)
	assert.Equal(t, 0, p.UniformBuffers()[0].Index)
	require.Len(t, p.Textures(), 1)
	assert.Equal(t, "albedo", p.Textures()[0].Name)
	assert.Equal(t, 1, p.Textures()[0].Index)
}

func TestLinkReportsUnresolvedBindingAttributes(t *testing.T) {
	ctx, rec := newTestContext(t)
	vertex := strings.Replace(litVertex, "@group(0) @binding(0) var<uniform> camera", "@binding(0) var<uniform> camera", 1)
	vs, fs := compileLit(t, ctx, vertex, litFragment)

	err := NewProgram(ctx, "unresolved", vs, fs).Link(litPack())
	var linkErr *LinkError
	require.ErrorAs(t, err, &linkErr)
	assert.Contains(t, linkErr.Log, `resource "camera" has @binding but no @group`)
	assert.Empty(t, rec.Programs())
}

func TestScanResourceDeclsReportsStrayAttributes(t *testing.T) {
	decls, problems := scanResourceDecls("@group(1) @binding(2) var t: texture_2d<f32>;\n@group(0) fn f() {}\n")
	require.Len(t, decls, 1)
	assert.Equal(t, 1, decls[0].group)
	assert.Equal(t, 2, decls[0].binding)
	assert.Equal(t, []string{"line 2: @group(0) is not on a var declaration"}, problems)
}
