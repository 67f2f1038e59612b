package loader

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/technique"
)

const baseVertex = "@vertex fn vs_main() {}"

const yamlDescription = `
techniques:
  - name: lit
    includes: [base, shadowed]
    fragment:
      - inline: "@fragment fn fs_main() {}"
    blend:
      color: {src: one, dst: one}
      write_mask: rgb
    framebuffer:
      name: scene
      colors:
        - {name: color, format: bgra8unorm}
      depth: depth24plus
  - name: base
    common:
      - file: shaders/common.wgsl
    vertex:
      - file: shaders/base.wgsl
    defines:
      - {name: LIGHTS, value: "4"}
      - {name: USE_FOG}
    rasterizer:
      cull_mode: back
    depth_stencil:
      compare: less_equal
      stencil:
        front: {compare: equal, pass_op: replace}
        write_mask: 15
    resources:
      attributes:
        - {name: position, type: "vec3<f32>"}
        - {name: color, type: FloatV4}
      uniform_buffers: [Camera]
      uniforms:
        - {name: tint, type: vec4f}
  - name: shadowed
    includes: [base]
    samplers:
      - name: shadow
        address: clamp_to_edge
        address_w: repeat
        compare: less
    resources:
      textures:
        - {name: shadow_map, sampler: shadow}
      images:
        - {name: accum, format: r32float}
`

func descriptionFS(name, text string) fstest.MapFS {
	return fstest.MapFS{
		"techniques/" + name:             {Data: []byte(text)},
		"techniques/shaders/base.wgsl":   {Data: []byte(baseVertex)},
		"techniques/shaders/common.wgsl": {Data: []byte("const PI = 3.14159;")},
	}
}

func TestLoadYAMLDescription(t *testing.T) {
	lib, err := LoadTechniques(descriptionFS("scene.yaml", yamlDescription), "techniques/scene.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"lit", "base", "shadowed"}, lib.Order)
	require.Len(t, lib.Nodes, 3)

	base, ok := lib.Get("base")
	require.True(t, ok)
	assert.Equal(t, []string{baseVertex}, base.Sources(shader.ShaderTypeVertex))
	assert.Equal(t, []string{"const PI = 3.14159;"}, base.CommonSources())
	assert.Equal(t, []technique.Define{{Name: "LIGHTS", Value: "4"}, {Name: "USE_FOG"}}, base.Defines())

	raster, ok := base.RasterizerState()
	require.True(t, ok)
	assert.Equal(t, pipeline.CullModeBack, raster.CullMode)
	assert.Equal(t, pipeline.FrontFaceCCW, raster.FrontFace)

	ds, ok := base.DepthStencilState()
	require.True(t, ok)
	assert.True(t, ds.DepthTest)
	assert.True(t, ds.DepthWrite)
	assert.Equal(t, pipeline.CompareLessEqual, ds.DepthCompare)
	require.NotNil(t, ds.Stencil)
	assert.Equal(t, pipeline.CompareEqual, ds.Stencil.Front.Compare)
	assert.Equal(t, pipeline.StencilReplace, ds.Stencil.Front.PassOp)
	assert.Equal(t, pipeline.StencilKeep, ds.Stencil.Front.FailOp)
	assert.Equal(t, ds.Stencil.Front, ds.Stencil.Back)
	assert.Equal(t, uint32(0xff), ds.Stencil.ReadMask)
	assert.Equal(t, uint32(15), ds.Stencil.WriteMask)

	res := base.Resources()
	assert.Equal(t, []shader.Variable{{Name: "position", Type: common.FloatV3}, {Name: "color", Type: common.FloatV4}}, res.Attributes)
	assert.Equal(t, []string{"Camera"}, res.UniformBuffers)
	assert.Equal(t, []shader.Variable{{Name: "tint", Type: common.FloatV4}}, res.Uniforms)

	shadowed, _ := lib.Get("shadowed")
	require.Len(t, shadowed.Includes(), 1)
	assert.Same(t, base, shadowed.Includes()[0])
	sampler, ok := shadowed.SamplerStates()["shadow"]
	require.True(t, ok)
	assert.Equal(t, pipeline.AddressClampToEdge, sampler.AddressU)
	assert.Equal(t, pipeline.AddressClampToEdge, sampler.AddressV)
	assert.Equal(t, pipeline.AddressRepeat, sampler.AddressW)
	assert.Equal(t, pipeline.FilterLinear, sampler.MinFilter)
	assert.Equal(t, pipeline.CompareLess, sampler.Compare)
	assert.Equal(t, []shader.TextureDecl{{Name: "shadow_map", Sampler: "shadow"}}, shadowed.Resources().Textures)
	assert.Equal(t, []shader.ImageDecl{{Name: "accum", Format: gpu.FormatR32Float, Access: gpu.AccessReadWrite}}, shadowed.Resources().Images)

	lit, _ := lib.Get("lit")
	require.Len(t, lit.Includes(), 2)
	assert.Same(t, base, lit.Includes()[0])
	assert.Same(t, shadowed, lit.Includes()[1])
	blend, ok := lit.BlendState()
	require.True(t, ok)
	assert.True(t, blend.Enabled)
	assert.Equal(t, pipeline.BlendOne, blend.Color.Src)
	assert.Equal(t, pipeline.BlendOne, blend.Color.Dst)
	assert.Equal(t, pipeline.BlendOpAdd, blend.Color.Operation)
	assert.Equal(t, pipeline.ColorWriteRed|pipeline.ColorWriteGreen|pipeline.ColorWriteBlue, blend.WriteMask)
	layout, ok := lit.FramebufferLayout()
	require.True(t, ok)
	assert.Equal(t, "scene", layout.Name)
	assert.Equal(t, []gpu.TextureFormat{gpu.FormatBGRA8Unorm}, layout.ColorFormats())
	assert.Equal(t, gpu.FormatDepth24Plus, layout.Depth)
	_, ok = lit.RasterizerState()
	assert.False(t, ok)
}

const tomlDescription = `
[[techniques]]
name = "base"
vertex = [{ file = "shaders/base.wgsl" }]
defines = [{ name = "LIGHTS", value = "2" }]

[techniques.rasterizer]
cull_mode = "front"
front_face = "cw"

[techniques.resources]
attributes = [{ name = "position", type = "FloatV3" }]
storage_buffers = ["Particles"]

[[techniques]]
name = "overlay"
includes = ["base"]
fragment = [{ inline = "@fragment fn fs_main() {}" }]

[techniques.blend]
enabled = false

[techniques.framebuffer]
colors = [{ name = "color", format = "rgba8unorm" }]
`

func TestLoadTOMLDescription(t *testing.T) {
	lib, err := LoadTechniques(descriptionFS("overlay.toml", tomlDescription), "techniques/overlay.toml")
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "overlay"}, lib.Order)

	base, _ := lib.Get("base")
	assert.Equal(t, []string{baseVertex}, base.Sources(shader.ShaderTypeVertex))
	assert.Equal(t, []technique.Define{{Name: "LIGHTS", Value: "2"}}, base.Defines())
	raster, ok := base.RasterizerState()
	require.True(t, ok)
	assert.Equal(t, pipeline.CullModeFront, raster.CullMode)
	assert.Equal(t, pipeline.FrontFaceCW, raster.FrontFace)
	assert.Equal(t, []string{"Particles"}, base.Resources().StorageBuffers)

	overlay, _ := lib.Get("overlay")
	require.Len(t, overlay.Includes(), 1)
	assert.Same(t, base, overlay.Includes()[0])
	assert.Equal(t, []string{"@fragment fn fs_main() {}"}, overlay.Sources(shader.ShaderTypeFragment))
	blend, ok := overlay.BlendState()
	require.True(t, ok)
	assert.False(t, blend.Enabled)
	layout, ok := overlay.FramebufferLayout()
	require.True(t, ok)
	assert.False(t, layout.HasDepth())
}

func TestLoadRejectsUnknownInclude(t *testing.T) {
	text := "techniques:\n  - name: a\n    includes: [missing]\n"
	_, err := LoadTechniques(descriptionFS("bad.yaml", text), "techniques/bad.yaml")
	var unknown *UnknownIncludeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "a", unknown.Technique)
	assert.Equal(t, "missing", unknown.Include)
}

func TestLoadRejectsIncludeCycle(t *testing.T) {
	text := `
techniques:
  - name: a
    includes: [b]
  - name: b
    includes: [c]
  - name: c
    includes: [a]
`
	_, err := LoadTechniques(descriptionFS("cycle.yml", text), "techniques/cycle.yml")
	var cycle *IncludeCycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycle.Cycle)

	_, err = LoadTechniques(descriptionFS("self.yaml", "techniques:\n  - name: a\n    includes: [a]\n"), "techniques/self.yaml")
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a", "a"}, cycle.Cycle)
}

func TestLoadRejectsInvalidDescriptions(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unknown field", "techniques:\n  - name: a\n    shaders: []\n"},
		{"unnamed technique", "techniques:\n  - includes: []\n"},
		{"duplicate name", "techniques:\n  - name: a\n  - name: a\n"},
		{"bad cull mode", "techniques:\n  - name: a\n    rasterizer: {cull_mode: sideways}\n"},
		{"bad attribute type", "techniques:\n  - name: a\n    resources:\n      attributes: [{name: p, type: vec5}]\n"},
		{"depth color channel", "techniques:\n  - name: a\n    framebuffer:\n      colors: [{name: c, format: depth32float}]\n"},
		{"missing source file", "techniques:\n  - name: a\n    vertex: [{file: nope.wgsl}]\n"},
		{"file and inline", "techniques:\n  - name: a\n    vertex: [{file: shaders/base.wgsl, inline: x}]\n"},
		{"short blend factor", "techniques:\n  - name: a\n    blend_factor: [1, 1]\n"},
		{"bad write mask", "techniques:\n  - name: a\n    blend: {write_mask: rgbx}\n"},
		{"image without format", "techniques:\n  - name: a\n    resources:\n      images: [{name: i}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTechniques(descriptionFS("bad.yaml", tt.text), "techniques/bad.yaml")
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsUnsupportedFormat(t *testing.T) {
	_, err := LoadTechniques(descriptionFS("scene.json", "{}"), "techniques/scene.json")
	assert.ErrorContains(t, err, "unsupported description format")

	_, err = LoadTechniques(descriptionFS("scene.yaml", ""), "techniques/missing.yaml")
	assert.Error(t, err)
}

func TestLoadEmptyDescription(t *testing.T) {
	lib, err := LoadTechniques(descriptionFS("empty.yaml", ""), "techniques/empty.yaml")
	require.NoError(t, err)
	assert.Empty(t, lib.Order)
	assert.Empty(t, lib.Nodes)
}
