package layout_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/layout"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/shader"
)

const texturedVertex = `
@vertex
fn main(@location(0) position: vec3<f32>, @location(1) uv: vec2<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position + vec3<f32>(uv, 0.0), 1.0);
}`

const instancedVertex = `
@vertex
fn main(@location(0) position: vec3<f32>,
        @location(1) model_0: vec4<f32>, @location(1) model_1: vec4<f32>,
        @location(1) model_2: vec4<f32>, @location(1) model_3: vec4<f32>) -> @builtin(position) vec4<f32> {
    let model = mat4x4<f32>(model_0, model_1, model_2, model_3);
    return model * vec4<f32>(position, 1.0);
}`

const solidFragment = `
@fragment
fn main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}`

var acceptAll = shader.CompilerFunc(func(shader.ShaderType, string) error { return nil })

func linkProgram(t *testing.T, ctx *gpu.Context, label, vertex string, attributes ...shader.Variable) shader.Program {
	t.Helper()
	vs := shader.NewShader(ctx, label+".vs", shader.ShaderTypeVertex, shader.WithCompiler(acceptAll))
	require.NoError(t, vs.Compile(vertex))
	fs := shader.NewShader(ctx, label+".fs", shader.ShaderTypeFragment, shader.WithCompiler(acceptAll))
	require.NoError(t, fs.Compile(solidFragment))

	p := shader.NewProgram(ctx, label, vs, fs)
	require.NoError(t, p.Link(shader.ResourcePack{
		Attributes: attributes,
		Outputs:    []shader.Output{{Name: "color", Format: gpu.FormatRGBA8Unorm}},
	}))
	return p
}

type fixture struct {
	rec    *gputest.Recorder
	ctx    *gpu.Context
	layout layout.RenderingLayout
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	rec := gputest.NewRecorder()
	ctx, err := gpu.NewContext(rec)
	require.NoError(t, err)

	interleaved, err := buffer.NewGraphicsBuffer(rec, 60, buffer.WithLabel("interleaved"))
	require.NoError(t, err)
	vertices, err := buffer.NewVertexBuffer(buffer.DataLayoutDescription{
		Channels: []buffer.Channel{
			{Name: "position", Type: common.FloatV3, Offset: 0, Stride: 20},
			{Name: "uv", Type: common.FloatV2, Offset: 12, Stride: 20},
		},
		ElementCount: 3,
	}, interleaved)
	require.NoError(t, err)

	models, err := buffer.NewGraphicsBuffer(rec, 192, buffer.WithLabel("models"))
	require.NoError(t, err)
	instances, err := buffer.NewVertexBuffer(buffer.DataLayoutDescription{
		Channels:     []buffer.Channel{{Name: "model", Type: common.FloatMat4}},
		ElementCount: 3,
	}, models)
	require.NoError(t, err)

	indexData, err := buffer.NewGraphicsBuffer(rec, 6, buffer.WithData(common.SliceToBytes([]uint16{0, 1, 2})))
	require.NoError(t, err)
	indices, err := buffer.NewIndexBuffer(gpu.TopologyTriangles, common.Uint16, 3, indexData)
	require.NoError(t, err)

	l, err := layout.NewRenderingLayout(rec, []buffer.VertexBuffer{vertices, instances}, indices, layout.WithLabel("triangle"))
	require.NoError(t, err)
	return fixture{rec: rec, ctx: ctx, layout: l}
}

func TestBindToProgramCachesPerProgram(t *testing.T) {
	f := newFixture(t)
	textured := linkProgram(t, f.ctx, "textured", texturedVertex,
		shader.Variable{Name: "position", Type: common.FloatV3},
		shader.Variable{Name: "uv", Type: common.FloatV2},
	)
	instanced := linkProgram(t, f.ctx, "instanced", instancedVertex,
		shader.Variable{Name: "position", Type: common.FloatV3},
		shader.Variable{Name: "model", Type: common.FloatMat4},
	)

	require.NoError(t, f.layout.BindToProgram(textured))
	require.NoError(t, f.layout.BindToProgram(textured))
	require.Len(t, f.rec.VertexFetches(), 1)

	desc := f.rec.VertexFetches()[0].Desc
	assert.Equal(t, textured.Handle(), desc.Program)
	assert.Equal(t, common.Uint16, desc.IndexType)
	require.Len(t, desc.Attributes, 2)
	assert.Equal(t, 0, desc.Attributes[0].Location)
	assert.Equal(t, 1, desc.Attributes[1].Location)
	assert.Equal(t, 12, desc.Attributes[1].Offset)
	assert.Equal(t, 20, desc.Attributes[1].Stride)

	require.NoError(t, f.layout.BindToProgram(instanced))
	require.Len(t, f.rec.VertexFetches(), 2)
	desc = f.rec.VertexFetches()[1].Desc
	require.Len(t, desc.Attributes, 5)
	for c, attr := range desc.Attributes[1:] {
		assert.Equal(t, 1+c, attr.Location)
		assert.Equal(t, 16*c, attr.Offset)
		assert.Equal(t, 64, attr.Stride)
		assert.Equal(t, common.FloatV4, attr.Type)
	}
	assert.Equal(t, 2, f.layout.CachedPrograms())

	require.NoError(t, f.layout.BindToProgram(textured))
	assert.Len(t, f.rec.VertexFetches(), 2)
	assert.Len(t, f.rec.CallsWithPrefix("BindVertexFetch"), 4)

	textured.Bind()
	require.NoError(t, f.layout.Draw())
	assert.Equal(t, []string{"DrawElements triangles 3"}, f.rec.CallsWithPrefix("DrawElements"))
}

func TestDrawBeforeBind(t *testing.T) {
	f := newFixture(t)
	assert.True(t, errors.Is(f.layout.Draw(), layout.ErrNoProgramBound))
}

func TestBindToUnlinkedProgram(t *testing.T) {
	f := newFixture(t)
	p := shader.NewProgram(f.ctx, "unlinked")
	assert.Error(t, f.layout.BindToProgram(p))
	assert.Empty(t, f.rec.VertexFetches())
}

func TestCollectedProgramsArePruned(t *testing.T) {
	f := newFixture(t)
	bindTemporary := func() {
		p := linkProgram(t, f.ctx, "temporary", texturedVertex,
			shader.Variable{Name: "position", Type: common.FloatV3},
			shader.Variable{Name: "uv", Type: common.FloatV2},
		)
		require.NoError(t, f.layout.BindToProgram(p))
	}
	bindTemporary()
	runtime.GC()
	assert.Equal(t, 0, f.layout.CachedPrograms())

	kept := linkProgram(t, f.ctx, "kept", texturedVertex,
		shader.Variable{Name: "position", Type: common.FloatV3},
		shader.Variable{Name: "uv", Type: common.FloatV2},
	)
	require.NoError(t, f.layout.BindToProgram(kept))
	assert.True(t, f.rec.VertexFetches()[0].Released)
	assert.Equal(t, 1, f.layout.CachedPrograms())
}

func TestLayoutRequiresMatchingCounts(t *testing.T) {
	rec := gputest.NewRecorder()
	a, err := buffer.NewVertexBuffer(buffer.DataLayoutDescription{
		Channels:     []buffer.Channel{{Name: "position", Type: common.FloatV3}},
		ElementCount: 3,
	}, nil)
	require.NoError(t, err)
	b, err := buffer.NewVertexBuffer(buffer.DataLayoutDescription{
		Channels:     []buffer.Channel{{Name: "uv", Type: common.FloatV2}},
		ElementCount: 4,
	}, nil)
	require.NoError(t, err)
	indices, err := buffer.NewIndexBuffer(gpu.TopologyTriangles, common.Uint, 3, nil)
	require.NoError(t, err)

	_, err = layout.NewRenderingLayout(rec, []buffer.VertexBuffer{a, b}, indices)
	assert.Error(t, err)
	_, err = layout.NewRenderingLayout(rec, []buffer.VertexBuffer{a}, nil)
	assert.Error(t, err)
}

func TestResizedBufferRebuildsFetch(t *testing.T) {
	f := newFixture(t)
	textured := linkProgram(t, f.ctx, "textured", texturedVertex,
		shader.Variable{Name: "position", Type: common.FloatV3},
		shader.Variable{Name: "uv", Type: common.FloatV2},
	)
	require.NoError(t, f.layout.BindToProgram(textured))
	require.Len(t, f.rec.VertexFetches(), 1)

	interleaved := f.layout.VertexBuffers()[0].Buffer()
	require.NoError(t, interleaved.Resize(80))
	require.NoError(t, f.layout.BindToProgram(textured))

	fetches := f.rec.VertexFetches()
	require.Len(t, fetches, 2)
	assert.True(t, fetches[0].Released)
	assert.False(t, fetches[1].Released)
	assert.Equal(t, interleaved.Handle(), fetches[1].Desc.Attributes[0].Buffer)
	assert.Equal(t, 1, f.layout.CachedPrograms())

	require.NoError(t, f.layout.BindToProgram(textured))
	assert.Len(t, f.rec.VertexFetches(), 2)
}

func TestSwappedBufferRebuildsFetch(t *testing.T) {
	f := newFixture(t)
	textured := linkProgram(t, f.ctx, "textured", texturedVertex,
		shader.Variable{Name: "position", Type: common.FloatV3},
		shader.Variable{Name: "uv", Type: common.FloatV2},
	)
	require.NoError(t, f.layout.BindToProgram(textured))

	replacement, err := buffer.NewGraphicsBuffer(f.rec, 6, buffer.WithLabel("replacement indices"))
	require.NoError(t, err)
	require.NoError(t, f.layout.IndexBuffer().SetBuffer(replacement))
	require.NoError(t, f.layout.BindToProgram(textured))

	fetches := f.rec.VertexFetches()
	require.Len(t, fetches, 2)
	assert.True(t, fetches[0].Released)
	assert.Equal(t, replacement.Handle(), fetches[1].Desc.Index)
}

func TestResizedIndexBufferFailsCheck(t *testing.T) {
	f := newFixture(t)
	textured := linkProgram(t, f.ctx, "textured", texturedVertex,
		shader.Variable{Name: "position", Type: common.FloatV3},
		shader.Variable{Name: "uv", Type: common.FloatV2},
	)
	require.NoError(t, f.layout.BindToProgram(textured))

	require.NoError(t, f.layout.IndexBuffer().Buffer().Resize(8))
	assert.Error(t, f.layout.IndexBuffer().Validate())

	err := f.layout.BindToProgram(textured)
	var mismatch *buffer.BufferSizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 6, mismatch.Expected)
	assert.Equal(t, 8, mismatch.Actual)
	assert.Equal(t, 0, f.layout.CachedPrograms())
	assert.True(t, errors.Is(f.layout.Draw(), layout.ErrNoProgramBound))
}
