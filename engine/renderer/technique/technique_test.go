package technique

import (
	"bytes"
	"errors"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/framebuffer"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/shader"
)

const cameraSource = `
struct Camera {
    view_proj: mat4x4<f32>,
    tint: vec4<f32>,
};
@group(0) @binding(0) var<uniform> camera: Camera;
`

const positionVertex = `
@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position, 1.0);
}`

const cameraVertex = `
@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return camera.view_proj * vec4<f32>(position, 1.0);
}`

const colorFragment = `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}`

const texturedFragment = `
@group(0) @binding(0) var albedo: texture_2d<f32>;
@group(0) @binding(0) var albedo_sampler: sampler;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return textureSample(albedo, albedo_sampler, vec2<f32>(0.5, 0.5)) * camera.tint * oxy_defaults.exposure;
}`

var colorLayout = framebuffer.Layout{
	Name:   "color",
	Colors: []framebuffer.Channel{{Name: "color", Format: gpu.FormatRGBA8Unorm}},
}

var depthLayout = framebuffer.Layout{
	Name:   "color+depth",
	Colors: []framebuffer.Channel{{Name: "color", Format: gpu.FormatRGBA8Unorm}},
	Depth:  gpu.FormatDepth24Plus,
}

var acceptAll = shader.CompilerFunc(func(shader.ShaderType, string) error { return nil })

func newTestContext(t *testing.T, opts ...gpu.ContextOption) (*gpu.Context, *gputest.Recorder) {
	t.Helper()
	rec := gputest.NewRecorder()
	ctx, err := gpu.NewContext(rec, opts...)
	require.NoError(t, err)
	return ctx, rec
}

func positionAttribute() shader.Variable {
	return shader.Variable{Name: "position", Type: common.FloatV3}
}

// texturedGraph builds a two node graph: a base node with the camera block, a sampler state and the
// framebuffer layout, and a root node adding the stage sources, a texture and a plain uniform.
func texturedGraph() *BuildingInformation {
	base := NewBuildingInformation("base",
		WithCommonSource(cameraSource),
		WithUniformBuffers("camera"),
		WithSamplerState("linear", pipeline.NewSamplerState()),
		WithFramebufferLayout(colorLayout),
	)
	return NewBuildingInformation("textured",
		WithIncludes(base),
		WithSource(shader.ShaderTypeVertex, cameraVertex),
		WithSource(shader.ShaderTypeFragment, texturedFragment),
		WithAttributes(positionAttribute()),
		WithTexture("albedo", "linear"),
		WithUniforms(shader.Variable{Name: "exposure", Type: common.Float}),
	)
}

func TestFlattenOrdersIncludesFirstWithoutDuplicates(t *testing.T) {
	a := NewBuildingInformation("A")
	c := NewBuildingInformation("C", WithIncludes(a))
	b := NewBuildingInformation("B", WithIncludes(a, c))

	names := func(nodes []*BuildingInformation) []string {
		var out []string
		for _, n := range nodes {
			out = append(out, n.Name())
		}
		return out
	}
	first := Flatten(b)
	assert.Equal(t, []string{"A", "C", "B"}, names(first))
	assert.Equal(t, first, Flatten(b))

	d := NewBuildingInformation("D", WithIncludes(c, b, a))
	assert.Equal(t, []string{"A", "C", "B", "D"}, names(Flatten(d)))
	assert.Empty(t, Flatten(nil))
}

func TestCreateSingleNodeTechnique(t *testing.T) {
	ctx, _ := newTestContext(t)
	root := NewBuildingInformation("solid",
		WithSource(shader.ShaderTypeVertex, positionVertex),
		WithSource(shader.ShaderTypeFragment, colorFragment),
		WithAttributes(positionAttribute()),
		WithFramebufferLayout(colorLayout),
	)

	tech, err := NewTechniqueBuilder(ctx, root, WithCompiler(acceptAll)).Create()
	require.NoError(t, err)
	require.NotNil(t, tech)

	assert.Equal(t, []shader.AttributeBinding{{Name: "position", Type: common.FloatV3, Location: 0}}, tech.Program().Attributes())
	require.Len(t, tech.Program().Outputs(), 1)
	assert.Equal(t, "color", tech.Program().Outputs()[0].Name)
	assert.Equal(t, gpu.FormatRGBA8Unorm, tech.Program().Outputs()[0].Format)
	assert.False(t, tech.DepthStencilState().UsesDepth())
	assert.Empty(t, tech.Parameters())
}

func TestCreateAggregatesIncludesIntoParameters(t *testing.T) {
	ctx, rec := newTestContext(t)
	tech, err := NewTechniqueBuilder(ctx, texturedGraph(), WithCompiler(acceptAll)).Create()
	require.NoError(t, err)

	params := tech.Parameters()
	require.Len(t, params, 3)
	assert.Equal(t, "camera", params[0].Name())
	assert.Equal(t, ParameterBuffer, params[0].Kind())
	assert.Equal(t, "albedo", params[1].Name())
	assert.Equal(t, ParameterTexture, params[1].Kind())
	assert.Equal(t, "exposure", params[2].Name())
	assert.Equal(t, common.Float, params[2].Type())

	camera := tech.Parameter("camera")
	require.NotNil(t, camera.Buffer())
	assert.Equal(t, 80, camera.Buffer().Size())
	assert.False(t, camera.Managed())
	assert.Len(t, camera.Fields(), 2)

	assert.NotNil(t, tech.Sampler("albedo"))
	assert.Len(t, rec.CallsWithPrefix("NewSampler"), 1)
	assert.Nil(t, tech.Parameter("missing"))
}

func TestUseBindsInOrder(t *testing.T) {
	ctx, rec := newTestContext(t)
	tech, err := NewTechniqueBuilder(ctx, texturedGraph(), WithCompiler(acceptAll)).Create()
	require.NoError(t, err)

	fb, err := framebuffer.NewFrameBuffer(rec, colorLayout, 8, 8)
	require.NoError(t, err)
	require.NoError(t, tech.ConnectFrameBuffer(fb))
	tech.SetPolygonOffset(pipeline.PolygonOffset{SlopeScale: 1, Units: 2})

	rec.Reset()
	tech.Use()

	var ops []string
	for _, call := range rec.Calls() {
		ops = append(ops, strings.Fields(call)[0])
	}
	assert.Equal(t, []string{
		"BindRasterizerState",
		"BindDepthStencilState",
		"BindBlendState",
		"BindFramebuffer",
		"BindUniformBuffer",
		"BindTexture",
		"BindProgram",
		"BindDefaultUniforms",
	}, ops)
	assert.Contains(t, rec.Calls()[0], "offset=1,2")
	assert.Equal(t, []string{"BindUniformBuffer 0 textured camera"}, rec.CallsWithPrefix("BindUniformBuffer"))
	assert.Equal(t, []string{"BindTexture 0 oxy default 2d textured linear"}, rec.CallsWithPrefix("BindTexture"))
}

func TestUseWithoutFramebufferPanics(t *testing.T) {
	ctx, _ := newTestContext(t)
	tech, err := NewTechniqueBuilder(ctx, texturedGraph(), WithCompiler(acceptAll)).Create()
	require.NoError(t, err)

	assert.PanicsWithError(t, (&UnconnectedFramebufferError{Technique: "textured"}).Error(), tech.Use)
}

func TestBufferFieldRoundTrip(t *testing.T) {
	ctx, _ := newTestContext(t)
	tech, err := NewTechniqueBuilder(ctx, texturedGraph(), WithCompiler(acceptAll)).Create()
	require.NoError(t, err)

	camera := tech.Parameter("camera")
	tint := common.Vec4Value(mgl32.Vec4{0.25, 0.5, 0.75, 1})
	require.NoError(t, camera.SetField("tint", 0, tint))

	data, err := camera.Buffer().Map(buffer.MapReadOnly)
	require.NoError(t, err)
	assert.Equal(t, tint.Bytes(), data[64:80])
	require.NoError(t, camera.Buffer().Unmap())

	got, err := camera.Field("tint", 0, common.FloatV4)
	require.NoError(t, err)
	assert.True(t, tint.Equal(got))

	assert.Error(t, camera.SetField("tint", 0, common.FloatValue(1)))
	assert.Error(t, camera.SetField("tint", 1, tint))
	assert.Error(t, camera.SetField("missing", 0, tint))
}

func TestValueParameterTypeMismatchPanics(t *testing.T) {
	ctx, _ := newTestContext(t)
	tech, err := NewTechniqueBuilder(ctx, texturedGraph(), WithCompiler(acceptAll)).Create()
	require.NoError(t, err)

	exposure := tech.Parameter("exposure")
	exposure.SetValue(common.FloatValue(2))
	assert.Equal(t, float32(2), exposure.Value().Float())
	assert.Panics(t, func() { exposure.SetValue(common.IntValue(2)) })
	assert.Panics(t, func() { exposure.SetTexture(nil) })
}

func TestConnectFrameBufferChecksDepthInDebugMode(t *testing.T) {
	ctx, rec := newTestContext(t, gpu.WithDebug(true))
	root := NewBuildingInformation("depth",
		WithSource(shader.ShaderTypeVertex, positionVertex),
		WithSource(shader.ShaderTypeFragment, colorFragment),
		WithAttributes(positionAttribute()),
		WithDepthStencilState(pipeline.NewDepthStencilState(pipeline.WithDepthWriteEnabled(true))),
		WithFramebufferLayout(depthLayout),
	)
	tech, err := NewTechniqueBuilder(ctx, root, WithCompiler(acceptAll)).Create()
	require.NoError(t, err)

	colorOnly, err := framebuffer.NewFrameBuffer(rec, colorLayout, 4, 4)
	require.NoError(t, err)
	err = tech.ConnectFrameBuffer(colorOnly)
	var mismatch *FramebufferMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Contains(t, mismatch.Reason, "no depth attachment")
	assert.Nil(t, tech.FrameBuffer())

	withDepth, err := framebuffer.NewFrameBuffer(rec, depthLayout, 4, 4)
	require.NoError(t, err)
	require.NoError(t, tech.ConnectFrameBuffer(withDepth))
	assert.Equal(t, withDepth, tech.FrameBuffer())
}

func TestConnectFrameBufferChecksOutputs(t *testing.T) {
	ctx, rec := newTestContext(t, gpu.WithDebug(true))
	tech, err := NewTechniqueBuilder(ctx, texturedGraph(), WithCompiler(acceptAll)).Create()
	require.NoError(t, err)

	hdr := framebuffer.Layout{Name: "hdr", Colors: []framebuffer.Channel{{Name: "color", Format: gpu.FormatRGBA16Float}}}
	fb, err := framebuffer.NewFrameBuffer(rec, hdr, 4, 4)
	require.NoError(t, err)

	var mismatch *FramebufferMismatchError
	require.True(t, errors.As(tech.ConnectFrameBuffer(fb), &mismatch))
	assert.Contains(t, mismatch.Reason, "rgba16float")
}

func TestCreateRejectsDepthWithoutDepthAttachment(t *testing.T) {
	ctx, _ := newTestContext(t)
	root := NewBuildingInformation("depth",
		WithSource(shader.ShaderTypeVertex, positionVertex),
		WithSource(shader.ShaderTypeFragment, colorFragment),
		WithAttributes(positionAttribute()),
		WithDepthStencilState(pipeline.NewDepthStencilState()),
		WithFramebufferLayout(colorLayout),
	)
	tech, err := NewTechniqueBuilder(ctx, root, WithCompiler(acceptAll)).Create()
	assert.Nil(t, tech)
	var mismatch *FramebufferMismatchError
	assert.True(t, errors.As(err, &mismatch))
}

func TestCreateRequiresExactlyOneFramebufferLayout(t *testing.T) {
	ctx, _ := newTestContext(t)
	sources := []BuildingInformationOption{
		WithSource(shader.ShaderTypeVertex, positionVertex),
		WithSource(shader.ShaderTypeFragment, colorFragment),
		WithAttributes(positionAttribute()),
	}

	none := NewBuildingInformation("none", sources...)
	_, err := NewTechniqueBuilder(ctx, none, WithCompiler(acceptAll)).Create()
	var mismatch *FramebufferMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Contains(t, mismatch.Reason, "no framebuffer layout")

	base := NewBuildingInformation("base", WithFramebufferLayout(colorLayout))
	twice := NewBuildingInformation("twice", append(sources, WithIncludes(base), WithFramebufferLayout(colorLayout))...)
	_, err = NewTechniqueBuilder(ctx, twice, WithCompiler(acceptAll)).Create()
	require.True(t, errors.As(err, &mismatch))
	assert.Contains(t, mismatch.Reason, "base, twice")
}

func TestCreateReportsMissingSamplerMapping(t *testing.T) {
	ctx, rec := newTestContext(t)
	root := NewBuildingInformation("unsampled",
		WithCommonSource(cameraSource),
		WithSource(shader.ShaderTypeVertex, cameraVertex),
		WithSource(shader.ShaderTypeFragment, texturedFragment),
		WithAttributes(positionAttribute()),
		WithUniformBuffers("camera"),
		WithTexture("albedo", "nearest"),
		WithUniforms(shader.Variable{Name: "exposure", Type: common.Float}),
		WithFramebufferLayout(colorLayout),
	)
	tech, err := NewTechniqueBuilder(ctx, root, WithCompiler(acceptAll)).Create()
	assert.Nil(t, tech)

	var missing *MissingSamplerMappingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "albedo", missing.Texture)
	assert.Equal(t, "nearest", missing.Sampler)
	assert.Empty(t, rec.Programs())
}

func TestCreateCollectsEveryStageError(t *testing.T) {
	ctx, rec := newTestContext(t)
	reject := shader.CompilerFunc(func(stage shader.ShaderType, _ string) error {
		return errors.New(stage.String() + " does not compile")
	})
	builder := NewTechniqueBuilder(ctx, texturedGraph(), WithCompiler(reject))

	tech, err := builder.GetRenderingTechnique()
	assert.Nil(t, tech)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vertex does not compile")
	assert.Contains(t, err.Error(), "fragment does not compile")

	var compileErr *shader.CompileError
	assert.True(t, errors.As(err, &compileErr))
	assert.Equal(t, 0, builder.Builds())
	assert.Empty(t, rec.Programs())
}

func TestCreateReportsLinkErrors(t *testing.T) {
	ctx, _ := newTestContext(t)
	root := NewBuildingInformation("unlinked",
		WithSource(shader.ShaderTypeVertex, positionVertex),
		WithSource(shader.ShaderTypeFragment, colorFragment),
		WithFramebufferLayout(colorLayout),
	)
	_, err := NewTechniqueBuilder(ctx, root, WithCompiler(acceptAll)).Create()
	var linkErr *shader.LinkError
	require.True(t, errors.As(err, &linkErr))
	assert.Contains(t, linkErr.Log, `vertex input "position" is not a declared attribute`)
}

func TestGetRenderingTechniqueCachesWeakly(t *testing.T) {
	ctx, _ := newTestContext(t)
	builder := NewTechniqueBuilder(ctx, texturedGraph(), WithCompiler(acceptAll))

	first, err := builder.GetRenderingTechnique()
	require.NoError(t, err)
	second, err := builder.GetRenderingTechnique()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, builder.Builds())

	first.Release()
	third, err := builder.GetRenderingTechnique()
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, builder.Builds())

	third, second, first = nil, nil, nil
	runtime.GC()
	_, err = builder.GetRenderingTechnique()
	require.NoError(t, err)
	assert.Equal(t, 3, builder.Builds())
}

func TestCreateCompilesOnWorkerPool(t *testing.T) {
	ctx, _ := newTestContext(t)
	pool := worker.NewDynamicWorkerPool(2, 8, time.Second)
	defer pool.Stop()

	var compiled atomic.Int32
	counting := shader.CompilerFunc(func(shader.ShaderType, string) error {
		compiled.Add(1)
		return nil
	})
	tech, err := NewTechniqueBuilder(ctx, texturedGraph(), WithCompiler(counting), WithWorkerPool(pool)).Create()
	require.NoError(t, err)
	assert.NotNil(t, tech)
	assert.Equal(t, int32(2), compiled.Load())
}

func TestStageSourcesOrder(t *testing.T) {
	a := NewBuildingInformation("A", WithDefine("LIGHTS", "4"), WithCommonSource("// a common"))
	b := NewBuildingInformation("B", WithIncludes(a),
		WithDefine("FOG", ""),
		WithSource(shader.ShaderTypeFragment, "// b fragment"),
	)
	nodes := Flatten(b)
	pack := aggregateResources(nodes)

	assert.Nil(t, stageSources(shader.ShaderTypeVertex, nodes, pack))
	assert.Equal(t, []string{
		"",
		"//@oxy:define LIGHTS 4",
		"// a common",
		"//@oxy:define FOG",
		"// b fragment",
	}, stageSources(shader.ShaderTypeFragment, nodes, pack))
}

func TestLaterNodeWinsPipelineState(t *testing.T) {
	a := NewBuildingInformation("A",
		WithRasterizerState(pipeline.NewRasterizerState(pipeline.WithCullMode(pipeline.CullModeBack))),
		WithBlendFactor([4]float32{1, 1, 1, 1}),
	)
	b := NewBuildingInformation("B", WithIncludes(a),
		WithRasterizerState(pipeline.NewRasterizerState(pipeline.WithCullMode(pipeline.CullModeFront))),
	)
	st := mergeStates(Flatten(b))
	assert.Equal(t, pipeline.CullModeFront, st.rasterizer.CullMode)
	assert.Equal(t, [4]float32{1, 1, 1, 1}, st.blendFactor)
	assert.False(t, st.depthStencil.UsesDepth())
}

const accumulateFragment = `
struct Frame {
    exposure: f32,
};
struct Counters {
    hits: atomic<u32>,
};
@group(0) @binding(0) var<uniform> oxy_frame: Frame;
@group(0) @binding(1) var<storage, read_write> hits: Counters;
@group(0) @binding(2) var accum: texture_storage_2d<rgba8unorm, write>;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    atomicAdd(&hits.hits, 1u);
    textureStore(accum, vec2<i32>(0, 0), vec4<f32>(oxy_frame.exposure));
    return vec4<f32>(1.0);
}`

func accumulateGraph() *BuildingInformation {
	return NewBuildingInformation("accumulate",
		WithSource(shader.ShaderTypeVertex, positionVertex),
		WithSource(shader.ShaderTypeFragment, accumulateFragment),
		WithAttributes(positionAttribute()),
		WithUniformBuffers("oxy_frame"),
		WithAtomicCounterBuffers("hits"),
		WithImages(shader.ImageDecl{Name: "accum", Format: gpu.FormatRGBA8Unorm, Access: gpu.AccessWriteOnly}),
		WithFramebufferLayout(colorLayout),
	)
}

func TestManagedBlockImageAndAtomicParameters(t *testing.T) {
	ctx, rec := newTestContext(t)
	tech, err := NewTechniqueBuilder(ctx, accumulateGraph(), WithCompiler(acceptAll)).Create()
	require.NoError(t, err)
	fb, err := framebuffer.NewFrameBuffer(rec, colorLayout, 4, 4)
	require.NoError(t, err)
	require.NoError(t, tech.ConnectFrameBuffer(fb))

	frame := tech.Parameter("oxy_frame")
	require.NotNil(t, frame)
	assert.Equal(t, ParameterBuffer, frame.Kind())
	assert.True(t, frame.Managed())
	assert.Nil(t, frame.Buffer())
	assert.Panics(t, tech.Use)

	small, err := buffer.NewGraphicsBuffer(rec, 2)
	require.NoError(t, err)
	var sizeErr *buffer.BufferSizeMismatchError
	require.ErrorAs(t, frame.SetBuffer(small), &sizeErr)
	supplied, err := buffer.NewGraphicsBuffer(rec, 16, buffer.WithLabel("frame"))
	require.NoError(t, err)
	require.NoError(t, frame.SetBuffer(supplied))

	hits := tech.Parameter("hits")
	require.NotNil(t, hits)
	assert.False(t, hits.Managed())
	assert.Equal(t, gpu.BindingAtomicCounter, hits.Block().Kind)
	require.NotNil(t, hits.Buffer())

	accum := tech.Parameter("accum")
	require.NotNil(t, accum)
	assert.Equal(t, ParameterImage, accum.Kind())
	assert.Equal(t, gpu.Dimension2D, accum.Dimension())
	assert.Equal(t, gpu.FormatRGBA8Unorm, accum.Format())
	assert.Equal(t, gpu.AccessWriteOnly, accum.Access())

	rec.Reset()
	tech.Use()
	assert.Equal(t, []string{"BindUniformBuffer 0 frame"}, rec.CallsWithPrefix("BindUniformBuffer"))
	assert.Equal(t, []string{"BindAtomicCounterBuffer 0 accumulate hits"}, rec.CallsWithPrefix("BindAtomicCounterBuffer"))
	assert.Empty(t, rec.CallsWithPrefix("BindImageTexture"))

	target, err := rec.NewTexture(gpu.TextureDesc{Label: "target", Dimension: gpu.Dimension2D, Format: gpu.FormatRGBA8Unorm, Usage: gpu.TextureStorage})
	require.NoError(t, err)
	accum.SetImage(target)
	rec.Reset()
	tech.Use()
	assert.Equal(t, []string{"BindImageTexture 0 target write rgba8unorm"}, rec.CallsWithPrefix("BindImageTexture"))

	tech.Release()
	assert.False(t, supplied.Handle().(*gputest.Buffer).Released())
}

func TestCollectedTechniqueReleasesDeviceObjects(t *testing.T) {
	ctx, rec := newTestContext(t)
	builder := NewTechniqueBuilder(ctx, texturedGraph(), WithCompiler(acceptAll))

	build := func() (*gputest.Program, *gputest.Buffer, *gputest.Sampler) {
		tech, err := builder.GetRenderingTechnique()
		require.NoError(t, err)
		return tech.Program().Handle().(*gputest.Program),
			tech.Parameter("camera").Buffer().Handle().(*gputest.Buffer),
			tech.Sampler("albedo").(*gputest.Sampler)
	}
	program, camera, sampler := build()
	runtime.GC()

	_, err := builder.GetRenderingTechnique()
	require.NoError(t, err)
	assert.Equal(t, 2, builder.Builds())
	assert.True(t, program.Released)
	assert.True(t, camera.Released())
	assert.True(t, sampler.Released)
	require.Len(t, rec.Programs(), 2)
	assert.False(t, rec.Programs()[1].Released)
}

func TestFailedCreateKeepsCachedTechnique(t *testing.T) {
	ctx, _ := newTestContext(t)
	var failing atomic.Bool
	compiler := shader.CompilerFunc(func(shader.ShaderType, string) error {
		if failing.Load() {
			return errors.New("unexpected token")
		}
		return nil
	})
	builder := NewTechniqueBuilder(ctx, texturedGraph(), WithCompiler(compiler))
	first, err := builder.GetRenderingTechnique()
	require.NoError(t, err)

	failing.Store(true)
	_, err = builder.Create()
	require.Error(t, err)
	again, err := builder.GetRenderingTechnique()
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, builder.Builds())

	failing.Store(false)
	second, err := builder.Create()
	require.NoError(t, err)
	builder.ReleaseCached()
	assert.True(t, first.Released())
	assert.True(t, second.Released())
}

func TestSetFieldKeepsDeviceWrittenData(t *testing.T) {
	ctx, _ := newTestContext(t)
	tech, err := NewTechniqueBuilder(ctx, texturedGraph(), WithCompiler(acceptAll)).Create()
	require.NoError(t, err)

	camera := tech.Parameter("camera")
	written := bytes.Repeat([]byte{0xab}, 64)
	require.NoError(t, camera.Buffer().Handle().Upload(0, written))

	tint := common.Vec4Value(mgl32.Vec4{1, 0, 0, 1})
	require.NoError(t, camera.SetField("tint", 0, tint))

	data, err := camera.Buffer().Map(buffer.MapReadOnly)
	require.NoError(t, err)
	assert.Equal(t, written, data[:64])
	assert.Equal(t, tint.Bytes(), data[64:80])
	require.NoError(t, camera.Buffer().Unmap())
}

func TestAssignRejectsTextureDimensionMismatch(t *testing.T) {
	ctx, rec := newTestContext(t)
	tech, err := NewTechniqueBuilder(ctx, texturedGraph(), WithCompiler(acceptAll)).Create()
	require.NoError(t, err)
	albedo := tech.Parameter("albedo")

	sky, err := rec.NewTexture(gpu.TextureDesc{Label: "sky", Dimension: gpu.DimensionCube, Format: gpu.FormatRGBA8Unorm, Usage: gpu.TextureSampled})
	require.NoError(t, err)
	assert.Panics(t, func() { albedo.Assign(NewTextureParameter("albedo", sky)) })
	assert.Nil(t, albedo.Texture())

	brick, err := rec.NewTexture(gpu.TextureDesc{Label: "brick", Dimension: gpu.Dimension2D, Format: gpu.FormatRGBA8Unorm, Usage: gpu.TextureSampled})
	require.NoError(t, err)
	albedo.Assign(NewTextureParameter("albedo", brick))
	assert.Equal(t, brick, albedo.Texture())
}
