package backend

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/pipeline"
)

func TestTextureFormatsRoundTrip(t *testing.T) {
	for f := range textureFormats {
		wf, err := toTextureFormat(f)
		require.NoError(t, err)
		assert.Equal(t, f, fromTextureFormat(wf))
	}
	_, err := toTextureFormat("rgb9e5ufloat")
	assert.Error(t, err)
	assert.Equal(t, gpu.FormatUndefined, fromTextureFormat(wgpu.TextureFormatUndefined))
}

func TestTextureDimension(t *testing.T) {
	dim, view, layers := textureDimension(gpu.DimensionCube)
	assert.Equal(t, wgpu.TextureDimension2D, dim)
	assert.Equal(t, wgpu.TextureViewDimensionCube, view)
	assert.Equal(t, uint32(6), layers)

	dim, view, layers = textureDimension(gpu.Dimension3D)
	assert.Equal(t, wgpu.TextureDimension3D, dim)
	assert.Equal(t, wgpu.TextureViewDimension3D, view)
	assert.Equal(t, uint32(1), viewLayers(dim, 4))
	assert.Equal(t, uint32(1), layers)
}

func TestLayoutEntries(t *testing.T) {
	e, err := toLayoutEntry(gpu.LayoutEntry{Binding: 2, Type: gpu.ResourceUniformBuffer, Visibility: gpu.StageVertex | gpu.StageFragment, MinSize: 80})
	require.NoError(t, err)
	assert.Equal(t, uint32(2), e.Binding)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, e.Visibility)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, e.Buffer.Type)
	assert.Equal(t, uint64(80), e.Buffer.MinBindingSize)

	e, err = toLayoutEntry(gpu.LayoutEntry{Type: gpu.ResourceDepthTexture, Dimension: gpu.Dimension2DArray, Visibility: gpu.StageFragment})
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureSampleTypeDepth, e.Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2DArray, e.Texture.ViewDimension)

	e, err = toLayoutEntry(gpu.LayoutEntry{Type: gpu.ResourceComparisonSampler})
	require.NoError(t, err)
	assert.Equal(t, wgpu.SamplerBindingTypeComparison, e.Sampler.Type)

	e, err = toLayoutEntry(gpu.LayoutEntry{Type: gpu.ResourceStorageTexture, Dimension: gpu.Dimension2D, Format: gpu.FormatRGBA8Unorm, Access: gpu.AccessWriteOnly})
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, e.StorageTexture.Format)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, e.StorageTexture.Access)

	_, err = toLayoutEntry(gpu.LayoutEntry{Type: gpu.ResourceStorageTexture, Format: "bogus"})
	assert.Error(t, err)
}

func TestVertexAndIndexFormats(t *testing.T) {
	f, err := toVertexFormat(common.FloatV3, false)
	require.NoError(t, err)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, f)

	f, err = toVertexFormat(common.UByteV4, true)
	require.NoError(t, err)
	assert.Equal(t, wgpu.VertexFormatUnorm8x4, f)

	_, err = toVertexFormat(common.FloatMat4, false)
	assert.Error(t, err)

	i, err := toIndexFormat(common.Uint16)
	require.NoError(t, err)
	assert.Equal(t, wgpu.IndexFormatUint16, i)
	_, err = toIndexFormat(common.Float)
	assert.Error(t, err)
}

func TestDepthStencilConversion(t *testing.T) {
	off := toDepthStencilState(wgpu.TextureFormatDepth24Plus, pipeline.DepthStencilState{DepthCompare: pipeline.CompareLess}, pipeline.PolygonOffset{SlopeScale: 1, Units: 2})
	assert.Equal(t, wgpu.CompareFunctionAlways, off.DepthCompare)
	assert.False(t, off.DepthWriteEnabled)
	assert.Equal(t, int32(2), off.DepthBias)
	assert.Equal(t, float32(1), off.DepthBiasSlopeScale)

	on := toDepthStencilState(wgpu.TextureFormatDepth24PlusStencil8, pipeline.DepthStencilState{
		DepthTest:    true,
		DepthWrite:   true,
		DepthCompare: pipeline.CompareLessEqual,
		Stencil: &pipeline.StencilState{
			Front:     pipeline.StencilFace{Compare: pipeline.CompareEqual, PassOp: pipeline.StencilReplace},
			ReadMask:  0xff,
			WriteMask: 0x0f,
		},
	}, pipeline.PolygonOffset{})
	assert.Equal(t, wgpu.CompareFunctionLessEqual, on.DepthCompare)
	assert.True(t, on.DepthWriteEnabled)
	assert.Equal(t, wgpu.CompareFunctionEqual, on.StencilFront.Compare)
	assert.Equal(t, wgpu.StencilOperationReplace, on.StencilFront.PassOp)
	assert.Equal(t, wgpu.StencilOperationKeep, on.StencilFront.FailOp)
	assert.Equal(t, wgpu.CompareFunctionAlways, on.StencilBack.Compare)
	assert.Equal(t, uint32(0x0f), on.StencilWriteMask)
}

func TestColorTargets(t *testing.T) {
	blend := pipeline.BlendState{
		Enabled:   true,
		Color:     pipeline.BlendComponent{Src: pipeline.BlendZero, Dst: pipeline.BlendOneMinusSrcAlpha},
		WriteMask: pipeline.ColorWriteRed | pipeline.ColorWriteAlpha,
	}
	targets := toColorTargets([]wgpu.TextureFormat{wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA16Float}, blend)
	require.Len(t, targets, 2)
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, targets[1].Format)
	require.NotNil(t, targets[0].Blend)
	assert.Equal(t, wgpu.BlendFactorZero, targets[0].Blend.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, targets[0].Blend.Color.DstFactor)
	assert.Equal(t, wgpu.BlendFactorOne, targets[0].Blend.Alpha.SrcFactor)
	assert.Equal(t, wgpu.ColorWriteMaskRed|wgpu.ColorWriteMaskAlpha, targets[0].WriteMask)

	assert.Nil(t, toColorTargets([]wgpu.TextureFormat{wgpu.TextureFormatRGBA8Unorm}, pipeline.BlendState{})[0].Blend)
}

func TestSamplerDescriptorDefaults(t *testing.T) {
	desc := toSamplerDescriptor("s", pipeline.SamplerState{AddressU: pipeline.AddressClampToEdge, MinFilter: pipeline.FilterNearest})
	assert.Equal(t, wgpu.AddressModeClampToEdge, desc.AddressModeU)
	assert.Equal(t, wgpu.AddressModeRepeat, desc.AddressModeV)
	assert.Equal(t, wgpu.FilterModeNearest, desc.MinFilter)
	assert.Equal(t, wgpu.FilterModeLinear, desc.MagFilter)
	assert.Equal(t, float32(32), desc.LodMaxClamp)
	assert.Equal(t, uint16(1), desc.MaxAnisotropy)

	cmp := toSamplerDescriptor("shadow", pipeline.SamplerState{Compare: pipeline.CompareGreater})
	assert.Equal(t, wgpu.CompareFunctionGreater, cmp.Compare)
}

func TestAlign4(t *testing.T) {
	assert.Equal(t, 0, align4(0))
	assert.Equal(t, 4, align4(1))
	assert.Equal(t, 8, align4(8))
	assert.Equal(t, 12, align4(9))
}
