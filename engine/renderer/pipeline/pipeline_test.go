package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRasterizerDefaultsAndOptions(t *testing.T) {
	s := NewRasterizerState()
	assert.Equal(t, CullModeNone, s.CullMode)
	assert.Equal(t, FrontFaceCCW, s.FrontFace)

	s = NewRasterizerState(WithCullMode(CullModeBack), WithFrontFace(FrontFaceCW))
	assert.Equal(t, CullModeBack, s.CullMode)
	assert.Equal(t, FrontFaceCW, s.FrontFace)
}

func TestDepthStencilOptions(t *testing.T) {
	s := NewDepthStencilState()
	assert.True(t, s.UsesDepth())
	assert.False(t, s.UsesStencil())
	assert.Equal(t, CompareLess, s.EffectiveCompare())

	s = NewDepthStencilState(WithDepthTestEnabled(false), WithDepthWriteEnabled(false), WithDepthCompare(CompareGreater))
	assert.False(t, s.UsesDepth())
	assert.Equal(t, CompareAlways, s.EffectiveCompare())

	face := StencilFace{Compare: CompareEqual, FailOp: StencilKeep, DepthFailOp: StencilKeep, PassOp: StencilIncrementClamp}
	s = NewDepthStencilState(WithStencil(face, 0xff, 0x01))
	require.True(t, s.UsesStencil())
	assert.Equal(t, face, s.Stencil.Front)
	assert.Equal(t, face, s.Stencil.Back)
	assert.Equal(t, uint32(0x01), s.Stencil.WriteMask)

	s = NewDepthStencilState(WithStencilFaces(face, DefaultStencilFace(), 0x0f, 0xf0))
	assert.Equal(t, CompareAlways, s.Stencil.Back.Compare)
	assert.Equal(t, uint32(0x0f), s.Stencil.ReadMask)
}

func TestBlendOptions(t *testing.T) {
	s := NewBlendState()
	assert.False(t, s.Enabled)
	assert.Equal(t, BlendSrcAlpha, s.Color.Src)
	assert.Equal(t, ColorWriteAll, s.WriteMask)

	s = NewBlendState(
		WithBlendEnabled(true),
		WithColorBlend(BlendOne, BlendOne, BlendOpMax),
		WithAlphaBlend(BlendZero, BlendOne, BlendOpAdd),
		WithWriteMask(ColorWriteRed|ColorWriteAlpha),
	)
	assert.True(t, s.Enabled)
	assert.Equal(t, BlendComponent{Src: BlendOne, Dst: BlendOne, Operation: BlendOpMax}, s.Color)
	assert.Equal(t, BlendComponent{Src: BlendZero, Dst: BlendOne, Operation: BlendOpAdd}, s.Alpha)
	assert.Equal(t, ColorWriteRed|ColorWriteAlpha, s.WriteMask)
}

func TestSamplerOptions(t *testing.T) {
	s := NewSamplerState()
	assert.Equal(t, AddressRepeat, s.AddressW)
	assert.Equal(t, float32(32), s.LodMaxClamp)
	assert.Equal(t, uint16(1), s.MaxAnisotropy)
	assert.Empty(t, s.Compare)

	s = NewSamplerState(
		WithAddressMode(AddressClampToEdge),
		WithFilter(FilterNearest, FilterLinear, FilterNearest),
		WithLodClamp(1, 4),
		WithCompare(CompareLessEqual),
		WithMaxAnisotropy(8),
	)
	assert.Equal(t, AddressClampToEdge, s.AddressU)
	assert.Equal(t, AddressClampToEdge, s.AddressV)
	assert.Equal(t, AddressClampToEdge, s.AddressW)
	assert.Equal(t, FilterNearest, s.MagFilter)
	assert.Equal(t, FilterLinear, s.MinFilter)
	assert.Equal(t, FilterNearest, s.MipmapFilter)
	assert.Equal(t, float32(1), s.LodMinClamp)
	assert.Equal(t, float32(4), s.LodMaxClamp)
	assert.Equal(t, CompareLessEqual, s.Compare)
	assert.Equal(t, uint16(8), s.MaxAnisotropy)
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, CullModeFront.Valid())
	assert.False(t, CullMode("sideways").Valid())
	assert.True(t, FrontFaceCW.Valid())
	assert.True(t, CompareNotEqual.Valid())
	assert.False(t, CompareFunction("").Valid())
	assert.True(t, StencilDecrementWrap.Valid())
	assert.False(t, StencilOperation("flip").Valid())
	assert.True(t, BlendOneMinusConstant.Valid())
	assert.False(t, BlendFactor("two").Valid())
	assert.True(t, BlendOpReverseSubtract.Valid())
	assert.True(t, AddressMirrorRepeat.Valid())
	assert.False(t, FilterMode("cubic").Valid())
}
