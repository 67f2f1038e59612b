package pipeline

import "slices"

// CullMode selects which triangle faces are discarded during rasterization.
type CullMode string

const (
	CullModeNone  CullMode = "none"
	CullModeFront CullMode = "front"
	CullModeBack  CullMode = "back"
)

// FrontFace selects the winding order of front-facing triangles.
type FrontFace string

const (
	FrontFaceCCW FrontFace = "ccw"
	FrontFaceCW  FrontFace = "cw"
)

// CompareFunction is used for depth, stencil and comparison-sampler tests.
type CompareFunction string

const (
	CompareNever        CompareFunction = "never"
	CompareLess         CompareFunction = "less"
	CompareEqual        CompareFunction = "equal"
	CompareLessEqual    CompareFunction = "less_equal"
	CompareGreater      CompareFunction = "greater"
	CompareNotEqual     CompareFunction = "not_equal"
	CompareGreaterEqual CompareFunction = "greater_equal"
	CompareAlways       CompareFunction = "always"
)

// StencilOperation is the action applied to the stencil value after a test.
type StencilOperation string

const (
	StencilKeep           StencilOperation = "keep"
	StencilZero           StencilOperation = "zero"
	StencilReplace        StencilOperation = "replace"
	StencilInvert         StencilOperation = "invert"
	StencilIncrementClamp StencilOperation = "increment_clamp"
	StencilDecrementClamp StencilOperation = "decrement_clamp"
	StencilIncrementWrap  StencilOperation = "increment_wrap"
	StencilDecrementWrap  StencilOperation = "decrement_wrap"
)

// BlendFactor scales the source or destination color during blending.
type BlendFactor string

const (
	BlendZero             BlendFactor = "zero"
	BlendOne              BlendFactor = "one"
	BlendSrc              BlendFactor = "src"
	BlendOneMinusSrc      BlendFactor = "one_minus_src"
	BlendSrcAlpha         BlendFactor = "src_alpha"
	BlendOneMinusSrcAlpha BlendFactor = "one_minus_src_alpha"
	BlendDst              BlendFactor = "dst"
	BlendOneMinusDst      BlendFactor = "one_minus_dst"
	BlendDstAlpha         BlendFactor = "dst_alpha"
	BlendOneMinusDstAlpha BlendFactor = "one_minus_dst_alpha"
	BlendConstant         BlendFactor = "constant"
	BlendOneMinusConstant BlendFactor = "one_minus_constant"
)

// BlendOperation combines the scaled source and destination colors.
type BlendOperation string

const (
	BlendOpAdd             BlendOperation = "add"
	BlendOpSubtract        BlendOperation = "subtract"
	BlendOpReverseSubtract BlendOperation = "reverse_subtract"
	BlendOpMin             BlendOperation = "min"
	BlendOpMax             BlendOperation = "max"
)

// ColorWriteMask selects which color channels are written.
type ColorWriteMask uint8

const (
	ColorWriteRed   ColorWriteMask = 1 << 0
	ColorWriteGreen ColorWriteMask = 1 << 1
	ColorWriteBlue  ColorWriteMask = 1 << 2
	ColorWriteAlpha ColorWriteMask = 1 << 3
	ColorWriteAll   ColorWriteMask = ColorWriteRed | ColorWriteGreen | ColorWriteBlue | ColorWriteAlpha
)

// AddressMode selects how texture coordinates outside [0, 1] are resolved.
type AddressMode string

const (
	AddressRepeat       AddressMode = "repeat"
	AddressMirrorRepeat AddressMode = "mirror_repeat"
	AddressClampToEdge  AddressMode = "clamp_to_edge"
)

// FilterMode selects texel filtering.
type FilterMode string

const (
	FilterNearest FilterMode = "nearest"
	FilterLinear  FilterMode = "linear"
)

// Valid reports whether m is a known cull mode.
func (m CullMode) Valid() bool {
	return slices.Contains([]CullMode{CullModeNone, CullModeFront, CullModeBack}, m)
}

// Valid reports whether f is a known winding order.
func (f FrontFace) Valid() bool {
	return f == FrontFaceCCW || f == FrontFaceCW
}

// Valid reports whether c is a known compare function.
func (c CompareFunction) Valid() bool {
	return slices.Contains([]CompareFunction{
		CompareNever, CompareLess, CompareEqual, CompareLessEqual,
		CompareGreater, CompareNotEqual, CompareGreaterEqual, CompareAlways,
	}, c)
}

// Valid reports whether o is a known stencil operation.
func (o StencilOperation) Valid() bool {
	return slices.Contains([]StencilOperation{
		StencilKeep, StencilZero, StencilReplace, StencilInvert,
		StencilIncrementClamp, StencilDecrementClamp, StencilIncrementWrap, StencilDecrementWrap,
	}, o)
}

// Valid reports whether f is a known blend factor.
func (f BlendFactor) Valid() bool {
	return slices.Contains([]BlendFactor{
		BlendZero, BlendOne, BlendSrc, BlendOneMinusSrc, BlendSrcAlpha, BlendOneMinusSrcAlpha,
		BlendDst, BlendOneMinusDst, BlendDstAlpha, BlendOneMinusDstAlpha, BlendConstant, BlendOneMinusConstant,
	}, f)
}

// Valid reports whether o is a known blend operation.
func (o BlendOperation) Valid() bool {
	return slices.Contains([]BlendOperation{BlendOpAdd, BlendOpSubtract, BlendOpReverseSubtract, BlendOpMin, BlendOpMax}, o)
}

// Valid reports whether m is a known address mode.
func (m AddressMode) Valid() bool {
	return m == AddressRepeat || m == AddressMirrorRepeat || m == AddressClampToEdge
}

// Valid reports whether f is a known filter mode.
func (f FilterMode) Valid() bool {
	return f == FilterNearest || f == FilterLinear
}
