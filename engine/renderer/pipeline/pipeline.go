package pipeline

// RasterizerState configures primitive assembly and face culling.
type RasterizerState struct {
	// CullMode selects which faces are discarded.
	CullMode CullMode
	// FrontFace selects the winding order that counts as front facing.
	FrontFace FrontFace
}

// StencilFace configures the stencil test for one triangle facing.
type StencilFace struct {
	Compare     CompareFunction
	FailOp      StencilOperation
	DepthFailOp StencilOperation
	PassOp      StencilOperation
}

// StencilState configures stencil testing for both facings.
type StencilState struct {
	Front     StencilFace
	Back      StencilFace
	ReadMask  uint32
	WriteMask uint32
}

// DepthStencilState configures the depth and stencil tests.
// A nil Stencil disables stencil testing.
type DepthStencilState struct {
	DepthTest    bool
	DepthWrite   bool
	DepthCompare CompareFunction
	Stencil      *StencilState
}

// UsesDepth reports whether the state reads or writes a depth attachment.
//
// Returns:
//   - bool: true if depth testing or depth writing is enabled
func (d DepthStencilState) UsesDepth() bool {
	return d.DepthTest || d.DepthWrite
}

// UsesStencil reports whether the state requires a stencil attachment.
//
// Returns:
//   - bool: true if stencil testing is configured
func (d DepthStencilState) UsesStencil() bool {
	return d.Stencil != nil
}

// EffectiveCompare returns the compare function the device must use. A disabled depth test always passes.
func (d DepthStencilState) EffectiveCompare() CompareFunction {
	if !d.DepthTest {
		return CompareAlways
	}
	return d.DepthCompare
}

// BlendComponent describes how one of the color or alpha channels is blended.
type BlendComponent struct {
	Src       BlendFactor
	Dst       BlendFactor
	Operation BlendOperation
}

// BlendState configures color blending for every color attachment.
type BlendState struct {
	Enabled   bool
	Color     BlendComponent
	Alpha     BlendComponent
	WriteMask ColorWriteMask
}

// SamplerState configures how a texture is sampled.
type SamplerState struct {
	AddressU, AddressV, AddressW AddressMode
	MagFilter, MinFilter         FilterMode
	MipmapFilter                 FilterMode
	LodMinClamp, LodMaxClamp     float32
	// Compare turns the sampler into a comparison sampler when set.
	Compare       CompareFunction
	MaxAnisotropy uint16
}

// PolygonOffset biases the depth of rasterized fragments.
type PolygonOffset struct {
	// SlopeScale is multiplied with the fragment's depth slope.
	SlopeScale float32
	// Units is a constant bias in depth buffer units.
	Units int32
}

// StencilReference holds the stencil reference values for front and back faces.
type StencilReference struct {
	Front uint32
	Back  uint32
}

// NewRasterizerState creates a RasterizerState with no culling and counter-clockwise front faces,
// then applies the options in order.
//
// Parameters:
//   - opts: a variadic list of RasterizerStateOption functions
//
// Returns:
//   - RasterizerState: the configured state
func NewRasterizerState(opts ...RasterizerStateOption) RasterizerState {
	s := RasterizerState{
		CullMode:  CullModeNone,
		FrontFace: FrontFaceCCW,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// NewDepthStencilState creates a DepthStencilState with depth test and write enabled, a less-than depth
// compare and no stencil, then applies the options in order.
//
// Parameters:
//   - opts: a variadic list of DepthStencilStateOption functions
//
// Returns:
//   - DepthStencilState: the configured state
func NewDepthStencilState(opts ...DepthStencilStateOption) DepthStencilState {
	s := DepthStencilState{
		DepthTest:    true,
		DepthWrite:   true,
		DepthCompare: CompareLess,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// NewBlendState creates a disabled BlendState that, once enabled, performs standard alpha blending.
//
// Parameters:
//   - opts: a variadic list of BlendStateOption functions
//
// Returns:
//   - BlendState: the configured state
func NewBlendState(opts ...BlendStateOption) BlendState {
	s := BlendState{
		Enabled: false,
		Color: BlendComponent{
			Src:       BlendSrcAlpha,
			Dst:       BlendOneMinusSrcAlpha,
			Operation: BlendOpAdd,
		},
		Alpha: BlendComponent{
			Src:       BlendOne,
			Dst:       BlendOneMinusSrcAlpha,
			Operation: BlendOpAdd,
		},
		WriteMask: ColorWriteAll,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// NewSamplerState creates a SamplerState with repeat addressing, linear filtering and an LOD range of [0, 32].
//
// Parameters:
//   - opts: a variadic list of SamplerStateOption functions
//
// Returns:
//   - SamplerState: the configured state
func NewSamplerState(opts ...SamplerStateOption) SamplerState {
	s := SamplerState{
		AddressU:      AddressRepeat,
		AddressV:      AddressRepeat,
		AddressW:      AddressRepeat,
		MagFilter:     FilterLinear,
		MinFilter:     FilterLinear,
		MipmapFilter:  FilterLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// DefaultStencilFace returns a stencil face that always passes and keeps the stored value.
func DefaultStencilFace() StencilFace {
	return StencilFace{
		Compare:     CompareAlways,
		FailOp:      StencilKeep,
		DepthFailOp: StencilKeep,
		PassOp:      StencilKeep,
	}
}
