package pipeline

// RasterizerStateOption is a functional option used to configure a RasterizerState.
type RasterizerStateOption func(*RasterizerState)

// DepthStencilStateOption is a functional option used to configure a DepthStencilState.
type DepthStencilStateOption func(*DepthStencilState)

// BlendStateOption is a functional option used to configure a BlendState.
type BlendStateOption func(*BlendState)

// SamplerStateOption is a functional option used to configure a SamplerState.
type SamplerStateOption func(*SamplerState)

// WithCullMode sets the cull mode.
//
// Parameters:
//   - mode: the cull mode to use (CullModeNone, CullModeFront or CullModeBack)
//
// Returns:
//   - RasterizerStateOption: a function that sets the cull mode
func WithCullMode(mode CullMode) RasterizerStateOption {
	return func(s *RasterizerState) {
		s.CullMode = mode
	}
}

// WithFrontFace sets the front face winding order.
//
// Parameters:
//   - frontFace: the winding order to use (FrontFaceCCW or FrontFaceCW)
//
// Returns:
//   - RasterizerStateOption: a function that sets the front face
func WithFrontFace(frontFace FrontFace) RasterizerStateOption {
	return func(s *RasterizerState) {
		s.FrontFace = frontFace
	}
}

// WithDepthTestEnabled sets whether depth testing is enabled.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - DepthStencilStateOption: a function that sets the depth test state
func WithDepthTestEnabled(enabled bool) DepthStencilStateOption {
	return func(s *DepthStencilState) {
		s.DepthTest = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - DepthStencilStateOption: a function that sets the depth write state
func WithDepthWriteEnabled(enabled bool) DepthStencilStateOption {
	return func(s *DepthStencilState) {
		s.DepthWrite = enabled
	}
}

// WithDepthCompare sets the depth compare function.
//
// Parameters:
//   - compare: the compare function used by the depth test
//
// Returns:
//   - DepthStencilStateOption: a function that sets the depth compare function
func WithDepthCompare(compare CompareFunction) DepthStencilStateOption {
	return func(s *DepthStencilState) {
		s.DepthCompare = compare
	}
}

// WithStencil enables stencil testing with the same configuration on both faces.
//
// Parameters:
//   - face: the stencil configuration for front and back faces
//   - readMask: the mask applied to stencil values before comparison
//   - writeMask: the mask applied to stencil values before writing
//
// Returns:
//   - DepthStencilStateOption: a function that enables stencil testing
func WithStencil(face StencilFace, readMask, writeMask uint32) DepthStencilStateOption {
	return func(s *DepthStencilState) {
		s.Stencil = &StencilState{
			Front:     face,
			Back:      face,
			ReadMask:  readMask,
			WriteMask: writeMask,
		}
	}
}

// WithStencilFaces enables stencil testing with separate front and back configuration.
//
// Parameters:
//   - front: the stencil configuration for front faces
//   - back: the stencil configuration for back faces
//   - readMask: the mask applied to stencil values before comparison
//   - writeMask: the mask applied to stencil values before writing
//
// Returns:
//   - DepthStencilStateOption: a function that enables stencil testing
func WithStencilFaces(front, back StencilFace, readMask, writeMask uint32) DepthStencilStateOption {
	return func(s *DepthStencilState) {
		s.Stencil = &StencilState{
			Front:     front,
			Back:      back,
			ReadMask:  readMask,
			WriteMask: writeMask,
		}
	}
}

// WithBlendEnabled sets whether blending is enabled.
//
// Parameters:
//   - enabled: a boolean indicating whether blending should be enabled
//
// Returns:
//   - BlendStateOption: a function that sets the blend enabled state
func WithBlendEnabled(enabled bool) BlendStateOption {
	return func(s *BlendState) {
		s.Enabled = enabled
	}
}

// WithColorBlend sets the blend equation of the color channels.
//
// Parameters:
//   - src: the source factor
//   - dst: the destination factor
//   - op: the blend operation
//
// Returns:
//   - BlendStateOption: a function that sets the color blend component
func WithColorBlend(src, dst BlendFactor, op BlendOperation) BlendStateOption {
	return func(s *BlendState) {
		s.Color = BlendComponent{Src: src, Dst: dst, Operation: op}
	}
}

// WithAlphaBlend sets the blend equation of the alpha channel.
//
// Parameters:
//   - src: the source factor
//   - dst: the destination factor
//   - op: the blend operation
//
// Returns:
//   - BlendStateOption: a function that sets the alpha blend component
func WithAlphaBlend(src, dst BlendFactor, op BlendOperation) BlendStateOption {
	return func(s *BlendState) {
		s.Alpha = BlendComponent{Src: src, Dst: dst, Operation: op}
	}
}

// WithWriteMask sets the color write mask.
//
// Parameters:
//   - writeMask: the channels to write (e.g. ColorWriteAll, ColorWriteRed|ColorWriteAlpha)
//
// Returns:
//   - BlendStateOption: a function that sets the color write mask
func WithWriteMask(writeMask ColorWriteMask) BlendStateOption {
	return func(s *BlendState) {
		s.WriteMask = writeMask
	}
}

// WithAddressMode sets the address mode of all three texture coordinates.
//
// Parameters:
//   - mode: the address mode for U, V and W
//
// Returns:
//   - SamplerStateOption: a function that sets the address modes
func WithAddressMode(mode AddressMode) SamplerStateOption {
	return func(s *SamplerState) {
		s.AddressU, s.AddressV, s.AddressW = mode, mode, mode
	}
}

// WithFilter sets the magnification, minification and mipmap filters.
//
// Parameters:
//   - magnify: the magnification filter
//   - minify: the minification filter
//   - mip: the mipmap filter
//
// Returns:
//   - SamplerStateOption: a function that sets the filters
func WithFilter(magnify, minify, mip FilterMode) SamplerStateOption {
	return func(s *SamplerState) {
		s.MagFilter, s.MinFilter, s.MipmapFilter = magnify, minify, mip
	}
}

// WithLodClamp sets the level of detail range.
//
// Parameters:
//   - minLod: the minimum level of detail
//   - maxLod: the maximum level of detail
//
// Returns:
//   - SamplerStateOption: a function that sets the LOD clamp
func WithLodClamp(minLod, maxLod float32) SamplerStateOption {
	return func(s *SamplerState) {
		s.LodMinClamp, s.LodMaxClamp = minLod, maxLod
	}
}

// WithCompare turns the sampler into a comparison sampler.
//
// Parameters:
//   - compare: the comparison function
//
// Returns:
//   - SamplerStateOption: a function that sets the compare function
func WithCompare(compare CompareFunction) SamplerStateOption {
	return func(s *SamplerState) {
		s.Compare = compare
	}
}

// WithMaxAnisotropy sets the maximum anisotropy.
//
// Parameters:
//   - anisotropy: the anisotropy clamp, 1 disables anisotropic filtering
//
// Returns:
//   - SamplerStateOption: a function that sets the anisotropy
func WithMaxAnisotropy(anisotropy uint16) SamplerStateOption {
	return func(s *SamplerState) {
		s.MaxAnisotropy = anisotropy
	}
}
