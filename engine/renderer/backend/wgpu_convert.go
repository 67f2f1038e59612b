package backend

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/pipeline"
)

var textureFormats = map[gpu.TextureFormat]wgpu.TextureFormat{
	gpu.FormatR8Unorm:             wgpu.TextureFormatR8Unorm,
	gpu.FormatRGBA8Unorm:          wgpu.TextureFormatRGBA8Unorm,
	gpu.FormatRGBA8UnormSrgb:      wgpu.TextureFormatRGBA8UnormSrgb,
	gpu.FormatRGBA8Snorm:          wgpu.TextureFormatRGBA8Snorm,
	gpu.FormatRGBA8Uint:           wgpu.TextureFormatRGBA8Uint,
	gpu.FormatRGBA8Sint:           wgpu.TextureFormatRGBA8Sint,
	gpu.FormatBGRA8Unorm:          wgpu.TextureFormatBGRA8Unorm,
	gpu.FormatBGRA8UnormSrgb:      wgpu.TextureFormatBGRA8UnormSrgb,
	gpu.FormatRGBA16Uint:          wgpu.TextureFormatRGBA16Uint,
	gpu.FormatRGBA16Sint:          wgpu.TextureFormatRGBA16Sint,
	gpu.FormatRGBA16Float:         wgpu.TextureFormatRGBA16Float,
	gpu.FormatR32Uint:             wgpu.TextureFormatR32Uint,
	gpu.FormatR32Sint:             wgpu.TextureFormatR32Sint,
	gpu.FormatR32Float:            wgpu.TextureFormatR32Float,
	gpu.FormatRG32Uint:            wgpu.TextureFormatRG32Uint,
	gpu.FormatRG32Sint:            wgpu.TextureFormatRG32Sint,
	gpu.FormatRG32Float:           wgpu.TextureFormatRG32Float,
	gpu.FormatRGBA32Uint:          wgpu.TextureFormatRGBA32Uint,
	gpu.FormatRGBA32Sint:          wgpu.TextureFormatRGBA32Sint,
	gpu.FormatRGBA32Float:         wgpu.TextureFormatRGBA32Float,
	gpu.FormatDepth16Unorm:        wgpu.TextureFormatDepth16Unorm,
	gpu.FormatDepth24Plus:         wgpu.TextureFormatDepth24Plus,
	gpu.FormatDepth24PlusStencil8: wgpu.TextureFormatDepth24PlusStencil8,
	gpu.FormatDepth32Float:        wgpu.TextureFormatDepth32Float,
}

// toTextureFormat maps an engine texel format to its WebGPU equivalent.
func toTextureFormat(f gpu.TextureFormat) (wgpu.TextureFormat, error) {
	wf, ok := textureFormats[f]
	if !ok {
		return wgpu.TextureFormatUndefined, fmt.Errorf("texture format %q is not supported", f)
	}
	return wf, nil
}

// fromTextureFormat maps a WebGPU texel format back to the engine format, FormatUndefined if it has none.
func fromTextureFormat(wf wgpu.TextureFormat) gpu.TextureFormat {
	for f, candidate := range textureFormats {
		if candidate == wf {
			return f
		}
	}
	return gpu.FormatUndefined
}

// textureDimension returns the storage dimension, the view dimension and the default layer count of a
// texture of view dimension d.
func textureDimension(d gpu.Dimension) (wgpu.TextureDimension, wgpu.TextureViewDimension, uint32) {
	switch d {
	case gpu.Dimension1D:
		return wgpu.TextureDimension1D, wgpu.TextureViewDimension1D, 1
	case gpu.Dimension2DArray:
		return wgpu.TextureDimension2D, wgpu.TextureViewDimension2DArray, 1
	case gpu.Dimension3D:
		return wgpu.TextureDimension3D, wgpu.TextureViewDimension3D, 1
	case gpu.DimensionCube:
		return wgpu.TextureDimension2D, wgpu.TextureViewDimensionCube, 6
	case gpu.DimensionCubeArray:
		return wgpu.TextureDimension2D, wgpu.TextureViewDimensionCubeArray, 6
	default:
		return wgpu.TextureDimension2D, wgpu.TextureViewDimension2D, 1
	}
}

func toTextureUsage(u gpu.TextureUsage) wgpu.TextureUsage {
	usage := wgpu.TextureUsageCopyDst
	if u&gpu.TextureSampled != 0 {
		usage |= wgpu.TextureUsageTextureBinding
	}
	if u&gpu.TextureStorage != 0 {
		usage |= wgpu.TextureUsageStorageBinding
	}
	if u&gpu.TextureRenderTarget != 0 {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	return usage
}

func toSampleType(s gpu.SampleType) wgpu.TextureSampleType {
	switch s {
	case gpu.SampleSint:
		return wgpu.TextureSampleTypeSint
	case gpu.SampleUint:
		return wgpu.TextureSampleTypeUint
	case gpu.SampleDepth:
		return wgpu.TextureSampleTypeDepth
	default:
		return wgpu.TextureSampleTypeFloat
	}
}

func toStorageAccess(a gpu.Access) wgpu.StorageTextureAccess {
	switch a {
	case gpu.AccessReadOnly:
		return wgpu.StorageTextureAccessReadOnly
	case gpu.AccessReadWrite:
		return wgpu.StorageTextureAccessReadWrite
	default:
		return wgpu.StorageTextureAccessWriteOnly
	}
}

func toShaderStage(s gpu.Stage) wgpu.ShaderStage {
	stage := wgpu.ShaderStageNone
	if s&gpu.StageVertex != 0 {
		stage |= wgpu.ShaderStageVertex
	}
	if s&gpu.StageFragment != 0 {
		stage |= wgpu.ShaderStageFragment
	}
	return stage
}

// toLayoutEntry translates one engine layout entry into a bind group layout entry.
//
// Parameters:
//   - e: the engine layout entry
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the WebGPU entry
//   - error: an error if a storage texture format is unsupported
func toLayoutEntry(e gpu.LayoutEntry) (wgpu.BindGroupLayoutEntry, error) {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    uint32(e.Binding),
		Visibility: toShaderStage(e.Visibility),
	}
	_, viewDim, _ := textureDimension(e.Dimension)

	switch e.Type {
	case gpu.ResourceUniformBuffer:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.MinBindingSize = uint64(e.MinSize)
	case gpu.ResourceStorageBuffer:
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		entry.Buffer.MinBindingSize = uint64(e.MinSize)
	case gpu.ResourceReadOnlyStorageBuffer:
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		entry.Buffer.MinBindingSize = uint64(e.MinSize)
	case gpu.ResourceSampledTexture:
		entry.Texture.SampleType = toSampleType(e.SampleType)
		entry.Texture.ViewDimension = viewDim
		entry.Texture.Multisampled = e.Multisampled
	case gpu.ResourceDepthTexture:
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		entry.Texture.ViewDimension = viewDim
		entry.Texture.Multisampled = e.Multisampled
	case gpu.ResourceSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case gpu.ResourceComparisonSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case gpu.ResourceStorageTexture:
		format, err := toTextureFormat(e.Format)
		if err != nil {
			return entry, err
		}
		entry.StorageTexture.Access = toStorageAccess(e.Access)
		entry.StorageTexture.Format = format
		entry.StorageTexture.ViewDimension = viewDim
	}
	return entry, nil
}

var vertexFormats = map[common.ElementType]wgpu.VertexFormat{
	common.Float:   wgpu.VertexFormatFloat32,
	common.FloatV2: wgpu.VertexFormatFloat32x2,
	common.FloatV3: wgpu.VertexFormatFloat32x3,
	common.FloatV4: wgpu.VertexFormatFloat32x4,
	common.Int:     wgpu.VertexFormatSint32,
	common.IntV2:   wgpu.VertexFormatSint32x2,
	common.IntV3:   wgpu.VertexFormatSint32x3,
	common.IntV4:   wgpu.VertexFormatSint32x4,
	common.Uint:    wgpu.VertexFormatUint32,
	common.UintV2:  wgpu.VertexFormatUint32x2,
	common.UintV3:  wgpu.VertexFormatUint32x3,
	common.UintV4:  wgpu.VertexFormatUint32x4,
	common.UByteV4: wgpu.VertexFormatUint8x4,
}

// toVertexFormat maps an attribute element type to a vertex format. Normalized unsigned bytes become unorm8x4.
func toVertexFormat(t common.ElementType, normalized bool) (wgpu.VertexFormat, error) {
	if t == common.UByteV4 && normalized {
		return wgpu.VertexFormatUnorm8x4, nil
	}
	f, ok := vertexFormats[t]
	if !ok {
		return wgpu.VertexFormatUndefined, fmt.Errorf("element type %s cannot be a vertex attribute", t)
	}
	return f, nil
}

func toIndexFormat(t common.ElementType) (wgpu.IndexFormat, error) {
	switch t {
	case common.Uint16:
		return wgpu.IndexFormatUint16, nil
	case common.Uint:
		return wgpu.IndexFormatUint32, nil
	}
	return wgpu.IndexFormatUndefined, fmt.Errorf("element type %s cannot be an index type", t)
}

func toTopology(t gpu.Topology) wgpu.PrimitiveTopology {
	switch t {
	case gpu.TopologyPoints:
		return wgpu.PrimitiveTopologyPointList
	case gpu.TopologyLines:
		return wgpu.PrimitiveTopologyLineList
	case gpu.TopologyLineStrip:
		return wgpu.PrimitiveTopologyLineStrip
	case gpu.TopologyTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}

func isStrip(t gpu.Topology) bool {
	return t == gpu.TopologyLineStrip || t == gpu.TopologyTriangleStrip
}

func toCullMode(c pipeline.CullMode) wgpu.CullMode {
	switch c {
	case pipeline.CullModeFront:
		return wgpu.CullModeFront
	case pipeline.CullModeBack:
		return wgpu.CullModeBack
	default:
		return wgpu.CullModeNone
	}
}

func toFrontFace(f pipeline.FrontFace) wgpu.FrontFace {
	if f == pipeline.FrontFaceCW {
		return wgpu.FrontFaceCW
	}
	return wgpu.FrontFaceCCW
}

var compareFunctions = map[pipeline.CompareFunction]wgpu.CompareFunction{
	pipeline.CompareNever:        wgpu.CompareFunctionNever,
	pipeline.CompareLess:         wgpu.CompareFunctionLess,
	pipeline.CompareEqual:        wgpu.CompareFunctionEqual,
	pipeline.CompareLessEqual:    wgpu.CompareFunctionLessEqual,
	pipeline.CompareGreater:      wgpu.CompareFunctionGreater,
	pipeline.CompareNotEqual:     wgpu.CompareFunctionNotEqual,
	pipeline.CompareGreaterEqual: wgpu.CompareFunctionGreaterEqual,
	pipeline.CompareAlways:       wgpu.CompareFunctionAlways,
}

// lookup returns table[key], or fallback when the key is unset or unknown.
func lookup[K comparable, V any](table map[K]V, key K, fallback V) V {
	if v, ok := table[key]; ok {
		return v
	}
	return fallback
}

// toCompare maps a compare function, treating an unset function as fallback.
func toCompare(c pipeline.CompareFunction, fallback wgpu.CompareFunction) wgpu.CompareFunction {
	return lookup(compareFunctions, c, fallback)
}

var stencilOperations = map[pipeline.StencilOperation]wgpu.StencilOperation{
	pipeline.StencilKeep:           wgpu.StencilOperationKeep,
	pipeline.StencilZero:           wgpu.StencilOperationZero,
	pipeline.StencilReplace:        wgpu.StencilOperationReplace,
	pipeline.StencilInvert:         wgpu.StencilOperationInvert,
	pipeline.StencilIncrementClamp: wgpu.StencilOperationIncrementClamp,
	pipeline.StencilDecrementClamp: wgpu.StencilOperationDecrementClamp,
	pipeline.StencilIncrementWrap:  wgpu.StencilOperationIncrementWrap,
	pipeline.StencilDecrementWrap:  wgpu.StencilOperationDecrementWrap,
}

func toStencilFace(f pipeline.StencilFace) wgpu.StencilFaceState {
	op := func(o pipeline.StencilOperation) wgpu.StencilOperation {
		return lookup(stencilOperations, o, wgpu.StencilOperationKeep)
	}
	return wgpu.StencilFaceState{
		Compare:     toCompare(f.Compare, wgpu.CompareFunctionAlways),
		FailOp:      op(f.FailOp),
		DepthFailOp: op(f.DepthFailOp),
		PassOp:      op(f.PassOp),
	}
}

// toDepthStencilState builds the depth-stencil state of a pipeline rendering into an attachment of format.
func toDepthStencilState(format wgpu.TextureFormat, s pipeline.DepthStencilState, offset pipeline.PolygonOffset) *wgpu.DepthStencilState {
	ds := &wgpu.DepthStencilState{
		Format:              format,
		DepthWriteEnabled:   s.DepthWrite,
		DepthCompare:        toCompare(s.EffectiveCompare(), wgpu.CompareFunctionLess),
		DepthBias:           offset.Units,
		DepthBiasSlopeScale: offset.SlopeScale,
		StencilFront:        wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		StencilBack:         wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
	}
	if s.Stencil != nil {
		ds.StencilFront = toStencilFace(s.Stencil.Front)
		ds.StencilBack = toStencilFace(s.Stencil.Back)
		ds.StencilReadMask = s.Stencil.ReadMask
		ds.StencilWriteMask = s.Stencil.WriteMask
	}
	return ds
}

var blendFactors = map[pipeline.BlendFactor]wgpu.BlendFactor{
	pipeline.BlendZero:             wgpu.BlendFactorZero,
	pipeline.BlendOne:              wgpu.BlendFactorOne,
	pipeline.BlendSrc:              wgpu.BlendFactorSrc,
	pipeline.BlendOneMinusSrc:      wgpu.BlendFactorOneMinusSrc,
	pipeline.BlendSrcAlpha:         wgpu.BlendFactorSrcAlpha,
	pipeline.BlendOneMinusSrcAlpha: wgpu.BlendFactorOneMinusSrcAlpha,
	pipeline.BlendDst:              wgpu.BlendFactorDst,
	pipeline.BlendOneMinusDst:      wgpu.BlendFactorOneMinusDst,
	pipeline.BlendDstAlpha:         wgpu.BlendFactorDstAlpha,
	pipeline.BlendOneMinusDstAlpha: wgpu.BlendFactorOneMinusDstAlpha,
	pipeline.BlendConstant:         wgpu.BlendFactorConstant,
	pipeline.BlendOneMinusConstant: wgpu.BlendFactorOneMinusConstant,
}

var blendOperations = map[pipeline.BlendOperation]wgpu.BlendOperation{
	pipeline.BlendOpAdd:             wgpu.BlendOperationAdd,
	pipeline.BlendOpSubtract:        wgpu.BlendOperationSubtract,
	pipeline.BlendOpReverseSubtract: wgpu.BlendOperationReverseSubtract,
	pipeline.BlendOpMin:             wgpu.BlendOperationMin,
	pipeline.BlendOpMax:             wgpu.BlendOperationMax,
}

func toBlendComponent(c pipeline.BlendComponent) wgpu.BlendComponent {
	return wgpu.BlendComponent{
		SrcFactor: lookup(blendFactors, c.Src, wgpu.BlendFactorOne),
		DstFactor: lookup(blendFactors, c.Dst, wgpu.BlendFactorZero),
		Operation: lookup(blendOperations, c.Operation, wgpu.BlendOperationAdd),
	}
}

func toWriteMask(m pipeline.ColorWriteMask) wgpu.ColorWriteMask {
	var mask wgpu.ColorWriteMask
	if m&pipeline.ColorWriteRed != 0 {
		mask |= wgpu.ColorWriteMaskRed
	}
	if m&pipeline.ColorWriteGreen != 0 {
		mask |= wgpu.ColorWriteMaskGreen
	}
	if m&pipeline.ColorWriteBlue != 0 {
		mask |= wgpu.ColorWriteMaskBlue
	}
	if m&pipeline.ColorWriteAlpha != 0 {
		mask |= wgpu.ColorWriteMaskAlpha
	}
	return mask
}

// toColorTargets builds one color target per attachment format, all sharing the blend state.
func toColorTargets(formats []wgpu.TextureFormat, b pipeline.BlendState) []wgpu.ColorTargetState {
	targets := make([]wgpu.ColorTargetState, len(formats))
	for i, f := range formats {
		targets[i] = wgpu.ColorTargetState{
			Format:    f,
			WriteMask: toWriteMask(b.WriteMask),
		}
		if b.Enabled {
			targets[i].Blend = &wgpu.BlendState{
				Color: toBlendComponent(b.Color),
				Alpha: toBlendComponent(b.Alpha),
			}
		}
	}
	return targets
}

var addressModes = map[pipeline.AddressMode]wgpu.AddressMode{
	pipeline.AddressRepeat:       wgpu.AddressModeRepeat,
	pipeline.AddressMirrorRepeat: wgpu.AddressModeMirrorRepeat,
	pipeline.AddressClampToEdge:  wgpu.AddressModeClampToEdge,
}

func toFilter(f pipeline.FilterMode) wgpu.FilterMode {
	if f == pipeline.FilterNearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

func toMipmapFilter(f pipeline.FilterMode) wgpu.MipmapFilterMode {
	if f == pipeline.FilterNearest {
		return wgpu.MipmapFilterModeNearest
	}
	return wgpu.MipmapFilterModeLinear
}

// toSamplerDescriptor fills unset sampler fields with repeat addressing, linear filtering and the full lod range.
func toSamplerDescriptor(label string, s pipeline.SamplerState) *wgpu.SamplerDescriptor {
	desc := &wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  lookup(addressModes, s.AddressU, wgpu.AddressModeRepeat),
		AddressModeV:  lookup(addressModes, s.AddressV, wgpu.AddressModeRepeat),
		AddressModeW:  lookup(addressModes, s.AddressW, wgpu.AddressModeRepeat),
		MagFilter:     toFilter(s.MagFilter),
		MinFilter:     toFilter(s.MinFilter),
		MipmapFilter:  toMipmapFilter(s.MipmapFilter),
		LodMinClamp:   s.LodMinClamp,
		LodMaxClamp:   common.Coalesce(s.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(s.MaxAnisotropy, 1),
	}
	if s.Compare != "" {
		desc.Compare = toCompare(s.Compare, wgpu.CompareFunctionLess)
	}
	return desc
}

// align4 rounds n up to the 4-byte granularity WebGPU requires for buffer copies.
func align4(n int) int {
	return (n + 3) &^ 3
}
