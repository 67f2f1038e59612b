// Package backend implements the engine's gpu.Device on top of WebGPU.
package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/pipeline"
)

// WGPUDevice is a gpu.Device rendering through WebGPU, optionally presenting to a window surface.
//
// Bind calls record the current state. DrawElements resolves that state into a cached render pipeline
// and per-draw bind groups, and encodes the draw into a render pass on the bound framebuffer. Flush
// submits everything encoded so far.
type WGPUDevice interface {
	gpu.Device

	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the device has no surface or the attachments cannot be created
	ConfigureSurface(width, height int) error

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// It takes effect on the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// SurfaceFormat returns the color format of the configured surface, FormatUndefined when headless.
	SurfaceFormat() gpu.TextureFormat

	// SurfaceFramebuffer returns the framebuffer that renders to the window surface. Its color view is
	// acquired from the swapchain when the first pass of a frame begins.
	//
	// Returns:
	//   - gpu.Framebuffer: the surface framebuffer, or nil before ConfigureSurface
	SurfaceFramebuffer() gpu.Framebuffer

	// Present flushes pending work and presents the acquired swapchain image.
	//
	// Returns:
	//   - error: the flush error
	Present() error
}

type clearValue struct {
	color   [4]float32
	depth   float32
	stencil uint32
}

// boundResource is whatever is currently bound at one group and binding.
type boundResource struct {
	buffer  *wgpuBuffer
	texture *wgpuTexture
	sampler *wgpuSampler
}

// pipelineKey identifies a render pipeline by everything that is baked into it.
type pipelineKey struct {
	topology     gpu.Topology
	raster       pipeline.RasterizerState
	offset       pipeline.PolygonOffset
	depthTest    bool
	depthWrite   bool
	depthCompare pipeline.CompareFunction
	hasStencil   bool
	stencil      pipeline.StencilState
	blend        pipeline.BlendState
	colors       string
	depth        wgpu.TextureFormat
	samples      uint32
	fetch        string
}

type wgpuDevice struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	// Pre-creation config collected from builder options
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	forceFallbackAdapter bool
	presentMode          wgpu.PresentMode
	sampleCount          MSAASampleCount

	surfaceFormat wgpu.TextureFormat
	surfaceFB     *wgpuFramebuffer
	frameSurface  *wgpu.Texture
	frameView     *wgpu.TextureView

	nextID atomic.Uint64

	// Current immediate-mode state
	raster       pipeline.RasterizerState
	offset       pipeline.PolygonOffset
	depthStencil pipeline.DepthStencilState
	stencilRef   pipeline.StencilReference
	blend        pipeline.BlendState
	blendFactor  [4]float32
	framebuffer  *wgpuFramebuffer
	program      *wgpuProgram
	fetch        *wgpuVertexFetch
	resources    [gpu.GroupCount]map[int]boundResource

	// Frame recording state
	encoder    *wgpu.CommandEncoder
	pass       *wgpu.RenderPassEncoder
	passTarget *wgpuFramebuffer
	clears     map[*wgpuFramebuffer]clearValue
	transient  []*wgpu.BindGroup
}

var _ WGPUDevice = &wgpuDevice{}

// NewWGPUDevice requests an adapter and device and, when a surface descriptor is given, creates the
// window surface. The calling goroutine is locked to its OS thread, as surfaces require.
//
// Parameters:
//   - options: variadic list of WGPUDeviceOption functions to configure the device
//
// Returns:
//   - WGPUDevice: the created device
//   - error: an error if no adapter or device could be obtained
func NewWGPUDevice(options ...WGPUDeviceOption) (WGPUDevice, error) {
	runtime.LockOSThread()
	d := &wgpuDevice{
		mu:          &sync.Mutex{},
		presentMode: wgpu.PresentModeFifo,
		sampleCount: MSAAOff,
		clears:      make(map[*wgpuFramebuffer]clearValue),
	}
	for _, opt := range options {
		opt(d)
	}
	for i := range d.resources {
		d.resources[i] = make(map[int]boundResource)
	}

	d.instance = wgpu.CreateInstance(nil)
	if d.surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(d.surfaceDescriptor)
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
		PowerPreference:      wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	d.adapter = a

	// Every resource category owns a bind group, so the default limit of 4 groups is raised.
	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 8

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "oxy device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	common.Logger().Info("wgpu device created",
		slog.Bool("surface", d.surface != nil),
		slog.Int("msaa", int(d.sampleCount)),
	)
	return d, nil
}

func (d *wgpuDevice) id() uint64 {
	return d.nextID.Add(1)
}

func (d *wgpuDevice) Version() string {
	return "WebGPU WGSL"
}

func (d *wgpuDevice) ConfigureSurface(width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.surface == nil {
		return errors.New("device has no surface")
	}
	d.endPassLocked()
	d.releaseFrameLocked()

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat = capabilities.Formats[0]
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	fb := d.surfaceFB
	if fb == nil {
		fb = &wgpuFramebuffer{id: d.id(), surface: true}
		d.surfaceFB = fb
	}
	fb.Release()
	fb.width, fb.height = width, height
	fb.samples = uint32(d.sampleCount)
	fb.resolve = nil

	color := &wgpuTexture{
		id:        d.id(),
		dimension: gpu.Dimension2D,
		format:    fromTextureFormat(d.surfaceFormat),
		native:    d.surfaceFormat,
		samples:   fb.samples,
		borrowed:  true,
	}
	if fb.samples > 1 {
		// The pass draws into the MSAA texture and resolves into the swapchain view.
		msaa, err := d.createAttachmentLocked("msaa color", width, height, d.surfaceFormat, fb.samples, wgpu.TextureUsageRenderAttachment)
		if err != nil {
			return err
		}
		color = msaa
		color.format = fromTextureFormat(d.surfaceFormat)
		fb.resolve = []*wgpu.TextureView{nil}
	}
	fb.colors = []*wgpuTexture{color}

	depth, err := d.createAttachmentLocked("surface depth", width, height, wgpu.TextureFormatDepth24Plus, fb.samples, wgpu.TextureUsageRenderAttachment)
	if err != nil {
		return err
	}
	depth.format = gpu.FormatDepth24Plus
	fb.depth = depth

	common.Logger().Debug("surface configured", slog.Int("width", width), slog.Int("height", height))
	return nil
}

func (d *wgpuDevice) SetPresentMode(mode PresentMode) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		d.presentMode = wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		d.presentMode = wgpu.PresentModeFifo
	}
}

func (d *wgpuDevice) SurfaceFormat() gpu.TextureFormat {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fromTextureFormat(d.surfaceFormat)
}

func (d *wgpuDevice) SurfaceFramebuffer() gpu.Framebuffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.surfaceFB == nil {
		return nil
	}
	return d.surfaceFB
}

func (d *wgpuDevice) Present() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.flushLocked()
	if d.frameSurface != nil {
		d.surface.Present()
	}
	d.releaseFrameLocked()
	return err
}

func (d *wgpuDevice) NewBuffer(desc gpu.BufferDesc) (gpu.Buffer, error) {
	if desc.Size < 0 || len(desc.Data) > desc.Size {
		return nil, fmt.Errorf("buffer %q: %d bytes of data do not fit size %d", desc.Label, len(desc.Data), desc.Size)
	}

	d.mu.Lock()
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  uint64(max(align4(desc.Size), 4)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageIndex | wgpu.BufferUsageUniform |
			wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("buffer %q: %w", desc.Label, err)
	}

	b := &wgpuBuffer{
		id:     d.id(),
		owner:  d,
		buffer: buf,
		size:   desc.Size,
		mirror: make([]byte, max(align4(desc.Size), 4)),
	}
	if len(desc.Data) > 0 {
		if err := b.Upload(0, desc.Data); err != nil {
			b.Release()
			return nil, err
		}
	}
	return b, nil
}

func (d *wgpuDevice) NewShaderModule(desc gpu.ShaderModuleDesc) (gpu.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Source,
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuShaderModule{module: m, stage: desc.Stage, entryPoint: desc.EntryPoint}, nil
}

func (d *wgpuDevice) NewProgram(desc gpu.ProgramDesc) (gpu.Program, error) {
	vs, ok := desc.Vertex.(*wgpuShaderModule)
	if !ok || vs.module == nil {
		return nil, fmt.Errorf("program %q: vertex module was not created by this device", desc.Label)
	}
	fs, ok := desc.Fragment.(*wgpuShaderModule)
	if !ok || fs.module == nil {
		return nil, fmt.Errorf("program %q: fragment module was not created by this device", desc.Label)
	}

	groupCount := 0
	for _, g := range desc.Groups {
		groupCount = max(groupCount, g.Group+1)
	}
	groups := make([][]gpu.LayoutEntry, groupCount)
	for _, g := range desc.Groups {
		groups[g.Group] = append(groups[g.Group], g.Entries...)
	}

	colorFormats := make([]wgpu.TextureFormat, len(desc.ColorFormats))
	for i, f := range desc.ColorFormats {
		wf, err := toTextureFormat(f)
		if err != nil {
			return nil, fmt.Errorf("program %q: output %d: %w", desc.Label, i, err)
		}
		colorFormats[i] = wf
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p := &wgpuProgram{
		id:           d.id(),
		label:        desc.Label,
		vertex:       vs,
		fragment:     fs,
		groups:       groups,
		groupLayouts: make([]*wgpu.BindGroupLayout, 0, groupCount),
		colorFormats: colorFormats,
		pipelines:    make(map[pipelineKey]*wgpu.RenderPipeline),
	}
	for g, entries := range groups {
		wgpuEntries := make([]wgpu.BindGroupLayoutEntry, len(entries))
		for i, e := range entries {
			entry, err := toLayoutEntry(e)
			if err != nil {
				p.Release()
				return nil, fmt.Errorf("program %q: group %d binding %d: %w", desc.Label, g, e.Binding, err)
			}
			wgpuEntries[i] = entry
		}
		layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", desc.Label, g),
			Entries: wgpuEntries,
		})
		if err != nil {
			p.Release()
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		p.groupLayouts = append(p.groupLayouts, layout)
	}

	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: p.groupLayouts,
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("program %q: %w", desc.Label, err)
	}
	p.layout = layout
	return p, nil
}

func (d *wgpuDevice) NewSampler(label string, state pipeline.SamplerState) (gpu.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.device.CreateSampler(toSamplerDescriptor(label, state))
	if err != nil {
		return nil, fmt.Errorf("sampler %q: %w", label, err)
	}
	return &wgpuSampler{id: d.id(), sampler: s}, nil
}

func (d *wgpuDevice) NewTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	format, err := toTextureFormat(desc.Format)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", desc.Label, err)
	}
	dim, viewDim, minLayers := textureDimension(desc.Dimension)
	width := common.Coalesce(desc.Data.Width, 1)
	height := common.Coalesce(desc.Data.Height, 1)
	layers := max(desc.Data.LayerCount(), minLayers)

	d.mu.Lock()
	defer d.mu.Unlock()

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     toTextureUsage(desc.Usage),
		Dimension: dim,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: layers,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", desc.Label, err)
	}

	if len(desc.Data.Pixels) > 0 {
		extent := wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: layers}
		d.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			desc.Data.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  width * uint32(desc.Format.TexelSize()),
				RowsPerImage: height,
			},
			&extent,
		)
	}

	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           desc.Label,
		Format:          format,
		Dimension:       viewDim,
		MipLevelCount:   1,
		ArrayLayerCount: viewLayers(dim, layers),
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("texture %q: %w", desc.Label, err)
	}
	return &wgpuTexture{
		id:        d.id(),
		texture:   tex,
		view:      view,
		dimension: desc.Dimension,
		format:    desc.Format,
		native:    format,
		samples:   1,
	}, nil
}

// viewLayers returns the array layer count of a view. 3D textures store depth, not layers.
func viewLayers(dim wgpu.TextureDimension, layers uint32) uint32 {
	if dim == wgpu.TextureDimension3D {
		return 1
	}
	return layers
}

func (d *wgpuDevice) NewFramebuffer(desc gpu.FramebufferDesc) (gpu.Framebuffer, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("framebuffer %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	fb := &wgpuFramebuffer{id: d.id(), width: desc.Width, height: desc.Height, samples: 1}
	usage := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	for i, f := range desc.Colors {
		format, err := toTextureFormat(f)
		if err != nil {
			fb.Release()
			return nil, fmt.Errorf("framebuffer %q: color %d: %w", desc.Label, i, err)
		}
		color, err := d.createAttachmentLocked(fmt.Sprintf("%s color %d", desc.Label, i), desc.Width, desc.Height, format, 1, usage)
		if err != nil {
			fb.Release()
			return nil, err
		}
		color.format = f
		fb.colors = append(fb.colors, color)
	}
	if desc.Depth.IsDepth() {
		format, err := toTextureFormat(desc.Depth)
		if err != nil {
			fb.Release()
			return nil, fmt.Errorf("framebuffer %q: depth: %w", desc.Label, err)
		}
		depth, err := d.createAttachmentLocked(desc.Label+" depth", desc.Width, desc.Height, format, 1, usage)
		if err != nil {
			fb.Release()
			return nil, err
		}
		depth.format = desc.Depth
		fb.depth = depth
	}
	return fb, nil
}

// createAttachmentLocked creates a 2D render attachment and its view.
func (d *wgpuDevice) createAttachmentLocked(label string, width, height int, format wgpu.TextureFormat, samples uint32, usage wgpu.TextureUsage) (*wgpuTexture, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s texture: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create %s view: %w", label, err)
	}
	return &wgpuTexture{
		id:        d.id(),
		texture:   tex,
		view:      view,
		dimension: gpu.Dimension2D,
		native:    format,
		samples:   samples,
	}, nil
}

func (d *wgpuDevice) NewVertexFetch(desc gpu.VertexFetchDesc) (gpu.VertexFetch, error) {
	f := &wgpuVertexFetch{id: d.id()}
	signature := make([]string, 0, len(desc.Attributes))
	for _, a := range desc.Attributes {
		buf := asBuffer(a.Buffer)
		if buf == nil {
			return nil, fmt.Errorf("vertex fetch %q: location %d has no buffer of this device", desc.Label, a.Location)
		}
		if a.Offset%4 != 0 {
			return nil, fmt.Errorf("vertex fetch %q: location %d offset %d is not 4-byte aligned", desc.Label, a.Location, a.Offset)
		}
		format, err := toVertexFormat(a.Type, a.Normalized)
		if err != nil {
			return nil, fmt.Errorf("vertex fetch %q: location %d: %w", desc.Label, a.Location, err)
		}
		stride := uint64(common.Coalesce(a.Stride, a.Type.PackedSize()))
		f.slots = append(f.slots, fetchSlot{
			buffer: buf,
			offset: uint64(a.Offset),
			layout: wgpu.VertexBufferLayout{
				ArrayStride: stride,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{{
					Format:         format,
					Offset:         0,
					ShaderLocation: uint32(a.Location),
				}},
			},
		})
		signature = append(signature, fmt.Sprintf("%d:%d:%d", a.Location, format, stride))
	}

	f.index = asBuffer(desc.Index)
	if f.index == nil {
		return nil, fmt.Errorf("vertex fetch %q: no index buffer of this device", desc.Label)
	}
	indexFormat, err := toIndexFormat(desc.IndexType)
	if err != nil {
		return nil, fmt.Errorf("vertex fetch %q: %w", desc.Label, err)
	}
	f.indexFormat = indexFormat
	f.signature = strings.Join(signature, ",")
	return f, nil
}

func asBuffer(b gpu.Buffer) *wgpuBuffer {
	buf, _ := b.(*wgpuBuffer)
	return buf
}

func asTexture(t gpu.Texture) *wgpuTexture {
	tex, _ := t.(*wgpuTexture)
	return tex
}

func (d *wgpuDevice) BindRasterizerState(state pipeline.RasterizerState, offset pipeline.PolygonOffset) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.raster, d.offset = state, offset
}

func (d *wgpuDevice) BindDepthStencilState(state pipeline.DepthStencilState, ref pipeline.StencilReference) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.depthStencil, d.stencilRef = state, ref
}

func (d *wgpuDevice) BindBlendState(state pipeline.BlendState, factor [4]float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blend, d.blendFactor = state, factor
}

func (d *wgpuDevice) BindFramebuffer(fb gpu.Framebuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.framebuffer, _ = fb.(*wgpuFramebuffer)
}

func (d *wgpuDevice) Clear(fb gpu.Framebuffer, color [4]float32, depth float32, stencil uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	target, ok := fb.(*wgpuFramebuffer)
	if !ok {
		return
	}
	if d.passTarget == target {
		d.endPassLocked()
	}
	d.clears[target] = clearValue{color: color, depth: depth, stencil: stencil}
}

func (d *wgpuDevice) BindProgram(p gpu.Program) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.program, _ = p.(*wgpuProgram)
}

func (d *wgpuDevice) bindLocked(group, binding int, r boundResource) {
	d.resources[group][binding] = r
}

func (d *wgpuDevice) BindUniformBuffer(index int, buf gpu.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindLocked(gpu.GroupUniformBuffers, index, boundResource{buffer: asBuffer(buf)})
}

func (d *wgpuDevice) BindStorageBuffer(index int, buf gpu.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindLocked(gpu.GroupStorageBuffers, index, boundResource{buffer: asBuffer(buf)})
}

func (d *wgpuDevice) BindAtomicCounterBuffer(index int, buf gpu.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindLocked(gpu.GroupAtomicCounters, index, boundResource{buffer: asBuffer(buf)})
}

func (d *wgpuDevice) BindTexture(unit int, tex gpu.Texture, sampler gpu.Sampler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, _ := sampler.(*wgpuSampler)
	d.bindLocked(gpu.GroupTextures, unit, boundResource{texture: asTexture(tex)})
	d.bindLocked(gpu.GroupSamplers, unit, boundResource{sampler: s})
}

// BindImageTexture binds the texture's default view. Access and format are fixed by the program's layout.
func (d *wgpuDevice) BindImageTexture(unit int, tex gpu.Texture, _ gpu.Access, _ gpu.TextureFormat) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindLocked(gpu.GroupImages, unit, boundResource{texture: asTexture(tex)})
}

func (d *wgpuDevice) BindDefaultUniforms(buf gpu.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindLocked(gpu.GroupDefaultUniforms, 0, boundResource{buffer: asBuffer(buf)})
}

func (d *wgpuDevice) BindVertexFetch(f gpu.VertexFetch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fetch, _ = f.(*wgpuVertexFetch)
}

func (d *wgpuDevice) DrawElements(topology gpu.Topology, count int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.program == nil || d.program.layout == nil:
		return errors.New("draw without a bound program")
	case d.fetch == nil:
		return errors.New("draw without a bound vertex fetch")
	case d.framebuffer == nil:
		return errors.New("draw without a bound framebuffer")
	}
	if count <= 0 {
		return nil
	}

	rp, err := d.renderPipelineLocked(topology)
	if err != nil {
		return err
	}
	groups, err := d.bindGroupsLocked()
	if err != nil {
		return err
	}
	pass, err := d.passLocked(d.framebuffer)
	if err != nil {
		return err
	}

	pass.SetPipeline(rp)
	for i, g := range groups {
		pass.SetBindGroup(uint32(i), g, nil)
	}
	for i, s := range d.fetch.slots {
		if s.buffer.buffer == nil {
			return fmt.Errorf("vertex buffer %d was released", s.buffer.id)
		}
		pass.SetVertexBuffer(uint32(i), s.buffer.buffer, s.offset, wgpu.WholeSize)
	}
	if d.fetch.index.buffer == nil {
		return fmt.Errorf("index buffer %d was released", d.fetch.index.id)
	}
	pass.SetIndexBuffer(d.fetch.index.buffer, d.fetch.indexFormat, 0, wgpu.WholeSize)
	pass.SetBlendConstant(&wgpu.Color{
		R: float64(d.blendFactor[0]),
		G: float64(d.blendFactor[1]),
		B: float64(d.blendFactor[2]),
		A: float64(d.blendFactor[3]),
	})
	// WebGPU has a single stencil reference for both facings.
	pass.SetStencilReference(d.stencilRef.Front)
	pass.DrawIndexed(uint32(count), 1, 0, 0, 0)
	return nil
}

// renderPipelineLocked returns the pipeline for the current program, states, framebuffer and fetch,
// creating it on first use.
func (d *wgpuDevice) renderPipelineLocked(topology gpu.Topology) (*wgpu.RenderPipeline, error) {
	p, fb, fetch := d.program, d.framebuffer, d.fetch

	targets := fb.colorFormats()
	if len(p.colorFormats) > 0 && !slices.Equal(p.colorFormats, targets) {
		return nil, fmt.Errorf("program %q writes %d outputs that do not match the %d attachments of the bound framebuffer", p.label, len(p.colorFormats), len(targets))
	}
	if d.depthStencil.UsesDepth() && fb.depth == nil {
		return nil, fmt.Errorf("program %q: depth-stencil state needs a depth attachment", p.label)
	}

	colorNames := make([]string, len(targets))
	for i, t := range targets {
		colorNames[i] = fmt.Sprint(uint32(t))
	}
	key := pipelineKey{
		topology:     topology,
		raster:       d.raster,
		offset:       d.offset,
		depthTest:    d.depthStencil.DepthTest,
		depthWrite:   d.depthStencil.DepthWrite,
		depthCompare: d.depthStencil.DepthCompare,
		hasStencil:   d.depthStencil.Stencil != nil,
		blend:        d.blend,
		colors:       strings.Join(colorNames, ","),
		depth:        fb.depthFormat(),
		samples:      fb.samples,
		fetch:        fetch.signature,
	}
	if d.depthStencil.Stencil != nil {
		key.stencil = *d.depthStencil.Stencil
	}
	if rp, ok := p.pipelines[key]; ok {
		return rp, nil
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.label + " Render Pipeline",
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     p.vertex.module,
			EntryPoint: p.vertex.entryPoint,
			Buffers:    fetch.bufferLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.fragment.module,
			EntryPoint: p.fragment.entryPoint,
			Targets:    toColorTargets(targets, d.blend),
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  toTopology(topology),
			FrontFace: toFrontFace(d.raster.FrontFace),
			CullMode:  toCullMode(d.raster.CullMode),
		},
		Multisample: wgpu.MultisampleState{
			Count: fb.samples,
			Mask:  0xFFFFFFFF,
		},
	}
	if isStrip(topology) {
		desc.Primitive.StripIndexFormat = fetch.indexFormat
	}
	if fb.depth != nil {
		desc.DepthStencil = toDepthStencilState(fb.depth.native, d.depthStencil, d.offset)
	}

	rp, err := d.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", p.label, err)
	}
	p.pipelines[key] = rp
	common.Logger().Debug("render pipeline created", slog.String("program", p.label), slog.Int("cached", len(p.pipelines)))
	return rp, nil
}

// bindGroupsLocked creates one bind group per resource group of the current program from the bound
// resources. The groups live until the next submission.
func (d *wgpuDevice) bindGroupsLocked() ([]*wgpu.BindGroup, error) {
	p := d.program
	groups := make([]*wgpu.BindGroup, len(p.groups))
	for g, entries := range p.groups {
		wgpuEntries := make([]wgpu.BindGroupEntry, len(entries))
		for i, e := range entries {
			r := d.resources[g][e.Binding]
			entry := wgpu.BindGroupEntry{Binding: uint32(e.Binding)}
			switch e.Type {
			case gpu.ResourceUniformBuffer, gpu.ResourceStorageBuffer, gpu.ResourceReadOnlyStorageBuffer:
				if r.buffer == nil || r.buffer.buffer == nil {
					return nil, fmt.Errorf("program %q: no buffer bound at group %d binding %d", p.label, g, e.Binding)
				}
				entry.Buffer = r.buffer.buffer
				entry.Size = wgpu.WholeSize
			case gpu.ResourceSampler, gpu.ResourceComparisonSampler:
				if r.sampler == nil || r.sampler.sampler == nil {
					return nil, fmt.Errorf("program %q: no sampler bound at group %d binding %d", p.label, g, e.Binding)
				}
				entry.Sampler = r.sampler.sampler
			default:
				if r.texture == nil || r.texture.view == nil {
					return nil, fmt.Errorf("program %q: no texture bound at group %d binding %d", p.label, g, e.Binding)
				}
				entry.TextureView = r.texture.view
			}
			wgpuEntries[i] = entry
		}
		bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s group %d", p.label, g),
			Layout:  p.groupLayouts[g],
			Entries: wgpuEntries,
		})
		if err != nil {
			return nil, fmt.Errorf("program %q: group %d: %w", p.label, g, err)
		}
		d.transient = append(d.transient, bg)
		groups[g] = bg
	}
	return groups, nil
}

// passLocked returns the open render pass on fb, beginning a new one if another target is open.
// A pending clear of fb becomes the load operation of the new pass.
func (d *wgpuDevice) passLocked(fb *wgpuFramebuffer) (*wgpu.RenderPassEncoder, error) {
	if d.pass != nil && d.passTarget == fb {
		return d.pass, nil
	}
	d.endPassLocked()

	if d.encoder == nil {
		encoder, err := d.device.CreateCommandEncoder(nil)
		if err != nil {
			return nil, err
		}
		d.encoder = encoder
	}
	if fb.surface {
		if err := d.acquireLocked(); err != nil {
			return nil, err
		}
	}

	clear, clearing := d.clears[fb]
	delete(d.clears, fb)

	desc := &wgpu.RenderPassDescriptor{}
	for i, c := range fb.colors {
		attachment := wgpu.RenderPassColorAttachment{
			View:    c.view,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}
		if fb.samples > 1 {
			attachment.ResolveTarget = fb.resolve[i]
		}
		if clearing {
			attachment.LoadOp = wgpu.LoadOpClear
			attachment.ClearValue = wgpu.Color{
				R: float64(clear.color[0]),
				G: float64(clear.color[1]),
				B: float64(clear.color[2]),
				A: float64(clear.color[3]),
			}
		}
		desc.ColorAttachments = append(desc.ColorAttachments, attachment)
	}
	if fb.depth != nil {
		ds := &wgpu.RenderPassDepthStencilAttachment{
			View:            fb.depth.view,
			DepthLoadOp:     wgpu.LoadOpLoad,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		}
		if clearing {
			ds.DepthLoadOp = wgpu.LoadOpClear
			ds.DepthClearValue = clear.depth
		}
		if fb.depth.format.HasStencil() {
			ds.StencilLoadOp = wgpu.LoadOpLoad
			ds.StencilStoreOp = wgpu.StoreOpStore
			if clearing {
				ds.StencilLoadOp = wgpu.LoadOpClear
				ds.StencilClearValue = clear.stencil
			}
		}
		desc.DepthStencilAttachment = ds
	}

	d.pass = d.encoder.BeginRenderPass(desc)
	d.passTarget = fb
	return d.pass, nil
}

// acquireLocked acquires the swapchain image of this frame once.
func (d *wgpuDevice) acquireLocked() error {
	if d.frameSurface != nil {
		return nil
	}
	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	d.frameSurface, d.frameView = surfaceTexture, view

	if d.surfaceFB.samples > 1 {
		d.surfaceFB.resolve[0] = view
	} else {
		d.surfaceFB.colors[0].view = view
	}
	return nil
}

func (d *wgpuDevice) releaseFrameLocked() {
	if d.frameView != nil {
		d.frameView.Release()
		d.frameView = nil
	}
	if d.frameSurface != nil {
		d.frameSurface.Release()
		d.frameSurface = nil
	}
	if fb := d.surfaceFB; fb != nil {
		if fb.samples > 1 && len(fb.resolve) > 0 {
			fb.resolve[0] = nil
		} else if len(fb.colors) > 0 {
			fb.colors[0].view = nil
		}
	}
}

func (d *wgpuDevice) endPassLocked() {
	if d.pass == nil {
		return
	}
	d.pass.End()
	d.pass.Release()
	d.pass = nil
	d.passTarget = nil
}

func (d *wgpuDevice) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushLocked()
}

// flushLocked executes pending clears, ends the open pass and submits the command encoder.
func (d *wgpuDevice) flushLocked() error {
	for fb := range d.clears {
		if _, err := d.passLocked(fb); err != nil {
			return err
		}
	}
	d.endPassLocked()
	defer d.releaseTransientLocked()

	if d.encoder == nil {
		return nil
	}
	encoder := d.encoder
	d.encoder = nil
	defer encoder.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer commandBuffer.Release()
	d.queue.Submit(commandBuffer)
	return nil
}

func (d *wgpuDevice) releaseTransientLocked() {
	for _, bg := range d.transient {
		bg.Release()
	}
	d.transient = d.transient[:0]
}

// readBackLocked copies the start of src into data through a mappable staging buffer.
func (d *wgpuDevice) readBackLocked(src *wgpu.Buffer, data []byte) error {
	size := uint64(align4(len(data)))
	staging, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "oxy readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	defer staging.Release()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer commandBuffer.Release()
	d.queue.Submit(commandBuffer)

	var status wgpu.BufferMapAsyncStatus
	if err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	}); err != nil {
		return err
	}
	d.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return fmt.Errorf("buffer readback failed: status %d", status)
	}
	copy(data, staging.GetMappedRange(0, uint(size)))
	staging.Unmap()
	return nil
}

func (d *wgpuDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pass != nil {
		d.endPassLocked()
	}
	if d.encoder != nil {
		d.encoder.Release()
		d.encoder = nil
	}
	d.releaseTransientLocked()
	d.releaseFrameLocked()
	if d.surfaceFB != nil {
		d.surfaceFB.Release()
		d.surfaceFB = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
	common.Logger().Info("wgpu device released")
}
