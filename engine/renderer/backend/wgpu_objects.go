package backend

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
)

// wgpuBuffer is a gpu.Buffer backed by a WebGPU buffer. A CPU mirror keeps unaligned uploads correct,
// since the queue only writes whole 4-byte words.
type wgpuBuffer struct {
	id     uint64
	owner  *wgpuDevice
	buffer *wgpu.Buffer
	size   int
	mirror []byte
}

var _ gpu.Buffer = &wgpuBuffer{}

func (b *wgpuBuffer) Size() int {
	return b.size
}

func (b *wgpuBuffer) Upload(offset int, data []byte) error {
	if b.buffer == nil {
		return fmt.Errorf("upload to released buffer %d", b.id)
	}
	if offset < 0 || offset+len(data) > b.size {
		return fmt.Errorf("upload of %d bytes at %d exceeds buffer size %d", len(data), offset, b.size)
	}
	if len(data) == 0 {
		return nil
	}
	copy(b.mirror[offset:], data)
	start := offset &^ 3
	end := align4(offset + len(data))

	b.owner.mu.Lock()
	defer b.owner.mu.Unlock()
	return b.owner.queue.WriteBuffer(b.buffer, uint64(start), b.mirror[start:end])
}

func (b *wgpuBuffer) Download(data []byte) error {
	if b.buffer == nil {
		return fmt.Errorf("download from released buffer %d", b.id)
	}
	if len(data) > b.size {
		return fmt.Errorf("download of %d bytes exceeds buffer size %d", len(data), b.size)
	}
	if len(data) == 0 {
		return nil
	}

	b.owner.mu.Lock()
	defer b.owner.mu.Unlock()
	if err := b.owner.flushLocked(); err != nil {
		return err
	}
	return b.owner.readBackLocked(b.buffer, data)
}

func (b *wgpuBuffer) Release() {
	if b.buffer == nil {
		return
	}
	b.buffer.Release()
	b.buffer = nil
}

// wgpuShaderModule is a created WebGPU shader module plus the entry point the pipeline calls.
type wgpuShaderModule struct {
	module     *wgpu.ShaderModule
	stage      gpu.Stage
	entryPoint string
}

var _ gpu.ShaderModule = &wgpuShaderModule{}

func (m *wgpuShaderModule) Stage() gpu.Stage {
	return m.stage
}

func (m *wgpuShaderModule) Release() {
	if m.module != nil {
		m.module.Release()
		m.module = nil
	}
}

// wgpuProgram holds the pipeline layout of a linked program. Render pipelines depend on the bound
// states and vertex fetch, so they are created on first draw and cached per pipelineKey.
type wgpuProgram struct {
	id           uint64
	label        string
	vertex       *wgpuShaderModule
	fragment     *wgpuShaderModule
	groups       [][]gpu.LayoutEntry
	groupLayouts []*wgpu.BindGroupLayout
	layout       *wgpu.PipelineLayout
	colorFormats []wgpu.TextureFormat
	pipelines    map[pipelineKey]*wgpu.RenderPipeline
}

var _ gpu.Program = &wgpuProgram{}

func (p *wgpuProgram) Release() {
	for key, rp := range p.pipelines {
		rp.Release()
		delete(p.pipelines, key)
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	for i, l := range p.groupLayouts {
		l.Release()
		p.groupLayouts[i] = nil
	}
	p.groupLayouts = nil
}

type wgpuSampler struct {
	id      uint64
	sampler *wgpu.Sampler
}

var _ gpu.Sampler = &wgpuSampler{}

func (s *wgpuSampler) Release() {
	if s.sampler != nil {
		s.sampler.Release()
		s.sampler = nil
	}
}

// wgpuTexture is a texture and the default view matching its engine dimension.
type wgpuTexture struct {
	id        uint64
	texture   *wgpu.Texture
	view      *wgpu.TextureView
	dimension gpu.Dimension
	format    gpu.TextureFormat
	native    wgpu.TextureFormat
	samples   uint32
	borrowed  bool
}

var _ gpu.Texture = &wgpuTexture{}

func (t *wgpuTexture) Dimension() gpu.Dimension {
	return t.dimension
}

func (t *wgpuTexture) Format() gpu.TextureFormat {
	return t.format
}

func (t *wgpuTexture) Release() {
	if t.borrowed {
		return
	}
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// wgpuFramebuffer is a set of render attachments. The surface framebuffer has a single color attachment
// whose view is acquired from the swapchain at the start of every frame.
type wgpuFramebuffer struct {
	id      uint64
	width   int
	height  int
	samples uint32
	colors  []*wgpuTexture
	// resolve holds the single-sample targets multisampled colors resolve into.
	resolve []*wgpu.TextureView
	depth   *wgpuTexture
	surface bool
}

var _ gpu.Framebuffer = &wgpuFramebuffer{}

func (f *wgpuFramebuffer) Width() int {
	return f.width
}

func (f *wgpuFramebuffer) Height() int {
	return f.height
}

func (f *wgpuFramebuffer) ColorTexture(i int) gpu.Texture {
	if f.surface || f.samples > 1 || i < 0 || i >= len(f.colors) {
		return nil
	}
	return f.colors[i]
}

func (f *wgpuFramebuffer) Release() {
	for _, c := range f.colors {
		c.Release()
	}
	f.colors = nil
	if f.depth != nil {
		f.depth.Release()
		f.depth = nil
	}
}

// colorFormats returns the native formats of the color attachments.
func (f *wgpuFramebuffer) colorFormats() []wgpu.TextureFormat {
	formats := make([]wgpu.TextureFormat, len(f.colors))
	for i, c := range f.colors {
		formats[i] = c.native
	}
	return formats
}

// depthFormat returns the native depth format, TextureFormatUndefined without a depth attachment.
func (f *wgpuFramebuffer) depthFormat() wgpu.TextureFormat {
	if f.depth == nil {
		return wgpu.TextureFormatUndefined
	}
	return f.depth.native
}

// fetchSlot is one vertex buffer slot of a vertex fetch. Every attribute gets its own slot so attributes
// may come from distinct buffers with distinct strides.
type fetchSlot struct {
	buffer *wgpuBuffer
	offset uint64
	layout wgpu.VertexBufferLayout
}

type wgpuVertexFetch struct {
	id          uint64
	slots       []fetchSlot
	index       *wgpuBuffer
	indexFormat wgpu.IndexFormat
	// signature identifies the vertex buffer layouts for pipeline caching.
	signature string
}

var _ gpu.VertexFetch = &wgpuVertexFetch{}

func (f *wgpuVertexFetch) Release() {
	f.slots = nil
	f.index = nil
}

func (f *wgpuVertexFetch) bufferLayouts() []wgpu.VertexBufferLayout {
	layouts := make([]wgpu.VertexBufferLayout, len(f.slots))
	for i, s := range f.slots {
		layouts[i] = s.layout
	}
	return layouts
}
