package gputest

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/pipeline"
)

func name(kind string, id int, label string) string {
	if label != "" {
		return label
	}
	return fmt.Sprintf("%s#%d", kind, id)
}

// Buffer is an in-memory gpu.Buffer.
type Buffer struct {
	ID    int
	Label string
	Usage gpu.Usage

	mu       sync.Mutex
	data     []byte
	released bool
}

func (b *Buffer) String() string { return name("buffer", b.ID, b.Label) }

func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

func (b *Buffer) Upload(offset int, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return fmt.Errorf("upload to released buffer %s", name("buffer", b.ID, b.Label))
	}
	if offset < 0 || offset+len(data) > len(b.data) {
		return fmt.Errorf("upload of %d bytes at %d exceeds buffer size %d", len(data), offset, len(b.data))
	}
	copy(b.data[offset:], data)
	return nil
}

func (b *Buffer) Download(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(data) > len(b.data) {
		return fmt.Errorf("download of %d bytes exceeds buffer size %d", len(data), len(b.data))
	}
	copy(data, b.data)
	return nil
}

func (b *Buffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.released = true
}

// Released reports whether Release was called.
func (b *Buffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

// Bytes returns a copy of the buffer contents.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.data...)
}

// Module is a recorded gpu.ShaderModule.
type Module struct {
	ID       int
	Desc     gpu.ShaderModuleDesc
	Released bool
}

func (m *Module) String() string { return name("module", m.ID, m.Desc.Label) }
func (m *Module) Stage() gpu.Stage { return m.Desc.Stage }
func (m *Module) Release() { m.Released = true }

// Program is a recorded gpu.Program.
type Program struct {
	ID       int
	Desc     gpu.ProgramDesc
	Released bool
}

func (p *Program) String() string { return name("program", p.ID, p.Desc.Label) }
func (p *Program) Release() { p.Released = true }

// Sampler is a recorded gpu.Sampler.
type Sampler struct {
	ID       int
	Label    string
	State    pipeline.SamplerState
	Released bool
}

func (s *Sampler) String() string { return name("sampler", s.ID, s.Label) }
func (s *Sampler) Release() { s.Released = true }

// Texture is a recorded gpu.Texture.
type Texture struct {
	ID       int
	Desc     gpu.TextureDesc
	Released bool
}

func (t *Texture) String() string { return name("texture", t.ID, t.Desc.Label) }
func (t *Texture) Dimension() gpu.Dimension { return t.Desc.Dimension }
func (t *Texture) Format() gpu.TextureFormat { return t.Desc.Format }
func (t *Texture) Release() { t.Released = true }

// Framebuffer is a recorded gpu.Framebuffer.
type Framebuffer struct {
	ID       int
	Desc     gpu.FramebufferDesc
	Released bool

	colors []*Texture
}

func (f *Framebuffer) String() string { return name("framebuffer", f.ID, f.Desc.Label) }
func (f *Framebuffer) Width() int { return f.Desc.Width }
func (f *Framebuffer) Height() int { return f.Desc.Height }
func (f *Framebuffer) Release() { f.Released = true }

func (f *Framebuffer) ColorTexture(i int) gpu.Texture {
	if i < 0 || i >= len(f.colors) {
		return nil
	}
	return f.colors[i]
}

// VertexFetch is a recorded gpu.VertexFetch.
type VertexFetch struct {
	ID       int
	Desc     gpu.VertexFetchDesc
	Released bool
}

func (v *VertexFetch) String() string { return name("fetch", v.ID, v.Desc.Label) }
func (v *VertexFetch) Release() { v.Released = true }
