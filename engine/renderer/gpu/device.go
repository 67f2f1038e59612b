package gpu

import (
	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/pipeline"
)

// Device is an immediate-mode GPU device. Bind calls update the current state, DrawElements consumes it.
// Implementations are not required to be safe for concurrent use; callers drive a device from one goroutine.
type Device interface {
	// Version returns the version string reported by the underlying API.
	//
	// Returns:
	//   - string: the API and adapter version
	Version() string

	// NewBuffer allocates a buffer of desc.Size bytes, initialized from desc.Data when it is non-empty.
	//
	// Parameters:
	//   - desc: the buffer descriptor
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: an error if the allocation fails
	NewBuffer(desc BufferDesc) (Buffer, error)

	// NewShaderModule creates a shader module from final shader source.
	//
	// Parameters:
	//   - desc: the module descriptor
	//
	// Returns:
	//   - ShaderModule: the created module
	//   - error: the device's diagnostic if the source is rejected
	NewShaderModule(desc ShaderModuleDesc) (ShaderModule, error)

	// NewProgram links shader modules together with their resource layout.
	//
	// Parameters:
	//   - desc: the program descriptor
	//
	// Returns:
	//   - Program: the created program
	//   - error: the device's diagnostic if linking fails
	NewProgram(desc ProgramDesc) (Program, error)

	// NewSampler creates a sampler object.
	//
	// Parameters:
	//   - label: a debug label
	//   - state: the sampler configuration
	//
	// Returns:
	//   - Sampler: the created sampler
	//   - error: an error if creation fails
	NewSampler(label string, state pipeline.SamplerState) (Sampler, error)

	// NewTexture creates a texture, uploading desc.Data when it is non-empty.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//
	// Returns:
	//   - Texture: the created texture
	//   - error: an error if creation fails
	NewTexture(desc TextureDesc) (Texture, error)

	// NewFramebuffer allocates a framebuffer with the described attachments.
	//
	// Parameters:
	//   - desc: the framebuffer descriptor
	//
	// Returns:
	//   - Framebuffer: the created framebuffer
	//   - error: an error if creation fails
	NewFramebuffer(desc FramebufferDesc) (Framebuffer, error)

	// NewVertexFetch creates a vertex fetch object mapping buffer regions to program attribute locations.
	//
	// Parameters:
	//   - desc: the vertex fetch descriptor
	//
	// Returns:
	//   - VertexFetch: the created vertex fetch
	//   - error: an error if creation fails
	NewVertexFetch(desc VertexFetchDesc) (VertexFetch, error)

	// BindRasterizerState makes the rasterizer state and polygon offset current.
	BindRasterizerState(state pipeline.RasterizerState, offset pipeline.PolygonOffset)

	// BindDepthStencilState makes the depth-stencil state and stencil references current.
	BindDepthStencilState(state pipeline.DepthStencilState, ref pipeline.StencilReference)

	// BindBlendState makes the blend state and blend factor current.
	BindBlendState(state pipeline.BlendState, factor [4]float32)

	// BindFramebuffer makes fb the current render target.
	BindFramebuffer(fb Framebuffer)

	// Clear clears every attachment of fb before the next draw into it.
	Clear(fb Framebuffer, color [4]float32, depth float32, stencil uint32)

	// BindProgram makes p the current program.
	BindProgram(p Program)

	// BindUniformBuffer binds buf to uniform-buffer binding index.
	BindUniformBuffer(index int, buf Buffer)

	// BindStorageBuffer binds buf to storage-buffer binding index.
	BindStorageBuffer(index int, buf Buffer)

	// BindAtomicCounterBuffer binds buf to atomic-counter binding index.
	BindAtomicCounterBuffer(index int, buf Buffer)

	// BindTexture binds tex and its sampler to texture unit.
	BindTexture(unit int, tex Texture, sampler Sampler)

	// BindImageTexture binds tex as a storage image to image unit.
	BindImageTexture(unit int, tex Texture, access Access, format TextureFormat)

	// BindDefaultUniforms binds the current program's default uniform block.
	BindDefaultUniforms(buf Buffer)

	// BindVertexFetch makes f the current vertex and index source.
	BindVertexFetch(f VertexFetch)

	// DrawElements issues an indexed draw using the current state.
	//
	// Parameters:
	//   - topology: the primitive topology
	//   - count: the number of indices to draw
	//
	// Returns:
	//   - error: an error if the current state is incomplete or rejected
	DrawElements(topology Topology, count int) error

	// Flush submits all recorded work to the GPU.
	//
	// Returns:
	//   - error: an error if submission fails
	Flush() error

	// Release destroys the device. Objects created from it must not be used afterwards.
	Release()
}

// Buffer is a device memory allocation.
type Buffer interface {
	// Size returns the byte size of the buffer.
	Size() int
	// Upload writes data at the byte offset.
	Upload(offset int, data []byte) error
	// Download reads len(data) bytes from the start of the buffer into data.
	Download(data []byte) error
	// Release frees the buffer.
	Release()
}

// ShaderModule is a created, stage-specific shader module.
type ShaderModule interface {
	Stage() Stage
	Release()
}

// Program is a linked set of shader modules plus their resource layout.
type Program interface {
	Release()
}

// Sampler is a created sampler object.
type Sampler interface {
	Release()
}

// Texture is a created texture.
type Texture interface {
	Dimension() Dimension
	Format() TextureFormat
	Release()
}

// Framebuffer is a render target with color and optional depth-stencil attachments.
type Framebuffer interface {
	Width() int
	Height() int
	// ColorTexture returns the texture of color attachment i, or nil if it is not sampleable.
	ColorTexture(i int) Texture
	Release()
}

// VertexFetch maps vertex buffer regions and an index buffer to a program's attribute locations.
type VertexFetch interface {
	Release()
}

// BufferDesc describes a buffer allocation.
type BufferDesc struct {
	Label string
	Usage Usage
	Size  int
	Data  []byte
}

// ShaderModuleDesc describes a shader module.
type ShaderModuleDesc struct {
	Label      string
	Stage      Stage
	Source     string
	EntryPoint string
}

// ResourceType is the category of a program resource binding.
type ResourceType int

const (
	ResourceUniformBuffer ResourceType = iota
	ResourceStorageBuffer
	ResourceReadOnlyStorageBuffer
	ResourceSampledTexture
	ResourceDepthTexture
	ResourceSampler
	ResourceComparisonSampler
	ResourceStorageTexture
)

// SampleType is the component type returned when sampling a texture.
type SampleType string

const (
	SampleFloat SampleType = "float"
	SampleSint  SampleType = "sint"
	SampleUint  SampleType = "uint"
	SampleDepth SampleType = "depth"
)

// LayoutEntry describes one binding within a resource group.
type LayoutEntry struct {
	Binding      int
	Type         ResourceType
	Visibility   Stage
	Dimension    Dimension
	SampleType   SampleType
	Multisampled bool
	Format       TextureFormat
	Access       Access
	MinSize      int
}

// GroupLayout describes every binding of one resource group.
type GroupLayout struct {
	Group   int
	Entries []LayoutEntry
}

// ProgramDesc describes a program to link.
type ProgramDesc struct {
	Label    string
	Vertex   ShaderModule
	Fragment ShaderModule
	Groups   []GroupLayout
	// ColorFormats lists the color attachment formats the fragment outputs are written to, by location.
	ColorFormats []TextureFormat
}

// TextureUsage is a set of texture usage flags.
type TextureUsage int

const (
	TextureSampled TextureUsage = 1 << iota
	TextureStorage
	TextureRenderTarget
)

// TextureDesc describes a texture.
type TextureDesc struct {
	Label     string
	Dimension Dimension
	Format    TextureFormat
	Usage     TextureUsage
	Data      common.TextureStagingData
}

// FramebufferDesc describes a framebuffer. A FormatUndefined depth format means no depth attachment.
type FramebufferDesc struct {
	Label  string
	Width  int
	Height int
	Colors []TextureFormat
	Depth  TextureFormat
}

// VertexAttribute maps a region of a buffer to one attribute location.
// Matrix data is described as one attribute per column.
type VertexAttribute struct {
	Buffer     Buffer
	Offset     int
	Stride     int
	Type       common.ElementType
	Normalized bool
	Location   int
}

// VertexFetchDesc describes a vertex fetch object.
type VertexFetchDesc struct {
	Label      string
	Program    Program
	Attributes []VertexAttribute
	Index      Buffer
	IndexType  common.ElementType
}
