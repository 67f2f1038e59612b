package shader

import (
	"fmt"
	"strings"
	"sync/atomic"
	"weak"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
)

// nextProgramID hands out program identities.
var nextProgramID atomic.Uint64

// program is the implementation of the Program interface.
type program struct {
	id      uint64
	ctx     *gpu.Context
	label   string
	shaders []Shader

	linked  bool
	handle  gpu.Program
	modules []gpu.ShaderModule

	attributes           []AttributeBinding
	outputs              []OutputBinding
	uniformBuffers       []BufferBinding
	storageBuffers       []BufferBinding
	atomicCounterBuffers []BufferBinding
	textures             []TextureBinding
	images               []ImageBinding
	uniforms             []UniformBinding

	// block backs the default uniform block, shadow is its CPU copy.
	block   gpu.Buffer
	shadow  []byte
	dirty   bool
	setters []func()
}

// Program links one vertex and one fragment shader and exposes the binding tables of the linked result.
// A program is used from the rendering thread only.
type Program interface {
	// ID returns the process-unique identity of the program.
	ID() uint64

	// Label returns the debug label of the program.
	Label() string

	// Link assigns every declared resource its binding from its position in pack, creates the device
	// program and introspects the result into binding tables.
	//
	// Parameters:
	//   - pack: the declared resource interface
	//
	// Returns:
	//   - error: a *LinkError aggregating every stage diagnostic, the program stays unlinked
	Link(pack ResourcePack) error

	// Linked reports whether Link succeeded.
	Linked() bool

	// Handle returns the device program, nil until linked.
	Handle() gpu.Program

	// Attributes returns the vertex attribute table ordered by location.
	Attributes() []AttributeBinding

	// Attribute looks up a vertex attribute by name.
	//
	// Parameters:
	//   - name: the attribute name
	//
	// Returns:
	//   - AttributeBinding: the attribute
	//   - bool: false if the linked program does not read the attribute
	Attribute(name string) (AttributeBinding, bool)

	// Outputs returns the fragment output table ordered by location.
	Outputs() []OutputBinding

	UniformBuffers() []BufferBinding
	StorageBuffers() []BufferBinding
	AtomicCounterBuffers() []BufferBinding
	Textures() []TextureBinding
	Images() []ImageBinding

	// Uniforms returns the members of the default uniform block.
	Uniforms() []UniformBinding

	// Uniform looks up a plain uniform by name.
	//
	// Parameters:
	//   - name: the uniform name
	//
	// Returns:
	//   - UniformBinding: the uniform
	//   - bool: false if the program has no such uniform
	Uniform(name string) (UniformBinding, bool)

	// SetUniform writes a plain uniform value into the default uniform block. It panics if the
	// program has no such uniform or the value type differs from the declared type.
	//
	// Parameters:
	//   - name: the uniform name
	//   - value: the new value
	SetUniform(name string, value common.Value)

	// AddUniformSetter registers a function run by every Bind, in registration order.
	//
	// Parameters:
	//   - fn: the setter
	AddUniformSetter(fn func())

	// Bind activates the program, runs the uniform setters, flushes the default uniform block and binds it.
	// It panics if the program is not linked.
	Bind()

	// Weak returns a weak reference to the program.
	Weak() WeakProgram

	// Release frees the device objects of the program.
	Release()
}

var _ Program = &program{}

// WeakProgram is a weak reference to a Program.
type WeakProgram struct {
	ptr weak.Pointer[program]
}

// Get returns the referenced program, or nil if it has been collected.
func (w WeakProgram) Get() Program {
	if p := w.ptr.Value(); p != nil {
		return p
	}
	return nil
}

// NewProgram creates an unlinked program from compiled shaders.
//
// Parameters:
//   - ctx: the rendering context
//   - label: a debug label
//   - shaders: exactly one vertex and one fragment shader, both compiled before Link
//
// Returns:
//   - Program: the new program
func NewProgram(ctx *gpu.Context, label string, shaders ...Shader) Program {
	return &program{
		id:      nextProgramID.Add(1),
		ctx:     ctx,
		label:   label,
		shaders: shaders,
	}
}

func (p *program) ID() uint64 {
	return p.id
}

func (p *program) Label() string {
	return p.label
}

func (p *program) Link(pack ResourcePack) error {
	if p.linked {
		return fmt.Errorf("program %q is already linked", p.label)
	}

	stages, diags := p.stageShaders()
	if len(diags) > 0 {
		return p.fail(diags)
	}

	locations := attributeLocations(pack)
	final := make(map[ShaderType]string, len(linkStages))
	for _, st := range linkStages {
		sh := stages[st]
		src := stripComments(sh.Source())
		edits, stageDiags := assignBindings(st, src, pack, locations)
		for _, d := range stageDiags {
			diags = append(diags, fmt.Sprintf("%s shader %q: %s", st, sh.Label(), d))
		}
		final[st] = applyEdits(src, edits)
	}
	if len(diags) > 0 {
		return p.fail(diags)
	}

	device := p.ctx.Device()
	modules := make([]gpu.ShaderModule, 0, len(linkStages))
	releaseModules := func() {
		for _, m := range modules {
			m.Release()
		}
	}
	for _, st := range linkStages {
		m, err := device.NewShaderModule(gpu.ShaderModuleDesc{
			Label:      p.label + " " + st.String(),
			Stage:      st.Stage(),
			Source:     final[st],
			EntryPoint: stages[st].EntryPoint(),
		})
		if err != nil {
			releaseModules()
			return p.fail([]string{fmt.Sprintf("%s shader %q: %v", st, stages[st].Label(), err)})
		}
		modules = append(modules, m)
	}

	colorFormats := make([]gpu.TextureFormat, len(pack.Outputs))
	for i, o := range pack.Outputs {
		colorFormats[i] = o.Format
	}
	handle, err := device.NewProgram(gpu.ProgramDesc{
		Label:        p.label,
		Vertex:       modules[0],
		Fragment:     modules[1],
		Groups:       buildGroupLayouts(final),
		ColorFormats: colorFormats,
	})
	if err != nil {
		releaseModules()
		return p.fail([]string{err.Error()})
	}

	p.introspect(final, pack)
	if blockSize := p.defaultBlockSize(final); blockSize > 0 {
		block, err := device.NewBuffer(gpu.BufferDesc{
			Label: p.label + " " + DefaultUniformBlock,
			Usage: gpu.UsageDynamicDraw,
			Size:  blockSize,
		})
		if err != nil {
			handle.Release()
			releaseModules()
			return p.fail([]string{err.Error()})
		}
		p.block = block
		p.shadow = make([]byte, blockSize)
		p.dirty = true
	}

	p.handle = handle
	p.modules = modules
	p.linked = true
	common.Logger().Debug("program linked", "program", p.label,
		"attributes", len(p.attributes), "outputs", len(p.outputs),
		"buffers", len(p.uniformBuffers)+len(p.storageBuffers)+len(p.atomicCounterBuffers),
		"textures", len(p.textures), "images", len(p.images), "uniforms", len(p.uniforms))
	return nil
}

// linkStages lists the stages a program links, in module order.
var linkStages = []ShaderType{ShaderTypeVertex, ShaderTypeFragment}

// stageShaders picks the shader of every stage, reporting missing, duplicate and uncompiled shaders.
func (p *program) stageShaders() (map[ShaderType]Shader, []string) {
	stages := make(map[ShaderType]Shader, len(linkStages))
	var diags []string
	for _, sh := range p.shaders {
		if _, dup := stages[sh.Type()]; dup {
			diags = append(diags, fmt.Sprintf("more than one %s shader attached", sh.Type()))
			continue
		}
		if !sh.Validated() {
			diags = append(diags, fmt.Sprintf("%s shader %q is not compiled", sh.Type(), sh.Label()))
		}
		stages[sh.Type()] = sh
	}
	for _, st := range linkStages {
		if _, ok := stages[st]; !ok {
			diags = append(diags, fmt.Sprintf("no %s shader attached", st))
		}
	}
	return stages, diags
}

func (p *program) fail(diags []string) error {
	err := &LinkError{Program: p.label, Log: strings.Join(diags, "\n")}
	common.Logger().Warn("program link failed", "program", p.label, "diagnostics", len(diags))
	return err
}

func (p *program) Linked() bool {
	return p.linked
}

func (p *program) Handle() gpu.Program {
	return p.handle
}

func (p *program) Attributes() []AttributeBinding {
	return p.attributes
}

func (p *program) Attribute(name string) (AttributeBinding, bool) {
	for _, a := range p.attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeBinding{}, false
}

func (p *program) Outputs() []OutputBinding {
	return p.outputs
}

func (p *program) UniformBuffers() []BufferBinding {
	return p.uniformBuffers
}

func (p *program) StorageBuffers() []BufferBinding {
	return p.storageBuffers
}

func (p *program) AtomicCounterBuffers() []BufferBinding {
	return p.atomicCounterBuffers
}

func (p *program) Textures() []TextureBinding {
	return p.textures
}

func (p *program) Images() []ImageBinding {
	return p.images
}

func (p *program) Uniforms() []UniformBinding {
	return p.uniforms
}

func (p *program) Uniform(name string) (UniformBinding, bool) {
	for _, u := range p.uniforms {
		if u.Name == name {
			return u, true
		}
	}
	return UniformBinding{}, false
}

func (p *program) SetUniform(name string, value common.Value) {
	u, ok := p.Uniform(name)
	if !ok {
		panic(fmt.Sprintf("shader: program %q has no uniform %q", p.label, name))
	}
	if value.Type() != u.Type {
		panic(fmt.Sprintf("shader: uniform %q of program %q is %s, got %s", name, p.label, u.Type, value.Type()))
	}
	copy(p.shadow[u.Offset:], value.Bytes())
	p.dirty = true
}

func (p *program) AddUniformSetter(fn func()) {
	p.setters = append(p.setters, fn)
}

func (p *program) Bind() {
	if !p.linked {
		panic(fmt.Sprintf("shader: program %q bound before a successful link", p.label))
	}
	device := p.ctx.Device()
	device.BindProgram(p.handle)
	for _, fn := range p.setters {
		fn()
	}
	if p.block == nil {
		return
	}
	if p.dirty {
		if err := p.block.Upload(0, p.shadow); err != nil {
			common.Logger().Error("default uniform upload failed", "program", p.label, "error", err)
		}
		p.dirty = false
	}
	device.BindDefaultUniforms(p.block)
}

func (p *program) Weak() WeakProgram {
	return WeakProgram{ptr: weak.Make(p)}
}

func (p *program) Release() {
	if p.block != nil {
		p.block.Release()
		p.block = nil
	}
	if p.handle != nil {
		p.handle.Release()
		p.handle = nil
	}
	for _, m := range p.modules {
		m.Release()
	}
	p.modules = nil
	p.linked = false
}
