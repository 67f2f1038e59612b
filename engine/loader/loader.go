// Package loader reads technique descriptions from YAML or TOML files into technique building nodes.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/framebuffer"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/technique"
)

// Library holds the technique building nodes of one description.
type Library struct {
	// Nodes maps technique names to their building nodes. Includes are already linked.
	Nodes map[string]*technique.BuildingInformation
	// Order lists the technique names in declaration order.
	Order []string
}

// Get returns the node declared under name.
//
// Parameters:
//   - name: the technique name
//
// Returns:
//   - *technique.BuildingInformation: the node, nil if none is declared
//   - bool: true if the node exists
func (l *Library) Get(name string) (*technique.BuildingInformation, bool) {
	bi, ok := l.Nodes[name]
	return bi, ok
}

// LoadTechniques reads the description at path from fsys. The format is chosen by extension:
// ".yaml" and ".yml" are YAML, ".toml" is TOML. Source files are resolved relative to the description.
//
// Parameters:
//   - fsys: the file system holding the description and its sources
//   - name: the slash-separated path of the description within fsys
//
// Returns:
//   - *Library: the loaded nodes
//   - error: a decode error, an unknown include, an include cycle or an invalid field
func LoadTechniques(fsys fs.FS, name string) (*Library, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read technique description: %w", err)
	}

	var doc document
	if err := decode(name, data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	r := &resolver{
		fsys:  fsys,
		dir:   path.Dir(name),
		decls: make(map[string]*techniqueDoc, len(doc.Techniques)),
		lib: &Library{
			Nodes: make(map[string]*technique.BuildingInformation, len(doc.Techniques)),
			Order: make([]string, 0, len(doc.Techniques)),
		},
		visiting: make(map[string]bool),
	}
	for i := range doc.Techniques {
		td := &doc.Techniques[i]
		if td.Name == "" {
			return nil, fmt.Errorf("%s: technique %d has no name", name, i)
		}
		if _, dup := r.decls[td.Name]; dup {
			return nil, fmt.Errorf("%s: technique %q declared twice", name, td.Name)
		}
		r.decls[td.Name] = td
		r.lib.Order = append(r.lib.Order, td.Name)
	}
	for _, n := range r.lib.Order {
		if _, err := r.node(n, nil); err != nil {
			return nil, err
		}
	}

	common.Logger().Debug("technique description loaded", "path", name, "techniques", len(r.lib.Order))
	return r.lib, nil
}

func decode(name string, data []byte, doc *document) error {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(doc); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case ".toml":
		return toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(doc)
	default:
		return fmt.Errorf("unsupported description format %q", path.Ext(name))
	}
}

// resolver turns declarations into nodes, building includes before the nodes that include them.
type resolver struct {
	fsys     fs.FS
	dir      string
	decls    map[string]*techniqueDoc
	lib      *Library
	visiting map[string]bool
}

func (r *resolver) node(name string, chain []string) (*technique.BuildingInformation, error) {
	if bi, ok := r.lib.Nodes[name]; ok {
		return bi, nil
	}
	chain = append(chain, name)
	if r.visiting[name] {
		start := 0
		for i, n := range chain {
			if n == name {
				start = i
				break
			}
		}
		return nil, &IncludeCycleError{Cycle: append([]string(nil), chain[start:]...)}
	}
	r.visiting[name] = true
	defer delete(r.visiting, name)

	td := r.decls[name]
	includes := make([]*technique.BuildingInformation, 0, len(td.Includes))
	for _, inc := range td.Includes {
		if _, ok := r.decls[inc]; !ok {
			return nil, &UnknownIncludeError{Technique: name, Include: inc}
		}
		bi, err := r.node(inc, chain)
		if err != nil {
			return nil, err
		}
		includes = append(includes, bi)
	}

	opts, err := r.options(td)
	if err != nil {
		return nil, fmt.Errorf("technique %q: %w", name, err)
	}
	bi := technique.NewBuildingInformation(name, append([]technique.BuildingInformationOption{technique.WithIncludes(includes...)}, opts...)...)
	r.lib.Nodes[name] = bi
	return bi, nil
}

func (r *resolver) options(td *techniqueDoc) ([]technique.BuildingInformationOption, error) {
	var opts []technique.BuildingInformationOption

	shared, err := r.sources(td.Common)
	if err != nil {
		return nil, err
	}
	if len(shared) > 0 {
		opts = append(opts, technique.WithCommonSource(shared...))
	}
	for _, stage := range []struct {
		typ  shader.ShaderType
		docs []sourceDoc
	}{
		{shader.ShaderTypeVertex, td.Vertex},
		{shader.ShaderTypeFragment, td.Fragment},
	} {
		fragments, err := r.sources(stage.docs)
		if err != nil {
			return nil, err
		}
		if len(fragments) > 0 {
			opts = append(opts, technique.WithSource(stage.typ, fragments...))
		}
	}

	for _, d := range td.Defines {
		if d.Name == "" {
			return nil, errors.New("define without a name")
		}
		opts = append(opts, technique.WithDefine(d.Name, d.Value))
	}

	for _, s := range td.Samplers {
		state, err := samplerState(s)
		if err != nil {
			return nil, err
		}
		opts = append(opts, technique.WithSamplerState(s.Name, state))
	}

	if td.Rasterizer != nil {
		state, err := rasterizerState(td.Rasterizer)
		if err != nil {
			return nil, err
		}
		opts = append(opts, technique.WithRasterizerState(state))
	}
	if td.DepthStencil != nil {
		state, err := depthStencilState(td.DepthStencil)
		if err != nil {
			return nil, err
		}
		opts = append(opts, technique.WithDepthStencilState(state))
	}
	if td.Blend != nil {
		state, err := blendState(td.Blend)
		if err != nil {
			return nil, err
		}
		opts = append(opts, technique.WithBlendState(state))
	}
	if td.PolygonOffset != nil {
		opts = append(opts, technique.WithPolygonOffset(pipeline.PolygonOffset{
			SlopeScale: td.PolygonOffset.SlopeScale,
			Units:      td.PolygonOffset.Units,
		}))
	}
	if td.StencilReference != nil {
		opts = append(opts, technique.WithStencilReference(pipeline.StencilReference{
			Front: td.StencilReference.Front,
			Back:  td.StencilReference.Back,
		}))
	}
	if td.BlendFactor != nil {
		if len(td.BlendFactor) != 4 {
			return nil, fmt.Errorf("blend_factor needs 4 components, got %d", len(td.BlendFactor))
		}
		opts = append(opts, technique.WithBlendFactor([4]float32(td.BlendFactor)))
	}
	if td.Framebuffer != nil {
		layout, err := framebufferLayout(td.Framebuffer)
		if err != nil {
			return nil, err
		}
		opts = append(opts, technique.WithFramebufferLayout(layout))
	}
	if td.Resources != nil {
		pack, err := resourcePack(td.Resources)
		if err != nil {
			return nil, err
		}
		opts = append(opts, technique.WithResources(pack))
	}
	return opts, nil
}

// sources reads file fragments relative to the description and passes inline fragments through.
func (r *resolver) sources(docs []sourceDoc) ([]string, error) {
	fragments := make([]string, 0, len(docs))
	for _, d := range docs {
		switch {
		case d.File != "" && d.Inline != "":
			return nil, fmt.Errorf("source fragment sets both file %q and inline text", d.File)
		case d.File != "":
			data, err := fs.ReadFile(r.fsys, path.Join(r.dir, d.File))
			if err != nil {
				return nil, fmt.Errorf("read source: %w", err)
			}
			fragments = append(fragments, string(data))
		case d.Inline != "":
			fragments = append(fragments, d.Inline)
		}
	}
	return fragments, nil
}

// enum is a string-valued pipeline or format constant with a membership check.
type enum interface {
	~string
	Valid() bool
}

// parseEnum sets *dst from s. An empty s keeps *dst.
func parseEnum[T enum](field, s string, dst *T) error {
	if s == "" {
		return nil
	}
	v := T(s)
	if !v.Valid() {
		return fmt.Errorf("unknown %s %q", field, s)
	}
	*dst = v
	return nil
}

func rasterizerState(d *rasterizerDoc) (pipeline.RasterizerState, error) {
	s := pipeline.NewRasterizerState()
	if err := parseEnum("cull_mode", d.CullMode, &s.CullMode); err != nil {
		return s, err
	}
	return s, parseEnum("front_face", d.FrontFace, &s.FrontFace)
}

func stencilFace(d *stencilFaceDoc) (pipeline.StencilFace, error) {
	f := pipeline.DefaultStencilFace()
	if d == nil {
		return f, nil
	}
	if err := parseEnum("stencil compare", d.Compare, &f.Compare); err != nil {
		return f, err
	}
	if err := parseEnum("fail_op", d.FailOp, &f.FailOp); err != nil {
		return f, err
	}
	if err := parseEnum("depth_fail_op", d.DepthFailOp, &f.DepthFailOp); err != nil {
		return f, err
	}
	return f, parseEnum("pass_op", d.PassOp, &f.PassOp)
}

func depthStencilState(d *depthStencilDoc) (pipeline.DepthStencilState, error) {
	s := pipeline.NewDepthStencilState()
	if d.Test != nil {
		s.DepthTest = *d.Test
	}
	if d.Write != nil {
		s.DepthWrite = *d.Write
	}
	if err := parseEnum("depth compare", d.Compare, &s.DepthCompare); err != nil {
		return s, err
	}
	if d.Stencil == nil {
		return s, nil
	}

	front, err := stencilFace(d.Stencil.Front)
	if err != nil {
		return s, err
	}
	back := front
	if d.Stencil.Back != nil {
		if back, err = stencilFace(d.Stencil.Back); err != nil {
			return s, err
		}
	}
	st := &pipeline.StencilState{Front: front, Back: back, ReadMask: 0xff, WriteMask: 0xff}
	if d.Stencil.ReadMask != nil {
		st.ReadMask = *d.Stencil.ReadMask
	}
	if d.Stencil.WriteMask != nil {
		st.WriteMask = *d.Stencil.WriteMask
	}
	s.Stencil = st
	return s, nil
}

func blendComponent(d *blendComponentDoc, c *pipeline.BlendComponent) error {
	if d == nil {
		return nil
	}
	if err := parseEnum("blend src", d.Src, &c.Src); err != nil {
		return err
	}
	if err := parseEnum("blend dst", d.Dst, &c.Dst); err != nil {
		return err
	}
	return parseEnum("blend operation", d.Operation, &c.Operation)
}

func blendState(d *blendDoc) (pipeline.BlendState, error) {
	s := pipeline.NewBlendState(pipeline.WithBlendEnabled(true))
	if d.Enabled != nil {
		s.Enabled = *d.Enabled
	}
	if err := blendComponent(d.Color, &s.Color); err != nil {
		return s, err
	}
	if err := blendComponent(d.Alpha, &s.Alpha); err != nil {
		return s, err
	}
	if d.WriteMask != nil {
		mask, err := writeMask(*d.WriteMask)
		if err != nil {
			return s, err
		}
		s.WriteMask = mask
	}
	return s, nil
}

// writeMask parses channel letters, "rgba" for all channels and "" for none.
func writeMask(s string) (pipeline.ColorWriteMask, error) {
	var mask pipeline.ColorWriteMask
	for _, c := range strings.ToLower(s) {
		switch c {
		case 'r':
			mask |= pipeline.ColorWriteRed
		case 'g':
			mask |= pipeline.ColorWriteGreen
		case 'b':
			mask |= pipeline.ColorWriteBlue
		case 'a':
			mask |= pipeline.ColorWriteAlpha
		default:
			return 0, fmt.Errorf("unknown write mask channel %q", c)
		}
	}
	return mask, nil
}

func samplerState(d samplerDoc) (pipeline.SamplerState, error) {
	s := pipeline.NewSamplerState()
	if d.Name == "" {
		return s, errors.New("sampler state without a name")
	}
	if err := parseEnum("address mode", d.Address, &s.AddressU); err != nil {
		return s, err
	}
	s.AddressV, s.AddressW = s.AddressU, s.AddressU
	for _, f := range []struct {
		field string
		value string
		dst   *pipeline.AddressMode
	}{
		{"address_u", d.AddressU, &s.AddressU},
		{"address_v", d.AddressV, &s.AddressV},
		{"address_w", d.AddressW, &s.AddressW},
	} {
		if err := parseEnum(f.field, f.value, f.dst); err != nil {
			return s, err
		}
	}
	for _, f := range []struct {
		field string
		value string
		dst   *pipeline.FilterMode
	}{
		{"mag_filter", d.MagFilter, &s.MagFilter},
		{"min_filter", d.MinFilter, &s.MinFilter},
		{"mipmap_filter", d.MipmapFilter, &s.MipmapFilter},
	} {
		if err := parseEnum(f.field, f.value, f.dst); err != nil {
			return s, err
		}
	}
	if d.LodMinClamp != nil {
		s.LodMinClamp = *d.LodMinClamp
	}
	if d.LodMaxClamp != nil {
		s.LodMaxClamp = *d.LodMaxClamp
	}
	if d.MaxAnisotropy > 0 {
		s.MaxAnisotropy = d.MaxAnisotropy
	}
	return s, parseEnum("sampler compare", d.Compare, &s.Compare)
}

func framebufferLayout(d *framebufferDoc) (framebuffer.Layout, error) {
	layout := framebuffer.Layout{Name: d.Name}
	for _, c := range d.Colors {
		var ch framebuffer.Channel
		ch.Name = c.Name
		if err := parseEnum("color format", c.Format, &ch.Format); err != nil {
			return layout, err
		}
		layout.Colors = append(layout.Colors, ch)
	}
	if err := parseEnum("depth format", d.Depth, &layout.Depth); err != nil {
		return layout, err
	}
	return layout, layout.Validate()
}

func variables(field string, docs []variableDoc) ([]shader.Variable, error) {
	vars := make([]shader.Variable, 0, len(docs))
	for _, d := range docs {
		t, ok := common.ParseElementType(d.Type)
		if !ok {
			return nil, fmt.Errorf("%s %q: unknown type %q", field, d.Name, d.Type)
		}
		vars = append(vars, shader.Variable{Name: d.Name, Type: t})
	}
	return vars, nil
}

func resourcePack(d *resourcesDoc) (shader.ResourcePack, error) {
	pack := shader.ResourcePack{
		UniformBuffers:       d.UniformBuffers,
		StorageBuffers:       d.StorageBuffers,
		AtomicCounterBuffers: d.AtomicCounterBuffers,
	}

	var err error
	if pack.Attributes, err = variables("attribute", d.Attributes); err != nil {
		return pack, err
	}
	if pack.Uniforms, err = variables("uniform", d.Uniforms); err != nil {
		return pack, err
	}
	for _, o := range d.Outputs {
		out := shader.Output{Name: o.Name}
		if err := parseEnum("output format", o.Format, &out.Format); err != nil {
			return pack, err
		}
		pack.Outputs = append(pack.Outputs, out)
	}
	for _, t := range d.Textures {
		pack.Textures = append(pack.Textures, shader.TextureDecl{Name: t.Name, Sampler: t.Sampler})
	}
	for _, img := range d.Images {
		decl := shader.ImageDecl{Name: img.Name, Access: gpu.AccessReadWrite}
		if err := parseEnum("image format", img.Format, &decl.Format); err != nil {
			return pack, err
		}
		if decl.Format == gpu.FormatUndefined {
			return pack, fmt.Errorf("image %q has no format", img.Name)
		}
		if err := parseEnum("image access", img.Access, &decl.Access); err != nil {
			return pack, err
		}
		pack.Images = append(pack.Images, decl)
	}
	return pack, nil
}
