package shader

import (
	"slices"
	"sort"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
)

// stageDecl is a resource declaration together with the module it was found in.
type stageDecl struct {
	decl    resourceDecl
	structs map[string]parsedStruct
	known   map[string]wgslTypeLayout
}

// collectDecls gathers the resource declarations of every stage, once per group and binding.
func collectDecls(final map[ShaderType]string) []stageDecl {
	var out []stageDecl
	seen := make(map[[2]int]bool)
	for _, st := range linkStages {
		src, ok := final[st]
		if !ok {
			continue
		}
		structs := parseStructBlocks(src)
		byName := structsByName(structs)
		known := computeStructSizes(structs)
		for _, d := range parseResourceDecls(src) {
			key := [2]int{d.group, d.binding}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, stageDecl{decl: d, structs: byName, known: known})
		}
	}
	return out
}

// introspect rebuilds the binding tables from the rewritten stage sources.
func (p *program) introspect(final map[ShaderType]string, pack ResourcePack) {
	p.attributes = introspectAttributes(final[ShaderTypeVertex], pack)
	p.outputs = introspectOutputs(final[ShaderTypeFragment], pack)

	p.uniformBuffers, p.storageBuffers, p.atomicCounterBuffers = nil, nil, nil
	p.textures, p.images, p.uniforms = nil, nil, nil

	decls := collectDecls(final)
	comparison := make(map[int]bool)
	for _, sd := range decls {
		if sd.decl.group == gpu.GroupSamplers {
			comparison[sd.decl.binding] = sd.decl.typeName == "sampler_comparison"
		}
	}

	for _, sd := range decls {
		d := sd.decl
		entry := classifyResource(d, 0, sd.known)
		switch d.group {
		case gpu.GroupUniformBuffers:
			p.uniformBuffers = append(p.uniformBuffers, bufferBinding(sd, entry, gpu.BindingUniform))
		case gpu.GroupStorageBuffers:
			p.storageBuffers = append(p.storageBuffers, bufferBinding(sd, entry, gpu.BindingStorage))
		case gpu.GroupAtomicCounters:
			p.atomicCounterBuffers = append(p.atomicCounterBuffers, bufferBinding(sd, entry, gpu.BindingAtomicCounter))
		case gpu.GroupTextures:
			p.textures = append(p.textures, TextureBinding{
				Name:         d.name,
				Index:        d.binding,
				Dimension:    entry.Dimension,
				SampleType:   entry.SampleType,
				Multisampled: entry.Multisampled,
				Sampler:      pack.Textures[d.binding].Sampler,
				Comparison:   comparison[d.binding],
			})
		case gpu.GroupImages:
			p.images = append(p.images, ImageBinding{
				Name:      d.name,
				Index:     d.binding,
				Dimension: entry.Dimension,
				Format:    entry.Format,
				Access:    entry.Access,
			})
		case gpu.GroupDefaultUniforms:
			if ps, ok := sd.structs[d.typeName]; ok {
				for _, m := range flattenMembers("", 0, ps, sd.structs, sd.known) {
					p.uniforms = append(p.uniforms, UniformBinding{Name: m.Name, Type: m.Type, Offset: m.Offset})
				}
			}
		}
	}

	byIndex := func(bs []BufferBinding) {
		sort.Slice(bs, func(i, j int) bool { return bs[i].Index < bs[j].Index })
	}
	byIndex(p.uniformBuffers)
	byIndex(p.storageBuffers)
	byIndex(p.atomicCounterBuffers)
	sort.Slice(p.textures, func(i, j int) bool { return p.textures[i].Index < p.textures[j].Index })
	sort.Slice(p.images, func(i, j int) bool { return p.images[i].Index < p.images[j].Index })
}

// bufferBinding describes a buffer block and its addressable members.
func bufferBinding(sd stageDecl, entry gpu.LayoutEntry, kind gpu.BindingKind) BufferBinding {
	d := sd.decl
	b := BufferBinding{
		Name:     d.name,
		Kind:     kind,
		Index:    d.binding,
		Size:     entry.MinSize,
		ReadOnly: entry.Type == gpu.ResourceReadOnlyStorageBuffer,
	}
	ps, ok := sd.structs[d.typeName]
	if !ok {
		// A block that is not a struct exposes a single member named after the block.
		ps = parsedStruct{fields: []parsedField{{name: d.name, typeName: d.typeName, location: -1}}}
	}
	b.Members = flattenMembers("", 0, ps, sd.structs, sd.known)
	return b
}

// introspectAttributes reads back the vertex inputs of the rewritten vertex stage. Declared attributes
// the stage does not read are left out.
func introspectAttributes(src string, pack ResourcePack) []AttributeBinding {
	ep, err := parseEntryPoint(src, ShaderTypeVertex)
	if err != nil {
		return nil
	}
	fields, _ := locationFields(ep.inputStructs, structsByName(parseStructBlocks(src)))
	read := make(map[string]int)
	for _, f := range append(ep.inputs, fields...) {
		read[f.name] = f.location
	}

	var out []AttributeBinding
	for _, a := range pack.Attributes {
		key := a.Name
		if a.Type.IsMatrix() {
			key = a.Name + "_0"
		}
		if loc, ok := read[key]; ok {
			out = append(out, AttributeBinding{Name: a.Name, Type: a.Type, Location: loc})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

// introspectOutputs reads back the outputs of the rewritten fragment stage.
func introspectOutputs(src string, pack ResourcePack) []OutputBinding {
	ep, err := parseEntryPoint(src, ShaderTypeFragment)
	if err != nil {
		return nil
	}
	var out []OutputBinding
	if ep.output != nil && len(pack.Outputs) > 0 {
		t, _ := common.ParseElementType(ep.output.typeName)
		out = append(out, OutputBinding{
			Name:     pack.Outputs[0].Name,
			Type:     t,
			Format:   pack.Outputs[0].Format,
			Location: ep.output.location,
		})
	}
	if ep.outputStruct != "" {
		fields, _ := locationFields([]string{ep.outputStruct}, structsByName(parseStructBlocks(src)))
		for _, f := range fields {
			idx := slices.IndexFunc(pack.Outputs, func(o Output) bool { return o.Name == f.name })
			if idx < 0 {
				continue
			}
			t, _ := common.ParseElementType(f.typeName)
			out = append(out, OutputBinding{Name: f.name, Type: t, Format: pack.Outputs[idx].Format, Location: f.location})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

// defaultBlockSize returns the byte size of the default uniform block, 0 if no stage declares it.
// The size is rounded up to 16 bytes as uniform bindings require.
func (p *program) defaultBlockSize(final map[ShaderType]string) int {
	for _, sd := range collectDecls(final) {
		if sd.decl.group != gpu.GroupDefaultUniforms {
			continue
		}
		layout, ok := resolveTypeLayout(sd.decl.typeName, sd.known)
		if !ok {
			return 0
		}
		return int(roundUpAlign(16, layout.size))
	}
	return 0
}
