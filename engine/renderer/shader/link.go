package shader

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
)

// attributeSlot is the location and WGSL-visible type assigned to one vertex input.
type attributeSlot struct {
	location int
	typ      common.ElementType
}

// attributeLocations assigns vertex input locations by position in the pack. A matrix attribute
// reserves LocationCount locations and is read in WGSL as one input per column, named
// <name>_0, <name>_1 and so on.
//
// Parameters:
//   - pack: the declared resource interface
//
// Returns:
//   - map[string]attributeSlot: WGSL input names mapped to their slot
func attributeLocations(pack ResourcePack) map[string]attributeSlot {
	slots := make(map[string]attributeSlot)
	next := 0
	for _, a := range pack.Attributes {
		if a.Type.IsMatrix() {
			for c := range a.Type.Columns() {
				slots[fmt.Sprintf("%s_%d", a.Name, c)] = attributeSlot{location: next + c, typ: a.Type.ColumnType()}
			}
		} else {
			slots[a.Name] = attributeSlot{location: next, typ: a.Type}
		}
		next += a.Type.LocationCount()
	}
	return slots
}

// attributeTypeMatches reports whether a WGSL input type can read an attribute of the declared type.
// Byte vectors are read as any four-component vector.
func attributeTypeMatches(declared common.ElementType, wgslType string) bool {
	t, ok := common.ParseElementType(wgslType)
	if !ok {
		return false
	}
	if declared == common.UByteV4 {
		return !t.IsMatrix() && t.Components() == 4
	}
	return t == declared
}

// locationFields collects the location-decorated fields of the named structs.
func locationFields(names []string, structs map[string]parsedStruct) ([]parsedField, []string) {
	var fields []parsedField
	var diags []string
	for _, name := range names {
		ps, ok := structs[name]
		if !ok {
			diags = append(diags, fmt.Sprintf("entry point interface struct %q not found", name))
			continue
		}
		for _, f := range ps.fields {
			if !f.isBuiltin && f.location >= 0 {
				fields = append(fields, f)
			}
		}
	}
	return fields, diags
}

// assignBindings computes the edits that give every resource declaration, vertex input and fragment
// output of one stage its binding from the pack.
//
// Parameters:
//   - stage: the stage of src
//   - src: the comment-free stage source
//   - pack: the declared resource interface
//   - locations: the vertex input slots from attributeLocations
//
// Returns:
//   - []edit: the rewrites to apply to src
//   - []string: diagnostics, empty on success
func assignBindings(stage ShaderType, src string, pack ResourcePack, locations map[string]attributeSlot) ([]edit, []string) {
	var edits []edit
	decls, diags := scanResourceDecls(src)

	for _, d := range decls {
		group, binding, err := resolveResource(d, pack)
		if err != nil {
			diags = append(diags, err.Error())
			continue
		}
		edits = append(edits,
			edit{at: d.groupDigits, text: strconv.Itoa(group)},
			edit{at: d.bindingDigits, text: strconv.Itoa(binding)},
		)
	}

	ep, err := parseEntryPoint(src, stage)
	if err != nil {
		return edits, append(diags, err.Error())
	}
	structs := structsByName(parseStructBlocks(src))

	switch stage {
	case ShaderTypeVertex:
		fields, d := locationFields(ep.inputStructs, structs)
		diags = append(diags, d...)
		for _, f := range append(ep.inputs, fields...) {
			slot, ok := locations[f.name]
			if !ok {
				diags = append(diags, fmt.Sprintf("vertex input %q is not a declared attribute", f.name))
				continue
			}
			if !attributeTypeMatches(slot.typ, f.typeName) {
				diags = append(diags, fmt.Sprintf("vertex input %q is %s but the attribute is declared %s", f.name, f.typeName, slot.typ))
				continue
			}
			edits = append(edits, edit{at: f.locationDigits, text: strconv.Itoa(slot.location)})
		}

	case ShaderTypeFragment:
		if ep.output != nil {
			if len(pack.Outputs) == 0 {
				diags = append(diags, "fragment output is not declared")
			} else {
				edits = append(edits, edit{at: ep.output.locationDigits, text: "0"})
			}
		}
		if ep.outputStruct != "" {
			fields, d := locationFields([]string{ep.outputStruct}, structs)
			diags = append(diags, d...)
			for _, f := range fields {
				idx := slices.IndexFunc(pack.Outputs, func(o Output) bool { return o.Name == f.name })
				if idx < 0 {
					diags = append(diags, fmt.Sprintf("fragment output %q is not declared", f.name))
					continue
				}
				edits = append(edits, edit{at: f.locationDigits, text: strconv.Itoa(idx)})
			}
		}
	}

	return edits, diags
}

// neutralizeBindings gives every resource declaration a distinct binding in group 0, so that
// placeholder bindings written in stage sources never collide before Link assigns the real ones.
//
// Parameters:
//   - source: the stage source
//
// Returns:
//   - string: the source with renumbered declarations and unchanged line structure
func neutralizeBindings(source string) string {
	decls := parseResourceDecls(source)
	edits := make([]edit, 0, 2*len(decls))
	for i, d := range decls {
		edits = append(edits,
			edit{at: d.groupDigits, text: "0"},
			edit{at: d.bindingDigits, text: strconv.Itoa(i)},
		)
	}
	return applyEdits(source, edits)
}

// resolveResource maps a resource declaration to its group and binding from the pack.
//
// Parameters:
//   - d: the declaration
//   - pack: the declared resource interface
//
// Returns:
//   - int: the group of the resource category
//   - int: the position of the resource in its category
//   - error: a diagnostic if the resource is undeclared or declared with the wrong kind
func resolveResource(d resourceDecl, pack ResourcePack) (int, int, error) {
	if d.name == DefaultUniformBlock {
		if d.addressSpace != "uniform" {
			return 0, 0, fmt.Errorf("%s must be declared var<uniform>", DefaultUniformBlock)
		}
		return gpu.GroupDefaultUniforms, 0, nil
	}
	if i := slices.Index(pack.UniformBuffers, d.name); i >= 0 {
		if d.addressSpace != "uniform" {
			return 0, 0, fmt.Errorf("uniform buffer %q must be declared var<uniform>", d.name)
		}
		return gpu.GroupUniformBuffers, i, nil
	}
	if i := slices.Index(pack.StorageBuffers, d.name); i >= 0 {
		if !strings.HasPrefix(d.addressSpace, "storage") {
			return 0, 0, fmt.Errorf("storage buffer %q must be declared var<storage>", d.name)
		}
		return gpu.GroupStorageBuffers, i, nil
	}
	if i := slices.Index(pack.AtomicCounterBuffers, d.name); i >= 0 {
		if d.addressSpace != "storage, read_write" {
			return 0, 0, fmt.Errorf("atomic counter buffer %q must be declared var<storage, read_write>", d.name)
		}
		return gpu.GroupAtomicCounters, i, nil
	}

	textureIndex := func(name string) int {
		return slices.IndexFunc(pack.Textures, func(t TextureDecl) bool { return t.Name == name })
	}
	if i := textureIndex(d.name); i >= 0 {
		if !strings.HasPrefix(d.typeName, "texture_") || strings.HasPrefix(d.typeName, "texture_storage_") {
			return 0, 0, fmt.Errorf("texture %q must have a sampled texture type, got %s", d.name, d.typeName)
		}
		return gpu.GroupTextures, i, nil
	}
	if tex, ok := strings.CutSuffix(d.name, SamplerSuffix); ok {
		if i := textureIndex(tex); i >= 0 {
			if d.typeName != "sampler" && d.typeName != "sampler_comparison" {
				return 0, 0, fmt.Errorf("sampler %q must have a sampler type, got %s", d.name, d.typeName)
			}
			return gpu.GroupSamplers, i, nil
		}
	}

	if i := slices.IndexFunc(pack.Images, func(img ImageDecl) bool { return img.Name == d.name }); i >= 0 {
		if !strings.HasPrefix(d.typeName, "texture_storage_") {
			return 0, 0, fmt.Errorf("image %q must have a storage texture type, got %s", d.name, d.typeName)
		}
		_, format, access := classifyStorageTexture(d.typeName)
		img := pack.Images[i]
		if format != img.Format || access != img.Access {
			return 0, 0, fmt.Errorf("image %q is declared %s/%s but the source uses %s/%s", d.name, img.Format, img.Access, format, access)
		}
		return gpu.GroupImages, i, nil
	}

	return 0, 0, fmt.Errorf("resource %q is not declared in the resource interface", d.name)
}

// buildGroupLayouts describes the resource groups of the linked stages. A resource used by both
// stages is visible to both.
//
// Parameters:
//   - final: the rewritten source of every stage
//
// Returns:
//   - []gpu.GroupLayout: the groups ordered by index, entries ordered by binding
func buildGroupLayouts(final map[ShaderType]string) []gpu.GroupLayout {
	entries := make(map[int]map[int]gpu.LayoutEntry)
	for _, st := range linkStages {
		src, ok := final[st]
		if !ok {
			continue
		}
		known := computeStructSizes(parseStructBlocks(src))
		for _, d := range parseResourceDecls(src) {
			e := classifyResource(d, st.Stage(), known)
			if entries[d.group] == nil {
				entries[d.group] = make(map[int]gpu.LayoutEntry)
			}
			if prev, ok := entries[d.group][d.binding]; ok {
				prev.Visibility |= e.Visibility
				prev.MinSize = max(prev.MinSize, e.MinSize)
				e = prev
			}
			entries[d.group][d.binding] = e
		}
	}

	groups := make([]gpu.GroupLayout, 0, len(entries))
	for g, byBinding := range entries {
		layout := gpu.GroupLayout{Group: g}
		for _, e := range byBinding {
			layout.Entries = append(layout.Entries, e)
		}
		sort.Slice(layout.Entries, func(i, j int) bool {
			return layout.Entries[i].Binding < layout.Entries[j].Binding
		})
		groups = append(groups, layout)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Group < groups[j].Group
	})
	return groups
}
