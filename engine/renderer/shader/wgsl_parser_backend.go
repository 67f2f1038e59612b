package shader

import (
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
)

// wgslPrimitiveLayoutMap maps WGSL primitive, vector, matrix, and atomic type names
// to their byte size and alignment as WGSL defines them.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	// Scalars
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"f16":  {2, 2},
	"bool": {4, 4},

	// Vectors – f32
	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	// Vectors – i32
	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},
	"vec3<i32>": {12, 16},
	"vec3i":     {12, 16},
	"vec4<i32>": {16, 16},
	"vec4i":     {16, 16},

	// Vectors – u32
	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec3<u32>": {12, 16},
	"vec3u":     {12, 16},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},

	// Vectors – f16
	"vec2<f16>": {4, 4},
	"vec2h":     {4, 4},
	"vec4<f16>": {8, 8},
	"vec4h":     {8, 8},

	// Matrices – matCxR<f32>: C columns of vecR<f32>, stride = roundUp(align(vecR), size(vecR))
	"mat2x2<f32>": {16, 8},
	"mat2x3<f32>": {32, 16},
	"mat2x4<f32>": {32, 16},
	"mat3x2<f32>": {24, 8},
	"mat3x3<f32>": {48, 16},
	"mat3x4<f32>": {48, 16},
	"mat4x2<f32>": {32, 8},
	"mat4x3<f32>": {64, 16},
	"mat4x4<f32>": {64, 16},
	"mat2x2f":     {16, 8},
	"mat3x3f":     {48, 16},
	"mat4x4f":     {64, 16},

	// Atomic types
	"atomic<u32>": {4, 4},
	"atomic<i32>": {4, 4},
}

// roundUpAlign rounds value up to the next multiple of alignment.
// Alignment must be a power of two.
//
// Parameters:
//   - alignment: the required alignment (must be a power of two)
//   - value: the value to align
//
// Returns:
//   - uint64: value rounded up to the next multiple of alignment
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// resolveTypeLayout resolves a WGSL type name to its size and alignment from the primitive table
// and the struct layouts computed so far. A runtime-sized array is sized as a single element,
// the smallest binding that can hold it.
//
// Parameters:
//   - typeName: the WGSL type name to resolve, e.g. "f32", "Material", "array<Light, 8>"
//   - knownTypes: a map of already-resolved type names to their layouts
//
// Returns:
//   - wgslTypeLayout: the resolved layout
//   - bool: false for unknown types
func resolveTypeLayout(typeName string, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if layout, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return layout, true
	}
	if layout, ok := knownTypes[typeName]; ok {
		return layout, true
	}

	elem, count, ok := splitArrayType(typeName)
	if !ok {
		return wgslTypeLayout{}, false
	}
	elemLayout, ok := resolveTypeLayout(elem, knownTypes)
	if !ok {
		return wgslTypeLayout{}, false
	}
	stride := roundUpAlign(elemLayout.align, elemLayout.size)
	return wgslTypeLayout{stride * uint64(max(count, 1)), elemLayout.align}, true
}

// computeStructLayout places each field at its next aligned offset and rounds the total size up
// to the largest field alignment. Fields with @builtin attributes carry no storage and are skipped.
//
// Parameters:
//   - ps: the parsed struct whose layout to compute
//   - knownTypes: a map of already-resolved type names to their layouts
//
// Returns:
//   - wgslTypeLayout: the computed layout
//   - bool: true if all fields could be resolved
func computeStructLayout(ps parsedStruct, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	offset := uint64(0)
	maxAlign := uint64(1)
	for _, field := range ps.fields {
		if field.isBuiltin {
			continue
		}
		fieldLayout, ok := resolveTypeLayout(field.typeName, knownTypes)
		if !ok {
			return wgslTypeLayout{}, false
		}
		offset = roundUpAlign(fieldLayout.align, offset) + fieldLayout.size
		maxAlign = max(maxAlign, fieldLayout.align)
	}
	return wgslTypeLayout{roundUpAlign(maxAlign, offset), maxAlign}, true
}

// computeStructSizes computes the byte size and alignment of all parsed WGSL structs.
// It resolves dependencies between structs iteratively, handling cases where one struct
// contains fields typed as another struct. Returns a map from struct name to layout.
//
// Parameters:
//   - structs: all parsed struct blocks from the WGSL source
//
// Returns:
//   - map[string]wgslTypeLayout: a map from struct name to computed layout
func computeStructSizes(structs []parsedStruct) map[string]wgslTypeLayout {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	remaining := make([]parsedStruct, len(structs))
	copy(remaining, structs)

	for {
		progress := false
		next := remaining[:0]

		for _, ps := range remaining {
			if layout, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = layout
				progress = true
			} else {
				next = append(next, ps)
			}
		}

		remaining = next
		if !progress || len(remaining) == 0 {
			break
		}
	}

	return resolved
}

// flattenMembers lays out the members of a buffer struct as addressable bindings. Nested struct
// members are named with dots. A fixed array of values becomes one member with its stride and
// element count, a trailing runtime-sized array gets count 0, and the members of an array of
// structs carry the array's stride and count.
//
// Parameters:
//   - prefix: the dotted name of the enclosing member, empty at the top level
//   - base: the byte offset of the struct within the buffer
//   - ps: the struct to flatten
//   - structs: every struct of the module by name
//   - knownTypes: the computed struct layouts
//
// Returns:
//   - []MemberBinding: the members in declaration order
func flattenMembers(prefix string, base uint64, ps parsedStruct, structs map[string]parsedStruct, knownTypes map[string]wgslTypeLayout) []MemberBinding {
	var out []MemberBinding
	offset := uint64(0)
	for _, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		name := f.name
		if prefix != "" {
			name = prefix + "." + f.name
		}

		elemName, count, isArray := splitArrayType(f.typeName)
		if !isArray {
			layout, ok := resolveTypeLayout(f.typeName, knownTypes)
			if !ok {
				return out
			}
			offset = roundUpAlign(layout.align, offset)
			if nested, ok := structs[f.typeName]; ok {
				out = append(out, flattenMembers(name, base+offset, nested, structs, knownTypes)...)
			} else if t, ok := memberElementType(f.typeName); ok {
				out = append(out, MemberBinding{Name: name, Type: t, Offset: int(base + offset), Count: 1})
			}
			offset += layout.size
			continue
		}

		elemLayout, ok := resolveTypeLayout(elemName, knownTypes)
		if !ok {
			return out
		}
		stride := roundUpAlign(elemLayout.align, elemLayout.size)
		offset = roundUpAlign(elemLayout.align, offset)
		if nested, ok := structs[elemName]; ok {
			for _, m := range flattenMembers(name, base+offset, nested, structs, knownTypes) {
				if m.Count != 1 {
					continue
				}
				m.Stride = int(stride)
				m.Count = count
				out = append(out, m)
			}
		} else if t, ok := memberElementType(elemName); ok {
			out = append(out, MemberBinding{Name: name, Type: t, Offset: int(base + offset), Stride: int(stride), Count: count})
		}
		if count == 0 {
			return out
		}
		offset += stride * uint64(count)
	}
	return out
}

// splitArrayType splits "array<T, N>" into T and N. A runtime-sized array has count 0.
func splitArrayType(typeName string) (elem string, count int, ok bool) {
	if !strings.HasPrefix(typeName, "array<") || !strings.HasSuffix(typeName, ">") {
		return "", 0, false
	}
	parts := splitAtTopLevelCommas(typeName[6 : len(typeName)-1])
	elem = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return "", 0, false
		}
		count = n
	}
	return elem, count, true
}

// memberElementType maps a WGSL member type to its element type. Atomics map to their scalar type.
func memberElementType(typeName string) (common.ElementType, bool) {
	switch typeName {
	case "atomic<u32>":
		return common.Uint, true
	case "atomic<i32>":
		return common.Int, true
	}
	return common.ParseElementType(typeName)
}

// classifyResource creates a gpu.LayoutEntry from a parsed WGSL resource declaration.
// It determines the resource category (buffer, texture, sampler, storage texture) from the
// address space qualifier and type name, and populates the corresponding layout fields.
//
// Parameters:
//   - decl: the parsed declaration
//   - visibility: the stages that declare the resource
//   - knownTypes: struct layouts used to size buffer bindings
//
// Returns:
//   - gpu.LayoutEntry: a fully populated layout entry for the resource
func classifyResource(decl resourceDecl, visibility gpu.Stage, knownTypes map[string]wgslTypeLayout) gpu.LayoutEntry {
	entry := gpu.LayoutEntry{
		Binding:    decl.binding,
		Visibility: visibility,
	}

	if decl.addressSpace != "" {
		switch {
		case decl.addressSpace == "uniform":
			entry.Type = gpu.ResourceUniformBuffer
		case strings.Contains(decl.addressSpace, "read_write"):
			entry.Type = gpu.ResourceStorageBuffer
		default:
			entry.Type = gpu.ResourceReadOnlyStorageBuffer
		}
		if layout, ok := resolveTypeLayout(decl.typeName, knownTypes); ok && layout.size > 0 {
			entry.MinSize = int(layout.size)
		}
		return entry
	}

	switch {
	case decl.typeName == "sampler":
		entry.Type = gpu.ResourceSampler
	case decl.typeName == "sampler_comparison":
		entry.Type = gpu.ResourceComparisonSampler
	case strings.HasPrefix(decl.typeName, "texture_storage_"):
		entry.Type = gpu.ResourceStorageTexture
		entry.Dimension, entry.Format, entry.Access = classifyStorageTexture(decl.typeName)
	case strings.HasPrefix(decl.typeName, "texture_depth_"):
		entry.Type = gpu.ResourceDepthTexture
		entry.SampleType = gpu.SampleDepth
		if info, ok := wgslSampledTextureMap[decl.typeName]; ok {
			entry.Dimension = info.dimension
			entry.Multisampled = info.multisampled
		}
	case strings.HasPrefix(decl.typeName, "texture_"):
		entry.Type = gpu.ResourceSampledTexture
		entry.Dimension, entry.SampleType, entry.Multisampled = classifySampledTexture(decl.typeName)
	}

	return entry
}

// classifySampledTexture parses a sampled texture type such as "texture_2d<f32>".
//
// Parameters:
//   - typeName: the full WGSL texture type string
//
// Returns:
//   - gpu.Dimension: the view dimension
//   - gpu.SampleType: the sample type, float if unspecified
//   - bool: true for multisampled textures
func classifySampledTexture(typeName string) (gpu.Dimension, gpu.SampleType, bool) {
	base, param := splitTypeParams(typeName)

	info := wgslSampledTextureMap[base]
	sampleType := gpu.SampleFloat
	if st, ok := wgslSampleTypeMap[param]; ok {
		sampleType = st
	}
	return info.dimension, sampleType, info.multisampled
}

// classifyStorageTexture parses a storage texture type such as "texture_storage_2d<rgba8unorm, write>".
//
// Parameters:
//   - typeName: the full WGSL storage texture type string
//
// Returns:
//   - gpu.Dimension: the view dimension
//   - gpu.TextureFormat: the texel format
//   - gpu.Access: the access mode
func classifyStorageTexture(typeName string) (gpu.Dimension, gpu.TextureFormat, gpu.Access) {
	base, params := splitTypeParams(typeName)

	dim := wgslStorageTextureDimMap[base]
	var format gpu.TextureFormat
	var access gpu.Access
	parts := strings.SplitN(params, ",", 2)
	if len(parts) >= 1 {
		format = gpu.TextureFormat(strings.TrimSpace(parts[0]))
	}
	if len(parts) >= 2 {
		access = gpu.Access(strings.TrimSpace(parts[1]))
	}
	return dim, format, access
}

// splitTypeParams splits a WGSL parameterized type into its base name and parameter string.
// For "texture_2d<f32>" returns ("texture_2d", "f32").
// For "texture_depth_2d" (no params) returns ("texture_depth_2d", "").
//
// Parameters:
//   - typeName: the WGSL type string to split
//
// Returns:
//   - base: the type name before the first angle bracket
//   - params: the content between angle brackets, or empty if none
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	base = before
	params = strings.TrimSuffix(after, ">")
	params = strings.TrimSpace(params)
	return base, params
}

// stripComments removes both single-line (//) and block (/* */) comments from WGSL source.
// Block comments may be nested.
//
// Parameters:
//   - source: raw WGSL source string
//
// Returns:
//   - string: source with all comments removed
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

// stripLineComments removes single-line // comments from WGSL source so they
// do not interfere with struct and field parsing
//
// Parameters:
//   - source: raw WGSL source string
//
// Returns:
//   - string: source with line comments removed
func stripLineComments(source string) string {
	var sb strings.Builder
	lines := strings.SplitSeq(source, "\n")
	for line := range lines {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// stripBlockComments removes block comments (/* ... */) from WGSL source,
// handling nested block comments.
//
// Parameters:
//   - source: raw WGSL source string
//
// Returns:
//   - string: source with block comments removed
func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	i := 0
	for i < len(source) {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i += 2
				continue
			}
			if source[i] == '*' && source[i+1] == '/' {
				if depth > 0 {
					depth--
				}
				i += 2
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
		i++
	}
	return sb.String()
}
