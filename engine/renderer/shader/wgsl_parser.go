package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
)

// wgslSampledTextureMap maps WGSL sampled texture base names to their view dimension and multisampled flag
var wgslSampledTextureMap = map[string]sampledTextureInfo{
	"texture_1d":                    {gpu.Dimension1D, false},
	"texture_2d":                    {gpu.Dimension2D, false},
	"texture_2d_array":              {gpu.Dimension2DArray, false},
	"texture_3d":                    {gpu.Dimension3D, false},
	"texture_cube":                  {gpu.DimensionCube, false},
	"texture_cube_array":            {gpu.DimensionCubeArray, false},
	"texture_multisampled_2d":       {gpu.Dimension2D, true},
	"texture_depth_2d":              {gpu.Dimension2D, false},
	"texture_depth_2d_array":        {gpu.Dimension2DArray, false},
	"texture_depth_cube":            {gpu.DimensionCube, false},
	"texture_depth_cube_array":      {gpu.DimensionCubeArray, false},
	"texture_depth_multisampled_2d": {gpu.Dimension2D, true},
}

// wgslStorageTextureDimMap maps WGSL storage texture base names to their view dimension
var wgslStorageTextureDimMap = map[string]gpu.Dimension{
	"texture_storage_1d":       gpu.Dimension1D,
	"texture_storage_2d":       gpu.Dimension2D,
	"texture_storage_2d_array": gpu.Dimension2DArray,
	"texture_storage_3d":       gpu.Dimension3D,
}

// wgslSampleTypeMap maps WGSL scalar type parameters to their texture sample type
var wgslSampleTypeMap = map[string]gpu.SampleType{
	"f32": gpu.SampleFloat,
	"i32": gpu.SampleSint,
	"u32": gpu.SampleUint,
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\(\s*(\d+)\s*\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\s*\w+\s*\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)\s*\(`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)\s*\(`)

	// resourceDeclRegex captures the attribute list, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> camera: CameraUniform;
	// or handle types: @binding(0) @group(3) var diffuse: texture_2d<f32>;
	// The attributes may appear in any order, so group and binding are read from the list separately.
	resourceDeclRegex = regexp.MustCompile(`((?:@\w+\s*(?:\([^)]*\))?\s*)+)var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)

	// groupAttrRegex and bindingAttrRegex capture the index digits of one attribute
	groupAttrRegex   = regexp.MustCompile(`@group\s*\(\s*(\d+)\s*\)`)
	bindingAttrRegex = regexp.MustCompile(`@binding\s*\(\s*(\d+)\s*\)`)
)

// parseResourceDecls extracts every declaration carrying both @group and @binding from comment-free
// WGSL source, keeping the positions of the group and binding digits so they can be rewritten.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []resourceDecl: the declarations in source order
func parseResourceDecls(source string) []resourceDecl {
	decls, _ := scanResourceDecls(source)
	return decls
}

// scanResourceDecls is parseResourceDecls that also reports @group or @binding attributes it could not
// attach to a complete resource declaration.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []resourceDecl: the declarations in source order
//   - []string: one diagnostic per unresolved attribute
func scanResourceDecls(source string) ([]resourceDecl, []string) {
	matches := resourceDeclRegex.FindAllStringSubmatchIndex(source, -1)
	decls := make([]resourceDecl, 0, len(matches))
	var problems []string
	attached := make(map[int]bool)

	for _, m := range matches {
		attrs, base := source[m[2]:m[3]], m[2]
		name := source[m[6]:m[7]]
		g := groupAttrRegex.FindStringSubmatchIndex(attrs)
		b := bindingAttrRegex.FindStringSubmatchIndex(attrs)
		switch {
		case g == nil && b == nil:
			continue
		case g == nil:
			problems = append(problems, fmt.Sprintf("resource %q has @binding but no @group", name))
			attached[base+b[0]] = true
			continue
		case b == nil:
			problems = append(problems, fmt.Sprintf("resource %q has @group but no @binding", name))
			attached[base+g[0]] = true
			continue
		}
		attached[base+g[0]] = true
		attached[base+b[0]] = true

		d := resourceDecl{
			name:          name,
			typeName:      strings.TrimSpace(source[m[8]:m[9]]),
			groupDigits:   span{base + g[2], base + g[3]},
			bindingDigits: span{base + b[2], base + b[3]},
		}
		d.group, _ = strconv.Atoi(attrs[g[2]:g[3]])
		d.binding, _ = strconv.Atoi(attrs[b[2]:b[3]])
		if m[4] >= 0 {
			d.addressSpace = normalizeAddressSpace(source[m[4]:m[5]])
		}
		decls = append(decls, d)
	}

	for _, re := range []*regexp.Regexp{groupAttrRegex, bindingAttrRegex} {
		for _, loc := range re.FindAllStringIndex(source, -1) {
			if attached[loc[0]] {
				continue
			}
			line := strings.Count(source[:loc[0]], "\n") + 1
			problems = append(problems, fmt.Sprintf("line %d: %s is not on a var declaration", line, source[loc[0]:loc[1]]))
		}
	}
	return decls, problems
}

// normalizeAddressSpace collapses whitespace in an address space qualifier, so that
// "storage,  read_write" becomes "storage, read_write".
func normalizeAddressSpace(s string) string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ", ")
}

// parseEntryPoint extracts the entry function of the given stage from comment-free WGSL source,
// including its location-decorated parameters and return value.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//   - shaderType: the stage to search for
//
// Returns:
//   - entryPoint: the parsed entry point
//   - error: an error if the stage has no entry point or its signature is malformed
func parseEntryPoint(source string, shaderType ShaderType) (entryPoint, error) {
	var re *regexp.Regexp
	switch shaderType {
	case ShaderTypeVertex:
		re = vertexEntryRegex
	case ShaderTypeFragment:
		re = fragmentEntryRegex
	default:
		return entryPoint{}, fmt.Errorf("unknown shader type %d", shaderType)
	}

	m := re.FindStringSubmatchIndex(source)
	if m == nil {
		return entryPoint{}, fmt.Errorf("no @%s entry point found", shaderType)
	}
	ep := entryPoint{name: source[m[2]:m[3]]}

	open := m[1] - 1
	closing := matchingParen(source, open)
	if closing < 0 {
		return entryPoint{}, fmt.Errorf("entry point %q has an unterminated parameter list", ep.name)
	}

	paramsStart := open + 1
	for _, s := range topLevelCommaSpans(source[paramsStart:closing]) {
		part := source[paramsStart+s.start : paramsStart+s.end]
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, ok := parseField(part, paramsStart+s.start)
		if !ok || f.isBuiltin {
			continue
		}
		if f.location >= 0 {
			ep.inputs = append(ep.inputs, f)
			continue
		}
		ep.inputStructs = append(ep.inputStructs, f.typeName)
	}

	bodyStart := strings.IndexByte(source[closing:], '{')
	if bodyStart < 0 {
		return entryPoint{}, fmt.Errorf("entry point %q has no body", ep.name)
	}
	signature := source[closing+1 : closing+bodyStart]
	arrow := strings.Index(signature, "->")
	if arrow < 0 {
		return ep, nil
	}
	retStart := closing + 1 + arrow + 2
	ret := source[retStart : closing+bodyStart]
	switch {
	case builtinRegex.MatchString(ret):
	case locationRegex.MatchString(ret):
		lm := locationRegex.FindStringSubmatchIndex(ret)
		loc, _ := strconv.Atoi(ret[lm[2]:lm[3]])
		typeName := strings.TrimSpace(ret[lm[1]:])
		ep.output = &parsedField{
			typeName:       stripAttributes(typeName),
			location:       loc,
			locationDigits: span{retStart + lm[2], retStart + lm[3]},
		}
	default:
		ep.outputStruct = strings.TrimSpace(ret)
	}
	return ep, nil
}

// stripAttributes removes any leading @attr(...) decorations from a type.
func stripAttributes(s string) string {
	for strings.HasPrefix(s, "@") {
		end := strings.IndexByte(s, ')')
		if end < 0 {
			return s
		}
		s = strings.TrimSpace(s[end+1:])
	}
	return s
}

// matchingParen returns the index of the parenthesis closing the one at open, or -1.
func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatchIndex(source, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, m := range matches {
		structs = append(structs, parsedStruct{
			name:   source[m[2]:m[3]],
			fields: parseStructFields(source[m[4]:m[5]], m[4]),
		})
	}

	return structs
}

// structsByName indexes parsed structs by name.
func structsByName(structs []parsedStruct) map[string]parsedStruct {
	out := make(map[string]parsedStruct, len(structs))
	for _, ps := range structs {
		out[ps.name] = ps
	}
	return out
}

// parseStructFields parses the body of a struct block into individual fields,
// extracting @location and @builtin attributes along with the field name and type
//
// Parameters:
//   - body: the content between { and } of a struct declaration
//   - base: the offset of body within the source
//
// Returns:
//   - []parsedField: all fields found in the struct body
func parseStructFields(body string, base int) []parsedField {
	spans := topLevelCommaSpans(body)
	fields := make([]parsedField, 0, len(spans))

	for _, s := range spans {
		part := body[s.start:s.end]
		if strings.TrimSpace(part) == "" {
			continue
		}
		if f, ok := parseField(part, base+s.start); ok {
			fields = append(fields, f)
		}
	}

	return fields
}

// parseField parses one struct field or function parameter.
//
// Parameters:
//   - part: the field text
//   - base: the offset of part within the source
//
// Returns:
//   - parsedField: the field, location -1 when it has no @location
//   - bool: false if part is not a field declaration
func parseField(part string, base int) (parsedField, bool) {
	field := parsedField{location: -1, locationDigits: span{-1, -1}}

	if builtinRegex.MatchString(part) {
		field.isBuiltin = true
	}

	if lm := locationRegex.FindStringSubmatchIndex(part); lm != nil {
		loc, err := strconv.Atoi(part[lm[2]:lm[3]])
		if err == nil {
			field.location = loc
			field.locationDigits = span{base + lm[2], base + lm[3]}
		}
	}

	fm := fieldRegex.FindStringSubmatch(strings.TrimSpace(part))
	if fm == nil {
		return parsedField{}, false
	}
	field.name = fm[1]
	field.typeName = strings.TrimSpace(fm[2])
	return field, true
}

// topLevelCommaSpans returns the spans of s between commas that are not nested inside
// angle brackets or parentheses.
//
// Parameters:
//   - s: the string to split (a struct body or a parameter list)
//
// Returns:
//   - []span: the spans between top-level commas
func topLevelCommaSpans(s string) []span {
	var spans []span
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				spans = append(spans, span{start, i})
				start = i + 1
			}
		}
	}
	return append(spans, span{start, len(s)})
}

// splitAtTopLevelCommas splits a string at commas that are not nested inside angle brackets
// or parentheses. This correctly handles WGSL types like array<FrustumPlane, 6> where the
// comma is part of the type syntax rather than a separator.
//
// Parameters:
//   - s: the string to split
//
// Returns:
//   - []string: substrings between top-level commas
func splitAtTopLevelCommas(s string) []string {
	spans := topLevelCommaSpans(s)
	parts := make([]string, len(spans))
	for i, sp := range spans {
		parts[i] = s[sp.start:sp.end]
	}
	return parts
}

// applyEdits applies non-overlapping edits to source, back to front so earlier spans stay valid.
//
// Parameters:
//   - source: the text to edit
//   - edits: the replacements, in any order
//
// Returns:
//   - string: the edited text
func applyEdits(source string, edits []edit) string {
	sorted := append([]edit(nil), edits...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].at.start > sorted[j].at.start
	})
	for _, e := range sorted {
		source = source[:e.at.start] + e.text + source[e.at.end:]
	}
	return source
}
