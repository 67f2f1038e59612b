package common

import "strings"

// ElementType identifies the data type of a vertex channel, an index, a buffer member or a typed parameter value.
type ElementType int

const (
	// ElementTypeUndefined is the zero value and never valid for data.
	ElementTypeUndefined ElementType = iota
	Float
	FloatV2
	FloatV3
	FloatV4
	Int
	IntV2
	IntV3
	IntV4
	Uint
	UintV2
	UintV3
	UintV4
	// UByteV4 is four normalized or integer bytes, only meaningful as vertex data.
	UByteV4
	// Uint16 is a 16-bit unsigned integer, only meaningful as index data.
	Uint16
	FloatMat2
	FloatMat3
	FloatMat4
)

// elementInfo describes the layout properties of an ElementType.
type elementInfo struct {
	name       string
	wgsl       string
	size       int
	packedSize int
	align      int
	columns    int
	components int
}

var elementInfoTable = map[ElementType]elementInfo{
	Float:     {"Float", "f32", 4, 4, 4, 1, 1},
	FloatV2:   {"FloatV2", "vec2<f32>", 8, 8, 8, 1, 2},
	FloatV3:   {"FloatV3", "vec3<f32>", 12, 12, 16, 1, 3},
	FloatV4:   {"FloatV4", "vec4<f32>", 16, 16, 16, 1, 4},
	Int:       {"Int", "i32", 4, 4, 4, 1, 1},
	IntV2:     {"IntV2", "vec2<i32>", 8, 8, 8, 1, 2},
	IntV3:     {"IntV3", "vec3<i32>", 12, 12, 16, 1, 3},
	IntV4:     {"IntV4", "vec4<i32>", 16, 16, 16, 1, 4},
	Uint:      {"Uint", "u32", 4, 4, 4, 1, 1},
	UintV2:    {"UintV2", "vec2<u32>", 8, 8, 8, 1, 2},
	UintV3:    {"UintV3", "vec3<u32>", 12, 12, 16, 1, 3},
	UintV4:    {"UintV4", "vec4<u32>", 16, 16, 16, 1, 4},
	UByteV4:   {"UByteV4", "", 4, 4, 4, 1, 4},
	Uint16:    {"Uint16", "", 2, 2, 2, 1, 1},
	FloatMat2: {"FloatMat2", "mat2x2<f32>", 16, 16, 8, 2, 2},
	FloatMat3: {"FloatMat3", "mat3x3<f32>", 48, 36, 16, 3, 3},
	FloatMat4: {"FloatMat4", "mat4x4<f32>", 64, 64, 16, 4, 4},
}

// wgslAliases maps the WGSL shorthand spellings onto their element types.
var wgslAliases = map[string]ElementType{
	"vec2f":   FloatV2,
	"vec3f":   FloatV3,
	"vec4f":   FloatV4,
	"vec2i":   IntV2,
	"vec3i":   IntV3,
	"vec4i":   IntV4,
	"vec2u":   UintV2,
	"vec3u":   UintV3,
	"vec4u":   UintV4,
	"mat2x2f": FloatMat2,
	"mat3x3f": FloatMat3,
	"mat4x4f": FloatMat4,
}

// ParseElementType resolves an element type from its Go name ("FloatV3") or a WGSL spelling
// ("vec3<f32>", "vec3f"). Whitespace inside angle brackets is ignored.
//
// Parameters:
//   - s: the name to resolve
//
// Returns:
//   - ElementType: the resolved type, or ElementTypeUndefined
//   - bool: true if the name was recognized
func ParseElementType(s string) (ElementType, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if t, ok := wgslAliases[s]; ok {
		return t, true
	}
	for t, info := range elementInfoTable {
		if info.name == s || (info.wgsl != "" && info.wgsl == s) {
			return t, true
		}
	}
	return ElementTypeUndefined, false
}

// String returns the Go name of the element type.
func (t ElementType) String() string {
	if info, ok := elementInfoTable[t]; ok {
		return info.name
	}
	return "Undefined"
}

// WGSL returns the WGSL type name used to declare values of this type in shader source.
// Data-only types (UByteV4, Uint16) return an empty string.
func (t ElementType) WGSL() string {
	return elementInfoTable[t].wgsl
}

// Size returns the byte size of the type in WGSL host-shareable layout (mat3x3 is 48 bytes).
func (t ElementType) Size() int {
	return elementInfoTable[t].size
}

// PackedSize returns the tightly packed byte size of the type as vertex or index data.
func (t ElementType) PackedSize() int {
	return elementInfoTable[t].packedSize
}

// Align returns the WGSL alignment of the type.
func (t ElementType) Align() int {
	return elementInfoTable[t].align
}

// Columns returns the number of columns for matrix types and 1 for everything else.
func (t ElementType) Columns() int {
	return elementInfoTable[t].columns
}

// Components returns the number of scalar components per column.
func (t ElementType) Components() int {
	return elementInfoTable[t].components
}

// IsMatrix reports whether the type is a matrix.
func (t ElementType) IsMatrix() bool {
	return t == FloatMat2 || t == FloatMat3 || t == FloatMat4
}

// ColumnType returns the vector type of a single matrix column, or the type itself for non-matrix types.
func (t ElementType) ColumnType() ElementType {
	switch t {
	case FloatMat2:
		return FloatV2
	case FloatMat3:
		return FloatV3
	case FloatMat4:
		return FloatV4
	default:
		return t
	}
}

// LocationCount returns the number of consecutive vertex attribute locations a value of this type consumes.
// Matrix attributes always reserve 4 locations.
func (t ElementType) LocationCount() int {
	if t.IsMatrix() {
		return 4
	}
	return 1
}

// Valid reports whether t is one of the defined element types.
func (t ElementType) Valid() bool {
	_, ok := elementInfoTable[t]
	return ok
}
