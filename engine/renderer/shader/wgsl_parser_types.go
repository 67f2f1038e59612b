package shader

import "github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"

// sampledTextureInfo holds the view dimension and multisampled flag for a sampled texture type
type sampledTextureInfo struct {
	dimension    gpu.Dimension
	multisampled bool
}

// wgslTypeLayout holds the byte size and alignment of a WGSL type.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// span is a half-open byte range within a source string. A negative start means absent.
type span struct {
	start, end int
}

// parsedField represents a single field or entry point parameter extracted during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
	// locationDigits is the position of N in @location(N).
	locationDigits span
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}

// resourceDecl is a module-scope @group/@binding variable declaration.
type resourceDecl struct {
	group        int
	binding      int
	addressSpace string
	name         string
	typeName     string

	groupDigits   span
	bindingDigits span
}

// entryPoint describes the interface of one stage's entry function.
type entryPoint struct {
	name string
	// inputs are the parameters carrying @location directly.
	inputs []parsedField
	// inputStructs names the struct types of parameters without attributes.
	inputStructs []string
	// output is set when the return type carries @location directly.
	output *parsedField
	// outputStruct names the struct return type, if any.
	outputStruct string
}

// edit replaces a span of source with text.
type edit struct {
	at   span
	text string
}
