package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
)

const (
	// ReservedPrefix marks engine-managed resources. Buffers whose name starts with it are not
	// allocated by a technique; the caller attaches them.
	ReservedPrefix = "oxy_"

	// DefaultUniformBlock is the variable name of the block holding the plain uniforms of a program.
	DefaultUniformBlock = ReservedPrefix + "defaults"

	// SamplerSuffix is appended to a texture name to form the name of its sampler variable.
	SamplerSuffix = "_sampler"

	defaultUniformStruct = "OxyDefaults"
)

// DefaultUniformPrelude generates the WGSL declaration of the default uniform block. Each plain
// uniform is a member of the block and is read in WGSL as oxy_defaults.<name>.
//
// Parameters:
//   - uniforms: the plain uniforms, in declaration order
//
// Returns:
//   - string: the WGSL prelude, empty when there are no uniforms
func DefaultUniformPrelude(uniforms []Variable) string {
	if len(uniforms) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "struct %s {\n", defaultUniformStruct)
	for _, u := range uniforms {
		fmt.Fprintf(&sb, "    %s: %s,\n", u.Name, u.Type.WGSL())
	}
	sb.WriteString("}\n")
	fmt.Fprintf(&sb, "@group(%d) @binding(0) var<uniform> %s: %s;\n", gpu.GroupDefaultUniforms, DefaultUniformBlock, defaultUniformStruct)
	return sb.String()
}
