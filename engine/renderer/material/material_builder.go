package material

import (
	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithValue is an option builder that sets an initial value parameter.
//
// Parameters:
//   - name: the parameter name, matched against technique parameter names
//   - value: the initial value
//
// Returns:
//   - MaterialBuilderOption: a function that applies the value to a material
func WithValue(name string, value common.Value) MaterialBuilderOption {
	return func(m *material) {
		m.SetParameter(name, value)
	}
}

// WithTexture is an option builder that sets an initial texture parameter.
//
// Parameters:
//   - name: the parameter name, matched against technique texture names
//   - texture: the texture
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture to a material
func WithTexture(name string, texture gpu.Texture) MaterialBuilderOption {
	return func(m *material) {
		m.SetTexture(name, texture)
	}
}

// WithBaseColor sets the vec4 parameter "base_color".
func WithBaseColor(color [4]float32) MaterialBuilderOption {
	return WithValue("base_color", common.Vec4Value(mgl32.Vec4(color)))
}

// WithMetallic sets the f32 parameter "metallic".
func WithMetallic(metallic float32) MaterialBuilderOption {
	return WithValue("metallic", common.FloatValue(metallic))
}

// WithRoughness sets the f32 parameter "roughness".
func WithRoughness(roughness float32) MaterialBuilderOption {
	return WithValue("roughness", common.FloatValue(roughness))
}
