package common

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseElementType(t *testing.T) {
	cases := map[string]ElementType{
		"FloatV3":     FloatV3,
		"vec3<f32>":   FloatV3,
		"vec3f":       FloatV3,
		"vec4< f32 >": FloatV4,
		"mat4x4<f32>": FloatMat4,
		"mat3x3f":     FloatMat3,
		"u32":         Uint,
		"vec2i":       IntV2,
		"Uint16":      Uint16,
	}
	for name, want := range cases {
		got, ok := ParseElementType(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := ParseElementType("texture_2d<f32>")
	assert.False(t, ok)
}

func TestElementTypeLayout(t *testing.T) {
	assert.Equal(t, 12, FloatV3.Size())
	assert.Equal(t, 16, FloatV3.Align())
	assert.Equal(t, 48, FloatMat3.Size())
	assert.Equal(t, 36, FloatMat3.PackedSize())
	assert.Equal(t, 4, FloatMat3.LocationCount())
	assert.Equal(t, 4, FloatMat2.LocationCount())
	assert.Equal(t, 1, FloatV4.LocationCount())
	assert.Equal(t, FloatV3, FloatMat3.ColumnType())
	assert.Equal(t, 2, Uint16.PackedSize())
	assert.False(t, ElementTypeUndefined.Valid())
}

func TestValueAccessors(t *testing.T) {
	v := Vec3Value(mgl32.Vec3{1, 2, 3})
	assert.Equal(t, FloatV3, v.Type())
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, v.Vec3())
	assert.Panics(t, func() { v.Vec4() })

	m := Mat4Value(mgl32.Ident4())
	assert.Equal(t, mgl32.Ident4(), m.Mat4())

	assert.Equal(t, []int32{1, -2, 3}, IntVecValue(1, -2, 3).Ints())
	assert.Equal(t, IntV3, IntVecValue(1, -2, 3).Type())
	assert.Panics(t, func() { IntVecValue(1) })

	assert.True(t, FloatValue(2).Equal(FloatValue(2)))
	assert.False(t, FloatValue(2).Equal(IntValue(2)))
}

func TestValueBytesPadsMat3Columns(t *testing.T) {
	m := Mat3Value(mgl32.Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9})
	b := m.Bytes()
	require.Len(t, b, 48)

	read := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b[off:])) }
	assert.Equal(t, float32(1), read(0))
	assert.Equal(t, float32(3), read(8))
	assert.Equal(t, float32(0), read(12))
	assert.Equal(t, float32(4), read(16))
	assert.Equal(t, float32(9), read(40))

	decoded, err := DecodeValue(FloatMat3, b)
	require.NoError(t, err)
	assert.True(t, decoded.Equal(m))
}

func TestDecodeValueErrors(t *testing.T) {
	_, err := DecodeValue(FloatV4, make([]byte, 8))
	assert.Error(t, err)

	_, err = DecodeValue(Uint16, make([]byte, 8))
	assert.Error(t, err)
}
