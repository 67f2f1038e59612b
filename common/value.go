package common

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Value is a typed scalar, vector or matrix value. The payload holds raw 32-bit words in column-major order,
// interpreted according to the element type tag.
type Value struct {
	typ   ElementType
	words [16]uint32
}

func floatValue(t ElementType, fs ...float32) Value {
	v := Value{typ: t}
	for i, f := range fs {
		v.words[i] = math.Float32bits(f)
	}
	return v
}

// FloatValue creates a Float value.
func FloatValue(f float32) Value { return floatValue(Float, f) }

// Vec2Value creates a FloatV2 value.
func Vec2Value(vec mgl32.Vec2) Value { return floatValue(FloatV2, vec[:]...) }

// Vec3Value creates a FloatV3 value.
func Vec3Value(vec mgl32.Vec3) Value { return floatValue(FloatV3, vec[:]...) }

// Vec4Value creates a FloatV4 value.
func Vec4Value(vec mgl32.Vec4) Value { return floatValue(FloatV4, vec[:]...) }

// Mat2Value creates a FloatMat2 value.
func Mat2Value(m mgl32.Mat2) Value { return floatValue(FloatMat2, m[:]...) }

// Mat3Value creates a FloatMat3 value.
func Mat3Value(m mgl32.Mat3) Value { return floatValue(FloatMat3, m[:]...) }

// Mat4Value creates a FloatMat4 value.
func Mat4Value(m mgl32.Mat4) Value { return floatValue(FloatMat4, m[:]...) }

// IntValue creates an Int value.
func IntValue(i int32) Value {
	return Value{typ: Int, words: [16]uint32{uint32(i)}}
}

// IntVecValue creates an IntV2, IntV3 or IntV4 value depending on the number of components given.
func IntVecValue(components ...int32) Value {
	types := map[int]ElementType{2: IntV2, 3: IntV3, 4: IntV4}
	t, ok := types[len(components)]
	if !ok {
		panic(fmt.Sprintf("common: IntVecValue requires 2 to 4 components, got %d", len(components)))
	}
	v := Value{typ: t}
	for i, c := range components {
		v.words[i] = uint32(c)
	}
	return v
}

// UintValue creates a Uint value.
func UintValue(u uint32) Value {
	return Value{typ: Uint, words: [16]uint32{u}}
}

// UintVecValue creates a UintV2, UintV3 or UintV4 value depending on the number of components given.
func UintVecValue(components ...uint32) Value {
	types := map[int]ElementType{2: UintV2, 3: UintV3, 4: UintV4}
	t, ok := types[len(components)]
	if !ok {
		panic(fmt.Sprintf("common: UintVecValue requires 2 to 4 components, got %d", len(components)))
	}
	v := Value{typ: t}
	copy(v.words[:], components)
	return v
}

// ZeroValue returns the zero value of the given element type.
func ZeroValue(t ElementType) Value {
	return Value{typ: t}
}

// Type returns the element type tag of the value.
func (v Value) Type() ElementType {
	return v.typ
}

func (v Value) mustBe(t ElementType) {
	if v.typ != t {
		panic(fmt.Sprintf("common: value of type %s read as %s", v.typ, t))
	}
}

func (v Value) floats(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(v.words[i])
	}
	return out
}

// Float returns the value as a float32. Panics if the value is not a Float.
func (v Value) Float() float32 {
	v.mustBe(Float)
	return math.Float32frombits(v.words[0])
}

// Vec2 returns the value as an mgl32.Vec2. Panics if the value is not a FloatV2.
func (v Value) Vec2() mgl32.Vec2 {
	v.mustBe(FloatV2)
	return mgl32.Vec2(v.floats(2))
}

// Vec3 returns the value as an mgl32.Vec3. Panics if the value is not a FloatV3.
func (v Value) Vec3() mgl32.Vec3 {
	v.mustBe(FloatV3)
	return mgl32.Vec3(v.floats(3))
}

// Vec4 returns the value as an mgl32.Vec4. Panics if the value is not a FloatV4.
func (v Value) Vec4() mgl32.Vec4 {
	v.mustBe(FloatV4)
	return mgl32.Vec4(v.floats(4))
}

// Mat2 returns the value as an mgl32.Mat2. Panics if the value is not a FloatMat2.
func (v Value) Mat2() mgl32.Mat2 {
	v.mustBe(FloatMat2)
	return mgl32.Mat2(v.floats(4))
}

// Mat3 returns the value as an mgl32.Mat3. Panics if the value is not a FloatMat3.
func (v Value) Mat3() mgl32.Mat3 {
	v.mustBe(FloatMat3)
	return mgl32.Mat3(v.floats(9))
}

// Mat4 returns the value as an mgl32.Mat4. Panics if the value is not a FloatMat4.
func (v Value) Mat4() mgl32.Mat4 {
	v.mustBe(FloatMat4)
	return mgl32.Mat4(v.floats(16))
}

// Int returns the first integer component. Panics if the value is not an Int.
func (v Value) Int() int32 {
	v.mustBe(Int)
	return int32(v.words[0])
}

// Uint returns the first unsigned component. Panics if the value is not a Uint.
func (v Value) Uint() uint32 {
	v.mustBe(Uint)
	return v.words[0]
}

// Ints returns every component of an integer vector.
func (v Value) Ints() []int32 {
	out := make([]int32, v.typ.Components())
	for i := range out {
		out[i] = int32(v.words[i])
	}
	return out
}

// Uints returns every component of an unsigned vector.
func (v Value) Uints() []uint32 {
	out := make([]uint32, v.typ.Components())
	copy(out, v.words[:])
	return out
}

// Equal reports whether two values have the same type and payload.
func (v Value) Equal(o Value) bool {
	return v.typ == o.typ && v.words == o.words
}

// Bytes encodes the value in WGSL host-shareable layout: little endian, matrix columns padded to their alignment.
//
// Returns:
//   - []byte: Size() bytes of encoded data
func (v Value) Bytes() []byte {
	out := make([]byte, v.typ.Size())
	cols := v.typ.Columns()
	rows := v.typ.Components()
	colType := v.typ.ColumnType()
	stride := colType.Size()
	if cols > 1 {
		stride = max(colType.Size(), colType.Align())
	}
	for c := range cols {
		for r := range rows {
			off := c*stride + r*4
			if off+4 > len(out) {
				continue
			}
			binary.LittleEndian.PutUint32(out[off:], v.words[c*rows+r])
		}
	}
	return out
}

// DecodeValue decodes a value of the given type from WGSL host-shareable layout bytes.
//
// Parameters:
//   - t: the element type to decode
//   - data: at least t.Size() bytes
//
// Returns:
//   - Value: the decoded value
//   - error: an error if data is too short or the type is not a value type
func DecodeValue(t ElementType, data []byte) (Value, error) {
	if !t.Valid() || t.WGSL() == "" {
		return Value{}, fmt.Errorf("common: %s is not a value type", t)
	}
	if len(data) < t.Size() {
		return Value{}, fmt.Errorf("common: decoding %s needs %d bytes, got %d", t, t.Size(), len(data))
	}
	v := Value{typ: t}
	cols := t.Columns()
	rows := t.Components()
	colType := t.ColumnType()
	stride := colType.Size()
	if cols > 1 {
		stride = max(colType.Size(), colType.Align())
	}
	for c := range cols {
		for r := range rows {
			v.words[c*rows+r] = binary.LittleEndian.Uint32(data[c*stride+r*4:])
		}
	}
	return v, nil
}

func (v Value) String() string {
	switch v.typ {
	case Int, IntV2, IntV3, IntV4:
		return fmt.Sprintf("%s%v", v.typ, v.Ints())
	case Uint, UintV2, UintV3, UintV4:
		return fmt.Sprintf("%s%v", v.typ, v.Uints())
	case ElementTypeUndefined:
		return "Undefined"
	default:
		return fmt.Sprintf("%s%v", v.typ, v.floats(v.typ.Columns()*v.typ.Components()))
	}
}
