package technique

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/shader"
)

// ParameterKind tags the payload of a Parameter.
type ParameterKind int

const (
	// ParameterValue is a plain scalar, vector or matrix uniform.
	ParameterValue ParameterKind = iota
	// ParameterTexture is a sampled texture together with its sampler.
	ParameterTexture
	// ParameterImage is a storage texture.
	ParameterImage
	// ParameterBuffer is a buffer block backed by a GraphicsBuffer.
	ParameterBuffer
)

var parameterKindNames = [...]string{"Value", "Texture", "Image", "Buffer"}

func (k ParameterKind) String() string {
	if k < 0 || int(k) >= len(parameterKindNames) {
		return fmt.Sprintf("ParameterKind(%d)", int(k))
	}
	return parameterKindNames[k]
}

// Parameter is an engine-side value or resource mirrored to one binding of a technique.
// The Kind decides which accessors are meaningful; using an accessor of another kind panics.
type Parameter struct {
	name string
	kind ParameterKind

	value common.Value

	texture   gpu.Texture
	sampler   gpu.Sampler
	dimension gpu.Dimension

	format gpu.TextureFormat
	access gpu.Access

	block   shader.BufferBinding
	buffer  buffer.GraphicsBuffer
	managed bool
}

// NewValueParameter creates a standalone value parameter, as held by a Material.
//
// Parameters:
//   - name: the parameter name
//   - value: the initial value, its element type is the parameter type
//
// Returns:
//   - *Parameter: the parameter
func NewValueParameter(name string, value common.Value) *Parameter {
	return &Parameter{name: name, kind: ParameterValue, value: value}
}

// NewTextureParameter creates a standalone texture parameter, as held by a Material.
//
// Parameters:
//   - name: the parameter name
//   - texture: the texture, nil leaves the technique default in place
//
// Returns:
//   - *Parameter: the parameter
func NewTextureParameter(name string, texture gpu.Texture) *Parameter {
	p := &Parameter{name: name, kind: ParameterTexture, texture: texture}
	if texture != nil {
		p.dimension = texture.Dimension()
	}
	return p
}

func (p *Parameter) mustBe(kind ParameterKind) {
	if p.kind != kind {
		panic(fmt.Sprintf("technique: parameter %q is a %s parameter, not %s", p.name, p.kind, kind))
	}
}

// Name returns the binding name of the parameter.
func (p *Parameter) Name() string {
	return p.name
}

// Kind returns the payload kind of the parameter.
func (p *Parameter) Kind() ParameterKind {
	return p.kind
}

// Type returns the element type of a value parameter, ElementTypeUndefined for every other kind.
func (p *Parameter) Type() common.ElementType {
	if p.kind != ParameterValue {
		return common.ElementTypeUndefined
	}
	return p.value.Type()
}

// Value returns the current value of a value parameter.
func (p *Parameter) Value() common.Value {
	p.mustBe(ParameterValue)
	return p.value
}

// SetValue replaces the value of a value parameter. It panics if the element type differs.
//
// Parameters:
//   - value: the new value
func (p *Parameter) SetValue(value common.Value) {
	p.mustBe(ParameterValue)
	if value.Type() != p.value.Type() {
		panic(fmt.Sprintf("technique: parameter %q is %s, got %s", p.name, p.value.Type(), value.Type()))
	}
	p.value = value
}

// Texture returns the texture of a texture parameter, nil if unset.
func (p *Parameter) Texture() gpu.Texture {
	p.mustBe(ParameterTexture)
	return p.texture
}

// SetTexture replaces the texture of a texture parameter. A nil texture restores the default texture.
//
// Parameters:
//   - texture: the texture
func (p *Parameter) SetTexture(texture gpu.Texture) {
	p.mustBe(ParameterTexture)
	p.texture = texture
}

// Sampler returns the sampler a texture parameter is bound with.
func (p *Parameter) Sampler() gpu.Sampler {
	p.mustBe(ParameterTexture)
	return p.sampler
}

// Dimension returns the texture dimension of a texture or image parameter.
func (p *Parameter) Dimension() gpu.Dimension {
	return p.dimension
}

// Image returns the storage texture of an image parameter, nil if unset.
func (p *Parameter) Image() gpu.Texture {
	p.mustBe(ParameterImage)
	return p.texture
}

// SetImage replaces the storage texture of an image parameter.
//
// Parameters:
//   - image: the storage texture
func (p *Parameter) SetImage(image gpu.Texture) {
	p.mustBe(ParameterImage)
	p.texture = image
}

// Format returns the texel format an image parameter is bound with.
func (p *Parameter) Format() gpu.TextureFormat {
	return p.format
}

// Access returns the access mode an image parameter is bound with.
func (p *Parameter) Access() gpu.Access {
	return p.access
}

// Managed reports whether a buffer parameter is engine-managed. Managed parameters own no buffer,
// one is supplied with SetBuffer.
func (p *Parameter) Managed() bool {
	return p.managed
}

// Block returns the introspected block of a buffer parameter.
func (p *Parameter) Block() shader.BufferBinding {
	p.mustBe(ParameterBuffer)
	return p.block
}

// Fields returns the addressable members of a buffer parameter.
func (p *Parameter) Fields() []shader.MemberBinding {
	p.mustBe(ParameterBuffer)
	return p.block.Members
}

// Buffer returns the buffer backing a buffer parameter, nil for an unset managed parameter.
func (p *Parameter) Buffer() buffer.GraphicsBuffer {
	p.mustBe(ParameterBuffer)
	return p.buffer
}

// SetBuffer replaces the buffer backing a buffer parameter. The previous buffer is not released.
//
// Parameters:
//   - buf: the new buffer, at least as large as the block
//
// Returns:
//   - error: a *buffer.BufferSizeMismatchError if buf is smaller than the block
func (p *Parameter) SetBuffer(buf buffer.GraphicsBuffer) error {
	p.mustBe(ParameterBuffer)
	if buf != nil && buf.Size() < p.block.Size {
		return &buffer.BufferSizeMismatchError{Kind: p.block.Kind, Expected: p.block.Size, Actual: buf.Size()}
	}
	p.buffer = buf
	return nil
}

// fieldOffset resolves element index of a member to its byte offset in the block.
func (p *Parameter) fieldOffset(name string, index int, t common.ElementType) (int, error) {
	m, ok := p.block.Member(name)
	if !ok {
		return 0, fmt.Errorf("technique: block %q has no field %q", p.block.Name, name)
	}
	if m.Type != t {
		return 0, fmt.Errorf("technique: field %q of block %q is %s, got %s", name, p.block.Name, m.Type, t)
	}
	if index < 0 || (m.Count > 0 && index >= m.Count) {
		return 0, fmt.Errorf("technique: index %d out of range for field %q of block %q", index, name, p.block.Name)
	}
	if p.buffer == nil {
		return 0, fmt.Errorf("technique: block %q has no buffer attached", p.block.Name)
	}
	offset := m.Offset + index*m.Stride
	if offset+t.Size() > p.buffer.Size() {
		return 0, fmt.Errorf("technique: field %q[%d] of block %q ends past the %d byte buffer", name, index, p.block.Name, p.buffer.Size())
	}
	return offset, nil
}

// SetField writes one element of a block member into the backing buffer. Only the bytes of the element
// are uploaded, so data the device wrote elsewhere in the buffer is kept.
//
// Parameters:
//   - name: the member name, dotted for nested struct members
//   - index: the array element, 0 for plain members
//   - value: the value, of the member's element type
//
// Returns:
//   - error: an error for an unknown member, a type mismatch, an out of range index or a failed upload
func (p *Parameter) SetField(name string, index int, value common.Value) error {
	p.mustBe(ParameterBuffer)
	offset, err := p.fieldOffset(name, index, value.Type())
	if err != nil {
		return err
	}
	return p.buffer.Update(offset, value.Bytes())
}

// Field reads one element of a block member through a read mapping of the backing buffer.
//
// Parameters:
//   - name: the member name, dotted for nested struct members
//   - index: the array element, 0 for plain members
//   - t: the element type to read
//
// Returns:
//   - common.Value: the value
//   - error: an error for an unknown member, a type mismatch, an out of range index or a failed read back
func (p *Parameter) Field(name string, index int, t common.ElementType) (common.Value, error) {
	p.mustBe(ParameterBuffer)
	offset, err := p.fieldOffset(name, index, t)
	if err != nil {
		return common.Value{}, err
	}
	data, err := p.buffer.Map(buffer.MapReadOnly)
	if err != nil {
		return common.Value{}, err
	}
	v, decodeErr := common.DecodeValue(t, data[offset:])
	if err := p.buffer.Unmap(); err != nil {
		return common.Value{}, err
	}
	return v, decodeErr
}

// Assign copies the payload of src into p. Value parameters must agree on the element type, textures and
// images on the dimension; textures are copied only when src holds one. It panics on a kind, type or
// dimension mismatch.
//
// Parameters:
//   - src: the parameter to copy from
func (p *Parameter) Assign(src *Parameter) {
	if src.kind != p.kind {
		panic(fmt.Sprintf("technique: cannot assign %s parameter %q to %s parameter %q", src.kind, src.name, p.kind, p.name))
	}
	switch p.kind {
	case ParameterValue:
		p.SetValue(src.value)
	case ParameterTexture, ParameterImage:
		if src.texture != nil {
			p.checkDimension(src.texture)
			p.texture = src.texture
		}
	case ParameterBuffer:
		if err := p.SetBuffer(src.buffer); err != nil {
			panic(err)
		}
	}
}

func (p *Parameter) checkDimension(tex gpu.Texture) {
	if p.dimension != "" && tex.Dimension() != p.dimension {
		panic(fmt.Sprintf("technique: parameter %q is a %s binding, got a %s texture", p.name, p.dimension, tex.Dimension()))
	}
}
