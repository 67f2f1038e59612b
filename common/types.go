// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// TextureStagingData holds pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the raw texel data, tightly packed, layer after layer.
	Pixels []byte
	// Width is the width of the texture in texels.
	Width uint32
	// Height is the height of the texture in texels.
	Height uint32
	// Layers is the depth or array layer count. Zero is treated as one.
	Layers uint32
}

// LayerCount returns the number of depth or array layers, treating zero as one.
func (t TextureStagingData) LayerCount() uint32 {
	return Coalesce(t.Layers, 1)
}
