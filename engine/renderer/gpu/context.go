package gpu

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-tech/common"
)

// Context owns a Device and the engine-wide resources shared by every technique built on it.
type Context struct {
	device   Device
	debug    bool
	defaults map[Dimension]Texture
}

// ContextOption is a functional option used to configure a Context.
type ContextOption func(*Context)

// WithDebug toggles debug validation, such as framebuffer compatibility checks on connect.
//
// Parameters:
//   - debug: whether debug checks run
//
// Returns:
//   - ContextOption: a function that sets the debug flag
func WithDebug(debug bool) ContextOption {
	return func(c *Context) {
		c.debug = debug
	}
}

// NewContext wraps device and creates a 1x1 opaque white default texture for every dimension.
//
// Parameters:
//   - device: the device to render with
//   - opts: a variadic list of ContextOption functions
//
// Returns:
//   - *Context: the created context
//   - error: an error if a default texture cannot be created
func NewContext(device Device, opts ...ContextOption) (*Context, error) {
	c := &Context{
		device:   device,
		defaults: make(map[Dimension]Texture, len(Dimensions)),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, dim := range Dimensions {
		layers := uint32(1)
		if dim == DimensionCube || dim == DimensionCubeArray {
			layers = 6
		}
		pixels := make([]byte, 4*layers)
		for i := range pixels {
			pixels[i] = 0xff
		}
		tex, err := device.NewTexture(TextureDesc{
			Label:     "oxy default " + string(dim),
			Dimension: dim,
			Format:    FormatRGBA8Unorm,
			Usage:     TextureSampled,
			Data:      common.TextureStagingData{Pixels: pixels, Width: 1, Height: 1, Layers: layers},
		})
		if err != nil {
			c.Release()
			return nil, fmt.Errorf("failed to create default %s texture: %w", dim, err)
		}
		c.defaults[dim] = tex
	}

	common.Logger().Info("gpu context created", slog.String("version", device.Version()), slog.Bool("debug", c.debug))
	return c, nil
}

// Device returns the wrapped device.
func (c *Context) Device() Device {
	return c.device
}

// Version returns the device version string, used as the header of every compiled shader.
func (c *Context) Version() string {
	return c.device.Version()
}

// Debug reports whether debug checks are enabled.
func (c *Context) Debug() bool {
	return c.debug
}

// DefaultTexture returns the texture bound in place of an unset texture parameter of dimension dim.
//
// Parameters:
//   - dim: the texture dimension
//
// Returns:
//   - Texture: the default texture, or nil for an unknown dimension
func (c *Context) DefaultTexture(dim Dimension) Texture {
	return c.defaults[dim]
}

// Release frees the default textures. The device itself stays owned by the caller.
func (c *Context) Release() {
	for dim, tex := range c.defaults {
		tex.Release()
		delete(c.defaults, dim)
	}
}
