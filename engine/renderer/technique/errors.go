package technique

import "fmt"

// FramebufferMismatchError reports a framebuffer layout requirement that is missing, duplicated or
// incompatible with the technique's outputs and depth-stencil usage.
type FramebufferMismatchError struct {
	Technique string
	Reason    string
}

func (e *FramebufferMismatchError) Error() string {
	return fmt.Sprintf("technique %q: framebuffer mismatch: %s", e.Technique, e.Reason)
}

// MissingSamplerMappingError reports a texture whose sampler state name is not declared by any include.
type MissingSamplerMappingError struct {
	Technique string
	Texture   string
	Sampler   string
}

func (e *MissingSamplerMappingError) Error() string {
	if e.Sampler == "" {
		return fmt.Sprintf("technique %q: texture %q names no sampler state", e.Technique, e.Texture)
	}
	return fmt.Sprintf("technique %q: texture %q uses undeclared sampler state %q", e.Technique, e.Texture, e.Sampler)
}

// UnconnectedFramebufferError is the panic value of Use on a technique without a connected framebuffer.
type UnconnectedFramebufferError struct {
	Technique string
}

func (e *UnconnectedFramebufferError) Error() string {
	return fmt.Sprintf("technique %q: Use called before ConnectFrameBuffer", e.Technique)
}
