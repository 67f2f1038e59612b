package material

import (
	"fmt"
	"log/slog"
	"weak"

	"github.com/Carmen-Shannon/oxy-tech/common"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-tech/engine/renderer/technique"
)

// pair links a parameter owned by the material to the same-named parameter of the bound technique.
type pair struct {
	local  *technique.Parameter
	target weak.Pointer[technique.Parameter]
}

// material is the implementation of the Material interface.
type material struct {
	name       string
	parameters []*technique.Parameter
	byName     map[string]*technique.Parameter

	// boundID is the identity of the technique pairs was built for, 0 when unbound.
	boundID uint64
	pairs   []pair
	version int
}

// Material defines the interface for a reusable, named set of parameter values that can be bound to any
// technique declaring parameters of the same names.
//
// A material does not keep a technique alive. It remembers the identity of the technique it was last
// bound to and holds weak references to that technique's parameters.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Parameters returns the parameters owned by the material in insertion order.
	Parameters() []*technique.Parameter

	// Parameter looks up a parameter owned by the material.
	//
	// Parameters:
	//   - name: the parameter name
	//
	// Returns:
	//   - *technique.Parameter: the parameter, nil if the material has none of that name
	Parameter(name string) *technique.Parameter

	// SetParameter inserts or overwrites a value parameter. Overwriting with a different element type
	// replaces the parameter and drops the current technique binding.
	//
	// Parameters:
	//   - name: the parameter name
	//   - value: the value
	SetParameter(name string, value common.Value)

	// SetTexture inserts or overwrites a texture parameter.
	//
	// Parameters:
	//   - name: the parameter name
	//   - texture: the texture
	SetTexture(name string, texture gpu.Texture)

	// BindToTechnique pairs every technique parameter with the same-named material parameter. Binding to
	// the technique the material is already bound to does nothing. Technique parameters without a
	// material counterpart keep their technique-level values.
	//
	// Parameters:
	//   - t: the technique, nil unbinds
	BindToTechnique(t technique.RenderingTechnique)

	// SetAllTechniqueParameterValues copies every paired material parameter into its technique parameter.
	// It panics when a pair disagrees on kind or element type.
	SetAllTechniqueParameterValues()

	// Bind is BindToTechnique followed by SetAllTechniqueParameterValues.
	//
	// Parameters:
	//   - t: the technique to bind to
	Bind(t technique.RenderingTechnique)

	// BoundTechnique returns the identity of the technique the material is bound to, 0 if unbound.
	BoundTechnique() uint64

	// Version returns how many times the pairing list has been rebuilt.
	Version() int
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		byName: make(map[string]*technique.Parameter),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Parameters() []*technique.Parameter {
	return m.parameters
}

func (m *material) Parameter(name string) *technique.Parameter {
	return m.byName[name]
}

// put stores p under its name. A replaced parameter invalidates the pairs that point at it.
func (m *material) put(p *technique.Parameter) {
	if old, ok := m.byName[p.Name()]; ok {
		for i, q := range m.parameters {
			if q == old {
				m.parameters[i] = p
				break
			}
		}
		m.unbind()
	} else {
		m.parameters = append(m.parameters, p)
	}
	m.byName[p.Name()] = p
}

func (m *material) unbind() {
	m.boundID = 0
	m.pairs = nil
}

func (m *material) SetParameter(name string, value common.Value) {
	if p, ok := m.byName[name]; ok && p.Kind() == technique.ParameterValue && p.Type() == value.Type() {
		p.SetValue(value)
		return
	}
	m.put(technique.NewValueParameter(name, value))
}

func (m *material) SetTexture(name string, texture gpu.Texture) {
	if p, ok := m.byName[name]; ok && p.Kind() == technique.ParameterTexture {
		p.SetTexture(texture)
		return
	}
	m.put(technique.NewTextureParameter(name, texture))
}

func (m *material) BindToTechnique(t technique.RenderingTechnique) {
	if t == nil {
		m.unbind()
		return
	}
	if t.ID() == m.boundID {
		return
	}

	pairs := make([]pair, 0, len(m.parameters))
	for _, target := range t.Parameters() {
		local, ok := m.byName[target.Name()]
		if !ok {
			continue
		}
		pairs = append(pairs, pair{local: local, target: weak.Make(target)})
	}
	m.pairs = pairs
	m.boundID = t.ID()
	m.version++
	common.Logger().Debug("material bound", slog.String("material", m.name), slog.String("technique", t.Name()),
		slog.Int("pairs", len(pairs)))
}

func (m *material) SetAllTechniqueParameterValues() {
	for _, p := range m.pairs {
		target := p.target.Value()
		if target == nil {
			continue
		}
		if target.Kind() != p.local.Kind() {
			panic(fmt.Sprintf("material %q: parameter %q is a %s parameter but the technique declares %s",
				m.name, p.local.Name(), p.local.Kind(), target.Kind()))
		}
		target.Assign(p.local)
	}
}

func (m *material) Bind(t technique.RenderingTechnique) {
	m.BindToTechnique(t)
	m.SetAllTechniqueParameterValues()
}

func (m *material) BoundTechnique() uint64 {
	return m.boundID
}

func (m *material) Version() int {
	return m.version
}
