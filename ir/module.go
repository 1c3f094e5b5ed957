package ir

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/ironhold/ygen"
)

// Module is the top-level compilation unit: an ordered mapping from name to
// Function and from name to Constant, fixed to one target Triple at
// construction. Ordering is preserved (not map iteration order) because the
// object writer and Dump printer both need deterministic output.
type Module struct {
	Triple ygen.Triple

	funcNames []string
	funcs     map[string]*Function

	constNames []string
	consts     map[string]Constant
}

// NewModule creates an empty module fixed to triple.
func NewModule(triple ygen.Triple) *Module {
	return &Module{
		Triple: triple,
		funcs:  make(map[string]*Function),
		consts: make(map[string]Constant),
	}
}

// AddFunction inserts fn, keyed by fn.Name. Returns an error if the name is
// already taken by another function.
func (m *Module) AddFunction(fn *Function) error {
	if _, ok := m.funcs[fn.Name]; ok {
		return errors.Errorf("ir: duplicate function %q", fn.Name)
	}
	m.funcNames = append(m.funcNames, fn.Name)
	m.funcs[fn.Name] = fn
	return nil
}

// AddConstant inserts c, keyed by c.Name. Returns an error if the name is
// already taken by another constant.
func (m *Module) AddConstant(c Constant) error {
	if _, ok := m.consts[c.Name]; ok {
		return errors.Errorf("ir: duplicate constant %q", c.Name)
	}
	m.constNames = append(m.constNames, c.Name)
	m.consts[c.Name] = c
	return nil
}

// Function looks up a function by name.
func (m *Module) Function(name string) (*Function, bool) {
	fn, ok := m.funcs[name]
	return fn, ok
}

// Constant looks up a constant by name.
func (m *Module) Constant(name string) (Constant, bool) {
	c, ok := m.consts[name]
	return c, ok
}

// Functions returns every function in insertion order.
func (m *Module) Functions() []*Function {
	return lo.Map(m.funcNames, func(name string, _ int) *Function { return m.funcs[name] })
}

// Constants returns every constant in insertion order.
func (m *Module) Constants() []Constant {
	return lo.Map(m.constNames, func(name string, _ int) Constant { return m.consts[name] })
}
