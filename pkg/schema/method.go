package schema

import (
	"errors"
	"fmt"
)

// ErrDuplicateMethod is returned when a schema declares the same method
// twice.
var ErrDuplicateMethod = errors.New("duplicate method")

// ErrDuplicateParam is returned when a method declares the same parameter
// name twice.
var ErrDuplicateParam = errors.New("duplicate parameter")

// Qualifier restricts the set of assets acceptable for a parameter. An empty
// Type matches any asset type.
type Qualifier struct {
	Type string   `yaml:"type,omitempty" json:"type,omitempty"`
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Matches checks whether the asset satisfies the qualifier.
func (q Qualifier) Matches(a *Asset) bool {
	if a == nil {
		return false
	}
	if q.Type != "" && q.Type != a.Type {
		return false
	}
	for _, t := range q.Tags {
		if !a.HasTag(t) {
			return false
		}
	}
	return true
}

// Param is a named method parameter.
type Param struct {
	Name      string `yaml:"name" json:"name"`
	Qualifier `yaml:",inline"`
}

// Method is a parameterized crafting operation. Asset and constant
// parameters are kept in declaration order.
type Method struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	AssetArgs   []Param `yaml:"assetArgs,omitempty" json:"assetArgs,omitempty"`
	ConstArgs   []Param `yaml:"constArgs,omitempty" json:"constArgs,omitempty"`
	Weight      uint64  `yaml:"weight" json:"weight"`
	Maturity    uint64  `yaml:"maturity" json:"maturity"`
}

// AssetParam returns the asset parameter by name.
func (m *Method) AssetParam(name string) (Param, bool) {
	for _, p := range m.AssetArgs {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// ConstParam returns the constant parameter by name.
func (m *Method) ConstParam(name string) (Param, bool) {
	for _, p := range m.ConstArgs {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// AssetParamNames returns asset parameter names in declaration order.
func (m *Method) AssetParamNames() []string {
	return paramNames(m.AssetArgs)
}

// ConstParamNames returns constant parameter names in declaration order.
func (m *Method) ConstParamNames() []string {
	return paramNames(m.ConstArgs)
}

func paramNames(ps []Param) []string {
	res := make([]string, len(ps))
	for i := range ps {
		res[i] = ps[i].Name
	}
	return res
}

func (m *Method) validate() error {
	if m.Name == "" {
		return errors.New("method with empty name")
	}
	var seen = make(map[string]bool, len(m.AssetArgs)+len(m.ConstArgs))
	for _, ps := range [][]Param{m.AssetArgs, m.ConstArgs} {
		for _, p := range ps {
			if p.Name == "" {
				return fmt.Errorf("method %s: parameter with empty name", m.Name)
			}
			if seen[p.Name] {
				return fmt.Errorf("method %s: %w: %s", m.Name, ErrDuplicateParam, p.Name)
			}
			seen[p.Name] = true
		}
	}
	return nil
}

// Schema is an ordered catalog of methods.
type Schema struct {
	methods []*Method
	byName  map[string]*Method
}

// New creates a schema from the given methods checking them for
// consistency.
func New(methods ...*Method) (*Schema, error) {
	s := &Schema{
		methods: make([]*Method, 0, len(methods)),
		byName:  make(map[string]*Method, len(methods)),
	}
	for _, m := range methods {
		if err := m.validate(); err != nil {
			return nil, err
		}
		if _, ok := s.byName[m.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMethod, m.Name)
		}
		s.methods = append(s.methods, m)
		s.byName[m.Name] = m
	}
	return s, nil
}

// Method returns a method by name.
func (s *Schema) Method(name string) (*Method, bool) {
	if s == nil {
		return nil, false
	}
	m, ok := s.byName[name]
	return m, ok
}

// Methods returns all methods in declaration order.
func (s *Schema) Methods() []*Method {
	if s == nil {
		return nil
	}
	res := make([]*Method, len(s.methods))
	copy(res, s.methods)
	return res
}
