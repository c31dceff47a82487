package binding

import (
	"github.com/cryptogogue/volwal/pkg/schema"
)

// Binding aggregates method bindings of a whole schema against one asset
// pool.
type Binding struct {
	schema  *schema.Schema
	methods map[string]*MethodBinding
	order   []string
}

// New creates an empty binding with no methods.
func New() *Binding {
	return &Binding{methods: make(map[string]*MethodBinding)}
}

// Rebuild recreates method bindings for every method of the schema.
func (b *Binding) Rebuild(s *schema.Schema, pool *schema.AssetPool, filter Filter) {
	ms := s.Methods()
	b.schema = s
	b.methods = make(map[string]*MethodBinding, len(ms))
	b.order = make([]string, 0, len(ms))
	for _, m := range ms {
		mb := NewMethodBinding(m)
		mb.Rebuild(pool, filter)
		b.methods[m.Name] = mb
		b.order = append(b.order, m.Name)
	}
}

// Schema returns the schema of the last Rebuild.
func (b *Binding) Schema() *schema.Schema {
	return b.schema
}

// Method returns schema method by name.
func (b *Binding) Method(name string) (*schema.Method, bool) {
	mb, ok := b.methods[name]
	if !ok {
		return nil, false
	}
	return mb.Method(), true
}

// MethodBinding returns binding of the named method.
func (b *Binding) MethodBinding(name string) (*MethodBinding, bool) {
	mb, ok := b.methods[name]
	return mb, ok
}

// MethodBindings returns all method bindings in schema order.
func (b *Binding) MethodBindings() []*MethodBinding {
	res := make([]*MethodBinding, 0, len(b.order))
	for _, name := range b.order {
		res = append(res, b.methods[name])
	}
	return res
}

// ValidMethods returns names of methods that have at least one complete
// invocation available.
func (b *Binding) ValidMethods() []string {
	var res []string
	for _, name := range b.order {
		if b.methods[name].Valid() {
			res = append(res, name)
		}
	}
	return res
}
