package objects

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/schema"
)

// Instance is an instantiated domain object: mapping-style access over
// resolved attribute values, tagged with its model id and carrying a
// back-reference to the model definition for introspection.
//
// Stored data holds only plain values (maps, slices, scalars). Keys the
// model does not declare are preserved untouched, which keeps bookkeeping
// fields like "id" intact across create/serialize round trips. Derived
// attributes are never stored; they are computed from sibling values on
// every read.
type Instance struct {
	rm   *resolvedModel
	data map[string]any
	svc  *Service
}

// ModelID returns the id of the model this object was instantiated from.
func (i *Instance) ModelID() string { return i.rm.def.ID }

// Model returns the model definition backing this object.
func (i *Instance) Model() *domain.ModelDefinition { return i.rm.def }

// Get returns the value of one attribute. Derived attributes are computed
// on the fly; a derived attribute whose formula fails reports absent.
func (i *Instance) Get(name string) (any, bool) {
	if attr, ok := i.rm.attributes[name]; ok && attr.IsDerived() {
		v, err := i.svc.evalDerived(attr.Derived, i.data)
		if err != nil {
			return nil, false
		}
		return v, true
	}
	v, ok := i.data[name]
	return v, ok
}

// Set stores a new attribute value. Primitive attributes coerce to their
// declared type; writing a derived attribute is an error.
func (i *Instance) Set(name string, value any) error {
	if attr, ok := i.rm.attributes[name]; ok {
		if attr.IsDerived() {
			return fmt.Errorf("cannot set derived attribute '%s'", name)
		}
		if schema.IsPrimitive(attr.Type) {
			coerced, err := schema.Coerce(value, attr.Type, fmt.Sprintf("attribute '%s'", name))
			if err != nil {
				return err
			}
			value = coerced
		}
	}
	i.data[name] = value
	return nil
}

// Has reports whether the attribute currently holds a value (or computes
// one, for derived attributes).
func (i *Instance) Has(name string) bool {
	_, ok := i.Get(name)
	return ok
}

// Keys returns the sorted names of every stored key plus computable derived
// attributes.
func (i *Instance) Keys() []string {
	seen := make(map[string]bool, len(i.data)+1)
	for k := range i.data {
		seen[k] = true
	}
	for name, attr := range i.rm.attributes {
		if attr.IsDerived() && i.Has(name) {
			seen[name] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToMap renders the object as plain data: the model tag, every stored
// value, and every derived attribute that computes cleanly. The result is
// safe to store in a flow context or serialize to JSON.
func (i *Instance) ToMap() map[string]any {
	out := make(map[string]any, len(i.data)+2)
	out["model"] = i.rm.def.ID
	for k, v := range i.data {
		out[k] = deepCopy(v)
	}
	for name, attr := range i.rm.attributes {
		if !attr.IsDerived() {
			continue
		}
		if v, err := i.svc.evalDerived(attr.Derived, i.data); err == nil {
			out[name] = v
		}
	}
	return out
}

// String renders a compact human-readable form, mostly for logs.
func (i *Instance) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s{", i.rm.def.ID)
	for idx, k := range i.Keys() {
		if idx > 0 {
			b.WriteString(", ")
		}
		v, _ := i.Get(k)
		fmt.Fprintf(&b, "%s: %v", k, v)
	}
	b.WriteString("}")
	return b.String()
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for idx, e := range t {
			out[idx] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}
