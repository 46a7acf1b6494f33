package attr

import (
	"fmt"
	"math"
	"strconv"
)

// Value is an attribute value. The set of implementations is closed:
// String, Int, Float, Bool, *Mapping and Sequence.
type Value interface {
	isValue()
}

// String is a scalar string value.
type String string

// Int is a scalar integer value.
type Int int64

// Float is a scalar floating point value.
type Float float64

// Bool is a scalar boolean value.
type Bool bool

// Sequence is an ordered list of values.
type Sequence []Value

// Mapping is an ordered key→Value container nested inside an attribute.
// It marshals to a plain JSON object (its literal contents).
type Mapping struct {
	ordered
}

func (String) isValue()   {}
func (Int) isValue()      {}
func (Float) isValue()    {}
func (Bool) isValue()     {}
func (Sequence) isValue() {}
func (*Mapping) isValue() {}

// MarshalJSON keeps a decimal point on integral floats so they decode back
// as Float rather than Int.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("unsupported float value: %v", v)
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if v == math.Trunc(v) && math.Abs(v) < 1e21 {
		s = strconv.FormatFloat(v, 'f', 1, 64)
	}
	return []byte(s), nil
}

// NewMapping returns an empty Mapping.
func NewMapping() *Mapping {
	return &Mapping{}
}

// Clone returns a deep copy of the mapping.
func (m *Mapping) Clone() *Mapping {
	if m == nil {
		return nil
	}
	return &Mapping{ordered: m.ordered.clone()}
}

// Clone returns a deep copy of the sequence.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	for i, v := range s {
		out[i] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	switch x := v.(type) {
	case *Mapping:
		return x.Clone()
	case Sequence:
		return x.Clone()
	default:
		return v
	}
}

// Equal reports whether two values have the same variant and contents.
// Mapping equality is order-sensitive.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case String, Int, Float, Bool:
		return a == b
	case Sequence:
		y, ok := b.(Sequence)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Mapping:
		y, ok := b.(*Mapping)
		if !ok {
			return false
		}
		if x == nil || y == nil {
			return x == y
		}
		return x.ordered.equal(&y.ordered)
	default:
		return a == nil && b == nil
	}
}

// Map is the attribute set of an entity: an ordered name→Value mapping.
// Unlike Mapping it marshals to the wire form produced by Serialize.
// The zero value is an empty set.
type Map struct {
	ordered
}

// Clone returns a deep copy of the attribute set.
func (m Map) Clone() Map {
	return Map{ordered: m.ordered.clone()}
}

// Merge sets every entry of other on m, in other's order.
func (m *Map) Merge(other Map) {
	other.Range(func(key string, v Value) bool {
		m.Set(key, cloneValue(v))
		return true
	})
}

// Equal reports whether both sets hold the same entries in the same order.
func (m Map) Equal(other Map) bool {
	return m.ordered.equal(&other.ordered)
}

// ordered is the insertion-ordered storage shared by Map and Mapping.
type ordered struct {
	keys   []string
	values map[string]Value
}

// Set stores v under key. Existing keys keep their position.
func (o *ordered) Set(key string, v Value) {
	if o.values == nil {
		o.values = make(map[string]Value)
	}
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get returns the value stored under key.
func (o *ordered) Get(key string) (Value, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Delete removes key and reports whether it was present.
func (o *ordered) Delete(key string) bool {
	if _, ok := o.values[key]; !ok {
		return false
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order.
func (o *ordered) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Len returns the number of entries.
func (o *ordered) Len() int {
	return len(o.keys)
}

// Range calls fn for each entry in order until fn returns false.
func (o *ordered) Range(fn func(key string, v Value) bool) {
	for _, k := range o.keys {
		if !fn(k, o.values[k]) {
			return
		}
	}
}

func (o *ordered) clone() ordered {
	if len(o.keys) == 0 {
		return ordered{}
	}
	out := ordered{
		keys:   append([]string(nil), o.keys...),
		values: make(map[string]Value, len(o.values)),
	}
	for k, v := range o.values {
		out.values[k] = cloneValue(v)
	}
	return out
}

func (o *ordered) equal(other *ordered) bool {
	if len(o.keys) != len(other.keys) {
		return false
	}
	for i, k := range o.keys {
		if other.keys[i] != k || !Equal(o.values[k], other.values[k]) {
			return false
		}
	}
	return true
}
