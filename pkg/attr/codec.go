package attr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Wire format discriminators. Container values are wrapped in an envelope
// {"__type__": <discriminator>, "data": <literal>} so clients can tell them
// apart from plain scalars.
const (
	TypeKey      = "__type__"
	DataKey      = "data"
	TypeMapping  = "_SaverDict"
	TypeSequence = "_SaverList"
)

// ErrNullValue is returned when a JSON null is decoded as an attribute value.
var ErrNullValue = errors.New("null attribute values are not supported")

// Tagged is the wire envelope for a container-typed attribute value.
type Tagged struct {
	Type string `json:"__type__"`
	Data Value  `json:"data"`
}

// Wire is the wire-safe rendition of an attribute set. Entries are either
// scalar Values or Tagged envelopes, kept in the order of the source set.
type Wire struct {
	keys   []string
	values map[string]any
}

// Get returns the wire entry stored under key.
func (w Wire) Get(key string) (any, bool) {
	v, ok := w.values[key]
	return v, ok
}

// Len returns the number of entries.
func (w Wire) Len() int {
	return len(w.keys)
}

// Keys returns the entry keys in order.
func (w Wire) Keys() []string {
	return append([]string(nil), w.keys...)
}

// MarshalJSON writes the entries as a JSON object in order.
func (w Wire) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range w.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(w.values[k])
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Serialize converts an attribute set into its wire form. Mapping values
// become {"__type__": "_SaverDict", "data": ...}, Sequence values become
// {"__type__": "_SaverList", "data": ...}, scalars pass through. The input
// is not modified; container data is copied.
func Serialize(m Map) Wire {
	logrus.WithFields(logrus.Fields{
		"component":  "attr",
		"event_type": "serialize",
		"attributes": m.Len(),
	}).Debug("Serializing attributes")
	return toWire(m)
}

func toWire(m Map) Wire {
	w := Wire{keys: m.Keys(), values: make(map[string]any, m.Len())}
	m.Range(func(key string, v Value) bool {
		switch x := v.(type) {
		case *Mapping:
			w.values[key] = Tagged{Type: TypeMapping, Data: x.Clone()}
		case Sequence:
			w.values[key] = Tagged{Type: TypeSequence, Data: x.Clone()}
		case String, Int, Float, Bool:
			w.values[key] = x
		}
		return true
	})
	return w
}

// MarshalJSON encodes the attribute set in wire form.
func (m Map) MarshalJSON() ([]byte, error) {
	return toWire(m).MarshalJSON()
}

// UnmarshalJSON decodes an attribute set. Both the wire form and plain JSON
// values are accepted: a plain object becomes a Mapping and a plain array a
// Sequence. Key order is preserved.
func (m *Map) UnmarshalJSON(data []byte) error {
	dec := newDecoder(data)
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = Map{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("attributes must be a JSON object")
	}
	var out Map
	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return err
		}
		v, err := decodeValue(dec)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		out.Set(key, unwrap(v))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// MarshalJSON writes the literal contents as a JSON object.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	var err error
	m.Range(func(key string, v Value) bool {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		var kb, vb []byte
		if kb, err = json.Marshal(key); err != nil {
			return false
		}
		if vb, err = json.Marshal(v); err != nil {
			return false
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return true
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a literal JSON object.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	v, err := decodeValue(newDecoder(data))
	if err != nil {
		return err
	}
	mm, ok := v.(*Mapping)
	if !ok {
		return fmt.Errorf("expected JSON object")
	}
	*m = *mm
	return nil
}

// MarshalJSON writes the literal contents as a JSON array.
func (s Sequence) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Value(s))
}

// UnmarshalJSON decodes a literal JSON array.
func (s *Sequence) UnmarshalJSON(data []byte) error {
	v, err := decodeValue(newDecoder(data))
	if err != nil {
		return err
	}
	seq, ok := v.(Sequence)
	if !ok {
		return fmt.Errorf("expected JSON array")
	}
	*s = seq
	return nil
}

// DecodeValue decodes a single JSON value into a Value, unwrapping a wire
// envelope if present.
func DecodeValue(data []byte) (Value, error) {
	v, err := decodeValue(newDecoder(data))
	if err != nil {
		return nil, err
	}
	return unwrap(v), nil
}

func newDecoder(data []byte) *json.Decoder {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec
}

func objectKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("unexpected object key %v", tok)
	}
	return key, nil
}

// decodeValue reads one literal value from the token stream.
func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMapping()
			for dec.More() {
				key, err := objectKey(dec)
				if err != nil {
					return nil, err
				}
				v, err := decodeValue(dec)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", key, err)
				}
				m.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			seq := Sequence{}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", len(seq), err)
				}
				seq = append(seq, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return seq, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return numberValue(t)
	case nil:
		return nil, ErrNullValue
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func numberValue(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return Int(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number %s: %w", s, err)
	}
	return Float(f), nil
}

// unwrap replaces a wire envelope with the container it carries. Any other
// value is returned unchanged.
func unwrap(v Value) Value {
	m, ok := v.(*Mapping)
	if !ok || m.Len() != 2 {
		return v
	}
	typ, ok := m.Get(TypeKey)
	if !ok {
		return v
	}
	data, ok := m.Get(DataKey)
	if !ok {
		return v
	}
	switch typ {
	case String(TypeMapping):
		if inner, ok := data.(*Mapping); ok {
			return inner
		}
	case String(TypeSequence):
		if inner, ok := data.(Sequence); ok {
			return inner
		}
	}
	return v
}
