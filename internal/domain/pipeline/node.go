package pipeline

// Node is one node of a raw storefront record: a mapping, a sequence, or a
// scalar leaf. Storefront payloads have no fixed schema beyond the two known
// top-level shapes (customer, order), so records are traversed structurally.
type Node interface {
	isNode()
}

// Mapping is an object node keyed by field name.
type Mapping map[string]Node

// Sequence is an array node.
type Sequence []Node

// Scalar is a leaf node. Value is a string, json.Number, bool, or nil.
type Scalar struct {
	Value any
}

func (Mapping) isNode()  {}
func (Sequence) isNode() {}
func (Scalar) isNode()   {}

// FromJSON converts a decoded JSON value (as produced by encoding/json into
// any, ideally with Decoder.UseNumber) into a Node tree. Unknown leaf types
// are kept as-is inside a Scalar.
func FromJSON(v any) Node {
	switch val := v.(type) {
	case map[string]any:
		m := make(Mapping, len(val))
		for k, elem := range val {
			m[k] = FromJSON(elem)
		}
		return m
	case []any:
		s := make(Sequence, len(val))
		for i, elem := range val {
			s[i] = FromJSON(elem)
		}
		return s
	default:
		return Scalar{Value: val}
	}
}

// MappingFromJSON converts a decoded JSON object into a Mapping. It returns
// nil when v is not an object.
func MappingFromJSON(v any) Mapping {
	if m, ok := FromJSON(v).(Mapping); ok {
		return m
	}
	return nil
}

// scalarField returns the scalar value stored under key, or nil when the key
// is absent or not a leaf.
func scalarField(m Mapping, key string) any {
	if m == nil {
		return nil
	}
	if s, ok := m[key].(Scalar); ok {
		return s.Value
	}
	return nil
}
