// Package serialize converts Attributes to and from a tagged dictionary
// form, and from there to JSON, MessagePack and CBOR wire formats, plus a
// compact string form and a compression-ratio estimate.
package serialize

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dad-io/thinkingmesh/attribute"
	"github.com/dad-io/thinkingmesh/memerr"
)

// ValueDict is the tagged dictionary form of an Attribute's Value. Exactly
// one of the variant-specific fields is populated, chosen by Type. AtomKind
// is carried alongside Data so an int atom round-trips as an int even
// through wire formats (JSON, in particular) that don't distinguish
// integers from floats on their own.
type ValueDict struct {
	Type       string      `json:"type" msgpack:"type" cbor:"type"`
	AtomKind   string      `json:"atom_kind,omitempty" msgpack:"atom_kind,omitempty" cbor:"atom_kind,omitempty"`
	Data       any         `json:"data,omitempty" msgpack:"data,omitempty" cbor:"data,omitempty"`
	Name       string      `json:"name,omitempty" msgpack:"name,omitempty" cbor:"name,omitempty"`
	Attributes []AttrDict  `json:"attributes,omitempty" msgpack:"attributes,omitempty" cbor:"attributes,omitempty"`
}

// AttrDict is the tagged dictionary form of an Attribute.
type AttrDict struct {
	Key       string    `json:"key" msgpack:"key" cbor:"key"`
	Type      string    `json:"type" msgpack:"type" cbor:"type"`
	Timestamp float64   `json:"timestamp" msgpack:"timestamp" cbor:"timestamp"`
	Value     ValueDict `json:"value" msgpack:"value" cbor:"value"`
}

// ToDict converts attr to its dictionary representation.
func ToDict(attr attribute.Attribute) AttrDict {
	d := AttrDict{Key: attr.Key, Type: "attr", Timestamp: attr.Timestamp}

	switch {
	case attr.IsAtom():
		atom, _ := attr.AsAtom()
		d.Value = ValueDict{Type: "atom", AtomKind: atom.Kind.String(), Data: atom.Raw()}
	case attr.IsVariable():
		v, _ := attr.AsVariable()
		d.Value = ValueDict{Type: "variable", Name: v.Name}
	case attr.IsNested():
		nested, _ := attr.AsNested()
		children := make([]AttrDict, len(nested))
		for i, child := range nested {
			children[i] = ToDict(child)
		}
		d.Value = ValueDict{Type: "nested", Attributes: children}
	}
	return d
}

// FromDict reconstructs an Attribute from its dictionary representation.
func FromDict(d AttrDict) (attribute.Attribute, error) {
	switch d.Value.Type {
	case "atom":
		v, err := atomFromDict(d.Value)
		if err != nil {
			return attribute.Attribute{}, err
		}
		return attribute.NewAtom(d.Key, v, attribute.WithTimestamp(d.Timestamp))
	case "variable":
		return attribute.NewVariable(d.Key, d.Value.Name, attribute.WithTimestamp(d.Timestamp))
	case "nested":
		children := make([]attribute.Attribute, len(d.Value.Attributes))
		for i, childDict := range d.Value.Attributes {
			child, err := FromDict(childDict)
			if err != nil {
				return attribute.Attribute{}, err
			}
			children[i] = child
		}
		return attribute.NewNested(d.Key, children, attribute.WithTimestamp(d.Timestamp))
	default:
		return attribute.Attribute{}, fmt.Errorf("unknown value type %q: %w", d.Value.Type, memerr.InvalidInput)
	}
}

func atomFromDict(v ValueDict) (any, error) {
	switch v.AtomKind {
	case attribute.AtomInt.String():
		switch n := v.Data.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case int8:
			return int64(n), nil
		case int16:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case uint:
			return int64(n), nil
		case uint8:
			return int64(n), nil
		case uint16:
			return int64(n), nil
		case uint32:
			return int64(n), nil
		case uint64:
			return int64(n), nil
		case float64:
			return int64(n), nil
		default:
			return nil, fmt.Errorf("int atom data %v of type %T: %w", v.Data, v.Data, memerr.InvalidInput)
		}
	case attribute.AtomFloat.String():
		n, ok := v.Data.(float64)
		if !ok {
			return nil, fmt.Errorf("float atom data %v of type %T: %w", v.Data, v.Data, memerr.InvalidInput)
		}
		return n, nil
	case attribute.AtomBool.String():
		b, ok := v.Data.(bool)
		if !ok {
			return nil, fmt.Errorf("bool atom data %v of type %T: %w", v.Data, v.Data, memerr.InvalidInput)
		}
		return b, nil
	case attribute.AtomString.String():
		s, ok := v.Data.(string)
		if !ok {
			return nil, fmt.Errorf("string atom data %v of type %T: %w", v.Data, v.Data, memerr.InvalidInput)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown atom kind %q: %w", v.AtomKind, memerr.InvalidInput)
	}
}

// ToJSON serializes attr to a JSON string, human-readable when indent is
// non-empty (passed as json.MarshalIndent's indent, with an empty prefix).
func ToJSON(attr attribute.Attribute, indent string) (string, error) {
	d := ToDict(attr)
	var b []byte
	var err error
	if indent == "" {
		b, err = json.Marshal(d)
	} else {
		b, err = json.MarshalIndent(d, "", indent)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FromJSON deserializes an Attribute from a JSON string.
func FromJSON(data string) (attribute.Attribute, error) {
	var d AttrDict
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return attribute.Attribute{}, err
	}
	return FromDict(d)
}

// ToMsgpack serializes attr to MessagePack binary form.
func ToMsgpack(attr attribute.Attribute) ([]byte, error) {
	return msgpack.Marshal(ToDict(attr))
}

// FromMsgpack deserializes an Attribute from MessagePack binary form.
func FromMsgpack(data []byte) (attribute.Attribute, error) {
	var d AttrDict
	if err := msgpack.Unmarshal(data, &d); err != nil {
		return attribute.Attribute{}, err
	}
	return FromDict(d)
}

// ToCBOR serializes attr to CBOR binary form (RFC 8949).
func ToCBOR(attr attribute.Attribute) ([]byte, error) {
	return cbor.Marshal(ToDict(attr))
}

// FromCBOR deserializes an Attribute from CBOR binary form.
func FromCBOR(data []byte) (attribute.Attribute, error) {
	var d AttrDict
	if err := cbor.Unmarshal(data, &d); err != nil {
		return attribute.Attribute{}, err
	}
	return FromDict(d)
}

// ToCompactString returns attr's canonical compact form, e.g.
// `car:[engine:[rpm:9500,temp:80]]`.
func ToCompactString(attr attribute.Attribute) string {
	return attribute.Compact(attr)
}

// EstimateCompressionRatio compares the size of attrs' individually
// rendered JSON encodings against a single compact JSON array holding all
// of them, as a rough estimate of how much a schema-style shared template
// would save over storing every instance independently. Individual
// encodings are rendered with MarshalIndent (matching how the source
// implementation this is grounded on renders them, one newline per nesting
// level even at zero indent width) so the comparison favors batching
// structurally similar instances together, the way the Schema Cache does.
func EstimateCompressionRatio(attrs []attribute.Attribute) float64 {
	if len(attrs) == 0 {
		return 1.0
	}

	individualSize := 0
	dicts := make([]AttrDict, len(attrs))
	for i, attr := range attrs {
		d := ToDict(attr)
		dicts[i] = d
		b, _ := json.MarshalIndent(d, "", "")
		individualSize += len(b)
	}

	combined, _ := json.Marshal(dicts)
	combinedSize := len(combined)
	if combinedSize == 0 {
		return 1.0
	}
	return float64(individualSize) / float64(combinedSize)
}
