package attribute

import (
	"fmt"
	"time"

	"github.com/emirpasic/gods/v2/sets/linkedhashset"

	"github.com/dad-io/thinkingmesh/memerr"
)

// Attribute is the unit of the memory core's data model: a key, a value
// (Atom, Variable or Nested) and a construction timestamp. Attributes are
// immutable once built; every operation that "changes" one returns a new
// value instead.
type Attribute struct {
	Key       string
	Value     Value
	Timestamp float64
}

// Option customizes construction, currently only the timestamp.
type Option func(*Attribute)

// WithTimestamp pins an explicit construction timestamp instead of the
// default of now, used by serialization round-trips and tests that need
// deterministic values.
func WithTimestamp(ts float64) Option {
	return func(a *Attribute) { a.Timestamp = ts }
}

func apply(a *Attribute, opts []Option) {
	if a.Timestamp == 0 {
		a.Timestamp = float64(time.Now().UnixNano()) / 1e9
	}
	for _, opt := range opts {
		opt(a)
	}
}

// NewAtom builds an atomic Attribute. value must be one of
// int/int64/float64/bool/string.
func NewAtom(key string, value any, opts ...Option) (Attribute, error) {
	if key == "" {
		return Attribute{}, fmt.Errorf("empty attribute key: %w", memerr.InvalidInput)
	}
	atom, err := AtomFrom(value)
	if err != nil {
		return Attribute{}, err
	}
	a := Attribute{Key: key, Value: atom}
	apply(&a, opts)
	return a, nil
}

// NewVariable builds a Variable-valued Attribute.
func NewVariable(key, name string, opts ...Option) (Attribute, error) {
	if key == "" {
		return Attribute{}, fmt.Errorf("empty attribute key: %w", memerr.InvalidInput)
	}
	if name == "" {
		return Attribute{}, fmt.Errorf("empty variable name: %w", memerr.InvalidInput)
	}
	a := Attribute{Key: key, Value: Variable{Name: name}}
	apply(&a, opts)
	return a, nil
}

// NewNested builds a Nested-valued Attribute from already-constructed
// children.
func NewNested(key string, children []Attribute, opts ...Option) (Attribute, error) {
	if key == "" {
		return Attribute{}, fmt.Errorf("empty attribute key: %w", memerr.InvalidInput)
	}
	cp := make(Nested, len(children))
	copy(cp, children)
	a := Attribute{Key: key, Value: cp}
	apply(&a, opts)
	return a, nil
}

func (a Attribute) IsAtom() bool {
	_, ok := a.Value.(Atom)
	return ok
}

func (a Attribute) IsVariable() bool {
	_, ok := a.Value.(Variable)
	return ok
}

func (a Attribute) IsNested() bool {
	_, ok := a.Value.(Nested)
	return ok
}

// AsAtom returns the Atom value, or false if this Attribute isn't atomic.
func (a Attribute) AsAtom() (Atom, bool) {
	at, ok := a.Value.(Atom)
	return at, ok
}

// AsVariable returns the Variable value, or false if this Attribute isn't a
// variable.
func (a Attribute) AsVariable() (Variable, bool) {
	v, ok := a.Value.(Variable)
	return v, ok
}

// AsNested returns the Nested children, or false if this Attribute isn't
// nested.
func (a Attribute) AsNested() (Nested, bool) {
	n, ok := a.Value.(Nested)
	return n, ok
}

// GetNested returns the first direct child with the given key.
func (a Attribute) GetNested(key string) (Attribute, bool) {
	nested, ok := a.AsNested()
	if !ok {
		return Attribute{}, false
	}
	for _, child := range nested {
		if child.Key == key {
			return child, true
		}
	}
	return Attribute{}, false
}

// AllKeys collects every key reachable from this Attribute, including its
// own, in first-seen depth-first order with no duplicates.
func (a Attribute) AllKeys() []string {
	seen := linkedhashset.New[string]()
	var walk func(Attribute)
	walk = func(at Attribute) {
		seen.Add(at.Key)
		if nested, ok := at.AsNested(); ok {
			for _, child := range nested {
				walk(child)
			}
		}
	}
	walk(a)
	return seen.Values()
}

// Depth returns the tree depth: 1 for an atomic or variable Attribute, and
// 1 + the deepest child's depth for a nested one (0 for a nested Attribute
// with no children).
func (a Attribute) Depth() int {
	nested, ok := a.AsNested()
	if !ok {
		return 1
	}
	if len(nested) == 0 {
		return 0
	}
	max := 0
	for _, child := range nested {
		if d := child.Depth(); d > max {
			max = d
		}
	}
	return 1 + max
}

// Equal compares two Attributes structurally (key, variant and value),
// ignoring Timestamp.
func Equal(a, b Attribute) bool {
	if a.Key != b.Key {
		return false
	}
	switch av := a.Value.(type) {
	case Atom:
		bv, ok := b.Value.(Atom)
		return ok && av.Equal(bv)
	case Variable:
		bv, ok := b.Value.(Variable)
		return ok && av.Name == bv.Name
	case Nested:
		bv, ok := b.Value.(Nested)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
