// Package attribute implements the recursive attribute value model: atoms,
// variables and nested attribute sequences, plus paths, patterns and
// queries built on top of them.
package attribute

import (
	"fmt"

	"github.com/dad-io/thinkingmesh/memerr"
)

// Value is the tagged union an Attribute carries: exactly one of Atom,
// Variable or Nested. Nothing outside this package implements it.
type Value interface {
	isValue()
}

// AtomKind identifies which Go type an Atom currently holds.
type AtomKind int

const (
	AtomInt AtomKind = iota
	AtomFloat
	AtomBool
	AtomString
)

func (k AtomKind) String() string {
	switch k {
	case AtomInt:
		return "int"
	case AtomFloat:
		return "float"
	case AtomBool:
		return "bool"
	case AtomString:
		return "string"
	default:
		return "unknown"
	}
}

// Atom is a leaf value: a signed integer, a float, a boolean or a string.
type Atom struct {
	Kind AtomKind
	I    int64
	F    float64
	B    bool
	S    string
}

func (Atom) isValue() {}

func NewIntAtom(v int64) Atom    { return Atom{Kind: AtomInt, I: v} }
func NewFloatAtom(v float64) Atom { return Atom{Kind: AtomFloat, F: v} }
func NewBoolAtom(v bool) Atom    { return Atom{Kind: AtomBool, B: v} }
func NewStringAtom(v string) Atom { return Atom{Kind: AtomString, S: v} }

// AtomFrom builds an Atom from a Go value, rejecting anything outside
// int/int64/float64/bool/string.
func AtomFrom(v any) (Atom, error) {
	switch t := v.(type) {
	case int:
		return NewIntAtom(int64(t)), nil
	case int64:
		return NewIntAtom(t), nil
	case float64:
		return NewFloatAtom(t), nil
	case bool:
		return NewBoolAtom(t), nil
	case string:
		return NewStringAtom(t), nil
	default:
		return Atom{}, fmt.Errorf("atom value %v of type %T: %w", v, v, memerr.InvalidInput)
	}
}

// Equal compares two atoms by kind and value; an int atom never equals a
// float atom holding the same magnitude.
func (a Atom) Equal(b Atom) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case AtomInt:
		return a.I == b.I
	case AtomFloat:
		return a.F == b.F
	case AtomBool:
		return a.B == b.B
	case AtomString:
		return a.S == b.S
	default:
		return false
	}
}

// Raw returns the atom's underlying Go value.
func (a Atom) Raw() any {
	switch a.Kind {
	case AtomInt:
		return a.I
	case AtomFloat:
		return a.F
	case AtomBool:
		return a.B
	case AtomString:
		return a.S
	default:
		return nil
	}
}

// Variable is an unbound placeholder referenced by name during unification.
type Variable struct {
	Name string
}

func (Variable) isValue() {}

// Nested is an ordered sequence of child Attributes.
type Nested []Attribute

func (Nested) isValue() {}
