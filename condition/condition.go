// Package condition implements the small condition grammar shared by
// algebra's pattern constraints (§4.2, evaluated conservatively) and the
// Query Engine's condition filters (§4.7, evaluated strictly): a single
// variable reference, one comparison operator, and a literal.
//
//	?rpm >= 3000
//	?name = "v8"
//	?rpm != 0
package condition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/dad-io/thinkingmesh/attribute"
	"github.com/dad-io/thinkingmesh/memerr"
)

// grammar's operator alternation lists two-character comparisons before
// their one-character prefixes so the regex engine prefers the longer
// match.
var grammar = regexp2.MustCompile(
	`^\?(?<var>[A-Za-z_][A-Za-z0-9_]*)\s+(?<op>>=|<=|!=|>|<|=)\s+(?<rhs>.+)$`,
	regexp2.None,
)

// Condition is a single parsed "?var OP literal" clause.
type Condition struct {
	Variable string
	Op       string
	StrLit   *string
	NumLit   *float64
}

// Parse validates and decomposes a condition string. Anything outside the
// "?var OP literal" shape is memerr.InvalidInput.
func Parse(s string) (Condition, error) {
	m, err := grammar.FindStringMatch(s)
	if err != nil || m == nil {
		return Condition{}, fmt.Errorf("condition %q: %w", s, memerr.InvalidInput)
	}
	varName := m.GroupByName("var").String()
	op := m.GroupByName("op").String()
	rhs := strings.TrimSpace(m.GroupByName("rhs").String())

	c := Condition{Variable: varName, Op: op}
	if len(rhs) >= 2 && rhs[0] == '"' && rhs[len(rhs)-1] == '"' {
		lit := rhs[1 : len(rhs)-1]
		c.StrLit = &lit
		return c, nil
	}
	num, perr := strconv.ParseFloat(rhs, 64)
	if perr != nil {
		return Condition{}, fmt.Errorf("condition %q: unparsable literal %q: %w", s, rhs, memerr.InvalidInput)
	}
	c.NumLit = &num
	return c, nil
}

// Evaluate checks a condition against a binding set. unbound reports
// whether the referenced variable had no binding; callers decide what an
// unbound reference means (conservative-true for algebra constraints,
// strict-false for Query Engine conditions).
func Evaluate(c Condition, bindings map[string]attribute.Value) (result bool, unbound bool) {
	v, ok := bindings[c.Variable]
	if !ok {
		return false, true
	}
	atom, ok := v.(attribute.Atom)
	if !ok {
		return false, false
	}

	if c.StrLit != nil {
		if atom.Kind != attribute.AtomString {
			return false, false
		}
		return compareString(atom.S, c.Op, *c.StrLit), false
	}
	if c.NumLit == nil {
		return false, false
	}
	var lhs float64
	switch atom.Kind {
	case attribute.AtomInt:
		lhs = float64(atom.I)
	case attribute.AtomFloat:
		lhs = atom.F
	default:
		return false, false
	}
	return compareFloat(lhs, c.Op, *c.NumLit), false
}

func compareFloat(lhs float64, op string, rhs float64) bool {
	switch op {
	case ">":
		return lhs > rhs
	case "<":
		return lhs < rhs
	case ">=":
		return lhs >= rhs
	case "<=":
		return lhs <= rhs
	case "=":
		return lhs == rhs
	case "!=":
		return lhs != rhs
	default:
		return false
	}
}

func compareString(lhs, op, rhs string) bool {
	switch op {
	case "=":
		return lhs == rhs
	case "!=":
		return lhs != rhs
	case ">":
		return lhs > rhs
	case "<":
		return lhs < rhs
	case ">=":
		return lhs >= rhs
	case "<=":
		return lhs <= rhs
	default:
		return false
	}
}
