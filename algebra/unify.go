package algebra

import "github.com/dad-io/thinkingmesh/attribute"

// Unify attempts to unify pattern against data, extending bindings (which
// is not mutated; a new map is returned). Keys must match exactly
// regardless of variant. A bound pattern variable must agree with its
// existing binding; an unbound one extends the binding set. Nested
// patterns unify per-key against the first same-keyed data child, failing
// the whole unification if any child fails; data-only children not named
// in the pattern are preserved in the unified result in their original
// relative order.
func Unify(pattern, data attribute.Attribute, bindings map[string]attribute.Value) (ok bool, out map[string]attribute.Value, unified attribute.Attribute) {
	result := make(map[string]attribute.Value, len(bindings))
	for k, v := range bindings {
		result[k] = v
	}
	u, ok := unify(pattern, data, result)
	return ok, result, u
}

func unify(pattern, data attribute.Attribute, bindings map[string]attribute.Value) (attribute.Attribute, bool) {
	if pattern.Key != data.Key {
		return attribute.Attribute{}, false
	}

	if v, ok := pattern.AsVariable(); ok {
		if existing, bound := bindings[v.Name]; bound {
			if !valueEqual(existing, data.Value) {
				return attribute.Attribute{}, false
			}
			return data, true
		}
		bindings[v.Name] = data.Value
		return data, true
	}

	if patternAtom, ok := pattern.AsAtom(); ok {
		dataAtom, ok := data.AsAtom()
		if !ok || !patternAtom.Equal(dataAtom) {
			return attribute.Attribute{}, false
		}
		return data, true
	}

	patternNested, ok := pattern.AsNested()
	if !ok {
		return attribute.Attribute{}, false
	}
	dataNested, ok := data.AsNested()
	if !ok {
		return attribute.Attribute{}, false
	}

	usedData := make(map[int]bool, len(dataNested))
	unifiedChildren := make([]attribute.Attribute, 0, len(dataNested))

	for _, pchild := range patternNested {
		idx, found := firstUnusedByKey(dataNested, pchild.Key, usedData)
		if !found {
			return attribute.Attribute{}, false
		}
		usedData[idx] = true
		uchild, ok := unify(pchild, dataNested[idx], bindings)
		if !ok {
			return attribute.Attribute{}, false
		}
		unifiedChildren = append(unifiedChildren, uchild)
	}

	for i, dchild := range dataNested {
		if !usedData[i] {
			unifiedChildren = append(unifiedChildren, dchild)
		}
	}

	result := attribute.Nested(unifiedChildren)
	return attribute.Attribute{Key: pattern.Key, Value: result}, true
}

func firstUnusedByKey(nested attribute.Nested, key string, used map[int]bool) (int, bool) {
	for i, child := range nested {
		if !used[i] && child.Key == key {
			return i, true
		}
	}
	return 0, false
}

func valueEqual(a, b attribute.Value) bool {
	switch av := a.(type) {
	case attribute.Atom:
		bv, ok := b.(attribute.Atom)
		return ok && av.Equal(bv)
	case attribute.Variable:
		bv, ok := b.(attribute.Variable)
		return ok && av.Name == bv.Name
	case attribute.Nested:
		bv, ok := b.(attribute.Nested)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !attribute.Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
