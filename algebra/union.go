// Package algebra implements the recursive attribute algebra: union,
// subsumption, unification, projection, pattern matching and
// generalization over attribute.Attribute trees.
package algebra

import (
	"fmt"

	"github.com/dad-io/thinkingmesh/attribute"
	"github.com/dad-io/thinkingmesh/memerr"
)

// Union combines two Attributes sharing the same key. Neither input is
// mutated; the result is always a new Attribute.
//
// Rules:
//   - Variable ∪ anything: the non-variable side wins (both variables: the
//     right side).
//   - Atom ∪ Atom: the right value overwrites the left.
//   - Atom ∪ Nested: the nested side wins entirely.
//   - Nested ∪ Atom: the atomic side overwrites entirely.
//   - Nested ∪ Nested: children merge by key, recursing on collision;
//     left-only and recursively-merged keys keep the left operand's
//     position, new right-only keys append in right's order.
func Union(left, right attribute.Attribute) (attribute.Attribute, error) {
	if left.Key != right.Key {
		return attribute.Attribute{}, fmt.Errorf("union key mismatch %q vs %q: %w", left.Key, right.Key, memerr.InvalidInput)
	}

	if left.IsVariable() {
		return right, nil
	}
	if right.IsVariable() {
		return left, nil
	}

	leftNested, leftIsNested := left.AsNested()
	rightNested, rightIsNested := right.AsNested()

	switch {
	case !leftIsNested && !rightIsNested:
		return attribute.Attribute{Key: left.Key, Value: right.Value}, nil
	case !leftIsNested && rightIsNested:
		return right, nil
	case leftIsNested && !rightIsNested:
		return attribute.Attribute{Key: left.Key, Value: right.Value}, nil
	default:
		merged, err := mergeNested(leftNested, rightNested)
		if err != nil {
			return attribute.Attribute{}, err
		}
		return attribute.Attribute{Key: left.Key, Value: merged}, nil
	}
}

func mergeNested(left, right attribute.Nested) (attribute.Nested, error) {
	order := make([]string, 0, len(left)+len(right))
	byKey := make(map[string]attribute.Attribute, len(left)+len(right))

	for _, child := range left {
		if _, exists := byKey[child.Key]; !exists {
			order = append(order, child.Key)
		}
		byKey[child.Key] = child
	}

	for _, child := range right {
		existing, exists := byKey[child.Key]
		if !exists {
			order = append(order, child.Key)
			byKey[child.Key] = child
			continue
		}
		merged, err := Union(existing, child)
		if err != nil {
			return nil, err
		}
		byKey[child.Key] = merged
	}

	result := make(attribute.Nested, 0, len(order))
	for _, key := range order {
		result = append(result, byKey[key])
	}
	return result, nil
}
