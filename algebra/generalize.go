package algebra

import "github.com/dad-io/thinkingmesh/attribute"

// Generalize induces a Pattern from one or more instances sharing a root
// key. A single instance generalizes every atomic leaf to a fresh
// "var_<key>" Variable, preserving structure. Multiple instances
// generalize per child key: a key present in every instance recurses
// (atomic-only across instances yields a Variable, nested-only across
// instances recurses further, and a mixed variant across instances falls
// back to a Variable so the result still unifies against any of them); a
// key absent from even one instance is dropped from the template, since a
// template attribute absent from some instance would never unify with it.
// Generalize returns nil, nil for empty input or instances that don't
// share a root key.
func Generalize(instances []attribute.Attribute) (*attribute.Pattern, error) {
	if len(instances) == 0 {
		return nil, nil
	}
	key := instances[0].Key
	for _, inst := range instances[1:] {
		if inst.Key != key {
			return nil, nil
		}
	}

	template := generalizeMany(instances)
	return &attribute.Pattern{Template: template}, nil
}

func generalizeMany(instances []attribute.Attribute) attribute.Attribute {
	if len(instances) == 1 {
		return generalizeSingle(instances[0])
	}

	key := instances[0].Key

	allVariable := true
	for _, inst := range instances {
		if !inst.IsVariable() {
			allVariable = false
			break
		}
	}
	if allVariable {
		return instances[0]
	}

	allAtomic := true
	allNested := true
	for _, inst := range instances {
		if !inst.IsAtom() {
			allAtomic = false
		}
		if !inst.IsNested() {
			allNested = false
		}
	}

	switch {
	case allAtomic:
		return attribute.Attribute{Key: key, Value: attribute.Variable{Name: "var_" + key}}
	case allNested:
		return generalizeNestedMany(instances)
	default:
		return attribute.Attribute{Key: key, Value: attribute.Variable{Name: "var_" + key}}
	}
}

func generalizeNestedMany(instances []attribute.Attribute) attribute.Attribute {
	key := instances[0].Key

	var order []string
	seen := map[string]bool{}
	for _, inst := range instances {
		nested, _ := inst.AsNested()
		for _, child := range nested {
			if !seen[child.Key] {
				seen[child.Key] = true
				order = append(order, child.Key)
			}
		}
	}

	var children []attribute.Attribute
	for _, childKey := range order {
		group := make([]attribute.Attribute, 0, len(instances))
		presentInAll := true
		for _, inst := range instances {
			nested, _ := inst.AsNested()
			child, found := firstByKey(nested, childKey)
			if !found {
				presentInAll = false
				break
			}
			group = append(group, child)
		}
		if !presentInAll {
			continue
		}
		children = append(children, generalizeMany(group))
	}

	return attribute.Attribute{Key: key, Value: attribute.Nested(children)}
}

func generalizeSingle(a attribute.Attribute) attribute.Attribute {
	if a.IsVariable() {
		return a
	}
	if nested, ok := a.AsNested(); ok {
		children := make([]attribute.Attribute, len(nested))
		for i, child := range nested {
			children[i] = generalizeSingle(child)
		}
		return attribute.Attribute{Key: a.Key, Value: attribute.Nested(children)}
	}
	return attribute.Attribute{Key: a.Key, Value: attribute.Variable{Name: "var_" + a.Key}}
}
