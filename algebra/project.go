package algebra

import "github.com/dad-io/thinkingmesh/attribute"

// Project resolves path against attr, returning the value at that path.
// The root's own key must equal the first path segment; each further
// segment is resolved by searching the current Nested value for a child
// with that key. A missing segment or a path into a non-nested value
// reports not found.
func Project(attr attribute.Attribute, path attribute.Path) (attribute.Value, bool) {
	segs := path.Segments
	if len(segs) == 0 || attr.Key != segs[0] {
		return nil, false
	}

	current := attr
	for i := 1; i < len(segs); i++ {
		nested, ok := current.AsNested()
		if !ok {
			return nil, false
		}
		child, found := firstByKey(nested, segs[i])
		if !found {
			return nil, false
		}
		current = child
	}
	return current.Value, true
}

func firstByKey(nested attribute.Nested, key string) (attribute.Attribute, bool) {
	for _, child := range nested {
		if child.Key == key {
			return child, true
		}
	}
	return attribute.Attribute{}, false
}
