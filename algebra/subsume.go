package algebra

import "github.com/dad-io/thinkingmesh/attribute"

// Subsumes reports whether container ⊆ contained: every attribute in
// container is matched, recursively, by one in contained. container is
// expected to be the sparser side (a pattern-like shape). Keys must match,
// except that a Variable in container matches anything without a key
// check.
func Subsumes(container, contained attribute.Attribute) bool {
	if !container.IsVariable() && container.Key != contained.Key {
		return false
	}

	if container.IsVariable() {
		return true
	}

	if containerAtom, ok := container.AsAtom(); ok {
		containedAtom, ok := contained.AsAtom()
		return ok && containerAtom.Equal(containedAtom)
	}

	containerNested, ok := container.AsNested()
	if !ok {
		return false
	}
	containedNested, ok := contained.AsNested()
	if !ok {
		return false
	}

	containedByKey := make(map[string]attribute.Attribute, len(containedNested))
	for _, c := range containedNested {
		if _, exists := containedByKey[c.Key]; !exists {
			containedByKey[c.Key] = c
		}
	}

	for _, containerChild := range containerNested {
		match, found := containedByKey[containerChild.Key]
		if !found {
			return false
		}
		if !Subsumes(containerChild, match) {
			return false
		}
	}
	return true
}
