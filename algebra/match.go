package algebra

import (
	"fmt"

	"github.com/dad-io/thinkingmesh/attribute"
	"github.com/dad-io/thinkingmesh/condition"
)

// MatchPattern unifies pattern's template against data and, if that
// succeeds, evaluates every constraint against the resulting bindings. A
// constraint referencing a variable the unification left unbound
// evaluates conservatively to true; the Query Engine's strict condition
// filter (§4.7) is the layer that instead fails such rows. A malformed
// constraint string is still a construction error.
func MatchPattern(pattern attribute.Pattern, data attribute.Attribute) (ok bool, bindings map[string]attribute.Value, unified attribute.Attribute, err error) {
	ok, bindings, unified = Unify(pattern.Template, data, nil)
	if !ok {
		return false, nil, attribute.Attribute{}, nil
	}

	for _, raw := range pattern.Constraints {
		c, perr := condition.Parse(raw)
		if perr != nil {
			return false, nil, attribute.Attribute{}, fmt.Errorf("pattern constraint: %w", perr)
		}
		result, unbound := condition.Evaluate(c, bindings)
		if unbound {
			continue
		}
		if !result {
			return false, nil, attribute.Attribute{}, nil
		}
	}

	return true, bindings, unified, nil
}
