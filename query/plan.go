// Package query implements the Query Engine (Component G): a four-phase
// search over episodic, concept and schema stores, condition filtering,
// deduplication, and path-based projection queries.
package query

import (
	"fmt"

	"github.com/dad-io/thinkingmesh/attribute"
)

// Plan is a cost estimate for executing a Query, built without actually
// running it.
type Plan struct {
	QueryID       string
	OriginalQuery attribute.Query
	Steps         []string
	EstimatedCost float64
}

func (p *Plan) addStep(description string, cost float64) {
	p.Steps = append(p.Steps, description)
	p.EstimatedCost += cost
}

// CreatePlan estimates the cost of executing q: 1.0 for the episodic
// phase (always run), 2.0 for the concept phase (only when the pattern
// has variables), 1.5 for the schema phase (always run), and 0.5 per
// condition.
func CreatePlan(queryID string, q attribute.Query) *Plan {
	p := &Plan{QueryID: queryID, OriginalQuery: q}
	p.addStep("episodic search", 1.0)
	if len(q.Pattern.ExtractVariables()) > 0 {
		p.addStep("concept search", 2.0)
	}
	p.addStep("schema search", 1.5)
	if len(q.Conditions) > 0 {
		p.addStep(fmt.Sprintf("apply %d condition(s)", len(q.Conditions)), 0.5*float64(len(q.Conditions)))
	}
	return p
}
