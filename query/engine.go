package query

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/dad-io/thinkingmesh/algebra"
	"github.com/dad-io/thinkingmesh/attribute"
	"github.com/dad-io/thinkingmesh/concept"
	"github.com/dad-io/thinkingmesh/condition"
	"github.com/dad-io/thinkingmesh/episodic"
	"github.com/dad-io/thinkingmesh/schema"
	"github.com/dad-io/thinkingmesh/workingmemory"
)

// Result is the outcome of executing a Query: the deduplicated matches,
// their bindings (same length and index correspondence as Matches), and
// which concepts/schemas contributed.
type Result struct {
	Success           bool
	Matches           []attribute.Attribute
	Bindings          []map[string]attribute.Value
	ConceptsActivated []string
	SchemasUsed       []string
	ExecutionTime     time.Duration
	QueryID           string
}

// BestMatch returns the first match and its bindings, or false if there
// are none.
func (r Result) BestMatch() (attribute.Attribute, map[string]attribute.Value, bool) {
	if len(r.Matches) == 0 {
		return attribute.Attribute{}, nil, false
	}
	return r.Matches[0], r.Bindings[0], true
}

// Stats is a point-in-time snapshot of engine statistics.
type Stats struct {
	TotalQueries         int
	SuccessfulQueries    int
	AverageExecutionTime time.Duration
}

// Engine is the Query Engine, wired to all four memory tiers.
type Engine struct {
	episodic *episodic.Store
	concepts *concept.Store
	schemas  *schema.Store
	working  *workingmemory.Memory

	mu    sync.Mutex
	total int
	ok    int
	avg   time.Duration
}

// New wires a Query Engine to its four memory tiers.
func New(ep *episodic.Store, cs *concept.Store, sc *schema.Store, wm *workingmemory.Memory) *Engine {
	return &Engine{episodic: ep, concepts: cs, schemas: sc, working: wm}
}

type phaseResult struct {
	entries  []attribute.Attribute
	bindings []map[string]attribute.Value
	names    []string
}

// Query executes the four-phase search: episodic, then (optionally
// concurrently) concept and schema, then strict condition filtering, then
// order-preserving deduplication by canonical compact form.
func (e *Engine) Query(q attribute.Query, useConcepts, useSchemas bool) Result {
	start := time.Now()
	queryID := e.working.CreateQueryContext(q, 10, nil)

	result := Result{QueryID: queryID}
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("query: recovered panic during execution: %v", r)
			}
		}()

		var merr *multierror.Error

		episodicMatches, episodicBindings, err := e.episodic.SearchPattern(q.Pattern, 0)
		if err != nil {
			merr = multierror.Append(merr, err)
		}

		var conceptRes, schemaRes phaseResult
		if useConcepts || useSchemas {
			var g errgroup.Group
			if useConcepts {
				g.Go(func() error {
					r, err := e.searchConcepts(q.Pattern)
					conceptRes = r
					return err
				})
			}
			if useSchemas {
				g.Go(func() error {
					r, err := e.searchSchemas(q.Pattern)
					schemaRes = r
					return err
				})
			}
			if err := g.Wait(); err != nil {
				merr = multierror.Append(merr, err)
			}
		}

		var matches []attribute.Attribute
		var bindings []map[string]attribute.Value
		for i, entry := range episodicMatches {
			matches = append(matches, entry.Attr)
			bindings = append(bindings, episodicBindings[i])
		}
		matches = append(matches, conceptRes.entries...)
		bindings = append(bindings, conceptRes.bindings...)
		matches = append(matches, schemaRes.entries...)
		bindings = append(bindings, schemaRes.bindings...)

		if len(q.Conditions) > 0 {
			var condErrs error
			matches, bindings, condErrs = applyConditions(q.Conditions, matches, bindings)
			if condErrs != nil {
				merr = multierror.Append(merr, condErrs)
			}
		}

		if merr.ErrorOrNil() != nil {
			log.Printf("query: phase errors contained: %v", merr)
		}

		matches, bindings = dedup(matches, bindings)

		result.Matches = matches
		result.Bindings = bindings
		result.ConceptsActivated = conceptRes.names
		result.SchemasUsed = schemaRes.names
		result.Success = len(matches) > 0
	}()

	result.ExecutionTime = time.Since(start)
	e.recordStats(result.Success, result.ExecutionTime)
	return result
}

// searchConcepts checks each concept's pattern for unification
// compatibility against the query's own template (not its instances),
// then scans the compatible concepts' instances against the full query
// pattern including constraints.
func (e *Engine) searchConcepts(pattern attribute.Pattern) (phaseResult, error) {
	var res phaseResult
	for _, c := range e.concepts.All() {
		compatible, _, _ := algebra.Unify(pattern.Template, c.Pattern.Template, nil)
		if !compatible {
			continue
		}
		res.names = append(res.names, c.Name)
		for _, inst := range c.Instances {
			ok, bindings, _, err := algebra.MatchPattern(pattern, inst)
			if err != nil {
				return res, err
			}
			if ok {
				res.entries = append(res.entries, inst)
				res.bindings = append(res.bindings, bindings)
			}
		}
	}
	return res, nil
}

// searchSchemas is symmetric to searchConcepts, over the Schema Cache.
func (e *Engine) searchSchemas(pattern attribute.Pattern) (phaseResult, error) {
	var res phaseResult
	for _, s := range e.schemas.All() {
		compatible, _, _ := algebra.Unify(pattern.Template, s.Template.Template, nil)
		if !compatible {
			continue
		}
		res.names = append(res.names, s.Name)
		for _, inst := range s.Instances {
			ok, bindings, _, err := algebra.MatchPattern(pattern, inst)
			if err != nil {
				return res, err
			}
			if ok {
				res.entries = append(res.entries, inst)
				res.bindings = append(res.bindings, bindings)
			}
		}
	}
	return res, nil
}

// applyConditions strictly filters matches: a condition referencing a
// variable the row left unbound fails that whole row. A malformed
// condition is itself InvalidInput (§7); it is dropped from the filter
// but its error is returned for the caller's contained-error path rather
// than silently swallowed.
func applyConditions(conditions []string, matches []attribute.Attribute, bindings []map[string]attribute.Value) ([]attribute.Attribute, []map[string]attribute.Value, error) {
	var errs *multierror.Error
	parsed := make([]condition.Condition, 0, len(conditions))
	for _, raw := range conditions {
		c, err := condition.Parse(raw)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("condition %q: %w", raw, err))
			continue
		}
		parsed = append(parsed, c)
	}

	var outMatches []attribute.Attribute
	var outBindings []map[string]attribute.Value
	for i, m := range matches {
		keep := true
		for _, c := range parsed {
			result, unbound := condition.Evaluate(c, bindings[i])
			if unbound || !result {
				keep = false
				break
			}
		}
		if keep {
			outMatches = append(outMatches, m)
			outBindings = append(outBindings, bindings[i])
		}
	}
	return outMatches, outBindings, errs.ErrorOrNil()
}

func dedup(matches []attribute.Attribute, bindings []map[string]attribute.Value) ([]attribute.Attribute, []map[string]attribute.Value) {
	seen := make(map[string]bool, len(matches))
	var outMatches []attribute.Attribute
	var outBindings []map[string]attribute.Value
	for i, m := range matches {
		key := attribute.Compact(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		outMatches = append(outMatches, m)
		outBindings = append(outBindings, bindings[i])
	}
	return outMatches, outBindings
}

func (e *Engine) recordStats(success bool, elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.total++
	if success {
		e.ok++
	}
	total := time.Duration(e.total)
	e.avg = time.Duration((int64(e.avg)*int64(total-1) + int64(elapsed)) / int64(total))
}

// Stats returns a snapshot of engine statistics.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{TotalQueries: e.total, SuccessfulQueries: e.ok, AverageExecutionTime: e.avg}
}
