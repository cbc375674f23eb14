package query

import (
	"time"

	"github.com/dad-io/thinkingmesh/algebra"
	"github.com/dad-io/thinkingmesh/attribute"
)

const pathQueryScanLimit = 1000

// PathQuery resolves path against source if given, or otherwise scans the
// most recent entries of the Episodic Store; the result's Matches holds
// every Attribute the path resolved against (not the resolved values
// themselves), mirroring Query's shape.
func (e *Engine) PathQuery(path attribute.Path, source *attribute.Attribute) Result {
	start := time.Now()
	result := Result{}

	if source != nil {
		if _, ok := algebra.Project(*source, path); ok {
			result.Matches = []attribute.Attribute{*source}
			result.Bindings = []map[string]attribute.Value{{}}
		}
	} else {
		for _, entry := range e.episodic.Recent(pathQueryScanLimit) {
			if _, ok := algebra.Project(entry.Attr, path); ok {
				result.Matches = append(result.Matches, entry.Attr)
				result.Bindings = append(result.Bindings, map[string]attribute.Value{})
			}
		}
	}

	result.Success = len(result.Matches) > 0
	result.ExecutionTime = time.Since(start)
	e.recordStats(result.Success, result.ExecutionTime)
	return result
}
