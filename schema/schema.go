// Package schema implements the Schema Cache (Component E): frequency-
// ranked structural templates discovered from recurring instances, with
// compression-ratio scoring, an evolution log, and usefulness-based
// eviction.
package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/emirpasic/gods/v2/maps/linkedhashmap"

	"github.com/dad-io/thinkingmesh/algebra"
	"github.com/dad-io/thinkingmesh/attribute"
)

const nameSignatureMaxLen = 50

// Schema is a discovered structural template.
type Schema struct {
	Name             string
	Template         attribute.Pattern
	Instances        []attribute.Attribute
	Frequency        int
	CompressionRatio float64
	DiscoveredAt     float64
	LastUpdated      float64

	evolution []string // prior template compact forms, oldest first
}

// Evolution returns the prior template forms this schema has evolved
// through, oldest first.
func (s Schema) Evolution() []string {
	return append([]string(nil), s.evolution...)
}

func nowSeconds() float64 { return float64(time.Now().UnixNano()) / 1e9 }

func (s *Schema) updateCompressionRatio() {
	schemaSize := len(attribute.Compact(s.Template.Template))
	individualSize := 0
	for _, inst := range s.Instances {
		individualSize += len(attribute.Compact(inst))
	}
	if individualSize == 0 {
		s.CompressionRatio = 1.0
		return
	}
	s.CompressionRatio = float64(schemaSize) / float64(individualSize)
}

// Store is the Schema Cache.
type Store struct {
	mu sync.RWMutex

	schemas      *linkedhashmap.Map[string, *Schema]
	minFrequency int
	maxSchemas   int
}

// New builds a Schema Cache requiring at least minFrequency instances to
// discover a schema and bounded to at most maxSchemas entries.
func New(minFrequency, maxSchemas int) *Store {
	if minFrequency <= 0 {
		minFrequency = 3
	}
	if maxSchemas <= 0 {
		maxSchemas = 1000
	}
	return &Store{
		schemas:      linkedhashmap.New[string, *Schema](),
		minFrequency: minFrequency,
		maxSchemas:   maxSchemas,
	}
}

// Discover generalizes instances into a new schema, provided there are at
// least minFrequency of them. name defaults to a signature derived from
// the generalized template's compact form plus a timestamp.
func (st *Store) Discover(instances []attribute.Attribute, name *string) (*Schema, bool) {
	if len(instances) < st.minFrequency {
		return nil, false
	}
	pattern, err := algebra.Generalize(instances)
	if err != nil || pattern == nil {
		return nil, false
	}

	resolvedName := ""
	if name != nil && *name != "" {
		resolvedName = *name
	} else {
		sig := attribute.Compact(pattern.Template)
		if len(sig) > nameSignatureMaxLen {
			sig = sig[:nameSignatureMaxLen]
		}
		resolvedName = fmt.Sprintf("schema_%s_%d", sig, int64(nowSeconds()))
	}

	now := nowSeconds()
	s := &Schema{
		Name:         resolvedName,
		Template:     *pattern,
		Instances:    append([]attribute.Attribute(nil), instances...),
		Frequency:    len(instances),
		DiscoveredAt: now,
		LastUpdated:  now,
	}
	s.updateCompressionRatio()

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.schemas.Size() >= st.maxSchemas {
		st.evictLeastUsefulLocked()
	}
	st.schemas.Put(resolvedName, s)
	return s, true
}

// All returns every schema in insertion order.
func (st *Store) All() []*Schema {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.schemas.Values()
}

// Get returns the schema with the given name.
func (st *Store) Get(name string) (*Schema, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.schemas.Get(name)
}

// FindMatching returns every schema whose template matches attr, sorted by
// frequency descending.
func (st *Store) FindMatching(attr attribute.Attribute) []Match {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []Match
	for _, s := range st.schemas.Values() {
		ok, bindings, _, err := algebra.MatchPattern(s.Template, attr)
		if err != nil || !ok {
			continue
		}
		out = append(out, Match{Schema: s, Bindings: bindings})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Schema.Frequency > out[j].Schema.Frequency
	})
	return out
}

// Match pairs a matched Schema with the bindings produced against it.
type Match struct {
	Schema   *Schema
	Bindings map[string]attribute.Value
}

// Update appends each of newInstances to every schema it matches, and
// returns the unique set of updated schema names.
func (st *Store) Update(newInstances []attribute.Attribute) []string {
	st.mu.Lock()
	defer st.mu.Unlock()

	seen := map[string]bool{}
	var updated []string
	for _, inst := range newInstances {
		for _, s := range st.schemas.Values() {
			ok, _, _, err := algebra.MatchPattern(s.Template, inst)
			if err != nil || !ok {
				continue
			}
			s.Instances = append(s.Instances, inst)
			s.Frequency++
			s.LastUpdated = nowSeconds()
			s.updateCompressionRatio()
			if !seen[s.Name] {
				seen[s.Name] = true
				updated = append(updated, s.Name)
			}
		}
	}
	return updated
}

// Evolve regeneralizes a named schema's instances together with
// newInstances. If the regeneralized template is unchanged, the instances
// are simply appended; otherwise the prior template is recorded in the
// evolution log and the new template installed.
func (st *Store) Evolve(name string, newInstances []attribute.Attribute) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.schemas.Get(name)
	if !ok {
		return false
	}

	combined := append(append([]attribute.Attribute(nil), s.Instances...), newInstances...)
	newPattern, err := algebra.Generalize(combined)
	if err != nil || newPattern == nil {
		return false
	}

	oldForm := attribute.Compact(s.Template.Template)
	newForm := attribute.Compact(newPattern.Template)
	if oldForm == newForm {
		s.Instances = combined
		s.Frequency = len(combined)
	} else {
		s.evolution = append(s.evolution, oldForm)
		s.Template = *newPattern
		s.Instances = combined
		s.Frequency = len(combined)
	}
	s.LastUpdated = nowSeconds()
	s.updateCompressionRatio()
	return true
}

// Compress emits a compact reference string for each instance: the best
// matching schema applied as "name(bindings...)", breaking ties between
// equal-frequency schemas by the lower Levenshtein distance between the
// instance's compact form and the schema template's, or "raw(<compact
// form>)" when nothing matches.
func (st *Store) Compress(instances []attribute.Attribute) []string {
	out := make([]string, 0, len(instances))
	for _, inst := range instances {
		matches := st.FindMatching(inst)
		if len(matches) == 0 {
			out = append(out, fmt.Sprintf("raw(%s)", attribute.Compact(inst)))
			continue
		}
		best := bestMatch(matches, inst)
		out = append(out, formatReference(best))
	}
	return out
}

func bestMatch(matches []Match, inst attribute.Attribute) Match {
	instForm := attribute.Compact(inst)
	best := matches[0]
	bestDist := levenshtein.ComputeDistance(instForm, attribute.Compact(best.Schema.Template.Template))
	for _, m := range matches[1:] {
		if m.Schema.Frequency != best.Schema.Frequency {
			break
		}
		dist := levenshtein.ComputeDistance(instForm, attribute.Compact(m.Schema.Template.Template))
		if dist < bestDist {
			best = m
			bestDist = dist
		}
	}
	return best
}

func formatReference(m Match) string {
	names := make([]string, 0, len(m.Bindings))
	for name := range m.Bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(m.Schema.Name)
	sb.WriteByte('(')
	for i, name := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(attribute.Compact(attribute.Attribute{Key: name, Value: m.Bindings[name]}))
	}
	sb.WriteByte(')')
	return sb.String()
}

// Prune removes schemas whose compression ratio exceeds
// minCompressionRatio (i.e. that don't actually compress their instances)
// or whose frequency is below minFrequency, and returns the number
// removed.
func (st *Store) Prune(minCompressionRatio float64, minFrequency int) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	var toRemove []string
	for _, s := range st.schemas.Values() {
		if s.CompressionRatio > minCompressionRatio || s.Frequency < minFrequency {
			toRemove = append(toRemove, s.Name)
		}
	}
	for _, name := range toRemove {
		st.schemas.Remove(name)
	}
	return len(toRemove)
}

func (st *Store) evictLeastUsefulLocked() {
	var worstName string
	worstScore := 0.0
	first := true
	for _, s := range st.schemas.Values() {
		ratio := s.CompressionRatio
		if ratio < 0.01 {
			ratio = 0.01
		}
		score := float64(s.Frequency) * (1.0 / ratio)
		if first || score < worstScore {
			worstScore = score
			worstName = s.Name
			first = false
		}
	}
	if worstName != "" {
		st.schemas.Remove(worstName)
	}
}

// Stats is a point-in-time snapshot of store statistics.
type Stats struct {
	TotalSchemas         int
	AverageCompression   float64
	AverageFrequency     float64
}

// Stats returns a snapshot of store statistics.
func (st *Store) Stats() Stats {
	st.mu.RLock()
	defer st.mu.RUnlock()

	values := st.schemas.Values()
	s := Stats{TotalSchemas: len(values)}
	if len(values) == 0 {
		return s
	}
	var sumRatio, sumFreq float64
	for _, sc := range values {
		sumRatio += sc.CompressionRatio
		sumFreq += float64(sc.Frequency)
	}
	s.AverageCompression = sumRatio / float64(len(values))
	s.AverageFrequency = sumFreq / float64(len(values))
	return s
}
