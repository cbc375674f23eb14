// Package concept implements the Concept Store (Component D):
// generalized patterns reinforced by matching observations, with
// confidence scoring, a parent/child hierarchy and pruning.
package concept

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/emirpasic/gods/v2/maps/linkedhashmap"
	"github.com/emirpasic/gods/v2/sets/linkedhashset"

	"github.com/dad-io/thinkingmesh/algebra"
	"github.com/dad-io/thinkingmesh/attribute"
)

// Concept is a generalized pattern reinforced by matching instances.
type Concept struct {
	Name           string
	Pattern        attribute.Pattern
	Instances      []attribute.Attribute
	Confidence     float64
	CreatedAt      float64
	LastReinforced float64
}

// GeneralizationStrength is a quick, relative measure of how specific a
// concept's pattern is: the fraction of its template's reachable keys
// that are still free variables.
func (c Concept) GeneralizationStrength() float64 {
	keys := c.Pattern.Template.AllKeys()
	if len(keys) == 0 {
		return 0
	}
	vars := len(c.Pattern.ExtractVariables())
	return float64(vars) / float64(len(keys))
}

func (c *Concept) reinforce(instance attribute.Attribute) {
	c.Instances = append(c.Instances, instance)
	c.LastReinforced = nowSeconds()
	c.Confidence = confidenceFromCount(len(c.Instances))
}

func confidenceFromCount(n int) float64 {
	v := float64(n) / 10.0
	if v > 1.0 {
		return 1.0
	}
	return v
}

func nowSeconds() float64 { return float64(time.Now().UnixNano()) / 1e9 }

// Match pairs a matched Concept with the bindings produced against it.
type Match struct {
	Concept    *Concept
	Bindings   map[string]attribute.Value
}

// Suggestion is a candidate for a new concept, carrying both the proposed
// name and the root key it was grouped by — resolved explicitly instead of
// re-parsing the key out of the generated name string.
type Suggestion struct {
	Name string
	Key  string
}

// Store is the Concept Store.
type Store struct {
	mu sync.RWMutex

	concepts  *linkedhashmap.Map[string, *Concept]
	hierarchy map[string]*linkedhashset.Set[string] // parent name -> child names
}

// New builds an empty Concept Store.
func New() *Store {
	return &Store{
		concepts:  linkedhashmap.New[string, *Concept](),
		hierarchy: make(map[string]*linkedhashset.Set[string]),
	}
}

// Create generalizes instances into a new concept and stores it, provided
// there are at least 2 instances and the resulting confidence meets
// minConfidence. Returns false (not an error) for any of those normal
// rejection reasons.
func (s *Store) Create(name string, instances []attribute.Attribute, minConfidence float64) (*Concept, bool) {
	if len(instances) < 2 {
		return nil, false
	}
	pattern, err := algebra.Generalize(instances)
	if err != nil || pattern == nil {
		return nil, false
	}
	confidence := float64(len(instances)) / 5.0
	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence < minConfidence {
		return nil, false
	}

	now := nowSeconds()
	c := &Concept{
		Name:           name,
		Pattern:        *pattern,
		Instances:      append([]attribute.Attribute(nil), instances...),
		Confidence:     confidence,
		CreatedAt:      now,
		LastReinforced: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.concepts.Put(name, c)
	return c, true
}

// Get returns the concept with the given name.
func (s *Store) Get(name string) (*Concept, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.concepts.Get(name)
}

// All returns every concept in insertion order.
func (s *Store) All() []*Concept {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.concepts.Values()
}

// FindMatching returns every concept whose pattern matches attr, sorted by
// confidence descending (ties keep insertion order).
func (s *Store) FindMatching(attr attribute.Attribute) []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Match
	for _, c := range s.concepts.Values() {
		ok, bindings, _, err := algebra.MatchPattern(c.Pattern, attr)
		if err != nil || !ok {
			continue
		}
		out = append(out, Match{Concept: c, Bindings: bindings})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Concept.Confidence > out[j].Concept.Confidence
	})
	return out
}

// ReinforceConcepts appends attr as a new instance to every concept whose
// pattern matches it, and returns their names.
func (s *Store) ReinforceConcepts(attr attribute.Attribute) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reinforced []string
	for _, c := range s.concepts.Values() {
		ok, _, _, err := algebra.MatchPattern(c.Pattern, attr)
		if err != nil || !ok {
			continue
		}
		c.reinforce(attr)
		reinforced = append(reinforced, c.Name)
	}
	return reinforced
}

// Suggest groups recentInstances by root key and proposes a new concept
// for every group with at least minInstances members that isn't already
// covered by an existing concept match on its first two instances.
func (s *Store) Suggest(recentInstances []attribute.Attribute, minInstances int) []Suggestion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make(map[string][]attribute.Attribute)
	var order []string
	for _, inst := range recentInstances {
		if _, ok := groups[inst.Key]; !ok {
			order = append(order, inst.Key)
		}
		groups[inst.Key] = append(groups[inst.Key], inst)
	}

	var suggestions []Suggestion
	for _, key := range order {
		instances := groups[key]
		if len(instances) < minInstances {
			continue
		}
		if s.alreadyCoveredLocked(instances) {
			continue
		}
		name := fmt.Sprintf("concept_%s_%d", key, int64(nowSeconds()))
		suggestions = append(suggestions, Suggestion{Name: name, Key: key})
	}
	return suggestions
}

func (s *Store) alreadyCoveredLocked(instances []attribute.Attribute) bool {
	check := instances
	if len(check) > 2 {
		check = check[:2]
	}
	for _, inst := range check {
		for _, c := range s.concepts.Values() {
			if ok, _, _, err := algebra.MatchPattern(c.Pattern, inst); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// CreateHierarchical pools every named child concept's instances into a
// new parent concept, requiring at least 2 children and at least 2 pooled
// instances.
func (s *Store) CreateHierarchical(parentName string, childNames []string, minConfidence float64) (*Concept, bool) {
	if len(childNames) < 2 {
		return nil, false
	}

	s.mu.RLock()
	var pooled []attribute.Attribute
	for _, name := range childNames {
		c, ok := s.concepts.Get(name)
		if !ok {
			s.mu.RUnlock()
			return nil, false
		}
		pooled = append(pooled, c.Instances...)
	}
	s.mu.RUnlock()

	if len(pooled) < 2 {
		return nil, false
	}

	parent, ok := s.Create(parentName, pooled, minConfidence)
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	children, exists := s.hierarchy[parentName]
	if !exists {
		children = linkedhashset.New[string]()
		s.hierarchy[parentName] = children
	}
	for _, name := range childNames {
		children.Add(name)
	}
	return parent, true
}

// Prune removes concepts whose confidence has collapsed below 0.1
// unconditionally, or below minConfidence and older than maxAge, and
// returns the number removed.
func (s *Store) Prune(minConfidence float64, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowSeconds()
	maxAgeSeconds := maxAge.Seconds()

	var toRemove []string
	for _, c := range s.concepts.Values() {
		age := now - c.CreatedAt
		if c.Confidence < 0.1 {
			toRemove = append(toRemove, c.Name)
			continue
		}
		if c.Confidence < minConfidence && age > maxAgeSeconds {
			toRemove = append(toRemove, c.Name)
		}
	}

	for _, name := range toRemove {
		s.concepts.Remove(name)
		delete(s.hierarchy, name)
		for _, children := range s.hierarchy {
			children.Remove(name)
		}
	}
	return len(toRemove)
}

// Stats is a point-in-time snapshot of store statistics.
type Stats struct {
	TotalConcepts     int
	AverageConfidence float64
	HierarchyRoots    int
}

// Stats returns a snapshot of store statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := s.concepts.Values()
	st := Stats{TotalConcepts: len(values), HierarchyRoots: len(s.hierarchy)}
	if len(values) == 0 {
		return st
	}
	sum := 0.0
	for _, c := range values {
		sum += c.Confidence
	}
	st.AverageConfidence = sum / float64(len(values))
	return st
}
