// Package workingmemory implements Working Memory (Component F): active
// query contexts, partial variable bindings and cross-query global
// bindings, bounded by an LRU of per-query entries and TTL expiry of
// contexts.
package workingmemory

import (
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/dad-io/thinkingmesh/attribute"
)

const (
	defaultMaxEntries    = 100
	defaultTimeout       = 300.0
	staleEntryAge        = time.Hour
)

// Entry tracks the binding state and partial matches accumulated while a
// single query is processed.
type Entry struct {
	QueryID        string
	Pattern        attribute.Pattern
	Bindings       map[string]attribute.Value
	PartialMatches []attribute.Attribute
	CreatedAt      float64
	LastAccessed   float64
}

// Context is the reasoning state for one active query: its step count,
// deadline and intermediate results.
type Context struct {
	QueryID             string
	OriginalQuery       attribute.Query
	CurrentStep         int
	MaxSteps            int
	IntermediateResults []map[string]attribute.Value
	StartedAt           float64
	TimeoutSeconds      float64
}

// IsExpired reports whether the context has outlived its timeout.
func (c Context) IsExpired() bool {
	return nowSeconds()-c.StartedAt > c.TimeoutSeconds
}

// AddResult appends an intermediate binding snapshot and advances the step
// counter.
func (c *Context) AddResult(bindings map[string]attribute.Value) {
	cp := make(map[string]attribute.Value, len(bindings))
	for k, v := range bindings {
		cp[k] = v
	}
	c.IntermediateResults = append(c.IntermediateResults, cp)
	c.CurrentStep++
}

// IsComplete reports whether the context has reached its step limit.
func (c Context) IsComplete() bool {
	return c.CurrentStep >= c.MaxSteps
}

func nowSeconds() float64 { return float64(time.Now().UnixNano()) / 1e9 }

// Memory is Working Memory.
type Memory struct {
	mu sync.Mutex

	entries         *lru.Cache // string -> *Entry, evicts by access recency
	maxEntries      int
	contexts        map[string]*Context
	globalBindings  map[string]attribute.Value
	defaultTimeout  float64
}

// New builds Working Memory bounded to maxEntries per-query entries, with
// defaultTimeout seconds applied to contexts that don't specify their own.
func New(maxEntries int, defaultTimeoutSeconds float64) *Memory {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if defaultTimeoutSeconds <= 0 {
		defaultTimeoutSeconds = defaultTimeout
	}
	cache, _ := lru.New(maxEntries)
	return &Memory{
		entries:        cache,
		maxEntries:     maxEntries,
		contexts:       make(map[string]*Context),
		globalBindings: make(map[string]attribute.Value),
		defaultTimeout: defaultTimeoutSeconds,
	}
}

// CreateQueryContext starts tracking a new query and returns its id.
func (m *Memory) CreateQueryContext(query attribute.Query, maxSteps int, timeout *float64) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	queryID := "query_" + uuid.New().String()
	t := m.defaultTimeout
	if timeout != nil {
		t = *timeout
	}
	m.contexts[queryID] = &Context{
		QueryID:        queryID,
		OriginalQuery:  query,
		MaxSteps:       maxSteps,
		StartedAt:      nowSeconds(),
		TimeoutSeconds: t,
	}
	return queryID
}

// GetQueryContext returns the context for queryID, lazily deleting and
// reporting not-found if it has expired.
func (m *Memory) GetQueryContext(queryID string) (*Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.contexts[queryID]
	if !ok {
		return nil, false
	}
	if ctx.IsExpired() {
		delete(m.contexts, queryID)
		return nil, false
	}
	return ctx, true
}

// UpdateBindings merges newBindings into the named entry and, if a
// context for the same query exists, records the step.
func (m *Memory) UpdateBindings(queryID string, newBindings map[string]attribute.Value) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.entries.Get(queryID)
	if !ok {
		return false
	}
	entry := v.(*Entry)
	for k, val := range newBindings {
		entry.Bindings[k] = val
	}
	entry.LastAccessed = nowSeconds()

	if ctx, ok := m.contexts[queryID]; ok {
		ctx.AddResult(newBindings)
	}
	return true
}

// AddPartialMatch appends match to the named entry's partial-match list.
func (m *Memory) AddPartialMatch(queryID string, match attribute.Attribute) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.entries.Get(queryID)
	if !ok {
		return false
	}
	entry := v.(*Entry)
	entry.PartialMatches = append(entry.PartialMatches, match)
	entry.LastAccessed = nowSeconds()
	return true
}

// CreateEntry creates a new working-memory entry for queryID. If the
// cache is already at capacity, the LRU evicts the entry least recently
// accessed.
func (m *Memory) CreateEntry(queryID string, pattern attribute.Pattern, initial map[string]attribute.Value) *Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	bindings := make(map[string]attribute.Value, len(initial))
	for k, v := range initial {
		bindings[k] = v
	}
	now := nowSeconds()
	entry := &Entry{
		QueryID:      queryID,
		Pattern:      pattern,
		Bindings:     bindings,
		CreatedAt:    now,
		LastAccessed: now,
	}
	m.entries.Add(queryID, entry)
	return entry
}

// GetEntry returns the named entry, refreshing its access recency.
func (m *Memory) GetEntry(queryID string) (*Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.entries.Get(queryID)
	if !ok {
		return nil, false
	}
	entry := v.(*Entry)
	entry.LastAccessed = nowSeconds()
	return entry, true
}

// GetBindings returns a copy of the named entry's current bindings, or an
// empty map if there is no such entry.
func (m *Memory) GetBindings(queryID string) map[string]attribute.Value {
	entry, ok := m.GetEntry(queryID)
	if !ok {
		return map[string]attribute.Value{}
	}
	cp := make(map[string]attribute.Value, len(entry.Bindings))
	for k, v := range entry.Bindings {
		cp[k] = v
	}
	return cp
}

// SetGlobalBinding sets a binding visible to every query.
func (m *Memory) SetGlobalBinding(name string, value attribute.Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.globalBindings[name] = value
}

// GetGlobalBinding returns a global binding's value.
func (m *Memory) GetGlobalBinding(name string) (attribute.Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.globalBindings[name]
	return v, ok
}

// ResolveVariable resolves a variable from the query's local bindings
// first, falling back to global bindings.
func (m *Memory) ResolveVariable(queryID, name string) (attribute.Value, bool) {
	m.mu.Lock()
	v, ok := m.entries.Peek(queryID)
	if ok {
		entry := v.(*Entry)
		if val, bound := entry.Bindings[name]; bound {
			m.mu.Unlock()
			return val, true
		}
	}
	val, bound := m.globalBindings[name]
	m.mu.Unlock()
	return val, bound
}

// SubstituteVariables replaces every bound variable reachable from attr
// with its resolved value, preserving structure and timestamps elsewhere.
func (m *Memory) SubstituteVariables(queryID string, a attribute.Attribute) attribute.Attribute {
	if v, ok := a.AsVariable(); ok {
		if bound, ok := m.ResolveVariable(queryID, v.Name); ok {
			return attribute.Attribute{Key: a.Key, Value: bound, Timestamp: a.Timestamp}
		}
		return a
	}
	if nested, ok := a.AsNested(); ok {
		substituted := make([]attribute.Attribute, len(nested))
		for i, child := range nested {
			substituted[i] = m.SubstituteVariables(queryID, child)
		}
		return attribute.Attribute{Key: a.Key, Value: attribute.Nested(substituted), Timestamp: a.Timestamp}
	}
	return a
}

// FindUnboundVariables returns every variable in pattern's template that
// resolves to nothing, neither locally nor globally.
func (m *Memory) FindUnboundVariables(queryID string, pattern attribute.Pattern) []string {
	var unbound []string
	for _, name := range pattern.ExtractVariables() {
		if _, ok := m.ResolveVariable(queryID, name); !ok {
			unbound = append(unbound, name)
		}
	}
	return unbound
}

// CleanupExpired removes every expired context and every entry not
// accessed within the last hour, returning the total removed.
func (m *Memory) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for id, ctx := range m.contexts {
		if ctx.IsExpired() {
			delete(m.contexts, id)
			count++
		}
	}

	now := nowSeconds()
	for _, key := range m.entries.Keys() {
		v, ok := m.entries.Peek(key)
		if !ok {
			continue
		}
		entry := v.(*Entry)
		if now-entry.LastAccessed > staleEntryAge.Seconds() {
			m.entries.Remove(key)
			count++
		}
	}
	return count
}

// GetActiveQueries cleans up expired contexts and returns what remains.
func (m *Memory) GetActiveQueries() []*Context {
	m.CleanupExpired()
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Context, 0, len(m.contexts))
	for _, ctx := range m.contexts {
		out = append(out, ctx)
	}
	return out
}

// Stats is a point-in-time snapshot of working-memory statistics.
type Stats struct {
	ActiveQueries        int
	TotalEntries         int
	GlobalBindings       int
	TotalLocalBindings   int
	TotalPartialMatches  int
	MaxEntries           int
}

// Stats returns a snapshot of working-memory statistics.
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		ActiveQueries:  len(m.contexts),
		TotalEntries:   m.entries.Len(),
		GlobalBindings: len(m.globalBindings),
		MaxEntries:     m.maxEntries,
	}
	for _, key := range m.entries.Keys() {
		v, ok := m.entries.Peek(key)
		if !ok {
			continue
		}
		entry := v.(*Entry)
		s.TotalLocalBindings += len(entry.Bindings)
		s.TotalPartialMatches += len(entry.PartialMatches)
	}
	return s
}
