// Package memcore wires the Episodic Store, Concept Store, Schema Cache,
// Working Memory and Query Engine into a single symbolic memory core:
// store an observation, let concepts and schemas discover themselves, and
// query across all of it.
package memcore

import (
	"sync"
	"time"

	"github.com/dad-io/thinkingmesh/attribute"
	"github.com/dad-io/thinkingmesh/concept"
	"github.com/dad-io/thinkingmesh/episodic"
	"github.com/dad-io/thinkingmesh/query"
	"github.com/dad-io/thinkingmesh/schema"
	"github.com/dad-io/thinkingmesh/workingmemory"
)

const (
	recentWindowForDiscovery = 50
	minObservationsToSuggest = 3
	minInstancesForSchema    = 3
	maintenanceEvery         = 100
	episodicFullFraction     = 0.9
	compressionThreshold     = 0.8

	conceptPruneMinConfidence = 0.3
	conceptPruneMaxAge        = 24 * time.Hour
	schemaPruneMaxRatio       = 0.8
	schemaPruneMinFrequency   = 2
)

// Overview is the running counters symbolic memory keeps on its own
// activity, independent of any single tier's own statistics.
type Overview struct {
	ObservationsStored int
	ConceptsDiscovered int
	SchemasDiscovered  int
	QueriesExecuted    int
}

// CompressionStats reports how many entries each tier removed during a
// CompressMemory pass.
type CompressionStats struct {
	EpisodicEntriesRemoved int
	ConceptsRemoved        int
	SchemasRemoved         int
	WorkingMemoryCleaned   int
}

// Stats is a full point-in-time snapshot of every tier plus the overview
// counters.
type Stats struct {
	Overview      Overview
	Episodic      episodic.Stats
	Concepts      concept.Stats
	Schemas       schema.Stats
	WorkingMemory workingmemory.Stats
	Query         query.Stats
}

// Core is the unified symbolic memory core.
type Core struct {
	mu sync.Mutex // guards store_observation's cross-tier atomicity

	episodic *episodic.Store
	concepts *concept.Store
	schemas  *schema.Store
	working  *workingmemory.Memory
	engine   *query.Engine

	autoConceptDiscovery bool
	autoSchemaDiscovery  bool
	compressionThreshold float64

	overview Overview
}

// New builds a symbolic memory core with bounded episodic and schema
// capacity and bounded working-memory entries. Auto concept/schema
// discovery are on by default, matching the reference system.
func New(maxEpisodicEntries, maxWorkingEntries, maxSchemas int) *Core {
	ep := episodic.New(maxEpisodicEntries)
	cs := concept.New()
	wm := workingmemory.New(maxWorkingEntries, 0)
	sc := schema.New(minInstancesForSchema, maxSchemas)

	return &Core{
		episodic:             ep,
		concepts:             cs,
		schemas:              sc,
		working:              wm,
		engine:               query.New(ep, cs, sc, wm),
		autoConceptDiscovery: true,
		autoSchemaDiscovery:  true,
		compressionThreshold: compressionThreshold,
	}
}

// StoreObservation stores attr in the Episodic Store, reinforces matching
// concepts (triggering discovery if none matched), updates matching
// schemas, and runs periodic maintenance every maintenanceEvery-th call.
// Schema discovery is not reached from here: the single observation passed
// on is below the minInstancesForSchema discovery minimum. The whole
// sequence runs under the same lock Query holds, so a concurrent query
// never observes an observation stored but not yet reflected in
// concepts/schemas.
func (c *Core) StoreObservation(attr attribute.Attribute, source *string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.episodic.Store(attr, source)
	c.overview.ObservationsStored++

	if c.autoConceptDiscovery {
		reinforced := c.concepts.ReinforceConcepts(attr)
		if len(reinforced) == 0 {
			c.tryDiscoverConceptsLocked()
		}
	}

	if c.autoSchemaDiscovery {
		c.updateSchemasLocked([]attribute.Attribute{attr})
	}

	if c.overview.ObservationsStored%maintenanceEvery == 0 {
		c.periodicMaintenanceLocked()
	}
}

func (c *Core) tryDiscoverConceptsLocked() {
	recent := c.episodic.Recent(recentWindowForDiscovery)
	if len(recent) < minObservationsToSuggest {
		return
	}
	observations := make([]attribute.Attribute, len(recent))
	for i, entry := range recent {
		observations[i] = entry.Attr
	}

	suggestions := c.concepts.Suggest(observations, minObservationsToSuggest)
	for _, s := range suggestions {
		var matching []attribute.Attribute
		for _, obs := range observations {
			if obs.Key == s.Key {
				matching = append(matching, obs)
			}
		}
		if len(matching) < minObservationsToSuggest {
			continue
		}
		if _, ok := c.concepts.Create(s.Name, matching, 0); ok {
			c.overview.ConceptsDiscovered++
		}
	}
}

func (c *Core) updateSchemasLocked(newInstances []attribute.Attribute) {
	updated := c.schemas.Update(newInstances)
	if len(updated) == 0 && len(newInstances) >= minInstancesForSchema {
		if _, ok := c.schemas.Discover(newInstances, nil); ok {
			c.overview.SchemasDiscovered++
		}
	}
}

func (c *Core) periodicMaintenanceLocked() {
	c.working.CleanupExpired()

	st := c.episodic.Stats()
	if float64(st.TotalEntries) > float64(st.Capacity)*episodicFullFraction {
		c.compressMemoryLocked()
	}
}

// Query executes a pattern query using both concept and schema phases.
func (c *Core) Query(pattern attribute.Pattern, conditions []string) query.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overview.QueriesExecuted++
	return c.engine.Query(attribute.Query{Pattern: pattern, Conditions: conditions}, true, true)
}

// QueryPath resolves a dot-separated path string against source, or
// against recent episodic entries if source is nil.
func (c *Core) QueryPath(pathStr string, source *attribute.Attribute) query.Result {
	c.mu.Lock()
	c.overview.QueriesExecuted++
	c.mu.Unlock()
	return c.engine.PathQuery(attribute.ParsePath(pathStr), source)
}

// DiscoverConcept manually generalizes instances into a named concept.
func (c *Core) DiscoverConcept(name string, instances []attribute.Attribute) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.concepts.Create(name, instances, 0); ok {
		c.overview.ConceptsDiscovered++
		return true
	}
	return false
}

// DiscoverSchema manually generalizes instances into a named schema.
func (c *Core) DiscoverSchema(name string, instances []attribute.Attribute) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := name
	if _, ok := c.schemas.Discover(instances, &n); ok {
		c.overview.SchemasDiscovered++
		return true
	}
	return false
}

// GetRecentObservations returns the Attributes of the count most recent
// episodic entries.
func (c *Core) GetRecentObservations(count int) []attribute.Attribute {
	entries := c.episodic.Recent(count)
	out := make([]attribute.Attribute, len(entries))
	for i, e := range entries {
		out[i] = e.Attr
	}
	return out
}

// GetConcepts returns the names of every concept whose confidence is at
// least minConfidence.
func (c *Core) GetConcepts(minConfidence float64) []string {
	var names []string
	for _, con := range c.concepts.All() {
		if con.Confidence >= minConfidence {
			names = append(names, con.Name)
		}
	}
	return names
}

// GetSchemas returns the names of every schema whose frequency is at
// least minFrequency.
func (c *Core) GetSchemas(minFrequency int) []string {
	var names []string
	for _, s := range c.schemas.All() {
		if s.Frequency >= minFrequency {
			names = append(names, s.Name)
		}
	}
	return names
}

// CompressMemory removes redundancy across tiers: near-duplicate episodic
// entries, weak concepts, ineffective schemas and expired working-memory
// state.
func (c *Core) CompressMemory() CompressionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compressMemoryLocked()
}

func (c *Core) compressMemoryLocked() CompressionStats {
	return CompressionStats{
		EpisodicEntriesRemoved: c.episodic.CompressSimilar(c.compressionThreshold),
		ConceptsRemoved:        c.concepts.Prune(conceptPruneMinConfidence, conceptPruneMaxAge),
		SchemasRemoved:         c.schemas.Prune(schemaPruneMaxRatio, schemaPruneMinFrequency),
		WorkingMemoryCleaned:   c.working.CleanupExpired(),
	}
}

// Stats returns a full snapshot across every tier.
func (c *Core) Stats() Stats {
	c.mu.Lock()
	overview := c.overview
	c.mu.Unlock()

	return Stats{
		Overview:      overview,
		Episodic:      c.episodic.Stats(),
		Concepts:      c.concepts.Stats(),
		Schemas:       c.schemas.Stats(),
		WorkingMemory: c.working.Stats(),
		Query:         c.engine.Stats(),
	}
}

// ExportedConcept is one concept's exported knowledge summary.
type ExportedConcept struct {
	Pattern        string
	InstancesCount int
	Confidence     float64
}

// ExportedSchema is one schema's exported knowledge summary.
type ExportedSchema struct {
	Template         string
	Frequency        int
	CompressionRatio float64
}

// Knowledge is the exported knowledge state: every concept and schema's
// summary plus a full statistics snapshot.
type Knowledge struct {
	Concepts   map[string]ExportedConcept
	Schemas    map[string]ExportedSchema
	Statistics Stats
}

// ExportKnowledge summarizes every concept and schema the core currently
// holds, alongside a full statistics snapshot.
func (c *Core) ExportKnowledge() Knowledge {
	concepts := make(map[string]ExportedConcept)
	for _, con := range c.concepts.All() {
		concepts[con.Name] = ExportedConcept{
			Pattern:        attribute.Compact(con.Pattern.Template),
			InstancesCount: len(con.Instances),
			Confidence:     con.Confidence,
		}
	}

	schemas := make(map[string]ExportedSchema)
	for _, s := range c.schemas.All() {
		schemas[s.Name] = ExportedSchema{
			Template:         attribute.Compact(s.Template.Template),
			Frequency:        s.Frequency,
			CompressionRatio: s.CompressionRatio,
		}
	}

	return Knowledge{Concepts: concepts, Schemas: schemas, Statistics: c.Stats()}
}

// Reset discards all stored state and rebuilds every tier fresh with the
// given capacities.
func (c *Core) Reset(maxEpisodicEntries, maxWorkingEntries, maxSchemas int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.episodic = episodic.New(maxEpisodicEntries)
	c.concepts = concept.New()
	c.working = workingmemory.New(maxWorkingEntries, 0)
	c.schemas = schema.New(minInstancesForSchema, maxSchemas)
	c.engine = query.New(c.episodic, c.concepts, c.schemas, c.working)
	c.overview = Overview{}
}
