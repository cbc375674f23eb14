// Package episodic implements the Episodic Store (Component C): a
// bounded, time-ordered log of observed Attributes with root-key
// indexing, FIFO eviction, and pattern/temporal retrieval.
package episodic

import (
	"container/list"
	"log"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/dad-io/thinkingmesh/algebra"
	"github.com/dad-io/thinkingmesh/attribute"
)

const defaultCapacity = 10000

// Entry is a single stored observation.
type Entry struct {
	ID        uint32
	Attr      attribute.Attribute
	Timestamp float64
	Source    *string
}

// Stats is a point-in-time snapshot of store statistics.
type Stats struct {
	TotalEntries    int
	Capacity        int
	UniqueKeys      int
	Evictions       uint64
	OldestTimestamp float64
	NewestTimestamp float64
}

// Store is the Episodic Store. Entries are kept in insertion order in a
// doubly linked list so both append and FIFO eviction are O(1); a root-key
// index maps each key to a roaring bitmap of entry ids, avoiding the
// O(n) index-shifting the original distilled-from implementation paid on
// every eviction.
type Store struct {
	mu sync.RWMutex

	capacity int
	order    *list.List // *Entry values, front = oldest
	byID     map[uint32]*list.Element
	keyIndex map[string]*roaring.Bitmap
	nextID   uint32

	evictions uint64
}

// New builds an Episodic Store bounded to capacity entries.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Store{
		capacity: capacity,
		order:    list.New(),
		byID:     make(map[uint32]*list.Element),
		keyIndex: make(map[string]*roaring.Bitmap),
	}
}

// Store appends a new observation, evicting the oldest entry if the store
// is over capacity afterward.
func (s *Store) Store(attr attribute.Attribute, source *string) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	entry := &Entry{ID: id, Attr: attr, Timestamp: attr.Timestamp, Source: source}

	el := s.order.PushBack(entry)
	s.byID[id] = el
	s.indexAdd(attr.Key, id)

	if s.order.Len() > s.capacity {
		s.evictOldestLocked()
	}
	return *entry
}

func (s *Store) indexAdd(key string, id uint32) {
	bm, ok := s.keyIndex[key]
	if !ok {
		bm = roaring.New()
		s.keyIndex[key] = bm
	}
	bm.Add(id)
}

func (s *Store) evictOldestLocked() {
	front := s.order.Front()
	if front == nil {
		return
	}
	entry := front.Value.(*Entry)
	s.order.Remove(front)
	delete(s.byID, entry.ID)
	if bm, ok := s.keyIndex[entry.Attr.Key]; ok {
		bm.Remove(entry.ID)
		if bm.IsEmpty() {
			delete(s.keyIndex, entry.Attr.Key)
		}
	}
	s.evictions++
	log.Printf("episodic: evicted entry %d (key=%q) at capacity %d", entry.ID, entry.Attr.Key, s.capacity)
}

// Recent returns up to count of the most recently stored entries, oldest
// of the returned slice first.
func (s *Store) Recent(count int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if count <= 0 {
		return nil
	}
	out := make([]Entry, 0, count)
	for el := s.order.Back(); el != nil && len(out) < count; el = el.Prev() {
		out = append(out, *el.Value.(*Entry))
	}
	// reverse into chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ByTimeRange returns every entry with timestamp in [start, end], inclusive
// on both ends, oldest first.
func (s *Store) ByTimeRange(start, end float64) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for el := s.order.Front(); el != nil; el = el.Next() {
		entry := el.Value.(*Entry)
		if entry.Timestamp >= start && entry.Timestamp <= end {
			out = append(out, *entry)
		}
	}
	return out
}

// ByKey returns up to limit of the most recent entries whose root key is
// key, in chronological order. limit <= 0 means unbounded.
func (s *Store) ByKey(key string, limit int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bm, ok := s.keyIndex[key]
	if !ok {
		return nil
	}
	ids := bm.ToArray()
	if limit > 0 && len(ids) > limit {
		ids = ids[len(ids)-limit:]
	}
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		if el, ok := s.byID[id]; ok {
			out = append(out, *el.Value.(*Entry))
		}
	}
	return out
}

// SearchPattern scans entries newest-first, matching each against pattern,
// and returns up to limit matches paired with their bindings. limit <= 0
// means unbounded.
func (s *Store) SearchPattern(pattern attribute.Pattern, limit int) ([]Entry, []map[string]attribute.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []Entry
	var bindingsOut []map[string]attribute.Value
	for el := s.order.Back(); el != nil; el = el.Prev() {
		if limit > 0 && len(entries) >= limit {
			break
		}
		entry := el.Value.(*Entry)
		ok, bindings, _, err := algebra.MatchPattern(pattern, entry.Attr)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			entries = append(entries, *entry)
			bindingsOut = append(bindingsOut, bindings)
		}
	}
	return entries, bindingsOut, nil
}

// Stats returns a snapshot of store statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalEntries: s.order.Len(),
		Capacity:     s.capacity,
		UniqueKeys:   len(s.keyIndex),
		Evictions:    s.evictions,
	}
	if front := s.order.Front(); front != nil {
		st.OldestTimestamp = front.Value.(*Entry).Timestamp
	}
	if back := s.order.Back(); back != nil {
		st.NewestTimestamp = back.Value.(*Entry).Timestamp
	}
	return st
}
