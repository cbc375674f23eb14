package episodic

import (
	"container/list"
	"math"

	"github.com/RoaringBitmap/roaring"
	"github.com/agnivade/levenshtein"

	"github.com/dad-io/thinkingmesh/attribute"
)

// TemporalPattern describes an interesting sliding window over the
// chronological entry log: either every entry in the window shares a root
// key, or the intervals between consecutive entries are close to regular
// (coefficient of variation below 0.2).
type TemporalPattern struct {
	Entries   []Entry
	SharedKey string // non-empty when every entry in the window shares a root key
	Regular   bool   // true when interval CV < 0.2
}

// TemporalPatterns slides a window of the given size over the
// chronological entry log and returns every window meeting the interest
// criteria above.
func (s *Store) TemporalPatterns(window int) []TemporalPattern {
	if window < 2 {
		return nil
	}
	s.mu.RLock()
	chronological := make([]Entry, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		chronological = append(chronological, *el.Value.(*Entry))
	}
	s.mu.RUnlock()

	if len(chronological) < window {
		return nil
	}

	var out []TemporalPattern
	for i := 0; i+window <= len(chronological); i++ {
		win := chronological[i : i+window]
		sharedKey := sharedRootKey(win)
		regular := intervalsRegular(win)
		if sharedKey != "" || regular {
			out = append(out, TemporalPattern{Entries: append([]Entry(nil), win...), SharedKey: sharedKey, Regular: regular})
		}
	}
	return out
}

func sharedRootKey(win []Entry) string {
	key := win[0].Attr.Key
	for _, e := range win[1:] {
		if e.Attr.Key != key {
			return ""
		}
	}
	return key
}

func intervalsRegular(win []Entry) bool {
	if len(win) < 3 {
		return false
	}
	intervals := make([]float64, 0, len(win)-1)
	for i := 1; i < len(win); i++ {
		intervals = append(intervals, win[i].Timestamp-win[i-1].Timestamp)
	}
	mean := 0.0
	for _, v := range intervals {
		mean += v
	}
	mean /= float64(len(intervals))
	if mean == 0 {
		return false
	}
	variance := 0.0
	for _, v := range intervals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(intervals))
	cv := math.Sqrt(variance) / math.Abs(mean)
	return cv < 0.2
}

// CompressSimilar removes near-duplicate entries sharing a root key,
// keeping the newer of each pair, and returns the number removed. Two
// entries are considered duplicates when the normalized similarity of
// their canonical compact strings (1 - levenshtein distance / max length)
// is at least threshold; threshold 1.0 collapses only byte-identical
// entries.
func (s *Store) CompressSimilar(threshold float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey := make(map[string][]*list.Element)
	for el := s.order.Front(); el != nil; el = el.Next() {
		entry := el.Value.(*Entry)
		byKey[entry.Attr.Key] = append(byKey[entry.Attr.Key], el)
	}

	toRemove := make(map[uint32]*list.Element)
	for _, group := range byKey {
		for i := 0; i < len(group); i++ {
			ei := group[i].Value.(*Entry)
			if _, marked := toRemove[ei.ID]; marked {
				continue
			}
			for j := i + 1; j < len(group); j++ {
				ej := group[j].Value.(*Entry)
				if _, marked := toRemove[ej.ID]; marked {
					continue
				}
				if similar(ei.Attr, ej.Attr, threshold) {
					// keep the newer (higher id)
					if ei.ID < ej.ID {
						toRemove[ei.ID] = group[i]
						break
					}
					toRemove[ej.ID] = group[j]
				}
			}
		}
	}

	for id, el := range toRemove {
		s.order.Remove(el)
		delete(s.byID, id)
	}
	s.rebuildIndexLocked()
	return len(toRemove)
}

func similar(a, b attribute.Attribute, threshold float64) bool {
	sa, sb := attribute.Compact(a), attribute.Compact(b)
	if sa == sb {
		return true
	}
	if threshold >= 1.0 {
		return false
	}
	dist := levenshtein.ComputeDistance(sa, sb)
	maxLen := len(sa)
	if len(sb) > maxLen {
		maxLen = len(sb)
	}
	if maxLen == 0 {
		return true
	}
	sim := 1.0 - float64(dist)/float64(maxLen)
	return sim >= threshold
}

func (s *Store) rebuildIndexLocked() {
	s.keyIndex = make(map[string]*roaring.Bitmap)
	for el := s.order.Front(); el != nil; el = el.Next() {
		entry := el.Value.(*Entry)
		s.indexAdd(entry.Attr.Key, entry.ID)
	}
}
