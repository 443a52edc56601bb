// Package generation synthesizes new knowledge entries when retrieval comes
// up short, and owns the store of previously generated knowledge.
package generation

import (
	"sort"
	"strings"
	"sync"

	"ardi/internal/logging"
	"ardi/internal/types"
)

// Persister is the slice of persistence the generated-knowledge store
// writes through to. Failures are logged and swallowed.
type Persister interface {
	SaveGeneratedKnowledge(gk types.GeneratedKnowledge) error
	LoadGeneratedKnowledge() ([]types.GeneratedKnowledge, error)
	UpdateGeneratedStats(id string, usageCount int, successRate float64) error
	DeleteGeneratedKnowledge(id string) error
}

// Store holds runtime-generated knowledge. Unbounded by default to match
// the original system; MaxEntries > 0 enables usage-ranked eviction.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]*types.GeneratedKnowledge
	order      []string // insertion order, for eviction tie-breaking
	maxEntries int
	version    uint64

	persister Persister // nil = in-memory only
}

// NewStore creates a generated-knowledge store, loading prior entries from
// the persister when one is provided.
func NewStore(maxEntries int, persister Persister) *Store {
	s := &Store{
		entries:    make(map[string]*types.GeneratedKnowledge),
		maxEntries: maxEntries,
		persister:  persister,
	}

	if persister != nil {
		loaded, err := persister.LoadGeneratedKnowledge()
		if err != nil {
			logging.Get(logging.CategoryGeneration).Warn("Failed to load generated knowledge: %v", err)
		} else {
			for i := range loaded {
				gk := loaded[i]
				s.entries[gk.ID] = &gk
				s.order = append(s.order, gk.ID)
			}
		}
	}

	logging.Generation("Generated-knowledge store ready: %d entries (max=%d)", len(s.entries), maxEntries)
	return s
}

// Add inserts a generated entry, evicting if the store is capped and full.
func (s *Store) Add(gk types.GeneratedKnowledge) {
	s.mu.Lock()

	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictLocked()
	}

	copied := gk
	s.entries[gk.ID] = &copied
	s.order = append(s.order, gk.ID)
	s.version++
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.SaveGeneratedKnowledge(gk); err != nil {
			logging.Get(logging.CategoryGeneration).Warn("Failed to persist generated knowledge %s: %v", gk.ID, err)
		}
	}

	logging.Generation("Generated knowledge stored: id=%s title=%q", gk.ID, gk.Title)
}

// evictLocked removes the least-used entry, oldest first on ties.
func (s *Store) evictLocked() {
	victim := ""
	victimUsage := -1
	for _, id := range s.order {
		gk, ok := s.entries[id]
		if !ok {
			continue
		}
		if victimUsage == -1 || gk.UsageCount < victimUsage {
			victim = id
			victimUsage = gk.UsageCount
		}
	}
	if victim == "" {
		return
	}

	delete(s.entries, victim)
	for i, id := range s.order {
		if id == victim {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.persister != nil {
		if err := s.persister.DeleteGeneratedKnowledge(victim); err != nil {
			logging.Get(logging.CategoryGeneration).Warn("Failed to delete evicted entry %s: %v", victim, err)
		}
	}
	logging.GenerationDebug("Evicted generated knowledge: id=%s usage=%d", victim, victimUsage)
}

// Count returns the number of stored entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Version increments on every Add.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Get returns a copy of one entry.
func (s *Store) Get(id string) (types.GeneratedKnowledge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gk, ok := s.entries[id]
	if !ok {
		return types.GeneratedKnowledge{}, false
	}
	return *gk, true
}

// All returns copies of every entry.
func (s *Store) All() []types.GeneratedKnowledge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.GeneratedKnowledge, 0, len(s.entries))
	for _, id := range s.order {
		if gk, ok := s.entries[id]; ok {
			out = append(out, *gk)
		}
	}
	return out
}

// scored pairs an entry with its match score for ranking.
type scored struct {
	entry types.GeneratedKnowledge
	score int
}

// Match scores every entry by keyword overlap plus double-weighted trigger
// containment and returns the top n, best first. Zero-score entries are
// dropped.
func (s *Store) Match(normalized string, keywords []string, n int) []types.GeneratedKnowledge {
	timer := logging.StartTimer(logging.CategoryRetrieval, "GeneratedStore.Match")
	defer timer.Stop()

	querySet := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		querySet[strings.ToLower(kw)] = true
	}

	s.mu.RLock()
	var candidates []scored
	for _, id := range s.order {
		gk, ok := s.entries[id]
		if !ok {
			continue
		}

		score := 0
		for _, kw := range gk.Keywords {
			if querySet[strings.ToLower(kw)] {
				score++
			}
		}
		for _, trigger := range gk.Triggers {
			if strings.Contains(normalized, strings.ToLower(trigger)) {
				score += 2
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{entry: *gk, score: score})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if n > 0 && len(candidates) > n {
		candidates = candidates[:n]
	}

	out := make([]types.GeneratedKnowledge, len(candidates))
	for i, c := range candidates {
		out[i] = c.entry
	}

	logging.RetrievalDebug("Generated-knowledge match: %d candidates for %d keywords", len(out), len(keywords))
	return out
}

// RecordUsage increments an entry's usage count.
func (s *Store) RecordUsage(id string) {
	s.mu.Lock()
	gk, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	gk.UsageCount++
	usage, rate := gk.UsageCount, gk.SuccessRate
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.UpdateGeneratedStats(id, usage, rate); err != nil {
			logging.Get(logging.CategoryGeneration).Warn("Failed to persist usage for %s: %v", id, err)
		}
	}
}

// RecordOutcome folds one success/failure sample into an entry's success
// rate, weighted by its usage count.
func (s *Store) RecordOutcome(id string, success bool) {
	s.mu.Lock()
	gk, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return
	}

	sample := 0.0
	if success {
		sample = 1.0
	}
	n := float64(gk.UsageCount)
	if n < 1 {
		n = 1
	}
	gk.SuccessRate = (gk.SuccessRate*n + sample) / (n + 1)
	usage, rate := gk.UsageCount, gk.SuccessRate
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.UpdateGeneratedStats(id, usage, rate); err != nil {
			logging.Get(logging.CategoryGeneration).Warn("Failed to persist outcome for %s: %v", id, err)
		}
	}
}
