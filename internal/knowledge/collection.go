// Package knowledge holds the static, hand-authored knowledge collections
// and the trigger-matching ladder over them. Collections are read-only at
// answer time; the library can be swapped wholesale by the hot-reload
// watcher.
package knowledge

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"ardi/internal/logging"
	"ardi/internal/types"
)

// =============================================================================
// MATCHING
// =============================================================================

// MatchType records which rung of the matching ladder produced a hit.
type MatchType string

const (
	MatchExact   MatchType = "exact"   // normalized message equals a trigger
	MatchTrigger MatchType = "trigger" // trigger contained in the message
	MatchRelated MatchType = "related" // related-term fallback
)

// Match is one static-knowledge hit.
type Match struct {
	Entry      types.KnowledgeEntry
	Collection string
	Type       MatchType
}

// Collection is one named set of knowledge entries.
type Collection struct {
	Name    string                 `yaml:"name"`
	Entries []types.KnowledgeEntry `yaml:"entries"`
}

// Validate checks the collection invariants. Every entry must carry at
// least one trigger.
func (c *Collection) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("collection name required")
	}
	for _, e := range c.Entries {
		if e.ID == "" {
			return fmt.Errorf("collection %s: entry with empty id", c.Name)
		}
		if len(e.Triggers) == 0 {
			return fmt.Errorf("collection %s: entry %s has no triggers", c.Name, e.ID)
		}
	}
	return nil
}

// Normalize lowercases and trims a message for trigger matching.
func Normalize(message string) string {
	return strings.ToLower(strings.TrimSpace(message))
}

// MatchExactTrigger returns the entry whose trigger equals the normalized
// message, if any.
func (c *Collection) MatchExactTrigger(normalized string) *Match {
	for _, e := range c.Entries {
		for _, trigger := range e.Triggers {
			if strings.ToLower(trigger) == normalized {
				return &Match{Entry: e, Collection: c.Name, Type: MatchExact}
			}
		}
	}
	return nil
}

// entryTrigger pairs an entry with a single trigger for sorting.
type entryTrigger struct {
	entry   types.KnowledgeEntry
	trigger string
}

// MatchContainedTrigger returns the first containment match, iterating
// triggers by descending length so more specific triggers outrank generic
// ones.
func (c *Collection) MatchContainedTrigger(normalized string) *Match {
	var pairs []entryTrigger
	for _, e := range c.Entries {
		for _, trigger := range e.Triggers {
			pairs = append(pairs, entryTrigger{entry: e, trigger: strings.ToLower(trigger)})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return len(pairs[i].trigger) > len(pairs[j].trigger)
	})

	for _, p := range pairs {
		if strings.Contains(normalized, p.trigger) {
			return &Match{Entry: p.entry, Collection: c.Name, Type: MatchTrigger}
		}
	}
	return nil
}

// MatchRelatedTerms is the last-resort pass over each entry's broader
// related-term vocabulary.
func (c *Collection) MatchRelatedTerms(normalized string) *Match {
	for _, e := range c.Entries {
		for _, term := range e.RelatedTerms {
			if strings.Contains(normalized, strings.ToLower(term)) {
				return &Match{Entry: e, Collection: c.Name, Type: MatchRelated}
			}
		}
	}
	return nil
}

// Match walks the ladder: exact, then contained trigger, then related terms.
func (c *Collection) Match(normalized string) *Match {
	if m := c.MatchExactTrigger(normalized); m != nil {
		return m
	}
	if m := c.MatchContainedTrigger(normalized); m != nil {
		return m
	}
	return c.MatchRelatedTerms(normalized)
}

// Adequate reports whether a matched entry can be served as-is, bypassing
// synthesis: substantial content or a structured table rendering.
func Adequate(entry types.KnowledgeEntry) bool {
	return len(entry.Content) > 50 || entry.TableContent != ""
}

// =============================================================================
// LIBRARY
// =============================================================================

// Library is the set of configured collections. Reads are concurrent;
// Replace swaps the whole set atomically (hot reload).
type Library struct {
	mu          sync.RWMutex
	collections []*Collection
	version     uint64
}

// NewLibrary creates a library over the given collections.
func NewLibrary(collections ...*Collection) *Library {
	return &Library{collections: collections}
}

// Replace swaps the collection set and bumps the version so downstream
// caches know their sources are stale.
func (l *Library) Replace(collections []*Collection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.collections = collections
	l.version++
	logging.Boot("Knowledge library replaced: %d collections", len(collections))
}

// Version increments on every Replace.
func (l *Library) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Collections returns a snapshot of the current collection set.
func (l *Library) Collections() []*Collection {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Collection, len(l.collections))
	copy(out, l.collections)
	return out
}

// EntryCount returns the total number of entries across collections.
func (l *Library) EntryCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, c := range l.collections {
		n += len(c.Entries)
	}
	return n
}

// MatchAll runs the matching ladder per collection. Exact matches
// short-circuit: the first exact hit is returned alone. Otherwise one hit
// per collection is collected, ladder order preserved.
func (l *Library) MatchAll(normalized string) []Match {
	timer := logging.StartTimer(logging.CategoryRetrieval, "Library.MatchAll")
	defer timer.Stop()

	l.mu.RLock()
	collections := l.collections
	l.mu.RUnlock()

	// Exact pass across all collections first: exact matches dominate.
	for _, c := range collections {
		if m := c.MatchExactTrigger(normalized); m != nil {
			logging.RetrievalDebug("Exact trigger match: collection=%s entry=%s", c.Name, m.Entry.ID)
			return []Match{*m}
		}
	}

	var matches []Match
	for _, c := range collections {
		if m := c.MatchContainedTrigger(normalized); m != nil {
			matches = append(matches, *m)
			continue
		}
		if m := c.MatchRelatedTerms(normalized); m != nil {
			matches = append(matches, *m)
		}
	}

	logging.RetrievalDebug("Static matching: %d hits across %d collections", len(matches), len(collections))
	return matches
}
