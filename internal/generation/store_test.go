package generation

import (
	"math"
	"testing"
	"time"

	"ardi/internal/types"
)

func entry(id string, usage int, keywords, triggers []string) types.GeneratedKnowledge {
	return types.GeneratedKnowledge{
		KnowledgeEntry: types.KnowledgeEntry{
			ID:       id,
			Content:  "Generated content for " + id,
			Keywords: keywords,
			Triggers: triggers,
		},
		Source:      "generated",
		Confidence:  0.8,
		CreatedAt:   time.Now(),
		UsageCount:  usage,
		SuccessRate: 0.7,
	}
}

func TestStoreAddAndGet(t *testing.T) {
	s := NewStore(0, nil)

	s.Add(entry("gen-1", 0, []string{"lien"}, []string{"lien basics"}))

	if s.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", s.Count())
	}
	got, ok := s.Get("gen-1")
	if !ok {
		t.Fatal("Get() did not find stored entry")
	}
	if got.SuccessRate != 0.7 {
		t.Errorf("SuccessRate = %g, want 0.7", got.SuccessRate)
	}
}

func TestStoreUnboundedByDefault(t *testing.T) {
	s := NewStore(0, nil)
	for i := 0; i < 50; i++ {
		s.Add(entry("gen-"+string(rune('a'+i%26))+string(rune('a'+i/26)), 0, nil, []string{"t"}))
	}
	if s.Count() != 50 {
		t.Fatalf("Count() = %d, want 50 (no eviction when uncapped)", s.Count())
	}
}

func TestStoreEvictsLeastUsed(t *testing.T) {
	s := NewStore(2, nil)

	s.Add(entry("gen-popular", 5, nil, []string{"a"}))
	s.Add(entry("gen-idle", 1, nil, []string{"b"}))
	s.Add(entry("gen-new", 0, nil, []string{"c"}))

	if s.Count() != 2 {
		t.Fatalf("Count() = %d, want 2 after eviction", s.Count())
	}
	if _, ok := s.Get("gen-idle"); ok {
		t.Error("least-used entry gen-idle should have been evicted")
	}
	if _, ok := s.Get("gen-popular"); !ok {
		t.Error("most-used entry gen-popular should survive")
	}
}

func TestStoreMatchScoring(t *testing.T) {
	s := NewStore(0, nil)

	s.Add(entry("gen-trigger", 0, []string{"lien"}, []string{"lien basics"}))
	s.Add(entry("gen-keyword", 0, []string{"lien", "debt"}, []string{"unrelated trigger"}))
	s.Add(entry("gen-miss", 0, []string{"payroll"}, []string{"vacation days"}))

	matches := s.Match("tell me about lien basics", []string{"lien"}, 5)
	if len(matches) != 2 {
		t.Fatalf("Match() = %d entries, want 2 (zero-score dropped)", len(matches))
	}
	// Trigger containment is double-weighted, so gen-trigger outranks
	// the keyword-only hit.
	if matches[0].ID != "gen-trigger" {
		t.Errorf("first match = %s, want gen-trigger", matches[0].ID)
	}
}

func TestStoreMatchCapsResults(t *testing.T) {
	s := NewStore(0, nil)
	s.Add(entry("gen-1", 0, []string{"lien"}, nil))
	s.Add(entry("gen-2", 0, []string{"lien"}, nil))
	s.Add(entry("gen-3", 0, []string{"lien"}, nil))

	if got := s.Match("anything", []string{"lien"}, 2); len(got) != 2 {
		t.Fatalf("Match() = %d entries, want cap 2", len(got))
	}
}

func TestRecordUsage(t *testing.T) {
	s := NewStore(0, nil)
	s.Add(entry("gen-1", 0, nil, []string{"t"}))

	s.RecordUsage("gen-1")
	s.RecordUsage("gen-1")
	s.RecordUsage("missing") // no-op

	got, _ := s.Get("gen-1")
	if got.UsageCount != 2 {
		t.Fatalf("UsageCount = %d, want 2", got.UsageCount)
	}
}

func TestRecordOutcome(t *testing.T) {
	s := NewStore(0, nil)
	s.Add(entry("gen-1", 0, nil, []string{"t"}))

	s.RecordOutcome("gen-1", true)
	got, _ := s.Get("gen-1")
	// usage 0 counts as one prior sample: (0.7*1 + 1) / 2.
	if math.Abs(got.SuccessRate-0.85) > 1e-9 {
		t.Errorf("SuccessRate after success = %g, want 0.85", got.SuccessRate)
	}

	s.RecordOutcome("gen-1", false)
	updated, _ := s.Get("gen-1")
	if updated.SuccessRate >= got.SuccessRate {
		t.Errorf("failure outcome should lower success rate: %g -> %g", got.SuccessRate, updated.SuccessRate)
	}
}
