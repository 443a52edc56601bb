package store

import (
	"path/filepath"
	"testing"
	"time"

	"ardi/internal/types"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(filepath.Join(t.TempDir(), "ardi.db"))
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGeneratedKnowledgeRoundTrip(t *testing.T) {
	store := newTestStore(t)

	gk := types.GeneratedKnowledge{
		KnowledgeEntry: types.KnowledgeEntry{
			ID:       "gen-1",
			Category: "legal",
			Title:    "Lien basics",
			Content:  "A lien secures a debt against settlement proceeds.",
			Keywords: []string{"lien", "settlement"},
			Triggers: []string{"lien basics"},
		},
		Source:      "generated",
		Confidence:  0.8,
		CreatedAt:   time.Now(),
		UsageCount:  0,
		SuccessRate: 0.7,
	}

	if err := store.SaveGeneratedKnowledge(gk); err != nil {
		t.Fatalf("SaveGeneratedKnowledge() error = %v", err)
	}

	entries, err := store.LoadGeneratedKnowledge()
	if err != nil {
		t.Fatalf("LoadGeneratedKnowledge() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("loaded %d entries, want 1", len(entries))
	}
	if entries[0].ID != "gen-1" {
		t.Errorf("ID = %s, want gen-1", entries[0].ID)
	}
	if entries[0].Confidence != 0.8 {
		t.Errorf("Confidence = %g, want 0.8", entries[0].Confidence)
	}
}

func TestUpdateGeneratedStatsColumnsAuthoritative(t *testing.T) {
	store := newTestStore(t)

	gk := types.GeneratedKnowledge{
		KnowledgeEntry: types.KnowledgeEntry{ID: "gen-2", Content: "content", Triggers: []string{"t"}},
		CreatedAt:      time.Now(),
		SuccessRate:    0.7,
	}
	if err := store.SaveGeneratedKnowledge(gk); err != nil {
		t.Fatalf("SaveGeneratedKnowledge() error = %v", err)
	}

	if err := store.UpdateGeneratedStats("gen-2", 5, 0.9); err != nil {
		t.Fatalf("UpdateGeneratedStats() error = %v", err)
	}

	entries, err := store.LoadGeneratedKnowledge()
	if err != nil {
		t.Fatalf("LoadGeneratedKnowledge() error = %v", err)
	}
	if entries[0].UsageCount != 5 {
		t.Errorf("UsageCount = %d, want 5 (column should override JSON)", entries[0].UsageCount)
	}
	if entries[0].SuccessRate != 0.9 {
		t.Errorf("SuccessRate = %g, want 0.9 (column should override JSON)", entries[0].SuccessRate)
	}
}

func TestDeleteGeneratedKnowledge(t *testing.T) {
	store := newTestStore(t)

	gk := types.GeneratedKnowledge{
		KnowledgeEntry: types.KnowledgeEntry{ID: "gen-3", Content: "x", Triggers: []string{"t"}},
		CreatedAt:      time.Now(),
	}
	if err := store.SaveGeneratedKnowledge(gk); err != nil {
		t.Fatalf("SaveGeneratedKnowledge() error = %v", err)
	}
	if err := store.DeleteGeneratedKnowledge("gen-3"); err != nil {
		t.Fatalf("DeleteGeneratedKnowledge() error = %v", err)
	}

	entries, err := store.LoadGeneratedKnowledge()
	if err != nil {
		t.Fatalf("LoadGeneratedKnowledge() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("loaded %d entries after delete, want 0", len(entries))
	}
}

func TestPatternRoundTrip(t *testing.T) {
	store := newTestStore(t)

	p := types.InteractionPattern{
		Pattern:          "question_lien",
		Frequency:        3,
		SuccessRate:      0.66,
		UserSatisfaction: 0.5,
		CommonKeywords:   []string{"lien"},
		LastUpdated:      time.Now(),
	}
	if err := store.SavePattern(p); err != nil {
		t.Fatalf("SavePattern() error = %v", err)
	}

	// Upsert with higher frequency.
	p.Frequency = 4
	if err := store.SavePattern(p); err != nil {
		t.Fatalf("SavePattern() upsert error = %v", err)
	}

	patterns, err := store.LoadPatterns()
	if err != nil {
		t.Fatalf("LoadPatterns() error = %v", err)
	}
	if len(patterns) != 1 {
		t.Fatalf("loaded %d patterns, want 1", len(patterns))
	}
	if got := patterns["question_lien"].Frequency; got != 4 {
		t.Errorf("Frequency = %d, want 4", got)
	}
}

func TestFeedbackRoundTrip(t *testing.T) {
	store := newTestStore(t)

	fb := types.UserFeedback{
		ID:        "fb-1",
		ProcessID: "proc-1",
		Rating:    types.RatingNegative,
		Timestamp: time.Now(),
	}
	if err := store.SaveFeedback(fb); err != nil {
		t.Fatalf("SaveFeedback() error = %v", err)
	}

	history, err := store.LoadFeedback()
	if err != nil {
		t.Fatalf("LoadFeedback() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("loaded %d feedback records, want 1", len(history))
	}
	if history[0].Rating != types.RatingNegative {
		t.Errorf("Rating = %s, want negative", history[0].Rating)
	}
}

func TestCategoryPerformanceRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveCategoryPerformance("legal", 0.75); err != nil {
		t.Fatalf("SaveCategoryPerformance() error = %v", err)
	}
	if err := store.SaveCategoryPerformance("legal", 0.5); err != nil {
		t.Fatalf("SaveCategoryPerformance() upsert error = %v", err)
	}

	perf, err := store.LoadCategoryPerformance()
	if err != nil {
		t.Fatalf("LoadCategoryPerformance() error = %v", err)
	}
	if perf["legal"] != 0.5 {
		t.Errorf("legal score = %g, want 0.5", perf["legal"])
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveCategoryPerformance("legal", 0.8); err != nil {
		t.Fatalf("SaveCategoryPerformance() error = %v", err)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats["category_performance"] != 1 {
		t.Errorf("category_performance count = %d, want 1", stats["category_performance"])
	}
	if stats["feedback"] != 0 {
		t.Errorf("feedback count = %d, want 0", stats["feedback"])
	}
}
