package core

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ardi/internal/config"
	"ardi/internal/store"
	"ardi/internal/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Store.DatabasePath = filepath.Join(t.TempDir(), "ardi.db")
	cfg.Search.Enabled = false
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestAnswerGreetingScenario(t *testing.T) {
	engine := newTestEngine(t, testConfig(t))

	answer, err := engine.Answer(context.Background(), "hello ardi")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Source != "Ardi Identity" {
		t.Errorf("Source = %q, want Ardi Identity", answer.Source)
	}
	if answer.Confidence != 1.0 {
		t.Errorf("Confidence = %g, want 1.0 for exact trigger", answer.Confidence)
	}
	if !strings.Contains(answer.Content, "Ardi") {
		t.Errorf("Content = %q, want the fixed greeting", answer.Content)
	}
	if answer.ProcessID == "" {
		t.Error("ProcessID should be set for feedback")
	}
}

func TestAnswerLienPrefersCuratedOverGenerated(t *testing.T) {
	cfg := testConfig(t)

	// Seed a lower-quality generated entry about liens before the engine
	// opens the store.
	seed, err := store.NewLocalStore(cfg.Store.DatabasePath)
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	if err := seed.SaveGeneratedKnowledge(types.GeneratedKnowledge{
		KnowledgeEntry: types.KnowledgeEntry{
			ID:       "gen-lien",
			Content:  "Liens are complicated legal things.",
			Keywords: []string{"lien"},
			Triggers: []string{"lien"},
		},
		Source:      "generated",
		Confidence:  0.5,
		CreatedAt:   time.Now(),
		SuccessRate: 0.7,
	}); err != nil {
		t.Fatalf("SaveGeneratedKnowledge() error = %v", err)
	}
	seed.Close()

	engine := newTestEngine(t, cfg)

	answer, err := engine.Answer(context.Background(), "what is a lien")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Source != "Legal Definitions" {
		t.Errorf("Source = %q, want the curated Legal Definitions entry", answer.Source)
	}
	if strings.Contains(answer.Content, "complicated legal things") {
		t.Error("curated exact match must win over the generated entry")
	}
}

func TestAnswerFallsBackToGenericTemplate(t *testing.T) {
	engine := newTestEngine(t, testConfig(t))

	answer, err := engine.Answer(context.Background(), "what is the refund policy for widget x")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Source != "fallback" {
		t.Errorf("Source = %q, want fallback", answer.Source)
	}
	if !strings.Contains(answer.Content, "don't have information") {
		t.Errorf("Content = %q, want the generic template", answer.Content)
	}
	if answer.Confidence != 0 {
		t.Errorf("Confidence = %g, want 0 for fallback", answer.Confidence)
	}
}

func TestAnswerEmptyMessage(t *testing.T) {
	engine := newTestEngine(t, testConfig(t))

	if _, err := engine.Answer(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("Answer(blank) error = %v, want ErrEmptyMessage", err)
	}
}

func TestSubmitFeedback(t *testing.T) {
	engine := newTestEngine(t, testConfig(t))

	answer, err := engine.Answer(context.Background(), "hello ardi")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	feedbackID, err := engine.SubmitFeedback(answer.ProcessID, types.RatingPositive, "", nil)
	if err != nil {
		t.Fatalf("SubmitFeedback() error = %v", err)
	}
	if feedbackID == "" {
		t.Error("feedback id should be non-empty")
	}

	if _, err := engine.SubmitFeedback(answer.ProcessID, types.Rating("great"), "", nil); err == nil {
		t.Error("SubmitFeedback() should reject invalid ratings")
	}
	if _, err := engine.SubmitFeedback("", types.RatingPositive, "", nil); err == nil {
		t.Error("SubmitFeedback() should reject an empty process id")
	}
}

func TestFeedbackReachesFreshlyGeneratedEntry(t *testing.T) {
	cfg := testConfig(t)

	// One weak seeded source: relevant enough to pass the generation gate,
	// not confident enough for synthesis to answer directly.
	seed, err := store.NewLocalStore(cfg.Store.DatabasePath)
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	if err := seed.SaveGeneratedKnowledge(types.GeneratedKnowledge{
		KnowledgeEntry: types.KnowledgeEntry{
			ID: "gen-weak",
			Content: "Subrogation lets an insurer recover what it paid from the at-fault party. " +
				"The recovery follows the insurer's payment and is pursued against the responsible party.",
			Keywords: []string{"subrogation", "recovery"},
			Triggers: []string{"subrogation recovery"},
		},
		Source:      "generated",
		Confidence:  0.55,
		CreatedAt:   time.Now(),
		SuccessRate: 0.7,
	}); err != nil {
		t.Fatalf("SaveGeneratedKnowledge() error = %v", err)
	}
	seed.Close()

	engine := newTestEngine(t, cfg)

	answer, err := engine.Answer(context.Background(), "subrogation recovery")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Source != "generated" {
		t.Fatalf("Source = %q, want generated", answer.Source)
	}

	process, ok := engine.synthesizer.Process(answer.ProcessID)
	if !ok {
		t.Fatal("thinking process not recorded")
	}
	newID := ""
	for _, s := range process.InformationGathered {
		if s.Metadata["generated"] == "true" && s.Metadata["entry_id"] != "gen-weak" {
			newID = s.Metadata["entry_id"]
		}
	}
	if newID == "" {
		t.Fatal("generated entry missing from the process's gathered sources")
	}

	if _, err := engine.SubmitFeedback(answer.ProcessID, types.RatingPositive, "", nil); err != nil {
		t.Fatalf("SubmitFeedback() error = %v", err)
	}

	gk, ok := engine.genStore.Get(newID)
	if !ok {
		t.Fatalf("generated entry %s not in store", newID)
	}
	if gk.SuccessRate != 0.85 {
		t.Errorf("SuccessRate = %g, want 0.85 after one positive rating", gk.SuccessRate)
	}
}

func TestAnswerRecordsInteraction(t *testing.T) {
	engine := newTestEngine(t, testConfig(t))

	if _, err := engine.Answer(context.Background(), "hello ardi"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	stats := engine.Stats()
	if stats.Patterns == 0 {
		t.Error("answering should record an interaction pattern")
	}
	if stats.KnowledgeEntries == 0 {
		t.Error("built-in library should be loaded")
	}
}

func TestPredictAfterRepeatedAnswers(t *testing.T) {
	engine := newTestEngine(t, testConfig(t))

	for i := 0; i < 10; i++ {
		if _, err := engine.Answer(context.Background(), "who is the case manager"); err != nil {
			t.Fatalf("Answer() error = %v", err)
		}
	}

	pred := engine.Predict("who is the case manager")
	if pred.Probability != 1.0 {
		t.Errorf("Probability = %g, want 1.0 after consistent successes", pred.Probability)
	}
	if pred.Confidence != 1.0 {
		t.Errorf("Confidence = %g, want 1.0 at 10 interactions", pred.Confidence)
	}
}

func TestEngineStartStops(t *testing.T) {
	engine := newTestEngine(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	engine.Start(ctx)
	cancel()
	// The insight job exits on cancellation; nothing further to assert
	// beyond not deadlocking.
	time.Sleep(10 * time.Millisecond)
}
