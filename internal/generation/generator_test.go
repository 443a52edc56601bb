package generation

import (
	"strings"
	"testing"

	"ardi/internal/types"
)

func source(content string, confidence, relevance float64) types.InformationSource {
	return types.InformationSource{
		Type:       types.SourceKnowledgeBase,
		Source:     "test",
		Content:    content,
		Confidence: confidence,
		Relevance:  relevance,
	}
}

var lienSources = []types.InformationSource{
	source("A lien is a legal claim against property that secures payment of a debt. The lien must be resolved before settlement funds are released.", 0.8, 0.6),
	source("Medical providers often assert liens against personal injury settlements. The lien amount can sometimes be negotiated down before disbursement.", 0.7, 0.5),
}

func TestGenerateAcceptsAdequateSources(t *testing.T) {
	store := NewStore(0, nil)
	g := NewGenerator(store, 0.7)

	gk := g.Generate("what is a lien", "legal", lienSources, nil)
	if gk == nil {
		t.Fatal("Generate() = nil, want accepted entry")
	}

	if gk.SuccessRate != 0.7 {
		t.Errorf("SuccessRate = %g, want initial 0.7", gk.SuccessRate)
	}
	if gk.UsageCount != 0 {
		t.Errorf("UsageCount = %d, want 0", gk.UsageCount)
	}
	if gk.Category != "legal" {
		t.Errorf("Category = %q, want legal", gk.Category)
	}
	if len(gk.Content) < 100 {
		t.Errorf("content length = %d, want >= 100", len(gk.Content))
	}
	if store.Count() != 1 {
		t.Errorf("store count = %d, want 1 (accepted entries persist)", store.Count())
	}
}

func TestGenerateTriggersIncludeNormalizedQuery(t *testing.T) {
	g := NewGenerator(NewStore(0, nil), 0.7)

	gk := g.Generate("What is a lien?", "legal", lienSources, nil)
	if gk == nil {
		t.Fatal("Generate() = nil, want accepted entry")
	}

	found := false
	for _, trigger := range gk.Triggers {
		if trigger == "what is a lien" {
			found = true
		}
	}
	if !found {
		t.Errorf("Triggers = %v, want normalized query included", gk.Triggers)
	}
	if len(gk.Triggers) > 10 {
		t.Errorf("Triggers = %d, want at most 10", len(gk.Triggers))
	}
}

func TestGenerateWorthinessGateRejectsWeakSingleSource(t *testing.T) {
	store := NewStore(0, nil)
	g := NewGenerator(store, 0.7)

	weak := []types.InformationSource{source("Some barely related text about widgets.", 0.2, 0.2)}
	if gk := g.Generate("what is the refund policy for widget x", "general", weak, nil); gk != nil {
		t.Fatalf("Generate() = %v, want nil for weak single source", gk.ID)
	}
	if store.Count() != 0 {
		t.Errorf("store count = %d, want 0 after rejection", store.Count())
	}
}

func TestGenerateWorthinessGateAcceptsStrongSingleSource(t *testing.T) {
	g := NewGenerator(NewStore(0, nil), 0.7)

	strong := []types.InformationSource{source(
		"A statute of limitations sets the maximum period for filing suit after an injury. Missing the window usually bars the claim entirely regardless of merit.",
		0.9, 0.9,
	)}
	gk := g.Generate("statute of limitations for injury", "legal", strong, nil)
	if gk == nil {
		t.Fatal("Generate() = nil, want acceptance via strong-source gate")
	}
}

func TestGenerateValidationRejectsThinContent(t *testing.T) {
	g := NewGenerator(NewStore(0, nil), 0.7)

	thin := []types.InformationSource{
		source("Short text.", 0.8, 0.8),
		source("Tiny note.", 0.8, 0.8),
	}
	if gk := g.Generate("what is a lien", "legal", thin, nil); gk != nil {
		t.Fatalf("Generate() = %v, want nil when no usable sentences", gk.ID)
	}
}

func TestGenerateLegalDisclaimer(t *testing.T) {
	g := NewGenerator(NewStore(0, nil), 0.7)

	gk := g.Generate("how do i file a lawsuit", "legal", lienSources, nil)
	if gk == nil {
		t.Fatal("Generate() = nil, want accepted entry")
	}
	if !strings.Contains(gk.Content, "not legal advice") {
		t.Error("legal-procedure template should append the legal disclaimer")
	}
}

func TestGenerateGapSection(t *testing.T) {
	g := NewGenerator(NewStore(0, nil), 0.7)

	noTimes := []types.InformationSource{
		source("Claims are filed with the records department after intake review is complete. Missing paperwork delays processing of the claim significantly.", 0.8, 0.6),
		source("The intake team confirms representation before any claim paperwork is submitted to the carrier for review and acknowledgment.", 0.7, 0.5),
	}
	gk := g.Generate("what is the deadline to file a claim", "general", noTimes, nil)
	if gk == nil {
		t.Fatal("Generate() = nil, want accepted entry")
	}
	if !strings.Contains(gk.Content, "For more specific information") {
		t.Error("deadline query without time reference should flag a gap section")
	}
}

func TestGenerateDeduplicatesSentences(t *testing.T) {
	g := NewGenerator(NewStore(0, nil), 0.7)

	repeated := "A lien is a legal claim against property that secures payment of a debt."
	dup := []types.InformationSource{
		source(repeated+" "+repeated, 0.8, 0.6),
		source(repeated, 0.8, 0.6),
	}
	gk := g.Generate("what is a lien", "legal", dup, nil)
	if gk == nil {
		t.Fatal("Generate() = nil, want accepted entry")
	}
	if n := strings.Count(gk.Content, "secures payment of a debt"); n != 1 {
		t.Errorf("duplicate sentence appears %d times, want 1", n)
	}
}

func TestGenerateWebResultsCountTowardGate(t *testing.T) {
	g := NewGenerator(NewStore(0, nil), 0.7)

	one := []types.InformationSource{
		source("Subrogation lets an insurer recover payments it made from the party actually at fault. It is asserted after the underlying claim resolves successfully.", 0.6, 0.6),
	}
	web := []types.SearchResult{{
		Title:   "Subrogation explained",
		Snippet: "Insurers pursue subrogation recoveries once the injured party has been made whole by the settlement.",
		URL:     "https://example.com/subrogation",
	}}

	gk := g.Generate("explain subrogation recovery", "insurance", one, web)
	if gk == nil {
		t.Fatal("Generate() = nil, want web result to satisfy the gate")
	}
	if len(gk.BasedOnSources) != 2 {
		t.Errorf("BasedOnSources = %v, want source + web URL", gk.BasedOnSources)
	}
}

func TestSelectTemplateOrder(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"how do i file a lawsuit", "legal-procedure"},
		{"does my insurance policy cover this", "insurance-claim"},
		{"request medical treatment records", "medical-process"},
		{"what time does the office open", "general-info"},
	}
	for _, tt := range tests {
		if got := selectTemplate(tt.query).name; got != tt.want {
			t.Errorf("selectTemplate(%q) = %s, want %s", tt.query, got, tt.want)
		}
	}
}
