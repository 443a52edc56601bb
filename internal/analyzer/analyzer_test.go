package analyzer

import (
	"reflect"
	"testing"

	"ardi/internal/types"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    []string
	}{
		{
			name:    "stop words removed",
			message: "what is the status of my claim",
			want:    []string{"status", "claim"},
		},
		{
			name:    "compound phrase kept whole",
			message: "who is the case manager for this file",
			want:    []string{"case manager", "file"},
		},
		{
			name:    "short tokens dropped",
			message: "is it ok to go",
			want:    nil,
		},
		{
			name:    "punctuation stripped",
			message: "lien, definition?",
			want:    []string{"lien", "definition"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(tt.message)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ExtractKeywords(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		message string
		want    types.Intent
	}{
		{"hello ardi", types.IntentGreeting},
		{"what is a lien", types.IntentDefinition},
		{"how do i request medical records", types.IntentProcedure},
		{"compare term and whole life insurance", types.IntentComparison},
		{"what is the status of my case", types.IntentStatus},
		{"i am very unhappy with this terrible service", types.IntentComplaint},
		{"can you assist me", types.IntentRequestHelp},
		{"who handles intake", types.IntentQuestion},
		{"blue", types.IntentGeneralQuery},
	}

	for _, tt := range tests {
		if got := ClassifyIntent(tt.message); got != tt.want {
			t.Errorf("ClassifyIntent(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestClassifyIntentPriorityOrder(t *testing.T) {
	// A greeting that also contains a question word still classifies as
	// greeting because the rule table is evaluated top to bottom.
	if got := ClassifyIntent("hello, what is a lien?"); got != types.IntentGreeting {
		t.Fatalf("ClassifyIntent() = %v, want %v", got, types.IntentGreeting)
	}
}

func TestClassifyDomain(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"what is a lien on a settlement", "legal"},
		{"my doctor ordered more treatment", "medical"},
		{"does my policy cover the deductible", "insurance"},
		{"how do i reset my password", "it"},
		{"how many vacation days do employees get", "hr"},
		{"the weather is nice", "general"},
	}

	for _, tt := range tests {
		if got := ClassifyDomain(tt.message); got != tt.want {
			t.Errorf("ClassifyDomain(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestExtractEntities(t *testing.T) {
	entities := ExtractEntities("John Smith settled for $25,000 on 03/15/2024")

	want := map[string]bool{
		"John Smith": false,
		"$25,000":    false,
		"03/15/2024": false,
	}
	for _, e := range entities {
		if _, ok := want[e]; ok {
			want[e] = true
		}
	}
	for e, found := range want {
		if !found {
			t.Errorf("ExtractEntities() missing %q, got %v", e, entities)
		}
	}
}

func TestExtractEntitiesExcludesCommonCapitalized(t *testing.T) {
	entities := ExtractEntities("What Is the process")
	for _, e := range entities {
		if e == "What Is" {
			t.Fatalf("ExtractEntities() kept excluded name %q", e)
		}
	}
}

func TestAnalyzeComplexity(t *testing.T) {
	a := New()

	simple := a.Analyze("hi")
	if simple.Complexity != types.ComplexitySimple {
		t.Errorf("Analyze(hi).Complexity = %v, want simple", simple.Complexity)
	}

	complexQuery := a.Analyze("What is the statute of limitations for a personal injury lawsuit in this state, and how does it interact with the insurance claim deadline when the defendant disputes liability and the medical records are incomplete?")
	if complexQuery.Complexity != types.ComplexityComplex {
		t.Errorf("Analyze(long).Complexity = %v, want complex", complexQuery.Complexity)
	}
}

func TestAnalyzeSetsOriginalQuery(t *testing.T) {
	a := New()

	message := "What is a lien?"
	if got := a.Analyze(message).OriginalQuery; got != message {
		t.Fatalf("Analyze().OriginalQuery = %q, want %q", got, message)
	}
}

func TestComplexityCountsWholeWords(t *testing.T) {
	// "somewhat" must not count as "what", "show" not as "how".
	got := scoreComplexity("somewhat of a show, however", nil, nil)
	if got != types.ComplexitySimple {
		t.Fatalf("scoreComplexity() = %v, want simple", got)
	}
}

func TestAnalyzeRealtimeData(t *testing.T) {
	a := New()

	if !a.Analyze("what is the latest news on my case").RequiresRealtimeData {
		t.Error("recency vocabulary should require realtime data")
	}
	if !a.Analyze("status of my claim").RequiresRealtimeData {
		t.Error("status intent should require realtime data")
	}
	if a.Analyze("what is a lien").RequiresRealtimeData {
		t.Error("definition query should not require realtime data")
	}
}

func TestInformationNeeds(t *testing.T) {
	a := New()

	analysis := a.Analyze("what is a lien")
	needs := map[string]bool{}
	for _, n := range analysis.InformationNeeds {
		needs[n] = true
	}
	if !needs["definition"] {
		t.Errorf("InformationNeeds = %v, want definition", analysis.InformationNeeds)
	}
	if !needs["legal_expertise"] {
		t.Errorf("InformationNeeds = %v, want legal_expertise", analysis.InformationNeeds)
	}
}

func TestPatternKey(t *testing.T) {
	a := New()

	analysis := a.Analyze("who is the case manager?")
	if got := PatternKey(analysis, 3); got != "question_case_manager" {
		t.Fatalf("PatternKey() = %q, want %q", got, "question_case_manager")
	}
}

func TestPatternKeyCapsKeywords(t *testing.T) {
	analysis := types.QueryAnalysis{
		Intent:   types.IntentQuestion,
		Keywords: []string{"delta", "alpha", "charlie", "bravo"},
	}
	if got := PatternKey(analysis, 2); got != "question_alpha_bravo" {
		t.Fatalf("PatternKey() = %q, want %q", got, "question_alpha_bravo")
	}
}
