package knowledge

import (
	"testing"

	"ardi/internal/types"
)

func testCollection() *Collection {
	return &Collection{
		Name: "Test Legal",
		Entries: []types.KnowledgeEntry{
			{
				ID:           "lien-definition",
				Category:     "legal",
				Title:        "What is a Lien",
				Content:      "A lien is a legal claim against property or settlement proceeds to secure payment of a debt.",
				Triggers:     []string{"what is a lien", "lien definition", "lien"},
				RelatedTerms: []string{"encumbrance"},
			},
			{
				ID:       "records-request",
				Category: "legal",
				Title:    "Requesting Records",
				Content:  "Records requests go through the records department with a signed authorization.",
				Triggers: []string{"how do i request records", "records request"},
			},
		},
	}
}

func TestMatchExactTrigger(t *testing.T) {
	c := testCollection()

	m := c.MatchExactTrigger("what is a lien")
	if m == nil {
		t.Fatal("MatchExactTrigger() = nil, want match")
	}
	if m.Entry.ID != "lien-definition" {
		t.Errorf("matched entry = %s, want lien-definition", m.Entry.ID)
	}
	if m.Type != MatchExact {
		t.Errorf("match type = %s, want exact", m.Type)
	}

	if m := c.MatchExactTrigger("what is a lien on my settlement"); m != nil {
		t.Errorf("MatchExactTrigger() matched a non-equal message: %v", m.Entry.ID)
	}
}

func TestMatchContainedTriggerPrefersLonger(t *testing.T) {
	c := testCollection()

	// "what is a lien" and "lien" both appear; the longer trigger wins.
	m := c.MatchContainedTrigger("can you tell me what is a lien exactly")
	if m == nil {
		t.Fatal("MatchContainedTrigger() = nil, want match")
	}
	if m.Type != MatchTrigger {
		t.Errorf("match type = %s, want trigger", m.Type)
	}
	if m.Entry.ID != "lien-definition" {
		t.Errorf("matched entry = %s, want lien-definition", m.Entry.ID)
	}
}

func TestMatchLadderFallsBackToRelated(t *testing.T) {
	c := testCollection()

	m := c.Match("remove the encumbrance from the title")
	if m == nil {
		t.Fatal("Match() = nil, want related-term match")
	}
	if m.Type != MatchRelated {
		t.Errorf("match type = %s, want related", m.Type)
	}
	if m.Entry.ID != "lien-definition" {
		t.Errorf("matched entry = %s, want lien-definition", m.Entry.ID)
	}
}

func TestMatchNoHit(t *testing.T) {
	c := testCollection()
	if m := c.Match("completely unrelated topic"); m != nil {
		t.Fatalf("Match() = %v, want nil", m.Entry.ID)
	}
}

func TestValidate(t *testing.T) {
	c := &Collection{
		Name: "Broken",
		Entries: []types.KnowledgeEntry{
			{ID: "no-triggers", Content: "text"},
		},
	}
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for entry without triggers")
	}

	if err := testCollection().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestAdequate(t *testing.T) {
	long := types.KnowledgeEntry{Content: "A lien is a legal claim against property to secure payment of a debt."}
	if !Adequate(long) {
		t.Error("long content should be adequate")
	}

	short := types.KnowledgeEntry{Content: "short"}
	if Adequate(short) {
		t.Error("short content without table should not be adequate")
	}

	table := types.KnowledgeEntry{Content: "x", TableContent: "| a | b |"}
	if !Adequate(table) {
		t.Error("table content should make an entry adequate")
	}
}

func TestLibraryMatchAllExactShortCircuits(t *testing.T) {
	other := &Collection{
		Name: "Other",
		Entries: []types.KnowledgeEntry{
			{
				ID:       "lien-lowquality",
				Content:  "Liens are complicated.",
				Triggers: []string{"lien"},
			},
		},
	}
	lib := NewLibrary(other, testCollection())

	matches := lib.MatchAll("what is a lien")
	if len(matches) != 1 {
		t.Fatalf("MatchAll() returned %d matches, want 1", len(matches))
	}
	if matches[0].Entry.ID != "lien-definition" {
		t.Errorf("matched entry = %s, want lien-definition", matches[0].Entry.ID)
	}
	if matches[0].Type != MatchExact {
		t.Errorf("match type = %s, want exact", matches[0].Type)
	}
}

func TestLibraryMatchAllOnePerCollection(t *testing.T) {
	lib := NewLibrary(testCollection(), &Collection{
		Name: "Insurance",
		Entries: []types.KnowledgeEntry{
			{
				ID:       "claim-basics",
				Content:  "An insurance claim starts with notice to the carrier.",
				Triggers: []string{"insurance claim"},
			},
		},
	})

	matches := lib.MatchAll("tell me about the lien on my insurance claim")
	if len(matches) != 2 {
		t.Fatalf("MatchAll() returned %d matches, want 2", len(matches))
	}
}

func TestLibraryReplace(t *testing.T) {
	lib := NewLibrary(testCollection())
	if lib.EntryCount() != 2 {
		t.Fatalf("EntryCount() = %d, want 2", lib.EntryCount())
	}

	lib.Replace([]*Collection{})
	if lib.EntryCount() != 0 {
		t.Fatalf("EntryCount() after Replace = %d, want 0", lib.EntryCount())
	}
}

func TestBuiltinCollectionsValid(t *testing.T) {
	for _, c := range BuiltinCollections() {
		if err := c.Validate(); err != nil {
			t.Errorf("builtin collection %s invalid: %v", c.Name, err)
		}
	}
}

func TestBuiltinGreeting(t *testing.T) {
	lib := NewLibrary(BuiltinCollections()...)

	matches := lib.MatchAll("hello ardi")
	if len(matches) != 1 {
		t.Fatalf("MatchAll(hello ardi) returned %d matches, want 1", len(matches))
	}
	if matches[0].Collection != "Ardi Identity" {
		t.Errorf("collection = %s, want Ardi Identity", matches[0].Collection)
	}
	if matches[0].Type != MatchExact {
		t.Errorf("match type = %s, want exact", matches[0].Type)
	}
}
