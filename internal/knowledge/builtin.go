package knowledge

import (
	"time"

	"ardi/internal/types"
)

// builtinUpdated is the authoring date stamped onto the embedded entries.
var builtinUpdated = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

// BuiltinCollections returns the embedded default collections, used when no
// collections directory is configured. Authored content lives in YAML files
// in deployment; these cover identity, core legal definitions, and case
// procedures so the pipeline is useful out of the box.
func BuiltinCollections() []*Collection {
	return []*Collection{
		identityCollection(),
		legalDefinitionsCollection(),
		caseProceduresCollection(),
	}
}

func identityCollection() *Collection {
	return &Collection{
		Name: "Ardi Identity",
		Entries: []types.KnowledgeEntry{
			{
				ID:       "ardi-greeting",
				Category: "identity",
				Title:    "Greeting",
				Content: "Hello! I'm Ardi, your paralegal knowledge assistant. " +
					"I can answer questions about legal definitions, case procedures, " +
					"insurance claims, and firm processes. Ask me anything.",
				Keywords:    []string{"ardi", "greeting", "hello"},
				Triggers:    []string{"hello ardi", "hi ardi", "hey ardi"},
				Priority:    types.PriorityHigh,
				LastUpdated: builtinUpdated,
			},
			{
				ID:       "ardi-about",
				Category: "identity",
				Title:    "About Ardi",
				Content: "Ardi is a knowledge assistant for legal support staff. It matches " +
					"questions against curated knowledge collections, synthesizes answers from " +
					"partial sources when no direct match exists, and learns from feedback to " +
					"improve future answers.",
				Keywords:     []string{"ardi", "about", "assistant", "capabilities"},
				Triggers:     []string{"what is ardi", "who are you", "what can you do"},
				RelatedTerms: []string{"capabilities", "features"},
				Priority:     types.PriorityHigh,
				LastUpdated:  builtinUpdated,
			},
		},
	}
}

func legalDefinitionsCollection() *Collection {
	return &Collection{
		Name: "Legal Definitions",
		Entries: []types.KnowledgeEntry{
			{
				ID:       "lien-definition",
				Category: "legal",
				Title:    "Lien",
				Content: "A lien is a legal claim or right against property or assets that " +
					"serves as security for the repayment of a debt or obligation. In personal " +
					"injury cases, medical providers and health insurers commonly assert liens " +
					"against settlement proceeds to recover the cost of treatment. Liens must " +
					"typically be resolved or negotiated before settlement funds are disbursed " +
					"to the client.",
				Keywords:     []string{"lien", "claim", "property", "debt", "settlement"},
				Triggers:     []string{"what is a lien", "lien definition", "define lien", "lien"},
				RelatedTerms: []string{"subrogation", "encumbrance"},
				Priority:     types.PriorityHigh,
				LastUpdated:  builtinUpdated,
			},
			{
				ID:       "statute-of-limitations",
				Category: "legal",
				Title:    "Statute of Limitations",
				Content: "The statute of limitations is the deadline for filing a lawsuit. " +
					"Once the limitations period expires, the claim is generally barred no " +
					"matter how strong it is. The period varies by state and claim type; for " +
					"personal injury claims it commonly runs from the date of the accident. " +
					"Always verify the applicable deadline with the supervising attorney.",
				Keywords:     []string{"statute of limitations", "deadline", "filing", "lawsuit"},
				Triggers:     []string{"statute of limitations", "filing deadline", "how long to file"},
				RelatedTerms: []string{"tolling", "time bar"},
				Priority:     types.PriorityHigh,
				LastUpdated:  builtinUpdated,
			},
			{
				ID:       "subrogation-definition",
				Category: "legal",
				Title:    "Subrogation",
				Content: "Subrogation is the right of an insurer to step into the shoes of its " +
					"insured and recover payments it made from the party responsible for the " +
					"loss. In practice, a health insurer that paid accident-related medical " +
					"bills may assert a subrogation interest against the injury settlement.",
				Keywords:     []string{"subrogation", "insurer", "recovery", "reimbursement"},
				Triggers:     []string{"what is subrogation", "subrogation"},
				RelatedTerms: []string{"lien", "reimbursement"},
				Priority:     types.PriorityMedium,
				LastUpdated:  builtinUpdated,
			},
		},
	}
}

func caseProceduresCollection() *Collection {
	return &Collection{
		Name: "Case Procedures",
		Entries: []types.KnowledgeEntry{
			{
				ID:       "case-manager-role",
				Category: "process",
				Title:    "Case Manager Role",
				Content: "The case manager is the client's primary point of contact. " +
					"Responsibilities include gathering medical records and bills, tracking " +
					"treatment status, maintaining the case file, requesting police reports, " +
					"and keeping the client informed. Escalate legal questions and settlement " +
					"authority decisions to the supervising attorney.",
				TableContent: "| Task | Owner |\n|---|---|\n| Records requests | Case manager |\n" +
					"| Treatment tracking | Case manager |\n| Settlement authority | Attorney |\n" +
					"| Lien negotiation | Attorney |",
				Keywords:     []string{"case manager", "role", "responsibilities", "records"},
				Triggers:     []string{"case manager", "what does a case manager do"},
				RelatedTerms: []string{"intake", "client contact"},
				Priority:     types.PriorityHigh,
				LastUpdated:  builtinUpdated,
			},
			{
				ID:       "records-request-procedure",
				Category: "process",
				Title:    "Medical Records Request",
				Content: "To request medical records: confirm a signed HIPAA authorization is " +
					"on file, identify every provider the client has seen for the injury, send " +
					"the request with the authorization attached, calendar a 30-day follow-up, " +
					"and log received records in the case file with the date range covered.",
				Keywords:     []string{"medical records", "request", "hipaa", "authorization"},
				Triggers:     []string{"request medical records", "how do i request records", "records request"},
				RelatedTerms: []string{"provider", "billing"},
				Priority:     types.PriorityMedium,
				LastUpdated:  builtinUpdated,
			},
		},
	}
}
