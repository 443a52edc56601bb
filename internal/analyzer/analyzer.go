// Package analyzer turns raw user text into a structured QueryAnalysis:
// keywords, entities, intent, domain, complexity, and realtime-data needs.
// Analysis is a pure function of the input text plus the static tables in
// this file; it has no side effects.
package analyzer

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"ardi/internal/types"
)

// =============================================================================
// STATIC TABLES
// =============================================================================

// stopWords are removed during keyword extraction.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "must": true, "shall": true, "can": true,
	"to": true, "of": true, "in": true, "for": true, "on": true,
	"with": true, "at": true, "by": true, "from": true, "as": true,
	"into": true, "about": true, "during": true, "before": true, "after": true,
	"and": true, "but": true, "or": true, "nor": true, "so": true, "yet": true,
	"if": true, "then": true, "else": true, "when": true, "where": true,
	"what": true, "which": true, "who": true, "whom": true, "whose": true,
	"why": true, "how": true, "all": true, "each": true, "every": true,
	"this": true, "that": true, "these": true, "those": true,
	"it": true, "its": true, "i": true, "you": true, "he": true, "she": true,
	"we": true, "they": true, "my": true, "your": true, "his": true, "her": true,
	"our": true, "their": true, "me": true, "him": true, "us": true, "them": true,
	"not": true, "no": true, "yes": true, "please": true, "tell": true,
	"get": true, "give": true, "need": true, "want": true, "know": true,
}

// compoundPhrases is the fixed allow-list of multi-word domain phrases that
// are detected as single compound keywords.
var compoundPhrases = []string{
	"case manager",
	"personal injury",
	"statute of limitations",
	"power of attorney",
	"workers compensation",
	"medical records",
	"insurance claim",
	"claim denial",
	"demand letter",
	"settlement offer",
	"police report",
	"court date",
	"health insurance",
	"sick leave",
	"annual leave",
	"performance review",
	"it support",
	"password reset",
}

// intentRule pairs an intent with its indicator vocabulary. Table order is
// the priority order: first matching rule wins.
type intentRule struct {
	intent     types.Intent
	indicators []string
}

// intentRules is evaluated top to bottom; ordering encodes priority.
var intentRules = []intentRule{
	{types.IntentGreeting, []string{"hello", "hi ", "hey", "good morning", "good afternoon", "good evening"}},
	{types.IntentComplaint, []string{"complaint", "unhappy", "dissatisfied", "terrible", "awful", "frustrated", "not working"}},
	{types.IntentComparison, []string{"compare", "difference between", "versus", " vs ", "better than", "which is better"}},
	{types.IntentDefinition, []string{"what is a", "what is an", "what does", "define", "definition of", "meaning of", "what is the meaning"}},
	{types.IntentProcedure, []string{"how do i", "how to", "how can i", "steps to", "procedure", "process for", "instructions"}},
	{types.IntentStatus, []string{"status", "progress", "update on", "where is my", "how long until", "is it done"}},
	{types.IntentRequestHelp, []string{"help", "assist", "support", "can you", "could you", "i need"}},
	{types.IntentRequestInformation, []string{"information", "details", "more about", "explain", "describe"}},
	{types.IntentQuestion, []string{"what", "when", "where", "who", "why", "how", "which", "?"}},
}

// domainVocabulary scores candidate domains by term overlap. Declaration
// order resolves ties, so the slice below fixes the priority between
// equally-scored domains.
type domainVocabulary struct {
	domain string
	terms  []string
}

var domainVocabularies = []domainVocabulary{
	{"legal", []string{"lien", "law", "legal", "attorney", "lawyer", "court", "case", "lawsuit", "settlement", "liability", "injury", "accident", "claim", "statute", "subpoena", "deposition", "plaintiff", "defendant", "litigation", "damages"}},
	{"medical", []string{"medical", "doctor", "hospital", "treatment", "diagnosis", "injury", "therapy", "medication", "patient", "health", "chiropractor", "surgery", "prescription", "records"}},
	{"insurance", []string{"insurance", "policy", "coverage", "premium", "deductible", "claim", "adjuster", "underinsured", "uninsured", "liability", "denial", "benefits"}},
	{"hr", []string{"employee", "leave", "vacation", "payroll", "salary", "benefits", "hiring", "onboarding", "resignation", "timesheet", "overtime", "holiday"}},
	{"it", []string{"password", "computer", "software", "login", "email", "network", "printer", "laptop", "account", "access", "vpn", "install"}},
	{"company", []string{"company", "office", "team", "department", "mission", "values", "location", "contact", "ardi", "about"}},
	{"process", []string{"process", "procedure", "workflow", "steps", "checklist", "guideline", "protocol", "intake", "filing"}},
}

// recencyIndicators force RequiresRealtimeData when present in the message.
var recencyIndicators = []string{
	"today", "now", "current", "currently", "latest", "recent", "this week",
	"this month", "right now", "at the moment", "up to date", "news",
}

// questionWords counted toward the complexity score.
var questionWords = []string{"what", "when", "where", "who", "why", "how", "which"}

// conjunctions counted toward the complexity score.
var conjunctions = []string{"and", "or", "but", "because", "although", "however", "also"}

// nameExclusions are capitalized common words never treated as name entities.
var nameExclusions = map[string]bool{
	"The": true, "This": true, "That": true, "What": true, "When": true,
	"Where": true, "Who": true, "Why": true, "How": true, "Is": true,
	"Are": true, "Can": true, "Could": true, "Please": true, "Hello": true,
	"Hi": true, "Thanks": true, "Thank": true, "I": true, "My": true,
	"Do": true, "Does": true, "Did": true, "Will": true, "Would": true,
}

var (
	punctPattern    = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	datePattern     = regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}[/-]\d{1,2}[/-]\d{1,2}|(?i:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}(?:,?\s+\d{4})?)\b`)
	amountPattern   = regexp.MustCompile(`(\$\s?\d[\d,]*(?:\.\d+)?|\b\d[\d,]*(?:\.\d+)?\s?(?:dollars|usd|percent|%)|\b\d{4,}\b)`)
	namePattern     = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`)
	whitespaceSplit = regexp.MustCompile(`\s+`)
)

// =============================================================================
// ANALYZER
// =============================================================================

// Analyzer performs query analysis against the static tables above.
type Analyzer struct{}

// New creates a query analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze produces the full QueryAnalysis for a raw message.
func (a *Analyzer) Analyze(message string) types.QueryAnalysis {
	keywords := ExtractKeywords(message)
	entities := ExtractEntities(message)
	intent := ClassifyIntent(message)
	domain := ClassifyDomain(message)
	complexity := scoreComplexity(message, keywords, entities)

	analysis := types.QueryAnalysis{
		OriginalQuery:        message,
		Intent:               intent,
		Keywords:             keywords,
		Entities:             entities,
		Domain:               domain,
		Complexity:           complexity,
		RequiresRealtimeData: requiresRealtimeData(message, intent),
	}
	analysis.InformationNeeds = informationNeeds(analysis)
	return analysis
}

// ExtractKeywords lowercases, strips punctuation, removes stop words, and
// keeps tokens of length >= 3. Known multi-word domain phrases are detected
// first and kept as compound keywords.
func ExtractKeywords(message string) []string {
	normalized := strings.ToLower(strings.TrimSpace(message))

	var keywords []string
	seen := make(map[string]bool)

	// Compound phrases first so their tokens aren't double-counted below.
	for _, phrase := range compoundPhrases {
		if strings.Contains(normalized, phrase) && !seen[phrase] {
			seen[phrase] = true
			keywords = append(keywords, phrase)
			for _, part := range strings.Fields(phrase) {
				seen[part] = true
			}
		}
	}

	cleaned := punctPattern.ReplaceAllString(normalized, " ")
	for _, token := range whitespaceSplit.Split(cleaned, -1) {
		if len(token) < 3 || stopWords[token] || seen[token] {
			continue
		}
		seen[token] = true
		keywords = append(keywords, token)
	}

	return keywords
}

// ExtractEntities detects dates, currency/numeric amounts, and capitalized
// name-like sequences (minus a common-word exclusion list).
func ExtractEntities(message string) []string {
	var entities []string
	seen := make(map[string]bool)

	add := func(e string) {
		e = strings.TrimSpace(e)
		if e != "" && !seen[e] {
			seen[e] = true
			entities = append(entities, e)
		}
	}

	for _, m := range datePattern.FindAllString(message, -1) {
		add(m)
	}
	for _, m := range amountPattern.FindAllString(message, -1) {
		add(m)
	}
	for _, m := range namePattern.FindAllString(message, -1) {
		first := strings.Fields(m)[0]
		if nameExclusions[first] {
			continue
		}
		add(m)
	}

	return entities
}

// ClassifyIntent returns the first matching intent in priority order, or
// general_query when nothing matches.
func ClassifyIntent(message string) types.Intent {
	normalized := strings.ToLower(message)
	for _, rule := range intentRules {
		for _, indicator := range rule.indicators {
			if strings.Contains(normalized, indicator) {
				return rule.intent
			}
		}
	}
	return types.IntentGeneralQuery
}

// ClassifyDomain scores each candidate domain by overlapping vocabulary
// terms; the highest score wins and declaration order resolves ties.
// Returns "general" when no domain scores.
func ClassifyDomain(message string) string {
	normalized := strings.ToLower(message)

	best := "general"
	bestScore := 0
	for _, dv := range domainVocabularies {
		score := 0
		for _, term := range dv.terms {
			if strings.Contains(normalized, term) {
				score++
			}
		}
		// Strictly greater preserves declaration-order tie breaking.
		if score > bestScore {
			bestScore = score
			best = dv.domain
		}
	}
	return best
}

// scoreComplexity buckets five signals into {0,1,2} each and sums them.
// Total >= 6 is complex, >= 3 moderate, else simple.
func scoreComplexity(message string, keywords, entities []string) types.Complexity {
	normalized := strings.ToLower(message)

	score := bucket(len(message), 50, 150)
	score += bucket(len(keywords), 3, 6)
	score += bucket(len(entities), 1, 3)

	// Whole-token counts: "somewhat" must not count as "what".
	tokens := make(map[string]int)
	for _, t := range strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		tokens[t]++
	}

	qw := 0
	for _, w := range questionWords {
		qw += tokens[w]
	}
	score += bucket(qw, 1, 3)

	cj := 0
	for _, c := range conjunctions {
		cj += tokens[c]
	}
	score += bucket(cj, 1, 2)

	switch {
	case score >= 6:
		return types.ComplexityComplex
	case score >= 3:
		return types.ComplexityModerate
	default:
		return types.ComplexitySimple
	}
}

// bucket maps a count onto {0,1,2} using two thresholds.
func bucket(n, one, two int) int {
	switch {
	case n >= two:
		return 2
	case n >= one:
		return 1
	default:
		return 0
	}
}

// requiresRealtimeData is true when the message carries recency vocabulary
// or the intent is a status check.
func requiresRealtimeData(message string, intent types.Intent) bool {
	if intent == types.IntentStatus {
		return true
	}
	normalized := strings.ToLower(message)
	for _, indicator := range recencyIndicators {
		if strings.Contains(normalized, indicator) {
			return true
		}
	}
	return false
}

// informationNeeds derives what kinds of information answering will take.
func informationNeeds(analysis types.QueryAnalysis) []string {
	var needs []string
	switch analysis.Intent {
	case types.IntentDefinition:
		needs = append(needs, "definition")
	case types.IntentProcedure:
		needs = append(needs, "step_by_step_process")
	case types.IntentComparison:
		needs = append(needs, "comparison_criteria")
	case types.IntentStatus:
		needs = append(needs, "current_status")
	}
	if analysis.Domain != "general" {
		needs = append(needs, analysis.Domain+"_expertise")
	}
	if analysis.RequiresRealtimeData {
		needs = append(needs, "realtime_data")
	}
	if len(needs) == 0 {
		needs = append(needs, "general_information")
	}
	return needs
}

// PatternKey derives the learning-system pattern key for an analysis:
// the top keywords (alphabetical, capped) joined with the intent.
func PatternKey(analysis types.QueryAnalysis, topN int) string {
	kws := make([]string, len(analysis.Keywords))
	copy(kws, analysis.Keywords)
	sort.Strings(kws)
	if len(kws) > topN {
		kws = kws[:topN]
	}
	parts := append([]string{string(analysis.Intent)}, kws...)
	key := strings.Join(parts, "_")
	// Compound keywords keep internal spaces; flatten for a stable key.
	return strings.ReplaceAll(key, " ", "_")
}
