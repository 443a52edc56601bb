package generation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ardi/internal/logging"
	"ardi/internal/types"
)

// Worthiness and validation thresholds.
const (
	minCombinedSources   = 2
	strongConfidence     = 0.7
	strongRelevance      = 0.8
	minSentenceLength    = 20
	dedupePrefixLength   = 50
	maxSentences         = 10
	minContentLength     = 100
	minAcceptConfidence  = 0.5
	webResultConfidence  = 0.6
	maxDerivedTriggers   = 10
	supplementKeywordMin = 3
)

// Generator synthesizes new knowledge entries from partial sources.
type Generator struct {
	store              *Store
	initialSuccessRate float64
}

// NewGenerator creates a generator writing accepted entries into store.
func NewGenerator(store *Store, initialSuccessRate float64) *Generator {
	if initialSuccessRate <= 0 {
		initialSuccessRate = 0.7
	}
	return &Generator{store: store, initialSuccessRate: initialSuccessRate}
}

// =============================================================================
// TEMPLATES
// =============================================================================

// template is one response skeleton. The templates slice is evaluated in
// order; the first regex match wins, so slice order encodes priority.
type template struct {
	name       string
	pattern    *regexp.Regexp
	framing    string // leading sentence, %s = domain
	titleWord  string
	disclaimer string // appended verbatim when non-empty
}

var templates = []template{
	{
		name:      "legal-procedure",
		pattern:   regexp.MustCompile(`(?i)(how|file|filing|process|procedure|steps).*(legal|court|lawsuit|claim|case)`),
		framing:   "Based on available legal information, here is what applies to your question:",
		titleWord: "Legal Procedure",
		disclaimer: "\n\nThis is general information, not legal advice. " +
			"Confirm specifics with the supervising attorney.",
	},
	{
		name:      "insurance-claim",
		pattern:   regexp.MustCompile(`(?i)insurance|coverage|policy|premium|deductible|adjuster`),
		framing:   "Based on available insurance information, here is what applies to your question:",
		titleWord: "Insurance Information",
	},
	{
		name:      "medical-process",
		pattern:   regexp.MustCompile(`(?i)medical|treatment|doctor|hospital|therapy|records`),
		framing:   "Based on available medical-process information, here is what applies to your question:",
		titleWord: "Medical Process",
		disclaimer: "\n\nThis is general information, not medical advice. " +
			"Clinical questions belong with a licensed provider.",
	},
	{
		name:      "general-info",
		pattern:   regexp.MustCompile(`.`),
		framing:   "Based on the information gathered, here is what applies to your question:",
		titleWord: "Information",
	},
}

// selectTemplate returns the first template whose pattern matches the query.
func selectTemplate(query string) template {
	for _, t := range templates {
		if t.pattern.MatchString(query) {
			return t
		}
	}
	return templates[len(templates)-1]
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate synthesizes a new knowledge entry from the collected sources and
// optional web results. Returns nil when the worthiness gate or validation
// rejects; the caller falls back to a generic response.
func (g *Generator) Generate(query, domain string, sources []types.InformationSource, webResults []types.SearchResult) *types.GeneratedKnowledge {
	timer := logging.StartTimer(logging.CategoryGeneration, "Generate")
	defer timer.Stop()

	if !worthGenerating(sources, webResults) {
		logging.GenerationDebug("Worthiness gate rejected: %d sources, %d web results", len(sources), len(webResults))
		return nil
	}

	tmpl := selectTemplate(query)
	logging.GenerationDebug("Template selected: %s for query=%q", tmpl.name, truncate(query, 60))

	body := synthesizeBody(sources, webResults)
	if body == "" {
		logging.GenerationDebug("Synthesis produced no usable sentences")
		return nil
	}

	content := tmpl.framing + "\n\n" + body

	gaps := detectGaps(query, domain, content)
	if len(gaps) > 0 {
		content += "\n\nFor more specific information, the following would help:\n"
		for _, gap := range gaps {
			content += "- " + gap + "\n"
		}
	}

	if tmpl.disclaimer != "" {
		content += tmpl.disclaimer
	}

	confidence := synthesisConfidence(sources, webResults)

	// Validation before acceptance.
	if len(content) < minContentLength || confidence < minAcceptConfidence {
		logging.Generation("Generated content rejected: len=%d confidence=%.2f", len(content), confidence)
		return nil
	}

	keywords := deriveKeywords(query, content)
	triggers := deriveTriggers(query, keywords)

	var basedOn []string
	for _, s := range sources {
		basedOn = append(basedOn, s.Source)
	}
	for _, w := range webResults {
		basedOn = append(basedOn, w.URL)
	}

	gk := &types.GeneratedKnowledge{
		KnowledgeEntry: types.KnowledgeEntry{
			ID:          "gen-" + uuid.NewString(),
			Category:    domain,
			Title:       fmt.Sprintf("%s: %s", tmpl.titleWord, truncate(query, 60)),
			Content:     content,
			Keywords:    keywords,
			Triggers:    triggers,
			Priority:    types.PriorityMedium,
			LastUpdated: time.Now(),
		},
		Source:         "generated",
		Confidence:     confidence,
		BasedOnSources: basedOn,
		CreatedAt:      time.Now(),
		UsageCount:     0,
		SuccessRate:    g.initialSuccessRate,
	}

	g.store.Add(*gk)
	logging.Generation("Knowledge generated: id=%s confidence=%.2f triggers=%d", gk.ID, confidence, len(triggers))
	return gk
}

// worthGenerating gates generation: enough combined material, or one
// strong source.
func worthGenerating(sources []types.InformationSource, webResults []types.SearchResult) bool {
	if len(sources)+len(webResults) >= minCombinedSources {
		return true
	}
	for _, s := range sources {
		if s.Confidence > strongConfidence || s.Relevance > strongRelevance {
			return true
		}
	}
	return false
}

// synthesizeBody concatenates source texts, splits them into sentences,
// deduplicates by prefix, and keeps the first few unique sentences.
func synthesizeBody(sources []types.InformationSource, webResults []types.SearchResult) string {
	var all strings.Builder
	for _, s := range sources {
		all.WriteString(s.Content)
		all.WriteString(" ")
	}
	for _, w := range webResults {
		all.WriteString(w.Snippet)
		all.WriteString(" ")
	}

	sentences := splitSentences(all.String())

	seen := make(map[string]bool)
	var kept []string
	for _, sentence := range sentences {
		if len(kept) >= maxSentences {
			break
		}
		if len(sentence) <= minSentenceLength {
			continue
		}
		key := sentence
		if len(key) > dedupePrefixLength {
			key = key[:dedupePrefixLength]
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, sentence)
	}

	return strings.Join(kept, " ")
}

var sentenceSplit = regexp.MustCompile(`[.!?]+\s+`)

// splitSentences is a simple punctuation-based splitter.
func splitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	var sentences []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasSuffix(p, ".") && !strings.HasSuffix(p, "!") && !strings.HasSuffix(p, "?") {
			p += "."
		}
		sentences = append(sentences, p)
	}
	return sentences
}

// =============================================================================
// GAP DETECTION
// =============================================================================

var timeReference = regexp.MustCompile(`(?i)\b(\d+\s*(day|week|month|year)s?|deadline of|by\s+\w+\s+\d)`)

// detectGaps applies the domain-specific missing-element rules.
func detectGaps(query, domain, content string) []string {
	var gaps []string
	lowerQuery := strings.ToLower(query)
	lowerContent := strings.ToLower(content)

	if domain == "legal" && !strings.Contains(lowerContent, "law") && !strings.Contains(lowerContent, "legal") {
		gaps = append(gaps, "the specific law or legal rule that applies")
	}
	if strings.Contains(lowerQuery, "deadline") && !timeReference.MatchString(content) {
		gaps = append(gaps, "the exact time limit or deadline")
	}
	if strings.Contains(lowerQuery, "cost") && !strings.Contains(lowerContent, "fee") && !strings.Contains(lowerContent, "cost") {
		gaps = append(gaps, "the fees or costs involved")
	}
	if domain == "insurance" && !strings.Contains(lowerContent, "policy") {
		gaps = append(gaps, "the relevant policy terms")
	}

	return gaps
}

// =============================================================================
// CONFIDENCE, KEYWORDS, TRIGGERS
// =============================================================================

// synthesisConfidence averages source confidences, with web results
// contributing a fixed moderate confidence each.
func synthesisConfidence(sources []types.InformationSource, webResults []types.SearchResult) float64 {
	var sum float64
	var n int
	for _, s := range sources {
		sum += s.Confidence
		n++
	}
	for range webResults {
		sum += webResultConfidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

var tokenPattern = regexp.MustCompile(`[a-z][a-z']{2,}`)

// generationStopWords mirrors the analyzer's stop set for trigger/keyword
// derivation without importing it (the generator sees synthesized content,
// not just queries).
var generationStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"were": true, "this": true, "that": true, "with": true, "from": true,
	"have": true, "has": true, "had": true, "you": true, "your": true,
	"what": true, "when": true, "where": true, "who": true, "why": true,
	"how": true, "can": true, "could": true, "should": true, "would": true,
	"here": true, "there": true, "based": true, "available": true,
	"information": true, "question": true, "applies": true, "following": true,
	"more": true, "specific": true, "not": true, "about": true,
}

// deriveKeywords frequency-ranks tokens from the query plus content,
// keeping those that appear more than once.
func deriveKeywords(query, content string) []string {
	counts := make(map[string]int)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(query+" "+content), -1) {
		if generationStopWords[token] {
			continue
		}
		counts[token]++
	}

	type freq struct {
		token string
		count int
	}
	var ranked []freq
	for token, count := range counts {
		if count > 1 {
			ranked = append(ranked, freq{token, count})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].token < ranked[j].token
	})

	var keywords []string
	for _, f := range ranked {
		keywords = append(keywords, f.token)
	}
	return keywords
}

var leadingQuestionWord = regexp.MustCompile(`(?i)^(what|when|where|who|why|how|which|is|are|do|does|can|could|should|would)\s+`)

// deriveTriggers builds the trigger set: the normalized query, the query
// with its leading question word stripped, and joins of the top keywords.
func deriveTriggers(query string, keywords []string) []string {
	normalized := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(query, "?")))

	var candidates []string
	candidates = append(candidates, normalized)

	stripped := strings.TrimSpace(leadingQuestionWord.ReplaceAllString(normalized, ""))
	if stripped != "" {
		candidates = append(candidates, stripped)
	}
	if len(keywords) >= 2 {
		candidates = append(candidates, strings.Join(keywords[:2], " "))
	}
	if len(keywords) >= supplementKeywordMin {
		candidates = append(candidates, strings.Join(keywords[:3], " "))
	}

	seen := make(map[string]bool)
	var triggers []string
	for _, c := range candidates {
		if len(triggers) >= maxDerivedTriggers {
			break
		}
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		triggers = append(triggers, c)
	}
	return triggers
}

// truncate shortens a string for titles and logs.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
