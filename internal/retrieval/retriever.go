// Package retrieval gathers information sources for a query from the
// static knowledge library, the generated-knowledge store, and learned
// interaction patterns.
package retrieval

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ardi/internal/generation"
	"ardi/internal/knowledge"
	"ardi/internal/learning"
	"ardi/internal/logging"
	"ardi/internal/types"
)

const (
	maxGeneratedMatches = 5
	patternRelevance    = 0.7
)

// Confidence assigned per static match rung. Exact matches short-circuit
// at full confidence; weaker rungs degrade.
var matchConfidence = map[knowledge.MatchType]float64{
	knowledge.MatchExact:   1.0,
	knowledge.MatchTrigger: 0.8,
	knowledge.MatchRelated: 0.6,
}

// Retriever fans a query out across the knowledge sources and scores the
// results against the query keywords.
type Retriever struct {
	library *knowledge.Library
	gen     *generation.Store
	learner *learning.Learner
	cache   *sourceCache
}

// NewRetriever wires the retriever over its three source backends.
// learner may be nil when pattern sources are disabled.
func NewRetriever(library *knowledge.Library, gen *generation.Store, learner *learning.Learner) *Retriever {
	return &Retriever{
		library: library,
		gen:     gen,
		learner: learner,
		cache:   newSourceCache(defaultCacheSize, defaultCacheTTL),
	}
}

// Retrieve collects scored sources for the analyzed query. An exact static
// trigger match short-circuits at full confidence and relevance.
func (r *Retriever) Retrieve(analysis types.QueryAnalysis) []types.InformationSource {
	timer := logging.StartTimer(logging.CategoryRetrieval, "Retrieve")
	defer timer.Stop()

	normalized := knowledge.Normalize(analysis.OriginalQuery)
	libVersion, genVersion := r.library.Version(), r.gen.Version()

	if cached, ok := r.cache.Get(normalized, libVersion, genVersion); ok {
		logging.RetrievalDebug("Source cache hit for %q", normalized)
		return cached
	}

	var sources []types.InformationSource

	matches := r.library.MatchAll(normalized)
	for _, m := range matches {
		relevance := 1.0
		if m.Type != knowledge.MatchExact {
			relevance = relevanceScore(analysis.Keywords, m.Entry.Content+" "+m.Entry.Title)
		}
		sources = append(sources, types.InformationSource{
			Type:       types.SourceKnowledgeBase,
			Source:     m.Collection,
			Content:    m.Entry.Content,
			Confidence: matchConfidence[m.Type],
			Relevance:  relevance,
			Metadata: map[string]string{
				"entry_id":      m.Entry.ID,
				"match_type":    string(m.Type),
				"category":      m.Entry.Category,
				"title":         m.Entry.Title,
				"table_content": m.Entry.TableContent,
			},
		})
		if m.Type == knowledge.MatchExact {
			// Exact hits are authoritative; skip the weaker backends.
			logging.Retrieval("Exact match: %s/%s", m.Collection, m.Entry.ID)
			r.cache.Set(normalized, sources, libVersion, genVersion)
			return sources
		}
	}

	for _, gk := range r.gen.Match(normalized, analysis.Keywords, maxGeneratedMatches) {
		sources = append(sources, types.InformationSource{
			Type:       types.SourceKnowledgeBase,
			Source:     "generated:" + gk.ID,
			Content:    gk.Content,
			Confidence: gk.Confidence,
			Relevance:  relevanceScore(analysis.Keywords, gk.Content+" "+gk.Title),
			Metadata: map[string]string{
				"entry_id":      gk.ID,
				"generated":     "true",
				"category":      gk.Category,
				"title":         gk.Title,
				"table_content": gk.TableContent,
			},
		})
	}

	if r.learner != nil {
		for _, p := range r.learner.MatchingPatterns(analysis.Keywords) {
			sources = append(sources, types.InformationSource{
				Type:       types.SourcePatternMatch,
				Source:     "pattern:" + p.Pattern,
				Content:    "Similar questions followed the pattern " + p.Pattern + ".",
				Confidence: p.SuccessRate,
				Relevance:  patternRelevance,
				Metadata: map[string]string{
					"pattern":   p.Pattern,
					"frequency": strconv.Itoa(p.Frequency),
				},
			})
		}
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Confidence*sources[i].Relevance > sources[j].Confidence*sources[j].Relevance
	})

	logging.Retrieval("Retrieved %d sources for %q", len(sources), truncate(normalized, 60))
	r.cache.Set(normalized, sources, libVersion, genVersion)
	return sources
}

var contentTokenPattern = regexp.MustCompile(`[a-z][a-z']{1,}`)

// relevanceScore is the shared keyword-overlap formula: matched query
// keywords over total query keywords.
func relevanceScore(keywords []string, content string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	tokens := make(map[string]bool)
	for _, t := range contentTokenPattern.FindAllString(strings.ToLower(content), -1) {
		tokens[t] = true
	}

	matched := 0
	for _, kw := range keywords {
		hit := true
		// Compound keywords match when every word appears.
		for _, part := range strings.Fields(strings.ToLower(kw)) {
			if !tokens[part] {
				hit = false
				break
			}
		}
		if hit {
			matched++
		}
	}

	denom := len(keywords)
	if denom < 1 {
		denom = 1
	}
	return float64(matched) / float64(denom)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
