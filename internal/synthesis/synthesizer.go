// Package synthesis merges retrieved information sources into a single
// response with an overall confidence score, and records the thinking
// process behind each decision.
package synthesis

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ardi/internal/knowledge"
	"ardi/internal/logging"
	"ardi/internal/types"
)

// Config tunes the decision policy.
type Config struct {
	// HistoryCapacity bounds the thinking-process ring buffer.
	HistoryCapacity int
	// ConfidenceThreshold gates single-source answers.
	ConfidenceThreshold float64
	// SupplementFloor is the minimum confidence for supplementary excerpts.
	SupplementFloor float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		HistoryCapacity:     100,
		ConfidenceThreshold: 0.6,
		SupplementFloor:     0.5,
	}
}

const (
	excerptLength  = 200
	maxSupplements = 2
)

// Outcome is the synthesizer's verdict for one query. Deferred means no
// usable response could be built and the caller should try generation.
type Outcome struct {
	Response     string
	TableContent string
	Source       string
	Category     string
	Confidence   float64
	Deferred     bool
	Process      *types.ThinkingProcess
}

// Synthesizer applies the source-merging decision policy and keeps a
// bounded history of thinking processes for pattern analysis.
type Synthesizer struct {
	cfg Config

	mu      sync.Mutex
	history []*types.ThinkingProcess
}

// NewSynthesizer creates a synthesizer with the given config. Zero-valued
// fields fall back to defaults.
func NewSynthesizer(cfg Config) *Synthesizer {
	def := DefaultConfig()
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = def.HistoryCapacity
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = def.ConfidenceThreshold
	}
	if cfg.SupplementFloor <= 0 {
		cfg.SupplementFloor = def.SupplementFloor
	}
	return &Synthesizer{cfg: cfg}
}

// =============================================================================
// CONFIDENCE
// =============================================================================

// OverallConfidence is the relevance-weighted average of source
// confidences. Zero sources, or all-zero relevance, yields 0.
func OverallConfidence(sources []types.InformationSource) float64 {
	var weighted, totalRelevance float64
	for _, s := range sources {
		weighted += s.Confidence * s.Relevance
		totalRelevance += s.Relevance
	}
	if totalRelevance == 0 {
		return 0
	}
	return weighted / totalRelevance
}

// =============================================================================
// DECISION POLICY
// =============================================================================

// Synthesize applies the decision policy in order: adequate static match,
// confident single source, multi-source concatenation, defer to generation.
// Every call records one ThinkingProcess in the bounded history.
func (s *Synthesizer) Synthesize(analysis types.QueryAnalysis, query string, sources []types.InformationSource) Outcome {
	timer := logging.StartTimer(logging.CategorySynthesis, "Synthesize")
	defer timer.Stop()

	confidence := OverallConfidence(sources)

	process := &types.ThinkingProcess{
		ID:                  uuid.NewString(),
		Query:               query,
		Timestamp:           time.Now(),
		InformationGathered: sources,
		Confidence:          confidence,
	}
	process.AnalysisSteps = append(process.AnalysisSteps,
		fmt.Sprintf("intent=%s domain=%s complexity=%s keywords=%d",
			analysis.Intent, analysis.Domain, analysis.Complexity, len(analysis.Keywords)),
		fmt.Sprintf("gathered %d sources, overall confidence %.2f", len(sources), confidence),
	)
	defer s.record(process)

	// Step 1: an adequate curated match wins outright.
	if static := pickStatic(sources); static != nil && adequateSource(*static) {
		process.AnalysisSteps = append(process.AnalysisSteps, "adequate static match, bypassing synthesis")
		process.SynthesizedResponse = static.Content
		logging.Synthesis("Static match from %s (%.2f)", static.Source, static.Confidence)
		return Outcome{
			Response:     static.Content,
			TableContent: static.Metadata["table_content"],
			Source:       static.Source,
			Category:     static.Metadata["category"],
			Confidence:   static.Confidence,
			Process:      process,
		}
	}

	ranked := rankByScore(sources)

	// Step 2: confident enough for the single best source.
	if confidence > s.cfg.ConfidenceThreshold && len(ranked) > 0 {
		best := ranked[0]
		process.AnalysisSteps = append(process.AnalysisSteps, "confidence above threshold, using best source")
		process.SynthesizedResponse = best.Content
		logging.Synthesis("Single-source answer from %s (%.2f)", best.Source, confidence)
		return Outcome{
			Response:     best.Content,
			TableContent: best.Metadata["table_content"],
			Source:       best.Source,
			Category:     best.Metadata["category"],
			Confidence:   confidence,
			Process:      process,
		}
	}

	// Step 3: combine the top source with supplementary excerpts.
	if len(ranked) >= 2 {
		response := s.combine(ranked)
		process.AnalysisSteps = append(process.AnalysisSteps, "combined top source with supplements")
		process.SynthesizedResponse = response
		logging.Synthesis("Combined %d sources (%.2f)", len(ranked), confidence)
		return Outcome{
			Response:   response,
			Source:     ranked[0].Source,
			Category:   ranked[0].Metadata["category"],
			Confidence: confidence,
			Process:    process,
		}
	}

	// Step 4: nothing usable.
	process.AnalysisSteps = append(process.AnalysisSteps, "no usable sources, deferring to generation")
	process.KnowledgeGaps = append(process.KnowledgeGaps, analysis.InformationNeeds...)
	logging.SynthesisDebug("Deferred: %d sources, confidence %.2f", len(sources), confidence)
	return Outcome{Deferred: true, Confidence: confidence, Process: process}
}

// pickStatic returns the first exact or trigger static-knowledge source.
func pickStatic(sources []types.InformationSource) *types.InformationSource {
	for i := range sources {
		s := &sources[i]
		if s.Type != types.SourceKnowledgeBase || s.Metadata["generated"] == "true" {
			continue
		}
		switch knowledge.MatchType(s.Metadata["match_type"]) {
		case knowledge.MatchExact, knowledge.MatchTrigger:
			return s
		}
	}
	return nil
}

// adequateSource mirrors knowledge.Adequate for a gathered source.
func adequateSource(s types.InformationSource) bool {
	return len(s.Content) > 50 || s.Metadata["table_content"] != ""
}

// rankByScore orders sources by confidence × relevance descending.
func rankByScore(sources []types.InformationSource) []types.InformationSource {
	ranked := make([]types.InformationSource, len(sources))
	copy(ranked, sources)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence*ranked[i].Relevance > ranked[j].Confidence*ranked[j].Relevance
	})
	return ranked
}

// combine joins the top source with up to two supplementary excerpts above
// the confidence floor.
func (s *Synthesizer) combine(ranked []types.InformationSource) string {
	response := ranked[0].Content

	var supplements []string
	for _, src := range ranked[1:] {
		if len(supplements) >= maxSupplements {
			break
		}
		if src.Confidence < s.cfg.SupplementFloor {
			continue
		}
		excerpt := src.Content
		if len(excerpt) > excerptLength {
			excerpt = excerpt[:excerptLength] + "..."
		}
		supplements = append(supplements, excerpt)
	}

	if len(supplements) > 0 {
		response += "\n\n**Additional Information:**\n"
		for _, sup := range supplements {
			response += "\n" + sup + "\n"
		}
	}
	return response
}

// =============================================================================
// HISTORY
// =============================================================================

// record appends to the bounded ring buffer, evicting the oldest entry.
func (s *Synthesizer) record(p *types.ThinkingProcess) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, p)
	if len(s.history) > s.cfg.HistoryCapacity {
		s.history = s.history[len(s.history)-s.cfg.HistoryCapacity:]
	}
}

// History returns a copy of the recorded thinking processes, oldest first.
func (s *Synthesizer) History() []*types.ThinkingProcess {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.ThinkingProcess, len(s.history))
	copy(out, s.history)
	return out
}

// Process looks up a thinking process by id.
func (s *Synthesizer) Process(id string) (*types.ThinkingProcess, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.history {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}
