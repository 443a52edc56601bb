// Package core wires the answer pipeline: analyze, retrieve, synthesize,
// generate, learn. The Engine is the single public entry point for
// answering questions and recording feedback.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ardi/internal/analyzer"
	"ardi/internal/config"
	"ardi/internal/generation"
	"ardi/internal/knowledge"
	"ardi/internal/learning"
	"ardi/internal/logging"
	"ardi/internal/retrieval"
	"ardi/internal/search"
	"ardi/internal/store"
	"ardi/internal/synthesis"
	"ardi/internal/types"
)

// ErrEmptyMessage is returned when answer() receives a blank message.
var ErrEmptyMessage = errors.New("message required")

const patternKeywordCap = 3

// genericFallback is the templated apology used when both retrieval and
// generation come up empty.
const genericFallback = "I don't have information about that yet. " +
	"Could you rephrase the question, or ask about case procedures, " +
	"legal definitions, or insurance processes?"

// Engine owns the pipeline services. Construct once, share across
// requests; all mutable state underneath is mutex-guarded.
type Engine struct {
	cfg *config.Config

	analyzer    *analyzer.Analyzer
	library     *knowledge.Library
	genStore    *generation.Store
	generator   *generation.Generator
	retriever   *retrieval.Retriever
	synthesizer *synthesis.Synthesizer
	learner     *learning.Learner
	searcher    search.Searcher
	local       *store.LocalStore
	watcher     *knowledge.Watcher
}

// NewEngine builds the full pipeline from configuration. The SQLite store
// is required; search is optional per config.
func NewEngine(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	local, err := store.NewLocalStore(cfg.Store.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	library, err := knowledge.LoadLibrary(cfg.Knowledge.CollectionsDir)
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("load knowledge collections: %w", err)
	}
	logging.Boot("Knowledge library loaded: %d entries in %d collections",
		library.EntryCount(), len(library.Collections()))

	genStore := generation.NewStore(cfg.Generation.MaxEntries, local)
	learner := learning.NewLearner(&learning.Config{
		DefaultProbability: cfg.Learning.DefaultProbability,
		DefaultConfidence:  cfg.Learning.DefaultConfidence,
	}, local)

	e := &Engine{
		cfg:       cfg,
		analyzer:  analyzer.New(),
		library:   library,
		genStore:  genStore,
		generator: generation.NewGenerator(genStore, cfg.Generation.InitialSuccessRate),
		retriever: retrieval.NewRetriever(library, genStore, learner),
		synthesizer: synthesis.NewSynthesizer(synthesis.Config{
			HistoryCapacity:     cfg.Synthesis.HistoryCapacity,
			ConfidenceThreshold: cfg.Synthesis.ConfidenceThreshold,
			SupplementFloor:     cfg.Synthesis.SupplementFloor,
		}),
		learner: learner,
		local:   local,
	}

	if cfg.Search.Enabled {
		e.searcher = search.NewDuckDuckGo(&search.Config{
			BaseURL:    cfg.Search.BaseURL,
			Timeout:    cfg.GetSearchTimeout(),
			MaxResults: cfg.Search.MaxResults,
			CacheSize:  cfg.Search.CacheSize,
			CacheTTL:   cfg.GetSearchCacheTTL(),
		})
	}

	if cfg.Knowledge.Watch && cfg.Knowledge.CollectionsDir != "" {
		e.watcher = knowledge.NewWatcher(library, cfg.Knowledge.CollectionsDir)
	}

	return e, nil
}

// Start launches the background jobs: knowledge hot-reload and periodic
// insight regeneration. Both stop when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	if e.watcher != nil {
		go func() {
			if err := e.watcher.Run(ctx); err != nil {
				logging.Get(logging.CategoryBoot).Warn("Knowledge watcher stopped: %v", err)
			}
		}()
	}
	go e.learner.RunInsightJob(ctx, e.cfg.GetInsightInterval())
}

// Close releases the engine's resources.
func (e *Engine) Close() error {
	return e.local.Close()
}

// =============================================================================
// ANSWERING
// =============================================================================

// Answer runs the full pipeline for one message. It never fails past input
// validation; every internal failure degrades to the generic fallback.
func (e *Engine) Answer(ctx context.Context, message string) (*types.Answer, error) {
	timer := logging.StartTimer(logging.CategoryPipeline, "Answer")
	defer timer.Stop()

	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	started := time.Now()

	analysis := e.analyzer.Analyze(message)
	logging.Pipeline("Query analyzed: intent=%s domain=%s complexity=%s",
		analysis.Intent, analysis.Domain, analysis.Complexity)

	sources := e.retriever.Retrieve(analysis)
	outcome := e.synthesizer.Synthesize(analysis, message, sources)

	answer := &types.Answer{
		Content:      outcome.Response,
		TableContent: outcome.TableContent,
		Source:       outcome.Source,
		Category:     outcome.Category,
		Confidence:   outcome.Confidence,
	}
	if outcome.Process != nil {
		answer.ProcessID = outcome.Process.ID
	}
	hadGaps := false

	if outcome.Deferred {
		generated := e.generate(ctx, message, analysis, sources, outcome.Process)
		if generated != nil {
			answer.Content = generated.Content
			answer.TableContent = generated.TableContent
			answer.Source = "generated"
			answer.Category = generated.Category
			answer.Confidence = generated.Confidence
		} else {
			answer.Content = genericFallback
			answer.Source = "fallback"
			answer.Category = "general"
			answer.Confidence = 0
			hadGaps = true
		}
	}

	e.recordUsage(sources)

	e.learner.RecordInteraction(learning.Interaction{
		ProcessID:      answer.ProcessID,
		Pattern:        analyzer.PatternKey(analysis, patternKeywordCap),
		Keywords:       analysis.Keywords,
		ResponseTimeMs: float64(time.Since(started).Milliseconds()),
		Successful:     answer.Source != "fallback",
		HadGaps:        hadGaps,
		Confidence:     answer.Confidence,
	})

	logging.Pipeline("Answered from %s with confidence %.2f in %v",
		answer.Source, answer.Confidence, time.Since(started))
	return answer, nil
}

// generate runs the web-search-assisted generation fallback. Search
// failures degrade to empty results and never abort the answer.
func (e *Engine) generate(ctx context.Context, message string, analysis types.QueryAnalysis, sources []types.InformationSource, process *types.ThinkingProcess) *types.GeneratedKnowledge {
	var webResults []types.SearchResult
	if e.searcher != nil && (analysis.RequiresRealtimeData || len(sources) == 0 || analysis.Complexity != types.ComplexitySimple) {
		webResults = search.SearchVariants(ctx, e.searcher, searchVariants(message, analysis), e.cfg.Search.MaxResults)
	}

	gk := e.generator.Generate(message, analysis.Domain, sources, webResults)
	if gk != nil && process != nil {
		process.LearningOpportunities = append(process.LearningOpportunities,
			"generated new knowledge entry "+gk.ID)
		// Recorded on the process so feedback against this answer reaches
		// the entry's success rate.
		process.InformationGathered = append(process.InformationGathered, types.InformationSource{
			Type:       types.SourceSynthesis,
			Source:     "generated:" + gk.ID,
			Content:    gk.Content,
			Confidence: gk.Confidence,
			Relevance:  1.0,
			Metadata: map[string]string{
				"entry_id":  gk.ID,
				"generated": "true",
			},
		})
	}
	return gk
}

// searchVariants builds the queries fanned out to the search collaborator.
func searchVariants(message string, analysis types.QueryAnalysis) []string {
	variants := []string{message}
	if len(analysis.Keywords) >= 2 {
		variants = append(variants, strings.Join(analysis.Keywords[:2], " "))
	}
	if analysis.Domain != "" && analysis.Domain != "general" && len(analysis.Keywords) > 0 {
		variants = append(variants, analysis.Domain+" "+analysis.Keywords[0])
	}
	return variants
}

// recordUsage bumps usage counters on generated entries that contributed.
func (e *Engine) recordUsage(sources []types.InformationSource) {
	for _, s := range sources {
		if s.Metadata["generated"] == "true" {
			e.genStore.RecordUsage(s.Metadata["entry_id"])
		}
	}
}

// =============================================================================
// FEEDBACK
// =============================================================================

// SubmitFeedback records a user rating against a prior answer's thinking
// process. Persistence failures are logged, never surfaced.
func (e *Engine) SubmitFeedback(processID string, rating types.Rating, note string, categories []string) (string, error) {
	if !rating.Valid() {
		return "", fmt.Errorf("invalid rating %q", rating)
	}
	if processID == "" {
		return "", errors.New("process id required")
	}

	fb := types.UserFeedback{
		ID:               "fb-" + uuid.NewString(),
		ProcessID:        processID,
		Rating:           rating,
		SpecificFeedback: note,
		Categories:       categories,
		Timestamp:        time.Now(),
	}

	e.learner.RecordFeedback(fb)

	// Propagate the outcome to any generated entry behind this process.
	if process, ok := e.synthesizer.Process(processID); ok {
		for _, s := range process.InformationGathered {
			if s.Metadata["generated"] == "true" {
				e.genStore.RecordOutcome(s.Metadata["entry_id"], rating == types.RatingPositive)
			}
		}
	}

	logging.Feedback("Feedback %s recorded for process %s (%s)", fb.ID, processID, rating)
	return fb.ID, nil
}

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// EngineStats is a point-in-time snapshot for the stats surface.
type EngineStats struct {
	Collections         int                `json:"collections"`
	KnowledgeEntries    int                `json:"knowledge_entries"`
	GeneratedEntries    int                `json:"generated_entries"`
	Patterns            int                `json:"patterns"`
	FeedbackRecords     int                `json:"feedback_records"`
	Insights            int                `json:"insights"`
	HistoryLength       int                `json:"history_length"`
	CategoryPerformance map[string]float64 `json:"category_performance,omitempty"`
	Store               map[string]int64   `json:"store,omitempty"`
}

// Stats assembles the snapshot. Store-level counts are best-effort.
func (e *Engine) Stats() EngineStats {
	stats := EngineStats{
		Collections:         len(e.library.Collections()),
		KnowledgeEntries:    e.library.EntryCount(),
		GeneratedEntries:    e.genStore.Count(),
		Patterns:            e.learner.PatternCount(),
		FeedbackRecords:     e.learner.FeedbackCount(),
		Insights:            len(e.learner.Insights()),
		HistoryLength:       len(e.synthesizer.History()),
		CategoryPerformance: e.learner.CategoryPerformance(),
	}
	if counts, err := e.local.Stats(); err == nil {
		stats.Store = counts
	}
	return stats
}

// Insights regenerates and returns the learning insights.
func (e *Engine) Insights() []types.LearningInsight {
	return e.learner.GenerateInsights()
}

// Predict exposes the learner's success prediction for a message.
func (e *Engine) Predict(message string) types.SuccessPrediction {
	analysis := e.analyzer.Analyze(message)
	return e.learner.Predict(analyzer.PatternKey(analysis, patternKeywordCap), analysis.Keywords)
}

// History returns the recorded thinking processes.
func (e *Engine) History() []*types.ThinkingProcess {
	return e.synthesizer.History()
}

// Library exposes the knowledge library for the CLI listing commands.
func (e *Engine) Library() *knowledge.Library {
	return e.library
}
