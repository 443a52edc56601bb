// Package learning tracks interaction patterns and explicit feedback,
// predicts success for new queries, and derives insights from the
// accumulated statistics. The learner exclusively owns the pattern map and
// the per-category performance map; everything else reads them through it.
package learning

import (
	"sort"
	"strings"
	"sync"
	"time"

	"ardi/internal/logging"
	"ardi/internal/types"
)

// PatternStore is the slice of persistence the learner writes through to.
// Store failures are logged and swallowed: feedback loss must never fail the
// answering path.
type PatternStore interface {
	SavePattern(p types.InteractionPattern) error
	LoadPatterns() (map[string]*types.InteractionPattern, error)
	SaveFeedback(fb types.UserFeedback) error
	LoadFeedback() ([]types.UserFeedback, error)
	SaveCategoryPerformance(category string, score float64) error
	LoadCategoryPerformance() (map[string]float64, error)
}

// Interaction is one completed answer cycle reported to the learner.
type Interaction struct {
	ProcessID      string
	Pattern        string
	Keywords       []string
	ResponseTimeMs float64
	Successful     bool
	HadGaps        bool
	Confidence     float64
}

// Config holds learner tuning knobs.
type Config struct {
	// Prediction defaults when no pattern data exists.
	DefaultProbability float64
	DefaultConfidence  float64
}

// DefaultConfig returns the learner defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultProbability: 0.7,
		DefaultConfidence:  0.3,
	}
}

// Learner is the learning system. All maps are mutex-guarded: the original
// deployment was single-request, a concurrent runtime must not lose updates.
type Learner struct {
	mu sync.RWMutex

	patterns    map[string]*types.InteractionPattern
	categories  map[string]float64 // per-category running performance
	processIdx  map[string]string  // process id -> pattern key
	feedback    []types.UserFeedback
	insights    []types.LearningInsight
	gapCount    int     // interactions that surfaced knowledge gaps
	totalCount  int     // total recorded interactions
	qualitySum  float64 // sum of interaction confidences
	defaultProb float64
	defaultConf float64

	store PatternStore // nil = in-memory only
}

// NewLearner creates a learner, loading prior state from the store when one
// is provided. Load failures are logged and start from empty state.
func NewLearner(cfg *Config, store PatternStore) *Learner {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	l := &Learner{
		patterns:    make(map[string]*types.InteractionPattern),
		categories:  make(map[string]float64),
		processIdx:  make(map[string]string),
		defaultProb: cfg.DefaultProbability,
		defaultConf: cfg.DefaultConfidence,
		store:       store,
	}

	if store != nil {
		if patterns, err := store.LoadPatterns(); err != nil {
			logging.Get(logging.CategoryLearning).Warn("Failed to load patterns: %v", err)
		} else {
			l.patterns = patterns
		}
		if categories, err := store.LoadCategoryPerformance(); err != nil {
			logging.Get(logging.CategoryLearning).Warn("Failed to load category performance: %v", err)
		} else {
			l.categories = categories
		}
		if feedback, err := store.LoadFeedback(); err != nil {
			logging.Get(logging.CategoryLearning).Warn("Failed to load feedback history: %v", err)
		} else {
			l.feedback = feedback
		}
	}

	logging.Learning("Learner initialized: %d patterns, %d categories, %d feedback records",
		len(l.patterns), len(l.categories), len(l.feedback))
	return l
}

// =============================================================================
// INTERACTION RECORDING
// =============================================================================

// RecordInteraction mutates the pattern for one completed answer cycle.
// First interaction for a pattern creates it (unseen -> tracked); patterns
// are never deleted.
func (l *Learner) RecordInteraction(in Interaction) {
	timer := logging.StartTimer(logging.CategoryLearning, "RecordInteraction")
	defer timer.Stop()

	l.mu.Lock()

	p, ok := l.patterns[in.Pattern]
	if !ok {
		p = &types.InteractionPattern{
			Pattern:          in.Pattern,
			Frequency:        0,
			SuccessRate:      0,
			CommonKeywords:   append([]string(nil), in.Keywords...),
			UserSatisfaction: 0.5,
		}
		l.patterns[in.Pattern] = p
		logging.LearningDebug("New pattern tracked: %s", in.Pattern)
	}

	p.Frequency++
	success := 0.0
	if in.Successful {
		success = 1.0
	}
	p.SuccessRate = (p.SuccessRate*float64(p.Frequency-1) + success) / float64(p.Frequency)

	// Two-point average, matching the original system's simplification.
	if p.AvgResponseTime == 0 {
		p.AvgResponseTime = in.ResponseTimeMs
	} else {
		p.AvgResponseTime = (p.AvgResponseTime + in.ResponseTimeMs) / 2
	}

	p.CommonKeywords = mergeKeywords(p.CommonKeywords, in.Keywords)
	p.LastUpdated = time.Now()

	if in.ProcessID != "" {
		l.processIdx[in.ProcessID] = in.Pattern
	}

	l.totalCount++
	if in.HadGaps {
		l.gapCount++
	}
	l.qualitySum += in.Confidence

	saved := *p
	l.mu.Unlock()

	l.persistPattern(saved)

	logging.LearningDebug("Interaction recorded: pattern=%s freq=%d success_rate=%.2f",
		saved.Pattern, saved.Frequency, saved.SuccessRate)
}

// =============================================================================
// FEEDBACK
// =============================================================================

// RecordFeedback applies explicit feedback to the matching pattern and to
// the per-category performance map. Positive feedback never decreases a
// pattern's success rate; negative never increases it.
func (l *Learner) RecordFeedback(fb types.UserFeedback) {
	timer := logging.StartTimer(logging.CategoryLearning, "RecordFeedback")
	defer timer.Stop()

	score := fb.Rating.Score()

	l.mu.Lock()

	l.feedback = append(l.feedback, fb)

	var saved *types.InteractionPattern
	if patternKey, ok := l.processIdx[fb.ProcessID]; ok {
		if p, ok := l.patterns[patternKey]; ok {
			// Two-point average, matching the original system.
			p.UserSatisfaction = (p.UserSatisfaction + score) / 2

			// Fold the rating in as one extra outcome sample. Rank-only
			// denominator growth keeps the movement monotone with the
			// rating: positive can only raise, negative only lower.
			switch fb.Rating {
			case types.RatingPositive:
				p.SuccessRate = (p.SuccessRate*float64(p.Frequency) + 1) / float64(p.Frequency+1)
			case types.RatingNegative:
				p.SuccessRate = (p.SuccessRate * float64(p.Frequency)) / float64(p.Frequency+1)
			}

			if fb.Rating == types.RatingNegative && fb.SpecificFeedback != "" {
				p.ImprovementAreas = append(p.ImprovementAreas, fb.SpecificFeedback)
			}
			p.LastUpdated = time.Now()
			cp := *p
			saved = &cp
		}
	}

	var savedCategories []string
	for _, category := range fb.Categories {
		if current, ok := l.categories[category]; ok {
			l.categories[category] = (current + score) / 2
		} else {
			l.categories[category] = score
		}
		savedCategories = append(savedCategories, category)
	}
	categorySnapshot := make(map[string]float64, len(savedCategories))
	for _, category := range savedCategories {
		categorySnapshot[category] = l.categories[category]
	}

	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.SaveFeedback(fb); err != nil {
			logging.Get(logging.CategoryFeedback).Warn("Failed to persist feedback %s: %v", fb.ID, err)
		}
		for category, cscore := range categorySnapshot {
			if err := l.store.SaveCategoryPerformance(category, cscore); err != nil {
				logging.Get(logging.CategoryFeedback).Warn("Failed to persist category %s: %v", category, err)
			}
		}
	}
	if saved != nil {
		l.persistPattern(*saved)
	}

	logging.Feedback("Feedback recorded: id=%s process=%s rating=%s", fb.ID, fb.ProcessID, fb.Rating)
}

// =============================================================================
// PREDICTION
// =============================================================================

// Predict estimates how likely answering a query with the given pattern key
// and keywords is to succeed. Exact pattern match wins; otherwise keyword
// overlap across patterns; otherwise the configured defaults.
func (l *Learner) Predict(patternKey string, keywords []string) types.SuccessPrediction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if p, ok := l.patterns[patternKey]; ok {
		confidence := float64(p.Frequency) / 10.0
		if confidence > 1.0 {
			confidence = 1.0
		}
		return types.SuccessPrediction{Probability: p.SuccessRate, Confidence: confidence}
	}

	querySet := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		querySet[strings.ToLower(kw)] = true
	}

	var sum float64
	var count int
	var totalFrequency int
	for _, p := range l.patterns {
		if overlaps(querySet, p.CommonKeywords) {
			sum += p.SuccessRate
			count++
			totalFrequency += p.Frequency
		}
	}

	if count > 0 {
		confidence := float64(totalFrequency) / 20.0
		if confidence > 0.8 {
			confidence = 0.8
		}
		return types.SuccessPrediction{Probability: sum / float64(count), Confidence: confidence}
	}

	return types.SuccessPrediction{Probability: l.defaultProb, Confidence: l.defaultConf}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// MatchingPatterns returns patterns sharing at least one keyword with the
// query, sorted by success rate descending. The retriever turns these into
// pattern-match information sources.
func (l *Learner) MatchingPatterns(keywords []string) []types.InteractionPattern {
	l.mu.RLock()
	defer l.mu.RUnlock()

	querySet := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		querySet[strings.ToLower(kw)] = true
	}

	var matches []types.InteractionPattern
	for _, p := range l.patterns {
		if overlaps(querySet, p.CommonKeywords) {
			matches = append(matches, *p)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].SuccessRate > matches[j].SuccessRate
	})
	return matches
}

// Pattern returns a copy of one tracked pattern.
func (l *Learner) Pattern(key string) (types.InteractionPattern, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.patterns[key]
	if !ok {
		return types.InteractionPattern{}, false
	}
	return *p, true
}

// PatternCount returns the number of tracked patterns.
func (l *Learner) PatternCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.patterns)
}

// CategoryPerformance returns a copy of the per-category performance map.
func (l *Learner) CategoryPerformance() map[string]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]float64, len(l.categories))
	for k, v := range l.categories {
		out[k] = v
	}
	return out
}

// FeedbackCount returns the number of recorded feedback events.
func (l *Learner) FeedbackCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.feedback)
}

// =============================================================================
// HELPERS
// =============================================================================

// persistPattern writes a pattern through to the store, best effort.
func (l *Learner) persistPattern(p types.InteractionPattern) {
	if l.store == nil {
		return
	}
	if err := l.store.SavePattern(p); err != nil {
		logging.Get(logging.CategoryLearning).Warn("Failed to persist pattern %s: %v", p.Pattern, err)
	}
}

// overlaps reports whether any pattern keyword is in the query set.
func overlaps(querySet map[string]bool, patternKeywords []string) bool {
	for _, kw := range patternKeywords {
		if querySet[strings.ToLower(kw)] {
			return true
		}
	}
	return false
}

// mergeKeywords unions new keywords into the pattern's common set, capped to
// keep patterns from growing without bound.
func mergeKeywords(existing, incoming []string) []string {
	const maxKeywords = 20

	seen := make(map[string]bool, len(existing))
	for _, kw := range existing {
		seen[kw] = true
	}
	for _, kw := range incoming {
		if len(existing) >= maxKeywords {
			break
		}
		if !seen[kw] {
			seen[kw] = true
			existing = append(existing, kw)
		}
	}
	return existing
}
