package learning

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ardi/internal/logging"
	"ardi/internal/types"
)

// Insight thresholds. The four analyzers below are independent; each scans
// its own slice of the learner's state.
const (
	successRateHigh   = 0.8
	successFreqMin    = 5
	failureRateLow    = 0.5
	failureFreqMin    = 3
	categoryScoreLow  = 0.6
	gapRateThreshold  = 0.3
	avgQualityMinimum = 0.7
)

// GenerateInsights runs the four insight analyzers and replaces the prior
// insight list. Re-running with no intervening interactions yields an
// identical list.
func (l *Learner) GenerateInsights() []types.LearningInsight {
	timer := logging.StartTimer(logging.CategoryLearning, "GenerateInsights")
	defer timer.Stop()

	l.mu.Lock()
	defer l.mu.Unlock()

	var insights []types.LearningInsight
	insights = append(insights, l.successPatternInsights()...)
	insights = append(insights, l.failurePatternInsights()...)
	insights = append(insights, l.knowledgeGapInsights()...)
	insights = append(insights, l.improvementInsights()...)

	l.insights = insights
	logging.Learning("Generated %d insights from %d patterns", len(insights), len(l.patterns))
	return append([]types.LearningInsight(nil), insights...)
}

// Insights returns the last generated insight list.
func (l *Learner) Insights() []types.LearningInsight {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]types.LearningInsight(nil), l.insights...)
}

// sortedPatterns returns patterns in deterministic key order so repeated
// insight runs produce identical lists.
func (l *Learner) sortedPatterns() []*types.InteractionPattern {
	keys := make([]string, 0, len(l.patterns))
	for k := range l.patterns {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*types.InteractionPattern, 0, len(keys))
	for _, k := range keys {
		out = append(out, l.patterns[k])
	}
	return out
}

// successPatternInsights flags patterns worth reinforcing.
func (l *Learner) successPatternInsights() []types.LearningInsight {
	var insights []types.LearningInsight
	for _, p := range l.sortedPatterns() {
		if p.SuccessRate > successRateHigh && p.Frequency > successFreqMin {
			insights = append(insights, types.LearningInsight{
				Type:           types.InsightSuccessPattern,
				Description:    fmt.Sprintf("Pattern %q answers reliably (%.0f%% success over %d interactions)", p.Pattern, p.SuccessRate*100, p.Frequency),
				Confidence:     p.SuccessRate,
				Frequency:      p.Frequency,
				Recommendation: "Prioritize this answer path for similar queries",
				Impact:         "high",
				Evidence:       append([]string(nil), p.CommonKeywords...),
			})
		}
	}
	return insights
}

// failurePatternInsights flags patterns that keep going wrong.
func (l *Learner) failurePatternInsights() []types.LearningInsight {
	var insights []types.LearningInsight
	for _, p := range l.sortedPatterns() {
		if p.SuccessRate < failureRateLow && p.Frequency > failureFreqMin {
			evidence := append([]string(nil), p.CommonKeywords...)
			evidence = append(evidence, p.ImprovementAreas...)
			insights = append(insights, types.LearningInsight{
				Type:           types.InsightFailurePattern,
				Description:    fmt.Sprintf("Pattern %q fails often (%.0f%% success over %d interactions)", p.Pattern, p.SuccessRate*100, p.Frequency),
				Confidence:     1 - p.SuccessRate,
				Frequency:      p.Frequency,
				Recommendation: "Author a knowledge entry covering this pattern's keywords",
				Impact:         "high",
				Evidence:       evidence,
			})
		}
	}
	return insights
}

// knowledgeGapInsights flags categories with poor feedback performance.
func (l *Learner) knowledgeGapInsights() []types.LearningInsight {
	categories := make([]string, 0, len(l.categories))
	for c := range l.categories {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var insights []types.LearningInsight
	for _, category := range categories {
		score := l.categories[category]
		if score < categoryScoreLow {
			insights = append(insights, types.LearningInsight{
				Type:           types.InsightKnowledgeGap,
				Description:    fmt.Sprintf("Category %q underperforms (score %.2f)", category, score),
				Confidence:     1 - score,
				Frequency:      1,
				Recommendation: fmt.Sprintf("Expand the %s knowledge collection", category),
				Impact:         "medium",
				Evidence:       []string{category},
			})
		}
	}
	return insights
}

// improvementInsights covers global health: gap rate and answer quality.
func (l *Learner) improvementInsights() []types.LearningInsight {
	if l.totalCount == 0 {
		return nil
	}

	var insights []types.LearningInsight

	gapRate := float64(l.gapCount) / float64(l.totalCount)
	if gapRate > gapRateThreshold {
		insights = append(insights, types.LearningInsight{
			Type:           types.InsightImprovement,
			Description:    fmt.Sprintf("%.0f%% of interactions surfaced knowledge gaps", gapRate*100),
			Confidence:     gapRate,
			Frequency:      l.gapCount,
			Recommendation: "Review recent knowledge gaps and author missing entries",
			Impact:         "high",
			Evidence:       []string{fmt.Sprintf("%d of %d interactions", l.gapCount, l.totalCount)},
		})
	}

	avgQuality := l.qualitySum / float64(l.totalCount)
	if avgQuality < avgQualityMinimum {
		insights = append(insights, types.LearningInsight{
			Type:           types.InsightImprovement,
			Description:    fmt.Sprintf("Average answer confidence is low (%.0f%%)", avgQuality*100),
			Confidence:     1 - avgQuality,
			Frequency:      l.totalCount,
			Recommendation: "Broaden trigger coverage in the static collections",
			Impact:         "medium",
			Evidence:       []string{fmt.Sprintf("average confidence %.2f", avgQuality)},
		})
	}

	return insights
}

// RunInsightJob regenerates insights on the given interval until ctx is
// cancelled. The job only reads the pattern map; a failed or skipped run is
// harmless.
func (l *Learner) RunInsightJob(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logging.Learning("Insight job started: interval=%v", interval)
	for {
		select {
		case <-ctx.Done():
			logging.Learning("Insight job stopped")
			return
		case <-ticker.C:
			l.GenerateInsights()
		}
	}
}
