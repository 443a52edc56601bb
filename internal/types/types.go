// Package types defines the shared data model for the ardi answering
// pipeline: query analysis, information sources, knowledge entries,
// interaction patterns, and feedback.
package types

import (
	"time"
)

// =============================================================================
// QUERY ANALYSIS
// =============================================================================

// Intent classifies what the user is trying to do.
type Intent string

const (
	IntentQuestion           Intent = "question"
	IntentRequestHelp        Intent = "request_help"
	IntentRequestInformation Intent = "request_information"
	IntentComplaint          Intent = "complaint"
	IntentGreeting           Intent = "greeting"
	IntentProcedure          Intent = "procedure"
	IntentDefinition         Intent = "definition"
	IntentComparison         Intent = "comparison"
	IntentStatus             Intent = "status"
	IntentGeneralQuery       Intent = "general_query"
)

// Complexity buckets an analyzed query by how much work answering it takes.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// QueryAnalysis is the analyzer's full reading of a raw message.
type QueryAnalysis struct {
	OriginalQuery        string     `json:"original_query"`
	Intent               Intent     `json:"intent"`
	Keywords             []string   `json:"keywords"`
	Entities             []string   `json:"entities"`
	Domain               string     `json:"domain"`
	Complexity           Complexity `json:"complexity"`
	RequiresRealtimeData bool       `json:"requires_realtime_data"`
	InformationNeeds     []string   `json:"information_needs"`
}

// =============================================================================
// INFORMATION SOURCES
// =============================================================================

// SourceType identifies where an InformationSource came from.
type SourceType string

const (
	SourceKnowledgeBase SourceType = "knowledge_base"
	SourceWebSearch     SourceType = "web_search"
	SourcePatternMatch  SourceType = "pattern_match"
	SourceSynthesis     SourceType = "synthesis"
)

// InformationSource is one scored candidate contribution to an answer.
// Confidence is the source's self-reported reliability; Relevance is how
// well it matches this particular query. Both are in [0,1].
type InformationSource struct {
	Type       SourceType        `json:"type"`
	Content    string            `json:"content"`
	Confidence float64           `json:"confidence"`
	Source     string            `json:"source"`
	Relevance  float64           `json:"relevance"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// =============================================================================
// KNOWLEDGE ENTRIES
// =============================================================================

// Priority orders entries within a collection.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// KnowledgeEntry is an immutable, hand-authored knowledge item.
// Triggers must be non-empty; matching is case-insensitive substring
// containment against the normalized query.
type KnowledgeEntry struct {
	ID           string    `json:"id" yaml:"id"`
	Category     string    `json:"category" yaml:"category"`
	Title        string    `json:"title" yaml:"title"`
	Content      string    `json:"content" yaml:"content"`
	TableContent string    `json:"table_content,omitempty" yaml:"table_content,omitempty"`
	Keywords     []string  `json:"keywords" yaml:"keywords"`
	Triggers     []string  `json:"triggers" yaml:"triggers"`
	RelatedTerms []string  `json:"related_terms,omitempty" yaml:"related_terms,omitempty"`
	Priority     Priority  `json:"priority" yaml:"priority"`
	LastUpdated  time.Time `json:"last_updated" yaml:"last_updated"`
}

// GeneratedKnowledge is a runtime-created knowledge entry. Created once by
// the generator; UsageCount and SuccessRate are updated afterwards by the
// learning system through the entry's ID.
type GeneratedKnowledge struct {
	KnowledgeEntry `yaml:",inline"`

	Source         string    `json:"source"`
	Confidence     float64   `json:"confidence"`
	BasedOnSources []string  `json:"based_on_sources"`
	CreatedAt      time.Time `json:"created_at"`
	UsageCount     int       `json:"usage_count"`
	SuccessRate    float64   `json:"success_rate"`
}

// =============================================================================
// THINKING PROCESS
// =============================================================================

// ThinkingProcess is the per-query reasoning trace. One is created per
// answered message and appended to a bounded history for pattern analysis.
type ThinkingProcess struct {
	ID                    string              `json:"id"`
	Query                 string              `json:"query"`
	Timestamp             time.Time           `json:"timestamp"`
	AnalysisSteps         []string            `json:"analysis_steps"`
	InformationGathered   []InformationSource `json:"information_gathered"`
	KnowledgeGaps         []string            `json:"knowledge_gaps"`
	SynthesizedResponse   string              `json:"synthesized_response"`
	Confidence            float64             `json:"confidence"`
	LearningOpportunities []string            `json:"learning_opportunities"`
}

// =============================================================================
// LEARNING
// =============================================================================

// InteractionPattern aggregates statistics for semantically similar queries,
// keyed by a derived pattern string (top keywords + intent).
type InteractionPattern struct {
	Pattern          string    `json:"pattern"`
	Frequency        int       `json:"frequency"`
	SuccessRate      float64   `json:"success_rate"`
	AvgResponseTime  float64   `json:"avg_response_time_ms"`
	CommonKeywords   []string  `json:"common_keywords"`
	UserSatisfaction float64   `json:"user_satisfaction"`
	ImprovementAreas []string  `json:"improvement_areas"`
	LastUpdated      time.Time `json:"last_updated"`
}

// Rating is an explicit user judgment of an answer.
type Rating string

const (
	RatingPositive Rating = "positive"
	RatingNegative Rating = "negative"
	RatingNeutral  Rating = "neutral"
)

// UserFeedback records one explicit feedback event. ProcessID references the
// ThinkingProcess the feedback is about; it is a back-reference, not
// ownership.
type UserFeedback struct {
	ID               string    `json:"id"`
	ProcessID        string    `json:"process_id"`
	Rating           Rating    `json:"rating"`
	SpecificFeedback string    `json:"specific_feedback,omitempty"`
	Categories       []string  `json:"categories,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Score maps a rating onto [0,1] for satisfaction averaging.
func (r Rating) Score() float64 {
	switch r {
	case RatingPositive:
		return 1.0
	case RatingNegative:
		return 0.0
	default:
		return 0.5
	}
}

// Valid reports whether r is one of the three accepted ratings.
func (r Rating) Valid() bool {
	return r == RatingPositive || r == RatingNegative || r == RatingNeutral
}

// InsightType classifies a learning insight.
type InsightType string

const (
	InsightSuccessPattern InsightType = "success_pattern"
	InsightFailurePattern InsightType = "failure_pattern"
	InsightKnowledgeGap   InsightType = "knowledge_gap"
	InsightImprovement    InsightType = "improvement_opportunity"
)

// LearningInsight is one derived observation about pipeline behavior.
type LearningInsight struct {
	Type           InsightType `json:"type"`
	Description    string      `json:"description"`
	Confidence     float64     `json:"confidence"`
	Frequency      int         `json:"frequency"`
	Recommendation string      `json:"recommendation"`
	Impact         string      `json:"impact"`
	Evidence       []string    `json:"evidence"`
}

// SuccessPrediction is the learning system's estimate for a new query.
type SuccessPrediction struct {
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
}

// =============================================================================
// ANSWERS
// =============================================================================

// Answer is the pipeline's public response shape.
type Answer struct {
	Content      string  `json:"content"`
	TableContent string  `json:"table_content,omitempty"`
	Source       string  `json:"source"`
	Category     string  `json:"category"`
	Confidence   float64 `json:"confidence,omitempty"`
	ProcessID    string  `json:"process_id,omitempty"`
}

// SearchResult is one item returned by the external search collaborator.
type SearchResult struct {
	Title         string    `json:"title"`
	Snippet       string    `json:"snippet"`
	URL           string    `json:"url"`
	Source        string    `json:"source"`
	Relevance     float64   `json:"relevance"`
	PublishedDate time.Time `json:"published_date,omitempty"`
}
