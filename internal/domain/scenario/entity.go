package scenario

import (
	"time"

	"github.com/bryanwahyu/whatif-lab/internal/domain/video"
)

// Kind classifies a scenario.
type Kind string

const (
	KindGeneral Kind = "general"
	KindLocal   Kind = "local"
)

// Impact enum for entities
type Impact string

const (
	ImpactHigh   Impact = "High"
	ImpactMedium Impact = "Medium"
	ImpactLow    Impact = "Low"
)

// Severity enum for timeline events
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

const (
	// DefaultTitle is stored when a record arrives without a title.
	DefaultTitle = "Untitled Scenario"
	// DefaultModel is stored when a record arrives without a model id.
	DefaultModel = "llama-3.3-70b-versatile"
	// MaxTitleLength is measured in UTF-16 code units.
	MaxTitleLength = 100
	// MaxRecent caps Recent listings.
	MaxRecent = 10
)

// Entity is a stakeholder, actor or factor affected by the scenario.
type Entity struct {
	Name              string  `json:"name"`
	Type              string  `json:"type"`
	Impact            Impact  `json:"impact"`
	ImpactProbability float64 `json:"impact_probability"`
	Description       string  `json:"description"`
	ConfidenceScore   float64 `json:"confidence_score"`
}

// TimelineEvent is a predicted occurrence within a time window.
type TimelineEvent struct {
	Time               string   `json:"time"`
	Event              string   `json:"event"`
	Likelihood         string   `json:"likelihood"`
	Probability        float64  `json:"probability"`
	Description        string   `json:"description"`
	ConfidenceScore    float64  `json:"confidence_score"`
	ImpactSeverity     Severity `json:"impact_severity"`
	UncertaintyFactors []string `json:"uncertainty_factors,omitempty"`
}

type WebSearchSource struct {
	Source           string  `json:"source"`
	RelevanceScore   float64 `json:"relevance_score"`
	CredibilityScore float64 `json:"credibility_score"`
	Summary          string  `json:"summary,omitempty"`
}

type CodeAnalysis struct {
	AnalysisType        string  `json:"analysis_type"`
	Result              string  `json:"result"`
	AccuracyProbability float64 `json:"accuracy_probability"`
	Methodology         string  `json:"methodology,omitempty"`
}

// ResearchSources supports the analysis with search and modelling evidence.
type ResearchSources struct {
	WebSearch         []WebSearchSource `json:"web_search"`
	CodeAnalysis      []CodeAnalysis    `json:"code_analysis"`
	OverallConfidence float64           `json:"overall_confidence"`
}

// Result is the composed analysis returned to the caller.
// A nil Entities or Timeline slice means the section was not requested;
// a non-nil slice (even empty) means it was produced.
type Result struct {
	Entities        []Entity          `json:"entities,omitzero"`
	Timeline        []TimelineEvent   `json:"timeline,omitzero"`
	ResearchSources ResearchSources   `json:"research_sources"`
	VideoGeneration *video.Generation `json:"video_generation,omitempty"`
}

func (r *Result) HasEntities() bool { return r.Entities != nil }

func (r *Result) HasTimeline() bool { return r.Timeline != nil }

// Record is the persisted form of an analysis.
type Record struct {
	ID              int64             `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Model           string            `json:"model"`
	Type            Kind              `json:"type"`
	Subjects        []string          `json:"subjects"`
	Background      string            `json:"background,omitempty"`
	Entities        []Entity          `json:"entities"`
	Timeline        []TimelineEvent   `json:"timeline"`
	ResearchSources *ResearchSources  `json:"research_sources"`
	VideoGeneration *video.Generation `json:"video_generation,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// ApplyDefaults fills the fields every store requires before insert.
func (r *Record) ApplyDefaults(now time.Time) {
	if r.Title == "" {
		r.Title = DefaultTitle
	}
	if r.Model == "" {
		r.Model = DefaultModel
	}
	if r.Type == "" {
		r.Type = KindGeneral
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
}

// ClampLimit bounds a Recent limit to [1, MaxRecent].
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxRecent {
		return MaxRecent
	}
	return limit
}
