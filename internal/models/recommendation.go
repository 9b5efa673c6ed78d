package models

import "time"

// RiskLevel is the qualitative suitability classification of a topic for a
// student. Escalation is monotonic: assessment only ever raises the level.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// rank returns an ordering value for escalation comparisons.
func (r RiskLevel) rank() int {
	switch r {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return 0
	}
}

// Escalate returns the higher of the two levels.
func (r RiskLevel) Escalate(to RiskLevel) RiskLevel {
	if to.rank() > r.rank() {
		return to
	}
	return r
}

// Provenance distinguishes rule-based recommendations from fallback ones.
type Provenance string

const (
	ProvenanceRuleBased Provenance = "rule_based"
	ProvenanceFallback  Provenance = "fallback"
)

// Recommendation is a ranked, explained topic suggestion. It is ephemeral,
// created per request, and references an immutable Topic.
type Recommendation struct {
	Topic            *Topic     `json:"topic"`
	Score            float64    `json:"score"`
	Rank             int        `json:"rank"`
	FeasibilityScore float64    `json:"feasibility_score"`
	RiskLevel        RiskLevel  `json:"risk_level"`
	MatchReasons     []string   `json:"match_reasons"`
	RiskReasons      []string   `json:"risk_reasons"`
	Provenance       Provenance `json:"provenance"`
	Explanation      string     `json:"explanation,omitempty"`
}

// CombineState describes how a recommendation set was assembled.
type CombineState string

const (
	CombineKBOnly CombineState = "KB_ONLY"
	CombineHybrid CombineState = "HYBRID"
	CombineEmpty  CombineState = "EMPTY"
)

// RecommendationSet is the result of one request through the hybrid pipeline.
type RecommendationSet struct {
	StudentID       string            `json:"student_id"`
	Recommendations []*Recommendation `json:"recommendations"`
	State           CombineState      `json:"state"`
	FallbackUsed    bool              `json:"fallback_used"`
	Notes           []string          `json:"notes,omitempty"`
}

// HistoryEntry records one served recommendation set.
type HistoryEntry struct {
	ID           int64     `json:"id"`
	StudentID    string    `json:"student_id"`
	StudentName  string    `json:"student_name"`
	TopicIDs     []string  `json:"topic_ids"`
	FallbackUsed bool      `json:"fallback_used"`
	CreatedAt    time.Time `json:"created_at"`
}
