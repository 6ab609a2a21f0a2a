package domain

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel is the discrete tier derived from the combined 0-100 score
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "Low"
	RiskLevelMedium   RiskLevel = "Medium"
	RiskLevelHigh     RiskLevel = "High"
	RiskLevelCritical RiskLevel = "Critical"
)

// Risk tier thresholds on the 0-100 scale. Lower bounds are inclusive.
const (
	LowRiskThreshold    = 30.0
	MediumRiskThreshold = 70.0
	HighRiskThreshold   = 90.0
)

// LevelForScore classifies a 0-100 risk score into a tier
func LevelForScore(score float64) RiskLevel {
	switch {
	case score < LowRiskThreshold:
		return RiskLevelLow
	case score < MediumRiskThreshold:
		return RiskLevelMedium
	case score < HighRiskThreshold:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// ChannelResult is the outcome of one analyzer channel.
// Score is on the 0-1 scale; alerts preserve the order they were raised in.
// A ChannelResult is created once per analyze call and never mutated after.
type ChannelResult struct {
	Score  float64  `json:"score"`
	Alerts []string `json:"alerts"`
}

// CombinedResult is the merged, normalized outcome of one analyze call
type CombinedResult struct {
	RiskScore float64   `json:"risk_score"` // 0-100, rounded to 2 decimals
	RiskLevel RiskLevel `json:"risk_level"`
	// Alerts concatenates fiat, crypto then stablecoin alerts, each
	// prefixed with its channel name.
	Alerts     []string       `json:"alerts"`
	Fiat       *ChannelResult `json:"fiat_risk,omitempty"`
	Crypto     *ChannelResult `json:"crypto_risk,omitempty"`
	Stablecoin *ChannelResult `json:"stablecoin_risk,omitempty"`
}

// RiskAssessment is the persisted/published record of a completed analysis.
// The scoring core returns CombinedResult; the service layer wraps it for
// indexing and alert publication.
type RiskAssessment struct {
	AssessmentID uuid.UUID      `json:"assessment_id"`
	Event        RiskEvent      `json:"event"`
	Result       CombinedResult `json:"result"`
	ProcessingMS int64          `json:"processing_ms"`
	AnalyzedAt   time.Time      `json:"analyzed_at"`
}

// NewRiskAssessment wraps a combined result with identity and timing metadata
func NewRiskAssessment(event RiskEvent, result CombinedResult, elapsed time.Duration) *RiskAssessment {
	return &RiskAssessment{
		AssessmentID: uuid.New(),
		Event:        event,
		Result:       result,
		ProcessingMS: elapsed.Milliseconds(),
		AnalyzedAt:   time.Now().UTC(),
	}
}
