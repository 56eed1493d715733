// Package incident defines the domain records shared across the triage
// pipeline: the incident itself, its lifecycle status, and the risk
// assessment attached to it once analysis completes.
package incident

import "time"

// Status tracks where an incident is in its pipeline lifecycle.
type Status string

const (
	// StatusProcessing means accepted, pipeline not yet past perception.
	StatusProcessing Status = "processing"

	// StatusAnalyzing means pattern analysis and scoring are underway.
	StatusAnalyzing Status = "analyzing"

	// StatusAlerted means responders were dispatched alerts.
	StatusAlerted Status = "alerted"

	// StatusMonitored means the incident was classified MONITOR and
	// logged without dispatch.
	StatusMonitored Status = "monitored"

	// StatusFailed means the pipeline could not complete.
	StatusFailed Status = "failed"
)

// Classification is the three-tier risk classification derived from score.
type Classification string

const (
	ClassMonitor  Classification = "MONITOR"
	ClassPriority Classification = "PRIORITY"
	ClassUrgent   Classification = "URGENT"
)

// RiskAssessment is the scored outcome of pattern analysis. The score is
// always the sum of the breakdown values and bounded in [0,100].
type RiskAssessment struct {
	Score          int            `json:"score"`
	Classification Classification `json:"classification"`
	Breakdown      map[string]int `json:"breakdown"`
}

// Incident is one submitted indicator occurrence. Immutable once created
// except for Status and the later-attached Risk.
type Incident struct {
	ID             string            `json:"incident_id"`
	IndicatorType  string            `json:"indicator_type"`
	IndicatorValue string            `json:"indicator_value"`
	Source         string            `json:"source"`
	NetworkID      string            `json:"network_id,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Status         Status            `json:"status"`
	Risk           *RiskAssessment   `json:"risk_assessment,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Submission is the ingress event consumed by the pipeline entry point,
// arriving via the HTTP API or the ingest queue.
type Submission struct {
	IndicatorType  string            `json:"indicator_type"`
	IndicatorValue string            `json:"indicator_value"`
	Source         string            `json:"source,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}
