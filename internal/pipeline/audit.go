package pipeline

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/beacon/internal/incident"
)

// Stage names one pipeline decision stage in the audit trail.
type Stage string

const (
	StagePerceive Stage = "perceive"
	StageThink    Stage = "think"
	StagePlan     Stage = "plan"
	StageAct      Stage = "act"
	StageObserve  Stage = "observe"
)

// AuditEntry is one append-only record of a pipeline decision.
type AuditEntry struct {
	LogID      string         `json:"log_id"`
	IncidentID string         `json:"incident_id"`
	Stage      Stage          `json:"stage"`
	Timestamp  time.Time      `json:"timestamp"`
	Details    map[string]any `json:"details"`
}

// LogID derives the audit entry id deterministically from the incident,
// stage, and timestamp. Same inputs always produce the same id, so a
// retried stage dedupes naturally without ever colliding with an entry
// from a different attempt.
func LogID(incidentID string, stage Stage, ts time.Time) string {
	return incidentID + "_" + string(stage) + "_" + ts.UTC().Format(time.RFC3339Nano)
}

// Auditor appends one entry per pipeline stage transition. Appends are
// best-effort relative to the decision flow: a failure is logged and
// counted but never aborts the stage that triggered it.
type Auditor struct {
	store   AuditStore
	logger  log.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewAuditor creates an auditor over the given append-only store.
func NewAuditor(store AuditStore, logger log.Logger, metrics *Metrics) *Auditor {
	if logger == nil {
		logger = log.Nop()
	}
	return &Auditor{
		store:   store,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Record appends one audit entry for a completed stage.
func (a *Auditor) Record(ctx context.Context, inc *incident.Incident, stage Stage, details map[string]any) {
	ts := a.now()
	entry := &AuditEntry{
		LogID:      LogID(inc.ID, stage, ts),
		IncidentID: inc.ID,
		Stage:      stage,
		Timestamp:  ts,
		Details:    details,
	}
	if err := a.store.Append(ctx, entry); err != nil {
		a.logger.Error(ctx, err, "audit append failed",
			"incident_id", inc.ID,
			"stage", string(stage),
		)
		if a.metrics != nil {
			a.metrics.AuditFailures.Inc()
		}
	}
}
