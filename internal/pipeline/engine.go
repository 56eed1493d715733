package pipeline

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/beacon/internal/incident"
)

// Engine executes the triage pipeline for one incident: resolve history,
// analyze, score, route, compose, dispatch. The stages run strictly in
// order; the audit trail and live feed are written after each stage off
// the critical data path.
type Engine struct {
	store      Store
	history    History
	dispatcher *Dispatcher
	auditor    *Auditor
	feed       LiveFeed
	logger     log.Logger
	metrics    *Metrics
	now        func() time.Time
}

// NewEngine creates a pipeline engine with the given collaborators.
// feed may be nil when no real-time transport is configured.
func NewEngine(store Store, history History, dispatcher *Dispatcher, auditor *Auditor, feed LiveFeed, logger log.Logger, metrics *Metrics) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		store:      store,
		history:    history,
		dispatcher: dispatcher,
		auditor:    auditor,
		feed:       feed,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Run processes the identified incident through every stage. Stage-local
// failures (send, push, audit append) are converted into recorded
// outcomes; only a missing incident or a history query failure ends the
// run early.
func (e *Engine) Run(ctx context.Context, id string) {
	start := e.now()

	inc, ok, err := e.store.Get(ctx, id)
	if err != nil {
		e.logger.Error(ctx, err, "failed to load incident for pipeline run", "incident_id", id)
		return
	}
	if !ok {
		e.logger.Warn(ctx, "incident not found for pipeline run", "incident_id", id)
		return
	}

	L := e.logger.With(
		"incident_id", inc.ID,
		"indicator_type", inc.IndicatorType,
		"source", inc.Source,
	)

	// perceive: resolve historical context for the indicator.
	stageStart := e.now()
	matches, err := e.history.QueryByIndicator(ctx, inc.IndicatorValue)
	if err != nil {
		L.Error(ctx, err, "historical context query failed")
		e.fail(ctx, inc)
		return
	}
	matches = excludeSelf(inc.ID, matches)
	networks := ExtractNetworks(matches)
	e.observeStage(StagePerceive, stageStart)

	e.auditor.Record(ctx, inc, StagePerceive, map[string]any{
		"total_matches":   len(matches),
		"linked_networks": networks,
	})
	e.notify(ctx, inc, StagePerceive, map[string]any{
		"total_matches": len(matches),
	})

	// think: derive signals and score them.
	stageStart = e.now()
	signals := Analyze(inc.Source, matches)
	risk := Score(signals)
	inc.Status = incident.StatusAnalyzing
	inc.Risk = &risk
	if err := e.store.Put(ctx, inc); err != nil {
		L.Error(ctx, err, "failed to persist risk assessment")
	}
	e.observeStage(StageThink, stageStart)

	e.auditor.Record(ctx, inc, StageThink, map[string]any{
		"score":          risk.Score,
		"classification": risk.Classification,
		"breakdown":      risk.Breakdown,
		"signals":        signals,
	})
	e.notify(ctx, inc, StageThink, map[string]any{
		"score":          risk.Score,
		"classification": risk.Classification,
	})

	// plan: resolve routing and compose the alert content.
	stageStart = e.now()
	decision := Route(risk.Classification)
	content := ComposeBrief(inc, risk, signals)
	e.observeStage(StagePlan, stageStart)

	e.auditor.Record(ctx, inc, StagePlan, map[string]any{
		"recipients": decision.Recipients,
		"channels":   decision.Channels,
		"priority":   decision.Priority,
	})
	e.notify(ctx, inc, StagePlan, map[string]any{
		"recipients": len(decision.Recipients),
		"priority":   decision.Priority,
	})

	// act: dispatch to every (recipient, channel) pair independently.
	stageStart = e.now()
	results, dispatchErr := e.dispatcher.Dispatch(ctx, decision, content)
	e.observeStage(StageAct, stageStart)

	sent, failed := tally(results)
	if dispatchErr != nil {
		L.Error(ctx, dispatchErr, "dispatch precondition violated")
		e.auditor.Record(ctx, inc, StageAct, map[string]any{
			"error": dispatchErr.Error(),
		})
	} else {
		e.auditor.Record(ctx, inc, StageAct, map[string]any{
			"deliveries": results,
			"sent":       sent,
			"failed":     failed,
		})
	}
	if e.metrics != nil {
		for _, r := range results {
			e.metrics.DeliveriesTotal.WithLabelValues(string(r.Channel), r.Status).Inc()
		}
	}
	e.notify(ctx, inc, StageAct, map[string]any{
		"sent":   sent,
		"failed": failed,
	})

	// observe: settle the lifecycle status and close out the run.
	switch {
	case dispatchErr != nil:
		inc.Status = incident.StatusFailed
	case risk.Classification == incident.ClassMonitor:
		inc.Status = incident.StatusMonitored
	default:
		inc.Status = incident.StatusAlerted
	}
	if err := e.store.Put(ctx, inc); err != nil {
		L.Error(ctx, err, "failed to persist final incident status")
	}

	duration := e.now().Sub(start).Seconds()
	e.auditor.Record(ctx, inc, StageObserve, map[string]any{
		"status":           inc.Status,
		"duration_seconds": duration,
	})
	e.notify(ctx, inc, StageObserve, map[string]any{
		"status": inc.Status,
	})

	if e.metrics != nil {
		e.metrics.RunsTotal.WithLabelValues(string(risk.Classification), string(inc.Status)).Inc()
		e.metrics.RunDuration.WithLabelValues(string(risk.Classification)).Observe(duration)
	}

	L.Info(ctx, "pipeline run complete",
		"status", string(inc.Status),
		"classification", string(risk.Classification),
		"score", risk.Score,
		"sent", sent,
		"failed", failed,
		"duration", duration,
	)
}

// fail marks the incident failed and records the aborted run. Completed
// side effects up to this point stay valid; there is no rollback.
func (e *Engine) fail(ctx context.Context, inc *incident.Incident) {
	inc.Status = incident.StatusFailed
	if err := e.store.Put(ctx, inc); err != nil {
		e.logger.Error(ctx, err, "failed to persist failed status", "incident_id", inc.ID)
	}
	e.auditor.Record(ctx, inc, StageObserve, map[string]any{
		"status": inc.Status,
	})
	e.notify(ctx, inc, StageObserve, map[string]any{
		"status": inc.Status,
	})
	if e.metrics != nil {
		e.metrics.RunsTotal.WithLabelValues("", string(inc.Status)).Inc()
	}
}

func (e *Engine) notify(ctx context.Context, inc *incident.Incident, stage Stage, payload map[string]any) {
	if e.feed == nil {
		return
	}
	status := "completed"
	if inc.Status == incident.StatusFailed {
		status = "failed"
	}
	e.feed.Broadcast(ctx, inc.ID, string(stage), status, payload)
}

func (e *Engine) observeStage(stage Stage, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.StageDuration.WithLabelValues(string(stage)).Observe(e.now().Sub(start).Seconds())
}

// excludeSelf drops the incident's own record from its history matches;
// the store may already contain the current submission.
func excludeSelf(id string, matches []incident.Incident) []incident.Incident {
	out := matches[:0]
	for _, m := range matches {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

func tally(results []DeliveryResult) (sent, failed int) {
	for _, r := range results {
		if r.Status == DeliverySent {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed
}
