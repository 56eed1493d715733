package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/beacon/internal/incident"
)

// ErrNotFound reports a referenced incident absent from the store.
var ErrNotFound = errors.New("incident not found")

// ValidationError reports a missing or malformed required ingress field.
// It is terminal: the submission is rejected before the pipeline runs.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// defaultSource attributes submissions that arrive without an origin.
const defaultSource = "web_ui"

// SubmitResult is the outcome of accepting an incident submission.
type SubmitResult struct {
	ID     string
	Status incident.Status
}

// Service is the business boundary for incident triage: validation, id
// assignment, persistence, and async pipeline dispatch.
type Service struct {
	store   Store
	engine  *Engine
	logger  log.Logger
	metrics *Metrics
}

// NewService creates a new triage service.
func NewService(store Store, engine *Engine, logger log.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:   store,
		engine:  engine,
		logger:  logger,
		metrics: metrics,
	}
}

// Submit validates and records a submission, then kicks off the pipeline
// run asynchronously. The caller always gets the assigned incident id
// back regardless of downstream delivery outcome.
func (s *Service) Submit(ctx context.Context, sub *incident.Submission) (*SubmitResult, error) {
	if sub.IndicatorType == "" {
		s.countSubmit("invalid")
		return nil, &ValidationError{Field: "indicator_type"}
	}
	if sub.IndicatorValue == "" {
		s.countSubmit("invalid")
		return nil, &ValidationError{Field: "indicator_value"}
	}

	source := sub.Source
	if source == "" {
		source = defaultSource
	}

	inc := &incident.Incident{
		ID:             ulid.Make().String(),
		IndicatorType:  sub.IndicatorType,
		IndicatorValue: sub.IndicatorValue,
		Source:         source,
		Metadata:       sub.Metadata,
		Status:         incident.StatusProcessing,
		CreatedAt:      time.Now(),
	}

	if err := s.store.Put(ctx, inc); err != nil {
		s.countSubmit("store_error")
		return nil, fmt.Errorf("store incident: %w", err)
	}

	s.countSubmit("accepted")
	s.logger.Info(ctx, "incident accepted",
		"incident_id", inc.ID,
		"indicator_type", inc.IndicatorType,
		"source", inc.Source,
	)

	// run the pipeline detached from the caller's deadline - pass only
	// the ID to avoid sharing the Incident pointer.
	go s.engine.Run(context.WithoutCancel(ctx), inc.ID)

	return &SubmitResult{ID: inc.ID, Status: inc.Status}, nil
}

// Get retrieves an incident by ID.
func (s *Service) Get(ctx context.Context, id string) (*incident.Incident, bool, error) {
	return s.store.Get(ctx, id)
}

// CaseBrief renders the case-brief document for an incident.
func (s *Service) CaseBrief(ctx context.Context, id string) (string, bool, error) {
	inc, ok, err := s.store.Get(ctx, id)
	if err != nil || !ok {
		return "", ok, err
	}
	return RenderCaseBrief(inc), true, nil
}

func (s *Service) countSubmit(result string) {
	if s.metrics != nil {
		s.metrics.SubmitsTotal.WithLabelValues(result).Inc()
	}
}
