// Package incidentapi exposes the incident triage HTTP surface: submit,
// status, case brief, and the real-time live feed.
package incidentapi

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/beacon/internal/incident"
	"github.com/linnemanlabs/beacon/internal/livefeed"
	"github.com/linnemanlabs/beacon/internal/pipeline"
)

// TriageService defines the business operations incidentapi needs.
type TriageService interface {
	Submit(ctx context.Context, sub *incident.Submission) (*pipeline.SubmitResult, error)
	Get(ctx context.Context, id string) (*incident.Incident, bool, error)
	CaseBrief(ctx context.Context, id string) (string, bool, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
	live   *livefeed.Hub
}

// New creates a new API handler. live may be nil when the real-time
// feed is disabled.
func New(logger log.Logger, svc TriageService, live *livefeed.Hub) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
		live:   live,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/incidents", a.handleSubmit)
		r.Get("/incidents/{id}", a.handleGetIncident)
		r.Get("/incidents/{id}/brief", a.handleGetBrief)
		if a.live != nil {
			r.Get("/incidents/{id}/live", a.handleLive)
		}
	})
}

func (a *API) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("beacon.incident.id", id))

	inc, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get incident", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("beacon.incident.status", string(inc.Status)))

	writeJSON(w, http.StatusOK, inc)
}

func (a *API) handleGetBrief(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, ok, err := a.svc.CaseBrief(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to render case brief", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename=case-brief-`+id+`.txt`)
	_, _ = w.Write([]byte(doc))
}

func (a *API) handleLive(w http.ResponseWriter, r *http.Request) {
	a.live.Subscribe(w, r, chi.URLParam(r, "id"))
}
