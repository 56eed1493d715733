package incidentapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/linnemanlabs/beacon/internal/incident"
	"github.com/linnemanlabs/beacon/internal/pipeline"
)

func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub incident.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	sr, err := a.svc.Submit(r.Context(), &sub)
	if err != nil {
		var ve *pipeline.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": ve.Error()})
			return
		}
		a.logger.Error(r.Context(), err, "incident submission failed")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	// the ack carries the id regardless of downstream delivery outcome
	writeJSON(w, http.StatusAccepted, map[string]any{
		"incident_id": sr.ID,
		"status":      sr.Status,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}
