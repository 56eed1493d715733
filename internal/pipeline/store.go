package pipeline

import (
	"context"

	"github.com/linnemanlabs/beacon/internal/incident"
)

// Store is the persistence interface for incidents.
type Store interface {
	Get(ctx context.Context, id string) (*incident.Incident, bool, error)
	Put(ctx context.Context, inc *incident.Incident) error
}

// History is the keyed secondary index over previously recorded
// incidents. QueryByIndicator returns matches in store insertion order
// and an empty slice, not an error, when nothing matches.
type History interface {
	QueryByIndicator(ctx context.Context, value string) ([]incident.Incident, error)
}

// AuditStore appends immutable audit entries. Entries are never
// updated or deleted; a retried stage produces a new entry with a
// distinct log id.
type AuditStore interface {
	Append(ctx context.Context, entry *AuditEntry) error
}

// LiveFeed receives stage-completion notifications for an incident.
// Implementations must never fail the caller; partial push failure is
// the implementation's concern.
type LiveFeed interface {
	Broadcast(ctx context.Context, incidentID, stage, status string, payload map[string]any)
}
