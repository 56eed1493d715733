// Package livefeed pushes pipeline stage-completion updates to
// real-time observers of an incident and manages their subscriptions.
package livefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// ErrGone reports a push target that no longer exists. It is a cleanup
// trigger, not a failure: the broadcaster prunes the connection record
// and moves on.
var ErrGone = errors.New("connection gone")

// Connection is one real-time subscription to an incident, created at
// connect and deleted at disconnect or when a push finds it gone.
type Connection struct {
	ID         string    `json:"connection_id"`
	IncidentID string    `json:"incident_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ConnStore is the subscription registry.
type ConnStore interface {
	ByIncident(ctx context.Context, incidentID string) ([]Connection, error)
	Put(ctx context.Context, conn Connection) error
	Delete(ctx context.Context, connectionID string) error
}

// Pusher is the real-time push capability. Push returns ErrGone when
// the transport reports the connection permanently gone.
type Pusher interface {
	Push(ctx context.Context, connectionID string, message []byte) error
}

// Update is the stage-completion message delivered to subscribers.
type Update struct {
	Stage     string         `json:"stage"`
	Status    string         `json:"status"`
	Payload   map[string]any `json:"payload,omitempty"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
}

// Broadcaster fans stage updates out to every connection subscribed to
// an incident, isolating per-connection failures.
type Broadcaster struct {
	conns   ConnStore
	pusher  Pusher
	logger  log.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewBroadcaster creates a broadcaster over the given registry and push
// transport.
func NewBroadcaster(conns ConnStore, pusher Pusher, logger log.Logger, metrics *Metrics) *Broadcaster {
	if logger == nil {
		logger = log.Nop()
	}
	return &Broadcaster{
		conns:   conns,
		pusher:  pusher,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Broadcast pushes a stage update to every subscriber of the incident.
// A failing push never prevents the pushes after it, and no failure
// propagates to the caller: gone connections are pruned, anything else
// is logged and swallowed.
func (b *Broadcaster) Broadcast(ctx context.Context, incidentID, stage, status string, payload map[string]any) {
	update := Update{
		Stage:     stage,
		Status:    status,
		Payload:   payload,
		Message:   fmt.Sprintf("Stage %s %s", stage, status),
		Timestamp: b.now().UTC(),
	}
	message, err := json.Marshal(update)
	if err != nil {
		b.logger.Error(ctx, err, "marshal stage update", "incident_id", incidentID, "stage", stage)
		return
	}

	subs, err := b.conns.ByIncident(ctx, incidentID)
	if err != nil {
		b.logger.Error(ctx, err, "resolve subscriptions", "incident_id", incidentID, "stage", stage)
		return
	}

	for _, sub := range subs {
		err := b.pusher.Push(ctx, sub.ID, message)
		switch {
		case err == nil:
			b.countPush("ok")
		case errors.Is(err, ErrGone):
			b.countPush("gone")
			if err := b.conns.Delete(ctx, sub.ID); err != nil {
				b.logger.Warn(ctx, "prune gone connection failed",
					"connection_id", sub.ID, "error", err.Error())
			}
		default:
			b.countPush("error")
			b.logger.Warn(ctx, "stage update push failed",
				"connection_id", sub.ID,
				"incident_id", incidentID,
				"stage", stage,
				"error", err.Error(),
			)
		}
	}
}

func (b *Broadcaster) countPush(outcome string) {
	if b.metrics != nil {
		b.metrics.PushesTotal.WithLabelValues(outcome).Inc()
	}
}
