package livefeed

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/linnemanlabs/go-core/log"
)

const writeTimeout = 5 * time.Second

// Hub owns the WebSocket connections of real-time observers. It is both
// the subscription registry (ConnStore) and the push transport (Pusher):
// the socket lives in this process, so its Connection record does too.
type Hub struct {
	logger   log.Logger
	metrics  *Metrics
	upgrader websocket.Upgrader

	mu         sync.RWMutex
	conns      map[string]*wsConn
	byIncident map[string]map[string]struct{} // incident id -> connection ids
}

type wsConn struct {
	Connection
	mu sync.Mutex // serializes writes
	ws *websocket.Conn
}

// NewHub creates an empty hub.
func NewHub(logger log.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = log.Nop()
	}
	return &Hub{
		logger:  logger,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns:      make(map[string]*wsConn),
		byIncident: make(map[string]map[string]struct{}),
	}
}

// Subscribe upgrades the request to a WebSocket, registers the
// connection under the incident, and blocks reading until the client
// disconnects. The connection record is deleted on the way out.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, incidentID string) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", "error", err.Error())
		return
	}

	c := &wsConn{
		Connection: Connection{
			ID:         uuid.NewString(),
			IncidentID: incidentID,
			CreatedAt:  time.Now(),
		},
		ws: ws,
	}
	h.register(c)
	defer func() { _ = h.Delete(context.WithoutCancel(r.Context()), c.ID) }()

	h.logger.Info(r.Context(), "live feed subscribed",
		"connection_id", c.ID, "incident_id", incidentID)

	_ = ws.WriteJSON(map[string]any{
		"type":          "subscribed",
		"connection_id": c.ID,
		"incident_id":   incidentID,
	})

	// Drain the read side until the client goes away; subscribers only
	// listen.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			h.logger.Info(r.Context(), "live feed disconnected",
				"connection_id", c.ID, "incident_id", incidentID)
			return
		}
	}
}

// Push writes the message to one connection. A missing or closed
// connection reports ErrGone so the broadcaster prunes it.
func (h *Hub) Push(_ context.Context, connectionID string, message []byte) error {
	h.mu.RLock()
	c, ok := h.conns[connectionID]
	h.mu.RUnlock()
	if !ok || c.ws == nil {
		return ErrGone
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			return fmt.Errorf("%w: %s", ErrGone, connectionID)
		}
		return fmt.Errorf("write to %s: %w", connectionID, err)
	}
	return nil
}

// ByIncident returns the connections subscribed to the incident.
func (h *Hub) ByIncident(_ context.Context, incidentID string) ([]Connection, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := h.byIncident[incidentID]
	subs := make([]Connection, 0, len(ids))
	for id := range ids {
		if c, ok := h.conns[id]; ok {
			subs = append(subs, c.Connection)
		}
	}
	return subs, nil
}

// Put registers an externally created connection record. The hub's own
// subscribers register through Subscribe; Put exists for the store
// contract and for tests.
func (h *Hub) Put(_ context.Context, conn Connection) error {
	h.register(&wsConn{Connection: conn})
	return nil
}

// Delete removes a connection record and closes its socket if present.
func (h *Hub) Delete(_ context.Context, connectionID string) error {
	h.mu.Lock()
	c, ok := h.conns[connectionID]
	if ok {
		delete(h.conns, connectionID)
		if ids := h.byIncident[c.IncidentID]; ids != nil {
			delete(ids, connectionID)
			if len(ids) == 0 {
				delete(h.byIncident, c.IncidentID)
			}
		}
	}
	h.mu.Unlock()

	if !ok {
		return nil
	}
	if c.ws != nil {
		_ = c.ws.Close()
	}
	if h.metrics != nil {
		h.metrics.ConnectionsActive.Dec()
	}
	return nil
}

func (h *Hub) register(c *wsConn) {
	h.mu.Lock()
	h.conns[c.ID] = c
	if h.byIncident[c.IncidentID] == nil {
		h.byIncident[c.IncidentID] = make(map[string]struct{})
	}
	h.byIncident[c.IncidentID][c.ID] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ConnectionsActive.Inc()
	}
}
