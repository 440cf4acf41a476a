package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/complaintdesk/internal/domain"
	"github.com/gosuda/complaintdesk/internal/server/middleware"
)

// Subscriber streams committed complaint events of one tenant.
// *redis.Client satisfies this interface.
type Subscriber interface {
	SubscribeComplaints(ctx context.Context, tenantID uuid.UUID) (<-chan domain.ComplaintEvent, func(), error)
}

// Hub manages WebSocket connections backed by Redis pub/sub.
type Hub struct {
	events Subscriber
}

// NewHub creates a new WebSocket hub.
func NewHub(events Subscriber) *Hub {
	return &Hub{events: events}
}

// ServeComplaints streams the caller's tenant feed. Consumers only receive
// events about complaints they submitted. Must run behind RequireTenant.
func (h *Hub) ServeComplaints(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if !actor.Configured() {
		http.Error(w, "identity not configured", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Clients never send; CloseRead handles control frames and cancels ctx
	// once the peer goes away.
	ctx := conn.CloseRead(r.Context())

	events, cleanup, err := h.events.SubscribeComplaints(ctx, actor.TenantID())
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if !Visible(actor, ev) {
				continue
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				log.Error().Err(err).Msg("websocket encode")
				continue
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, payload); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}

// Visible reports whether actor may see ev.
func Visible(actor domain.Actor, ev domain.ComplaintEvent) bool {
	if !actor.Configured() || ev.TenantID != actor.TenantID() {
		return false
	}
	if actor.Role().IsStaff() {
		return true
	}
	return ev.SubmittedBy != nil && *ev.SubmittedBy == actor.UserID
}
