package api

import (
	"encoding/json"

	"github.com/ericfitz/drawroom/internal/slogging"
)

// BroadcastRouter fans messages out to the sessions of a room. Delivery is
// best effort: a frame is queued to each session independently and a
// session whose queue is full is closed without affecting the others.
type BroadcastRouter struct {
	registry *SessionRegistry
	metrics  *Metrics
	logging  slogging.WebSocketLoggingConfig
}

// NewBroadcastRouter creates a router over registry
func NewBroadcastRouter(registry *SessionRegistry, metrics *Metrics, logging slogging.WebSocketLoggingConfig) *BroadcastRouter {
	return &BroadcastRouter{registry: registry, metrics: metrics, logging: logging}
}

// Send delivers message to every session in the room whose user differs
// from originatorUserID, or to all of them when includeOriginator is set.
// It returns the number of sessions the frame was queued to.
func (r *BroadcastRouter) Send(roomID string, message any, originatorUserID string, includeOriginator bool) int {
	frame, err := json.Marshal(message)
	if err != nil {
		slogging.Get().Error("Failed to marshal broadcast room_id=%s error=%v", roomID, err)
		return 0
	}

	delivered := 0
	for _, s := range r.registry.SessionsInRoom(roomID) {
		if !includeOriginator && s.UserID == originatorUserID {
			continue
		}
		if r.enqueue(s, frame) {
			delivered++
		}
	}
	r.metrics.delivered(delivered)
	return delivered
}

// SendTo delivers message to a single session
func (r *BroadcastRouter) SendTo(s *Session, message any) bool {
	frame, err := json.Marshal(message)
	if err != nil {
		slogging.Get().Error("Failed to marshal message session_id=%s error=%v", s.ID, err)
		return false
	}
	if !r.enqueue(s, frame) {
		return false
	}
	r.metrics.delivered(1)
	return true
}

func (r *BroadcastRouter) enqueue(s *Session, frame []byte) bool {
	if !s.Enqueue(frame) {
		if code, _ := s.CloseStatus(); code == CloseSlowConsumer {
			slogging.Get().Warn("Dropped frame for slow consumer session_id=%s user_id=%s", s.ID, s.UserID)
		}
		return false
	}
	slogging.LogWebSocketMessage(slogging.WSMessageOutbound, s.ID, s.UserID, s.RoomID, frame, r.logging)
	return true
}
