package api

import (
	"context"
	"errors"
	"runtime/debug"

	"github.com/ericfitz/drawroom/internal/slogging"
)

// HandleMessage decodes one inbound frame and dispatches it. Invalid,
// unauthorized and rate-limited messages are dropped without a reply.
func (b *Broker) HandleMessage(s *Session, frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			slogging.Get().Error("PANIC in HandleMessage - Session: %s, User: %s, Error: %v, Stack: %s",
				s.ID, s.UserID, r, debug.Stack())
		}
	}()

	slogging.LogWebSocketMessage(slogging.WSMessageInbound, s.ID, s.UserID, s.RoomID, frame, b.cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.StoreTimeout)
	defer cancel()

	if !b.allow(ctx, s) {
		b.metrics.drop("rate_limited")
		return
	}

	msg, err := ParseClientMessage(frame)
	if err != nil {
		b.metrics.drop("invalid")
		slogging.Get().Debug("Dropped invalid message session_id=%s user_id=%s error=%v", s.ID, s.UserID, err)
		return
	}
	b.metrics.received(msg)

	if err := b.dispatch(ctx, s, msg); err != nil {
		switch {
		case errors.Is(err, ErrForbidden):
			b.metrics.drop("forbidden")
		case errors.Is(err, ErrInvalidMessage):
			b.metrics.drop("invalid")
		case errors.Is(err, ErrContentNotFound), errors.Is(err, ErrMembershipNotFound):
			b.metrics.drop("not_found")
		default:
			b.metrics.drop("store_error")
		}
		slogging.Get().Debug("Message not applied session_id=%s user_id=%s operation=%s error=%v",
			s.ID, s.UserID, msg.operation(), err)
	}
}

// dispatch routes a decoded message to its handler
func (b *Broker) dispatch(ctx context.Context, s *Session, msg ClientMessage) error {
	switch m := msg.(type) {
	case *CanvasCreate:
		return b.canvas.Create(ctx, s, m)
	case *CanvasUpdate:
		return b.canvas.Update(ctx, s, m)
	case *CanvasDelete:
		return b.canvas.Delete(ctx, s, m)
	case *BanUser:
		return b.control.Ban(ctx, s, m)
	case *ChangeRole:
		return b.control.ChangeRole(ctx, s, m)
	default:
		return ErrInvalidMessage
	}
}

// allow applies the inbound limiter. A limiter outage lets messages through.
func (b *Broker) allow(ctx context.Context, s *Session) bool {
	if b.limiter == nil {
		return true
	}
	allowed, err := b.limiter.Allow(ctx, s.UserID)
	if err != nil {
		slogging.Get().Warn("Rate limiter unavailable user_id=%s error=%v", s.UserID, err)
		return true
	}
	return allowed
}
