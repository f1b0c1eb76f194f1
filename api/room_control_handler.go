package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/ericfitz/drawroom/api/models"
	"github.com/ericfitz/drawroom/internal/slogging"
)

// RoomControlHandler applies the owner-only ban and role operations
type RoomControlHandler struct {
	store    MembershipStore
	registry *SessionRegistry
	router   *BroadcastRouter
	metrics  *Metrics
}

// NewRoomControlHandler creates a room control handler
func NewRoomControlHandler(store MembershipStore, registry *SessionRegistry, router *BroadcastRouter, metrics *Metrics) *RoomControlHandler {
	return &RoomControlHandler{store: store, registry: registry, router: router, metrics: metrics}
}

// Ban sets or clears a member's ban flag and announces it to the room. A
// banned member's live session in the room is closed.
func (h *RoomControlHandler) Ban(ctx context.Context, s *Session, msg *BanUser) error {
	if err := h.authorize(s, msg.TargetUserID); err != nil {
		return err
	}

	membership, err := h.store.SetBanned(ctx, msg.TargetUserID, s.RoomID, msg.Ban)
	if err != nil {
		return h.storeFailed(s, OperationBanUser, msg.TargetUserID, err)
	}

	h.router.Send(s.RoomID, BanEvent{
		Channel:      ChannelRoomControl,
		Operation:    OperationBanUser,
		Ban:          msg.Ban,
		TargetUserID: msg.TargetUserID,
		Username:     membership.Username,
	}, s.UserID, true)

	slogging.Get().Info("Ban updated room_id=%s by=%s target=%s ban=%t", s.RoomID, s.UserID, msg.TargetUserID, msg.Ban)

	if !msg.Ban {
		return nil
	}
	if target, ok := h.liveTarget(s.RoomID, msg.TargetUserID); ok {
		target.Close(CloseBanned, ReasonBanned)
		h.metrics.forcedClose(CloseBanned)
	}
	return nil
}

// ChangeRole assigns a member a new role and announces it to the room. A
// live session of the member gets the new role cached and is then closed
// so the client reconnects with it.
func (h *RoomControlHandler) ChangeRole(ctx context.Context, s *Session, msg *ChangeRole) error {
	if err := h.authorize(s, msg.TargetUserID); err != nil {
		return err
	}

	membership, err := h.store.SetRole(ctx, msg.TargetUserID, s.RoomID, msg.NewRole)
	if err != nil {
		return h.storeFailed(s, OperationChangeRole, msg.TargetUserID, err)
	}

	h.router.Send(s.RoomID, RoleChangeEvent{
		Channel:      ChannelRoomControl,
		Operation:    OperationChangeRole,
		NewRole:      msg.NewRole,
		TargetUserID: msg.TargetUserID,
		Username:     membership.Username,
	}, s.UserID, true)

	slogging.Get().Info("Role changed room_id=%s by=%s target=%s role=%s", s.RoomID, s.UserID, msg.TargetUserID, msg.NewRole)

	if target, ok := h.liveTarget(s.RoomID, msg.TargetUserID); ok {
		target.SetRole(msg.NewRole)
		target.Close(CloseRoleChanged, ReasonRoleChanged)
		h.metrics.forcedClose(CloseRoleChanged)
	}
	return nil
}

// authorize allows only the room owner to act, and never on the owner
// or on themselves.
func (h *RoomControlHandler) authorize(s *Session, targetUserID string) error {
	if s.Role() != models.RoleOwner {
		return fmt.Errorf("%w: user %s is not the room owner", ErrForbidden, s.UserID)
	}
	if targetUserID == s.UserID || targetUserID == s.RoomOwnerID {
		return fmt.Errorf("%w: the room owner cannot be targeted", ErrForbidden)
	}
	return nil
}

// liveTarget finds the target's session if it is connected to this room
func (h *RoomControlHandler) liveTarget(roomID, userID string) (*Session, bool) {
	target, ok := h.registry.SessionForUser(userID)
	if !ok || target.RoomID != roomID {
		return nil, false
	}
	return target, true
}

func (h *RoomControlHandler) storeFailed(s *Session, operation, targetUserID string, err error) error {
	if errors.Is(err, ErrMembershipNotFound) {
		return err
	}
	h.metrics.storeError(operation)
	slogging.Get().Error("Room control %s not persisted room_id=%s target=%s error=%v", operation, s.RoomID, targetUserID, err)
	h.router.SendTo(s, RoomControlError{
		Channel:      ChannelRoomControl,
		Operation:    OperationError,
		Error:        errorPersistenceFailed,
		Message:      "failed to update membership",
		TargetUserID: targetUserID,
		Timestamp:    nowMillis(),
	})
	return fmt.Errorf("failed to %s: %w", operation, err)
}
