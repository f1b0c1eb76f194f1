package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/ericfitz/drawroom/api/models"
	"github.com/ericfitz/drawroom/internal/slogging"
)

const errorPersistenceFailed = "persistence_failed"

// CanvasHandler applies canvas operations. Every operation is written to
// the store before it is broadcast.
type CanvasHandler struct {
	store   ContentStore
	router  *BroadcastRouter
	metrics *Metrics
}

// NewCanvasHandler creates a canvas handler
func NewCanvasHandler(store ContentStore, router *BroadcastRouter, metrics *Metrics) *CanvasHandler {
	return &CanvasHandler{store: store, router: router, metrics: metrics}
}

// Create persists a new object and sends the durable record, with both the
// durable id and the client's temporary id, to the whole room.
func (h *CanvasHandler) Create(ctx context.Context, s *Session, msg *CanvasCreate) error {
	fields := msg.Content
	sanitizeContentText(&fields)

	content := &models.Content{RoomID: s.RoomID, UserID: s.UserID}
	fields.applyTo(content)

	if err := h.store.Create(ctx, content); err != nil {
		h.persistenceFailed(s, OperationCreate, "failed to save object", msg.TempID, "")
		return fmt.Errorf("failed to create content: %w", err)
	}

	event := newCanvasEvent(OperationCreate, content)
	event.TempID = msg.TempID
	h.router.Send(s.RoomID, event, s.UserID, true)

	slogging.Get().Debug("Canvas create room_id=%s user_id=%s id=%s temp_id=%s", s.RoomID, s.UserID, content.ID, msg.TempID)
	return nil
}

// Update merges the provided fields onto a stored object the session may
// modify, and sends the merged record to the rest of the room.
func (h *CanvasHandler) Update(ctx context.Context, s *Session, msg *CanvasUpdate) error {
	content, err := h.loadModifiable(ctx, s, OperationUpdate, msg.ID)
	if err != nil {
		return err
	}

	fields, err := mergeContent(content, msg.Patch)
	if err != nil {
		return err
	}
	sanitizeContentText(&fields)
	fields.applyTo(content)

	if err := h.store.Update(ctx, content); err != nil {
		if errors.Is(err, ErrContentNotFound) {
			return err
		}
		h.persistenceFailed(s, OperationUpdate, "failed to update object", "", msg.ID)
		return fmt.Errorf("failed to update content: %w", err)
	}

	h.router.Send(s.RoomID, newCanvasEvent(OperationUpdate, content), s.UserID, false)
	return nil
}

// Delete removes a stored object the session may modify and announces the
// deletion to the rest of the room.
func (h *CanvasHandler) Delete(ctx context.Context, s *Session, msg *CanvasDelete) error {
	content, err := h.loadModifiable(ctx, s, OperationDelete, msg.ID)
	if err != nil {
		return err
	}

	if err := h.store.Delete(ctx, s.RoomID, msg.ID); err != nil {
		if errors.Is(err, ErrContentNotFound) {
			return err
		}
		h.persistenceFailed(s, OperationDelete, "failed to delete object", "", msg.ID)
		return fmt.Errorf("failed to delete content: %w", err)
	}

	// the deletion is attributed to whoever removed the object
	event := newCanvasEvent(OperationDelete, content)
	event.UserID = s.UserID
	h.router.Send(s.RoomID, event, s.UserID, false)
	return nil
}

// loadModifiable loads an object from the session's room and checks that
// the session owns it or holds a moderator or owner role.
func (h *CanvasHandler) loadModifiable(ctx context.Context, s *Session, operation, id string) (*models.Content, error) {
	content, err := h.store.Get(ctx, s.RoomID, id)
	if err != nil {
		if errors.Is(err, ErrContentNotFound) {
			return nil, err
		}
		h.persistenceFailed(s, operation, "failed to load object", "", id)
		return nil, fmt.Errorf("failed to load content: %w", err)
	}
	if !canModifyContent(s, content) {
		return nil, fmt.Errorf("%w: user %s may not modify content %s", ErrForbidden, s.UserID, id)
	}
	return content, nil
}

func canModifyContent(s *Session, content *models.Content) bool {
	if content.UserID == s.UserID {
		return true
	}
	switch s.Role() {
	case models.RoleModerator, models.RoleOwner:
		return true
	}
	return false
}

// mergeContent applies a JSON merge patch to a stored object's fields and
// validates the result. An explicit null in the patch clears a field.
func mergeContent(content *models.Content, patch json.RawMessage) (ContentFields, error) {
	original, err := json.Marshal(contentFieldsFromModel(content))
	if err != nil {
		return ContentFields{}, fmt.Errorf("failed to encode stored content: %w", err)
	}
	merged, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		return ContentFields{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return parseContentFields(merged)
}

func (h *CanvasHandler) persistenceFailed(s *Session, operation, message, tempID, id string) {
	h.metrics.storeError(operation)
	slogging.Get().Error("Canvas %s not persisted room_id=%s user_id=%s id=%s temp_id=%s", operation, s.RoomID, s.UserID, id, tempID)
	h.router.SendTo(s, CanvasError{
		Channel:   ChannelCanvas,
		Operation: OperationError,
		Error:     errorPersistenceFailed,
		Message:   message,
		TempID:    tempID,
		ID:        id,
		Timestamp: nowMillis(),
	})
}
