package api

import (
	"errors"
	"net/http"

	"github.com/ericfitz/drawroom/api/models"
	"github.com/ericfitz/drawroom/auth"
	"github.com/ericfitz/drawroom/internal/slogging"
	"github.com/gin-gonic/gin"
)

// ContentRecord is a stored object as returned by the read path
type ContentRecord struct {
	ID string `json:"id"`
	ContentFields
	UserID     string `json:"userId"`
	RoomID     string `json:"roomId"`
	CreatedAt  int64  `json:"createdAt"`
	ModifiedAt int64  `json:"modifiedAt"`
}

// RoomContents is the response of ListRoomContents
type RoomContents struct {
	RoomID   string          `json:"roomId"`
	Contents []ContentRecord `json:"contents"`
}

// ContentHandler serves the current state of a room's canvas, so clients
// that reconnect can catch up on events they missed.
type ContentHandler struct {
	contents    ContentStore
	memberships MembershipStore
}

// NewContentHandler creates a content handler
func NewContentHandler(contents ContentStore, memberships MembershipStore) *ContentHandler {
	return &ContentHandler{contents: contents, memberships: memberships}
}

// ListRoomContents handles GET /rooms/:roomId/contents. The room token must
// be for the requested room and its holder must not be banned.
func (h *ContentHandler) ListRoomContents(c *gin.Context) {
	logger := slogging.GetContextLogger(c)
	roomID := c.Param("roomId")

	claims, ok := auth.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, Error{Error: "unauthorized", Message: "room token is required"})
		return
	}
	if claims.RoomID != roomID {
		c.JSON(http.StatusForbidden, Error{Error: "forbidden", Message: "token is not valid for this room"})
		return
	}

	membership, err := h.memberships.GetMembership(c.Request.Context(), claims.UserID, roomID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			c.JSON(http.StatusForbidden, Error{Error: "forbidden", Message: "not a member of this room"})
			return
		}
		logger.Error("Failed to read membership: %v", err)
		c.JSON(http.StatusInternalServerError, Error{Error: "server_error", Message: "failed to read membership"})
		return
	}
	if membership.IsBanned {
		c.JSON(http.StatusForbidden, Error{Error: "forbidden", Message: "you are banned from this room"})
		return
	}

	contents, err := h.contents.ListByRoom(c.Request.Context(), roomID)
	if err != nil {
		logger.Error("Failed to list room contents: %v", err)
		c.JSON(http.StatusInternalServerError, Error{Error: "server_error", Message: "failed to list contents"})
		return
	}

	records := make([]ContentRecord, 0, len(contents))
	for i := range contents {
		records = append(records, contentRecord(&contents[i]))
	}
	c.JSON(http.StatusOK, RoomContents{RoomID: roomID, Contents: records})
}

func contentRecord(c *models.Content) ContentRecord {
	return ContentRecord{
		ID:            c.ID,
		ContentFields: contentFieldsFromModel(c),
		UserID:        c.UserID,
		RoomID:        c.RoomID,
		CreatedAt:     c.CreatedAt.UnixMilli(),
		ModifiedAt:    c.ModifiedAt.UnixMilli(),
	}
}
