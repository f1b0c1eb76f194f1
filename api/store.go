package api

import (
	"context"

	"github.com/ericfitz/drawroom/api/models"
)

// Membership is a room membership joined with the user's name and the
// room's name and owner.
type Membership struct {
	UserID      string
	RoomID      string
	Role        string
	IsBanned    bool
	Username    string
	RoomName    string
	RoomOwnerID string
}

// MembershipStore is the membership half of the persistence gateway
type MembershipStore interface {
	// GetMembership returns ErrMembershipNotFound when the user never joined the room
	GetMembership(ctx context.Context, userID, roomID string) (*Membership, error)
	// SetBanned updates the ban flag and returns the updated membership
	SetBanned(ctx context.Context, userID, roomID string, banned bool) (*Membership, error)
	// SetRole updates the role and returns the updated membership
	SetRole(ctx context.Context, userID, roomID, role string) (*Membership, error)
}

// ContentStore is the drawable content half of the persistence gateway.
// Every lookup is scoped to a room.
type ContentStore interface {
	Create(ctx context.Context, content *models.Content) error
	Get(ctx context.Context, roomID, id string) (*models.Content, error)
	Update(ctx context.Context, content *models.Content) error
	Delete(ctx context.Context, roomID, id string) error
	ListByRoom(ctx context.Context, roomID string) ([]models.Content, error)
}
