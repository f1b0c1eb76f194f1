package api

import "errors"

var (
	// ErrContentNotFound is returned when no content with the id exists in the room
	ErrContentNotFound = errors.New("content not found")
	// ErrMembershipNotFound is returned when the user has no membership in the room
	ErrMembershipNotFound = errors.New("membership not found")
	// ErrInvalidMessage covers inbound frames that fail schema validation
	ErrInvalidMessage = errors.New("invalid message")
	// ErrForbidden is returned when the session may not perform an operation
	ErrForbidden = errors.New("operation not permitted")
)

// Error is the JSON body of REST error responses
type Error struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
