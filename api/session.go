package api

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Close codes sent to clients
const (
	CloseNormal        = websocket.CloseNormalClosure
	CloseGoingAway     = websocket.CloseGoingAway
	CloseAuthFailed    = websocket.ClosePolicyViolation
	CloseInternalError = websocket.CloseInternalServerErr
	CloseSlowConsumer  = websocket.CloseTryAgainLater
	CloseReplaced      = 4001
	CloseBanned        = 4003
	CloseRoleChanged   = 4004
)

// Close reasons paired with the codes above
const (
	ReasonAuthFailed    = "authentication error"
	ReasonInternalError = "internal error"
	ReasonBannedAtJoin  = "you are banned from this room"
	ReasonBanned        = "you are banned"
	ReasonReplaced      = "replaced by a newer connection"
	ReasonRoleChanged   = "role changed, please reconnect"
	ReasonSlowConsumer  = "send buffer overflow"
	ReasonShutdown      = "server shutting down"
)

// Session is one live authenticated connection of one user in one room.
// Outbound frames go through a bounded queue drained by the write pump.
type Session struct {
	ID          string
	UserID      string
	RoomID      string
	Username    string
	RoomName    string
	RoomOwnerID string
	// IsBanned is the ban flag read at admission
	IsBanned bool

	mu   sync.RWMutex
	role string

	send chan []byte
	done chan struct{}

	closeOnce   sync.Once
	closeCode   int
	closeReason string

	conn *websocket.Conn
}

// NewSession creates a session from a membership read at connection time
func NewSession(m *Membership, sendBufferSize int) *Session {
	if sendBufferSize <= 0 {
		sendBufferSize = 256
	}
	return &Session{
		ID:          uuid.New().String(),
		UserID:      m.UserID,
		RoomID:      m.RoomID,
		Username:    m.Username,
		RoomName:    m.RoomName,
		RoomOwnerID: m.RoomOwnerID,
		IsBanned:    m.IsBanned,
		role:        m.Role,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
	}
}

// Role returns the cached role
func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// SetRole replaces the cached role
func (s *Session) SetRole(role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = role
}

// Enqueue queues a frame without blocking. A full queue closes the session.
func (s *Session) Enqueue(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- frame:
		return true
	default:
		s.Close(CloseSlowConsumer, ReasonSlowConsumer)
		return false
	}
}

// Close signals the write pump to send a close frame and drop the
// connection. Only the first call's code and reason are kept.
func (s *Session) Close(code int, reason string) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closeCode = code
		s.closeReason = reason
		s.mu.Unlock()
		close(s.done)
	})
}

// Done is closed once Close has been called
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// CloseStatus returns the recorded close code and reason, or 0 while open
func (s *Session) CloseStatus() (int, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closeCode, s.closeReason
}

// IsClosed reports whether Close has been called
func (s *Session) IsClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
