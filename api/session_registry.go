package api

import (
	"sync"

	"github.com/ericfitz/drawroom/internal/slogging"
)

// SessionRegistry maps users and rooms to live sessions. A single mutex
// guards both maps so eviction and registration of the same user can never
// interleave. Nothing here blocks on I/O.
type SessionRegistry struct {
	mu     sync.Mutex
	byUser map[string]*Session
	// byRoom maps room id to the sessions in it, keyed by session id
	byRoom map[string]map[string]*Session
}

// NewSessionRegistry creates an empty registry
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byUser: make(map[string]*Session),
		byRoom: make(map[string]map[string]*Session),
	}
}

// Admit registers a session. A live session of the same user, in any room,
// is unregistered and closed first and returned as replaced, with the
// number of sessions left in the replaced session's room.
func (r *SessionRegistry) Admit(s *Session) (replaced *Session, remaining int) {
	r.mu.Lock()
	if prev, ok := r.byUser[s.UserID]; ok && prev != s {
		r.removeLocked(prev)
		prev.Close(CloseReplaced, ReasonReplaced)
		replaced = prev
	}

	r.byUser[s.UserID] = s
	room, ok := r.byRoom[s.RoomID]
	if !ok {
		room = make(map[string]*Session)
		r.byRoom[s.RoomID] = room
	}
	room[s.ID] = s
	if replaced != nil {
		remaining = len(r.byRoom[replaced.RoomID])
	}
	r.mu.Unlock()

	if replaced != nil {
		slogging.Get().Info("Replaced session user_id=%s old_session=%s new_session=%s old_room=%s",
			s.UserID, replaced.ID, s.ID, replaced.RoomID)
	}
	return replaced, remaining
}

// Remove unregisters a session if it is still the user's registered
// session. remaining is the number of sessions left in its room.
func (r *SessionRegistry) Remove(s *Session) (removed bool, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.byUser[s.UserID]; ok && current == s {
		r.removeLocked(s)
		removed = true
	}
	return removed, len(r.byRoom[s.RoomID])
}

func (r *SessionRegistry) removeLocked(s *Session) {
	delete(r.byUser, s.UserID)
	if room, ok := r.byRoom[s.RoomID]; ok {
		delete(room, s.ID)
		if len(room) == 0 {
			delete(r.byRoom, s.RoomID)
		}
	}
}

// SessionsInRoom returns a snapshot of the room's sessions
func (r *SessionRegistry) SessionsInRoom(roomID string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.byRoom[roomID]
	sessions := make([]*Session, 0, len(room))
	for _, s := range room {
		sessions = append(sessions, s)
	}
	return sessions
}

// SessionForUser returns the user's live session
func (r *SessionRegistry) SessionForUser(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byUser[userID]
	return s, ok
}

// RoomCount returns the number of rooms with at least one session
func (r *SessionRegistry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byRoom)
}

// SessionCount returns the number of live sessions
func (r *SessionRegistry) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}

// Sessions returns a snapshot of every live session
func (r *SessionRegistry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.byUser))
	for _, s := range r.byUser {
		out = append(out, s)
	}
	return out
}
