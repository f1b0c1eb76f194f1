package api

import (
	"sort"
)

// PresenceTracker announces joins and departures and sends the initial
// roster to new sessions.
type PresenceTracker struct {
	registry *SessionRegistry
	router   *BroadcastRouter
}

// NewPresenceTracker creates a presence tracker
func NewPresenceTracker(registry *SessionRegistry, router *BroadcastRouter) *PresenceTracker {
	return &PresenceTracker{registry: registry, router: router}
}

// Joined announces an admitted session to the rest of its room, then sends
// the session the online roster and the room name.
func (p *PresenceTracker) Joined(s *Session) {
	p.router.Send(s.RoomID, isOnlineEvent(s, true), s.UserID, false)
	p.router.SendTo(s, InitialMessage{
		Channel:     ChannelRoomControl,
		Operation:   OperationInitial,
		OnlineUsers: p.onlineUsernames(s.RoomID),
		RoomName:    s.RoomName,
	})
}

// Left announces a removed session, unless nobody is left to hear it
func (p *PresenceTracker) Left(s *Session, remaining int) {
	if remaining == 0 {
		return
	}
	p.router.Send(s.RoomID, isOnlineEvent(s, false), s.UserID, false)
}

func (p *PresenceTracker) onlineUsernames(roomID string) []string {
	sessions := p.registry.SessionsInRoom(roomID)
	names := make([]string, 0, len(sessions))
	for _, s := range sessions {
		names = append(names, s.Username)
	}
	sort.Strings(names)
	return names
}

func isOnlineEvent(s *Session, online bool) IsOnlineEvent {
	return IsOnlineEvent{
		Channel:   ChannelRoomControl,
		Operation: OperationIsOnline,
		IsBanned:  s.IsBanned,
		Username:  s.Username,
		Role:      s.Role(),
		IsOnline:  online,
		UserID:    s.UserID,
	}
}
