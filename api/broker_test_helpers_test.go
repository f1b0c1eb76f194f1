package api

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/ericfitz/drawroom/api/models"
	"github.com/ericfitz/drawroom/internal/db"
	"github.com/ericfitz/drawroom/internal/slogging"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store unavailable")

// newTestSession builds a session with no connection attached
func newTestSession(userID, roomID, role string) *Session {
	return NewSession(&Membership{
		UserID:      userID,
		RoomID:      roomID,
		Role:        role,
		Username:    userID + "-name",
		RoomName:    roomID + "-name",
		RoomOwnerID: "owner",
	}, 16)
}

// drain returns every frame queued to a session, decoded
func drain(t *testing.T, s *Session) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case frame := <-s.send:
			var msg map[string]any
			require.NoError(t, json.Unmarshal(frame, &msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

func operations(msgs []map[string]any) []string {
	ops := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ops = append(ops, m["operation"].(string))
	}
	return ops
}

// testRoom is a seeded room with an owner, a moderator and two members
type testRoom struct {
	tdb       *db.TestDB
	room      *models.Room
	owner     *models.User
	moderator *models.User
	member    *models.User
	other     *models.User
}

func seedTestRoom(t *testing.T) *testRoom {
	t.Helper()
	tdb := db.MustCreateTestDB(t)
	owner := tdb.SeedUser(t, "olivia")
	moderator := tdb.SeedUser(t, "max")
	member := tdb.SeedUser(t, "mia")
	other := tdb.SeedUser(t, "otto")
	room := tdb.SeedRoom(t, "Sketches", owner)
	tdb.SeedMembership(t, moderator, room, models.RoleModerator, false)
	tdb.SeedMembership(t, member, room, models.RoleMember, false)
	tdb.SeedMembership(t, other, room, models.RoleMember, false)
	return &testRoom{tdb: tdb, room: room, owner: owner, moderator: moderator, member: member, other: other}
}

// sessionFor builds a session from the durable membership of user
func (tr *testRoom) sessionFor(t *testing.T, user *models.User) *Session {
	t.Helper()
	m, err := NewGormMembershipStore(tr.tdb.DB).GetMembership(context.Background(), user.ID, tr.room.ID)
	require.NoError(t, err)
	return NewSession(m, 16)
}

// flakyContentStore wraps a ContentStore and fails the selected operations
type flakyContentStore struct {
	ContentStore
	mu         sync.Mutex
	failCreate bool
	failGet    bool
	failUpdate bool
	failDelete bool
	failList   bool
}

func (f *flakyContentStore) ListByRoom(ctx context.Context, roomID string) ([]models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, errStoreDown
	}
	return f.ContentStore.ListByRoom(ctx, roomID)
}

func (f *flakyContentStore) Create(ctx context.Context, c *models.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errStoreDown
	}
	return f.ContentStore.Create(ctx, c)
}

func (f *flakyContentStore) Get(ctx context.Context, roomID, id string) (*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return nil, errStoreDown
	}
	return f.ContentStore.Get(ctx, roomID, id)
}

func (f *flakyContentStore) Update(ctx context.Context, c *models.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate {
		return errStoreDown
	}
	return f.ContentStore.Update(ctx, c)
}

func (f *flakyContentStore) Delete(ctx context.Context, roomID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errStoreDown
	}
	return f.ContentStore.Delete(ctx, roomID, id)
}

// flakyMembershipStore wraps a MembershipStore and can fail writes
type flakyMembershipStore struct {
	MembershipStore
	failWrites bool
}

func (f *flakyMembershipStore) SetBanned(ctx context.Context, userID, roomID string, banned bool) (*Membership, error) {
	if f.failWrites {
		return nil, errStoreDown
	}
	return f.MembershipStore.SetBanned(ctx, userID, roomID, banned)
}

func (f *flakyMembershipStore) SetRole(ctx context.Context, userID, roomID, role string) (*Membership, error) {
	if f.failWrites {
		return nil, errStoreDown
	}
	return f.MembershipStore.SetRole(ctx, userID, roomID, role)
}

func quietRouter(registry *SessionRegistry) *BroadcastRouter {
	return NewBroadcastRouter(registry, nil, slogging.WebSocketLoggingConfig{})
}

func strPtr(s string) *string { return &s }

func f64Ptr(f float64) *float64 { return &f }
