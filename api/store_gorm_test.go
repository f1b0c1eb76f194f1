package api

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ericfitz/drawroom/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestGormMembershipStore(t *testing.T) {
	tr := seedTestRoom(t)
	store := NewGormMembershipStore(tr.tdb.DB)
	ctx := context.Background()

	t.Run("GetMembership joins user and room", func(t *testing.T) {
		m, err := store.GetMembership(ctx, tr.moderator.ID, tr.room.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleModerator, m.Role)
		assert.False(t, m.IsBanned)
		assert.Equal(t, "max", m.Username)
		assert.Equal(t, "Sketches", m.RoomName)
		assert.Equal(t, tr.owner.ID, m.RoomOwnerID)
	})

	t.Run("GetMembership not found", func(t *testing.T) {
		_, err := store.GetMembership(ctx, "nobody", tr.room.ID)
		assert.ErrorIs(t, err, ErrMembershipNotFound)
	})

	t.Run("SetBanned", func(t *testing.T) {
		m, err := store.SetBanned(ctx, tr.member.ID, tr.room.ID, true)
		require.NoError(t, err)
		assert.True(t, m.IsBanned)
		assert.Equal(t, "mia", m.Username)

		m, err = store.SetBanned(ctx, tr.member.ID, tr.room.ID, false)
		require.NoError(t, err)
		assert.False(t, m.IsBanned)
	})

	t.Run("SetRole", func(t *testing.T) {
		m, err := store.SetRole(ctx, tr.other.ID, tr.room.ID, models.RoleModerator)
		require.NoError(t, err)
		assert.Equal(t, models.RoleModerator, m.Role)
	})

	t.Run("writes to a missing membership", func(t *testing.T) {
		_, err := store.SetBanned(ctx, "nobody", tr.room.ID, true)
		assert.ErrorIs(t, err, ErrMembershipNotFound)
		_, err = store.SetRole(ctx, tr.member.ID, "no-room", models.RoleMember)
		assert.ErrorIs(t, err, ErrMembershipNotFound)
	})
}

func TestGormContentStore(t *testing.T) {
	tr := seedTestRoom(t)
	store := NewGormContentStore(tr.tdb.DB)
	ctx := context.Background()

	text := "label"
	content := &models.Content{
		ID:     "client-chosen",
		RoomID: tr.room.ID,
		UserID: tr.member.ID,
		Type:   string(ShapeText),
		Text:   &text,
		StartX: f64Ptr(1),
		Color:  "red",
	}
	require.NoError(t, store.Create(ctx, content))
	assert.NotEqual(t, "client-chosen", content.ID, "ids are always assigned by the server")
	assert.NotEmpty(t, content.ID)

	t.Run("Get scoped to room", func(t *testing.T) {
		got, err := store.Get(ctx, tr.room.ID, content.ID)
		require.NoError(t, err)
		assert.Equal(t, "label", *got.Text)

		_, err = store.Get(ctx, "another-room", content.ID)
		assert.ErrorIs(t, err, ErrContentNotFound)
	})

	t.Run("Update writes cleared fields", func(t *testing.T) {
		got, err := store.Get(ctx, tr.room.ID, content.ID)
		require.NoError(t, err)
		got.Text = nil
		got.Points = models.PointList{{X: 4, Y: 5}}
		got.Color = "blue"
		require.NoError(t, store.Update(ctx, got))

		reloaded, err := store.Get(ctx, tr.room.ID, content.ID)
		require.NoError(t, err)
		assert.Nil(t, reloaded.Text)
		assert.Equal(t, models.PointList{{X: 4, Y: 5}}, reloaded.Points)
		assert.Equal(t, "blue", reloaded.Color)
		assert.Equal(t, tr.member.ID, reloaded.UserID)
	})

	t.Run("Update of missing content", func(t *testing.T) {
		missing := &models.Content{ID: "missing", RoomID: tr.room.ID, Type: "line", Color: "red"}
		assert.ErrorIs(t, store.Update(ctx, missing), ErrContentNotFound)
	})

	t.Run("ListByRoom", func(t *testing.T) {
		second := &models.Content{RoomID: tr.room.ID, UserID: tr.owner.ID, Type: "ellipse", Color: "green"}
		require.NoError(t, store.Create(ctx, second))

		list, err := store.ListByRoom(ctx, tr.room.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, content.ID, list[0].ID)

		empty, err := store.ListByRoom(ctx, "another-room")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("Delete", func(t *testing.T) {
		assert.ErrorIs(t, store.Delete(ctx, "another-room", content.ID), ErrContentNotFound)
		require.NoError(t, store.Delete(ctx, tr.room.ID, content.ID))
		assert.ErrorIs(t, store.Delete(ctx, tr.room.ID, content.ID), ErrContentNotFound)
	})
}

func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return gdb, mock
}

func TestGormStores_DatabaseErrors(t *testing.T) {
	ctx := context.Background()
	dbErr := errors.New("connection reset")

	t.Run("GetMembership", func(t *testing.T) {
		gdb, mock := newMockGormDB(t)
		mock.ExpectQuery(`SELECT .* FROM "room_memberships"`).WillReturnError(dbErr)

		_, err := NewGormMembershipStore(gdb).GetMembership(ctx, "u1", "r1")
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, ErrMembershipNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SetBanned", func(t *testing.T) {
		gdb, mock := newMockGormDB(t)
		mock.ExpectExec(`UPDATE "room_memberships"`).WillReturnError(dbErr)

		_, err := NewGormMembershipStore(gdb).SetBanned(ctx, "u1", "r1", true)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("content Get", func(t *testing.T) {
		gdb, mock := newMockGormDB(t)
		mock.ExpectQuery(`SELECT .* FROM "contents"`).WillReturnError(dbErr)

		_, err := NewGormContentStore(gdb).Get(ctx, "r1", "c1")
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, ErrContentNotFound)
	})

	t.Run("content Delete", func(t *testing.T) {
		gdb, mock := newMockGormDB(t)
		mock.ExpectExec(`DELETE FROM "contents"`).WillReturnError(dbErr)

		err := NewGormContentStore(gdb).Delete(ctx, "r1", "c1")
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("ListByRoom", func(t *testing.T) {
		gdb, mock := newMockGormDB(t)
		mock.ExpectQuery(`SELECT .* FROM "contents"`).WillReturnError(dbErr)

		_, err := NewGormContentStore(gdb).ListByRoom(ctx, "r1")
		assert.ErrorIs(t, err, dbErr)
	})
}
