package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ericfitz/drawroom/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialector(t *testing.T) {
	tests := []struct {
		name     string
		cfg      GormConfig
		wantName string
		wantErr  bool
	}{
		{"postgres", GormConfig{Type: DatabaseTypePostgres, PostgresHost: "h", PostgresPort: "5432"}, "postgres", false},
		{"mysql", GormConfig{Type: DatabaseTypeMySQL, MySQLHost: "h", MySQLPort: "3306"}, "mysql", false},
		{"sqlserver", GormConfig{Type: DatabaseTypeSQLServer, SQLServerHost: "h", SQLServerPort: "1433"}, "sqlserver", false},
		{"sqlite", GormConfig{Type: DatabaseTypeSQLite, SQLitePath: ":memory:"}, "sqlite", false},
		{"unknown", GormConfig{Type: "oracle"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Dialector(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, d.Name())
		})
	}
}

func TestNewGormDB_SQLite(t *testing.T) {
	g, err := NewGormDB(GormConfig{
		Type:       DatabaseTypeSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "drawroom.db"),
	})
	require.NoError(t, err)
	defer func() { _ = g.Close() }()

	assert.Equal(t, DatabaseTypeSQLite, g.DatabaseType())
	require.NoError(t, g.AutoMigrate(models.AllModels()...))
	assert.NoError(t, g.Ping(context.Background()))
	assert.True(t, g.DB().Migrator().HasTable(&models.Content{}))
}

func TestNewRedisDB(t *testing.T) {
	t.Run("connects and pings", func(t *testing.T) {
		mr := miniredis.RunT(t)

		r, err := NewRedisDB(RedisConfig{Host: mr.Host(), Port: mr.Port()})
		require.NoError(t, err)
		defer func() { _ = r.Close() }()

		assert.NoError(t, r.Ping(context.Background()))
		assert.NotNil(t, r.GetClient())
	})

	t.Run("fails when server is unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		host, port := mr.Host(), mr.Port()
		mr.Close()

		_, err := NewRedisDB(RedisConfig{Host: host, Port: port})
		assert.Error(t, err)
	})
}

func TestTestDBSeeding(t *testing.T) {
	tdb := MustCreateTestDB(t)

	owner := tdb.SeedUser(t, "owner")
	room := tdb.SeedRoom(t, "Whiteboard", owner)
	member := tdb.SeedUser(t, "member")
	tdb.SeedMembership(t, member, room, models.RoleMember, true)

	var memberships []models.RoomMembership
	require.NoError(t, tdb.DB.Order("role").Find(&memberships, "room_id = ?", room.ID).Error)
	require.Len(t, memberships, 2)
	assert.Equal(t, models.RoleOwner, memberships[0].Role)
	assert.Equal(t, models.RoleMember, memberships[1].Role)
	assert.True(t, memberships[1].IsBanned)
}
