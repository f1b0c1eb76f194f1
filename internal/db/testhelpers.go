package db

import (
	"fmt"
	"testing"

	"github.com/ericfitz/drawroom/api/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB holds a test database connection and cleanup function
type TestDB struct {
	DB      *gorm.DB
	Cleanup func()
}

// NewTestDB creates a migrated in-memory SQLite database private to the
// calling test.
func NewTestDB(t *testing.T) (*TestDB, error) {
	t.Helper()

	// A named shared-cache database survives across pooled connections
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return nil, err
	}

	return &TestDB{
		DB: db,
		Cleanup: func() {
			_ = sqlDB.Close()
		},
	}, nil
}

// MustCreateTestDB creates a test DB, failing the test on error. Cleanup is
// registered with t.
func MustCreateTestDB(t *testing.T) *TestDB {
	t.Helper()

	tdb, err := NewTestDB(t)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(tdb.Cleanup)
	return tdb
}

// SeedUser creates a test user and returns it.
func (tdb *TestDB) SeedUser(t *testing.T, username string) *models.User {
	t.Helper()

	user := &models.User{Username: username, Name: username}
	if err := tdb.DB.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

// SeedRoom creates a room owned by admin and an owner membership for admin.
func (tdb *TestDB) SeedRoom(t *testing.T, name string, admin *models.User) *models.Room {
	t.Helper()

	room := &models.Room{Slug: uuid.New().String()[:8], Name: name, AdminID: admin.ID}
	if err := tdb.DB.Create(room).Error; err != nil {
		t.Fatalf("failed to seed room: %v", err)
	}
	tdb.SeedMembership(t, admin, room, models.RoleOwner, false)
	return room
}

// SeedMembership creates a membership record and returns it.
func (tdb *TestDB) SeedMembership(t *testing.T, user *models.User, room *models.Room, role string, banned bool) *models.RoomMembership {
	t.Helper()

	m := &models.RoomMembership{UserID: user.ID, RoomID: room.ID, Role: role, IsBanned: banned}
	if err := tdb.DB.Create(m).Error; err != nil {
		t.Fatalf("failed to seed membership: %v", err)
	}
	return m
}
