// Package seed creates a demo room for local development. Seeding is
// idempotent so it can run against an existing database.
package seed

import (
	"fmt"

	"github.com/ericfitz/drawroom/api/models"
	"github.com/ericfitz/drawroom/internal/slogging"
	"gorm.io/gorm"
)

// DemoMember is a user to add to the demo room with a role
type DemoMember struct {
	Username string
	Role     string
}

// DemoRoom is the result of SeedDemoRoom
type DemoRoom struct {
	Room  models.Room
	Users map[string]models.User
}

// SeedDemoRoom ensures a room with the given slug exists, owned by owner,
// with a membership for owner and each member.
func SeedDemoRoom(db *gorm.DB, slug, name, owner string, members []DemoMember) (*DemoRoom, error) {
	log := slogging.Get()
	demo := &DemoRoom{Users: make(map[string]models.User)}

	err := db.Transaction(func(tx *gorm.DB) error {
		ownerUser, err := seedUser(tx, owner)
		if err != nil {
			return err
		}
		demo.Users[owner] = *ownerUser

		room := models.Room{Slug: slug, Name: name, AdminID: ownerUser.ID}
		result := tx.Where(&models.Room{Slug: slug}).FirstOrCreate(&room)
		if result.Error != nil {
			return fmt.Errorf("failed to seed room %s: %w", slug, result.Error)
		}
		if result.RowsAffected > 0 {
			log.Info("Created demo room slug=%s id=%s", slug, room.ID)
		} else {
			log.Debug("Demo room %s already exists", slug)
		}
		demo.Room = room

		if err := seedMembership(tx, ownerUser.ID, room.ID, models.RoleOwner); err != nil {
			return err
		}
		for _, m := range members {
			user, err := seedUser(tx, m.Username)
			if err != nil {
				return err
			}
			demo.Users[m.Username] = *user
			if err := seedMembership(tx, user.ID, room.ID, m.Role); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return demo, nil
}

func seedUser(tx *gorm.DB, username string) (*models.User, error) {
	user := models.User{Username: username, Name: username}
	if err := tx.Where(&models.User{Username: username}).FirstOrCreate(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to seed user %s: %w", username, err)
	}
	return &user, nil
}

// seedMembership creates the membership if missing and leaves an existing
// one untouched, so bans and role changes made while testing survive.
func seedMembership(tx *gorm.DB, userID, roomID, role string) error {
	m := models.RoomMembership{UserID: userID, RoomID: roomID, Role: role}
	err := tx.Where(&models.RoomMembership{UserID: userID, RoomID: roomID}).FirstOrCreate(&m).Error
	if err != nil {
		return fmt.Errorf("failed to seed membership user_id=%s room_id=%s: %w", userID, roomID, err)
	}
	return nil
}
