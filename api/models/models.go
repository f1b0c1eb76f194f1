// Package models defines GORM models for the drawroom schema. The broker
// reads users and rooms, and owns writes to memberships and contents.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Membership role values as stored and as sent on the wire
const (
	RoleMember    = "user"
	RoleModerator = "moderator"
	RoleOwner     = "admin"
)

// User is an account known to the upstream identity service
type User struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	Username  string    `gorm:"column:username;type:varchar(255);not null;uniqueIndex"`
	Name      string    `gorm:"column:name;type:varchar(255)"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeCreate generates a UUID if not set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// Room is a collaboration namespace. AdminID is the owning user.
type Room struct {
	ID          string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	Slug        string    `gorm:"column:slug;type:varchar(64);not null;uniqueIndex"`
	Name        string    `gorm:"column:name;type:varchar(255);not null"`
	AdminID     string    `gorm:"column:admin_id;type:varchar(36);not null;index"`
	IsProtected bool      `gorm:"column:is_protected;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;autoCreateTime"`

	Admin User `gorm:"foreignKey:AdminID;references:ID"`
}

// TableName specifies the table name for Room
func (Room) TableName() string {
	return "rooms"
}

// BeforeCreate generates a UUID if not set
func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// RoomMembership records a user's role and ban state in one room
type RoomMembership struct {
	UserID     string    `gorm:"column:user_id;primaryKey;type:varchar(36)"`
	RoomID     string    `gorm:"column:room_id;primaryKey;type:varchar(36)"`
	Role       string    `gorm:"column:role;type:varchar(16);not null;default:user"`
	IsBanned   bool      `gorm:"column:is_banned;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	ModifiedAt time.Time `gorm:"column:modified_at;not null;autoUpdateTime"`

	User User `gorm:"foreignKey:UserID;references:ID"`
	Room Room `gorm:"foreignKey:RoomID;references:ID"`
}

// TableName specifies the table name for RoomMembership
func (RoomMembership) TableName() string {
	return "room_memberships"
}

// Content is one drawable object on a room's canvas
type Content struct {
	ID         string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	RoomID     string    `gorm:"column:room_id;type:varchar(36);not null;index"`
	UserID     string    `gorm:"column:user_id;type:varchar(36);not null;index"`
	Type       string    `gorm:"column:type;type:varchar(16);not null"`
	Text       *string   `gorm:"column:text;type:text"`
	StartX     *float64  `gorm:"column:start_x"`
	StartY     *float64  `gorm:"column:start_y"`
	EndX       *float64  `gorm:"column:end_x"`
	EndY       *float64  `gorm:"column:end_y"`
	Points     PointList `gorm:"column:points"`
	Color      string    `gorm:"column:color;type:varchar(64);not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	ModifiedAt time.Time `gorm:"column:modified_at;not null;autoUpdateTime"`
}

// TableName specifies the table name for Content
func (Content) TableName() string {
	return "contents"
}

// BeforeCreate generates a UUID if not set
func (c *Content) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// AllModels returns every model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Room{},
		&RoomMembership{},
		&Content{},
	}
}
