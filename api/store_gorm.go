package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ericfitz/drawroom/api/models"
	"github.com/ericfitz/drawroom/internal/slogging"
	"gorm.io/gorm"
)

// GormMembershipStore implements MembershipStore using GORM
type GormMembershipStore struct {
	db *gorm.DB
}

// NewGormMembershipStore creates a new GORM-backed membership store
func NewGormMembershipStore(db *gorm.DB) *GormMembershipStore {
	return &GormMembershipStore{db: db}
}

// GetMembership loads a membership with its user and room
func (s *GormMembershipStore) GetMembership(ctx context.Context, userID, roomID string) (*Membership, error) {
	var model models.RoomMembership
	result := s.db.WithContext(ctx).
		Preload("User").
		Preload("Room").
		Where("user_id = ? AND room_id = ?", userID, roomID).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", result.Error)
	}

	return &Membership{
		UserID:      model.UserID,
		RoomID:      model.RoomID,
		Role:        model.Role,
		IsBanned:    model.IsBanned,
		Username:    model.User.Username,
		RoomName:    model.Room.Name,
		RoomOwnerID: model.Room.AdminID,
	}, nil
}

// SetBanned updates the ban flag of a membership
func (s *GormMembershipStore) SetBanned(ctx context.Context, userID, roomID string, banned bool) (*Membership, error) {
	if err := s.updateMembership(ctx, userID, roomID, "is_banned", banned); err != nil {
		return nil, err
	}
	slogging.Get().Info("Membership ban updated user_id=%s room_id=%s banned=%t", userID, roomID, banned)
	return s.GetMembership(ctx, userID, roomID)
}

// SetRole updates the role of a membership
func (s *GormMembershipStore) SetRole(ctx context.Context, userID, roomID, role string) (*Membership, error) {
	if err := s.updateMembership(ctx, userID, roomID, "role", role); err != nil {
		return nil, err
	}
	slogging.Get().Info("Membership role updated user_id=%s room_id=%s role=%s", userID, roomID, role)
	return s.GetMembership(ctx, userID, roomID)
}

func (s *GormMembershipStore) updateMembership(ctx context.Context, userID, roomID, column string, value any) error {
	result := s.db.WithContext(ctx).
		Model(&models.RoomMembership{}).
		Where("user_id = ? AND room_id = ?", userID, roomID).
		Updates(map[string]any{column: value, "modified_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("failed to update membership %s: %w", column, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

// GormContentStore implements ContentStore using GORM
type GormContentStore struct {
	db *gorm.DB
}

// NewGormContentStore creates a new GORM-backed content store
func NewGormContentStore(db *gorm.DB) *GormContentStore {
	return &GormContentStore{db: db}
}

// Create inserts content and assigns its durable id
func (s *GormContentStore) Create(ctx context.Context, content *models.Content) error {
	content.ID = ""
	if err := s.db.WithContext(ctx).Create(content).Error; err != nil {
		return fmt.Errorf("failed to create content: %w", err)
	}
	slogging.Get().Debug("Created content id=%s room_id=%s type=%s", content.ID, content.RoomID, content.Type)
	return nil
}

// Get loads content by id within a room
func (s *GormContentStore) Get(ctx context.Context, roomID, id string) (*models.Content, error) {
	var content models.Content
	result := s.db.WithContext(ctx).Where("id = ? AND room_id = ?", id, roomID).First(&content)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to get content: %w", result.Error)
	}
	return &content, nil
}

// Update writes every content field, including cleared ones. Ownership and
// room never change.
func (s *GormContentStore) Update(ctx context.Context, content *models.Content) error {
	content.ModifiedAt = time.Now().UTC()
	result := s.db.WithContext(ctx).
		Model(content).
		Where("room_id = ?", content.RoomID).
		Select("type", "text", "start_x", "start_y", "end_x", "end_y", "points", "color", "modified_at").
		Updates(content)
	if result.Error != nil {
		return fmt.Errorf("failed to update content: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrContentNotFound
	}
	return nil
}

// Delete removes content by id within a room
func (s *GormContentStore) Delete(ctx context.Context, roomID, id string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND room_id = ?", id, roomID).Delete(&models.Content{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete content: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrContentNotFound
	}
	return nil
}

// ListByRoom returns a room's content in creation order
func (s *GormContentStore) ListByRoom(ctx context.Context, roomID string) ([]models.Content, error) {
	var contents []models.Content
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("created_at ASC").Find(&contents).Error; err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	return contents, nil
}
