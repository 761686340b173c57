package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"fitsocial/internal/models"
)

// RoomRepository defines the interface for chat room and membership data
// operations.
type RoomRepository interface {
	// CreateRoomWithMembers creates a room and exactly two membership rows
	// in a single transaction. Room and memberships succeed or none do.
	CreateRoomWithMembers(ctx context.Context, userA, userB uint) (*models.ChatRoom, error)
	RoomExists(ctx context.Context, roomID uint) (bool, error)
	GetMemberIDs(ctx context.Context, roomID uint) ([]uint, error)
	IsMember(ctx context.Context, roomID, userID uint) (bool, error)
	RoomIDsForUser(ctx context.Context, userID uint) ([]uint, error)
	// RoomIDForUsers finds the 1:1 room shared by two users. The second
	// return value reports whether such a room exists.
	RoomIDForUsers(ctx context.Context, userA, userB uint) (uint, bool, error)
}

type gormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a new GORM-backed RoomRepository.
func NewGormRoomRepository(db *gorm.DB) RoomRepository {
	return &gormRoomRepository{db: db}
}

func (r *gormRoomRepository) CreateRoomWithMembers(ctx context.Context, userA, userB uint) (*models.ChatRoom, error) {
	room := &models.ChatRoom{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return fmt.Errorf("failed to create chat room: %w", err)
		}
		members := []models.RoomMember{
			{RoomID: room.ID, UserID: userA},
			{RoomID: room.ID, UserID: userB},
		}
		if err := tx.Create(&members).Error; err != nil {
			return fmt.Errorf("failed to add members to room %d: %w", room.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (r *gormRoomRepository) RoomExists(ctx context.Context, roomID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ChatRoom{}).Where("id = ?", roomID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormRoomRepository) GetMemberIDs(ctx context.Context, roomID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.RoomMember{}).
		Where("room_id = ?", roomID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *gormRoomRepository) IsMember(ctx context.Context, roomID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormRoomRepository) RoomIDsForUser(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.RoomMember{}).
		Where("user_id = ?", userID).
		Order("room_id").
		Pluck("room_id", &ids).Error
	return ids, err
}

// RoomIDForUsers joins room_members twice to find a room both users belong
// to. Rooms always hold exactly two members, so the double join is exact.
func (r *gormRoomRepository) RoomIDForUsers(ctx context.Context, userA, userB uint) (uint, bool, error) {
	var room models.ChatRoom
	err := r.db.WithContext(ctx).
		Table("chat_rooms AS c").
		Select("c.*").
		Joins("JOIN room_members AS m1 ON c.id = m1.room_id AND m1.user_id = ?", userA).
		Joins("JOIN room_members AS m2 ON c.id = m2.room_id AND m2.user_id = ?", userB).
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return room.ID, true, nil
}
