package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fitsocial/internal/models"
)

// MessageRepository defines the interface for message and seen-receipt data
// operations.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Message, error)
	// GetByRoomID returns a page of room messages ordered newest-first for
	// efficient offset pagination. Callers reverse for chronological order.
	GetByRoomID(ctx context.Context, roomID uint, limit, offset int) ([]*models.Message, error)
	// AddReceipts unions userID into the seen-by set of each message.
	// Inserts use ON CONFLICT DO NOTHING, so the operation is an atomic
	// append-if-absent and safe under concurrent seen events.
	AddReceipts(ctx context.Context, userID uint, messageIDs []uint) error
	CountUnread(ctx context.Context, roomID, userID uint) (int64, error)
	// LastInRoom returns the most recent message in a room, or nil for an
	// empty room.
	LastInRoom(ctx context.Context, roomID uint) (*models.Message, error)
}

type gormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-backed MessageRepository.
func NewGormMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

func (r *gormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *gormMessageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).Preload("Receipts").First(&message, id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *gormMessageRepository) GetByIDs(ctx context.Context, ids []uint) ([]*models.Message, error) {
	if len(ids) == 0 {
		return []*models.Message{}, nil
	}
	var messages []*models.Message
	err := r.db.WithContext(ctx).Preload("Receipts").Where("id IN ?", ids).Find(&messages).Error
	return messages, err
}

func (r *gormMessageRepository) GetByRoomID(ctx context.Context, roomID uint, limit, offset int) ([]*models.Message, error) {
	var messages []*models.Message
	query := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Preload("Receipts").Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *gormMessageRepository) AddReceipts(ctx context.Context, userID uint, messageIDs []uint) error {
	if len(messageIDs) == 0 {
		return nil
	}
	now := time.Now()
	receipts := make([]models.MessageReceipt, 0, len(messageIDs))
	for _, id := range messageIDs {
		receipts = append(receipts, models.MessageReceipt{MessageID: id, UserID: userID, SeenAt: now})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&receipts).Error
}

// CountUnread counts room messages not sent by userID and not present in
// userID's seen-by set.
func (r *gormMessageRepository) CountUnread(ctx context.Context, roomID, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("room_id = ? AND sender_id <> ?", roomID, userID).
		Where("NOT EXISTS (SELECT 1 FROM message_receipts mr WHERE mr.message_id = messages.id AND mr.user_id = ?)", userID).
		Count(&count).Error
	return count, err
}

func (r *gormMessageRepository) LastInRoom(ctx context.Context, roomID uint) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("id DESC").First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}
