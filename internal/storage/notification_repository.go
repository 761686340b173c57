package storage

import (
	"context"

	"gorm.io/gorm"

	"fitsocial/internal/models"
)

// NotificationRepository defines the interface for notification data
// operations. Rows are write-once; the only mutation is flipping seen.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetForUser(ctx context.Context, userID uint) ([]models.Notification, error)
	// MarkSeen flips the seen flag. Returns false when no row matched.
	MarkSeen(ctx context.Context, notificationID uint) (bool, error)
}

type gormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GORM-backed
// NotificationRepository.
func NewGormNotificationRepository(db *gorm.DB) NotificationRepository {
	return &gormNotificationRepository{db: db}
}

func (r *gormNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *gormNotificationRepository) GetForUser(ctx context.Context, userID uint) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&notifications).Error
	return notifications, err
}

func (r *gormNotificationRepository) MarkSeen(ctx context.Context, notificationID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", notificationID).
		Update("seen", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
