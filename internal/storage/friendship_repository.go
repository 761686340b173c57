package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"fitsocial/internal/models"
)

// FriendshipRepository defines the interface for friendship data operations.
type FriendshipRepository interface {
	// Create inserts a friendship row. It assumes EnsureCanonicalOrder has
	// been called.
	Create(ctx context.Context, friendship *models.Friendship) error
	GetByID(ctx context.Context, id uint) (*models.Friendship, error)
	GetByUsers(ctx context.Context, userA, userB uint) (*models.Friendship, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Friendship, error)
	// SetStatus is the enumerated update contract for a friendship: only
	// the status and terminated_by columns ever change after creation.
	SetStatus(ctx context.Context, id uint, status models.FriendshipStatus, terminatedBy *uint) error
}

type gormFriendshipRepository struct {
	db *gorm.DB
}

// NewGormFriendshipRepository creates a new GORM-backed FriendshipRepository.
func NewGormFriendshipRepository(db *gorm.DB) FriendshipRepository {
	return &gormFriendshipRepository{db: db}
}

func (r *gormFriendshipRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	return r.db.WithContext(ctx).Create(friendship).Error
}

func (r *gormFriendshipRepository) GetByID(ctx context.Context, id uint) (*models.Friendship, error) {
	var friendship models.Friendship
	err := r.db.WithContext(ctx).First(&friendship, id).Error
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

func (r *gormFriendshipRepository) GetByUsers(ctx context.Context, userA, userB uint) (*models.Friendship, error) {
	low, high := userA, userB
	if low > high {
		low, high = high, low // canonical order for the unique index
	}
	var friendship models.Friendship
	err := r.db.WithContext(ctx).
		Where("user_low = ? AND user_high = ?", low, high).
		First(&friendship).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &friendship, nil
}

func (r *gormFriendshipRepository) ListForUser(ctx context.Context, userID uint) ([]models.Friendship, error) {
	var friendships []models.Friendship
	err := r.db.WithContext(ctx).
		Where("user_low = ? OR user_high = ?", userID, userID).
		Order("id").
		Find(&friendships).Error
	return friendships, err
}

func (r *gormFriendshipRepository) SetStatus(ctx context.Context, id uint, status models.FriendshipStatus, terminatedBy *uint) error {
	return r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"terminated_by": terminatedBy,
		}).Error
}
