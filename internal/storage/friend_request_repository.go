package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"fitsocial/internal/models"
)

// FriendRequestRepository defines the interface for friend request data
// operations.
type FriendRequestRepository interface {
	Create(ctx context.Context, request *models.FriendRequest) error
	// FindPendingBetween checks for an unresolved request between two users
	// in either direction.
	FindPendingBetween(ctx context.Context, userA, userB uint) (*models.FriendRequest, error)
	GetByID(ctx context.Context, requestID uint) (*models.FriendRequest, error)
	UpdateStatus(ctx context.Context, requestID uint, status models.FriendRequestStatus) error
	GetPendingForUser(ctx context.Context, userID uint) ([]models.FriendRequest, error)
}

type gormFriendRequestRepository struct {
	db *gorm.DB
}

// NewGormFriendRequestRepository creates a new GORM-backed
// FriendRequestRepository.
func NewGormFriendRequestRepository(db *gorm.DB) FriendRequestRepository {
	return &gormFriendRequestRepository{db: db}
}

func (r *gormFriendRequestRepository) Create(ctx context.Context, request *models.FriendRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// FindPendingBetween returns the pending request between two users, if any.
// The identity condition is parenthesized separately from the status filter
// so the pending check applies to both directions.
func (r *gormFriendRequestRepository) FindPendingBetween(ctx context.Context, userA, userB uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("(adder_id = ? AND receiver_id = ?) OR (adder_id = ? AND receiver_id = ?)", userA, userB, userB, userA).
		Where("status = ?", models.FriendRequestStatusPending).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // no pending request is not an error here
		}
		return nil, err
	}
	return &request, nil
}

func (r *gormFriendRequestRepository) GetByID(ctx context.Context, requestID uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := r.db.WithContext(ctx).First(&request, requestID).Error
	return &request, err
}

func (r *gormFriendRequestRepository) UpdateStatus(ctx context.Context, requestID uint, status models.FriendRequestStatus) error {
	return r.db.WithContext(ctx).Model(&models.FriendRequest{}).
		Where("id = ?", requestID).
		Update("status", status).Error
}

// GetPendingForUser returns pending requests the user is a party to, on
// either side, newest first.
func (r *gormFriendRequestRepository) GetPendingForUser(ctx context.Context, userID uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("(adder_id = ? OR receiver_id = ?)", userID, userID).
		Where("status = ?", models.FriendRequestStatusPending).
		Order("id DESC").
		Find(&requests).Error
	return requests, err
}
