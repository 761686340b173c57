package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"fitsocial/internal/models"
	"fitsocial/internal/storage"
)

var (
	ErrInvalidNotification  = errors.New("notification requires a user id and text")
	ErrNotificationNotFound = errors.New("notification not found")
)

// NotificationService is the write-once sink for asynchronous notifications.
// Other subsystems (likes, admin broadcast, friend flows) push entries here;
// the content is never interpreted.
type NotificationService interface {
	Push(ctx context.Context, userID uint, text string, sentiment models.NotificationSentiment, clickable bool, clickableInfo json.RawMessage, destination string) (*models.Notification, error)
	Fetch(ctx context.Context, userID uint) ([]models.Notification, error)
	MarkSeen(ctx context.Context, notificationID uint) error
}

type notificationService struct {
	repo storage.NotificationRepository
}

// NewNotificationService creates a new NotificationService instance.
func NewNotificationService(repo storage.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) Push(ctx context.Context, userID uint, text string, sentiment models.NotificationSentiment, clickable bool, clickableInfo json.RawMessage, destination string) (*models.Notification, error) {
	if userID == 0 || text == "" {
		return nil, ErrInvalidNotification
	}
	switch sentiment {
	case models.SentimentPositive, models.SentimentNormal, models.SentimentNegative:
	default:
		sentiment = models.SentimentNormal
	}

	notification := &models.Notification{
		UserID:               userID,
		Text:                 text,
		Sentiment:            sentiment,
		Clickable:            clickable,
		ClickableInfo:        clickableInfo,
		ClickableDestination: destination,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to store notification for user %d: %w", userID, err)
	}
	return notification, nil
}

// Fetch returns the user's notifications, newest first.
func (s *notificationService) Fetch(ctx context.Context, userID uint) ([]models.Notification, error) {
	notifications, err := s.repo.GetForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications for user %d: %w", userID, err)
	}
	return notifications, nil
}

func (s *notificationService) MarkSeen(ctx context.Context, notificationID uint) error {
	updated, err := s.repo.MarkSeen(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("failed to mark notification %d seen: %w", notificationID, err)
	}
	if !updated {
		return ErrNotificationNotFound
	}
	return nil
}
