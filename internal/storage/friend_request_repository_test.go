package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"fitsocial/internal/models"
)

func TestFindPendingBetweenBothDirections(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFriendRequestRepository(db)
	ctx := context.Background()

	request := &models.FriendRequest{AdderID: 1, ReceiverID: 2, Status: models.FriendRequestStatusPending}
	require.NoError(t, repo.Create(ctx, request))

	found, err := repo.FindPendingBetween(ctx, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, request.ID, found.ID)

	// The reverse direction sees the same pending request.
	found, err = repo.FindPendingBetween(ctx, 2, 1)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, request.ID, found.ID)

	found, err = repo.FindPendingBetween(ctx, 1, 3)
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestFindPendingBetweenIgnoresResolved(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFriendRequestRepository(db)
	ctx := context.Background()

	request := &models.FriendRequest{AdderID: 1, ReceiverID: 2, Status: models.FriendRequestStatusPending}
	require.NoError(t, repo.Create(ctx, request))
	require.NoError(t, repo.UpdateStatus(ctx, request.ID, models.FriendRequestStatusDeclined))

	found, err := repo.FindPendingBetween(ctx, 1, 2)
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestGetPendingForUserEitherSide(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFriendRequestRepository(db)
	ctx := context.Background()

	sent := &models.FriendRequest{AdderID: 1, ReceiverID: 2, Status: models.FriendRequestStatusPending}
	received := &models.FriendRequest{AdderID: 3, ReceiverID: 1, Status: models.FriendRequestStatusPending}
	unrelated := &models.FriendRequest{AdderID: 2, ReceiverID: 3, Status: models.FriendRequestStatusPending}
	for _, r := range []*models.FriendRequest{sent, received, unrelated} {
		require.NoError(t, repo.Create(ctx, r))
	}

	pending, err := repo.GetPendingForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	// Newest first.
	require.Equal(t, received.ID, pending[0].ID)
	require.Equal(t, sent.ID, pending[1].ID)
}

func TestFriendshipGetByUsersCanonical(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFriendshipRepository(db)
	ctx := context.Background()

	friendship := &models.Friendship{UserLow: 5, UserHigh: 2, Status: models.FriendshipStatusActive, RoomID: 1}
	friendship.EnsureCanonicalOrder()
	require.Equal(t, uint(2), friendship.UserLow)
	require.NoError(t, repo.Create(ctx, friendship))

	// Lookups work regardless of argument order.
	found, err := repo.GetByUsers(ctx, 5, 2)
	require.NoError(t, err)
	require.NotNil(t, found)

	found, err = repo.GetByUsers(ctx, 2, 5)
	require.NoError(t, err)
	require.NotNil(t, found)

	found, err = repo.GetByUsers(ctx, 2, 6)
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestFriendshipSetStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFriendshipRepository(db)
	ctx := context.Background()

	friendship := &models.Friendship{UserLow: 1, UserHigh: 2, Status: models.FriendshipStatusActive, RoomID: 1}
	require.NoError(t, repo.Create(ctx, friendship))

	terminator := uint(2)
	require.NoError(t, repo.SetStatus(ctx, friendship.ID, models.FriendshipStatusInactive, &terminator))

	found, err := repo.GetByID(ctx, friendship.ID)
	require.NoError(t, err)
	require.Equal(t, models.FriendshipStatusInactive, found.Status)
	require.NotNil(t, found.TerminatedBy)
	require.Equal(t, terminator, *found.TerminatedBy)

	// Restoring clears the terminator.
	require.NoError(t, repo.SetStatus(ctx, friendship.ID, models.FriendshipStatusActive, nil))
	found, err = repo.GetByID(ctx, friendship.ID)
	require.NoError(t, err)
	require.Equal(t, models.FriendshipStatusActive, found.Status)
	require.Nil(t, found.TerminatedBy)
}

func TestNotificationMarkSeen(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormNotificationRepository(db)
	ctx := context.Background()

	notification := &models.Notification{UserID: 1, Text: "hello", Sentiment: models.SentimentNormal}
	require.NoError(t, repo.Create(ctx, notification))

	updated, err := repo.MarkSeen(ctx, notification.ID)
	require.NoError(t, err)
	require.True(t, updated)

	updated, err = repo.MarkSeen(ctx, notification.ID+99)
	require.NoError(t, err)
	require.False(t, updated)

	list, err := repo.GetForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.True(t, list[0].Seen)
}
