package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fitsocial/internal/models"
	"fitsocial/internal/storage"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, storage.AutoMigrateTables(db))
	return db
}

func newFriendService(t *testing.T) (FriendService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewFriendService(db,
		storage.NewGormFriendRequestRepository(db),
		storage.NewGormFriendshipRepository(db),
		storage.NewGormRoomRepository(db),
	)
	return svc, db
}

// befriend drives the full request/accept flow and returns the reply result.
func befriend(t *testing.T, svc FriendService, adderID, receiverID uint) *ReplyResult {
	t.Helper()
	ctx := context.Background()
	request, err := svc.SendRequest(ctx, adderID, receiverID, "")
	require.NoError(t, err)
	result, err := svc.Reply(ctx, receiverID, request.ID, models.FriendRequestStatusAccepted)
	require.NoError(t, err)
	return result
}

func TestSendRequestValidation(t *testing.T) {
	svc, _ := newFriendService(t)
	ctx := context.Background()

	_, err := svc.SendRequest(ctx, 1, 1, "")
	require.ErrorIs(t, err, ErrSelfRequest)

	_, err = svc.SendRequest(ctx, 1, 2, "hi")
	require.NoError(t, err)

	// Same direction.
	_, err = svc.SendRequest(ctx, 1, 2, "")
	require.ErrorIs(t, err, ErrDuplicatePendingRequest)

	// Opposite direction is blocked too.
	_, err = svc.SendRequest(ctx, 2, 1, "")
	require.ErrorIs(t, err, ErrDuplicatePendingRequest)
}

func TestSendRequestToExistingFriend(t *testing.T) {
	svc, _ := newFriendService(t)
	befriend(t, svc, 1, 2)

	_, err := svc.SendRequest(context.Background(), 1, 2, "")
	require.ErrorIs(t, err, ErrAlreadyFriends)
}

func TestAcceptCreatesFriendshipAndRoom(t *testing.T) {
	svc, db := newFriendService(t)
	ctx := context.Background()

	result := befriend(t, svc, 2, 1)

	require.Equal(t, models.FriendRequestStatusAccepted, result.Request.Status)
	require.NotNil(t, result.Friendship)
	require.Equal(t, models.FriendshipStatusActive, result.Friendship.Status)
	require.Equal(t, uint(1), result.Friendship.UserLow)
	require.Equal(t, uint(2), result.Friendship.UserHigh)
	require.NotZero(t, result.RoomID)
	require.Equal(t, result.RoomID, result.Friendship.RoomID)

	roomRepo := storage.NewGormRoomRepository(db)
	roomID, ok, err := roomRepo.RoomIDForUsers(ctx, 1, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, result.RoomID, roomID)

	memberIDs, err := roomRepo.GetMemberIDs(ctx, roomID)
	require.NoError(t, err)
	require.Equal(t, []uint{1, 2}, memberIDs)
}

func TestAcceptRollsBackOnFailure(t *testing.T) {
	svc, db := newFriendService(t)
	ctx := context.Background()

	request, err := svc.SendRequest(ctx, 1, 2, "")
	require.NoError(t, err)

	// Force a mid-transaction storage failure: without the membership table,
	// acceptance fails after the status flip and the room insert.
	require.NoError(t, db.Migrator().DropTable(&models.RoomMember{}))

	_, err = svc.Reply(ctx, 2, request.ID, models.FriendRequestStatusAccepted)
	require.Error(t, err)

	require.NoError(t, db.AutoMigrate(&models.RoomMember{}))

	// Everything rolled back: the request is still pending and no friendship
	// or room exists.
	found, err := storage.NewGormFriendRequestRepository(db).GetByID(ctx, request.ID)
	require.NoError(t, err)
	require.Equal(t, models.FriendRequestStatusPending, found.Status)

	friendship, err := storage.NewGormFriendshipRepository(db).GetByUsers(ctx, 1, 2)
	require.NoError(t, err)
	require.Nil(t, friendship)

	_, ok, err := storage.NewGormRoomRepository(db).RoomIDForUsers(ctx, 1, 2)
	require.NoError(t, err)
	require.False(t, ok)

	// The request stays resolvable once storage recovers.
	result, err := svc.Reply(ctx, 2, request.ID, models.FriendRequestStatusAccepted)
	require.NoError(t, err)
	require.NotZero(t, result.RoomID)
}

func TestDeclineLeavesNoTrace(t *testing.T) {
	svc, db := newFriendService(t)
	ctx := context.Background()

	request, err := svc.SendRequest(ctx, 1, 2, "")
	require.NoError(t, err)

	result, err := svc.Reply(ctx, 2, request.ID, models.FriendRequestStatusDeclined)
	require.NoError(t, err)
	require.Equal(t, models.FriendRequestStatusDeclined, result.Request.Status)
	require.Nil(t, result.Friendship)
	require.Zero(t, result.RoomID)

	roomRepo := storage.NewGormRoomRepository(db)
	_, ok, err := roomRepo.RoomIDForUsers(ctx, 1, 2)
	require.NoError(t, err)
	require.False(t, ok)

	// A declined request no longer blocks a new attempt, in either direction.
	_, err = svc.SendRequest(ctx, 2, 1, "second try")
	require.NoError(t, err)
}

func TestReplyValidation(t *testing.T) {
	svc, _ := newFriendService(t)
	ctx := context.Background()

	request, err := svc.SendRequest(ctx, 1, 2, "")
	require.NoError(t, err)

	_, err = svc.Reply(ctx, 2, request.ID, models.FriendRequestStatusPending)
	require.ErrorIs(t, err, ErrInvalidDecision)

	_, err = svc.Reply(ctx, 2, request.ID+99, models.FriendRequestStatusAccepted)
	require.ErrorIs(t, err, ErrRequestNotFound)

	// Only the receiver may resolve it; the adder cannot accept their own.
	_, err = svc.Reply(ctx, 1, request.ID, models.FriendRequestStatusAccepted)
	require.ErrorIs(t, err, ErrNotRequestReceiver)

	_, err = svc.Reply(ctx, 2, request.ID, models.FriendRequestStatusAccepted)
	require.NoError(t, err)

	// Already resolved.
	_, err = svc.Reply(ctx, 2, request.ID, models.FriendRequestStatusDeclined)
	require.ErrorIs(t, err, ErrRequestNotPending)
}

func TestDisableAndRestore(t *testing.T) {
	svc, _ := newFriendService(t)
	ctx := context.Background()

	result := befriend(t, svc, 1, 2)
	friendshipID := result.Friendship.ID

	_, err := svc.Disable(ctx, friendshipID, 3)
	require.ErrorIs(t, err, ErrNotFriendshipMember)

	disabled, err := svc.Disable(ctx, friendshipID, 2)
	require.NoError(t, err)
	require.Equal(t, models.FriendshipStatusInactive, disabled.Status)
	require.NotNil(t, disabled.TerminatedBy)
	require.Equal(t, uint(2), *disabled.TerminatedBy)

	// Either party may restore, not only the terminator.
	restored, err := svc.Restore(ctx, friendshipID, 1)
	require.NoError(t, err)
	require.Equal(t, models.FriendshipStatusActive, restored.Status)
	require.Nil(t, restored.TerminatedBy)

	_, err = svc.Disable(ctx, friendshipID+99, 1)
	require.ErrorIs(t, err, ErrFriendshipNotFound)
}

func TestAcceptAfterDisableRestoresSameRoom(t *testing.T) {
	svc, _ := newFriendService(t)
	ctx := context.Background()

	first := befriend(t, svc, 1, 2)
	_, err := svc.Disable(ctx, first.Friendship.ID, 1)
	require.NoError(t, err)

	// A fresh request between the same pair is allowed while disabled, and
	// accepting it revives the old friendship with its room and history.
	request, err := svc.SendRequest(ctx, 2, 1, "again")
	require.NoError(t, err)
	result, err := svc.Reply(ctx, 1, request.ID, models.FriendRequestStatusAccepted)
	require.NoError(t, err)

	require.Equal(t, first.Friendship.ID, result.Friendship.ID)
	require.Equal(t, first.RoomID, result.RoomID)
	require.Equal(t, models.FriendshipStatusActive, result.Friendship.Status)
}

func TestListFriendsCarriesStatus(t *testing.T) {
	svc, _ := newFriendService(t)
	ctx := context.Background()

	a := befriend(t, svc, 1, 2)
	befriend(t, svc, 1, 3)
	_, err := svc.Disable(ctx, a.Friendship.ID, 1)
	require.NoError(t, err)

	friendships, err := svc.ListFriends(ctx, 1)
	require.NoError(t, err)
	require.Len(t, friendships, 2)

	statusByFriend := map[uint]models.FriendshipStatus{}
	for _, f := range friendships {
		statusByFriend[f.OtherUser(1)] = f.Status
	}
	require.Equal(t, models.FriendshipStatusInactive, statusByFriend[2])
	require.Equal(t, models.FriendshipStatusActive, statusByFriend[3])
}

func TestListPendingRequestsTagsRole(t *testing.T) {
	svc, _ := newFriendService(t)
	ctx := context.Background()

	_, err := svc.SendRequest(ctx, 1, 2, "")
	require.NoError(t, err)
	_, err = svc.SendRequest(ctx, 3, 1, "")
	require.NoError(t, err)

	pending, err := svc.ListPendingRequests(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	roleByOther := map[uint]models.FriendRequestRole{}
	for _, p := range pending {
		if p.AdderID == 1 {
			roleByOther[p.ReceiverID] = p.Role
		} else {
			roleByOther[p.AdderID] = p.Role
		}
	}
	require.Equal(t, models.FriendRequestRoleAdder, roleByOther[2])
	require.Equal(t, models.FriendRequestRoleReceiver, roleByOther[3])
}
