package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"fitsocial/internal/models"
	"fitsocial/internal/storage"
)

var (
	ErrSelfRequest             = errors.New("cannot send a friend request to yourself")
	ErrDuplicatePendingRequest = errors.New("a pending friend request already exists between these users")
	ErrAlreadyFriends          = errors.New("users are already friends")
	ErrRequestNotFound         = errors.New("friend request not found")
	ErrNotRequestReceiver      = errors.New("user is not the receiver of this friend request")
	ErrRequestNotPending       = errors.New("friend request is not pending")
	ErrInvalidDecision         = errors.New("decision must be accepted or declined")
	ErrFriendshipNotFound      = errors.New("friendship not found")
	ErrNotFriendshipMember     = errors.New("user is not a party to this friendship")
)

// ReplyResult carries the outcome of resolving a friend request. RoomID is
// set only on acceptance so the caller can notify both parties.
type ReplyResult struct {
	Request    *models.FriendRequest
	Friendship *models.Friendship
	RoomID     uint
}

// FriendService is the state machine over friend requests and friendships.
// Accepting a request atomically creates the friendship, its chat room, and
// both memberships.
type FriendService interface {
	SendRequest(ctx context.Context, adderID, receiverID uint, description string) (*models.FriendRequest, error)
	Reply(ctx context.Context, receiverID, requestID uint, decision models.FriendRequestStatus) (*ReplyResult, error)
	Disable(ctx context.Context, friendshipID, terminatorID uint) (*models.Friendship, error)
	Restore(ctx context.Context, friendshipID, userID uint) (*models.Friendship, error)
	ListFriends(ctx context.Context, userID uint) ([]models.Friendship, error)
	ListPendingRequests(ctx context.Context, userID uint) ([]models.PendingFriendRequest, error)
}

type friendService struct {
	db             *gorm.DB // for transaction support
	requestRepo    storage.FriendRequestRepository
	friendshipRepo storage.FriendshipRepository
	roomRepo       storage.RoomRepository
}

// NewFriendService creates a new FriendService instance.
func NewFriendService(
	db *gorm.DB,
	requestRepo storage.FriendRequestRepository,
	friendshipRepo storage.FriendshipRepository,
	roomRepo storage.RoomRepository,
) FriendService {
	return &friendService{
		db:             db,
		requestRepo:    requestRepo,
		friendshipRepo: friendshipRepo,
		roomRepo:       roomRepo,
	}
}

// SendRequest validates and records a new pending friend request.
func (s *friendService) SendRequest(ctx context.Context, adderID, receiverID uint, description string) (*models.FriendRequest, error) {
	if adderID == 0 || receiverID == 0 {
		return nil, fmt.Errorf("adder and receiver ids are required")
	}
	if adderID == receiverID {
		return nil, ErrSelfRequest
	}

	friendship, err := s.friendshipRepo.GetByUsers(ctx, adderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship between %d and %d: %w", adderID, receiverID, err)
	}
	if friendship != nil && friendship.Status == models.FriendshipStatusActive {
		return nil, ErrAlreadyFriends
	}

	// An unresolved request in either direction blocks a new one.
	existing, err := s.requestRepo.FindPendingBetween(ctx, adderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending requests between %d and %d: %w", adderID, receiverID, err)
	}
	if existing != nil {
		return nil, ErrDuplicatePendingRequest
	}

	request := &models.FriendRequest{
		AdderID:     adderID,
		ReceiverID:  receiverID,
		Status:      models.FriendRequestStatusPending,
		Description: description,
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create friend request from %d to %d: %w", adderID, receiverID, err)
	}

	log.Printf("Friend request %d created: %d -> %d", request.ID, adderID, receiverID)
	return request, nil
}

// Reply resolves a pending request. Acceptance flips the request status,
// creates the friendship row, the chat room, and both memberships inside a
// single transaction: a friendship without its room is a state later chat
// operations cannot repair, so any failure rolls everything back. Decline
// only flips the status.
func (s *friendService) Reply(ctx context.Context, receiverID, requestID uint, decision models.FriendRequestStatus) (*ReplyResult, error) {
	if decision != models.FriendRequestStatusAccepted && decision != models.FriendRequestStatusDeclined {
		return nil, ErrInvalidDecision
	}

	result := &ReplyResult{}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRequestRepo := storage.NewGormFriendRequestRepository(tx)
		txFriendshipRepo := storage.NewGormFriendshipRepository(tx)
		txRoomRepo := storage.NewGormRoomRepository(tx)

		request, err := txRequestRepo.GetByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return fmt.Errorf("failed to retrieve friend request %d: %w", requestID, err)
		}
		if request.ReceiverID != receiverID {
			return ErrNotRequestReceiver
		}
		if request.Status != models.FriendRequestStatusPending {
			return ErrRequestNotPending
		}

		if err := txRequestRepo.UpdateStatus(ctx, requestID, decision); err != nil {
			return fmt.Errorf("failed to update friend request %d status: %w", requestID, err)
		}
		request.Status = decision
		result.Request = request

		if decision == models.FriendRequestStatusDeclined {
			return nil // no friendship, no room
		}

		// A previously disabled friendship between the pair is restored
		// instead of duplicated; its room and history are still intact.
		existing, err := txFriendshipRepo.GetByUsers(ctx, request.AdderID, request.ReceiverID)
		if err != nil {
			return fmt.Errorf("failed to check existing friendship: %w", err)
		}
		if existing != nil {
			if err := txFriendshipRepo.SetStatus(ctx, existing.ID, models.FriendshipStatusActive, nil); err != nil {
				return fmt.Errorf("failed to restore friendship %d: %w", existing.ID, err)
			}
			existing.Status = models.FriendshipStatusActive
			existing.TerminatedBy = nil
			result.Friendship = existing
			result.RoomID = existing.RoomID
			return nil
		}

		room, err := txRoomRepo.CreateRoomWithMembers(ctx, request.AdderID, request.ReceiverID)
		if err != nil {
			return fmt.Errorf("failed to create chat room for request %d: %w", requestID, err)
		}

		friendship := &models.Friendship{
			UserLow:  request.AdderID,
			UserHigh: request.ReceiverID,
			Status:   models.FriendshipStatusActive,
			RoomID:   room.ID,
		}
		friendship.EnsureCanonicalOrder()
		if err := txFriendshipRepo.Create(ctx, friendship); err != nil {
			return fmt.Errorf("failed to create friendship for request %d: %w", requestID, err)
		}
		result.Friendship = friendship
		result.RoomID = room.ID
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Printf("Friend request %d resolved as %s by user %d", requestID, decision, receiverID)
	return result, nil
}

// Disable pauses a friendship, recording who terminated it. The chat room
// and messages are untouched.
func (s *friendService) Disable(ctx context.Context, friendshipID, terminatorID uint) (*models.Friendship, error) {
	friendship, err := s.getFriendshipForUser(ctx, friendshipID, terminatorID)
	if err != nil {
		return nil, err
	}

	terminator := terminatorID
	if err := s.friendshipRepo.SetStatus(ctx, friendshipID, models.FriendshipStatusInactive, &terminator); err != nil {
		return nil, fmt.Errorf("failed to disable friendship %d: %w", friendshipID, err)
	}
	friendship.Status = models.FriendshipStatusInactive
	friendship.TerminatedBy = &terminator
	return friendship, nil
}

// Restore reactivates a disabled friendship and clears TerminatedBy.
func (s *friendService) Restore(ctx context.Context, friendshipID, userID uint) (*models.Friendship, error) {
	friendship, err := s.getFriendshipForUser(ctx, friendshipID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.friendshipRepo.SetStatus(ctx, friendshipID, models.FriendshipStatusActive, nil); err != nil {
		return nil, fmt.Errorf("failed to restore friendship %d: %w", friendshipID, err)
	}
	friendship.Status = models.FriendshipStatusActive
	friendship.TerminatedBy = nil
	return friendship, nil
}

func (s *friendService) getFriendshipForUser(ctx context.Context, friendshipID, userID uint) (*models.Friendship, error) {
	friendship, err := s.friendshipRepo.GetByID(ctx, friendshipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFriendshipNotFound
		}
		return nil, fmt.Errorf("failed to retrieve friendship %d: %w", friendshipID, err)
	}
	if friendship.UserLow != userID && friendship.UserHigh != userID {
		return nil, ErrNotFriendshipMember
	}
	return friendship, nil
}

// ListFriends returns every friendship the user is a party to, active and
// inactive alike, with the status carried on each row.
func (s *friendService) ListFriends(ctx context.Context, userID uint) ([]models.Friendship, error) {
	friendships, err := s.friendshipRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friendships for user %d: %w", userID, err)
	}
	return friendships, nil
}

// ListPendingRequests returns pending requests on either side of the user,
// each tagged with the role the user plays in it.
func (s *friendService) ListPendingRequests(ctx context.Context, userID uint) ([]models.PendingFriendRequest, error) {
	requests, err := s.requestRepo.GetPendingForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests for user %d: %w", userID, err)
	}

	tagged := make([]models.PendingFriendRequest, 0, len(requests))
	for _, req := range requests {
		role := models.FriendRequestRoleReceiver
		if req.AdderID == userID {
			role = models.FriendRequestRoleAdder
		}
		tagged = append(tagged, models.PendingFriendRequest{FriendRequest: req, Role: role})
	}
	return tagged, nil
}
