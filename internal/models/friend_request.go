package models

// FriendRequestStatus defines the lifecycle state of a friend request.
// pending is the only non-terminal state.
type FriendRequestStatus string

const (
	FriendRequestStatusPending  FriendRequestStatus = "pending"
	FriendRequestStatusAccepted FriendRequestStatus = "accepted"
	FriendRequestStatusDeclined FriendRequestStatus = "declined"
)

// FriendRequest records an invitation from AdderID to ReceiverID.
// At most one pending request may exist per unordered user pair.
type FriendRequest struct {
	BaseModel
	AdderID     uint                `gorm:"not null;index:idx_friend_request_users" json:"adderId"`
	ReceiverID  uint                `gorm:"not null;index:idx_friend_request_users" json:"receiverId"`
	Status      FriendRequestStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Description string              `gorm:"type:text" json:"description"`
}

// FriendRequestRole tags a pending request with the caller's side of it.
type FriendRequestRole string

const (
	FriendRequestRoleAdder    FriendRequestRole = "adder"
	FriendRequestRoleReceiver FriendRequestRole = "receiver"
)

// PendingFriendRequest is a DTO for listing pending requests, tagged with
// the role the requesting user plays in each row.
type PendingFriendRequest struct {
	FriendRequest
	Role FriendRequestRole `json:"role"`
}
