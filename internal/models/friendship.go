package models

// FriendshipStatus defines whether a friendship is currently live.
// Unlike request statuses, both states are reversible.
type FriendshipStatus string

const (
	FriendshipStatusActive   FriendshipStatus = "active"
	FriendshipStatusInactive FriendshipStatus = "inactive"
)

// Friendship represents an established relationship between two users.
// To avoid duplicate symmetric rows, UserLow is always less than UserHigh.
// A friendship is created only by accepting a FriendRequest; disabling it
// is a soft state change that preserves the chat room and its history.
type Friendship struct {
	BaseModel
	UserLow      uint             `gorm:"not null;uniqueIndex:idx_friendship_users" json:"userLow"`
	UserHigh     uint             `gorm:"not null;uniqueIndex:idx_friendship_users" json:"userHigh"`
	Status       FriendshipStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	TerminatedBy *uint            `json:"terminatedBy,omitempty"`
	RoomID       uint             `gorm:"not null;index" json:"roomId"`
}

// EnsureCanonicalOrder swaps the user IDs so that UserLow < UserHigh.
// Call before creating a Friendship record.
func (f *Friendship) EnsureCanonicalOrder() {
	if f.UserLow > f.UserHigh {
		f.UserLow, f.UserHigh = f.UserHigh, f.UserLow
	}
}

// OtherUser returns the friend's ID from the perspective of userID.
func (f *Friendship) OtherUser(userID uint) uint {
	if f.UserLow == userID {
		return f.UserHigh
	}
	return f.UserLow
}
