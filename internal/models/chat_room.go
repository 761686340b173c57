package models

// ChatRoom is the durable 1:1 channel created for an accepted friendship.
// Exactly one room exists per friendship, and it is never deleted by a
// friendship state change.
type ChatRoom struct {
	BaseModel
}

// TableName specifies the table name for the ChatRoom model.
func (ChatRoom) TableName() string {
	return "chat_rooms"
}

// RoomMember links a user to a chat room. A 1:1 room has exactly two rows.
type RoomMember struct {
	BaseModel
	RoomID uint `gorm:"not null;uniqueIndex:idx_room_member" json:"roomId"`
	UserID uint `gorm:"not null;uniqueIndex:idx_room_member;index" json:"userId"`
}

// TableName specifies the table name for the RoomMember model.
func (RoomMember) TableName() string {
	return "room_members"
}
