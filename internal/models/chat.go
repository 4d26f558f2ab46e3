package models

import "time"

type Conversation struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	Name           string    `gorm:"type:varchar(255)" json:"name"`
	OrganizationID uint64    `gorm:"not null;index" json:"organization_id"`
	IsGroupChat    bool      `gorm:"not null;default:false" json:"is_group_chat"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `gorm:"index" json:"updated_at"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
}

type ConversationParticipant struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	ConversationID uint64    `gorm:"not null;uniqueIndex:idx_participants_conv_user" json:"conversation_id"`
	UserID         uint64    `gorm:"not null;uniqueIndex:idx_participants_conv_user" json:"user_id"`
	IsAdmin        bool      `gorm:"not null;default:false" json:"is_admin"`
	JoinedAt       time.Time `gorm:"autoCreateTime" json:"joined_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

type Message struct {
	ID             uint64     `gorm:"primarykey" json:"id"`
	ConversationID uint64     `gorm:"not null;index" json:"conversation_id"`
	SenderID       uint64     `gorm:"not null" json:"sender_id"`
	Content        string     `gorm:"type:text;not null" json:"content"`
	ParentID       *uint64    `gorm:"index" json:"parent_id"`
	Timestamp      time.Time  `gorm:"autoCreateTime;index" json:"timestamp"`
	EditedAt       *time.Time `json:"edited_at"`

	Reads     []MessageRead     `gorm:"foreignKey:MessageID" json:"reads,omitempty"`
	Reactions []MessageReaction `gorm:"foreignKey:MessageID" json:"reactions,omitempty"`
}

type MessageRead struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	MessageID uint64    `gorm:"not null;uniqueIndex:idx_message_reads_msg_user" json:"message_id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:idx_message_reads_msg_user" json:"user_id"`
	ReadAt    time.Time `gorm:"autoCreateTime" json:"read_at"`
}

type MessageReaction struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	MessageID uint64    `gorm:"not null;uniqueIndex:idx_reactions_msg_user_reaction" json:"message_id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:idx_reactions_msg_user_reaction" json:"user_id"`
	Reaction  string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_reactions_msg_user_reaction" json:"reaction"`
	CreatedAt time.Time `json:"created_at"`
}

type PinnedMessage struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	MessageID      uint64    `gorm:"not null;uniqueIndex:idx_pins_msg_conv" json:"message_id"`
	ConversationID uint64    `gorm:"not null;uniqueIndex:idx_pins_msg_conv" json:"conversation_id"`
	PinnedByID     uint64    `gorm:"not null" json:"pinned_by_id"`
	PinnedAt       time.Time `gorm:"autoCreateTime" json:"pinned_at"`
}

type SavedMessage struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	MessageID uint64    `gorm:"not null;uniqueIndex:idx_saved_msg_user" json:"message_id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:idx_saved_msg_user" json:"user_id"`
	SavedAt   time.Time `gorm:"autoCreateTime" json:"saved_at"`

	Message *Message `gorm:"foreignKey:MessageID" json:"message,omitempty"`
}

type TypingIndicator struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	ConversationID uint64    `gorm:"not null;uniqueIndex:idx_typing_conv_user" json:"conversation_id"`
	UserID         uint64    `gorm:"not null;uniqueIndex:idx_typing_conv_user" json:"user_id"`
	UpdatedAt      time.Time `json:"updated_at"`
}
