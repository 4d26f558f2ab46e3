package models

// All returns every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Organization{},
		&Permission{},
		&Title{},
		&Role{},
		&TeamMember{},
		&Project{},
		&Task{},
		&TaskHistory{},
		&Comment{},
		&TaskAttachment{},
		&TimeEntry{},
		&ReportConfiguration{},
		&Conversation{},
		&ConversationParticipant{},
		&Message{},
		&MessageRead{},
		&MessageReaction{},
		&PinnedMessage{},
		&SavedMessage{},
		&TypingIndicator{},
		&CalendarEvent{},
		&EventAttendee{},
		&Invitation{},
	}
}
