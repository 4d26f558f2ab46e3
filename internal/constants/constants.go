package constants

// Context and session keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyPrincipal = "principal"
	ContextKeyTask      = "task"
	ContextKeyProject   = "project"
	SessionCookieName   = "taskflow_session"
)

// Account rules
const (
	MinPasswordLength    = 8
	InvitationTTLDays    = 7
	InvitationTokenBytes = 32
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Task workflow
const (
	CommentPreviewLength = 50
	MaxAIGeneratedTasks  = 20
	MaxUploadSizeBytes   = 10 << 20
)

// Reporting
const (
	DefaultProductivityWindowDays = 30
	MostOverdueLimit              = 10
)

// Calendar
const (
	UpcomingEventsWindowDays = 7
)

// Chat
const (
	ChatChannelPrefix = "chat:"
)
