package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

// Scope narrows a query, typically to what the caller is allowed to see.
type Scope = func(db *gorm.DB) *gorm.DB

func applyScope(db *gorm.DB, scope Scope) *gorm.DB {
	if scope == nil {
		return db
	}
	return db.Scopes(scope)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by login email
	FindByEmail(email string) (*models.User, error)

	// Update saves every column of user
	Update(user *models.User) error
}

// OrganizationRepository defines the interface for organization data access.
// It also serves tenant resolution.
type OrganizationRepository interface {
	// CreateWithOwner creates org, links owner to it and adds the owner as a
	// team member, in one transaction
	CreateWithOwner(org *models.Organization, owner *models.User, member *models.TeamMember) error

	FindByID(id uint64) (*models.Organization, error)

	// ListForUser lists organizations the user owns or is a team member of
	ListForUser(userID uint64) ([]models.Organization, error)

	Update(org *models.Organization) error

	// Delete removes an organization and everything it owns
	Delete(id uint64) error

	FirstOwnedBy(userID uint64) (*models.Organization, error)
	FirstJoinedBy(userID uint64) (*models.Organization, error)
	FindByName(name string) (*models.Organization, error)
}

// TeamMemberRepository defines the interface for team member data access
type TeamMemberRepository interface {
	Create(member *models.TeamMember) error
	FindByID(organizationID, id uint64) (*models.TeamMember, error)
	FindByEmail(organizationID uint64, email string) (*models.TeamMember, error)
	List(organizationID uint64) ([]models.TeamMember, error)
	Update(member *models.TeamMember) error

	// Delete removes a member and clears every task and project reference to it
	Delete(organizationID, id uint64) error

	// FindByIDs returns the members of the organization among ids
	FindByIDs(organizationID uint64, ids []uint64) ([]models.TeamMember, error)

	// FindMemberships returns the members standing for a user in an
	// organization, matched by user id or email, with permissions loaded
	FindMemberships(organizationID, userID uint64, email string) ([]models.TeamMember, error)

	// CountUsersInOrganization counts how many of userIDs own or belong to the organization
	CountUsersInOrganization(organizationID uint64, userIDs []uint64) (int64, error)
}

// RoleRepository defines the interface for titles, roles and permissions
type RoleRepository interface {
	CreateTitle(title *models.Title) error
	FindTitle(organizationID, id uint64) (*models.Title, error)
	ListTitles(organizationID uint64) ([]models.Title, error)
	// UpdateTitle saves title and replaces its permission set when perms is non-nil
	UpdateTitle(title *models.Title, perms *[]models.Permission) error
	DeleteTitle(organizationID, id uint64) error

	CreateRole(role *models.Role) error
	FindRole(organizationID, id uint64) (*models.Role, error)
	ListRoles(organizationID uint64) ([]models.Role, error)
	UpdateRole(role *models.Role, perms *[]models.Permission) error
	DeleteRole(organizationID, id uint64) error

	ListPermissions() ([]models.Permission, error)
	FindPermissionsByCodes(codes []models.PermissionCode) ([]models.Permission, error)
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	Create(project *models.Project) error
	FindByID(id uint64, scope Scope, preload ...string) (*models.Project, error)
	List(filter ProjectFilter) ([]models.Project, int64, error)
	// Update saves project and replaces its team when memberIDs is non-nil
	Update(project *models.Project, memberIDs *[]uint64) error
	Delete(id uint64) error
	// Progress counts total and finished tasks for each project id
	Progress(projectIDs []uint64) (map[uint64]ProjectProgress, error)
}

// ProjectFilter holds filtering options for listing projects
type ProjectFilter struct {
	Scope      Scope
	Status     *models.ProjectStatus
	Search     string
	Pagination utils.PaginationParams
}

// ProjectProgress is the task tally of one project
type ProjectProgress struct {
	Total     int64
	Completed int64
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create stores a task with its relation sets and creation history in one transaction
	Create(task *models.Task, sets TaskSets, history *models.TaskHistory) error

	// FindByID finds a task by ID within scope, with optional preloading
	FindByID(id uint64, scope Scope, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update saves task columns, replaces the given relation sets and appends history
	Update(task *models.Task, sets TaskSets, history []models.TaskHistory) error

	// Delete soft deletes a task and clears its join rows
	Delete(id uint64) error

	// FindByIDs returns the tasks of the organization among ids
	FindByIDs(organizationID uint64, ids []uint64) ([]models.Task, error)

	ListHistory(taskID uint64) ([]models.TaskHistory, error)
	AddComment(comment *models.Comment, history *models.TaskHistory) error
	ListComments(taskID uint64) ([]models.Comment, error)
	AddAttachment(attachment *models.TaskAttachment, history *models.TaskHistory) error
	AddTimeEntry(entry *models.TimeEntry, history *models.TaskHistory) error
}

// TaskSets carries replacement many-to-many sets. A nil field leaves the
// stored set untouched; a non-nil empty slice clears it.
type TaskSets struct {
	Assignees     *[]uint64
	Approvers     *[]uint64
	Watchers      *[]uint64
	Prerequisites *[]uint64
	LinkedTasks   *[]uint64
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	Scope        Scope
	Statuses     []models.TaskStatus
	Priorities   []models.TaskPriority
	AssignedToID *uint64
	CreatedByID  *uint64
	ProjectID    *uint64
	DueAfter     *time.Time
	DueBefore    *time.Time
	Search       string
	Pagination   utils.PaginationParams
}

// ReportRepository defines data access for reports and saved configurations
type ReportRepository interface {
	CreateConfiguration(cfg *models.ReportConfiguration) error
	FindConfiguration(organizationID, id uint64) (*models.ReportConfiguration, error)
	ListConfigurations(organizationID uint64) ([]models.ReportConfiguration, error)
	UpdateConfiguration(cfg *models.ReportConfiguration) error
	DeleteConfiguration(organizationID, id uint64) error

	LoadTasks(filter ReportFilter) ([]models.Task, error)
	LoadProjects(filter ReportFilter) ([]models.Project, error)
	LoadMembers(filter ReportFilter) ([]models.TeamMember, error)
}

// ReportFilter narrows the rows a report is computed over. A nil
// OrganizationID means every organization.
type ReportFilter struct {
	OrganizationID   *uint64
	ProjectID        *uint64
	TeamMemberID     *uint64
	BillableOnly     bool
	TimeTrackingOnly bool
	WithTimeEntries  bool
}

// ChatRepository defines data access for conversations and messages
type ChatRepository interface {
	CreateConversation(conv *models.Conversation, userIDs []uint64, adminID uint64) error
	ListConversations(organizationID, userID uint64) ([]models.Conversation, error)
	FindConversation(organizationID, id, userID uint64) (*models.Conversation, error)
	AddParticipant(p *models.ConversationParticipant) error
	RemoveParticipant(conversationID, userID uint64) error

	// CreateMessage stores msg, marks it read by its sender and bumps the conversation
	CreateMessage(msg *models.Message) error
	ListMessages(conversationID uint64, params utils.PaginationParams) ([]models.Message, int64, error)
	// FindMessage finds a message in a conversation userID participates in
	FindMessage(id, userID uint64) (*models.Message, error)

	MarkRead(messageID, userID uint64) error
	// ToggleReaction adds the reaction or removes it when present; it reports whether it was added
	ToggleReaction(messageID, userID uint64, reaction string) (bool, error)
	Pin(pin *models.PinnedMessage) error
	Unpin(messageID, conversationID uint64) error
	Save(saved *models.SavedMessage) error
	Unsave(messageID, userID uint64) error
	ListSaved(userID uint64) ([]models.SavedMessage, error)
	Touch(conversationID, userID uint64) error
}

// CalendarRepository defines data access for calendar events
type CalendarRepository interface {
	Create(event *models.CalendarEvent, attendeeIDs []uint64) error
	// FindVisible finds an event the user created or attends
	FindVisible(organizationID, userID, id uint64) (*models.CalendarEvent, error)
	List(filter EventFilter) ([]models.CalendarEvent, error)
	Update(event *models.CalendarEvent, attendeeIDs *[]uint64) error
	Delete(id uint64) error
	Respond(eventID, userID uint64, response models.AttendeeResponse) error
}

// EventFilter holds filtering options for listing events
type EventFilter struct {
	OrganizationID uint64
	UserID         uint64
	From           *time.Time
	To             *time.Time
}

// InvitationRepository defines data access for invitations
type InvitationRepository interface {
	Create(inv *models.Invitation) error
	FindByID(organizationID, id uint64) (*models.Invitation, error)
	// FindPendingByToken finds an unaccepted invitation
	FindPendingByToken(token string) (*models.Invitation, error)
	FindPendingByEmail(organizationID uint64, email string) (*models.Invitation, error)
	ListPending(organizationID uint64) ([]models.Invitation, error)
	Update(inv *models.Invitation) error
	Delete(id uint64) error
	// Accept links user and a team member to the invitation's organization and marks it accepted
	Accept(inv *models.Invitation, user *models.User, member *models.TeamMember) error
}
