package models

// PermissionCode is a fixed capability code.
type PermissionCode string

const (
	PermCreateTasks  PermissionCode = "create_tasks"
	PermViewTasks    PermissionCode = "view_tasks"
	PermUpdateTasks  PermissionCode = "update_tasks"
	PermDeleteTasks  PermissionCode = "delete_tasks"
	PermAssignTasks  PermissionCode = "assign_tasks"
	PermApproveTasks PermissionCode = "approve_tasks"
	PermRejectTasks  PermissionCode = "reject_tasks"
	PermComment      PermissionCode = "comment"
	PermManageUsers  PermissionCode = "manage_users"
	PermManageRoles  PermissionCode = "manage_roles"
	PermViewReports  PermissionCode = "view_reports"
)

// Permission is immutable reference data seeded at migration time.
type Permission struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	Code        PermissionCode `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name        string         `gorm:"type:varchar(100);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
}

// DefaultPermissions is the seed set, in display order.
func DefaultPermissions() []Permission {
	return []Permission{
		{Code: PermCreateTasks, Name: "Create Tasks", Description: "Can create new tasks in the system"},
		{Code: PermViewTasks, Name: "View Tasks", Description: "Can view tasks assigned to them or their team"},
		{Code: PermAssignTasks, Name: "Assign Tasks", Description: "Can assign tasks to other team members"},
		{Code: PermUpdateTasks, Name: "Update Tasks", Description: "Can update task details and progress"},
		{Code: PermDeleteTasks, Name: "Delete Tasks", Description: "Can permanently delete tasks"},
		{Code: PermApproveTasks, Name: "Approve Tasks", Description: "Can review and approve completed tasks"},
		{Code: PermRejectTasks, Name: "Reject Tasks", Description: "Can reject tasks and request changes"},
		{Code: PermComment, Name: "Comment", Description: "Can leave comments on tasks"},
		{Code: PermViewReports, Name: "View Reports", Description: "Can access analytics and reporting"},
		{Code: PermManageUsers, Name: "Manage Users", Description: "Can add, edit, and remove users"},
		{Code: PermManageRoles, Name: "Manage Roles", Description: "Can create and edit roles and titles"},
	}
}
