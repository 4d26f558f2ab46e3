package access

import (
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// Viewer is who is looking at tasks: the user and the team members that
// stand for that user in the tenant organization.
type Viewer struct {
	UserID       uint64
	MemberIDs    []uint64
	Unrestricted bool
}

func (v Viewer) isMember(id uint64) bool {
	for _, m := range v.MemberIDs {
		if m == id {
			return true
		}
	}
	return false
}

const taskClause = `(tasks.created_by_id = ?
	OR tasks.assigned_to_id IN ?
	OR EXISTS (SELECT 1 FROM task_assignees WHERE task_assignees.task_id = tasks.id AND task_assignees.team_member_id IN ?)
	OR EXISTS (SELECT 1 FROM task_watchers WHERE task_watchers.task_id = tasks.id AND task_watchers.team_member_id IN ?))`

// memberArg keeps IN clauses valid when the viewer has no membership.
func (v Viewer) memberArg() []uint64 {
	if len(v.MemberIDs) == 0 {
		return []uint64{0}
	}
	return v.MemberIDs
}

// TaskScope limits a query on tasks to the tenant and to what v may see.
// Every clause is a predicate on tasks, so rows never repeat.
func TaskScope(tenant Tenant, v Viewer) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenant.Organization != nil {
			db = db.Where("tasks.organization_id = ?", tenant.Organization.ID)
		} else if !tenant.All {
			return db.Where("1 = 0")
		}
		if v.Unrestricted {
			return db
		}
		ids := v.memberArg()
		return db.Where(taskClause, v.UserID, ids, ids, ids)
	}
}

// ProjectScope limits a query on projects to the tenant and to projects v
// is a member of or holds a visible task in.
func ProjectScope(tenant Tenant, v Viewer) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenant.Organization != nil {
			db = db.Where("projects.organization_id = ?", tenant.Organization.ID)
		} else if !tenant.All {
			return db.Where("1 = 0")
		}
		if v.Unrestricted {
			return db
		}
		ids := v.memberArg()
		return db.Where(
			"(EXISTS (SELECT 1 FROM project_members WHERE project_members.project_id = projects.id AND project_members.team_member_id IN ?)"+
				" OR EXISTS (SELECT 1 FROM tasks WHERE tasks.project_id = projects.id AND tasks.deleted_at IS NULL AND "+taskClause+"))",
			ids, v.UserID, ids, ids, ids,
		)
	}
}

// CanSeeTask is the in-memory form of TaskScope's visibility rule. The
// task's Assignees and Watchers must be loaded.
func CanSeeTask(task *models.Task, v Viewer) bool {
	if v.Unrestricted {
		return true
	}
	if task.CreatedByID == v.UserID {
		return true
	}
	if task.AssignedToID != nil && v.isMember(*task.AssignedToID) {
		return true
	}
	for _, m := range task.Assignees {
		if v.isMember(m.ID) {
			return true
		}
	}
	for _, m := range task.Watchers {
		if v.isMember(m.ID) {
			return true
		}
	}
	return false
}

// Principal is the authenticated caller placed on the request context.
type Principal struct {
	User   *models.User
	Tenant Tenant
	Viewer Viewer
}
