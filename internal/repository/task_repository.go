package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

var taskJoinTables = []string{"task_assignees", "task_approvers", "task_watchers", "task_prerequisites", "task_links"}

// Create creates a new task, its relation sets and the creation history row
func (r *GormTaskRepository) Create(task *models.Task, sets TaskSets, history *models.TaskHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return err
		}
		if err := replaceTaskSets(tx, task, sets); err != nil {
			return err
		}
		if history == nil {
			return nil
		}
		history.TaskID = task.ID
		return tx.Create(history).Error
	})
}

// FindByID finds a task by ID within scope, with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, scope Scope, preload ...string) (*models.Task, error) {
	var task models.Task
	query := applyScope(r.db.Model(&models.Task{}), scope)

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.Where("tasks.id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := applyScope(r.db.Model(&models.Task{}), filter.Scope)

	// Apply filters
	if len(filter.Statuses) > 0 {
		query = query.Where("tasks.status IN ?", filter.Statuses)
	}
	if len(filter.Priorities) > 0 {
		query = query.Where("tasks.priority IN ?", filter.Priorities)
	}
	if filter.AssignedToID != nil {
		query = query.Where("tasks.assigned_to_id = ?", *filter.AssignedToID)
	}
	if filter.CreatedByID != nil {
		query = query.Where("tasks.created_by_id = ?", *filter.CreatedByID)
	}
	if filter.ProjectID != nil {
		query = query.Where("tasks.project_id = ?", *filter.ProjectID)
	}
	if filter.DueAfter != nil {
		query = query.Where("tasks.due_date >= ?", *filter.DueAfter)
	}
	if filter.DueBefore != nil {
		query = query.Where("tasks.due_date <= ?", *filter.DueBefore)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("(tasks.title LIKE ? OR tasks.description LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.created_at DESC").Order("tasks.id DESC").
		Scopes(database.Paginate(filter.Pagination))

	if err := listQuery.
		Preload("Project").
		Preload("AssignedTo").
		Preload("CreatedBy").
		Preload("Assignees").
		Preload("Watchers").
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update saves the task, replaces the sets present in sets and appends history
func (r *GormTaskRepository) Update(task *models.Task, sets TaskSets, history []models.TaskHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(task).Error; err != nil {
			return err
		}
		if err := replaceTaskSets(tx, task, sets); err != nil {
			return err
		}
		for i := range history {
			history[i].TaskID = task.ID
			if err := tx.Create(&history[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete soft deletes a task
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, join := range taskJoinTables {
			if err := tx.Exec("DELETE FROM "+join+" WHERE task_id = ?", id).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec("DELETE FROM task_prerequisites WHERE prerequisite_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM task_links WHERE linked_task_id = ?", id).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Task{}, id).Error
	})
}

// FindByIDs returns the organization's tasks among ids
func (r *GormTaskRepository) FindByIDs(organizationID uint64, ids []uint64) ([]models.Task, error) {
	var tasks []models.Task
	if len(ids) == 0 {
		return tasks, nil
	}
	if err := r.db.Where("organization_id = ? AND id IN ?", organizationID, ids).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListHistory returns a task's history, newest first
func (r *GormTaskRepository) ListHistory(taskID uint64) ([]models.TaskHistory, error) {
	var history []models.TaskHistory
	if err := r.db.Preload("Actor").
		Where("task_id = ?", taskID).
		Order("timestamp DESC").Order("id DESC").
		Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

// AddComment stores a comment and its history row
func (r *GormTaskRepository) AddComment(comment *models.Comment, history *models.TaskHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author").Create(comment).Error; err != nil {
			return err
		}
		return tx.Create(history).Error
	})
}

// ListComments returns a task's comments, oldest first
func (r *GormTaskRepository) ListComments(taskID uint64) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.Preload("Author").
		Where("task_id = ?", taskID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// AddAttachment stores attachment metadata and its history row
func (r *GormTaskRepository) AddAttachment(attachment *models.TaskAttachment, history *models.TaskHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attachment).Error; err != nil {
			return err
		}
		return tx.Create(history).Error
	})
}

// AddTimeEntry stores a time entry and its history row
func (r *GormTaskRepository) AddTimeEntry(entry *models.TimeEntry, history *models.TaskHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return tx.Create(history).Error
	})
}

func replaceTaskSets(tx *gorm.DB, task *models.Task, sets TaskSets) error {
	members := []struct {
		name string
		ids  *[]uint64
	}{
		{"Assignees", sets.Assignees},
		{"Approvers", sets.Approvers},
		{"Watchers", sets.Watchers},
	}
	for _, m := range members {
		if m.ids == nil {
			continue
		}
		if err := replaceMembers(tx, task, m.name, *m.ids); err != nil {
			return err
		}
	}

	related := []struct {
		name string
		ids  *[]uint64
	}{
		{"Prerequisites", sets.Prerequisites},
		{"LinkedTasks", sets.LinkedTasks},
	}
	for _, rel := range related {
		if rel.ids == nil {
			continue
		}
		assoc := tx.Model(task).Association(rel.name)
		if len(*rel.ids) == 0 {
			if err := assoc.Clear(); err != nil {
				return err
			}
			continue
		}
		tasks := make([]models.Task, len(*rel.ids))
		for i, id := range *rel.ids {
			tasks[i] = models.Task{ID: id}
		}
		if err := assoc.Replace(tasks); err != nil {
			return err
		}
	}
	return nil
}
