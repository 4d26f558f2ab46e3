package reports

import (
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
)

type ProjectStatusEntry struct {
	ID                   uint64               `json:"id"`
	Name                 string               `json:"name"`
	Status               models.ProjectStatus `json:"status"`
	StartDate            *Date                `json:"start_date"`
	EndDate              *Date                `json:"end_date"`
	DaysRemaining        *int                 `json:"days_remaining"`
	DaysTotal            *int                 `json:"days_total"`
	TimelinePercentage   *float64             `json:"timeline_percentage"`
	TotalTasks           int                  `json:"total_tasks"`
	CompletedTasks       int                  `json:"completed_tasks"`
	InProgressTasks      int                  `json:"in_progress_tasks"`
	PendingTasks         int                  `json:"pending_tasks"`
	OverdueTasks         int                  `json:"overdue_tasks"`
	CompletionPercentage float64              `json:"completion_percentage"`
	TeamMembersCount     int                  `json:"team_members_count"`
}

type ProjectStatusSummary struct {
	TotalProjects        int     `json:"total_projects"`
	TotalTasks           int     `json:"total_tasks"`
	CompletedTasks       int     `json:"completed_tasks"`
	OverdueTasks         int     `json:"overdue_tasks"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// ProjectStatus reports task progress and timeline position per project.
func ProjectStatus(p Params, data Data, now time.Time) *Report {
	today := DateOf(now)
	summary := ProjectStatusSummary{}
	entries := make([]ProjectStatusEntry, 0, len(data.Projects))

	for i := range data.Projects {
		project := &data.Projects[i]
		if p.ProjectID != nil && project.ID != *p.ProjectID {
			continue
		}

		tasks := filterTasks(data.Tasks, func(t *models.Task) bool {
			return t.ProjectID != nil && *t.ProjectID == project.ID && touchesRange(t, p)
		})

		entry := ProjectStatusEntry{
			ID:               project.ID,
			Name:             project.Name,
			Status:           project.Status,
			StartDate:        dateOfPtr(project.StartDate),
			EndDate:          dateOfPtr(project.EndDate),
			TotalTasks:       len(tasks),
			CompletedTasks:   countDone(tasks),
			TeamMembersCount: len(project.TeamMembers),
		}
		for j := range tasks {
			switch tasks[j].Status {
			case models.TaskStatusInProgress:
				entry.InProgressTasks++
			case models.TaskStatusPending:
				entry.PendingTasks++
			}
			if _, overdue := daysOverdue(&tasks[j], today); overdue {
				entry.OverdueTasks++
			}
		}
		entry.CompletionPercentage = Rate(entry.CompletedTasks, entry.TotalTasks)
		timeline(&entry, today)

		summary.TotalProjects++
		summary.TotalTasks += entry.TotalTasks
		summary.CompletedTasks += entry.CompletedTasks
		summary.OverdueTasks += entry.OverdueTasks
		entries = append(entries, entry)
	}
	summary.CompletionPercentage = Rate(summary.CompletedTasks, summary.TotalTasks)

	return &Report{Summary: summary, GroupedData: entries}
}

// touchesRange keeps a task when its due date or creation day reaches into
// the requested range from each side.
func touchesRange(t *models.Task, p Params) bool {
	created := DateOf(t.CreatedAt)
	due := dateOfPtr(t.DueDate)
	if p.StartDate != nil {
		if !created.onOrAfter(*p.StartDate) && (due == nil || !due.onOrAfter(*p.StartDate)) {
			return false
		}
	}
	if p.EndDate != nil {
		if !created.onOrBefore(*p.EndDate) && (due == nil || !due.onOrBefore(*p.EndDate)) {
			return false
		}
	}
	return true
}

func timeline(e *ProjectStatusEntry, today Date) {
	if e.StartDate == nil || e.EndDate == nil {
		return
	}
	total := e.StartDate.DaysUntil(*e.EndDate)
	var remaining int
	var pct float64

	switch {
	case today.Before(e.StartDate.Time):
		remaining = total
	case today.After(e.EndDate.Time):
		pct = 100
	default:
		remaining = today.DaysUntil(*e.EndDate)
		if total > 0 {
			pct = float64(e.StartDate.DaysUntil(today)) / float64(total) * 100
		}
	}

	e.DaysTotal, e.DaysRemaining, e.TimelinePercentage = &total, &remaining, &pct
}
