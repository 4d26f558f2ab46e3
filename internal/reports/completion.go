package reports

import (
	"sort"

	"github.com/yukikurage/taskflow-api/internal/models"
)

type StatusCounts struct {
	Completed  int `json:"completed"`
	Approved   int `json:"approved"`
	Rejected   int `json:"rejected"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`
}

type CompletionSummary struct {
	TotalTasks     int          `json:"total_tasks"`
	StatusCounts   StatusCounts `json:"status_counts"`
	CompletionRate float64      `json:"completion_rate"`
}

type KeyCount struct {
	Category       *string              `json:"category,omitempty"`
	Priority       *models.TaskPriority `json:"priority,omitempty"`
	TotalTasks     int                  `json:"total_tasks"`
	CompletedTasks int                  `json:"completed_tasks"`
	CompletionRate float64              `json:"completion_rate"`
}

// TaskCompletion reports status counts and completion throughput for tasks
// created in the date range.
func TaskCompletion(p Params, data Data) *Report {
	tasks := filterTasks(data.Tasks, func(t *models.Task) bool {
		if p.ProjectID != nil && (t.ProjectID == nil || *t.ProjectID != *p.ProjectID) {
			return false
		}
		if p.TeamMemberID != nil && (t.AssignedToID == nil || *t.AssignedToID != *p.TeamMemberID) {
			return false
		}
		return createdIn(t, p)
	})

	summary := CompletionSummary{TotalTasks: len(tasks)}
	for i := range tasks {
		switch tasks[i].Status {
		case models.TaskStatusCompleted:
			summary.StatusCounts.Completed++
		case models.TaskStatusApproved:
			summary.StatusCounts.Approved++
		case models.TaskStatusRejected:
			summary.StatusCounts.Rejected++
		case models.TaskStatusInProgress:
			summary.StatusCounts.InProgress++
		case models.TaskStatusPending:
			summary.StatusCounts.Pending++
		}
	}
	summary.CompletionRate = Rate(summary.StatusCounts.Completed+summary.StatusCounts.Approved, summary.TotalTasks)

	var grouped interface{}
	switch p.GroupBy {
	case GroupByDay:
		grouped = dailyCompletions(tasks, p)
	case GroupByMonth:
		grouped = monthly(tasks, nil)
	case GroupByProject:
		projects := byProject(tasks, true)
		sort.SliceStable(projects, func(i, j int) bool { return projects[i].ProjectName < projects[j].ProjectName })
		grouped = projects
	case GroupByCategory:
		grouped = byKey(tasks, func(t *models.Task) string { return t.Category }, func(k string, c *KeyCount) {
			c.Category = &k
		})
	case GroupByPriority:
		grouped = byKey(tasks, func(t *models.Task) string { return string(t.Priority) }, func(k string, c *KeyCount) {
			pr := models.TaskPriority(k)
			c.Priority = &pr
		})
	default:
		grouped = weekly(tasks, nil)
	}

	return &Report{Summary: summary, GroupedData: grouped}
}

// dailyCompletions needs both ends of the range; it is empty otherwise.
func dailyCompletions(tasks []models.Task, p Params) []DayCount {
	out := []DayCount{}
	if p.StartDate == nil || p.EndDate == nil {
		return out
	}
	_, counts := completionBuckets(tasks, func(d Date) Date { return d })
	for d := *p.StartDate; d.onOrBefore(*p.EndDate); d = d.AddDays(1) {
		out = append(out, DayCount{Date: d, CompletedTasks: counts[d]})
	}
	return out
}

func byKey(tasks []models.Task, key func(*models.Task) string, label func(string, *KeyCount)) []KeyCount {
	counts := map[string]*KeyCount{}
	var keys []string
	for i := range tasks {
		t := &tasks[i]
		k := key(t)
		c, ok := counts[k]
		if !ok {
			c = &KeyCount{}
			label(k, c)
			counts[k] = c
			keys = append(keys, k)
		}
		c.TotalTasks++
		if t.Status.Done() {
			c.CompletedTasks++
		}
	}
	sort.Strings(keys)

	out := make([]KeyCount, 0, len(keys))
	for _, k := range keys {
		c := counts[k]
		c.CompletionRate = Rate(c.CompletedTasks, c.TotalTasks)
		out = append(out, *c)
	}
	return out
}
