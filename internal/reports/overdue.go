package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/models"
)

type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityCritical Severity = "critical"
)

// SeverityFor buckets a number of days overdue.
func SeverityFor(days int) Severity {
	switch {
	case days <= 3:
		return SeverityMild
	case days <= 7:
		return SeverityModerate
	case days <= 14:
		return SeveritySevere
	default:
		return SeverityCritical
	}
}

// daysOverdue returns how many whole days t is past due. Only open tasks
// with a due date before today are overdue.
func daysOverdue(t *models.Task, today Date) (int, bool) {
	if t.DueDate == nil || !t.Status.Open() {
		return 0, false
	}
	due := DateOf(*t.DueDate)
	if !due.Before(today.Time) {
		return 0, false
	}
	return due.DaysUntil(today), true
}

type SeverityCounts struct {
	CriticalCount int `json:"critical_count"`
	SevereCount   int `json:"severe_count"`
	ModerateCount int `json:"moderate_count"`
	MildCount     int `json:"mild_count"`
}

func (c *SeverityCounts) add(s Severity) {
	switch s {
	case SeverityCritical:
		c.CriticalCount++
	case SeveritySevere:
		c.SevereCount++
	case SeverityModerate:
		c.ModerateCount++
	default:
		c.MildCount++
	}
}

type OverdueSummary struct {
	TotalOverdue int `json:"total_overdue"`
	SeverityCounts
	AvgDaysOverdue *float64 `json:"avg_days_overdue"`
}

type OverdueGroup struct {
	ProjectID      *uint64              `json:"project_id,omitempty"`
	ProjectName    *string              `json:"project_name,omitempty"`
	TeamMemberID   *uint64              `json:"team_member_id,omitempty"`
	Name           *string              `json:"name,omitempty"`
	Email          *string              `json:"email,omitempty"`
	Priority       *models.TaskPriority `json:"priority,omitempty"`
	Category       *string              `json:"category,omitempty"`
	OverdueTasks   int                  `json:"overdue_tasks"`
	AvgDaysOverdue float64              `json:"avg_days_overdue"`
	SeverityCounts

	days int
}

type OverdueTask struct {
	ID             uint64              `json:"id"`
	Title          string              `json:"title"`
	DueDate        Date                `json:"due_date"`
	DaysOverdue    int                 `json:"days_overdue"`
	Severity       Severity            `json:"severity"`
	Priority       models.TaskPriority `json:"priority"`
	AssignedToName *string             `json:"assigned_to_name"`
	ProjectName    *string             `json:"project_name"`
}

type overdueRow struct {
	task *models.Task
	days int
}

// OverdueTasks reports open tasks past their due date, bucketed by severity.
func OverdueTasks(p Params, data Data, now time.Time) *Report {
	today := DateOf(now)

	var rows []overdueRow
	for i := range data.Tasks {
		t := &data.Tasks[i]
		days, overdue := daysOverdue(t, today)
		if !overdue {
			continue
		}
		if p.ProjectID != nil && (t.ProjectID == nil || *t.ProjectID != *p.ProjectID) {
			continue
		}
		if p.TeamMemberID != nil && (t.AssignedToID == nil || *t.AssignedToID != *p.TeamMemberID) {
			continue
		}
		if p.DaysOverdue != nil && days < *p.DaysOverdue {
			continue
		}
		rows = append(rows, overdueRow{task: t, days: days})
	}

	summary := OverdueSummary{TotalOverdue: len(rows)}
	totalDays := 0
	for _, r := range rows {
		summary.add(SeverityFor(r.days))
		totalDays += r.days
	}
	if len(rows) > 0 {
		avg := float64(totalDays) / float64(len(rows))
		summary.AvgDaysOverdue = &avg
	}

	return &Report{
		Summary:     summary,
		GroupedData: groupOverdue(rows, p.GroupBy),
		MostOverdue: mostOverdue(rows),
	}
}

func groupOverdue(rows []overdueRow, by GroupBy) []OverdueGroup {
	index := map[string]int{}
	out := []OverdueGroup{}

	for _, r := range rows {
		t := r.task
		var key string
		var g OverdueGroup
		switch by {
		case GroupByTeamMember:
			if t.AssignedToID == nil || t.AssignedTo == nil {
				continue
			}
			id, name, email := *t.AssignedToID, t.AssignedTo.Name, t.AssignedTo.Email
			key, g.TeamMemberID, g.Name, g.Email = fmt.Sprintf("member:%d", id), &id, &name, &email
		case GroupByPriority:
			pr := t.Priority
			key, g.Priority = string(pr), &pr
		case GroupByCategory:
			c := t.Category
			key, g.Category = c, &c
		default:
			if t.ProjectID == nil || t.Project == nil {
				continue
			}
			id, name := *t.ProjectID, t.Project.Name
			key, g.ProjectID, g.ProjectName = fmt.Sprintf("project:%d", id), &id, &name
		}

		pos, ok := index[key]
		if !ok {
			pos = len(out)
			index[key] = pos
			out = append(out, g)
		}
		out[pos].OverdueTasks++
		out[pos].days += r.days
		out[pos].add(SeverityFor(r.days))
	}

	for i := range out {
		out[i].AvgDaysOverdue = float64(out[i].days) / float64(out[i].OverdueTasks)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OverdueTasks > out[j].OverdueTasks })
	return out
}

func mostOverdue(rows []overdueRow) []OverdueTask {
	sorted := make([]overdueRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].days > sorted[j].days })
	if len(sorted) > constants.MostOverdueLimit {
		sorted = sorted[:constants.MostOverdueLimit]
	}

	out := make([]OverdueTask, 0, len(sorted))
	for _, r := range sorted {
		t := r.task
		item := OverdueTask{
			ID:          t.ID,
			Title:       t.Title,
			DueDate:     DateOf(*t.DueDate),
			DaysOverdue: r.days,
			Severity:    SeverityFor(r.days),
			Priority:    t.Priority,
		}
		if t.AssignedTo != nil {
			name := t.AssignedTo.Name
			item.AssignedToName = &name
		}
		if t.Project != nil {
			name := t.Project.Name
			item.ProjectName = &name
		}
		out = append(out, item)
	}
	return out
}
