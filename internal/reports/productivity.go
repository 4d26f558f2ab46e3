package reports

import (
	"time"

	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/models"
)

type MemberRef struct {
	ID    uint64  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Title *string `json:"title"`
}

type ProductivityMetrics struct {
	TotalTasks           int     `json:"total_tasks"`
	CompletedTasks       int     `json:"completed_tasks"`
	CompletionRate       float64 `json:"completion_rate"`
	OnTimeCompletionRate float64 `json:"on_time_completion_rate"`
}

type ProjectCount struct {
	ProjectID      uint64   `json:"project_id"`
	ProjectName    string   `json:"project_name"`
	TotalTasks     int      `json:"total_tasks"`
	CompletedTasks int      `json:"completed_tasks"`
	CompletionRate *float64 `json:"completion_rate,omitempty"`
}

type MemberProductivity struct {
	TeamMember MemberRef           `json:"team_member"`
	Metrics    ProductivityMetrics `json:"metrics"`
	TrendData  interface{}         `json:"trend_data"`
}

type ProductivitySummary struct {
	TeamMembers    int     `json:"team_members"`
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	CompletionRate float64 `json:"completion_rate"`
}

// TeamProductivity reports per member throughput over a date window that
// defaults to the last 30 days.
func TeamProductivity(p Params, data Data, now time.Time) *Report {
	end := DateOf(now)
	if p.EndDate != nil {
		end = *p.EndDate
	}
	start := DateOf(now).AddDays(-constants.DefaultProductivityWindowDays)
	if p.StartDate != nil {
		start = *p.StartDate
	}
	inRange := func(d Date) bool { return d.within(start, end) }

	summary := ProductivitySummary{}
	entries := make([]MemberProductivity, 0, len(data.Members))

	for i := range data.Members {
		member := &data.Members[i]
		if p.TeamMemberID != nil && member.ID != *p.TeamMemberID {
			continue
		}

		tasks := filterTasks(data.Tasks, func(t *models.Task) bool {
			if t.AssignedToID == nil || *t.AssignedToID != member.ID {
				return false
			}
			created := DateOf(t.CreatedAt)
			completed := dateOfPtr(t.CompletedAt)
			after := created.onOrAfter(start) || (completed != nil && completed.onOrAfter(start))
			before := created.onOrBefore(end) || (completed != nil && completed.onOrBefore(end))
			return after && before
		})

		metrics := memberMetrics(tasks)
		var trend interface{}
		switch p.GroupBy {
		case GroupByDay:
			trend = dailyActivity(tasks, start, end)
		case GroupByMonth:
			trend = monthly(tasks, inRange)
		case GroupByProject:
			trend = byProject(tasks, false)
		default:
			trend = weekly(tasks, inRange)
		}

		ref := MemberRef{ID: member.ID, Name: member.Name, Email: member.Email}
		if member.Title != nil {
			ref.Title = &member.Title.Name
		}
		entries = append(entries, MemberProductivity{TeamMember: ref, Metrics: metrics, TrendData: trend})

		summary.TeamMembers++
		summary.TotalTasks += metrics.TotalTasks
		summary.CompletedTasks += metrics.CompletedTasks
	}
	summary.CompletionRate = Rate(summary.CompletedTasks, summary.TotalTasks)

	return &Report{
		DateRange:   &DateRange{StartDate: start, EndDate: end},
		Summary:     summary,
		GroupedData: entries,
	}
}

func memberMetrics(tasks []models.Task) ProductivityMetrics {
	m := ProductivityMetrics{TotalTasks: len(tasks)}
	onTime := 0
	for i := range tasks {
		t := &tasks[i]
		if !t.Status.Done() {
			continue
		}
		m.CompletedTasks++
		if t.DueDate != nil && t.CompletedAt != nil && !t.CompletedAt.After(*t.DueDate) {
			onTime++
		}
	}
	m.CompletionRate = Rate(m.CompletedTasks, m.TotalTasks)
	m.OnTimeCompletionRate = Rate(onTime, m.CompletedTasks)
	return m
}

// dailyActivity emits one row per day in [start, end]: tasks created or
// completed that day, and how many of them were finished that day.
func dailyActivity(tasks []models.Task, start, end Date) []DayCount {
	var out []DayCount
	for d := start; d.onOrBefore(end); d = d.AddDays(1) {
		total, done := 0, 0
		for i := range tasks {
			t := &tasks[i]
			completed := dateOfPtr(t.CompletedAt)
			completedToday := completed != nil && completed.Equal(d.Time)
			if !DateOf(t.CreatedAt).Equal(d.Time) && !completedToday {
				continue
			}
			total++
			if t.Status.Done() && completedToday {
				done++
			}
		}
		out = append(out, DayCount{Date: d, TotalTasks: &total, CompletedTasks: done})
	}
	return out
}

// byProject counts tasks per project in first-seen order. Tasks without a
// project are skipped.
func byProject(tasks []models.Task, withRate bool) []ProjectCount {
	index := map[uint64]int{}
	var out []ProjectCount
	for i := range tasks {
		t := &tasks[i]
		if t.ProjectID == nil || t.Project == nil {
			continue
		}
		pos, ok := index[*t.ProjectID]
		if !ok {
			pos = len(out)
			index[*t.ProjectID] = pos
			out = append(out, ProjectCount{ProjectID: *t.ProjectID, ProjectName: t.Project.Name})
		}
		out[pos].TotalTasks++
		if t.Status.Done() {
			out[pos].CompletedTasks++
		}
	}
	if withRate {
		for i := range out {
			r := Rate(out[i].CompletedTasks, out[i].TotalTasks)
			out[i].CompletionRate = &r
		}
	}
	return out
}
