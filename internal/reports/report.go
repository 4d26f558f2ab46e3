// Package reports computes the five report kinds over rows already loaded
// for one organization. Generators are pure: same rows, params and clock
// give the same report.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// Data is what a report is computed over. Tasks carry Project and
// AssignedTo; time tracking reports also need TimeEntries.
type Data struct {
	Projects []models.Project
	Members  []models.TeamMember
	Tasks    []models.Task
}

// Report is the envelope shared by every report kind.
type Report struct {
	ReportType  models.ReportType `json:"report_type"`
	GeneratedAt time.Time         `json:"generated_at"`
	Parameters  Params            `json:"parameters"`
	DateRange   *DateRange        `json:"date_range,omitempty"`
	Summary     interface{}       `json:"summary"`
	GroupedData interface{}       `json:"grouped_data"`
	MostOverdue []OverdueTask     `json:"most_overdue,omitempty"`
}

type DateRange struct {
	StartDate Date `json:"start_date"`
	EndDate   Date `json:"end_date"`
}

// Generate validates params and dispatches to the generator for kind.
func Generate(kind models.ReportType, params Params, data Data, now time.Time) (*Report, error) {
	p, err := params.Validate(kind)
	if err != nil {
		return nil, err
	}

	var r *Report
	switch kind {
	case models.ReportProjectStatus:
		r = ProjectStatus(p, data, now)
	case models.ReportTeamProductivity:
		r = TeamProductivity(p, data, now)
	case models.ReportTaskCompletion:
		r = TaskCompletion(p, data)
	case models.ReportTimeTracking:
		r = TimeTracking(p, data)
	default:
		r = OverdueTasks(p, data, now)
	}

	r.ReportType = kind
	r.GeneratedAt = now
	r.Parameters = p
	return r, nil
}

// Rate is part/total as a percentage, 0 when total is 0.
func Rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func hours(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

func createdIn(t *models.Task, p Params) bool {
	created := DateOf(t.CreatedAt)
	if p.StartDate != nil && created.Before(p.StartDate.Time) {
		return false
	}
	if p.EndDate != nil && created.After(p.EndDate.Time) {
		return false
	}
	return true
}

func filterTasks(tasks []models.Task, keep func(*models.Task) bool) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for i := range tasks {
		if keep(&tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	return out
}

func countDone(tasks []models.Task) int {
	n := 0
	for i := range tasks {
		if tasks[i].Status.Done() {
			n++
		}
	}
	return n
}

type WeekCount struct {
	WeekStart      Date `json:"week_start"`
	WeekEnd        Date `json:"week_end"`
	CompletedTasks int  `json:"completed_tasks"`
}

type MonthCount struct {
	Month          Date   `json:"month"`
	MonthName      string `json:"month_name"`
	CompletedTasks int    `json:"completed_tasks"`
}

type DayCount struct {
	Date           Date `json:"date"`
	TotalTasks     *int `json:"total_tasks,omitempty"`
	CompletedTasks int  `json:"completed_tasks"`
}

// completionBuckets counts finished tasks by the bucket their completion
// falls in, ordered by bucket.
func completionBuckets(tasks []models.Task, bucket func(Date) Date) ([]Date, map[Date]int) {
	counts := map[Date]int{}
	var keys []Date
	for i := range tasks {
		t := &tasks[i]
		if !t.Status.Done() || t.CompletedAt == nil {
			continue
		}
		k := bucket(DateOf(*t.CompletedAt))
		if _, seen := counts[k]; !seen {
			keys = append(keys, k)
		}
		counts[k]++
	}
	sortDates(keys)
	return keys, counts
}

func weekly(tasks []models.Task, within func(Date) bool) []WeekCount {
	keys, counts := completionBuckets(tasks, Date.WeekStart)
	out := make([]WeekCount, 0, len(keys))
	for _, k := range keys {
		if within != nil && !within(k) {
			continue
		}
		out = append(out, WeekCount{WeekStart: k, WeekEnd: k.AddDays(6), CompletedTasks: counts[k]})
	}
	return out
}

func monthly(tasks []models.Task, within func(Date) bool) []MonthCount {
	keys, counts := completionBuckets(tasks, Date.MonthStart)
	out := make([]MonthCount, 0, len(keys))
	for _, k := range keys {
		if within != nil && !within(k) {
			continue
		}
		out = append(out, MonthCount{Month: k, MonthName: k.Format("January 2006"), CompletedTasks: counts[k]})
	}
	return out
}
