package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/yukikurage/taskflow-api/internal/models"
)

var hundred = decimal.NewFromInt(100)

// TimeSummary compares budgeted hours against time spent. Time spent is the
// estimate of finished tasks; TotalLoggedHours sums the time entry ledger.
type TimeSummary struct {
	TotalBudgetHours         float64 `json:"total_budget_hours"`
	TotalTimeSpent           float64 `json:"total_time_spent"`
	BudgetVariance           float64 `json:"budget_variance"`
	BudgetVariancePercentage float64 `json:"budget_variance_percentage"`
	TotalLoggedHours         float64 `json:"total_logged_hours"`
	BillableTasks            int     `json:"billable_tasks"`
	TotalTasks               int     `json:"total_tasks"`
}

type TimeGroup struct {
	ProjectID          *uint64 `json:"project_id,omitempty"`
	ProjectName        *string `json:"project_name,omitempty"`
	TeamMemberID       *uint64 `json:"team_member_id,omitempty"`
	Name               *string `json:"name,omitempty"`
	Email              *string `json:"email,omitempty"`
	BudgetHours        float64 `json:"budget_hours"`
	TimeSpent          float64 `json:"time_spent"`
	Variance           float64 `json:"variance"`
	VariancePercentage float64 `json:"variance_percentage"`
	BillableTasks      int     `json:"billable_tasks"`
	TotalTasks         int     `json:"total_tasks"`
}

type TimeBucket struct {
	Date        *Date   `json:"date,omitempty"`
	WeekStart   *Date   `json:"week_start,omitempty"`
	WeekEnd     *Date   `json:"week_end,omitempty"`
	Month       *Date   `json:"month,omitempty"`
	MonthName   string  `json:"month_name,omitempty"`
	BudgetHours float64 `json:"budget_hours"`
	TimeSpent   float64 `json:"time_spent"`
	TaskCount   int     `json:"task_count"`
}

type hourTotals struct {
	budget, estimated decimal.Decimal
	billable, count   int
}

func (h *hourTotals) add(t *models.Task) {
	h.budget = h.budget.Add(hours(t.BudgetHours))
	h.estimated = h.estimated.Add(hours(t.EstimatedHours))
	h.count++
	if t.IsBillable {
		h.billable++
	}
}

func (h *hourTotals) group() TimeGroup {
	variance := h.budget.Sub(h.estimated)
	return TimeGroup{
		BudgetHours:        h.budget.InexactFloat64(),
		TimeSpent:          h.estimated.InexactFloat64(),
		Variance:           variance.InexactFloat64(),
		VariancePercentage: percentOf(variance, h.budget),
		BillableTasks:      h.billable,
		TotalTasks:         h.count,
	}
}

func percentOf(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}

// TimeTracking reports budget against time spent for tasks with time
// tracking enabled.
func TimeTracking(p Params, data Data) *Report {
	tasks := filterTasks(data.Tasks, func(t *models.Task) bool {
		if !t.TimeTrackingEnabled {
			return false
		}
		if p.ProjectID != nil && (t.ProjectID == nil || *t.ProjectID != *p.ProjectID) {
			return false
		}
		if p.TeamMemberID != nil && (t.AssignedToID == nil || *t.AssignedToID != *p.TeamMemberID) {
			return false
		}
		if p.BillableOnly && !t.IsBillable {
			return false
		}
		return createdIn(t, p)
	})

	budget, spent, logged := decimal.Zero, decimal.Zero, decimal.Zero
	billable := 0
	for i := range tasks {
		t := &tasks[i]
		budget = budget.Add(hours(t.BudgetHours))
		if t.Status.Done() {
			spent = spent.Add(hours(t.EstimatedHours))
		}
		if t.IsBillable {
			billable++
		}
		for _, e := range t.TimeEntries {
			logged = logged.Add(e.Hours)
		}
	}
	variance := budget.Sub(spent)
	summary := TimeSummary{
		TotalBudgetHours:         budget.InexactFloat64(),
		TotalTimeSpent:           spent.InexactFloat64(),
		BudgetVariance:           variance.InexactFloat64(),
		BudgetVariancePercentage: percentOf(variance, budget),
		TotalLoggedHours:         logged.InexactFloat64(),
		BillableTasks:            billable,
		TotalTasks:               len(tasks),
	}

	var grouped interface{}
	switch p.GroupBy {
	case GroupByTeamMember:
		grouped = timeByMember(tasks)
	case GroupByDay:
		grouped = timeByDay(tasks, p)
	case GroupByWeek:
		grouped = timeByPeriod(tasks, Date.WeekStart, func(k Date, b *TimeBucket) {
			end := k.AddDays(6)
			b.WeekStart, b.WeekEnd = &k, &end
		})
	case GroupByMonth:
		grouped = timeByPeriod(tasks, Date.MonthStart, func(k Date, b *TimeBucket) {
			b.Month, b.MonthName = &k, k.Format("January 2006")
		})
	default:
		grouped = timeByProject(tasks)
	}

	return &Report{Summary: summary, GroupedData: grouped}
}

func timeByProject(tasks []models.Task) []TimeGroup {
	totals := map[uint64]*hourTotals{}
	names := map[uint64]string{}
	var ids []uint64
	for i := range tasks {
		t := &tasks[i]
		if t.ProjectID == nil || t.Project == nil {
			continue
		}
		id := *t.ProjectID
		if _, ok := totals[id]; !ok {
			totals[id] = &hourTotals{}
			names[id] = t.Project.Name
			ids = append(ids, id)
		}
		totals[id].add(t)
	}
	sort.SliceStable(ids, func(i, j int) bool { return names[ids[i]] < names[ids[j]] })

	out := make([]TimeGroup, 0, len(ids))
	for _, id := range ids {
		g := totals[id].group()
		id, name := id, names[id]
		g.ProjectID, g.ProjectName = &id, &name
		out = append(out, g)
	}
	return out
}

func timeByMember(tasks []models.Task) []TimeGroup {
	totals := map[uint64]*hourTotals{}
	members := map[uint64]*models.TeamMember{}
	var ids []uint64
	for i := range tasks {
		t := &tasks[i]
		if t.AssignedToID == nil || t.AssignedTo == nil {
			continue
		}
		id := *t.AssignedToID
		if _, ok := totals[id]; !ok {
			totals[id] = &hourTotals{}
			members[id] = t.AssignedTo
			ids = append(ids, id)
		}
		totals[id].add(t)
	}
	sort.SliceStable(ids, func(i, j int) bool { return members[ids[i]].Name < members[ids[j]].Name })

	out := make([]TimeGroup, 0, len(ids))
	for _, id := range ids {
		g := totals[id].group()
		m := members[id]
		id, name, email := id, m.Name, m.Email
		g.TeamMemberID, g.Name, g.Email = &id, &name, &email
		out = append(out, g)
	}
	return out
}

func timeByDay(tasks []models.Task, p Params) []TimeBucket {
	out := []TimeBucket{}
	if p.StartDate == nil || p.EndDate == nil {
		return out
	}
	for d := *p.StartDate; d.onOrBefore(*p.EndDate); d = d.AddDays(1) {
		var h hourTotals
		for i := range tasks {
			if DateOf(tasks[i].CreatedAt).Equal(d.Time) {
				h.add(&tasks[i])
			}
		}
		day := d
		out = append(out, TimeBucket{
			Date:        &day,
			BudgetHours: h.budget.InexactFloat64(),
			TimeSpent:   h.estimated.InexactFloat64(),
			TaskCount:   h.count,
		})
	}
	return out
}

// timeByPeriod buckets tasks by the period their creation falls in. No
// range check is applied to the buckets.
func timeByPeriod(tasks []models.Task, bucket func(Date) Date, label func(Date, *TimeBucket)) []TimeBucket {
	totals := map[Date]*hourTotals{}
	var keys []Date
	for i := range tasks {
		k := bucket(DateOf(tasks[i].CreatedAt))
		if _, ok := totals[k]; !ok {
			totals[k] = &hourTotals{}
			keys = append(keys, k)
		}
		totals[k].add(&tasks[i])
	}
	sortDates(keys)

	out := make([]TimeBucket, 0, len(keys))
	for _, k := range keys {
		h := totals[k]
		b := TimeBucket{
			BudgetHours: h.budget.InexactFloat64(),
			TimeSpent:   h.estimated.InexactFloat64(),
			TaskCount:   h.count,
		}
		label(k, &b)
		out = append(out, b)
	}
	return out
}
