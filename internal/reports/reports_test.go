package reports

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukikurage/taskflow-api/internal/models"
)

var now = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(s string) *time.Time { return ptr(day(s)) }

func datePtr(s string) *Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func hoursOf(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

var (
	alice   = models.TeamMember{ID: 1, OrganizationID: 1, Name: "Alice", Email: "alice@example.com"}
	bob     = models.TeamMember{ID: 2, OrganizationID: 1, Name: "Bob", Email: "bob@example.com"}
	website = models.Project{ID: 10, Name: "Website", OrganizationID: 1}
	mobile  = models.Project{ID: 11, Name: "Mobile", OrganizationID: 1}
)

func task(id uint64, status models.TaskStatus) models.Task {
	return models.Task{
		ID:             id,
		Title:          "Task",
		Status:         status,
		Priority:       models.TaskPriorityMedium,
		OrganizationID: 1,
		CreatedAt:      day("2024-03-01"),
	}
}

func inProject(t models.Task, p *models.Project) models.Task {
	t.ProjectID, t.Project = &p.ID, p
	return t
}

func assigned(t models.Task, m *models.TeamMember) models.Task {
	t.AssignedToID, t.AssignedTo = &m.ID, m
	return t
}

func TestRate_ZeroTotal(t *testing.T) {
	assert.Equal(t, 0.0, Rate(0, 0))
	assert.Equal(t, 50.0, Rate(1, 2))
}

func TestCompletionRate_EmptyDataIsZero(t *testing.T) {
	data := Data{Projects: []models.Project{website}, Members: []models.TeamMember{alice}}

	ps := ProjectStatus(Params{}, data, now)
	entries := ps.GroupedData.([]ProjectStatusEntry)
	require.Len(t, entries, 1)
	assert.Equal(t, 0.0, entries[0].CompletionPercentage)
	assert.Equal(t, 0.0, ps.Summary.(ProjectStatusSummary).CompletionPercentage)

	tp := TeamProductivity(Params{GroupBy: GroupByWeek}, data, now)
	members := tp.GroupedData.([]MemberProductivity)
	require.Len(t, members, 1)
	assert.Equal(t, 0.0, members[0].Metrics.CompletionRate)
	assert.Equal(t, 0.0, members[0].Metrics.OnTimeCompletionRate)

	tc := TaskCompletion(Params{GroupBy: GroupByWeek}, data)
	assert.Equal(t, 0.0, tc.Summary.(CompletionSummary).CompletionRate)

	tt := TimeTracking(Params{GroupBy: GroupByProject}, data)
	assert.Equal(t, 0.0, tt.Summary.(TimeSummary).BudgetVariancePercentage)

	od := OverdueTasks(Params{GroupBy: GroupByProject}, data, now)
	assert.Nil(t, od.Summary.(OverdueSummary).AvgDaysOverdue)
}

func TestTimeTracking_TimeSpentCountsFinishedEstimatesOnly(t *testing.T) {
	done := inProject(task(1, models.TaskStatusCompleted), &website)
	done.TimeTrackingEnabled = true
	done.EstimatedHours, done.BudgetHours = hoursOf(8), hoursOf(10)
	done.TimeEntries = []models.TimeEntry{{Hours: decimal.RequireFromString("2.5")}, {Hours: decimal.NewFromInt(4)}}

	open := inProject(task(2, models.TaskStatusInProgress), &website)
	open.TimeTrackingEnabled = true
	open.EstimatedHours, open.BudgetHours = hoursOf(5), hoursOf(20)

	untracked := inProject(task(3, models.TaskStatusCompleted), &website)
	untracked.EstimatedHours, untracked.BudgetHours = hoursOf(100), hoursOf(100)

	r := TimeTracking(Params{GroupBy: GroupByProject}, Data{Tasks: []models.Task{done, open, untracked}})

	summary := r.Summary.(TimeSummary)
	assert.Equal(t, 30.0, summary.TotalBudgetHours)
	assert.Equal(t, 8.0, summary.TotalTimeSpent)
	assert.Equal(t, 22.0, summary.BudgetVariance)
	assert.InDelta(t, 73.333, summary.BudgetVariancePercentage, 0.001)
	assert.Equal(t, 6.5, summary.TotalLoggedHours)
	assert.Equal(t, 2, summary.TotalTasks)

	groups := r.GroupedData.([]TimeGroup)
	require.Len(t, groups, 1)
	assert.Equal(t, "Website", *groups[0].ProjectName)
	assert.Equal(t, 30.0, groups[0].BudgetHours)
	assert.Equal(t, 13.0, groups[0].TimeSpent)
	assert.Equal(t, 2, groups[0].TotalTasks)
}

func TestTimeTracking_BillableOnlyAndMemberGrouping(t *testing.T) {
	a := assigned(task(1, models.TaskStatusPending), &bob)
	a.TimeTrackingEnabled, a.IsBillable = true, true
	a.BudgetHours = hoursOf(4)
	b := assigned(task(2, models.TaskStatusPending), &alice)
	b.TimeTrackingEnabled, b.IsBillable = true, true
	b.BudgetHours = hoursOf(6)
	c := assigned(task(3, models.TaskStatusPending), &alice)
	c.TimeTrackingEnabled = true
	c.BudgetHours = hoursOf(50)

	r := TimeTracking(Params{GroupBy: GroupByTeamMember, BillableOnly: true}, Data{Tasks: []models.Task{a, b, c}})

	assert.Equal(t, 10.0, r.Summary.(TimeSummary).TotalBudgetHours)
	groups := r.GroupedData.([]TimeGroup)
	require.Len(t, groups, 2)
	assert.Equal(t, "Alice", *groups[0].Name)
	assert.Equal(t, "Bob", *groups[1].Name)
	assert.Equal(t, 1, groups[0].BillableTasks)
}

func TestTeamProductivity_OnTimeCompletionRate(t *testing.T) {
	onTime := assigned(task(1, models.TaskStatusCompleted), &alice)
	onTime.DueDate, onTime.CompletedAt = dayPtr("2024-03-10"), dayPtr("2024-03-08")

	late := assigned(task(2, models.TaskStatusApproved), &bob)
	late.DueDate, late.CompletedAt = dayPtr("2024-03-05"), dayPtr("2024-03-08")

	data := Data{Members: []models.TeamMember{alice, bob}, Tasks: []models.Task{onTime, late}}
	r := TeamProductivity(Params{GroupBy: GroupByWeek}, data, now)

	require.NotNil(t, r.DateRange)
	assert.Equal(t, "2024-02-14", r.DateRange.StartDate.String())
	assert.Equal(t, "2024-03-15", r.DateRange.EndDate.String())

	entries := r.GroupedData.([]MemberProductivity)
	require.Len(t, entries, 2)
	assert.Equal(t, "Alice", entries[0].TeamMember.Name)
	assert.Equal(t, 100.0, entries[0].Metrics.OnTimeCompletionRate)
	assert.Equal(t, 100.0, entries[0].Metrics.CompletionRate)
	assert.Equal(t, "Bob", entries[1].TeamMember.Name)
	assert.Equal(t, 0.0, entries[1].Metrics.OnTimeCompletionRate)
}

// Due and completion instants are compared as timestamps, not calendar days.
func TestTeamProductivity_OnTimeComparesInstants(t *testing.T) {
	sameDayLate := assigned(task(1, models.TaskStatusCompleted), &alice)
	sameDayLate.DueDate = ptr(time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC))
	sameDayLate.CompletedAt = ptr(time.Date(2024, 3, 8, 17, 0, 0, 0, time.UTC))

	exactlyOnTime := assigned(task(2, models.TaskStatusCompleted), &bob)
	exactlyOnTime.DueDate = ptr(time.Date(2024, 3, 8, 17, 0, 0, 0, time.UTC))
	exactlyOnTime.CompletedAt = ptr(time.Date(2024, 3, 8, 17, 0, 0, 0, time.UTC))

	data := Data{Members: []models.TeamMember{alice, bob}, Tasks: []models.Task{sameDayLate, exactlyOnTime}}
	r := TeamProductivity(Params{GroupBy: GroupByWeek}, data, now)

	entries := r.GroupedData.([]MemberProductivity)
	require.Len(t, entries, 2)
	assert.Equal(t, 0.0, entries[0].Metrics.OnTimeCompletionRate)
	assert.Equal(t, 100.0, entries[1].Metrics.OnTimeCompletionRate)
}

func TestTeamProductivity_MemberFilterAndDailyTrend(t *testing.T) {
	created := assigned(task(1, models.TaskStatusPending), &alice)
	created.CreatedAt = day("2024-03-02")

	finished := assigned(task(2, models.TaskStatusCompleted), &alice)
	finished.CreatedAt = day("2024-02-20")
	finished.CompletedAt = dayPtr("2024-03-03")

	other := assigned(task(3, models.TaskStatusPending), &bob)

	params := Params{TeamMemberID: &alice.ID, StartDate: datePtr("2024-03-01"), EndDate: datePtr("2024-03-03"), GroupBy: GroupByDay}
	r := TeamProductivity(params, Data{Members: []models.TeamMember{alice, bob}, Tasks: []models.Task{created, finished, other}}, now)

	entries := r.GroupedData.([]MemberProductivity)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Metrics.TotalTasks)

	trend := entries[0].TrendData.([]DayCount)
	require.Len(t, trend, 3)
	assert.Equal(t, 0, *trend[0].TotalTasks)
	assert.Equal(t, 1, *trend[1].TotalTasks)
	assert.Equal(t, 0, trend[1].CompletedTasks)
	assert.Equal(t, 1, *trend[2].TotalTasks)
	assert.Equal(t, 1, trend[2].CompletedTasks)
}

// Productivity drops week and month buckets that start before the range.
// Task completion keeps them.
func TestMonthBuckets_RangeCheckDiffersByReport(t *testing.T) {
	done := assigned(inProject(task(1, models.TaskStatusCompleted), &website), &alice)
	done.CreatedAt = day("2024-03-12")
	done.CompletedAt = dayPtr("2024-03-14")

	data := Data{Members: []models.TeamMember{alice}, Tasks: []models.Task{done}}
	params := Params{StartDate: datePtr("2024-03-10"), EndDate: datePtr("2024-03-31")}

	params.GroupBy = GroupByMonth
	productivity := TeamProductivity(params, data, now).GroupedData.([]MemberProductivity)
	assert.Empty(t, productivity[0].TrendData.([]MonthCount))

	completion := TaskCompletion(params, data).GroupedData.([]MonthCount)
	require.Len(t, completion, 1)
	assert.Equal(t, "2024-03-01", completion[0].Month.String())
	assert.Equal(t, "March 2024", completion[0].MonthName)
	assert.Equal(t, 1, completion[0].CompletedTasks)

	params.GroupBy = GroupByWeek
	weeks := TeamProductivity(params, data, now).GroupedData.([]MemberProductivity)[0].TrendData.([]WeekCount)
	require.Len(t, weeks, 1)
	assert.Equal(t, "2024-03-11", weeks[0].WeekStart.String())
	assert.Equal(t, "2024-03-17", weeks[0].WeekEnd.String())
}

func TestTaskCompletion_StatusCountsAndGroups(t *testing.T) {
	tasks := []models.Task{
		inProject(task(1, models.TaskStatusCompleted), &website),
		inProject(task(2, models.TaskStatusApproved), &mobile),
		inProject(task(3, models.TaskStatusRejected), &website),
		task(4, models.TaskStatusPending),
	}
	tasks[0].Category, tasks[1].Category = "design", "backend"
	tasks[0].Priority = models.TaskPriorityHigh

	r := TaskCompletion(Params{GroupBy: GroupByProject}, Data{Tasks: tasks})
	summary := r.Summary.(CompletionSummary)
	assert.Equal(t, 4, summary.TotalTasks)
	assert.Equal(t, StatusCounts{Completed: 1, Approved: 1, Rejected: 1, Pending: 1}, summary.StatusCounts)
	assert.Equal(t, 50.0, summary.CompletionRate)

	projects := r.GroupedData.([]ProjectCount)
	require.Len(t, projects, 2)
	assert.Equal(t, "Mobile", projects[0].ProjectName)
	assert.Equal(t, 100.0, *projects[0].CompletionRate)
	assert.Equal(t, "Website", projects[1].ProjectName)
	assert.Equal(t, 50.0, *projects[1].CompletionRate)

	categories := TaskCompletion(Params{GroupBy: GroupByCategory}, Data{Tasks: tasks}).GroupedData.([]KeyCount)
	require.Len(t, categories, 3)
	assert.Equal(t, "", *categories[0].Category)
	assert.Equal(t, "backend", *categories[1].Category)
	assert.Equal(t, "design", *categories[2].Category)

	days := TaskCompletion(Params{GroupBy: GroupByDay}, Data{Tasks: tasks}).GroupedData.([]DayCount)
	assert.Empty(t, days)
}

func TestSeverityFor(t *testing.T) {
	cases := map[int]Severity{
		1: SeverityMild, 3: SeverityMild,
		4: SeverityModerate, 7: SeverityModerate,
		8: SeveritySevere, 14: SeveritySevere,
		15: SeverityCritical, 90: SeverityCritical,
	}
	for days, want := range cases {
		assert.Equal(t, want, SeverityFor(days), "days=%d", days)
	}
}

func TestOverdueTasks_OnlyOpenTasksPastDue(t *testing.T) {
	due := now.AddDate(0, 0, -5)

	inProgress := inProject(task(1, models.TaskStatusInProgress), &website)
	inProgress.DueDate = &due
	completed := inProject(task(2, models.TaskStatusCompleted), &website)
	completed.DueDate = &due
	dueToday := inProject(task(3, models.TaskStatusPending), &website)
	dueToday.DueDate = ptr(now)

	r := OverdueTasks(Params{GroupBy: GroupByProject}, Data{Tasks: []models.Task{inProgress, completed, dueToday}}, now)

	summary := r.Summary.(OverdueSummary)
	assert.Equal(t, 1, summary.TotalOverdue)
	assert.Equal(t, 1, summary.ModerateCount)
	require.NotNil(t, summary.AvgDaysOverdue)
	assert.Equal(t, 5.0, *summary.AvgDaysOverdue)

	require.Len(t, r.MostOverdue, 1)
	assert.Equal(t, uint64(1), r.MostOverdue[0].ID)
	assert.Equal(t, SeverityModerate, r.MostOverdue[0].Severity)
	assert.Equal(t, "Website", *r.MostOverdue[0].ProjectName)
	assert.Nil(t, r.MostOverdue[0].AssignedToName)

	filtered := OverdueTasks(Params{GroupBy: GroupByProject, DaysOverdue: ptr(6)}, Data{Tasks: []models.Task{inProgress}}, now)
	assert.Equal(t, 0, filtered.Summary.(OverdueSummary).TotalOverdue)
}

func TestOverdueTasks_GroupsSortedByCount(t *testing.T) {
	var tasks []models.Task
	for i, p := range []*models.Project{&website, &mobile, &mobile, &mobile, &website} {
		tk := inProject(task(uint64(i+1), models.TaskStatusPending), p)
		tk.DueDate = ptr(now.AddDate(0, 0, -(i + 1)*4))
		tasks = append(tasks, tk)
	}
	tasks = append(tasks, task(99, models.TaskStatusPending))
	tasks[5].DueDate = ptr(now.AddDate(0, 0, -1))

	r := OverdueTasks(Params{GroupBy: GroupByProject}, Data{Tasks: tasks}, now)

	assert.Equal(t, 6, r.Summary.(OverdueSummary).TotalOverdue)
	groups := r.GroupedData.([]OverdueGroup)
	require.Len(t, groups, 2)
	assert.Equal(t, "Mobile", *groups[0].ProjectName)
	assert.Equal(t, 3, groups[0].OverdueTasks)
	assert.Equal(t, 12.0, groups[0].AvgDaysOverdue)
	assert.Equal(t, "Website", *groups[1].ProjectName)
	assert.Equal(t, 1, groups[1].CriticalCount)
	assert.Equal(t, 1, groups[1].ModerateCount)

	assert.Equal(t, uint64(5), r.MostOverdue[0].ID)
	assert.Equal(t, 20, r.MostOverdue[0].DaysOverdue)
}

func TestProjectStatus_Timeline(t *testing.T) {
	running := website
	running.StartDate, running.EndDate = dayPtr("2024-03-01"), dayPtr("2024-03-31")
	upcoming := mobile
	upcoming.StartDate, upcoming.EndDate = dayPtr("2024-04-01"), dayPtr("2024-04-11")
	upcoming.TeamMembers = []models.TeamMember{alice, bob}

	overdue := inProject(task(1, models.TaskStatusInProgress), &running)
	overdue.DueDate = dayPtr("2024-03-10")
	done := inProject(task(2, models.TaskStatusApproved), &running)

	data := Data{Projects: []models.Project{running, upcoming}, Tasks: []models.Task{overdue, done}}
	r := ProjectStatus(Params{}, data, now)

	entries := r.GroupedData.([]ProjectStatusEntry)
	require.Len(t, entries, 2)

	assert.Equal(t, 30, *entries[0].DaysTotal)
	assert.Equal(t, 16, *entries[0].DaysRemaining)
	assert.InDelta(t, 46.667, *entries[0].TimelinePercentage, 0.001)
	assert.Equal(t, 2, entries[0].TotalTasks)
	assert.Equal(t, 1, entries[0].OverdueTasks)
	assert.Equal(t, 1, entries[0].InProgressTasks)
	assert.Equal(t, 50.0, entries[0].CompletionPercentage)

	assert.Equal(t, 10, *entries[1].DaysRemaining)
	assert.Equal(t, 0.0, *entries[1].TimelinePercentage)
	assert.Equal(t, 2, entries[1].TeamMembersCount)

	summary := r.Summary.(ProjectStatusSummary)
	assert.Equal(t, 2, summary.TotalProjects)
	assert.Equal(t, 2, summary.TotalTasks)

	only := ProjectStatus(Params{ProjectID: &upcoming.ID}, data, now)
	assert.Len(t, only.GroupedData.([]ProjectStatusEntry), 1)
}

func TestProjectStatus_DateRangeUsesDueOrCreated(t *testing.T) {
	early := inProject(task(1, models.TaskStatusPending), &website)
	early.CreatedAt = day("2024-01-01")
	early.DueDate = dayPtr("2024-03-05")
	outside := inProject(task(2, models.TaskStatusPending), &website)
	outside.CreatedAt = day("2024-01-01")

	params := Params{StartDate: datePtr("2024-03-01"), EndDate: datePtr("2024-03-31")}
	r := ProjectStatus(params, Data{Projects: []models.Project{website}, Tasks: []models.Task{early, outside}}, now)

	assert.Equal(t, 1, r.GroupedData.([]ProjectStatusEntry)[0].TotalTasks)
}

func TestParamsValidate(t *testing.T) {
	_, err := Params{StartDate: datePtr("2024-03-10"), EndDate: datePtr("2024-03-01")}.Validate(models.ReportTaskCompletion)
	var perr *ParamError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "end_date", perr.Field)
	assert.Equal(t, "End date must be after start date", perr.Message)

	p, err := Params{}.Validate(models.ReportTeamProductivity)
	require.NoError(t, err)
	assert.Equal(t, GroupByWeek, p.GroupBy)

	p, err = Params{}.Validate(models.ReportOverdueTasks)
	require.NoError(t, err)
	assert.Equal(t, GroupByProject, p.GroupBy)

	_, err = Params{GroupBy: GroupByCategory}.Validate(models.ReportTimeTracking)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "group_by", perr.Field)

	_, err = Params{DaysOverdue: ptr(-1)}.Validate(models.ReportOverdueTasks)
	require.ErrorAs(t, err, &perr)

	p, err = Params{BillableOnly: true, GroupBy: GroupByDay, TeamMemberID: ptr(uint64(3))}.Validate(models.ReportProjectStatus)
	require.NoError(t, err)
	assert.Equal(t, Params{}, p)

	_, err = Params{}.Validate("burndown")
	assert.Error(t, err)
}

func TestGenerate_Envelope(t *testing.T) {
	r, err := Generate(models.ReportTaskCompletion, Params{DaysOverdue: ptr(3)}, Data{}, now)
	require.NoError(t, err)
	assert.Equal(t, models.ReportTaskCompletion, r.ReportType)
	assert.Equal(t, now, r.GeneratedAt)
	assert.Equal(t, Params{GroupBy: GroupByWeek}, r.Parameters)

	body, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"parameters":{"group_by":"week"}`)
	assert.Contains(t, string(body), `"grouped_data":[]`)

	_, err = Generate(models.ReportTaskCompletion, Params{StartDate: datePtr("2024-03-02"), EndDate: datePtr("2024-03-01")}, Data{}, now)
	assert.Error(t, err)
}

func TestDateJSON(t *testing.T) {
	var p Params
	require.NoError(t, json.Unmarshal([]byte(`{"start_date":"2024-03-01"}`), &p))
	assert.Equal(t, "2024-03-01", p.StartDate.String())

	assert.Error(t, json.Unmarshal([]byte(`{"start_date":"03/01/2024"}`), &p))

	body, err := json.Marshal(DateOf(now))
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-15"`, string(body))
}
