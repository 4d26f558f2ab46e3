package workflow

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yukikurage/taskflow-api/internal/models"
)

const dateLayout = "2006-01-02"

// Patch is a partial task update. Absent fields are left alone; Nullable
// fields may also be cleared with an explicit null. Set fields replace
// the stored relation set entirely.
type Patch struct {
	Title               *string                    `json:"title"`
	Description         *string                    `json:"description"`
	Status              *models.TaskStatus         `json:"status"`
	Priority            *models.TaskPriority       `json:"priority"`
	Category            *string                    `json:"category"`
	StartDate           Nullable[time.Time]        `json:"start_date"`
	DueDate             Nullable[time.Time]        `json:"due_date"`
	EstimatedHours      Nullable[decimal.Decimal]  `json:"estimated_hours"`
	BudgetHours         Nullable[decimal.Decimal]  `json:"budget_hours"`
	TimeTrackingEnabled *bool                      `json:"time_tracking_enabled"`
	IsBillable          *bool                      `json:"is_billable"`
	ClientReference     *string                    `json:"client_reference"`
	IsRecurring         *bool                      `json:"is_recurring"`
	RecurringFrequency  *string                    `json:"recurring_frequency"`
	RecurringEndsOn     Nullable[time.Time]        `json:"recurring_ends_on"`
	AcceptanceCriteria  *string                    `json:"acceptance_criteria"`
	Notes               *string                    `json:"notes"`
	Visibility          *string                    `json:"visibility"`
	Tags                *[]string                  `json:"tags_list"`
	ProjectID           Nullable[uint64]           `json:"project_id"`
	AssignedToID        Nullable[uint64]           `json:"assigned_to_id"`

	Assignees     *[]uint64 `json:"assignees"`
	Approvers     *[]uint64 `json:"approvers"`
	Watchers      *[]uint64 `json:"watchers"`
	Prerequisites *[]uint64 `json:"prerequisites"`
	LinkedTasks   *[]uint64 `json:"linked_tasks"`
}

// Refs carries the records a patch points at, already loaded and checked
// to exist by the caller.
type Refs struct {
	Project    *models.Project
	AssignedTo *models.TeamMember
}

// Change is the outcome of applying a patch.
type Change struct {
	Fragments  []string
	FromStatus models.TaskStatus
	ToStatus   models.TaskStatus
}

// StatusChanged reports whether the patch moved the task to another status.
func (c Change) StatusChanged() bool {
	return c.FromStatus != c.ToStatus
}

// History turns the change into its history rows: one "updated" row holding
// every fragment, then one row for the status transition.
func (c Change) History(actor *models.User) []models.TaskHistory {
	var rows []models.TaskHistory
	if len(c.Fragments) > 0 {
		rows = append(rows, entry(models.ActionUpdated, actor, "Task updated: "+strings.Join(c.Fragments, ", ")))
	}
	if c.StatusChanged() {
		rows = append(rows, entry(statusAction(c.ToStatus), actor,
			fmt.Sprintf("Status changed from %s to %s", c.FromStatus, c.ToStatus)))
	}
	return rows
}

// Apply validates p against the merged state and, only if valid, writes it
// into task. The returned change lists one fragment per changed field.
func Apply(task *models.Task, p Patch, refs Refs, now time.Time) (Change, error) {
	change := Change{FromStatus: task.Status, ToStatus: task.Status}

	if p.Status != nil {
		switch {
		case !p.Status.Valid():
			return change, invalid("status", "Invalid status")
		case *p.Status == models.TaskStatusApproved || *p.Status == models.TaskStatusRejected:
			return change, invalid("status", "Use the approve or reject action to set this status")
		}
	}
	if p.AssignedToID.Set && p.AssignedToID.Value != nil {
		if refs.AssignedTo == nil || refs.AssignedTo.ID != *p.AssignedToID.Value {
			return change, invalid("assigned_to_id", "Team member not found")
		}
		if err := SameOrganization(task, refs.AssignedTo, "assigned_to_id"); err != nil {
			return change, err
		}
	}
	if p.ProjectID.Set && p.ProjectID.Value != nil {
		if refs.Project == nil || refs.Project.ID != *p.ProjectID.Value || refs.Project.OrganizationID != task.OrganizationID {
			return change, invalid("project_id", "Project not found")
		}
	}

	next := *task
	d := differ{}

	d.text("title", &next.Title, p.Title)
	d.text("description", &next.Description, p.Description)
	if p.Status != nil && *p.Status != next.Status {
		d.add("status", string(next.Status), string(*p.Status))
		SetStatus(&next, *p.Status, now)
	}
	if p.Priority != nil && *p.Priority != next.Priority {
		d.add("priority", string(next.Priority), string(*p.Priority))
		next.Priority = *p.Priority
	}
	d.text("category", &next.Category, p.Category)
	d.date("start_date", &next.StartDate, p.StartDate)
	d.date("due_date", &next.DueDate, p.DueDate)
	d.hours("estimated_hours", &next.EstimatedHours, p.EstimatedHours)
	d.hours("budget_hours", &next.BudgetHours, p.BudgetHours)
	d.flag("time_tracking_enabled", &next.TimeTrackingEnabled, p.TimeTrackingEnabled)
	d.flag("is_billable", &next.IsBillable, p.IsBillable)
	d.text("client_reference", &next.ClientReference, p.ClientReference)
	d.flag("is_recurring", &next.IsRecurring, p.IsRecurring)
	d.text("recurring_frequency", &next.RecurringFrequency, p.RecurringFrequency)
	d.date("recurring_ends_on", &next.RecurringEndsOn, p.RecurringEndsOn)
	d.text("acceptance_criteria", &next.AcceptanceCriteria, p.AcceptanceCriteria)
	d.text("notes", &next.Notes, p.Notes)
	d.text("visibility", &next.Visibility, p.Visibility)

	if p.Tags != nil && !slices.Equal([]string(next.Tags), *p.Tags) {
		d.add("tags", strings.Join(next.Tags, ", "), strings.Join(*p.Tags, ", "))
		next.Tags = slices.Clone(*p.Tags)
	}

	if p.ProjectID.Set && !sameID(next.ProjectID, p.ProjectID.Value) {
		d.add("project", projectName(next.Project), projectName(refs.Project))
		next.ProjectID = p.ProjectID.Value
		next.Project = refs.Project
		if p.ProjectID.Value == nil {
			next.Project = nil
		}
	}

	if p.AssignedToID.Set && !sameID(next.AssignedToID, p.AssignedToID.Value) {
		var to *models.TeamMember
		if p.AssignedToID.Value != nil {
			to = refs.AssignedTo
		}
		d.fragments = append(d.fragments,
			fmt.Sprintf("Assigned to changed from %s to %s", memberName(next.AssignedTo), memberName(to)))
		next.AssignedToID = p.AssignedToID.Value
		next.AssignedTo = to
	}

	// Sets are compared against the loaded associations; resending the
	// same ids in any order is not a change.
	sets := []struct {
		ids      *[]uint64
		current  []uint64
		fragment string
	}{
		{p.Assignees, memberIDs(next.Assignees), "Additional assignees updated"},
		{p.Approvers, memberIDs(next.Approvers), "Approvers updated"},
		{p.Watchers, memberIDs(next.Watchers), "Watchers updated"},
		{p.Prerequisites, taskIDs(next.Prerequisites), "Prerequisites updated"},
		{p.LinkedTasks, taskIDs(next.LinkedTasks), "Linked tasks updated"},
	}
	for _, s := range sets {
		if s.ids != nil && !sameIDSet(s.current, *s.ids) {
			d.fragments = append(d.fragments, s.fragment)
		}
	}

	if err := ValidateTask(&next); err != nil {
		return change, err
	}

	*task = next
	change.Fragments = d.fragments
	change.ToStatus = task.Status
	return change, nil
}

type differ struct {
	fragments []string
}

func (d *differ) add(field, from, to string) {
	d.fragments = append(d.fragments, fmt.Sprintf("%s changed from '%s' to '%s'", fieldLabel(field), from, to))
}

func (d *differ) text(field string, dst *string, v *string) {
	if v == nil || *v == *dst {
		return
	}
	d.add(field, *dst, *v)
	*dst = *v
}

func (d *differ) flag(field string, dst *bool, v *bool) {
	if v == nil || *v == *dst {
		return
	}
	d.add(field, fmt.Sprint(*dst), fmt.Sprint(*v))
	*dst = *v
}

func (d *differ) date(field string, dst **time.Time, v Nullable[time.Time]) {
	if !v.Set || sameTime(*dst, v.Value) {
		return
	}
	d.add(field, formatDate(*dst), formatDate(v.Value))
	if v.Value == nil {
		*dst = nil
		return
	}
	t := *v.Value
	*dst = &t
}

func (d *differ) hours(field string, dst *decimal.NullDecimal, v Nullable[decimal.Decimal]) {
	if !v.Set {
		return
	}
	next := decimal.NullDecimal{}
	if v.Value != nil {
		next = decimal.NewNullDecimal(*v.Value)
	}
	if dst.Valid == next.Valid && (!dst.Valid || dst.Decimal.Equal(next.Decimal)) {
		return
	}
	d.add(field, formatHours(*dst), formatHours(next))
	*dst = next
}

// fieldLabel turns due_date into "Due Date".
func fieldLabel(field string) string {
	words := strings.Split(field, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "none"
	}
	return t.Format(dateLayout)
}

func formatHours(h decimal.NullDecimal) string {
	if !h.Valid {
		return "none"
	}
	return h.Decimal.String()
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func sameID(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameIDSet(a, b []uint64) bool {
	return slices.Equal(sortedIDs(a), sortedIDs(b))
}

func sortedIDs(ids []uint64) []uint64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func memberIDs(members []models.TeamMember) []uint64 {
	ids := make([]uint64, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}

func taskIDs(tasks []models.Task) []uint64 {
	ids := make([]uint64, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func projectName(p *models.Project) string {
	if p == nil {
		return "none"
	}
	return p.Name
}

func memberName(m *models.TeamMember) string {
	if m == nil {
		return "Unassigned"
	}
	return m.Name
}
