package reports

import (
	"fmt"
	"slices"

	"github.com/yukikurage/taskflow-api/internal/models"
)

type GroupBy string

const (
	GroupByDay        GroupBy = "day"
	GroupByWeek       GroupBy = "week"
	GroupByMonth      GroupBy = "month"
	GroupByProject    GroupBy = "project"
	GroupByTeamMember GroupBy = "team_member"
	GroupByCategory   GroupBy = "category"
	GroupByPriority   GroupBy = "priority"
)

// Params is the parameter set of every report kind. Each kind accepts a
// subset; Validate drops the rest.
type Params struct {
	ProjectID    *uint64 `json:"project_id,omitempty"`
	TeamMemberID *uint64 `json:"team_member_id,omitempty"`
	StartDate    *Date   `json:"start_date,omitempty"`
	EndDate      *Date   `json:"end_date,omitempty"`
	GroupBy      GroupBy `json:"group_by,omitempty"`
	BillableOnly bool    `json:"billable_only,omitempty"`
	DaysOverdue  *int    `json:"days_overdue,omitempty"`
}

// ParamError is an invalid report parameter.
type ParamError struct {
	Field   string
	Message string
}

func (e *ParamError) Error() string {
	return e.Field + ": " + e.Message
}

type kindParams struct {
	project      bool
	member       bool
	dates        bool
	billable     bool
	daysOverdue  bool
	groups       []GroupBy
	defaultGroup GroupBy
}

var accepted = map[models.ReportType]kindParams{
	models.ReportProjectStatus: {project: true, dates: true},
	models.ReportTeamProductivity: {
		member: true, dates: true,
		groups:       []GroupBy{GroupByDay, GroupByWeek, GroupByMonth, GroupByProject},
		defaultGroup: GroupByWeek,
	},
	models.ReportTaskCompletion: {
		project: true, member: true, dates: true,
		groups:       []GroupBy{GroupByDay, GroupByWeek, GroupByMonth, GroupByProject, GroupByCategory, GroupByPriority},
		defaultGroup: GroupByWeek,
	},
	models.ReportTimeTracking: {
		project: true, member: true, dates: true, billable: true,
		groups:       []GroupBy{GroupByDay, GroupByWeek, GroupByMonth, GroupByProject, GroupByTeamMember},
		defaultGroup: GroupByProject,
	},
	models.ReportOverdueTasks: {
		project: true, member: true, daysOverdue: true,
		groups:       []GroupBy{GroupByProject, GroupByTeamMember, GroupByPriority, GroupByCategory},
		defaultGroup: GroupByProject,
	},
}

// Validate checks p for the given report kind and returns the cleaned
// parameters: fields the kind does not take are dropped and group_by gets
// its default.
func (p Params) Validate(kind models.ReportType) (Params, error) {
	a, ok := accepted[kind]
	if !ok {
		return Params{}, &ParamError{Field: "report_type", Message: fmt.Sprintf("unknown report type %q", kind)}
	}

	var out Params
	if a.project {
		out.ProjectID = p.ProjectID
	}
	if a.member {
		out.TeamMemberID = p.TeamMemberID
	}
	if a.dates {
		out.StartDate, out.EndDate = p.StartDate, p.EndDate
		if out.StartDate != nil && out.EndDate != nil && out.StartDate.After(out.EndDate.Time) {
			return Params{}, &ParamError{Field: "end_date", Message: "End date must be after start date"}
		}
	}
	if a.billable {
		out.BillableOnly = p.BillableOnly
	}
	if a.daysOverdue && p.DaysOverdue != nil {
		if *p.DaysOverdue < 0 {
			return Params{}, &ParamError{Field: "days_overdue", Message: "Must be zero or greater"}
		}
		out.DaysOverdue = p.DaysOverdue
	}

	if len(a.groups) > 0 {
		out.GroupBy = p.GroupBy
		if out.GroupBy == "" {
			out.GroupBy = a.defaultGroup
		}
		if !slices.Contains(a.groups, out.GroupBy) {
			return Params{}, &ParamError{Field: "group_by", Message: fmt.Sprintf("%q is not a valid choice", out.GroupBy)}
		}
	}

	return out, nil
}
