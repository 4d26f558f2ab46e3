package models

import (
	"time"

	"gorm.io/datatypes"
)

type ReportType string

const (
	ReportProjectStatus    ReportType = "project_status"
	ReportTeamProductivity ReportType = "team_productivity"
	ReportTaskCompletion   ReportType = "task_completion"
	ReportTimeTracking     ReportType = "time_tracking"
	ReportOverdueTasks     ReportType = "overdue_tasks"
)

// Valid reports whether t is one of the five report kinds.
func (t ReportType) Valid() bool {
	switch t {
	case ReportProjectStatus, ReportTeamProductivity, ReportTaskCompletion, ReportTimeTracking, ReportOverdueTasks:
		return true
	}
	return false
}

// ReportConfiguration is a saved parameter set that can be replayed.
type ReportConfiguration struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	Name           string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_report_configs_org_name" json:"name"`
	ReportType     ReportType     `gorm:"type:varchar(50);not null" json:"report_type"`
	OrganizationID uint64         `gorm:"not null;uniqueIndex:idx_report_configs_org_name" json:"organization_id"`
	CreatedByID    uint64         `gorm:"not null" json:"created_by"`
	Configuration  datatypes.JSON `json:"configuration"`
	IsFavorite     bool           `gorm:"not null;default:false" json:"is_favorite"`
	LastGenerated  *time.Time     `json:"last_generated"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
