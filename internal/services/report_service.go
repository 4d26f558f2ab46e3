package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/access"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/reports"
	"github.com/yukikurage/taskflow-api/internal/repository"
)

var (
	ErrReportConfigNotFound = errors.New("report configuration not found")
	ErrInvalidReportType    = errors.New("invalid report type")
	ErrReportConfigNameUsed = errors.New("a report configuration with this name already exists")
)

// ReportService loads report rows for a tenant and runs the generators.
type ReportService struct {
	repo  repository.ReportRepository
	log   *zap.Logger
	clock func() time.Time
}

func NewReportService(repo repository.ReportRepository, log *zap.Logger) *ReportService {
	return &ReportService{repo: repo, log: log, clock: time.Now}
}

// Generate validates params, loads the tenant's rows and computes the
// report. Invalid parameters are returned as *reports.ParamError before
// anything is queried.
func (s *ReportService) Generate(p *access.Principal, kind models.ReportType, params reports.Params) (*reports.Report, error) {
	if !kind.Valid() {
		return nil, ErrInvalidReportType
	}
	clean, err := params.Validate(kind)
	if err != nil {
		return nil, err
	}

	data, err := s.load(p.Tenant, kind, clean)
	if err != nil {
		return nil, err
	}

	report, err := reports.Generate(kind, clean, data, s.clock())
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ReportService) load(tenant access.Tenant, kind models.ReportType, p reports.Params) (reports.Data, error) {
	filter := repository.ReportFilter{
		ProjectID:    p.ProjectID,
		TeamMemberID: p.TeamMemberID,
	}
	if tenant.Organization != nil {
		id := tenant.Organization.ID
		filter.OrganizationID = &id
	} else if !tenant.All {
		return reports.Data{}, access.ErrNoOrganization
	}
	if kind == models.ReportTimeTracking {
		filter.TimeTrackingOnly = true
		filter.BillableOnly = p.BillableOnly
		filter.WithTimeEntries = true
	}

	var data reports.Data
	var err error
	if data.Tasks, err = s.repo.LoadTasks(filter); err != nil {
		return data, fmt.Errorf("failed to load report tasks: %w", err)
	}
	if kind == models.ReportProjectStatus {
		if data.Projects, err = s.repo.LoadProjects(filter); err != nil {
			return data, fmt.Errorf("failed to load report projects: %w", err)
		}
	}
	if kind == models.ReportTeamProductivity {
		if data.Members, err = s.repo.LoadMembers(filter); err != nil {
			return data, fmt.Errorf("failed to load report members: %w", err)
		}
	}
	return data, nil
}

// ConfigurationInput holds saved report fields. Nil fields are left
// unchanged on update.
type ConfigurationInput struct {
	Name          *string
	ReportType    *models.ReportType
	Configuration *reports.Params
	IsFavorite    *bool
}

func (s *ReportService) ListConfigurations(p *access.Principal) ([]models.ReportConfiguration, error) {
	orgID, err := p.Tenant.OrganizationID()
	if err != nil {
		return nil, err
	}
	configs, err := s.repo.ListConfigurations(orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list report configurations: %w", err)
	}
	return configs, nil
}

func (s *ReportService) GetConfiguration(p *access.Principal, id uint64) (*models.ReportConfiguration, error) {
	orgID, err := p.Tenant.OrganizationID()
	if err != nil {
		return nil, err
	}
	cfg, err := s.repo.FindConfiguration(orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportConfigNotFound
		}
		return nil, fmt.Errorf("failed to find report configuration: %w", err)
	}
	return cfg, nil
}

// CreateConfiguration saves a named parameter set after validating it
// against its report type.
func (s *ReportService) CreateConfiguration(p *access.Principal, input ConfigurationInput) (*models.ReportConfiguration, error) {
	orgID, err := p.Tenant.OrganizationID()
	if err != nil {
		return nil, err
	}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, ErrNameRequired
	}
	if input.ReportType == nil {
		return nil, ErrInvalidReportType
	}

	cfg := &models.ReportConfiguration{
		Name:           strings.TrimSpace(*input.Name),
		ReportType:     *input.ReportType,
		OrganizationID: orgID,
		CreatedByID:    p.User.ID,
	}
	if input.IsFavorite != nil {
		cfg.IsFavorite = *input.IsFavorite
	}
	params := reports.Params{}
	if input.Configuration != nil {
		params = *input.Configuration
	}
	if err := setParams(cfg, params); err != nil {
		return nil, err
	}

	if err := s.repo.CreateConfiguration(cfg); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrReportConfigNameUsed
		}
		return nil, fmt.Errorf("failed to create report configuration: %w", err)
	}
	return cfg, nil
}

func (s *ReportService) UpdateConfiguration(p *access.Principal, id uint64, input ConfigurationInput) (*models.ReportConfiguration, error) {
	cfg, err := s.GetConfiguration(p, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrNameRequired
		}
		cfg.Name = strings.TrimSpace(*input.Name)
	}
	if input.IsFavorite != nil {
		cfg.IsFavorite = *input.IsFavorite
	}
	if input.ReportType != nil || input.Configuration != nil {
		params, err := paramsOf(cfg)
		if err != nil {
			return nil, err
		}
		if input.ReportType != nil {
			cfg.ReportType = *input.ReportType
		}
		if input.Configuration != nil {
			params = *input.Configuration
		}
		if err := setParams(cfg, params); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateConfiguration(cfg); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrReportConfigNameUsed
		}
		return nil, fmt.Errorf("failed to update report configuration: %w", err)
	}
	return cfg, nil
}

func (s *ReportService) DeleteConfiguration(p *access.Principal, id uint64) error {
	orgID, err := p.Tenant.OrganizationID()
	if err != nil {
		return err
	}
	if err := s.repo.DeleteConfiguration(orgID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReportConfigNotFound
		}
		return fmt.Errorf("failed to delete report configuration: %w", err)
	}
	return nil
}

// GenerateSaved replays a saved configuration and stamps last_generated.
func (s *ReportService) GenerateSaved(p *access.Principal, id uint64) (*reports.Report, error) {
	cfg, err := s.GetConfiguration(p, id)
	if err != nil {
		return nil, err
	}
	params, err := paramsOf(cfg)
	if err != nil {
		return nil, err
	}

	report, err := s.Generate(p, cfg.ReportType, params)
	if err != nil {
		return nil, err
	}

	at := report.GeneratedAt
	cfg.LastGenerated = &at
	if err := s.repo.UpdateConfiguration(cfg); err != nil {
		return nil, fmt.Errorf("failed to stamp report configuration: %w", err)
	}
	return report, nil
}

// setParams validates params for cfg's type and stores the cleaned set.
func setParams(cfg *models.ReportConfiguration, params reports.Params) error {
	if !cfg.ReportType.Valid() {
		return ErrInvalidReportType
	}
	clean, err := params.Validate(cfg.ReportType)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return fmt.Errorf("failed to encode report parameters: %w", err)
	}
	cfg.Configuration = datatypes.JSON(raw)
	return nil
}

func paramsOf(cfg *models.ReportConfiguration) (reports.Params, error) {
	var params reports.Params
	if len(cfg.Configuration) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(cfg.Configuration, &params); err != nil {
		return params, fmt.Errorf("failed to decode report parameters: %w", err)
	}
	return params, nil
}
