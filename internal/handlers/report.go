package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/reports"
	"github.com/yukikurage/taskflow-api/internal/services"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Generate returns a handler running the report of the given kind over
// the JSON parameters in the body. An empty body means defaults.
func (h *ReportHandler) Generate(kind models.ReportType) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}

		var params reports.Params
		if err := c.ShouldBindJSON(&params); err != nil && !errors.Is(err, io.EOF) {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}

		report, err := h.reportService.Generate(p, kind, params)
		if err != nil {
			respondError(c, err, "Failed to generate report")
			return
		}

		c.JSON(http.StatusOK, report)
	}
}

type configurationRequest struct {
	Name          *string            `json:"name" binding:"omitempty,max=255"`
	ReportType    *models.ReportType `json:"report_type"`
	Configuration *reports.Params    `json:"configuration"`
	IsFavorite    *bool              `json:"is_favorite"`
}

func (r configurationRequest) input() services.ConfigurationInput {
	return services.ConfigurationInput{
		Name:          r.Name,
		ReportType:    r.ReportType,
		Configuration: r.Configuration,
		IsFavorite:    r.IsFavorite,
	}
}

func (h *ReportHandler) ListConfigurations(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	configs, err := h.reportService.ListConfigurations(p)
	if err != nil {
		respondError(c, err, "Failed to fetch report configurations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"configurations": configs})
}

func (h *ReportHandler) GetConfiguration(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	cfg, err := h.reportService.GetConfiguration(p, id)
	if err != nil {
		respondError(c, err, "Failed to fetch report configuration")
		return
	}

	c.JSON(http.StatusOK, cfg)
}

func (h *ReportHandler) CreateConfiguration(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req configurationRequest
	if !bindJSON(c, &req) {
		return
	}

	cfg, err := h.reportService.CreateConfiguration(p, req.input())
	if err != nil {
		respondError(c, err, "Failed to create report configuration")
		return
	}

	c.JSON(http.StatusCreated, cfg)
}

func (h *ReportHandler) UpdateConfiguration(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	var req configurationRequest
	if !bindJSON(c, &req) {
		return
	}

	cfg, err := h.reportService.UpdateConfiguration(p, id, req.input())
	if err != nil {
		respondError(c, err, "Failed to update report configuration")
		return
	}

	c.JSON(http.StatusOK, cfg)
}

func (h *ReportHandler) DeleteConfiguration(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.reportService.DeleteConfiguration(p, id); err != nil {
		respondError(c, err, "Failed to delete report configuration")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Report configuration deleted successfully"})
}

// GenerateConfiguration runs a saved configuration.
func (h *ReportHandler) GenerateConfiguration(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	report, err := h.reportService.GenerateSaved(p, id)
	if err != nil {
		respondError(c, err, "Failed to generate report")
		return
	}

	c.JSON(http.StatusOK, report)
}
