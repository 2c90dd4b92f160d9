package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/auditflow/auditflow/internal/middleware"
	"github.com/auditflow/auditflow/internal/models"
	"github.com/auditflow/auditflow/internal/report"
	"github.com/auditflow/auditflow/internal/utils"
)

// ReportProvider is the report service surface the controller consumes
type ReportProvider interface {
	Get(ctx context.Context, userID uint, reportUUID string) (*models.Report, *models.ScanJob, error)
	GetForScan(ctx context.Context, userID uint, scanUUID string) (*models.Report, *models.ScanJob, error)
	GetPDF(ctx context.Context, userID uint, reportUUID string) (*models.Report, []byte, error)
}

// ReportController handles report retrieval and PDF download endpoints
type ReportController struct {
	reports ReportProvider
	logger  *logrus.Logger
}

// NewReportController creates a report controller
func NewReportController(reports ReportProvider, logger *logrus.Logger) *ReportController {
	return &ReportController{
		reports: reports,
		logger:  logger,
	}
}

// Get handles GET /reports/:id
func (ctrl *ReportController) Get(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.Unauthorized(c, "authentication required")
		return
	}

	rep, job, err := ctrl.reports.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, report.ErrReportNotFound) {
			utils.NotFound(c, "report not found")
			return
		}
		ctrl.logger.WithError(err).Error("Failed to load report")
		utils.InternalServerError(c, "failed to load report")
		return
	}

	utils.SuccessResponse(c, reportResponse(rep, job))
}

// GetForScan handles GET /scans/:id/report, generating a report when
// none exists for the scan yet
func (ctrl *ReportController) GetForScan(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.Unauthorized(c, "authentication required")
		return
	}

	rep, job, err := ctrl.reports.GetForScan(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, report.ErrScanNotFound):
			utils.NotFound(c, "scan not found")
		case errors.Is(err, report.ErrScanNotCompleted):
			utils.Conflict(c, "scan has not completed")
		default:
			ctrl.logger.WithError(err).Error("Failed to build report")
			utils.InternalServerError(c, "failed to build report")
		}
		return
	}

	utils.SuccessResponse(c, reportResponse(rep, job))
}

// GetPDF handles GET /reports/:id/pdf. Exhaustion of every rendering
// strategy is a server error; no partial bytes are ever served.
func (ctrl *ReportController) GetPDF(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.Unauthorized(c, "authentication required")
		return
	}

	rep, pdf, err := ctrl.reports.GetPDF(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, report.ErrReportNotFound):
			utils.NotFound(c, "report not found")
		case errors.Is(err, report.ErrAllStrategiesFailed):
			ctrl.logger.WithError(err).Error("PDF rendering exhausted every strategy")
			utils.InternalServerError(c, "failed to render PDF")
		default:
			ctrl.logger.WithError(err).Error("Failed to load report PDF")
			utils.InternalServerError(c, "failed to load report PDF")
		}
		return
	}

	utils.PDFResponse(c, pdf, fmt.Sprintf("audit-report-%s.pdf", rep.UUID))
}

func reportResponse(rep *models.Report, job *models.ScanJob) models.ReportResponse {
	return models.ReportResponse{
		UUID:        rep.UUID,
		ScanID:      job.UUID,
		HTML:        rep.HTML,
		HasPDF:      len(rep.PDF) > 0,
		GeneratedAt: rep.GeneratedAt,
	}
}
