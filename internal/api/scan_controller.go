package api

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/auditflow/auditflow/internal/database/repositories"
	"github.com/auditflow/auditflow/internal/middleware"
	"github.com/auditflow/auditflow/internal/models"
	"github.com/auditflow/auditflow/internal/scan"
	"github.com/auditflow/auditflow/internal/utils"
)

// ScanOrchestrator is the scan manager surface the controller consumes
type ScanOrchestrator interface {
	StartScan(ctx context.Context, userID uint, req models.StartScanRequest) (*models.ScanJob, error)
	GetScan(ctx context.Context, userID uint, scanUUID string) (*models.ScanJob, models.SeverityCounts, error)
	ListScans(ctx context.Context, userID uint, projectUUID string, offset, limit int) ([]models.ScanJob, int64, error)
	Cancel(ctx context.Context, userID uint, scanUUID string) (*models.ScanJob, error)
}

// ScanController handles scan orchestration endpoints
type ScanController struct {
	manager  ScanOrchestrator
	projects repositories.ProjectRepository
	findings repositories.FindingRepository
	logger   *logrus.Logger
}

// NewScanController creates a scan controller
func NewScanController(manager ScanOrchestrator, projects repositories.ProjectRepository, findings repositories.FindingRepository, logger *logrus.Logger) *ScanController {
	return &ScanController{
		manager:  manager,
		projects: projects,
		findings: findings,
		logger:   logger,
	}
}

// Start handles POST /scans
func (ctrl *ScanController) Start(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.Unauthorized(c, "authentication required")
		return
	}

	var req models.StartScanRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	job, err := ctrl.manager.StartScan(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, scan.ErrProjectNotFound):
			utils.NotFound(c, "project not found")
		case errors.Is(err, scan.ErrInvalidScanType), errors.Is(err, scan.ErrInvalidScanConfig):
			utils.BadRequest(c, err.Error())
		default:
			ctrl.logger.WithError(err).Error("Failed to start scan")
			utils.InternalServerError(c, "failed to start scan")
		}
		return
	}

	utils.CreatedResponse(c, models.NewScanSnapshot(job, req.ProjectID, models.SeverityCounts{}))
}

// List handles GET /scans
func (ctrl *ScanController) List(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.Unauthorized(c, "authentication required")
		return
	}

	var req models.ListScansRequest
	if !utils.BindQuery(c, &req) {
		return
	}
	req.SetDefaults()

	jobs, total, err := ctrl.manager.ListScans(c.Request.Context(), userID, req.ProjectID, (req.Page-1)*req.PageSize, req.PageSize)
	if err != nil {
		if errors.Is(err, scan.ErrProjectNotFound) {
			utils.NotFound(c, "project not found")
			return
		}
		ctrl.logger.WithError(err).Error("Failed to list scans")
		utils.InternalServerError(c, "failed to list scans")
		return
	}

	snapshots := make([]models.ScanSnapshot, 0, len(jobs))
	for i := range jobs {
		snapshots = append(snapshots, ctrl.snapshot(c, &jobs[i]))
	}

	utils.PaginatedResponse(c, snapshots, req.Page, req.PageSize, int(total))
}

// Get handles GET /scans/:id
func (ctrl *ScanController) Get(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.Unauthorized(c, "authentication required")
		return
	}

	job, counts, err := ctrl.manager.GetScan(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, scan.ErrScanNotFound) {
			utils.NotFound(c, "scan not found")
			return
		}
		ctrl.logger.WithError(err).Error("Failed to load scan")
		utils.InternalServerError(c, "failed to load scan")
		return
	}

	utils.SuccessResponse(c, models.NewScanSnapshot(job, ctrl.projectUUID(c, job.ProjectID), counts))
}

// Cancel handles DELETE /scans/:id. Cancelling an already-terminal scan
// is a conflict.
func (ctrl *ScanController) Cancel(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.Unauthorized(c, "authentication required")
		return
	}

	_, err = ctrl.manager.Cancel(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, scan.ErrScanNotFound):
			utils.NotFound(c, "scan not found")
		case errors.Is(err, scan.ErrScanNotCancellable):
			utils.Conflict(c, "scan is already in a terminal state")
		default:
			ctrl.logger.WithError(err).Error("Failed to cancel scan")
			utils.InternalServerError(c, "failed to cancel scan")
		}
		return
	}

	utils.NoContentResponse(c)
}

// ListFindings handles GET /scans/:id/findings
func (ctrl *ScanController) ListFindings(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.Unauthorized(c, "authentication required")
		return
	}

	job, _, err := ctrl.manager.GetScan(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, scan.ErrScanNotFound) {
			utils.NotFound(c, "scan not found")
			return
		}
		ctrl.logger.WithError(err).Error("Failed to load scan")
		utils.InternalServerError(c, "failed to load scan")
		return
	}

	page, pageSize := utils.GetPaginationParams(c)
	filter := repositories.FindingFilter{
		ScanJobID: job.ID,
		Severity:  models.Severity(c.Query("severity")),
		Category:  models.FindingCategory(c.Query("category")),
		Triage:    models.TriageStatus(c.Query("triage_status")),
	}

	findings, total, err := ctrl.findings.List(c.Request.Context(), filter, (page-1)*pageSize, pageSize)
	if err != nil {
		ctrl.logger.WithError(err).Error("Failed to list findings")
		utils.InternalServerError(c, "failed to list findings")
		return
	}

	responses := make([]models.FindingResponse, 0, len(findings))
	for i := range findings {
		responses = append(responses, models.NewFindingResponse(&findings[i]))
	}

	utils.PaginatedResponse(c, responses, page, pageSize, int(total))
}

// snapshot builds the list view of a job, tolerating count failures
func (ctrl *ScanController) snapshot(c *gin.Context, job *models.ScanJob) models.ScanSnapshot {
	counts, err := ctrl.findings.CountBySeverity(c.Request.Context(), job.ID)
	if err != nil {
		ctrl.logger.WithError(err).WithField("scan_id", job.UUID).Warn("Failed to count findings")
	}
	return models.NewScanSnapshot(job, ctrl.projectUUID(c, job.ProjectID), counts)
}

// projectUUID resolves the external project ID for a snapshot
func (ctrl *ScanController) projectUUID(c *gin.Context, projectID uint) string {
	project, err := ctrl.projects.GetByID(c.Request.Context(), projectID)
	if err != nil {
		return ""
	}
	return project.UUID
}
