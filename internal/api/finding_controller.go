package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/auditflow/auditflow/internal/database/repositories"
	"github.com/auditflow/auditflow/internal/middleware"
	"github.com/auditflow/auditflow/internal/models"
	"github.com/auditflow/auditflow/internal/utils"
)

// FindingController handles finding triage endpoints
type FindingController struct {
	findings repositories.FindingRepository
	scans    repositories.ScanRepository
	logger   *logrus.Logger
}

// NewFindingController creates a finding controller
func NewFindingController(findings repositories.FindingRepository, scans repositories.ScanRepository, logger *logrus.Logger) *FindingController {
	return &FindingController{
		findings: findings,
		scans:    scans,
		logger:   logger,
	}
}

// UpdateTriage handles PATCH /findings/:id/status. TriageStatus is the
// only mutable field of a persisted finding.
func (ctrl *FindingController) UpdateTriage(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.Unauthorized(c, "authentication required")
		return
	}

	var req models.UpdateTriageRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	finding, err := ctrl.findings.GetByUUID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.NotFound(c, "finding not found")
			return
		}
		ctrl.logger.WithError(err).Error("Failed to look up finding")
		utils.InternalServerError(c, "failed to look up finding")
		return
	}

	if !ctrl.ownsFinding(c, userID, finding) {
		utils.NotFound(c, "finding not found")
		return
	}

	if err := ctrl.findings.UpdateTriageStatus(c.Request.Context(), finding.ID, req.Status); err != nil {
		switch {
		case errors.Is(err, repositories.ErrInvalidInput):
			utils.BadRequest(c, "invalid triage status")
		case errors.Is(err, repositories.ErrNotFound):
			utils.NotFound(c, "finding not found")
		default:
			ctrl.logger.WithError(err).Error("Failed to update triage status")
			utils.InternalServerError(c, "failed to update triage status")
		}
		return
	}

	finding.TriageStatus = req.Status
	utils.SuccessResponse(c, models.NewFindingResponse(finding))
}

// ownsFinding checks the finding's scan belongs to the caller
func (ctrl *FindingController) ownsFinding(c *gin.Context, userID uint, finding *models.Finding) bool {
	job, err := ctrl.scans.GetByID(c.Request.Context(), finding.ScanJobID)
	if err != nil {
		ctrl.logger.WithError(err).Warn("Failed to resolve finding owner")
		return false
	}
	return job.UserID == userID
}
