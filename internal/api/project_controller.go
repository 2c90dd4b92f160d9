package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/auditflow/auditflow/internal/database/repositories"
	"github.com/auditflow/auditflow/internal/middleware"
	"github.com/auditflow/auditflow/internal/models"
	"github.com/auditflow/auditflow/internal/utils"
)

// ProjectController handles project import and management endpoints
type ProjectController struct {
	projects repositories.ProjectRepository
	logger   *logrus.Logger
}

// NewProjectController creates a project controller
func NewProjectController(projects repositories.ProjectRepository, logger *logrus.Logger) *ProjectController {
	return &ProjectController{
		projects: projects,
		logger:   logger,
	}
}

// Create handles POST /projects
func (ctrl *ProjectController) Create(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.Unauthorized(c, "authentication required")
		return
	}

	var req models.CreateProjectRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	project := &models.Project{
		UUID:   uuid.New().String(),
		UserID: userID,
		Name:   req.Name,
		Status: models.ProjectStatusActive,
		Files:  uploadsToFiles(req.Files),
	}

	if err := ctrl.projects.Create(c.Request.Context(), project); err != nil {
		ctrl.logger.WithError(err).Error("Failed to create project")
		utils.InternalServerError(c, "failed to create project")
		return
	}

	ctrl.logger.WithFields(logrus.Fields{
		"project": project.UUID,
		"files":   len(project.Files),
	}).Info("Project created")

	utils.CreatedResponse(c, models.NewProjectResponse(project))
}

// List handles GET /projects
func (ctrl *ProjectController) List(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.Unauthorized(c, "authentication required")
		return
	}

	page, pageSize := utils.GetPaginationParams(c)
	projects, total, err := ctrl.projects.List(c.Request.Context(), userID, (page-1)*pageSize, pageSize)
	if err != nil {
		ctrl.logger.WithError(err).Error("Failed to list projects")
		utils.InternalServerError(c, "failed to list projects")
		return
	}

	responses := make([]models.ProjectResponse, 0, len(projects))
	for i := range projects {
		responses = append(responses, models.NewProjectResponse(&projects[i]))
	}

	utils.PaginatedResponse(c, responses, page, pageSize, int(total))
}

// Get handles GET /projects/:id
func (ctrl *ProjectController) Get(c *gin.Context) {
	project, ok := ctrl.ownedProject(c)
	if !ok {
		return
	}

	full, err := ctrl.projects.GetWithFiles(c.Request.Context(), project.ID)
	if err != nil {
		ctrl.logger.WithError(err).Error("Failed to load project files")
		utils.InternalServerError(c, "failed to load project")
		return
	}

	utils.SuccessResponse(c, models.NewProjectResponse(full))
}

// ReplaceFiles handles PUT /projects/:id/files. The file set is
// replaced wholesale, never merged.
func (ctrl *ProjectController) ReplaceFiles(c *gin.Context) {
	project, ok := ctrl.ownedProject(c)
	if !ok {
		return
	}

	var req models.ReplaceFilesRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	files := uploadsToFiles(req.Files)
	if err := ctrl.projects.ReplaceFiles(c.Request.Context(), project.ID, files); err != nil {
		ctrl.logger.WithError(err).Error("Failed to replace project files")
		utils.InternalServerError(c, "failed to replace project files")
		return
	}

	ctrl.logger.WithFields(logrus.Fields{
		"project": project.UUID,
		"files":   len(files),
	}).Info("Project files replaced")

	utils.SuccessResponse(c, gin.H{"file_count": len(files)})
}

// Delete handles DELETE /projects/:id
func (ctrl *ProjectController) Delete(c *gin.Context) {
	project, ok := ctrl.ownedProject(c)
	if !ok {
		return
	}

	if err := ctrl.projects.Delete(c.Request.Context(), project.ID); err != nil {
		ctrl.logger.WithError(err).Error("Failed to delete project")
		utils.InternalServerError(c, "failed to delete project")
		return
	}

	utils.NoContentResponse(c)
}

// ownedProject resolves the :id path parameter to a project the caller
// owns, writing the error response itself when that fails
func (ctrl *ProjectController) ownedProject(c *gin.Context) (*models.Project, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.Unauthorized(c, "authentication required")
		return nil, false
	}

	project, err := ctrl.projects.GetByUUID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.NotFound(c, "project not found")
			return nil, false
		}
		ctrl.logger.WithError(err).Error("Failed to look up project")
		utils.InternalServerError(c, "failed to look up project")
		return nil, false
	}

	if project.UserID != userID {
		utils.NotFound(c, "project not found")
		return nil, false
	}

	return project, true
}

func uploadsToFiles(uploads []models.SourceFileUpload) []models.SourceFile {
	files := make([]models.SourceFile, 0, len(uploads))
	for _, u := range uploads {
		files = append(files, models.SourceFile{
			Path:     u.Path,
			Language: u.Language,
			Content:  []byte(u.Content),
			Size:     int64(len(u.Content)),
		})
	}
	return files
}
