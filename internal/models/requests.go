package models

// PaginationRequest contains common pagination query parameters
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1,max=100"`
}

// SetDefaults applies default pagination values
func (r *PaginationRequest) SetDefaults() {
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.PageSize <= 0 {
		r.PageSize = 20
	}
}

// LoginRequest is the request body for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the request body for POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"required"`
}

// RefreshRequest is the request body for POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// SourceFileUpload is one file in a project import payload
type SourceFileUpload struct {
	Path     string `json:"path" binding:"required"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// CreateProjectRequest is the request body for POST /projects
type CreateProjectRequest struct {
	Name  string             `json:"name" binding:"required,min=1,max=200"`
	Files []SourceFileUpload `json:"files" binding:"omitempty,dive"`
}

// ReplaceFilesRequest is the request body for PUT /projects/:id/files.
// The project's file set is replaced wholesale.
type ReplaceFilesRequest struct {
	Files []SourceFileUpload `json:"files" binding:"required,dive"`
}

// StartScanRequest is the request body for POST /scans
type StartScanRequest struct {
	ProjectID string     `json:"project_id" binding:"required"`
	Type      ScanType   `json:"type" binding:"required,scantype"`
	Config    ScanConfig `json:"config"`
}

// ListScansRequest contains query parameters for GET /scans
type ListScansRequest struct {
	PaginationRequest
	ProjectID string `form:"project_id"`
}

// UpdateTriageRequest is the request body for PATCH /findings/:id/status
type UpdateTriageRequest struct {
	Status TriageStatus `json:"status" binding:"required,triagestatus"`
}
