package models

import "time"

// TokenResponse is returned by login/register/refresh
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse builds a UserResponse from a User model
func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Roles:     u.GetRoleNames(),
		CreatedAt: u.CreatedAt,
	}
}

// ProjectResponse is the public view of a project
type ProjectResponse struct {
	UUID      string        `json:"id"`
	Name      string        `json:"name"`
	Status    ProjectStatus `json:"status"`
	FileCount int           `json:"file_count"`
	TotalSize int64         `json:"total_size"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewProjectResponse builds a ProjectResponse from a Project model
func NewProjectResponse(p *Project) ProjectResponse {
	var size int64
	for _, f := range p.Files {
		size += f.Size
	}
	return ProjectResponse{
		UUID:      p.UUID,
		Name:      p.Name,
		Status:    p.Status,
		FileCount: len(p.Files),
		TotalSize: size,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// ScanSnapshot is the polled view of a scan job's current state.
// Error carries the latest phase message while RUNNING and the failure
// message once FAILED.
type ScanSnapshot struct {
	UUID                string         `json:"id"`
	ProjectID           string         `json:"project_id"`
	Type                ScanType       `json:"type"`
	Status              ScanStatus     `json:"status"`
	Progress            int            `json:"progress"`
	StartedAt           *time.Time     `json:"started_at"`
	CompletedAt         *time.Time     `json:"completed_at"`
	Error               *string        `json:"error"`
	EstimatedCompletion *time.Time     `json:"estimated_completion"`
	SeverityCounts      SeverityCounts `json:"vulnerabilities"`
}

// NewScanSnapshot builds a ScanSnapshot from a ScanJob and its severity counts
func NewScanSnapshot(job *ScanJob, projectUUID string, counts SeverityCounts) ScanSnapshot {
	snap := ScanSnapshot{
		UUID:           job.UUID,
		ProjectID:      projectUUID,
		Type:           job.Type,
		Status:         job.Status,
		Progress:       job.Progress,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
		SeverityCounts: counts,
	}
	if job.StatusMessage != "" {
		msg := job.StatusMessage
		snap.Error = &msg
	}
	if job.Status == ScanStatusRunning && job.StartedAt != nil && job.Progress > 0 {
		elapsed := time.Since(*job.StartedAt)
		remaining := time.Duration(float64(elapsed) * float64(100-job.Progress) / float64(job.Progress))
		eta := time.Now().Add(remaining)
		snap.EstimatedCompletion = &eta
	}
	return snap
}

// FindingResponse is the public view of a finding
type FindingResponse struct {
	UUID           string          `json:"id"`
	Title          string          `json:"title"`
	Category       FindingCategory `json:"category"`
	Severity       Severity        `json:"severity"`
	Description    string          `json:"description"`
	FilePath       string          `json:"file_path"`
	Line           int             `json:"line"`
	FunctionName   string          `json:"function_name,omitempty"`
	Recommendation string          `json:"recommendation"`
	CWE            string          `json:"cwe,omitempty"`
	CVSS           float64         `json:"cvss,omitempty"`
	TriageStatus   TriageStatus    `json:"triage_status"`
}

// NewFindingResponse builds a FindingResponse from a Finding model
func NewFindingResponse(f *Finding) FindingResponse {
	return FindingResponse{
		UUID:           f.UUID,
		Title:          f.Title,
		Category:       f.Category,
		Severity:       f.Severity,
		Description:    f.Description,
		FilePath:       f.FilePath,
		Line:           f.Line,
		FunctionName:   f.FunctionName,
		Recommendation: f.Recommendation,
		CWE:            f.CWE,
		CVSS:           f.CVSS,
		TriageStatus:   f.TriageStatus,
	}
}

// ReportResponse is the public view of a generated report
type ReportResponse struct {
	UUID        string    `json:"id"`
	ScanID      string    `json:"scan_id"`
	HTML        string    `json:"html,omitempty"`
	HasPDF      bool      `json:"has_pdf"`
	GeneratedAt time.Time `json:"generated_at"`
}
