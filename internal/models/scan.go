package models

import (
	"time"

	"gorm.io/gorm"
)

// ScanType identifies which detector categories a scan runs
type ScanType string

const (
	// ScanTypeSecurity runs only the security detector category
	ScanTypeSecurity ScanType = "SECURITY"
	// ScanTypeQuality runs only the code-quality detector category
	ScanTypeQuality ScanType = "QUALITY"
	// ScanTypePerformance runs only the performance detector category
	ScanTypePerformance ScanType = "PERFORMANCE"
	// ScanTypeDependency runs only the dependency detector category
	ScanTypeDependency ScanType = "DEPENDENCY"
	// ScanTypeComprehensive runs all four detector categories
	ScanTypeComprehensive ScanType = "COMPREHENSIVE"
)

// ValidScanType reports whether t is a member of the scan type enumeration
func ValidScanType(t ScanType) bool {
	switch t {
	case ScanTypeSecurity, ScanTypeQuality, ScanTypePerformance,
		ScanTypeDependency, ScanTypeComprehensive:
		return true
	}
	return false
}

// ScanStatus represents the state-machine status of a scan job
type ScanStatus string

const (
	// ScanStatusPending means the job is created but not yet executing
	ScanStatusPending ScanStatus = "PENDING"
	// ScanStatusRunning means the job execution is in flight
	ScanStatusRunning ScanStatus = "RUNNING"
	// ScanStatusCompleted means the job finished and persisted its findings
	ScanStatusCompleted ScanStatus = "COMPLETED"
	// ScanStatusFailed means the job aborted with an error
	ScanStatusFailed ScanStatus = "FAILED"
	// ScanStatusCancelled means the job was cancelled by request or deadline
	ScanStatusCancelled ScanStatus = "CANCELLED"
)

// IsTerminal reports whether the status permits no further transitions
func (s ScanStatus) IsTerminal() bool {
	switch s {
	case ScanStatusCompleted, ScanStatusFailed, ScanStatusCancelled:
		return true
	}
	return false
}

// ScanConfig is the closed set of per-scan options. The depth and
// dependency-inclusion policy are validated at job creation; the prompt
// is free text and opaque to the pipeline.
type ScanConfig struct {
	Depth               string `json:"depth" gorm:"column:depth;default:standard"`
	IncludeDependencies bool   `json:"include_dependencies" gorm:"column:include_dependencies"`
	Prompt              string `json:"prompt,omitempty" gorm:"column:prompt"`
}

// ValidDepth reports whether the configured depth is a known value
func (c ScanConfig) ValidDepth() bool {
	switch c.Depth {
	case "", "quick", "standard", "deep":
		return true
	}
	return false
}

// ScanJob represents one execution of the detection pipeline over a
// project's files. Progress is monotonically non-decreasing while
// RUNNING; CompletedAt is set iff the status is terminal; a terminal
// job is never mutated again.
type ScanJob struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	UUID          string         `json:"uuid" gorm:"uniqueIndex;not null"`
	ProjectID     uint           `json:"project_id" gorm:"index;not null"`
	UserID        uint           `json:"user_id" gorm:"index;not null"`
	Type          ScanType       `json:"type" gorm:"not null"`
	Status        ScanStatus     `json:"status" gorm:"index;default:PENDING"`
	Progress      int            `json:"progress" gorm:"default:0"`
	StatusMessage string         `json:"status_message"` // phase description; reused as the error slot on failure
	Config        ScanConfig     `json:"config" gorm:"embedded"`
	ResultJSON    []byte         `json:"-" gorm:"column:result_json"`
	StartedAt     *time.Time     `json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the table name for the ScanJob model
func (ScanJob) TableName() string {
	return "scan_jobs"
}
