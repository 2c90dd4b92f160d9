package models

import (
	"time"

	"gorm.io/gorm"
)

// RiskLevel is the aggregate risk label derived from the overall score
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// ScanResult is the structured analysis payload stored on a completed
// scan and snapshotted into reports.
type ScanResult struct {
	Score          int            `json:"score"`
	RiskLevel      RiskLevel      `json:"risk_level"`
	SeverityCounts SeverityCounts `json:"severity_counts"`
	FilesScanned   int            `json:"files_scanned"`
	FindingCount   int            `json:"finding_count"`
	Categories     []string       `json:"categories"`
	Duration       time.Duration  `json:"duration"`
}

// Report represents a rendered report for a finished scan. Reports are
// regenerable but never mutated after generation.
type Report struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UUID        string         `json:"uuid" gorm:"uniqueIndex;not null"`
	ScanJobID   uint           `json:"scan_job_id" gorm:"index;not null"`
	HTML        string         `json:"-" gorm:"type:text"`
	PDF         []byte         `json:"-"`
	GeneratedAt time.Time      `json:"generated_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
