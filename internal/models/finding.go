package models

import (
	"time"

	"gorm.io/gorm"
)

// Severity represents the per-finding severity level
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// FindingCategory classifies a finding into one of a fixed enumeration
type FindingCategory string

const (
	CategoryInjection         FindingCategory = "INJECTION"
	CategoryAuthentication    FindingCategory = "AUTHENTICATION"
	CategoryAuthorization     FindingCategory = "AUTHORIZATION"
	CategoryCryptography      FindingCategory = "CRYPTOGRAPHY"
	CategoryConfiguration     FindingCategory = "CONFIGURATION"
	CategoryDependency        FindingCategory = "DEPENDENCY"
	CategoryCodeQuality       FindingCategory = "CODE_QUALITY"
	CategoryBusinessLogic     FindingCategory = "BUSINESS_LOGIC"
	CategoryDataValidation    FindingCategory = "DATA_VALIDATION"
	CategorySessionManagement FindingCategory = "SESSION_MANAGEMENT"
)

// TriageStatus is the user-settable workflow status of a finding.
// It is the only mutable field of a persisted finding.
type TriageStatus string

const (
	TriageOpen          TriageStatus = "OPEN"
	TriageInProgress    TriageStatus = "IN_PROGRESS"
	TriageResolved      TriageStatus = "RESOLVED"
	TriageWontFix       TriageStatus = "WONT_FIX"
	TriageFalsePositive TriageStatus = "FALSE_POSITIVE"
)

// ValidTriageStatus reports whether s is a member of the triage enumeration
func ValidTriageStatus(s TriageStatus) bool {
	switch s {
	case TriageOpen, TriageInProgress, TriageResolved, TriageWontFix, TriageFalsePositive:
		return true
	}
	return false
}

// Finding represents one reported issue produced by a scan. Findings are
// created in bulk when a scan completes and are immutable afterwards
// except for TriageStatus.
type Finding struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	UUID           string          `json:"uuid" gorm:"uniqueIndex;not null"`
	ScanJobID      uint            `json:"scan_job_id" gorm:"index;not null"`
	Title          string          `json:"title" gorm:"not null"`
	Category       FindingCategory `json:"category" gorm:"index"`
	Severity       Severity        `json:"severity" gorm:"index"`
	Description    string          `json:"description"`
	FilePath       string          `json:"file_path"`
	Line           int             `json:"line"`
	FunctionName   string          `json:"function_name,omitempty"`
	Recommendation string          `json:"recommendation"`
	CWE            string          `json:"cwe,omitempty"`
	CVSS           float64         `json:"cvss,omitempty"`
	TriageStatus   TriageStatus    `json:"triage_status" gorm:"default:OPEN"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `json:"-" gorm:"index"`
}

// SeverityCounts aggregates finding counts by severity for a scan
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// Total returns the total number of findings across all severities
func (c SeverityCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low + c.Info
}

// CountBySeverity tallies findings into a SeverityCounts aggregate
func CountBySeverity(findings []Finding) SeverityCounts {
	var counts SeverityCounts
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			counts.Critical++
		case SeverityHigh:
			counts.High++
		case SeverityMedium:
			counts.Medium++
		case SeverityLow:
			counts.Low++
		case SeverityInfo:
			counts.Info++
		}
	}
	return counts
}
