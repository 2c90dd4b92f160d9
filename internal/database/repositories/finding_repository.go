package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/auditflow/auditflow/internal/models"
	"gorm.io/gorm"
)

// FindingRepository defines the interface for finding data operations
type FindingRepository interface {
	CreateBatch(ctx context.Context, findings []models.Finding) error
	GetByID(ctx context.Context, id uint) (*models.Finding, error)
	GetByUUID(ctx context.Context, uuid string) (*models.Finding, error)
	List(ctx context.Context, filter FindingFilter, offset, limit int) ([]models.Finding, int64, error)
	UpdateTriageStatus(ctx context.Context, id uint, status models.TriageStatus) error
	CountBySeverity(ctx context.Context, scanJobID uint) (models.SeverityCounts, error)
	DeleteByScanJob(ctx context.Context, scanJobID uint) error
}

// FindingFilter narrows finding listings
type FindingFilter struct {
	ScanJobID uint
	Severity  models.Severity
	Category  models.FindingCategory
	Triage    models.TriageStatus
}

// findingRepo implements the FindingRepository interface
type findingRepo struct {
	db *gorm.DB
}

// NewFindingRepository creates a new finding repository
func NewFindingRepository(db *gorm.DB) FindingRepository {
	return &findingRepo{
		db: db,
	}
}

// CreateBatch persists a scan's findings in one transaction
func (r *findingRepo) CreateBatch(ctx context.Context, findings []models.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).CreateInBatches(findings, 200)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	return nil
}

// GetByID finds a finding by ID
func (r *findingRepo) GetByID(ctx context.Context, id uint) (*models.Finding, error) {
	var finding models.Finding
	result := r.db.WithContext(ctx).First(&finding, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &finding, nil
}

// GetByUUID finds a finding by its external UUID
func (r *findingRepo) GetByUUID(ctx context.Context, uuid string) (*models.Finding, error) {
	var finding models.Finding
	result := r.db.WithContext(ctx).
		Where("uuid = ?", uuid).
		First(&finding)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &finding, nil
}

// List lists findings matching the filter, most severe first
func (r *findingRepo) List(ctx context.Context, filter FindingFilter, offset, limit int) ([]models.Finding, int64, error) {
	var findings []models.Finding
	var count int64

	query := r.db.WithContext(ctx).Model(&models.Finding{})
	if filter.ScanJobID != 0 {
		query = query.Where("scan_job_id = ?", filter.ScanJobID)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Triage != "" {
		query = query.Where("triage_status = ?", filter.Triage)
	}

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	result := query.
		Order(severityOrderClause).
		Order("file_path, line").
		Offset(offset).
		Limit(limit).
		Find(&findings)

	if result.Error != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return findings, count, nil
}

// severityOrderClause sorts CRITICAL first through INFO last
const severityOrderClause = `CASE severity
	WHEN 'CRITICAL' THEN 0
	WHEN 'HIGH' THEN 1
	WHEN 'MEDIUM' THEN 2
	WHEN 'LOW' THEN 3
	ELSE 4 END`

// UpdateTriageStatus updates the triage workflow status of a finding
func (r *findingRepo) UpdateTriageStatus(ctx context.Context, id uint, status models.TriageStatus) error {
	if !models.ValidTriageStatus(status) {
		return fmt.Errorf("%w: unknown triage status %q", ErrInvalidInput, status)
	}

	result := r.db.WithContext(ctx).
		Model(&models.Finding{}).
		Where("id = ?", id).
		Update("triage_status", status)

	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// CountBySeverity tallies a scan's findings by severity
func (r *findingRepo) CountBySeverity(ctx context.Context, scanJobID uint) (models.SeverityCounts, error) {
	type row struct {
		Severity models.Severity
		Count    int
	}

	var rows []row
	result := r.db.WithContext(ctx).
		Model(&models.Finding{}).
		Select("severity, COUNT(*) as count").
		Where("scan_job_id = ?", scanJobID).
		Group("severity").
		Scan(&rows)

	if result.Error != nil {
		return models.SeverityCounts{}, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	var counts models.SeverityCounts
	for _, rw := range rows {
		switch rw.Severity {
		case models.SeverityCritical:
			counts.Critical = rw.Count
		case models.SeverityHigh:
			counts.High = rw.Count
		case models.SeverityMedium:
			counts.Medium = rw.Count
		case models.SeverityLow:
			counts.Low = rw.Count
		case models.SeverityInfo:
			counts.Info = rw.Count
		}
	}

	return counts, nil
}

// DeleteByScanJob removes all findings of a scan job
func (r *findingRepo) DeleteByScanJob(ctx context.Context, scanJobID uint) error {
	result := r.db.WithContext(ctx).
		Where("scan_job_id = ?", scanJobID).
		Delete(&models.Finding{})

	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return nil
}
