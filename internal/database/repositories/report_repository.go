package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/auditflow/auditflow/internal/models"
	"gorm.io/gorm"
)

// ReportRepository defines the interface for report data operations
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	GetByUUID(ctx context.Context, uuid string) (*models.Report, error)
	GetByScanJob(ctx context.Context, scanJobID uint) (*models.Report, error)
	SavePDF(ctx context.Context, id uint, pdf []byte) error
	Delete(ctx context.Context, id uint) error
}

// reportRepo implements the ReportRepository interface
type reportRepo struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepo{
		db: db,
	}
}

// Create creates a new report
func (r *reportRepo) Create(ctx context.Context, report *models.Report) error {
	result := r.db.WithContext(ctx).Create(report)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("%w: report UUID already exists", ErrDuplicateKey)
		}
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	return nil
}

// GetByID finds a report by ID
func (r *reportRepo) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	var report models.Report
	result := r.db.WithContext(ctx).First(&report, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &report, nil
}

// GetByUUID finds a report by its external UUID
func (r *reportRepo) GetByUUID(ctx context.Context, uuid string) (*models.Report, error) {
	var report models.Report
	result := r.db.WithContext(ctx).
		Where("uuid = ?", uuid).
		First(&report)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &report, nil
}

// GetByScanJob finds the most recent report for a scan job
func (r *reportRepo) GetByScanJob(ctx context.Context, scanJobID uint) (*models.Report, error) {
	var report models.Report
	result := r.db.WithContext(ctx).
		Where("scan_job_id = ?", scanJobID).
		Order("generated_at DESC").
		First(&report)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &report, nil
}

// SavePDF stores the rendered PDF bytes on an existing report
func (r *reportRepo) SavePDF(ctx context.Context, id uint, pdf []byte) error {
	result := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ?", id).
		Update("pdf", pdf)

	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete deletes a report
func (r *reportRepo) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Report{}, id)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
