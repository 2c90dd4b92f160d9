package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/auditflow/auditflow/internal/models"
	"gorm.io/gorm"
)

// ErrStaleTransition is returned when a guarded status transition finds
// the job no longer in the expected source status. Callers use it to
// detect that another transition (typically a cancellation) won the race.
var ErrStaleTransition = errors.New("scan status changed concurrently")

// ScanRepository defines the interface for scan job data operations
type ScanRepository interface {
	Create(ctx context.Context, job *models.ScanJob) error
	GetByID(ctx context.Context, id uint) (*models.ScanJob, error)
	GetByUUID(ctx context.Context, uuid string) (*models.ScanJob, error)
	List(ctx context.Context, filter ScanFilter, offset, limit int) ([]models.ScanJob, int64, error)
	CountActive(ctx context.Context, userID uint) (int64, error)
	UpdateProgress(ctx context.Context, id uint, progress int, message string) error
	Transition(ctx context.Context, id uint, from, to models.ScanStatus, message string) error
	Complete(ctx context.Context, id uint, resultJSON []byte) error
	Fail(ctx context.Context, id uint, cause string) error
	Cancel(ctx context.Context, id uint) error
}

// ScanFilter narrows scan listings
type ScanFilter struct {
	UserID    uint
	ProjectID uint
	Status    models.ScanStatus
}

// scanRepo implements the ScanRepository interface
type scanRepo struct {
	db *gorm.DB
}

// NewScanRepository creates a new scan repository
func NewScanRepository(db *gorm.DB) ScanRepository {
	return &scanRepo{
		db: db,
	}
}

// Create creates a new scan job
func (r *scanRepo) Create(ctx context.Context, job *models.ScanJob) error {
	result := r.db.WithContext(ctx).Create(job)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("%w: scan UUID already exists", ErrDuplicateKey)
		}
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	return nil
}

// GetByID finds a scan job by ID
func (r *scanRepo) GetByID(ctx context.Context, id uint) (*models.ScanJob, error) {
	var job models.ScanJob
	result := r.db.WithContext(ctx).First(&job, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &job, nil
}

// GetByUUID finds a scan job by its external UUID
func (r *scanRepo) GetByUUID(ctx context.Context, uuid string) (*models.ScanJob, error) {
	var job models.ScanJob
	result := r.db.WithContext(ctx).
		Where("uuid = ?", uuid).
		First(&job)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &job, nil
}

// List lists scan jobs matching the filter, newest first
func (r *scanRepo) List(ctx context.Context, filter ScanFilter, offset, limit int) ([]models.ScanJob, int64, error) {
	var jobs []models.ScanJob
	var count int64

	query := r.db.WithContext(ctx).Model(&models.ScanJob{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.ProjectID != 0 {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	result := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&jobs)

	if result.Error != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return jobs, count, nil
}

// CountActive counts a user's PENDING and RUNNING scans
func (r *scanRepo) CountActive(ctx context.Context, userID uint) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&models.ScanJob{}).
		Where("user_id = ? AND status IN ?", userID,
			[]models.ScanStatus{models.ScanStatusPending, models.ScanStatusRunning}).
		Count(&count)

	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return count, nil
}

// UpdateProgress advances the progress of a RUNNING scan. The status
// guard makes it a no-op once the job has left RUNNING, so a cancelled
// job never reports late progress.
func (r *scanRepo) UpdateProgress(ctx context.Context, id uint, progress int, message string) error {
	result := r.db.WithContext(ctx).
		Model(&models.ScanJob{}).
		Where("id = ? AND status = ?", id, models.ScanStatusRunning).
		Updates(map[string]interface{}{
			"progress":       progress,
			"status_message": message,
		})

	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrStaleTransition
	}

	return nil
}

// Transition performs a compare-and-set status transition from one
// status to another. It fails with ErrStaleTransition when the job is
// not in the expected source status, which is how the first terminal
// transition wins every race.
func (r *scanRepo) Transition(ctx context.Context, id uint, from, to models.ScanStatus, message string) error {
	updates := map[string]interface{}{
		"status":         to,
		"status_message": message,
	}
	now := time.Now()
	if to == models.ScanStatusRunning {
		updates["started_at"] = now
	}
	if to.IsTerminal() {
		updates["completed_at"] = now
	}

	result := r.db.WithContext(ctx).
		Model(&models.ScanJob{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrStaleTransition
	}

	return nil
}

// Complete marks a RUNNING scan COMPLETED at 100% and stores its result
func (r *scanRepo) Complete(ctx context.Context, id uint, resultJSON []byte) error {
	result := r.db.WithContext(ctx).
		Model(&models.ScanJob{}).
		Where("id = ? AND status = ?", id, models.ScanStatusRunning).
		Updates(map[string]interface{}{
			"status":         models.ScanStatusCompleted,
			"progress":       100,
			"status_message": "scan completed",
			"result_json":    resultJSON,
			"completed_at":   time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrStaleTransition
	}

	return nil
}

// Fail marks a non-terminal scan FAILED and records the cause verbatim
func (r *scanRepo) Fail(ctx context.Context, id uint, cause string) error {
	result := r.db.WithContext(ctx).
		Model(&models.ScanJob{}).
		Where("id = ? AND status IN ?", id,
			[]models.ScanStatus{models.ScanStatusPending, models.ScanStatusRunning}).
		Updates(map[string]interface{}{
			"status":         models.ScanStatusFailed,
			"status_message": cause,
			"completed_at":   time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrStaleTransition
	}

	return nil
}

// Cancel marks a non-terminal scan CANCELLED. Once this commits, the
// completion and failure paths lose their own guarded updates.
func (r *scanRepo) Cancel(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.ScanJob{}).
		Where("id = ? AND status IN ?", id,
			[]models.ScanStatus{models.ScanStatusPending, models.ScanStatusRunning}).
		Updates(map[string]interface{}{
			"status":         models.ScanStatusCancelled,
			"status_message": "scan cancelled",
			"completed_at":   time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrStaleTransition
	}

	return nil
}
