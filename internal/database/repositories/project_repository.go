package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/auditflow/auditflow/internal/models"
	"gorm.io/gorm"
)

// ProjectRepository defines the interface for project data operations
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uint) (*models.Project, error)
	GetByUUID(ctx context.Context, uuid string) (*models.Project, error)
	GetWithFiles(ctx context.Context, id uint) (*models.Project, error)
	List(ctx context.Context, userID uint, offset, limit int) ([]models.Project, int64, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id uint) error
	ReplaceFiles(ctx context.Context, projectID uint, files []models.SourceFile) error
	CountFiles(ctx context.Context, projectID uint) (int64, error)
}

// projectRepo implements the ProjectRepository interface
type projectRepo struct {
	db *gorm.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepo{
		db: db,
	}
}

// Create creates a new project
func (r *projectRepo) Create(ctx context.Context, project *models.Project) error {
	result := r.db.WithContext(ctx).Create(project)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("%w: project UUID already exists", ErrDuplicateKey)
		}
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	return nil
}

// GetByID finds a project by ID
func (r *projectRepo) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	result := r.db.WithContext(ctx).First(&project, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &project, nil
}

// GetByUUID finds a project by its external UUID
func (r *projectRepo) GetByUUID(ctx context.Context, uuid string) (*models.Project, error) {
	var project models.Project
	result := r.db.WithContext(ctx).
		Where("uuid = ?", uuid).
		First(&project)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &project, nil
}

// GetWithFiles finds a project by ID with its source files preloaded
func (r *projectRepo) GetWithFiles(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	result := r.db.WithContext(ctx).
		Preload("Files").
		First(&project, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &project, nil
}

// List lists a user's projects with pagination
func (r *projectRepo) List(ctx context.Context, userID uint, offset, limit int) ([]models.Project, int64, error) {
	var projects []models.Project
	var count int64

	countQuery := r.db.WithContext(ctx).Model(&models.Project{}).Where("user_id = ?", userID)
	if err := countQuery.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&projects)

	if result.Error != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return projects, count, nil
}

// Update updates a project
func (r *projectRepo) Update(ctx context.Context, project *models.Project) error {
	result := r.db.WithContext(ctx).
		Model(project).
		Omit("CreatedAt").
		Updates(project)

	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete deletes a project and its files
func (r *projectRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.SourceFile{}).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
		}

		result := tx.Delete(&models.Project{}, id)
		if result.Error != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ReplaceFiles atomically replaces the whole file set of a project.
// Either the new corpus is fully visible or the old one remains.
func (r *projectRepo) ReplaceFiles(ctx context.Context, projectID uint, files []models.SourceFile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&models.SourceFile{}).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
		}

		for i := range files {
			files[i].ID = 0
			files[i].ProjectID = projectID
		}

		if len(files) > 0 {
			if err := tx.CreateInBatches(files, 100).Error; err != nil {
				return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
			}
		}

		result := tx.Model(&models.Project{}).
			Where("id = ?", projectID).
			Update("status", models.ProjectStatusActive)
		if result.Error != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		return nil
	})
}

// CountFiles returns the number of source files in a project
func (r *projectRepo) CountFiles(ctx context.Context, projectID uint) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&models.SourceFile{}).
		Where("project_id = ?", projectID).
		Count(&count)

	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return count, nil
}
