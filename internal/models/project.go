package models

import (
	"time"

	"gorm.io/gorm"
)

// ProjectStatus represents the lifecycle status of an imported project
type ProjectStatus string

const (
	// ProjectStatusActive represents a project whose files are available for scanning
	ProjectStatusActive ProjectStatus = "ACTIVE"
	// ProjectStatusImporting represents a project whose file set is being replaced
	ProjectStatusImporting ProjectStatus = "IMPORTING"
	// ProjectStatusArchived represents a project that is no longer scanned
	ProjectStatusArchived ProjectStatus = "ARCHIVED"
)

// Project represents an imported source repository owned by a user
type Project struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UUID      string         `json:"uuid" gorm:"uniqueIndex;not null"`
	UserID    uint           `json:"user_id" gorm:"index;not null"`
	Name      string         `json:"name" gorm:"not null"`
	Status    ProjectStatus  `json:"status" gorm:"default:ACTIVE"`
	Files     []SourceFile   `json:"files,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// SourceFile represents one file of a project's imported corpus.
// Content is immutable during a scan; the whole file set is replaced
// wholesale on re-import.
type SourceFile struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ProjectID uint      `json:"project_id" gorm:"index;not null"`
	Path      string    `json:"path" gorm:"not null"`
	Language  string    `json:"language"`
	Content   []byte    `json:"-"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for the SourceFile model
func (SourceFile) TableName() string {
	return "source_files"
}

// IsManifest reports whether the file is a dependency manifest the
// dependency detectors should inspect.
func (f *SourceFile) IsManifest() bool {
	switch f.Path {
	case "package.json", "composer.json", "bower.json":
		return true
	}
	n := len(f.Path)
	for i := n - 1; i >= 0; i-- {
		if f.Path[i] == '/' {
			rest := f.Path[i+1:]
			return rest == "package.json" || rest == "composer.json" || rest == "bower.json"
		}
	}
	return false
}
