package database

import (
	"fmt"
	"sort"
	"time"

	"github.com/auditflow/auditflow/internal/models"
	"gorm.io/gorm"
)

// Migration represents a database migration
type Migration struct {
	// Version is the migration version (e.g., 1, 2, 3, ...)
	Version int

	// Name is a descriptive name for the migration
	Name string

	// Up performs the migration
	Up func(tx *gorm.DB) error

	// Down rolls back the migration
	Down func(tx *gorm.DB) error
}

// MigrationRecord represents a record of a migration in the database
type MigrationRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Version   int    `gorm:"uniqueIndex"`
	Name      string `gorm:"size:255"`
	AppliedAt time.Time
}

// Migrator manages database migrations
type Migrator struct {
	db         *gorm.DB
	migrations []*Migration
}

// NewMigrator creates a new migrator
func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{
		db:         db,
		migrations: []*Migration{},
	}
}

// AddMigrations adds migrations to the migrator
func (m *Migrator) AddMigrations(migrations ...*Migration) {
	m.migrations = append(m.migrations, migrations...)
}

// RegisterAllMigrations registers all application migrations
func (m *Migrator) RegisterAllMigrations() {
	m.AddMigrations(
		&Migration{
			Version: 1,
			Name:    "create_initial_schema",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&models.User{},
					&models.UserRole{},
					&models.Token{},
					&models.Project{},
					&models.SourceFile{},
					&models.ScanJob{},
					&models.Finding{},
					&models.Report{},
				)
			},
			Down: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&models.Report{},
					&models.Finding{},
					&models.ScanJob{},
					&models.SourceFile{},
					&models.Project{},
					&models.Token{},
					&models.UserRole{},
					&models.User{},
				)
			},
		},
	)
}

// MigrateUp migrates the database to the latest version
func (m *Migrator) MigrateUp() error {
	if err := m.db.AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create migration records table: %w", err)
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return err
	}

	sort.Slice(m.migrations, func(i, j int) bool {
		return m.migrations[i].Version < m.migrations[j].Version
	})

	for _, migration := range m.migrations {
		if applied[migration.Version] {
			continue
		}

		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
			}
			return tx.Create(&MigrationRecord{
				Version:   migration.Version,
				Name:      migration.Name,
				AppliedAt: time.Now(),
			}).Error
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown rolls back the most recent migration
func (m *Migrator) MigrateDown() error {
	var record MigrationRecord
	if err := m.db.Order("version DESC").First(&record).Error; err != nil {
		return fmt.Errorf("no migrations to roll back: %w", err)
	}

	var target *Migration
	for _, migration := range m.migrations {
		if migration.Version == record.Version {
			target = migration
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration version %d not registered", record.Version)
	}

	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := target.Down(tx); err != nil {
			return fmt.Errorf("rollback of migration %d (%s) failed: %w", target.Version, target.Name, err)
		}
		return tx.Delete(&record).Error
	})
}

// appliedVersions returns the set of migration versions already applied
func (m *Migrator) appliedVersions() (map[int]bool, error) {
	var records []MigrationRecord
	if err := m.db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load migration records: %w", err)
	}

	applied := make(map[int]bool, len(records))
	for _, r := range records {
		applied[r.Version] = true
	}
	return applied, nil
}
