package database

import (
	"fmt"

	"github.com/auditflow/auditflow/internal/config"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Database represents the interface for database operations
type Database interface {
	// DB returns the underlying database instance
	DB() *gorm.DB

	// Connect establishes a connection to the database
	Connect() error

	// Close closes the database connection
	Close() error

	// Migrate runs database migrations for the given models
	Migrate(models ...interface{}) error

	// Ping checks if the database is reachable
	Ping() error

	// Transaction executes the given function within a transaction
	Transaction(fn func(tx *gorm.DB) error) error
}

// Factory defines interface for creating database instances
type Factory interface {
	// Create returns a database instance based on the configuration and logger
	Create(cfg *config.Config, log *logrus.Logger) (Database, error)
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct{}

// NewFactory creates a new database factory
func NewFactory() Factory {
	return &DefaultFactory{}
}

// Create creates a new database instance based on the configuration and logger
func (f *DefaultFactory) Create(cfg *config.Config, log *logrus.Logger) (Database, error) {
	switch cfg.Database.Type {
	case "postgres":
		return NewPostgresDB(cfg, log)
	case "sqlite":
		return NewSQLiteDB(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}

// InitDatabase initializes the database based on configuration
func InitDatabase(cfg *config.Config, log *logrus.Logger) (Database, error) {
	factory := NewFactory()
	db, err := factory.Create(cfg, log)
	if err != nil {
		log.WithError(err).Error("Failed to create database instance")
		return nil, err
	}

	log.Info("Connecting to database...")
	if err := db.Connect(); err != nil {
		log.WithError(err).Error("Failed to connect to database")
		return nil, err
	}
	log.Info("Database connection established.")

	return db, nil
}
