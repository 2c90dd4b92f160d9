package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/auditflow/auditflow/internal/config"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteDB implements the Database interface for SQLite
type SQLiteDB struct {
	config *config.Config
	db     *gorm.DB
	sqlDB  *sql.DB
	log    *logrus.Logger
}

// NewSQLiteDB creates a new SQLite database instance
func NewSQLiteDB(cfg *config.Config, log *logrus.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		config: cfg,
		log:    log,
	}, nil
}

// Connect establishes a connection to the SQLite database
func (s *SQLiteDB) Connect() error {
	databasePath := s.config.Database.SQLite.Path
	if databasePath == "" {
		databasePath = "auditflow.db"
	}

	if err := ensureDirectoryExists(databasePath); err != nil {
		return fmt.Errorf("failed to create directory for SQLite database: %w", err)
	}

	var logAdapter logger.Writer
	if s.log != nil {
		logAdapter = NewLogrusAdapter(s.log)
	} else {
		logAdapter = discardWriter{}
	}

	gormLogger := logger.New(
		logAdapter,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  getLogLevel(s.config.Logging.Level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	if err := setPragmas(db); err != nil {
		if s.log != nil {
			s.log.WithError(err).Warn("Failed to set SQLite pragmas")
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	// SQLite typically uses a single connection
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)
	if s.config.Database.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(s.config.Database.ConnMaxLifetime)
	}

	s.db = db
	s.sqlDB = sqlDB

	return nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	if s.sqlDB != nil {
		return s.sqlDB.Close()
	}
	return nil
}

// DB returns the underlying GORM database instance
func (s *SQLiteDB) DB() *gorm.DB {
	return s.db
}

// Ping checks if the database is reachable
func (s *SQLiteDB) Ping() error {
	if s.sqlDB == nil {
		return errors.New("database connection not established")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.sqlDB.PingContext(ctx)
}

// Transaction executes the given function within a transaction
func (s *SQLiteDB) Transaction(fn func(tx *gorm.DB) error) error {
	if s.db == nil {
		return errors.New("database connection not established for transaction")
	}
	return s.db.Transaction(fn)
}

// Migrate runs database migrations
func (s *SQLiteDB) Migrate(models ...interface{}) error {
	if s.db == nil {
		return errors.New("database connection not established for migration")
	}
	return s.db.AutoMigrate(models...)
}

// ensureDirectoryExists ensures that the directory for the database file exists
func ensureDirectoryExists(databasePath string) error {
	dir := filepath.Dir(databasePath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// setPragmas sets recommended pragmas for SQLite
func setPragmas(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("failed to set pragma '%s': %w", pragma, err)
		}
	}
	return nil
}
