package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/auditflow/auditflow/internal/config"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresDB implements the Database interface for PostgreSQL
type PostgresDB struct {
	config *config.Config
	db     *gorm.DB
	sqlDB  *sql.DB
	log    *logrus.Logger
}

// NewPostgresDB creates a new PostgreSQL database instance
func NewPostgresDB(cfg *config.Config, log *logrus.Logger) (*PostgresDB, error) {
	return &PostgresDB{
		config: cfg,
		log:    log,
	}, nil
}

// Connect establishes a connection to the PostgreSQL database
func (p *PostgresDB) Connect() error {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.config.Database.Host,
		p.config.Database.Port,
		p.config.Database.User,
		p.config.Database.Password,
		p.config.Database.Name,
		p.config.Database.SSLMode,
	)

	var logAdapter logger.Writer
	if p.log != nil {
		logAdapter = NewLogrusAdapter(p.log)
	} else {
		logAdapter = discardWriter{}
	}

	gormLogger := logger.New(
		logAdapter,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  getLogLevel(p.config.Logging.Level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	if p.config.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(p.config.Database.MaxOpenConns)
	}
	if p.config.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(p.config.Database.MaxIdleConns)
	}
	if p.config.Database.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(p.config.Database.ConnMaxLifetime)
	}

	p.db = db
	p.sqlDB = sqlDB

	return nil
}

// Close closes the database connection
func (p *PostgresDB) Close() error {
	if p.sqlDB != nil {
		return p.sqlDB.Close()
	}
	return nil
}

// DB returns the underlying GORM database instance
func (p *PostgresDB) DB() *gorm.DB {
	return p.db
}

// Ping checks if the database is reachable
func (p *PostgresDB) Ping() error {
	if p.sqlDB == nil {
		return errors.New("database connection not established")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return p.sqlDB.PingContext(ctx)
}

// Transaction executes the given function within a transaction
func (p *PostgresDB) Transaction(fn func(tx *gorm.DB) error) error {
	if p.db == nil {
		return errors.New("database connection not established for transaction")
	}
	return p.db.Transaction(fn)
}

// Migrate runs database migrations
func (p *PostgresDB) Migrate(models ...interface{}) error {
	if p.db == nil {
		return errors.New("database connection not established for migration")
	}
	return p.db.AutoMigrate(models...)
}

// getLogLevel maps the configured log level to GORM's logger levels
func getLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return logger.Info // GORM's Info level logs SQL
	case "info":
		return logger.Info
	case "warn", "warning":
		return logger.Warn
	case "error", "fatal", "panic":
		return logger.Error
	default:
		return logger.Silent
	}
}

// LogrusAdapter adapts a *logrus.Logger to GORM's logger.Writer interface
type LogrusAdapter struct {
	logger *logrus.Logger
}

// NewLogrusAdapter creates a new Logrus adapter for GORM
func NewLogrusAdapter(log *logrus.Logger) *LogrusAdapter {
	return &LogrusAdapter{
		logger: log,
	}
}

// Printf implements the logger.Writer interface
func (l *LogrusAdapter) Printf(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Debugf(format, args...)
}

// discardWriter implements logger.Writer but does nothing
type discardWriter struct{}

// Printf implements the logger.Writer interface for discardWriter
func (dw discardWriter) Printf(format string, args ...interface{}) {
}
