package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/auditflow/auditflow/internal/analyzer"
	"github.com/auditflow/auditflow/internal/api"
	"github.com/auditflow/auditflow/internal/auth"
	"github.com/auditflow/auditflow/internal/config"
	"github.com/auditflow/auditflow/internal/database"
	"github.com/auditflow/auditflow/internal/database/repositories"
	"github.com/auditflow/auditflow/internal/report"
	"github.com/auditflow/auditflow/internal/scan"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	logger := initLogger()
	logger.WithFields(logrus.Fields{
		"version":    Version,
		"commit":     Commit,
		"build_date": BuildDate,
	}).Info("Starting AuditFlow")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if cfg.Version == "dev" {
		cfg.Version = Version
	}

	db, err := initDatabase(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close database")
		}
	}()

	users := repositories.NewUserRepository(db.DB())
	projects := repositories.NewProjectRepository(db.DB())
	scans := repositories.NewScanRepository(db.DB())
	findings := repositories.NewFindingRepository(db.DB())
	reports := repositories.NewReportRepository(db.DB())

	authService := initAuthService(cfg, db, users, logger)

	detector := analyzer.New(logger, cfg.Scan.MaxFileSize)
	manager := scan.NewManager(projects, scans, findings, detector, scan.Config{
		MaxConcurrent: cfg.Scan.MaxConcurrent,
		JobDeadline:   cfg.Scan.JobDeadline,
	}, logger)

	renderer := report.NewRenderer(logger,
		report.NewBrowserStrategy(cfg.Render.BrowserTimeout),
		report.NewNativeStrategy(cfg.Render.NativeTimeout),
	)
	reportService := report.NewService(reports, scans, projects, findings, renderer, logger)

	server, err := api.NewServer(&api.ServerConfig{
		Config:      cfg,
		Logger:      logger,
		AuthService: authService,
		Users:       users,
		Projects:    projects,
		Scans:       scans,
		Findings:    findings,
		ScanManager: manager,
		Reports:     reportService,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize API server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("API server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Scan manager did not drain in time")
	}

	logger.Info("Server shutdown complete")
}

// initLogger configures the process logger from the environment
func initLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	logger.SetLevel(logrus.InfoLevel)
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		level, err := logrus.ParseLevel(raw)
		if err != nil {
			logger.WithError(err).Warn("Invalid log level, defaulting to info")
		} else {
			logger.SetLevel(level)
		}
	}

	return logger
}

// initDatabase connects and migrates the database
func initDatabase(cfg *config.Config, logger *logrus.Logger) (database.Database, error) {
	logger.WithFields(logrus.Fields{
		"type": cfg.Database.Type,
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	}).Info("Initializing database connection")

	db, err := database.InitDatabase(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logger.Info("Running database migrations")
	migrator := database.NewMigrator(db.DB())
	migrator.RegisterAllMigrations()
	if err := migrator.MigrateUp(); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	return db, nil
}

// initAuthService wires the JWT, password and token-store components
func initAuthService(cfg *config.Config, db database.Database, users repositories.UserRepository, logger *logrus.Logger) auth.Service {
	logger.Info("Initializing authentication service")

	jwtService := auth.NewJWTService(auth.JWTConfig{
		Secret:          cfg.Auth.Secret,
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		Issuer:          cfg.Auth.TokenIssuer,
		Audience:        []string{cfg.Auth.TokenAudience},
	}, logger)

	passwordService := auth.NewPasswordService(auth.PasswordConfig{
		MinLength: cfg.Auth.PasswordPolicy.MinLength,
		MaxLength: 72,
		HashCost:  bcrypt.DefaultCost,
	})

	tokenStore := auth.NewGormTokenStore(db.DB())

	return auth.NewService(users, jwtService, passwordService, tokenStore, logger)
}
