// Package api exposes the HTTP surface: authentication, project
// import, scan orchestration, finding triage and report download.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/auditflow/auditflow/internal/auth"
	"github.com/auditflow/auditflow/internal/config"
	"github.com/auditflow/auditflow/internal/database/repositories"
	"github.com/auditflow/auditflow/internal/middleware"
	"github.com/auditflow/auditflow/internal/report"
	"github.com/auditflow/auditflow/internal/scan"
	"github.com/auditflow/auditflow/internal/utils"
)

// Server is the API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config
	logger     *logrus.Logger
	authMW     *middleware.AuthMiddleware

	authController    *AuthController
	projectController *ProjectController
	scanController    *ScanController
	findingController *FindingController
	reportController  *ReportController
}

// ServerConfig carries the dependencies the API server wires together
type ServerConfig struct {
	Config      *config.Config
	Logger      *logrus.Logger
	AuthService auth.Service
	Users       repositories.UserRepository
	Projects    repositories.ProjectRepository
	Scans       repositories.ScanRepository
	Findings    repositories.FindingRepository
	ScanManager *scan.Manager
	Reports     *report.Service
}

// NewServer creates the API server and registers its routes
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.AuthService == nil {
		return nil, errors.New("auth service is required")
	}
	if cfg.Users == nil {
		return nil, errors.New("user repository is required")
	}
	if cfg.Projects == nil {
		return nil, errors.New("project repository is required")
	}
	if cfg.Scans == nil {
		return nil, errors.New("scan repository is required")
	}
	if cfg.Findings == nil {
		return nil, errors.New("finding repository is required")
	}
	if cfg.ScanManager == nil {
		return nil, errors.New("scan manager is required")
	}
	if cfg.Reports == nil {
		return nil, errors.New("report service is required")
	}

	server := &Server{
		config: cfg.Config,
		logger: cfg.Logger,
		authMW: middleware.NewAuthMiddleware(cfg.AuthService),

		authController:    NewAuthController(cfg.AuthService, cfg.Users, cfg.Logger),
		projectController: NewProjectController(cfg.Projects, cfg.Logger),
		scanController:    NewScanController(cfg.ScanManager, cfg.Projects, cfg.Findings, cfg.Logger),
		findingController: NewFindingController(cfg.Findings, cfg.Scans, cfg.Logger),
		reportController:  NewReportController(cfg.Reports, cfg.Logger),
	}

	server.router = server.buildRouter()

	return server, nil
}

// buildRouter assembles the gin engine with the middleware stack
func (s *Server) buildRouter() *gin.Engine {
	if s.config.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := utils.RegisterAPIValidations(); err != nil {
		s.logger.WithError(err).Warn("Failed to register request validations")
	}

	router := gin.New()
	logging := middleware.NewLoggingMiddleware(s.logger, middleware.WithSkipPaths("/api/v1/health"))
	router.Use(logging.RequestID())
	router.Use(logging.Logger())
	router.Use(middleware.NewRecoveryMiddleware(s.logger).Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	if s.config.Server.RateLimit > 0 {
		limiter := utils.NewRateLimiter(s.config.Server.RateLimit, s.config.Server.RateBurst)
		router.Use(utils.RateLimitMiddleware(limiter))
	}

	s.registerRoutes(router)
	return router
}

// Router exposes the engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the HTTP server until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("API server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
