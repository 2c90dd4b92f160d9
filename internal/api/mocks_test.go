package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/auditflow/auditflow/internal/auth"
	"github.com/auditflow/auditflow/internal/config"
	"github.com/auditflow/auditflow/internal/database/repositories"
	"github.com/auditflow/auditflow/internal/middleware"
	"github.com/auditflow/auditflow/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubOrchestrator implements ScanOrchestrator with per-call hooks
type stubOrchestrator struct {
	StartScanFunc func(ctx context.Context, userID uint, req models.StartScanRequest) (*models.ScanJob, error)
	GetScanFunc   func(ctx context.Context, userID uint, scanUUID string) (*models.ScanJob, models.SeverityCounts, error)
	ListScansFunc func(ctx context.Context, userID uint, projectUUID string, offset, limit int) ([]models.ScanJob, int64, error)
	CancelFunc    func(ctx context.Context, userID uint, scanUUID string) (*models.ScanJob, error)
}

func (s *stubOrchestrator) StartScan(ctx context.Context, userID uint, req models.StartScanRequest) (*models.ScanJob, error) {
	return s.StartScanFunc(ctx, userID, req)
}

func (s *stubOrchestrator) GetScan(ctx context.Context, userID uint, scanUUID string) (*models.ScanJob, models.SeverityCounts, error) {
	return s.GetScanFunc(ctx, userID, scanUUID)
}

func (s *stubOrchestrator) ListScans(ctx context.Context, userID uint, projectUUID string, offset, limit int) ([]models.ScanJob, int64, error) {
	return s.ListScansFunc(ctx, userID, projectUUID, offset, limit)
}

func (s *stubOrchestrator) Cancel(ctx context.Context, userID uint, scanUUID string) (*models.ScanJob, error) {
	return s.CancelFunc(ctx, userID, scanUUID)
}

// stubReportProvider implements ReportProvider with per-call hooks
type stubReportProvider struct {
	GetFunc        func(ctx context.Context, userID uint, reportUUID string) (*models.Report, *models.ScanJob, error)
	GetForScanFunc func(ctx context.Context, userID uint, scanUUID string) (*models.Report, *models.ScanJob, error)
	GetPDFFunc     func(ctx context.Context, userID uint, reportUUID string) (*models.Report, []byte, error)
}

func (s *stubReportProvider) Get(ctx context.Context, userID uint, reportUUID string) (*models.Report, *models.ScanJob, error) {
	return s.GetFunc(ctx, userID, reportUUID)
}

func (s *stubReportProvider) GetForScan(ctx context.Context, userID uint, scanUUID string) (*models.Report, *models.ScanJob, error) {
	return s.GetForScanFunc(ctx, userID, scanUUID)
}

func (s *stubReportProvider) GetPDF(ctx context.Context, userID uint, reportUUID string) (*models.Report, []byte, error) {
	return s.GetPDFFunc(ctx, userID, reportUUID)
}

// stubProjects serves project lookups in snapshots
type stubProjects struct {
	repositories.ProjectRepository
}

func (s *stubProjects) GetByID(_ context.Context, id uint) (*models.Project, error) {
	return &models.Project{ID: id, UUID: "project-uuid", UserID: 1, Name: "billing-service"}, nil
}

// stubFindings serves finding listings and counts
type stubFindings struct {
	repositories.FindingRepository

	findings []models.Finding
	triage   func(id uint, status models.TriageStatus) error
}

func (s *stubFindings) List(_ context.Context, filter repositories.FindingFilter, _, _ int) ([]models.Finding, int64, error) {
	return s.findings, int64(len(s.findings)), nil
}

func (s *stubFindings) GetByUUID(_ context.Context, uuid string) (*models.Finding, error) {
	for i := range s.findings {
		if s.findings[i].UUID == uuid {
			return &s.findings[i], nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *stubFindings) CountBySeverity(_ context.Context, _ uint) (models.SeverityCounts, error) {
	return models.CountBySeverity(s.findings), nil
}

func (s *stubFindings) UpdateTriageStatus(_ context.Context, id uint, status models.TriageStatus) error {
	if !models.ValidTriageStatus(status) {
		return repositories.ErrInvalidInput
	}
	if s.triage != nil {
		return s.triage(id, status)
	}
	return nil
}

// stubScans resolves finding ownership
type stubScans struct {
	repositories.ScanRepository
}

func (s *stubScans) GetByID(_ context.Context, id uint) (*models.ScanJob, error) {
	return &models.ScanJob{ID: id, UUID: "scan-uuid", UserID: 1}, nil
}

// testAuthService accepts the token "valid-token" as user 1
func testAuthService() auth.Service {
	return &auth.MockService{
		VerifyFunc: func(_ context.Context, token string) (*auth.TokenDetails, error) {
			if token != "valid-token" {
				return nil, auth.ErrInvalidToken
			}
			return &auth.TokenDetails{
				TokenUUID: "token-uuid",
				UserID:    1,
				Roles:     []string{"user"},
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
}

type serverStubs struct {
	orch        *stubOrchestrator
	reports     *stubReportProvider
	findings    *stubFindings
	projects    repositories.ProjectRepository
	authService auth.Service
}

// newTestServer assembles a server over stubbed services
func newTestServer(stubs serverStubs) *Server {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	cfg := &config.Config{}
	cfg.Server.Mode = "test"

	users := &stubUsers{}
	findings := stubs.findings
	if findings == nil {
		findings = &stubFindings{}
	}
	projects := stubs.projects
	if projects == nil {
		projects = &stubProjects{}
	}
	authService := stubs.authService
	if authService == nil {
		authService = testAuthService()
	}

	s := &Server{
		config: cfg,
		logger: log,
		authMW: middleware.NewAuthMiddleware(authService),

		authController:    NewAuthController(authService, users, log),
		projectController: NewProjectController(projects, log),
		scanController:    NewScanController(stubs.orch, &stubProjects{}, findings, log),
		findingController: NewFindingController(findings, &stubScans{}, log),
		reportController:  NewReportController(stubs.reports, log),
	}
	s.router = s.buildRouter()
	return s
}

// stubUsers serves GET /user/me
type stubUsers struct {
	repositories.UserRepository
}

func (s *stubUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	return &models.User{
		ID:    id,
		Email: "dev@example.com",
		Name:  "Dev",
		Roles: []models.UserRole{{UserID: id, Role: models.RoleUser}},
	}, nil
}
