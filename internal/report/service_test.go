package report

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/auditflow/auditflow/internal/database/repositories"
	"github.com/auditflow/auditflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReportRepo struct {
	repositories.ReportRepository

	mu      sync.Mutex
	nextID  uint
	reports map[string]*models.Report
}

func newStubReportRepo() *stubReportRepo {
	return &stubReportRepo{reports: make(map[string]*models.Report)}
}

func (r *stubReportRepo) Create(_ context.Context, rep *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rep.ID = r.nextID
	cp := *rep
	r.reports[rep.UUID] = &cp
	return nil
}

func (r *stubReportRepo) GetByUUID(_ context.Context, uuid string) (*models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reports[uuid]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *rep
	return &cp, nil
}

func (r *stubReportRepo) GetByScanJob(_ context.Context, scanJobID uint) (*models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.reports {
		if rep.ScanJobID == scanJobID {
			cp := *rep
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *stubReportRepo) SavePDF(_ context.Context, id uint, pdf []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.reports {
		if rep.ID == id {
			rep.PDF = pdf
			return nil
		}
	}
	return repositories.ErrNotFound
}

type stubScanRepo struct {
	repositories.ScanRepository

	jobs map[string]*models.ScanJob
}

func (r *stubScanRepo) GetByUUID(_ context.Context, uuid string) (*models.ScanJob, error) {
	job, ok := r.jobs[uuid]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *stubScanRepo) GetByID(_ context.Context, id uint) (*models.ScanJob, error) {
	for _, job := range r.jobs {
		if job.ID == id {
			cp := *job
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type stubProjectRepo struct {
	repositories.ProjectRepository

	project *models.Project
}

func (r *stubProjectRepo) GetByID(_ context.Context, id uint) (*models.Project, error) {
	if r.project == nil || r.project.ID != id {
		return nil, repositories.ErrNotFound
	}
	cp := *r.project
	return &cp, nil
}

type stubFindingRepo struct {
	repositories.FindingRepository

	findings []models.Finding
}

func (r *stubFindingRepo) List(_ context.Context, filter repositories.FindingFilter, _, _ int) ([]models.Finding, int64, error) {
	var out []models.Finding
	for _, f := range r.findings {
		if filter.ScanJobID == 0 || f.ScanJobID == filter.ScanJobID {
			out = append(out, f)
		}
	}
	return out, int64(len(out)), nil
}

func completedJob() *models.ScanJob {
	result := models.ScanResult{
		Score:          80,
		RiskLevel:      models.RiskMedium,
		SeverityCounts: models.SeverityCounts{Critical: 1},
		FilesScanned:   2,
		FindingCount:   1,
	}
	payload, _ := json.Marshal(result)
	now := time.Now()
	return &models.ScanJob{
		ID:          10,
		UUID:        "scan-uuid",
		ProjectID:   1,
		UserID:      1,
		Type:        models.ScanTypeSecurity,
		Status:      models.ScanStatusCompleted,
		Progress:    100,
		ResultJSON:  payload,
		CompletedAt: &now,
	}
}

func newTestService(job *models.ScanJob, strategies ...Strategy) (*Service, *stubReportRepo) {
	reports := newStubReportRepo()
	scans := &stubScanRepo{jobs: map[string]*models.ScanJob{}}
	if job != nil {
		scans.jobs[job.UUID] = job
	}
	projects := &stubProjectRepo{project: &models.Project{ID: 1, UUID: "project-uuid", UserID: 1, Name: "billing-service"}}
	findings := &stubFindingRepo{findings: []models.Finding{
		{ScanJobID: 10, Title: "Hardcoded credential in source", Severity: models.SeverityCritical, FilePath: "src/config.js", Line: 1},
	}}

	svc := NewService(reports, scans, projects, findings, NewRenderer(testLogger(), strategies...), testLogger())
	return svc, reports
}

func TestGenerate_StoresHTMLAndPDF(t *testing.T) {
	svc, _ := newTestService(completedJob(), &stubStrategy{name: "ok", pdf: []byte("%PDF-ok")})

	rep, err := svc.Generate(context.Background(), 1, "scan-uuid")
	require.NoError(t, err)
	assert.NotEmpty(t, rep.UUID)
	assert.Equal(t, uint(10), rep.ScanJobID)
	assert.Contains(t, rep.HTML, "billing-service")
	assert.Equal(t, []byte("%PDF-ok"), rep.PDF)
}

func TestGenerate_RenderFailureStillStoresHTML(t *testing.T) {
	svc, _ := newTestService(completedJob(), &stubStrategy{name: "down", err: assert.AnError})

	rep, err := svc.Generate(context.Background(), 1, "scan-uuid")
	require.NoError(t, err)
	assert.NotEmpty(t, rep.HTML)
	assert.Empty(t, rep.PDF)
}

func TestGenerate_RequiresCompletedScan(t *testing.T) {
	job := completedJob()
	job.Status = models.ScanStatusRunning
	svc, _ := newTestService(job)

	_, err := svc.Generate(context.Background(), 1, "scan-uuid")
	assert.ErrorIs(t, err, ErrScanNotCompleted)
}

func TestGenerate_Scoping(t *testing.T) {
	svc, _ := newTestService(completedJob())

	t.Run("UnknownScan", func(t *testing.T) {
		_, err := svc.Generate(context.Background(), 1, "ghost")
		assert.ErrorIs(t, err, ErrScanNotFound)
	})

	t.Run("OtherUsersScan", func(t *testing.T) {
		_, err := svc.Generate(context.Background(), 99, "scan-uuid")
		assert.ErrorIs(t, err, ErrScanNotFound)
	})
}

func TestGetPDF_RendersOnDemandAndCaches(t *testing.T) {
	strategy := &stubStrategy{name: "lazy", pdf: []byte("%PDF-lazy")}
	svc, reports := newTestService(completedJob())
	// Seed a report whose generation-time render failed.
	svc.renderer = NewRenderer(testLogger(), strategy)
	require.NoError(t, reports.Create(context.Background(), &models.Report{
		UUID:        "report-uuid",
		ScanJobID:   10,
		HTML:        "<html>stored</html>",
		GeneratedAt: time.Now(),
	}))

	rep, pdf, err := svc.GetPDF(context.Background(), 1, "report-uuid")
	require.NoError(t, err)
	assert.Equal(t, "report-uuid", rep.UUID)
	assert.Equal(t, []byte("%PDF-lazy"), pdf)

	// The second download serves the cached bytes.
	_, pdf, err = svc.GetPDF(context.Background(), 1, "report-uuid")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-lazy"), pdf)
	assert.Equal(t, 1, strategy.calls)
}

func TestGetPDF_TotalRenderFailure(t *testing.T) {
	svc, reports := newTestService(completedJob(), &stubStrategy{name: "down", err: assert.AnError})
	require.NoError(t, reports.Create(context.Background(), &models.Report{
		UUID:      "report-uuid",
		ScanJobID: 10,
		HTML:      "<html>stored</html>",
	}))

	_, _, err := svc.GetPDF(context.Background(), 1, "report-uuid")
	assert.ErrorIs(t, err, ErrAllStrategiesFailed)
}

func TestGetForScan_GeneratesWhenMissing(t *testing.T) {
	svc, _ := newTestService(completedJob(), &stubStrategy{name: "ok", pdf: []byte("%PDF-ok")})

	rep, job, err := svc.GetForScan(context.Background(), 1, "scan-uuid")
	require.NoError(t, err)
	assert.Equal(t, uint(10), job.ID)
	assert.NotEmpty(t, rep.HTML)

	// A second call returns the stored report instead of regenerating.
	again, _, err := svc.GetForScan(context.Background(), 1, "scan-uuid")
	require.NoError(t, err)
	assert.Equal(t, rep.UUID, again.UUID)
}
