package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/auditflow/auditflow/internal/database/repositories"
	"github.com/auditflow/auditflow/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service errors
var (
	ErrReportNotFound   = errors.New("report not found")
	ErrScanNotFound     = errors.New("scan not found")
	ErrScanNotCompleted = errors.New("scan has not completed")
)

// Service generates and serves reports for completed scans
type Service struct {
	reports  repositories.ReportRepository
	scans    repositories.ScanRepository
	projects repositories.ProjectRepository
	findings repositories.FindingRepository
	renderer *Renderer
	log      *logrus.Logger
}

// NewService creates a report service
func NewService(reports repositories.ReportRepository, scans repositories.ScanRepository, projects repositories.ProjectRepository, findings repositories.FindingRepository, renderer *Renderer, log *logrus.Logger) *Service {
	return &Service{
		reports:  reports,
		scans:    scans,
		projects: projects,
		findings: findings,
		renderer: renderer,
		log:      log,
	}
}

// Generate builds a new report for a completed scan. The HTML is built
// and stored immediately; the PDF is rendered best-effort here and
// retried on download if it failed.
func (s *Service) Generate(ctx context.Context, userID uint, scanUUID string) (*models.Report, error) {
	job, err := s.ownedScan(ctx, userID, scanUUID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ScanStatusCompleted {
		return nil, ErrScanNotCompleted
	}

	doc, err := s.buildDocument(ctx, job)
	if err != nil {
		return nil, err
	}

	rep := &models.Report{
		UUID:        uuid.New().String(),
		ScanJobID:   job.ID,
		HTML:        doc.HTML,
		GeneratedAt: doc.GeneratedAt,
	}

	if pdf, renderErr := s.renderer.RenderPDF(ctx, doc); renderErr != nil {
		s.log.WithError(renderErr).WithField("scan_id", job.UUID).
			Warn("PDF rendering failed at generation, deferring to download")
	} else {
		rep.PDF = pdf
	}

	if err := s.reports.Create(ctx, rep); err != nil {
		return nil, fmt.Errorf("failed to store report: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"report_id": rep.UUID,
		"scan_id":   job.UUID,
		"has_pdf":   len(rep.PDF) > 0,
	}).Info("Report generated")

	return rep, nil
}

// Get returns a report and its scan, scoped to the owner
func (s *Service) Get(ctx context.Context, userID uint, reportUUID string) (*models.Report, *models.ScanJob, error) {
	return s.ownedReport(ctx, userID, reportUUID)
}

// GetForScan returns the most recent report of a scan, generating one
// when none exists yet
func (s *Service) GetForScan(ctx context.Context, userID uint, scanUUID string) (*models.Report, *models.ScanJob, error) {
	job, err := s.ownedScan(ctx, userID, scanUUID)
	if err != nil {
		return nil, nil, err
	}

	rep, err := s.reports.GetByScanJob(ctx, job.ID)
	if err == nil {
		return rep, job, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, fmt.Errorf("failed to look up report: %w", err)
	}

	rep, err = s.Generate(ctx, userID, scanUUID)
	if err != nil {
		return nil, nil, err
	}
	return rep, job, nil
}

// GetPDF returns the PDF bytes of a report, rendering them on demand
// when the generation-time render failed. Exhaustion of every strategy
// surfaces the renderer's aggregate error.
func (s *Service) GetPDF(ctx context.Context, userID uint, reportUUID string) (*models.Report, []byte, error) {
	rep, job, err := s.ownedReport(ctx, userID, reportUUID)
	if err != nil {
		return nil, nil, err
	}

	if len(rep.PDF) > 0 {
		return rep, rep.PDF, nil
	}

	doc, err := s.buildDocument(ctx, job)
	if err != nil {
		return nil, nil, err
	}
	// Reuse the stored HTML so the PDF matches the report as generated.
	doc.HTML = rep.HTML
	doc.GeneratedAt = rep.GeneratedAt

	pdf, err := s.renderer.RenderPDF(ctx, doc)
	if err != nil {
		return nil, nil, err
	}

	if err := s.reports.SavePDF(ctx, rep.ID, pdf); err != nil {
		s.log.WithError(err).WithField("report_id", rep.UUID).Warn("Failed to cache rendered PDF")
	}

	return rep, pdf, nil
}

// buildDocument reassembles the report document from a completed scan's
// persisted state
func (s *Service) buildDocument(ctx context.Context, job *models.ScanJob) (*Document, error) {
	var result models.ScanResult
	if len(job.ResultJSON) > 0 {
		if err := json.Unmarshal(job.ResultJSON, &result); err != nil {
			return nil, fmt.Errorf("failed to decode scan result: %w", err)
		}
	}

	project, err := s.projects.GetByID(ctx, job.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	// limit -1 lifts the page bound; a report covers the full finding set
	findings, _, err := s.findings.List(ctx, repositories.FindingFilter{ScanJobID: job.ID}, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to load findings: %w", err)
	}

	return BuildDocument(project, job, result, findings)
}

// ownedScan fetches a scan and enforces ownership
func (s *Service) ownedScan(ctx context.Context, userID uint, scanUUID string) (*models.ScanJob, error) {
	job, err := s.scans.GetByUUID(ctx, scanUUID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrScanNotFound
		}
		return nil, fmt.Errorf("failed to look up scan: %w", err)
	}
	if job.UserID != userID {
		return nil, ErrScanNotFound
	}
	return job, nil
}

// ownedReport fetches a report with its scan and enforces ownership
// through the scan's owner
func (s *Service) ownedReport(ctx context.Context, userID uint, reportUUID string) (*models.Report, *models.ScanJob, error) {
	rep, err := s.reports.GetByUUID(ctx, reportUUID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, ErrReportNotFound
		}
		return nil, nil, fmt.Errorf("failed to look up report: %w", err)
	}

	job, err := s.scans.GetByID(ctx, rep.ScanJobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load report scan: %w", err)
	}
	if job.UserID != userID {
		return nil, nil, ErrReportNotFound
	}

	return rep, job, nil
}
