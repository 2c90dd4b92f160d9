// Package scan owns the scan job state machine: it creates jobs,
// drives the detection pipeline in the background, reports progress
// milestones and arbitrates the race between cancellation and natural
// completion.
package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/auditflow/auditflow/internal/analyzer"
	"github.com/auditflow/auditflow/internal/database/repositories"
	"github.com/auditflow/auditflow/internal/models"
	"github.com/auditflow/auditflow/internal/scoring"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Manager errors
var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrInvalidScanType    = errors.New("invalid scan type")
	ErrInvalidScanConfig  = errors.New("invalid scan configuration")
	ErrScanNotFound       = errors.New("scan not found")
	ErrScanNotCancellable = errors.New("scan is already in a terminal state")
)

// Config contains scan manager settings
type Config struct {
	// MaxConcurrent bounds how many scans execute at once
	MaxConcurrent int

	// JobDeadline, when non-zero, cancels a scan that runs past it
	JobDeadline time.Duration
}

// Manager orchestrates scan job execution
type Manager struct {
	projects repositories.ProjectRepository
	scans    repositories.ScanRepository
	findings repositories.FindingRepository
	detector *analyzer.Analyzer
	log      *logrus.Logger

	sem      chan struct{}
	deadline time.Duration

	mu      sync.Mutex
	cancels map[uint]context.CancelFunc
	wg      sync.WaitGroup
	baseCtx context.Context
	stop    context.CancelFunc
}

// NewManager creates a scan manager
func NewManager(projects repositories.ProjectRepository, scans repositories.ScanRepository, findings repositories.FindingRepository, detector *analyzer.Analyzer, cfg Config, log *logrus.Logger) *Manager {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}

	baseCtx, stop := context.WithCancel(context.Background())
	return &Manager{
		projects: projects,
		scans:    scans,
		findings: findings,
		detector: detector,
		log:      log,
		sem:      make(chan struct{}, cfg.MaxConcurrent),
		deadline: cfg.JobDeadline,
		cancels:  make(map[uint]context.CancelFunc),
		baseCtx:  baseCtx,
		stop:     stop,
	}
}

// StartScan validates the request, creates a PENDING job and launches
// its execution in the background. Validation failures are returned
// synchronously and create no job record.
func (m *Manager) StartScan(ctx context.Context, userID uint, req models.StartScanRequest) (*models.ScanJob, error) {
	if !models.ValidScanType(req.Type) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScanType, req.Type)
	}
	if !req.Config.ValidDepth() {
		return nil, fmt.Errorf("%w: unknown depth %q", ErrInvalidScanConfig, req.Config.Depth)
	}

	project, err := m.projects.GetByUUID(ctx, req.ProjectID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to look up project: %w", err)
	}
	if project.UserID != userID {
		// Ownership failures are indistinguishable from absence
		return nil, ErrProjectNotFound
	}

	job := &models.ScanJob{
		UUID:          uuid.New().String(),
		ProjectID:     project.ID,
		UserID:        userID,
		Type:          req.Type,
		Status:        models.ScanStatusPending,
		Progress:      0,
		StatusMessage: "scan queued",
		Config:        req.Config,
	}

	if err := m.scans.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create scan job: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"scan_id": job.UUID,
		"project": project.UUID,
		"type":    job.Type,
	}).Info("Scan queued")

	m.launch(job.ID)

	return job, nil
}

// launch starts background execution for a job
func (m *Manager) launch(jobID uint) {
	var jobCtx context.Context
	var cancel context.CancelFunc
	if m.deadline > 0 {
		jobCtx, cancel = context.WithTimeout(m.baseCtx, m.deadline)
	} else {
		jobCtx, cancel = context.WithCancel(m.baseCtx)
	}

	m.mu.Lock()
	m.cancels[jobID] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			cancel()
			m.mu.Lock()
			delete(m.cancels, jobID)
			m.mu.Unlock()
		}()

		select {
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
		case <-jobCtx.Done():
			m.markCancelled(jobID)
			return
		}

		m.execute(jobCtx, jobID)
	}()
}

// GetScan returns a job with its severity counts, scoped to the owner
func (m *Manager) GetScan(ctx context.Context, userID uint, scanUUID string) (*models.ScanJob, models.SeverityCounts, error) {
	job, err := m.ownedScan(ctx, userID, scanUUID)
	if err != nil {
		return nil, models.SeverityCounts{}, err
	}

	counts, err := m.findings.CountBySeverity(ctx, job.ID)
	if err != nil {
		return nil, models.SeverityCounts{}, fmt.Errorf("failed to count findings: %w", err)
	}

	return job, counts, nil
}

// ListScans returns a user's jobs, newest first, optionally filtered
// by project
func (m *Manager) ListScans(ctx context.Context, userID uint, projectUUID string, offset, limit int) ([]models.ScanJob, int64, error) {
	filter := repositories.ScanFilter{UserID: userID}

	if projectUUID != "" {
		project, err := m.projects.GetByUUID(ctx, projectUUID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, 0, ErrProjectNotFound
			}
			return nil, 0, fmt.Errorf("failed to look up project: %w", err)
		}
		if project.UserID != userID {
			return nil, 0, ErrProjectNotFound
		}
		filter.ProjectID = project.ID
	}

	return m.scans.List(ctx, filter, offset, limit)
}

// Cancel requests cancellation of a job. Cancelling an already-terminal
// job is a conflict, not a silent success; the guarded update in the
// repository makes the first terminal transition win.
func (m *Manager) Cancel(ctx context.Context, userID uint, scanUUID string) (*models.ScanJob, error) {
	job, err := m.ownedScan(ctx, userID, scanUUID)
	if err != nil {
		return nil, err
	}

	if job.Status.IsTerminal() {
		return nil, ErrScanNotCancellable
	}

	if err := m.scans.Cancel(ctx, job.ID); err != nil {
		if errors.Is(err, repositories.ErrStaleTransition) {
			// Lost the race to another terminal transition
			return nil, ErrScanNotCancellable
		}
		return nil, fmt.Errorf("failed to cancel scan: %w", err)
	}

	m.mu.Lock()
	if cancel, ok := m.cancels[job.ID]; ok {
		cancel()
	}
	m.mu.Unlock()

	m.log.WithField("scan_id", job.UUID).Info("Scan cancelled")

	return m.scans.GetByID(ctx, job.ID)
}

// Shutdown stops accepting work and waits for running scans to settle
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stop()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ownedScan fetches a job and enforces ownership
func (m *Manager) ownedScan(ctx context.Context, userID uint, scanUUID string) (*models.ScanJob, error) {
	job, err := m.scans.GetByUUID(ctx, scanUUID)
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

// Progress milestones emitted during execution. Values are fixed so
// pollers see a stable, monotonic sequence.
const (
	progressStarted     = 5
	progressFilesLoaded = 15
	progressDetectFrom  = 20
	progressDetectTo    = 40
	progressDeduped     = 60
	progressScored      = 75
	progressPersisted   = 85
	progressSummarized  = 92
	progressFinalizing  = 95
)

// execute runs the detection pipeline for one job
func (m *Manager) execute(ctx context.Context, jobID uint) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			m.log.WithFields(logrus.Fields{
				"scan_id": jobID,
				"panic":   r,
			}).Error("Scan execution panicked")
			m.failJob(jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	// Leaving PENDING fails if cancellation already won.
	if err := m.scans.Transition(ctx, jobID, models.ScanStatusPending, models.ScanStatusRunning, "starting scan"); err != nil {
		return
	}

	job, err := m.scans.GetByID(ctx, jobID)
	if err != nil {
		m.failJob(jobID, fmt.Sprintf("failed to reload scan job: %v", err))
		return
	}

	if !m.advance(ctx, jobID, progressStarted, "starting scan") {
		return
	}

	project, err := m.projects.GetWithFiles(ctx, job.ProjectID)
	if err != nil {
		m.failJob(jobID, fmt.Sprintf("failed to load project files: %v", err))
		return
	}

	if !m.advance(ctx, jobID, progressFilesLoaded, "loading project files") {
		return
	}

	// Detectors step progress evenly across the 20-40 band.
	var raw []models.Finding
	categories := scanPasses(job.Type)
	step := (progressDetectTo - progressDetectFrom) / len(categories)
	for i, pass := range categories {
		raw = append(raw, m.detector.Detect(pass, project.Files)...)
		progress := progressDetectFrom + (i+1)*step
		if !m.advance(ctx, jobID, progress, fmt.Sprintf("matching %s patterns", passName(pass))) {
			return
		}
	}

	deduped, counts, score, risk := scoring.Summarize(raw)

	if !m.advance(ctx, jobID, progressDeduped, "deduplicating findings") {
		return
	}
	if !m.advance(ctx, jobID, progressScored, "scoring findings") {
		return
	}

	for i := range deduped {
		deduped[i].UUID = uuid.New().String()
		deduped[i].ScanJobID = jobID
		deduped[i].TriageStatus = models.TriageOpen
	}
	if err := m.findings.CreateBatch(ctx, deduped); err != nil {
		m.failJob(jobID, fmt.Sprintf("failed to persist findings: %v", err))
		return
	}

	if !m.advance(ctx, jobID, progressPersisted, "persisting findings") {
		return
	}

	result := models.ScanResult{
		Score:          score,
		RiskLevel:      risk,
		SeverityCounts: counts,
		FilesScanned:   len(project.Files),
		FindingCount:   len(deduped),
		Categories:     analyzer.Categories(job.Type),
		Duration:       time.Since(started),
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		m.failJob(jobID, fmt.Sprintf("failed to encode scan result: %v", err))
		return
	}

	if !m.advance(ctx, jobID, progressSummarized, "building result summary") {
		return
	}
	if !m.advance(ctx, jobID, progressFinalizing, "finalizing") {
		return
	}

	if err := m.scans.Complete(ctx, jobID, resultJSON); err != nil {
		if errors.Is(err, repositories.ErrStaleTransition) {
			// Cancellation won the race; its findings are void.
			m.discardFindings(jobID)
			return
		}
		m.log.WithError(err).WithField("scan_id", jobID).Error("Failed to complete scan")
		return
	}

	m.log.WithFields(logrus.Fields{
		"scan_id":  jobID,
		"score":    score,
		"risk":     risk,
		"findings": len(deduped),
		"duration": time.Since(started),
	}).Info("Scan completed")
}

// advance persists a progress milestone. It returns false when the job
// has left RUNNING (cancellation or deadline), at which point execution
// must stop without touching the job again.
func (m *Manager) advance(ctx context.Context, jobID uint, progress int, message string) bool {
	if ctx.Err() != nil {
		m.markCancelled(jobID)
		m.discardFindings(jobID)
		return false
	}

	err := m.scans.UpdateProgress(ctx, jobID, progress, message)
	if err != nil {
		if errors.Is(err, repositories.ErrStaleTransition) {
			// Cancellation won between milestones; its findings are void.
			m.discardFindings(jobID)
			return false
		}
		m.log.WithError(err).WithField("scan_id", jobID).Warn("Failed to update scan progress")
	}
	return true
}

// markCancelled records a deadline expiry as a cancellation. The guard
// in the repository keeps it from touching a job that is already
// terminal.
func (m *Manager) markCancelled(jobID uint) {
	err := m.scans.Cancel(context.Background(), jobID)
	if err != nil && !errors.Is(err, repositories.ErrStaleTransition) {
		m.log.WithError(err).WithField("scan_id", jobID).Warn("Failed to mark scan cancelled")
	}
}

// failJob transitions a job to FAILED, preserving the cause verbatim,
// and removes any partially persisted findings so no ambiguous set is
// left current.
func (m *Manager) failJob(jobID uint, cause string) {
	ctx := context.Background()
	m.discardFindings(jobID)
	if err := m.scans.Fail(ctx, jobID, cause); err != nil && !errors.Is(err, repositories.ErrStaleTransition) {
		m.log.WithError(err).WithField("scan_id", jobID).Error("Failed to mark scan failed")
	}
}

// discardFindings best-effort removes findings of an aborted job
func (m *Manager) discardFindings(jobID uint) {
	if err := m.findings.DeleteByScanJob(context.Background(), jobID); err != nil {
		m.log.WithError(err).WithField("scan_id", jobID).Warn("Failed to discard findings")
	}
}

// scanPasses expands a scan type into individual detector passes so
// progress can step per category
func scanPasses(t models.ScanType) []models.ScanType {
	if t == models.ScanTypeComprehensive {
		return []models.ScanType{
			models.ScanTypeSecurity,
			models.ScanTypeQuality,
			models.ScanTypePerformance,
			models.ScanTypeDependency,
		}
	}
	return []models.ScanType{t}
}

func passName(t models.ScanType) string {
	switch t {
	case models.ScanTypeSecurity:
		return "security"
	case models.ScanTypeQuality:
		return "quality"
	case models.ScanTypePerformance:
		return "performance"
	case models.ScanTypeDependency:
		return "dependency"
	}
	return "all"
}
