package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/auditflow/auditflow/internal/models"
)

// ScanListOptions controls filtering and pagination for ListScans
type ScanListOptions struct {
	ProjectID string
	Page      int
	PageSize  int
}

// FindingListOptions controls filtering and pagination for ListFindings
type FindingListOptions struct {
	Severity     models.Severity
	Category     models.FindingCategory
	TriageStatus models.TriageStatus
	Page         int
	PageSize     int
}

// StartScan enqueues a scan against a project
func (c *APIClient) StartScan(ctx context.Context, req *models.StartScanRequest) (*models.ScanSnapshot, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	if req.ProjectID == "" {
		return nil, fmt.Errorf("project id cannot be empty")
	}
	if req.Type == "" {
		return nil, fmt.Errorf("scan type cannot be empty")
	}

	var snap models.ScanSnapshot
	if err := c.doRequest(ctx, http.MethodPost, APIPathScans, req, &snap); err != nil {
		return nil, fmt.Errorf("failed to start scan: %w", err)
	}
	return &snap, nil
}

// GetScan returns the current state of a scan job
func (c *APIClient) GetScan(ctx context.Context, id string) (*models.ScanSnapshot, error) {
	if id == "" {
		return nil, fmt.Errorf("scan id cannot be empty")
	}

	var snap models.ScanSnapshot
	if err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("%s/%s", APIPathScans, id), nil, &snap); err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return &snap, nil
}

// ListScans lists the caller's scans, newest first
func (c *APIClient) ListScans(ctx context.Context, opts *ScanListOptions) ([]models.ScanSnapshot, *Meta, error) {
	query := url.Values{}
	if opts != nil {
		if opts.ProjectID != "" {
			query.Set("project_id", opts.ProjectID)
		}
		lo := ListOptions{Page: opts.Page, PageSize: opts.PageSize}
		for key, values := range lo.query() {
			query[key] = values
		}
	}

	path := APIPathScans
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var snaps []models.ScanSnapshot
	meta, err := c.doListRequest(ctx, http.MethodGet, path, nil, &snaps)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return snaps, meta, nil
}

// CancelScan requests cancellation of a running or queued scan
func (c *APIClient) CancelScan(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("scan id cannot be empty")
	}

	if err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("%s/%s", APIPathScans, id), nil, nil); err != nil {
		return fmt.Errorf("failed to cancel scan: %w", err)
	}
	return nil
}

// ListFindings lists the findings of a completed scan
func (c *APIClient) ListFindings(ctx context.Context, scanID string, opts *FindingListOptions) ([]models.FindingResponse, *Meta, error) {
	if scanID == "" {
		return nil, nil, fmt.Errorf("scan id cannot be empty")
	}

	query := url.Values{}
	if opts != nil {
		if opts.Severity != "" {
			query.Set("severity", string(opts.Severity))
		}
		if opts.Category != "" {
			query.Set("category", string(opts.Category))
		}
		if opts.TriageStatus != "" {
			query.Set("triage_status", string(opts.TriageStatus))
		}
		lo := ListOptions{Page: opts.Page, PageSize: opts.PageSize}
		for key, values := range lo.query() {
			query[key] = values
		}
	}

	path := fmt.Sprintf("%s/%s/findings", APIPathScans, scanID)
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var findings []models.FindingResponse
	meta, err := c.doListRequest(ctx, http.MethodGet, path, nil, &findings)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list findings: %w", err)
	}
	return findings, meta, nil
}

// UpdateTriageStatus moves a finding through the triage workflow
func (c *APIClient) UpdateTriageStatus(ctx context.Context, findingID string, status models.TriageStatus) (*models.FindingResponse, error) {
	if findingID == "" {
		return nil, fmt.Errorf("finding id cannot be empty")
	}
	if status == "" {
		return nil, fmt.Errorf("triage status cannot be empty")
	}

	reqBody := models.UpdateTriageRequest{Status: status}
	path := fmt.Sprintf("%s/%s/status", APIPathFindings, findingID)

	var finding models.FindingResponse
	if err := c.doRequest(ctx, http.MethodPatch, path, reqBody, &finding); err != nil {
		return nil, fmt.Errorf("failed to update triage status: %w", err)
	}
	return &finding, nil
}
