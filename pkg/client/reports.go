package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/auditflow/auditflow/internal/models"
)

// GetReport returns a stored report with its HTML body
func (c *APIClient) GetReport(ctx context.Context, id string) (*models.ReportResponse, error) {
	if id == "" {
		return nil, fmt.Errorf("report id cannot be empty")
	}

	var report models.ReportResponse
	if err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("%s/%s", APIPathReports, id), nil, &report); err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &report, nil
}

// GetReportForScan returns the report for a completed scan, generating
// one server-side when none exists yet
func (c *APIClient) GetReportForScan(ctx context.Context, scanID string) (*models.ReportResponse, error) {
	if scanID == "" {
		return nil, fmt.Errorf("scan id cannot be empty")
	}

	var report models.ReportResponse
	path := fmt.Sprintf("%s/%s/report", APIPathScans, scanID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &report); err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}
	return &report, nil
}

// DownloadReportPDF downloads the rendered PDF for a report
func (c *APIClient) DownloadReportPDF(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("report id cannot be empty")
	}

	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("%s/%s/pdf", APIPathReports, id), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if _, err := c.handleResponse(resp, nil); err != nil {
			return nil, fmt.Errorf("failed to download report PDF: %w", err)
		}
		return nil, fmt.Errorf("failed to download report PDF: %w", statusError(resp.StatusCode))
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read report PDF: %w", err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("report PDF was empty")
	}
	return pdf, nil
}
