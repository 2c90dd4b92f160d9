package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditflow/auditflow/internal/models"
)

func TestStartScan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/scans", r.URL.Path)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))

		var req models.StartScanRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "project-uuid", req.ProjectID)
		assert.Equal(t, models.ScanTypeSecurity, req.Type)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"id": "scan-uuid", "status": "PENDING", "progress": 0},
		})
	}))
	defer srv.Close()

	client, err := NewClient(WithBaseURL(srv.URL), WithAccessToken("access-token"))
	require.NoError(t, err)

	snap, err := client.StartScan(context.Background(), &models.StartScanRequest{
		ProjectID: "project-uuid",
		Type:      models.ScanTypeSecurity,
	})
	require.NoError(t, err)
	assert.Equal(t, "scan-uuid", snap.UUID)
	assert.Equal(t, models.ScanStatusPending, snap.Status)

	_, err = client.StartScan(context.Background(), nil)
	assert.Error(t, err)
	_, err = client.StartScan(context.Background(), &models.StartScanRequest{Type: models.ScanTypeSecurity})
	assert.Error(t, err)
}

func TestListScans(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "project-uuid", r.URL.Query().Get("project_id"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("page_size"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": []map[string]interface{}{
				{"id": "newest", "status": "COMPLETED", "progress": 100},
				{"id": "oldest", "status": "FAILED", "progress": 40},
			},
			"meta": map[string]int{"page": 2, "per_page": 10, "total": 12},
		})
	}))
	defer srv.Close()

	client, err := NewClient(WithBaseURL(srv.URL), WithAccessToken("access-token"))
	require.NoError(t, err)

	snaps, meta, err := client.ListScans(context.Background(), &ScanListOptions{
		ProjectID: "project-uuid",
		Page:      2,
		PageSize:  10,
	})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "newest", snaps[0].UUID)
	require.NotNil(t, meta)
	assert.Equal(t, 12, meta.Total)
}

func TestCancelScan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/v1/scans/done-scan" {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   map[string]string{"message": "scan is already in a terminal state"},
			})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, err := NewClient(WithBaseURL(srv.URL), WithAccessToken("access-token"))
	require.NoError(t, err)

	require.NoError(t, client.CancelScan(context.Background(), "running-scan"))

	err = client.CancelScan(context.Background(), "done-scan")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestListFindings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/scans/scan-uuid/findings", r.URL.Path)
		assert.Equal(t, "CRITICAL", r.URL.Query().Get("severity"))
		assert.Equal(t, "OPEN", r.URL.Query().Get("triage_status"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": []map[string]interface{}{
				{"id": "finding-1", "title": "Hardcoded credential in source", "severity": "CRITICAL"},
			},
			"meta": map[string]int{"total": 1},
		})
	}))
	defer srv.Close()

	client, err := NewClient(WithBaseURL(srv.URL), WithAccessToken("access-token"))
	require.NoError(t, err)

	findings, meta, err := client.ListFindings(context.Background(), "scan-uuid", &FindingListOptions{
		Severity:     models.SeverityCritical,
		TriageStatus: models.TriageOpen,
	})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "finding-1", findings[0].UUID)
	assert.Equal(t, 1, meta.Total)
}

func TestUpdateTriageStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/api/v1/findings/finding-1/status", r.URL.Path)

		var req models.UpdateTriageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, models.TriageResolved, req.Status)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"id": "finding-1", "triage_status": "RESOLVED"},
		})
	}))
	defer srv.Close()

	client, err := NewClient(WithBaseURL(srv.URL), WithAccessToken("access-token"))
	require.NoError(t, err)

	finding, err := client.UpdateTriageStatus(context.Background(), "finding-1", models.TriageResolved)
	require.NoError(t, err)
	assert.Equal(t, models.TriageResolved, finding.TriageStatus)
}
