package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReportForScan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/scans/scan-uuid/report", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"id":      "report-uuid",
				"scan_id": "scan-uuid",
				"html":    "<html>report</html>",
				"has_pdf": true,
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(WithBaseURL(srv.URL), WithAccessToken("access-token"))
	require.NoError(t, err)

	report, err := client.GetReportForScan(context.Background(), "scan-uuid")
	require.NoError(t, err)
	assert.Equal(t, "report-uuid", report.UUID)
	assert.True(t, report.HasPDF)
}

func TestDownloadReportPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/reports/report-uuid/pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-fake"))
		case "/api/v1/reports/ghost/pdf":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   map[string]string{"message": "report not found"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := NewClient(WithBaseURL(srv.URL), WithAccessToken("access-token"))
	require.NoError(t, err)

	t.Run("Downloads", func(t *testing.T) {
		pdf, err := client.DownloadReportPDF(context.Background(), "report-uuid")
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-fake"), pdf)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := client.DownloadReportPDF(context.Background(), "ghost")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("EmptyID", func(t *testing.T) {
		_, err := client.DownloadReportPDF(context.Background(), "")
		assert.Error(t, err)
	})
}
