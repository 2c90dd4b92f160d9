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

func TestCreateProject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/projects", r.URL.Path)

		var req models.CreateProjectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "billing-service", req.Name)
		require.Len(t, req.Files, 1)
		assert.Equal(t, "src/config.js", req.Files[0].Path)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"id": "project-uuid", "name": "billing-service", "file_count": 1},
		})
	}))
	defer srv.Close()

	client, err := NewClient(WithBaseURL(srv.URL), WithAccessToken("access-token"))
	require.NoError(t, err)

	project, err := client.CreateProject(context.Background(), &models.CreateProjectRequest{
		Name: "billing-service",
		Files: []models.SourceFileUpload{
			{Path: "src/config.js", Language: "javascript", Content: "const x = 1;"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "project-uuid", project.UUID)
	assert.Equal(t, 1, project.FileCount)

	_, err = client.CreateProject(context.Background(), nil)
	assert.Error(t, err)
	_, err = client.CreateProject(context.Background(), &models.CreateProjectRequest{})
	assert.Error(t, err)
}

func TestListProjects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    []map[string]interface{}{{"id": "project-uuid", "name": "billing-service"}},
			"meta":    map[string]int{"page": 1, "total": 1},
		})
	}))
	defer srv.Close()

	client, err := NewClient(WithBaseURL(srv.URL), WithAccessToken("access-token"))
	require.NoError(t, err)

	projects, meta, err := client.ListProjects(context.Background(), &ListOptions{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "billing-service", projects[0].Name)
	assert.Equal(t, 1, meta.Total)
}

func TestDeleteProject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/api/v1/projects/project-uuid", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, err := NewClient(WithBaseURL(srv.URL), WithAccessToken("access-token"))
	require.NoError(t, err)

	require.NoError(t, client.DeleteProject(context.Background(), "project-uuid"))
	assert.Error(t, client.DeleteProject(context.Background(), ""))
}
