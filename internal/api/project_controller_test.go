package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditflow/auditflow/internal/database/repositories"
	"github.com/auditflow/auditflow/internal/models"
)

// memProjects is an in-memory project store keyed by UUID
type memProjects struct {
	repositories.ProjectRepository

	nextID   uint
	projects map[string]*models.Project
}

func newMemProjects() *memProjects {
	return &memProjects{projects: make(map[string]*models.Project)}
}

func (m *memProjects) Create(_ context.Context, project *models.Project) error {
	m.nextID++
	project.ID = m.nextID
	m.projects[project.UUID] = project
	return nil
}

func (m *memProjects) GetByUUID(_ context.Context, uuid string) (*models.Project, error) {
	project, ok := m.projects[uuid]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return project, nil
}

func (m *memProjects) GetWithFiles(_ context.Context, id uint) (*models.Project, error) {
	for _, project := range m.projects {
		if project.ID == id {
			return project, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memProjects) List(_ context.Context, userID uint, offset, limit int) ([]models.Project, int64, error) {
	var out []models.Project
	for _, project := range m.projects {
		if project.UserID == userID {
			out = append(out, *project)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memProjects) ReplaceFiles(_ context.Context, projectID uint, files []models.SourceFile) error {
	for _, project := range m.projects {
		if project.ID == projectID {
			project.Files = files
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (m *memProjects) Delete(_ context.Context, id uint) error {
	for uuid, project := range m.projects {
		if project.ID == id {
			delete(m.projects, uuid)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func seedProject(store *memProjects, userID uint) *models.Project {
	project := &models.Project{
		UUID:   "seeded-uuid",
		UserID: userID,
		Name:   "billing-service",
		Status: models.ProjectStatusActive,
	}
	store.Create(context.Background(), project)
	return project
}

func TestCreateProjectEndpoint(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		store := newMemProjects()
		s := newTestServer(serverStubs{orch: &stubOrchestrator{}, projects: store})

		w := doRequest(s, http.MethodPost, "/api/v1/projects", models.CreateProjectRequest{
			Name: "billing-service",
			Files: []models.SourceFileUpload{
				{Path: "src/config.js", Language: "javascript", Content: "const x = 1;"},
			},
		}, true)

		require.Equal(t, http.StatusCreated, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, "billing-service", data["name"])
		assert.Equal(t, float64(1), data["file_count"])
		assert.Equal(t, float64(12), data["total_size"])
		require.Len(t, store.projects, 1)
	})

	t.Run("MissingName", func(t *testing.T) {
		s := newTestServer(serverStubs{orch: &stubOrchestrator{}, projects: newMemProjects()})

		w := doRequest(s, http.MethodPost, "/api/v1/projects", map[string]string{}, true)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		s := newTestServer(serverStubs{orch: &stubOrchestrator{}, projects: newMemProjects()})

		w := doRequest(s, http.MethodPost, "/api/v1/projects", models.CreateProjectRequest{Name: "x"}, false)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGetProjectEndpoint(t *testing.T) {
	store := newMemProjects()
	seedProject(store, 1)
	other := &models.Project{UUID: "other-uuid", UserID: 99, Name: "not-yours"}
	store.Create(context.Background(), other)

	s := newTestServer(serverStubs{orch: &stubOrchestrator{}, projects: store})

	t.Run("Found", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/v1/projects/seeded-uuid", nil, true)

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, "seeded-uuid", data["id"])
	})

	t.Run("OtherUsersProjectIsHidden", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/v1/projects/other-uuid", nil, true)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/v1/projects/ghost", nil, true)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListProjectsEndpoint(t *testing.T) {
	store := newMemProjects()
	seedProject(store, 1)

	s := newTestServer(serverStubs{orch: &stubOrchestrator{}, projects: store})

	w := doRequest(s, http.MethodGet, "/api/v1/projects", nil, true)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data []map[string]interface{} `json:"data"`
		Meta map[string]interface{}   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, float64(1), envelope.Meta["total"])
}

func TestReplaceProjectFilesEndpoint(t *testing.T) {
	store := newMemProjects()
	project := seedProject(store, 1)
	project.Files = []models.SourceFile{{Path: "old.js", Content: []byte("old")}}

	s := newTestServer(serverStubs{orch: &stubOrchestrator{}, projects: store})

	w := doRequest(s, http.MethodPut, "/api/v1/projects/seeded-uuid/files", models.ReplaceFilesRequest{
		Files: []models.SourceFileUpload{
			{Path: "src/a.js", Content: "aa"},
			{Path: "src/b.js", Content: "bb"},
		},
	}, true)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(2), data["file_count"])

	require.Len(t, project.Files, 2, "file set is replaced wholesale")
	assert.Equal(t, "src/a.js", project.Files[0].Path)
}

func TestDeleteProjectEndpoint(t *testing.T) {
	store := newMemProjects()
	seedProject(store, 1)

	s := newTestServer(serverStubs{orch: &stubOrchestrator{}, projects: store})

	w := doRequest(s, http.MethodDelete, "/api/v1/projects/seeded-uuid", nil, true)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, store.projects)

	w = doRequest(s, http.MethodDelete, "/api/v1/projects/seeded-uuid", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
