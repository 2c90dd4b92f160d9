package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/auditflow/auditflow/internal/models"
)

// ListOptions controls pagination for list endpoints
type ListOptions struct {
	Page     int
	PageSize int
}

func (o *ListOptions) query() url.Values {
	query := url.Values{}
	if o == nil {
		return query
	}
	if o.Page > 0 {
		query.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(o.PageSize))
	}
	return query
}

// CreateProject imports a project with its initial source files
func (c *APIClient) CreateProject(ctx context.Context, req *models.CreateProjectRequest) (*models.ProjectResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	if req.Name == "" {
		return nil, fmt.Errorf("project name cannot be empty")
	}

	var project models.ProjectResponse
	if err := c.doRequest(ctx, http.MethodPost, APIPathProjects, req, &project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return &project, nil
}

// ListProjects lists the caller's projects
func (c *APIClient) ListProjects(ctx context.Context, opts *ListOptions) ([]models.ProjectResponse, *Meta, error) {
	path := APIPathProjects
	if query := opts.query(); len(query) > 0 {
		path += "?" + query.Encode()
	}

	var projects []models.ProjectResponse
	meta, err := c.doListRequest(ctx, http.MethodGet, path, nil, &projects)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, meta, nil
}

// GetProject returns a project with its file inventory
func (c *APIClient) GetProject(ctx context.Context, id string) (*models.ProjectResponse, error) {
	if id == "" {
		return nil, fmt.Errorf("project id cannot be empty")
	}

	var project models.ProjectResponse
	if err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("%s/%s", APIPathProjects, id), nil, &project); err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// ReplaceProjectFiles replaces a project's file set wholesale
func (c *APIClient) ReplaceProjectFiles(ctx context.Context, id string, files []models.SourceFileUpload) error {
	if id == "" {
		return fmt.Errorf("project id cannot be empty")
	}

	reqBody := models.ReplaceFilesRequest{Files: files}
	path := fmt.Sprintf("%s/%s/files", APIPathProjects, id)
	if err := c.doRequest(ctx, http.MethodPut, path, reqBody, nil); err != nil {
		return fmt.Errorf("failed to replace project files: %w", err)
	}
	return nil
}

// DeleteProject deletes a project and everything scoped under it
func (c *APIClient) DeleteProject(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("project id cannot be empty")
	}

	if err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("%s/%s", APIPathProjects, id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}
