package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/good-yellow-bee/toolme/internal/models"
)

const projectsResource = "projects"

// ProjectService wraps /projects endpoints.
type ProjectService struct {
	c *Client
}

// Page selects a window of a listing.
type Page struct {
	Skip  int
	Limit int
}

// ProjectPage is one window of the public listing.
type ProjectPage struct {
	Items []models.Project
	Total int
}

// List returns a window of the public listing. The backend answers either
// {"items": [...], "total": n} or a bare array; for the latter the total is
// the array length.
func (s *ProjectService) List(ctx context.Context, page Page) (*ProjectPage, error) {
	query := map[string]string{}
	if page.Skip > 0 {
		query["skip"] = strconv.Itoa(page.Skip)
	}
	if page.Limit > 0 {
		query["limit"] = strconv.Itoa(page.Limit)
	}

	var raw json.RawMessage
	err := s.c.do(ctx, call{
		resource:  projectsResource,
		operation: "list",
		method:    http.MethodGet,
		path:      "/projects",
		query:     query,
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeProjectPage(raw)
}

func decodeProjectPage(raw json.RawMessage) (*ProjectPage, error) {
	var list []projectWire
	if err := json.Unmarshal(raw, &list); err == nil {
		return &ProjectPage{Items: mapProjects(list), Total: len(list)}, nil
	}
	var envelope struct {
		Items []projectWire `json:"items"`
		Total *int          `json:"total"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	total := len(envelope.Items)
	if envelope.Total != nil {
		total = *envelope.Total
	}
	return &ProjectPage{Items: mapProjects(envelope.Items), Total: total}, nil
}

// ListMine returns the projects published by the current user.
func (s *ProjectService) ListMine(ctx context.Context) ([]models.Project, error) {
	var ws []projectWire
	err := s.c.do(ctx, call{
		resource:  projectsResource,
		operation: "list_mine",
		method:    http.MethodGet,
		path:      "/projects/me",
	}, &ws)
	if err != nil {
		return nil, err
	}
	return mapProjects(ws), nil
}

// Get returns a project, or nil if it does not exist.
func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	var w projectWire
	err := s.c.do(ctx, call{
		resource:  projectsResource,
		operation: "get",
		method:    http.MethodGet,
		path:      "/projects/" + url.PathEscape(id),
	}, &w)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := mapProject(w)
	return &p, nil
}

// Create publishes a project owned by the current user.
func (s *ProjectService) Create(ctx context.Context, in models.ProjectInput) (*models.Project, error) {
	var w projectWire
	err := s.c.do(ctx, call{
		resource:  projectsResource,
		operation: "create",
		method:    http.MethodPost,
		path:      "/projects",
		body:      toCreatePayload(in),
	}, &w)
	if err != nil {
		return nil, err
	}
	p := mapProject(w)
	return &p, nil
}

// Update applies a partial update. It returns nil if the project is gone.
func (s *ProjectService) Update(ctx context.Context, id string, in models.ProjectUpdate) (*models.Project, error) {
	var w projectWire
	err := s.c.do(ctx, call{
		resource:  projectsResource,
		operation: "update",
		method:    http.MethodPut,
		path:      "/projects/" + url.PathEscape(id),
		body:      toUpdatePayload(in),
	}, &w)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := mapProject(w)
	return &p, nil
}

// Delete removes a project. It reports false if the project did not exist.
func (s *ProjectService) Delete(ctx context.Context, id string) (bool, error) {
	err := s.c.do(ctx, call{
		resource:  projectsResource,
		operation: "delete",
		method:    http.MethodDelete,
		path:      "/projects/" + url.PathEscape(id),
	}, nil)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
