package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/good-yellow-bee/toolme/internal/models"
)

const submissionsResource = "submissions"

// SubmissionService wraps submission and thread endpoints.
type SubmissionService struct {
	c *Client
}

// Create applies to a project. A learner who already applied gets an
// error matching ErrConflict.
func (s *SubmissionService) Create(ctx context.Context, projectID string, in models.SubmissionInput) (*models.Submission, error) {
	var w submissionWire
	err := s.c.do(ctx, call{
		resource:  submissionsResource,
		operation: "create",
		method:    http.MethodPost,
		path:      "/projects/" + url.PathEscape(projectID) + "/submissions",
		body:      toSubmissionPayload(in),
	}, &w)
	if err != nil {
		return nil, err
	}
	sub := mapSubmission(w)
	return &sub, nil
}

// GetMine returns the current user's submission for a project, or nil.
func (s *SubmissionService) GetMine(ctx context.Context, projectID string) (*models.Submission, error) {
	var w submissionWire
	err := s.c.do(ctx, call{
		resource:  submissionsResource,
		operation: "get_mine",
		method:    http.MethodGet,
		path:      "/projects/" + url.PathEscape(projectID) + "/my-submission",
	}, &w)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sub := mapSubmission(w)
	return &sub, nil
}

// ListMine lists the current user's submissions.
func (s *SubmissionService) ListMine(ctx context.Context) ([]models.Submission, error) {
	var ws []submissionWire
	err := s.c.do(ctx, call{
		resource:  submissionsResource,
		operation: "list_mine",
		method:    http.MethodGet,
		path:      "/submissions/me",
	}, &ws)
	if err != nil {
		return nil, err
	}
	return mapSubmissions(ws), nil
}

// ListForProject lists submissions received by a project the current user
// owns. An unknown project yields an empty list.
func (s *SubmissionService) ListForProject(ctx context.Context, projectID string) ([]models.Submission, error) {
	var ws []submissionWire
	err := s.c.do(ctx, call{
		resource:  submissionsResource,
		operation: "list_for_project",
		method:    http.MethodGet,
		path:      "/projects/" + url.PathEscape(projectID) + "/submissions",
	}, &ws)
	if errors.Is(err, ErrNotFound) {
		return []models.Submission{}, nil
	}
	if err != nil {
		return nil, err
	}
	return mapSubmissions(ws), nil
}

// GetThread returns a submission with its messages, or nil.
func (s *SubmissionService) GetThread(ctx context.Context, submissionID string) (*models.SubmissionThread, error) {
	var w threadWire
	err := s.c.do(ctx, call{
		resource:  submissionsResource,
		operation: "get_thread",
		method:    http.MethodGet,
		path:      "/submissions/" + url.PathEscape(submissionID),
	}, &w)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	th := mapThread(w)
	return &th, nil
}

// MarkRead records that the current user has read the thread.
func (s *SubmissionService) MarkRead(ctx context.Context, submissionID string) error {
	return s.c.do(ctx, call{
		resource:  submissionsResource,
		operation: "mark_read",
		method:    http.MethodPost,
		path:      "/submissions/" + url.PathEscape(submissionID) + "/read",
	}, nil)
}

// SetCoherent records the owner's judgment. It returns nil when the
// submission is unknown or the caller does not own the project.
func (s *SubmissionService) SetCoherent(ctx context.Context, submissionID string, coherent bool) (*models.Submission, error) {
	var w submissionWire
	err := s.c.do(ctx, call{
		resource:  submissionsResource,
		operation: "set_coherent",
		method:    http.MethodPatch,
		path:      "/submissions/" + url.PathEscape(submissionID) + "/coherent",
		body:      map[string]bool{"coherent": coherent},
	}, &w)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sub := mapSubmission(w)
	return &sub, nil
}

// AddMessage appends a message to the thread.
func (s *SubmissionService) AddMessage(ctx context.Context, submissionID string, in models.MessageInput) (*models.Message, error) {
	var w messageWire
	err := s.c.do(ctx, call{
		resource:  submissionsResource,
		operation: "add_message",
		method:    http.MethodPost,
		path:      "/submissions/" + url.PathEscape(submissionID) + "/messages",
		body:      map[string]string{"body": strings.TrimSpace(in.Body)},
	}, &w)
	if err != nil {
		return nil, err
	}
	m := mapMessage(w)
	return &m, nil
}
