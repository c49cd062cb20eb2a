package client

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/good-yellow-bee/toolme/internal/models"
)

func decodeWire[T any](t *testing.T, payload string) T {
	t.Helper()
	var w T
	require.NoError(t, json.Unmarshal([]byte(payload), &w))
	return w
}

// requireAllFieldsSet fails when a field of the mapped struct was left at its
// zero value, so a full payload covers every field.
func requireAllFieldsSet(t *testing.T, v any) {
	t.Helper()
	rv := reflect.ValueOf(v)
	for i := 0; i < rv.NumField(); i++ {
		if rv.Field(i).IsZero() {
			t.Errorf("%s.%s is not mapped", rv.Type().Name(), rv.Type().Field(i).Name)
		}
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestMapUser(t *testing.T) {
	got := mapUser(decodeWire[userWire](t, `{"id":"u1","email":"ada@example.com","is_active":true}`))

	assert.Equal(t, models.User{ID: "u1", Email: "ada@example.com"}, got)
	requireAllFieldsSet(t, got)
}

func TestMapProject(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    models.Project
	}{
		{
			name: "full",
			payload: `{
				"id": "p1",
				"title": "Inventory API",
				"domain": "Backend",
				"short_description": "REST API for stock",
				"full_description": "Build the stock endpoints.",
				"deadline": "2026-12-31",
				"delivery_instructions": "Send a repository link",
				"created_at": "2026-01-02T10:30:00",
				"user_id": "u9"
			}`,
			want: models.Project{
				ID:                   "p1",
				Title:                "Inventory API",
				Domain:               "Backend",
				ShortDescription:     "REST API for stock",
				FullDescription:      "Build the stock endpoints.",
				Deadline:             "2026-12-31",
				DeliveryInstructions: strPtr("Send a repository link"),
				CreatedAt:            "2026-01-02T10:30:00",
				OwnerID:              "u9",
			},
		},
		{
			name:    "null delivery instructions",
			payload: `{"id":"p2","title":"T","domain":"D","short_description":"S","full_description":"F","deadline":"soon","delivery_instructions":null,"created_at":"2026-01-03T00:00:00","user_id":"u1"}`,
			want: models.Project{
				ID:               "p2",
				Title:            "T",
				Domain:           "D",
				ShortDescription: "S",
				FullDescription:  "F",
				Deadline:         "soon",
				CreatedAt:        "2026-01-03T00:00:00",
				OwnerID:          "u1",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapProject(decodeWire[projectWire](t, tt.payload)))
		})
	}

	requireAllFieldsSet(t, mapProject(decodeWire[projectWire](t, tests[0].payload)))
}

func TestMapSubmission(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    models.Submission
	}{
		{
			name: "full",
			payload: `{
				"id": "s1",
				"project_id": "p1",
				"learner_id": "u2",
				"link": "https://example.com/work",
				"file_ref": "p1/report.pdf",
				"created_at": "2026-02-01T08:00:00",
				"coherent": false,
				"message_count": 4,
				"unread_count": 2
			}`,
			want: models.Submission{
				ID:           "s1",
				ProjectID:    "p1",
				LearnerID:    "u2",
				Link:         strPtr("https://example.com/work"),
				FileRef:      strPtr("p1/report.pdf"),
				CreatedAt:    "2026-02-01T08:00:00",
				Coherent:     boolPtr(false),
				MessageCount: 4,
				UnreadCount:  2,
			},
		},
		{
			name:    "nulls and missing unread count",
			payload: `{"id":"s2","project_id":"p1","learner_id":"u3","link":null,"file_ref":null,"created_at":"2026-02-02T08:00:00","coherent":null,"message_count":1}`,
			want: models.Submission{
				ID:           "s2",
				ProjectID:    "p1",
				LearnerID:    "u3",
				CreatedAt:    "2026-02-02T08:00:00",
				MessageCount: 1,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapSubmission(decodeWire[submissionWire](t, tt.payload)))
		})
	}

	requireAllFieldsSet(t, mapSubmission(decodeWire[submissionWire](t, tests[0].payload)))
}

func TestMapMessage(t *testing.T) {
	got := mapMessage(decodeWire[messageWire](t, `{
		"id": "m1",
		"submission_id": "s1",
		"sender_id": "u2",
		"body": "Here is my work",
		"created_at": "2026-02-01T08:05:00"
	}`))

	assert.Equal(t, models.Message{
		ID:           "m1",
		SubmissionID: "s1",
		SenderID:     "u2",
		Body:         "Here is my work",
		CreatedAt:    "2026-02-01T08:05:00",
	}, got)
	requireAllFieldsSet(t, got)
}

func TestMapThread(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    models.SubmissionThread
	}{
		{
			name: "with messages",
			payload: `{
				"id": "s1",
				"project_id": "p1",
				"learner_id": "u2",
				"link": "https://example.com/work",
				"file_ref": null,
				"created_at": "2026-02-01T08:00:00",
				"coherent": true,
				"message_count": 2,
				"unread_count": 0,
				"messages": [
					{"id":"m1","submission_id":"s1","sender_id":"u2","body":"Hello","created_at":"2026-02-01T08:00:00"},
					{"id":"m2","submission_id":"s1","sender_id":"u1","body":"Thanks","created_at":"2026-02-01T09:00:00"}
				]
			}`,
			want: models.SubmissionThread{
				Submission: models.Submission{
					ID:           "s1",
					ProjectID:    "p1",
					LearnerID:    "u2",
					Link:         strPtr("https://example.com/work"),
					CreatedAt:    "2026-02-01T08:00:00",
					Coherent:     boolPtr(true),
					MessageCount: 2,
				},
				Messages: []models.Message{
					{ID: "m1", SubmissionID: "s1", SenderID: "u2", Body: "Hello", CreatedAt: "2026-02-01T08:00:00"},
					{ID: "m2", SubmissionID: "s1", SenderID: "u1", Body: "Thanks", CreatedAt: "2026-02-01T09:00:00"},
				},
			},
		},
		{
			name:    "null messages",
			payload: `{"id":"s3","project_id":"p2","learner_id":"u4","created_at":"2026-02-03T08:00:00","message_count":0,"messages":null}`,
			want: models.SubmissionThread{
				Submission: models.Submission{ID: "s3", ProjectID: "p2", LearnerID: "u4", CreatedAt: "2026-02-03T08:00:00"},
				Messages:   []models.Message{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapThread(decodeWire[threadWire](t, tt.payload)))
		})
	}
}
