package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/good-yellow-bee/toolme/internal/client"
	"github.com/good-yellow-bee/toolme/internal/web/session"
)

type unreachableStore struct {
	*session.MemoryStore
}

func (unreachableStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestHealth(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	defer store.Close()

	tests := []struct {
		name       string
		sessions   session.Store
		wantStatus int
		want       healthResponse
	}{
		{"healthy", store, http.StatusOK, healthResponse{Status: "ok", Sessions: "ok"}},
		{"store down", unreachableStore{store}, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Sessions: "error"}},
		{"no store", nil, http.StatusOK, healthResponse{Status: "ok", Sessions: "ok"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handler{sessions: tt.sessions}
			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var got healthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"forbidden", &clientError403, http.StatusForbidden, "errors.forbidden"},
		{"not found", &clientError404, http.StatusNotFound, "errors.notFound"},
		{"bad request detail", &clientError400, http.StatusBadRequest, "Deadline is in the past"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "errors.backend"},
		{"server error", &clientError500, http.StatusBadGateway, "errors.backend"},
		{"transport", errors.New("dial tcp: refused"), http.StatusBadGateway, "errors.backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := describe(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

var (
	clientError400 = client.Error{Status: http.StatusBadRequest, Message: "Deadline is in the past"}
	clientError403 = client.Error{Status: http.StatusForbidden, Message: "Not the owner"}
	clientError404 = client.Error{Status: http.StatusNotFound, Message: "Project not found"}
	clientError500 = client.Error{Status: http.StatusInternalServerError, Message: "boom"}
)

func TestSwapStatus(t *testing.T) {
	plain := httptest.NewRequest(http.MethodPost, "/login", nil)
	hx := httptest.NewRequest(http.MethodPost, "/login", nil)
	hx.Header.Set("HX-Request", "true")

	assert.Equal(t, http.StatusUnauthorized, swapStatus(plain, http.StatusUnauthorized))
	assert.Equal(t, http.StatusOK, swapStatus(hx, http.StatusUnauthorized))
	assert.Equal(t, http.StatusCreated, swapStatus(hx, http.StatusCreated))
}
