package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	m := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

// TestStatusHandler ensures api handler can provides its status.
func TestStatusHandler(t *testing.T) {
	api := newTestAPIHandler(t, nil, &MockViewer{}, nil)
	w := httptest.NewRecorder()
	api.Status(w, httptest.NewRequest(http.MethodGet, "/status", nil), httprouter.Params{})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=UTF-8", w.Header().Get("Content-Type"))
	m := decodeJSON(t, w)
	assert.Equal(t, "up & running since 0 mins", m["message"])
	assert.Equal(t, float64(http.StatusOK), m["status"])
}

// TestMaintenanceHandler ensures the maintenance mode can be toggled.
func TestMaintenanceHandler(t *testing.T) {
	api := newTestAPIHandler(t, nil, &MockViewer{}, nil)

	w := httptest.NewRecorder()
	api.Maintenance(w, httptest.NewRequest(http.MethodGet, "/ops/maintenance?status=enable&msg=upgrade", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, api.mode.enabled.Load())
	assert.Equal(t, "upgrade", api.mode.message)
	data, ok := decodeJSON(t, w)["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "upgrade", data["message"])
	assert.Equal(t, "Sun, 02 Jul 2023 00:00:00 UTC", data["started"])

	w = httptest.NewRecorder()
	api.Maintenance(w, httptest.NewRequest(http.MethodGet, "/ops/maintenance?status=disable", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, api.mode.enabled.Load())
	assert.Empty(t, api.mode.message)

	w = httptest.NewRecorder()
	api.Maintenance(w, httptest.NewRequest(http.MethodGet, "/ops/maintenance?status=maybe", nil), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestGetStatisticsHandler ensures recorded statistics are exposed.
func TestGetStatisticsHandler(t *testing.T) {
	api := newTestAPIHandler(t, nil, &MockViewer{}, nil)
	api.stats.version = "v1.0.0"
	api.stats.called = 5
	api.stats.status[http.StatusOK] = 4

	w := httptest.NewRecorder()
	api.GetStatistics(w, httptest.NewRequest(http.MethodGet, "/ops/stats", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data, ok := decodeJSON(t, w)["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "v1.0.0", data["app.version"])
	assert.Equal(t, float64(4), data["called"])
	assert.Equal(t, map[string]interface{}{"200": float64(4)}, data["status"])
}

// TestGetConfigsHandler ensures secrets are not exposed.
func TestGetConfigsHandler(t *testing.T) {
	api := newTestAPIHandler(t, nil, &MockViewer{}, nil)
	api.config.Store.DSN = "postgres://user:secret@db/requests"
	api.config.Archive.Redis.Password = "secret"

	w := httptest.NewRecorder()
	api.GetConfigs(w, httptest.NewRequest(http.MethodGet, "/ops/configs", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
	assert.Contains(t, w.Body.String(), `"landing_page":"/home.html"`)
}

// TestGetArchiveHandler ensures archived requests are listed when the archive is enabled.
func TestGetArchiveHandler(t *testing.T) {
	t.Run("archive disabled", func(t *testing.T) {
		api := newTestAPIHandler(t, nil, &MockViewer{}, nil)
		w := httptest.NewRecorder()
		api.GetArchive(w, httptest.NewRequest(http.MethodGet, "/ops/archive", nil), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("archive enabled", func(t *testing.T) {
		archive := &MockArchiveStorage{}
		require.NoError(t, archive.Add(context.Background(), RequestView{RequestID: 1, Title: "Emma"}))
		api := newTestAPIHandler(t, nil, &MockViewer{}, archive)
		w := httptest.NewRecorder()
		api.GetArchive(w, httptest.NewRequest(http.MethodGet, "/ops/archive", nil), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		m := decodeJSON(t, w)
		assert.Equal(t, float64(1), m["total"])
	})

	t.Run("archive failure", func(t *testing.T) {
		api := newTestAPIHandler(t, nil, &MockViewer{}, failingArchive{})
		w := httptest.NewRecorder()
		api.GetArchive(w, httptest.NewRequest(http.MethodGet, "/ops/archive", nil), nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

type failingArchive struct{}

func (failingArchive) Add(context.Context, RequestView) error { return errors.New("archive down") }

func (failingArchive) GetAll(context.Context) ([]RequestView, error) {
	return nil, errors.New("archive down")
}
