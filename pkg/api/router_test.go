package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/hsmwatch/pkg/status"
)

func newTestStore(t *testing.T) *status.Store {
	t.Helper()

	store, err := status.NewStore(&status.Config{
		Type:   status.DatabaseTypeSQLite,
		SQLite: status.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLiveness(t *testing.T) {
	router := NewRouter(newTestStore(t), status.DatafileNamespace)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeResponse(t, rec).Status)
}

func TestReadiness(t *testing.T) {
	router := NewRouter(newTestStore(t), status.DatafileNamespace)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessWithoutStore(t *testing.T) {
	router := NewRouter(nil, status.DatafileNamespace)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", decodeResponse(t, rec).Status)
}

func TestStatusSummary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateRecord(ctx, status.DatafileNamespace, "file-1", status.ValueOnline)
	require.NoError(t, err)
	_, err = store.CreateRecord(ctx, status.DatafileNamespace, "file-2", status.ValueOffline)
	require.NoError(t, err)

	router := NewRouter(store, status.DatafileNamespace)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), data["online"])
	assert.Equal(t, float64(1), data["offline"])
}

func TestMetricsDisabled(t *testing.T) {
	router := NewRouter(newTestStore(t), status.DatafileNamespace)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Metrics registry not initialized in this test process
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRootRedirect(t *testing.T) {
	router := NewRouter(newTestStore(t), status.DatafileNamespace)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/health", rec.Header().Get("Location"))
}
