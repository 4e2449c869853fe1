package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/seedcross/internal/database"
	"github.com/autobrr/seedcross/internal/domain"
	"github.com/autobrr/seedcross/internal/models"
	"github.com/autobrr/seedcross/internal/qbittorrent"
	"github.com/autobrr/seedcross/internal/services/crossseed"
)

func newTestServer(t *testing.T, apiKey string) (http.Handler, *database.DB) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "seedcross.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	instanceStore := models.NewInstanceStore(db)
	integrationStore := models.NewIntegrationStore(db)
	configStore := models.NewCrossSeedConfigStore(db)
	searcheeStore := models.NewSearcheeStore(db)
	decisionStore := models.NewDecisionStore(db)

	pool := qbittorrent.NewPool(instanceStore)

	cache, err := crossseed.NewCache(t.TempDir())
	require.NoError(t, err)

	service := crossseed.NewService(
		instanceStore, integrationStore, configStore, searcheeStore, decisionStore,
		pool, cache,
	)
	scheduler := crossseed.NewScheduler(service, configStore)
	t.Cleanup(scheduler.Stop)

	server := NewServer(
		&domain.Config{Host: "localhost", Port: 0, APIKey: apiKey},
		instanceStore, integrationStore, configStore, searcheeStore, decisionStore,
		pool, scheduler, cache,
	)
	return server.Handler(), db
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, apiKey string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createInstance(t *testing.T, h http.Handler) int {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/api/instances/", map[string]string{
		"label": "main",
		"host":  "http://localhost:8080",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var instance models.Instance
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&instance))
	return instance.ID
}

func TestAPIKeyAuth(t *testing.T) {
	h, _ := newTestServer(t, "sekret")

	rec := doJSON(t, h, http.MethodGet, "/api/instances/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/instances/", nil, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/instances/", nil, "sekret")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health endpoint stays open.
	rec = doJSON(t, h, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInstanceLifecycle(t *testing.T) {
	h, _ := newTestServer(t, "")

	id := createInstance(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/instances/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var instances []models.Instance
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&instances))
	require.Len(t, instances, 1)
	assert.Equal(t, id, instances[0].ID)

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/instances/%d", id), nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/instances/%d", id), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCrossSeedConfigEndpoints(t *testing.T) {
	h, _ := newTestServer(t, "")
	id := createInstance(t, h)

	// Unsaved config comes back as defaults.
	rec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/instances/%d/cross-seed/config", id), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg models.CrossSeedConfig
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cfg))
	assert.Equal(t, models.DefaultIntervalHours, cfg.IntervalHours)
	assert.True(t, cfg.DryRun)

	rec = doJSON(t, h, http.MethodPut, fmt.Sprintf("/api/instances/%d/cross-seed/config", id), map[string]any{
		"enabled":       false,
		"intervalHours": 6,
		"dryRun":        false,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cfg))
	assert.Equal(t, 6, cfg.IntervalHours)
	assert.Equal(t, models.DefaultCategorySuffix, cfg.CategorySuffix)

	// Interval below one hour is rejected.
	rec = doJSON(t, h, http.MethodPut, fmt.Sprintf("/api/instances/%d/cross-seed/config", id), map[string]any{
		"enabled":       true,
		"intervalHours": 0,
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown instance.
	rec = doJSON(t, h, http.MethodGet, "/api/instances/999/cross-seed/config", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCrossSeedStatusAndHistoryEndpoints(t *testing.T) {
	h, db := newTestServer(t, "")
	id := createInstance(t, h)

	rec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/instances/%d/cross-seed/status", id), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, false, status["running"])

	rec = doJSON(t, h, http.MethodGet, "/api/cross-seed/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/instances/%d/cross-seed/history", id), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Entries []models.Searchee `json:"entries"`
		Total   int               `json:"total"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	assert.Zero(t, history.Total)

	// Seed a searchee and read it back through the API.
	searchees := models.NewSearcheeStore(db)
	searcheeID, err := searchees.Upsert(t.Context(), &models.Searchee{
		InstanceID:  id,
		TorrentHash: "feed0000feed0000feed0000feed0000feed0000",
		TorrentName: "Some.Release",
	})
	require.NoError(t, err)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/instances/%d/cross-seed/history", id), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	require.Equal(t, 1, history.Total)
	assert.Equal(t, "Some.Release", history.Entries[0].TorrentName)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/instances/%d/cross-seed/history/%d/decisions", id, searcheeID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/instances/%d/cross-seed/history", id), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/instances/%d/cross-seed/history", id), nil, "")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	assert.Zero(t, history.Total)
}

func TestCrossSeedScanEndpointReturnsResult(t *testing.T) {
	h, _ := newTestServer(t, "")
	id := createInstance(t, h)

	// No cross-seed config exists, so the scan fails fast; the caller still
	// receives the full result synchronously.
	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/instances/%d/cross-seed/scan", id), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result crossseed.ScanResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, id, result.InstanceID)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not configured")
}

func TestCrossSeedCacheEndpoints(t *testing.T) {
	h, _ := newTestServer(t, "")
	id := createInstance(t, h)

	rec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/instances/%d/cross-seed/cache", id), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/instances/%d/cross-seed/cache", id), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cleared map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cleared))
	assert.Zero(t, cleared["removed"])
}

func TestIntegrationEndpoints(t *testing.T) {
	h, _ := newTestServer(t, "")

	rec := doJSON(t, h, http.MethodPost, "/api/integrations/", map[string]string{
		"name":   "prowlarr",
		"host":   "http://localhost:9696",
		"apiKey": "key",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/integrations/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var integrations []models.Integration
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&integrations))
	require.Len(t, integrations, 1)
	assert.Equal(t, "prowlarr", integrations[0].Name)
}
