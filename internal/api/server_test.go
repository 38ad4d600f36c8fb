package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pool-ledger/internal/config"
	"github.com/pool-ledger/internal/logging"
	"github.com/pool-ledger/internal/processor"
)

func newServer(t *testing.T, checks map[string]HealthCheck) *Server {
	t.Helper()
	logger := logging.NewLogger(logging.LevelFatal, logging.FormatText)
	proc := processor.New(nil, nil, nil, logger)
	cfg := &config.ServerConfig{Host: "127.0.0.1", Port: "0"}
	return NewServer(cfg, proc, checks, logger)
}

func TestHealthHealthy(t *testing.T) {
	srv := newServer(t, map[string]HealthCheck{
		"store": func(context.Context) error { return nil },
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHealthDependencyDown(t *testing.T) {
	srv := newServer(t, map[string]HealthCheck{
		"store": func(context.Context) error { return errors.New("connection refused") },
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body["status"])
}

func TestStatusReportsRun(t *testing.T) {
	srv := newServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var status processor.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.NotEmpty(t, status.RunID)
	assert.Zero(t, status.Processed)
}
