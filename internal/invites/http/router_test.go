package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store/drivers/memory"
	"github.com/stretchr/testify/require"
)

type unreachableStore struct {
	store.Store
}

func (unreachableStore) Ping(context.Context) error { return errors.New("connection refused") }

func newTestRouter(st store.Store) *Router {
	r := NewRouter("test", st, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.ApplyRoutes()
	return r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLivez(t *testing.T) {
	rec := get(t, newTestRouter(unreachableStore{}), "/livez")
	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Status)
	require.Equal(t, "test", body.Version)
	require.Nil(t, body.Checks, "liveness must not depend on the ledger")
}

func TestReadyz(t *testing.T) {
	t.Run("ledger reachable", func(t *testing.T) {
		rec := get(t, newTestRouter(memory.New()), "/readyz")
		require.Equal(t, http.StatusOK, rec.Code)

		var body HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "ok", body.Checks.Ledger)
	})

	t.Run("ledger unreachable", func(t *testing.T) {
		rec := get(t, newTestRouter(unreachableStore{}), "/readyz")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "degraded", body.Status)
		require.Contains(t, body.Checks.Ledger, "connection refused")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(memory.New())
	get(t, r, "/livez")
	get(t, r, "/wp-login.php")

	rec := get(t, r, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, `route="GET /livez"`)
	require.Contains(t, body, `route="unmatched"`)
	require.NotContains(t, body, "wp-login")
}

func TestIndexAndUnknownRoutes(t *testing.T) {
	r := newTestRouter(memory.New())

	rec := get(t, r, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Bot is running!", rec.Body.String())

	rec = get(t, r, "/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSwaggerDocs(t *testing.T) {
	r := newTestRouter(memory.New())

	rec := get(t, r, "/swagger/doc.json")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc struct {
		Info  struct{ Title string }     `json:"info"`
		Paths map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Equal(t, "Invite Tracker Bot", doc.Info.Title)
	for _, path := range []string{"/", "/livez", "/readyz", "/metrics"} {
		require.Contains(t, doc.Paths, path)
	}
}
