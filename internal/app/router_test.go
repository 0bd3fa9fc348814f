package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/merakitalent/fernando-format/internal/adapter/extraction"
	"github.com/merakitalent/fernando-format/internal/adapter/httpserver"
	"github.com/merakitalent/fernando-format/internal/config"
)

func TestParseOrigins(t *testing.T) {
	require.Equal(t, []string{"*"}, ParseOrigins(""))
	require.Equal(t, []string{"*"}, ParseOrigins("*"))
	require.Equal(t, []string{"https://a.example", "https://b.example"}, ParseOrigins(" https://a.example, https://b.example ,"))
}

func TestBuildRouter_HealthAndMetricsRoutes(t *testing.T) {
	cfg := config.Config{
		TurnTimeout:     30 * time.Second,
		RateLimitPerMin: 60,
	}
	srv := httpserver.NewServer("fernando-format", extraction.New(nil, nil, 0), nil, nil, nil)
	h := BuildRouter(cfg, srv)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
