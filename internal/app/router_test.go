package app_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	httpserver "github.com/zaizaiboom/futureu913/internal/adapter/httpserver"
	"github.com/zaizaiboom/futureu913/internal/app"
	"github.com/zaizaiboom/futureu913/internal/config"
)

func TestParseOrigins(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"*"}, app.ParseOrigins(""))
	assert.Equal(t, []string{"*"}, app.ParseOrigins("*"))
	assert.Equal(t, []string{"*"}, app.ParseOrigins(" , ,"))
	assert.Equal(t,
		[]string{"https://app.example.com", "https://staging.example.com"},
		app.ParseOrigins(" https://app.example.com , https://staging.example.com "))
}

func TestBuildRouter_HealthAndHeaders(t *testing.T) {
	cfg := config.Config{
		AppEnv:             "test",
		RateLimitPerMin:    100,
		SyncRequestTimeout: time.Second,
	}
	h := app.BuildRouter(cfg, httpserver.NewServer(cfg, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestBuildRouter_MetricsExposed(t *testing.T) {
	cfg := config.Config{
		AppEnv:             "test",
		RateLimitPerMin:    100,
		SyncRequestTimeout: time.Second,
	}
	h := app.BuildRouter(cfg, httpserver.NewServer(cfg, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestBuildRouter_UnknownRoute(t *testing.T) {
	cfg := config.Config{
		AppEnv:             "test",
		RateLimitPerMin:    100,
		SyncRequestTimeout: time.Second,
	}
	h := app.BuildRouter(cfg, httpserver.NewServer(cfg, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
