package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/gridcast/internal/api/handlers"
	"github.com/wonny/gridcast/pkg/config"
	"github.com/wonny/gridcast/pkg/logger"
	"github.com/wonny/gridcast/pkg/redis"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{Env: "development", LogLevel: "error", LogFormat: "console"}
	log := logger.New(cfg)

	// 비활성 redis 클라이언트: 캐시는 항상 미스
	rdb, err := redis.New(cfg)
	require.NoError(t, err)
	cache := redis.NewCache(rdb, "gridcast-test")

	h := handlers.NewRunsHandler(nil, cache, log)
	return NewRouter(h, nil, log)
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gridcast-api")
	// 풀이 없으면 run-store 상태 없이 ok만 보고
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotContains(t, rec.Body.String(), "database")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestUnknownRoute(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunIDMustBeNumeric(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// {id:[0-9]+} 패턴에 걸리지 않음
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	router := testRouter(t)

	var limited bool
	for i := 0; i < 200; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited, "burst of 200 requests should trip the limiter")
}
