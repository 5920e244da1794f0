package app

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"library/pkg/cache"
	"library/pkg/client"
	"library/pkg/config"
	"library/pkg/logger"
	"library/pkg/middleware"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routes func(*httprouter.Router)

func (f routes) RegisterRoutes(r *httprouter.Router) { f(r) }

func testConfig(rateLimit int) *config.Config {
	c := client.NewClient()
	c.Cache = cache.NewLocalBackend(100, time.Hour)
	return &config.Config{
		Port:              "0",
		RequestTimeout:    time.Second,
		MaxRequestSize:    1024,
		IdempotencyTTL:    time.Minute,
		RateLimitRequests: rateLimit,
		RateLimitWindow:   time.Minute,
		ReadTimeout:       time.Second,
		WriteTimeout:      time.Second,
		IdleTimeout:       time.Second,
		ShutdownTimeout:   time.Second,
		Log:               logger.Discard(),
		Client:            c,
	}
}

func newTestApp(t *testing.T, rateLimit int, created *atomic.Int32) *Application {
	t.Helper()
	a := NewApplication(testConfig(rateLimit))

	health := routes(func(r *httprouter.Router) {
		r.GET("/health", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusOK)
		})
	})
	api := routes(func(r *httprouter.Router) {
		r.GET("/api/v1/books", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[]}`))
		})
		r.POST("/api/v1/books", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			n := created.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"data":{"id":` + strconv.Itoa(int(n)) + `}}`))
		})
	})

	a.SetApp(health, api)
	t.Cleanup(a.rateLimiter.Stop)
	return a
}

func TestApplication_HealthBypassesAPIChain(t *testing.T) {
	a := newTestApp(t, 1, &atomic.Int32{})

	for range 3 {
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	}
}

func TestApplication_RejectsNonJSONBodies(t *testing.T) {
	a := newTestApp(t, 0, &atomic.Int32{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/books", strings.NewReader("title=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), middleware.CodeUnsupportedMediaType)
}

func TestApplication_RateLimitsAPI(t *testing.T) {
	a := newTestApp(t, 2, &atomic.Int32{})

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/books", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestApplication_ReplaysIdempotentCreate(t *testing.T) {
	var created atomic.Int32
	a := newTestApp(t, 0, &created)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/books", strings.NewReader(`{"title":"Dune"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.IdempotencyHeader, "create-dune")
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		return rec
	}

	first := send()
	second := send()

	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, int32(1), created.Load())
}

func TestApplication_ShutdownRunsHooks(t *testing.T) {
	a := newTestApp(t, 0, &atomic.Int32{})

	var calls []string
	a.OnShutdown(func() { calls = append(calls, "first") })
	a.OnShutdown(func() { calls = append(calls, "second") })
	a.gracefulShutdown()

	assert.Equal(t, []string{"first", "second"}, calls)
}
