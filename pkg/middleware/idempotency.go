package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"library/pkg/cache"
	"library/pkg/logger"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	IdempotencyHeader    = "Idempotency-Key"
	idempotencyKeyPrefix = "idempotency"
	idempotencyOpTimeout = 250 * time.Millisecond
)

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool)
	Set(ctx context.Context, key string, response *CachedResponse)
}

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

// CacheIdempotencyStore keeps replayable responses in the cache backend, so
// replays work across instances when the backend is Redis. Failures degrade
// to "not seen before".
type CacheIdempotencyStore struct {
	backend cache.Backend
	ttl     time.Duration
	log     *logger.Logger
}

func NewCacheIdempotencyStore(backend cache.Backend, ttl time.Duration, log *logger.Logger) *CacheIdempotencyStore {
	if backend == nil {
		backend = cache.NewNopBackend()
	}
	return &CacheIdempotencyStore{
		backend: backend,
		ttl:     ttl,
		log:     log,
	}
}

func (s *CacheIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), idempotencyOpTimeout)
	defer cancel()

	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.log.Warn("idempotency lookup failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var response CachedResponse
	if err := json.Unmarshal(data, &response); err != nil {
		s.log.Warn("idempotency entry could not be decoded", "key", key, "error", err)
		return nil, false
	}
	return &response, true
}

func (s *CacheIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) {
	response.CreatedAt = time.Now().UTC()
	data, err := json.Marshal(response)
	if err != nil {
		s.log.Warn("idempotency entry could not be encoded", "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), idempotencyOpTimeout)
	defer cancel()

	if err := s.backend.Set(ctx, key, data, s.ttl); err != nil {
		s.log.Warn("idempotency store failed", "key", key, "error", err)
	}
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the stored 2xx response for a repeated mutating
// request carrying the same key on the same route. Reads pass through.
func Idempotency(store IdempotencyStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = IdempotencyHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(headerName)

			if clientKey == "" || !isMutation(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			key := idempotencyKey(r, clientKey)
			if cached, found := store.Get(r.Context(), key); found {
				replayCachedResponse(w, cached)
				return
			}

			capture := captureResponse(w)
			next.ServeHTTP(capture, r)
			cacheSuccessfulResponse(r.Context(), store, key, capture, w)
		})
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func idempotencyKey(r *http.Request, clientKey string) string {
	return idempotencyKeyPrefix + ":" + r.Method + ":" + r.URL.Path + ":" + clientKey
}

func replayCachedResponse(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}

func captureResponse(w http.ResponseWriter) *responseCapture {
	return &responseCapture{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		body:           &bytes.Buffer{},
	}
}

func cacheSuccessfulResponse(ctx context.Context, store IdempotencyStore, key string, capture *responseCapture, w http.ResponseWriter) {
	if !shouldCacheResponse(capture.statusCode) {
		return
	}

	headers := w.Header().Clone()
	headers.Del(RequestIDHeader)
	store.Set(ctx, key, &CachedResponse{
		StatusCode: capture.statusCode,
		Headers:    headers,
		Body:       capture.body.Bytes(),
	})
}

func shouldCacheResponse(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
