package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("hello"))
})

func TestRequestIDAssignsAndPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id\nwith newline")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, "bad id\nwith newline", seen)
}

func TestLoggingRecordsRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := RequestID(Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("tea"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/analyze", fields["path"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, int64(3), fields["bytes"])
	assert.Equal(t, "req-1", fields["request_id"])
}

func TestRateLimitPerClient(t *testing.T) {
	limiter := NewRateLimiter(2, 0)
	t.Cleanup(limiter.Stop)
	h := RateLimit(limiter)(okHandler)

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:2000"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:3000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000"))
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	limiter := NewRateLimiter(1, 0)
	t.Cleanup(limiter.Stop)
	require.True(t, limiter.Allow("a"))
	require.False(t, limiter.Allow("a"))

	limiter.evict(time.Now().Add(time.Hour), 10*time.Minute)
	assert.True(t, limiter.Allow("a"))
}

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) Check(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	healthy := HealthHandler(map[string]HealthChecker{
		"store": checkerFunc(func(context.Context) error { return nil }),
	})
	rec := httptest.NewRecorder()
	healthy(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := HealthHandler(map[string]HealthChecker{
		"store":   checkerFunc(func(context.Context) error { return nil }),
		"archive": checkerFunc(func(context.Context) error { return errors.New("bucket missing") }),
	})
	rec = httptest.NewRecorder()
	failing(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "bucket missing", body.Checks["archive"].Message)
	assert.Equal(t, "healthy", body.Checks["store"].Status)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestStoreHealthCheckerHasDeadline(t *testing.T) {
	c := &StoreHealthChecker{Store: pingFunc(func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return nil
	})}
	assert.NoError(t, c.Check(t.Context()))
}

func TestMetricsMiddlewareCounts(t *testing.T) {
	before := atomic.LoadUint64(&globalMetrics.RequestsFailed)
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, before+1, atomic.LoadUint64(&globalMetrics.RequestsFailed))

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body, "analyses_total")
	assert.Contains(t, body, "video_failures")
}

func TestValidateLimit(t *testing.T) {
	n, err := ValidateLimit("")
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = ValidateLimit("3")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = ValidateLimit("500")
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = ValidateLimit("ten")
	assert.Error(t, err)
}

func TestValidateTaskID(t *testing.T) {
	assert.NoError(t, ValidateTaskID("106916112212032"))
	assert.Error(t, ValidateTaskID(""))
	assert.Error(t, ValidateTaskID("../../etc"))
	assert.Error(t, ValidateTaskID("a b"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Town centre", SanitizeString("  Town\x00 centre\x07 "))
}
