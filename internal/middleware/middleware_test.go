package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/radiusdt/vector-attribution/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	cfg := config.AuthConfig{Enabled: true, MasterKey: "secret", SkipPaths: []string{"/health"}}

	var seenKey string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenKey, _ = r.Context().Value(APIKeyContextKey).(string)
		w.WriteHeader(http.StatusOK)
	})
	h := NewAuthMiddleware(cfg, zap.NewNop()).Handler(next)

	tests := []struct {
		name     string
		target   string
		header   map[string]string
		wantCode int
	}{
		{name: "missing key", target: "/v1/attribution/channels", wantCode: http.StatusUnauthorized},
		{name: "wrong key", target: "/v1/attribution/channels", header: map[string]string{AuthHeaderName: "nope"}, wantCode: http.StatusUnauthorized},
		{name: "header key", target: "/v1/attribution/channels", header: map[string]string{AuthHeaderName: "secret"}, wantCode: http.StatusOK},
		{name: "bearer token", target: "/v1/attribution/channels", header: map[string]string{"Authorization": "Bearer secret"}, wantCode: http.StatusOK},
		{name: "query param", target: "/v1/attribution/channels?api_key=secret", wantCode: http.StatusOK},
		{name: "skipped path", target: "/health", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenKey = ""
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusUnauthorized {
				assert.Equal(t, "ApiKey", rec.Header().Get("WWW-Authenticate"))
			}
			if tt.wantCode == http.StatusOK && tt.target != "/health" {
				assert.Equal(t, "secret", seenKey)
			}
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	h := NewAuthMiddleware(config.AuthConfig{Enabled: false}, zap.NewNop()).Handler(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/attribution/ads", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2}
	rl := NewRateLimitMiddleware(cfg, zap.NewNop(), nil)
	h := rl.Handler(okHandler())

	do := func(path, ip string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("/v1/attribution/channels", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("/v1/attribution/channels", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("/v1/attribution/channels", "10.0.0.1"))

	// other clients have their own bucket
	assert.Equal(t, http.StatusOK, do("/v1/attribution/channels", "10.0.0.2"))
	// health checks are never limited
	assert.Equal(t, http.StatusOK, do("/health", "10.0.0.1"))

	rl.CleanupLimiters()
	assert.Equal(t, http.StatusOK, do("/v1/attribution/channels", "10.0.0.1"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5123"
	assert.Equal(t, "192.0.2.10", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", clientIP(req))
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := NewRequestIDMiddleware().Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, incoming, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, "not-a-uuid", seen)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := NewRecoveryMiddleware(zap.NewNop()).Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/attribution/ads", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestLoggingMiddleware_CapturesStatus(t *testing.T) {
	h := NewLoggingMiddleware(zap.NewNop(), nil).Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewLogger("debug", format)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	}

	logger, err := NewLogger("bogus", "json")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}
