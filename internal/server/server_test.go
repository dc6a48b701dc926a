package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRateLimiterPerIP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/send", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:1111").Code)
	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:2222").Code)

	rr := do("10.0.0.1:3333")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.NotEmpty(t, body.Error)

	assert.Equal(t, http.StatusNoContent, do("10.0.0.2:1111").Code)
}

func TestRequestIDAndLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewRouter(zap.New(core))

	var seen string
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetReqID(r.Context())
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rr.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc")
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc", seen)

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
	assert.Equal(t, "abc", entries[1].ContextMap()["request_id"])
}
