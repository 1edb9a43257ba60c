package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mywallet/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var out bytes.Buffer
	m := NewMiddleware(log.New(log.Config{Output: &out}), func(*http.Request) string { return "203.0.113.9" })

	var seenID string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		log.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/balance/?x=1", nil))

	require.True(t, strings.HasPrefix(seenID, "req_"))
	assert.Equal(t, seenID, rr.Header().Get(HeaderRequestID))

	logs := out.String()
	assert.Contains(t, logs, "HTTP request started")
	assert.Contains(t, logs, "HTTP request completed")
	assert.Contains(t, logs, "status_code=418")
	assert.Contains(t, logs, "client_ip=203.0.113.9")
	assert.Contains(t, logs, "request_id="+seenID, "handler logs carry the request id")

	metrics := m.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalRequests)
	assert.Zero(t, metrics.ServerErrors)
}

func TestMiddlewareKeepsClientRequestID(t *testing.T) {
	m := NewMiddleware(log.New(log.Config{Output: &bytes.Buffer{}}), nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "abc-123", rr.Header().Get(HeaderRequestID))
	assert.Equal(t, int64(1), m.GetMetrics().ServerErrors)
}

func TestAverageResponseTime(t *testing.T) {
	assert.Zero(t, Metrics{}.AverageResponseTime())
	assert.Equal(t, "1.5ms", Metrics{TotalRequests: 2, TotalDuration: 3000}.AverageResponseTime().String())
}
