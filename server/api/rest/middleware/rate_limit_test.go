package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
)

func TestSourceRateLimiter(t *testing.T) {
	limiter := NewSourceRateLimiter(0.001, 2)
	require.True(t, limiter.Allow("10.0.0.1"))
	require.True(t, limiter.Allow("10.0.0.1"))
	require.False(t, limiter.Allow("10.0.0.1"))

	// Each source has its own bucket
	require.True(t, limiter.Allow("10.0.0.2"))
}

func TestSourceRateLimiterDisabled(t *testing.T) {
	limiter := NewSourceRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, limiter.Allow("10.0.0.1"))
	}

	var unset *SourceRateLimiter
	require.True(t, unset.Allow("10.0.0.1"))
}

func TestRateLimiterMiddleware(t *testing.T) {
	var written error
	writeError := func(w http.ResponseWriter, r *http.Request, err error) {
		written = err
		w.WriteHeader(http.StatusTooManyRequests)
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := MakeRateLimiter(logger.NewNoOpLog(), NewSourceRateLimiter(0.001, 1), writeError)(next)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hooks/push/alice/notes", nil)
	req.RemoteAddr = "10.4.5.6:43210"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
	require.True(t, gerror.IsRateLimited(written))
}
