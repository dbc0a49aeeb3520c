package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
)

func TestParseTrustedSources(t *testing.T) {
	sources, err := ParseTrustedSources([]string{"192.30.252.0/22", " 10.1.2.3 ", "", "2001:db8::/32"})
	require.NoError(t, err)

	require.True(t, sources.Contains(net.ParseIP("192.30.253.7")))
	require.True(t, sources.Contains(net.ParseIP("10.1.2.3")))
	require.True(t, sources.Contains(net.ParseIP("2001:db8::1")))
	require.False(t, sources.Contains(net.ParseIP("10.1.2.4")))
	require.False(t, sources.Contains(net.ParseIP("8.8.8.8")))
	require.False(t, sources.Contains(nil))

	_, err = ParseTrustedSources([]string{"not-an-address"})
	require.Error(t, err)
	_, err = ParseTrustedSources([]string{"10.0.0.0/99"})
	require.Error(t, err)
}

func TestEmptyTrustedSourcesTrustEverything(t *testing.T) {
	sources, err := ParseTrustedSources(nil)
	require.NoError(t, err)
	require.True(t, sources.Contains(net.ParseIP("8.8.8.8")))

	var unset *TrustedSources
	require.True(t, unset.Contains(net.ParseIP("8.8.8.8")))
}

func TestTrustedSourceFilter(t *testing.T) {
	sources, err := ParseTrustedSources([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	var written error
	writeError := func(w http.ResponseWriter, r *http.Request, err error) {
		written = err
		w.WriteHeader(http.StatusNotFound)
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := MakeTrustedSourceFilter(logger.NewNoOpLog(), sources, writeError)(next)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hooks/push/alice/notes", nil)
	req.RemoteAddr = "10.4.5.6:43210"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Nil(t, written)

	req.RemoteAddr = "172.16.0.1:43210"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.True(t, gerror.IsNotFound(written))
}
