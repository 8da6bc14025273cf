package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testr/testr-dashboard/server/internal/config"
)

const payload = `[
  {"id":1,"deviceModel":"Pixel 7","batteryHealth":90,"cpuPerformancePct":80,"storageSpeedPct":70},
  {"id":2,"deviceModel":"Galaxy S21","batteryHealth":60}
]`

func newFetcher(t *testing.T, url string) *Fetcher {
	t.Helper()
	f, err := New(config.SourceConfig{Endpoint: url, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return f
}

func TestFetch_Success(t *testing.T) {
	var gotMethod, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	runs, err := newFetcher(t, srv.URL+"/v1/diagnostics").Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "1", runs[0].ID)
	assert.Equal(t, "Galaxy S21", runs[1].Model())

	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Empty(t, gotQuery, "no request parameters are sent")
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "backend exploded: stack trace here", code)
		}))

		_, err := newFetcher(t, srv.URL).Fetch(context.Background())
		srv.Close()

		require.Error(t, err)
		assert.True(t, IsKind(err, KindFetchFailed), "status %d", code)
		assert.Equal(t, FetchFailedMessage, err.Error(), "status %d must use the fixed message", code)

		var fe *Error
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, code, fe.StatusCode)
	}
}

func TestFetch_ParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"runs": "not an array"}`))
	}))
	defer srv.Close()

	_, err := newFetcher(t, srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetworkOrParse))
	assert.Equal(t, "diagnostics payload is not a JSON array", err.Error())
}

func TestFetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listening any more

	_, err := newFetcher(t, url).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetworkOrParse))
	assert.NotEqual(t, FetchFailedMessage, err.Error())
	assert.NotEmpty(t, err.Error())
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFetcher(t, srv.URL).Fetch(ctx)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetworkOrParse))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_BadCAFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(p, []byte("not a certificate"), 0o600))

	_, err := New(config.SourceConfig{Endpoint: "https://x", Timeout: time.Second, TLS: config.TLSConfig{CAFile: p}})
	assert.Error(t, err)

	_, err = New(config.SourceConfig{Endpoint: "https://x", Timeout: time.Second, TLS: config.TLSConfig{CAFile: "/nonexistent/ca.pem"}})
	assert.Error(t, err)
}

func TestNew_UsesEndpointEnv(t *testing.T) {
	t.Setenv("TEST_FETCH_ENDPOINT", "http://override:9000/v1/diagnostics")
	f, err := New(config.SourceConfig{Endpoint: "http://default/v1/diagnostics", EndpointEnv: "TEST_FETCH_ENDPOINT", Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "http://override:9000/v1/diagnostics", f.Endpoint())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "fetch_failed", KindFetchFailed.String())
	assert.Equal(t, "network_or_parse", KindNetworkOrParse.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
