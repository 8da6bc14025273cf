package fetcher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/testr/testr-dashboard/server/internal/config"
	"github.com/testr/testr-dashboard/server/internal/diagnostics"
)

// FetchFailedMessage is the user-visible text for any non-success response.
const FetchFailedMessage = "Failed to load diagnostics"

// maxBodyBytes caps how much of the response body is read.
const maxBodyBytes = 32 << 20

// Kind classifies a fetch failure.
type Kind int

const (
	// KindFetchFailed means the API answered with a non-2xx status.
	KindFetchFailed Kind = iota + 1
	// KindNetworkOrParse means the request, the body read or the JSON
	// decoding failed.
	KindNetworkOrParse
)

func (k Kind) String() string {
	switch k {
	case KindFetchFailed:
		return "fetch_failed"
	case KindNetworkOrParse:
		return "network_or_parse"
	default:
		return "unknown"
	}
}

// Error is returned by Fetch. Its message is safe to show to users as-is.
type Error struct {
	Kind       Kind
	StatusCode int   // set for KindFetchFailed
	Err        error // underlying cause for KindNetworkOrParse
}

func (e *Error) Error() string {
	if e.Kind == KindFetchFailed {
		return FetchFailedMessage
	}
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a fetch *Error of kind k.
func IsKind(err error, k Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == k
}

// Fetcher retrieves the diagnostics run collection from the remote API.
// The HTTP client is built once and reused.
type Fetcher struct {
	endpoint string
	client   *http.Client
}

// New returns a Fetcher for the configured source.
func New(src config.SourceConfig) (*Fetcher, error) {
	client, err := buildHTTPClient(src)
	if err != nil {
		return nil, fmt.Errorf("fetcher: build http client: %w", err)
	}
	return &Fetcher{endpoint: src.EffectiveEndpoint(), client: client}, nil
}

// Endpoint returns the URL Fetch requests.
func (f *Fetcher) Endpoint() string { return f.endpoint }

// Fetch performs a single GET against the diagnostics endpoint and returns
// the decoded runs in response order. It never retries.
//
// Every failure is an *Error: a non-2xx status becomes KindFetchFailed with
// the fixed FetchFailedMessage, anything else becomes KindNetworkOrParse
// carrying the underlying message.
func (f *Fetcher) Fetch(ctx context.Context) ([]diagnostics.Run, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, f.fail(&Error{Kind: KindNetworkOrParse, Err: err})
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.fail(&Error{Kind: KindNetworkOrParse, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
		return nil, f.fail(&Error{Kind: KindFetchFailed, StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, f.fail(&Error{Kind: KindNetworkOrParse, Err: fmt.Errorf("read body: %w", err)})
	}

	runs, err := diagnostics.ParseRuns(body)
	if err != nil {
		return nil, f.fail(&Error{Kind: KindNetworkOrParse, Err: err})
	}

	slog.Info("fetcher: diagnostics loaded", "endpoint", f.endpoint, "runs", len(runs))
	return runs, nil
}

// fail logs the console diagnostic for a failed fetch and returns e.
func (f *Fetcher) fail(e *Error) error {
	attrs := []any{"endpoint", f.endpoint, "kind", e.Kind.String(), "err", e.Error()}
	if e.StatusCode != 0 {
		attrs = append(attrs, "status", e.StatusCode)
	}
	slog.Warn("fetcher: diagnostics fetch failed", attrs...)
	return e
}

// buildHTTPClient constructs an http.Client for the source's timeout and TLS
// settings.
func buildHTTPClient(src config.SourceConfig) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: src.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if src.TLS.CAFile != "" {
		caPEM, err := os.ReadFile(src.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("no valid certs found in ca file %q", src.TLS.CAFile)
		}
		tlsCfg.RootCAs = pool
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: tlsCfg,
		},
		Timeout: src.Timeout,
	}, nil
}
