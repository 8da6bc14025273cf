// Package fetcher performs the dashboard's one network retrieval: a plain GET
// of the diagnostics endpoint returning a JSON array of runs.
//
// New(config.SourceConfig) builds the HTTP client once (timeout, optional CA
// bundle, insecure_skip_verify). Fetch(ctx) issues the request and decodes the
// body with diagnostics.ParseRuns. No parameters, headers or credentials are
// sent, and a failed fetch is never retried.
//
// Failures come back as *Error with one of two kinds:
//   - KindFetchFailed: non-2xx status; message is always FetchFailedMessage
//   - KindNetworkOrParse: transport, read or JSON error; message is the cause
package fetcher
