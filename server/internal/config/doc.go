// Package config loads the dashboard configuration from the `dashboard:`
// section of config.yaml.
//
// Config fields:
//   - HTTPPort           : port for REST, WebSocket and /metrics (default 8090)
//   - LogLevel           : debug | info | warn | error (default info)
//   - UIDir              : optional directory of pre-built UI files
//   - CORSOrigins        : allowed browser origins (default ["*"])
//   - Source.Endpoint    : diagnostics list URL (default http://localhost:8080/v1/diagnostics)
//   - Source.EndpointEnv : environment variable that overrides Source.Endpoint
//   - Source.Timeout     : request timeout (default 10s)
//   - Source.TLS         : insecure_skip_verify, ca_file
//
// Load(path) applies defaults before unmarshalling, then validates.
//
// Watch(ctx, path, onChange) uses fsnotify to reload the file when it is
// written. Only the log level is applied live; the caller decides what to do
// with the rest.
package config
