package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// Unrelated top-level keys are ignored.
	p := writeConfig(t, `backend:
  port: 8080
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d := cfg.Dashboard
	if d.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", d.HTTPPort, DefaultHTTPPort)
	}
	if d.Source.Endpoint != DefaultEndpoint {
		t.Errorf("source.endpoint: got %q, want %q", d.Source.Endpoint, DefaultEndpoint)
	}
	if d.Source.Timeout != DefaultSourceTimeout {
		t.Errorf("source.timeout: got %v, want %v", d.Source.Timeout, DefaultSourceTimeout)
	}
	if len(d.CORSOrigins) != 1 || d.CORSOrigins[0] != "*" {
		t.Errorf("cors_origins: got %v, want [*]", d.CORSOrigins)
	}
	if d.Level() != slog.LevelInfo {
		t.Errorf("Level(): got %v, want info", d.Level())
	}
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `dashboard:
  http_port: 9091
  log_level: debug
  ui_dir: ui/dist
  cors_origins: ["https://dash.example.com"]
  source:
    endpoint: https://testr.internal/v1/diagnostics
    timeout: 3s
    tls:
      insecure_skip_verify: true
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d := cfg.Dashboard
	if d.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", d.HTTPPort)
	}
	if d.Level() != slog.LevelDebug {
		t.Errorf("Level(): got %v, want debug", d.Level())
	}
	if d.UIDir != "ui/dist" {
		t.Errorf("ui_dir: got %q", d.UIDir)
	}
	if len(d.CORSOrigins) != 1 || d.CORSOrigins[0] != "https://dash.example.com" {
		t.Errorf("cors_origins: got %v", d.CORSOrigins)
	}
	if d.Source.EffectiveEndpoint() != "https://testr.internal/v1/diagnostics" {
		t.Errorf("endpoint: got %q", d.Source.EffectiveEndpoint())
	}
	if d.Source.Timeout != 3*time.Second {
		t.Errorf("timeout: got %v, want 3s", d.Source.Timeout)
	}
	if !d.Source.TLS.InsecureSkipVerify {
		t.Error("tls.insecure_skip_verify: got false, want true")
	}
}

func TestLoad_EndpointEnvOverride(t *testing.T) {
	t.Setenv("TEST_DIAG_ENDPOINT", "http://10.0.0.5:8080/v1/diagnostics")
	p := writeConfig(t, `dashboard:
  source:
    endpoint_env: TEST_DIAG_ENDPOINT
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Dashboard.Source.EffectiveEndpoint(); got != "http://10.0.0.5:8080/v1/diagnostics" {
		t.Errorf("EffectiveEndpoint(): got %q", got)
	}
}

func TestLoad_EndpointEnvUnsetFallsBack(t *testing.T) {
	t.Setenv("TEST_DIAG_ENDPOINT_EMPTY", "")
	p := writeConfig(t, `dashboard:
  source:
    endpoint: http://backend:8080/v1/diagnostics
    endpoint_env: TEST_DIAG_ENDPOINT_EMPTY
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Dashboard.Source.EffectiveEndpoint(); got != "http://backend:8080/v1/diagnostics" {
		t.Errorf("EffectiveEndpoint(): got %q", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"port out of range", "dashboard:\n  http_port: 70000\n"},
		{"unknown log level", "dashboard:\n  log_level: chatty\n"},
		{"empty endpoint", "dashboard:\n  source:\n    endpoint: \"\"\n"},
		{"bad scheme", "dashboard:\n  source:\n    endpoint: ftp://host/v1/diagnostics\n"},
		{"missing host", "dashboard:\n  source:\n    endpoint: \"http:///v1/diagnostics\"\n"},
		{"zero timeout", "dashboard:\n  source:\n    timeout: 0s\n"},
		{"malformed yaml", "dashboard: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestRestartRequired(t *testing.T) {
	prev := Defaults()
	next := Defaults()
	next.Dashboard.LogLevel = "debug"
	if keys := RestartRequired(prev, next); len(keys) != 0 {
		t.Errorf("log level only: got %v, want none", keys)
	}

	next.Dashboard.HTTPPort = 9000
	next.Dashboard.Source.Endpoint = "http://other:8080/v1/diagnostics"
	keys := RestartRequired(prev, next)
	want := []string{"dashboard.http_port", "dashboard.source.endpoint"}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d]: got %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, "dashboard:\n  log_level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	started := make(chan struct{})
	go func() {
		close(started)
		_ = Watch(ctx, p, func(c *Config) {
			select {
			case got <- c:
			default:
			}
		})
	}()
	<-started

	// Keep rewriting until the watcher has registered and reports the change.
	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-got:
			// A reload can observe the file mid-write; wait for the final content.
			if c.Dashboard.Level() == slog.LevelDebug {
				return
			}
		case <-tick.C:
			if err := os.WriteFile(p, []byte("dashboard:\n  log_level: debug\n"), 0o600); err != nil {
				t.Fatalf("rewrite config: %v", err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}
