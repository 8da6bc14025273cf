package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors the config file and calls onChange with the newly loaded
// Config each time it is written or replaced. It runs until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so that
// editors which save via rename keep being observed. If a reload fails the
// error is logged and onChange is not called.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	slog.Info("config: watching for changes", "path", target)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(target)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config",
					"path", target, "err", err)
				continue
			}

			slog.Info("config: reloaded", "path", target)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// RestartRequired returns the yaml keys whose values differ between prev and
// next but only take effect after a restart. The log level is excluded since
// it is applied live.
func RestartRequired(prev, next *Config) []string {
	a, b := prev.Dashboard, next.Dashboard
	var keys []string
	if a.HTTPPort != b.HTTPPort {
		keys = append(keys, "dashboard.http_port")
	}
	if a.UIDir != b.UIDir {
		keys = append(keys, "dashboard.ui_dir")
	}
	if !slices.Equal(a.CORSOrigins, b.CORSOrigins) {
		keys = append(keys, "dashboard.cors_origins")
	}
	if a.Source.EffectiveEndpoint() != b.Source.EffectiveEndpoint() {
		keys = append(keys, "dashboard.source.endpoint")
	}
	if a.Source.Timeout != b.Source.Timeout {
		keys = append(keys, "dashboard.source.timeout")
	}
	if a.Source.TLS != b.Source.TLS {
		keys = append(keys, "dashboard.source.tls")
	}
	return keys
}
