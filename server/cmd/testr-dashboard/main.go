package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"

	"github.com/testr/testr-dashboard/server/internal/api"
	"github.com/testr/testr-dashboard/server/internal/config"
	"github.com/testr/testr-dashboard/server/internal/fetcher"
	"github.com/testr/testr-dashboard/server/internal/view"
	"github.com/testr/testr-dashboard/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve the UI static files from this directory (e.g. ui/dist); overrides dashboard.ui_dir")
	flag.Parse()

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("testr-dashboard starting", "config", *configPath)

	cfg, watchConfig, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Dashboard.Level())
	if *uiDir != "" {
		cfg.Dashboard.UIDir = *uiDir
	}

	slog.Info("config loaded",
		"http_port", cfg.Dashboard.HTTPPort,
		"log_level", cfg.Dashboard.LogLevel,
		"endpoint", cfg.Dashboard.Source.EffectiveEndpoint(),
		"source_timeout", cfg.Dashboard.Source.Timeout,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if watchConfig {
		go func() {
			prev := cfg
			err := config.Watch(ctx, *configPath, func(next *config.Config) {
				level.Set(next.Dashboard.Level())
				slog.Info("config reloaded", "log_level", next.Dashboard.LogLevel)
				if keys := config.RestartRequired(prev, next); len(keys) > 0 {
					slog.Warn("config changes take effect after restart", "keys", keys)
				}
				prev = next
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	f, err := fetcher.New(cfg.Dashboard.Source)
	if err != nil {
		slog.Error("failed to build diagnostics fetcher", "err", err)
		os.Exit(1)
	}

	// The view fetches once; the API and hub read whatever phase it is in.
	v := view.New()
	go v.Load(ctx, f)

	hub := ws.New(v, cfg.Dashboard.CORSOrigins)
	go hub.Run(ctx)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Dashboard.HTTPPort),
		Handler:           newHandler(cfg.Dashboard, v, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Dashboard.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("testr-dashboard shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}

// loadConfig reads path, falling back to defaults when the file does not
// exist. The bool reports whether the file is there to be watched.
func loadConfig(path string) (*config.Config, bool, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config file not found, using defaults", "path", path)
		return config.Defaults(), false, nil
	}
	return nil, false, err
}

// newHandler assembles the REST API, WebSocket stream and optional UI behind
// CORS and request logging.
func newHandler(cfg config.DashboardConfig, v *view.View, hub http.Handler) http.Handler {
	mux := http.NewServeMux()
	apiHandler := api.New(v)
	mux.Handle("/api/", apiHandler)
	mux.Handle("/metrics", apiHandler)
	mux.Handle("/ws/stream", hub)

	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if cfg.UIDir != "" {
		mux.Handle("/", spaHandler(cfg.UIDir))
		slog.Info("serving UI static files", "dir", cfg.UIDir)
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
	)
	return handlers.CustomLoggingHandler(io.Discard, cors(mux), logRequest)
}

func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		files.ServeHTTP(w, r)
	})
}

// logRequest routes gorilla's access log through slog.
func logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	slog.Debug("http request",
		"method", p.Request.Method,
		"path", p.URL.Path,
		"status", p.StatusCode,
		"bytes", p.Size,
		"remote", p.Request.RemoteAddr,
		"at", p.TimeStamp.UTC().Format(time.RFC3339),
	)
}
