// Command pagecapd serves the capture engine over HTTP.
//
// Usage:
//
//	pagecapd -config pagecapd.yaml
//	pagecapd -addr :8472
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/pagecap/service"
)

func main() {
	configPath := flag.String("config", "", "path to pagecapd.yaml config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *addr); err != nil {
		logger.Error("pagecapd: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, addr string) error {
	cfg := &service.Config{}
	if configPath != "" {
		loaded, err := service.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.Logger = logger
	if addr != "" {
		cfg.Addr = addr
	}

	svc, err := service.New(*cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Start(ctx); err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	svc.RegisterHTTP(r)

	srv := &http.Server{Addr: listenAddr(cfg), Handler: r}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pagecapd: listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("pagecapd: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func listenAddr(cfg *service.Config) string {
	if cfg.Addr != "" {
		return cfg.Addr
	}
	return ":8472"
}
