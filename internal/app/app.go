// Package app wires configuration, logging, the hub, and the HTTP surface
// into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	server "broadside/server"
	servernet "broadside/server/internal/net"
	"broadside/server/logging"
	loggingsinks "broadside/server/logging/sinks"
)

type Config struct {
	Addr       string
	WorldPath  string
	ClientDir  string
	LogJSON    string // path for the ndjson sink, empty disables it
	LogVerbose bool
	Logger     *log.Logger
}

// Run starts the server and blocks until ctx is cancelled or the listener
// fails.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	worldCfg := server.DefaultWorldConfig()
	if cfg.WorldPath != "" {
		loaded, err := server.LoadWorldConfig(cfg.WorldPath)
		if err != nil {
			return fmt.Errorf("load world config: %w", err)
		}
		worldCfg = loaded
	}

	logCfg := logging.DefaultConfig()
	if cfg.LogVerbose {
		logCfg.MinimumSeverity = logging.SeverityDebug
	}

	sinks := []logging.NamedSink{
		{Name: "console", Sink: loggingsinks.NewConsoleSink(os.Stdout, logCfg.Console)},
	}
	if cfg.LogJSON != "" {
		file, err := os.OpenFile(cfg.LogJSON, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingsinks.NewJSON(file, logCfg.JSON.FlushInterval)})
		logCfg.EnabledSinks = append(logCfg.EnabledSinks, "json")
	}

	router := logging.NewRouter(logging.ClockFunc(time.Now), logCfg, sinks)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := router.Close(closeCtx); err != nil {
			logger.Printf("failed to close logging router: %v", err)
		}
	}()

	hub := server.NewHub(worldCfg, router)
	stop := make(chan struct{})
	go hub.Run(stop)
	defer close(stop)

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir: cfg.ClientDir,
		Logger:    logger,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	logger.Printf("server listening on %s (%d ships, tick rate %d)", srv.Addr, len(worldCfg.Ships), server.TickRate())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	}
}
