package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kcole93/metroflow-api-sub000/internal/app"
	"github.com/kcole93/metroflow-api-sub000/internal/appconf"
	"github.com/kcole93/metroflow-api-sub000/internal/clock"
	"github.com/kcole93/metroflow-api-sub000/internal/feed"
	"github.com/kcole93/metroflow-api-sub000/internal/gtfs"
	"github.com/kcole93/metroflow-api-sub000/internal/logging"
	"github.com/kcole93/metroflow-api-sub000/internal/restapi"
)

// BuildApplication creates the Application with all dependencies. Loading
// the static corpus happens here; failure is fatal to the caller.
func BuildApplication(cfg appconf.Config, gtfsCfg gtfs.Config) (*app.Application, error) {
	logger := logging.NewStructuredLogger(os.Stdout, logLevel(cfg))
	slog.SetDefault(logger)

	manager, err := gtfs.InitManager(gtfsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize static data manager: %w", err)
	}

	fetcher := feed.NewFetcher(feed.TTLConfig{
		Subway: gtfsCfg.SubwayFeedTTL,
		Rail:   gtfsCfg.RailFeedTTL,
		Alerts: gtfsCfg.AlertsFeedTTL,
	})

	return &app.Application{
		Config:      cfg,
		GtfsConfig:  gtfsCfg,
		Logger:      logger,
		GtfsManager: manager,
		Fetcher:     fetcher,
		Clock:       clock.SystemClock{},
	}, nil
}

func logLevel(cfg appconf.Config) slog.Level {
	if cfg.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// CreateServer configures the HTTP server with routes and the middleware
// chain: request ID, access logging, security headers, then the mux.
func CreateServer(coreApp *app.Application, api *restapi.RestAPI, cfg appconf.Config) *http.Server {
	mux := http.NewServeMux()
	api.SetRoutes(mux)

	secureHandler := api.WithSecurityHeaders(mux)
	logMiddleware := restapi.NewRequestLoggingMiddleware(coreApp.Logger)
	handler := restapi.RequestIDMiddleware(logMiddleware(secureHandler))

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}
}

// Run manages the server lifecycle with graceful shutdown on SIGINT and
// SIGTERM.
func Run(srv *http.Server, coreApp *app.Application, api *restapi.RestAPI) error {
	coreApp.Logger.Info("starting server", "addr", srv.Addr, "env", coreApp.Config.Env.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		coreApp.Logger.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		coreApp.Logger.Error("server forced to shutdown", "error", err)
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	api.Shutdown()
	if coreApp.GtfsManager != nil {
		coreApp.GtfsManager.Shutdown()
	}

	coreApp.Logger.Info("server exited")
	return nil
}
