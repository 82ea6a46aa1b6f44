// Package server boots the application and runs the HTTP server together
// with its background workers until the context is cancelled.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/config"
	"github.com/pharmacare/pharmacare-api/pkg/database"
	pkggrpc "github.com/pharmacare/pharmacare-api/pkg/grpc"
	"github.com/pharmacare/pharmacare-api/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

// Start boots the app and serves until ctx is done, then drains the HTTP
// server, stops gRPC, waits for workers and closes the backends.
func Start(ctx context.Context) error {
	a, err := Boot(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.Close(closeCtx)
	}()

	workCtx, stopWork := context.WithCancel(context.Background())
	defer stopWork()

	go a.Alerts.Run(workCtx)
	go a.Limiter.Sweep(workCtx)
	workers := a.Queue.StartWorkers(workCtx, config.QueueWorkers())
	a.Scheduler.Start(workCtx)

	// The first refresh runs at boot so statuses are current before the
	// first tick.
	go func() {
		if _, err := a.Services.Stock.ReconcileAll(workCtx, services.TriggerSchedule); err != nil {
			logger.Error("boot: initial reconcile failed", "error", err)
		}
	}()

	grpcSrv, err := pkggrpc.Start(config.GRPCPort(), func(ctx context.Context) error {
		if !a.mongo {
			return nil
		}
		return database.Ping(ctx)
	})
	if err != nil {
		logger.Warn("grpc: health service disabled", "error", err)
	}

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           a.Router().Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "addr", srv.Addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			stopWork()
			pkggrpc.Stop(grpcSrv)
			return fmt.Errorf("http: %w", err)
		}
	}

	logger.Info("shutting down", "timeout", shutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http: shutdown", "error", err)
	}
	pkggrpc.Stop(grpcSrv)

	stopWork()
	workers.Wait()
	a.Scheduler.Wait()
	logger.Info("shutdown complete")
	return nil
}
