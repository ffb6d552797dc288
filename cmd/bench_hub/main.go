package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"

	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bench-hub/bench-hub/cmd/bench_hub/server"
	"github.com/bench-hub/bench-hub/internal/config"
	"github.com/bench-hub/bench-hub/internal/corpus"
	"github.com/bench-hub/bench-hub/internal/engine"
	"github.com/bench-hub/bench-hub/internal/logging"
	"github.com/bench-hub/bench-hub/internal/providers"
	"github.com/bench-hub/bench-hub/internal/storage"
	"github.com/bench-hub/bench-hub/internal/tracing"
	"github.com/bench-hub/bench-hub/internal/validation"
)

var (
	// Version can be set during the compilation
	Version string = "0.0.1"
	// Build is set during the compilation
	Build string
	// BuildDate is set during the compilation
	BuildDate string
)

func main() {
	logger, logShutdown, err := logging.NewLogger()
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(nil, err, "Failed to create service logger", logging.FallbackLogger())
	}

	serviceConfig, err := config.LoadConfig(logger, Version, Build, BuildDate)
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(nil, err, "Failed to create service config", logger)
	}

	// set up the validator
	validate, err := validation.NewValidator()
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(serviceConfig, err, "Failed to create validator", logger)
	}

	// set up the results store
	store, err := storage.NewStorage(serviceConfig.Database, logger)
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(serviceConfig, err, "Failed to create storage", logger)
	}

	// set up the provider configs
	providerConfigs, err := config.LoadProviderConfigs(logger)
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(serviceConfig, err, "Failed to create provider configs", logger)
	}

	// tracing is optional and disabled by default
	traceShutdown, err := tracing.Setup(context.Background(), logger, serviceConfig.Tracing, "bench-hub", Version)
	if err != nil {
		startUpFailed(serviceConfig, err, "Failed to set up tracing", logger)
	}

	// set up the engine: registry, broadcaster, executor and queue worker
	benchCorpus := corpus.NewCorpus()
	registry, err := engine.NewRegistry(logger, store)
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(serviceConfig, err, "Failed to create run registry", logger)
	}
	broadcaster := engine.NewBroadcaster(logger)
	executor := engine.NewExecutor(registry, broadcaster, benchCorpus, providers.NewFactory(logger), providerConfigs, serviceConfig.Engine, logger)
	queue := engine.NewManager(registry, executor, broadcaster, benchCorpus, providerConfigs, logger)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	queue.Start(workerCtx)

	srv, err := server.NewServer(logger, serviceConfig, providerConfigs, store, validate, queue, registry, broadcaster, benchCorpus)
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(serviceConfig, err, "Failed to create server", logger)
	}

	// log the start up details
	logger.Info("Server starting",
		"server_port", srv.GetPort(),
		"version", serviceConfig.Service.Version,
		"build", serviceConfig.Service.Build,
		"build_date", serviceConfig.Service.BuildDate,
		"benchmarks", len(benchCorpus.List()),
		"providers", len(providerConfigs),
		"local", serviceConfig.Service.LocalMode,
	)

	// Start server in a goroutine
	go func() {
		if err := srv.Start(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				logger.Info("Server closed gracefully")
				return
			}
			// we do this as no point trying to continue
			startUpFailed(serviceConfig, err, "Server failed to start", logger)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// stop the queue worker; the current run sees a cancelled context
	stopWorker()
	select {
	case <-queue.Done():
	case <-time.After(10 * time.Second):
		logger.Error("Queue worker did not stop in time")
	}

	// shutdown the storage
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err.Error())
		}
	}

	// Create a context with timeout for graceful shutdown
	waitForShutdown := 30 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), waitForShutdown)
	defer cancel()

	if err := traceShutdown(ctx); err != nil {
		logger.Error("Failed to shut down tracing", "error", err.Error())
	}

	// shutdown the logger
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err.Error(), "timeout", waitForShutdown)
		_ = logShutdown() // ignore the error
	} else {
		logger.Info("Server shutdown gracefully")
		_ = logShutdown() // ignore the error
	}
}

func startUpFailed(conf *config.Config, err error, msg string, logger *slog.Logger) {
	termErr := server.SetTerminationMessage(server.GetTerminationFile(conf, logger), fmt.Sprintf("%s: %s", msg, err.Error()), logger)
	if termErr != nil {
		logger.Error("Failed to set termination message", "message", msg, "error", termErr.Error())
		log.Println(termErr.Error())
	}
	log.Fatal(err)
}
