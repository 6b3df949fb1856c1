package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"post-it/auth"
	"post-it/infrastructure/api"
	"post-it/infrastructure/grpc/health"
	"post-it/infrastructure/socket"
	"post-it/internal"
	"post-it/repositories"
	"post-it/runtime"
	"post-it/runtime/workers"
	"post-it/services"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Realtime server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component, serves until a signal arrives, then shuts down in order:
// listeners first, then live sessions, then the workers they rely on.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, inspectMapper)
	}

	messageRepository, err := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = messageRepository.Close() }()

	// 3. Presence & Supervision
	// Workers outlive the signal context: closing sessions still needs the lifecycle worker.
	registry := runtime.NewPresenceRegistry()
	defer registry.Close()
	dispatcher := runtime.NewDispatcher(logger, registry, config.DispatchTimeout)
	lifecycle := workers.NewLifecycleWorker(logger, registry, config.LifecycleBufferSize)

	workersCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(lifecycle, workers.NewPresenceReporterWorker(logger, registry, config.ReportInterval))
	supervised := make(chan struct{})
	go func() {
		defer close(supervised)
		sup.Run(workersCtx)
	}()

	// 4. Services
	issuer := auth.NewIssuer(config.JWTSecret, config.JWTIssuer)
	authenticator := auth.NewJWTAuthenticator(issuer)
	sessionService := services.NewSessionService(logger, authenticator, lifecycle, config.WriteTimeout)
	messageService := services.NewDirectMessageService(logger, messageRepository, dispatcher, config.MaxBodyLength)
	notificationService := services.NewNotificationService(logger, messageRepository, dispatcher)

	// 5. Transport
	socketServer := socket.NewServer(logger, sessionService, messageService, socket.Options{
		AllowedOrigins:    config.Origins(),
		SessionBufferSize: config.SessionBufferSize,
		IdleTimeout:       config.IdleTimeout,
		WriteTimeout:      config.WriteTimeout,
		ReadLimit:         config.MaxFrameBytes,
	})
	ingestion := api.NewAPI(logger, authenticator, notificationService, messageService, registry, config.MaxFrameBytes)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           ingestion.Router(socketServer),
		ReadHeaderTimeout: config.WriteTimeout,
	}

	opsListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", config.Host, config.OpsPort))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on ops port %d: %w", config.OpsPort, err)
	}
	healthServer := health.NewServer(logger)

	errChan := make(chan error, 2)
	go func() {
		if err := healthServer.Serve(opsListener); err != nil {
			errChan <- fmt.Errorf("gRPC health server error: %w", err)
		}
	}()
	go func() {
		logger.Info("Starting realtime server", "address", address, "origins", config.Origins(), "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	healthServer.SetServing(true)

	// 6. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 7. Final Cleanup (Graceful Shutdown)
	logger.Info("Shutting down gracefully...")
	healthServer.SetServing(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", "error", err)
	}
	if err := socketServer.Close(shutdownCtx); err != nil {
		logger.Warn("Sessions not all closed", "error", err)
	}
	stopWorkers()
	<-supervised
	healthServer.Stop()
	logger.Info("Program stopped cleanly")

	return code, runErr
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

func inspectMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	entry := repositories.DescribeEntry(key, val)
	row.Type = entry.Kind
	row.Detail = entry.Detail
	return row
}
