package main

import (
	"chatsphere/auth"
	"chatsphere/infrastructure/api"
	grpcserver "chatsphere/infrastructure/grpc/server"
	"chatsphere/infrastructure/storage"
	"chatsphere/infrastructure/ws"
	"chatsphere/internal"
	"chatsphere/observability"
	"chatsphere/runtime"
	"chatsphere/runtime/workers"
	"chatsphere/services"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/time/rate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and owns the shutdown order, so deferred
// cleanup (BadgerDB) always runs before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	messageRepository := storage.NewMessageRepository(db, log, config.LimitMessages)
	blobStore, err := storage.NewBlobStore(config.BlobDirectory, config.BlobBaseURL, config.MaxUploadSize, log)
	if err != nil {
		return fmt.Errorf("blob store failed: %w", err)
	}

	// 3. Supervision & Orchestration
	metrics := observability.NewMetrics()
	sup := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, sup, messageRepository, metrics, runtime.Options{
		StoreTimeout:          config.StoreTimeout,
		EdgeTriggeredPresence: config.EdgeTriggeredPresence,
	})
	healthServer := grpcserver.NewHealthServer(log, orchestrator.Running, config.HeartbeatInterval)
	orchestrator.RegisterWorkers(
		workers.NewHeartbeatWorker(log, metrics, orchestrator.Stats, config.HeartbeatInterval),
		healthServer,
	)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("orchestrator failed to start: %w", err)
	}
	healthServer.Refresh()

	// 5. Transports
	verifier := auth.NewVerifier(config.JWTSecret)
	if !verifier.Enabled() {
		log.Warn("JWT_SECRET is not set: history and upload endpoints will refuse every request")
	}
	chatService := services.NewChatService(log, orchestrator, blobStore)
	wsServer := ws.NewServer(log, chatService, verifier, metrics, ws.Options{
		AllowedOrigins: config.Origins(),
		MaxMessageSize: config.MaxMessageSize,
		BufferSize:     config.ConnectionBufferSize,
		RateLimit:      rate.Limit(config.RateLimitPerSecond),
		RateBurst:      config.RateLimitBurst,
		PingInterval:   config.PingInterval,
		PongTimeout:    config.PongTimeout,
		WriteTimeout:   config.WriteTimeout,
	})
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := api.NewServer(address,
		api.NewRouter(log, chatService, verifier, metrics, wsServer, config.MaxUploadSize))

	healthAddress := fmt.Sprintf("%s:%d", config.Host, config.GRPCHealthPort)
	listener, err := net.Listen("tcp", healthAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", healthAddress, err)
	}

	// Use an error channel to capture Serve() issues
	errChan := make(chan error, 2)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	go func() {
		if err := healthServer.Serve(listener); err != nil {
			errChan <- fmt.Errorf("gRPC health server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err = <-errChan:
		log.Error("Server failed, shutting down", "error", err)
	}

	// 7. Final Cleanup: stop accepting, withdraw presence, then stop workers
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("HTTP server shutdown incomplete", "error", shutdownErr)
	}
	if shutdownErr := wsServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("Websocket connections not fully drained", "error", shutdownErr)
	}
	healthServer.Stop()
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return err
}
