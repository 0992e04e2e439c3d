package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/dasmlab/lektor/pkg/config"
	"github.com/dasmlab/lektor/pkg/library"
	"github.com/dasmlab/lektor/pkg/server"
	"github.com/dasmlab/lektor/pkg/service"
	"github.com/sirupsen/logrus"
)

var (
	// Server configuration flags. Zero values keep the config file setting.
	httpPort = flag.Int("http-port", 0, "HTTP API port (default 5001)")
	grpcPort = flag.Int("grpc-port", 0, "gRPC server port (default 50051)")

	// Configuration sources
	configPath = flag.String("config", "", "Path to optional YAML config file")
	envFile    = flag.String("env-file", ".env", "Path to optional .env file")
	textsDir   = flag.String("texts-dir", "", "Directory holding sample texts (default sample-texts)")

	// Logging configuration
	logLevel = flag.String("log-level", "", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	if err := config.LoadEnvFile(*envFile); err != nil {
		logger.WithError(err).Fatal("Failed to load env file")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		logger.WithError(err).Fatal("Invalid environment configuration")
	}
	applyFlags(cfg)

	// Set log level
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.WithFields(logrus.Fields{
		"http_port": cfg.Server.HTTPPort,
		"grpc_port": cfg.Server.GRPCPort,
		"texts_dir": cfg.Library.Dir,
		"priority":  cfg.Providers.Priority,
		"log_level": level.String(),
	}).Info("Starting Lektor server")

	llmConfig, err := cfg.LLMConfig(logger)
	if err != nil {
		logger.WithError(err).Fatal("Invalid provider configuration")
	}

	lib := library.New(cfg.Library.Dir, logger)
	if err := lib.Load(); err != nil {
		logger.WithError(err).Fatal("Failed to load sample texts")
	}

	// Detect providers and activate the preferred one. Startup continues
	// without a provider; LLM endpoints then answer 503.
	reader := service.NewReaderService(llmConfig, lib, logger)
	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	reader.Init(initCtx)
	initCancel()

	// Create listener
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"port": cfg.Server.GRPCPort,
		}).Fatal("Failed to listen on port")
	}

	// Configure server-side keepalive enforcement to match client settings
	opts := []grpc.ServerOption{
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             15 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     5 * time.Minute,
			MaxConnectionAge:      30 * time.Minute,
			MaxConnectionAgeGrace: 5 * time.Second,
			Time:                  30 * time.Second,
			Timeout:               10 * time.Second,
		}),
	}

	// Create gRPC server
	s := grpc.NewServer(opts...)

	// Register health check service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	server.RegisterReaderServiceServer(s, server.NewGRPCServer(reader, logger))

	// Enable reflection for grpcurl/debugging
	reflection.Register(s)

	// Start periodic cleanup goroutine for finished jobs
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	cleanupInterval := cfg.Jobs.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				reader.Jobs.CleanupOldJobs(cfg.Jobs.MaxAge)
			case <-cleanupCtx.Done():
				return
			}
		}
	}()
	logger.WithFields(logrus.Fields{
		"cleanup_interval": cleanupInterval.String(),
		"max_age":          cfg.Jobs.MaxAge.String(),
	}).Info("Started job cleanup goroutine")

	httpServer := server.NewHTTPServer(reader, logger, cfg.Server.HTTPPort)

	// Start servers in goroutines
	errChan := make(chan error, 2)
	go func() {
		logger.WithFields(logrus.Fields{
			"port": cfg.Server.GRPCPort,
		}).Info("gRPC server listening")
		if err := s.Serve(lis); err != nil {
			errChan <- fmt.Errorf("failed to serve gRPC: %w", err)
		}
	}()
	go func() {
		if err := httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.WithError(err).Fatal("Server error")
	case sig := <-sigChan:
		logger.WithFields(logrus.Fields{
			"signal": sig.String(),
		}).Info("Received signal, shutting down gracefully...")

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Set health status to NOT_SERVING
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

		if err := httpServer.Shutdown(ctx); err != nil {
			logger.WithError(err).Warn("HTTP server shutdown failed")
		}

		// Graceful stop
		stopped := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
			logger.Info("Server stopped gracefully")
		case <-ctx.Done():
			logger.Warn("Graceful shutdown timeout, forcing stop...")
			s.Stop()
		}
	}
}

// applyFlags overrides cfg with flags set on the command line.
func applyFlags(cfg *config.Config) {
	if *httpPort != 0 {
		cfg.Server.HTTPPort = *httpPort
	}
	if *grpcPort != 0 {
		cfg.Server.GRPCPort = *grpcPort
	}
	if *textsDir != "" {
		cfg.Library.Dir = *textsDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
}
