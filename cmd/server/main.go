package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"waste-ninja-go/internal/api"
	"waste-ninja-go/internal/config"
	"waste-ninja-go/internal/logging"
	"waste-ninja-go/internal/services"
	"waste-ninja-go/internal/services/health"
)

// @title UCD Waste Ninja API
// @version 1.0.0
// @description Sorts trash descriptions into paper, plastic or food bins and boxes blue objects in camera frames.
// @BasePath /
func main() {
	healthcheck := flag.Bool("healthcheck", false, "probe the local gRPC health service and exit")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	logging.Setup(cfg)

	if *healthcheck {
		os.Exit(probe(cfg))
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("instance_id", cfg.InstanceID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Bool("camera", cfg.CameraSource != "").
		Bool("whip_enabled", cfg.WHIPEnabled).
		Bool("nats_enabled", cfg.NatsEnabled).
		Msg("Starting Waste Ninja")

	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create services")
	}

	server, err := api.NewServer(cfg, container)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container.Start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("Server failed")
		}
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}
	log.Info().Msg("Server shutdown complete")
}

// probe is used as a container HEALTHCHECK. It exits non-zero when any core
// reports NOT_SERVING or the gRPC port is closed.
func probe(cfg *config.Config) int {
	if cfg.GRPCPort <= 0 {
		fmt.Fprintln(os.Stderr, "GRPC_PORT is not set")
		return 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.GRPCPort)
	for _, name := range []string{health.ServiceClassifier, health.ServiceAnnotator} {
		if err := health.Probe(ctx, addr, name); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			return 1
		}
	}
	return 0
}
