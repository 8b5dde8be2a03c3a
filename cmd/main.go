package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"energy_service/internal/api"
	"energy_service/internal/config"
	"energy_service/internal/core"
	"energy_service/internal/domain/model"
	"energy_service/internal/domain/repository"
	"energy_service/internal/infrastructure/mlclient"
	"energy_service/internal/logging"
	"energy_service/internal/metrics"
)

func main() {
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Artifacts are loaded once and shared read-only by every request.
	artifacts, err := repository.LoadArtifacts(cfg.Artifacts.Dir)
	if err != nil {
		return fmt.Errorf("failed to load artifacts: %w", err)
	}
	logger.Info("artifacts loaded",
		zap.String("dir", cfg.Artifacts.Dir),
		zap.String("model", artifacts.Model.Name),
		zap.Int("features", len(artifacts.Features.Order)))

	mlClient := mlclient.NewHTTPMLClient(cfg.Model.URL, cfg.Model.Timeout)

	var opts []core.PipelineOption
	width, err := core.CheckModel(ctx, mlClient, artifacts)
	var configErr *model.ConfigurationError
	switch {
	case errors.As(err, &configErr):
		return err
	case err != nil && cfg.Model.RequireMetadata:
		return err
	case err != nil:
		logger.Warn("model metadata unavailable, input width not checked", zap.Error(err))
	default:
		opts = append(opts, core.WithInputWidth(width))
	}

	pipeline, err := core.NewPipeline(artifacts, opts...)
	if err != nil {
		return err
	}

	var recorder repository.PredictionRecorder
	if cfg.Recorder.Enabled {
		postgresRepo, err := repository.NewPostgresRepository(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer postgresRepo.Close()
		recorder = repository.NewPostgresPredictionRecorder(postgresRepo.DB)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	predictionService := core.NewPredictionService(
		pipeline,
		mlClient,
		recorder,
		cfg.Recorder.Enabled,
		m,
		logger.Named("prediction"),
	)

	var resolver *core.NeighborhoodResolver
	if cfg.Overpass.URL != "" {
		overpassRepo := repository.NewOverpassRepository(cfg.Overpass.URL, cfg.Overpass.Timeout, cfg.Overpass.RadiusM)
		resolver = core.NewNeighborhoodResolver(overpassRepo, artifacts)
	}

	handler := api.NewHandler(predictionService, resolver, registry, logger.Named("api"))
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
