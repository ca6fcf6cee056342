package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/html2pdf/pool/internal/config"
	"github.com/html2pdf/pool/internal/pdflog"
	"github.com/html2pdf/pool/internal/poolsingleton"
)

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Run the browser pool as a long-lived service and expose /metrics",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML configuration file")

	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := pdflog.FromLevel(cfg.Log.Level)
	if err := poolsingleton.Configure(*cfg); err != nil {
		return err
	}

	pool := poolsingleton.Get()
	logger.Info().
		Int("min", cfg.Pool.MinConnections).
		Int("max", cfg.Pool.MaxConnections).
		Msg("pre-warming browser pool")
	pool.SetTargetMin(cfg.Pool.MinConnections)
	pool.EnsureMin(context.Background())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(poolsingleton.Metrics().Gatherer(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:    cfg.Metrics.ListenAddress,
		Handler: mux,
	}

	go func() {
		logger.Info().Str("address", cfg.Metrics.ListenAddress).Msg("serving /metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("metrics server shutdown failed")
	}

	poolsingleton.Shutdown()
	logger.Info().Msg("pool stopped")
	return nil
}
