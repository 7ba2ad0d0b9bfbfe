package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/opscart/k8s-scaling-advisor/pkg/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve suggestions over HTTP (POST /suggestion, GET /health, GET /metrics)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				cfg.ListenAddress = address
			}
			return runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&address, "listen", "", "Listen address (default from config)")
	return cmd
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sec, err := loadSecrets()
	if err != nil {
		return err
	}
	eng, err := buildEngine(sec)
	if err != nil {
		return err
	}

	opts := server.Options{
		Address:        cfg.ListenAddress,
		RequestTimeout: cfg.RequestTimeout,
		ClusterID:      cfg.ClusterID,
		Logger:         logger,
	}
	if cfg.StorageEnabled {
		store, err := openStore(ctx, sec)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Recorder = store
	}

	logger.Info("starting scaling advisor",
		zap.String("telemetry", cfg.Telemetry.Backend),
		zap.String("reasoning", cfg.Reasoning.Backend),
		zap.Bool("ai_enabled", eng.AIEnabled()),
		zap.Bool("storage", cfg.StorageEnabled))
	return server.New(eng, opts).Run(ctx)
}
