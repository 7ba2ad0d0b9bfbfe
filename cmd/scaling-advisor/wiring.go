package main

import (
	"context"
	"fmt"

	"github.com/opscart/k8s-scaling-advisor/pkg/backends"
	"github.com/opscart/k8s-scaling-advisor/pkg/cluster"
	"github.com/opscart/k8s-scaling-advisor/pkg/config"
	"github.com/opscart/k8s-scaling-advisor/pkg/engine"
	"github.com/opscart/k8s-scaling-advisor/pkg/logging"
	"github.com/opscart/k8s-scaling-advisor/pkg/reasoning"
	"github.com/opscart/k8s-scaling-advisor/pkg/secrets"
	"github.com/opscart/k8s-scaling-advisor/pkg/storage"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	l, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}

// buildEngine wires secrets, policy, backends and the optional cluster client
func buildEngine(sec *secrets.Context) (*engine.Engine, error) {
	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}

	gateway, err := backends.NewTelemetryGateway(cfg.Telemetry, sec, logger)
	if err != nil {
		return nil, err
	}

	var reasoner reasoning.Client
	if policy.Features.EnableAIShadowAnalyst {
		reasoner, err = backends.NewReasoningClient(cfg.Reasoning, sec, logger)
		if err != nil {
			return nil, err
		}
	}

	var clients *cluster.Clients
	if !noCluster {
		clients, err = cluster.NewClients(cfg.Kubeconfig)
		if err != nil {
			logger.Warn("Kubernetes API unavailable, continuing without cluster inspection", zap.Error(err))
			clients = nil
		}
	}

	return engine.New(engine.Options{
		Policy:   policy,
		Gateway:  gateway,
		Reasoner: reasoner,
		Cluster:  clients,
		Logger:   logger,
	})
}

func loadSecrets() (*secrets.Context, error) {
	return secrets.Load(cfg.SecretsFile)
}

// openStore connects to the history database
func openStore(ctx context.Context, sec *secrets.Context) (*storage.PostgresStore, error) {
	if !cfg.StorageEnabled {
		return nil, fmt.Errorf("storage is disabled; set storage.enabled or %s_STORAGE_ENABLED=true", config.EnvPrefix)
	}
	dsn, err := storage.WithPassword(cfg.DatabaseURL, sec.Get(secrets.DatabasePassword))
	if err != nil {
		return nil, err
	}
	store, err := storage.NewPostgresStore(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}
