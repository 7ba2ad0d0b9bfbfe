// Package backends selects the telemetry and reasoning implementations from
// configuration.
package backends

import (
	"time"

	"github.com/opscart/k8s-scaling-advisor/pkg/apperrors"
	"github.com/opscart/k8s-scaling-advisor/pkg/config"
	"github.com/opscart/k8s-scaling-advisor/pkg/reasoning"
	"github.com/opscart/k8s-scaling-advisor/pkg/reasoning/byo"
	"github.com/opscart/k8s-scaling-advisor/pkg/reasoning/ollama"
	"github.com/opscart/k8s-scaling-advisor/pkg/secrets"
	"github.com/opscart/k8s-scaling-advisor/pkg/telemetry"
	"github.com/opscart/k8s-scaling-advisor/pkg/telemetry/dynatrace"
	"github.com/opscart/k8s-scaling-advisor/pkg/telemetry/prometheus"
	"github.com/opscart/k8s-scaling-advisor/pkg/telemetry/stub"
	"go.uber.org/zap"
)

// NewTelemetryGateway creates the gateway named by cfg.Backend. Live
// backends are wrapped in a query cache when cfg.CacheTTL is positive.
func NewTelemetryGateway(cfg config.TelemetryConfig, sec *secrets.Context, logger *zap.Logger) (telemetry.Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("telemetry_backend", cfg.Backend))

	switch cfg.Backend {
	case config.TelemetryDynatrace:
		g, err := dynatrace.New(cfg.DynatraceURL, cfg.Timeout, sec, logger)
		if err != nil {
			return nil, err
		}
		return withCache(g, cfg.CacheTTL), nil
	case config.TelemetryPrometheus:
		g, err := prometheus.New(cfg.PrometheusURL, cfg.Timeout, sec, logger)
		if err != nil {
			return nil, err
		}
		return withCache(g, cfg.CacheTTL), nil
	case config.TelemetryStub:
		return stub.New(), nil
	default:
		return nil, apperrors.NewConfigurationError("telemetry", "unknown backend %q", cfg.Backend)
	}
}

func withCache(g telemetry.Gateway, ttl time.Duration) telemetry.Gateway {
	if ttl <= 0 {
		return g
	}
	return telemetry.NewCachedGateway(g, ttl)
}

// NewReasoningClient creates the client named by cfg.Backend
func NewReasoningClient(cfg config.ReasoningConfig, sec *secrets.Context, logger *zap.Logger) (reasoning.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("reasoning_backend", cfg.Backend))

	switch cfg.Backend {
	case config.ReasoningOllama:
		c, err := ollama.New(cfg.OllamaURL, cfg.OllamaModel, cfg.Timeout, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ReasoningBYO:
		c, err := byo.New(cfg.BYOEndpoint, cfg.BYOModel, cfg.Timeout, sec, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, apperrors.NewConfigurationError("reasoning", "unknown backend %q", cfg.Backend)
	}
}
