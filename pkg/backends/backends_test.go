package backends

import (
	"testing"
	"time"

	"github.com/opscart/k8s-scaling-advisor/pkg/apperrors"
	"github.com/opscart/k8s-scaling-advisor/pkg/config"
	"github.com/opscart/k8s-scaling-advisor/pkg/secrets"
	"github.com/opscart/k8s-scaling-advisor/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTelemetryGateway(t *testing.T) {
	sec := secrets.FromMap(map[string]string{secrets.DynatraceAPIToken: "dt0c01.token"})

	tests := []struct {
		name     string
		cfg      config.TelemetryConfig
		sec      *secrets.Context
		wantName string
		wantErr  bool
	}{
		{"stub", config.TelemetryConfig{Backend: config.TelemetryStub}, nil, "stub", false},
		{"dynatrace", config.TelemetryConfig{Backend: config.TelemetryDynatrace, DynatraceURL: "https://abc.live.dynatrace.com", Timeout: time.Second}, sec, "dynatrace", false},
		{"dynatrace without token", config.TelemetryConfig{Backend: config.TelemetryDynatrace, DynatraceURL: "https://abc.live.dynatrace.com"}, secrets.FromMap(nil), "", true},
		{"dynatrace cached", config.TelemetryConfig{Backend: config.TelemetryDynatrace, DynatraceURL: "https://abc.live.dynatrace.com", Timeout: time.Second, CacheTTL: time.Minute}, sec, "dynatrace", false},
		{"prometheus", config.TelemetryConfig{Backend: config.TelemetryPrometheus, PrometheusURL: "http://prometheus:9090"}, nil, "prometheus", false},
		{"unknown", config.TelemetryConfig{Backend: "datadog"}, nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewTelemetryGateway(tt.cfg, tt.sec, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsConfiguration(err))
				assert.Nil(t, g)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, g.Name())
			_, cached := g.(*telemetry.CachedGateway)
			assert.Equal(t, tt.cfg.CacheTTL > 0, cached)
		})
	}
}

func TestNewReasoningClient(t *testing.T) {
	c, err := NewReasoningClient(config.ReasoningConfig{Backend: config.ReasoningOllama, OllamaURL: "http://localhost:11434"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ollama", c.Name())

	sec := secrets.FromMap(map[string]string{secrets.BYOAPIKey: "sk-test"})
	c, err = NewReasoningClient(config.ReasoningConfig{Backend: config.ReasoningBYO, BYOEndpoint: "https://llm.internal/v1/chat/completions"}, sec, nil)
	require.NoError(t, err)
	assert.Equal(t, "byo", c.Name())

	_, err = NewReasoningClient(config.ReasoningConfig{Backend: config.ReasoningBYO, BYOEndpoint: "https://llm.internal"}, secrets.FromMap(nil), nil)
	assert.True(t, apperrors.IsConfiguration(err))

	_, err = NewReasoningClient(config.ReasoningConfig{Backend: "gpt"}, nil, nil)
	assert.True(t, apperrors.IsConfiguration(err))
}
