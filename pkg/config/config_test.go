package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MetricsLookbackDays != 7 {
		t.Errorf("Expected default lookback 7 days, got %d", cfg.MetricsLookbackDays)
	}

	if cfg.MetricsDuration != 7*24*time.Hour {
		t.Errorf("Expected duration 168h, got %v", cfg.MetricsDuration)
	}

	if cfg.Telemetry.Backend != TelemetryDynatrace {
		t.Errorf("Expected dynatrace telemetry by default, got %s", cfg.Telemetry.Backend)
	}

	if cfg.Reasoning.Backend != ReasoningOllama {
		t.Errorf("Expected ollama reasoning by default, got %s", cfg.Reasoning.Backend)
	}

	if cfg.Reasoning.OllamaModel != "codellama:13b" {
		t.Errorf("Expected default model codellama:13b, got %s", cfg.Reasoning.OllamaModel)
	}

	if cfg.StorageEnabled {
		t.Error("Storage should be disabled by default")
	}

	if cfg.Telemetry.CacheTTL != 5*time.Minute {
		t.Errorf("Expected 5m telemetry cache TTL, got %v", cfg.Telemetry.CacheTTL)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SCALING_ADVISOR_METRICS_LOOKBACK_DAYS", "14")
	t.Setenv("SCALING_ADVISOR_TELEMETRY_BACKEND", "STUB")
	t.Setenv("SCALING_ADVISOR_REASONING_BACKEND", "byo")
	t.Setenv("SCALING_ADVISOR_REASONING_BYO_ENDPOINT", "https://llm.example.com/v1/chat/completions")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MetricsLookbackDays != 14 {
		t.Errorf("Expected lookback 14 days from env, got %d", cfg.MetricsLookbackDays)
	}

	if cfg.MetricsDuration != 14*24*time.Hour {
		t.Errorf("Expected duration 336h, got %v", cfg.MetricsDuration)
	}

	if cfg.Telemetry.Backend != TelemetryStub {
		t.Errorf("Expected stub telemetry from env, got %s", cfg.Telemetry.Backend)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
telemetry:
  backend: prometheus
  prometheus_url: http://prometheus:9090
reasoning:
  timeout: 5s
output:
  format: yaml
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Telemetry.PrometheusURL != "http://prometheus:9090" {
		t.Errorf("Expected Prometheus URL from file, got %s", cfg.Telemetry.PrometheusURL)
	}

	if cfg.Reasoning.Timeout != 5*time.Second {
		t.Errorf("Expected 5s reasoning timeout, got %v", cfg.Reasoning.Timeout)
	}

	if cfg.OutputFormat != "yaml" {
		t.Errorf("Expected yaml output, got %s", cfg.OutputFormat)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Missing config file should not be an error: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level, got %s", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "dynatrace without url",
			mutate:  func(c *Config) { c.Telemetry.DynatraceURL = "" },
			wantErr: "telemetry.dynatrace_url",
		},
		{
			name:    "unknown telemetry backend",
			mutate:  func(c *Config) { c.Telemetry.Backend = "datadog" },
			wantErr: "unknown telemetry backend",
		},
		{
			name: "byo without endpoint",
			mutate: func(c *Config) {
				c.Reasoning.Backend = ReasoningBYO
				c.Reasoning.BYOEndpoint = ""
			},
			wantErr: "reasoning.byo_endpoint",
		},
		{
			name: "storage without dsn",
			mutate: func(c *Config) {
				c.StorageEnabled = true
				c.DatabaseURL = ""
			},
			wantErr: "storage.database_url",
		},
		{
			name:    "lookback too long",
			mutate:  func(c *Config) { c.MetricsLookbackDays = 60 },
			wantErr: "lookback_days",
		},
		{
			name:    "negative cache ttl",
			mutate:  func(c *Config) { c.Telemetry.CacheTTL = -time.Second },
			wantErr: "cache_ttl",
		},
		{
			name:    "bad output format",
			mutate:  func(c *Config) { c.OutputFormat = "xml" },
			wantErr: "unknown output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatal(err)
			}
			cfg.Telemetry.DynatraceURL = "https://tenant.live.dynatrace.com"
			tt.mutate(cfg)

			err = cfg.Validate()
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
