package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Telemetry backends
const (
	TelemetryDynatrace  = "dynatrace"
	TelemetryPrometheus = "prometheus"
	TelemetryStub       = "stub"
)

// Reasoning backends
const (
	ReasoningOllama = "ollama"
	ReasoningBYO    = "byo"
)

// EnvPrefix is prepended to every environment override, e.g. SCALING_ADVISOR_TELEMETRY_BACKEND
const EnvPrefix = "SCALING_ADVISOR"

// Config holds application configuration
type Config struct {
	// Logging
	LogLevel  string
	LogFormat string

	Telemetry TelemetryConfig
	Reasoning ReasoningConfig

	// Files
	PolicyFile  string
	SecretsFile string
	Kubeconfig  string

	// Storage
	StorageEnabled bool
	DatabaseURL    string
	ClusterID      string

	// Analysis
	MetricsLookbackDays int
	MetricsDuration     time.Duration

	// Serving
	ListenAddress  string
	RequestTimeout time.Duration

	// Output
	OutputFormat string // text, json, yaml, csv
}

// TelemetryConfig selects and addresses the monitoring backend
type TelemetryConfig struct {
	Backend       string
	DynatraceURL  string
	PrometheusURL string
	Timeout       time.Duration
	CacheTTL      time.Duration // 0 disables caching of live backend queries
}

// ReasoningConfig selects and addresses the reasoning backend
type ReasoningConfig struct {
	Backend     string
	OllamaURL   string
	OllamaModel string
	BYOEndpoint string
	BYOModel    string
	Timeout     time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("telemetry.backend", TelemetryDynatrace)
	v.SetDefault("telemetry.dynatrace_url", "")
	v.SetDefault("telemetry.prometheus_url", "http://localhost:9090")
	v.SetDefault("telemetry.timeout", 15*time.Second)
	v.SetDefault("telemetry.cache_ttl", 5*time.Minute)

	v.SetDefault("reasoning.backend", ReasoningOllama)
	v.SetDefault("reasoning.ollama_url", "http://localhost:11434")
	v.SetDefault("reasoning.ollama_model", "codellama:13b")
	v.SetDefault("reasoning.byo_endpoint", "")
	v.SetDefault("reasoning.byo_model", "")
	v.SetDefault("reasoning.timeout", 30*time.Second)

	v.SetDefault("policy_file", "")
	v.SetDefault("secrets_file", "")
	v.SetDefault("kubeconfig", "")

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.database_url", "host=localhost port=5432 user=advisor password=devpassword dbname=scalingadvisor sslmode=disable")
	v.SetDefault("storage.cluster_id", "default")

	v.SetDefault("metrics.lookback_days", 7)

	v.SetDefault("server.listen_address", ":8080")
	v.SetDefault("server.request_timeout", 60*time.Second)

	v.SetDefault("output.format", "text")
}

// Load reads configuration from defaults, an optional YAML file and
// SCALING_ADVISOR_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	lookback := v.GetInt("metrics.lookback_days")
	cfg := &Config{
		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),
		Telemetry: TelemetryConfig{
			Backend:       strings.ToLower(v.GetString("telemetry.backend")),
			DynatraceURL:  strings.TrimSuffix(v.GetString("telemetry.dynatrace_url"), "/"),
			PrometheusURL: v.GetString("telemetry.prometheus_url"),
			Timeout:       v.GetDuration("telemetry.timeout"),
			CacheTTL:      v.GetDuration("telemetry.cache_ttl"),
		},
		Reasoning: ReasoningConfig{
			Backend:     strings.ToLower(v.GetString("reasoning.backend")),
			OllamaURL:   strings.TrimSuffix(v.GetString("reasoning.ollama_url"), "/"),
			OllamaModel: v.GetString("reasoning.ollama_model"),
			BYOEndpoint: v.GetString("reasoning.byo_endpoint"),
			BYOModel:    v.GetString("reasoning.byo_model"),
			Timeout:     v.GetDuration("reasoning.timeout"),
		},
		PolicyFile:          v.GetString("policy_file"),
		SecretsFile:         v.GetString("secrets_file"),
		Kubeconfig:          v.GetString("kubeconfig"),
		StorageEnabled:      v.GetBool("storage.enabled"),
		DatabaseURL:         v.GetString("storage.database_url"),
		ClusterID:           v.GetString("storage.cluster_id"),
		MetricsLookbackDays: lookback,
		MetricsDuration:     time.Duration(lookback) * 24 * time.Hour,
		ListenAddress:       v.GetString("server.listen_address"),
		RequestTimeout:      v.GetDuration("server.request_timeout"),
		OutputFormat:        v.GetString("output.format"),
	}
	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	var errs []string

	switch c.Telemetry.Backend {
	case TelemetryDynatrace:
		if c.Telemetry.DynatraceURL == "" {
			errs = append(errs, "telemetry.dynatrace_url must be set for the dynatrace backend")
		}
	case TelemetryPrometheus:
		if c.Telemetry.PrometheusURL == "" {
			errs = append(errs, "telemetry.prometheus_url must be set for the prometheus backend")
		}
	case TelemetryStub:
	default:
		errs = append(errs, fmt.Sprintf("unknown telemetry backend %q", c.Telemetry.Backend))
	}

	switch c.Reasoning.Backend {
	case ReasoningOllama:
		if c.Reasoning.OllamaURL == "" {
			errs = append(errs, "reasoning.ollama_url must be set for the ollama backend")
		}
	case ReasoningBYO:
		if c.Reasoning.BYOEndpoint == "" {
			errs = append(errs, "reasoning.byo_endpoint must be set for the byo backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown reasoning backend %q", c.Reasoning.Backend))
	}

	if c.StorageEnabled && c.DatabaseURL == "" {
		errs = append(errs, "storage.database_url must be set when storage is enabled")
	}
	if c.MetricsLookbackDays < 1 || c.MetricsLookbackDays > 30 {
		errs = append(errs, fmt.Sprintf("metrics.lookback_days must be between 1 and 30, got %d", c.MetricsLookbackDays))
	}
	if c.Telemetry.Timeout <= 0 || c.Reasoning.Timeout <= 0 {
		errs = append(errs, "backend timeouts must be positive")
	}
	if c.Telemetry.CacheTTL < 0 {
		errs = append(errs, "telemetry.cache_ttl must not be negative")
	}

	switch c.OutputFormat {
	case "text", "json", "yaml", "csv":
	default:
		errs = append(errs, fmt.Sprintf("unknown output format %q", c.OutputFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
