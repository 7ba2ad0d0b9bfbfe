// Package prometheus implements the telemetry gateway on a Prometheus server
// scraping cAdvisor, kube-state-metrics and application request metrics.
// Entity IDs have the form "<namespace>/<deployment>".
package prometheus

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/opscart/k8s-scaling-advisor/pkg/analyzer"
	"github.com/opscart/k8s-scaling-advisor/pkg/apperrors"
	"github.com/opscart/k8s-scaling-advisor/pkg/availability"
	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/secrets"
	"github.com/opscart/k8s-scaling-advisor/pkg/telemetry"
	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	promconfig "github.com/prometheus/common/config"
	"github.com/prometheus/common/model"
	"go.uber.org/zap"
)

const backendName = "prometheus"

// DefaultTimeout applies when the caller passes zero
const DefaultTimeout = 15 * time.Second

// Step is the range query resolution
const Step = time.Hour

const bytesPerMB = 1024 * 1024

// historicalQueries are range queries per logical metric. Arguments are
// namespace then deployment.
var historicalQueries = map[string]string{
	telemetry.MetricCPUTime:      `sum(rate(container_cpu_usage_seconds_total{namespace="%[1]s",pod=~"%[2]s-.*",container!="POD",container!=""}[5m])) * 1000`,
	telemetry.MetricMemoryUsage:  `sum(container_memory_working_set_bytes{namespace="%[1]s",pod=~"%[2]s-.*",container!="POD",container!=""})`,
	telemetry.MetricRequestRate:  `sum(rate(http_requests_total{namespace="%[1]s",pod=~"%[2]s-.*"}[5m]))`,
	telemetry.MetricResponseTime: `histogram_quantile(0.9, sum(rate(http_request_duration_seconds_bucket{namespace="%[1]s",pod=~"%[2]s-.*"}[5m])) by (le)) * 1000`,
}

// Gateway queries one Prometheus server
type Gateway struct {
	api     v1.API
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a gateway. A bearer token is attached when the secrets context
// carries one.
func New(url string, timeout time.Duration, sec *secrets.Context, logger *zap.Logger) (*Gateway, error) {
	if strings.TrimSpace(url) == "" {
		return nil, apperrors.NewConfigurationError(backendName, "telemetry.prometheus_url is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := api.Config{Address: url}
	if token := sec.Get(secrets.PrometheusToken); token != "" {
		cfg.RoundTripper = promconfig.NewAuthorizationCredentialsRoundTripper(
			"Bearer", promconfig.NewInlineSecret(token), api.DefaultRoundTripper)
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, apperrors.NewConfigurationError(backendName, "failed to create Prometheus client: %v", err)
	}

	return &Gateway{api: v1.NewAPI(client), timeout: timeout, logger: logger}, nil
}

func (g *Gateway) Name() string {
	return backendName
}

// EntityID builds the entity ID for a deployment
func EntityID(namespace, deployment string) string {
	return namespace + "/" + deployment
}

func splitEntity(entityID string) (string, string, error) {
	namespace, deployment, ok := strings.Cut(entityID, "/")
	if !ok || namespace == "" || deployment == "" {
		return "", "", fmt.Errorf("invalid entity id %q, want <namespace>/<deployment>", entityID)
	}
	return namespace, deployment, nil
}

// DiscoverEntity checks kube-state-metrics for the deployment
func (g *Gateway) DiscoverEntity(ctx context.Context, app, namespace string) (string, error) {
	query := fmt.Sprintf(`kube_deployment_spec_replicas{namespace="%s",deployment="%s"}`, namespace, app)
	vector, err := g.queryVector(ctx, "entity discovery", query)
	if err != nil {
		return "", err
	}
	if len(vector) == 0 {
		return "", nil
	}
	return EntityID(namespace, app), nil
}

func (g *Gateway) CheckDataAvailability(ctx context.Context, app, namespace string) (models.DataAvailability, *models.AvailabilityDetails, error) {
	return availability.Evaluate(ctx, g, app, namespace)
}

// GetHistoricalMetrics runs one range query per metric at 1h resolution
func (g *Gateway) GetHistoricalMetrics(ctx context.Context, entityID string, days int) (telemetry.HistoricalMetrics, error) {
	namespace, deployment, err := splitEntity(entityID)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = telemetry.DefaultLookbackDays
	}

	end := time.Now()
	r := v1.Range{
		Start: end.Add(-time.Duration(days) * 24 * time.Hour),
		End:   end,
		Step:  Step,
	}

	metrics := make(telemetry.HistoricalMetrics)
	for _, key := range telemetry.MetricSet {
		query := fmt.Sprintf(historicalQueries[key], namespace, deployment)
		samples, err := g.queryRange(ctx, query, r)
		if err != nil {
			return nil, err
		}
		summary, err := analyzer.Summarize(samples)
		if err != nil {
			continue
		}
		metrics[key] = telemetry.MetricStats{
			Avg:           summary.Average,
			Max:           summary.Max,
			Min:           summary.Min,
			DataPoints:    summary.Count,
			DaysAvailable: days,
		}
	}
	return metrics, nil
}

func (g *Gateway) GetTrendAnalysis(ctx context.Context, entityID string, days int) (*telemetry.TrendAnalysis, error) {
	metrics, err := g.GetHistoricalMetrics(ctx, entityID, days)
	if err != nil {
		return nil, err
	}
	return analyzer.AnalyzeTrend(metrics), nil
}

// GetPerformanceMetrics reads p90 usage over the last hour and per-pod requests
func (g *Gateway) GetPerformanceMetrics(ctx context.Context, entityID string) (*telemetry.PerformanceMetrics, error) {
	namespace, deployment, err := splitEntity(entityID)
	if err != nil {
		return nil, err
	}
	selector := fmt.Sprintf(`namespace="%s",pod=~"%s-.*",container!="POD",container!=""`, namespace, deployment)

	perf := &telemetry.PerformanceMetrics{}
	queries := []struct {
		query string
		dest  **float64
		scale float64
	}{
		{fmt.Sprintf(`quantile_over_time(0.9, avg(sum by (pod) (rate(container_cpu_usage_seconds_total{%s}[5m])))[1h:5m]) * 1000`, selector), &perf.CPUUsageMillicoresP90, 1},
		{fmt.Sprintf(`quantile_over_time(0.9, avg(sum by (pod) (container_memory_working_set_bytes{%s}))[1h:5m])`, selector), &perf.MemoryUsageMBP90, bytesPerMB},
		{fmt.Sprintf(`avg(sum by (pod) (kube_pod_container_resource_requests{%s,resource="cpu"})) * 1000`, selector), &perf.PodCPURequestsMillicores, 1},
		{fmt.Sprintf(`avg(sum by (pod) (kube_pod_container_resource_requests{%s,resource="memory"}))`, selector), &perf.PodMemoryRequestsMB, bytesPerMB},
	}

	for _, q := range queries {
		vector, err := g.queryVector(ctx, "performance metrics", q.query)
		if err != nil {
			return nil, err
		}
		if len(vector) > 0 && !math.IsNaN(float64(vector[0].Value)) {
			*q.dest = telemetry.Float(float64(vector[0].Value) / q.scale)
		}
	}
	return perf, nil
}

// GetHealthEvents maps firing alerts on the deployment to problems and counts
// containers last terminated by the OOM killer.
func (g *Gateway) GetHealthEvents(ctx context.Context, entityID string) (*telemetry.HealthEvents, error) {
	namespace, deployment, err := splitEntity(entityID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	alerts, err := g.api.Alerts(ctx)
	if err != nil {
		return nil, apperrors.NewTransientBackendError(backendName, "alerts", err)
	}

	health := &telemetry.HealthEvents{ActiveProblems: []telemetry.Problem{}}
	for _, alert := range alerts.Alerts {
		if alert.State != v1.AlertStateFiring || !alertMatches(alert.Labels, namespace, deployment) {
			continue
		}
		health.ActiveProblems = append(health.ActiveProblems, telemetry.Problem{
			Title:    string(alert.Labels[model.AlertNameLabel]),
			Severity: string(alert.Labels["severity"]),
		})
	}
	health.ActiveProblemCount = len(health.ActiveProblems)

	oomQuery := fmt.Sprintf(
		`sum(max_over_time(kube_pod_container_status_last_terminated_reason{namespace="%s",pod=~"%s-.*",reason="OOMKilled"}[7d]))`,
		namespace, deployment)
	vector, err := g.queryVector(ctx, "oom events", oomQuery)
	if err != nil {
		return nil, err
	}
	if len(vector) > 0 {
		health.RecentOOMKills = int(vector[0].Value)
	}
	return health, nil
}

func alertMatches(labels model.LabelSet, namespace, deployment string) bool {
	if string(labels["namespace"]) != namespace {
		return false
	}
	if string(labels["deployment"]) == deployment {
		return true
	}
	return strings.HasPrefix(string(labels["pod"]), deployment+"-")
}

// GetServiceLevelObjectives returns an empty list: Prometheus has no SLO API
// and recording-rule conventions vary between installations.
func (g *Gateway) GetServiceLevelObjectives(ctx context.Context, entityID string) ([]telemetry.SLO, error) {
	if _, _, err := splitEntity(entityID); err != nil {
		return nil, err
	}
	return []telemetry.SLO{}, nil
}

func (g *Gateway) queryVector(ctx context.Context, operation, query string) (model.Vector, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, warnings, err := g.api.Query(ctx, query, time.Now())
	if err != nil {
		return nil, apperrors.NewTransientBackendError(backendName, operation, err)
	}
	if len(warnings) > 0 {
		g.logger.Debug("prometheus warnings", zap.Strings("warnings", warnings), zap.String("query", query))
	}

	vector, ok := result.(model.Vector)
	if !ok {
		return nil, apperrors.NewTransientBackendError(backendName, operation,
			fmt.Errorf("unexpected result type: %T", result))
	}
	return vector, nil
}

func (g *Gateway) queryRange(ctx context.Context, query string, r v1.Range) ([]analyzer.MetricSample, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, warnings, err := g.api.QueryRange(ctx, query, r)
	if err != nil {
		return nil, apperrors.NewTransientBackendError(backendName, "historical metrics", err)
	}
	if len(warnings) > 0 {
		g.logger.Debug("prometheus warnings", zap.Strings("warnings", warnings), zap.String("query", query))
	}

	samples, err := parseMatrix(result)
	if err != nil {
		return nil, apperrors.NewTransientBackendError(backendName, "historical metrics", err)
	}
	return samples, nil
}

// parseMatrix flattens every series of a range result into samples
func parseMatrix(result model.Value) ([]analyzer.MetricSample, error) {
	matrix, ok := result.(model.Matrix)
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", result)
	}

	var samples []analyzer.MetricSample
	for _, series := range matrix {
		for _, value := range series.Values {
			if math.IsNaN(float64(value.Value)) {
				continue
			}
			samples = append(samples, analyzer.MetricSample{
				Timestamp: value.Timestamp.Time(),
				Value:     float64(value.Value),
			})
		}
	}
	return samples, nil
}
