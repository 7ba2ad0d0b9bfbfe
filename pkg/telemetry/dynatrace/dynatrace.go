// Package dynatrace implements the telemetry gateway against the Dynatrace
// Environment API v2.
package dynatrace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/opscart/k8s-scaling-advisor/pkg/analyzer"
	"github.com/opscart/k8s-scaling-advisor/pkg/apperrors"
	"github.com/opscart/k8s-scaling-advisor/pkg/availability"
	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/secrets"
	"github.com/opscart/k8s-scaling-advisor/pkg/telemetry"
	"go.uber.org/zap"
)

const backendName = "dynatrace"

// DefaultTimeout applies when the caller passes zero
const DefaultTimeout = 15 * time.Second

// historicalSelectors maps Dynatrace metric IDs to logical metric keys
var historicalSelectors = []struct {
	id  string
	key string
}{
	{"builtin:service.cpu.time", telemetry.MetricCPUTime},
	{"builtin:service.memory.usage", telemetry.MetricMemoryUsage},
	{"builtin:service.requestCount.rate", telemetry.MetricRequestRate},
	{"builtin:service.response.time", telemetry.MetricResponseTime},
}

// Container metrics queried for current performance
const (
	metricCPUUsageP90    = "builtin:container.cpu.usage.millicores:percentile(90)"
	metricMemoryP90      = "builtin:container.memory.workingSet.bytes:percentile(90)"
	metricCPURequests    = "builtin:container.cpu.requests"
	metricMemoryRequests = "builtin:container.memory.requests"

	oomKillSelector = "eventType(KUBERNETES_EVENT),kubernetes.event.reason(OOMKill)"
	bytesPerMB      = 1024 * 1024
)

// Gateway talks to one Dynatrace environment
type Gateway struct {
	client *resty.Client
	logger *zap.Logger
}

// New creates a gateway. The API token comes from the secrets context.
func New(baseURL string, timeout time.Duration, sec *secrets.Context, logger *zap.Logger) (*Gateway, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, apperrors.NewConfigurationError(backendName, "telemetry.dynatrace_url is required")
	}
	token, err := sec.Require(backendName, secrets.DynatraceAPIToken)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetAuthScheme("Api-Token").
		SetAuthToken(token).
		SetHeader("Accept", "application/json")

	return &Gateway{client: client, logger: logger}, nil
}

func (g *Gateway) Name() string {
	return backendName
}

// Wire shapes

type entitiesResponse struct {
	Entities []struct {
		EntityID    string `json:"entityId"`
		DisplayName string `json:"displayName"`
	} `json:"entities"`
}

type metricSeries struct {
	Values []*float64 `json:"values"`
}

type metricsResponse struct {
	Result []struct {
		MetricID string         `json:"metricId"`
		Data     []metricSeries `json:"data"`
	} `json:"result"`
}

type problemsResponse struct {
	Problems []struct {
		Title         string `json:"title"`
		SeverityLevel string `json:"severityLevel"`
	} `json:"problems"`
}

type eventsResponse struct {
	TotalCount int `json:"totalCount"`
}

type sloResponse struct {
	SLOs []struct {
		Name                           string   `json:"name"`
		Status                         string   `json:"status"`
		EvaluatedPercentage            *float64 `json:"evaluatedPercentage"`
		ErrorBudgetRemainingPercentage *float64 `json:"errorBudgetRemainingPercentage"`
	} `json:"slos"`
}

// get issues a GET and decodes the JSON body into result
func (g *Gateway) get(ctx context.Context, operation, path string, params map[string]string, result interface{}) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		Get(path)
	if err != nil {
		return apperrors.NewTransientBackendError(backendName, operation, err)
	}
	if resp.IsError() {
		return apperrors.NewTransientBackendError(backendName, operation,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), truncate(resp.String(), 200)))
	}
	return nil
}

// DiscoverSelectors returns the entity selector strategies in the order they are tried
func DiscoverSelectors(app, namespace string) []string {
	return []string{
		fmt.Sprintf(`type(SERVICE),entityName("%s")`, app),
		fmt.Sprintf(`type(SERVICE),tag("app:%s")`, app),
		fmt.Sprintf(`type(SERVICE),tag("k8s.namespace.name:%s"),entityName.contains("%s")`, namespace, app),
		fmt.Sprintf(`type(SERVICE),tag("k8s.deployment.name:%s")`, app),
	}
}

// DiscoverEntity tries each selector strategy and returns the first match.
// A failing strategy is skipped; the error is returned only if all fail.
func (g *Gateway) DiscoverEntity(ctx context.Context, app, namespace string) (string, error) {
	var lastErr error
	failures := 0
	selectors := DiscoverSelectors(app, namespace)

	for _, selector := range selectors {
		var out entitiesResponse
		err := g.get(ctx, "entity discovery", "/api/v2/entities", map[string]string{
			"entitySelector": selector,
			"fields":         "displayName,tags,properties",
		}, &out)
		if err != nil {
			failures++
			lastErr = err
			g.logger.Debug("entity selector failed", zap.String("selector", selector), zap.Error(err))
			continue
		}
		if len(out.Entities) > 0 && out.Entities[0].EntityID != "" {
			g.logger.Debug("entity discovered",
				zap.String("app", app),
				zap.String("entity_id", out.Entities[0].EntityID),
				zap.String("selector", selector))
			return out.Entities[0].EntityID, nil
		}
	}

	if failures == len(selectors) {
		return "", lastErr
	}
	return "", nil
}

func (g *Gateway) CheckDataAvailability(ctx context.Context, app, namespace string) (models.DataAvailability, *models.AvailabilityDetails, error) {
	return availability.Evaluate(ctx, g, app, namespace)
}

// GetHistoricalMetrics queries the service metric set at 1h resolution.
// Null data points are skipped; metrics with no data are omitted.
func (g *Gateway) GetHistoricalMetrics(ctx context.Context, entityID string, days int) (telemetry.HistoricalMetrics, error) {
	if days <= 0 {
		days = telemetry.DefaultLookbackDays
	}

	ids := make([]string, len(historicalSelectors))
	keys := make(map[string]string, len(historicalSelectors))
	for i, s := range historicalSelectors {
		ids[i] = s.id
		keys[s.id] = s.key
	}

	var out metricsResponse
	err := g.get(ctx, "historical metrics", "/api/v2/metrics/query", map[string]string{
		"metricSelector": strings.Join(ids, ","),
		"entitySelector": fmt.Sprintf("type(SERVICE),entityId(%s)", entityID),
		"resolution":     "1h",
		"from":           fmt.Sprintf("now-%dd", days),
	}, &out)
	if err != nil {
		return nil, err
	}

	metrics := make(telemetry.HistoricalMetrics)
	for _, result := range out.Result {
		key, ok := keys[result.MetricID]
		if !ok || len(result.Data) == 0 {
			continue
		}
		samples := make([]analyzer.MetricSample, 0, len(result.Data[0].Values))
		for _, v := range result.Data[0].Values {
			if v != nil {
				samples = append(samples, analyzer.MetricSample{Value: *v})
			}
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

func processGroupSelector(entityID string) string {
	return fmt.Sprintf("type(PROCESS_GROUP_INSTANCE),tag(%s)", entityID)
}

// GetPerformanceMetrics reads p90 usage and requests in one batch query
func (g *Gateway) GetPerformanceMetrics(ctx context.Context, entityID string) (*telemetry.PerformanceMetrics, error) {
	var out metricsResponse
	err := g.get(ctx, "performance metrics", "/api/v2/metrics/query", map[string]string{
		"metricSelector": strings.Join([]string{metricCPUUsageP90, metricMemoryP90, metricCPURequests, metricMemoryRequests}, ","),
		"entitySelector": processGroupSelector(entityID),
		"resolution":     "1h",
	}, &out)
	if err != nil {
		return nil, err
	}

	first := make(map[string]*float64)
	for _, result := range out.Result {
		if len(result.Data) > 0 && len(result.Data[0].Values) > 0 {
			first[result.MetricID] = result.Data[0].Values[0]
		}
	}

	return &telemetry.PerformanceMetrics{
		CPUUsageMillicoresP90:    first[metricCPUUsageP90],
		MemoryUsageMBP90:         toMB(first[metricMemoryP90]),
		PodCPURequestsMillicores: first[metricCPURequests],
		PodMemoryRequestsMB:      toMB(first[metricMemoryRequests]),
	}, nil
}

func toMB(bytes *float64) *float64 {
	if bytes == nil || *bytes == 0 {
		return nil
	}
	return telemetry.Float(*bytes / bytesPerMB)
}

// GetHealthEvents returns open problems and OOM kills from the last week
func (g *Gateway) GetHealthEvents(ctx context.Context, entityID string) (*telemetry.HealthEvents, error) {
	selector := processGroupSelector(entityID)

	var problems problemsResponse
	if err := g.get(ctx, "problems", "/api/v2/problems", map[string]string{
		"entitySelector": selector,
		"status":         "OPEN",
	}, &problems); err != nil {
		return nil, err
	}

	var events eventsResponse
	if err := g.get(ctx, "oom events", "/api/v2/events", map[string]string{
		"eventSelector":  oomKillSelector,
		"entitySelector": selector,
		"from":           "now-7d",
	}, &events); err != nil {
		return nil, err
	}

	health := &telemetry.HealthEvents{
		ActiveProblems: make([]telemetry.Problem, 0, len(problems.Problems)),
		RecentOOMKills: events.TotalCount,
	}
	for _, p := range problems.Problems {
		health.ActiveProblems = append(health.ActiveProblems, telemetry.Problem{Title: p.Title, Severity: p.SeverityLevel})
	}
	health.ActiveProblemCount = len(health.ActiveProblems)
	return health, nil
}

func (g *Gateway) GetServiceLevelObjectives(ctx context.Context, entityID string) ([]telemetry.SLO, error) {
	var out sloResponse
	if err := g.get(ctx, "slos", "/api/v2/slo", map[string]string{
		"entitySelector": processGroupSelector(entityID),
		"timeFrame":      "now-1h",
	}, &out); err != nil {
		return nil, err
	}

	slos := make([]telemetry.SLO, 0, len(out.SLOs))
	for _, s := range out.SLOs {
		slos = append(slos, telemetry.SLO{
			Name:                 s.Name,
			Status:               s.Status,
			Value:                s.EvaluatedPercentage,
			ErrorBudgetRemaining: s.ErrorBudgetRemainingPercentage,
		})
	}
	return slos, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
