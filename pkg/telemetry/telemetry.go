// Package telemetry defines the monitoring backend capability used by the
// suggestion engine and the tool catalog.
package telemetry

import (
	"context"

	"github.com/opscart/k8s-scaling-advisor/pkg/models"
)

// Logical metric keys shared by every backend
const (
	MetricCPUTime      = "cpu_time"
	MetricMemoryUsage  = "memory_usage"
	MetricRequestRate  = "request_rate"
	MetricResponseTime = "response_time"
)

// MetricSet is the fixed set queried for availability and trend analysis
var MetricSet = []string{MetricCPUTime, MetricMemoryUsage, MetricRequestRate, MetricResponseTime}

// DefaultLookbackDays is the historical window used when callers pass 0
const DefaultLookbackDays = 7

// Gateway queries a monitoring backend. DiscoverEntity returns "" with a nil
// error when nothing matches.
type Gateway interface {
	DiscoverEntity(ctx context.Context, app, namespace string) (string, error)
	CheckDataAvailability(ctx context.Context, app, namespace string) (models.DataAvailability, *models.AvailabilityDetails, error)
	GetHistoricalMetrics(ctx context.Context, entityID string, days int) (HistoricalMetrics, error)
	GetTrendAnalysis(ctx context.Context, entityID string, days int) (*TrendAnalysis, error)
	GetPerformanceMetrics(ctx context.Context, entityID string) (*PerformanceMetrics, error)
	GetHealthEvents(ctx context.Context, entityID string) (*HealthEvents, error)
	GetServiceLevelObjectives(ctx context.Context, entityID string) ([]SLO, error)
	Name() string
}

// MetricStats summarizes one metric over the lookback window
type MetricStats struct {
	Avg           float64 `json:"avg"`
	Max           float64 `json:"max"`
	Min           float64 `json:"min"`
	DataPoints    int     `json:"data_points"`
	DaysAvailable int     `json:"days_available"`
}

// HistoricalMetrics is keyed by logical metric name. Metrics without data are absent.
type HistoricalMetrics map[string]MetricStats

// TrendAnalysis describes traffic shape over the lookback window
type TrendAnalysis struct {
	TrafficPattern   string `json:"traffic_pattern"`
	CPUTrend         string `json:"cpu_trend"`
	MemoryTrend      string `json:"memory_trend"`
	RequestRateTrend string `json:"request_rate_trend"`
}

// PerformanceMetrics are current p90 usage and requests. Nil means unknown.
type PerformanceMetrics struct {
	CPUUsageMillicoresP90    *float64 `json:"cpu_usage_millicores_p90"`
	MemoryUsageMBP90         *float64 `json:"memory_usage_mb_p90"`
	PodCPURequestsMillicores *float64 `json:"pod_cpu_requests_millicores"`
	PodMemoryRequestsMB      *float64 `json:"pod_memory_requests_mb"`
}

// Problem is an open problem affecting the entity
type Problem struct {
	Title    string `json:"title"`
	Severity string `json:"severity"`
}

// HealthEvents are open problems plus recent OOM kills
type HealthEvents struct {
	ActiveProblemCount int       `json:"active_problem_count"`
	ActiveProblems     []Problem `json:"active_problems"`
	RecentOOMKills     int       `json:"recent_oom_kills"`
}

// SLO is a concise service level objective status
type SLO struct {
	Name                 string   `json:"name"`
	Status               string   `json:"status"`
	Value                *float64 `json:"value"`
	ErrorBudgetRemaining *float64 `json:"errorBudgetRemaining"`
}

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }
