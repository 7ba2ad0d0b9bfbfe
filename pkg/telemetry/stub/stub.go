// Package stub is a deterministic telemetry gateway for tests and demos.
// Behaviour is driven by substrings of the application name or entity ID.
package stub

import (
	"context"
	"fmt"
	"strings"

	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/telemetry"
)

// Gateway implements telemetry.Gateway without network access
type Gateway struct{}

// New creates a stub gateway
func New() *Gateway {
	return &Gateway{}
}

func (g *Gateway) Name() string {
	return "stub"
}

// CheckDataAvailability: "new" in the name yields no history, "partial"
// yields three days, anything else a full week.
func (g *Gateway) CheckDataAvailability(ctx context.Context, app, namespace string) (models.DataAvailability, *models.AvailabilityDetails, error) {
	name := strings.ToLower(app)
	switch {
	case strings.Contains(name, "new"):
		return models.NoHistoricalData, nil, nil
	case strings.Contains(name, "partial"):
		return models.PartialData, &models.AvailabilityDetails{
			DaysAvailable: 3,
			Completeness:  65,
			EntityID:      "mock-" + app,
		}, nil
	default:
		return models.FullHistoricalData, &models.AvailabilityDetails{
			DaysAvailable: 7,
			Completeness:  95,
			EntityID:      "mock-" + app,
		}, nil
	}
}

// DiscoverEntity misses for names containing "notfound"
func (g *Gateway) DiscoverEntity(ctx context.Context, app, namespace string) (string, error) {
	if strings.Contains(strings.ToLower(app), "notfound") {
		return "", nil
	}
	return fmt.Sprintf("mock-entity-%s-%s", app, namespace), nil
}

func (g *Gateway) GetHistoricalMetrics(ctx context.Context, entityID string, days int) (telemetry.HistoricalMetrics, error) {
	if days <= 0 {
		days = telemetry.DefaultLookbackDays
	}
	point := func(avg, max, min float64) telemetry.MetricStats {
		return telemetry.MetricStats{Avg: avg, Max: max, Min: min, DataPoints: days * 24, DaysAvailable: days}
	}
	return telemetry.HistoricalMetrics{
		telemetry.MetricCPUTime:      point(45.5, 78.2, 12.1),
		telemetry.MetricMemoryUsage:  point(67.3, 89.1, 45.2),
		telemetry.MetricRequestRate:  point(125.7, 245.3, 45.1),
		telemetry.MetricResponseTime: point(82.4, 156.8, 45.2),
	}, nil
}

// GetTrendAnalysis reports peaks for entities containing "peak" and growth
// for entities containing "growth".
func (g *Gateway) GetTrendAnalysis(ctx context.Context, entityID string, days int) (*telemetry.TrendAnalysis, error) {
	id := strings.ToLower(entityID)
	switch {
	case strings.Contains(id, "peak"):
		return &telemetry.TrendAnalysis{
			TrafficPattern:   "peak_hours",
			CPUTrend:         "spiky",
			MemoryTrend:      "stable",
			RequestRateTrend: "increasing",
		}, nil
	case strings.Contains(id, "growth"):
		return &telemetry.TrendAnalysis{
			TrafficPattern:   "gradual_growth",
			CPUTrend:         "increasing",
			MemoryTrend:      "increasing",
			RequestRateTrend: "moderate_growth",
		}, nil
	default:
		return &telemetry.TrendAnalysis{
			TrafficPattern:   "steady",
			CPUTrend:         "stable",
			MemoryTrend:      "stable",
			RequestRateTrend: "stable",
		}, nil
	}
}

func (g *Gateway) GetPerformanceMetrics(ctx context.Context, entityID string) (*telemetry.PerformanceMetrics, error) {
	return &telemetry.PerformanceMetrics{
		CPUUsageMillicoresP90:    telemetry.Float(800),
		MemoryUsageMBP90:         telemetry.Float(1024),
		PodCPURequestsMillicores: telemetry.Float(500),
		PodMemoryRequestsMB:      telemetry.Float(512),
	}, nil
}

func (g *Gateway) GetHealthEvents(ctx context.Context, entityID string) (*telemetry.HealthEvents, error) {
	return &telemetry.HealthEvents{
		ActiveProblemCount: 1,
		ActiveProblems:     []telemetry.Problem{{Title: "High CPU usage", Severity: "WARNING"}},
		RecentOOMKills:     2,
	}, nil
}

func (g *Gateway) GetServiceLevelObjectives(ctx context.Context, entityID string) ([]telemetry.SLO, error) {
	return []telemetry.SLO{{
		Name:                 "Response Time SLO",
		Status:               "SUCCESS",
		Value:                telemetry.Float(99.5),
		ErrorBudgetRemaining: telemetry.Float(85.2),
	}}, nil
}
