package engine

import (
	"context"
	"fmt"

	"github.com/opscart/k8s-scaling-advisor/pkg/cluster"
	"github.com/opscart/k8s-scaling-advisor/pkg/fallback"
	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/telemetry"
	"go.uber.org/zap"
)

// Reported when no cluster client is configured
const clusterUnavailableNote = "Cluster inspection unavailable"

const (
	queryResultNoData       = "no_data_found"
	limitedDataStrategy     = "limited_data_with_safety_margin"
	requestRateTrendUnknown = "unknown"
)

// StaticRationale explains a static suggestion in terms of the data behind it
func StaticRationale(req *models.SuggestionRequest, backend string) string {
	switch req.Availability {
	case models.FullHistoricalData:
		return fmt.Sprintf("Based on %d-day %s metrics analysis and inferred traffic patterns, "+
			"optimized for current usage patterns with organization cost policies.", telemetry.DefaultLookbackDays, backend)
	case models.PartialData:
		days := 0
		if req.AvailabilityInfo != nil {
			days = req.AvailabilityInfo.DaysAvailable
		}
		return fmt.Sprintf("Based on %d days of available metrics with safety margins applied. "+
			"Recommend re-evaluation after more data is collected.", days)
	default:
		appType, env := req.Inferred.ApplicationType, req.Inferred.Environment
		if appType == "" {
			appType = "service"
		}
		if env == "" {
			env = "unknown"
		}
		return fmt.Sprintf("No historical %s data available. Using conservative %s best practices for %s environment. "+
			"Monitor for 1-2 weeks then re-run for optimization.", backend, appType, env)
	}
}

// currentState snapshots the deployment. Failures degrade to an empty state.
func (e *Engine) currentState(ctx context.Context, req *models.SuggestionRequest) (models.CurrentState, *cluster.Snapshot) {
	if e.inspector == nil {
		return models.CurrentState{Note: clusterUnavailableNote}, nil
	}
	snap, err := e.inspector.Snapshot(ctx, req.App.Namespace, req.DeploymentName())
	if err != nil {
		e.logger.Warn("cluster snapshot failed",
			zap.String("app", req.App.Name),
			zap.String("namespace", req.App.Namespace),
			zap.Error(err))
		return models.CurrentState{Note: clusterUnavailableNote}, nil
	}
	return snap.State, snap
}

// metricsAnalysis summarizes the telemetry that shaped the suggestion.
// strategy is empty when the suggestion came from the reasoning backend.
func (e *Engine) metricsAnalysis(
	ctx context.Context,
	req *models.SuggestionRequest,
	snap *cluster.Snapshot,
	strategy fallback.Strategy,
) models.MetricsAnalysis {
	analysis := models.MetricsAnalysis{
		RequestRateTrend: requestRateTrendUnknown,
		PodRestartRate:   snap.RestartRate(),
		QueryResult:      queryResultNoData,
	}

	switch {
	case strategy == "":
	case req.Availability == models.PartialData:
		analysis.FallbackStrategy = limitedDataStrategy
	case req.Availability == models.NoHistoricalData:
		analysis.FallbackStrategy = req.Inferred.InferenceSource.TrafficPattern
	default:
		analysis.FallbackStrategy = string(strategy)
	}

	info := req.AvailabilityInfo
	if req.Availability == models.NoHistoricalData || info == nil || info.EntityID == "" {
		return analysis
	}

	days := info.DaysAvailable
	if days < 1 || days > telemetry.DefaultLookbackDays {
		days = telemetry.DefaultLookbackDays
	}
	analysis.QueryUsed = fmt.Sprintf("%s historical metrics for entity %s over %dd", e.gateway.Name(), info.EntityID, days)

	historical, err := e.gateway.GetHistoricalMetrics(ctx, info.EntityID, days)
	if err != nil {
		e.logger.Warn("historical metrics unavailable for report",
			zap.String("entity_id", info.EntityID),
			zap.Error(err))
	} else {
		if cpu, ok := historical[telemetry.MetricCPUTime]; ok {
			analysis.AvgCPULast7d = telemetry.Float(cpu.Avg)
			analysis.PeakCPULast7d = telemetry.Float(cpu.Max)
		}
		if mem, ok := historical[telemetry.MetricMemoryUsage]; ok {
			analysis.AvgMemoryLast7d = telemetry.Float(mem.Avg)
		}
		if req.Availability == models.PartialData {
			analysis.QueryResult = fmt.Sprintf("partial_data_%d_days", info.DaysAvailable)
		} else {
			analysis.QueryResult = fmt.Sprintf("full_data_%d_days", info.DaysAvailable)
		}
	}

	trend, err := e.gateway.GetTrendAnalysis(ctx, info.EntityID, days)
	if err != nil {
		e.logger.Warn("trend analysis unavailable for report",
			zap.String("entity_id", info.EntityID),
			zap.Error(err))
	} else if trend != nil && trend.RequestRateTrend != "" {
		analysis.RequestRateTrend = trend.RequestRateTrend
	}

	return analysis
}
