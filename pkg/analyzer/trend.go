package analyzer

import "github.com/opscart/k8s-scaling-advisor/pkg/telemetry"

// Peak-to-average ratios used to label traffic shape
const (
	CPUSpikeRatio      = 1.5
	CPUGrowthRatio     = 1.2
	RequestSpikeRatio  = 2.0
	RequestGrowthRatio = 1.3
)

// Traffic patterns and per-metric trend labels
const (
	TrafficSteady        = "steady"
	TrafficPeakHours     = "peak_hours"
	TrafficGradualGrowth = "gradual_growth"
	TrafficHighPeakHours = "high_peak_hours"

	TrendStable         = "stable"
	TrendSpiky          = "spiky"
	TrendIncreasing     = "increasing"
	TrendModerateGrowth = "moderate_growth"
)

// AnalyzeTrend infers traffic shape from aggregated history. Request-rate
// spikes take precedence over CPU shape.
func AnalyzeTrend(metrics telemetry.HistoricalMetrics) *telemetry.TrendAnalysis {
	analysis := &telemetry.TrendAnalysis{
		TrafficPattern:   TrafficSteady,
		CPUTrend:         TrendStable,
		MemoryTrend:      TrendStable,
		RequestRateTrend: TrendStable,
	}

	if cpu, ok := metrics[telemetry.MetricCPUTime]; ok && cpu.DataPoints > 0 {
		switch {
		case cpu.Max > cpu.Avg*CPUSpikeRatio:
			analysis.TrafficPattern = TrafficPeakHours
			analysis.CPUTrend = TrendSpiky
		case cpu.Max > cpu.Avg*CPUGrowthRatio:
			analysis.TrafficPattern = TrafficGradualGrowth
			analysis.CPUTrend = TrendIncreasing
		}
	}

	if req, ok := metrics[telemetry.MetricRequestRate]; ok && req.DataPoints > 0 {
		switch {
		case req.Max > req.Avg*RequestSpikeRatio:
			analysis.TrafficPattern = TrafficHighPeakHours
			analysis.RequestRateTrend = TrendIncreasing
		case req.Max > req.Avg*RequestGrowthRatio:
			analysis.RequestRateTrend = TrendModerateGrowth
		}
	}

	return analysis
}

// MemoryTrend labels raw memory samples as increasing when they grow by more
// than 3% per month, stable otherwise.
func MemoryTrend(samples []MetricSample) string {
	growth, err := CalculateGrowthTrend(samples)
	if err != nil || !growth.IsGrowing {
		return TrendStable
	}
	return TrendIncreasing
}
