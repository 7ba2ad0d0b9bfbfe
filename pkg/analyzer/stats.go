package analyzer

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// MetricSample represents a single metric data point
type MetricSample struct {
	Timestamp time.Time
	Value     float64
}

// Summary contains basic statistics over a sample window
type Summary struct {
	Average float64
	Min     float64
	Max     float64
	P90     float64
	Count   int
}

// GrowthTrend describes growth over time
type GrowthTrend struct {
	RatePerMonth float64 // % growth per month
	Confidence   float64 // R² of the fit
	IsGrowing    bool
}

// Summarize computes average, min, max and P90 from samples
func Summarize(samples []MetricSample) (*Summary, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples provided")
	}

	values := make([]float64, len(samples))
	for i, sample := range samples {
		values[i] = sample.Value
	}
	sort.Float64s(values)

	return &Summary{
		Average: calculateAverage(values),
		Min:     values[0],
		Max:     values[len(values)-1],
		P90:     calculatePercentile(values, 90),
		Count:   len(values),
	}, nil
}

// calculatePercentile computes the Nth percentile using linear interpolation
func calculatePercentile(sortedValues []float64, percentile float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	rank := (percentile / 100.0) * float64(len(sortedValues)-1)
	lowerIndex := int(math.Floor(rank))
	upperIndex := int(math.Ceil(rank))
	if lowerIndex == upperIndex {
		return sortedValues[lowerIndex]
	}

	fraction := rank - float64(lowerIndex)
	return sortedValues[lowerIndex] + (sortedValues[upperIndex]-sortedValues[lowerIndex])*fraction
}

func calculateAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// CoefficientOfVariation measures relative variability.
// High CV (>0.5) = spiky, low CV (<0.2) = steady.
func CoefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := calculateAverage(values)
	if mean == 0 {
		return 0
	}

	sumSquaredDiff := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}
	return math.Sqrt(sumSquaredDiff/float64(len(values))) / mean
}

// MinGrowthSamples is two days at hourly resolution
const MinGrowthSamples = 48

// CalculateGrowthTrend fits a line through the samples and reports monthly growth
func CalculateGrowthTrend(samples []MetricSample) (*GrowthTrend, error) {
	if len(samples) < MinGrowthSamples {
		return &GrowthTrend{}, fmt.Errorf("insufficient data for trend analysis (need %d+ samples, got %d)",
			MinGrowthSamples, len(samples))
	}

	start := samples[0].Timestamp
	x := make([]float64, len(samples))
	y := make([]float64, len(samples))
	for i, sample := range samples {
		x[i] = sample.Timestamp.Sub(start).Hours()
		y[i] = sample.Value
	}

	slope, _, r2 := linearRegression(x, y)

	var ratePerMonth float64
	if avg := calculateAverage(y); avg > 0 {
		ratePerMonth = slope * 24 * 30 / avg * 100
	}

	return &GrowthTrend{
		RatePerMonth: ratePerMonth,
		Confidence:   r2,
		IsGrowing:    ratePerMonth > 3.0,
	}, nil
}

// linearRegression returns slope, intercept and R² clamped to [0,1]
func linearRegression(x, y []float64) (slope, intercept, r2 float64) {
	if len(x) == 0 {
		return 0, 0, 0
	}

	meanX := calculateAverage(x)
	meanY := calculateAverage(y)

	numerator, denominator := 0.0, 0.0
	for i := range x {
		numerator += (x[i] - meanX) * (y[i] - meanY)
		denominator += (x[i] - meanX) * (x[i] - meanX)
	}
	if denominator == 0 {
		return 0, meanY, 0
	}

	slope = numerator / denominator
	intercept = meanY - slope*meanX

	ssTotal, ssRes := 0.0, 0.0
	for i := range x {
		predicted := slope*x[i] + intercept
		ssRes += (y[i] - predicted) * (y[i] - predicted)
		ssTotal += (y[i] - meanY) * (y[i] - meanY)
	}
	if ssTotal == 0 {
		return slope, intercept, 0
	}

	r2 = math.Max(0, math.Min(1, 1.0-ssRes/ssTotal))
	return slope, intercept, r2
}

// DetectSeasonalPattern checks whether business hours run hotter than nights
func DetectSeasonalPattern(samples []MetricSample) string {
	if len(samples) < 24 {
		return "insufficient-data"
	}

	hourly := make(map[int][]float64)
	for _, sample := range samples {
		hour := sample.Timestamp.Hour()
		hourly[hour] = append(hourly[hour], sample.Value)
	}

	hourlyMeans := make([]float64, 24)
	for hour := 0; hour < 24; hour++ {
		hourlyMeans[hour] = calculateAverage(hourly[hour])
	}

	businessHoursAvg := (hourlyMeans[9] + hourlyMeans[12] + hourlyMeans[15]) / 3.0
	nightAvg := (hourlyMeans[0] + hourlyMeans[3] + hourlyMeans[23]) / 3.0
	if businessHoursAvg > nightAvg*1.5 {
		return "business-hours"
	}

	if CoefficientOfVariation(hourlyMeans) < 0.15 {
		return "steady"
	}
	return "variable"
}
