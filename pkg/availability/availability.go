// Package availability classifies how much historical telemetry exists for
// an application.
package availability

import (
	"context"
	"fmt"
	"math"

	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/telemetry"
	"go.uber.org/zap"
)

// Classification thresholds
const (
	FullMinDays            = 5.0
	FullMinCompleteness    = 80.0
	PartialMinDays         = 1.0
	PartialMinCompleteness = 30.0
	MaxDays                = 7.0
	PointsPerDay           = 24
)

// Source is the subset of a gateway needed to measure availability
type Source interface {
	DiscoverEntity(ctx context.Context, app, namespace string) (string, error)
	GetHistoricalMetrics(ctx context.Context, entityID string, days int) (telemetry.HistoricalMetrics, error)
}

// Classify applies the thresholds in priority order
func Classify(daysAvailable, completeness float64) models.DataAvailability {
	switch {
	case daysAvailable >= FullMinDays && completeness >= FullMinCompleteness:
		return models.FullHistoricalData
	case daysAvailable >= PartialMinDays && completeness >= PartialMinCompleteness:
		return models.PartialData
	default:
		return models.NoHistoricalData
	}
}

// Measure computes completeness over the requested metric set and the days
// covered by the sparsest available metric. ok is false when no metric has data.
func Measure(metrics telemetry.HistoricalMetrics, requested []string) (daysAvailable, completeness float64, ok bool) {
	if len(requested) == 0 {
		return 0, 0, false
	}

	available := 0
	minPoints := math.MaxInt
	for _, name := range requested {
		stats, found := metrics[name]
		if !found || stats.DataPoints < 1 {
			continue
		}
		available++
		if stats.DataPoints < minPoints {
			minPoints = stats.DataPoints
		}
	}
	if available == 0 {
		return 0, 0, false
	}

	completeness = float64(available) / float64(len(requested)) * 100
	daysAvailable = math.Min(MaxDays, math.Max(1, float64(minPoints)/PointsPerDay))
	return daysAvailable, completeness, true
}

// Evaluate discovers the entity and measures its history. Backend failures
// are returned to the caller.
func Evaluate(ctx context.Context, src Source, app, namespace string) (models.DataAvailability, *models.AvailabilityDetails, error) {
	entityID, err := src.DiscoverEntity(ctx, app, namespace)
	if err != nil {
		return models.NoHistoricalData, nil, fmt.Errorf("entity discovery failed: %w", err)
	}
	if entityID == "" {
		return models.NoHistoricalData, nil, nil
	}

	metrics, err := src.GetHistoricalMetrics(ctx, entityID, telemetry.DefaultLookbackDays)
	if err != nil {
		return models.NoHistoricalData, nil, fmt.Errorf("historical metrics failed: %w", err)
	}

	days, completeness, ok := Measure(metrics, telemetry.MetricSet)
	if !ok {
		return models.NoHistoricalData, nil, nil
	}

	class := Classify(days, completeness)
	if class == models.NoHistoricalData {
		return class, nil, nil
	}
	return class, &models.AvailabilityDetails{
		DaysAvailable: int(days),
		Completeness:  completeness,
		EntityID:      entityID,
	}, nil
}

// Classifier degrades every gateway failure to NoHistoricalData
type Classifier struct {
	gateway telemetry.Gateway
	logger  *zap.Logger
}

// NewClassifier creates a classifier over gateway
func NewClassifier(gateway telemetry.Gateway, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{gateway: gateway, logger: logger}
}

// Classify never fails. Details are nil when availability is NoHistoricalData.
func (c *Classifier) Classify(ctx context.Context, app, namespace string) (models.DataAvailability, *models.AvailabilityDetails) {
	class, details, err := c.gateway.CheckDataAvailability(ctx, app, namespace)
	if err != nil {
		c.logger.Warn("data availability check failed, assuming no history",
			zap.String("app", app),
			zap.String("namespace", namespace),
			zap.String("backend", c.gateway.Name()),
			zap.Error(err))
		return models.NoHistoricalData, nil
	}
	if !class.IsValid() || class == models.NoHistoricalData {
		return models.NoHistoricalData, nil
	}

	c.logger.Debug("data availability classified",
		zap.String("app", app),
		zap.String("availability", string(class)))
	return class, details
}
