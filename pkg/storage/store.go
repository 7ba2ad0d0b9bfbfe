package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/opscart/k8s-scaling-advisor/pkg/models"
)

// ErrNotFound is returned when a lookup matches no stored suggestion
var ErrNotFound = errors.New("suggestion not found")

// Store defines the interface for persistent storage
type Store interface {
	SaveSuggestion(ctx context.Context, rec *models.SuggestionRecord) error
	GetSuggestion(ctx context.Context, id string) (*models.SuggestionRecord, error)
	ListSuggestions(ctx context.Context, namespace string, limit int) ([]*models.SuggestionRecord, error)

	// History
	GetApplicationHistory(ctx context.Context, namespace, application string, limit int) (*models.ApplicationTrend, error)
	GetHistoryStats(ctx context.Context, namespace string, days int) (*models.HistoryStats, error)

	Ping(ctx context.Context) error
	Close() error
}

// NewRecord captures a finished report for persistence
func NewRecord(clusterID string, report *models.SuggestionReport) *models.SuggestionRecord {
	return &models.SuggestionRecord{
		ID:               uuid.New().String(),
		ClusterID:        clusterID,
		Application:      report.Application.Name,
		Namespace:        report.Application.Namespace,
		Environment:      report.InferredContext.Environment,
		ApplicationType:  report.InferredContext.ApplicationType,
		DataAvailability: report.DataAvailability,
		Source:           report.Source,
		Suggestion:       report.Suggestion,
		CreatedAt:        time.Now().UTC(),
	}
}

// Summarize aggregates records into history stats
func Summarize(namespace string, days int, records []*models.SuggestionRecord) *models.HistoryStats {
	stats := &models.HistoryStats{
		Namespace:      namespace,
		PeriodDays:     days,
		ByAvailability: make(map[models.DataAvailability]int),
	}
	apps := make(map[string]struct{})
	for _, rec := range records {
		stats.TotalSuggestions++
		switch rec.Source {
		case models.SourceLLMValidated:
			stats.LLMValidated++
		default:
			stats.Static++
		}
		stats.ByAvailability[rec.DataAvailability]++
		apps[rec.Application] = struct{}{}
	}
	stats.UniqueApplications = len(apps)
	if stats.TotalSuggestions > 0 {
		stats.AIAcceptanceRate = float64(stats.LLMValidated) / float64(stats.TotalSuggestions) * 100
	}
	return stats
}

// BuildTrend orders records oldest first and extracts the replica series
func BuildTrend(namespace, application string, newestFirst []*models.SuggestionRecord) *models.ApplicationTrend {
	trend := &models.ApplicationTrend{
		Namespace:   namespace,
		Application: application,
		Sources:     make(map[models.SuggestionSource]int),
	}
	for i := len(newestFirst) - 1; i >= 0; i-- {
		rec := newestFirst[i]
		trend.Records = append(trend.Records, rec)
		trend.MinReplicas = append(trend.MinReplicas, rec.Suggestion.HPA.MinReplicas)
		trend.MaxReplicas = append(trend.MaxReplicas, rec.Suggestion.HPA.MaxReplicas)
		trend.Sources[rec.Source]++
	}
	return trend
}
