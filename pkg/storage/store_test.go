package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(app string, source models.SuggestionSource, class models.DataAvailability, minReplicas, maxReplicas int) *models.SuggestionRecord {
	return &models.SuggestionRecord{
		ClusterID:        "test",
		Application:      app,
		Namespace:        "shop",
		DataAvailability: class,
		Source:           source,
		Suggestion: models.ScalingSuggestion{HPA: models.HPA{
			MinReplicas: minReplicas,
			MaxReplicas: maxReplicas,
		}},
	}
}

func TestNewRecord(t *testing.T) {
	report := &models.SuggestionReport{
		Application:      models.ApplicationRef{Name: "cart", Namespace: "shop"},
		Source:           models.SourceStatic,
		DataAvailability: models.PartialData,
		InferredContext:  models.InferredContext{Environment: "staging", ApplicationType: "api_service"},
		Suggestion:       models.ScalingSuggestion{HPA: models.HPA{MinReplicas: 2, MaxReplicas: 5}},
	}

	rec := NewRecord("east-1", report)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "east-1", rec.ClusterID)
	assert.Equal(t, "cart", rec.Application)
	assert.Equal(t, "shop", rec.Namespace)
	assert.Equal(t, "staging", rec.Environment)
	assert.Equal(t, "api_service", rec.ApplicationType)
	assert.Equal(t, models.PartialData, rec.DataAvailability)
	assert.Equal(t, 5, rec.Suggestion.HPA.MaxReplicas)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestSummarize(t *testing.T) {
	stats := Summarize("shop", 30, []*models.SuggestionRecord{
		record("cart", models.SourceLLMValidated, models.FullHistoricalData, 2, 6),
		record("cart", models.SourceStatic, models.PartialData, 2, 6),
		record("search", models.SourceStatic, models.NoHistoricalData, 1, 3),
		record("orders", models.SourceLLMValidated, models.FullHistoricalData, 3, 9),
	})

	assert.Equal(t, "shop", stats.Namespace)
	assert.Equal(t, 30, stats.PeriodDays)
	assert.Equal(t, 4, stats.TotalSuggestions)
	assert.Equal(t, 2, stats.LLMValidated)
	assert.Equal(t, 2, stats.Static)
	assert.Equal(t, 3, stats.UniqueApplications)
	assert.Equal(t, 2, stats.ByAvailability[models.FullHistoricalData])
	assert.Equal(t, 50.0, stats.AIAcceptanceRate)
}

func TestSummarize_Empty(t *testing.T) {
	stats := Summarize("shop", 7, nil)
	assert.Zero(t, stats.TotalSuggestions)
	assert.Zero(t, stats.AIAcceptanceRate)
	assert.NotNil(t, stats.ByAvailability)
}

func TestBuildTrend_OldestFirst(t *testing.T) {
	newestFirst := []*models.SuggestionRecord{
		record("cart", models.SourceLLMValidated, models.FullHistoricalData, 3, 10),
		record("cart", models.SourceStatic, models.PartialData, 2, 8),
		record("cart", models.SourceStatic, models.NoHistoricalData, 2, 6),
	}

	trend := BuildTrend("shop", "cart", newestFirst)

	assert.Equal(t, []int{2, 2, 3}, trend.MinReplicas)
	assert.Equal(t, []int{6, 8, 10}, trend.MaxReplicas)
	assert.Equal(t, 2, trend.Sources[models.SourceStatic])
	assert.Equal(t, 1, trend.Sources[models.SourceLLMValidated])
	assert.Same(t, newestFirst[2], trend.Records[0])
}

func TestWithPassword(t *testing.T) {
	tests := []struct {
		name     string
		dsn      string
		password string
		want     string
	}{
		{"no password", "host=db user=advisor", "", "host=db user=advisor"},
		{"key value", "host=db user=advisor", "s3cret", "host=db user=advisor password='s3cret'"},
		{"key value escaped", "host=db user=advisor", `it's`, `host=db user=advisor password='it\'s'`},
		{"key value already set", "host=db password=x", "s3cret", "host=db password=x"},
		{"url", "postgres://advisor@db:5432/sa?sslmode=disable", "s3cret", "postgres://advisor:s3cret@db:5432/sa?sslmode=disable"},
		{"url already set", "postgres://advisor:x@db/sa", "s3cret", "postgres://advisor:x@db/sa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WithPassword(tt.dsn, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := WithPassword("postgres://db/sa", "s3cret")
	assert.Error(t, err)
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()

	namespace := "it-" + time.Now().Format("150405.000000")
	rec := record("cart", models.SourceStatic, models.PartialData, 2, 5)
	rec.Namespace = namespace
	rec.Suggestion.Karpenter = models.Karpenter{Architecture: "arm64", CapacityType: "spot"}
	require.NoError(t, store.SaveSuggestion(ctx, rec))

	got, err := store.GetSuggestion(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Suggestion, got.Suggestion)

	_, err = store.GetSuggestion(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := store.ListSuggestions(ctx, namespace, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	stats, err := store.GetHistoryStats(ctx, namespace, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSuggestions)

	trend, err := store.GetApplicationHistory(ctx, namespace, "cart", 10)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, trend.MaxReplicas)
}
