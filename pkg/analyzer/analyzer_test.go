package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/telemetry"
	"github.com/opscart/k8s-scaling-advisor/pkg/telemetry/stub"
	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestEnvironmentFromName(t *testing.T) {
	tests := map[string]Environment{
		"payment-worker-prod": EnvironmentProduction,
		"live-checkout":       EnvironmentProduction,
		"shop-staging":        EnvironmentStaging,
		"uat":                 EnvironmentStaging,
		"integration-test":    EnvironmentStaging,
		"team-dev":            EnvironmentDevelopment,
		"sandbox-42":          EnvironmentDevelopment,
		"default":             EnvironmentProduction,
	}

	for namespace, want := range tests {
		if got := EnvironmentFromName(namespace); got != want {
			t.Errorf("EnvironmentFromName(%q) = %s, want %s", namespace, got, want)
		}
	}
}

func TestClassifyNamespace_Labels(t *testing.T) {
	client := fake.NewSimpleClientset(
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{
			Name:   "payments",
			Labels: map[string]string{"environment": "stg"},
		}},
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{
			Name:   "orders-prod",
			Labels: map[string]string{"tier": "dev"},
		}},
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{
			Name:   "inventory-dev",
			Labels: map[string]string{"environment": "blue"},
		}},
	)
	ctx := context.Background()

	env, source := ClassifyNamespace(ctx, client, "payments")
	assert.Equal(t, EnvironmentStaging, env)
	assert.Equal(t, SourceNamespaceLabel, source)

	env, _ = ClassifyNamespace(ctx, client, "orders-prod")
	assert.Equal(t, EnvironmentDevelopment, env, "tier label beats the name")

	env, source = ClassifyNamespace(ctx, client, "inventory-dev")
	assert.Equal(t, EnvironmentDevelopment, env)
	assert.Equal(t, SourceNamespacePattern, source, "unrecognized label falls back to the name")

	env, source = ClassifyNamespace(ctx, nil, "missing-staging")
	assert.Equal(t, EnvironmentStaging, env)
	assert.Equal(t, SourceNamespacePattern, source)
}

func TestNormalizeEnvironment(t *testing.T) {
	env, ok := NormalizeEnvironment(" Prod ")
	assert.True(t, ok)
	assert.Equal(t, EnvironmentProduction, env)

	_, ok = NormalizeEnvironment("qa-east")
	assert.False(t, ok)
}

func TestInferApplicationType(t *testing.T) {
	tests := map[string]ApplicationType{
		"payment-worker":   ApplicationWorker,
		"order-processor":  ApplicationWorker,
		"checkout-api":     ApplicationAPI,
		"graphql-gateway":  ApplicationAPI,
		"storefront-react": ApplicationFrontend,
		"admin-ui":         ApplicationFrontend,
		"job-service":      ApplicationAPI,
		"ledger":           ApplicationAPI,
	}

	for name, want := range tests {
		assert.Equal(t, want, InferApplicationType(name), name)
	}
}

func TestAnalyzeTrend(t *testing.T) {
	steady := AnalyzeTrend(telemetry.HistoricalMetrics{
		telemetry.MetricCPUTime:     {Avg: 100, Max: 110, DataPoints: 168},
		telemetry.MetricRequestRate: {Avg: 100, Max: 120, DataPoints: 168},
	})
	assert.Equal(t, TrafficSteady, steady.TrafficPattern)
	assert.Equal(t, TrendStable, steady.RequestRateTrend)

	peak := AnalyzeTrend(telemetry.HistoricalMetrics{
		telemetry.MetricCPUTime: {Avg: 100, Max: 160, DataPoints: 168},
	})
	assert.Equal(t, TrafficPeakHours, peak.TrafficPattern)
	assert.Equal(t, TrendSpiky, peak.CPUTrend)

	growth := AnalyzeTrend(telemetry.HistoricalMetrics{
		telemetry.MetricCPUTime:     {Avg: 100, Max: 130, DataPoints: 168},
		telemetry.MetricRequestRate: {Avg: 100, Max: 140, DataPoints: 168},
	})
	assert.Equal(t, TrafficGradualGrowth, growth.TrafficPattern)
	assert.Equal(t, TrendModerateGrowth, growth.RequestRateTrend)

	requestSpike := AnalyzeTrend(telemetry.HistoricalMetrics{
		telemetry.MetricCPUTime:     {Avg: 100, Max: 160, DataPoints: 168},
		telemetry.MetricRequestRate: {Avg: 100, Max: 250, DataPoints: 168},
	})
	assert.Equal(t, TrafficHighPeakHours, requestSpike.TrafficPattern)
	assert.Equal(t, TrendSpiky, requestSpike.CPUTrend)
}

type brokenTrendGateway struct {
	*stub.Gateway
}

func (b brokenTrendGateway) GetTrendAnalysis(ctx context.Context, entityID string, days int) (*telemetry.TrendAnalysis, error) {
	return nil, errors.New("503 service unavailable")
}

func TestInfer_NoHistory(t *testing.T) {
	inferrer := NewInferrer(nil, stub.New(), nil)
	app := models.ApplicationRef{Name: "payment-worker", Namespace: "payment-worker-prod"}

	got := inferrer.Infer(context.Background(), app, models.DeploymentContext{}, models.NoHistoricalData, nil)

	assert.Equal(t, "production", got.Environment)
	assert.Equal(t, "worker_service", got.ApplicationType)
	assert.Equal(t, "steady", got.TrafficPattern)
	assert.Equal(t, "balanced", got.CostOptimization)
	assert.Equal(t, "rolling_update", got.DeploymentType)
	assert.Equal(t, models.InferenceSource{
		DeploymentType:   "kubernetes_default",
		TrafficPattern:   "default_pattern_fallback",
		CostOptimization: "organization_policy",
		Environment:      "namespace_pattern_inference",
		ApplicationType:  "name_pattern_inference",
	}, got.InferenceSource)
}

func TestInfer_TrendAnalysis(t *testing.T) {
	inferrer := NewInferrer(nil, stub.New(), nil)
	app := models.ApplicationRef{Name: "cart", Namespace: "shop"}
	details := &models.AvailabilityDetails{DaysAvailable: 7, Completeness: 100, EntityID: "mock-peak-cart"}

	got := inferrer.Infer(context.Background(), app, models.DeploymentContext{}, models.FullHistoricalData, details)
	assert.Equal(t, "peak_hours", got.TrafficPattern)
	assert.Equal(t, "stub_trend_analysis", got.InferenceSource.TrafficPattern)
}

func TestInfer_PartialWithoutTrend(t *testing.T) {
	inferrer := NewInferrer(nil, brokenTrendGateway{stub.New()}, nil)
	app := models.ApplicationRef{Name: "cart", Namespace: "shop-dev"}
	details := &models.AvailabilityDetails{DaysAvailable: 3, Completeness: 65, EntityID: "mock-cart"}

	got := inferrer.Infer(context.Background(), app, models.DeploymentContext{}, models.PartialData, details)
	assert.Equal(t, "peak_hours", got.TrafficPattern)
	assert.Equal(t, "limited_data_analysis", got.InferenceSource.TrafficPattern)
	assert.Equal(t, "development", got.Environment)
}

func TestInfer_Overrides(t *testing.T) {
	inferrer := NewInferrer(nil, stub.New(), nil)
	app := models.ApplicationRef{Name: "cart", Namespace: "shop-dev"}
	dc := models.DeploymentContext{
		Environment:      "staging",
		CostOptimization: "aggressive",
		TrafficPattern:   "batch",
	}

	got := inferrer.Infer(context.Background(), app, dc, models.FullHistoricalData,
		&models.AvailabilityDetails{EntityID: "mock-peak-cart"})
	assert.Equal(t, "staging", got.Environment)
	assert.Equal(t, "aggressive", got.CostOptimization)
	assert.Equal(t, "batch", got.TrafficPattern)
	assert.Equal(t, SourceOverride, got.InferenceSource.Environment)
	assert.Equal(t, SourceOverride, got.InferenceSource.CostOptimization)
	assert.Equal(t, SourceOverride, got.InferenceSource.TrafficPattern)
}
