package fallback

import (
	"testing"

	"github.com/opscart/k8s-scaling-advisor/pkg/apperrors"
	"github.com/opscart/k8s-scaling-advisor/pkg/config"
	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/suggestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shippedPolicy(t *testing.T) *config.Policy {
	t.Helper()
	p, err := config.LoadPolicy("../../configs/scaling-policy.yaml")
	require.NoError(t, err)
	return p
}

func request(app, env string, availability models.DataAvailability) *models.SuggestionRequest {
	return &models.SuggestionRequest{
		App:          models.ApplicationRef{Name: app, Namespace: app + "-ns"},
		Availability: availability,
		Inferred: models.InferredContext{
			Environment:      env,
			CostOptimization: models.DefaultCostOptimization,
		},
	}
}

func TestResolve_PaymentWorkerNoHistory(t *testing.T) {
	r := NewResolver(shippedPolicy(t), nil)

	req := request("payment-worker", "production", models.NoHistoricalData)
	req.Inferred.ApplicationType = "worker_service"
	res := r.Resolve(req)

	s := res.Suggestion
	assert.Equal(t, StrategyNewDeployment, res.Strategy)
	assert.Equal(t, []string{
		"fallback_strategies.new_deployment",
		"environment_defaults.prod",
		"application_type_patterns.worker_service",
		"organization_policies.cost_optimization.balanced",
	}, res.Layers)

	assert.Equal(t, 2, s.HPA.MinReplicas)
	assert.Equal(t, 20, s.HPA.MaxReplicas)
	assert.Equal(t, 80, s.HPA.TargetCPUUtilizationPercentage)
	assert.Equal(t, "payment-worker", s.HPA.ScaleTargetRefName)
	assert.Equal(t, "500m", s.HPA.Resources.CPURequest)
	assert.Equal(t, "1Gi", s.HPA.Resources.MemoryLimit)
	assert.Equal(t, "spot", s.Karpenter.CapacityType)
	assert.Equal(t, "amd64", s.Karpenter.Architecture)
	require.NoError(t, suggestion.Validate(&s))
}

func TestResolve_InfersApplicationTypeWhenMissing(t *testing.T) {
	r := NewResolver(shippedPolicy(t), nil)

	res := r.Resolve(request("storefront-web", "staging", models.PartialData))
	assert.Equal(t, StrategyPartialData, res.Strategy)
	assert.Contains(t, res.Layers, "application_type_patterns.frontend_service")
	assert.Equal(t, "100m", res.Suggestion.HPA.Resources.CPURequest)
	assert.Equal(t, "600m", res.Suggestion.HPA.Resources.CPULimit)
	assert.Equal(t, 65, res.Suggestion.HPA.TargetCPUUtilizationPercentage)
}

func TestResolve_CostPolicyOverridesTarget(t *testing.T) {
	r := NewResolver(shippedPolicy(t), nil)

	req := request("orders-api", "dev", models.NoHistoricalData)
	req.Inferred.CostOptimization = "conservative"
	res := r.Resolve(req)

	assert.Equal(t, 60, res.Suggestion.HPA.TargetCPUUtilizationPercentage)
	assert.Equal(t, "on-demand", res.Suggestion.Karpenter.CapacityType)
}

func TestResolve_EmptyPolicyUsesDefaults(t *testing.T) {
	r := NewResolver(nil, nil)

	for _, availability := range []models.DataAvailability{models.NoHistoricalData, models.PartialData, models.FullHistoricalData} {
		req := request("billing", "", availability)
		req.Deployment.DeploymentName = "billing-v2"
		req.Deployment.Architecture = "arm64"

		s := r.Resolve(req).Suggestion
		assert.Equal(t, models.DefaultMinReplicas, s.HPA.MinReplicas, availability)
		assert.Equal(t, models.DefaultMaxReplicas, s.HPA.MaxReplicas, availability)
		assert.Equal(t, models.DefaultTargetCPU, s.HPA.TargetCPUUtilizationPercentage, availability)
		assert.Equal(t, "billing-v2", s.HPA.ScaleTargetRefName, availability)
		assert.Equal(t, models.DefaultMemoryRequest, s.HPA.Resources.MemoryRequest, availability)
		assert.Equal(t, "arm64", s.Karpenter.Architecture, availability)
		assert.Equal(t, models.DefaultCapacityType, s.Karpenter.CapacityType, availability)
		require.NoError(t, suggestion.Validate(&s))
	}
}

func TestResolve_LegacyAlias(t *testing.T) {
	r := NewResolver(shippedPolicy(t), nil)

	byKey := r.Resolve(request("inventory", "prod", models.FullHistoricalData))
	byAlias := r.Resolve(request("inventory", "production", models.FullHistoricalData))

	assert.Equal(t, StrategyLegacy, byAlias.Strategy)
	assert.Equal(t, byKey.Suggestion, byAlias.Suggestion)
	assert.Equal(t, 3, byAlias.Suggestion.HPA.MinReplicas)
	assert.Equal(t, 10, byAlias.Suggestion.HPA.MaxReplicas)
	assert.Equal(t, "on-demand", byAlias.Suggestion.Karpenter.CapacityType)
}

func TestResolve_LegacyApplicationOverride(t *testing.T) {
	r := NewResolver(shippedPolicy(t), nil)

	for _, env := range []string{"prod", "PRD"} {
		res := r.Resolve(request("checkout-api", env, models.FullHistoricalData))
		assert.Equal(t, 5, res.Suggestion.HPA.MinReplicas, env)
		assert.Equal(t, 30, res.Suggestion.HPA.MaxReplicas, env)
		assert.Equal(t, 70, res.Suggestion.HPA.TargetCPUUtilizationPercentage, env)
		assert.Contains(t, res.Layers, "scaling_suggestions.applications.checkout-api", env)
	}
}

func TestResolve_LegacyUnknownEnvironment(t *testing.T) {
	r := NewResolver(shippedPolicy(t), nil)

	res := r.Resolve(request("inventory", "qa", models.FullHistoricalData))
	assert.Empty(t, res.Layers)
	assert.Equal(t, models.DefaultMinReplicas, res.Suggestion.HPA.MinReplicas)
	assert.Equal(t, models.DefaultCPULimit, res.Suggestion.HPA.Resources.CPULimit)
}

func TestVerifyPolicy(t *testing.T) {
	require.NoError(t, VerifyPolicy(shippedPolicy(t)))
	require.NoError(t, VerifyPolicy(&config.Policy{}))

	bad, err := config.ParsePolicy([]byte(`
fallback_strategies:
  partial_data:
    scaling_configuration:
      min_replicas: 8
environment_defaults:
  staging:
    scaling_configuration:
      max_replicas: 4
`))
	require.NoError(t, err)

	err = VerifyPolicy(bad)
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
	assert.Contains(t, err.Error(), `partial_data/env="staging"`)
}

func TestVerifyPolicy_LegacyOverride(t *testing.T) {
	bad, err := config.ParsePolicy([]byte(`
scaling_suggestions:
  environments:
    prod:
      hpa:
        min_replicas: 3
        max_replicas: 10
  applications:
    search:
      prod:
        hpa:
          min_replicas: 12
`))
	require.NoError(t, err)

	err = VerifyPolicy(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `legacy/search/env="prod"`)
}
