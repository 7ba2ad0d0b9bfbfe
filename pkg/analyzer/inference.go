package analyzer

import (
	"context"
	"fmt"

	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/telemetry"
	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes"
)

// Inference source tags
const (
	SourceKubernetesDefault  = "kubernetes_default"
	SourceOverride           = "deployment_context_override"
	SourceOrganizationPolicy = "organization_policy"
	SourceDefaultPattern     = "default_pattern_fallback"
	SourceLimitedData        = "limited_data_analysis"
)

// Inferrer derives the deployment context a caller did not supply
type Inferrer struct {
	kube    kubernetes.Interface
	gateway telemetry.Gateway
	logger  *zap.Logger
}

// NewInferrer creates an inferrer. kube may be nil when no cluster is reachable.
func NewInferrer(kube kubernetes.Interface, gateway telemetry.Gateway, logger *zap.Logger) *Inferrer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inferrer{kube: kube, gateway: gateway, logger: logger}
}

// ResolveEnvironment returns the explicit environment if one was given,
// otherwise the namespace classification.
func (i *Inferrer) ResolveEnvironment(ctx context.Context, app models.ApplicationRef, dc models.DeploymentContext) (string, string) {
	if dc.Environment != "" {
		return dc.Environment, SourceOverride
	}
	if app.Environment != "" {
		return app.Environment, SourceOverride
	}
	env, source := ClassifyNamespace(ctx, i.kube, app.Namespace)
	return string(env), source
}

// Infer builds the inferred context once per request
func (i *Inferrer) Infer(
	ctx context.Context,
	app models.ApplicationRef,
	dc models.DeploymentContext,
	availability models.DataAvailability,
	details *models.AvailabilityDetails,
) models.InferredContext {
	env, envSource := i.ResolveEnvironment(ctx, app, dc)

	inferred := models.InferredContext{
		DeploymentType:   models.DefaultDeploymentStrategy,
		TrafficPattern:   models.DefaultTrafficPattern,
		CostOptimization: models.DefaultCostOptimization,
		Environment:      env,
		ApplicationType:  string(InferApplicationType(app.Name)),
		InferenceSource: models.InferenceSource{
			DeploymentType:   SourceKubernetesDefault,
			TrafficPattern:   SourceDefaultPattern,
			CostOptimization: SourceOrganizationPolicy,
			Environment:      envSource,
			ApplicationType:  SourceNamePattern,
		},
	}

	if dc.CostOptimization != "" {
		inferred.CostOptimization = dc.CostOptimization
		inferred.InferenceSource.CostOptimization = SourceOverride
	}

	switch availability {
	case models.FullHistoricalData:
		inferred.InferenceSource.TrafficPattern = i.backendName() + "_historical_analysis"
	case models.PartialData:
		inferred.TrafficPattern = TrafficPeakHours
		inferred.InferenceSource.TrafficPattern = SourceLimitedData
	}

	if dc.TrafficPattern != "" {
		inferred.TrafficPattern = dc.TrafficPattern
		inferred.InferenceSource.TrafficPattern = SourceOverride
		return inferred
	}

	if availability != models.NoHistoricalData && details != nil && details.EntityID != "" && i.gateway != nil {
		trend, err := i.gateway.GetTrendAnalysis(ctx, details.EntityID, telemetry.DefaultLookbackDays)
		if err != nil {
			i.logger.Warn("trend analysis failed, keeping default traffic pattern",
				zap.String("app", app.Name),
				zap.String("entity_id", details.EntityID),
				zap.Error(err))
		} else if trend != nil && trend.TrafficPattern != "" {
			inferred.TrafficPattern = trend.TrafficPattern
			inferred.InferenceSource.TrafficPattern = fmt.Sprintf("%s_trend_analysis", i.backendName())
		}
	}

	return inferred
}

func (i *Inferrer) backendName() string {
	if i.gateway == nil {
		return "telemetry"
	}
	return i.gateway.Name()
}
