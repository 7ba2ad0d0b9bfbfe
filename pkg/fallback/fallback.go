// Package fallback builds the deterministic static suggestion from the
// policy document. It never fails: every field missing from every layer
// falls back to a hard-coded default.
package fallback

import (
	"strings"

	"github.com/opscart/k8s-scaling-advisor/pkg/analyzer"
	"github.com/opscart/k8s-scaling-advisor/pkg/config"
	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"go.uber.org/zap"
)

// Strategy names the path that produced a static suggestion
type Strategy string

const (
	StrategyLegacy        Strategy = "legacy_environment_config"
	StrategyNewDeployment Strategy = "new_deployment"
	StrategyPartialData   Strategy = "partial_data"
)

// Resolution is a static suggestion plus the layers that shaped it
type Resolution struct {
	Suggestion models.ScalingSuggestion
	Strategy   Strategy
	Layers     []string
}

// Resolver applies the policy document to one request at a time
type Resolver struct {
	policy *config.Policy
	logger *zap.Logger
}

// NewResolver creates a resolver. A nil policy resolves everything from defaults.
func NewResolver(policy *config.Policy, logger *zap.Logger) *Resolver {
	if policy == nil {
		policy = &config.Policy{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{policy: policy, logger: logger}
}

// Resolve picks the legacy path for full history and the layered path otherwise
func (r *Resolver) Resolve(req *models.SuggestionRequest) Resolution {
	var res Resolution
	if req.Availability == models.FullHistoricalData {
		res = r.legacy(req)
	} else {
		res = r.layered(req)
	}

	r.logger.Debug("static suggestion resolved",
		zap.String("app", req.App.Name),
		zap.String("strategy", string(res.Strategy)),
		zap.Strings("layers", res.Layers))
	return res
}

// legacy merges the environment block matched by key or alias with the
// per-application override. It bypasses the layered cascade.
func (r *Resolver) legacy(req *models.SuggestionRequest) Resolution {
	res := Resolution{Strategy: StrategyLegacy}
	envName := strings.ToLower(req.Inferred.Environment)

	var hpa config.LegacyHPA
	var karpenter config.LegacyKarpenter

	key, env, found := r.policy.LegacyEnvironment(envName)
	if found {
		hpa, karpenter = env.HPA, env.Karpenter
		res.Layers = append(res.Layers, "scaling_suggestions.environments."+key)
	}
	if override, ok := r.policy.ApplicationOverride(req.App.Name, envName, key); ok {
		hpa = mergeLegacyHPA(hpa, override.HPA)
		if override.Karpenter.CapacityType != nil {
			karpenter.CapacityType = override.Karpenter.CapacityType
		}
		res.Layers = append(res.Layers, "scaling_suggestions.applications."+req.App.Name)
	}

	res.Suggestion = models.ScalingSuggestion{
		HPA: models.HPA{
			MinReplicas:                    intOr(hpa.MinReplicas, models.DefaultMinReplicas),
			MaxReplicas:                    intOr(hpa.MaxReplicas, models.DefaultMaxReplicas),
			TargetCPUUtilizationPercentage: intOr(hpa.CPUUtilizationTarget, models.DefaultTargetCPU),
			ScaleTargetRefName:             req.DeploymentName(),
			Resources:                      defaultResources(),
		},
		Karpenter: models.Karpenter{
			Architecture: req.Architecture(),
			CapacityType: stringOr(karpenter.CapacityType, models.DefaultCapacityType),
		},
	}
	return res
}

func mergeLegacyHPA(base, override config.LegacyHPA) config.LegacyHPA {
	if override.MinReplicas != nil {
		base.MinReplicas = override.MinReplicas
	}
	if override.MaxReplicas != nil {
		base.MaxReplicas = override.MaxReplicas
	}
	if override.CPUUtilizationTarget != nil {
		base.CPUUtilizationTarget = override.CPUUtilizationTarget
	}
	return base
}

// merged accumulates the layered path. Each apply only overrides fields the
// layer defines.
type merged struct {
	sizing  config.ResourceSizing
	scaling config.ScalingConfiguration
	infra   config.Infrastructure
}

func (m *merged) applySizing(s *config.ResourceSizing) {
	if s == nil {
		return
	}
	setString(&m.sizing.CPURequest, s.CPURequest)
	setString(&m.sizing.MemoryRequest, s.MemoryRequest)
	setString(&m.sizing.CPULimit, s.CPULimit)
	setString(&m.sizing.MemoryLimit, s.MemoryLimit)
}

func (m *merged) applyScaling(s *config.ScalingConfiguration) {
	if s == nil {
		return
	}
	setInt(&m.scaling.MinReplicas, s.MinReplicas)
	setInt(&m.scaling.MaxReplicas, s.MaxReplicas)
	setInt(&m.scaling.TargetCPU, s.TargetCPU)
}

func (m *merged) applyInfra(i *config.Infrastructure) {
	if i == nil {
		return
	}
	setString(&m.infra.Arch, i.Arch)
	setString(&m.infra.CapacityType, i.CapacityType)
}

func (r *Resolver) layered(req *models.SuggestionRequest) Resolution {
	res := Resolution{Strategy: StrategyNewDeployment}
	base := r.policy.FallbackStrategies.NewDeployment
	if req.Availability == models.PartialData {
		res.Strategy = StrategyPartialData
		base = r.policy.FallbackStrategies.PartialData
	}

	var m merged
	m.applySizing(base.ResourceSizing)
	m.applyScaling(base.ScalingConfiguration)
	m.applyInfra(base.Infrastructure)
	res.Layers = append(res.Layers, "fallback_strategies."+string(res.Strategy))

	if key, block, ok := r.environmentDefaults(req.Inferred.Environment); ok {
		m.applySizing(block.ResourceSizing)
		m.applyScaling(block.ScalingConfiguration)
		m.applyInfra(block.Infrastructure)
		res.Layers = append(res.Layers, "environment_defaults."+key)
	}

	appType := req.Inferred.ApplicationType
	if appType == "" {
		appType = string(analyzer.InferApplicationType(req.App.Name))
	}
	if block, ok := r.policy.ApplicationTypePatterns[appType]; ok {
		m.applyScaling(block.ScalingConfiguration)
		m.applySizing(block.ResourceSizing)
		res.Layers = append(res.Layers, "application_type_patterns."+appType)
	}

	cost := req.Inferred.CostOptimization
	if cost == "" {
		cost = models.DefaultCostOptimization
	}
	if policy, ok := r.policy.OrganizationPolicies.CostOptimization[cost]; ok {
		setString(&m.infra.CapacityType, policy.CapacityType)
		setInt(&m.scaling.TargetCPU, policy.TargetCPU)
		res.Layers = append(res.Layers, "organization_policies.cost_optimization."+cost)
	}

	res.Suggestion = models.ScalingSuggestion{
		HPA: models.HPA{
			MinReplicas:                    intOr(m.scaling.MinReplicas, models.DefaultMinReplicas),
			MaxReplicas:                    intOr(m.scaling.MaxReplicas, models.DefaultMaxReplicas),
			TargetCPUUtilizationPercentage: intOr(m.scaling.TargetCPU, models.DefaultTargetCPU),
			ScaleTargetRefName:             req.DeploymentName(),
			Resources: models.Resources{
				CPURequest:    stringOr(m.sizing.CPURequest, models.DefaultCPURequest),
				MemoryRequest: stringOr(m.sizing.MemoryRequest, models.DefaultMemoryRequest),
				CPULimit:      stringOr(m.sizing.CPULimit, models.DefaultCPULimit),
				MemoryLimit:   stringOr(m.sizing.MemoryLimit, models.DefaultMemoryLimit),
			},
		},
		Karpenter: models.Karpenter{
			Architecture: stringOr(m.infra.Arch, req.Architecture()),
			CapacityType: stringOr(m.infra.CapacityType, models.DefaultCapacityType),
		},
	}
	return res
}

// environmentDefaults matches by exact name first, then through the legacy
// alias index so "production" finds a block keyed "prod".
func (r *Resolver) environmentDefaults(env string) (string, config.LayerBlock, bool) {
	name := strings.ToLower(strings.TrimSpace(env))
	if name == "" {
		return "", config.LayerBlock{}, false
	}
	if block, ok := r.policy.EnvironmentDefaults[name]; ok {
		return name, block, true
	}
	if key, _, ok := r.policy.LegacyEnvironment(name); ok {
		if block, ok := r.policy.EnvironmentDefaults[key]; ok {
			return key, block, true
		}
	}
	return "", config.LayerBlock{}, false
}

func defaultResources() models.Resources {
	return models.Resources{
		CPURequest:    models.DefaultCPURequest,
		MemoryRequest: models.DefaultMemoryRequest,
		CPULimit:      models.DefaultCPULimit,
		MemoryLimit:   models.DefaultMemoryLimit,
	}
}

func setString(dst **string, v *string) {
	if v != nil {
		*dst = v
	}
}

func setInt(dst **int, v *int) {
	if v != nil {
		*dst = v
	}
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v *string, def string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return def
	}
	return *v
}
