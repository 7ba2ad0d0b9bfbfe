package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/opscart/k8s-scaling-advisor/pkg/apperrors"
	"gopkg.in/yaml.v3"
)

// Policy is the suggestion policy document. Nil pointer fields are "not set"
// so each layer only overrides what it defines.
type Policy struct {
	Features                Features              `yaml:"features"`
	FallbackStrategies      FallbackStrategies    `yaml:"fallback_strategies"`
	EnvironmentDefaults     map[string]LayerBlock `yaml:"environment_defaults"`
	ApplicationTypePatterns map[string]LayerBlock `yaml:"application_type_patterns"`
	OrganizationPolicies    OrganizationPolicies  `yaml:"organization_policies"`
	ScalingSuggestions      LegacySuggestions     `yaml:"scaling_suggestions"`

	envIndex map[string]string
}

// Features toggles optional behaviour
type Features struct {
	EnableAIShadowAnalyst bool `yaml:"enable_ai_shadow_analyst"`
}

// FallbackStrategies are the base layers selected by data availability
type FallbackStrategies struct {
	NewDeployment LayerBlock `yaml:"new_deployment"`
	PartialData   LayerBlock `yaml:"partial_data"`
}

// LayerBlock is one partial configuration layer
type LayerBlock struct {
	ResourceSizing       *ResourceSizing       `yaml:"resource_sizing,omitempty"`
	ScalingConfiguration *ScalingConfiguration `yaml:"scaling_configuration,omitempty"`
	Infrastructure       *Infrastructure       `yaml:"infrastructure,omitempty"`
}

// ResourceSizing holds container quantities
type ResourceSizing struct {
	CPURequest    *string `yaml:"cpu_request,omitempty"`
	MemoryRequest *string `yaml:"memory_request,omitempty"`
	CPULimit      *string `yaml:"cpu_limit,omitempty"`
	MemoryLimit   *string `yaml:"memory_limit,omitempty"`
}

// ScalingConfiguration holds HPA bounds
type ScalingConfiguration struct {
	MinReplicas *int `yaml:"min_replicas,omitempty"`
	MaxReplicas *int `yaml:"max_replicas,omitempty"`
	TargetCPU   *int `yaml:"target_cpu,omitempty"`
}

// Infrastructure holds node placement
type Infrastructure struct {
	Arch         *string `yaml:"arch,omitempty"`
	CapacityType *string `yaml:"capacity_type,omitempty"`
}

// OrganizationPolicies groups organization-wide policies
type OrganizationPolicies struct {
	CostOptimization map[string]CostPolicy `yaml:"cost_optimization"`
}

// CostPolicy is applied last in the layered path
type CostPolicy struct {
	CapacityType *string `yaml:"capacity_type,omitempty"`
	TargetCPU    *int    `yaml:"target_cpu,omitempty"`
}

// LegacySuggestions is the per-environment configuration used when full history exists
type LegacySuggestions struct {
	Environments map[string]LegacyEnvironment          `yaml:"environments"`
	Applications map[string]map[string]LegacyOverride `yaml:"applications"`
}

// LegacyEnvironment is matched by key or alias
type LegacyEnvironment struct {
	Aliases   []string        `yaml:"aliases,omitempty"`
	HPA       LegacyHPA       `yaml:"hpa"`
	Karpenter LegacyKarpenter `yaml:"karpenter"`
}

// LegacyOverride is a per-application, per-environment override
type LegacyOverride struct {
	HPA       LegacyHPA       `yaml:"hpa"`
	Karpenter LegacyKarpenter `yaml:"karpenter"`
}

// LegacyHPA uses the legacy key names
type LegacyHPA struct {
	MinReplicas          *int `yaml:"min_replicas,omitempty"`
	MaxReplicas          *int `yaml:"max_replicas,omitempty"`
	CPUUtilizationTarget *int `yaml:"cpu_utilization_target,omitempty"`
}

// LegacyKarpenter uses the legacy key names
type LegacyKarpenter struct {
	CapacityType *string `yaml:"capacity_type,omitempty"`
}

// LoadPolicy reads and validates a policy document. An empty path yields an
// empty policy, which resolves every field from the hard-coded defaults.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return ParsePolicy(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigurationError("policy", "failed to read %s: %v", path, err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes and validates a policy document
func ParsePolicy(data []byte) (*Policy, error) {
	p := &Policy{}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, p); err != nil {
			return nil, apperrors.NewConfigurationError("policy", "invalid YAML: %v", err)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate builds the legacy environment index, rejecting any key or alias
// that resolves to more than one environment.
func (p *Policy) Validate() error {
	index := make(map[string]string)
	var collisions []string

	keys := make([]string, 0, len(p.ScalingSuggestions.Environments))
	for key := range p.ScalingSuggestions.Environments {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	claim := func(name, owner string) {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return
		}
		if existing, ok := index[name]; ok && existing != owner {
			collisions = append(collisions, fmt.Sprintf("%q is claimed by both %q and %q", name, existing, owner))
			return
		}
		index[name] = owner
	}

	for _, key := range keys {
		claim(key, key)
	}
	for _, key := range keys {
		for _, alias := range p.ScalingSuggestions.Environments[key].Aliases {
			claim(alias, key)
		}
	}

	if len(collisions) > 0 {
		return apperrors.NewConfigurationError("policy", "ambiguous scaling_suggestions.environments: %s",
			strings.Join(collisions, "; "))
	}
	p.envIndex = index
	return nil
}

// LegacyEnvironment returns the legacy environment matching name by key or alias.
// The index is built by Validate (ParsePolicy and LoadPolicy call it); an
// unvalidated policy matches nothing. Lookups never write to p, so a validated
// Policy is safe for concurrent use.
func (p *Policy) LegacyEnvironment(name string) (string, LegacyEnvironment, bool) {
	if p.envIndex == nil {
		return "", LegacyEnvironment{}, false
	}
	key, ok := p.envIndex[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", LegacyEnvironment{}, false
	}
	return key, p.ScalingSuggestions.Environments[key], true
}

// ApplicationOverride returns the legacy per-application override for an environment.
// Both the requested name and the canonical environment key are tried.
func (p *Policy) ApplicationOverride(app string, envNames ...string) (LegacyOverride, bool) {
	byEnv, ok := p.ScalingSuggestions.Applications[app]
	if !ok {
		return LegacyOverride{}, false
	}
	for _, env := range envNames {
		if override, ok := byEnv[env]; ok {
			return override, true
		}
	}
	return LegacyOverride{}, false
}
