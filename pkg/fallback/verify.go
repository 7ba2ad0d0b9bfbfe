package fallback

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opscart/k8s-scaling-advisor/pkg/analyzer"
	"github.com/opscart/k8s-scaling-advisor/pkg/apperrors"
	"github.com/opscart/k8s-scaling-advisor/pkg/config"
	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/suggestion"
)

const verifyTarget = "policy-check"

var applicationTypes = []analyzer.ApplicationType{
	analyzer.ApplicationAPI,
	analyzer.ApplicationWorker,
	analyzer.ApplicationFrontend,
}

// VerifyPolicy resolves every combination of availability, environment,
// application type and cost policy the document can express and rejects the
// document if any of them yields an invalid suggestion.
func VerifyPolicy(policy *config.Policy) error {
	r := NewResolver(policy, nil)
	var problems []string

	check := func(label string, req *models.SuggestionRequest) {
		res := r.Resolve(req)
		if err := suggestion.Validate(&res.Suggestion); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", label, err))
		}
	}

	environments := append([]string{""}, sortedKeys(r.policy.EnvironmentDefaults)...)
	costs := []string{models.DefaultCostOptimization}
	for name := range r.policy.OrganizationPolicies.CostOptimization {
		if name != models.DefaultCostOptimization {
			costs = append(costs, name)
		}
	}
	sort.Strings(costs[1:])

	for _, availability := range []models.DataAvailability{models.NoHistoricalData, models.PartialData} {
		for _, env := range environments {
			for _, appType := range applicationTypes {
				for _, cost := range costs {
					check(fmt.Sprintf("%s/env=%q/%s/%s", availability, env, appType, cost), &models.SuggestionRequest{
						App:          models.ApplicationRef{Name: verifyTarget},
						Availability: availability,
						Inferred: models.InferredContext{
							Environment:      env,
							ApplicationType:  string(appType),
							CostOptimization: cost,
						},
					})
				}
			}
		}
	}

	legacyEnvs := append([]string{""}, sortedKeys(r.policy.ScalingSuggestions.Environments)...)
	for _, env := range legacyEnvs {
		check(fmt.Sprintf("legacy/env=%q", env), legacyRequest(verifyTarget, env))
	}
	for app, byEnv := range r.policy.ScalingSuggestions.Applications {
		for env := range byEnv {
			check(fmt.Sprintf("legacy/%s/env=%q", app, env), legacyRequest(app, env))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return apperrors.NewConfigurationError("policy", "layer combinations produce invalid suggestions:\n  - %s",
			strings.Join(problems, "\n  - "))
	}
	return nil
}

func legacyRequest(app, env string) *models.SuggestionRequest {
	return &models.SuggestionRequest{
		App:          models.ApplicationRef{Name: app},
		Availability: models.FullHistoricalData,
		Inferred:     models.InferredContext{Environment: env},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
