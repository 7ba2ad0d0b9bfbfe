package analyzer

import (
	"context"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvironmentProduction  Environment = "production"
	EnvironmentStaging     Environment = "staging"
	EnvironmentDevelopment Environment = "development"
)

// Inference source tags for the environment field
const (
	SourceNamespaceLabel   = "namespace_label"
	SourceNamespacePattern = "namespace_pattern_inference"
)

// environmentPatterns are checked in order; the first environment with a
// matching substring wins.
var environmentPatterns = []struct {
	env      Environment
	patterns []string
}{
	{EnvironmentProduction, []string{"prod", "production", "live"}},
	{EnvironmentStaging, []string{"staging", "stage", "uat", "test"}},
	{EnvironmentDevelopment, []string{"dev", "development", "sandbox"}},
}

// ClassifyNamespace determines the environment of a namespace from its
// environment or tier label, falling back to name patterns. client may be nil.
func ClassifyNamespace(ctx context.Context, client kubernetes.Interface, namespace string) (Environment, string) {
	if client != nil {
		ns, err := client.CoreV1().Namespaces().Get(ctx, namespace, metav1.GetOptions{})
		if err == nil && ns.Labels != nil {
			if env, ok := NormalizeEnvironment(ns.Labels["environment"]); ok {
				return env, SourceNamespaceLabel
			}
			if env, ok := NormalizeEnvironment(ns.Labels["tier"]); ok {
				return env, SourceNamespaceLabel
			}
		}
	}
	return EnvironmentFromName(namespace), SourceNamespacePattern
}

// EnvironmentFromName infers an environment from a namespace name. Unknown
// names are treated as production.
func EnvironmentFromName(namespace string) Environment {
	name := strings.ToLower(namespace)
	for _, group := range environmentPatterns {
		for _, pattern := range group.patterns {
			if strings.Contains(name, pattern) {
				return group.env
			}
		}
	}
	return EnvironmentProduction
}

// NormalizeEnvironment maps exact environment labels and their common short
// forms to an Environment.
func NormalizeEnvironment(label string) (Environment, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "production", "prod", "prd", "live":
		return EnvironmentProduction, true
	case "staging", "stage", "stg", "uat", "test", "testing":
		return EnvironmentStaging, true
	case "development", "dev", "develop", "sandbox":
		return EnvironmentDevelopment, true
	default:
		return "", false
	}
}
