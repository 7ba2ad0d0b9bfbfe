package engine

import (
	"fmt"
	"strings"

	"github.com/opscart/k8s-scaling-advisor/pkg/analyzer"
	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/tools"
)

// BuildPrompt renders the opening user message for one request
func BuildPrompt(req *models.SuggestionRequest, backend string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert Kubernetes SRE. Your task is to generate an optimal scaling configuration "+
		"for the service '%s' (app: %s, namespace: %s).\n\n", req.TargetEntity(), req.App.Name, req.App.Namespace)

	b.WriteString("Available tools:\n")
	n := 1
	for _, d := range tools.Definitions() {
		if d.Category == tools.CategorySubmission {
			continue
		}
		fmt.Fprintf(&b, "%d. %s - %s\n", n, d.Name, d.Description)
		n++
	}
	fmt.Fprintf(&b, "\nWhen you are done, call %s exactly once with the final configuration.\n\n", tools.SubmitToolName)

	b.WriteString("Known context:\n")
	fmt.Fprintf(&b, "- environment: %s\n", req.Inferred.Environment)
	appType := analyzer.ApplicationType(req.Inferred.ApplicationType)
	fmt.Fprintf(&b, "- application type: %s (%s)\n", appType, analyzer.GetApplicationTypeConfig(appType).Description)
	fmt.Fprintf(&b, "- traffic pattern: %s\n", req.Inferred.TrafficPattern)
	fmt.Fprintf(&b, "- cost optimization: %s\n", req.Inferred.CostOptimization)
	fmt.Fprintf(&b, "- data availability: %s\n", req.Availability)
	if req.AvailabilityInfo != nil && req.AvailabilityInfo.EntityID != "" {
		fmt.Fprintf(&b, "- %s entity id: %s\n", backend, req.AvailabilityInfo.EntityID)
	}
	fmt.Fprintf(&b, "- scale target: %s\n", req.DeploymentName())
	fmt.Fprintf(&b, "- node architecture: %s\n", req.Architecture())

	fmt.Fprintf(&b, `
Strategy:
1. Start by checking data availability for %[1]s in %[2]s
2. If data exists, discover the entity ID and gather historical metrics
3. Analyze trends to understand traffic patterns (steady, peak hours, growth, etc.)
4. Get current performance and health data
5. Based on all information, generate an optimal scaling configuration with detailed rationale

Always include a comprehensive rationale explaining your reasoning based on the data you gathered.
`, req.App.Name, req.App.Namespace)

	return b.String()
}
