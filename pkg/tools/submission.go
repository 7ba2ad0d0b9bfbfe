package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opscart/k8s-scaling-advisor/pkg/apperrors"
	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/reasoning"
	"github.com/opscart/k8s-scaling-advisor/pkg/suggestion"
)

// SubmitToolName is the terminal tool
const SubmitToolName = "submit_scaling_suggestion"

// SubmissionDefaults fill the fields a submission may omit
type SubmissionDefaults struct {
	ScaleTargetRefName string
	Karpenter          models.Karpenter
}

func floatPtr(v float64) *float64 { return &v }

var submissionParams = []Parameter{
	{
		Name: "hpa", Type: "object", Required: true,
		Description: "HPA configuration with minReplicas, maxReplicas, targetCPUUtilizationPercentage and optional scaleTargetRefName",
		Schema: &reasoning.PropertySchema{
			Properties: map[string]reasoning.PropertySchema{
				"minReplicas":                    {Type: "integer", Minimum: floatPtr(1)},
				"maxReplicas":                    {Type: "integer", Minimum: floatPtr(1), Maximum: floatPtr(suggestion.MaxReplicasCeiling)},
				"targetCPUUtilizationPercentage": {Type: "integer", Minimum: floatPtr(suggestion.MinTargetCPU), Maximum: floatPtr(suggestion.MaxTargetCPU)},
				"scaleTargetRefName":             {Type: "string"},
			},
			Required: []string{"minReplicas", "maxReplicas", "targetCPUUtilizationPercentage"},
		},
	},
	{
		Name: "resources", Type: "object", Required: true,
		Description: "Container resources as Kubernetes quantities: cpuRequest, memoryRequest, cpuLimit, memoryLimit",
		Schema: &reasoning.PropertySchema{
			Properties: map[string]reasoning.PropertySchema{
				"cpuRequest":    {Type: "string"},
				"memoryRequest": {Type: "string"},
				"cpuLimit":      {Type: "string"},
				"memoryLimit":   {Type: "string"},
			},
			Required: []string{"cpuRequest", "memoryRequest", "cpuLimit", "memoryLimit"},
		},
	},
	{
		Name: "karpenter", Type: "object",
		Description: "Optional node constraints: kubernetes.io/arch (amd64|arm64) and karpenter.sh/capacity-type (spot|on-demand|reserved)",
		Schema: &reasoning.PropertySchema{
			Properties: map[string]reasoning.PropertySchema{
				"kubernetes.io/arch":         {Type: "string", Enum: []string{"amd64", "arm64"}},
				"karpenter.sh/capacity-type": {Type: "string", Enum: []string{"spot", "on-demand", "reserved"}},
			},
		},
	},
	{Name: "rationale", Type: "string", Description: "Detailed explanation of the scaling recommendation", Required: true},
	{Name: "confidence_score", Type: "number", Description: "Confidence score between 0 and 1", Default: 0.8},
}

// submit converts the arguments to the suggestion wire shape and runs them
// through the shared decoder, so AI output is validated exactly like any
// other suggestion.
func (c *Catalog) submit(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
	wire, err := submissionWire(args, c.defaults)
	if err != nil {
		return nil, &ToolError{Tool: SubmitToolName, Message: err.Error(), Err: err}
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}
	s, err := suggestion.Decode(data)
	if err != nil {
		return nil, &ToolError{Tool: SubmitToolName, Message: err.Error(), Err: err}
	}

	confidence, err := confidenceArg(args)
	if err != nil {
		return nil, &ToolError{Tool: SubmitToolName, Message: err.Error(), Err: err}
	}

	content, err := json.Marshal(models.SuggestionResult{Suggestion: *s, Source: models.SourceLLMValidated})
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission result: %w", err)
	}
	return &Outcome{Content: string(content), Suggestion: s, Confidence: confidence}, nil
}

// submissionWire nests resources under hpa and fills scaleTargetRefName and
// karpenter from the defaults when absent.
func submissionWire(args map[string]interface{}, defaults SubmissionDefaults) (map[string]interface{}, error) {
	hpaArg, ok := args["hpa"].(map[string]interface{})
	if !ok {
		return nil, &apperrors.ValidationError{Problems: []string{"hpa is required and must be an object"}}
	}

	hpa := make(map[string]interface{}, len(hpaArg)+2)
	for k, v := range hpaArg {
		hpa[k] = v
	}
	if resources, ok := args["resources"]; ok {
		hpa["resources"] = resources
	}
	if name, ok := hpa["scaleTargetRefName"].(string); !ok || name == "" {
		hpa["scaleTargetRefName"] = defaults.ScaleTargetRefName
	}

	wire := map[string]interface{}{"hpa": hpa}

	if karpenter, ok := args["karpenter"].(map[string]interface{}); ok {
		merged := map[string]interface{}{
			"kubernetes.io/arch":         defaults.Karpenter.Architecture,
			"karpenter.sh/capacity-type": defaults.Karpenter.CapacityType,
		}
		for k, v := range karpenter {
			merged[k] = v
		}
		wire["karpenter"] = merged
	} else {
		wire["karpenter"] = defaults.Karpenter
	}

	if rationale, ok := args["rationale"]; ok {
		wire["rationale"] = rationale
	} else if rationale, ok := args["ai_rationale"]; ok {
		wire["rationale"] = rationale
	}
	return wire, nil
}

func confidenceArg(args map[string]interface{}) (*float64, error) {
	v, ok := args["confidence_score"]
	if !ok || v == nil {
		return nil, nil
	}
	score, ok := v.(float64)
	if !ok || score < 0 || score > 1 {
		return nil, &apperrors.ValidationError{Problems: []string{fmt.Sprintf("confidence_score must be a number between 0 and 1, got %v", v)}}
	}
	return &score, nil
}
