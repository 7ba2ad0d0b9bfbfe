// Package suggestion validates scaling suggestions. AI-produced and static
// suggestions go through the same Validate function.
package suggestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opscart/k8s-scaling-advisor/pkg/apperrors"
	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"k8s.io/apimachinery/pkg/api/resource"
)

// Plausibility bounds
const (
	MinTargetCPU       = 1
	MaxTargetCPU       = 100
	MaxReplicasCeiling = 1000
)

var (
	knownArchitectures = []string{"amd64", "arm64"}
	knownCapacityTypes = []string{"spot", "on-demand", "reserved"}
)

// Validate checks every schema invariant. Violations are reported, never repaired.
func Validate(s *models.ScalingSuggestion) error {
	if s == nil {
		return &apperrors.ValidationError{Problems: []string{"suggestion is empty"}}
	}

	var problems []string
	hpa := s.HPA

	if hpa.MinReplicas < 1 {
		problems = append(problems, fmt.Sprintf("minReplicas must be >= 1, got %d", hpa.MinReplicas))
	}
	if hpa.MaxReplicas < 1 || hpa.MaxReplicas > MaxReplicasCeiling {
		problems = append(problems, fmt.Sprintf("maxReplicas must be between 1 and %d, got %d", MaxReplicasCeiling, hpa.MaxReplicas))
	}
	if hpa.MinReplicas > hpa.MaxReplicas {
		problems = append(problems, fmt.Sprintf("maxReplicas (%d) must be greater than or equal to minReplicas (%d)", hpa.MaxReplicas, hpa.MinReplicas))
	}
	if hpa.TargetCPUUtilizationPercentage < MinTargetCPU || hpa.TargetCPUUtilizationPercentage > MaxTargetCPU {
		problems = append(problems, fmt.Sprintf("targetCPUUtilizationPercentage must be between %d and %d, got %d",
			MinTargetCPU, MaxTargetCPU, hpa.TargetCPUUtilizationPercentage))
	}
	if strings.TrimSpace(hpa.ScaleTargetRefName) == "" {
		problems = append(problems, "scaleTargetRefName is required")
	}

	problems = append(problems, validateResources(hpa.Resources)...)

	if !contains(knownArchitectures, s.Karpenter.Architecture) {
		problems = append(problems, fmt.Sprintf("kubernetes.io/arch must be one of %v, got %q", knownArchitectures, s.Karpenter.Architecture))
	}
	if !contains(knownCapacityTypes, s.Karpenter.CapacityType) {
		problems = append(problems, fmt.Sprintf("karpenter.sh/capacity-type must be one of %v, got %q", knownCapacityTypes, s.Karpenter.CapacityType))
	}

	if len(problems) > 0 {
		return &apperrors.ValidationError{Problems: problems}
	}
	return nil
}

func validateResources(r models.Resources) []string {
	var problems []string

	cpuReq, err := parseQuantity("cpuRequest", r.CPURequest)
	if err != nil {
		problems = append(problems, err.Error())
	}
	cpuLim, err := parseQuantity("cpuLimit", r.CPULimit)
	if err != nil {
		problems = append(problems, err.Error())
	}
	memReq, err := parseQuantity("memoryRequest", r.MemoryRequest)
	if err != nil {
		problems = append(problems, err.Error())
	}
	memLim, err := parseQuantity("memoryLimit", r.MemoryLimit)
	if err != nil {
		problems = append(problems, err.Error())
	}

	if cpuReq != nil && cpuLim != nil && cpuReq.Cmp(*cpuLim) > 0 {
		problems = append(problems, fmt.Sprintf("cpuRequest (%s) exceeds cpuLimit (%s)", r.CPURequest, r.CPULimit))
	}
	if memReq != nil && memLim != nil && memReq.Cmp(*memLim) > 0 {
		problems = append(problems, fmt.Sprintf("memoryRequest (%s) exceeds memoryLimit (%s)", r.MemoryRequest, r.MemoryLimit))
	}
	return problems
}

func parseQuantity(field, value string) (*resource.Quantity, error) {
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%s is required", field)
	}
	q, err := resource.ParseQuantity(value)
	if err != nil {
		return nil, fmt.Errorf("%s %q is not a valid quantity", field, value)
	}
	if q.Sign() <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %q", field, value)
	}
	return &q, nil
}

var architectureAliases = map[string]string{
	"x86_64":  "amd64",
	"x86-64":  "amd64",
	"aarch64": "arm64",
}

// NormalizeArchitecture maps a caller-supplied node architecture onto one the
// validator accepts. The second result is false when v is not recognised.
func NormalizeArchitecture(v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if alias, ok := architectureAliases[v]; ok {
		v = alias
	}
	if !contains(knownArchitectures, v) {
		return "", false
	}
	return v, true
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// candidate mirrors the wire shape with pointers so missing fields can be told
// apart from zero values.
type candidate struct {
	HPA *struct {
		MinReplicas                    *int    `json:"minReplicas"`
		MaxReplicas                    *int    `json:"maxReplicas"`
		TargetCPUUtilizationPercentage *int    `json:"targetCPUUtilizationPercentage"`
		ScaleTargetRefName             *string `json:"scaleTargetRefName"`
		Resources                      *struct {
			CPURequest    *string `json:"cpuRequest"`
			MemoryRequest *string `json:"memoryRequest"`
			CPULimit      *string `json:"cpuLimit"`
			MemoryLimit   *string `json:"memoryLimit"`
		} `json:"resources"`
	} `json:"hpa"`
	Karpenter *struct {
		Architecture *string `json:"kubernetes.io/arch"`
		CapacityType *string `json:"karpenter.sh/capacity-type"`
	} `json:"karpenter"`
	Rationale *string `json:"rationale"`
}

// Decode parses untrusted wire JSON into a suggestion and validates it
func Decode(data []byte) (*models.ScalingSuggestion, error) {
	var c candidate
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&c); err != nil {
		return nil, &apperrors.ValidationError{Problems: []string{fmt.Sprintf("malformed suggestion: %v", err)}}
	}

	var missing []string
	req := func(name string, present bool) {
		if !present {
			missing = append(missing, name+" is required")
		}
	}

	s := &models.ScalingSuggestion{}
	req("hpa", c.HPA != nil)
	if c.HPA != nil {
		req("hpa.minReplicas", c.HPA.MinReplicas != nil)
		req("hpa.maxReplicas", c.HPA.MaxReplicas != nil)
		req("hpa.targetCPUUtilizationPercentage", c.HPA.TargetCPUUtilizationPercentage != nil)
		req("hpa.scaleTargetRefName", c.HPA.ScaleTargetRefName != nil)
		req("hpa.resources", c.HPA.Resources != nil)

		s.HPA.MinReplicas = derefInt(c.HPA.MinReplicas)
		s.HPA.MaxReplicas = derefInt(c.HPA.MaxReplicas)
		s.HPA.TargetCPUUtilizationPercentage = derefInt(c.HPA.TargetCPUUtilizationPercentage)
		s.HPA.ScaleTargetRefName = derefString(c.HPA.ScaleTargetRefName)
		if r := c.HPA.Resources; r != nil {
			req("hpa.resources.cpuRequest", r.CPURequest != nil)
			req("hpa.resources.memoryRequest", r.MemoryRequest != nil)
			req("hpa.resources.cpuLimit", r.CPULimit != nil)
			req("hpa.resources.memoryLimit", r.MemoryLimit != nil)
			s.HPA.Resources = models.Resources{
				CPURequest:    derefString(r.CPURequest),
				MemoryRequest: derefString(r.MemoryRequest),
				CPULimit:      derefString(r.CPULimit),
				MemoryLimit:   derefString(r.MemoryLimit),
			}
		}
	}

	req("karpenter", c.Karpenter != nil)
	if c.Karpenter != nil {
		req("karpenter.kubernetes.io/arch", c.Karpenter.Architecture != nil)
		req("karpenter.karpenter.sh/capacity-type", c.Karpenter.CapacityType != nil)
		s.Karpenter.Architecture = derefString(c.Karpenter.Architecture)
		s.Karpenter.CapacityType = derefString(c.Karpenter.CapacityType)
	}
	s.Rationale = derefString(c.Rationale)

	if len(missing) > 0 {
		return nil, &apperrors.ValidationError{Problems: missing}
	}
	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Encode renders a suggestion in the wire JSON shape
func Encode(s *models.ScalingSuggestion) ([]byte, error) {
	return json.Marshal(s)
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
