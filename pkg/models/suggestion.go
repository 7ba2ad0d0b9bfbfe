package models

import "time"

// Hard-coded values used when no configuration layer defines a field
const (
	DefaultMinReplicas        = 2
	DefaultMaxReplicas        = 6
	DefaultTargetCPU          = 70
	DefaultCPURequest         = "250m"
	DefaultMemoryRequest      = "256Mi"
	DefaultCPULimit           = "500m"
	DefaultMemoryLimit        = "512Mi"
	DefaultArchitecture       = "amd64"
	DefaultCapacityType       = "spot"
	DefaultCostOptimization   = "balanced"
	DefaultDeploymentStrategy = "rolling_update"
	DefaultTrafficPattern     = "steady"
)

// Resources holds container requests and limits as Kubernetes quantity strings
type Resources struct {
	CPURequest    string `json:"cpuRequest" yaml:"cpuRequest"`
	MemoryRequest string `json:"memoryRequest" yaml:"memoryRequest"`
	CPULimit      string `json:"cpuLimit" yaml:"cpuLimit"`
	MemoryLimit   string `json:"memoryLimit" yaml:"memoryLimit"`
}

// HPA is the horizontal pod autoscaler part of a suggestion
type HPA struct {
	MinReplicas                    int       `json:"minReplicas" yaml:"minReplicas"`
	MaxReplicas                    int       `json:"maxReplicas" yaml:"maxReplicas"`
	TargetCPUUtilizationPercentage int       `json:"targetCPUUtilizationPercentage" yaml:"targetCPUUtilizationPercentage"`
	ScaleTargetRefName             string    `json:"scaleTargetRefName" yaml:"scaleTargetRefName"`
	Resources                      Resources `json:"resources" yaml:"resources"`
}

// Karpenter holds node provisioning constraints
type Karpenter struct {
	Architecture string `json:"kubernetes.io/arch" yaml:"kubernetes.io/arch"`
	CapacityType string `json:"karpenter.sh/capacity-type" yaml:"karpenter.sh/capacity-type"`
}

// ScalingSuggestion must satisfy MinReplicas <= MaxReplicas before it leaves the engine
type ScalingSuggestion struct {
	HPA       HPA       `json:"hpa" yaml:"hpa"`
	Karpenter Karpenter `json:"karpenter" yaml:"karpenter"`
	Rationale string    `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// SuggestionSource tags where a returned suggestion came from
type SuggestionSource string

const (
	SourceLLMValidated SuggestionSource = "llm_validated"
	SourceStatic       SuggestionSource = "static"
)

// SuggestionResult is the envelope returned to callers
type SuggestionResult struct {
	Suggestion ScalingSuggestion `json:"suggestion" yaml:"suggestion"`
	Source     SuggestionSource  `json:"suggestion_source" yaml:"suggestion_source"`
}

// SuggestionRecord is a persisted suggestion result
type SuggestionRecord struct {
	ID               string
	ClusterID        string
	Application      string
	Namespace        string
	Environment      string
	ApplicationType  string
	DataAvailability DataAvailability
	Source           SuggestionSource
	Suggestion       ScalingSuggestion
	CreatedAt        time.Time
}
