package models

// ApplicationRef identifies the workload a suggestion is requested for
type ApplicationRef struct {
	Name        string `json:"name" yaml:"name"`
	Namespace   string `json:"namespace" yaml:"namespace"`
	Cluster     string `json:"cluster,omitempty" yaml:"cluster,omitempty"`
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
}

// DeploymentContext carries optional caller overrides. Empty fields are inferred.
type DeploymentContext struct {
	Environment      string `json:"environment,omitempty" yaml:"environment,omitempty"`
	DeploymentName   string `json:"deployment_name,omitempty" yaml:"deployment_name,omitempty"`
	Architecture     string `json:"architecture,omitempty" yaml:"architecture,omitempty"`
	CostOptimization string `json:"cost_optimization,omitempty" yaml:"cost_optimization,omitempty"`
	TrafficPattern   string `json:"traffic_pattern,omitempty" yaml:"traffic_pattern,omitempty"`
	ExpectedLoad     string `json:"expected_load,omitempty" yaml:"expected_load,omitempty"`
}

// InferenceSource records where each inferred field came from
type InferenceSource struct {
	DeploymentType   string `json:"deployment_type" yaml:"deployment_type"`
	TrafficPattern   string `json:"traffic_pattern" yaml:"traffic_pattern"`
	CostOptimization string `json:"cost_optimization" yaml:"cost_optimization"`
	Environment      string `json:"environment,omitempty" yaml:"environment,omitempty"`
	ApplicationType  string `json:"application_type,omitempty" yaml:"application_type,omitempty"`
}

// InferredContext is derived once per request and never mutated afterwards
type InferredContext struct {
	DeploymentType   string          `json:"deployment_type" yaml:"deployment_type"`
	TrafficPattern   string          `json:"traffic_pattern" yaml:"traffic_pattern"`
	CostOptimization string          `json:"cost_optimization" yaml:"cost_optimization"`
	Environment      string          `json:"environment,omitempty" yaml:"environment,omitempty"`
	ApplicationType  string          `json:"application_type,omitempty" yaml:"application_type,omitempty"`
	InferenceSource  InferenceSource `json:"inference_source" yaml:"inference_source"`
}

// SuggestionRequest is everything the engine needs for one suggestion.
// DeploymentName and Architecture are already resolved (override or default).
type SuggestionRequest struct {
	App              ApplicationRef
	Deployment       DeploymentContext
	Inferred         InferredContext
	Availability     DataAvailability
	AvailabilityInfo *AvailabilityDetails
}

// DeploymentName returns the HPA scale target, defaulting to the app name
func (r *SuggestionRequest) DeploymentName() string {
	if r.Deployment.DeploymentName != "" {
		return r.Deployment.DeploymentName
	}
	return r.App.Name
}

// Architecture returns the requested node architecture, defaulting to amd64
func (r *SuggestionRequest) Architecture() string {
	if r.Deployment.Architecture != "" {
		return r.Deployment.Architecture
	}
	return DefaultArchitecture
}

// TargetEntity is the "<app>:<environment>" label used in prompts and logs
func (r *SuggestionRequest) TargetEntity() string {
	return r.App.Name + ":" + r.Inferred.Environment
}
