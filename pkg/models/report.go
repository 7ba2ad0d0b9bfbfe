package models

// CurrentState is what the cluster reports for the workload right now.
// Nil fields mean the value could not be observed.
type CurrentState struct {
	CurrentReplicas          *int32     `json:"current_replicas" yaml:"current_replicas"`
	CurrentCPUUtilization    *int32     `json:"current_cpu_utilization" yaml:"current_cpu_utilization"`
	CurrentMemoryUtilization *int32     `json:"current_memory_utilization" yaml:"current_memory_utilization"`
	CurrentResources         *Resources `json:"current_resources" yaml:"current_resources"`
	Note                     string     `json:"note,omitempty" yaml:"note,omitempty"`
}

// MetricsAnalysis summarizes the telemetry behind a suggestion
type MetricsAnalysis struct {
	AvgCPULast7d     *float64 `json:"avg_cpu_last_7d" yaml:"avg_cpu_last_7d"`
	PeakCPULast7d    *float64 `json:"peak_cpu_last_7d" yaml:"peak_cpu_last_7d"`
	AvgMemoryLast7d  *float64 `json:"avg_memory_last_7d" yaml:"avg_memory_last_7d"`
	RequestRateTrend string   `json:"request_rate_trend" yaml:"request_rate_trend"`
	PodRestartRate   string   `json:"pod_restart_rate" yaml:"pod_restart_rate"`
	QueryUsed        string   `json:"query_used,omitempty" yaml:"query_used,omitempty"`
	QueryResult      string   `json:"query_result,omitempty" yaml:"query_result,omitempty"`
	FallbackStrategy string   `json:"fallback_strategy,omitempty" yaml:"fallback_strategy,omitempty"`
}

// SuggestionReport is the enhanced response: the plain envelope plus the
// context that produced it.
type SuggestionReport struct {
	Application      ApplicationRef       `json:"application" yaml:"application"`
	Source           SuggestionSource     `json:"suggestion_source" yaml:"suggestion_source"`
	DataAvailability DataAvailability     `json:"data_availability" yaml:"data_availability"`
	AvailabilityInfo *AvailabilityDetails `json:"data_availability_details,omitempty" yaml:"data_availability_details,omitempty"`
	InferredContext  InferredContext      `json:"inferred_context" yaml:"inferred_context"`
	CurrentState     CurrentState         `json:"current_state" yaml:"current_state"`
	MetricsAnalysis  MetricsAnalysis      `json:"metrics_analysis" yaml:"metrics_analysis"`
	Suggestion       ScalingSuggestion    `json:"suggestion" yaml:"suggestion"`
}

// Result returns the plain envelope
func (r *SuggestionReport) Result() SuggestionResult {
	return SuggestionResult{Suggestion: r.Suggestion, Source: r.Source}
}
