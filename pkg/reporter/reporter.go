// Package reporter renders suggestion reports and stored history.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"gopkg.in/yaml.v3"
)

// ReportFormat represents the output format
type ReportFormat string

const (
	FormatText ReportFormat = "text"
	FormatJSON ReportFormat = "json"
	FormatYAML ReportFormat = "yaml"
	FormatCSV  ReportFormat = "csv"
)

// ParseFormat accepts the names used on the command line
func ParseFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Failure is an application that produced no suggestion
type Failure struct {
	Application models.ApplicationRef `json:"application" yaml:"application"`
	Error       string                `json:"error" yaml:"error"`
}

// Report contains all data for one suggest run
type Report struct {
	ClusterName      string                          `json:"cluster,omitempty" yaml:"cluster,omitempty"`
	GeneratedAt      time.Time                       `json:"generated_at" yaml:"generated_at"`
	Suggestions      []*models.SuggestionReport      `json:"suggestions" yaml:"suggestions"`
	Failures         []Failure                       `json:"failures,omitempty" yaml:"failures,omitempty"`
	EnvironmentStats map[string]*EnvironmentStats    `json:"environment_stats" yaml:"environment_stats"`
	SourceCounts     map[models.SuggestionSource]int `json:"source_counts" yaml:"source_counts"`
}

// EnvironmentStats holds statistics per environment
type EnvironmentStats struct {
	Environment    string  `json:"environment" yaml:"environment"`
	Applications   int     `json:"applications" yaml:"applications"`
	TotalMin       int     `json:"total_min_replicas" yaml:"total_min_replicas"`
	TotalMax       int     `json:"total_max_replicas" yaml:"total_max_replicas"`
	AIValidated    int     `json:"llm_validated" yaml:"llm_validated"`
	AvgTargetCPU   float64 `json:"avg_target_cpu" yaml:"avg_target_cpu"`
	targetCPUTotal int
}

// Generate builds a report from finished suggestions
func Generate(suggestions []*models.SuggestionReport, failures []Failure, clusterName string) *Report {
	report := &Report{
		ClusterName:      clusterName,
		GeneratedAt:      time.Now().UTC(),
		Suggestions:      suggestions,
		Failures:         failures,
		EnvironmentStats: make(map[string]*EnvironmentStats),
		SourceCounts:     make(map[models.SuggestionSource]int),
	}
	calculateStats(report)
	return report
}

func calculateStats(report *Report) {
	for _, s := range report.Suggestions {
		report.SourceCounts[s.Source]++

		env := s.InferredContext.Environment
		if env == "" {
			env = "unknown"
		}
		stat, ok := report.EnvironmentStats[env]
		if !ok {
			stat = &EnvironmentStats{Environment: env}
			report.EnvironmentStats[env] = stat
		}
		stat.Applications++
		stat.TotalMin += s.Suggestion.HPA.MinReplicas
		stat.TotalMax += s.Suggestion.HPA.MaxReplicas
		stat.targetCPUTotal += s.Suggestion.HPA.TargetCPUUtilizationPercentage
		if s.Source == models.SourceLLMValidated {
			stat.AIValidated++
		}
	}

	for _, stat := range report.EnvironmentStats {
		if stat.Applications > 0 {
			stat.AvgTargetCPU = float64(stat.targetCPUTotal) / float64(stat.Applications)
		}
	}
}

// Write renders the report in the requested format. CSV lists one row per suggestion.
func Write(w io.Writer, report *Report, format ReportFormat) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		return GenerateCSV(report, w)
	case FormatText, "":
		return writeText(w, report)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeText(w io.Writer, report *Report) error {
	for i, s := range report.Suggestions {
		if i > 0 {
			fmt.Fprintln(w)
		}
		writeSuggestion(w, s)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(w, "\n%s/%s: FAILED: %s\n", f.Application.Namespace, f.Application.Name, f.Error)
	}

	if len(report.Suggestions) > 1 {
		fmt.Fprintln(w, "\nSummary by environment:")
		for _, env := range sortedEnvironments(report) {
			stat := report.EnvironmentStats[env]
			fmt.Fprintf(w, "  %-12s apps=%d replicas=%d-%d ai=%d avg_target_cpu=%.0f%%\n",
				env, stat.Applications, stat.TotalMin, stat.TotalMax, stat.AIValidated, stat.AvgTargetCPU)
		}
	}
	return nil
}

func writeSuggestion(w io.Writer, s *models.SuggestionReport) {
	hpa := s.Suggestion.HPA
	fmt.Fprintf(w, "%s/%s [%s]\n", s.Application.Namespace, s.Application.Name, s.Source)
	fmt.Fprintf(w, "  Context:    %s %s, %s traffic, %s cost, data: %s\n",
		s.InferredContext.Environment, s.InferredContext.ApplicationType,
		s.InferredContext.TrafficPattern, s.InferredContext.CostOptimization, s.DataAvailability)
	fmt.Fprintf(w, "  HPA:        %s min=%d max=%d targetCPU=%d%%\n",
		hpa.ScaleTargetRefName, hpa.MinReplicas, hpa.MaxReplicas, hpa.TargetCPUUtilizationPercentage)
	fmt.Fprintf(w, "  Resources:  requests %s/%s, limits %s/%s\n",
		hpa.Resources.CPURequest, hpa.Resources.MemoryRequest, hpa.Resources.CPULimit, hpa.Resources.MemoryLimit)
	fmt.Fprintf(w, "  Karpenter:  arch=%s capacity=%s\n", s.Suggestion.Karpenter.Architecture, s.Suggestion.Karpenter.CapacityType)
	if replicas := s.CurrentState.CurrentReplicas; replicas != nil {
		fmt.Fprintf(w, "  Current:    %d replicas\n", *replicas)
	} else if s.CurrentState.Note != "" {
		fmt.Fprintf(w, "  Current:    %s\n", s.CurrentState.Note)
	}
	if m := s.MetricsAnalysis; m.AvgCPULast7d != nil {
		fmt.Fprintf(w, "  Metrics:    avg cpu %.1f, peak cpu %s, trend %s\n", *m.AvgCPULast7d, formatOptional(m.PeakCPULast7d), m.RequestRateTrend)
	}
	if s.Suggestion.Rationale != "" {
		fmt.Fprintf(w, "  Rationale:  %s\n", s.Suggestion.Rationale)
	}
}

func formatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *v)
}

func sortedEnvironments(report *Report) []string {
	envs := make([]string, 0, len(report.EnvironmentStats))
	for env := range report.EnvironmentStats {
		envs = append(envs, env)
	}
	sort.Strings(envs)
	return envs
}
