package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/opscart/k8s-scaling-advisor/pkg/models"
)

var suggestionHeader = []string{
	"Namespace",
	"Application",
	"Environment",
	"Application Type",
	"Data Availability",
	"Source",
	"Scale Target",
	"Min Replicas",
	"Max Replicas",
	"Target CPU (%)",
	"CPU Request",
	"Memory Request",
	"CPU Limit",
	"Memory Limit",
	"Architecture",
	"Capacity Type",
	"Rationale",
}

func suggestionRow(ns, app, env, appType string, class models.DataAvailability, source models.SuggestionSource, s models.ScalingSuggestion) []string {
	hpa := s.HPA
	return []string{
		ns,
		app,
		env,
		appType,
		string(class),
		string(source),
		hpa.ScaleTargetRefName,
		strconv.Itoa(hpa.MinReplicas),
		strconv.Itoa(hpa.MaxReplicas),
		strconv.Itoa(hpa.TargetCPUUtilizationPercentage),
		hpa.Resources.CPURequest,
		hpa.Resources.MemoryRequest,
		hpa.Resources.CPULimit,
		hpa.Resources.MemoryLimit,
		s.Karpenter.Architecture,
		s.Karpenter.CapacityType,
		s.Rationale,
	}
}

// GenerateCSV creates a CSV report
func GenerateCSV(report *Report, writer io.Writer) error {
	w := csv.NewWriter(writer)

	if err := w.Write(suggestionHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, s := range report.Suggestions {
		row := suggestionRow(s.Application.Namespace, s.Application.Name,
			s.InferredContext.Environment, s.InferredContext.ApplicationType,
			s.DataAvailability, s.Source, s.Suggestion)
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// ExportHistoryCSV writes stored suggestions, one row each, prefixed by ID and time
func ExportHistoryCSV(records []*models.SuggestionRecord, writer io.Writer) error {
	w := csv.NewWriter(writer)

	header := append([]string{"ID", "Created At", "Cluster"}, suggestionHeader...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range records {
		row := append([]string{rec.ID, rec.CreatedAt.UTC().Format(time.RFC3339), rec.ClusterID},
			suggestionRow(rec.Namespace, rec.Application, rec.Environment, rec.ApplicationType,
				rec.DataAvailability, rec.Source, rec.Suggestion)...)
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// WriteHistory renders history stats and records as text
func WriteHistory(writer io.Writer, stats *models.HistoryStats, records []*models.SuggestionRecord) {
	fmt.Fprintf(writer, "Namespace %s, last %d days\n", stats.Namespace, stats.PeriodDays)
	fmt.Fprintf(writer, "  Suggestions:  %d (%d llm_validated, %d static, %.1f%% AI)\n",
		stats.TotalSuggestions, stats.LLMValidated, stats.Static, stats.AIAcceptanceRate)
	fmt.Fprintf(writer, "  Applications: %d\n", stats.UniqueApplications)
	for _, class := range []models.DataAvailability{models.FullHistoricalData, models.PartialData, models.NoHistoricalData} {
		if n := stats.ByAvailability[class]; n > 0 {
			fmt.Fprintf(writer, "  %-22s %d\n", string(class)+":", n)
		}
	}

	if len(records) == 0 {
		return
	}
	fmt.Fprintln(writer, "\nRecent:")
	for _, rec := range records {
		fmt.Fprintf(writer, "  %s  %-24s %-14s %d-%d replicas  %s\n",
			rec.CreatedAt.UTC().Format("2006-01-02 15:04"), rec.Application, rec.Source,
			rec.Suggestion.HPA.MinReplicas, rec.Suggestion.HPA.MaxReplicas, rec.ID)
	}
}
