package main

import (
	"context"
	"fmt"
	"os"

	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/reporter"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit, days int
	var app string
	cmd := &cobra.Command{
		Use:   "history <namespace>",
		Short: "View past suggestions for a namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), args[0], app, limit, days)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of suggestions to show")
	cmd.Flags().IntVar(&days, "days", 30, "Period for the summary")
	cmd.Flags().StringVar(&app, "app", "", "Show the replica trend of one application")
	return cmd
}

func newExportCmd() *cobra.Command {
	var namespace, output string
	var limit int
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored suggestions as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), namespace, output, limit)
		},
	}
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace to export")
	cmd.Flags().StringVar(&output, "file", "", "Write to file instead of stdout")
	cmd.Flags().IntVar(&limit, "limit", 1000, "Maximum rows")
	_ = cmd.MarkFlagRequired("namespace")
	return cmd
}

func runHistory(ctx context.Context, namespace, app string, limit, days int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sec, err := loadSecrets()
	if err != nil {
		return err
	}
	store, err := openStore(ctx, sec)
	if err != nil {
		return err
	}
	defer store.Close()

	if app != "" {
		trend, err := store.GetApplicationHistory(ctx, namespace, app, limit)
		if err != nil {
			return err
		}
		printTrend(trend)
		return nil
	}

	stats, err := store.GetHistoryStats(ctx, namespace, days)
	if err != nil {
		return err
	}
	records, err := store.ListSuggestions(ctx, namespace, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Printf("No suggestions found for namespace %s\n", namespace)
		return nil
	}
	reporter.WriteHistory(os.Stdout, stats, records)
	return nil
}

func printTrend(trend *models.ApplicationTrend) {
	if len(trend.Records) == 0 {
		fmt.Printf("No suggestions found for %s/%s\n", trend.Namespace, trend.Application)
		return
	}
	fmt.Printf("%s/%s: %d suggestions (%d llm_validated, %d static)\n", trend.Namespace, trend.Application,
		len(trend.Records), trend.Sources[models.SourceLLMValidated], trend.Sources[models.SourceStatic])
	for i, rec := range trend.Records {
		fmt.Printf("  %s  %d-%d replicas  %s\n", rec.CreatedAt.UTC().Format("2006-01-02 15:04"),
			trend.MinReplicas[i], trend.MaxReplicas[i], rec.Source)
	}
}

func runExport(ctx context.Context, namespace, output string, limit int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sec, err := loadSecrets()
	if err != nil {
		return err
	}
	store, err := openStore(ctx, sec)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListSuggestions(ctx, namespace, limit)
	if err != nil {
		return err
	}

	w := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := reporter.ExportHistoryCSV(records, w); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "Exported %d suggestions to %s\n", len(records), output)
	}
	return nil
}
