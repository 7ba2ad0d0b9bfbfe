package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/reporter"
	"github.com/opscart/k8s-scaling-advisor/pkg/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type suggestOptions struct {
	apps        []string
	namespace   string
	output      string
	save        bool
	parallelism int
	dc          models.DeploymentContext
}

func newSuggestCmd() *cobra.Command {
	opts := &suggestOptions{}
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest scaling configuration for one or more applications",
		Example: `  scaling-advisor suggest --app shop/checkout-api
  scaling-advisor suggest -n shop --app cart --app search -o json --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.apps, "app", nil, "Application as namespace/name, or name with --namespace (repeatable)")
	cmd.Flags().StringVarP(&opts.namespace, "namespace", "n", "", "Default namespace for --app values without one")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output format: text, json, yaml, csv (default from config)")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Save suggestions to the history database")
	cmd.Flags().IntVar(&opts.parallelism, "parallelism", 4, "Maximum applications evaluated at once")
	cmd.Flags().StringVar(&opts.dc.Environment, "environment", "", "Environment override")
	cmd.Flags().StringVar(&opts.dc.DeploymentName, "deployment-name", "", "Scale target name override (single app only)")
	cmd.Flags().StringVar(&opts.dc.Architecture, "architecture", "", "Node architecture override")
	cmd.Flags().StringVar(&opts.dc.CostOptimization, "cost-optimization", "", "Cost optimization override: aggressive, balanced, conservative")
	cmd.Flags().StringVar(&opts.dc.TrafficPattern, "traffic-pattern", "", "Traffic pattern override")
	_ = cmd.MarkFlagRequired("app")
	return cmd
}

// parseApps turns --app values into references
func parseApps(values []string, defaultNamespace string) ([]models.ApplicationRef, error) {
	refs := make([]models.ApplicationRef, 0, len(values))
	for _, v := range values {
		ns, name := defaultNamespace, strings.TrimSpace(v)
		if i := strings.Index(name, "/"); i >= 0 {
			ns, name = strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+1:])
		}
		if ns == "" || name == "" {
			return nil, fmt.Errorf("invalid --app %q: expected namespace/name or --namespace", v)
		}
		refs = append(refs, models.ApplicationRef{Name: name, Namespace: ns})
	}
	return refs, nil
}

func runSuggest(ctx context.Context, opts *suggestOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	refs, err := parseApps(opts.apps, opts.namespace)
	if err != nil {
		return err
	}
	if opts.dc.DeploymentName != "" && len(refs) > 1 {
		return fmt.Errorf("--deployment-name applies to a single --app")
	}

	format := cfg.OutputFormat
	if opts.output != "" {
		format = opts.output
	}
	reportFormat, err := reporter.ParseFormat(format)
	if err != nil {
		return err
	}

	sec, err := loadSecrets()
	if err != nil {
		return err
	}
	eng, err := buildEngine(sec)
	if err != nil {
		return err
	}

	var store storage.Store
	if opts.save {
		pg, err := openStore(ctx, sec)
		if err != nil {
			return err
		}
		defer pg.Close()
		store = pg
	}

	reports := make([]*models.SuggestionReport, len(refs))
	failed := make([]error, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.parallelism, 1))
	for i, ref := range refs {
		g.Go(func() error {
			report, err := eng.GetSuggestion(gctx, ref, opts.dc)
			if err != nil {
				failed[i] = err
				return nil
			}
			reports[i] = report
			if store != nil {
				if err := store.SaveSuggestion(gctx, storage.NewRecord(cfg.ClusterID, report)); err != nil {
					logger.Warn("failed to save suggestion", zap.String("app", ref.Name), zap.Error(err))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var done []*models.SuggestionReport
	var failures []reporter.Failure
	for i, ref := range refs {
		if failed[i] != nil {
			failures = append(failures, reporter.Failure{Application: ref, Error: failed[i].Error()})
			continue
		}
		done = append(done, reports[i])
	}

	report := reporter.Generate(done, failures, cfg.ClusterID)
	if err := reporter.Write(os.Stdout, report, reportFormat); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if len(done) == 0 {
		return fmt.Errorf("no suggestions produced")
	}
	return nil
}
