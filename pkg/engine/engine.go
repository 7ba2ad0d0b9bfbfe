// Package engine produces scaling suggestions. The static suggestion is
// always computed first; the reasoning backend may replace it with a
// validated suggestion of its own.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opscart/k8s-scaling-advisor/pkg/analyzer"
	"github.com/opscart/k8s-scaling-advisor/pkg/apperrors"
	"github.com/opscart/k8s-scaling-advisor/pkg/availability"
	"github.com/opscart/k8s-scaling-advisor/pkg/cluster"
	"github.com/opscart/k8s-scaling-advisor/pkg/config"
	"github.com/opscart/k8s-scaling-advisor/pkg/fallback"
	"github.com/opscart/k8s-scaling-advisor/pkg/metrics"
	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/reasoning"
	"github.com/opscart/k8s-scaling-advisor/pkg/suggestion"
	"github.com/opscart/k8s-scaling-advisor/pkg/telemetry"
	"github.com/opscart/k8s-scaling-advisor/pkg/tools"
	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes"
)

// Options wires the engine. Reasoner and Cluster may be nil.
type Options struct {
	Policy   *config.Policy
	Gateway  telemetry.Gateway
	Reasoner reasoning.Client
	Cluster  *cluster.Clients
	Logger   *zap.Logger
}

// Engine is safe for concurrent use; every request owns its own conversation.
type Engine struct {
	policy     *config.Policy
	gateway    telemetry.Gateway
	reasoner   reasoning.Client
	classifier *availability.Classifier
	inferrer   *analyzer.Inferrer
	resolver   *fallback.Resolver
	inspector  *cluster.Inspector
	logger     *zap.Logger
}

// New verifies the policy and builds the engine
func New(opts Options) (*Engine, error) {
	if opts.Gateway == nil {
		return nil, apperrors.NewConfigurationError("engine", "a telemetry gateway is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := opts.Policy
	if policy == nil {
		policy = &config.Policy{}
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := fallback.VerifyPolicy(policy); err != nil {
		return nil, err
	}
	if policy.Features.EnableAIShadowAnalyst && opts.Reasoner == nil {
		logger.Warn("enable_ai_shadow_analyst is set but no reasoning backend is configured; only static suggestions will be returned")
	}

	var kube kubernetes.Interface
	var inspector *cluster.Inspector
	if opts.Cluster != nil && opts.Cluster.Kube != nil {
		kube = opts.Cluster.Kube
		inspector = cluster.NewInspector(opts.Cluster.Kube, opts.Cluster.Metrics, logger)
	}

	return &Engine{
		policy:     policy,
		gateway:    opts.Gateway,
		reasoner:   opts.Reasoner,
		classifier: availability.NewClassifier(opts.Gateway, logger),
		inferrer:   analyzer.NewInferrer(kube, opts.Gateway, logger),
		resolver:   fallback.NewResolver(policy, logger),
		inspector:  inspector,
		logger:     logger,
	}, nil
}

// AIEnabled reports whether the reasoning path will be attempted
func (e *Engine) AIEnabled() bool {
	return e.policy.Features.EnableAIShadowAnalyst && e.reasoner != nil
}

// GetSuggestion returns a validated suggestion and the context behind it.
// Only malformed input (RouterError) or an invalid static suggestion are
// returned as errors; every reasoning-path failure degrades to static.
func (e *Engine) GetSuggestion(ctx context.Context, app models.ApplicationRef, dc models.DeploymentContext) (*models.SuggestionReport, error) {
	start := time.Now()
	app.Name = strings.TrimSpace(app.Name)
	app.Namespace = strings.TrimSpace(app.Namespace)
	if app.Name == "" || app.Namespace == "" {
		return nil, apperrors.NewRouterError("Missing required fields: application.name and application.namespace")
	}

	logger := e.logger.With(zap.String("app", app.Name), zap.String("namespace", app.Namespace))

	if dc.Architecture != "" {
		arch, ok := suggestion.NormalizeArchitecture(dc.Architecture)
		if !ok {
			logger.Warn("unknown deployment architecture, using default",
				zap.String("architecture", dc.Architecture),
				zap.String("default", models.DefaultArchitecture))
			arch = models.DefaultArchitecture
		}
		dc.Architecture = arch
	}

	class, details := e.classifier.Classify(ctx, app.Name, app.Namespace)
	metrics.DataAvailabilityTotal.WithLabelValues(string(class)).Inc()

	req := &models.SuggestionRequest{
		App:              app,
		Deployment:       dc,
		Availability:     class,
		AvailabilityInfo: details,
	}
	req.Inferred = e.inferrer.Infer(ctx, app, dc, class, details)

	static := e.resolver.Resolve(req)
	if err := suggestion.Validate(&static.Suggestion); err != nil {
		return nil, fmt.Errorf("static suggestion for %s is invalid: %w", app.Name, err)
	}

	report := &models.SuggestionReport{
		Application:      app,
		Source:           models.SourceStatic,
		DataAvailability: class,
		AvailabilityInfo: details,
		InferredContext:  req.Inferred,
		Suggestion:       static.Suggestion,
	}
	report.Application.Environment = req.Inferred.Environment

	strategy := static.Strategy
	if s, ok := e.attemptAI(ctx, req, static.Suggestion.Karpenter, logger); ok {
		report.Source = models.SourceLLMValidated
		report.Suggestion = *s
		strategy = ""
	} else {
		report.Suggestion.Rationale = StaticRationale(req, e.gateway.Name())
	}

	var snap *cluster.Snapshot
	report.CurrentState, snap = e.currentState(ctx, req)
	report.MetricsAnalysis = e.metricsAnalysis(ctx, req, snap, strategy)

	metrics.SuggestionsTotal.WithLabelValues(string(report.Source)).Inc()
	metrics.SuggestionDuration.WithLabelValues(string(report.Source)).Observe(time.Since(start).Seconds())
	logger.Info("suggestion ready",
		zap.String("source", string(report.Source)),
		zap.String("availability", string(class)),
		zap.String("environment", req.Inferred.Environment),
		zap.Int("min_replicas", report.Suggestion.HPA.MinReplicas),
		zap.Int("max_replicas", report.Suggestion.HPA.MaxReplicas))
	return report, nil
}

// Suggest returns only the plain envelope
func (e *Engine) Suggest(ctx context.Context, app models.ApplicationRef, dc models.DeploymentContext) (*models.SuggestionResult, error) {
	report, err := e.GetSuggestion(ctx, app, dc)
	if err != nil {
		return nil, err
	}
	result := report.Result()
	return &result, nil
}

// attemptAI runs the reasoning loop. The decision table is:
//
//	Submitted  -> AI suggestion (already validated by the submission tool)
//	Exhausted  -> static
//	Aborted    -> static, error logged
func (e *Engine) attemptAI(ctx context.Context, req *models.SuggestionRequest, karpenter models.Karpenter, logger *zap.Logger) (*models.ScalingSuggestion, bool) {
	if !e.AIEnabled() {
		return nil, false
	}

	catalog := tools.NewCatalog(e.gateway, tools.SubmissionDefaults{
		ScaleTargetRefName: req.DeploymentName(),
		Karpenter:          models.Karpenter{Architecture: req.Architecture(), CapacityType: karpenter.CapacityType},
	}, logger)
	loop := NewLoop(e.reasoner, catalog, logger)
	res := loop.Run(ctx, BuildPrompt(req, e.gateway.Name()))

	switch res.State {
	case StateSubmitted:
		if err := suggestion.Validate(res.Suggestion); err != nil {
			logger.Error("submitted suggestion failed revalidation", zap.Error(err))
			return nil, false
		}
		fields := []zap.Field{zap.Int("rounds", res.Rounds)}
		if res.Confidence != nil {
			fields = append(fields, zap.Float64("confidence", *res.Confidence))
		}
		logger.Info("using AI suggestion", fields...)
		return res.Suggestion, true
	case StateAborted:
		logger.Warn("AI suggestion workflow failed, using static suggestion",
			zap.Bool("transient", apperrors.IsTransient(res.Err)),
			zap.Error(res.Err))
	default:
		logger.Info("AI produced no suggestion, using static suggestion",
			zap.String("state", string(res.State)),
			zap.Int("rounds", res.Rounds))
	}
	return nil, false
}
