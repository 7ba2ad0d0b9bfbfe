package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/reasoning"
	"github.com/opscart/k8s-scaling-advisor/pkg/telemetry"
	"go.uber.org/zap"
)

var entityParam = Parameter{Name: "entity_id", Type: "string", Description: "The ID of the service to query.", Required: true}

var appParams = []Parameter{
	{Name: "app_name", Type: "string", Description: "The application name.", Required: true},
	{Name: "namespace", Type: "string", Description: "The Kubernetes namespace.", Required: true},
}

var daysParams = []Parameter{
	{Name: "entity_id", Type: "string", Description: "The telemetry entity ID.", Required: true},
	{Name: "days", Type: "integer", Description: "Number of days to analyze (default: 7)", Default: telemetry.DefaultLookbackDays},
}

// definitions is fixed for the life of the process
var definitions = []Definition{
	{KindPerformanceMetrics, "get_performance_metrics", "Gets key performance metrics for a service.", CategoryQuery, []Parameter{entityParam}},
	{KindHealthEvents, "get_health_events", "Gets health events (e.g., problems, OOM kills) for a service.", CategoryQuery, []Parameter{entityParam}},
	{KindServiceLevelObjectives, "get_service_level_objectives", "Gets the status of all SLOs related to a service.", CategoryQuery, []Parameter{entityParam}},
	{KindDataAvailability, "check_data_availability", "Check what historical data is available for an application.", CategoryQuery, appParams},
	{KindDiscoverEntity, "discover_entity", "Discover the telemetry entity ID for an application.", CategoryQuery, appParams},
	{KindHistoricalMetrics, "get_historical_metrics", "Get historical metrics for trend analysis over specified days.", CategoryQuery, daysParams},
	{KindTrendAnalysis, "get_trend_analysis", "Analyze metrics trends to infer traffic patterns and scaling needs.", CategoryAnalysis, daysParams},
	{KindSubmitSuggestion, SubmitToolName, "Submits the final proposed scaling suggestion with rationale.", CategorySubmission, submissionParams},
}

// Definitions returns every tool definition in catalog order
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup finds a definition by tool name
func Lookup(name string) (Definition, bool) {
	for _, d := range definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// String returns the tool name for a kind
func (k Kind) String() string {
	for _, d := range definitions {
		if d.Kind == k {
			return d.Name
		}
	}
	return "unknown"
}

// Outcome is the result of one tool call. Suggestion is set only for an
// accepted submission.
type Outcome struct {
	Content    string
	Suggestion *models.ScalingSuggestion
	Confidence *float64
}

type handler func(ctx context.Context, args map[string]interface{}) (*Outcome, error)

// Catalog binds each tool to a gateway method for one request
type Catalog struct {
	gateway  telemetry.Gateway
	defaults SubmissionDefaults
	handlers map[string]handler
	rendered []reasoning.Tool
	logger   *zap.Logger
}

// NewCatalog builds the dispatch table. defaults fill optional submission fields.
func NewCatalog(gateway telemetry.Gateway, defaults SubmissionDefaults, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Catalog{gateway: gateway, defaults: defaults, logger: logger}

	byKind := map[Kind]handler{
		KindPerformanceMetrics:     c.performanceMetrics,
		KindHealthEvents:           c.healthEvents,
		KindServiceLevelObjectives: c.serviceLevelObjectives,
		KindDataAvailability:       c.dataAvailability,
		KindDiscoverEntity:         c.discoverEntity,
		KindHistoricalMetrics:      c.historicalMetrics,
		KindTrendAnalysis:          c.trendAnalysis,
		KindSubmitSuggestion:       c.submit,
	}

	c.handlers = make(map[string]handler, len(definitions))
	for _, d := range definitions {
		c.handlers[d.Name] = byKind[d.Kind]
		c.rendered = append(c.rendered, d.Render())
	}
	return c
}

// Tools returns the rendered definitions sent with every request
func (c *Catalog) Tools() []reasoning.Tool {
	return c.rendered
}

// Execute runs one call. Every failure is a *ToolError.
func (c *Catalog) Execute(ctx context.Context, call reasoning.ToolCall) (*Outcome, error) {
	h, ok := c.handlers[call.Name]
	if !ok {
		return nil, &ToolError{Tool: call.Name, Message: ToolNotFound}
	}
	if call.Arguments == nil {
		return nil, &ToolError{Tool: call.Name, Message: fmt.Sprintf("arguments are not a JSON object: %s", call.RawArguments)}
	}

	outcome, err := h(ctx, call.Arguments)
	if err != nil {
		c.logger.Debug("tool call failed",
			zap.String("tool", call.Name),
			zap.String("call_id", call.ID),
			zap.Error(err))
		if te, ok := err.(*ToolError); ok {
			return nil, te
		}
		return nil, newToolError(call.Name, err)
	}
	return outcome, nil
}

func jsonOutcome(v interface{}) (*Outcome, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &Outcome{Content: string(data)}, nil
}

func (c *Catalog) performanceMetrics(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
	entityID, err := stringArg(args, "entity_id")
	if err != nil {
		return nil, err
	}
	perf, err := c.gateway.GetPerformanceMetrics(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return jsonOutcome(perf)
}

func (c *Catalog) healthEvents(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
	entityID, err := stringArg(args, "entity_id")
	if err != nil {
		return nil, err
	}
	health, err := c.gateway.GetHealthEvents(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return jsonOutcome(health)
}

func (c *Catalog) serviceLevelObjectives(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
	entityID, err := stringArg(args, "entity_id")
	if err != nil {
		return nil, err
	}
	slos, err := c.gateway.GetServiceLevelObjectives(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return jsonOutcome(slos)
}

func (c *Catalog) dataAvailability(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
	app, namespace, err := appArgs(args)
	if err != nil {
		return nil, err
	}
	status, details, err := c.gateway.CheckDataAvailability(ctx, app, namespace)
	if err != nil {
		return nil, err
	}
	return jsonOutcome(map[string]interface{}{"status": status, "details": details})
}

func (c *Catalog) discoverEntity(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
	app, namespace, err := appArgs(args)
	if err != nil {
		return nil, err
	}
	entityID, err := c.gateway.DiscoverEntity(ctx, app, namespace)
	if err != nil {
		return nil, err
	}
	var id interface{}
	if entityID != "" {
		id = entityID
	}
	return jsonOutcome(map[string]interface{}{"entity_id": id})
}

func (c *Catalog) historicalMetrics(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
	entityID, days, err := daysArgs(args)
	if err != nil {
		return nil, err
	}
	metrics, err := c.gateway.GetHistoricalMetrics(ctx, entityID, days)
	if err != nil {
		return nil, err
	}
	return jsonOutcome(metrics)
}

func (c *Catalog) trendAnalysis(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
	entityID, days, err := daysArgs(args)
	if err != nil {
		return nil, err
	}
	trend, err := c.gateway.GetTrendAnalysis(ctx, entityID, days)
	if err != nil {
		return nil, err
	}
	return jsonOutcome(trend)
}

func stringArg(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", name)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", name)
	}
	return s, nil
}

func appArgs(args map[string]interface{}) (string, string, error) {
	app, err := stringArg(args, "app_name")
	if err != nil {
		return "", "", err
	}
	namespace, err := stringArg(args, "namespace")
	if err != nil {
		return "", "", err
	}
	return app, namespace, nil
}

// daysArgs reads entity_id and the optional days, bounded to the lookback window
func daysArgs(args map[string]interface{}) (string, int, error) {
	entityID, err := stringArg(args, "entity_id")
	if err != nil {
		return "", 0, err
	}
	days, err := intArg(args, "days", telemetry.DefaultLookbackDays)
	if err != nil {
		return "", 0, err
	}
	if days < 1 || days > telemetry.DefaultLookbackDays {
		return "", 0, fmt.Errorf("argument \"days\" must be between 1 and %d, got %d", telemetry.DefaultLookbackDays, days)
	}
	return entityID, days, nil
}

// intArg accepts JSON numbers with no fraction and numeric strings
func intArg(args map[string]interface{}, name string, def int) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("argument %q must be an integer, got %v", name, n)
		}
		return int(n), nil
	case int:
		return n, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("argument %q must be an integer, got %v", name, n)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("argument %q must be an integer, got %q", name, n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("argument %q must be an integer, got %T", name, v)
	}
}
