package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opscart/k8s-scaling-advisor/pkg/config"
	"github.com/opscart/k8s-scaling-advisor/pkg/engine"
	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/telemetry/stub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSuggester struct{}

func (failingSuggester) GetSuggestion(ctx context.Context, app models.ApplicationRef, dc models.DeploymentContext) (*models.SuggestionReport, error) {
	return nil, errors.New("static suggestion is invalid")
}

func (failingSuggester) AIEnabled() bool { return false }

type memoryRecorder struct {
	saved   []*models.SuggestionRecord
	pingErr error
}

func (m *memoryRecorder) SaveSuggestion(ctx context.Context, rec *models.SuggestionRecord) error {
	m.saved = append(m.saved, rec)
	return nil
}

func (m *memoryRecorder) Ping(ctx context.Context) error { return m.pingErr }

func newTestServer(t *testing.T, recorder Recorder) *Server {
	t.Helper()
	policy, err := config.LoadPolicy("../../configs/scaling-policy.yaml")
	require.NoError(t, err)
	policy.Features.EnableAIShadowAnalyst = false

	e, err := engine.New(engine.Options{Policy: policy, Gateway: stub.New()})
	require.NoError(t, err)

	opts := Options{ClusterID: "test-cluster"}
	if recorder != nil {
		opts.Recorder = recorder
	}
	return New(e, opts)
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/suggestion", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ERROR", resp.Status)
	return resp
}

func TestSuggestion_OK(t *testing.T) {
	recorder := &memoryRecorder{}
	h := newTestServer(t, recorder).Handler()

	w := post(t, h, `{
		"suggestion_type": "kubernetes_scaling",
		"application": {"name": "checkout-api", "namespace": "shop-prod"},
		"deployment_context": {"architecture": "arm64"}
	}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var report models.SuggestionReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.Equal(t, models.SourceStatic, report.Source)
	assert.Equal(t, models.FullHistoricalData, report.DataAvailability)
	assert.Equal(t, 5, report.Suggestion.HPA.MinReplicas)
	assert.Equal(t, "arm64", report.Suggestion.Karpenter.Architecture)

	require.Len(t, recorder.saved, 1)
	assert.Equal(t, "test-cluster", recorder.saved[0].ClusterID)
	assert.Equal(t, "checkout-api", recorder.saved[0].Application)
}

func TestSuggestion_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"invalid json", `{"suggestion_type":`, "Invalid JSON body"},
		{"missing type", `{"application": {"name": "cart", "namespace": "shop"}}`, "Missing required key: suggestion_type"},
		{"unknown type", `{"suggestion_type": "cost_optimization"}`, "Unknown suggestion_type: cost_optimization"},
		{"missing namespace", `{"suggestion_type": "kubernetes_scaling", "application": {"name": "cart"}}`,
			"Missing required fields: application.name and application.namespace"},
		{"blank name", `{"suggestion_type": "kubernetes_scaling", "application": {"name": "  ", "namespace": "shop"}}`,
			"Missing required fields: application.name and application.namespace"},
	}

	h := newTestServer(t, nil).Handler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, decodeError(t, w).Message)
		})
	}
}

func TestSuggestion_InternalError(t *testing.T) {
	h := New(failingSuggester{}, Options{}).Handler()

	w := post(t, h, `{"suggestion_type": "kubernetes_scaling", "application": {"name": "cart", "namespace": "shop"}}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "An internal error occurred.", decodeError(t, w).Message)
}

func TestSuggestion_MethodNotAllowed(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/suggestion", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, http.MethodPost, w.Header().Get("Allow"))
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		recorder Recorder
		storage  string
	}{
		{"no storage", nil, "not_configured"},
		{"storage ok", &memoryRecorder{}, "ok"},
		{"storage down", &memoryRecorder{pingErr: errors.New("refused")}, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, tt.recorder).Handler()
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, http.StatusOK, w.Code)
			var resp map[string]interface{}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, "ok", resp["status"])
			assert.Equal(t, false, resp["ai_enabled"])
			assert.Equal(t, tt.storage, resp["storage"])
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	post(t, h, `{"suggestion_type": "nope"}`)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `scaling_advisor_http_requests_total{code="400",path="/suggestion"}`)
}
