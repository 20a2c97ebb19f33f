/*-------------------------------------------------------------------------
 *
 * handlers_test.go
 *    Tests for the PortalAgent HTTP API
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/api/handlers_test.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/portalmind/PortalAgent/internal/conversation"
	"github.com/portalmind/PortalAgent/internal/nlp"
	"github.com/portalmind/PortalAgent/internal/portal"
	"github.com/portalmind/PortalAgent/internal/workflow"
)

/* stubGateway satisfies portal.Gateway without any network traffic */
type stubGateway struct {
	executions int
	failAll    bool
}

func (g *stubGateway) ExecuteOperation(ctx context.Context, capability, operation string, parameters map[string]interface{}) (*portal.OperationResult, error) {
	g.executions++
	if g.failAll {
		return nil, fmt.Errorf("portal unreachable")
	}
	return &portal.OperationResult{
		Status:   portal.StatusCompleted,
		PortalID: "stub-portal",
		Output:   map[string]interface{}{"operation": operation, "capability": capability},
	}, nil
}

func (g *stubGateway) GetInventory(ctx context.Context) (map[string]interface{}, error) {
	if g.failAll {
		return nil, fmt.Errorf("no healthy portals")
	}
	return map[string]interface{}{"stub-portal": map[string]interface{}{"databases": []string{"sales"}}}, nil
}

func (g *stubGateway) CollectMetrics(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"stub-portal": map[string]interface{}{"connections": 4}}, nil
}

func (g *stubGateway) GenerateComplianceReport(ctx context.Context, reportType string, parameters map[string]interface{}) (*portal.OperationResult, error) {
	return &portal.OperationResult{
		Status:   portal.StatusCompleted,
		PortalID: "stub-portal",
		Output:   map[string]interface{}{"report_type": reportType},
	}, nil
}

func (g *stubGateway) Portals() []map[string]interface{} {
	return []map[string]interface{}{
		{"id": "stub-portal", "healthy": true},
	}
}

func (g *stubGateway) RegisterPortal(cfg portal.Config) (map[string]interface{}, error) {
	if cfg.ID == "stub-portal" {
		return nil, fmt.Errorf("portal registration failed: portal_id='%s', error=duplicate id", cfg.ID)
	}
	return map[string]interface{}{"id": cfg.ID, "healthy": true}, nil
}

func (g *stubGateway) CheckPortalHealth(ctx context.Context, portalID string) (map[string]interface{}, error) {
	if portalID != "stub-portal" {
		return nil, fmt.Errorf("portal lookup failed: portal_id='%s', error=not found", portalID)
	}
	return map[string]interface{}{"id": portalID, "healthy": !g.failAll}, nil
}

func newTestRouter(t *testing.T) (*mux.Router, *stubGateway) {
	t.Helper()

	gateway := &stubGateway{}
	classifier := nlp.NewClassifier(nil)
	store := conversation.NewStore(0)
	manager := conversation.NewManager(classifier, store, nil)
	registry := workflow.NewRegistry(0)
	engine := workflow.NewEngine(workflow.NewPortalExecutor(gateway, nil), registry, nil)
	planner := workflow.NewPlanner(nil)

	handlers := NewHandlers(manager, classifier, planner, engine, registry, gateway, nil, nil)

	router := mux.NewRouter()
	router.Use(RequestIDMiddleware)
	handlers.RegisterRoutes(router)
	router.HandleFunc("/health", handlers.Health).Methods("GET")
	return router, gateway
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestChatCreatesSession(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/chat", ChatRequest{Message: "show me the list of databases"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp conversation.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID == uuid.Nil {
		t.Fatal("expected a session ID to be assigned")
	}
	if resp.Intent != nlp.IntentRead {
		t.Fatalf("expected read intent, got %s", resp.Intent)
	}
	if resp.RequiresConfirmation {
		t.Fatal("read operations must not require confirmation")
	}
}

func TestChatEmptyMessageRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/chat", ChatRequest{Message: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestConfirmationGateOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/chat", ChatRequest{Message: "delete and drop the orders table"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var first conversation.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if first.Action != conversation.ActionConfirm {
		t.Fatalf("expected awaiting confirmation, got action %s", first.Action)
	}
	if first.PendingOperationID == nil {
		t.Fatal("expected a pending operation ID")
	}

	rec = doJSON(t, router, "POST", "/api/v1/operations/confirm", ConfirmOperationRequest{
		SessionID:   first.SessionID.String(),
		OperationID: first.PendingOperationID.String(),
		Approved:    true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var second conversation.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if second.Action != conversation.ActionConfirmed {
		t.Fatalf("expected confirmed action, got %s", second.Action)
	}
}

func TestConfirmWithoutPendingFails(t *testing.T) {
	router, _ := newTestRouter(t)

	start := doJSON(t, router, "POST", "/api/v1/chat/actions", ChatActionRequest{Action: ChatActionStart})
	var resp conversation.Response
	if err := json.Unmarshal(start.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	rec := doJSON(t, router, "POST", "/api/v1/operations/confirm", ConfirmOperationRequest{
		SessionID: resp.SessionID.String(),
		Approved:  true,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestChatActionSummarize(t *testing.T) {
	router, _ := newTestRouter(t)

	chat := doJSON(t, router, "POST", "/api/v1/chat", ChatRequest{Message: "show the status of prod_db"})
	var resp conversation.Response
	if err := json.Unmarshal(chat.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	rec := doJSON(t, router, "POST", "/api/v1/chat/actions", ChatActionRequest{
		Action:    ChatActionSummarize,
		SessionID: resp.SessionID.String(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var summary conversation.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if summary.Action != conversation.ActionSummary {
		t.Fatalf("expected summary action, got %s", summary.Action)
	}
	if summary.Message == "" {
		t.Fatal("expected a non-empty summary")
	}
}

func TestExecuteWorkflowFromTemplate(t *testing.T) {
	router, gateway := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/workflows/execute", ExecuteWorkflowRequest{
		Template: "backup_workflow",
		Parameters: map[string]interface{}{
			"database": "sales",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ExecutionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Execution.Status != workflow.StatusCompleted {
		t.Fatalf("expected completed execution, got %s", resp.Execution.Status)
	}
	if resp.Summary == "" {
		t.Fatal("expected a rendered summary")
	}
	if resp.ProgressPercent != 100 {
		t.Fatalf("expected 100%% progress on a finished run, got %v", resp.ProgressPercent)
	}
	if resp.CurrentStep != "" {
		t.Fatalf("expected no current step on a finished run, got %q", resp.CurrentStep)
	}
	if len(resp.Recommendations) == 0 {
		t.Fatal("expected recommendations on a finished run")
	}
	if gateway.executions == 0 {
		t.Fatal("expected portal operations to be executed")
	}
}

func TestExecuteWorkflowDryRunSkipsBackup(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/workflows/execute", ExecuteWorkflowRequest{
		Template: "backup_workflow",
		DryRun:   true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ExecutionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Execution.DryRun {
		t.Fatal("expected dry-run execution")
	}

	simulated := 0
	for _, result := range resp.Execution.StepResults {
		if result.Status == workflow.StatusSimulated {
			simulated++
		}
	}
	if simulated == 0 {
		t.Fatal("expected the backup step to be simulated")
	}
}

func TestExecuteWorkflowRequiresPlanSource(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/workflows/execute", ExecuteWorkflowRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestExecuteWorkflowUnknownTemplate(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/workflows/execute", ExecuteWorkflowRequest{Template: "no_such_workflow"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestExecuteWorkflowFromSteps(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/workflows/execute", ExecuteWorkflowRequest{
		Name: "check_then_report",
		Steps: []workflow.Step{
			{ID: "scan", Name: "Scan inventory", Type: workflow.StepAnalysisOperation, Operation: "scan"},
			{ID: "report", Name: "Report", Type: workflow.StepNotification, Operation: "notify", DependsOn: []string{"scan"}},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ExecutionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Execution.Status != workflow.StatusCompleted {
		t.Fatalf("expected completed, got %s", resp.Execution.Status)
	}
	if len(resp.Execution.StepResults) != 2 {
		t.Fatalf("expected 2 step results, got %d", len(resp.Execution.StepResults))
	}
}

func TestExecuteWorkflowCyclicStepsRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/workflows/execute", ExecuteWorkflowRequest{
		Steps: []workflow.Step{
			{ID: "a", Name: "A", Type: workflow.StepValidation, Operation: "check", DependsOn: []string{"b"}},
			{ID: "b", Name: "B", Type: workflow.StepValidation, Operation: "check", DependsOn: []string{"a"}},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for cyclic plan, got %d", rec.Code)
	}
}

func TestGetWorkflowNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/v1/workflows/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListTemplates(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/v1/workflows/templates", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var infos []TemplateInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &infos); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(infos) != 9 {
		t.Fatalf("expected 9 templates, got %d", len(infos))
	}
	for _, info := range infos {
		if info.StepCount == 0 {
			t.Fatalf("template %s has no steps", info.Name)
		}
	}
}

func TestWorkflowHistoryDisabled(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/v1/workflows/history", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without history store, got %d", rec.Code)
	}
}

func TestListPortals(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/v1/portals", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var portals []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &portals); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(portals) != 1 || portals[0]["id"] != "stub-portal" {
		t.Fatalf("unexpected portal list: %v", portals)
	}
}

func TestRegisterPortal(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/portals", portal.Config{
		ID:           "analytics-portal",
		Name:         "Analytics",
		BaseURL:      "http://analytics.internal",
		Capabilities: []string{"analytics"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	dup := doJSON(t, router, "POST", "/api/v1/portals", portal.Config{
		ID:      "stub-portal",
		BaseURL: "http://dup.internal",
	})
	if dup.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate portal, got %d", dup.Code)
	}
}

func TestPortalHealthCheck(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/v1/portals/stub-portal/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	missing := doJSON(t, router, "GET", "/api/v1/portals/ghost/health", nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown portal, got %d", missing.Code)
	}
}

func TestInventoryFailureReturns503(t *testing.T) {
	router, gateway := newTestRouter(t)
	gateway.failAll = true

	rec := doJSON(t, router, "GET", "/api/v1/inventory", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestComplianceReport(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/compliance/report", ComplianceReportRequest{ReportType: "gdpr"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result portal.OperationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Output["report_type"] != "gdpr" {
		t.Fatalf("expected report type to be forwarded, got %v", result.Output)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Fatalf("expected healthy status, got %s", resp.Status)
	}
}

func TestRequestIDMiddlewareEchoesHeader(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "trace-1234")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "trace-1234" {
		t.Fatalf("expected request ID to be echoed, got '%s'", got)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gateway := &stubGateway{}
	classifier := nlp.NewClassifier(nil)
	manager := conversation.NewManager(classifier, conversation.NewStore(0), nil)
	registry := workflow.NewRegistry(0)
	engine := workflow.NewEngine(workflow.NewPortalExecutor(gateway, nil), registry, nil)
	handlers := NewHandlers(manager, classifier, workflow.NewPlanner(nil), engine, registry, gateway, nil, nil)

	router := mux.NewRouter()
	router.Use(RequestIDMiddleware)
	router.Use(RateLimitMiddleware(1, 1))
	handlers.RegisterRoutes(router)

	first := doJSON(t, router, "GET", "/api/v1/portals", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}

	second := doJSON(t, router, "GET", "/api/v1/portals", nil)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be limited, got %d", second.Code)
	}
}

func TestExecutionResponseGatesRecommendations(t *testing.T) {
	h := NewHandlers(nil, nil, nil, nil, nil, &stubGateway{}, nil, nil)

	plan := &workflow.Plan{
		Name: "running_workflow",
		Type: "test",
		Steps: []workflow.Step{
			{ID: "a", Name: "first step", Type: workflow.StepValidation, Operation: "op"},
			{ID: "b", Name: "second step", Type: workflow.StepValidation, Operation: "op", DependsOn: []string{"a"}},
		},
	}
	execution := &workflow.Execution{
		ID:     uuid.New(),
		Plan:   plan,
		Status: workflow.StatusRunning,
		StepResults: map[string]*workflow.StepResult{
			"a": {StepID: "a", Name: "first step", Status: workflow.StatusCompleted},
			"b": {StepID: "b", Name: "second step", Status: workflow.StatusRunning},
		},
	}

	req := httptest.NewRequest("GET", "/api/v1/workflows/x", nil)
	resp := h.executionResponse(req, execution)

	if resp.Recommendations != nil {
		t.Error("recommendations must be absent while the run is in flight")
	}
	if resp.ProgressPercent != 50 {
		t.Errorf("progress = %v, want 50", resp.ProgressPercent)
	}
	if resp.CurrentStep != "second step" {
		t.Errorf("current step = %q, want the running step name", resp.CurrentStep)
	}
}
