/*-------------------------------------------------------------------------
 *
 * handlers.go
 *    API handlers for PortalAgent
 *
 * Provides HTTP handlers for conversations, workflows, portals, and
 * compliance endpoints.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/api/handlers.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/portalmind/PortalAgent/internal/conversation"
	"github.com/portalmind/PortalAgent/internal/db"
	"github.com/portalmind/PortalAgent/internal/llm"
	"github.com/portalmind/PortalAgent/internal/metrics"
	"github.com/portalmind/PortalAgent/internal/nlp"
	"github.com/portalmind/PortalAgent/internal/portal"
	"github.com/portalmind/PortalAgent/internal/validation"
	"github.com/portalmind/PortalAgent/internal/workflow"
)

const maxBodySize = 1024 * 1024

type Handlers struct {
	manager    *conversation.Manager
	classifier *nlp.Classifier
	planner    *workflow.Planner
	engine     *workflow.Engine
	workflows  *workflow.Registry
	gateway    portal.Gateway
	generator  llm.Generator
	queries    *db.Queries

	/* Recommendations per finished run, computed once */
	recMu    sync.Mutex
	recCache map[uuid.UUID][]string
}

/* NewHandlers wires the API surface. queries and generator may be nil. */
func NewHandlers(manager *conversation.Manager, classifier *nlp.Classifier, planner *workflow.Planner, engine *workflow.Engine, workflows *workflow.Registry, gateway portal.Gateway, generator llm.Generator, queries *db.Queries) *Handlers {
	return &Handlers{
		manager:    manager,
		classifier: classifier,
		planner:    planner,
		engine:     engine,
		workflows:  workflows,
		gateway:    gateway,
		generator:  generator,
		queries:    queries,
		recCache:   make(map[uuid.UUID][]string),
	}
}

/* RegisterRoutes attaches all API routes to the router */
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/chat", h.Chat).Methods("POST")
	api.HandleFunc("/chat/actions", h.ChatAction).Methods("POST")
	api.HandleFunc("/operations/confirm", h.ConfirmOperation).Methods("POST")

	api.HandleFunc("/workflows/execute", h.ExecuteWorkflow).Methods("POST")
	api.HandleFunc("/workflows/templates", h.ListTemplates).Methods("GET")
	api.HandleFunc("/workflows/history", h.ListRuns).Methods("GET")
	api.HandleFunc("/workflows/history/{id}", h.GetRun).Methods("GET")
	api.HandleFunc("/workflows", h.ListWorkflows).Methods("GET")
	api.HandleFunc("/workflows/{id}", h.GetWorkflow).Methods("GET")
	api.HandleFunc("/workflows/{id}", h.CancelWorkflow).Methods("DELETE")

	api.HandleFunc("/portals", h.ListPortals).Methods("GET")
	api.HandleFunc("/portals", h.RegisterPortal).Methods("POST")
	api.HandleFunc("/portals/{id}/health", h.CheckPortalHealth).Methods("GET")
	api.HandleFunc("/inventory", h.GetInventory).Methods("GET")
	api.HandleFunc("/metrics/collect", h.CollectMetrics).Methods("GET", "POST")
	api.HandleFunc("/compliance/report", h.ComplianceReport).Methods("POST")
}

/* Conversations */

func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var req ChatRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := validation.ValidateRequired(req.Message, "message"); err != nil {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "chat request invalid", err), requestID))
		return
	}
	if err := validation.ValidateMaxLength(req.Message, "message", 8192); err != nil {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "chat request invalid", err), requestID))
		return
	}

	sessionID, ok := h.parseSessionID(w, requestID, req.SessionID)
	if !ok {
		return
	}

	ctx := metrics.WithSessionIDLogContext(r.Context(), req.SessionID)
	resp, err := h.manager.Process(ctx, sessionID, req.Message)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "message processing failed", err), requestID))
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) ChatAction(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var req ChatActionRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	ctx := metrics.WithSessionIDLogContext(r.Context(), req.SessionID)

	var (
		resp *conversation.Response
		err  error
	)

	switch req.Action {
	case ChatActionStart:
		resp = h.manager.StartSession(ctx)

	case ChatActionContinue, ChatActionClarify:
		sessionID, ok := h.parseSessionID(w, requestID, req.SessionID)
		if !ok {
			return
		}
		if vErr := validation.ValidateRequired(req.Message, "message"); vErr != nil {
			respondError(w, WrapError(NewError(http.StatusBadRequest, "chat action invalid", vErr), requestID))
			return
		}
		resp, err = h.manager.Process(ctx, sessionID, req.Message)

	case ChatActionConfirm:
		sessionID, ok := h.parseSessionID(w, requestID, req.SessionID)
		if !ok {
			return
		}
		operationID := uuid.Nil
		if req.OperationID != "" {
			operationID, err = uuid.Parse(req.OperationID)
			if err != nil {
				respondError(w, WrapError(NewError(http.StatusBadRequest, "invalid operation ID format", err), requestID))
				return
			}
		}
		approved := true
		if req.Approved != nil {
			approved = *req.Approved
		}
		resp, err = h.manager.Confirm(ctx, sessionID, operationID, approved)

	case ChatActionCancel:
		sessionID, ok := h.parseSessionID(w, requestID, req.SessionID)
		if !ok {
			return
		}
		resp, err = h.manager.Cancel(ctx, sessionID)

	case ChatActionSummarize:
		sessionID, ok := h.parseSessionID(w, requestID, req.SessionID)
		if !ok {
			return
		}
		resp, err = h.manager.Summarize(ctx, sessionID)

	default:
		respondError(w, WrapError(NewError(http.StatusBadRequest, "unknown chat action", nil), requestID))
		return
	}

	if err != nil {
		respondError(w, WrapError(NewError(http.StatusNotFound, "chat action failed", err), requestID))
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) ConfirmOperation(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var req ConfirmOperationRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "invalid session ID format", err), requestID))
		return
	}

	operationID := uuid.Nil
	if req.OperationID != "" {
		operationID, err = uuid.Parse(req.OperationID)
		if err != nil {
			respondError(w, WrapError(NewError(http.StatusBadRequest, "invalid operation ID format", err), requestID))
			return
		}
	}

	ctx := metrics.WithSessionIDLogContext(r.Context(), req.SessionID)
	resp, err := h.manager.Confirm(ctx, sessionID, operationID, req.Approved)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusConflict, "confirmation failed", err), requestID))
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

/* Workflows */

func (h *Handlers) ExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var req ExecuteWorkflowRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	parameters := req.Parameters
	if parameters == nil {
		parameters = map[string]interface{}{}
	}

	var plan *workflow.Plan
	switch {
	case len(req.Steps) > 0:
		name := req.Name
		if name == "" {
			name = "custom_workflow"
		}
		plan = &workflow.Plan{
			Name:       name,
			Type:       "custom",
			Steps:      req.Steps,
			Parameters: parameters,
			Source:     "request",
		}

	case req.Template != "":
		built, ok := workflow.TemplateByName(req.Template, parameters)
		if !ok {
			respondError(w, WrapError(NewError(http.StatusBadRequest, "unknown workflow template", nil), requestID))
			return
		}
		plan = built

	case req.Message != "":
		result := h.classifier.Classify(r.Context(), req.Message, nil)
		if result.Intent == nlp.IntentUnknown {
			respondError(w, WrapError(NewError(http.StatusUnprocessableEntity, "could not determine intent from message", nil), requestID))
			return
		}
		plan = h.planner.BuildPlan(r.Context(), result, req.Message)

	default:
		respondError(w, WrapError(NewError(http.StatusBadRequest, "one of steps, template, or message is required", nil), requestID))
		return
	}

	execution, err := h.engine.Execute(r.Context(), plan, parameters, req.DryRun)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "workflow execution failed", err), requestID))
		return
	}

	respondJSON(w, http.StatusOK, h.executionResponse(r, execution))
}

func (h *Handlers) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	vars := mux.Vars(r)

	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "invalid workflow ID format", err), requestID))
		return
	}

	execution, err := h.workflows.Get(id)
	if err != nil {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	respondJSON(w, http.StatusOK, h.executionResponse(r, execution))
}

func (h *Handlers) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.workflows.List())
}

func (h *Handlers) CancelWorkflow(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	vars := mux.Vars(r)

	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "invalid workflow ID format", err), requestID))
		return
	}

	if err := h.workflows.Cancel(id); err != nil {
		respondError(w, WrapError(NewError(http.StatusConflict, "workflow cancellation failed", err), requestID))
		return
	}

	metrics.InfoWithContext(r.Context(), "workflow cancellation requested", map[string]interface{}{
		"workflow_id": id.String(),
	})
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	names := workflow.TemplateNames()
	infos := make([]TemplateInfo, 0, len(names))
	for _, name := range names {
		plan, ok := workflow.TemplateByName(name, nil)
		if !ok {
			continue
		}
		types := make([]string, len(plan.Steps))
		for i, step := range plan.Steps {
			types[i] = step.Type
		}
		infos = append(infos, TemplateInfo{
			Name:      name,
			StepCount: len(plan.Steps),
			StepTypes: types,
		})
	}
	respondJSON(w, http.StatusOK, infos)
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if h.queries == nil {
		respondError(w, WrapError(NewError(http.StatusServiceUnavailable, "workflow history is not enabled", nil), requestID))
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if err := validation.ValidateLimit(limit); err != nil {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "invalid limit", err), requestID))
		return
	}

	runs, err := h.queries.ListRuns(r.Context(), limit, 0)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusInternalServerError, "failed to list workflow runs", err), requestID))
		return
	}

	respondJSON(w, http.StatusOK, runs)
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if h.queries == nil {
		respondError(w, WrapError(NewError(http.StatusServiceUnavailable, "workflow history is not enabled", nil), requestID))
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "invalid run ID format", err), requestID))
		return
	}

	run, steps, err := h.queries.GetRun(r.Context(), id)
	if err != nil {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run":   run,
		"steps": steps,
	})
}

/* Portals */

func (h *Handlers) ListPortals(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.gateway.Portals())
}

func (h *Handlers) RegisterPortal(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var cfg portal.Config
	if !h.decodeBody(w, r, &cfg) {
		return
	}

	status, err := h.gateway.RegisterPortal(cfg)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusConflict, "portal registration failed", err), requestID))
		return
	}

	metrics.InfoWithContext(r.Context(), "portal registered", map[string]interface{}{
		"portal_id": cfg.ID,
	})
	respondJSON(w, http.StatusCreated, status)
}

func (h *Handlers) CheckPortalHealth(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	vars := mux.Vars(r)

	status, err := h.gateway.CheckPortalHealth(r.Context(), vars["id"])
	if err != nil {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (h *Handlers) GetInventory(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	inventory, err := h.gateway.GetInventory(r.Context())
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusServiceUnavailable, "inventory collection failed", err), requestID))
		return
	}

	respondJSON(w, http.StatusOK, inventory)
}

func (h *Handlers) CollectMetrics(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	collected, err := h.gateway.CollectMetrics(r.Context())
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusServiceUnavailable, "metrics collection failed", err), requestID))
		return
	}

	respondJSON(w, http.StatusOK, collected)
}

func (h *Handlers) ComplianceReport(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var req ComplianceReportRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if req.ReportType == "" {
		req.ReportType = "general"
	}

	result, err := h.gateway.GenerateComplianceReport(r.Context(), req.ReportType, req.Parameters)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusBadGateway, "compliance report failed", err), requestID))
		return
	}

	respondJSON(w, http.StatusOK, result)
}

/* Health reports readiness of the server and its dependencies */
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Time:      time.Now(),
		Portals:   h.gateway.Portals(),
		Sessions:  h.manager.Store().Count(),
		Workflows: len(h.workflows.List()),
	}

	if h.queries != nil {
		if err := h.queries.HealthCheck(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
		} else {
			resp.Database = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}

/* Helpers */

func (h *Handlers) executionResponse(r *http.Request, execution *workflow.Execution) ExecutionResponse {
	resp := ExecutionResponse{
		Execution:       execution,
		Summary:         workflow.Summarize(execution),
		ProgressPercent: execution.Progress(),
		CurrentStep:     execution.CurrentStep(),
	}
	/* Recommendation generation may call the model, so it runs once per
	 * finished run and never on an in-flight status poll */
	if execution.CompletedAt != nil {
		resp.Recommendations = h.recommendationsFor(r, execution)
	}
	return resp
}

func (h *Handlers) recommendationsFor(r *http.Request, execution *workflow.Execution) []string {
	h.recMu.Lock()
	recs, ok := h.recCache[execution.ID]
	h.recMu.Unlock()
	if ok {
		return recs
	}

	recs = workflow.Recommendations(r.Context(), h.generator, execution)

	h.recMu.Lock()
	if len(h.recCache) >= 1024 {
		h.recCache = make(map[uuid.UUID][]string)
	}
	h.recCache[execution.ID] = recs
	h.recMu.Unlock()
	return recs
}

func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	requestID := GetRequestID(r.Context())

	bodyBytes, err := validation.ReadAndValidateBody(r, maxBodySize)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "request body validation failed", err), requestID))
		return false
	}
	r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "request body parsing error", err), requestID))
		return false
	}
	return true
}

func (h *Handlers) parseSessionID(w http.ResponseWriter, requestID, raw string) (uuid.UUID, bool) {
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, WrapError(NewError(http.StatusBadRequest, "invalid session ID format", err), requestID))
		return uuid.Nil, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err *APIError) {
	response := ErrorResponse{
		Error: err.Message,
		Code:  err.Code,
	}
	if err.Err != nil {
		response.Message = err.Err.Error()
	}
	if err.RequestID != "" {
		w.Header().Set("X-Request-ID", err.RequestID)
	}
	respondJSON(w, err.Code, response)
}
