/*-------------------------------------------------------------------------
 *
 * prometheus.go
 *    Prometheus metrics for PortalAgent
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/metrics/prometheus.go
 *
 *-------------------------------------------------------------------------
 */

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	/* Request metrics */
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portalagent_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portalagent_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	/* Intent classification metrics */
	intentClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portalagent_intent_classifications_total",
			Help: "Total number of intent classifications",
		},
		[]string{"intent", "source"},
	)

	intentConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portalagent_intent_confidence",
			Help:    "Confidence of intent classifications",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"intent"},
	)

	/* LLM metrics */
	llmCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portalagent_llm_calls_total",
			Help: "Total number of LLM calls",
		},
		[]string{"model", "status"},
	)

	llmCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portalagent_llm_call_duration_seconds",
			Help:    "LLM call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	/* Workflow metrics */
	workflowExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portalagent_workflow_executions_total",
			Help: "Total number of workflow executions",
		},
		[]string{"workflow_type", "status"},
	)

	workflowExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portalagent_workflow_execution_duration_seconds",
			Help:    "Workflow execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
		},
		[]string{"workflow_type"},
	)

	workflowStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portalagent_workflow_steps_total",
			Help: "Total number of workflow steps executed",
		},
		[]string{"step_type", "status"},
	)

	workflowStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portalagent_workflow_step_duration_seconds",
			Help:    "Workflow step duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"step_type"},
	)

	workflowsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portalagent_workflows_active",
			Help: "Number of workflows currently running",
		},
	)

	/* Portal metrics */
	portalRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portalagent_portal_requests_total",
			Help: "Total number of portal backend requests",
		},
		[]string{"portal_id", "operation", "status"},
	)

	portalRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portalagent_portal_request_duration_seconds",
			Help:    "Portal backend request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"portal_id", "operation"},
	)

	portalHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portalagent_portal_healthy",
			Help: "Portal health status (1 healthy, 0 unhealthy)",
		},
		[]string{"portal_id"},
	)

	/* Session metrics */
	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portalagent_sessions_active",
			Help: "Number of active conversation sessions",
		},
	)

	pendingConfirmations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portalagent_pending_confirmations",
			Help: "Number of operations awaiting user confirmation",
		},
	)

	/* Rate limiting metrics */
	rateLimitRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portalagent_rate_limit_rejected_total",
			Help: "Total number of requests rejected by rate limiter",
		},
		[]string{"client"},
	)
)

/* RecordHTTPRequest records an HTTP request */
func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	/* Convert status code to status class for better PromQL queries */
	statusClass := "unknown"
	if status >= 200 && status < 300 {
		statusClass = "2xx"
	} else if status >= 300 && status < 400 {
		statusClass = "3xx"
	} else if status >= 400 && status < 500 {
		statusClass = "4xx"
	} else if status >= 500 {
		statusClass = "5xx"
	}

	httpRequestsTotal.WithLabelValues(method, endpoint, statusClass).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

/* RecordIntentClassification records an intent classification */
func RecordIntentClassification(intent, source string, confidence float64) {
	intentClassificationsTotal.WithLabelValues(intent, source).Inc()
	intentConfidence.WithLabelValues(intent).Observe(confidence)
}

/* RecordLLMCall records an LLM call */
func RecordLLMCall(model, status string, duration time.Duration) {
	llmCallsTotal.WithLabelValues(model, status).Inc()
	llmCallDuration.WithLabelValues(model).Observe(duration.Seconds())
}

/* RecordWorkflowExecution records a workflow execution */
func RecordWorkflowExecution(workflowType, status string, duration time.Duration) {
	workflowExecutionsTotal.WithLabelValues(workflowType, status).Inc()
	workflowExecutionDuration.WithLabelValues(workflowType).Observe(duration.Seconds())
}

/* RecordWorkflowStep records a workflow step execution */
func RecordWorkflowStep(stepType, status string, duration time.Duration) {
	workflowStepsTotal.WithLabelValues(stepType, status).Inc()
	workflowStepDuration.WithLabelValues(stepType).Observe(duration.Seconds())
}

/* SetWorkflowsActive sets the active workflow gauge */
func SetWorkflowsActive(count int) {
	workflowsActive.Set(float64(count))
}

/* RecordPortalRequest records a portal backend request */
func RecordPortalRequest(portalID, operation, status string, duration time.Duration) {
	portalRequestsTotal.WithLabelValues(portalID, operation, status).Inc()
	portalRequestDuration.WithLabelValues(portalID, operation).Observe(duration.Seconds())
}

/* SetPortalHealthy sets the portal health gauge */
func SetPortalHealthy(portalID string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	portalHealthy.WithLabelValues(portalID).Set(value)
}

/* SetSessionsActive sets the active session gauge */
func SetSessionsActive(count int) {
	sessionsActive.Set(float64(count))
}

/* SetPendingConfirmations sets the pending confirmation gauge */
func SetPendingConfirmations(count int) {
	pendingConfirmations.Set(float64(count))
}

/* RecordRateLimitRejected records a rate limiter rejection */
func RecordRateLimitRejected(client string) {
	rateLimitRejected.WithLabelValues(client).Inc()
}

/* Handler returns the Prometheus metrics HTTP handler */
func Handler() http.Handler {
	return promhttp.Handler()
}
