/*-------------------------------------------------------------------------
 *
 * models.go
 *    Workflow plan and execution models
 *
 * A plan is a DAG of typed steps; an execution tracks per-step results
 * and the overall run outcome.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/workflow/models.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

/* Step types understood by the executor */
const (
	StepDatabaseOperation     = "database_operation"
	StepBackupOperation       = "backup_operation"
	StepRestoreOperation      = "restore_operation"
	StepAnalysisOperation     = "analysis_operation"
	StepMonitoringOperation   = "monitoring_operation"
	StepOptimizationOperation = "optimization_operation"
	StepComplianceCheck       = "compliance_check"
	StepAIAnalysis            = "ai_analysis"
	StepPerformanceTest       = "performance_test"
	StepPortalIntegration     = "portal_integration"
	StepValidation            = "validation"
	StepNotification          = "notification"
)

/* Step statuses */
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
	StatusSimulated = "simulated"
	StatusCancelled = "cancelled"
)

/* destructiveStepTypes are short-circuited to simulated under dry run */
var destructiveStepTypes = map[string]bool{
	StepDatabaseOperation: true,
	StepBackupOperation:   true,
	StepRestoreOperation:  true,
}

/* idempotentStepTypes may be retried without an explicit idempotency key */
var idempotentStepTypes = map[string]bool{
	StepAnalysisOperation:   true,
	StepMonitoringOperation: true,
	StepComplianceCheck:     true,
	StepAIAnalysis:          true,
	StepPerformanceTest:     true,
	StepPortalIntegration:   true,
	StepValidation:          true,
}

/* Step is a single unit of work in a plan */
type Step struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Type           string                 `json:"type"`
	Description    string                 `json:"description,omitempty"`
	Operation      string                 `json:"operation"`
	Capability     string                 `json:"capability,omitempty"`
	Parameters     map[string]interface{} `json:"parameters,omitempty"`
	DependsOn      []string               `json:"depends_on,omitempty"`
	TimeoutSeconds int                    `json:"timeout_seconds,omitempty"`
	RetryCount     int                    `json:"retry_count,omitempty"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
}

/* RequiredCapability returns the capability tag used to route the step,
 * defaulting from the step type */
func (s *Step) RequiredCapability() string {
	if s.Capability != "" {
		return s.Capability
	}
	switch s.Type {
	case StepBackupOperation:
		return "backup"
	case StepRestoreOperation:
		return "restore"
	case StepAnalysisOperation:
		return "analytics"
	case StepMonitoringOperation:
		return "monitoring"
	case StepOptimizationOperation:
		return "optimization"
	case StepComplianceCheck:
		return "compliance"
	case StepPerformanceTest:
		return "monitoring"
	case StepAIAnalysis:
		return "analytics"
	default:
		return "database"
	}
}

/* retriable reports whether a failed attempt of this step may be retried */
func (s *Step) retriable() bool {
	if s.RetryCount <= 0 {
		return false
	}
	return idempotentStepTypes[s.Type] || s.IdempotencyKey != ""
}

/* Plan is a named DAG of steps */
type Plan struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Type        string                 `json:"type"`
	Steps       []Step                 `json:"steps"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
	Source      string                 `json:"source"`
}

/* Plan sources */
const (
	SourceTemplate = "template"
	SourceModel    = "model"
	SourceFallback = "fallback"
)

/* StepResult is the recorded outcome of one step attempt chain */
type StepResult struct {
	StepID      string                 `json:"step_id"`
	Name        string                 `json:"name"`
	Type        string                 `json:"type"`
	Status      string                 `json:"status"`
	Output      map[string]interface{} `json:"output,omitempty"`
	Error       string                 `json:"error,omitempty"`
	PortalID    string                 `json:"portal_id,omitempty"`
	Attempts    int                    `json:"attempts"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

/* Duration returns the wall time of the step, zero when unfinished */
func (r *StepResult) Duration() time.Duration {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}

/* Execution is a single run of a plan.
 *
 * The engine mutates run state under mu while steps execute; anything
 * reading a live execution (status polling, listings) must go through
 * Snapshot instead of touching the struct directly. */
type Execution struct {
	ID          uuid.UUID              `json:"id"`
	Plan        *Plan                  `json:"plan"`
	Status      string                 `json:"status"`
	DryRun      bool                   `json:"dry_run"`
	StepResults map[string]*StepResult `json:"step_results"`
	Outputs     map[string]interface{} `json:"outputs,omitempty"`
	Error       string                 `json:"error,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`

	mu sync.RWMutex
}

/* Snapshot returns a consistent copy safe to read and encode while the
 * run is still executing. Step outputs are written once on completion
 * and shared, not copied. */
func (e *Execution) Snapshot() *Execution {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := &Execution{
		ID:        e.ID,
		Plan:      e.Plan,
		Status:    e.Status,
		DryRun:    e.DryRun,
		Error:     e.Error,
		StartedAt: e.StartedAt,
	}
	if e.CompletedAt != nil {
		completed := *e.CompletedAt
		snap.CompletedAt = &completed
	}
	snap.StepResults = make(map[string]*StepResult, len(e.StepResults))
	for id, result := range e.StepResults {
		copied := *result
		snap.StepResults[id] = &copied
	}
	if e.Outputs != nil {
		snap.Outputs = make(map[string]interface{}, len(e.Outputs))
		for k, v := range e.Outputs {
			snap.Outputs[k] = v
		}
	}
	return snap
}

/* Progress returns the share of steps in a terminal status, 0-100 */
func (e *Execution) Progress() float64 {
	if len(e.StepResults) == 0 {
		return 0
	}
	finished := 0
	for _, result := range e.StepResults {
		switch result.Status {
		case StatusPending, StatusRunning:
		default:
			finished++
		}
	}
	return 100 * float64(finished) / float64(len(e.StepResults))
}

/* CurrentStep returns the name of the first running step in plan order,
 * or empty when no step is running */
func (e *Execution) CurrentStep() string {
	for _, step := range e.Plan.Steps {
		if result, ok := e.StepResults[step.ID]; ok && result.Status == StatusRunning {
			return result.Name
		}
	}
	return ""
}

/* Duration returns the wall time of the execution */
func (e *Execution) Duration() time.Duration {
	if e.CompletedAt == nil {
		return time.Since(e.StartedAt)
	}
	return e.CompletedAt.Sub(e.StartedAt)
}

/* orderedResults returns step results in plan order */
func (e *Execution) orderedResults() []*StepResult {
	out := make([]*StepResult, 0, len(e.Plan.Steps))
	for _, step := range e.Plan.Steps {
		if r, ok := e.StepResults[step.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}
