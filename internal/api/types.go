/*-------------------------------------------------------------------------
 *
 * types.go
 *    API request and response types for PortalAgent
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/api/types.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"time"

	"github.com/portalmind/PortalAgent/internal/workflow"
)

/* ChatRequest carries one user message. SessionID may be empty to start
 * a fresh conversation. */
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

/* Chat action names */
const (
	ChatActionStart     = "start"
	ChatActionContinue  = "continue"
	ChatActionClarify   = "clarify"
	ChatActionConfirm   = "confirm"
	ChatActionCancel    = "cancel"
	ChatActionSummarize = "summarize"
)

/* ChatActionRequest drives the explicit conversation actions */
type ChatActionRequest struct {
	Action      string `json:"action"`
	SessionID   string `json:"session_id,omitempty"`
	Message     string `json:"message,omitempty"`
	OperationID string `json:"operation_id,omitempty"`
	Approved    *bool  `json:"approved,omitempty"`
}

/* ConfirmOperationRequest resolves a pending confirmation gate */
type ConfirmOperationRequest struct {
	SessionID   string `json:"session_id"`
	OperationID string `json:"operation_id,omitempty"`
	Approved    bool   `json:"approved"`
}

/* ExecuteWorkflowRequest builds and runs a workflow. Exactly one of
 * Message, Template, or Steps selects the plan source. */
type ExecuteWorkflowRequest struct {
	Message    string                 `json:"message,omitempty"`
	Template   string                 `json:"template,omitempty"`
	Steps      []workflow.Step        `json:"steps,omitempty"`
	Name       string                 `json:"name,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	DryRun     bool                   `json:"dry_run"`
}

/* ExecutionResponse wraps an execution with its rendered summary and
 * progress. Recommendations appear only once the run is finished. */
type ExecutionResponse struct {
	Execution       *workflow.Execution `json:"execution"`
	Summary         string              `json:"summary"`
	ProgressPercent float64             `json:"progress_percent"`
	CurrentStep     string              `json:"current_step,omitempty"`
	Recommendations []string            `json:"recommendations,omitempty"`
}

/* ComplianceReportRequest requests a compliance report from the portals */
type ComplianceReportRequest struct {
	ReportType string                 `json:"report_type"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

/* TemplateInfo describes one built-in workflow template */
type TemplateInfo struct {
	Name      string   `json:"name"`
	StepCount int      `json:"step_count"`
	StepTypes []string `json:"step_types"`
}

/* HealthResponse reports server and dependency health */
type HealthResponse struct {
	Status    string                   `json:"status"`
	Time      time.Time                `json:"time"`
	Database  string                   `json:"database,omitempty"`
	Portals   []map[string]interface{} `json:"portals"`
	Sessions  int                      `json:"sessions"`
	Workflows int                      `json:"workflows"`
}
