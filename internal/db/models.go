/*-------------------------------------------------------------------------
 *
 * models.go
 *    Workflow run history models
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/db/models.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

/* WorkflowRun is a persisted workflow execution */
type WorkflowRun struct {
	ID           uuid.UUID  `db:"id"`
	WorkflowName string     `db:"workflow_name"`
	WorkflowType string     `db:"workflow_type"`
	PlanSource   string     `db:"plan_source"`
	Status       string     `db:"status"`
	DryRun       bool       `db:"dry_run"`
	Parameters   JSONBMap   `db:"parameters"`
	Outputs      JSONBMap   `db:"outputs"`
	ErrorMessage *string    `db:"error_message"`
	StartedAt    time.Time  `db:"started_at"`
	CompletedAt  *time.Time `db:"completed_at"`
	CreatedAt    time.Time  `db:"created_at"`
}

/* StepRun is a persisted step result within a workflow run */
type StepRun struct {
	ID           uuid.UUID      `db:"id"`
	RunID        uuid.UUID      `db:"run_id"`
	StepID       string         `db:"step_id"`
	StepName     string         `db:"step_name"`
	StepType     string         `db:"step_type"`
	Dependencies pq.StringArray `db:"dependencies"`
	Status       string         `db:"status"`
	PortalID     *string        `db:"portal_id"`
	Attempts     int            `db:"attempts"`
	Output       JSONBMap       `db:"output"`
	ErrorMessage *string        `db:"error_message"`
	StartedAt    *time.Time     `db:"started_at"`
	CompletedAt  *time.Time     `db:"completed_at"`
}
