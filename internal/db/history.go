/*-------------------------------------------------------------------------
 *
 * history.go
 *    Workflow run history persistence
 *
 * Stores finished executions and their step results. History is an
 * optional feature; the server runs fully in-memory without it.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/db/history.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/portalmind/PortalAgent/internal/workflow"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS workflow_runs (
    id            UUID PRIMARY KEY,
    workflow_name TEXT NOT NULL,
    workflow_type TEXT NOT NULL,
    plan_source   TEXT NOT NULL,
    status        TEXT NOT NULL,
    dry_run       BOOLEAN NOT NULL DEFAULT FALSE,
    parameters    JSONB NOT NULL DEFAULT '{}',
    outputs       JSONB NOT NULL DEFAULT '{}',
    error_message TEXT,
    started_at    TIMESTAMPTZ NOT NULL,
    completed_at  TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS step_runs (
    id            UUID PRIMARY KEY,
    run_id        UUID NOT NULL REFERENCES workflow_runs(id) ON DELETE CASCADE,
    step_id       TEXT NOT NULL,
    step_name     TEXT NOT NULL,
    step_type     TEXT NOT NULL,
    dependencies  TEXT[] NOT NULL DEFAULT '{}',
    status        TEXT NOT NULL,
    portal_id     TEXT,
    attempts      INTEGER NOT NULL DEFAULT 0,
    output        JSONB NOT NULL DEFAULT '{}',
    error_message TEXT,
    started_at    TIMESTAMPTZ,
    completed_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_workflow_runs_started_at ON workflow_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_step_runs_run_id ON step_runs(run_id);
`

/* Queries provides run history access over a DB */
type Queries struct {
	db *DB
}

/* NewQueries creates history queries */
func NewQueries(db *DB) *Queries {
	return &Queries{db: db}
}

/* HealthCheck tests the underlying database connection */
func (q *Queries) HealthCheck(ctx context.Context) error {
	return q.db.HealthCheck(ctx)
}

/* EnsureSchema creates the history tables when missing */
func (q *Queries) EnsureSchema(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, historySchema); err != nil {
		return fmt.Errorf("history schema creation failed: error=%w", err)
	}
	return nil
}

/* SaveExecution persists a finished execution and its step results */
func (q *Queries) SaveExecution(ctx context.Context, execution *workflow.Execution) error {
	tx, err := q.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history save failed: workflow_id='%s', error=%w", execution.ID.String(), err)
	}
	defer tx.Rollback()

	run := &WorkflowRun{
		ID:           execution.ID,
		WorkflowName: execution.Plan.Name,
		WorkflowType: execution.Plan.Type,
		PlanSource:   execution.Plan.Source,
		Status:       execution.Status,
		DryRun:       execution.DryRun,
		Parameters:   JSONBMap(execution.Plan.Parameters),
		Outputs:      JSONBMap(execution.Outputs),
		StartedAt:    execution.StartedAt,
		CompletedAt:  execution.CompletedAt,
	}
	if execution.Error != "" {
		run.ErrorMessage = &execution.Error
	}

	_, err = tx.NamedExecContext(ctx, `
        INSERT INTO workflow_runs (id, workflow_name, workflow_type, plan_source, status, dry_run,
                                   parameters, outputs, error_message, started_at, completed_at)
        VALUES (:id, :workflow_name, :workflow_type, :plan_source, :status, :dry_run,
                :parameters, :outputs, :error_message, :started_at, :completed_at)
        ON CONFLICT (id) DO UPDATE SET
            status = EXCLUDED.status,
            outputs = EXCLUDED.outputs,
            error_message = EXCLUDED.error_message,
            completed_at = EXCLUDED.completed_at`, run)
	if err != nil {
		return fmt.Errorf("history save failed: workflow_id='%s', error=%w", execution.ID.String(), err)
	}

	for _, step := range execution.Plan.Steps {
		result, ok := execution.StepResults[step.ID]
		if !ok {
			continue
		}

		stepRun := &StepRun{
			ID:           uuid.New(),
			RunID:        execution.ID,
			StepID:       step.ID,
			StepName:     step.Name,
			StepType:     step.Type,
			Dependencies: pq.StringArray(step.DependsOn),
			Status:       result.Status,
			Attempts:     result.Attempts,
			Output:       JSONBMap(result.Output),
			StartedAt:    result.StartedAt,
			CompletedAt:  result.CompletedAt,
		}
		if result.PortalID != "" {
			stepRun.PortalID = &result.PortalID
		}
		if result.Error != "" {
			stepRun.ErrorMessage = &result.Error
		}

		_, err = tx.NamedExecContext(ctx, `
            INSERT INTO step_runs (id, run_id, step_id, step_name, step_type, dependencies,
                                   status, portal_id, attempts, output, error_message,
                                   started_at, completed_at)
            VALUES (:id, :run_id, :step_id, :step_name, :step_type, :dependencies,
                    :status, :portal_id, :attempts, :output, :error_message,
                    :started_at, :completed_at)`, stepRun)
		if err != nil {
			return fmt.Errorf("history step save failed: workflow_id='%s', step_id='%s', error=%w",
				execution.ID.String(), step.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history save failed: workflow_id='%s', error=%w", execution.ID.String(), err)
	}
	return nil
}

/* ListRuns returns recent runs, newest first */
func (q *Queries) ListRuns(ctx context.Context, limit, offset int) ([]WorkflowRun, error) {
	if limit <= 0 {
		limit = 50
	}

	var runs []WorkflowRun
	err := q.db.SelectContext(ctx, &runs, `
        SELECT * FROM workflow_runs
        ORDER BY started_at DESC
        LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("run listing failed: error=%w", err)
	}
	return runs, nil
}

/* GetRun returns one run with its step results */
func (q *Queries) GetRun(ctx context.Context, id uuid.UUID) (*WorkflowRun, []StepRun, error) {
	var run WorkflowRun
	err := q.db.GetContext(ctx, &run, `SELECT * FROM workflow_runs WHERE id = $1`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("run retrieval failed: workflow_id='%s', error=%w", id.String(), err)
	}

	var steps []StepRun
	err = q.db.SelectContext(ctx, &steps, `
        SELECT * FROM step_runs WHERE run_id = $1 ORDER BY started_at NULLS LAST`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("step run retrieval failed: workflow_id='%s', error=%w", id.String(), err)
	}

	return &run, steps, nil
}
