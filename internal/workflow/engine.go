/*-------------------------------------------------------------------------
 *
 * engine.go
 *    Workflow DAG engine
 *
 * Executes plans as dependency DAGs: steps whose dependencies are all
 * satisfied run concurrently in waves. A failed step fails the run but
 * does not stop independent branches; steps downstream of a failure
 * are skipped. Dry runs simulate destructive steps instead of calling
 * the portal.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/workflow/engine.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/portalmind/PortalAgent/internal/metrics"
)

/* StepExecutor runs one step and returns its output and serving portal */
type StepExecutor interface {
	ExecuteStep(ctx context.Context, step *Step, inputs map[string]interface{}) (map[string]interface{}, string, error)
}

/* HistoryStore persists finished executions; implementations may be nil */
type HistoryStore interface {
	SaveExecution(ctx context.Context, execution *Execution) error
}

type Engine struct {
	executor StepExecutor
	registry *Registry
	history  HistoryStore

	/* Completed outputs by idempotency key */
	mu          sync.Mutex
	idempotency map[string]map[string]interface{}
}

/* NewEngine creates a workflow engine; history may be nil */
func NewEngine(executor StepExecutor, registry *Registry, history HistoryStore) *Engine {
	return &Engine{
		executor:    executor,
		registry:    registry,
		history:     history,
		idempotency: make(map[string]map[string]interface{}),
	}
}

/* Execute runs a plan to completion and returns the finished execution.
 * Construction errors (bad DAG, empty plan) fail before any step runs. */
func (e *Engine) Execute(ctx context.Context, plan *Plan, inputs map[string]interface{}, dryRun bool) (*Execution, error) {
	if plan == nil || len(plan.Steps) == 0 {
		return nil, fmt.Errorf("workflow execution failed: error=plan has no steps")
	}

	dependents, inDegree, err := buildDAG(plan.Steps)
	if err != nil {
		return nil, fmt.Errorf("workflow execution failed: workflow='%s', error=%w", plan.Name, err)
	}

	execution := &Execution{
		ID:          uuid.New(),
		Plan:        plan,
		Status:      StatusRunning,
		DryRun:      dryRun,
		StepResults: make(map[string]*StepResult, len(plan.Steps)),
		StartedAt:   time.Now(),
	}
	for i := range plan.Steps {
		step := &plan.Steps[i]
		execution.StepResults[step.ID] = &StepResult{
			StepID: step.ID,
			Name:   step.Name,
			Type:   step.Type,
			Status: StatusPending,
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.registry.register(execution, cancel)
	defer e.registry.markDone(execution.ID)

	metrics.InfoWithContext(ctx, "workflow execution started", map[string]interface{}{
		"workflow_id": execution.ID.String(),
		"workflow":    plan.Name,
		"steps":       len(plan.Steps),
		"dry_run":     dryRun,
	})

	e.runWaves(runCtx, execution, inputs, dependents, inDegree)
	e.finalize(ctx, execution)
	return execution, nil
}

/* runWaves executes ready steps concurrently until no step is pending.
 * All execution state mutations happen under execution.mu so that
 * status polling can snapshot the run mid-flight. */
func (e *Engine) runWaves(ctx context.Context, execution *Execution, inputs map[string]interface{}, dependents map[string][]string, inDegree map[string]int) {
	steps := make(map[string]*Step, len(execution.Plan.Steps))
	for i := range execution.Plan.Steps {
		steps[execution.Plan.Steps[i].ID] = &execution.Plan.Steps[i]
	}

	for {
		if ctx.Err() != nil {
			e.cancelPending(execution)
			return
		}

		execution.mu.Lock()

		/* Resolve steps whose dependencies cannot be satisfied anymore */
		skippedAny := true
		for skippedAny {
			skippedAny = false
			for id, step := range steps {
				result := execution.StepResults[id]
				if result.Status != StatusPending {
					continue
				}
				for _, dep := range step.DependsOn {
					depStatus := execution.StepResults[dep].Status
					if depStatus == StatusFailed || depStatus == StatusSkipped || depStatus == StatusCancelled {
						result.Status = StatusSkipped
						result.Error = fmt.Sprintf("dependency '%s' did not complete", dep)
						for _, dependent := range dependents[id] {
							inDegree[dependent]--
						}
						skippedAny = true
						break
					}
				}
			}
		}

		/* Collect the ready wave. Dependency outputs are settled at this
		 * point, so step inputs are built here too. */
		var ready []*Step
		var readyInputs []map[string]interface{}
		for id, step := range steps {
			if inDegree[id] == 0 && execution.StepResults[id].Status == StatusPending {
				execution.StepResults[id].Status = StatusRunning
				ready = append(ready, step)
				readyInputs = append(readyInputs, buildStepInputs(step, inputs, execution))
			}
		}
		execution.mu.Unlock()

		if len(ready) == 0 {
			return
		}

		var wg sync.WaitGroup
		for i, step := range ready {
			wg.Add(1)
			go func(s *Step, stepInputs map[string]interface{}) {
				defer wg.Done()

				result := e.runStep(ctx, execution, s, stepInputs)

				execution.mu.Lock()
				execution.StepResults[s.ID] = result
				for _, dependent := range dependents[s.ID] {
					inDegree[dependent]--
				}
				execution.mu.Unlock()
			}(step, readyInputs[i])
		}
		wg.Wait()
	}
}

/* runStep executes one step with dry-run short-circuit, idempotency
 * caching, per-step timeout and gated retries */
func (e *Engine) runStep(ctx context.Context, execution *Execution, step *Step, stepInputs map[string]interface{}) *StepResult {
	start := time.Now()
	result := &StepResult{
		StepID:    step.ID,
		Name:      step.Name,
		Type:      step.Type,
		Status:    StatusRunning,
		StartedAt: &start,
	}

	finish := func(status string) *StepResult {
		end := time.Now()
		result.Status = status
		result.CompletedAt = &end
		metrics.RecordWorkflowStep(step.Type, status, end.Sub(start))
		return result
	}

	if execution.DryRun && destructiveStepTypes[step.Type] {
		result.Output = map[string]interface{}{
			"simulated": true,
			"operation": step.Operation,
			"message":   fmt.Sprintf("dry run: %s not executed", step.Name),
		}
		result.Attempts = 0
		return finish(StatusSimulated)
	}

	if step.IdempotencyKey != "" {
		e.mu.Lock()
		cached, ok := e.idempotency[step.IdempotencyKey]
		e.mu.Unlock()
		if ok {
			result.Output = cached
			result.Attempts = 0
			return finish(StatusCompleted)
		}
	}

	maxAttempts := 1
	if step.retriable() {
		maxAttempts = 1 + step.RetryCount
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			result.Error = ctx.Err().Error()
			return finish(StatusCancelled)
		}
		result.Attempts = attempt

		output, portalID, err := e.executeAttempt(ctx, step, stepInputs)
		if err != nil {
			var skip *SkipError
			if errors.As(err, &skip) {
				result.Error = skip.Reason
				return finish(StatusSkipped)
			}
		}
		if err == nil {
			result.Output = output
			result.PortalID = portalID
			if step.IdempotencyKey != "" {
				e.mu.Lock()
				e.idempotency[step.IdempotencyKey] = output
				e.mu.Unlock()
			}
			return finish(StatusCompleted)
		}

		lastErr = err
		if attempt < maxAttempts {
			metrics.WarnWithContext(ctx, "step attempt failed, retrying", map[string]interface{}{
				"workflow_id": execution.ID.String(),
				"step_id":     step.ID,
				"attempt":     attempt,
				"error":       err.Error(),
			})
			select {
			case <-ctx.Done():
				result.Error = ctx.Err().Error()
				return finish(StatusCancelled)
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
	}

	if ctx.Err() != nil && errors.Is(lastErr, context.Canceled) {
		result.Error = lastErr.Error()
		return finish(StatusCancelled)
	}

	result.Error = lastErr.Error()
	return finish(StatusFailed)
}

/* executeAttempt runs a single attempt under the step timeout */
func (e *Engine) executeAttempt(ctx context.Context, step *Step, inputs map[string]interface{}) (map[string]interface{}, string, error) {
	attemptCtx := ctx
	var cancel context.CancelFunc
	if step.TimeoutSeconds > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, time.Duration(step.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	output, portalID, err := e.executor.ExecuteStep(attemptCtx, step, inputs)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, "", fmt.Errorf("step timed out: step_id='%s', timeout=%ds", step.ID, step.TimeoutSeconds)
		}
		return nil, "", err
	}
	return output, portalID, nil
}

/* cancelPending marks every unfinished step cancelled */
func (e *Engine) cancelPending(execution *Execution) {
	execution.mu.Lock()
	defer execution.mu.Unlock()

	for _, result := range execution.StepResults {
		if result.Status == StatusPending || result.Status == StatusRunning {
			result.Status = StatusCancelled
			if result.Error == "" {
				result.Error = "execution cancelled"
			}
		}
	}
}

/* finalize computes the overall status, outputs and error */
func (e *Engine) finalize(ctx context.Context, execution *Execution) {
	execution.mu.Lock()
	now := time.Now()
	execution.CompletedAt = &now
	execution.Outputs = make(map[string]interface{})

	anyFailed := false
	anyCancelled := false
	for _, step := range execution.Plan.Steps {
		result := execution.StepResults[step.ID]
		switch result.Status {
		case StatusFailed:
			anyFailed = true
			if execution.Error == "" {
				execution.Error = fmt.Sprintf("step failed: step_id='%s', error=%s", result.StepID, result.Error)
			}
		case StatusCancelled:
			anyCancelled = true
		case StatusCompleted, StatusSimulated:
			if result.Output != nil {
				execution.Outputs[step.ID] = result.Output
			}
		}
	}

	switch {
	case anyCancelled:
		execution.Status = StatusCancelled
	case anyFailed:
		execution.Status = StatusFailed
	default:
		execution.Status = StatusCompleted
	}
	execution.mu.Unlock()

	metrics.RecordWorkflowExecution(execution.Plan.Type, execution.Status, execution.Duration())
	metrics.InfoWithContext(ctx, "workflow execution finished", map[string]interface{}{
		"workflow_id": execution.ID.String(),
		"workflow":    execution.Plan.Name,
		"status":      execution.Status,
		"duration_ms": execution.Duration().Milliseconds(),
	})

	if e.history != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.history.SaveExecution(saveCtx, execution); err != nil {
			metrics.WarnWithContext(ctx, "execution history save failed", map[string]interface{}{
				"workflow_id": execution.ID.String(),
				"error":       err.Error(),
			})
		}
	}
}

/* buildDAG validates the step graph and returns the dependents list and
 * in-degree per step. Kahn's algorithm detects cycles. */
func buildDAG(steps []Step) (map[string][]string, map[string]int, error) {
	dependents := make(map[string][]string, len(steps))
	inDegree := make(map[string]int, len(steps))
	ids := make(map[string]bool, len(steps))

	for i := range steps {
		if steps[i].ID == "" {
			return nil, nil, fmt.Errorf("step id empty: index=%d", i)
		}
		if ids[steps[i].ID] {
			return nil, nil, fmt.Errorf("duplicate step id: step_id='%s'", steps[i].ID)
		}
		ids[steps[i].ID] = true
		inDegree[steps[i].ID] = 0
	}

	for i := range steps {
		for _, dep := range steps[i].DependsOn {
			if dep == steps[i].ID {
				return nil, nil, fmt.Errorf("step depends on itself: step_id='%s'", steps[i].ID)
			}
			if !ids[dep] {
				return nil, nil, fmt.Errorf("unknown dependency: step_id='%s', dependency='%s'", steps[i].ID, dep)
			}
			dependents[dep] = append(dependents[dep], steps[i].ID)
			inDegree[steps[i].ID]++
		}
	}

	/* Topological sort using Kahn's algorithm */
	degree := make(map[string]int, len(inDegree))
	for id, d := range inDegree {
		degree[id] = d
	}

	var queue []string
	for id, d := range degree {
		if d == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		visited++

		for _, dependent := range dependents[current] {
			degree[dependent]--
			if degree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if visited != len(steps) {
		return nil, nil, fmt.Errorf("dependency graph contains cycles")
	}

	return dependents, inDegree, nil
}

/* buildStepInputs merges plan inputs, step parameters and dependency outputs */
func buildStepInputs(step *Step, inputs map[string]interface{}, execution *Execution) map[string]interface{} {
	stepInputs := make(map[string]interface{})

	for k, v := range inputs {
		stepInputs[k] = v
	}
	for k, v := range step.Parameters {
		stepInputs[k] = v
	}

	for _, dep := range step.DependsOn {
		result, ok := execution.StepResults[dep]
		if !ok || result.Output == nil {
			continue
		}
		for k, v := range result.Output {
			stepInputs[fmt.Sprintf("%s_%s", dep, k)] = v
		}
	}

	return stepInputs
}
