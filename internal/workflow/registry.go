/*-------------------------------------------------------------------------
 *
 * registry.go
 *    In-memory workflow execution registry
 *
 * Tracks running and recently finished executions, supports cooperative
 * cancellation, and prunes finished runs past the retention window.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/workflow/registry.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/portalmind/PortalAgent/internal/metrics"
)

type Registry struct {
	mu         sync.RWMutex
	executions map[uuid.UUID]*Execution
	cancels    map[uuid.UUID]context.CancelFunc
	retention  time.Duration
}

/* NewRegistry creates an execution registry */
func NewRegistry(retention time.Duration) *Registry {
	if retention <= 0 {
		retention = time.Hour
	}
	return &Registry{
		executions: make(map[uuid.UUID]*Execution),
		cancels:    make(map[uuid.UUID]context.CancelFunc),
		retention:  retention,
	}
}

/* register records an execution and its cancel hook */
func (r *Registry) register(execution *Execution, cancel context.CancelFunc) {
	r.mu.Lock()
	r.executions[execution.ID] = execution
	r.cancels[execution.ID] = cancel
	active := len(r.cancels)
	r.mu.Unlock()

	metrics.SetWorkflowsActive(active)
}

/* markDone drops the cancel hook once the execution finished */
func (r *Registry) markDone(id uuid.UUID) {
	r.mu.Lock()
	delete(r.cancels, id)
	active := len(r.cancels)
	r.mu.Unlock()

	metrics.SetWorkflowsActive(active)
}

/* Get retrieves a snapshot of an execution by ID. Snapshots are safe
 * to read and encode while the run is still executing. */
func (r *Registry) Get(id uuid.UUID) (*Execution, error) {
	r.mu.RLock()
	execution, ok := r.executions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("execution lookup failed: workflow_id='%s', error=not found", id.String())
	}
	return execution.Snapshot(), nil
}

/* List returns execution snapshots newest first */
func (r *Registry) List() []*Execution {
	r.mu.RLock()
	live := make([]*Execution, 0, len(r.executions))
	for _, e := range r.executions {
		live = append(live, e)
	}
	r.mu.RUnlock()

	out := make([]*Execution, 0, len(live))
	for _, e := range live {
		out = append(out, e.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

/* Cancel requests cooperative cancellation of a running execution */
func (r *Registry) Cancel(id uuid.UUID) error {
	r.mu.RLock()
	cancel, ok := r.cancels[id]
	_, known := r.executions[id]
	r.mu.RUnlock()

	if !known {
		return fmt.Errorf("execution cancel failed: workflow_id='%s', error=not found", id.String())
	}
	if !ok {
		return fmt.Errorf("execution cancel failed: workflow_id='%s', error=already finished", id.String())
	}
	cancel()
	return nil
}

/* Prune removes finished executions older than the retention window */
func (r *Registry) Prune() int {
	cutoff := time.Now().Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, execution := range r.executions {
		if _, running := r.cancels[id]; running {
			continue
		}
		if execution.CompletedAt != nil && execution.CompletedAt.Before(cutoff) {
			delete(r.executions, id)
			removed++
		}
	}
	return removed
}
