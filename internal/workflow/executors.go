/*-------------------------------------------------------------------------
 *
 * executors.go
 *    Step execution against the portal gateway
 *
 * Maps step types to portal operations. Steps that no portal can serve
 * are reported as skipped rather than failed. Notifications are local
 * only; there is no outbound notification transport here.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/workflow/executors.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/portalmind/PortalAgent/internal/llm"
	"github.com/portalmind/PortalAgent/internal/metrics"
	"github.com/portalmind/PortalAgent/internal/portal"
)

/* SkipError marks a step that could not be routed to any portal */
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return e.Reason
}

/* PortalExecutor executes steps by routing them through the gateway */
type PortalExecutor struct {
	gateway   portal.Gateway
	generator llm.Generator
}

/* NewPortalExecutor creates the production step executor; generator may
 * be nil, in which case AI analysis steps fall back to a static digest */
func NewPortalExecutor(gateway portal.Gateway, generator llm.Generator) *PortalExecutor {
	return &PortalExecutor{gateway: gateway, generator: generator}
}

/* ExecuteStep runs one step against the portal that serves its capability.
 * Step types without an executor complete locally as a no-op echo rather
 * than reaching a portal. */
func (x *PortalExecutor) ExecuteStep(ctx context.Context, step *Step, inputs map[string]interface{}) (map[string]interface{}, string, error) {
	switch step.Type {
	case StepNotification:
		return x.executeNotification(ctx, step, inputs)
	case StepAIAnalysis:
		return x.executeAIAnalysis(ctx, step, inputs)
	case StepComplianceCheck:
		if step.Operation == "generate_report" {
			return x.executeComplianceReport(ctx, step, inputs)
		}
	}
	if !validStepTypes[step.Type] {
		return x.executeEcho(ctx, step)
	}

	result, err := x.gateway.ExecuteOperation(ctx, step.RequiredCapability(), step.Operation, inputs)
	if err != nil {
		return nil, "", fmt.Errorf("step execution failed: step_id='%s', operation='%s', error=%w",
			step.ID, step.Operation, err)
	}
	if result.Status == portal.StatusSkipped {
		return nil, "", &SkipError{Reason: result.Reason}
	}
	return result.Output, result.PortalID, nil
}

/* executeNotification records the notification in the log stream */
func (x *PortalExecutor) executeNotification(ctx context.Context, step *Step, inputs map[string]interface{}) (map[string]interface{}, string, error) {
	message, _ := inputs["message"].(string)
	if message == "" {
		message = fmt.Sprintf("workflow step '%s' reached", step.Name)
	}

	metrics.InfoWithContext(ctx, "workflow notification", map[string]interface{}{
		"step_id": step.ID,
		"message": message,
	})

	return map[string]interface{}{
		"notified": true,
		"message":  message,
	}, "", nil
}

/* executeAIAnalysis summarizes step inputs with the model, falling back
 * to a static digest when no generator is wired or the call fails */
func (x *PortalExecutor) executeAIAnalysis(ctx context.Context, step *Step, inputs map[string]interface{}) (map[string]interface{}, string, error) {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	analysis := fmt.Sprintf("Reviewed %d input value(s) for '%s'; no anomalies flagged.", len(inputs), step.Name)

	if x.generator != nil {
		prompt := fmt.Sprintf("Analyze this database operation step in at most two sentences.\nStep: %s\nOperation: %s\nInput fields: %s\n",
			step.Name, step.Operation, strings.Join(keys, ", "))
		if reply, err := x.generator.Generate(ctx, prompt); err == nil && strings.TrimSpace(reply) != "" {
			analysis = strings.TrimSpace(reply)
		} else if err != nil {
			metrics.WarnWithContext(ctx, "analysis generation failed, using static digest", map[string]interface{}{
				"step_id": step.ID,
				"error":   err.Error(),
			})
		}
	}

	return map[string]interface{}{
		"analysis":     analysis,
		"input_fields": keys,
	}, "", nil
}

/* executeEcho completes an unroutable step locally */
func (x *PortalExecutor) executeEcho(ctx context.Context, step *Step) (map[string]interface{}, string, error) {
	metrics.InfoWithContext(ctx, "step type has no executor, completing locally", map[string]interface{}{
		"step_id":   step.ID,
		"step_type": step.Type,
	})
	return map[string]interface{}{
		"echo":      true,
		"operation": step.Operation,
		"message":   fmt.Sprintf("no executor for step type '%s'; step recorded without effect", step.Type),
	}, "", nil
}

/* executeComplianceReport routes a report request through the gateway */
func (x *PortalExecutor) executeComplianceReport(ctx context.Context, step *Step, inputs map[string]interface{}) (map[string]interface{}, string, error) {
	reportType, _ := inputs["report_type"].(string)
	if reportType == "" {
		reportType = "audit"
	}

	result, err := x.gateway.GenerateComplianceReport(ctx, reportType, inputs)
	if err != nil {
		return nil, "", fmt.Errorf("step execution failed: step_id='%s', report_type='%s', error=%w",
			step.ID, reportType, err)
	}
	if result.Status == portal.StatusSkipped {
		return nil, "", &SkipError{Reason: result.Reason}
	}
	return result.Output, result.PortalID, nil
}
