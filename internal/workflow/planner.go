/*-------------------------------------------------------------------------
 *
 * planner.go
 *    Workflow planning
 *
 * Plans are built in three tiers: a matching template, a model-generated
 * plan, and finally a generic validate-execute-verify fallback. The
 * planner never fails; every classified intent yields a runnable plan.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/workflow/planner.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/portalmind/PortalAgent/internal/llm"
	"github.com/portalmind/PortalAgent/internal/metrics"
	"github.com/portalmind/PortalAgent/internal/nlp"
)

/* validStepTypes guards model-generated plans */
var validStepTypes = map[string]bool{
	StepDatabaseOperation:     true,
	StepBackupOperation:       true,
	StepRestoreOperation:      true,
	StepAnalysisOperation:     true,
	StepMonitoringOperation:   true,
	StepOptimizationOperation: true,
	StepComplianceCheck:       true,
	StepAIAnalysis:            true,
	StepPerformanceTest:       true,
	StepPortalIntegration:     true,
	StepValidation:            true,
	StepNotification:          true,
}

/* Planner builds execution plans for classified requests */
type Planner struct {
	generator llm.Generator
}

/* NewPlanner creates a planner; generator may be nil */
func NewPlanner(generator llm.Generator) *Planner {
	return &Planner{generator: generator}
}

/* BuildPlan returns a plan for the classified request */
func (p *Planner) BuildPlan(ctx context.Context, result nlp.IntentResult, input string) *Plan {
	parameters := result.Entities.ToMap()
	parameters["original_request"] = input
	parameters["intent"] = string(result.Intent)

	if plan, ok := TemplateForIntent(result.Intent, parameters); ok {
		return plan
	}

	if p.generator != nil {
		if plan, err := p.modelPlan(ctx, result, input, parameters); err != nil {
			metrics.WarnWithContext(ctx, "model planning failed, using fallback plan", map[string]interface{}{
				"intent": string(result.Intent),
				"error":  err.Error(),
			})
		} else {
			return plan
		}
	}

	return fallbackPlan(result, parameters)
}

/* modelPlan asks the model for a JSON step list and validates it */
func (p *Planner) modelPlan(ctx context.Context, result nlp.IntentResult, input string, parameters map[string]interface{}) (*Plan, error) {
	prompt := buildPlanPrompt(result, input)

	reply, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("plan generation failed: intent='%s', error=%w", result.Intent, err)
	}

	steps, err := parsePlanReply(reply)
	if err != nil {
		return nil, fmt.Errorf("plan parsing failed: intent='%s', error=%w", result.Intent, err)
	}

	plan := &Plan{
		Name:        fmt.Sprintf("%s_plan", result.Intent),
		Description: fmt.Sprintf("Model-generated plan for %s request", result.Intent),
		Type:        string(result.Intent),
		Steps:       steps,
		Parameters:  parameters,
		Source:      SourceModel,
	}

	/* A malformed DAG from the model falls through to the fallback */
	if _, _, err := buildDAG(plan.Steps); err != nil {
		return nil, fmt.Errorf("plan validation failed: intent='%s', error=%w", result.Intent, err)
	}
	return plan, nil
}

func buildPlanPrompt(result nlp.IntentResult, input string) string {
	var b strings.Builder

	b.WriteString("Plan a database operation workflow as a JSON array of steps.\n\n")
	fmt.Fprintf(&b, "Request: %s\n", input)
	fmt.Fprintf(&b, "Intent: %s\n\n", result.Intent)
	b.WriteString("Each step is an object with fields: id, name, type, operation, depends_on (array of step ids).\n")
	b.WriteString("Valid types: ")
	types := make([]string, 0, len(validStepTypes))
	for t := range validStepTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	b.WriteString(strings.Join(types, ", "))
	b.WriteString("\nRespond with only the JSON array.\n")

	return b.String()
}

/* parsePlanReply extracts steps from the model reply. The array may be
 * wrapped in prose or code fences. */
func parsePlanReply(reply string) ([]Step, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in reply")
	}

	var raw []struct {
		ID        string   `json:"id"`
		Name      string   `json:"name"`
		Type      string   `json:"type"`
		Operation string   `json:"operation"`
		DependsOn []string `json:"depends_on"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("invalid step JSON: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty step list")
	}

	steps := make([]Step, 0, len(raw))
	for i, r := range raw {
		step := Step{
			ID:        r.ID,
			Name:      r.Name,
			Type:      r.Type,
			Operation: r.Operation,
			DependsOn: r.DependsOn,
		}
		if step.ID == "" {
			step.ID = fmt.Sprintf("step_%d", i+1)
		}
		if step.Name == "" {
			step.Name = step.ID
		}
		/* Unrecognized types are kept as-is; the executor completes them
		 * locally without side effects, so they must never be coerced
		 * into a destructive type */
		if step.Type == "" {
			step.Type = StepValidation
		}
		if step.Operation == "" {
			step.Operation = "execute"
		}
		steps = append(steps, step)
	}
	return steps, nil
}

/* fallbackPlan is the generic three step plan used when nothing better
 * can be built */
func fallbackPlan(result nlp.IntentResult, parameters map[string]interface{}) *Plan {
	stepType := StepDatabaseOperation
	switch result.Intent {
	case nlp.IntentRead, nlp.IntentMonitor:
		stepType = StepMonitoringOperation
	case nlp.IntentAnalyze, nlp.IntentTroubleshoot:
		stepType = StepAnalysisOperation
	}

	return &Plan{
		Name:        "generic_workflow",
		Description: fmt.Sprintf("Generic plan for %s request", result.Intent),
		Type:        string(result.Intent),
		Parameters:  parameters,
		Source:      SourceFallback,
		Steps: []Step{
			{
				ID:        "validate",
				Name:      "Validate request",
				Type:      StepValidation,
				Operation: "validate_request",
			},
			{
				ID:        "execute",
				Name:      "Execute operation",
				Type:      stepType,
				Operation: string(result.Intent),
				DependsOn: []string{"validate"},
			},
			{
				ID:        "verify",
				Name:      "Verify outcome",
				Type:      StepValidation,
				Operation: "verify_result",
				DependsOn: []string{"execute"},
			},
		},
	}
}
