/*-------------------------------------------------------------------------
 *
 * report.go
 *    Execution summaries and recommendations
 *
 * Renders a per-step summary of a finished execution and derives
 * follow-up recommendations, with the model as an optional enrichment
 * over the static rules.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/workflow/report.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/portalmind/PortalAgent/internal/llm"
	"github.com/portalmind/PortalAgent/internal/metrics"
)

/* statusGlyphs give the summary a scannable per-step marker */
var statusGlyphs = map[string]string{
	StatusCompleted: "✓",
	StatusSimulated: "~",
	StatusFailed:    "✗",
	StatusSkipped:   "⊘",
	StatusCancelled: "✗",
	StatusPending:   "·",
	StatusRunning:   "·",
}

/* Summarize renders a human-readable execution summary */
func Summarize(execution *Execution) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Workflow '%s' %s in %s\n", execution.Plan.Name, execution.Status, execution.Duration().Round(10 * time.Millisecond))
	for _, result := range execution.orderedResults() {
		glyph, ok := statusGlyphs[result.Status]
		if !ok {
			glyph = "?"
		}
		fmt.Fprintf(&b, "  %s %s (%s)", glyph, result.Name, result.Status)
		if d := result.Duration(); d > 0 {
			fmt.Fprintf(&b, " [%s]", d.Round(10 * time.Millisecond))
		}
		if result.Error != "" {
			fmt.Fprintf(&b, " - %s", result.Error)
		}
		b.WriteString("\n")
	}
	if execution.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", execution.Error)
	}

	return b.String()
}

/* Recommendations derives follow-up advice for a finished execution.
 * The model may supply better advice; on failure the static rules apply. */
func Recommendations(ctx context.Context, generator llm.Generator, execution *Execution) []string {
	if generator != nil {
		prompt := fmt.Sprintf("Give at most three short operational recommendations, one per line, for this workflow result:\n\n%s", Summarize(execution))
		if reply, err := generator.Generate(ctx, prompt); err == nil {
			if recs := splitRecommendations(reply); len(recs) > 0 {
				return recs
			}
		} else {
			metrics.WarnWithContext(ctx, "recommendation generation failed, using static rules", map[string]interface{}{
				"workflow_id": execution.ID.String(),
				"error":       err.Error(),
			})
		}
	}

	return staticRecommendations(execution)
}

func splitRecommendations(reply string) []string {
	var recs []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. "))
		if line == "" {
			continue
		}
		recs = append(recs, line)
		if len(recs) == 3 {
			break
		}
	}
	return recs
}

func staticRecommendations(execution *Execution) []string {
	var recs []string

	switch execution.Status {
	case StatusFailed:
		recs = append(recs, "Review the failed step error and re-run the workflow once the cause is fixed.")
	case StatusCancelled:
		recs = append(recs, "The run was cancelled; re-run it when you are ready to proceed.")
	}

	skipped := 0
	for _, result := range execution.StepResults {
		if result.Status == StatusSkipped {
			skipped++
		}
	}
	if skipped > 0 {
		recs = append(recs, fmt.Sprintf("%d step(s) were skipped; check portal capabilities and health.", skipped))
	}

	if execution.DryRun {
		recs = append(recs, "This was a dry run; re-run without dry_run to apply the changes.")
	}

	if len(recs) == 0 {
		recs = append(recs, "All steps completed; no follow-up needed.")
	}
	return recs
}
