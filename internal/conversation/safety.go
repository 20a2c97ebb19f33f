/*-------------------------------------------------------------------------
 *
 * safety.go
 *    Safety assessment for gated operations
 *
 * Every confirmation prompt carries a short safety narrative. The model
 * may produce a sharper one; static rules always provide the fallback.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 *-------------------------------------------------------------------------
 */

package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/portalmind/PortalAgent/internal/llm"
	"github.com/portalmind/PortalAgent/internal/metrics"
	"github.com/portalmind/PortalAgent/internal/nlp"
)

/* maxAssessmentLen bounds model output folded into chat prompts */
const maxAssessmentLen = 400

/* assessSafety produces the safety narrative shown with a confirmation
 * prompt. Model failures degrade to the static assessment. */
func assessSafety(ctx context.Context, generator llm.Generator, intent nlp.Intent, entities nlp.Entities, input string) string {
	static := staticAssessment(intent, entities)
	if generator == nil {
		return static
	}

	prompt := fmt.Sprintf("In at most two sentences, state the main risk of this database operation and one precaution. Operation: %s. Request: %q.", intent, input)
	reply, err := generator.Generate(ctx, prompt)
	if err != nil {
		metrics.WarnWithContext(ctx, "safety assessment generation failed, using static assessment", map[string]interface{}{
			"intent": string(intent),
			"error":  err.Error(),
		})
		return static
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return static
	}
	if len(reply) > maxAssessmentLen {
		reply = reply[:maxAssessmentLen]
	}
	return reply
}

func staticAssessment(intent nlp.Intent, entities nlp.Entities) string {
	var b strings.Builder

	switch intent {
	case nlp.IntentDelete:
		b.WriteString("Deleted data cannot be recovered without a backup.")
	case nlp.IntentMigration:
		b.WriteString("Migrations move data between systems and can leave the source and target inconsistent if interrupted.")
	case nlp.IntentAdministration:
		b.WriteString("Administrative changes affect access for every user of the database.")
	case nlp.IntentRestore:
		b.WriteString("Restoring overwrites current data with the backup contents.")
	case nlp.IntentUpdate:
		b.WriteString("Updates modify live data in place.")
	default:
		b.WriteString("This operation modifies managed resources.")
	}

	if entities.Environment == "production" {
		b.WriteString(" The target is a production environment.")
	}
	if len(entities.Databases) > 0 {
		fmt.Fprintf(&b, " Affected databases: %s.", strings.Join(entities.Databases, ", "))
	}

	return b.String()
}
