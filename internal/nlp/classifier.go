/*-------------------------------------------------------------------------
 *
 * classifier.go
 *    Hybrid intent classification
 *
 * Runs a fast keyword pattern pass and, when pattern confidence is low,
 * consults the language model. The model pass can only improve on the
 * pattern result and never fails the request: on any model error the
 * pattern result is returned as-is.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/nlp/classifier.go
 *
 *-------------------------------------------------------------------------
 */

package nlp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/portalmind/PortalAgent/internal/llm"
	"github.com/portalmind/PortalAgent/internal/metrics"
)

const (
	/* Below this pattern confidence the language model is consulted */
	modelPassThreshold = 0.8
)

/* Classifier classifies free-text requests into database operation intents */
type Classifier struct {
	generator llm.Generator
}

/* NewClassifier creates a classifier; generator may be nil for pattern-only mode */
func NewClassifier(generator llm.Generator) *Classifier {
	return &Classifier{generator: generator}
}

/* Classify runs the hybrid classification pipeline. It never returns an
 * error: model failures degrade to the pattern result. */
func (c *Classifier) Classify(ctx context.Context, input string, conversationContext map[string]interface{}) IntentResult {
	result := c.classifyByPatterns(input)
	source := "pattern"

	if result.Confidence < modelPassThreshold && c.generator != nil {
		if modelResult, err := c.classifyByModel(ctx, input, conversationContext); err != nil {
			metrics.WarnWithContext(ctx, "model classification failed, using pattern result", map[string]interface{}{
				"error":  err.Error(),
				"intent": string(result.Intent),
			})
		} else if modelResult.Confidence > result.Confidence {
			modelResult.Entities = mergeEntities(result.Entities, modelResult.Entities)
			result = modelResult
			source = "model"
		}
	}

	result.RequiresConfirmation = RequiresConfirmation(result.Intent, result.Confidence)
	metrics.RecordIntentClassification(string(result.Intent), source, result.Confidence)
	return result
}

/* classifyByPatterns scores every intent by keyword coverage and keeps
 * the best. Ties keep the earlier intent in catalog order. */
func (c *Classifier) classifyByPatterns(input string) IntentResult {
	lower := strings.ToLower(input)

	best := IntentUnknown
	bestScore := 0.0
	var bestMatches []string

	for _, intent := range intentOrder {
		patterns := intentPatterns[intent]
		var matches []string
		for _, pattern := range patterns {
			if strings.Contains(lower, pattern) {
				matches = append(matches, pattern)
			}
		}
		if len(matches) == 0 {
			continue
		}
		score := float64(len(matches)) / float64(len(patterns))
		if score > bestScore {
			best = intent
			bestScore = score
			bestMatches = matches
		}
	}

	if best == IntentUnknown {
		return IntentResult{
			Intent:      IntentUnknown,
			Confidence:  0.0,
			Entities:    ExtractEntities(input),
			Explanation: "no keyword patterns matched",
		}
	}

	confidence := bestScore * 2
	if confidence > 1.0 {
		confidence = 1.0
	}

	return IntentResult{
		Intent:      best,
		Confidence:  confidence,
		Entities:    ExtractEntities(input),
		Explanation: fmt.Sprintf("matched keywords: %s", strings.Join(bestMatches, ", ")),
	}
}

/* classifyByModel asks the language model for a structured classification */
func (c *Classifier) classifyByModel(ctx context.Context, input string, conversationContext map[string]interface{}) (IntentResult, error) {
	prompt := buildClassificationPrompt(input, conversationContext)

	reply, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return IntentResult{}, fmt.Errorf("model classification failed: error=%w", err)
	}

	result := parseClassificationReply(reply)
	return result, nil
}

/* buildClassificationPrompt renders the fixed-format classification prompt */
func buildClassificationPrompt(input string, conversationContext map[string]interface{}) string {
	var b strings.Builder

	b.WriteString("Classify the following database operation request into exactly one intent.\n\n")
	b.WriteString("Available intents: ")
	names := make([]string, 0, len(intentOrder))
	for _, intent := range intentOrder {
		names = append(names, string(intent))
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString("\n\n")

	if len(conversationContext) > 0 {
		b.WriteString("Conversation context:\n")
		keys := make([]string, 0, len(conversationContext))
		for k := range conversationContext {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %v\n", k, conversationContext[k])
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Request: %s\n\n", input)
	b.WriteString("Respond in exactly this format:\n")
	b.WriteString("INTENT: <intent name>\n")
	b.WriteString("CONFIDENCE: <number between 0 and 1>\n")
	b.WriteString("ENTITIES: <JSON object with databases, tables, operations, time_period, environment>\n")
	b.WriteString("EXPLANATION: <one sentence>\n")
	b.WriteString("SUGGESTED_ACTIONS: <JSON array of strings>\n")

	return b.String()
}

/* mergeEntities supplements pattern-extracted entities with model output.
 * Pattern values win; model values fill gaps. */
func mergeEntities(pattern, model Entities) Entities {
	merged := pattern

	merged.Databases = appendMissing(merged.Databases, model.Databases)
	merged.Tables = appendMissing(merged.Tables, model.Tables)
	merged.Operations = appendMissing(merged.Operations, model.Operations)

	if merged.TimePeriod == "" {
		merged.TimePeriod = model.TimePeriod
	}
	if merged.Environment == "" {
		merged.Environment = model.Environment
	}

	return merged
}

func appendMissing(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	for _, v := range base {
		seen[v] = true
	}
	for _, v := range extra {
		if !seen[v] {
			base = append(base, v)
			seen[v] = true
		}
	}
	return base
}
