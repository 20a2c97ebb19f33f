/*-------------------------------------------------------------------------
 *
 * parse.go
 *    Best-effort parsing of model classification replies
 *
 * The model is asked for a fixed line-oriented format but replies are
 * treated as untrusted: every field has an explicit default and malformed
 * values degrade to that default instead of failing the classification.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/nlp/parse.go
 *
 *-------------------------------------------------------------------------
 */

package nlp

import (
	"encoding/json"
	"strconv"
	"strings"
)

/* parseClassificationReply extracts an IntentResult from a model reply.
 * Missing or malformed fields fall back to typed defaults. */
func parseClassificationReply(reply string) IntentResult {
	result := IntentResult{
		Intent:     IntentUnknown,
		Confidence: 0.0,
		Entities: Entities{
			Databases:  []string{},
			Tables:     []string{},
			Operations: []string{},
		},
		Explanation: "model classification",
	}

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "INTENT":
			result.Intent = ParseIntent(value)
		case "CONFIDENCE":
			result.Confidence = parseConfidence(value)
		case "ENTITIES":
			result.Entities = parseEntityJSON(value, result.Entities)
		case "EXPLANATION":
			if value != "" {
				result.Explanation = value
			}
		case "SUGGESTED_ACTIONS":
			result.SuggestedActions = parseStringArray(value)
		}
	}

	return result
}

/* parseConfidence parses a confidence value, clamping to [0, 1] */
func parseConfidence(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0.0
	}
	if f < 0 {
		return 0.0
	}
	if f > 1 {
		return 1.0
	}
	return f
}

/* parseEntityJSON parses the ENTITIES JSON object, keeping defaults on failure */
func parseEntityJSON(value string, defaults Entities) Entities {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return defaults
	}

	entities := defaults
	entities.Databases = stringList(raw["databases"], defaults.Databases)
	entities.Tables = stringList(raw["tables"], defaults.Tables)
	entities.Operations = stringList(raw["operations"], defaults.Operations)
	if s, ok := raw["time_period"].(string); ok {
		entities.TimePeriod = s
	}
	if s, ok := raw["environment"].(string); ok {
		entities.Environment = s
	}
	return entities
}

/* parseStringArray parses a JSON array of strings, dropping non-strings */
func parseStringArray(value string) []string {
	var raw []interface{}
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

/* stringList converts an arbitrary JSON value to a string slice */
func stringList(value interface{}, defaults []string) []string {
	raw, ok := value.([]interface{})
	if !ok {
		return defaults
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
