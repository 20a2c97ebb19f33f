/*-------------------------------------------------------------------------
 *
 * intent.go
 *    Database operation intents and extracted entities
 *
 * Defines the intent catalog, per-intent keyword patterns for the
 * rule-based classification pass, and the entity model extracted from
 * free-text requests.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/nlp/intent.go
 *
 *-------------------------------------------------------------------------
 */

package nlp

import "strings"

/* Intent is a classified database operation category */
type Intent string

const (
	IntentCreate         Intent = "create"
	IntentRead           Intent = "read"
	IntentUpdate         Intent = "update"
	IntentDelete         Intent = "delete"
	IntentBackup         Intent = "backup"
	IntentRestore        Intent = "restore"
	IntentAnalyze        Intent = "analyze"
	IntentOptimize       Intent = "optimize"
	IntentMonitor        Intent = "monitor"
	IntentTroubleshoot   Intent = "troubleshoot"
	IntentCompliance     Intent = "compliance"
	IntentMigration      Intent = "migration"
	IntentAdministration Intent = "administration"
	IntentUnknown        Intent = "unknown"
)

/* intentOrder fixes iteration order so classification is deterministic */
var intentOrder = []Intent{
	IntentCreate,
	IntentRead,
	IntentUpdate,
	IntentDelete,
	IntentBackup,
	IntentRestore,
	IntentAnalyze,
	IntentOptimize,
	IntentMonitor,
	IntentTroubleshoot,
	IntentCompliance,
	IntentMigration,
	IntentAdministration,
}

/* intentPatterns holds the fixed keyword set per intent for the pattern pass */
var intentPatterns = map[Intent][]string{
	IntentCreate:         {"create", "make", "provision", "set up", "initialize", "spin up"},
	IntentRead:           {"show", "list", "display", "fetch"},
	IntentUpdate:         {"update", "modify", "change"},
	IntentDelete:         {"delete", "remove", "drop"},
	IntentBackup:         {"backup", "snapshot", "dump", "export"},
	IntentRestore:        {"restore", "recover", "rollback"},
	IntentAnalyze:        {"analyze", "analysis", "statistics", "examine"},
	IntentOptimize:       {"optimize", "tune", "speed up", "vacuum"},
	IntentMonitor:        {"monitor", "health", "status", "watch"},
	IntentTroubleshoot:   {"troubleshoot", "debug", "diagnose", "investigate"},
	IntentCompliance:     {"compliance", "audit", "gdpr", "hipaa"},
	IntentMigration:      {"migrate", "migration", "transfer"},
	IntentAdministration: {"admin", "permissions", "grant"},
}

/* confirmationRequired lists high-risk intents that need explicit user approval */
var confirmationRequired = map[Intent]bool{
	IntentDelete:         true,
	IntentUpdate:         true,
	IntentRestore:        true,
	IntentMigration:      true,
	IntentAdministration: true,
}

/* ParseIntent converts a string to an Intent, defaulting to unknown */
func ParseIntent(s string) Intent {
	candidate := Intent(strings.ToLower(strings.TrimSpace(s)))
	for _, intent := range intentOrder {
		if candidate == intent {
			return intent
		}
	}
	return IntentUnknown
}

/* RequiresConfirmation reports whether an intent at a confidence needs approval */
func RequiresConfirmation(intent Intent, confidence float64) bool {
	return confirmationRequired[intent] && confidence > 0.6
}

/* RiskLevel classifies the operational risk of an intent */
func RiskLevel(intent Intent) string {
	switch intent {
	case IntentDelete, IntentMigration, IntentAdministration:
		return "high"
	case IntentUpdate, IntentRestore:
		return "medium"
	default:
		return "low"
	}
}

/* Entities holds structured values extracted from a free-text request */
type Entities struct {
	Databases   []string `json:"databases"`
	Tables      []string `json:"tables"`
	Operations  []string `json:"operations"`
	TimePeriod  string   `json:"time_period,omitempty"`
	Environment string   `json:"environment,omitempty"`
}

/* ToMap converts entities to a generic map for workflow parameters */
func (e Entities) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"databases":  e.Databases,
		"tables":     e.Tables,
		"operations": e.Operations,
	}
	if e.TimePeriod != "" {
		m["time_period"] = e.TimePeriod
	}
	if e.Environment != "" {
		m["environment"] = e.Environment
	}
	return m
}

/* IntentResult is the outcome of a single classification call */
type IntentResult struct {
	Intent               Intent   `json:"intent"`
	Confidence           float64  `json:"confidence"`
	Entities             Entities `json:"entities"`
	Explanation          string   `json:"explanation"`
	RequiresConfirmation bool     `json:"requires_confirmation"`
	SuggestedActions     []string `json:"suggested_actions,omitempty"`
}

/* timePeriods maps time keywords to canonical durations, checked in order */
var timePeriods = []struct {
	keyword string
	period  string
}{
	{"today", "1d"},
	{"yesterday", "1d"},
	{"week", "7d"},
	{"month", "30d"},
	{"year", "365d"},
	{"hour", "1h"},
}

/* ExtractEntities extracts entities from user input using simple heuristics */
func ExtractEntities(input string) Entities {
	entities := Entities{
		Databases:  []string{},
		Tables:     []string{},
		Operations: []string{},
	}

	lower := strings.ToLower(input)

	/* Environment detection */
	switch {
	case strings.Contains(lower, "prod"):
		entities.Environment = "production"
	case strings.Contains(lower, "dev"):
		entities.Environment = "development"
	case strings.Contains(lower, "test"), strings.Contains(lower, "stage"):
		entities.Environment = "staging"
	}

	/* Time period detection */
	for _, tp := range timePeriods {
		if strings.Contains(lower, tp.keyword) {
			entities.TimePeriod = tp.period
			break
		}
	}

	/* Database and table names by suffix convention or trigger word */
	words := strings.Fields(input)
	for i, word := range words {
		trimmed := strings.Trim(word, ".,;:!?\"'()")
		if trimmed == "" {
			continue
		}
		if strings.HasSuffix(trimmed, "_db") || strings.HasSuffix(trimmed, "_database") {
			entities.Databases = append(entities.Databases, trimmed)
			continue
		}
		if i > 0 {
			prev := strings.ToLower(strings.Trim(words[i-1], ".,;:!?\"'()"))
			if prev == "database" || prev == "db" || prev == "table" {
				if prev == "table" {
					entities.Tables = append(entities.Tables, trimmed)
				} else {
					entities.Databases = append(entities.Databases, trimmed)
				}
			}
		}
	}

	return entities
}
