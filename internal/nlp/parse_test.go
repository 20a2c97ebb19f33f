/*-------------------------------------------------------------------------
 *
 * parse_test.go
 *    Tests for best-effort model reply parsing
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/nlp/parse_test.go
 *
 *-------------------------------------------------------------------------
 */

package nlp

import "testing"

func TestParseClassificationReplyDefaults(t *testing.T) {
	result := parseClassificationReply("complete nonsense with no structure")

	if result.Intent != IntentUnknown {
		t.Errorf("intent = %s, want unknown", result.Intent)
	}
	if result.Confidence != 0.0 {
		t.Errorf("confidence = %f, want 0.0", result.Confidence)
	}
	if result.Entities.Databases == nil || result.Entities.Tables == nil {
		t.Error("entity lists must default to empty, not nil")
	}
}

func TestParseClassificationReplyMalformedFields(t *testing.T) {
	reply := "INTENT: definitely_not_an_intent\n" +
		"CONFIDENCE: lots\n" +
		"ENTITIES: {broken json\n" +
		"SUGGESTED_ACTIONS: also broken\n"

	result := parseClassificationReply(reply)
	if result.Intent != IntentUnknown {
		t.Errorf("intent = %s, want unknown for unrecognized name", result.Intent)
	}
	if result.Confidence != 0.0 {
		t.Errorf("confidence = %f, want 0.0 for unparseable value", result.Confidence)
	}
	if len(result.Entities.Databases) != 0 {
		t.Errorf("databases = %v, want empty", result.Entities.Databases)
	}
	if result.SuggestedActions != nil {
		t.Errorf("suggested actions = %v, want nil", result.SuggestedActions)
	}
}

func TestParseClassificationReplyClampsConfidence(t *testing.T) {
	result := parseClassificationReply("INTENT: backup\nCONFIDENCE: 7.5\n")
	if result.Confidence != 1.0 {
		t.Errorf("confidence = %f, want clamped to 1.0", result.Confidence)
	}

	result = parseClassificationReply("INTENT: backup\nCONFIDENCE: -3\n")
	if result.Confidence != 0.0 {
		t.Errorf("confidence = %f, want clamped to 0.0", result.Confidence)
	}
}

func TestParseClassificationReplyFullFormat(t *testing.T) {
	reply := "INTENT: migration\n" +
		"CONFIDENCE: 0.85\n" +
		"ENTITIES: {\"databases\": [\"orders_db\"], \"environment\": \"staging\"}\n" +
		"EXPLANATION: the request moves data between clusters\n" +
		"SUGGESTED_ACTIONS: [\"plan migration\", \"verify target\"]\n"

	result := parseClassificationReply(reply)
	if result.Intent != IntentMigration {
		t.Errorf("intent = %s, want migration", result.Intent)
	}
	if result.Confidence != 0.85 {
		t.Errorf("confidence = %f, want 0.85", result.Confidence)
	}
	if result.Entities.Environment != "staging" {
		t.Errorf("environment = %q, want staging", result.Entities.Environment)
	}
	if len(result.SuggestedActions) != 2 {
		t.Errorf("suggested actions = %v, want two entries", result.SuggestedActions)
	}
}
