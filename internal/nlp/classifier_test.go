/*-------------------------------------------------------------------------
 *
 * classifier_test.go
 *    Tests for hybrid intent classification
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/nlp/classifier_test.go
 *
 *-------------------------------------------------------------------------
 */

package nlp

import (
	"context"
	"errors"
	"testing"
)

/* stubGenerator returns a canned reply or error */
type stubGenerator struct {
	reply  string
	err    error
	called bool
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.called = true
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func TestClassifyPatternPass(t *testing.T) {
	classifier := NewClassifier(nil)

	tests := []struct {
		name       string
		input      string
		wantIntent Intent
	}{
		{"delete request", "delete and drop the orders table", IntentDelete},
		{"read request", "show the list of databases", IntentRead},
		{"backup request", "take a backup snapshot of sales_db", IntentBackup},
		{"restore request", "restore and recover from the last snapshot", IntentRestore},
		{"monitor request", "check the health status of the cluster", IntentMonitor},
		{"gibberish", "quux flurble zim", IntentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifier.Classify(context.Background(), tt.input, nil)
			if result.Intent != tt.wantIntent {
				t.Errorf("intent = %s, want %s", result.Intent, tt.wantIntent)
			}
			if result.Confidence < 0 || result.Confidence > 1 {
				t.Errorf("confidence %f out of range [0, 1]", result.Confidence)
			}
		})
	}
}

func TestClassifyUnknownHasZeroConfidence(t *testing.T) {
	classifier := NewClassifier(nil)

	result := classifier.Classify(context.Background(), "quux flurble zim", nil)
	if result.Intent != IntentUnknown {
		t.Fatalf("intent = %s, want unknown", result.Intent)
	}
	if result.Confidence != 0.0 {
		t.Errorf("confidence = %f, want 0.0", result.Confidence)
	}
}

func TestClassifyConfirmationGate(t *testing.T) {
	classifier := NewClassifier(nil)

	/* Two matched delete keywords push confidence past the gate */
	result := classifier.Classify(context.Background(), "delete and drop the orders table", nil)
	if result.Intent != IntentDelete {
		t.Fatalf("intent = %s, want delete", result.Intent)
	}
	if result.Confidence <= 0.6 {
		t.Fatalf("confidence = %f, want > 0.6", result.Confidence)
	}
	if !result.RequiresConfirmation {
		t.Error("delete above the confidence gate must require confirmation")
	}

	/* Read operations never require confirmation */
	result = classifier.Classify(context.Background(), "show and list and display and fetch everything", nil)
	if result.Intent != IntentRead {
		t.Fatalf("intent = %s, want read", result.Intent)
	}
	if result.RequiresConfirmation {
		t.Error("read must not require confirmation")
	}
}

func TestClassifyDeterministic(t *testing.T) {
	classifier := NewClassifier(nil)
	input := "backup the table customers in prod for last week"

	first := classifier.Classify(context.Background(), input, nil)
	for i := 0; i < 10; i++ {
		again := classifier.Classify(context.Background(), input, nil)
		if again.Intent != first.Intent {
			t.Fatalf("run %d: intent %s differs from %s", i, again.Intent, first.Intent)
		}
		if again.Confidence != first.Confidence {
			t.Fatalf("run %d: confidence %f differs from %f", i, again.Confidence, first.Confidence)
		}
		if again.Entities.Environment != first.Entities.Environment {
			t.Fatalf("run %d: environment differs", i)
		}
	}
}

func TestClassifyBackupWithEntities(t *testing.T) {
	classifier := NewClassifier(nil)

	result := classifier.Classify(context.Background(), "Create a backup for prod_users", nil)
	if result.Intent != IntentBackup {
		t.Fatalf("intent = %s, want backup", result.Intent)
	}
	if result.Confidence < 0.5 {
		t.Errorf("confidence = %f, want >= 0.5", result.Confidence)
	}
	if result.Entities.Environment != "production" {
		t.Errorf("environment = %q, want production", result.Entities.Environment)
	}
}

func TestClassifyModelUpgradesLowConfidence(t *testing.T) {
	gen := &stubGenerator{reply: "INTENT: backup\n" +
		"CONFIDENCE: 0.9\n" +
		"ENTITIES: {\"databases\": [\"sales_db\"]}\n" +
		"EXPLANATION: the nightly job is a backup job\n" +
		"SUGGESTED_ACTIONS: [\"run backup workflow\"]\n"}
	classifier := NewClassifier(gen)

	result := classifier.Classify(context.Background(), "please handle the nightly job", nil)
	if !gen.called {
		t.Fatal("model should be consulted for low-confidence input")
	}
	if result.Intent != IntentBackup {
		t.Errorf("intent = %s, want backup", result.Intent)
	}
	if result.Confidence != 0.9 {
		t.Errorf("confidence = %f, want 0.9", result.Confidence)
	}
	if len(result.Entities.Databases) != 1 || result.Entities.Databases[0] != "sales_db" {
		t.Errorf("databases = %v, want [sales_db]", result.Entities.Databases)
	}
	if len(result.SuggestedActions) != 1 {
		t.Errorf("suggested actions = %v, want one entry", result.SuggestedActions)
	}
}

func TestClassifyModelFailureFallsBack(t *testing.T) {
	gen := &stubGenerator{err: errors.New("connection refused")}
	classifier := NewClassifier(gen)

	result := classifier.Classify(context.Background(), "backup the sales data", nil)
	if result.Intent != IntentBackup {
		t.Errorf("intent = %s, want backup from pattern fallback", result.Intent)
	}
}

func TestClassifyModelCannotDowngrade(t *testing.T) {
	gen := &stubGenerator{reply: "INTENT: read\nCONFIDENCE: 0.1\n"}
	classifier := NewClassifier(gen)

	result := classifier.Classify(context.Background(), "backup the sales data", nil)
	if result.Intent != IntentBackup {
		t.Errorf("intent = %s, want backup (model confidence was lower)", result.Intent)
	}
}

func TestClassifySkipsModelWhenConfident(t *testing.T) {
	gen := &stubGenerator{reply: "INTENT: read\nCONFIDENCE: 1.0\n"}
	classifier := NewClassifier(gen)

	result := classifier.Classify(context.Background(), "delete and remove and drop it all", nil)
	if gen.called {
		t.Error("model should not be consulted when pattern confidence is high")
	}
	if result.Intent != IntentDelete {
		t.Errorf("intent = %s, want delete", result.Intent)
	}
}

func TestExtractEntities(t *testing.T) {
	entities := ExtractEntities("backup the table customers from sales_db in prod for last week")

	if entities.Environment != "production" {
		t.Errorf("environment = %q, want production", entities.Environment)
	}
	if entities.TimePeriod != "7d" {
		t.Errorf("time period = %q, want 7d", entities.TimePeriod)
	}
	if len(entities.Databases) != 1 || entities.Databases[0] != "sales_db" {
		t.Errorf("databases = %v, want [sales_db]", entities.Databases)
	}
	if len(entities.Tables) != 1 || entities.Tables[0] != "customers" {
		t.Errorf("tables = %v, want [customers]", entities.Tables)
	}
}

func TestRiskLevel(t *testing.T) {
	if got := RiskLevel(IntentDelete); got != "high" {
		t.Errorf("delete risk = %q, want high", got)
	}
	if got := RiskLevel(IntentUpdate); got != "medium" {
		t.Errorf("update risk = %q, want medium", got)
	}
	if got := RiskLevel(IntentRead); got != "low" {
		t.Errorf("read risk = %q, want low", got)
	}
}
