/*-------------------------------------------------------------------------
 *
 * flow_test.go
 *    Tests for the conversation flow state machine
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/conversation/flow_test.go
 *
 *-------------------------------------------------------------------------
 */

package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/portalmind/PortalAgent/internal/nlp"
)

func newTestManager() *Manager {
	return NewManager(nlp.NewClassifier(nil), NewStore(0), nil)
}

func TestConfirmationGateApproved(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	resp, err := m.Process(ctx, uuid.Nil, "delete and drop the orders table")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if resp.Action != ActionConfirm {
		t.Fatalf("action = %s, want %s", resp.Action, ActionConfirm)
	}
	if resp.PendingOperationID == nil {
		t.Fatal("pending operation ID missing from confirmation prompt")
	}
	if resp.RiskLevel != "high" {
		t.Errorf("risk level = %s, want high", resp.RiskLevel)
	}

	resp, err = m.Process(ctx, resp.SessionID, "yes")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if resp.Action != ActionConfirmed {
		t.Fatalf("action = %s, want %s", resp.Action, ActionConfirmed)
	}
	if resp.Operation == nil {
		t.Fatal("confirmed response must carry the operation to execute")
	}
	if resp.Operation.Intent != nlp.IntentDelete {
		t.Errorf("operation intent = %s, want delete", resp.Operation.Intent)
	}

	session, err := m.Store().Get(resp.SessionID)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if session.Pending != nil {
		t.Error("pending operation must be cleared after confirmation")
	}
}

func TestConfirmationGateDeclined(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	resp, err := m.Process(ctx, uuid.Nil, "delete and drop the orders table")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	sessionID := resp.SessionID

	resp, err = m.Process(ctx, sessionID, "no")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if resp.Action != ActionCancelled {
		t.Fatalf("action = %s, want %s", resp.Action, ActionCancelled)
	}
	if resp.Operation != nil {
		t.Error("declined operation must not be handed over for execution")
	}

	session, _ := m.Store().Get(sessionID)
	if session.Pending != nil {
		t.Error("pending operation must be cleared after decline")
	}
}

func TestConfirmationGateRePromptsOnUnrelatedInput(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	resp, err := m.Process(ctx, uuid.Nil, "delete and drop the orders table")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	resp, err = m.Process(ctx, resp.SessionID, "what is the weather like")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if resp.Action != ActionConfirm {
		t.Fatalf("action = %s, want re-prompt %s", resp.Action, ActionConfirm)
	}
	if resp.Operation != nil {
		t.Error("gate must stay closed for unrelated input")
	}
}

func TestClarificationLoop(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	resp, err := m.Process(ctx, uuid.Nil, "do the thing")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if resp.Action != ActionClarify {
		t.Fatalf("action = %s, want %s", resp.Action, ActionClarify)
	}
	if len(resp.ClarifyingQuestions) == 0 {
		t.Fatal("clarification response must carry questions")
	}

	/* The answer is folded into the original request */
	resp, err = m.Process(ctx, resp.SessionID, "backup and snapshot the database sales_db")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if resp.Action != ActionReady {
		t.Fatalf("action = %s, want %s after clarification", resp.Action, ActionReady)
	}
	if resp.Intent != nlp.IntentBackup {
		t.Errorf("intent = %s, want backup", resp.Intent)
	}
	if len(resp.Entities.Databases) == 0 {
		t.Error("entities from the clarified request must be present")
	}
}

func TestReadRequestRunsWithoutGate(t *testing.T) {
	m := newTestManager()

	resp, err := m.Process(context.Background(), uuid.Nil, "show and list and display everything")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if resp.Action != ActionReady {
		t.Fatalf("action = %s, want %s", resp.Action, ActionReady)
	}
	if resp.RequiresConfirmation {
		t.Error("read operations must not require confirmation")
	}
}

func TestConfirmByOperationID(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	resp, err := m.Process(ctx, uuid.Nil, "delete and drop the orders table")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	sessionID := resp.SessionID
	opID := *resp.PendingOperationID

	if _, err := m.Confirm(ctx, sessionID, uuid.New(), true); err == nil {
		t.Error("confirming a mismatched operation ID must fail")
	}

	confirmed, err := m.Confirm(ctx, sessionID, opID, true)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Action != ActionConfirmed || confirmed.Operation == nil {
		t.Errorf("action = %s, operation = %v; want confirmed with operation", confirmed.Action, confirmed.Operation)
	}

	if _, err := m.Confirm(ctx, sessionID, opID, true); err == nil {
		t.Error("confirming twice must fail once the gate is cleared")
	}
}

func TestCancelClearsState(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	resp, err := m.Process(ctx, uuid.Nil, "delete and drop the orders table")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	cancelled, err := m.Cancel(ctx, resp.SessionID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Action != ActionCancelled {
		t.Errorf("action = %s, want %s", cancelled.Action, ActionCancelled)
	}

	session, _ := m.Store().Get(resp.SessionID)
	if session.Pending != nil {
		t.Error("cancel must clear the pending operation")
	}
}

func TestHistoryWindowBounded(t *testing.T) {
	m := NewManager(nlp.NewClassifier(nil), NewStore(4), nil)
	ctx := context.Background()

	resp, err := m.Process(ctx, uuid.Nil, "show and list everything")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	sessionID := resp.SessionID

	for i := 0; i < 10; i++ {
		if _, err := m.Process(ctx, sessionID, "show and list everything"); err != nil {
			t.Fatalf("process %d failed: %v", i, err)
		}
	}

	session, _ := m.Store().Get(sessionID)
	if len(session.Turns) > 4 {
		t.Errorf("history length = %d, want at most 4", len(session.Turns))
	}
}

func TestSummarizeStatic(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	resp, err := m.Process(ctx, uuid.Nil, "backup and snapshot the database sales_db")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	summary, err := m.Summarize(ctx, resp.SessionID)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if summary.Action != ActionSummary {
		t.Errorf("action = %s, want %s", summary.Action, ActionSummary)
	}
	if summary.Message == "" {
		t.Error("summary message must not be empty")
	}
}

func TestStoreExpire(t *testing.T) {
	store := NewStore(0)
	session := store.Create()

	session.mu.Lock()
	session.LastActivityAt = time.Now().Add(-2 * time.Hour)
	session.mu.Unlock()

	fresh := store.Create()

	removed := store.Expire(time.Now().Add(-time.Hour))
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := store.Get(session.ID); err == nil {
		t.Error("expired session must be gone")
	}
	if _, err := store.Get(fresh.ID); err != nil {
		t.Errorf("fresh session must survive: %v", err)
	}
}

func TestEmptyInputRejected(t *testing.T) {
	m := newTestManager()

	if _, err := m.Process(context.Background(), uuid.Nil, "   "); err == nil {
		t.Error("blank input must be rejected")
	}
}

func TestConfirmationCarriesSafetyNarrative(t *testing.T) {
	m := newTestManager()

	resp, err := m.Process(context.Background(), uuid.Nil, "delete and drop the orders table in production")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if resp.Action != ActionConfirm {
		t.Fatalf("action = %s, want %s", resp.Action, ActionConfirm)
	}
	if !strings.Contains(resp.Message, "cannot be recovered") {
		t.Errorf("message missing delete risk narrative: %q", resp.Message)
	}
	if !strings.Contains(resp.Message, "production environment") {
		t.Errorf("message missing environment warning: %q", resp.Message)
	}
}

func TestStaticAssessmentPerRisk(t *testing.T) {
	cases := []struct {
		intent nlp.Intent
		want   string
	}{
		{nlp.IntentDelete, "cannot be recovered"},
		{nlp.IntentMigration, "inconsistent"},
		{nlp.IntentAdministration, "every user"},
		{nlp.IntentRestore, "overwrites"},
		{nlp.IntentUpdate, "live data"},
	}
	for _, tc := range cases {
		got := staticAssessment(tc.intent, nlp.Entities{})
		if !strings.Contains(got, tc.want) {
			t.Errorf("assessment for %s = %q, want substring %q", tc.intent, got, tc.want)
		}
	}
}

func TestConfirmationFlowDoesNotBlockExpiry(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		sessionID := uuid.New()
		for i := 0; i < 200; i++ {
			resp, err := m.Process(ctx, sessionID, "delete and drop the orders table")
			if err != nil {
				t.Errorf("process failed: %v", err)
				return
			}
			sessionID = resp.SessionID
			if resp.RequiresConfirmation {
				if _, err := m.Process(ctx, sessionID, "yes"); err != nil {
					t.Errorf("process failed: %v", err)
					return
				}
			}
		}
	}()

	expired := make(chan struct{})
	go func() {
		defer close(expired)
		for {
			select {
			case <-done:
				return
			default:
				m.Store().Expire(time.Now())
			}
		}
	}()

	select {
	case <-done:
		<-expired
	case <-time.After(30 * time.Second):
		t.Fatal("confirmation flow and session expiry blocked each other")
	}
}
