/*-------------------------------------------------------------------------
 *
 * flow.go
 *    Conversation flow management
 *
 * Drives the chat state machine: classify the request, ask for
 * clarification when confidence is low, gate high-risk operations
 * behind explicit confirmation, and hand ready operations to the
 * caller for execution. A pending confirmation is always resolved
 * before any new request is classified.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/conversation/flow.go
 *
 *-------------------------------------------------------------------------
 */

package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/portalmind/PortalAgent/internal/llm"
	"github.com/portalmind/PortalAgent/internal/metrics"
	"github.com/portalmind/PortalAgent/internal/nlp"
)

const (
	/* Below this confidence the user is asked to clarify */
	clarificationThreshold = 0.7
)

/* Response action values */
const (
	ActionReady     = "ready"
	ActionClarify   = "clarify"
	ActionConfirm   = "awaiting_confirmation"
	ActionConfirmed = "confirmed"
	ActionCancelled = "cancelled"
	ActionSummary   = "summary"
)

/* Response is the outcome of one conversation step */
type Response struct {
	SessionID            uuid.UUID         `json:"session_id"`
	Action               string            `json:"action"`
	Message              string            `json:"message"`
	Intent               nlp.Intent        `json:"intent,omitempty"`
	Confidence           float64           `json:"confidence"`
	Entities             nlp.Entities      `json:"entities"`
	RiskLevel            string            `json:"risk_level,omitempty"`
	RequiresConfirmation bool              `json:"requires_confirmation"`
	ClarifyingQuestions  []string          `json:"clarifying_questions,omitempty"`
	PendingOperationID   *uuid.UUID        `json:"pending_operation_id,omitempty"`
	SuggestedActions     []string          `json:"suggested_actions,omitempty"`
	Operation            *PendingOperation `json:"operation,omitempty"`
}

/* Manager coordinates sessions, classification and confirmation gating */
type Manager struct {
	classifier *nlp.Classifier
	store      *Store
	generator  llm.Generator
}

/* NewManager creates a conversation manager; generator may be nil */
func NewManager(classifier *nlp.Classifier, store *Store, generator llm.Generator) *Manager {
	return &Manager{
		classifier: classifier,
		store:      store,
		generator:  generator,
	}
}

/* Store exposes the underlying session store */
func (m *Manager) Store() *Store {
	return m.store
}

/* StartSession creates a new session and returns a greeting response */
func (m *Manager) StartSession(ctx context.Context) *Response {
	session := m.store.Create()

	metrics.InfoWithContext(ctx, "conversation started", map[string]interface{}{
		"session_id": session.ID.String(),
	})

	return &Response{
		SessionID: session.ID,
		Action:    ActionReady,
		Message:   "Hello! I can help you operate your databases through the connected portals. What would you like to do?",
	}
}

/* Process handles one user message within a session. When the session ID
 * is nil or unknown a new session is created. */
func (m *Manager) Process(ctx context.Context, sessionID uuid.UUID, input string) (*Response, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("message processing failed: input_empty=true")
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("message processing cancelled: context_error=%w", ctx.Err())
	}

	session := m.store.GetOrCreate(sessionID)
	session.mu.Lock()
	defer session.mu.Unlock()

	session.LastActivityAt = time.Now()

	/* A pending confirmation is resolved before anything else */
	if session.Pending != nil {
		return m.resolvePending(ctx, session, input), nil
	}

	classifyInput := input
	if session.awaitingClarification && session.lastInput != "" {
		/* Fold the clarification answer into the original request */
		classifyInput = session.lastInput + " " + input
	}

	result := m.classifier.Classify(ctx, classifyInput, m.modelContext(session))
	session.AddTurn("user", input, result.Intent, m.store.maxTurns)

	var resp *Response
	switch {
	case result.Confidence < clarificationThreshold:
		resp = m.askClarification(session, classifyInput, result)
	case result.RequiresConfirmation:
		resp = m.requestConfirmation(ctx, session, classifyInput, result)
	default:
		session.awaitingClarification = false
		session.lastInput = ""
		resp = &Response{
			SessionID:        session.ID,
			Action:           ActionReady,
			Message:          fmt.Sprintf("Understood: %s operation. Executing now.", result.Intent),
			Intent:           result.Intent,
			Confidence:       result.Confidence,
			Entities:         result.Entities,
			RiskLevel:        nlp.RiskLevel(result.Intent),
			SuggestedActions: result.SuggestedActions,
		}
	}

	session.AddTurn("assistant", resp.Message, resp.Intent, m.store.maxTurns)
	return resp, nil
}

/* resolvePending handles the reply to a confirmation prompt.
 * Caller must hold the session lock. */
func (m *Manager) resolvePending(ctx context.Context, session *Session, input string) *Response {
	pending := session.Pending
	session.AddTurn("user", input, pending.Intent, m.store.maxTurns)

	var resp *Response
	switch {
	case isAffirmation(input):
		session.Pending = nil
		m.store.notePendingCleared()
		metrics.InfoWithContext(ctx, "pending operation confirmed", map[string]interface{}{
			"session_id":   session.ID.String(),
			"operation_id": pending.ID.String(),
			"intent":       string(pending.Intent),
		})
		resp = &Response{
			SessionID:  session.ID,
			Action:     ActionConfirmed,
			Message:    fmt.Sprintf("Confirmed. Executing %s.", pending.Description),
			Intent:     pending.Intent,
			Confidence: pending.Confidence,
			Entities:   pending.Entities,
			RiskLevel:  pending.RiskLevel,
			Operation:  pending,
		}
	case isNegation(input):
		session.Pending = nil
		m.store.notePendingCleared()
		resp = &Response{
			SessionID: session.ID,
			Action:    ActionCancelled,
			Message:   fmt.Sprintf("Cancelled %s. Nothing was changed.", pending.Description),
			Intent:    pending.Intent,
			Entities:  pending.Entities,
		}
	default:
		/* Unrelated input re-prompts instead of being reclassified: an
		 * armed destructive operation is only ever resolved by an
		 * explicit yes or no, never bypassed by the next request */
		resp = &Response{
			SessionID:            session.ID,
			Action:               ActionConfirm,
			Message:              fmt.Sprintf("Still waiting on your approval for %s. Please answer yes or no.", pending.Description),
			Intent:               pending.Intent,
			Confidence:           pending.Confidence,
			Entities:             pending.Entities,
			RiskLevel:            pending.RiskLevel,
			RequiresConfirmation: true,
			PendingOperationID:   &pending.ID,
		}
	}

	session.AddTurn("assistant", resp.Message, resp.Intent, m.store.maxTurns)
	return resp
}

/* askClarification builds a clarification response and arms the
 * clarification loop. Caller must hold the session lock. */
func (m *Manager) askClarification(session *Session, input string, result nlp.IntentResult) *Response {
	session.awaitingClarification = true
	session.lastInput = input

	questions := clarifyingQuestions(result)
	return &Response{
		SessionID:           session.ID,
		Action:              ActionClarify,
		Message:             "I need a bit more detail before I can act on that.",
		Intent:              result.Intent,
		Confidence:          result.Confidence,
		Entities:            result.Entities,
		ClarifyingQuestions: questions,
	}
}

/* requestConfirmation parks a high-risk operation behind the gate.
 * Caller must hold the session lock. */
func (m *Manager) requestConfirmation(ctx context.Context, session *Session, input string, result nlp.IntentResult) *Response {
	session.awaitingClarification = false
	session.lastInput = ""

	pending := &PendingOperation{
		ID:          uuid.New(),
		Intent:      result.Intent,
		Confidence:  result.Confidence,
		Entities:    result.Entities,
		Input:       input,
		Description: describeOperation(result.Intent, result.Entities),
		RiskLevel:   nlp.RiskLevel(result.Intent),
		CreatedAt:   time.Now(),
	}
	session.Pending = pending
	m.store.notePendingAdded()

	assessment := assessSafety(ctx, m.generator, result.Intent, result.Entities, input)

	return &Response{
		SessionID:            session.ID,
		Action:               ActionConfirm,
		Message:              fmt.Sprintf("This is a %s-risk operation: %s. %s Reply yes to proceed or no to cancel.", pending.RiskLevel, pending.Description, assessment),
		Intent:               result.Intent,
		Confidence:           result.Confidence,
		Entities:             result.Entities,
		RiskLevel:            pending.RiskLevel,
		RequiresConfirmation: true,
		PendingOperationID:   &pending.ID,
	}
}

/* Confirm resolves a pending operation by ID, outside the chat flow */
func (m *Manager) Confirm(ctx context.Context, sessionID, operationID uuid.UUID, approved bool) (*Response, error) {
	session, err := m.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.Pending == nil {
		return nil, fmt.Errorf("confirmation failed: session_id='%s', error=no pending operation", sessionID.String())
	}
	if operationID != uuid.Nil && session.Pending.ID != operationID {
		return nil, fmt.Errorf("confirmation failed: session_id='%s', operation_id='%s', error=pending operation mismatch", sessionID.String(), operationID.String())
	}

	if approved {
		return m.resolvePending(ctx, session, "yes"), nil
	}
	return m.resolvePending(ctx, session, "no"), nil
}

/* Cancel discards any pending operation and clarification state */
func (m *Manager) Cancel(ctx context.Context, sessionID uuid.UUID) (*Response, error) {
	session, err := m.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.Pending != nil {
		session.Pending = nil
		m.store.notePendingCleared()
	}
	session.awaitingClarification = false
	session.lastInput = ""
	session.LastActivityAt = time.Now()

	resp := &Response{
		SessionID: session.ID,
		Action:    ActionCancelled,
		Message:   "Okay, cancelled. Let me know what you would like to do next.",
	}
	session.AddTurn("assistant", resp.Message, "", m.store.maxTurns)
	return resp, nil
}

/* Summarize produces a summary of the session so far. The model may
 * polish the summary; on model failure the static summary is returned. */
func (m *Manager) Summarize(ctx context.Context, sessionID uuid.UUID) (*Response, error) {
	session, err := m.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	summary := staticSummary(session)
	transcript := renderTranscript(session)
	session.mu.Unlock()

	if m.generator != nil {
		prompt := fmt.Sprintf("Summarize this database operations conversation in at most three sentences:\n\n%s", transcript)
		if polished, genErr := m.generator.Generate(ctx, prompt); genErr == nil && strings.TrimSpace(polished) != "" {
			summary = strings.TrimSpace(polished)
		} else if genErr != nil {
			metrics.WarnWithContext(ctx, "summary generation failed, using static summary", map[string]interface{}{
				"session_id": sessionID.String(),
				"error":      genErr.Error(),
			})
		}
	}

	return &Response{
		SessionID: sessionID,
		Action:    ActionSummary,
		Message:   summary,
	}, nil
}

/* modelContext builds classifier context from recent session activity.
 * Caller must hold the session lock. */
func (m *Manager) modelContext(session *Session) map[string]interface{} {
	intents := session.recentIntents(3)
	if len(intents) == 0 {
		return nil
	}
	return map[string]interface{}{
		"recent_intents": strings.Join(intents, ", "),
	}
}

var affirmations = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true,
	"confirm": true, "confirmed": true, "proceed": true,
	"go ahead": true, "do it": true, "ok": true, "okay": true,
}

var negations = map[string]bool{
	"no": true, "n": true, "nope": true, "cancel": true,
	"stop": true, "abort": true, "don't": true, "dont": true,
}

func isAffirmation(input string) bool {
	return affirmations[strings.ToLower(strings.TrimSpace(input))]
}

func isNegation(input string) bool {
	return negations[strings.ToLower(strings.TrimSpace(input))]
}

/* clarifyingQuestions derives questions from what is missing */
func clarifyingQuestions(result nlp.IntentResult) []string {
	var questions []string

	if result.Intent == nlp.IntentUnknown {
		questions = append(questions, "What operation would you like to perform? For example: backup, restore, analyze, or monitor.")
	}
	if len(result.Entities.Databases) == 0 {
		questions = append(questions, "Which database should this apply to?")
	}
	if result.Entities.Environment == "" {
		questions = append(questions, "Which environment is this for: production, staging, or development?")
	}
	if (result.Intent == nlp.IntentBackup || result.Intent == nlp.IntentRestore || result.Intent == nlp.IntentAnalyze) && result.Entities.TimePeriod == "" {
		questions = append(questions, "What time range should I use?")
	}

	if len(questions) == 0 {
		questions = append(questions, "Could you describe what you want to do in more detail?")
	}
	return questions
}

/* describeOperation renders a short human description of an operation */
func describeOperation(intent nlp.Intent, entities nlp.Entities) string {
	target := "the requested target"
	if len(entities.Databases) > 0 {
		target = fmt.Sprintf("database '%s'", strings.Join(entities.Databases, "', '"))
	} else if len(entities.Tables) > 0 {
		target = fmt.Sprintf("table '%s'", strings.Join(entities.Tables, "', '"))
	}

	desc := fmt.Sprintf("%s on %s", intent, target)
	if entities.Environment != "" {
		desc += fmt.Sprintf(" in %s", entities.Environment)
	}
	return desc
}

/* staticSummary builds a deterministic session summary.
 * Caller must hold the session lock. */
func staticSummary(session *Session) string {
	if len(session.Turns) == 0 {
		return "No activity in this session yet."
	}

	counts := make(map[nlp.Intent]int)
	order := []nlp.Intent{}
	userTurns := 0
	for _, turn := range session.Turns {
		if turn.Role != "user" {
			continue
		}
		userTurns++
		if turn.Intent == "" || turn.Intent == nlp.IntentUnknown {
			continue
		}
		if counts[turn.Intent] == 0 {
			order = append(order, turn.Intent)
		}
		counts[turn.Intent]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session with %d user message(s) since %s.", userTurns, session.CreatedAt.Format(time.RFC3339))
	if len(order) > 0 {
		parts := make([]string, 0, len(order))
		for _, intent := range order {
			parts = append(parts, fmt.Sprintf("%s (%d)", intent, counts[intent]))
		}
		fmt.Fprintf(&b, " Operations discussed: %s.", strings.Join(parts, ", "))
	}
	if session.Pending != nil {
		fmt.Fprintf(&b, " A %s is still awaiting confirmation.", session.Pending.Description)
	}
	return b.String()
}

/* renderTranscript renders the turn history for summarization.
 * Caller must hold the session lock. */
func renderTranscript(session *Session) string {
	var b strings.Builder
	for _, turn := range session.Turns {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	return b.String()
}
