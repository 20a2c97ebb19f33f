/*-------------------------------------------------------------------------
 *
 * session.go
 *    Conversation session state and in-memory store
 *
 * Sessions hold a bounded turn history and at most one pending
 * high-risk operation awaiting confirmation. State is process-local;
 * the store serializes access per session.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/conversation/session.go
 *
 *-------------------------------------------------------------------------
 */

package conversation

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/portalmind/PortalAgent/internal/metrics"
	"github.com/portalmind/PortalAgent/internal/nlp"
)

const (
	/* Maximum turns kept per session; older turns are dropped */
	defaultMaxTurns = 20
)

/* Turn is a single exchange entry in a session history */
type Turn struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Intent    nlp.Intent `json:"intent,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

/* PendingOperation is a high-risk operation awaiting explicit approval */
type PendingOperation struct {
	ID          uuid.UUID    `json:"id"`
	Intent      nlp.Intent   `json:"intent"`
	Confidence  float64      `json:"confidence"`
	Entities    nlp.Entities `json:"entities"`
	Input       string       `json:"input"`
	Description string       `json:"description"`
	RiskLevel   string       `json:"risk_level"`
	CreatedAt   time.Time    `json:"created_at"`
}

/* Session is a single conversation with bounded history */
type Session struct {
	ID             uuid.UUID         `json:"id"`
	CreatedAt      time.Time         `json:"created_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	Turns          []Turn            `json:"turns"`
	Pending        *PendingOperation `json:"pending_operation,omitempty"`

	/* Set while the session waits for a clarification answer */
	awaitingClarification bool
	lastInput             string

	mu sync.Mutex
}

/* AddTurn appends a turn, dropping the oldest beyond the window.
 * Caller must hold the session lock. */
func (s *Session) AddTurn(role, content string, intent nlp.Intent, maxTurns int) {
	s.Turns = append(s.Turns, Turn{
		Role:      role,
		Content:   content,
		Intent:    intent,
		Timestamp: time.Now(),
	})
	if len(s.Turns) > maxTurns {
		s.Turns = s.Turns[len(s.Turns)-maxTurns:]
	}
}

/* recentIntents returns intents from recent user turns for model context.
 * Caller must hold the session lock. */
func (s *Session) recentIntents(limit int) []string {
	var intents []string
	for i := len(s.Turns) - 1; i >= 0 && len(intents) < limit; i-- {
		t := s.Turns[i]
		if t.Role == "user" && t.Intent != "" && t.Intent != nlp.IntentUnknown {
			intents = append(intents, string(t.Intent))
		}
	}
	return intents
}

/* Store is an in-memory session store.
 *
 * Lock order is store.mu before session.mu, never the reverse. The
 * pending confirmation gauge is an atomic counter so that flow code
 * holding a session lock can update it without touching store.mu. */
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	maxTurns int
	pending  atomic.Int64
}

/* NewStore creates a session store */
func NewStore(maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		maxTurns: maxTurns,
	}
}

/* Create creates a new session */
func (st *Store) Create() *Session {
	now := time.Now()
	session := &Session{
		ID:             uuid.New(),
		CreatedAt:      now,
		LastActivityAt: now,
		Turns:          []Turn{},
	}

	st.mu.Lock()
	st.sessions[session.ID] = session
	count := len(st.sessions)
	st.mu.Unlock()

	metrics.SetSessionsActive(count)
	return session
}

/* Get retrieves a session by ID */
func (st *Store) Get(id uuid.UUID) (*Session, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("session retrieval failed: session_id_empty=true")
	}

	st.mu.RLock()
	session, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("session retrieval failed: session_id='%s', error=not found", id.String())
	}
	return session, nil
}

/* GetOrCreate returns the session with the given ID, creating it when
 * the ID is nil or unknown */
func (st *Store) GetOrCreate(id uuid.UUID) *Session {
	if id != uuid.Nil {
		st.mu.RLock()
		session, ok := st.sessions[id]
		st.mu.RUnlock()
		if ok {
			return session
		}
	}

	now := time.Now()
	session := &Session{
		ID:             id,
		CreatedAt:      now,
		LastActivityAt: now,
		Turns:          []Turn{},
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	st.mu.Lock()
	if existing, ok := st.sessions[session.ID]; ok {
		st.mu.Unlock()
		return existing
	}
	st.sessions[session.ID] = session
	count := len(st.sessions)
	st.mu.Unlock()

	metrics.SetSessionsActive(count)
	return session
}

/* Delete removes a session */
func (st *Store) Delete(id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("session deletion failed: session_id_empty=true")
	}

	st.mu.Lock()
	session, ok := st.sessions[id]
	delete(st.sessions, id)
	count := len(st.sessions)
	st.mu.Unlock()

	if !ok {
		return fmt.Errorf("session deletion failed: session_id='%s', error=not found", id.String())
	}

	session.mu.Lock()
	hadPending := session.Pending != nil
	session.mu.Unlock()

	pending := int(st.pending.Load())
	if hadPending {
		pending = st.decPending()
	}
	metrics.SetSessionsActive(count)
	metrics.SetPendingConfirmations(pending)
	return nil
}

/* Count returns the number of live sessions */
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

/* MaxTurns returns the configured history window */
func (st *Store) MaxTurns() int {
	return st.maxTurns
}

/* Expire removes sessions idle since before the cutoff and returns the
 * number removed */
func (st *Store) Expire(cutoff time.Time) int {
	st.mu.Lock()
	removed := 0
	clearedPending := 0
	for id, session := range st.sessions {
		session.mu.Lock()
		idle := session.LastActivityAt.Before(cutoff)
		hadPending := session.Pending != nil
		session.mu.Unlock()
		if idle {
			delete(st.sessions, id)
			removed++
			if hadPending {
				clearedPending++
			}
		}
	}
	count := len(st.sessions)
	st.mu.Unlock()

	pending := int(st.pending.Load())
	for i := 0; i < clearedPending; i++ {
		pending = st.decPending()
	}
	if removed > 0 {
		metrics.SetSessionsActive(count)
		metrics.SetPendingConfirmations(pending)
	}
	return removed
}

/* notePendingAdded updates the pending confirmation gauge. Safe to call
 * while holding a session lock. */
func (st *Store) notePendingAdded() {
	metrics.SetPendingConfirmations(int(st.pending.Add(1)))
}

/* notePendingCleared updates the pending confirmation gauge. Safe to
 * call while holding a session lock. */
func (st *Store) notePendingCleared() {
	metrics.SetPendingConfirmations(st.decPending())
}

/* decPending decrements the pending gauge, clamping at zero */
func (st *Store) decPending() int {
	n := st.pending.Add(-1)
	if n < 0 {
		st.pending.Store(0)
		n = 0
	}
	return int(n)
}
