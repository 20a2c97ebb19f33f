/*-------------------------------------------------------------------------
 *
 * websocket.go
 *    WebSocket handler for PortalAgent API
 *
 * Provides WebSocket support for interactive conversations without
 * per-message HTTP round trips.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/api/websocket.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/portalmind/PortalAgent/internal/conversation"
	"github.com/portalmind/PortalAgent/internal/metrics"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true /* Allow all origins in development */
	},
	HandshakeTimeout: 10 * time.Second,
}

const (
	/* WebSocket connection timeouts */
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 /* 512KB */
)

/* wsMessage is one inbound client frame */
type wsMessage struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

/* connectionState tracks the state of a WebSocket connection */
type connectionState struct {
	conn      *websocket.Conn
	sessionID uuid.UUID
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	closed    bool
}

/* HandleWebSocket handles WebSocket connections for conversations */
func HandleWebSocket(manager *conversation.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := GetRequestID(r.Context())
		logCtx := metrics.WithLogContext(r.Context(), requestID, "", "", "")

		/* An existing session may be resumed via query parameter */
		sessionID := uuid.Nil
		if raw := r.URL.Query().Get("session_id"); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "invalid session_id format", http.StatusBadRequest)
				return
			}
			sessionID = parsed
		}

		/* Upgrade connection */
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			metrics.WarnWithContext(logCtx, "WebSocket upgrade failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		/* Set connection parameters */
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetReadLimit(maxMessageSize)
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		/* Create connection state */
		ctx, cancel := context.WithCancel(context.Background())
		state := &connectionState{
			conn:      conn,
			sessionID: sessionID,
			ctx:       ctx,
			cancel:    cancel,
		}

		/* Start ping goroutine */
		go state.pingLoop()

		/* Handle connection */
		state.handleMessages(manager, logCtx)

		/* Cleanup */
		state.close()
	}
}

/* pingLoop sends periodic ping messages to keep connection alive */
func (s *connectionState) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
		case <-s.ctx.Done():
			return
		}
	}
}

/* handleMessages handles incoming messages from the client */
func (s *connectionState) handleMessages(manager *conversation.Manager, logCtx context.Context) {
	messageQueue := make(chan wsMessage, 10)

	/* Start message reader goroutine */
	go func() {
		defer close(messageQueue)
		for {
			var msg wsMessage
			if err := s.conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					metrics.WarnWithContext(logCtx, "WebSocket read error", map[string]interface{}{
						"error": err.Error(),
					})
				}
				return
			}
			select {
			case messageQueue <- msg:
			case <-s.ctx.Done():
				return
			}
		}
	}()

	/* Process messages */
	for {
		select {
		case msg, ok := <-messageQueue:
			if !ok {
				/* Channel closed, connection lost */
				return
			}

			if msg.Message == "" {
				s.sendError("invalid message format: message field is required")
				continue
			}

			/* A frame may switch to an explicit session */
			if msg.SessionID != "" {
				parsed, err := uuid.Parse(msg.SessionID)
				if err != nil {
					s.sendError("invalid session_id format")
					continue
				}
				s.sessionID = parsed
			}

			resp, err := manager.Process(s.ctx, s.sessionID, msg.Message)
			if err != nil {
				metrics.WarnWithContext(logCtx, "conversation processing failed", map[string]interface{}{
					"error":      err.Error(),
					"session_id": s.sessionID.String(),
				})
				s.sendError(err.Error())
				continue
			}

			/* Session is sticky for the rest of the connection */
			s.sessionID = resp.SessionID

			s.mu.Lock()
			if !s.closed {
				s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := s.conn.WriteJSON(resp); err != nil {
					s.mu.Unlock()
					metrics.WarnWithContext(logCtx, "Failed to send response", map[string]interface{}{
						"error": err.Error(),
					})
					return
				}
			}
			s.mu.Unlock()

		case <-s.ctx.Done():
			return
		}
	}
}

/* sendError sends an error message to the client */
func (s *connectionState) sendError(errorMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.conn.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

/* close closes the WebSocket connection */
func (s *connectionState) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	s.cancel()

	/* Send close message */
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	/* Close connection */
	_ = s.conn.Close()
}
