/*-------------------------------------------------------------------------
 *
 * cleanup.go
 *    Session cleanup service
 *
 * Background service that evicts sessions idle past a configurable
 * age so abandoned conversations do not accumulate.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/conversation/cleanup.go
 *
 *-------------------------------------------------------------------------
 */

package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/portalmind/PortalAgent/internal/metrics"
)

type CleanupService struct {
	store    *Store
	interval time.Duration
	maxAge   time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewCleanupService(store *Store, interval, maxAge time.Duration) *CleanupService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupService{
		store:    store,
		interval: interval,
		maxAge:   maxAge,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

/* Start starts the cleanup service */
func (s *CleanupService) Start() {
	go s.run()
}

/* Stop stops the cleanup service */
func (s *CleanupService) Stop() {
	s.cancel()
	<-s.done
}

func (s *CleanupService) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	/* Run immediately on start */
	s.cleanup()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *CleanupService) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	/* Recover from panics in cleanup */
	defer func() {
		if r := recover(); r != nil {
			metrics.ErrorWithContext(ctx, "Panic in session cleanup", fmt.Errorf("panic: %v", r), nil)
		}
	}()

	cutoff := time.Now().Add(-s.maxAge)
	removed := s.store.Expire(cutoff)
	if removed > 0 {
		metrics.InfoWithContext(ctx, "expired idle sessions", map[string]interface{}{
			"removed": removed,
			"max_age": s.maxAge.String(),
		})
	}
}
