/*-------------------------------------------------------------------------
 *
 * health.go
 *    Portal health monitoring service
 *
 * Background service that probes every portal's health endpoint on an
 * interval and keeps the registry's health state and gauges current.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/portal/health.go
 *
 *-------------------------------------------------------------------------
 */

package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/portalmind/PortalAgent/internal/metrics"
)

type HealthMonitor struct {
	registry *Registry
	client   *Client
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewHealthMonitor(registry *Registry, client *Client, interval time.Duration) *HealthMonitor {
	if client == nil {
		client = NewClient()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &HealthMonitor{
		registry: registry,
		client:   client,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

/* Start starts the health monitor */
func (m *HealthMonitor) Start() {
	go m.run()
}

/* Stop stops the health monitor */
func (m *HealthMonitor) Stop() {
	m.cancel()
	<-m.done
}

func (m *HealthMonitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	/* Probe immediately on start */
	m.probeAll()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.probeAll()
		}
	}
}

func (m *HealthMonitor) probeAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	/* Recover from panics in health probing */
	defer func() {
		if r := recover(); r != nil {
			metrics.ErrorWithContext(ctx, "Panic in portal health monitor", fmt.Errorf("panic: %v", r), nil)
		}
	}()

	for _, p := range m.registry.List() {
		if ctx.Err() != nil {
			return
		}

		wasHealthy := p.Healthy()
		err := m.client.CheckHealth(ctx, p)
		p.setHealth(err == nil, err)
		metrics.SetPortalHealthy(p.Config.ID, err == nil)

		if err != nil && wasHealthy {
			metrics.WarnWithContext(ctx, "portal became unhealthy", map[string]interface{}{
				"portal_id": p.Config.ID,
				"error":     err.Error(),
			})
		} else if err == nil && !wasHealthy {
			metrics.InfoWithContext(ctx, "portal recovered", map[string]interface{}{
				"portal_id": p.Config.ID,
			})
		}
	}
}
