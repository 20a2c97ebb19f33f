/*-------------------------------------------------------------------------
 *
 * gateway.go
 *    Capability-routed access to registered portals
 *
 * The gateway picks a healthy portal for each requested capability.
 * When no portal can serve a capability the operation is reported as
 * skipped rather than failed, so workflows degrade instead of abort.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/portal/gateway.go
 *
 *-------------------------------------------------------------------------
 */

package portal

import (
	"context"
	"fmt"

	"github.com/portalmind/PortalAgent/internal/metrics"
)

/* Operation result status values */
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
)

/* OperationResult is the outcome of a routed portal operation */
type OperationResult struct {
	Status   string                 `json:"status"`
	PortalID string                 `json:"portal_id,omitempty"`
	Output   map[string]interface{} `json:"output,omitempty"`
	Reason   string                 `json:"reason,omitempty"`
}

/* Gateway routes operations to capable, healthy portals */
type Gateway interface {
	ExecuteOperation(ctx context.Context, capability, operation string, parameters map[string]interface{}) (*OperationResult, error)
	GetInventory(ctx context.Context) (map[string]interface{}, error)
	CollectMetrics(ctx context.Context) (map[string]interface{}, error)
	GenerateComplianceReport(ctx context.Context, reportType string, parameters map[string]interface{}) (*OperationResult, error)
	Portals() []map[string]interface{}
	RegisterPortal(cfg Config) (map[string]interface{}, error)
	CheckPortalHealth(ctx context.Context, portalID string) (map[string]interface{}, error)
}

/* HTTPGateway is the production gateway over the portal registry */
type HTTPGateway struct {
	registry *Registry
	client   *Client
}

/* NewHTTPGateway creates a gateway over a registry */
func NewHTTPGateway(registry *Registry, client *Client) *HTTPGateway {
	if client == nil {
		client = NewClient()
	}
	return &HTTPGateway{registry: registry, client: client}
}

/* ExecuteOperation routes an operation to a portal by capability */
func (g *HTTPGateway) ExecuteOperation(ctx context.Context, capability, operation string, parameters map[string]interface{}) (*OperationResult, error) {
	target, ok := g.registry.SelectByCapability(capability)
	if !ok {
		metrics.WarnWithContext(ctx, "no portal available for capability", map[string]interface{}{
			"capability": capability,
			"operation":  operation,
		})
		return &OperationResult{
			Status: StatusSkipped,
			Reason: fmt.Sprintf("no healthy portal provides capability '%s'", capability),
		}, nil
	}

	output, err := g.client.ExecuteOperation(ctx, target, operation, parameters)
	if err != nil {
		return nil, fmt.Errorf("operation routing failed: capability='%s', portal_id='%s', error=%w",
			capability, target.Config.ID, err)
	}

	return &OperationResult{
		Status:   StatusCompleted,
		PortalID: target.Config.ID,
		Output:   output,
	}, nil
}

/* GetInventory aggregates inventory from every healthy portal. Individual
 * portal failures are recorded in the result, not returned as errors. */
func (g *HTTPGateway) GetInventory(ctx context.Context) (map[string]interface{}, error) {
	return g.collectAll(ctx, "inventory", func(ctx context.Context, p *Portal) (map[string]interface{}, error) {
		return g.client.GetInventory(ctx, p)
	})
}

/* CollectMetrics aggregates metrics from every healthy portal */
func (g *HTTPGateway) CollectMetrics(ctx context.Context) (map[string]interface{}, error) {
	return g.collectAll(ctx, "metrics", func(ctx context.Context, p *Portal) (map[string]interface{}, error) {
		return g.client.CollectMetrics(ctx, p)
	})
}

/* GenerateComplianceReport routes a report request to a compliance portal */
func (g *HTTPGateway) GenerateComplianceReport(ctx context.Context, reportType string, parameters map[string]interface{}) (*OperationResult, error) {
	target, ok := g.registry.SelectByCapability("compliance")
	if !ok {
		return &OperationResult{
			Status: StatusSkipped,
			Reason: "no healthy portal provides capability 'compliance'",
		}, nil
	}

	output, err := g.client.GenerateComplianceReport(ctx, target, reportType, parameters)
	if err != nil {
		return nil, fmt.Errorf("compliance report failed: portal_id='%s', report_type='%s', error=%w",
			target.Config.ID, reportType, err)
	}

	return &OperationResult{
		Status:   StatusCompleted,
		PortalID: target.Config.ID,
		Output:   output,
	}, nil
}

/* Portals returns status snapshots for all registered portals */
func (g *HTTPGateway) Portals() []map[string]interface{} {
	portals := g.registry.List()
	out := make([]map[string]interface{}, 0, len(portals))
	for _, p := range portals {
		out = append(out, p.Status())
	}
	return out
}

/* RegisterPortal adds a portal to the registry at runtime */
func (g *HTTPGateway) RegisterPortal(cfg Config) (map[string]interface{}, error) {
	if err := g.registry.Register(cfg); err != nil {
		return nil, err
	}
	registered, err := g.registry.Get(cfg.ID)
	if err != nil {
		return nil, err
	}
	return registered.Status(), nil
}

/* CheckPortalHealth probes one portal and returns its updated status */
func (g *HTTPGateway) CheckPortalHealth(ctx context.Context, portalID string) (map[string]interface{}, error) {
	target, err := g.registry.Get(portalID)
	if err != nil {
		return nil, err
	}

	probeErr := g.client.CheckHealth(ctx, target)
	target.setHealth(probeErr == nil, probeErr)
	metrics.SetPortalHealthy(portalID, probeErr == nil)

	return target.Status(), nil
}

/* collectAll fans a read-only call out to every healthy portal */
func (g *HTTPGateway) collectAll(ctx context.Context, what string, fetch func(context.Context, *Portal) (map[string]interface{}, error)) (map[string]interface{}, error) {
	results := make(map[string]interface{})
	queried := 0

	for _, p := range g.registry.List() {
		if !p.Healthy() {
			continue
		}
		queried++

		data, err := fetch(ctx, p)
		if err != nil {
			metrics.WarnWithContext(ctx, "portal collection failed", map[string]interface{}{
				"portal_id": p.Config.ID,
				"what":      what,
				"error":     err.Error(),
			})
			results[p.Config.ID] = map[string]interface{}{"error": err.Error()}
			continue
		}
		results[p.Config.ID] = data
	}

	if queried == 0 {
		return nil, fmt.Errorf("portal collection failed: what='%s', error=no healthy portals", what)
	}
	return results, nil
}
