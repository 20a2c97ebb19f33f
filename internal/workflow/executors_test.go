/*-------------------------------------------------------------------------
 *
 * executors_test.go
 *    Tests for step dispatch against the portal gateway
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/workflow/executors_test.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/portalmind/PortalAgent/internal/portal"
)

/* capturingGateway records the capabilities routed through it */
type capturingGateway struct {
	mu           sync.Mutex
	capabilities []string
}

func (g *capturingGateway) ExecuteOperation(ctx context.Context, capability, operation string, parameters map[string]interface{}) (*portal.OperationResult, error) {
	g.mu.Lock()
	g.capabilities = append(g.capabilities, capability)
	g.mu.Unlock()
	return &portal.OperationResult{
		Status:   portal.StatusCompleted,
		PortalID: "portal-a",
		Output:   map[string]interface{}{"operation": operation},
	}, nil
}

func (g *capturingGateway) GetInventory(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}

func (g *capturingGateway) CollectMetrics(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}

func (g *capturingGateway) GenerateComplianceReport(ctx context.Context, reportType string, parameters map[string]interface{}) (*portal.OperationResult, error) {
	return &portal.OperationResult{Status: portal.StatusCompleted, PortalID: "portal-a"}, nil
}

func (g *capturingGateway) Portals() []map[string]interface{} {
	return nil
}

func (g *capturingGateway) RegisterPortal(cfg portal.Config) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}

func (g *capturingGateway) CheckPortalHealth(ctx context.Context, portalID string) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}

func (g *capturingGateway) routed() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string{}, g.capabilities...)
}

func TestExecuteStepRoutesByCapability(t *testing.T) {
	gateway := &capturingGateway{}
	executor := NewPortalExecutor(gateway, nil)
	ctx := context.Background()

	tests := []struct {
		stepType string
		want     string
	}{
		{StepBackupOperation, "backup"},
		{StepPerformanceTest, "monitoring"},
		{StepPortalIntegration, "database"},
	}

	for _, tt := range tests {
		step := &Step{ID: "s", Name: "s", Type: tt.stepType, Operation: "op"}
		if _, _, err := executor.ExecuteStep(ctx, step, nil); err != nil {
			t.Fatalf("%s execution failed: %v", tt.stepType, err)
		}
	}

	routed := gateway.routed()
	if len(routed) != len(tests) {
		t.Fatalf("gateway called %d times, want %d", len(routed), len(tests))
	}
	for i, tt := range tests {
		if routed[i] != tt.want {
			t.Errorf("%s routed to capability %q, want %q", tt.stepType, routed[i], tt.want)
		}
	}
}

func TestExecuteStepUnknownTypeCompletesLocally(t *testing.T) {
	gateway := &capturingGateway{}
	executor := NewPortalExecutor(gateway, nil)

	step := &Step{ID: "odd", Name: "odd", Type: "made_up_type", Operation: "whatever"}
	output, portalID, err := executor.ExecuteStep(context.Background(), step, nil)
	if err != nil {
		t.Fatalf("unknown type must not fail: %v", err)
	}
	if portalID != "" {
		t.Errorf("portal_id = %q, want empty for a local step", portalID)
	}
	if output["echo"] != true {
		t.Errorf("output = %v, want echo marker", output)
	}
	if len(gateway.routed()) != 0 {
		t.Error("unknown step types must never reach a portal")
	}
}

func TestExecuteStepAIAnalysisWithoutGenerator(t *testing.T) {
	gateway := &capturingGateway{}
	executor := NewPortalExecutor(gateway, nil)

	step := &Step{ID: "assess", Name: "Assess incident impact", Type: StepAIAnalysis, Operation: "assess_impact"}
	output, _, err := executor.ExecuteStep(context.Background(), step, map[string]interface{}{"database": "sales_db"})
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	analysis, _ := output["analysis"].(string)
	if !strings.Contains(analysis, "Assess incident impact") {
		t.Errorf("analysis = %q, want static digest naming the step", analysis)
	}
	if len(gateway.routed()) != 0 {
		t.Error("analysis without a generator must stay local")
	}
}

func TestExecuteStepAIAnalysisUsesGenerator(t *testing.T) {
	executor := NewPortalExecutor(&capturingGateway{}, &stubGenerator{reply: "Impact is limited to one replica."})

	step := &Step{ID: "assess", Name: "assess", Type: StepAIAnalysis, Operation: "assess_impact"}
	output, _, err := executor.ExecuteStep(context.Background(), step, nil)
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	if output["analysis"] != "Impact is limited to one replica." {
		t.Errorf("analysis = %v, want model reply", output["analysis"])
	}
}
