/*-------------------------------------------------------------------------
 *
 * gateway_test.go
 *    Tests for portal routing and health handling
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/portal/gateway_test.go
 *
 *-------------------------------------------------------------------------
 */

package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newPortalServer(t *testing.T, wantAPIKey string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/operations", func(w http.ResponseWriter, r *http.Request) {
		if wantAPIKey != "" && r.Header.Get("X-API-Key") != wantAPIKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "ok",
			"operation": body["operation"],
		})
	})
	mux.HandleFunc("/api/v1/inventory", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"databases": []string{"sales_db"}})
	})
	return httptest.NewServer(mux)
}

func TestGatewayRoutesByCapability(t *testing.T) {
	server := newPortalServer(t, "secret")
	defer server.Close()

	registry, err := NewRegistry([]Config{{
		ID:           "portal-a",
		Name:         "Portal A",
		BaseURL:      server.URL,
		AuthType:     AuthAPIKey,
		APIKey:       "secret",
		Capabilities: []string{"backup", "database"},
	}})
	if err != nil {
		t.Fatalf("registry creation failed: %v", err)
	}

	gateway := NewHTTPGateway(registry, nil)
	result, err := gateway.ExecuteOperation(context.Background(), "backup", "create_backup", map[string]interface{}{"database": "sales_db"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("status = %s, want %s", result.Status, StatusCompleted)
	}
	if result.PortalID != "portal-a" {
		t.Errorf("portal_id = %s, want portal-a", result.PortalID)
	}
	if result.Output["operation"] != "create_backup" {
		t.Errorf("operation echo = %v, want create_backup", result.Output["operation"])
	}
}

func TestGatewaySkipsWhenNoCapablePortal(t *testing.T) {
	registry, err := NewRegistry([]Config{{
		ID:           "portal-a",
		BaseURL:      "http://localhost:1",
		Capabilities: []string{"backup"},
	}})
	if err != nil {
		t.Fatalf("registry creation failed: %v", err)
	}

	gateway := NewHTTPGateway(registry, nil)
	result, err := gateway.ExecuteOperation(context.Background(), "compliance", "audit", nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.Status != StatusSkipped {
		t.Fatalf("status = %s, want %s", result.Status, StatusSkipped)
	}
	if result.Reason == "" {
		t.Error("skipped result must carry a reason")
	}
}

func TestGatewaySkipsUnhealthyPortal(t *testing.T) {
	registry, err := NewRegistry([]Config{{
		ID:           "portal-a",
		BaseURL:      "http://localhost:1",
		Capabilities: []string{"backup"},
	}})
	if err != nil {
		t.Fatalf("registry creation failed: %v", err)
	}

	p, _ := registry.Get("portal-a")
	p.setHealth(false, nil)

	gateway := NewHTTPGateway(registry, nil)
	result, err := gateway.ExecuteOperation(context.Background(), "backup", "create_backup", nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.Status != StatusSkipped {
		t.Fatalf("status = %s, want %s for unhealthy portal", result.Status, StatusSkipped)
	}
}

func TestGatewayInventoryAggregation(t *testing.T) {
	server := newPortalServer(t, "")
	defer server.Close()

	registry, err := NewRegistry([]Config{
		{ID: "good", BaseURL: server.URL, Capabilities: []string{"database"}},
		{ID: "bad", BaseURL: "http://localhost:1", TimeoutSecs: 1, Capabilities: []string{"database"}},
	})
	if err != nil {
		t.Fatalf("registry creation failed: %v", err)
	}

	gateway := NewHTTPGateway(registry, nil)
	inventory, err := gateway.GetInventory(context.Background())
	if err != nil {
		t.Fatalf("inventory failed: %v", err)
	}

	good, ok := inventory["good"].(map[string]interface{})
	if !ok {
		t.Fatalf("inventory from good portal missing: %v", inventory)
	}
	if good["databases"] == nil {
		t.Error("databases missing from good portal inventory")
	}

	bad, ok := inventory["bad"].(map[string]interface{})
	if !ok {
		t.Fatalf("failed portal must still appear in inventory: %v", inventory)
	}
	if bad["error"] == nil {
		t.Error("failed portal entry must record its error")
	}
}

func TestRegistryRejectsDuplicateIDs(t *testing.T) {
	_, err := NewRegistry([]Config{
		{ID: "dup", BaseURL: "http://localhost:1"},
		{ID: "dup", BaseURL: "http://localhost:2"},
	})
	if err == nil {
		t.Fatal("duplicate portal IDs must be rejected")
	}
}

func TestHealthProbeUpdatesState(t *testing.T) {
	server := newPortalServer(t, "")

	registry, err := NewRegistry([]Config{{
		ID:           "portal-a",
		BaseURL:      server.URL,
		TimeoutSecs:  1,
		Capabilities: []string{"backup"},
	}})
	if err != nil {
		t.Fatalf("registry creation failed: %v", err)
	}

	client := NewClient()
	p, _ := registry.Get("portal-a")

	if err := client.CheckHealth(context.Background(), p); err != nil {
		t.Fatalf("health check failed against live server: %v", err)
	}

	server.Close()
	if err := client.CheckHealth(context.Background(), p); err == nil {
		t.Error("health check must fail once the server is down")
	}
}
