/*-------------------------------------------------------------------------
 *
 * client.go
 *    HTTP client for PortalAgent API
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/cli/pkg/client/client.go
 *
 *-------------------------------------------------------------------------
 */

package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

/* ChatResponse mirrors the conversation response body of the API */
type ChatResponse struct {
	SessionID            string                 `json:"session_id"`
	Action               string                 `json:"action"`
	Message              string                 `json:"message"`
	Intent               string                 `json:"intent,omitempty"`
	Confidence           float64                `json:"confidence"`
	RiskLevel            string                 `json:"risk_level,omitempty"`
	RequiresConfirmation bool                   `json:"requires_confirmation"`
	ClarifyingQuestions  []string               `json:"clarifying_questions,omitempty"`
	PendingOperationID   string                 `json:"pending_operation_id,omitempty"`
	SuggestedActions     []string               `json:"suggested_actions,omitempty"`
	Entities             map[string]interface{} `json:"entities,omitempty"`
}

/* ExecutionResponse mirrors the workflow execution body of the API */
type ExecutionResponse struct {
	Execution       map[string]interface{} `json:"execution"`
	Summary         string                 `json:"summary"`
	ProgressPercent float64                `json:"progress_percent"`
	CurrentStep     string                 `json:"current_step,omitempty"`
	Recommendations []string               `json:"recommendations,omitempty"`
}

/* TemplateInfo describes one workflow template */
type TemplateInfo struct {
	Name      string   `json:"name"`
	StepCount int      `json:"step_count"`
	StepTypes []string `json:"step_types"`
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (c *Client) Chat(sessionID, message string) (*ChatResponse, error) {
	reqBody := map[string]interface{}{
		"message": message,
	}
	if sessionID != "" {
		reqBody["session_id"] = sessionID
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.makeRequest("POST", "/api/v1/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &chatResp, nil
}

func (c *Client) Confirm(sessionID, operationID string, approved bool) (*ChatResponse, error) {
	reqBody := map[string]interface{}{
		"session_id": sessionID,
		"approved":   approved,
	}
	if operationID != "" {
		reqBody["operation_id"] = operationID
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.makeRequest("POST", "/api/v1/operations/confirm", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &chatResp, nil
}

func (c *Client) ExecuteWorkflow(request map[string]interface{}) (*ExecutionResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.makeRequest("POST", "/api/v1/workflows/execute", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var execResp ExecutionResponse
	if err := json.NewDecoder(resp.Body).Decode(&execResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &execResp, nil
}

func (c *Client) GetWorkflow(workflowID string) (*ExecutionResponse, error) {
	resp, err := c.makeRequest("GET", fmt.Sprintf("/api/v1/workflows/%s", workflowID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var execResp ExecutionResponse
	if err := json.NewDecoder(resp.Body).Decode(&execResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &execResp, nil
}

func (c *Client) ListWorkflows() ([]map[string]interface{}, error) {
	resp, err := c.makeRequest("GET", "/api/v1/workflows", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var workflows []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&workflows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return workflows, nil
}

func (c *Client) CancelWorkflow(workflowID string) error {
	resp, err := c.makeRequest("DELETE", fmt.Sprintf("/api/v1/workflows/%s", workflowID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return nil
}

func (c *Client) ListTemplates() ([]TemplateInfo, error) {
	resp, err := c.makeRequest("GET", "/api/v1/workflows/templates", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var templates []TemplateInfo
	if err := json.NewDecoder(resp.Body).Decode(&templates); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return templates, nil
}

func (c *Client) ListPortals() ([]map[string]interface{}, error) {
	resp, err := c.makeRequest("GET", "/api/v1/portals", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var portals []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&portals); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return portals, nil
}

func (c *Client) GetInventory() (map[string]interface{}, error) {
	resp, err := c.makeRequest("GET", "/api/v1/inventory", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var inventory map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&inventory); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return inventory, nil
}

func (c *Client) CollectMetrics() (map[string]interface{}, error) {
	resp, err := c.makeRequest("GET", "/api/v1/metrics/collect", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var collected map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&collected); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return collected, nil
}

func (c *Client) makeRequest(method, path string, body io.Reader) (*http.Response, error) {
	url := c.baseURL + path
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}
