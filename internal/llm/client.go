/*-------------------------------------------------------------------------
 *
 * client.go
 *    Text-generation service client for PortalAgent
 *
 * Provides the narrow generate(prompt) contract the classifier, planner,
 * and report generator consume. The HTTP implementation talks to an
 * external text-generation API; callers must treat every response as
 * untrusted free text and parse defensively.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/llm/client.go
 *
 *-------------------------------------------------------------------------
 */

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/portalmind/PortalAgent/internal/metrics"
)

/* Generator is the text-generation contract consumed by the core */
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

/* Client is an HTTP client for a text-generation service */
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

/* Model returns the configured model name */
func (c *Client) Model() string {
	return c.model
}

/* Generate sends a prompt to the text-generation service and returns the reply text */
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("text generation failed: prompt_empty=true")
	}

	start := time.Now()

	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("text generation failed: request_encoding_error=%w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("text generation failed: request_build_error=%w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordLLMCall(c.model, "error", time.Since(start))
		return "", fmt.Errorf("text generation failed: model='%s', error=%w", c.model, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		metrics.RecordLLMCall(c.model, "error", time.Since(start))
		return "", fmt.Errorf("text generation failed: model='%s', read_error=%w", c.model, err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.RecordLLMCall(c.model, "error", time.Since(start))
		return "", fmt.Errorf("text generation failed: model='%s', status_code=%d, body='%s'", c.model, resp.StatusCode, truncate(string(respBody), 512))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		/* Some backends return bare text; accept it as-is */
		metrics.RecordLLMCall(c.model, "success", time.Since(start))
		return string(respBody), nil
	}
	if genResp.Error != "" {
		metrics.RecordLLMCall(c.model, "error", time.Since(start))
		return "", fmt.Errorf("text generation failed: model='%s', service_error='%s'", c.model, genResp.Error)
	}

	metrics.RecordLLMCall(c.model, "success", time.Since(start))
	return genResp.Text, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
