/*-------------------------------------------------------------------------
 *
 * client.go
 *    HTTP client for portal REST APIs
 *
 * Handles request signing for the supported auth schemes and decodes
 * portal responses. OAuth2 uses the client credentials grant with a
 * cached token refreshed shortly before expiry.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/portal/client.go
 *
 *-------------------------------------------------------------------------
 */

package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/portalmind/PortalAgent/internal/metrics"
)

const (
	/* Responses larger than this are truncated */
	maxResponseBytes = 4 * 1024 * 1024
)

/* Client issues authenticated requests against portal endpoints */
type Client struct {
	httpClient *http.Client

	/* OAuth2 token cache, keyed by portal ID */
	mu     sync.Mutex
	tokens map[string]*cachedToken
}

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

/* NewClient creates a portal HTTP client */
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
		tokens:     make(map[string]*cachedToken),
	}
}

/* ExecuteOperation invokes a named operation on a portal */
func (c *Client) ExecuteOperation(ctx context.Context, portal *Portal, operation string, parameters map[string]interface{}) (map[string]interface{}, error) {
	body := map[string]interface{}{
		"operation":  operation,
		"parameters": parameters,
	}
	return c.doJSON(ctx, portal, http.MethodPost, "/api/v1/operations", body, operation)
}

/* GetInventory fetches the database inventory from a portal */
func (c *Client) GetInventory(ctx context.Context, portal *Portal) (map[string]interface{}, error) {
	return c.doJSON(ctx, portal, http.MethodGet, "/api/v1/inventory", nil, "inventory")
}

/* CollectMetrics fetches operational metrics from a portal */
func (c *Client) CollectMetrics(ctx context.Context, portal *Portal) (map[string]interface{}, error) {
	return c.doJSON(ctx, portal, http.MethodGet, "/api/v1/metrics", nil, "metrics")
}

/* GenerateComplianceReport requests a compliance report from a portal */
func (c *Client) GenerateComplianceReport(ctx context.Context, portal *Portal, reportType string, parameters map[string]interface{}) (map[string]interface{}, error) {
	body := map[string]interface{}{
		"report_type": reportType,
		"parameters":  parameters,
	}
	return c.doJSON(ctx, portal, http.MethodPost, "/api/v1/compliance/report", body, "compliance_report")
}

/* CheckHealth probes the portal health endpoint */
func (c *Client) CheckHealth(ctx context.Context, portal *Portal) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, portal.Config.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("health check failed: portal_id='%s', error=%w", portal.Config.ID, err)
	}
	if err := c.authorize(ctx, portal, req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: portal_id='%s', error=%w", portal.Config.ID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: portal_id='%s', status=%d", portal.Config.ID, resp.StatusCode)
	}
	return nil
}

/* doJSON performs a JSON request against a portal path */
func (c *Client) doJSON(ctx context.Context, portal *Portal, method, path string, body map[string]interface{}, operation string) (map[string]interface{}, error) {
	timeout := time.Duration(portal.Config.TimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("portal request failed: portal_id='%s', error=%w", portal.Config.ID, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, portal.Config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("portal request failed: portal_id='%s', error=%w", portal.Config.ID, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if err := c.authorize(ctx, portal, req); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordPortalRequest(portal.Config.ID, operation, "error", duration)
		return nil, fmt.Errorf("portal request failed: portal_id='%s', path='%s', error=%w", portal.Config.ID, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.RecordPortalRequest(portal.Config.ID, operation, "error", duration)
		return nil, fmt.Errorf("portal response read failed: portal_id='%s', error=%w", portal.Config.ID, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordPortalRequest(portal.Config.ID, operation, fmt.Sprintf("%d", resp.StatusCode), duration)
		return nil, fmt.Errorf("portal request failed: portal_id='%s', path='%s', status=%d, body='%s'",
			portal.Config.ID, path, resp.StatusCode, truncate(string(data), 200))
	}
	metrics.RecordPortalRequest(portal.Config.ID, operation, fmt.Sprintf("%d", resp.StatusCode), duration)

	result := make(map[string]interface{})
	if len(bytes.TrimSpace(data)) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		/* Non-JSON replies are wrapped rather than rejected */
		return map[string]interface{}{"raw": string(data)}, nil
	}
	return result, nil
}

/* authorize attaches credentials per the portal auth scheme */
func (c *Client) authorize(ctx context.Context, portal *Portal, req *http.Request) error {
	switch portal.Config.AuthType {
	case AuthAPIKey:
		req.Header.Set("X-API-Key", portal.Config.APIKey)
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+portal.Config.Token)
	case AuthOAuth2:
		token, err := c.oauthToken(ctx, portal)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	case "":
		/* Unauthenticated portal */
	default:
		return fmt.Errorf("portal auth failed: portal_id='%s', auth_type='%s', error=unsupported scheme",
			portal.Config.ID, portal.Config.AuthType)
	}
	return nil
}

/* oauthToken returns a cached client-credentials token, refreshing when
 * it is within a minute of expiry */
func (c *Client) oauthToken(ctx context.Context, portal *Portal) (string, error) {
	c.mu.Lock()
	cached, ok := c.tokens[portal.Config.ID]
	if ok && time.Until(cached.expiresAt) > time.Minute {
		token := cached.accessToken
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", portal.Config.ClientID)
	form.Set("client_secret", portal.Config.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, portal.Config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("oauth token request failed: portal_id='%s', error=%w", portal.Config.ID, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("oauth token request failed: portal_id='%s', error=%w", portal.Config.ID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("oauth token response read failed: portal_id='%s', error=%w", portal.Config.ID, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oauth token request failed: portal_id='%s', status=%d", portal.Config.ID, resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(data, &tokenResp); err != nil {
		return "", fmt.Errorf("oauth token decode failed: portal_id='%s', error=%w", portal.Config.ID, err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("oauth token request failed: portal_id='%s', error=empty access token", portal.Config.ID)
	}
	if tokenResp.ExpiresIn <= 0 {
		tokenResp.ExpiresIn = 3600
	}

	c.mu.Lock()
	c.tokens[portal.Config.ID] = &cachedToken{
		accessToken: tokenResp.AccessToken,
		expiresAt:   time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}
	c.mu.Unlock()

	return tokenResp.AccessToken, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
