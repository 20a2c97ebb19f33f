/*-------------------------------------------------------------------------
 *
 * portal.go
 *    Self-service portal definitions and registry
 *
 * A portal is a remote REST service that fronts one or more databases.
 * Each portal declares capability tags; the registry resolves which
 * healthy portal can serve a requested capability.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/portal/portal.go
 *
 *-------------------------------------------------------------------------
 */

package portal

import (
	"fmt"
	"sync"
	"time"
)

/* Auth types supported for portal requests */
const (
	AuthAPIKey = "api_key"
	AuthBearer = "bearer"
	AuthOAuth2 = "oauth2"
)

/* Config describes one portal endpoint */
type Config struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	BaseURL      string   `yaml:"base_url" json:"base_url"`
	AuthType     string   `yaml:"auth_type" json:"auth_type"`
	APIKey       string   `yaml:"api_key" json:"-"`
	Token        string   `yaml:"token" json:"-"`
	ClientID     string   `yaml:"client_id" json:"-"`
	ClientSecret string   `yaml:"client_secret" json:"-"`
	TokenURL     string   `yaml:"token_url" json:"-"`
	Capabilities []string `yaml:"capabilities" json:"capabilities"`
	TimeoutSecs  int      `yaml:"timeout_seconds" json:"timeout_seconds"`
}

/* Portal is a registered portal with live health state */
type Portal struct {
	Config Config

	mu          sync.RWMutex
	healthy     bool
	lastChecked time.Time
	lastError   string
}

/* Healthy reports the last observed health state */
func (p *Portal) Healthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.healthy
}

/* setHealth records a health probe outcome */
func (p *Portal) setHealth(healthy bool, probeErr error) {
	p.mu.Lock()
	p.healthy = healthy
	p.lastChecked = time.Now()
	if probeErr != nil {
		p.lastError = probeErr.Error()
	} else {
		p.lastError = ""
	}
	p.mu.Unlock()
}

/* Status returns a snapshot of the portal for API responses */
func (p *Portal) Status() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := map[string]interface{}{
		"id":           p.Config.ID,
		"name":         p.Config.Name,
		"base_url":     p.Config.BaseURL,
		"capabilities": p.Config.Capabilities,
		"healthy":      p.healthy,
	}
	if !p.lastChecked.IsZero() {
		status["last_checked"] = p.lastChecked
	}
	if p.lastError != "" {
		status["last_error"] = p.lastError
	}
	return status
}

/* hasCapability reports whether the portal declares a capability tag */
func (p *Portal) hasCapability(capability string) bool {
	for _, c := range p.Config.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

/* Registry holds all configured portals */
type Registry struct {
	mu      sync.RWMutex
	portals map[string]*Portal
	order   []string
}

/* NewRegistry creates a registry from portal configs */
func NewRegistry(configs []Config) (*Registry, error) {
	r := &Registry{portals: make(map[string]*Portal)}

	for _, cfg := range configs {
		if err := r.Register(cfg); err != nil {
			return nil, err
		}
	}

	return r, nil
}

/* Register adds one portal to the registry */
func (r *Registry) Register(cfg Config) error {
	if cfg.ID == "" {
		return fmt.Errorf("portal registration failed: id_empty=true, name='%s'", cfg.Name)
	}
	if cfg.BaseURL == "" {
		return fmt.Errorf("portal registration failed: portal_id='%s', error=base_url empty", cfg.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.portals[cfg.ID]; exists {
		return fmt.Errorf("portal registration failed: portal_id='%s', error=duplicate id", cfg.ID)
	}
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 30
	}

	/* Portals start healthy until a probe says otherwise */
	r.portals[cfg.ID] = &Portal{Config: cfg, healthy: true}
	r.order = append(r.order, cfg.ID)
	return nil
}

/* Get retrieves a portal by ID */
func (r *Registry) Get(id string) (*Portal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	portal, ok := r.portals[id]
	if !ok {
		return nil, fmt.Errorf("portal lookup failed: portal_id='%s', error=not found", id)
	}
	return portal, nil
}

/* List returns all portals in registration order */
func (r *Registry) List() []*Portal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Portal, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.portals[id])
	}
	return out
}

/* SelectByCapability returns the first healthy portal declaring the
 * capability, in registration order */
func (r *Registry) SelectByCapability(capability string) (*Portal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		portal := r.portals[id]
		if portal.hasCapability(capability) && portal.Healthy() {
			return portal, true
		}
	}
	return nil, false
}
