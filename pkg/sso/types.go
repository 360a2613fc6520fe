package sso

import (
	"fmt"
	"time"
)

// ExternalUser is the identity record supplied by the identity provider
type ExternalUser struct {
	ExternalID string `json:"external_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
}

// DisplayName joins first and last name
func (u ExternalUser) DisplayName() string {
	return u.FirstName + " " + u.LastName
}

// OIDCConfig holds OpenID Connect configuration
type OIDCConfig struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"-"` // Never expose secret in JSON
	IssuerURL    string   `json:"issuer_url"` // Discovery endpoint
	RedirectURL  string   `json:"redirect_url"`
	Scopes       []string `json:"scopes"`

	// Verified tokens are cached up to this many entries for at most TokenCacheTTL
	TokenCacheSize int           `json:"token_cache_size"`
	TokenCacheTTL  time.Duration `json:"token_cache_ttl"`
}

// Validate validates the OIDC configuration
func (c *OIDCConfig) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if c.IssuerURL == "" {
		return fmt.Errorf("issuer_url is required")
	}
	if c.RedirectURL == "" {
		return fmt.Errorf("redirect_url is required")
	}
	if len(c.Scopes) == 0 {
		return fmt.Errorf("scopes are required")
	}

	// Verify "openid" scope is present
	hasOpenID := false
	for _, scope := range c.Scopes {
		if scope == "openid" {
			hasOpenID = true
			break
		}
	}
	if !hasOpenID {
		return fmt.Errorf("'openid' scope is required for OIDC")
	}

	return nil
}
