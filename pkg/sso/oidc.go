package sso

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/platinummonkey/pluma/pkg/observability"
	"golang.org/x/oauth2"
)

const (
	defaultTokenCacheSize = 1024
	defaultTokenCacheTTL  = 5 * time.Minute
)

// TokenVerifier turns a raw bearer token into the identity it asserts
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*ExternalUser, error)
}

type cachedIdentity struct {
	user   ExternalUser
	expiry time.Time
}

// OIDCVerifier verifies ID tokens against the issuer's keys and caches
// the resulting identities
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
	cache    *lru.LRU[string, cachedIdentity]
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewOIDCVerifier wraps an ID token verifier with an expiring LRU cache.
// metrics may be nil.
func NewOIDCVerifier(verifier *oidc.IDTokenVerifier, size int, ttl time.Duration, metrics *observability.Metrics) *OIDCVerifier {
	if size <= 0 {
		size = defaultTokenCacheSize
	}
	if ttl <= 0 {
		ttl = defaultTokenCacheTTL
	}

	return &OIDCVerifier{
		verifier: verifier,
		cache:    lru.NewLRU[string, cachedIdentity](size, nil, ttl),
		metrics:  metrics,
		now:      time.Now,
	}
}

// Verify checks the token signature, issuer, audience and expiry and maps
// its claims to an ExternalUser
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*ExternalUser, error) {
	key := tokenKey(rawToken)
	if hit, ok := v.cache.Get(key); ok && v.now().Before(hit.expiry) {
		v.metrics.RecordTokenCache(true)
		user := hit.user
		return &user, nil
	}
	v.metrics.RecordTokenCache(false)

	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	user, err := userFromToken(idToken)
	if err != nil {
		return nil, err
	}

	v.cache.Add(key, cachedIdentity{user: *user, expiry: idToken.Expiry})
	return user, nil
}

func tokenKey(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

type identityClaims struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Name       string `json:"name"`
}

// missingNamePart fills a name part the IdP did not supply, since local
// users always carry a first and last name
const missingNamePart = "-"

// userFromToken maps standard OIDC claims. When given_name/family_name are
// absent the name claim is split at its first space. A part that is still
// empty falls back to the email local part (first name) or missingNamePart.
func userFromToken(idToken *oidc.IDToken) (*ExternalUser, error) {
	var claims identityClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	user := &ExternalUser{
		ExternalID: idToken.Subject,
		FirstName:  claims.GivenName,
		LastName:   claims.FamilyName,
		Email:      claims.Email,
	}
	if user.FirstName == "" && user.LastName == "" && claims.Name != "" {
		first, last, _ := strings.Cut(strings.TrimSpace(claims.Name), " ")
		user.FirstName = first
		user.LastName = strings.TrimSpace(last)
	}
	if user.FirstName == "" {
		local, _, _ := strings.Cut(user.Email, "@")
		user.FirstName = local
	}
	if user.FirstName == "" {
		user.FirstName = missingNamePart
	}
	if user.LastName == "" {
		user.LastName = missingNamePart
	}

	if user.ExternalID == "" {
		return nil, fmt.Errorf("missing subject in OIDC token")
	}
	if user.Email == "" {
		return nil, fmt.Errorf("missing email in OIDC token")
	}
	return user, nil
}

// OIDCProvider bundles the discovered provider, its token verifier and the
// OAuth2 client used by the login flow
type OIDCProvider struct {
	Verifier     *OIDCVerifier
	OAuth2Config *oauth2.Config
}

// NewOIDCProvider discovers the issuer and builds the verifier and OAuth2 client
func NewOIDCProvider(ctx context.Context, config *OIDCConfig, metrics *observability.Metrics) (*OIDCProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Discover OIDC provider
	provider, err := oidc.NewProvider(ctx, config.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: config.ClientID})

	return &OIDCProvider{
		Verifier: NewOIDCVerifier(verifier, config.TokenCacheSize, config.TokenCacheTTL, metrics),
		OAuth2Config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  config.RedirectURL,
			Scopes:       config.Scopes,
		},
	}, nil
}
