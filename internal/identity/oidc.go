package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	gocache "github.com/patrickmn/go-cache"
)

// OIDCOptions configures the OIDC verifier. Claim names are configurable
// because providers disagree on where roles live (Cognito uses
// "cognito:groups", Auth0 a namespaced custom claim).
type OIDCOptions struct {
	IssuerURL   string
	ClientID    string
	EmailClaim  string
	NameClaim   string
	RoleClaim   string
	UserInfoTTL time.Duration
}

// OIDCVerifier validates ID tokens against an external OIDC issuer. Signing
// keys are fetched and cached by the underlying library. When a token lacks
// profile claims, the issuer's userinfo endpoint is queried through a
// TTL-guarded get-or-refresh cache so repeated requests with the same token
// cost at most one upstream round trip per TTL window.
type OIDCVerifier struct {
	verifier    *oidc.IDTokenVerifier
	opts        OIDCOptions
	userInfoURL string
	userInfo    *gocache.Cache
	httpClient  *http.Client
}

// NewOIDCVerifier discovers the issuer and builds a verifier. It performs a
// network round trip for discovery and should be called once at startup.
func NewOIDCVerifier(ctx context.Context, opts OIDCOptions) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, opts.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discovering oidc issuer: %w", err)
	}

	var discovered struct {
		UserInfoEndpoint string `json:"userinfo_endpoint"`
	}
	if err := provider.Claims(&discovered); err != nil {
		return nil, fmt.Errorf("reading issuer metadata: %w", err)
	}

	ttl := opts.UserInfoTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &OIDCVerifier{
		verifier:    provider.Verifier(&oidc.Config{ClientID: opts.ClientID}),
		opts:        opts,
		userInfoURL: discovered.UserInfoEndpoint,
		userInfo:    gocache.New(ttl, 2*ttl),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Provider returns the verifier kind for logging and metrics labels.
func (v *OIDCVerifier) Provider() string { return "oidc" }

// Verify validates the token signature, issuer, audience, and expiry, then
// maps the configured claims onto an Identity.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("verifying id token: %w", err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parsing token claims: %w", err)
	}

	ident := &Identity{
		Subject:    idToken.Subject,
		Email:      stringClaim(claims, v.opts.EmailClaim),
		Name:       stringClaim(claims, v.opts.NameClaim),
		RoleClaims: stringSliceClaim(claims, v.opts.RoleClaim),
	}

	// Access tokens often omit profile claims; fill them from userinfo.
	if ident.Email == "" && v.userInfoURL != "" {
		info, err := v.fetchUserInfo(ctx, rawToken)
		if err != nil {
			return nil, fmt.Errorf("fetching userinfo: %w", err)
		}
		ident.Email = stringClaim(info, v.opts.EmailClaim)
		if ident.Name == "" {
			ident.Name = stringClaim(info, v.opts.NameClaim)
		}
		if len(ident.RoleClaims) == 0 {
			ident.RoleClaims = stringSliceClaim(info, v.opts.RoleClaim)
		}
	}

	return ident, nil
}

// fetchUserInfo returns the userinfo claims for the token, consulting the
// cache first. Cache entries are keyed by token digest, not the token itself.
func (v *OIDCVerifier) fetchUserInfo(ctx context.Context, rawToken string) (map[string]any, error) {
	key := tokenDigest(rawToken)
	if cached, found := v.userInfo.Get(key); found {
		if claims, ok := cached.(map[string]any); ok {
			return claims, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+rawToken)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	var claims map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("decoding userinfo response: %w", err)
	}

	v.userInfo.Set(key, claims, gocache.DefaultExpiration)
	return claims, nil
}

func tokenDigest(rawToken string) string {
	h := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(h[:])
}

func stringClaim(claims map[string]any, name string) string {
	if name == "" {
		return ""
	}
	s, _ := claims[name].(string)
	return s
}

// stringSliceClaim reads a claim that may be a JSON array of strings or a
// single string (Cognito emits groups as an array, some providers a string).
func stringSliceClaim(claims map[string]any, name string) []string {
	if name == "" {
		return nil
	}
	switch v := claims[name].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}
