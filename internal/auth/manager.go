// Package auth exchanges CredentialSets for bearer tokens and caches them
// per environment. Token acquisition uses golang.org/x/oauth2's
// client-credentials flow, or its resource-owner-password flow when the
// CredentialSet carries a username or password.
package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

// safetyMargin is subtracted from the provider's expires_in so a token is
// never treated as valid right up to the wire.
const safetyMargin = 30 * time.Second

// TokenEndpointResolver derives the OAuth2 token endpoint from a Dynamics
// host. Injectable so tests never need a real Azure AD tenant.
type TokenEndpointResolver func(host string) (string, error)

// DefaultTokenEndpointResolver replaces the Dynamics API root with the
// tenant-agnostic v2 token endpoint. Real tenant resolution (extracting the
// tenant id) is an external collaborator concern; callers that need a
// tenant-scoped endpoint should supply their own resolver.
func DefaultTokenEndpointResolver(host string) (string, error) {
	u, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("parse host: %w", err)
	}
	return fmt.Sprintf("https://login.microsoftonline.com/common/oauth2/v2.0/token?resource=%s", url.QueryEscape(strings.TrimRight(u.String(), "/"))), nil
}

// Manager maps credential_ref -> CredentialSet and environment_name ->
// TokenInfo. Reads are concurrent; writes serialize, via a reader-writer
// lock, since token refresh can race with a credential-set update from a
// different goroutine.
type Manager struct {
	mu            sync.RWMutex
	credentials   map[string]types.CredentialSet
	tokens        map[string]types.TokenInfo
	resolveTokURL TokenEndpointResolver
	now           func() time.Time
}

// NewManager builds a Manager. resolver may be nil to use
// DefaultTokenEndpointResolver.
func NewManager(resolver TokenEndpointResolver) *Manager {
	if resolver == nil {
		resolver = DefaultTokenEndpointResolver
	}
	return &Manager{
		credentials:   make(map[string]types.CredentialSet),
		tokens:        make(map[string]types.TokenInfo),
		resolveTokURL: resolver,
		now:           time.Now,
	}
}

// PutCredentialSet registers (or replaces) a named CredentialSet in memory.
func (m *Manager) PutCredentialSet(cs types.CredentialSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[cs.Name] = cs
}

// CachedToken returns the in-memory token for env if present and valid.
func (m *Manager) CachedToken(env string) (types.TokenInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tok, ok := m.tokens[env]
	if !ok || !tok.Valid(m.now()) {
		return types.TokenInfo{}, false
	}
	return tok, true
}

// PutToken caches a freshly acquired token for env.
func (m *Manager) PutToken(env string, tok types.TokenInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[env] = tok
}

// Authenticate performs an OAuth2 flow against the identity provider derived
// from host, using the named CredentialSet. On success the token is cached
// in memory keyed by env (the caller, ClientManager, is responsible for also
// persisting it to ConfigStore).
func (m *Manager) Authenticate(ctx context.Context, env, host, credentialRef string) (types.TokenInfo, error) {
	m.mu.RLock()
	cs, ok := m.credentials[credentialRef]
	m.mu.RUnlock()
	if !ok {
		return types.TokenInfo{}, fmt.Errorf("auth: unknown credential set %q", credentialRef)
	}

	tokenURL, err := m.resolveTokURL(host)
	if err != nil {
		return types.TokenInfo{}, fmt.Errorf("auth: resolve token endpoint: %w", err)
	}

	var token *oauth2.Token
	if cs.Username != "" || cs.Password != "" {
		token, err = m.ropc(ctx, cs, tokenURL)
	} else {
		token, err = m.clientCredentials(ctx, cs, tokenURL)
	}
	if err != nil {
		return types.TokenInfo{}, fmt.Errorf("auth: %s: %w", env, err)
	}

	expiresAt := token.Expiry
	if !expiresAt.IsZero() {
		expiresAt = expiresAt.Add(-safetyMargin)
	}
	info := types.TokenInfo{
		AccessToken: token.AccessToken,
		ExpiresAt:   expiresAt,
		TokenType:   token.TokenType,
	}
	m.PutToken(env, info)
	return info, nil
}

func (m *Manager) clientCredentials(ctx context.Context, cs types.CredentialSet, tokenURL string) (*oauth2.Token, error) {
	cfg := clientcredentials.Config{
		ClientID:     cs.ClientID,
		ClientSecret: cs.ClientSecret,
		TokenURL:     tokenURL,
	}
	return cfg.Token(ctx)
}

// ropc performs the resource-owner-password-credentials flow through
// oauth2.Config.PasswordCredentialsToken against the resolved token endpoint.
func (m *Manager) ropc(ctx context.Context, cs types.CredentialSet, tokenURL string) (*oauth2.Token, error) {
	cfg := &oauth2.Config{
		ClientID:     cs.ClientID,
		ClientSecret: cs.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}
	return cfg.PasswordCredentialsToken(ctx, cs.Username, cs.Password)
}
