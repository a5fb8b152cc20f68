package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/norpie/dynamics-cli-sub003/internal/auth"
	"github.com/norpie/dynamics-cli-sub003/internal/config"
	"github.com/norpie/dynamics-cli-sub003/internal/resilience"
	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

// Manager is ClientManager: it resolves an authenticated Client per
// environment, following a 3-step lookup order (memory token, then
// ConfigStore token, then a fresh AuthManager exchange) before handing back
// a Client wrapping the resolved host+token.
type Manager struct {
	store      *config.Store
	auth       *auth.Manager
	stack      *resilience.Stack
	httpClient *http.Client
}

// NewManager builds a ClientManager sharing one resilience.Stack (and
// therefore one rate limiter / metrics collector) across every environment's
// Client, so all environments draw on a single rate-limit budget.
func NewManager(store *config.Store, authMgr *auth.Manager, stack *resilience.Stack) *Manager {
	return &Manager{store: store, auth: authMgr, stack: stack, httpClient: http.DefaultClient}
}

// GetClient resolves env to an authenticated Client, acquiring and
// persisting a fresh token only if neither the in-memory cache nor
// ConfigStore holds a still-valid one.
func (m *Manager) GetClient(ctx context.Context, env string) (*Client, error) {
	environment, err := m.store.GetEnvironment(ctx, env)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("client manager: environment %q: %w", env, types.ErrNotFound)
		}
		return nil, fmt.Errorf("client manager: look up environment %q: %w", env, err)
	}

	if tok, ok := m.auth.CachedToken(env); ok {
		return New(environment.Host, tok, m.stack, m.httpClient), nil
	}

	if tok, err := m.store.GetToken(ctx, env); err == nil {
		m.auth.PutToken(env, tok)
		return New(environment.Host, tok, m.stack, m.httpClient), nil
	} else if !errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("client manager: load cached token for %q: %w", env, err)
	}

	cs, err := m.store.GetCredentialSet(ctx, environment.CredentialRef)
	if err != nil {
		return nil, fmt.Errorf("client manager: load credential set %q: %w", environment.CredentialRef, err)
	}
	m.auth.PutCredentialSet(cs)

	tok, err := m.auth.Authenticate(ctx, env, environment.Host, environment.CredentialRef)
	if err != nil {
		return nil, fmt.Errorf("client manager: authenticate %q: %w", env, err)
	}
	if err := m.store.SaveToken(ctx, env, tok); err != nil {
		return nil, fmt.Errorf("client manager: persist token for %q: %w", env, err)
	}

	return New(environment.Host, tok, m.stack, m.httpClient), nil
}
