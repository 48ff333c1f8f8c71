package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/terzeron/feedmaker-console/internal/storage"
)

const (
	MeEndpoint     = "/auth/me"
	LoginEndpoint  = "/auth/login"
	LogoutEndpoint = "/auth/logout"

	// LoginPath is the console route unauthenticated users are sent to
	LoginPath = "/login"
)

// LegacyKeys are client-side artifacts of the storage-based login the
// console used before the server became authoritative. They are never
// written anymore, only purged on logout and on unauthorized redirects.
var LegacyKeys = []string{"is_authorized", "access_token", "name", "session_expiry"}

var (
	ErrNotAuthenticated = errors.New("not authenticated")
)

// API is the part of the gateway the session needs
type API interface {
	Get(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error)
	Post(ctx context.Context, endpoint string, body any) (json.RawMessage, error)
}

// Redirector moves the user to another console route
type Redirector interface {
	Redirect(ctx context.Context, target string)
}

// TokenKeeper persists the anti-forgery token issued at login
type TokenKeeper interface {
	Remember(ctx context.Context, token string) error
	Forget(ctx context.Context) error
}

type noRedirect struct{}

func (noRedirect) Redirect(context.Context, string) {}

// Manager synchronizes a Session with the server's verdict
type Manager struct {
	session  *Session
	api      API
	store    storage.Store
	tokens   TokenKeeper
	redirect Redirector
	logger   zerolog.Logger

	coalesce bool
	inflight singleflight.Group
}

// Option configures a Manager
type Option func(*Manager)

func WithRedirector(r Redirector) Option {
	return func(m *Manager) {
		m.redirect = r
	}
}

func WithTokenKeeper(k TokenKeeper) Option {
	return func(m *Manager) {
		m.tokens = k
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithCoalescing makes concurrent CheckAuth calls share one round trip.
// Without it every call hits the server and the last response to
// arrive wins.
func WithCoalescing() Option {
	return func(m *Manager) {
		m.coalesce = true
	}
}

// NewManager creates a manager for sess. store may be nil when there
// are no legacy artifacts to purge.
func NewManager(sess *Session, api API, store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		session:  sess,
		api:      api,
		store:    store,
		redirect: noRedirect{},
		logger:   zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Session returns the managed session for read access
func (m *Manager) Session() *Session {
	return m.session
}

type meResponse struct {
	IsAuthenticated bool   `json:"is_authenticated"`
	Name            string `json:"name"`
}

// CheckAuth asks the server whether the caller is authenticated and
// records the answer. Any failure counts as "not authenticated".
func (m *Manager) CheckAuth(ctx context.Context) bool {
	if !m.coalesce {
		return m.checkAuth(ctx)
	}

	v, _, shared := m.inflight.Do(MeEndpoint, func() (interface{}, error) {
		return m.checkAuth(ctx), nil
	})
	if shared {
		m.logger.Debug().Msg("Auth check shared an in-flight request")
	}
	return v.(bool)
}

func (m *Manager) checkAuth(ctx context.Context) bool {
	raw, err := m.api.Get(ctx, MeEndpoint, nil)
	if err != nil {
		m.logger.Debug().Err(err).Msg("Auth check failed, treating as unauthenticated")
		m.session.set(false, "")
		return false
	}

	var me meResponse
	if err := json.Unmarshal(raw, &me); err != nil {
		m.logger.Debug().Err(err).Msg("Unreadable auth check response")
		m.session.set(false, "")
		return false
	}

	m.session.set(me.IsAuthenticated, me.Name)
	return me.IsAuthenticated
}

// RequireAuth checks authentication and redirects to the login route on failure
func (m *Manager) RequireAuth(ctx context.Context) bool {
	if !m.CheckAuth(ctx) {
		m.redirect.Redirect(ctx, LoginPath)
		return false
	}
	return true
}

// LoginRequest carries the identity obtained from the OAuth callback
type LoginRequest struct {
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	AccessToken string `json:"access_token"`
}

type loginResponse struct {
	CSRFToken string `json:"csrf_token"`
}

// Login exchanges a provider access token for a server session, then
// confirms the session with the server.
func (m *Manager) Login(ctx context.Context, req LoginRequest) error {
	if req.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}

	raw, err := m.api.Post(ctx, LoginEndpoint, req)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if m.tokens != nil {
		m.keepToken(ctx, raw)
	}

	if !m.CheckAuth(ctx) {
		return ErrNotAuthenticated
	}

	m.logger.Info().Str("user", m.session.UserName()).Msg("Logged in")
	return nil
}

// keepToken stores the token issued with a login response. Without
// one, a token left from an earlier session is dropped so the cookie
// issued by this login is used instead.
func (m *Manager) keepToken(ctx context.Context, raw json.RawMessage) {
	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.CSRFToken == "" {
		if err := m.tokens.Forget(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to drop stale csrf token")
		}
		return
	}
	if err := m.tokens.Remember(ctx, resp.CSRFToken); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to store csrf token, falling back to cookie")
	}
}

// Logout asks the server to end the session. Whatever the server or
// the network says, the local session ends up unauthenticated, legacy
// artifacts are purged and the user is sent to the login route.
func (m *Manager) Logout(ctx context.Context) {
	defer func() {
		m.session.set(false, "")
		m.PurgeLegacy(ctx)
		if m.tokens != nil {
			if err := m.tokens.Forget(ctx); err != nil {
				m.logger.Warn().Err(err).Msg("Failed to forget csrf token")
			}
		}
		m.redirect.Redirect(ctx, LoginPath)
	}()

	if _, err := m.api.Post(ctx, LogoutEndpoint, nil); err != nil {
		m.logger.Warn().Err(err).Msg("Logout request failed, clearing local session anyway")
	}
}

// PurgeLegacy removes the storage keys of the old client-side login
func (m *Manager) PurgeLegacy(ctx context.Context) {
	if m.store == nil {
		return
	}
	for _, key := range LegacyKeys {
		if err := m.store.Remove(ctx, key); err != nil {
			m.logger.Warn().Err(err).Str("key", key).Msg("Failed to purge legacy key")
		}
	}
}
