package session_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terzeron/feedmaker-console/internal/csrf"
	"github.com/terzeron/feedmaker-console/internal/fakeapi"
	"github.com/terzeron/feedmaker-console/internal/gateway"
	"github.com/terzeron/feedmaker-console/internal/session"
	"github.com/terzeron/feedmaker-console/internal/storage"
)

type redirects []string

func (r *redirects) Redirect(_ context.Context, target string) {
	*r = append(*r, target)
}

func TestSessionAgainstServer(t *testing.T) {
	ctx := context.Background()
	fake, ts := fakeapi.Start(t, fakeapi.WithAccount("fb-token", fakeapi.Account{Email: "alice@example.com", Name: "Alice"}))
	base, err := url.Parse(ts.URL)
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	jar, err := gateway.NewPersistentJar(ctx, base, store, zerolog.Nop())
	require.NoError(t, err)
	resolver := csrf.NewResolver(store, jar, base, zerolog.Nop())
	gw := gateway.New(ts.URL, gateway.WithHTTPClient(&http.Client{Jar: jar}), gateway.WithTokenResolver(resolver))

	var sent redirects
	mgr := session.NewManager(session.New(), gw, store,
		session.WithTokenKeeper(resolver),
		session.WithRedirector(&sent),
	)

	assert.False(t, mgr.CheckAuth(ctx))

	require.NoError(t, mgr.Login(ctx, session.LoginRequest{AccessToken: "fb-token"}))
	assert.Equal(t, session.Snapshot{Authenticated: true, UserName: "Alice"}, mgr.Session().Snapshot())
	assert.Equal(t, 1, fake.SessionCount())

	token, ok := resolver.Resolve(ctx)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	mgr.Logout(ctx)

	assert.False(t, mgr.Session().IsAuthenticated())
	assert.Zero(t, fake.SessionCount())
	assert.Equal(t, []string{session.LoginPath}, []string(sent))

	logout := fake.RequestsTo(http.MethodPost, session.LogoutEndpoint)
	require.Len(t, logout, 1)
	assert.Equal(t, token, logout[0].Header.Get(csrf.HeaderName))

	_, ok = resolver.Resolve(ctx)
	assert.False(t, ok, "logout expires the csrf cookie")
	assert.False(t, mgr.CheckAuth(ctx))
}

func TestLoginRejectedByServer(t *testing.T) {
	ctx := context.Background()
	_, ts := fakeapi.Start(t)

	mgr := session.NewManager(session.New(), gateway.New(ts.URL), nil)
	err := mgr.Login(ctx, session.LoginRequest{AccessToken: "unknown"})

	require.Error(t, err)
	assert.True(t, gateway.IsKind(err, gateway.KindServer))
	assert.False(t, mgr.Session().IsAuthenticated())
}

func TestLogoutWithServerGone(t *testing.T) {
	ctx := context.Background()
	_, ts := fakeapi.Start(t, fakeapi.WithAccount("fb-token", fakeapi.Account{Name: "Alice"}))

	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "access_token", "legacy"))

	var sent redirects
	mgr := session.NewManager(session.New(), gateway.New(ts.URL), store, session.WithRedirector(&sent))
	require.NoError(t, mgr.Login(ctx, session.LoginRequest{AccessToken: "fb-token"}))

	ts.Close()
	mgr.Logout(ctx)

	assert.False(t, mgr.Session().IsAuthenticated())
	assert.Equal(t, []string{session.LoginPath}, []string(sent))
	_, err := store.Get(ctx, "access_token")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
