package csrf

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terzeron/feedmaker-console/internal/storage"
)

func newJar(t *testing.T, base *url.URL, cookies ...*http.Cookie) *cookiejar.Jar {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	jar.SetCookies(base, cookies)
	return jar
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, error) {
	return "", errors.New("disk on fire")
}
func (brokenStore) Set(context.Context, string, string) error { return errors.New("disk on fire") }
func (brokenStore) Remove(context.Context, string) error      { return errors.New("disk on fire") }

func TestResolver_Precedence(t *testing.T) {
	ctx := context.Background()
	base, _ := url.Parse("http://localhost:8000")

	tests := []struct {
		name      string
		stored    string
		cookie    string
		wantToken string
		wantOK    bool
	}{
		{name: "storage wins over cookie", stored: "from-storage", cookie: "from-cookie", wantToken: "from-storage", wantOK: true},
		{name: "cookie used when storage empty", cookie: "from-cookie", wantToken: "from-cookie", wantOK: true},
		{name: "storage only", stored: "from-storage", wantToken: "from-storage", wantOK: true},
		{name: "neither source", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			if tt.stored != "" {
				require.NoError(t, store.Set(ctx, StorageKey, tt.stored))
			}

			var cookies []*http.Cookie
			if tt.cookie != "" {
				cookies = append(cookies, &http.Cookie{Name: CookieName, Value: tt.cookie, Path: "/"})
			}
			cookies = append(cookies, &http.Cookie{Name: "session_id", Value: "sid", Path: "/"})

			r := NewResolver(store, newJar(t, base, cookies...), base, zerolog.Nop())
			token, ok := r.Resolve(ctx)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestResolver_EmptyStoredValueFallsThrough(t *testing.T) {
	ctx := context.Background()
	base, _ := url.Parse("http://localhost:8000")

	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, StorageKey, ""))
	jar := newJar(t, base, &http.Cookie{Name: CookieName, Value: "cookie-token", Path: "/"})

	token, ok := NewResolver(store, jar, base, zerolog.Nop()).Resolve(ctx)
	assert.True(t, ok)
	assert.Equal(t, "cookie-token", token)
}

func TestResolver_StorageErrorIsNotFatal(t *testing.T) {
	base, _ := url.Parse("http://localhost:8000")
	jar := newJar(t, base, &http.Cookie{Name: CookieName, Value: "cookie-token", Path: "/"})

	token, ok := NewResolver(brokenStore{}, jar, base, zerolog.Nop()).Resolve(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "cookie-token", token)
}

func TestResolver_NilSources(t *testing.T) {
	token, ok := NewResolver(nil, nil, nil, zerolog.Nop()).Resolve(context.Background())
	assert.False(t, ok)
	assert.Empty(t, token)
}

func TestResolver_RememberAndForget(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	r := NewResolver(store, nil, nil, zerolog.Nop())

	require.NoError(t, r.Remember(ctx, "issued"))
	token, ok := r.Resolve(ctx)
	assert.True(t, ok)
	assert.Equal(t, "issued", token)

	require.NoError(t, r.Forget(ctx))
	_, ok = r.Resolve(ctx)
	assert.False(t, ok)
}
