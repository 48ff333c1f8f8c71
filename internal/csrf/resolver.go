// Package csrf locates the anti-forgery token attached to mutating requests.
package csrf

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/terzeron/feedmaker-console/internal/storage"
)

const (
	// StorageKey is where the login flow persists the token
	StorageKey = "csrf_token"
	// CookieName is the cookie the backend issues alongside the session cookie
	CookieName = "csrf_token"
	// HeaderName carries the token on POST, PUT and DELETE
	HeaderName = "X-CSRF-Token"
)

// CookieSource exposes the cookies the client would send to a URL.
// http.CookieJar satisfies it.
type CookieSource interface {
	Cookies(u *url.URL) []*http.Cookie
}

// Resolver finds the anti-forgery token. A stored token takes
// precedence over the cookie.
type Resolver struct {
	store   storage.Store
	cookies CookieSource
	baseURL *url.URL
	logger  zerolog.Logger
}

// NewResolver creates a resolver. Either source may be nil.
func NewResolver(store storage.Store, cookies CookieSource, baseURL *url.URL, logger zerolog.Logger) *Resolver {
	return &Resolver{
		store:   store,
		cookies: cookies,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Resolve returns the token and whether one was found.
// A missing token is not an error; the server decides whether it needed one.
func (r *Resolver) Resolve(ctx context.Context) (string, bool) {
	if token, ok := r.fromStorage(ctx); ok {
		return token, true
	}
	if token, ok := r.fromCookie(); ok {
		return token, true
	}
	return "", false
}

func (r *Resolver) fromStorage(ctx context.Context) (string, bool) {
	if r.store == nil {
		return "", false
	}

	token, err := r.store.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Debug().Err(err).Msg("Failed to read csrf token from storage")
		}
		return "", false
	}
	return token, token != ""
}

func (r *Resolver) fromCookie() (string, bool) {
	if r.cookies == nil || r.baseURL == nil {
		return "", false
	}

	for _, cookie := range r.cookies.Cookies(r.baseURL) {
		if cookie.Name == CookieName {
			return cookie.Value, cookie.Value != ""
		}
	}
	return "", false
}

// Remember persists a token handed out by the login endpoint
func (r *Resolver) Remember(ctx context.Context, token string) error {
	if r.store == nil || token == "" {
		return nil
	}
	return r.store.Set(ctx, StorageKey, token)
}

// Forget drops the persisted token
func (r *Resolver) Forget(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	return r.store.Remove(ctx, StorageKey)
}
