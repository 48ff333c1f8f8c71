package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/terzeron/feedmaker-console/internal/storage"
)

// JarStorageKey is where the cookies for the API origin are persisted
const JarStorageKey = "cookie_jar"

type savedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitzero"`
}

// PersistentJar is a cookie jar whose cookies for the API origin survive
// between console runs, the way a browser profile keeps them. The
// session cookie is carried but never interpreted.
type PersistentJar struct {
	jar    *cookiejar.Jar
	origin *url.URL
	store  storage.Store
	logger zerolog.Logger
	now    func() time.Time

	mu sync.Mutex
	// expires holds the expiry of persistent origin cookies by name; the
	// wrapped jar does not report it back
	expires map[string]time.Time
}

// NewPersistentJar restores saved cookies for origin from store
func NewPersistentJar(ctx context.Context, origin *url.URL, store storage.Store, logger zerolog.Logger) (*PersistentJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	p := &PersistentJar{
		jar:     jar,
		origin:  origin,
		store:   store,
		logger:  logger,
		now:     time.Now,
		expires: make(map[string]time.Time),
	}

	if err := p.restore(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PersistentJar) restore(ctx context.Context) error {
	data, err := p.store.Get(ctx, JarStorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load cookies: %w", err)
	}

	var saved []savedCookie
	if err := json.Unmarshal([]byte(data), &saved); err != nil {
		// A corrupt jar only costs a fresh login
		p.logger.Warn().Err(err).Msg("Discarding unreadable cookie jar")
		return nil
	}

	now := p.now()
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		if !c.Expires.IsZero() {
			if !c.Expires.After(now) {
				p.logger.Debug().Str("cookie", c.Name).Msg("Dropping expired cookie")
				continue
			}
			p.expires[c.Name] = c.Expires
		}
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/", Expires: c.Expires})
	}
	p.jar.SetCookies(p.origin, cookies)
	return nil
}

// SetCookies implements http.CookieJar and persists the origin's cookies
func (p *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.jar.SetCookies(u, cookies)
	if u.Host == p.origin.Host {
		p.trackExpiry(cookies)
	}
	if err := p.persist(context.Background()); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to persist cookies")
	}
}

// trackExpiry records when each persistent cookie lapses. Session
// cookies have no expiry and live until the server replaces them.
func (p *PersistentJar) trackExpiry(cookies []*http.Cookie) {
	now := p.now()
	for _, c := range cookies {
		switch {
		case c.MaxAge > 0:
			p.expires[c.Name] = now.Add(time.Duration(c.MaxAge) * time.Second)
		case c.MaxAge < 0:
			delete(p.expires, c.Name)
		case !c.Expires.IsZero():
			p.expires[c.Name] = c.Expires
		default:
			delete(p.expires, c.Name)
		}
	}
}

// Cookies implements http.CookieJar
func (p *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	return p.jar.Cookies(u)
}

func (p *PersistentJar) persist(ctx context.Context) error {
	current := p.jar.Cookies(p.origin)
	if len(current) == 0 {
		return p.store.Remove(ctx, JarStorageKey)
	}

	saved := make([]savedCookie, 0, len(current))
	for _, c := range current {
		saved = append(saved, savedCookie{Name: c.Name, Value: c.Value, Expires: p.expires[c.Name]})
	}

	data, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}
	return p.store.Set(ctx, JarStorageKey, string(data))
}
