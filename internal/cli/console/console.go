// Package console wires configuration, storage, the API gateway, the
// session and the navigation guard into one object the commands share.
package console

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/terzeron/feedmaker-console/internal/config"
	"github.com/terzeron/feedmaker-console/internal/csrf"
	"github.com/terzeron/feedmaker-console/internal/feeds"
	"github.com/terzeron/feedmaker-console/internal/gateway"
	"github.com/terzeron/feedmaker-console/internal/guard"
	"github.com/terzeron/feedmaker-console/internal/session"
	"github.com/terzeron/feedmaker-console/internal/storage"
)

// Console is the shared state of one CLI invocation
type Console struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Store   storage.Store
	Jar     *gateway.PersistentJar
	Tokens  *csrf.Resolver
	API     *gateway.Client
	Session *session.Manager
	Guard   *guard.Guard
	Feeds   *feeds.Client

	Out io.Writer
	Err io.Writer
	In  io.Reader

	Redirects *Redirects
}

type Option func(*options)

type options struct {
	out        io.Writer
	errOut     io.Writer
	in         io.Reader
	logger     *zerolog.Logger
	httpClient *http.Client
}

func WithOutput(out, errOut io.Writer) Option {
	return func(o *options) {
		o.out = out
		o.errOut = errOut
	}
}

func WithInput(in io.Reader) Option {
	return func(o *options) {
		o.in = in
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// WithHTTPClient sets the transport. Its jar is replaced by the
// persistent one.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

// Open builds a console for cfg, restoring persisted cookies and tokens
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Console, error) {
	o := options{
		out:    os.Stdout,
		errOut: os.Stderr,
		in:     os.Stdin,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := zerolog.Nop()
	if o.logger != nil {
		logger = *o.logger
	}

	base, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}

	store, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path, base.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	jar, err := gateway.NewPersistentJar(ctx, base, store, logger)
	if err != nil {
		closeStore(store)
		return nil, err
	}
	tokens := csrf.NewResolver(store, jar, base, logger)

	httpClient := &http.Client{Timeout: cfg.API.Timeout}
	if o.httpClient != nil {
		cp := *o.httpClient
		httpClient = &cp
	}
	httpClient.Jar = jar

	api := gateway.New(cfg.API.BaseURL,
		gateway.WithHTTPClient(httpClient),
		gateway.WithTokenResolver(tokens),
		gateway.WithLogger(logger),
	)

	redirects := &Redirects{}

	sessionOpts := []session.Option{
		session.WithTokenKeeper(tokens),
		session.WithRedirector(redirects),
		session.WithLogger(logger),
	}
	if cfg.CoalesceAuthChecks {
		sessionOpts = append(sessionOpts, session.WithCoalescing())
	}
	manager := session.NewManager(session.New(), api.Fork(), store, sessionOpts...)

	table := guard.DefaultTable()
	if cfg.RoutesFile != "" {
		table, err = guard.LoadTable(cfg.RoutesFile)
		if err != nil {
			closeStore(store)
			return nil, err
		}
	}

	return &Console{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Jar:       jar,
		Tokens:    tokens,
		API:       api,
		Session:   manager,
		Guard:     guard.New(table, manager, guard.WithRedirector(redirects), guard.WithLogger(logger)),
		Feeds:     feeds.NewClient(api.Fork()),
		Out:       o.out,
		Err:       o.errOut,
		In:        o.in,
		Redirects: redirects,
	}, nil
}

// Close releases the storage backend
func (c *Console) Close() error {
	return closeStore(c.Store)
}

func closeStore(store storage.Store) error {
	if closer, ok := store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Redirects records where the session or the guard sent the user.
// A command line cannot change pages, so the last target is turned
// into a hint by the command that triggered it.
type Redirects struct {
	mu      sync.Mutex
	targets []string
}

func (r *Redirects) Redirect(_ context.Context, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, target)
}

// Last returns the most recent target, or "" when none
func (r *Redirects) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.targets) == 0 {
		return ""
	}
	return r.targets[len(r.targets)-1]
}
