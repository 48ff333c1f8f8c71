// Package guard decides, before each page is shown, whether the user may
// see it or must log in first.
package guard

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ErrLoginRequired = errors.New("login required")
	ErrUnknownRoute  = errors.New("unknown route")
)

// Checker is the session behavior the guard relies on
type Checker interface {
	CheckAuth(ctx context.Context) bool
	PurgeLegacy(ctx context.Context)
}

// Redirector moves the user to another console route
type Redirector interface {
	Redirect(ctx context.Context, target string)
}

type Outcome int

const (
	Allow Outcome = iota
	Redirect
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Decision is the result of a navigation attempt
type Decision struct {
	Outcome Outcome
	Route   Route
	// Target is the login location for Redirect decisions
	Target string
}

// Err maps a decision to an error; Allow is nil
func (d Decision) Err() error {
	switch d.Outcome {
	case Redirect:
		return ErrLoginRequired
	case NotFound:
		return ErrUnknownRoute
	default:
		return nil
	}
}

type Guard struct {
	table    *Table
	checker  Checker
	redirect Redirector
	logger   zerolog.Logger
}

type Option func(*Guard)

func WithRedirector(r Redirector) Option {
	return func(g *Guard) {
		g.redirect = r
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

func New(table *Table, checker Checker, opts ...Option) *Guard {
	g := &Guard{
		table:   table,
		checker: checker,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Navigate runs the access check for the full path to, which may carry
// a query string. Public routes never reach the server. Protected
// routes are re-checked with the server on every navigation.
func (g *Guard) Navigate(ctx context.Context, to string) Decision {
	route, ok := g.table.Match(to)
	if !ok {
		g.logger.Debug().Str("path", to).Msg("No route matches path")
		return Decision{Outcome: NotFound}
	}

	if !route.RequiresAuth {
		return Decision{Outcome: Allow, Route: route}
	}

	if g.checker.CheckAuth(ctx) {
		return Decision{Outcome: Allow, Route: route}
	}

	g.checker.PurgeLegacy(ctx)
	target := LoginRedirect(to)
	g.logger.Debug().
		Str("path", to).
		Str("route", route.Name).
		Str("target", target).
		Msg("Navigation requires login")

	if g.redirect != nil {
		g.redirect.Redirect(ctx, target)
	}
	return Decision{Outcome: Redirect, Route: route, Target: target}
}

// LoginRedirect builds the login location that returns to fullPath
func LoginRedirect(fullPath string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(fullPath), "%2F", "/")
	return LoginPath + "?redirect=" + escaped
}

// ReturnPath extracts the post-login destination from a login location.
// Anything that is not a local absolute path falls back to "/".
func ReturnPath(loginLocation string) string {
	u, err := url.Parse(loginLocation)
	if err != nil {
		return "/"
	}
	target := u.Query().Get("redirect")
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/"
	}
	return target
}
