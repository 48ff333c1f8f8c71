package guard

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	mu      sync.Mutex
	answers []bool
	checks  int
	purges  int
}

func (f *fakeChecker) CheckAuth(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if len(f.answers) == 0 {
		return false
	}
	answer := f.answers[0]
	f.answers = f.answers[1:]
	return answer
}

func (f *fakeChecker) PurgeLegacy(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges++
}

type redirects []string

func (r *redirects) Redirect(_ context.Context, target string) {
	*r = append(*r, target)
}

func TestNavigateProtectedRoute(t *testing.T) {
	tests := []struct {
		name        string
		to          string
		auth        bool
		wantOutcome Outcome
		wantTarget  string
	}{
		{name: "authenticated result", to: "/result", auth: true, wantOutcome: Allow},
		{name: "unauthenticated result", to: "/result", auth: false, wantOutcome: Redirect, wantTarget: "/login?redirect=/result"},
		{name: "unauthenticated problems", to: "/problems", auth: false, wantOutcome: Redirect, wantTarget: "/login?redirect=/problems"},
		{
			name:        "unauthenticated feed detail keeps full path",
			to:          "/management/naver/webtoon?tab=html",
			auth:        false,
			wantOutcome: Redirect,
			wantTarget:  "/login?redirect=/management/naver/webtoon%3Ftab%3Dhtml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &fakeChecker{answers: []bool{tt.auth}}
			var sent redirects
			g := New(DefaultTable(), checker, WithRedirector(&sent))

			d := g.Navigate(context.Background(), tt.to)

			assert.Equal(t, tt.wantOutcome, d.Outcome)
			assert.Equal(t, tt.wantTarget, d.Target)
			assert.Equal(t, 1, checker.checks)
			if tt.wantOutcome == Redirect {
				assert.Equal(t, []string{tt.wantTarget}, []string(sent))
				assert.Equal(t, 1, checker.purges)
				assert.ErrorIs(t, d.Err(), ErrLoginRequired)
				assert.Equal(t, tt.to, ReturnPath(d.Target))
			} else {
				assert.Empty(t, sent)
				assert.Zero(t, checker.purges)
				assert.NoError(t, d.Err())
			}
		})
	}
}

func TestNavigatePublicRoutesSkipServer(t *testing.T) {
	for _, to := range []string{"/login", "/login?redirect=/result", "/logout", "/auth/callback"} {
		t.Run(to, func(t *testing.T) {
			checker := &fakeChecker{}
			g := New(DefaultTable(), checker)

			d := g.Navigate(context.Background(), to)

			assert.Equal(t, Allow, d.Outcome)
			assert.Zero(t, checker.checks)
		})
	}
}

func TestNavigateChecksEveryTime(t *testing.T) {
	checker := &fakeChecker{answers: []bool{true, false}}
	g := New(DefaultTable(), checker)

	assert.Equal(t, Allow, g.Navigate(context.Background(), "/result").Outcome)
	assert.Equal(t, Redirect, g.Navigate(context.Background(), "/result").Outcome)
	assert.Equal(t, 2, checker.checks)
}

func TestNavigateUnknownRoute(t *testing.T) {
	checker := &fakeChecker{}
	g := New(DefaultTable(), checker)

	d := g.Navigate(context.Background(), "/nowhere")

	assert.Equal(t, NotFound, d.Outcome)
	assert.ErrorIs(t, d.Err(), ErrUnknownRoute)
	assert.Zero(t, checker.checks)
}

func TestReturnPath(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{location: "/login?redirect=/problems", want: "/problems"},
		{location: "/login", want: "/"},
		{location: "/login?redirect=https://evil.example", want: "/"},
		{location: "/login?redirect=//evil.example", want: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			assert.Equal(t, tt.want, ReturnPath(tt.location))
		})
	}
}

func TestGuardRedirectRoundTrip(t *testing.T) {
	// A redirect target must itself be reachable without authentication
	checker := &fakeChecker{}
	g := New(DefaultTable(), checker)

	d := g.Navigate(context.Background(), "/search")
	require.Equal(t, Redirect, d.Outcome)

	next := g.Navigate(context.Background(), d.Target)
	assert.Equal(t, Allow, next.Outcome)
	assert.Equal(t, "Login", next.Route.Name)
	assert.Equal(t, 1, checker.checks)
}
