package cli

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terzeron/feedmaker-console/internal/cli/console"
	"github.com/terzeron/feedmaker-console/internal/config"
	"github.com/terzeron/feedmaker-console/internal/fakeapi"
	"github.com/terzeron/feedmaker-console/internal/guard"
)

const testToken = "fb-token"

func startServer(t *testing.T) (*fakeapi.Server, string) {
	t.Helper()
	fake, ts := fakeapi.Start(t, fakeapi.WithAccount(testToken, fakeapi.Account{Email: "alice@example.com", Name: "Alice"}))
	return fake, ts.URL
}

func openConsole(t *testing.T, baseURL, storagePath string) *console.Console {
	t.Helper()
	cfg := &config.Config{
		API:           config.APIConfig{BaseURL: baseURL, Timeout: 5 * time.Second},
		Storage:       config.StorageConfig{Backend: "file", Path: storagePath},
		Logging:       config.LoggingConfig{Level: "disabled", Format: "console"},
		WatchSchedule: "@every 1m",
	}
	c, err := console.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// run executes one command line against c, like a separate invocation
func run(t *testing.T, c *console.Console, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c.Out = &out
	c.Err = &out
	c.In = strings.NewReader(stdin)

	cmd := NewRootCmd(WithConsole(c))
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(c.In)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPagesRequireLogin(t *testing.T) {
	_, baseURL := startServer(t)
	c := openConsole(t, baseURL, filepath.Join(t.TempDir(), "storage.json"))

	_, err := run(t, c, "", "result")
	require.Error(t, err)
	assert.ErrorIs(t, err, guard.ErrLoginRequired)
	assert.Contains(t, err.Error(), "feedmaker login --redirect /result")
	assert.Equal(t, "/login?redirect=/result", c.Redirects.Last())

	out, err := run(t, c, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in.")
}

func TestLoginSessionFlow(t *testing.T) {
	fake, baseURL := startServer(t)
	c := openConsole(t, baseURL, filepath.Join(t.TempDir(), "storage.json"))

	out, err := run(t, c, "", "login", "--token", testToken, "--redirect", "/management/naver")
	require.NoError(t, err)
	assert.Contains(t, out, "Login successful")
	assert.Contains(t, out, "User: Alice")
	assert.Contains(t, out, "Continue with: /management/naver")

	out, err = run(t, c, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Alice")

	out, err = run(t, c, "", "groups")
	require.NoError(t, err)
	assert.Contains(t, out, "naver")
	assert.Contains(t, out, "kakao")

	out, err = run(t, c, "", "feeds", "naver")
	require.NoError(t, err)
	assert.Contains(t, out, "Naver Webtoon")

	out, err = run(t, c, "", "result")
	require.NoError(t, err)
	assert.Contains(t, out, "all feeds processed")

	out, err = run(t, c, "", "feed", "run", "naver", "webtoon")
	require.NoError(t, err)
	assert.Contains(t, out, "started")
	feed, _ := fake.Feed("naver", "webtoon")
	assert.True(t, feed.Running)

	out, err = run(t, c, "", "feed", "status", "naver", "webtoon")
	require.NoError(t, err)
	assert.Contains(t, out, "running: true")

	out, err = run(t, c, "", "problems", "status_info")
	require.NoError(t, err)
	assert.Contains(t, out, `"feed_name": "webtoon"`)

	out, err = run(t, c, `{"url": "https://m.comic.naver.com"}`, "site-config", "set", "naver")
	require.NoError(t, err)
	assert.Contains(t, out, "saved")
	assert.Equal(t, "https://m.comic.naver.com", fake.SiteConfig("naver")["url"])

	out, err = run(t, c, "", "search", "Webtoon")
	require.NoError(t, err)
	assert.Contains(t, out, "webtoon")

	out, err = run(t, c, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")
	assert.Zero(t, fake.SessionCount())

	_, err = run(t, c, "", "groups")
	assert.ErrorIs(t, err, guard.ErrLoginRequired)
}

func TestSessionSurvivesRestart(t *testing.T) {
	_, baseURL := startServer(t)
	path := filepath.Join(t.TempDir(), "storage.json")

	first := openConsole(t, baseURL, path)
	_, err := run(t, first, "", "login", "--token", testToken)
	require.NoError(t, err)

	second := openConsole(t, baseURL, path)
	out, err := run(t, second, "", "feed", "toggle", "naver", "news")
	require.NoError(t, err)
	assert.Contains(t, out, "'_news'")
}

func TestExpiredServerSession(t *testing.T) {
	fake, baseURL := startServer(t)
	c := openConsole(t, baseURL, filepath.Join(t.TempDir(), "storage.json"))

	_, err := run(t, c, "", "login", "--token", testToken)
	require.NoError(t, err)

	fake.ExpireSessions()

	_, err = run(t, c, "", "groups")
	assert.ErrorIs(t, err, guard.ErrLoginRequired)
	assert.False(t, c.Session.Session().IsAuthenticated())
}

func TestDestructiveCommandsNeedConfirmation(t *testing.T) {
	fake, baseURL := startServer(t)
	c := openConsole(t, baseURL, filepath.Join(t.TempDir(), "storage.json"))
	_, err := run(t, c, "", "login", "--token", testToken)
	require.NoError(t, err)

	_, err = run(t, c, "", "group", "delete", "kakao")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
	assert.Contains(t, fake.GroupNames(), "kakao")

	_, err = run(t, c, "", "group", "delete", "kakao", "--yes")
	require.NoError(t, err)
	assert.NotContains(t, fake.GroupNames(), "kakao")
}

func TestApplicationFailureIsReported(t *testing.T) {
	_, baseURL := startServer(t)
	c := openConsole(t, baseURL, filepath.Join(t.TempDir(), "storage.json"))
	_, err := run(t, c, "", "login", "--token", testToken)
	require.NoError(t, err)

	_, err = run(t, c, "", "feeds", "missing")
	require.Error(t, err)
	assert.Equal(t, "no feed list in group 'missing'", err.Error())
}

func TestLoginWithoutTokenNonInteractive(t *testing.T) {
	_, baseURL := startServer(t)
	c := openConsole(t, baseURL, filepath.Join(t.TempDir(), "storage.json"))
	t.Setenv("FEEDMAKER_ACCESS_TOKEN", "")

	_, err := run(t, c, "", "login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-interactive")
}

func TestWatchStopsWhenSessionEnds(t *testing.T) {
	fake, baseURL := startServer(t)
	c := openConsole(t, baseURL, filepath.Join(t.TempDir(), "storage.json"))

	_, err := run(t, c, "", "login", "--token", testToken)
	require.NoError(t, err)
	fake.ResetRequests()

	// End the session once the first round has fetched the run log
	go func() {
		for len(fake.RequestsTo(http.MethodGet, "/exec_result")) == 0 {
			time.Sleep(10 * time.Millisecond)
		}
		// The request is recorded before its handler runs
		time.Sleep(200 * time.Millisecond)
		fake.ExpireSessions()
	}()

	out, err := run(t, c, "", "watch", "--schedule", "@every 1s")
	require.Error(t, err)
	assert.ErrorIs(t, err, guard.ErrLoginRequired)
	assert.Contains(t, out, "all feeds processed")

	// One check from the pre-run, one before the second round
	assert.Len(t, fake.RequestsTo(http.MethodGet, "/auth/me"), 2)
	assert.Len(t, fake.RequestsTo(http.MethodGet, "/exec_result"), 1)
}

func TestVersionNeedsNoConsole(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"version"})
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "feedmaker version")
}
