// Package fakeapi is an in-memory FeedMaker API for tests. It issues
// session and CSRF cookies like the real backend, enforces both, and
// records every request it sees.
package fakeapi

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	SessionCookieName = "session_id"
	CSRFCookieName    = "csrf_token"
	CSRFHeaderName    = "X-CSRF-Token"
)

// Account is a user the fake provider accepts
type Account struct {
	Email string
	Name  string
}

// FeedState is the server-side record of one feed
type FeedState struct {
	Name    string
	Title   string
	Active  bool
	Config  map[string]any
	HTMLs   []string
	Items   int
	Running bool
}

type userSession struct {
	account Account
	csrf    string
}

// Response overrides the normal handling of a route
type Response struct {
	Status int
	Body   any
	Delay  time.Duration
}

// Server is the fake backend
type Server struct {
	router *gin.Engine
	logger zerolog.Logger

	mu          sync.Mutex
	accounts    map[string]Account
	sessions    map[string]userSession
	groups      map[string]map[string]*FeedState
	siteConfigs map[string]map[string]any
	publicFeeds map[string]bool
	execResult  string
	problems    map[string]any
	overrides   map[string]Response
	requests    []Recorded
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAccount registers a provider access token
func WithAccount(accessToken string, account Account) Option {
	return func(s *Server) {
		s.accounts[accessToken] = account
	}
}

// New creates a fake server seeded with a small feed catalogue
func New(opts ...Option) *Server {
	s := &Server{
		logger:      zerolog.Nop(),
		accounts:    make(map[string]Account),
		sessions:    make(map[string]userSession),
		groups:      make(map[string]map[string]*FeedState),
		siteConfigs: make(map[string]map[string]any),
		publicFeeds: make(map[string]bool),
		overrides:   make(map[string]Response),
	}
	s.seed()

	for _, opt := range opts {
		opt(s)
	}

	s.setupRouter()
	return s
}

// Start serves s on a local listener until the test ends
func Start(t testing.TB, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	s := New(opts...)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return s, ts
}

func (s *Server) seed() {
	s.execResult = "[2024-01-01 00:00:00] all feeds processed"
	s.groups["naver"] = map[string]*FeedState{
		"webtoon": {Name: "webtoon", Title: "Naver Webtoon", Active: true, Config: sampleConfig(), HTMLs: []string{"a.html", "b.html"}, Items: 12},
		"news":    {Name: "news", Title: "Naver News", Active: true, Config: sampleConfig(), Items: 3},
	}
	s.groups["kakao"] = map[string]*FeedState{
		"page": {Name: "page", Title: "Kakao Page", Active: true, Config: sampleConfig()},
	}
	s.siteConfigs["naver"] = map[string]any{"url": "https://comic.naver.com", "encoding": "utf-8"}
	s.siteConfigs["kakao"] = map[string]any{"url": "https://page.kakao.com", "encoding": "utf-8"}
	s.publicFeeds["webtoon"] = true
	s.problems = map[string]any{
		"status_info":      []map[string]any{{"feed_name": "webtoon", "feed_title": "Naver Webtoon", "group_name": "naver"}},
		"progress_info":    map[string]any{"webtoon": map[string]any{"current_index": 3, "total_item_count": 12}},
		"public_feed_info": map[string]any{"webtoon": map[string]any{"file_size": 1024, "num_items": 12}},
		"html_info":        map[string]any{"html_file_size_map": map[string]any{}, "html_file_with_many_image_tag_map": map[string]any{}},
		"element_info":     []map[string]any{{"element_name": "title", "count": 1}},
		"list_url_info":    map[string]any{"webtoon": map[string]any{"count": 1}},
	}
}

func sampleConfig() map[string]any {
	return map[string]any{
		"collection": map[string]any{"list_url_list": []string{"https://example.com/list"}},
		"extraction": map[string]any{"element_id_list": []string{"content"}},
		"rss":        map[string]any{"title": "sample"},
	}
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.recordingMiddleware())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:8080", "https://localhost:8081"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", CSRFHeaderName, "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.router.Use(s.overrideMiddleware())

	// Auth endpoints answer without a session
	s.router.POST("/auth/login", s.login)
	s.router.POST("/auth/logout", s.logout)
	s.router.GET("/auth/me", s.me)

	api := s.router.Group("")
	api.Use(s.sessionMiddleware(), s.csrfMiddleware())
	{
		api.GET("/exec_result", s.getExecResult)
		api.GET("/problems/:type", s.getProblems)
		api.GET("/search/:keyword", s.search)
		api.GET("/search_site/:keyword", s.searchSite)
		api.DELETE("/public_feeds/:feed", s.removePublicFeed)

		api.GET("/groups", s.getGroups)
		api.DELETE("/groups/:group", s.removeGroup)
		api.PUT("/groups/:group/toggle", s.toggleGroup)
		api.GET("/groups/:group/site_config", s.getSiteConfig)
		api.PUT("/groups/:group/site_config", s.saveSiteConfig)
		api.GET("/groups/:group/feeds", s.getFeeds)
		api.GET("/groups/:group/feeds/:feed", s.getFeedInfo)
		api.POST("/groups/:group/feeds/:feed", s.saveFeed)
		api.DELETE("/groups/:group/feeds/:feed", s.removeFeed)
		api.POST("/groups/:group/feeds/:feed/run", s.runFeed)
		api.PUT("/groups/:group/feeds/:feed/toggle", s.toggleFeed)
		api.GET("/groups/:group/feeds/:feed/check_running", s.checkRunning)
		api.DELETE("/groups/:group/feeds/:feed/list", s.removeList)
		api.DELETE("/groups/:group/feeds/:feed/htmls", s.removeHTMLs)
		api.DELETE("/groups/:group/feeds/:feed/htmls/:file", s.removeHTMLFile)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Override makes method+path answer with resp until cleared
func (s *Server) Override(method, path string, resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+path] = resp
}

func (s *Server) ClearOverrides() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = make(map[string]Response)
}

// ExpireSessions drops every server-side session, as a restart would
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]userSession)
}

func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Feed returns a copy of a feed's server-side state
func (s *Server) Feed(group, feed string) (FeedState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.groups[group][feed]
	if !ok {
		return FeedState{}, false
	}
	cp := *f
	cp.HTMLs = append([]string(nil), f.HTMLs...)
	return cp, true
}

// GroupNames returns the current group names, sorted
func (s *Server) GroupNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.groups))
	for name := range s.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) SiteConfig(group string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.siteConfigs[group]
}

func (s *Server) HasPublicFeed(feed string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publicFeeds[feed]
}

// SetExecResult replaces the run log served by /exec_result
func (s *Server) SetExecResult(result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execResult = result
}
