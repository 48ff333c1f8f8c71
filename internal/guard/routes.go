package guard

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	LoginPath    = "/login"
	LogoutPath   = "/logout"
	CallbackPath = "/auth/callback"
)

// ErrRouteLoop means a route the login flow itself depends on requires authentication
var ErrRouteLoop = errors.New("login flow route requires authentication")

// Route describes the access policy of one navigable path.
// Segments starting with ':' match any single segment.
type Route struct {
	Path         string `yaml:"path" validate:"required,startswith=/"`
	Name         string `yaml:"name" validate:"required"`
	RequiresAuth bool   `yaml:"requiresAuth"`
}

type routeFile struct {
	Routes []Route `yaml:"routes" validate:"required,min=1,dive"`
}

// Table is an immutable set of routes with exactly one entry per path
type Table struct {
	routes []Route
	exact  map[string]int
}

// DefaultTable is the built-in route table of the console
func DefaultTable() *Table {
	table, err := NewTable([]Route{
		{Path: "/", Name: "Home", RequiresAuth: true},
		{Path: "/result", Name: "ExecResult", RequiresAuth: true},
		{Path: "/problems", Name: "Problems", RequiresAuth: true},
		{Path: "/management", Name: "FeedManagement", RequiresAuth: true},
		{Path: "/management/:group", Name: "GroupManagement", RequiresAuth: true},
		{Path: "/management/:group/:feed", Name: "FeedDetail", RequiresAuth: true},
		{Path: "/search", Name: "Search", RequiresAuth: true},
		{Path: "/watch", Name: "Watch", RequiresAuth: true},
		{Path: LoginPath, Name: "Login", RequiresAuth: false},
		{Path: LogoutPath, Name: "Logout", RequiresAuth: false},
		{Path: CallbackPath, Name: "AuthCallback", RequiresAuth: false},
	})
	if err != nil {
		panic(err)
	}
	return table
}

// NewTable validates routes and builds a table from them
func NewTable(routes []Route) (*Table, error) {
	v := validator.New()
	t := &Table{
		routes: make([]Route, 0, len(routes)),
		exact:  make(map[string]int, len(routes)),
	}

	for _, r := range routes {
		if err := v.Struct(r); err != nil {
			return nil, fmt.Errorf("invalid route %q: %w", r.Path, err)
		}
		r.Path = normalize(r.Path)
		if _, dup := t.exact[r.Path]; dup {
			return nil, fmt.Errorf("duplicate route %q", r.Path)
		}
		t.exact[r.Path] = len(t.routes)
		t.routes = append(t.routes, r)
	}

	login, ok := t.exact[LoginPath]
	if !ok {
		return nil, fmt.Errorf("route table has no %s route", LoginPath)
	}
	if t.routes[login].RequiresAuth {
		return nil, fmt.Errorf("%s: %w", LoginPath, ErrRouteLoop)
	}
	for _, path := range []string{LogoutPath, CallbackPath} {
		if i, ok := t.exact[path]; ok && t.routes[i].RequiresAuth {
			return nil, fmt.Errorf("%s: %w", path, ErrRouteLoop)
		}
	}

	return t, nil
}

// LoadTable reads a YAML route table of the form
//
//	routes:
//	  - path: /result
//	    name: ExecResult
//	    requiresAuth: true
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route table: %w", err)
	}

	var file routeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse route table: %w", err)
	}
	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("invalid route table: %w", err)
	}

	return NewTable(file.Routes)
}

// Routes returns a copy of the table's routes in declaration order
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Match finds the route for path. Query and fragment are ignored.
// Exact paths win over patterns.
func (t *Table) Match(path string) (Route, bool) {
	path = normalize(stripQuery(path))

	if i, ok := t.exact[path]; ok {
		return t.routes[i], true
	}

	segments := split(path)
	for _, r := range t.routes {
		if !strings.Contains(r.Path, ":") {
			continue
		}
		if matchSegments(split(r.Path), segments) {
			return r, true
		}
	}
	return Route{}, false
}

func matchSegments(pattern, segments []string) bool {
	if len(pattern) != len(segments) {
		return false
	}
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if segments[i] == "" {
				return false
			}
			continue
		}
		if p != segments[i] {
			return false
		}
	}
	return true
}

func stripQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}

func normalize(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

func split(path string) []string {
	if path == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(path, "/"), "/")
}
