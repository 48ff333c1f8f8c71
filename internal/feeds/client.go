// Package feeds is a typed client for the FeedMaker management API.
// Every call goes through the gateway, so failures arrive as
// *gateway.Error values.
package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// API is the gateway surface the client needs
type API interface {
	Get(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error)
	Post(ctx context.Context, endpoint string, body any) (json.RawMessage, error)
	Put(ctx context.Context, endpoint string, body any) (json.RawMessage, error)
	Del(ctx context.Context, endpoint string) (json.RawMessage, error)
}

type Client struct {
	api API
}

func NewClient(api API) *Client {
	return &Client{api: api}
}

// path joins escaped segments under a leading slash
func path(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(escaped, "/")
}

func groupPath(group string, rest ...string) string {
	return path(append([]string{"groups", group}, rest...)...)
}

func feedPath(group, feed string, rest ...string) string {
	return groupPath(group, append([]string{"feeds", feed}, rest...)...)
}

// field decodes one member of a response object. A missing or null
// member leaves the zero value.
func field[T any](raw json.RawMessage, key string) (T, error) {
	var out T
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return out, fmt.Errorf("failed to decode response: %w", err)
	}
	value, ok := fields[key]
	if !ok || string(value) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(value, &out); err != nil {
		return out, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return out, nil
}

// ExecResult returns the log of the last full run
func (c *Client) ExecResult(ctx context.Context) (string, error) {
	raw, err := c.api.Get(ctx, "/exec_result", nil)
	if err != nil {
		return "", err
	}
	return field[string](raw, "exec_result")
}

// Problems returns a problem report. Reports differ in shape, so the
// result is left undecoded.
func (c *Client) Problems(ctx context.Context, t ProblemType) (json.RawMessage, error) {
	raw, err := c.api.Get(ctx, path("problems", string(t)), nil)
	if err != nil {
		return nil, err
	}
	return field[json.RawMessage](raw, "result")
}

// Search finds feeds and groups matching space-separated keywords
func (c *Client) Search(ctx context.Context, keyword string) ([]Feed, error) {
	raw, err := c.api.Get(ctx, path("search", keyword), nil)
	if err != nil {
		return nil, err
	}
	return field[[]Feed](raw, "feeds")
}

// SearchSite searches the configured source sites
func (c *Client) SearchSite(ctx context.Context, keyword string) ([]SiteMatch, error) {
	raw, err := c.api.Get(ctx, path("search_site", keyword), nil)
	if err != nil {
		return nil, err
	}
	return field[[]SiteMatch](raw, "search_result_list")
}

func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	raw, err := c.api.Get(ctx, "/groups", nil)
	if err != nil {
		return nil, err
	}
	return field[[]Group](raw, "groups")
}

func (c *Client) RemoveGroup(ctx context.Context, group string) error {
	_, err := c.api.Del(ctx, groupPath(group))
	return err
}

// ToggleGroup enables or disables a group and returns its new name
func (c *Client) ToggleGroup(ctx context.Context, group string) (string, error) {
	raw, err := c.api.Put(ctx, groupPath(group, "toggle"), nil)
	if err != nil {
		return "", err
	}
	return field[string](raw, "new_name")
}

func (c *Client) SiteConfig(ctx context.Context, group string) (map[string]any, error) {
	raw, err := c.api.Get(ctx, groupPath(group, "site_config"), nil)
	if err != nil {
		return nil, err
	}
	return field[map[string]any](raw, "configuration")
}

func (c *Client) SaveSiteConfig(ctx context.Context, group string, config map[string]any) error {
	_, err := c.api.Put(ctx, groupPath(group, "site_config"), config)
	return err
}

// Feeds lists the feeds of a group sorted by title
func (c *Client) Feeds(ctx context.Context, group string) ([]Feed, error) {
	raw, err := c.api.Get(ctx, groupPath(group, "feeds"), nil)
	if err != nil {
		return nil, err
	}
	return field[[]Feed](raw, "feeds")
}

// FeedInfo returns the feed's configuration and status, undecoded
func (c *Client) FeedInfo(ctx context.Context, group, feed string) (json.RawMessage, error) {
	raw, err := c.api.Get(ctx, feedPath(group, feed), nil)
	if err != nil {
		return nil, err
	}
	return field[json.RawMessage](raw, "feed_info")
}

// SaveFeed stores a feed configuration. The server expects the
// collection, extraction and rss sections inside it.
func (c *Client) SaveFeed(ctx context.Context, group, feed string, configuration json.RawMessage) error {
	body := map[string]json.RawMessage{"configuration": configuration}
	_, err := c.api.Post(ctx, feedPath(group, feed), body)
	return err
}

func (c *Client) RemoveFeed(ctx context.Context, group, feed string) error {
	_, err := c.api.Del(ctx, feedPath(group, feed))
	return err
}

// Run starts a feed job on the server
func (c *Client) Run(ctx context.Context, group, feed string) error {
	_, err := c.api.Post(ctx, feedPath(group, feed, "run"), nil)
	return err
}

// ToggleFeed enables or disables a feed and returns its new name
func (c *Client) ToggleFeed(ctx context.Context, group, feed string) (string, error) {
	raw, err := c.api.Put(ctx, feedPath(group, feed, "toggle"), nil)
	if err != nil {
		return "", err
	}
	return field[string](raw, "new_name")
}

// CheckRunning reports the job state of a feed
func (c *Client) CheckRunning(ctx context.Context, group, feed string) (string, error) {
	raw, err := c.api.Get(ctx, feedPath(group, feed, "check_running"), nil)
	if err != nil {
		return "", err
	}
	status, err := field[any](raw, "running_status")
	if err != nil {
		return "", err
	}
	if status == nil {
		return "", nil
	}
	return fmt.Sprint(status), nil
}

// RemoveList clears the collected item list of a feed
func (c *Client) RemoveList(ctx context.Context, group, feed string) error {
	_, err := c.api.Del(ctx, feedPath(group, feed, "list"))
	return err
}

// RemoveHTMLs deletes every cached HTML file of a feed
func (c *Client) RemoveHTMLs(ctx context.Context, group, feed string) error {
	_, err := c.api.Del(ctx, feedPath(group, feed, "htmls"))
	return err
}

func (c *Client) RemoveHTMLFile(ctx context.Context, group, feed, file string) error {
	_, err := c.api.Del(ctx, feedPath(group, feed, "htmls", file))
	return err
}

func (c *Client) RemovePublicFeed(ctx context.Context, feed string) error {
	_, err := c.api.Del(ctx, path("public_feeds", feed))
	return err
}
