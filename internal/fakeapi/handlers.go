package fakeapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/terzeron/feedmaker-console/internal/gateway"
)

type LoginRequest struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token" binding:"required"`
}

func success(c *gin.Context, fields gin.H) {
	body := gin.H{"status": gateway.StatusSuccess}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func failure(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"status": gateway.StatusFailure, "message": message})
}

func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	s.mu.Lock()
	account, ok := s.accounts[req.AccessToken]
	s.mu.Unlock()
	if !ok {
		respondWithError(c, s.logger, http.StatusUnauthorized, ErrBadSession, "Invalid access token")
		return
	}

	id := ulid.Make().String()
	csrf := ulid.Make().String()

	s.mu.Lock()
	s.sessions[id] = userSession{account: account, csrf: csrf}
	s.mu.Unlock()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, id, 3600, "/", "", false, true)
	c.SetCookie(CSRFCookieName, csrf, 3600, "/", "", false, false)

	success(c, gin.H{
		"message": "Login successful",
		"user":    gin.H{"email": account.Email, "name": account.Name},
	})
}

func (s *Server) logout(c *gin.Context) {
	if id, _, err := s.lookupSession(c); err == nil {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
	}

	c.SetCookie(SessionCookieName, "", -1, "/", "", false, true)
	c.SetCookie(CSRFCookieName, "", -1, "/", "", false, false)
	success(c, gin.H{"message": "Logged out"})
}

func (s *Server) me(c *gin.Context) {
	_, sess, err := s.lookupSession(c)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"is_authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"is_authenticated": true,
		"email":            sess.account.Email,
		"name":             sess.account.Name,
	})
}

func (s *Server) getExecResult(c *gin.Context) {
	s.mu.Lock()
	result := s.execResult
	s.mu.Unlock()

	if result == "" {
		failure(c, "can't find such file 'run.log'")
		return
	}
	success(c, gin.H{"exec_result": result})
}

func (s *Server) getProblems(c *gin.Context) {
	s.mu.Lock()
	result, ok := s.problems[c.Param("type")]
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Problem type %s not found", c.Param("type"))})
		return
	}
	success(c, gin.H{"result": result})
}

func (s *Server) search(c *gin.Context) {
	keywords := strings.Fields(c.Param("keyword"))

	s.mu.Lock()
	var result []gin.H
	for group, feeds := range s.groups {
		for _, f := range feeds {
			for _, k := range keywords {
				if strings.Contains(f.Name, k) || strings.Contains(f.Title, k) || strings.Contains(group, k) {
					result = append(result, gin.H{"name": f.Name, "title": f.Title, "group_name": group})
					break
				}
			}
		}
	}
	s.mu.Unlock()

	if len(result) == 0 {
		failure(c, fmt.Sprintf("can't search feed or group matching '%s'", c.Param("keyword")))
		return
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i]["title"].(string) < result[j]["title"].(string)
	})
	success(c, gin.H{"feeds": result})
}

func (s *Server) searchSite(c *gin.Context) {
	keyword := c.Param("keyword")

	s.mu.Lock()
	var result [][]string
	for group, cfg := range s.siteConfigs {
		if strings.Contains(group, keyword) {
			result = append(result, []string{group, fmt.Sprint(cfg["url"])})
		}
	}
	s.mu.Unlock()

	if len(result) == 0 {
		failure(c, fmt.Sprintf("can't search site matching '%s'", keyword))
		return
	}
	sort.Slice(result, func(i, j int) bool { return result[i][0] < result[j][0] })
	success(c, gin.H{"search_result_list": result})
}

func (s *Server) removePublicFeed(c *gin.Context) {
	s.mu.Lock()
	delete(s.publicFeeds, c.Param("feed"))
	s.mu.Unlock()
	success(c, nil)
}

func (s *Server) getGroups(c *gin.Context) {
	s.mu.Lock()
	groups := make([]gin.H, 0, len(s.groups))
	for name, feeds := range s.groups {
		groups = append(groups, gin.H{"name": name, "num_feeds": len(feeds)})
	}
	s.mu.Unlock()

	if len(groups) == 0 {
		failure(c, "no group list")
		return
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i]["name"].(string) < groups[j]["name"].(string)
	})
	success(c, gin.H{"groups": groups})
}

func (s *Server) removeGroup(c *gin.Context) {
	group := c.Param("group")

	s.mu.Lock()
	_, ok := s.groups[group]
	delete(s.groups, group)
	delete(s.siteConfigs, group)
	s.mu.Unlock()

	if !ok {
		failure(c, fmt.Sprintf("can't remove group '%s'", group))
		return
	}
	success(c, gin.H{"feeds": []string{}})
}

// toggled flips the leading underscore that marks a disabled name
func toggled(name string) string {
	if strings.HasPrefix(name, "_") {
		return strings.TrimPrefix(name, "_")
	}
	return "_" + name
}

func (s *Server) toggleGroup(c *gin.Context) {
	group := c.Param("group")
	newName := toggled(group)

	s.mu.Lock()
	feeds, ok := s.groups[group]
	if ok {
		delete(s.groups, group)
		s.groups[newName] = feeds
		if cfg, ok := s.siteConfigs[group]; ok {
			delete(s.siteConfigs, group)
			s.siteConfigs[newName] = cfg
		}
	}
	s.mu.Unlock()

	if !ok {
		failure(c, fmt.Sprintf("can't toggle group '%s'", group))
		return
	}
	success(c, gin.H{"new_name": newName})
}

func (s *Server) getSiteConfig(c *gin.Context) {
	group := c.Param("group")

	s.mu.Lock()
	cfg, ok := s.siteConfigs[group]
	s.mu.Unlock()

	if !ok {
		failure(c, fmt.Sprintf("no feed list in group '%s'", group))
		return
	}
	success(c, gin.H{"configuration": cfg})
}

func (s *Server) saveSiteConfig(c *gin.Context) {
	var cfg map[string]any
	if err := c.ShouldBindJSON(&cfg); err != nil {
		respondWithError(c, s.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	s.mu.Lock()
	s.siteConfigs[c.Param("group")] = cfg
	s.mu.Unlock()
	success(c, nil)
}

func (s *Server) getFeeds(c *gin.Context) {
	group := c.Param("group")

	s.mu.Lock()
	feeds, ok := s.groups[group]
	result := make([]gin.H, 0, len(feeds))
	for _, f := range feeds {
		result = append(result, gin.H{"name": f.Name, "title": f.Title})
	}
	s.mu.Unlock()

	if !ok {
		failure(c, fmt.Sprintf("no feed list in group '%s'", group))
		return
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i]["title"].(string) < result[j]["title"].(string)
	})
	success(c, gin.H{"feeds": result})
}

// withFeed runs fn on the named feed under the lock
func (s *Server) withFeed(c *gin.Context, fn func(f *FeedState)) bool {
	group, feed := c.Param("group"), c.Param("feed")

	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.groups[group][feed]
	if !ok {
		return false
	}
	fn(f)
	return true
}

func (s *Server) getFeedInfo(c *gin.Context) {
	var info gin.H
	ok := s.withFeed(c, func(f *FeedState) {
		info = gin.H{
			"feed_name":        f.Name,
			"feed_title":       f.Title,
			"group_name":       c.Param("group"),
			"config":           f.Config,
			"is_active":        f.Active,
			"collection_info":  gin.H{"collect_date": nil},
			"public_feed_info": gin.H{"num_items": f.Items},
		}
	})
	if !ok {
		failure(c, fmt.Sprintf("can't get feed info of '%s/%s'", c.Param("group"), c.Param("feed")))
		return
	}
	success(c, gin.H{"feed_info": info})
}

func (s *Server) saveFeed(c *gin.Context) {
	var body struct {
		Configuration map[string]any `json:"configuration"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Configuration == nil {
		failure(c, "invalid configuration format (no 'configuration')")
		return
	}
	for _, section := range []string{"collection", "extraction", "rss"} {
		if _, ok := body.Configuration[section]; !ok {
			failure(c, "invalid configuration format (no 'collection' or 'extraction' or 'rss')")
			return
		}
	}

	group, feed := c.Param("group"), c.Param("feed")
	s.mu.Lock()
	if _, ok := s.groups[group]; !ok {
		s.groups[group] = make(map[string]*FeedState)
	}
	f, ok := s.groups[group][feed]
	if !ok {
		f = &FeedState{Name: feed, Title: feed, Active: true}
		s.groups[group][feed] = f
	}
	f.Config = body.Configuration
	s.mu.Unlock()

	success(c, nil)
}

func (s *Server) removeFeed(c *gin.Context) {
	group, feed := c.Param("group"), c.Param("feed")

	s.mu.Lock()
	_, ok := s.groups[group][feed]
	if ok {
		delete(s.groups[group], feed)
	}
	s.mu.Unlock()

	if !ok {
		failure(c, fmt.Sprintf("can't remove feed '%s/%s'", group, feed))
		return
	}
	success(c, nil)
}

func (s *Server) runFeed(c *gin.Context) {
	ok := s.withFeed(c, func(f *FeedState) {
		f.Running = true
	})
	if !ok {
		failure(c, fmt.Sprintf("can't run feed '%s/%s'", c.Param("group"), c.Param("feed")))
		return
	}
	success(c, nil)
}

func (s *Server) toggleFeed(c *gin.Context) {
	var newName string
	ok := s.withFeed(c, func(f *FeedState) {
		f.Active = !f.Active
		newName = toggled(f.Name)
	})
	if !ok {
		failure(c, fmt.Sprintf("can't toggle feed '%s'", c.Param("feed")))
		return
	}
	success(c, gin.H{"new_name": newName})
}

func (s *Server) checkRunning(c *gin.Context) {
	var running bool
	ok := s.withFeed(c, func(f *FeedState) {
		running = f.Running
	})
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": gateway.StatusFailure, "running_status": "error"})
		return
	}
	success(c, gin.H{"running_status": running})
}

func (s *Server) removeList(c *gin.Context) {
	s.withFeed(c, func(f *FeedState) {
		f.Items = 0
	})
	success(c, nil)
}

func (s *Server) removeHTMLs(c *gin.Context) {
	s.withFeed(c, func(f *FeedState) {
		f.HTMLs = nil
	})
	success(c, nil)
}

func (s *Server) removeHTMLFile(c *gin.Context) {
	file := c.Param("file")
	s.withFeed(c, func(f *FeedState) {
		kept := f.HTMLs[:0]
		for _, h := range f.HTMLs {
			if h != file {
				kept = append(kept, h)
			}
		}
		f.HTMLs = kept
	})
	success(c, nil)
}
