package fakeapi

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

var (
	ErrNoSession   = errors.New("no session cookie")
	ErrBadSession  = errors.New("unknown session")
	ErrMissingCSRF = errors.New("csrf token missing")
	ErrBadCSRF     = errors.New("csrf token mismatch")
)

// Recorded is a request as the server received it
type Recorded struct {
	Method  string
	Path    string
	Query   url.Values
	Header  http.Header
	Cookies map[string]string
	Body    []byte
}

func (s *Server) recordingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		cookies := make(map[string]string)
		for _, cookie := range c.Request.Cookies() {
			cookies[cookie.Name] = cookie.Value
		}

		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:  c.Request.Method,
			Path:    c.Request.URL.Path,
			Query:   c.Request.URL.Query(),
			Header:  c.Request.Header.Clone(),
			Cookies: cookies,
			Body:    body,
		})
		s.mu.Unlock()

		c.Next()
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", c.GetHeader("X-Request-ID")).
			Msg("HTTP request")
	}
}

func (s *Server) overrideMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		resp, ok := s.overrides[c.Request.Method+" "+c.Request.URL.Path]
		s.mu.Unlock()
		if !ok {
			c.Next()
			return
		}

		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}

		status := resp.Status
		if status == 0 {
			status = http.StatusOK
		}
		switch body := resp.Body.(type) {
		case nil:
			c.Status(status)
		case string:
			c.Data(status, "text/plain; charset=utf-8", []byte(body))
		default:
			c.JSON(status, body)
		}
		c.Abort()
	}
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Debug().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"detail": message})
	c.Abort()
}

func setSession(c *gin.Context, id string, sess userSession) {
	c.Set("session_id", id)
	c.Set("session", sess)
}

func getSession(c *gin.Context) (userSession, bool) {
	v, ok := c.Get("session")
	if !ok {
		return userSession{}, false
	}
	sess, ok := v.(userSession)
	return sess, ok
}

// lookupSession resolves the session cookie of the request
func (s *Server) lookupSession(c *gin.Context) (string, userSession, error) {
	id, err := c.Cookie(SessionCookieName)
	if err != nil || id == "" {
		return "", userSession{}, ErrNoSession
	}

	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return "", userSession{}, ErrBadSession
	}
	return id, sess, nil
}

func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, sess, err := s.lookupSession(c)
		if err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, err, "Not authenticated")
			return
		}
		setSession(c, id, sess)
		c.Next()
	}
}

func (s *Server) csrfMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		sess, ok := getSession(c)
		if !ok {
			respondWithError(c, s.logger, http.StatusUnauthorized, ErrNoSession, "Not authenticated")
			return
		}

		token := c.GetHeader(CSRFHeaderName)
		if token == "" {
			respondWithError(c, s.logger, http.StatusForbidden, ErrMissingCSRF, "CSRF token missing")
			return
		}
		if token != sess.csrf {
			respondWithError(c, s.logger, http.StatusForbidden, ErrBadCSRF, "CSRF token invalid")
			return
		}
		c.Next()
	}
}

// Requests returns every request received so far
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// RequestsTo filters recorded requests by method and path
func (s *Server) RequestsTo(method, path string) []Recorded {
	var out []Recorded
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}
