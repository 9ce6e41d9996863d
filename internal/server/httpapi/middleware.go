package httpapi

import (
	"crypto/subtle"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/pagenotes/internal/common"
	"github.com/dmitrijs2005/pagenotes/internal/server/auth"
	"github.com/gin-gonic/gin"
)

const (
	userIDKey = "pagenotes_user_id"

	// ProviderKeyHeader carries the shared secret of the identity provider
	// bridge on /internal routes.
	ProviderKeyHeader = "X-Provider-Key"
)

// observe records request metrics per matched route.
func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	d := time.Since(start)
	s.metrics.ObserveHTTP(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), d)
	s.logger.Debug(c.Request.Context(), "request", "method", c.Request.Method, "route", route,
		"status", c.Writer.Status(), "duration", d)
}

// authenticate resolves the bearer token into a user id. With required
// unset, requests without an Authorization header pass through anonymously.
func (s *Server) authenticate(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" && !required {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			s.abort(c, common.ErrorUnauthorized)
			return
		}

		userID, err := auth.GetUserIDFromToken(strings.TrimSpace(token), s.jwtSecret)
		if err != nil {
			s.abort(c, err)
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func (s *Server) requireAdmin(c *gin.Context) {
	ok, err := s.users.IsAdmin(c.Request.Context(), currentUserID(c))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			err = common.ErrorUnauthorized
		}
		s.abort(c, err)
		return
	}
	if !ok {
		s.abort(c, common.ErrorForbidden)
		return
	}
	c.Next()
}

func (s *Server) requireProviderKey(c *gin.Context) {
	key := c.GetHeader(ProviderKeyHeader)
	if key == "" || subtle.ConstantTimeCompare([]byte(key), s.jwtSecret) != 1 {
		s.abort(c, common.ErrorUnauthorized)
		return
	}
	c.Next()
}

// currentUserID returns the authenticated user id, or "" for anonymous
// requests.
func currentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
