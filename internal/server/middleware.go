package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const authUserKey = "auth_user_id"

// authOptional extracts the user id from a Bearer token when one is present.
// Requests without (or with invalid) tokens proceed unauthenticated; route
// handlers prefer the authenticated identity over client-supplied ids.
func (s *Server) authOptional() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			if claims, err := s.tokens.Verify(strings.TrimSpace(token)); err == nil {
				c.Set(authUserKey, claims.UserID)
			}
		}
		c.Next()
	}
}

// authedUserID returns the authenticated user id for the request, or zero.
func authedUserID(c *gin.Context) uint {
	if v, ok := c.Get(authUserKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// cors allows the configured origins to call the REST API from a browser.
func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && s.origins.check(c.Request) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
