package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"delivery_tracker/internal/redis"
	"delivery_tracker/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	SessionCookie = "session_id"
	SessionHeader = "X-Session-ID"

	sessionKey = "session"
	dateLayout = "2006-01-02"
)

// respondError maps service errors onto HTTP responses. Unexpected errors
// are attached to the context for the request logger.
func respondError(c *gin.Context, err error) {
	var invalid *services.InvalidInputError
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Error(), "field": invalid.Field})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	case errors.Is(err, services.ErrNotDriver):
		c.JSON(http.StatusForbidden, gin.H{
			"error":    "Your account is not linked to a driver profile",
			"redirect": "/driver/login",
		})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// queryUint reads an optional positive integer query parameter.
func queryUint(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(v), true
}

// queryDate reads an optional YYYY-MM-DD query parameter, trying each name
// in turn.
func queryDate(c *gin.Context, names ...string) (*time.Time, bool) {
	for _, name := range names {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			continue
		}
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			badRequest(c, "Invalid date for "+name+", expected YYYY-MM-DD")
			return nil, false
		}
		return &t, true
	}
	return nil, true
}

func currentSession(c *gin.Context) *redis.SessionData {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*redis.SessionData); ok {
			return s
		}
	}
	return nil
}

func sessionID(c *gin.Context) string {
	if id, err := c.Cookie(SessionCookie); err == nil && id != "" {
		return id
	}
	return c.GetHeader(SessionHeader)
}
