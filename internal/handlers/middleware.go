package handlers

import (
	"net/http"
	"time"

	"delivery_tracker/internal/models"
	"delivery_tracker/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request, plus any errors handlers attached.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			logger.Error("request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		logger.Info("request", fields...)
	}
}

// RequireDriver admits sessions that belong to a driver profile.
func RequireDriver(auth services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := auth.Session(c.Request.Context(), sessionID(c))
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		if session.DriverID == 0 {
			respondError(c, services.ErrNotDriver)
			c.Abort()
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

// RequireStaff admits admin and staff sessions.
func RequireStaff(auth services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := auth.Session(c.Request.Context(), sessionID(c))
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		if session.Role != string(models.RoleAdmin) && session.Role != string(models.RoleStaff) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}
