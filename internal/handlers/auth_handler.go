package handlers

import (
	"net/http"
	"time"

	"delivery_tracker/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth       services.AuthService
	sessionTTL time.Duration
	secure     bool
}

func NewAuthHandler(auth services.AuthService, sessionTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: auth, sessionTTL: sessionTTL, secure: secureCookies}
}

type loginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

func (h *AuthHandler) setSession(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, id, int(h.sessionTTL.Seconds()), "/", "", h.secure, true)
}

func (h *AuthHandler) DriverLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Username and password are required")
		return
	}

	sid, driver, err := h.auth.DriverLogin(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSession(c, sid)
	c.JSON(http.StatusOK, gin.H{
		"driver":   driver,
		"redirect": "/driver/",
	})
}

func (h *AuthHandler) StaffLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Username and password are required")
		return
	}

	sid, user, err := h.auth.StaffLogin(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSession(c, sid)
	c.JSON(http.StatusOK, gin.H{
		"user":     user,
		"redirect": "/staff/dashboard",
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), sessionID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", h.secure, true)
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}
