package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/procurehub/portal/internal/gateway"
	"github.com/procurehub/portal/internal/interfaces/http/dto"
	"github.com/procurehub/portal/internal/interfaces/http/middleware"
)

// AuthHandler proxies the login flow to the gateway and manages the
// HTTP-only cookie pair. Tokens never reach browser JavaScript.
type AuthHandler struct {
	BaseHandler
	gw      *gateway.Client
	cookies middleware.CookieSettings
	logger  *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(gw *gateway.Client, cookies middleware.CookieSettings, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{gw: gw, cookies: cookies, logger: logger}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates against the gateway and sets the session cookies.
// The response body carries only the user profile.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.gw.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			h.Unauthorized(c, "Invalid username or password")
			return
		}
		h.HandleError(c, err)
		return
	}

	middleware.SetSessionCookies(c, h.cookies, result.Token)
	h.logger.Info("user logged in", zap.String("user_id", result.User.ID))
	h.Success(c, result.User)
}

// Refresh rotates the cookie pair using the refresh cookie
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(h.cookies.RefreshName)
	if err != nil || refreshToken == "" {
		middleware.ClearSessionCookies(c, h.cookies)
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeSessionExpired, "No session")
		return
	}

	pair, err := h.gw.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		if gateway.IsUnavailable(err) {
			h.HandleError(c, err)
			return
		}
		middleware.ClearSessionCookies(c, h.cookies)
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeSessionExpired, "Session expired")
		return
	}

	middleware.SetSessionCookies(c, h.cookies, pair)
	h.NoContent(c)
}

// Logout invalidates the session upstream and clears both cookies. A
// failed upstream call still clears the cookies.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := middleware.GetSessionToken(c)
	if token != "" {
		if err := h.gw.Logout(c.Request.Context(), token); err != nil {
			h.logger.Warn("upstream logout failed", zap.Error(err))
		}
	}
	middleware.ClearSessionCookies(c, h.cookies)
	h.NoContent(c)
}

// Session reports the current session's user id. The router mounts it
// behind the session middleware, so reaching it implies a live session.
func (h *AuthHandler) Session(c *gin.Context) {
	h.Success(c, gin.H{"userId": middleware.GetSessionUserID(c)})
}
