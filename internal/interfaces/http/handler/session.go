package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/procurehub/portal/internal/gateway"
	"github.com/procurehub/portal/internal/interfaces/http/dto"
	"github.com/procurehub/portal/internal/interfaces/http/middleware"
)

// errSessionRevoked marks an upstream 401 that survived a refresh. The
// forced-logout response is on the wire by the time it is returned.
var errSessionRevoked = errors.New("session revoked")

// SessionRecovery retries a proxied call once after a silent token
// refresh. The session middleware only rotates tokens that are near
// expiry; a token the gateway revoked early still reaches the handler
// and comes back as a 401.
type SessionRecovery struct {
	refresher middleware.TokenRefresher
	cookies   middleware.CookieSettings
}

// NewSessionRecovery creates a session recovery helper sharing the
// middleware's refresher and cookie settings.
func NewSessionRecovery(refresher middleware.TokenRefresher, cookies middleware.CookieSettings) *SessionRecovery {
	return &SessionRecovery{refresher: refresher, cookies: cookies}
}

// Run executes fn with the session token. On an upstream 401 it
// refreshes through the refresh cookie, rewrites both cookies and runs
// fn once more with the new access token. If the refresh is rejected or
// the retry still comes back 401, both cookies are cleared and the
// session-expired envelope with the login redirect is written; the
// returned error then matches errSessionRevoked and must not be mapped
// to a second response.
func (s *SessionRecovery) Run(c *gin.Context, fn func(token string) error) error {
	err := fn(middleware.GetSessionToken(c))
	if s == nil || !gateway.IsUnauthorized(err) {
		return err
	}

	refreshToken, _ := c.Cookie(s.cookies.RefreshName)
	if refreshToken == "" {
		return s.forceLogout(c)
	}

	pair, rerr := s.refresher.Refresh(c.Request.Context(), refreshToken)
	if rerr != nil {
		if gateway.IsUnavailable(rerr) {
			return rerr
		}
		return s.forceLogout(c)
	}

	middleware.SetSessionCookies(c, s.cookies, pair)
	c.Set(middleware.SessionTokenKey, pair.AccessToken)

	err = fn(pair.AccessToken)
	if gateway.IsUnauthorized(err) {
		return s.forceLogout(c)
	}
	return err
}

// forceLogout mirrors the middleware rejection: both cookies cleared,
// 401 with the redirect marker so the browser returns to login.
func (s *SessionRecovery) forceLogout(c *gin.Context) error {
	middleware.ClearSessionCookies(c, s.cookies)
	resp := dto.NewErrorResponse(dto.ErrCodeSessionExpired, "Session expired")
	resp.Body = gin.H{"redirect": "/login"}
	c.AbortWithStatusJSON(http.StatusUnauthorized, resp)
	return errSessionRevoked
}
