package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/procurehub/portal/internal/gateway"
	"github.com/procurehub/portal/internal/interfaces/http/dto"
)

// Session context keys
const (
	SessionTokenKey  = "session_token"
	SessionUserIDKey = "session_user_id"
)

// TokenRefresher rotates an upstream token pair from a refresh token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (gateway.TokenPair, error)
}

// CookieSettings describes how session cookies are written
type CookieSettings struct {
	Domain        string
	Path          string
	Secure        bool
	SameSite      string
	AccessName    string
	RefreshName   string
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

// SessionConfig holds configuration for the session middleware
type SessionConfig struct {
	// Refresher is required for silent token rotation
	Refresher TokenRefresher
	// Cookies controls cookie names and attributes
	Cookies CookieSettings
	// SkipPaths are paths that don't require a session
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that don't require a session
	SkipPathPrefixes []string
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultSessionConfig returns default session middleware configuration
func DefaultSessionConfig(refresher TokenRefresher, cookies CookieSettings) SessionConfig {
	return SessionConfig{
		Refresher: refresher,
		Cookies:   cookies,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
		},
		Logger: nil,
	}
}

// SessionMiddleware authenticates requests from the HTTP-only cookie
// pair. An expired or missing access token triggers one silent refresh
// through the gateway; if that fails the request is rejected with 401
// and both cookies are cleared so the browser returns to the login
// page.
func SessionMiddleware(cfg SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		accessToken, _ := c.Cookie(cfg.Cookies.AccessName)
		if accessToken != "" && !tokenExpiringSoon(accessToken) {
			bindSession(c, accessToken)
			c.Next()
			return
		}

		// Access token missing or about to expire: try one silent refresh.
		refreshToken, _ := c.Cookie(cfg.Cookies.RefreshName)
		if refreshToken == "" {
			rejectSession(c, cfg, "No session")
			return
		}

		pair, err := cfg.Refresher.Refresh(c.Request.Context(), refreshToken)
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("Session refresh failed",
					zap.Error(err),
					zap.String("path", path),
				)
			}
			if gateway.IsUnavailable(err) {
				resp := dto.NewErrorResponse(dto.ErrCodeUpstreamUnavailable, gateway.FallbackErrorMessage)
				resp.Body = gin.H{"reason": "server_unavailable"}
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, resp)
				return
			}
			rejectSession(c, cfg, "Session expired")
			return
		}

		SetSessionCookies(c, cfg.Cookies, pair)
		bindSession(c, pair.AccessToken)
		c.Next()
	}
}

// tokenExpiringSoon reports whether the access token expires within the
// next 30 seconds. The signature is not checked here; the gateway
// verifies every token, the portal only inspects exp to decide when to
// rotate.
func tokenExpiringSoon(token string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return time.Until(exp.Time) < 30*time.Second
}

// bindSession stores session data in gin context for downstream use
func bindSession(c *gin.Context, accessToken string) {
	c.Set(SessionTokenKey, accessToken)

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(accessToken, claims); err == nil {
		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			c.Set(SessionUserIDKey, sub)
		}
	}
}

// rejectSession clears both cookies and answers 401 with a redirect
// marker so the browser returns to the login page.
func rejectSession(c *gin.Context, cfg SessionConfig, message string) {
	ClearSessionCookies(c, cfg.Cookies)
	resp := dto.NewErrorResponse(dto.ErrCodeSessionExpired, message)
	resp.Body = gin.H{"redirect": "/login"}
	c.AbortWithStatusJSON(http.StatusUnauthorized, resp)
}

// SetSessionCookies writes the token pair as HTTP-only cookies
func SetSessionCookies(c *gin.Context, cookies CookieSettings, pair gateway.TokenPair) {
	writeCookie(c, cookies, cookies.AccessName, pair.AccessToken, int(cookies.AccessMaxAge.Seconds()))
	writeCookie(c, cookies, cookies.RefreshName, pair.RefreshToken, int(cookies.RefreshMaxAge.Seconds()))
}

// ClearSessionCookies expires both session cookies
func ClearSessionCookies(c *gin.Context, cookies CookieSettings) {
	writeCookie(c, cookies, cookies.AccessName, "", -1)
	writeCookie(c, cookies, cookies.RefreshName, "", -1)
}

func writeCookie(c *gin.Context, cookies CookieSettings, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cookies.Path,
		Domain:   cookies.Domain,
		MaxAge:   maxAge,
		Secure:   cookies.Secure,
		HttpOnly: true,
		SameSite: parseSameSite(cookies.SameSite),
	})
}

func parseSameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// GetSessionToken retrieves the upstream access token from gin.Context
func GetSessionToken(c *gin.Context) string {
	if token, exists := c.Get(SessionTokenKey); exists {
		if t, ok := token.(string); ok {
			return t
		}
	}
	return ""
}

// GetSessionUserID retrieves the user ID from the session in context
func GetSessionUserID(c *gin.Context) string {
	if userID, exists := c.Get(SessionUserIDKey); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}
