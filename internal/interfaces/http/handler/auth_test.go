package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/procurehub/portal/internal/gateway"
	"github.com/procurehub/portal/internal/interfaces/http/dto"
	"github.com/procurehub/portal/internal/interfaces/http/middleware"
)

func authCookieSettings() middleware.CookieSettings {
	return middleware.CookieSettings{
		Path:          "/",
		SameSite:      "lax",
		AccessName:    "portal_access_token",
		RefreshName:   "portal_refresh_token",
		AccessMaxAge:  10 * time.Minute,
		RefreshMaxAge: 720 * time.Hour,
	}
}

func newAuthRouter(t *testing.T, upstream http.HandlerFunc) *gin.Engine {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	h := NewAuthHandler(gateway.New(srv.URL, 2*time.Second), authCookieSettings(), zap.NewNop())

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/auth/login", h.Login)
	r.POST("/api/v1/auth/refresh", h.Refresh)
	r.POST("/api/v1/auth/logout", h.Logout)
	r.GET("/api/v1/auth/session", h.Session)
	return r
}

func setCookiesByName(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, ck := range w.Result().Cookies() {
		out[ck.Name] = ck
	}
	return out
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("success sets both cookies and returns the profile only", func(t *testing.T) {
		r := newAuthRouter(t, func(w http.ResponseWriter, req *http.Request) {
			require.Equal(t, "/auth/login", req.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]any{"body": map[string]any{
				"token": map[string]any{
					"accessToken":  "at-1",
					"refreshToken": "rt-1",
				},
				"user": map[string]any{
					"id":       "user-1",
					"username": "pat",
				},
			}})
		})

		w, env := doJSON(r, http.MethodPost, "/api/v1/auth/login", gin.H{
			"username": "pat",
			"password": "secret",
		})

		require.Equal(t, http.StatusOK, w.Code)

		var user gateway.AuthUser
		require.NoError(t, json.Unmarshal(env.Body, &user))
		assert.Equal(t, "user-1", user.ID)
		// Tokens never appear in the response body.
		assert.NotContains(t, w.Body.String(), "at-1")

		set := setCookiesByName(w)
		require.Contains(t, set, "portal_access_token")
		assert.Equal(t, "at-1", set["portal_access_token"].Value)
		assert.True(t, set["portal_access_token"].HttpOnly)
		assert.Equal(t, "rt-1", set["portal_refresh_token"].Value)
	})

	t.Run("bad credentials answer 401 with a fixed message", func(t *testing.T) {
		r := newAuthRouter(t, func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"message": "bad creds"})
		})

		w, env := doJSON(r, http.MethodPost, "/api/v1/auth/login", gin.H{
			"username": "pat",
			"password": "wrong",
		})

		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, dto.ErrCodeUnauthorized, env.Error.Code)
		assert.Equal(t, "Invalid username or password", env.Message)
	})

	t.Run("missing fields are rejected before the upstream call", func(t *testing.T) {
		called := false
		r := newAuthRouter(t, func(w http.ResponseWriter, req *http.Request) { called = true })

		w, _ := doJSON(r, http.MethodPost, "/api/v1/auth/login", gin.H{"username": "pat"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, called)
	})

	t.Run("unreachable gateway answers 503", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		h := NewAuthHandler(gateway.New(srv.URL, time.Second), authCookieSettings(), zap.NewNop())
		gin.SetMode(gin.TestMode)
		r := gin.New()
		r.POST("/api/v1/auth/login", h.Login)

		w, env := doJSON(r, http.MethodPost, "/api/v1/auth/login", gin.H{
			"username": "pat",
			"password": "secret",
		})

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, dto.ErrCodeUpstreamUnavailable, env.Error.Code)
		assert.Equal(t, gateway.FallbackErrorMessage, env.Message)
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	t.Run("rotates the pair from the refresh cookie", func(t *testing.T) {
		r := newAuthRouter(t, func(w http.ResponseWriter, req *http.Request) {
			var body map[string]string
			_ = json.NewDecoder(req.Body).Decode(&body)
			assert.Equal(t, "rt-1", body["refreshToken"])
			_ = json.NewEncoder(w).Encode(map[string]any{"body": map[string]any{
				"accessToken":  "at-2",
				"refreshToken": "rt-2",
			}})
		})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: "portal_refresh_token", Value: "rt-1"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusNoContent, w.Code)
		set := setCookiesByName(w)
		assert.Equal(t, "at-2", set["portal_access_token"].Value)
		assert.Equal(t, "rt-2", set["portal_refresh_token"].Value)
	})

	t.Run("missing refresh cookie clears the session", func(t *testing.T) {
		r := newAuthRouter(t, func(w http.ResponseWriter, req *http.Request) {
			t.Error("upstream must not be called")
		})

		w, env := doJSON(r, http.MethodPost, "/api/v1/auth/refresh", nil)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, dto.ErrCodeSessionExpired, env.Error.Code)
		set := setCookiesByName(w)
		assert.Negative(t, set["portal_access_token"].MaxAge)
	})

	t.Run("rejected refresh token clears the session", func(t *testing.T) {
		r := newAuthRouter(t, func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"message": "revoked"})
		})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: "portal_refresh_token", Value: "rt-dead"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		set := setCookiesByName(w)
		assert.Empty(t, set["portal_refresh_token"].Value)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Run("clears cookies even when the upstream call fails", func(t *testing.T) {
		r := newAuthRouter(t, func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		w, _ := doJSON(r, http.MethodPost, "/api/v1/auth/logout", nil)

		require.Equal(t, http.StatusNoContent, w.Code)
		set := setCookiesByName(w)
		require.Contains(t, set, "portal_access_token")
		assert.Negative(t, set["portal_access_token"].MaxAge)
	})
}

func TestAuthHandler_Session(t *testing.T) {
	h := NewAuthHandler(gateway.New("http://gateway.invalid", time.Second), authCookieSettings(), zap.NewNop())
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.SessionUserIDKey, "user-1")
	})
	r.GET("/api/v1/auth/session", h.Session)

	w, env := doJSON(r, http.MethodGet, "/api/v1/auth/session", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(env.Body, &body))
	assert.Equal(t, "user-1", body["userId"])
}
