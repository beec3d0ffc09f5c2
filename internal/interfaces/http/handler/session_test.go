package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/procurehub/portal/internal/application/order"
	"github.com/procurehub/portal/internal/domain/draft"
	"github.com/procurehub/portal/internal/gateway"
	"github.com/procurehub/portal/internal/interfaces/http/dto"
	"github.com/procurehub/portal/internal/interfaces/http/middleware"
)

type stubRefresher struct {
	calls int
	pair  gateway.TokenPair
	err   error
}

func (s *stubRefresher) Refresh(_ context.Context, _ string) (gateway.TokenPair, error) {
	s.calls++
	if s.err != nil {
		return gateway.TokenPair{}, s.err
	}
	return s.pair, nil
}

// newRevokedRouter wires a Get route against an upstream that rejects
// every token except accepted. The session middleware is simulated with
// a token the gateway has revoked but that is nowhere near expiry.
func newRevokedRouter(t *testing.T, accepted string, ref *stubRefresher, hits *int) *gin.Engine {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		if r.Header.Get("Authorization") != "Bearer "+accepted {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"message": "Token revoked"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"body": baseRecord("ord-1")})
	}))
	t.Cleanup(srv.Close)

	gw := gateway.New(srv.URL, 2*time.Second)
	svc := order.NewService(gw, zap.NewNop())
	h := NewPurchaseOrderHandler(svc, gw, NewSessionRecovery(ref, authCookieSettings()), zap.NewNop())

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.SessionTokenKey, "revoked")
	})
	r.GET("/api/v1/purchase-orders/:id", h.Get)
	return r
}

func getWithRefreshCookie(r *gin.Engine, withCookie bool) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/purchase-orders/ord-1", nil)
	if withCookie {
		req.AddCookie(&http.Cookie{Name: authCookieSettings().RefreshName, Value: "refresh-1"})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestPurchaseOrderHandler_RevokedToken(t *testing.T) {
	t.Run("one refresh recovers the request", func(t *testing.T) {
		hits := 0
		ref := &stubRefresher{pair: gateway.TokenPair{AccessToken: "fresh", RefreshToken: "refresh-2"}}
		r := newRevokedRouter(t, "fresh", ref, &hits)

		w, env := getWithRefreshCookie(r, true)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, ref.calls)
		assert.Equal(t, 2, hits)

		var d draft.Draft
		require.NoError(t, json.Unmarshal(env.Body, &d))
		assert.Equal(t, "ord-1", d.ID)

		set := setCookiesByName(w)
		require.Contains(t, set, authCookieSettings().AccessName)
		assert.Equal(t, "fresh", set[authCookieSettings().AccessName].Value)
		assert.Equal(t, "refresh-2", set[authCookieSettings().RefreshName].Value)
	})

	t.Run("second 401 forces logout with the redirect marker", func(t *testing.T) {
		hits := 0
		ref := &stubRefresher{pair: gateway.TokenPair{AccessToken: "still-revoked", RefreshToken: "refresh-2"}}
		r := newRevokedRouter(t, "never-issued", ref, &hits)

		w, env := getWithRefreshCookie(r, true)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, 1, ref.calls)
		assert.Equal(t, 2, hits)

		require.NotNil(t, env.Error)
		assert.Equal(t, dto.ErrCodeSessionExpired, env.Error.Code)

		var body struct {
			Redirect string `json:"redirect"`
		}
		require.NoError(t, json.Unmarshal(env.Body, &body))
		assert.Equal(t, "/login", body.Redirect)

		set := setCookiesByName(w)
		require.Contains(t, set, authCookieSettings().AccessName)
		assert.Less(t, set[authCookieSettings().AccessName].MaxAge, 0)
		assert.Less(t, set[authCookieSettings().RefreshName].MaxAge, 0)
	})

	t.Run("rejected refresh forces logout without a retry", func(t *testing.T) {
		hits := 0
		ref := &stubRefresher{err: &gateway.APIError{Status: http.StatusUnauthorized, Message: "Refresh revoked"}}
		r := newRevokedRouter(t, "never-issued", ref, &hits)

		w, env := getWithRefreshCookie(r, true)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, 1, ref.calls)
		assert.Equal(t, 1, hits)
		require.NotNil(t, env.Error)
		assert.Equal(t, dto.ErrCodeSessionExpired, env.Error.Code)
	})

	t.Run("missing refresh cookie forces logout immediately", func(t *testing.T) {
		hits := 0
		ref := &stubRefresher{}
		r := newRevokedRouter(t, "never-issued", ref, &hits)

		w, env := getWithRefreshCookie(r, false)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Zero(t, ref.calls)
		assert.Equal(t, 1, hits)
		require.NotNil(t, env.Error)
		assert.Equal(t, dto.ErrCodeSessionExpired, env.Error.Code)
	})
}
