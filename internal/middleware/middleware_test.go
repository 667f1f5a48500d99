package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tutoring-sessions/internal/config"
	"github.com/iliyamo/tutoring-sessions/internal/model"
	"github.com/iliyamo/tutoring-sessions/internal/utils"
)

const secret = "test-secret"

func serve(t *testing.T, authHeader string, mws ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/whoami", func(c echo.Context) error {
		a, ok := Actor(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, echo.Map{"user_id": a.UserID, "role": a.Role})
	}, mws...)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, userID string, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, string(role), 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	rec := serve(t, bearer(t, "u-1", model.RoleTutor), JWTAuth(secret))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"u-1","role":"TUTOR"}`, rec.Body.String())
}

func TestJWTAuthRejects(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1", "role": "TUTOR", "exp": time.Now().Add(-time.Minute).Unix(),
	})
	expiredTok, err := expired.SignedString([]byte(secret))
	require.NoError(t, err)

	badRole, err := utils.NewAccessToken(secret, "u-1", "OWNER", 5)
	require.NoError(t, err)
	noSub, err := utils.NewAccessToken(secret, "", "TUTOR", 5)
	require.NoError(t, err)
	otherKey, err := utils.NewAccessToken("other-secret", "u-1", "TUTOR", 5)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Basic dTpw",
		"garbage":    "Bearer nope",
		"expired":    "Bearer " + expiredTok,
		"bad role":   "Bearer " + badRole.Token,
		"no sub":     "Bearer " + noSub.Token,
		"wrong key":  "Bearer " + otherKey.Token,
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, header, JWTAuth(secret))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	staff := RequireRole(model.RoleAdmin, model.RoleManager)

	rec := serve(t, bearer(t, "u-1", model.RoleManager), JWTAuth(secret), staff)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, bearer(t, "u-1", model.RoleStudent), JWTAuth(secret), staff)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, "", staff)
	assert.Equal(t, http.StatusForbidden, rec.Code, "no role at all")
}

func TestDisabledRedisMiddlewarePassesThrough(t *testing.T) {
	limit := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, nil)
	cache := NewRedisCache(config.CacheConfig{Enabled: true}, nil)
	invalidate := InvalidateOnSuccess(config.CacheConfig{Enabled: true}, nil)

	for i := 0; i < 3; i++ {
		rec := serve(t, bearer(t, "u-1", model.RoleStudent), JWTAuth(secret), limit, cache, invalidate)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/s-1/join", nil)
	req.Header.Set("X-Real-IP", "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/sessions/:id/join")
	c.Set(CtxUserID, "u-1")

	assert.Equal(t, "rl:user:u-1:route:POST /v1/sessions/:id/join",
		rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}, c))
	assert.Equal(t, "rl:ip:10.0.0.7", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}, c))
	assert.Equal(t, "rl:ip:10.0.0.7:user:u-1:route:POST /v1/sessions/:id/join",
		rateKey(config.RateLimitConfig{Prefix: "rl"}, c))
}
