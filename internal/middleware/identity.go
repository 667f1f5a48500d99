package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tutoring-sessions/internal/model"
)

// Actor returns the caller resolved by JWTAuth.  ok is false on routes
// that JWTAuth does not guard.
func Actor(c echo.Context) (model.Actor, bool) {
	uid, _ := c.Get(CtxUserID).(string)
	role, _ := c.Get(CtxRole).(string)
	if uid == "" {
		return model.Actor{}, false
	}
	return model.Actor{UserID: uid, Role: model.Role(role)}, true
}

// userID identifies the caller in rate limit and cache keys; "anon" when
// the request is unauthenticated.
func userID(c echo.Context) string {
	if a, ok := Actor(c); ok {
		return a.UserID
	}
	return "anon"
}
