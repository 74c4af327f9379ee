// Package middleware holds the Echo middleware: bearer-token
// authentication, role floors, Redis response caching and distributed
// rate limiting.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

const (
	userContextKey    = "auth.user"
	sessionContextKey = "auth.session"
)

// Authenticator resolves an access token into a user and session.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (model.User, model.Session, error)
}

// RequireAuth rejects requests without a valid bearer token and stores
// the resolved user and session on the request context.
func RequireAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			tok, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tok == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			u, sess, err := auth.Authenticate(c.Request().Context(), tok)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
			c.Set(userContextKey, u)
			c.Set(sessionContextKey, sess)
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user set by RequireAuth.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userContextKey).(model.User)
	return u, ok
}

// CurrentSession returns the session set by RequireAuth.
func CurrentSession(c echo.Context) (model.Session, bool) {
	s, ok := c.Get(sessionContextKey).(model.Session)
	return s, ok
}
