package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/streamify-app/backend/internal/apperror"
	"github.com/streamify-app/backend/internal/models"
)

// CookieName is the session cookie carrying the signed token.
const CookieName = "jwt"

const userKey = "user"

// SessionValidator resolves a session token to its user.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*models.User, error)
}

// JWTAuthMiddleware validates the session on every request and stores the
// resolved user in the context. The cookie is preferred; a bearer
// Authorization header is accepted for non-browser clients.
func JWTAuthMiddleware(sessions SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := sessions.ValidateSession(c.Request().Context(), tokenFrom(c))
			if err != nil {
				return err
			}
			c.Set(userKey, user)
			return next(c)
		}
	}
}

func tokenFrom(c echo.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	parts := strings.SplitN(c.Request().Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// CurrentUser returns the user stored by JWTAuthMiddleware.
func CurrentUser(c echo.Context) (*models.User, error) {
	user, ok := c.Get(userKey).(*models.User)
	if !ok || user == nil {
		return nil, apperror.Auth("Unauthorized - No token provided")
	}
	return user, nil
}
