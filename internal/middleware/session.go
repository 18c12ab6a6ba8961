package middleware // package middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/apperror"
	"github.com/iliyamo/account-service/internal/utils"
)

// TokenCookie is the cookie carrying the session token.
const TokenCookie = "token"

// Context keys set by SessionAuth.
const (
	ctxUserID = "user_id"
	ctxRoles  = "roles"
)

// TokenParser verifies a raw session token.
type TokenParser interface {
	Parse(raw string) (*utils.SessionClaims, error)
}

// SessionAuth verifies the session token from the token cookie or an
// Authorization: Bearer header and stores the subject and roles in the echo
// context. Requests without a valid token fail with 401 before reaching
// the handler. The role cookie is never consulted.
func SessionAuth(parser TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := sessionToken(c.Request())
			if raw == "" {
				return apperror.Authentication("Unauthorized request")
			}
			claims, err := parser.Parse(raw)
			if err != nil {
				return apperror.Authentication("Invalid access token")
			}
			c.Set(ctxUserID, claims.Subject)
			c.Set(ctxRoles, claims.Roles)
			return next(c)
		}
	}
}

// sessionToken prefers the cookie and falls back to a bearer header.
func sessionToken(r *http.Request) string {
	if ck, err := r.Cookie(TokenCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := r.Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
