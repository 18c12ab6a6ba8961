package middleware

import "github.com/labstack/echo/v4"

// UserID returns the authenticated user's id placed in the context by
// SessionAuth.
func UserID(c echo.Context) (string, bool) {
	id, ok := c.Get(ctxUserID).(string)
	return id, ok && id != ""
}

// Roles returns the role labels carried by the verified session token.
func Roles(c echo.Context) []string {
	roles, _ := c.Get(ctxRoles).([]string)
	return roles
}

// SetIdentity stores an authenticated identity in c. Used by SessionAuth
// and by tests that exercise handlers without a token.
func SetIdentity(c echo.Context, userID string, roles []string) {
	c.Set(ctxUserID, userID)
	c.Set(ctxRoles, roles)
}
