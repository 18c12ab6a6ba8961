package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/utils"
)

// RoleCookie carries the space-joined role labels for the front end. It is
// informational only.
const RoleCookie = "role"

// cookie builds a session cookie with the configured attributes. Setting
// and clearing both go through here so the browser matches the pair.
func (h *AccountHandler) cookie(name, value string, expires time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.Cookies.Path,
		Domain:   h.Cookies.Domain,
		Secure:   h.Cookies.Secure,
		HttpOnly: h.Cookies.HTTPOnly,
		SameSite: h.Cookies.SameSite,
		Expires:  expires,
		MaxAge:   maxAge,
	}
}

func (h *AccountHandler) setSessionCookies(c echo.Context, tok utils.SessionToken, u model.User) {
	maxAge := int(time.Until(tok.Exp).Seconds())
	c.SetCookie(h.cookie(middleware.TokenCookie, tok.Token, tok.Exp, maxAge))
	c.SetCookie(h.cookie(RoleCookie, model.RoleString(u.Roles), tok.Exp, maxAge))
}

func (h *AccountHandler) clearSessionCookies(c echo.Context) {
	c.SetCookie(h.cookie(middleware.TokenCookie, "", time.Unix(0, 0), -1))
	c.SetCookie(h.cookie(RoleCookie, "", time.Unix(0, 0), -1))
}
