package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/handler"
	"github.com/iliyamo/account-service/internal/metrics"
	"github.com/iliyamo/account-service/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// RegisterAccount registers the account routes under /v1/users. Register,
// login, logout and the OAuth callback need no session; the rest sit
// behind SessionAuth.
func RegisterAccount(e *echo.Echo, a *handler.AccountHandler, tokens middleware.TokenParser) {
	g := e.Group("/v1/users")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout)
	g.GET("/oauth/callback", a.OAuthCallback)

	auth := middleware.SessionAuth(tokens)
	g.GET("/me", a.GetUser, auth)
	g.PATCH("/details", a.AddDetails, auth)
	g.PATCH("/password", a.ChangePassword, auth)
	g.PATCH("/email-notifications", a.ToggleEmail, auth)
}
