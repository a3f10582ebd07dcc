package router

import (
	"net/http"

	"smart-email/internal/handler"
	"smart-email/internal/middleware"
	"smart-email/internal/tools"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(
	e *echo.Echo,
	authHandler *handler.AuthHandler,
	emailHandler *handler.EmailHandler,
	toolHandler *handler.ToolHandler,
	mcpSecret string,
) {
	// Public routes
	e.GET("/auth/:provider", authHandler.BeginAuthHandler)
	e.GET("/auth/:provider/callback", authHandler.CallbackHandler)
	e.GET("/auth/logout", authHandler.LogoutHandler)

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"name":    tools.AppName,
			"version": tools.AppVersion,
			"login":   "/auth/google",
		})
	})

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Tool dispatch has its own bearer gate instead of a session
	e.POST("/api/mcp/call", toolHandler.Call, middleware.BearerTokenGate(mcpSecret))
	e.GET("/api/mcp/test", toolHandler.Test)

	// Protected API routes
	protected := e.Group("/api")
	protected.Use(middleware.AuthMiddleware(authHandler))

	protected.GET("/emails", emailHandler.GetInbox)
	protected.GET("/emails/stored", emailHandler.GetStored)
	protected.POST("/emails/:id/archive", emailHandler.ArchiveEmail)
}
