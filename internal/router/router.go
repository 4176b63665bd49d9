// Package router builds the echo instance and registers every route.
package router

import (
	"net/http"

	"github.com/deppfellow/spoon/internal/handler"
	"github.com/deppfellow/spoon/internal/middleware"
	"github.com/deppfellow/spoon/internal/server"
	"github.com/labstack/echo/v4"
)

func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	// Order matters: the request id feeds tracing and the request logger,
	// and the context enhancer needs both.
	router.Use(
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
	)

	registerSystemRoutes(router, h)

	api := router.Group("/api/v1", middlewares.RateLimit.Limit())
	registerSpoonRoutes(api, h, middlewares)

	router.RouteNotFound("/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound)
	})

	return router
}
