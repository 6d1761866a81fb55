package server

import (
	"orderapp/internal/handler"
	"orderapp/internal/middleware"
	"orderapp/internal/repository"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Products  *handler.ProductHandler
	Customers *handler.CustomerHandler
	Orders    *handler.OrderHandler
}

// /health は認証なし、/api 以下は auth 以外すべて JWT + token_version 確認
func RegisterRoutes(e *echo.Echo, h Handlers, parser middleware.TokenParser, users repository.UserRepository) {
	h.Health.RegisterRoutes(e)

	api := e.Group("/api")
	authed := []echo.MiddlewareFunc{middleware.AuthJWT(parser), middleware.TokenVersionGuard(users)}

	h.Auth.RegisterRoutes(api, authed...)

	protected := api.Group("", authed...)
	h.Products.RegisterRoutes(protected, middleware.AdminRoleGuard())
	h.Customers.RegisterRoutes(protected)
	h.Orders.RegisterRoutes(protected)
}
