package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tutoring-sessions/internal/handler"
	"github.com/iliyamo/tutoring-sessions/internal/middleware"
	"github.com/iliyamo/tutoring-sessions/internal/model"
)

// RegisterWallets mounts wallet reads for everyone and top-ups for staff.
func RegisterWallets(g *echo.Group, h *handler.WalletHandler, limit echo.MiddlewareFunc) {
	g.GET("/wallets", h.List)
	g.GET("/wallets/:id", h.Get)
	g.GET("/wallets/:id/transactions", h.Transactions)

	staff := middleware.RequireRole(model.RoleAdmin, model.RoleManager)
	g.POST("/wallets/add-minutes", h.AddMinutes, staff, limit)
	g.POST("/wallets/allocate", h.Allocate, staff, limit)
}

func RegisterNotifications(g *echo.Group, h *handler.NotificationHandler) {
	g.GET("/notifications", h.List)
	g.POST("/notifications/:id/read", h.MarkRead)
}
