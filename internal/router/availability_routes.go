package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tutoring-sessions/internal/handler"
	"github.com/iliyamo/tutoring-sessions/internal/middleware"
	"github.com/iliyamo/tutoring-sessions/internal/model"
)

// RegisterAvailability mounts the availability endpoints.  Reads are
// cached; any successful write drops the cache.
func RegisterAvailability(g *echo.Group, h *handler.AvailabilityHandler, limit, cache, invalidate echo.MiddlewareFunc) {
	g.GET("/tutors/:id/availability", h.ListByTutor, cache)

	tutor := middleware.RequireRole(model.RoleTutor)
	g.POST("/availability", h.Create, tutor, limit, invalidate)
	g.PUT("/availability/:id", h.Update, tutor, limit, invalidate)
	g.DELETE("/availability/:id", h.Delete, tutor, limit, invalidate)
}
