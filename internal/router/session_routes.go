package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tutoring-sessions/internal/handler"
)

// RegisterProposals mounts the proposal workflow.  Role checks happen in
// the service because both students and tutors use these routes.
func RegisterProposals(g *echo.Group, h *handler.ProposalHandler, limit echo.MiddlewareFunc) {
	g.POST("/proposals", h.Create, limit)
	g.GET("/proposals", h.List)
	g.GET("/proposals/:id", h.Get)
	g.POST("/proposals/:id/approve", h.Approve, limit)
	g.POST("/proposals/:id/reject", h.Reject, limit)
}

// RegisterSessions mounts the session lifecycle and group attendance
// endpoints.
func RegisterSessions(g *echo.Group, h *handler.SessionHandler, limit echo.MiddlewareFunc) {
	g.GET("/sessions", h.List)
	g.GET("/sessions/:id", h.Get)
	g.POST("/sessions/:id/join", h.Join, limit)
	g.POST("/sessions/:id/end", h.End, limit)
	g.POST("/sessions/:id/postpone", h.Postpone, limit)
	g.POST("/sessions/:id/cancel", h.Cancel, limit)

	g.POST("/group-sessions", h.CreateGroup, limit)
	g.POST("/sessions/:id/attendees", h.RegisterAttendee, limit)
	g.GET("/sessions/:id/attendance", h.ListAttendance)
}
