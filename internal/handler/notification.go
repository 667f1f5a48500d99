package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tutoring-sessions/internal/service"
)

type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List handles GET /v1/notifications?unread=true.
func (h *NotificationHandler) List(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	out, err := h.svc.List(c.Request().Context(), a, c.QueryParam("unread") == "true")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// MarkRead handles POST /v1/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.svc.MarkRead(c.Request().Context(), a, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
