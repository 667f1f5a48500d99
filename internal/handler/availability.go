package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tutoring-sessions/internal/service"
)

// AvailabilityHandler serves the tutor availability endpoints.
type AvailabilityHandler struct {
	svc *service.AvailabilityService
}

func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc}
}

type availabilityRequest struct {
	DayOfWeek   *int   `json:"day_of_week" validate:"required,min=0,max=6"` // pointer so Sunday (0) passes required
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	IsRecurring *bool  `json:"is_recurring"`
	IsActive    *bool  `json:"is_active"`
}

func (r availabilityRequest) input() service.AvailabilityInput {
	return service.AvailabilityInput{
		DayOfWeek:   *r.DayOfWeek,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		IsRecurring: r.IsRecurring,
		IsActive:    r.IsActive,
	}
}

// Create handles POST /v1/availability.
func (h *AvailabilityHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req availabilityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	out, err := h.svc.Create(c.Request().Context(), a, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

// ListByTutor handles GET /v1/tutors/:id/availability.  Inactive windows
// are included only with ?all=true.
func (h *AvailabilityHandler) ListByTutor(c echo.Context) error {
	activeOnly := c.QueryParam("all") != "true"
	out, err := h.svc.ListByTutor(c.Request().Context(), c.Param("id"), activeOnly)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Update handles PUT /v1/availability/:id.
func (h *AvailabilityHandler) Update(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req availabilityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	out, err := h.svc.Update(c.Request().Context(), a, c.Param("id"), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Delete handles DELETE /v1/availability/:id.
func (h *AvailabilityHandler) Delete(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), a, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
