package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tutoring-sessions/internal/model"
	"github.com/iliyamo/tutoring-sessions/internal/service"
)

// SessionHandler serves the session lifecycle and group attendance
// endpoints.
type SessionHandler struct {
	svc *service.SessionService
}

func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type reasonRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=1000"`
}

type groupSessionRequest struct {
	TutorID  string    `json:"tutor_id"` // empty means the caller
	CourseID string    `json:"course_id" validate:"required"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Notes    string    `json:"notes" validate:"max=2000"`
}

type attendeeRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// List handles GET /v1/sessions.  Supports ?status=, ?from=, ?to= (RFC
// 3339) and, for staff, ?user_id=.
func (h *SessionHandler) List(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	from, err := queryTime(c, "from")
	if err != nil {
		return err
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return err
	}
	out, err := h.svc.List(c.Request().Context(), a, service.ListFilter{
		UserID: c.QueryParam("user_id"),
		Status: model.SessionStatus(c.QueryParam("status")),
		From:   from,
		To:     to,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Get handles GET /v1/sessions/:id.
func (h *SessionHandler) Get(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	s, err := h.svc.Get(c.Request().Context(), a, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

// Join handles POST /v1/sessions/:id/join.  Repeated joins are harmless.
func (h *SessionHandler) Join(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	s, err := h.svc.Join(c.Request().Context(), a, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

// End handles POST /v1/sessions/:id/end.
func (h *SessionHandler) End(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	s, err := h.svc.End(c.Request().Context(), a, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

// Postpone handles POST /v1/sessions/:id/postpone.
func (h *SessionHandler) Postpone(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req reasonRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.svc.Postpone(c.Request().Context(), a, c.Param("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

// Cancel handles POST /v1/sessions/:id/cancel.
func (h *SessionHandler) Cancel(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req reasonRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.svc.Cancel(c.Request().Context(), a, c.Param("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

// CreateGroup handles POST /v1/group-sessions.
func (h *SessionHandler) CreateGroup(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req groupSessionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.svc.CreateGroup(c.Request().Context(), a, service.GroupSessionInput{
		TutorID:  req.TutorID,
		CourseID: req.CourseID,
		Start:    req.Start,
		End:      req.End,
		Notes:    req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s)
}

// RegisterAttendee handles POST /v1/sessions/:id/attendees.
func (h *SessionHandler) RegisterAttendee(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req attendeeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	row, err := h.svc.RegisterAttendee(c.Request().Context(), a, c.Param("id"), req.StudentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, row)
}

// ListAttendance handles GET /v1/sessions/:id/attendance.
func (h *SessionHandler) ListAttendance(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.ListAttendance(c.Request().Context(), a, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rows})
}
