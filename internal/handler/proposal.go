package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tutoring-sessions/internal/model"
	"github.com/iliyamo/tutoring-sessions/internal/service"
)

// ProposalHandler serves the session proposal workflow.
type ProposalHandler struct {
	svc *service.ProposalService
}

func NewProposalHandler(svc *service.ProposalService) *ProposalHandler {
	return &ProposalHandler{svc: svc}
}

type proposeRequest struct {
	TutorID       string    `json:"tutor_id" validate:"required"`
	CourseID      string    `json:"course_id" validate:"required"`
	ProposedStart time.Time `json:"proposed_start"`
	ProposedEnd   time.Time `json:"proposed_end"`
}

// responseRequest is the optional body of approve and reject.
type responseRequest struct {
	Response *string `json:"response" validate:"omitempty,max=1000"`
}

// Create handles POST /v1/proposals.
func (h *ProposalHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req proposeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.Propose(c.Request().Context(), a, service.ProposeInput{
		TutorID:  req.TutorID,
		CourseID: req.CourseID,
		Start:    req.ProposedStart,
		End:      req.ProposedEnd,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

// List handles GET /v1/proposals?status=pending.
func (h *ProposalHandler) List(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	out, err := h.svc.List(c.Request().Context(), a, model.ProposalStatus(c.QueryParam("status")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Get handles GET /v1/proposals/:id.
func (h *ProposalHandler) Get(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), a, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Approve handles POST /v1/proposals/:id/approve and returns the
// approved proposal together with the session it created.
func (h *ProposalHandler) Approve(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req responseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, sess, err := h.svc.Approve(c.Request().Context(), a, c.Param("id"), req.Response)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"proposal": p, "session": sess})
}

// Reject handles POST /v1/proposals/:id/reject.
func (h *ProposalHandler) Reject(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req responseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.Reject(c.Request().Context(), a, c.Param("id"), req.Response)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
