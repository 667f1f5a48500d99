package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tutoring-sessions/internal/service"
)

// WalletHandler serves wallet balances, history and staff top-ups.
type WalletHandler struct {
	svc *service.WalletService
}

func NewWalletHandler(svc *service.WalletService) *WalletHandler {
	return &WalletHandler{svc: svc}
}

type addMinutesRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
	Minutes   int    `json:"minutes" validate:"gt=0"`
	Note      string `json:"note" validate:"max=500"`
}

type allocateRequest struct {
	StudentID   string             `json:"student_id" validate:"required"`
	TotalHours  float64            `json:"total_hours" validate:"gt=0"`
	Allocations map[string]float64 `json:"allocations" validate:"required,min=1"`
	Note        string             `json:"note" validate:"max=500"`
}

// List handles GET /v1/wallets.  Students see their own; staff may pass
// ?student_id= or omit it to see all.
func (h *WalletHandler) List(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	out, err := h.svc.ListWallets(c.Request().Context(), a, c.QueryParam("student_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Get handles GET /v1/wallets/:id.
func (h *WalletHandler) Get(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	w, err := h.svc.GetWallet(c.Request().Context(), a, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// Transactions handles GET /v1/wallets/:id/transactions.
func (h *WalletHandler) Transactions(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	out, err := h.svc.ListTransactions(c.Request().Context(), a, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// AddMinutes handles POST /v1/wallets/add-minutes.
func (h *WalletHandler) AddMinutes(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req addMinutesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	w, err := h.svc.AddMinutes(c.Request().Context(), a, req.StudentID, req.CourseID, req.Minutes, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// Allocate handles POST /v1/wallets/allocate.
func (h *WalletHandler) Allocate(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req allocateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	out, err := h.svc.Allocate(c.Request().Context(), a, service.AllocateInput{
		StudentID:   req.StudentID,
		TotalHours:  req.TotalHours,
		Allocations: req.Allocations,
		Note:        req.Note,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
