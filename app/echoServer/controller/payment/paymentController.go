package payment

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Koliesnichenko/library-service/app/echoServer/jwtx"
	ps "github.com/Koliesnichenko/library-service/service/payment"
)

type Controller struct {
	Svc ps.Service
	V   *validator.Validate
	Log *slog.Logger
}

type createPaymentReq struct {
	BorrowingID int64 `json:"borrowing_id" validate:"required,gt=0"`
}

// GET /v1/payments
func (h *Controller) List(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	rows, err := h.Svc.List(c.Request().Context(), uid, jwtx.IsStaffFromContext(c))
	if err != nil {
		h.Log.Error("payment list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/payments/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	p, err := h.Svc.Get(c.Request().Context(), id, uid, jwtx.IsStaffFromContext(c))
	if err != nil {
		if ps.Code(err) == ps.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "payment not found"})
		}
		h.Log.Error("payment detail", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, p)
}

// POST /v1/payments — re-open a checkout session for a borrowing.
func (h *Controller) Create(c echo.Context) error {
	var req createPaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	p, err := h.Svc.CreateForBorrowing(c.Request().Context(), uid, jwtx.IsStaffFromContext(c), req.BorrowingID)
	if err != nil {
		switch ps.Code(err) {
		case ps.ErrBorrowingNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "borrowing not found"})
		case ps.ErrGateway:
			return c.JSON(http.StatusBadGateway, echo.Map{"message": "payment gateway error"})
		default:
			h.Log.Error("payment create", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, p)
}

// GET /v1/payments/success?session_id= — gateway redirect target.
func (h *Controller) Success(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "session_id not provided"})
	}

	p, paid, err := h.Svc.HandleSuccess(c.Request().Context(), sessionID)
	if err != nil {
		switch ps.Code(err) {
		case ps.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "payment not found"})
		case ps.ErrGateway:
			return c.JSON(http.StatusBadGateway, echo.Map{"message": "payment gateway error"})
		default:
			h.Log.Error("payment success", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	if !paid {
		return c.JSON(http.StatusOK, echo.Map{"status": "Payment failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "Payment successful", "payment": p})
}

// GET /v1/payments/cancel
func (h *Controller) Cancel(c echo.Context) error {
	h.Svc.HandleCancel(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{"message": "Payment was canceled. Please try again later."})
}
