package borrowing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Koliesnichenko/library-service/app/echoServer/jwtx"
	rs "github.com/Koliesnichenko/library-service/service/borrowing"
)

type Controller struct {
	Svc rs.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/borrowings
func (h *Controller) Create(c echo.Context) error {
	var req CreateBorrowingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	expected, err := time.Parse(time.DateOnly, req.ExpectedReturnDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid expected_return_date"})
	}

	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := h.Svc.Create(c.Request().Context(), uid, req.BookID, expected)
	if err != nil {
		switch rs.Code(err) {
		case rs.ErrBookUnavailable:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "this book is not available now"})
		case rs.ErrBookNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		case rs.ErrBadInput:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "expected_return_date must be after today"})
		case rs.ErrGateway:
			// Borrowing is committed; only the payment session failed.
			h.Log.Error("borrowing created, payment session failed", "borrowing_id", out.Borrowing.ID)
			return c.JSON(http.StatusBadGateway, echo.Map{
				"message":   "borrowing created but payment session failed; retry via POST /v1/payments",
				"borrowing": out.Borrowing,
			})
		default:
			h.Log.Error("borrowing create", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"borrowing":    out.Borrowing,
		"payment_link": out.PaymentLink,
	})
}

// GET /v1/borrowings?is_active=&user_id=
func (h *Controller) List(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	staff := jwtx.IsStaffFromContext(c)

	var q rs.ListQuery
	if v := c.QueryParam("is_active"); v == "true" || v == "false" {
		active := v == "true"
		q.IsActive = &active
	}
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user_id"})
		}
		q.UserID = &id
	}

	rows, err := h.Svc.List(c.Request().Context(), uid, staff, q)
	if err != nil {
		h.Log.Error("borrowing list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/borrowings/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	bw, err := h.Svc.Get(c.Request().Context(), id, uid, jwtx.IsStaffFromContext(c))
	if err != nil {
		if rs.Code(err) == rs.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "borrowing not found"})
		}
		h.Log.Error("borrowing detail", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, bw)
}

// POST /v1/borrowings/:id/return
func (h *Controller) Return(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	bw, err := h.Svc.Return(c.Request().Context(), id, uid, jwtx.IsStaffFromContext(c))
	if err != nil {
		switch rs.Code(err) {
		case rs.ErrNotOwner:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "you can return only your own borrowings"})
		case rs.ErrAlreadyReturned:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "this book has already been returned"})
		case rs.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "borrowing not found"})
		default:
			h.Log.Error("borrowing return", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, bw)
}
