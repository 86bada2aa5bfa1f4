package book

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Koliesnichenko/library-service/app/echoServer/jwtx"
	"github.com/Koliesnichenko/library-service/model"
	bs "github.com/Koliesnichenko/library-service/service/book"
)

type Controller struct {
	Svc bs.Service
	V   *validator.Validate
	Log *slog.Logger
}

// GET /v1/books
func (h *Controller) List(c echo.Context) error {
	books, err := h.Svc.List(c.Request().Context())
	if err != nil {
		h.Log.Error("book list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": books})
}

// GET /v1/books/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	b, err := h.Svc.Detail(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, bs.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		}
		h.Log.Error("book detail", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, b)
}

// POST /v1/books (staff)
func (h *Controller) Create(c echo.Context) error {
	if !jwtx.IsStaffFromContext(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	req, ok := h.bind(c)
	if !ok {
		return nil
	}
	id, err := h.Svc.Create(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, bs.ErrBadInput) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
		}
		h.Log.Error("book create", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	req.ID = id
	return c.JSON(http.StatusCreated, req)
}

// PUT /v1/books/:id (staff)
func (h *Controller) Update(c echo.Context) error {
	if !jwtx.IsStaffFromContext(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, perr := strconv.ParseInt(c.Param("id"), 10, 64)
	if perr != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	req, ok := h.bind(c)
	if !ok {
		return nil
	}
	req.ID = id
	if err := h.Svc.Update(c.Request().Context(), req); err != nil {
		switch {
		case errors.Is(err, bs.ErrBadInput):
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
		case errors.Is(err, bs.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		default:
			h.Log.Error("book update", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, req)
}

// DELETE /v1/books/:id (staff)
func (h *Controller) Delete(c echo.Context) error {
	if !jwtx.IsStaffFromContext(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, bs.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		}
		h.Log.Error("book delete", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// bind decodes and validates the payload; on failure the 400 response has
// already been written.
func (h *Controller) bind(c echo.Context) (model.Book, bool) {
	var req BookReq
	if err := c.Bind(&req); err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
		return model.Book{}, false
	}
	if err := h.V.Struct(req); err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
		return model.Book{}, false
	}
	return model.Book{
		Title:     req.Title,
		Author:    req.Author,
		Cover:     model.BookCover(req.Cover),
		Inventory: req.Inventory,
		DailyFee:  req.DailyFee,
	}, true
}
