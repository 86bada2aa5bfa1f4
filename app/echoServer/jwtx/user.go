// app/echoServer/jwtx/user.go
package jwtx

import (
	"errors"

	"github.com/labstack/echo/v4"
)

// The auth middleware stores the verified identity under these keys.

func UserIDFromContext(c echo.Context) (int64, error) {
	if id, ok := c.Get("user_id").(int64); ok {
		return id, nil
	}
	return 0, errors.New("no user id in context")
}

func IsStaffFromContext(c echo.Context) bool {
	staff, _ := c.Get("is_staff").(bool)
	return staff
}
