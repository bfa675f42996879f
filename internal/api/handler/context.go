package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marketsquare/auth-service/internal/api/middleware"
)

// ctxUserID extracts the subject id injected by the Auth middleware.
// Its presence proves the middleware ran; a handler reached without it
// is a routing mistake and gets a 401, not a panic.
func ctxUserID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.CtxUserID).(string)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}
