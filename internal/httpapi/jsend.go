package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Responses follow the jsend envelope: status success/fail/error plus a
// data or message payload.
type jsendBody struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func success(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, jsendBody{Status: "success", Data: data})
}

func created(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, jsendBody{Status: "success", Data: data})
}

func fail(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, jsendBody{Status: "fail", Message: message, Data: data})
}

func failValidation(c echo.Context, fields map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", map[string]any{"fields": fields})
}

func notFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, message, nil)
}

func internalError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, jsendBody{Status: "error", Message: message})
}
