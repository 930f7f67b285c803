package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
)

// StatusFor maps a service error onto an HTTP status.
func StatusFor(err error) int {
	var (
		cfgErr   *domain.ConfigurationError
		valErr   *domain.ValidationError
		stageErr *domain.StageError
		capErr   *domain.CapacityError
		httpErr  *echo.HTTPError
	)
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusConflict
	case errors.As(err, &valErr), errors.As(err, &stageErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &capErr):
		return http.StatusInsufficientStorage
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &httpErr):
		return httpErr.Code
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondError(c echo.Context, err error) error {
	status := StatusFor(err)
	body := map[string]any{"error": err.Error()}

	var (
		valErr   *domain.ValidationError
		stageErr *domain.StageError
	)
	switch {
	case errors.As(err, &valErr):
		body["error"] = "validation failed"
		body["violations"] = valErr.Violations
	case errors.As(err, &stageErr):
		body["error"] = "stage check failed"
		body["stage"] = stageErr.Stage
		body["violations"] = stageErr.Violations
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.Path(), "status", status, "error", err)
	}
	return c.JSON(status, body)
}
