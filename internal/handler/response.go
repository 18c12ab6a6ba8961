package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/apperror"
	"github.com/iliyamo/account-service/internal/logging"
	"github.com/iliyamo/account-service/internal/repository"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func respond(c echo.Context, status int, data any, msg string) error {
	return c.JSON(status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    msg,
		Success:    status < http.StatusBadRequest,
	})
}

// ErrorHandler renders every error returned by a handler or middleware as
// an Envelope. Server-side failures are logged with their oops code and
// context; client errors are not.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := classify(err)
		if status >= http.StatusInternalServerError {
			logging.LogError(logger, "request failed", err,
				"method", c.Request().Method, "path", c.Path())
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = respond(c, status, nil, msg)
		}
		if err != nil {
			logger.Error("write error response", "error", err)
		}
	}
}

func classify(err error) (int, string) {
	var httpErr *echo.HTTPError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, msgUserNotFound
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, msgUserExists
	case errors.As(err, &httpErr):
		if m, ok := httpErr.Message.(string); ok {
			return httpErr.Code, m
		}
		return httpErr.Code, http.StatusText(httpErr.Code)
	}
	return apperror.Status(err), apperror.Message(err)
}
