package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/adminkit/admin-console/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors to their HTTP status codes.
//   - Renders the console's user-facing message for them.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err, log, c)
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, errorResponse{Error: ve.Error(), Fields: ve.Fields}
	}
	var ae *domain.APIError
	if errors.As(err, &ae) && len(ae.ValidationErrors) > 0 {
		return http.StatusBadRequest, errorResponse{Error: domain.UserMessage(err, "validation failed"), Fields: ae.ValidationErrors}
	}

	if code, ok := statusFor(err); ok {
		return code, errorResponse{Error: domain.UserMessage(err, err.Error())}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}

func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrPageOutOfRange):
		return http.StatusBadRequest, true
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidRefreshToken),
		errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, true
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, true
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, true
	case errors.Is(err, domain.ErrCancelled):
		return http.StatusPreconditionRequired, true
	case errors.Is(err, domain.ErrEmptySelection),
		errors.Is(err, domain.ErrConfirmationMismatch),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, true
	case errors.Is(err, domain.ErrNetwork), errors.Is(err, domain.ErrUnknown):
		return http.StatusBadGateway, true
	}
	return 0, false
}
