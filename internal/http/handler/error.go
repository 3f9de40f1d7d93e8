package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"fleetdocs/internal/http/middleware"
	"fleetdocs/internal/model"
	"fleetdocs/internal/remote"
	"fleetdocs/internal/resilience"
	"fleetdocs/internal/service"
	"fleetdocs/internal/staging"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps service and staging errors onto HTTP responses.
// Unknown errors are logged and reported as 500.
func writeServiceError(c *fiber.Ctx, err error) error {
	var verr *staging.ValidationError
	switch {
	case errors.As(err, &verr):
		code := "INVALID_FILE"
		switch {
		case errors.Is(err, staging.ErrExtensionNotAllowed):
			code = "EXTENSION_NOT_ALLOWED"
		case errors.Is(err, staging.ErrFileTooLarge):
			code = "FILE_TOO_LARGE"
		}
		return writeError(c, fiber.StatusUnprocessableEntity, code, verr.Error())
	case errors.Is(err, errInvalidLimit):
		return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
	case errors.Is(err, errInvalidOffset):
		return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "ID_REQUIRED", "id is required")
	case errors.Is(err, service.ErrReaderNil):
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	case errors.Is(err, service.ErrInvalidReplaceMode):
		return writeError(c, fiber.StatusBadRequest, "INVALID_MODE", "mode must be delete or archive")
	case errors.Is(err, model.ErrInvalidModule):
		return writeError(c, fiber.StatusBadRequest, "INVALID_MODULE", "module must be driver or vehicle")
	case errors.Is(err, service.ErrSessionNotFound):
		return writeError(c, fiber.StatusNotFound, "SESSION_NOT_FOUND", "staging session not found")
	case errors.Is(err, service.ErrReportNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "commit report not found")
	case errors.Is(err, staging.ErrDocumentNotFound), errors.Is(err, service.ErrDocumentNotFound):
		return writeError(c, fiber.StatusNotFound, "DOCUMENT_NOT_FOUND", "document not found")
	case errors.Is(err, staging.ErrUnknownDocumentType):
		return writeError(c, fiber.StatusUnprocessableEntity, "UNKNOWN_DOCUMENT_TYPE", "document type is not assigned to this module")
	case errors.Is(err, staging.ErrNothingToReplaceWith):
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	case errors.Is(err, staging.ErrForbidden):
		return writeError(c, fiber.StatusForbidden, "FORBIDDEN", "operation not permitted for this role")
	case errors.Is(err, remote.ErrRejected):
		return writeError(c, fiber.StatusBadGateway, "REMOTE_REJECTED", "backend rejected the operation")
	case resilience.IsCircuitOpen(err):
		return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "backend temporarily unavailable")
	default:
		zerolog.Ctx(c.UserContext()).Error().Err(err).Str("path", c.Path()).Msg("request_failed")
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", "authentication required")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "FILE_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
