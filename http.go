package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// RequestIDLocalsKey is where the requestid middleware stores the id
const RequestIDLocalsKey = "requestid"

var categoryStatus = map[errors.Category]int{
	errors.CategoryValidation: http.StatusBadRequest,
	errors.CategoryBadInput:   http.StatusBadRequest,
	errors.CategoryAuth:       http.StatusUnauthorized,
	errors.CategoryAuthz:      http.StatusForbidden,
	errors.CategoryNotFound:   http.StatusNotFound,
	errors.CategoryConflict:   http.StatusConflict,
	errors.CategoryRateLimit:  http.StatusTooManyRequests,
}

// StatusForError returns the HTTP status for a rich error: its explicit
// code when set, otherwise one derived from its category.
func StatusForError(err *errors.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	if err.Code >= 400 && err.Code < 600 {
		return err.Code
	}
	if status, ok := categoryStatus[err.Category]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NewErrorHandler returns the fiber error handler rendering every error
// as a JSON errors.ErrorResponse.
func NewErrorHandler(logger Logger, includeStack bool) fiber.ErrorHandler {
	logger = normalizeLogger(logger)

	return func(c *fiber.Ctx, err error) error {
		richErr := toRichError(err)
		status := StatusForError(richErr)

		if status >= http.StatusInternalServerError {
			logger.Error(
				"request failed",
				"error", err,
				"path", c.Path(),
				"details", print.MaybePrettyJSON(richErr.Metadata),
			)
			richErr.Message = "An unexpected server error occurred"
			richErr.Metadata = nil
			richErr.ValidationErrors = nil
			if richErr.TextCode == "" {
				richErr.TextCode = "INTERNAL_ERROR"
			}
		} else {
			logger.Info(
				"request rejected",
				"error", richErr.Message,
				"category", richErr.Category,
				"text_code", richErr.TextCode,
				"path", c.Path(),
			)
		}

		richErr.Code = status
		richErr.Location = nil
		richErr.Source = nil
		if rid, ok := c.Locals(RequestIDLocalsKey).(string); ok {
			richErr.RequestID = rid
		}

		return c.Status(status).JSON(richErr.ToErrorResponse(includeStack, richErr.StackTrace))
	}
}

// toRichError returns a copy safe to mutate
func toRichError(err error) *errors.Error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Clone()
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return errors.New(fiberErr.Message, errors.HTTPStatusToCategory(fiberErr.Code)).
			WithCode(fiberErr.Code).
			WithTextCode(errors.HTTPStatusToTextCode(fiberErr.Code))
	}

	return errors.MapToError(err, errors.DefaultErrorMappers()).Clone()
}
