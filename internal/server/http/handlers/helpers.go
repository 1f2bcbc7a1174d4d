package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
	"github.com/polkiloo/labtracker/internal/server/http/dto"
	"github.com/polkiloo/labtracker/internal/server/http/middleware"
	"github.com/polkiloo/labtracker/internal/spreadsheet"
)

// CurrentViewID extracts the browser view identifier from context.
func CurrentViewID(c *gin.Context) string {
	return c.GetString(middleware.ViewIDContextKey)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrNotFound),
		errors.Is(err, domainErrors.ErrNothingToExport):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrInvalidOrder),
		errors.Is(err, domainErrors.ErrInvalidStatus),
		errors.Is(err, domainErrors.ErrUnknownColumn),
		errors.Is(err, domainErrors.ErrEmptySelection),
		errors.Is(err, spreadsheet.ErrUnreadableFile):
		return http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrInvalidPassword):
		return http.StatusForbidden
	case errors.Is(err, domainErrors.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domainErrors.ErrValidationFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Unexpected errors are attached to the
// context for the request logger and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
}
