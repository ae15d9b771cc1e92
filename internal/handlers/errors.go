package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/TaskRupee/task_rupee_app/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// respondError maps a service error onto the HTTP status contract. The error
// text is returned to the caller so every rejection carries its reason.
func respondError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	var status int
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrDuplicateEntry),
		errors.Is(err, apperrors.ErrDuplicate),
		errors.Is(err, apperrors.ErrInvalidTransition),
		errors.Is(err, apperrors.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrInsufficientBalance),
		errors.Is(err, apperrors.ErrQuotaExceeded),
		errors.Is(err, apperrors.ErrTierRequired),
		errors.Is(err, apperrors.ErrNoCapacity):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrLedgerUnavailable):
		status = http.StatusServiceUnavailable
	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
		return
	}

	logger.Warn(fallback, slog.Int("status", status), slog.String("error", err.Error()))
	c.JSON(status, gin.H{"error": err.Error()})
}
