package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/booking-service/internal/api/dto"
	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

// StatusFor maps a booking error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyBooked), errors.Is(err, domain.ErrAlreadyAssigned):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPastDueDate), errors.Is(err, domain.ErrTooLateToCancel):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes err with its mapped status. Internal errors are logged
// and hidden from the client.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := StatusFor(err)
	_ = c.Error(err)

	if status == http.StatusInternalServerError {
		logger.Error("Request failed",
			slog.String("path", c.FullPath()),
			slog.Any("error", err),
		)
		c.JSON(status, dto.ErrorResponse{Error: "internal server error"})
		return
	}

	resp := dto.ErrorResponse{Error: err.Error()}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp = dto.ErrorResponse{Error: ve.Message, Field: ve.Field}
	}
	c.JSON(status, resp)
}
