package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: domain.NewValidationError("due_date", "All fields must be filled in"), want: http.StatusUnprocessableEntity},
		{name: "wrapped validation", err: fmt.Errorf("create: %w", domain.NewValidationError("duration", "x")), want: http.StatusUnprocessableEntity},
		{name: "forbidden", err: fmt.Errorf("only admins: %w", domain.ErrForbidden), want: http.StatusForbidden},
		{name: "not found", err: domain.ErrNotFound, want: http.StatusNotFound},
		{name: "already booked", err: domain.ErrAlreadyBooked, want: http.StatusConflict},
		{name: "already assigned", err: domain.ErrAlreadyAssigned, want: http.StatusConflict},
		{name: "past due", err: domain.ErrPastDueDate, want: http.StatusBadRequest},
		{name: "too late", err: domain.ErrTooLateToCancel, want: http.StatusBadRequest},
		{name: "unknown", err: errors.New("connection reset"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}
