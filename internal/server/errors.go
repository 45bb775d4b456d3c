package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"parking-lot-queue/internal/logging"
	"parking-lot-queue/internal/parking"
)

const (
	CodeNotFound       = "NOT_FOUND"
	CodeDuplicatePlate = "DUPLICATE_PLATE"
	CodeQueueFull      = "QUEUE_FULL"
	CodeValidation     = "VALIDATION_ERROR"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeInternal       = "INTERNAL_ERROR"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{parking.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{parking.ErrDuplicatePlate, http.StatusConflict, CodeDuplicatePlate},
	{parking.ErrQueueFull, http.StatusConflict, CodeQueueFull},
	{parking.ErrInvalidPlate, http.StatusBadRequest, CodeInvalidInput},
	{parking.ErrInvalidIndex, http.StatusBadRequest, CodeInvalidInput},
	{parking.ErrInvalidCapacity, http.StatusBadRequest, CodeInvalidInput},
}

// writeParkingError maps a lot error onto a status and a stable error code.
func writeParkingError(ctx context.Context, w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			WriteError(ctx, w, m.status, m.code, err.Error())
			return
		}
	}

	logging.Error(ctx, "unexpected parking error", "error", err)
	WriteError(ctx, w, http.StatusInternalServerError, CodeInternal, "Internal server error")
}

func writeValidationError(ctx context.Context, w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		WriteError(ctx, w, http.StatusBadRequest, CodeInvalidInput, err.Error())
		return
	}

	details := make(map[string]any, len(validationErrs))
	for _, fe := range validationErrs {
		details[fe.Field()] = fe.Tag()
	}

	WriteJSON(w, http.StatusUnprocessableEntity, Response{
		Success: false,
		Error:   "Request validation failed",
		Code:    CodeValidation,
		Details: details,
		Meta:    extractMeta(ctx),
	})
}
