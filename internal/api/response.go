package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"atelier/internal/dto"
	apperrors "atelier/internal/errors"
)

func NewTraceID() string {
	return uuid.New().String()
}

func WriteJSON(w http.ResponseWriter, status int, data any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func WriteValidationError(w http.ResponseWriter, traceID string, ve *apperrors.ValidationError, logger *zap.Logger) {
	details := ve.Details
	if details == nil {
		details = []apperrors.ValidationDetail{}
	}
	WriteJSON(w, http.StatusBadRequest, dto.ValidationErrorResponse{
		TraceID: traceID,
		Error:   "VALIDATION_ERROR",
		Message: ve.Message,
		Details: details,
	}, logger)
}

func WriteError(w http.ResponseWriter, traceID string, status int, code, message string, logger *zap.Logger) {
	WriteJSON(w, status, dto.ErrorResponse{
		TraceID:   traceID,
		Status:    status,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}, logger)
}

// HandleUseCaseError maps the typed errors to a response. Anything unknown is
// logged and answered with a generic 500.
func HandleUseCaseError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		WriteValidationError(w, traceID, ve, logger)
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		WriteError(w, traceID, http.StatusNotFound, "NOT_FOUND", err.Error(), logger)
		return
	}

	if sce, ok := apperrors.IsStorageConflictError(err); ok {
		logger.Warn("storage conflict", zap.Int("attempts", sce.Attempts), zap.Error(err))
		WriteError(w, traceID, http.StatusConflict, "STORAGE_CONFLICT", "the record was modified concurrently, please retry", logger)
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	WriteError(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred", logger)
}
