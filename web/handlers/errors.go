package handlers

import (
	"context"
	"errors"
	"net/http"

	apperrors "dialog-agent/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondWithError logs the technical error and returns a user-friendly message
func respondWithError(c *gin.Context, statusCode int, technicalError error, userMessage string, logger *zap.Logger, fields ...zap.Field) {
	if logger != nil {
		fields = append(fields, zap.Error(technicalError))
		logger.Error("Request failed", fields...)
	}
	c.JSON(statusCode, gin.H{"error": userMessage})
}

// respondWithClientError returns a client error (no logging needed for validation errors)
func respondWithClientError(c *gin.Context, statusCode int, userMessage string) {
	c.JSON(statusCode, gin.H{"error": userMessage})
}

// respondWithEngineError maps engine errors onto HTTP statuses. Client
// mistakes are echoed back, everything else is logged.
func respondWithEngineError(c *gin.Context, err error, logger *zap.Logger, fields ...zap.Field) {
	switch {
	case apperrors.IsInvalidInput(err):
		respondWithClientError(c, http.StatusBadRequest, err.Error())
	case apperrors.IsNotFound(err):
		respondWithClientError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondWithClientError(c, http.StatusRequestTimeout, "request cancelled")
	case apperrors.IsServiceUnavailable(err):
		respondWithError(c, http.StatusServiceUnavailable, err, "Service unavailable", logger, fields...)
	default:
		respondWithError(c, http.StatusInternalServerError, err, "Internal error", logger, fields...)
	}
}
