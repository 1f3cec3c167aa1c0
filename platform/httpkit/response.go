package httpkit

import (
	"errors"
	"net/http"

	"telecall_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

const msgInternalError = "internal server error"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// OK writes payload with 200.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Created writes payload with 201.
func Created(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// Error writes an ErrorResponse with the given status.
func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// HandleError renders err and reports whether there was one.
// The status comes from the first *apperr.Error in the chain; untyped errors
// are 500. Internal messages never reach the client. The error is attached
// to the gin context for RequestLogger.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	_ = c.Error(err)

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		Error(c, http.StatusInternalServerError, msgInternalError, nil)
		return true
	}

	message := appErr.Message
	if appErr.Kind == apperr.KindInternal {
		message = msgInternalError
	}
	Error(c, appErr.HTTPStatus(), message, appErr.Details)
	return true
}
