/*-------------------------------------------------------------------------
 *
 * errors.go
 *    API error types for PortalAgent
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/api/errors.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"fmt"
	"net/http"
)

/* APIError carries an HTTP status code alongside the error detail */
type APIError struct {
	Code      int
	Message   string
	Err       error
	RequestID string
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

/* Sentinel errors for common responses */
var (
	ErrNotFound    = NewError(http.StatusNotFound, "resource not found", nil)
	ErrBadRequest  = NewError(http.StatusBadRequest, "invalid request", nil)
	ErrUnavailable = NewError(http.StatusServiceUnavailable, "service unavailable", nil)
	ErrRateLimited = NewError(http.StatusTooManyRequests, "rate limit exceeded", nil)
)

/* NewError creates an APIError */
func NewError(code int, message string, err error) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

/* WrapError attaches a request ID to an APIError */
func WrapError(err *APIError, requestID string) *APIError {
	return &APIError{
		Code:      err.Code,
		Message:   err.Message,
		Err:       err.Err,
		RequestID: requestID,
	}
}

/* ErrorResponse is the JSON body returned for failed requests */
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
